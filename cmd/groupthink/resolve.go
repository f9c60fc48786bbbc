package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/groupthink/groupthink/internal/types"
)

var (
	resolveStandalone bool
	resolveDismiss    bool
	resolveJoin       string
	resolveForm       []string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <detection-id>",
	Short: "Apply your decision to a pending detection",
	Long: `Resolve a detection that is waiting for review. Exactly one of the
decision flags must be given:

  --standalone      keep the task on its own (suggestions were wrong)
  --dismiss         same as --standalone, recorded as a dismissal
  --join <group>    add the task to an existing group
  --form <task,..>  form a new group from the task and the listed candidates

Repeating the same decision is a no-op; a different decision on an already
resolved detection is an error.

Example:
  groupthink resolve 7f3a... --join 9c41...
  groupthink resolve 7f3a... --form 11ab...,42cd...
  groupthink resolve 7f3a... --standalone`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		decision, err := decisionFromFlags()
		if err != nil {
			fatalf("%v", err)
		}

		ctx := context.Background()
		store, det, _, err := openEngine(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		defer store.Close()

		resolved, err := det.Resolve(ctx, args[0], decision)
		if err != nil {
			fatalf("%v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		switch resolved.State {
		case types.DetectionStateGrouped:
			fmt.Printf("%s Task grouped\n", green("✓"))
		default:
			fmt.Printf("%s Detection resolved (%s)\n", green("✓"), resolved.State)
		}
	},
}

func decisionFromFlags() (types.Decision, error) {
	count := 0
	if resolveStandalone {
		count++
	}
	if resolveDismiss {
		count++
	}
	if resolveJoin != "" {
		count++
	}
	if len(resolveForm) > 0 {
		count++
	}
	if count != 1 {
		return types.Decision{}, fmt.Errorf("exactly one of --standalone, --dismiss, --join, --form is required")
	}

	switch {
	case resolveStandalone:
		return types.CreateStandalone(), nil
	case resolveDismiss:
		return types.Dismiss(), nil
	case resolveJoin != "":
		return types.JoinGroup(resolveJoin), nil
	default:
		return types.FormGroup(resolveForm), nil
	}
}

func init() {
	rootCmd.AddCommand(resolveCmd)
	resolveCmd.Flags().BoolVar(&resolveStandalone, "standalone", false, "Keep the task ungrouped")
	resolveCmd.Flags().BoolVar(&resolveDismiss, "dismiss", false, "Dismiss the suggestions as unrelated")
	resolveCmd.Flags().StringVar(&resolveJoin, "join", "", "Group ID to join")
	resolveCmd.Flags().StringSliceVar(&resolveForm, "form", nil, "Task IDs to form a new group with")
}
