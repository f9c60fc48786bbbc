package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/groupthink/groupthink/internal/types"
)

var addWait time.Duration

var addCmd = &cobra.Command{
	Use:   "add <description>",
	Short: "Add a task and run duplicate detection on it",
	Long: `Add a task and run duplicate detection against your existing tasks.

The task is created immediately; detection runs in the background and this
command waits (up to --wait) for the outcome. A detection failure never
blocks the task itself.

Example:
  groupthink add "users report login timeout on mobile"
  groupthink add --wait 10s "checkout page renders blank on safari"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		description := strings.Join(args, " ")

		ctx := context.Background()
		store, det, _, err := openEngine(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		defer store.Close()

		if err := det.Start(ctx); err != nil {
			fatalf("%v", err)
		}
		defer det.Stop()

		task, run, err := det.Submit(ctx, ownerID(), description)
		if err != nil {
			fatalf("%v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Created task %s\n", green("✓"), task.ID)

		final := waitForDetection(ctx, store, run.ID, addWait)
		printDetectionOutcome(final)
	},
}

// waitForDetection polls until the run needs a user or is terminal, or the
// wait window elapses.
func waitForDetection(ctx context.Context, store detectionGetter, id string, wait time.Duration) *types.DuplicateDetection {
	deadline := time.Now().Add(wait)
	var last *types.DuplicateDetection
	for time.Now().Before(deadline) {
		det, err := store.GetDetection(ctx, id)
		if err == nil {
			last = det
			if det.State.IsTerminal() || det.State == types.DetectionStatePendingReview {
				return det
			}
		}
		time.Sleep(200 * time.Millisecond)
	}
	return last
}

type detectionGetter interface {
	GetDetection(ctx context.Context, id string) (*types.DuplicateDetection, error)
}

func printDetectionOutcome(det *types.DuplicateDetection) {
	green := color.New(color.FgGreen).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	if det == nil {
		fmt.Printf("%s Detection still running; check later with: groupthink pending\n", yellow("…"))
		return
	}

	switch det.State {
	case types.DetectionStateNoDuplicates:
		fmt.Printf("%s No duplicates found\n", green("✓"))
	case types.DetectionStateGrouped:
		fmt.Printf("%s Task grouped with its duplicates\n", green("✓"))
	case types.DetectionStateDismissed:
		fmt.Printf("%s No grouping applied\n", green("✓"))
	case types.DetectionStatePendingReview:
		fmt.Printf("%s %d possible duplicate(s) need your review:\n", yellow("!"), len(det.Candidates))
		for _, c := range det.Candidates {
			fmt.Printf("    %.3f  %s  %s\n", c.Score, c.TaskID, truncateText(c.Description, 60))
		}
		fmt.Printf("  %s\n", gray("groupthink resolve "+det.ID+" --join <group> | --form <task,...> | --standalone"))
	case types.DetectionStateFailed:
		fmt.Printf("%s Detection failed (%s); task created standalone\n", red("✗"), det.Error)
	default:
		fmt.Printf("%s Detection in progress (%s)\n", yellow("…"), det.State)
	}
}

func truncateText(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func init() {
	rootCmd.AddCommand(addCmd)
	addCmd.Flags().DurationVar(&addWait, "wait", 30*time.Second, "How long to wait for the detection outcome")
}
