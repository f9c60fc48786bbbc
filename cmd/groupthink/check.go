package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/groupthink/groupthink/internal/resolver"
)

var checkCmd = &cobra.Command{
	Use:   "check <description>",
	Short: "Preview duplicates for a description without creating a task",
	Long: `Score a hypothetical task description against your existing tasks.
Nothing is persisted; use this to see what would happen before adding.

Example:
  groupthink check "login times out on mobile devices"`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		description := strings.Join(args, " ")

		ctx := context.Background()
		store, det, _, err := openEngine(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		defer store.Close()

		preview, err := det.CheckDuplicates(ctx, ownerID(), description)
		if err != nil {
			fatalf("%v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		if preview.Resolution.Kind == resolver.NoDuplicates {
			fmt.Printf("%s No similar tasks found\n", green("✓"))
			return
		}

		fmt.Printf("%s %d similar task(s):\n\n", yellow("!"), len(preview.Candidates))
		for _, c := range preview.Candidates {
			group := ""
			if c.GroupID != "" {
				group = fmt.Sprintf("  [group %s]", cyan(c.GroupID))
			}
			fmt.Printf("  %.3f  %s  %s%s\n", c.Score, c.TaskID, truncateText(c.Description, 60), group)
		}

		fmt.Println()
		switch preview.Resolution.Kind {
		case resolver.SingleTarget:
			if preview.Resolution.TargetGroupID != "" {
				fmt.Printf("Would suggest joining group %s\n", cyan(preview.Resolution.TargetGroupID))
			} else {
				fmt.Printf("Would suggest forming a new group\n")
			}
		case resolver.Conflict:
			fmt.Printf("Candidates span %d groups; a decision would be required\n",
				len(preview.Resolution.TouchedGroupIDs))
		}
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}
