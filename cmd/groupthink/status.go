package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show engine statistics",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		stats, err := store.GetStatistics(ctx)
		if err != nil {
			fatalf("%v", err)
		}

		bold := color.New(color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		fmt.Printf("%s\n", bold("Tasks"))
		fmt.Printf("  Total:    %d\n", stats.TotalTasks)
		fmt.Printf("  Grouped:  %d\n", stats.GroupedTasks)
		fmt.Printf("  Groups:   %d\n", stats.TotalGroups)
		fmt.Println()
		fmt.Printf("%s\n", bold("Detections"))
		fmt.Printf("  Total:     %d\n", stats.TotalDetections)
		if stats.PendingDetections > 0 {
			fmt.Printf("  Pending:   %s\n", yellow(fmt.Sprintf("%d", stats.PendingDetections)))
		} else {
			fmt.Printf("  Pending:   0\n")
		}
		fmt.Printf("  Grouped:   %d\n", stats.GroupedDetections)
		fmt.Printf("  Dismissed: %d\n", stats.DismissedDetections)
		fmt.Printf("  Failed:    %d\n", stats.FailedDetections)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
