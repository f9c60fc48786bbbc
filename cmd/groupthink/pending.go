package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List detections waiting for your decision",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		cfg, err := loadConfig()
		if err != nil {
			fatalf("%v", err)
		}
		store, err := openStore(ctx, cfg.DBPath)
		if err != nil {
			fatalf("%v", err)
		}
		defer store.Close()

		pending, err := store.GetPendingDetections(ctx, ownerID())
		if err != nil {
			fatalf("%v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		if len(pending) == 0 {
			fmt.Printf("%s Nothing pending\n", green("✓"))
			return
		}

		fmt.Printf("%s %d detection(s) awaiting review:\n\n", yellow("!"), len(pending))
		for _, det := range pending {
			task, err := store.GetTask(ctx, det.TaskID)
			subject := det.TaskID
			if err == nil {
				subject = truncateText(task.Description, 60)
			}
			fmt.Printf("  %s  %s\n", cyan(det.ID), subject)
			for _, c := range det.Candidates {
				group := ""
				if c.GroupID != "" {
					group = fmt.Sprintf("  [group %s]", c.GroupID)
				}
				fmt.Printf("    %.3f  %s  %s%s\n", c.Score, c.TaskID, truncateText(c.Description, 50), group)
			}
			fmt.Println()
		}
		fmt.Printf("%s\n", gray("groupthink resolve <detection-id> --join <group> | --form <task,...> | --standalone | --dismiss"))
	},
}

func init() {
	rootCmd.AddCommand(pendingCmd)
}
