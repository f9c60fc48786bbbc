package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var eventsLimit int

var eventsCmd = &cobra.Command{
	Use:   "events <task-or-group-id>",
	Short: "Show the audit trail for a task or group",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := mustOpenStore(ctx)
		defer store.Close()

		events, err := store.GetEvents(ctx, args[0], eventsLimit)
		if err != nil {
			fatalf("%v", err)
		}

		gray := color.New(color.FgHiBlack).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()

		if len(events) == 0 {
			fmt.Println("No events.")
			return
		}
		for _, e := range events {
			detail := ""
			if e.NewValue != nil {
				detail = " " + *e.NewValue
			}
			edge := ""
			if e.EdgeID != nil {
				edge = gray("  (edge " + *e.EdgeID + ")")
			}
			fmt.Printf("%s  %s  %s%s%s\n",
				gray(e.CreatedAt.Format("2006-01-02 15:04:05")),
				cyan(string(e.EventType)), e.Actor+detail, edge, "")
		}
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
	eventsCmd.Flags().IntVar(&eventsLimit, "limit", 50, "Maximum events to show")
}
