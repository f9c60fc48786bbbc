package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the detection workers until interrupted",
	Long: `Run the detection worker pool in the foreground. Unfinished runs from a
previous process are resumed on startup. Stop with Ctrl-C.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store, det, cfg, err := openEngine(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		defer store.Close()

		if err := det.Start(ctx); err != nil {
			fatalf("%v", err)
		}

		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s Detection workers running (workers=%d, db=%s). Ctrl-C to stop.\n",
			green("✓"), cfg.Workers, cfg.DBPath)

		<-ctx.Done()
		det.Stop()
		fmt.Println("\nStopped.")
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
