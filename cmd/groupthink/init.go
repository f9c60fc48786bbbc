package main

import (
	"context"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/groupthink/groupthink/internal/storage"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize the database in the current directory",
	Long: `Initialize the engine database. Creates:
  - .groupthink/ directory
  - .groupthink/engine.db (SQLite database)

Example:
  groupthink init
  groupthink init --db /var/lib/groupthink/engine.db`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig()
		if err != nil {
			fatalf("%v", err)
		}

		ctx := context.Background()
		store, err := storage.New(ctx, &storage.Config{Path: cfg.DBPath})
		if err != nil {
			fatalf("failed to initialize database: %v", err)
		}
		_ = store.Close()

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s Initialized duplicate detection engine\n\n", green("✓"))
		fmt.Printf("  Database: %s\n", cyan(cfg.DBPath))
		fmt.Println()
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("groupthink add \"fix login timeout on mobile\""))
		fmt.Printf("  %s\n", gray("groupthink pending"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
