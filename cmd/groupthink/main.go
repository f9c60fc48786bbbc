package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/groupthink/groupthink/internal/ai"
	"github.com/groupthink/groupthink/internal/config"
	"github.com/groupthink/groupthink/internal/detector"
	"github.com/groupthink/groupthink/internal/embedding"
	"github.com/groupthink/groupthink/internal/grouping"
	"github.com/groupthink/groupthink/internal/storage"
)

var (
	flagConfig string
	flagDB     string
	flagOwner  string
)

var rootCmd = &cobra.Command{
	Use:   "groupthink",
	Short: "Duplicate detection and grouping for free-text tasks",
	Long: `groupthink watches a stream of free-text task descriptions, detects
semantic duplicates via embeddings, and groups them - automatically when the
match is near-certain, or after asking when it isn't.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "YAML config file (default: env + built-in defaults)")
	rootCmd.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path (overrides config)")
	rootCmd.PersistentFlags().StringVar(&flagOwner, "owner", "", "owner whose tasks to operate on (default: $GROUPTHINK_OWNER or \"default\")")
}

// loadConfig resolves configuration: explicit file when given, otherwise
// environment over defaults, with command-line overrides last.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	var err error
	if flagConfig != "" {
		cfg, err = config.LoadFile(flagConfig)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		return cfg, err
	}
	if flagDB != "" {
		cfg.DBPath = flagDB
	}
	return cfg, nil
}

func ownerID() string {
	if flagOwner != "" {
		return flagOwner
	}
	if env := os.Getenv("GROUPTHINK_OWNER"); env != "" {
		return env
	}
	return "default"
}

// openEngine wires storage, provider, group manager and detector together.
// Callers own store.Close().
func openEngine(ctx context.Context) (storage.Storage, *detector.Detector, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, cfg, err
	}

	store, err := storage.New(ctx, &storage.Config{Path: cfg.DBPath})
	if err != nil {
		return nil, nil, cfg, fmt.Errorf("failed to open database: %w", err)
	}

	gen, err := embedding.NewOllamaGenerator(cfg.Provider)
	if err != nil {
		store.Close()
		return nil, nil, cfg, err
	}

	groups := grouping.NewManager(store, ai.NewNamer(cfg.Namer))
	det, err := detector.New(store, gen, groups, nil, cfg)
	if err != nil {
		store.Close()
		return nil, nil, cfg, err
	}
	return store, det, cfg, nil
}

// openStore opens just the database, for read/report commands that never
// touch the embedding provider.
func openStore(ctx context.Context, path string) (storage.Storage, error) {
	store, err := storage.New(ctx, &storage.Config{Path: path})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
