// Command hypermem is a thin CLI over the hypermem client: remember, recall,
// dream, inspect, migrate, and snapshot an associative memory store.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hypermem/hypermem-go/pkg/core"
)

var (
	dbPath  string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "hypermem",
	Short: "Associative hypervector memory engine",
	Long: "Hypermem stores text as high-dimensional hypervectors with wave-modulated\n" +
		"strength, recalls by similarity and skip-link expansion, and consolidates\n" +
		"memories through dream cycles.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "snapshot file (overrides HYPERMEM_SNAPSHOT_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(rememberCmd)
	rootCmd.AddCommand(recallCmd)
	rootCmd.AddCommand(dreamCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(loadCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClient builds a client from the environment and flags, loading the
// snapshot when one is configured.
func newClient(ctx context.Context) (*core.Client, error) {
	cfg, err := core.LoadConfigFromEnv()
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.SnapshotPath = dbPath
	}

	logger := zap.NewNop()
	if verbose {
		logger, err = zap.NewDevelopment()
		if err != nil {
			return nil, err
		}
	}

	client, err := core.NewClient(cfg, core.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	if cfg.SnapshotPath != "" {
		if err := client.Load(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	return client, nil
}

// persist saves the snapshot when one is configured; a client without a
// snapshot path stays in-memory only.
func persist(ctx context.Context, client *core.Client) error {
	err := client.Save(ctx)
	if errors.Is(err, core.ErrNoSnapshotPath) {
		fmt.Fprintln(os.Stderr, "warning: no snapshot path configured, changes not persisted")
		return nil
	}
	return err
}
