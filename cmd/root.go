// Package cmd defines the CLI commands for the sieve executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sievesearch/sieve/internal/config"
	"github.com/sievesearch/sieve/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sieve",
		Short: "Admission control and indexing for the search pipeline",
		Long: `sieve sits between the crawler and the searchable store. The gate
scores crawled pages with a pre-trained classifier and routes them to the
indexing queue, the recrawl queue, or the domain blacklist. The indexer
consumes accepted pages in batches and upserts them into Postgres with
exactly-once-per-content semantics.`,
		SilenceUsage: true,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (environment variables override)")

	cmd.AddCommand(newGateCmd())
	cmd.AddCommand(newIndexerCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newInitDBCmd())

	return cmd
}

// Execute is the main entry point.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "sieve: %v\n", err)
		os.Exit(1)
	}
}
