package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sievesearch/sieve/internal/store"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show index totals and today's indexer statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.DB.DSN == "" {
				return fmt.Errorf("db.dsn is required")
			}
			st, err := store.New(cmd.Context(), store.Config{
				DSN:      cfg.DB.DSN,
				MaxConns: cfg.DB.MaxConns,
				MinConns: cfg.DB.MinConns,
			})
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer st.Close()

			agg, err := st.Aggregate(cmd.Context())
			if err != nil {
				return fmt.Errorf("aggregate stats: %w", err)
			}
			daily, err := st.DailyStats(cmd.Context())
			if err != nil {
				return fmt.Errorf("daily stats: %w", err)
			}

			cmd.Printf("total pages:      %d\n", agg.TotalPages)
			cmd.Printf("avg word count:   %.2f\n", agg.AvgWordCount)
			cmd.Printf("distinct domains: %d\n", agg.DistinctDomains)
			if agg.LatestCreatedAt != nil {
				cmd.Printf("latest page:      %s\n", agg.LatestCreatedAt.Format("2006-01-02 15:04:05 MST"))
			}
			cmd.Println()
			cmd.Printf("today: %d processed, %d inserted, %d updated, %d skipped, %d errors, %.2fms avg batch\n",
				daily.PagesProcessed, daily.PagesInserted, daily.PagesUpdated,
				daily.PagesSkipped, daily.ProcessingErrors, daily.AvgProcessingTimeMs)
			return nil
		},
	}
}

func newInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Apply the relational schema and exit",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cfg.DB.DSN == "" {
				return fmt.Errorf("db.dsn is required")
			}
			st, err := store.New(cmd.Context(), store.Config{
				DSN:      cfg.DB.DSN,
				MaxConns: cfg.DB.MaxConns,
				MinConns: cfg.DB.MinConns,
			})
			if err != nil {
				return fmt.Errorf("init store: %w", err)
			}
			defer st.Close()
			cmd.Println("schema applied")
			return nil
		},
	}
}
