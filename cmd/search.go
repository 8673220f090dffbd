package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sievesearch/sieve/internal/store"
)

func newSearchCmd() *cobra.Command {
	var (
		domain   string
		minWords int
		limit    int
		offset   int
	)
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a full-text search against the index",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			query := strings.Join(args, " ")
			results, err := st.Search(cmd.Context(), store.SearchQuery{
				Terms:        query,
				Domain:       domain,
				MinWordCount: minWords,
				Limit:        limit,
				Offset:       offset,
			})
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}

			if len(results) == 0 {
				cmd.Printf("no results for %q\n", query)
				return nil
			}
			cmd.Printf("%d results for %q\n", len(results), query)
			for i, r := range results {
				title := r.Title
				if title == "" {
					title = "(no title)"
				}
				cmd.Printf("%2d. %s\n    %s\n    domain=%s words=%d rank=%.4f\n",
					i+1+offset, title, r.URL, r.Domain, r.WordCount, r.Rank)
				if r.Description != "" {
					cmd.Printf("    %s\n", truncate(r.Description, 100))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&domain, "domain", "", "restrict results to one domain")
	cmd.Flags().IntVar(&minWords, "min-words", 0, "minimum word count")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum results")
	cmd.Flags().IntVar(&offset, "offset", 0, "result offset for pagination")
	return cmd
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
