package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sievesearch/sieve/internal/clock/system"
	"github.com/sievesearch/sieve/internal/indexer"
	redisqueue "github.com/sievesearch/sieve/internal/queue/redis"
	"github.com/sievesearch/sieve/internal/store"
)

func newIndexerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indexer",
		Short: "Run the batch indexer",
		Long: `Consumes accepted pages from the indexing queue in opportunistic
batches, deduplicates them by content fingerprint, and upserts them into the
searchable store while maintaining daily statistics. Applies the relational
schema idempotently at startup.`,
		RunE: runIndexer,
	}
}

func runIndexer(cmd *cobra.Command, _ []string) error {
	if cfg.DB.DSN == "" {
		return fmt.Errorf("db.dsn is required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.New(ctx, store.Config{
		DSN:      cfg.DB.DSN,
		MaxConns: cfg.DB.MaxConns,
		MinConns: cfg.DB.MinConns,
	})
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	defer st.Close()

	rdb, err := redisqueue.New(ctx, redisqueue.Options{
		Addr:       cfg.Redis.Addr(),
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		MaxRetries: cfg.Redis.MaxRetries,
	})
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() {
		if cerr := rdb.Close(); cerr != nil {
			logger.Warn("close redis failed", zap.Error(cerr))
		}
	}()

	x := indexer.New(rdb, st, system.New(), indexer.Config{
		QueueKey:         cfg.Redis.IndexQueueKey,
		BatchSize:        cfg.Indexer.BatchSize,
		MaxWorkers:       cfg.Indexer.MaxWorkers,
		QueueTimeout:     cfg.Indexer.QueueTimeout(),
		MinContentLength: cfg.Indexer.MinContentLength,
		MaxContentLength: cfg.Indexer.MaxContentLength,
		StatsLogInterval: cfg.Indexer.StatsLogInterval,
	}, logger)

	go serveOps(ctx, readyProbe(func(probeCtx context.Context) error {
		_, err := st.PageCount(probeCtx)
		return err
	}))

	return x.Run(ctx)
}
