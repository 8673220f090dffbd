package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sievesearch/sieve/internal/api"
	"github.com/sievesearch/sieve/internal/classifier"
	"github.com/sievesearch/sieve/internal/gate"
	redisqueue "github.com/sievesearch/sieve/internal/queue/redis"
)

func newGateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gate",
		Short: "Run the classification gate",
		Long: `Consumes raw crawled pages from the inbound queue, scores each with
the pre-trained classifier, and routes it to the indexing queue, the recrawl
queue, or the domain blacklist. Refuses to start without the model artifacts.`,
		RunE: runGate,
	}
}

func runGate(cmd *cobra.Command, _ []string) error {
	if cfg.Classifier.ModelFile == "" || cfg.Classifier.VectorizerFile == "" {
		return fmt.Errorf("classifier.model_file and classifier.vectorizer_file are required")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	model, err := classifier.Load(cfg.Classifier.ModelFile, cfg.Classifier.VectorizerFile)
	if err != nil {
		return fmt.Errorf("load classifier: %w", err)
	}
	logger.Info("classifier loaded",
		zap.String("model_file", cfg.Classifier.ModelFile),
		zap.String("vectorizer_file", cfg.Classifier.VectorizerFile),
	)

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

	g := gate.New(rdb, rdb, model, gate.Config{
		InboundKey:         cfg.Redis.InboundQueueKey,
		IndexKey:           cfg.Redis.IndexQueueKey,
		RecrawlKey:         cfg.Redis.CrawlerQueueKey,
		BlacklistKey:       cfg.Redis.BlacklistKey,
		RejectionThreshold: cfg.Classifier.Rejection(),
		ForwardThreshold:   cfg.Classifier.Forward(),
	}, logger)

	go serveOps(ctx, nil)

	return g.Run(ctx)
}

// serveOps runs the operational HTTP endpoint until ctx finishes. Failures
// are logged, never fatal to the pipeline.
func serveOps(ctx context.Context, ready func(context.Context) error) {
	srv := api.NewServer(ready, logger)
	if err := srv.Serve(ctx, cfg.Server.Port); err != nil {
		logger.Warn("operational server failed", zap.Error(err))
	}
}

// readyProbe bounds a readiness check so a stalled dependency cannot hang
// the probe endpoint.
func readyProbe(check func(context.Context) error) func(context.Context) error {
	return func(ctx context.Context) error {
		probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return check(probeCtx)
	}
}
