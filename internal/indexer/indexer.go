// Package indexer turns accepted page records into durable, deduplicated,
// full-text-searchable rows with rolling daily statistics.
package indexer

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sievesearch/sieve/internal/metrics"
	"github.com/sievesearch/sieve/internal/pipeline"
)

// Config controls the indexer loop.
type Config struct {
	QueueKey         string
	BatchSize        int
	MaxWorkers       int
	QueueTimeout     time.Duration
	MinContentLength int
	MaxContentLength int
	StatsLogInterval int
	IdleSleep        time.Duration
}

// Indexer consumes the indexing queue in opportunistic batches and upserts
// pages into the store. The dequeue loop is single-threaded; pages within a
// batch are processed concurrently.
type Indexer struct {
	queue  pipeline.Queue
	store  pipeline.PageStore
	clock  pipeline.Clock
	cfg    Config
	logger *zap.Logger

	// session counters, touched only by the Run goroutine.
	session pipeline.StatsDelta
}

// New constructs an Indexer.
func New(
	queue pipeline.Queue,
	store pipeline.PageStore,
	clock pipeline.Clock,
	cfg Config,
	logger *zap.Logger,
) *Indexer {
	if cfg.BatchSize < 1 {
		cfg.BatchSize = 1
	}
	if cfg.MaxWorkers < 1 {
		cfg.MaxWorkers = 1
	}
	if cfg.StatsLogInterval < 1 {
		cfg.StatsLogInterval = 100
	}
	if cfg.IdleSleep <= 0 {
		cfg.IdleSleep = time.Second
	}
	return &Indexer{
		queue:  queue,
		store:  store,
		clock:  clock,
		cfg:    cfg,
		logger: logger,
	}
}

// batch is one opportunistically collected slice of work. malformed counts
// payloads that failed to parse and were dropped at the queue boundary.
type batch struct {
	pages     []pipeline.PageRecord
	malformed int
}

func (b batch) empty() bool {
	return len(b.pages) == 0 && b.malformed == 0
}

// Run consumes batches until the context finishes. An in-flight batch is
// always completed before returning.
func (x *Indexer) Run(ctx context.Context) error {
	x.logger.Info("indexer started",
		zap.String("queue_key", x.cfg.QueueKey),
		zap.Int("batch_size", x.cfg.BatchSize),
		zap.Int("max_workers", x.cfg.MaxWorkers),
	)
	x.logStats(ctx)

	processedSinceLog := 0
	for {
		if ctx.Err() != nil {
			break
		}
		b, err := x.nextBatch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			x.logger.Error("batch acquisition failed", zap.Error(err))
			x.idle(ctx)
			continue
		}
		if b.empty() {
			x.idle(ctx)
			continue
		}

		x.processBatch(ctx, b)

		processedSinceLog += len(b.pages)
		if processedSinceLog >= x.cfg.StatsLogInterval {
			x.logStats(ctx)
			processedSinceLog = 0
		}
	}

	x.logger.Info("indexer stopped")
	x.logStats(context.WithoutCancel(ctx))
	return nil
}

// nextBatch blocks up to the configured timeout for the first item, then
// drains up to BatchSize-1 more without blocking. It stops early the first
// time the queue is empty, a payload fails to parse, or the drain hits a
// queue error; only the initial blocking pop can return an error.
func (x *Indexer) nextBatch(ctx context.Context) (batch, error) {
	var b batch

	payload, err := x.queue.BLPop(ctx, x.cfg.QueueKey, x.cfg.QueueTimeout)
	if err != nil {
		if errors.Is(err, pipeline.ErrQueueEmpty) {
			return b, nil
		}
		return b, err
	}
	page, err := pipeline.DecodePage(payload)
	if err != nil {
		x.logger.Error("malformed queue payload dropped", zap.Error(err))
		b.malformed++
		return b, nil
	}
	b.pages = append(b.pages, page)

	for len(b.pages) < x.cfg.BatchSize {
		payload, err := x.queue.LPop(ctx, x.cfg.QueueKey)
		if err != nil {
			if errors.Is(err, pipeline.ErrQueueEmpty) {
				break
			}
			// Items already popped have left the queue; abandoning the
			// partial batch here would lose them.
			x.logger.Error("batch drain interrupted", zap.Error(err))
			break
		}
		page, err := pipeline.DecodePage(payload)
		if err != nil {
			x.logger.Error("malformed queue payload dropped", zap.Error(err))
			b.malformed++
			break
		}
		b.pages = append(b.pages, page)
	}
	return b, nil
}

// processBatch validates, fingerprints, and upserts every page concurrently,
// then folds the outcome tallies into the daily statistics row with one
// aggregate write.
func (x *Indexer) processBatch(ctx context.Context, b batch) {
	batchID := uuid.NewString()
	start := time.Now()

	// The batch has already left the queue, so it must run to completion
	// even while the service is shutting down; cancellation only stops
	// acquisition of the next batch.
	bctx := context.WithoutCancel(ctx)

	outcomes := make([]pipeline.UpsertResult, len(b.pages))
	g, gctx := errgroup.WithContext(bctx)
	g.SetLimit(x.cfg.MaxWorkers)
	for i, page := range b.pages {
		g.Go(func() error {
			outcomes[i] = x.processPage(gctx, page)
			return nil
		})
	}
	// processPage captures its own failures as outcomes; Wait cannot error.
	_ = g.Wait()

	elapsed := time.Since(start)
	delta := x.tally(outcomes, b.malformed, elapsed)

	if err := x.store.RecordBatch(bctx, delta); err != nil {
		x.logger.Error("record batch stats failed",
			zap.String("batch_id", batchID), zap.Error(err))
	}

	x.logger.Info("batch processed",
		zap.String("batch_id", batchID),
		zap.Int("pages", len(b.pages)),
		zap.Int("inserted", delta.Inserted),
		zap.Int("updated", delta.Updated),
		zap.Int("skipped", delta.Skipped),
		zap.Int("errors", delta.Errors),
		zap.Duration("elapsed", elapsed),
	)
}

// resultErrored is internal to the batch tally; store errors never surface
// past the page that hit them.
const resultErrored pipeline.UpsertResult = "errored"

func (x *Indexer) processPage(ctx context.Context, page pipeline.PageRecord) pipeline.UpsertResult {
	if err := page.ValidateLocation(); err != nil {
		x.logger.Debug("page skipped", zap.Error(err))
		return pipeline.ResultSkipped
	}
	if reason := x.validate(page); reason != "" {
		x.logger.Debug("page skipped",
			zap.String("url", page.Location), zap.String("reason", reason))
		return pipeline.ResultSkipped
	}

	indexed, err := pipeline.NewIndexedPage(page, x.clock.Now())
	if err != nil {
		x.logger.Error("derive indexed page failed",
			zap.String("url", page.Location), zap.Error(err))
		return resultErrored
	}

	result, err := x.store.UpsertPage(ctx, indexed)
	if err != nil {
		x.logger.Error("page upsert failed",
			zap.String("url", page.Location), zap.Error(err))
		return resultErrored
	}
	return result
}

// validate applies the content admission rules. Both length bounds are
// inclusive. A failure is a skip, never an error.
func (x *Indexer) validate(page pipeline.PageRecord) string {
	contentLen := len(page.ContentText())
	if contentLen < x.cfg.MinContentLength {
		return "content too short"
	}
	if x.cfg.MaxContentLength > 0 && contentLen > x.cfg.MaxContentLength {
		return "content too long"
	}
	if page.Title == "" && strings.TrimSpace(page.ContentText()) == "" {
		return "no title or content"
	}
	return ""
}

func (x *Indexer) tally(outcomes []pipeline.UpsertResult, malformed int, elapsed time.Duration) pipeline.StatsDelta {
	delta := pipeline.StatsDelta{
		Processed: len(outcomes),
		Errors:    malformed,
		ElapsedMs: float64(elapsed.Microseconds()) / 1000.0,
	}
	for _, outcome := range outcomes {
		switch outcome {
		case pipeline.ResultInserted:
			delta.Inserted++
		case pipeline.ResultUpdated:
			delta.Updated++
		case pipeline.ResultSkipped:
			delta.Skipped++
		default:
			delta.Errors++
		}
	}

	metrics.IndexerPagesProcessed.Add(float64(delta.Processed))
	metrics.IndexerPagesInserted.Add(float64(delta.Inserted))
	metrics.IndexerPagesUpdated.Add(float64(delta.Updated))
	metrics.IndexerPagesSkipped.Add(float64(delta.Skipped))
	metrics.IndexerErrors.Add(float64(delta.Errors))
	metrics.IndexerBatchSeconds.Observe(elapsed.Seconds())

	x.session.Processed += delta.Processed
	x.session.Inserted += delta.Inserted
	x.session.Updated += delta.Updated
	x.session.Skipped += delta.Skipped
	x.session.Errors += delta.Errors
	return delta
}

// idle is the polling backoff between empty batch acquisitions.
func (x *Indexer) idle(ctx context.Context) {
	timer := time.NewTimer(x.cfg.IdleSleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

func (x *Indexer) logStats(ctx context.Context) {
	x.logger.Info("session stats",
		zap.Int("processed", x.session.Processed),
		zap.Int("inserted", x.session.Inserted),
		zap.Int("updated", x.session.Updated),
		zap.Int("skipped", x.session.Skipped),
		zap.Int("errors", x.session.Errors),
	)

	daily, err := x.store.DailyStats(ctx)
	if err != nil {
		x.logger.Warn("daily stats unavailable", zap.Error(err))
		return
	}
	total, err := x.store.PageCount(ctx)
	if err != nil {
		x.logger.Warn("page count unavailable", zap.Error(err))
		return
	}
	x.logger.Info("daily stats",
		zap.Int64("processed", daily.PagesProcessed),
		zap.Int64("inserted", daily.PagesInserted),
		zap.Int64("updated", daily.PagesUpdated),
		zap.Int64("skipped", daily.PagesSkipped),
		zap.Int64("errors", daily.ProcessingErrors),
		zap.Float64("avg_processing_time_ms", daily.AvgProcessingTimeMs),
		zap.Int64("total_pages", total),
	)
}
