package pipeline

import (
	"context"
	"errors"
	"time"
)

// ErrQueueEmpty is returned by non-blocking pops (and by blocking pops whose
// timeout elapsed) when no item is available.
var ErrQueueEmpty = errors.New("queue empty")

// Queue provides list-queue semantics over the shared work queues. A blocking
// pop delivers each queued item to exactly one consumer.
type Queue interface {
	// BLPop blocks until an item arrives or the timeout elapses. A zero
	// timeout waits indefinitely. Returns ErrQueueEmpty on timeout.
	BLPop(ctx context.Context, key string, timeout time.Duration) ([]byte, error)
	// LPop returns the head of the list, or ErrQueueEmpty.
	LPop(ctx context.Context, key string) ([]byte, error)
	// RPush appends values to the tail of the list.
	RPush(ctx context.Context, key string, values ...[]byte) error
}

// DomainSet is the membership-only blacklist of rejected domains.
type DomainSet interface {
	Add(ctx context.Context, key string, member string) error
}

// Classifier scores a page. pReject is the model's probability that the page
// is not the target content type; pReject + pAccept == 1.
type Classifier interface {
	Classify(page PageRecord) (pReject, pAccept float64, err error)
}

// UpsertResult is the outcome of one page write.
type UpsertResult string

// Upsert outcomes, keyed by url_hash and decided by content_hash.
const (
	ResultInserted UpsertResult = "inserted"
	ResultUpdated  UpsertResult = "updated"
	ResultSkipped  UpsertResult = "skipped"
)

// StatsDelta is one batch's contribution to the daily statistics row.
type StatsDelta struct {
	Processed int
	Inserted  int
	Updated   int
	Skipped   int
	Errors    int
	ElapsedMs float64
}

// DailyStats mirrors one indexer_stats row.
type DailyStats struct {
	PagesProcessed      int64
	PagesInserted       int64
	PagesUpdated        int64
	PagesSkipped        int64
	ProcessingErrors    int64
	AvgProcessingTimeMs float64
}

// PageStore persists indexed pages and daily statistics.
type PageStore interface {
	UpsertPage(ctx context.Context, page IndexedPage) (UpsertResult, error)
	RecordBatch(ctx context.Context, delta StatsDelta) error
	DailyStats(ctx context.Context) (DailyStats, error)
	PageCount(ctx context.Context) (int64, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
