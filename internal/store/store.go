// Package store provides Postgres-backed persistence for indexed pages and
// daily indexer statistics.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sievesearch/sieve/internal/pipeline"
)

// ErrWriteConflict marks a unique-constraint violation on url_hash: a
// concurrent indexer instance won the insert race for the same page.
var ErrWriteConflict = errors.New("page write conflict")

// uniqueViolation is the Postgres error code for unique_violation.
const uniqueViolation = "23505"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type db interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
	Close()
}

// Store implements pipeline.PageStore over a pgx connection pool. Pool
// exhaustion blocks the requesting task rather than failing it.
type Store struct {
	pool db
}

// New connects to Postgres, pings it, and applies the schema. Any failure
// here is fatal to the caller.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.pool.Ping(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := s.EnsureSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB constructs a Store from an existing pool (primarily for testing).
func NewWithDB(pool db) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema applies the schema. It is idempotent and safe to run on every
// startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

const selectPageSQL = `SELECT id, content_hash FROM pages WHERE url_hash = $1`

const insertPageSQL = `
INSERT INTO pages (
	url, url_hash, title, description, author, headings, keywords,
	links, script_links, content, domain, content_hash, word_count,
	created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

const updatePageSQL = `
UPDATE pages SET
	url = $2, title = $3, description = $4, author = $5, headings = $6,
	keywords = $7, links = $8, script_links = $9, content = $10,
	domain = $11, content_hash = $12, word_count = $13, created_at = $14,
	updated_at = $15
WHERE url_hash = $1`

// UpsertPage inserts a new page, rewrites an existing one whose content
// changed, or skips an unchanged one, keyed by url_hash. The check and the
// write are separate statements; a lost race against a concurrent instance
// surfaces as ErrWriteConflict via the unique constraint rather than as a
// silent duplicate.
func (s *Store) UpsertPage(ctx context.Context, page pipeline.IndexedPage) (pipeline.UpsertResult, error) {
	var (
		id          string
		contentHash string
	)
	err := s.pool.QueryRow(ctx, selectPageSQL, page.URLHash).Scan(&id, &contentHash)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = s.pool.Exec(ctx, insertPageSQL,
			page.URL, page.URLHash, page.Title, page.Description, page.Author,
			page.Headings, page.Keywords, page.Links, page.ScriptLinks,
			page.Content, page.Domain, page.ContentHash, page.WordCount,
			page.CreatedAt, page.UpdatedAt,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return "", fmt.Errorf("insert page %s: %w", page.URL, ErrWriteConflict)
			}
			return "", fmt.Errorf("insert page %s: %w", page.URL, err)
		}
		return pipeline.ResultInserted, nil

	case err != nil:
		return "", fmt.Errorf("look up page %s: %w", page.URL, err)

	case contentHash == page.ContentHash:
		return pipeline.ResultSkipped, nil

	default:
		_, err = s.pool.Exec(ctx, updatePageSQL,
			page.URLHash, page.URL, page.Title, page.Description, page.Author,
			page.Headings, page.Keywords, page.Links, page.ScriptLinks,
			page.Content, page.Domain, page.ContentHash, page.WordCount,
			page.CreatedAt, page.UpdatedAt,
		)
		if err != nil {
			return "", fmt.Errorf("update page %s: %w", page.URL, err)
		}
		return pipeline.ResultUpdated, nil
	}
}

const recordBatchSQL = `
INSERT INTO indexer_stats (
	date, pages_processed, pages_inserted, pages_updated, pages_skipped,
	processing_errors, avg_processing_time_ms
) VALUES (CURRENT_DATE, $1, $2, $3, $4, $5, $6)
ON CONFLICT (date) DO UPDATE SET
	pages_processed = indexer_stats.pages_processed + EXCLUDED.pages_processed,
	pages_inserted = indexer_stats.pages_inserted + EXCLUDED.pages_inserted,
	pages_updated = indexer_stats.pages_updated + EXCLUDED.pages_updated,
	pages_skipped = indexer_stats.pages_skipped + EXCLUDED.pages_skipped,
	processing_errors = indexer_stats.processing_errors + EXCLUDED.processing_errors,
	avg_processing_time_ms = CASE
		WHEN indexer_stats.pages_processed + EXCLUDED.pages_processed = 0 THEN 0
		ELSE (indexer_stats.avg_processing_time_ms * indexer_stats.pages_processed
			+ EXCLUDED.avg_processing_time_ms * EXCLUDED.pages_processed)
			/ (indexer_stats.pages_processed + EXCLUDED.pages_processed)
	END`

// RecordBatch folds one batch's outcome tallies into today's statistics row
// in a single atomic statement, creating the row lazily on first use.
func (s *Store) RecordBatch(ctx context.Context, delta pipeline.StatsDelta) error {
	_, err := s.pool.Exec(ctx, recordBatchSQL,
		delta.Processed, delta.Inserted, delta.Updated,
		delta.Skipped, delta.Errors, delta.ElapsedMs,
	)
	if err != nil {
		return fmt.Errorf("record batch stats: %w", err)
	}
	return nil
}

const dailyStatsSQL = `
SELECT pages_processed, pages_inserted, pages_updated, pages_skipped,
	processing_errors, avg_processing_time_ms
FROM indexer_stats
WHERE date = CURRENT_DATE`

// DailyStats returns today's statistics row, or zeros when no batch has run
// yet today.
func (s *Store) DailyStats(ctx context.Context) (pipeline.DailyStats, error) {
	var stats pipeline.DailyStats
	err := s.pool.QueryRow(ctx, dailyStatsSQL).Scan(
		&stats.PagesProcessed, &stats.PagesInserted, &stats.PagesUpdated,
		&stats.PagesSkipped, &stats.ProcessingErrors, &stats.AvgProcessingTimeMs,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return pipeline.DailyStats{}, nil
	}
	if err != nil {
		return pipeline.DailyStats{}, fmt.Errorf("query daily stats: %w", err)
	}
	return stats, nil
}

// PageCount returns the total number of indexed pages.
func (s *Store) PageCount(ctx context.Context) (int64, error) {
	var count int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pages`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pages: %w", err)
	}
	return count, nil
}
