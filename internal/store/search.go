package store

import (
	"context"
	"fmt"
	"time"
)

// SearchQuery filters a full-text search over indexed pages.
type SearchQuery struct {
	Terms        string
	Domain       string
	MinWordCount int
	Limit        int
	Offset       int
}

// SearchResult is one ranked page returned by Search.
type SearchResult struct {
	ID          string
	URL         string
	Title       string
	Description string
	Author      string
	Domain      string
	WordCount   int
	CreatedAt   time.Time
	Rank        float64
}

// AggregateStats summarizes the whole index for the read surface.
type AggregateStats struct {
	TotalPages      int64
	AvgWordCount    float64
	DistinctDomains int64
	LatestCreatedAt *time.Time
}

// Search runs a ranked full-text query against search_vector, optionally
// filtered by domain and minimum word count.
func (s *Store) Search(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	sql := `
SELECT id::text, url, coalesce(title, ''), coalesce(description, ''),
	coalesce(author, ''), domain, word_count, created_at,
	ts_rank_cd(search_vector, plainto_tsquery('english', $1)) AS rank
FROM pages
WHERE search_vector @@ plainto_tsquery('english', $1)`
	args := []any{q.Terms}

	if q.Domain != "" {
		args = append(args, q.Domain)
		sql += fmt.Sprintf(" AND domain = $%d", len(args))
	}
	if q.MinWordCount > 0 {
		args = append(args, q.MinWordCount)
		sql += fmt.Sprintf(" AND word_count >= $%d", len(args))
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" ORDER BY rank DESC, created_at DESC LIMIT $%d", len(args))
	args = append(args, q.Offset)
	sql += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search pages: %w", err)
	}
	defer rows.Close()

	var results []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(
			&r.ID, &r.URL, &r.Title, &r.Description, &r.Author,
			&r.Domain, &r.WordCount, &r.CreatedAt, &r.Rank,
		); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search results: %w", err)
	}
	return results, nil
}

const aggregateStatsSQL = `
SELECT COUNT(*), COALESCE(AVG(word_count), 0), COUNT(DISTINCT domain), MAX(created_at)
FROM pages`

// Aggregate returns index-wide totals for the stats surface.
func (s *Store) Aggregate(ctx context.Context) (AggregateStats, error) {
	var stats AggregateStats
	err := s.pool.QueryRow(ctx, aggregateStatsSQL).Scan(
		&stats.TotalPages, &stats.AvgWordCount,
		&stats.DistinctDomains, &stats.LatestCreatedAt,
	)
	if err != nil {
		return AggregateStats{}, fmt.Errorf("query aggregate stats: %w", err)
	}
	return stats, nil
}
