// Package metrics declares the Prometheus instruments for both pipeline stages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GatePagesForwarded counts pages pushed to the indexing queue.
	GatePagesForwarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sieve_gate_pages_forwarded_total",
		Help: "Pages accepted by the gate and pushed for indexing.",
	})
	// GatePagesRecrawlOnly counts pages whose outlinks were forwarded without the page.
	GatePagesRecrawlOnly = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sieve_gate_pages_recrawl_only_total",
		Help: "Pages whose outlinks were forwarded for recrawl without indexing the page.",
	})
	// GatePagesBlacklisted counts pages whose domain was blacklisted.
	GatePagesBlacklisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sieve_gate_pages_blacklisted_total",
		Help: "Pages rejected with their domain added to the blacklist.",
	})
	// GatePagesDropped counts inbound payloads dropped before classification.
	GatePagesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sieve_gate_pages_dropped_total",
		Help: "Inbound payloads dropped as malformed or invalid.",
	})

	// IndexerPagesProcessed counts pages taken through the indexing path.
	IndexerPagesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sieve_indexer_pages_processed_total",
		Help: "Pages pulled from the indexing queue and processed.",
	})
	// IndexerPagesInserted counts first-time page inserts.
	IndexerPagesInserted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sieve_indexer_pages_inserted_total",
		Help: "Pages inserted into the store for the first time.",
	})
	// IndexerPagesUpdated counts in-place rewrites of changed pages.
	IndexerPagesUpdated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sieve_indexer_pages_updated_total",
		Help: "Pages rewritten because their content changed.",
	})
	// IndexerPagesSkipped counts validation skips and unchanged-content skips.
	IndexerPagesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sieve_indexer_pages_skipped_total",
		Help: "Pages skipped by validation or unchanged content.",
	})
	// IndexerErrors counts malformed payloads and store write failures.
	IndexerErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sieve_indexer_errors_total",
		Help: "Pages that failed with a parse or store error.",
	})
	// IndexerBatchSeconds observes end-to-end batch processing time.
	IndexerBatchSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sieve_indexer_batch_duration_seconds",
		Help:    "Time spent processing one batch.",
		Buckets: prometheus.DefBuckets,
	})
)
