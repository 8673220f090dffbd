// Package gate implements the classification gate: admission control between
// raw crawl output and the indexing and recrawl queues.
package gate

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/sievesearch/sieve/internal/metrics"
	"github.com/sievesearch/sieve/internal/pipeline"
)

// Decision is the routing outcome for one classified page.
type Decision int

// Routing outcomes. Exactly one fires per page.
const (
	// DecisionBlacklist discards the page and blacklists its domain.
	DecisionBlacklist Decision = iota
	// DecisionForward pushes the page for indexing and its outlinks for recrawl.
	DecisionForward
	// DecisionRecrawlOnly pushes only the outlinks for recrawl.
	DecisionRecrawlOnly
)

// Route decides the destination for a page scored at pReject. The rejection
// threshold is inclusive: a score exactly at the threshold blacklists.
func Route(pReject, rejectionThreshold, forwardThreshold float64) Decision {
	switch {
	case pReject >= rejectionThreshold:
		return DecisionBlacklist
	case pReject < forwardThreshold:
		return DecisionForward
	default:
		return DecisionRecrawlOnly
	}
}

// Config holds the gate's queue keys and thresholds. Both thresholds are
// probabilities in (0, 1].
type Config struct {
	InboundKey         string
	IndexKey           string
	RecrawlKey         string
	BlacklistKey       string
	RejectionThreshold float64
	ForwardThreshold   float64
}

// Gate scores pages from the inbound queue and fans them out. It is fully
// synchronous: one page in flight at a time. Scale out by running more
// instances against the same inbound queue.
type Gate struct {
	queue     pipeline.Queue
	blacklist pipeline.DomainSet
	model     pipeline.Classifier
	cfg       Config
	logger    *zap.Logger
}

// New constructs a Gate.
func New(
	queue pipeline.Queue,
	blacklist pipeline.DomainSet,
	model pipeline.Classifier,
	cfg Config,
	logger *zap.Logger,
) *Gate {
	return &Gate{
		queue:     queue,
		blacklist: blacklist,
		model:     model,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run blocks on the inbound queue until the context finishes. The dequeue
// waits indefinitely, so an idle gate consumes nothing.
func (g *Gate) Run(ctx context.Context) error {
	g.logger.Info("gate started",
		zap.String("inbound_key", g.cfg.InboundKey),
		zap.Float64("rejection_threshold", g.cfg.RejectionThreshold),
		zap.Float64("forward_threshold", g.cfg.ForwardThreshold),
	)
	for {
		payload, err := g.queue.BLPop(ctx, g.cfg.InboundKey, 0)
		if err != nil {
			if ctx.Err() != nil {
				g.logger.Info("gate stopped")
				return nil
			}
			if errors.Is(err, pipeline.ErrQueueEmpty) {
				continue
			}
			g.logger.Error("inbound dequeue failed", zap.Error(err))
			continue
		}
		g.process(ctx, payload)
	}
}

func (g *Gate) process(ctx context.Context, payload []byte) {
	page, err := pipeline.DecodePage(payload)
	if err != nil {
		metrics.GatePagesDropped.Inc()
		g.logger.Error("malformed inbound payload dropped", zap.Error(err))
		return
	}
	if err := page.ValidateLocation(); err != nil {
		metrics.GatePagesDropped.Inc()
		g.logger.Error("invalid page location dropped", zap.Error(err))
		return
	}

	pReject, _, err := g.model.Classify(page)
	if err != nil {
		metrics.GatePagesDropped.Inc()
		g.logger.Error("classification failed",
			zap.String("url", page.Location), zap.Error(err))
		return
	}

	score := int(pReject * 100)
	switch Route(pReject, g.cfg.RejectionThreshold, g.cfg.ForwardThreshold) {
	case DecisionBlacklist:
		g.blacklistDomain(ctx, page, score)
	case DecisionForward:
		g.forward(ctx, page, score)
	case DecisionRecrawlOnly:
		g.recrawlOnly(ctx, page, score)
	}
}

func (g *Gate) blacklistDomain(ctx context.Context, page pipeline.PageRecord, score int) {
	domain, err := page.Domain()
	if err != nil {
		g.logger.Error("extract domain failed",
			zap.String("url", page.Location), zap.Error(err))
		return
	}
	if err := g.blacklist.Add(ctx, g.cfg.BlacklistKey, domain); err != nil {
		g.logger.Error("blacklist add failed",
			zap.String("url", page.Location), zap.String("domain", domain), zap.Error(err))
		return
	}
	metrics.GatePagesBlacklisted.Inc()
	g.logger.Info("page blocked",
		zap.Int("score", score),
		zap.String("url", page.Location),
		zap.String("domain", domain),
	)
}

func (g *Gate) forward(ctx context.Context, page pipeline.PageRecord, score int) {
	payload, err := pipeline.EncodePage(page)
	if err != nil {
		g.logger.Error("encode page failed",
			zap.String("url", page.Location), zap.Error(err))
		return
	}
	if err := g.queue.RPush(ctx, g.cfg.IndexKey, payload); err != nil {
		g.logger.Error("index queue push failed",
			zap.String("url", page.Location), zap.Error(err))
		return
	}
	g.fanOutLinks(ctx, page)
	metrics.GatePagesForwarded.Inc()
	g.logger.Info("page forwarded",
		zap.Int("score", score),
		zap.String("url", page.Location),
		zap.Int("outlinks", len(page.Links)),
	)
}

func (g *Gate) recrawlOnly(ctx context.Context, page pipeline.PageRecord, score int) {
	g.fanOutLinks(ctx, page)
	metrics.GatePagesRecrawlOnly.Inc()
	g.logger.Info("outlinks forwarded without page",
		zap.Int("score", score),
		zap.String("url", page.Location),
		zap.Int("outlinks", len(page.Links)),
	)
}

// fanOutLinks emits one Outlink per non-empty link, retries always zero.
// No write happens when the page has no links.
func (g *Gate) fanOutLinks(ctx context.Context, page pipeline.PageRecord) {
	outlinks := make([][]byte, 0, len(page.Links))
	for _, link := range page.Links {
		if link == "" {
			continue
		}
		payload, err := pipeline.EncodeOutlink(pipeline.Outlink{Location: link, Retries: 0})
		if err != nil {
			g.logger.Error("encode outlink failed",
				zap.String("link", link), zap.Error(err))
			continue
		}
		outlinks = append(outlinks, payload)
	}
	if len(outlinks) == 0 {
		return
	}
	if err := g.queue.RPush(ctx, g.cfg.RecrawlKey, outlinks...); err != nil {
		g.logger.Error("recrawl queue push failed",
			zap.String("url", page.Location), zap.Error(err))
	}
}
