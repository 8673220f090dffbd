package gate

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sievesearch/sieve/internal/pipeline"
	"github.com/sievesearch/sieve/internal/queue/memory"
)

func TestRoute(t *testing.T) {
	t.Parallel()

	const (
		rejection = 0.85
		forward   = 0.5
	)
	cases := []struct {
		name    string
		pReject float64
		want    Decision
	}{
		{"confident accept", 0.0, DecisionForward},
		{"just below forward threshold", 0.49, DecisionForward},
		{"at forward threshold", 0.5, DecisionRecrawlOnly},
		{"uncertain middle", 0.7, DecisionRecrawlOnly},
		{"just below rejection threshold", 0.84, DecisionRecrawlOnly},
		{"at rejection threshold", 0.85, DecisionBlacklist},
		{"confident reject", 1.0, DecisionBlacklist},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.want, Route(tc.pReject, rejection, forward))
		})
	}
}

// fixedClassifier scores every page with the same probability pair.
type fixedClassifier struct {
	pReject float64
}

func (c fixedClassifier) Classify(pipeline.PageRecord) (float64, float64, error) {
	return c.pReject, 1 - c.pReject, nil
}

func testConfig() Config {
	return Config{
		InboundKey:         "inbound",
		IndexKey:           "index",
		RecrawlKey:         "recrawl",
		BlacklistKey:       "blacklist",
		RejectionThreshold: 0.85,
		ForwardThreshold:   0.5,
	}
}

func newTestGate(t *testing.T, pReject float64) (*Gate, *memory.Queue, *memory.Set) {
	t.Helper()
	queue := memory.NewQueue(64)
	blacklist := memory.NewSet()
	g := New(queue, blacklist, fixedClassifier{pReject: pReject}, testConfig(), zap.NewNop())
	return g, queue, blacklist
}

func encodePage(t *testing.T, page pipeline.PageRecord) []byte {
	t.Helper()
	data, err := pipeline.EncodePage(page)
	require.NoError(t, err)
	return data
}

func TestProcessForwardsPageAndOutlinks(t *testing.T) {
	t.Parallel()

	g, queue, blacklist := newTestGate(t, 0.1)
	ctx := context.Background()

	g.process(ctx, encodePage(t, pipeline.PageRecord{
		Title:    "Welcome",
		Content:  []string{"body"},
		Links:    []string{"https://a.example/one", "", "https://a.example/two"},
		Location: "https://a.example/",
	}))

	require.Equal(t, 1, queue.Len("index"))
	require.Equal(t, 2, queue.Len("recrawl"))
	require.Empty(t, blacklist.Members("blacklist"))

	forwarded, err := queue.LPop(ctx, "index")
	require.NoError(t, err)
	page, err := pipeline.DecodePage(forwarded)
	require.NoError(t, err)
	require.Equal(t, "https://a.example/", page.Location)

	raw, err := queue.LPop(ctx, "recrawl")
	require.NoError(t, err)
	var outlink pipeline.Outlink
	require.NoError(t, json.Unmarshal(raw, &outlink))
	require.Equal(t, "https://a.example/one", outlink.Location)
	require.Zero(t, outlink.Retries)
}

func TestProcessRecrawlOnlyKeepsPageOut(t *testing.T) {
	t.Parallel()

	g, queue, blacklist := newTestGate(t, 0.6)

	g.process(context.Background(), encodePage(t, pipeline.PageRecord{
		Links:    []string{"https://a.example/one"},
		Location: "https://a.example/",
	}))

	require.Zero(t, queue.Len("index"))
	require.Equal(t, 1, queue.Len("recrawl"))
	require.Empty(t, blacklist.Members("blacklist"))
}

func TestProcessBlacklistsDomain(t *testing.T) {
	t.Parallel()

	g, queue, blacklist := newTestGate(t, 0.95)

	g.process(context.Background(), encodePage(t, pipeline.PageRecord{
		Links:    []string{"https://spam.example/keep-out"},
		Location: "https://spam.example/landing",
	}))

	// Nothing is forwarded, not even the outlinks.
	require.Zero(t, queue.Len("index"))
	require.Zero(t, queue.Len("recrawl"))
	require.Equal(t, []string{"spam.example"}, blacklist.Members("blacklist"))
}

func TestProcessBlacklistSameDomainTwice(t *testing.T) {
	t.Parallel()

	g, _, blacklist := newTestGate(t, 0.95)
	ctx := context.Background()

	g.process(ctx, encodePage(t, pipeline.PageRecord{Location: "https://spam.example/a"}))
	g.process(ctx, encodePage(t, pipeline.PageRecord{Location: "https://spam.example/b"}))

	require.Equal(t, []string{"spam.example"}, blacklist.Members("blacklist"))
}

func TestProcessDropsMalformedAndInvalidPayloads(t *testing.T) {
	t.Parallel()

	g, queue, blacklist := newTestGate(t, 0.0)
	ctx := context.Background()

	g.process(ctx, []byte(`{"location": `))
	g.process(ctx, encodePage(t, pipeline.PageRecord{Location: "not a url"}))
	g.process(ctx, encodePage(t, pipeline.PageRecord{Location: "ftp://a.example/f"}))

	require.Zero(t, queue.Len("index"))
	require.Zero(t, queue.Len("recrawl"))
	require.Empty(t, blacklist.Members("blacklist"))
}

func TestProcessForwardWithoutLinksPushesNothingToRecrawl(t *testing.T) {
	t.Parallel()

	g, queue, _ := newTestGate(t, 0.1)

	g.process(context.Background(), encodePage(t, pipeline.PageRecord{
		Title:    "No outlinks here",
		Location: "https://a.example/leaf",
	}))

	require.Equal(t, 1, queue.Len("index"))
	require.Zero(t, queue.Len("recrawl"))
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	g, queue, _ := newTestGate(t, 0.1)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx) }()

	require.NoError(t, queue.RPush(ctx, "inbound", encodePage(t, pipeline.PageRecord{
		Location: "https://a.example/",
	})))
	require.Eventually(t, func() bool {
		return queue.Len("index") == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("gate did not stop after cancel")
	}
}
