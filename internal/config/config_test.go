package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.Equal(t, "fungicide_queue", cfg.Redis.InboundQueueKey)
	require.Equal(t, "taxonomist_queue", cfg.Redis.IndexQueueKey)
	require.Equal(t, "crawler_ingest_queue", cfg.Redis.CrawlerQueueKey)
	require.Equal(t, "domain_blacklist", cfg.Redis.BlacklistKey)
	require.Equal(t, 10, cfg.Indexer.BatchSize)
	require.Equal(t, 4, cfg.Indexer.MaxWorkers)
	require.Equal(t, 30*time.Second, cfg.Indexer.QueueTimeout())
	require.InDelta(t, 0.8, cfg.Classifier.Rejection(), 1e-9)
	require.InDelta(t, 0.5, cfg.Classifier.Forward(), 1e-9)
	require.True(t, cfg.Logging.Development)
}

func TestLoadFromFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 8081
redis:
  host: redis.internal
  port: 6380
classifier:
  rejection_threshold: 90
indexer:
  batch_size: 25
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 8081, cfg.Server.Port)
	require.Equal(t, "redis.internal:6380", cfg.Redis.Addr())
	require.InDelta(t, 0.9, cfg.Classifier.Rejection(), 1e-9)
	require.Equal(t, 25, cfg.Indexer.BatchSize)
	// Untouched keys keep their defaults.
	require.Equal(t, "domain_blacklist", cfg.Redis.BlacklistKey)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("SIEVE_REDIS_HOST", "redis.env.example")
	t.Setenv("SIEVE_INDEXER_BATCH_SIZE", "50")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "redis.env.example", cfg.Redis.Host)
	require.Equal(t, 50, cfg.Indexer.BatchSize)
}

func TestValidateRejectsBadValues(t *testing.T) {
	base := func() Config {
		cfg, err := Load("")
		require.NoError(t, err)
		return cfg
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero server port", func(c *Config) { c.Server.Port = 0 }},
		{"missing redis host", func(c *Config) { c.Redis.Host = "" }},
		{"missing queue key", func(c *Config) { c.Redis.IndexQueueKey = "" }},
		{"rejection threshold too high", func(c *Config) { c.Classifier.RejectionThreshold = 101 }},
		{"rejection threshold zero", func(c *Config) { c.Classifier.RejectionThreshold = 0 }},
		{"forward threshold zero", func(c *Config) { c.Classifier.ForwardThreshold = 0 }},
		{"zero batch size", func(c *Config) { c.Indexer.BatchSize = 0 }},
		{"zero workers", func(c *Config) { c.Indexer.MaxWorkers = 0 }},
		{"max content below min", func(c *Config) {
			c.Indexer.MinContentLength = 500
			c.Indexer.MaxContentLength = 100
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
}
