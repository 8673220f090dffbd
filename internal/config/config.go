// Package config loads and validates service configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Redis      RedisConfig      `mapstructure:"redis"`
	DB         DBConfig         `mapstructure:"db"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Indexer    IndexerConfig    `mapstructure:"indexer"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls the operational HTTP endpoint.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// RedisConfig covers the connection and the queue/set key names shared with
// the crawler.
type RedisConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Password        string `mapstructure:"password"`
	DB              int    `mapstructure:"db"`
	MaxRetries      int    `mapstructure:"max_retries"`
	InboundQueueKey string `mapstructure:"inbound_queue_key"`
	IndexQueueKey   string `mapstructure:"index_queue_key"`
	CrawlerQueueKey string `mapstructure:"crawler_queue_key"`
	BlacklistKey    string `mapstructure:"blacklist_key"`
}

// Addr returns the host:port address for the Redis client.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// DBConfig controls access to the relational store.
type DBConfig struct {
	DSN      string `mapstructure:"dsn"`
	MaxConns int32  `mapstructure:"max_conns"`
	MinConns int32  `mapstructure:"min_conns"`
}

// ClassifierConfig locates the model artifacts and sets the routing
// thresholds. Thresholds are integer percents, divided by 100 at load.
type ClassifierConfig struct {
	ModelFile          string `mapstructure:"model_file"`
	VectorizerFile     string `mapstructure:"vectorizer_file"`
	RejectionThreshold int    `mapstructure:"rejection_threshold"`
	ForwardThreshold   int    `mapstructure:"forward_threshold"`
}

// Rejection returns the rejection threshold as a probability.
func (c ClassifierConfig) Rejection() float64 {
	return float64(c.RejectionThreshold) / 100.0
}

// Forward returns the forward threshold as a probability.
func (c ClassifierConfig) Forward() float64 {
	return float64(c.ForwardThreshold) / 100.0
}

// IndexerConfig governs batching and validation in the indexer.
type IndexerConfig struct {
	BatchSize           int `mapstructure:"batch_size"`
	MaxWorkers          int `mapstructure:"max_workers"`
	QueueTimeoutSeconds int `mapstructure:"queue_timeout_seconds"`
	MinContentLength    int `mapstructure:"min_content_length"`
	MaxContentLength    int `mapstructure:"max_content_length"`
	StatsLogInterval    int `mapstructure:"stats_log_interval"`
}

// QueueTimeout converts the first-pop timeout into a duration.
func (i IndexerConfig) QueueTimeout() time.Duration {
	return time.Duration(i.QueueTimeoutSeconds) * time.Second
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SIEVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 9090)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.max_retries", 3)
	v.SetDefault("redis.inbound_queue_key", "fungicide_queue")
	v.SetDefault("redis.index_queue_key", "taxonomist_queue")
	v.SetDefault("redis.crawler_queue_key", "crawler_ingest_queue")
	v.SetDefault("redis.blacklist_key", "domain_blacklist")
	v.SetDefault("db.max_conns", 8)
	v.SetDefault("db.min_conns", 2)
	v.SetDefault("classifier.rejection_threshold", 80)
	v.SetDefault("classifier.forward_threshold", 50)
	v.SetDefault("indexer.batch_size", 10)
	v.SetDefault("indexer.max_workers", 4)
	v.SetDefault("indexer.queue_timeout_seconds", 30)
	v.SetDefault("indexer.min_content_length", 100)
	v.SetDefault("indexer.max_content_length", 50000)
	v.SetDefault("indexer.stats_log_interval", 100)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits. Requirements that
// only apply to one service (the gate's model artifacts, the indexer's store
// DSN) are checked by the respective command instead.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Redis.Host == "" {
		return fmt.Errorf("redis.host is required")
	}
	if c.Redis.Port <= 0 {
		return fmt.Errorf("redis.port must be > 0")
	}
	if c.Redis.InboundQueueKey == "" || c.Redis.IndexQueueKey == "" ||
		c.Redis.CrawlerQueueKey == "" || c.Redis.BlacklistKey == "" {
		return fmt.Errorf("all redis queue keys are required")
	}
	if c.Classifier.RejectionThreshold <= 0 || c.Classifier.RejectionThreshold > 100 {
		return fmt.Errorf("classifier.rejection_threshold must be in (0, 100]")
	}
	if c.Classifier.ForwardThreshold <= 0 || c.Classifier.ForwardThreshold > 100 {
		return fmt.Errorf("classifier.forward_threshold must be in (0, 100]")
	}
	if c.Indexer.BatchSize <= 0 {
		return fmt.Errorf("indexer.batch_size must be > 0")
	}
	if c.Indexer.MaxWorkers <= 0 {
		return fmt.Errorf("indexer.max_workers must be > 0")
	}
	if c.Indexer.QueueTimeoutSeconds <= 0 {
		return fmt.Errorf("indexer.queue_timeout_seconds must be > 0")
	}
	if c.Indexer.MinContentLength < 0 {
		return fmt.Errorf("indexer.min_content_length must be >= 0")
	}
	if c.Indexer.MaxContentLength <= c.Indexer.MinContentLength {
		return fmt.Errorf("indexer.max_content_length must be > indexer.min_content_length")
	}
	return nil
}
