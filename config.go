// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.



package chassismatch

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/chassismatch/ai"
	"github.com/poiesic/chassismatch/index/cache"
	"github.com/poiesic/chassismatch/index/elastic"
	"github.com/poiesic/chassismatch/match"
)

// Backend names the index implementation a Service queries.
type Backend string

const (
	// BackendElasticsearch queries a remote Elasticsearch index.
	BackendElasticsearch Backend = "elasticsearch"
	// BackendBadger queries a local badger snapshot of the index.
	BackendBadger Backend = "badger"
)

// Config holds everything Open needs to assemble a Service.
type Config struct {
	Backend Backend

	// Elastic configures the Elasticsearch backend.
	Elastic elastic.Config

	// BadgerPath is the directory of the local snapshot for the badger backend.
	BadgerPath string

	// Redis enables the lookup cache when non-nil.
	Redis    *cache.RedisConfig
	CacheTTL time.Duration

	// Embedding enables nearest-neighbour matching when non-nil.
	Embedding *ai.Config

	// NeighborCount is K for nearest-neighbour queries.
	NeighborCount int

	// Metrics enables the Prometheus collector.
	Metrics bool

	Logger *slog.Logger
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithElasticsearch selects the Elasticsearch backend.
func WithElasticsearch(cfg elastic.Config) Option {
	return func(c *Config) {
		c.Backend = BackendElasticsearch
		c.Elastic = cfg
	}
}

// WithBadgerPath selects the badger backend stored at path.
func WithBadgerPath(path string) Option {
	return func(c *Config) {
		c.Backend = BackendBadger
		c.BadgerPath = path
	}
}

// WithRedis enables the Redis lookup cache.
func WithRedis(cfg cache.RedisConfig) Option {
	return func(c *Config) {
		c.Redis = &cfg
	}
}

// WithCacheTTL sets how long cached lookups live.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Config) {
		c.CacheTTL = ttl
	}
}

// WithEmbedding enables nearest-neighbour matching through an
// OpenAI-compatible embedding service.
func WithEmbedding(cfg *ai.Config) Option {
	return func(c *Config) {
		c.Embedding = cfg
	}
}

// WithNeighborCount sets K for nearest-neighbour queries.
func WithNeighborCount(k int) Option {
	return func(c *Config) {
		c.NeighborCount = k
	}
}

// WithMetrics enables the Prometheus collector.
func WithMetrics() Option {
	return func(c *Config) {
		c.Metrics = true
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// DefaultConfig returns a Config for a local Elasticsearch cluster without
// cache or embeddings.
func DefaultConfig() *Config {
	return &Config{
		Backend:       BackendElasticsearch,
		Elastic:       elastic.DefaultConfig(),
		CacheTTL:      10 * time.Minute,
		NeighborCount: match.DefaultNeighborCount,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is complete.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendElasticsearch:
		if err := c.Elastic.Validate(); err != nil {
			return err
		}
	case BackendBadger:
		if c.BadgerPath == "" {
			return errors.New("config: BadgerPath is required for the badger backend")
		}
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}
	if c.Redis != nil && c.Redis.Addr == "" {
		return errors.New("config: Redis address is required")
	}
	if c.CacheTTL < 0 {
		return errors.New("config: CacheTTL must not be negative")
	}
	if c.NeighborCount < 1 {
		return errors.New("config: NeighborCount must be positive")
	}
	if c.Embedding != nil {
		if err := c.Embedding.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Environment variables read by ConfigFromEnv.
const (
	EnvBackend          = "CHASSISMATCH_BACKEND"
	EnvBadgerPath       = "CHASSISMATCH_BADGER_PATH"
	EnvESAddresses      = "CHASSISMATCH_ES_ADDRESSES"
	EnvESUsername       = "CHASSISMATCH_ES_USERNAME"
	EnvESPassword       = "CHASSISMATCH_ES_PASSWORD"
	EnvESAPIKey         = "CHASSISMATCH_ES_API_KEY"
	EnvESIndex          = "CHASSISMATCH_ES_INDEX"
	EnvESIDField        = "CHASSISMATCH_ES_ID_FIELD"
	EnvESEmbeddingField = "CHASSISMATCH_ES_EMBEDDING_FIELD"
	EnvRedisAddr        = "CHASSISMATCH_REDIS_ADDR"
	EnvRedisPassword    = "CHASSISMATCH_REDIS_PASSWORD"
	EnvRedisDB          = "CHASSISMATCH_REDIS_DB"
	EnvCacheTTL         = "CHASSISMATCH_CACHE_TTL"
	EnvEmbeddingHost    = "CHASSISMATCH_EMBEDDING_HOST"
	EnvEmbeddingModel   = "CHASSISMATCH_EMBEDDING_MODEL"
	EnvEmbeddingToken   = "CHASSISMATCH_EMBEDDING_TOKEN"
	EnvNeighborCount    = "CHASSISMATCH_NEIGHBOR_COUNT"
	EnvMetrics          = "CHASSISMATCH_METRICS"
)

// ConfigFromEnv builds a Config from CHASSISMATCH_* variables on top of
// DefaultConfig. getenv is usually os.Getenv. Unset variables keep defaults.
func ConfigFromEnv(getenv func(string) string) (*Config, error) {
	cfg := DefaultConfig()
	get := func(key string) string {
		return strings.TrimSpace(getenv(key))
	}

	if v := get(EnvBackend); v != "" {
		cfg.Backend = Backend(strings.ToLower(v))
	}
	if v := get(EnvBadgerPath); v != "" {
		cfg.BadgerPath = v
		if get(EnvBackend) == "" {
			cfg.Backend = BackendBadger
		}
	}

	// Elasticsearch
	if v := get(EnvESAddresses); v != "" {
		cfg.Elastic.Addresses = splitList(v)
	}
	if v := get(EnvESUsername); v != "" {
		cfg.Elastic.Username = v
	}
	if v := get(EnvESPassword); v != "" {
		cfg.Elastic.Password = v
	}
	if v := get(EnvESAPIKey); v != "" {
		cfg.Elastic.APIKey = v
	}
	if v := get(EnvESIndex); v != "" {
		cfg.Elastic.Index = v
	}
	if v := get(EnvESIDField); v != "" {
		cfg.Elastic.IDField = v
	}
	if v := get(EnvESEmbeddingField); v != "" {
		cfg.Elastic.EmbeddingField = v
	}

	// Redis
	if v := get(EnvRedisAddr); v != "" {
		cfg.Redis = &cache.RedisConfig{Addr: v, Password: get(EnvRedisPassword)}
		if db := get(EnvRedisDB); db != "" {
			n, err := strconv.Atoi(db)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", EnvRedisDB, err)
			}
			cfg.Redis.DB = n
		}
	}
	if v := get(EnvCacheTTL); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvCacheTTL, err)
		}
		cfg.CacheTTL = ttl
	}

	// Embeddings
	if host := get(EnvEmbeddingHost); host != "" {
		opts := []ai.ConfigOption{ai.WithHost(host)}
		if v := get(EnvEmbeddingModel); v != "" {
			opts = append(opts, ai.WithModel(v))
		}
		if v := get(EnvEmbeddingToken); v != "" {
			opts = append(opts, ai.WithToken(v))
		}
		cfg.Embedding = ai.NewConfig(opts...)
	}
	if v := get(EnvNeighborCount); v != "" {
		k, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvNeighborCount, err)
		}
		cfg.NeighborCount = k
	}

	if v := get(EnvMetrics); v != "" {
		on, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", EnvMetrics, err)
		}
		cfg.Metrics = on
	}

	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
