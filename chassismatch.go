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



// Package chassismatch finds chassis configurations similar to a target
// chassis held in a search index.
//
// Open assembles a Service from a Config: an index gateway (Elasticsearch
// or a local badger snapshot), an optional Redis lookup cache, an optional
// embedding client for nearest-neighbour matching, and a match.Matcher
// running progressive constraint relaxation over the attribute catalog.
package chassismatch

import (
	"context"
	"io"
	"log/slog"

	"github.com/poiesic/chassismatch/ai/openai"
	"github.com/poiesic/chassismatch/batch"
	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
	"github.com/poiesic/chassismatch/index/badger"
	"github.com/poiesic/chassismatch/index/cache"
	"github.com/poiesic/chassismatch/index/elastic"
	"github.com/poiesic/chassismatch/match"
	"github.com/poiesic/chassismatch/metrics"
)

// Service wires an index gateway to a matcher.
type Service struct {
	gateway index.Gateway
	matcher *match.Matcher
	metrics *metrics.Collector
	base    *slog.Logger
	logger  *slog.Logger
}

// Open builds a Service from cfg. A nil cfg uses DefaultConfig.
// The Service owns every component it creates; call Close when done.
func Open(cfg *Config) (*Service, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	// 1. Embedding client
	var embedder *openai.Embedder
	if cfg.Embedding != nil {
		e, err := openai.NewEmbedder(cfg.Embedding, openai.WithLogger(logger))
		if err != nil {
			return nil, err
		}
		embedder = e
	}

	// 2. Index gateway
	var gateway index.Gateway
	switch cfg.Backend {
	case BackendBadger:
		backend, err := badger.OpenBackend(cfg.BadgerPath, badger.WithBackendLogger(logger))
		if err != nil {
			return nil, err
		}
		opts := []badger.Option{badger.WithLogger(logger)}
		if embedder != nil {
			opts = append(opts, badger.WithEmbedder(embedder))
		}
		g, err := badger.NewGateway(backend, opts...)
		if err != nil {
			backend.Close()
			return nil, err
		}
		gateway = g
	default:
		opts := []elastic.Option{elastic.WithLogger(logger)}
		if embedder != nil {
			opts = append(opts, elastic.WithEmbedder(embedder))
		}
		g, err := elastic.NewGateway(cfg.Elastic, opts...)
		if err != nil {
			return nil, err
		}
		gateway = g
	}

	// 3. Lookup cache
	if cfg.Redis != nil {
		client, err := cache.NewRedisClient(*cfg.Redis)
		if err != nil {
			gateway.Close()
			return nil, err
		}
		cached, err := cache.NewGateway(gateway, client, cache.WithTTL(cfg.CacheTTL), cache.WithLogger(logger))
		if err != nil {
			client.Close()
			gateway.Close()
			return nil, err
		}
		gateway = cached
	}

	// 4. Matcher
	matcher, err := match.NewMatcher(gateway,
		match.WithLogger(logger),
		match.WithNeighborCount(cfg.NeighborCount))
	if err != nil {
		gateway.Close()
		return nil, err
	}

	s := &Service{
		gateway: gateway,
		matcher: matcher,
		base:    logger,
		logger:  logger.With("component", "service"),
	}
	if cfg.Metrics {
		s.metrics = metrics.NewCollector()
	}

	s.logger.Info("service ready",
		"backend", string(cfg.Backend),
		"cache", cfg.Redis != nil,
		"embeddings", embedder != nil)
	return s, nil
}

// Close releases the gateway and everything it owns.
func (s *Service) Close() error {
	if err := s.gateway.Close(); err != nil {
		s.logger.Error("error closing gateway", "err", err)
		return err
	}
	return nil
}

// Gateway returns the index gateway, including the cache layer when configured.
func (s *Service) Gateway() index.Gateway {
	return s.gateway
}

// Matcher returns the matcher bound to the service's gateway.
func (s *Service) Matcher() *match.Matcher {
	return s.matcher
}

// Metrics returns the collector, or nil when metrics are disabled.
func (s *Service) Metrics() *metrics.Collector {
	return s.metrics
}

// Find runs one match, recording metrics when enabled.
func (s *Service) Find(ctx context.Context, req match.Request) ([]*core.ScoredCandidate, error) {
	return s.matcher.FindWithMonitor(ctx, req, s.newMonitor())
}

// NewBatchRunner creates a batch runner over the service's matcher.
func (s *Service) NewBatchRunner(config *batch.Config, progress io.Writer, opts ...batch.Option) (*batch.Runner, error) {
	opts = append([]batch.Option{batch.WithLogger(s.base)}, opts...)
	if s.metrics != nil {
		opts = append(opts, batch.WithMonitorFactory(s.metrics.NewMonitor))
	}
	return batch.NewRunner(s.matcher, config, progress, opts...)
}

func (s *Service) newMonitor() match.Monitor {
	if s.metrics == nil {
		return nil
	}
	return s.metrics.NewMonitor()
}
