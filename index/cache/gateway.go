package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
)

const (
	recordKeyPrefix = "record:"
	searchKeyPrefix = "search:"
)

// Gateway wraps an index.Gateway with a read-through cache of target
// lookups and search result sets. Cache failures are logged and fall
// through to the inner gateway; inner gateway errors are never cached.
type Gateway struct {
	inner         index.Gateway
	client        Client
	ttl           time.Duration
	maxCachedHits int
	logger        *slog.Logger
}

var (
	_ index.Gateway          = (*Gateway)(nil)
	_ index.NeighborSearcher = (*Gateway)(nil)
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithTTL sets how long entries live. Default: 10 minutes.
func WithTTL(ttl time.Duration) Option {
	return func(g *Gateway) {
		g.ttl = ttl
	}
}

// WithMaxCachedHits sets the largest result set that is cached.
// Larger result sets pass through uncached. Default: 500.
func WithMaxCachedHits(n int) Option {
	return func(g *Gateway) {
		g.maxCachedHits = n
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger.With("component", "index-cache")
	}
}

// NewGateway wraps inner. The returned gateway owns both inner and client.
func NewGateway(inner index.Gateway, client Client, opts ...Option) (*Gateway, error) {
	if inner == nil {
		return nil, errors.New("cache: inner gateway is required")
	}
	if client == nil {
		return nil, errors.New("cache: client is required")
	}
	g := &Gateway{
		inner:         inner,
		client:        client,
		ttl:           10 * time.Minute,
		maxCachedHits: 500,
		logger:        slog.Default().With("component", "index-cache"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// FetchByID returns the cached record or fetches and caches it.
func (g *Gateway) FetchByID(ctx context.Context, id string) (*core.Record, error) {
	key := recordKeyPrefix + id
	if data, ok := g.get(ctx, key); ok {
		rec, err := index.UnmarshalRecord(data)
		if err == nil {
			return rec, nil
		}
		g.logger.Warn("discarding undecodable cache entry", "key", key, "err", err)
	}

	rec, err := g.inner.FetchByID(ctx, id)
	if err != nil {
		return nil, err
	}
	g.set(ctx, key, index.MarshalRecord(rec))
	return rec, nil
}

// SearchAll returns a cached result set or runs the search. Result sets
// up to the cache limit are drained and cached; larger ones are returned
// as produced by the inner gateway.
func (g *Gateway) SearchAll(ctx context.Context, criteria []core.Criterion) (*index.ResultSet, error) {
	key := searchKeyPrefix + core.Fingerprint(criteria)
	if data, ok := g.get(ctx, key); ok {
		recs, err := index.UnmarshalRecords(data)
		if err == nil {
			return index.FromRecords(recs), nil
		}
		g.logger.Warn("discarding undecodable cache entry", "key", key, "err", err)
	}

	rs, err := g.inner.SearchAll(ctx, criteria)
	if err != nil {
		return nil, err
	}
	if rs.Count() > g.maxCachedHits {
		return rs, nil
	}

	recs, err := rs.Collect()
	if err != nil {
		return nil, err
	}
	g.set(ctx, key, index.MarshalRecords(recs))
	return index.FromRecords(recs), nil
}

// NearestNeighbors passes through to the inner gateway.
func (g *Gateway) NearestNeighbors(ctx context.Context, source string, k int) ([]*core.Record, error) {
	ns, ok := g.inner.(index.NeighborSearcher)
	if !ok {
		return nil, index.ErrNeighborsUnsupported
	}
	return ns.NearestNeighbors(ctx, source, k)
}

// Close closes the inner gateway and the cache client.
func (g *Gateway) Close() error {
	return errors.Join(g.inner.Close(), g.client.Close())
}

func (g *Gateway) get(ctx context.Context, key string) ([]byte, bool) {
	data, err := g.client.Get(ctx, key)
	switch {
	case err == nil:
		g.logger.Debug("cache hit", "key", key)
		return data, true
	case errors.Is(err, ErrCacheMiss):
		return nil, false
	default:
		g.logger.Warn("cache read failed", "key", key, "err", err)
		return nil, false
	}
}

func (g *Gateway) set(ctx context.Context, key string, data []byte) {
	if err := g.client.Set(ctx, key, data, g.ttl); err != nil {
		g.logger.Warn("cache write failed", "key", key, "err", err)
	}
}
