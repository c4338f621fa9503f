package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chassismatch/ai"
	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
)

// Gateway implements index.Gateway over a local BadgerDB snapshot of the
// chassis catalog. Searches are full scans evaluated in process, so it
// suits offline work and tests rather than catalogs of remote-index size.
type Gateway struct {
	backend  *Backend
	embedder ai.Embedder
	logger   *slog.Logger
}

var (
	_ index.Gateway          = (*Gateway)(nil)
	_ index.NeighborSearcher = (*Gateway)(nil)
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithEmbedder enables NearestNeighbors and embedding of loaded records
// that carry no vector.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(g *Gateway) {
		g.embedder = embedder
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger.With("component", "badger-gateway")
	}
}

// NewGateway creates a Gateway that owns backend; closing the gateway
// closes the backend.
func NewGateway(backend *Backend, opts ...Option) (*Gateway, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	g := &Gateway{
		backend: backend,
		logger:  slog.Default().With("component", "badger-gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Close closes the underlying backend.
func (g *Gateway) Close() error {
	return g.backend.Close()
}

// PutRecords stores records, replacing any existing record with the same ID.
// When an embedder is configured, records without a vector are embedded
// from their description first and normalized to unit length.
func (g *Gateway) PutRecords(ctx context.Context, records ...*core.Record) error {
	for _, rec := range records {
		if err := core.ValidateRecord(rec); err != nil {
			return err
		}
	}

	if err := g.embedMissing(ctx, records); err != nil {
		return err
	}

	err := g.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, rec := range records {
			if err := wb.Set(makeRecordKey(rec.ID), index.MarshalRecord(rec)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing %d records: %w", len(records), err)
	}
	g.logger.Debug("stored records", "count", len(records))
	return nil
}

func (g *Gateway) embedMissing(ctx context.Context, records []*core.Record) error {
	if g.embedder == nil {
		return nil
	}
	var (
		pending []*core.Record
		texts   []string
	)
	for _, rec := range records {
		if len(rec.Vector) == 0 && strings.TrimSpace(rec.Description) != "" {
			pending = append(pending, rec)
			texts = append(texts, rec.Description)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	vectors, err := g.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding descriptions: %w", err)
	}
	if len(vectors) != len(pending) {
		return fmt.Errorf("embedder returned %d vectors for %d descriptions", len(vectors), len(pending))
	}
	for i, rec := range pending {
		rec.Vector = normalizeVector(vectors[i])
	}
	return nil
}

// Count returns the number of stored records.
func (g *Gateway) Count(ctx context.Context) (int, error) {
	return g.backend.countRecords(ctx)
}

// FetchByID looks up a record by key. IDs are unique by construction,
// so this never reports core.ErrAmbiguousResult.
func (g *Gateway) FetchByID(ctx context.Context, id string) (*core.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rec *core.Record
	err := g.backend.view(func(tx *badger.Txn) error {
		item, err := tx.Get(makeRecordKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			rec, err = index.UnmarshalRecord(val)
			return err
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	return rec, nil
}

// SearchAll scans every record and keeps those equal to the target value
// on each criterion. The scan completes before the ResultSet is returned.
func (g *Gateway) SearchAll(ctx context.Context, criteria []core.Criterion) (*index.ResultSet, error) {
	var hits []*core.Record
	err := g.backend.scanRecords(ctx, func(rec *core.Record) bool {
		if index.Matches(rec, criteria) {
			hits = append(hits, rec)
		}
		return true
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}

	g.logger.Debug("search completed", "criteria", len(criteria), "hits", len(hits))
	return index.FromRecords(hits), nil
}

// NearestNeighbors embeds source and ranks stored vectors by dot product.
// Records without a vector are skipped.
func (g *Gateway) NearestNeighbors(ctx context.Context, source string, k int) ([]*core.Record, error) {
	if g.embedder == nil {
		return nil, index.ErrNeighborsUnsupported
	}
	if k <= 0 {
		return nil, nil
	}

	query, err := g.embedder.EmbedText(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	type scored struct {
		rec   *core.Record
		score float32
	}
	var results []scored
	err = g.backend.scanRecords(ctx, func(rec *core.Record) bool {
		if len(rec.Vector) > 0 {
			results = append(results, scored{rec: rec, score: dotProduct(query, rec.Vector)})
		}
		return true
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}

	slices.SortStableFunc(results, func(a, b scored) int {
		switch {
		case a.score > b.score:
			return -1
		case a.score < b.score:
			return 1
		default:
			return 0
		}
	})
	if len(results) > k {
		results = results[:k]
	}

	out := make([]*core.Record, len(results))
	for i, r := range results {
		out[i] = r.rec
	}
	return out, nil
}
