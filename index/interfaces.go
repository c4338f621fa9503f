package index

import (
	"context"

	"github.com/poiesic/chassismatch/core"
)

// Gateway is the read-only view of a chassis search index.
// Implementations must be safe for concurrent use.
type Gateway interface {
	// FetchByID returns the single record whose ID field equals id.
	// Returns core.ErrNotFound for zero hits and core.ErrAmbiguousResult
	// for more than one.
	FetchByID(ctx context.Context, id string) (*core.Record, error)

	// SearchAll runs a boolean AND query over every criterion.
	// The returned ResultSet reports its hit count without being consumed.
	// An empty criteria list matches every record.
	SearchAll(ctx context.Context, criteria []core.Criterion) (*ResultSet, error)

	// Close releases the gateway's resources.
	Close() error
}

// NeighborSearcher is implemented by gateways that can rank records by
// embedding similarity to a piece of text.
type NeighborSearcher interface {
	// NearestNeighbors returns up to k records closest to source,
	// most similar first.
	NearestNeighbors(ctx context.Context, source string, k int) ([]*core.Record, error)
}
