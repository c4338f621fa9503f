package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
	"github.com/poiesic/chassismatch/index/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGateway records how often the inner gateway is reached.
type countingGateway struct {
	index.Gateway
	fetches  atomic.Int32
	searches atomic.Int32
	fetchErr error
}

func (c *countingGateway) FetchByID(ctx context.Context, id string) (*core.Record, error) {
	c.fetches.Add(1)
	if c.fetchErr != nil {
		return nil, c.fetchErr
	}
	return c.Gateway.FetchByID(ctx, id)
}

func (c *countingGateway) SearchAll(ctx context.Context, criteria []core.Criterion) (*index.ResultSet, error) {
	c.searches.Add(1)
	return c.Gateway.SearchAll(ctx, criteria)
}

// failingClient fails every operation.
type failingClient struct{}

func (failingClient) Get(context.Context, string) ([]byte, error) {
	return nil, errors.New("connection refused")
}
func (failingClient) Set(context.Context, string, []byte, time.Duration) error {
	return errors.New("connection refused")
}
func (failingClient) Close() error { return nil }

func newInner(t *testing.T) *countingGateway {
	t.Helper()
	recs := []*core.Record{
		{ID: "C-1", Attributes: map[string]core.Value{"dealer": core.String("Acme")}},
		{ID: "C-2", Attributes: map[string]core.Value{"dealer": core.String("Acme")}},
		{ID: "C-3", Attributes: map[string]core.Value{"dealer": core.String("Other")}},
	}
	g, err := badger.NewMemoryGateway(recs)
	require.NoError(t, err)
	return &countingGateway{Gateway: g}
}

func ids(t *testing.T, rs *index.ResultSet) []string {
	t.Helper()
	recs, err := rs.Collect()
	require.NoError(t, err)
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ID
	}
	return out
}

func TestGateway_FetchByID(t *testing.T) {
	inner := newInner(t)
	g, err := NewGateway(inner, NewMemoryClient())
	require.NoError(t, err)
	defer g.Close()
	ctx := context.Background()

	first, err := g.FetchByID(ctx, "C-1")
	require.NoError(t, err)
	second, err := g.FetchByID(ctx, "C-1")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, inner.fetches.Load(), "second lookup is served from cache")
}

func TestGateway_ErrorsNotCached(t *testing.T) {
	inner := newInner(t)
	client := NewMemoryClient()
	g, err := NewGateway(inner, client)
	require.NoError(t, err)
	defer g.Close()
	ctx := context.Background()

	_, err = g.FetchByID(ctx, "C-404")
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = g.FetchByID(ctx, "C-404")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.EqualValues(t, 2, inner.fetches.Load())
	assert.Equal(t, 0, client.Len())
}

func TestGateway_SearchAll(t *testing.T) {
	inner := newInner(t)
	g, err := NewGateway(inner, NewMemoryClient())
	require.NoError(t, err)
	defer g.Close()
	ctx := context.Background()
	criteria := []core.Criterion{{Attribute: "dealer", Value: core.String("Acme")}}

	rs, err := g.SearchAll(ctx, criteria)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Count())
	assert.Equal(t, []string{"C-1", "C-2"}, ids(t, rs))

	rs, err = g.SearchAll(ctx, criteria)
	require.NoError(t, err)
	assert.Equal(t, 2, rs.Count())
	assert.Equal(t, []string{"C-1", "C-2"}, ids(t, rs))
	assert.EqualValues(t, 1, inner.searches.Load())

	_, err = g.SearchAll(ctx, []core.Criterion{{Attribute: "dealer", Value: core.String("Other")}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.searches.Load(), "different criteria miss the cache")
}

func TestGateway_SearchAll_ValueKinds(t *testing.T) {
	g0, err := badger.NewMemoryGateway([]*core.Record{
		{ID: "S", Attributes: map[string]core.Value{"wheelbase": core.String("200")}},
		{ID: "N", Attributes: map[string]core.Value{"wheelbase": core.Number(200)}},
	})
	require.NoError(t, err)
	inner := &countingGateway{Gateway: g0}
	g, err := NewGateway(inner, NewMemoryClient())
	require.NoError(t, err)
	defer g.Close()
	ctx := context.Background()

	text := []core.Criterion{{Attribute: "wheelbase", Value: core.String("200")}}
	num := []core.Criterion{{Attribute: "wheelbase", Value: core.Number(200)}}

	for range 2 {
		rs, err := g.SearchAll(ctx, text)
		require.NoError(t, err)
		assert.Equal(t, []string{"S"}, ids(t, rs))

		rs, err = g.SearchAll(ctx, num)
		require.NoError(t, err)
		assert.Equal(t, []string{"N"}, ids(t, rs), "numeric query never served the text hits")
	}
	assert.EqualValues(t, 2, inner.searches.Load(), "each kind is cached under its own key")
}

func TestGateway_LargeResultSetsBypassCache(t *testing.T) {
	inner := newInner(t)
	client := NewMemoryClient()
	g, err := NewGateway(inner, client, WithMaxCachedHits(1))
	require.NoError(t, err)
	defer g.Close()

	rs, err := g.SearchAll(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 3, rs.Count())
	assert.Equal(t, 0, client.Len())
}

func TestGateway_CacheFailureFallsThrough(t *testing.T) {
	inner := newInner(t)
	g, err := NewGateway(inner, failingClient{})
	require.NoError(t, err)
	defer g.Close()

	rec, err := g.FetchByID(context.Background(), "C-2")
	require.NoError(t, err)
	assert.Equal(t, "C-2", rec.ID)
}

func TestGateway_NearestNeighbors_Unsupported(t *testing.T) {
	// countingGateway hides the badger gateway's NeighborSearcher.
	g, err := NewGateway(newInner(t), NewMemoryClient())
	require.NoError(t, err)
	defer g.Close()

	_, err = g.NearestNeighbors(context.Background(), "x", 5)
	assert.ErrorIs(t, err, index.ErrNeighborsUnsupported)
}

func TestMemoryClient_TTL(t *testing.T) {
	c := NewMemoryClient()
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "forever", []byte("v"), 0))
	v, err := c.Get(ctx, "forever")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)
}

func TestNewGateway_Required(t *testing.T) {
	_, err := NewGateway(nil, NewMemoryClient())
	assert.Error(t, err)
	_, err = NewGateway(newInner(t), nil)
	assert.Error(t, err)
}
