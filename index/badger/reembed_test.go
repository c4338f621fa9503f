package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/chassismatch/ai/mock"
	"github.com/poiesic/chassismatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastReembed() ReembedConfig {
	return ReembedConfig{BatchSize: 2, MaxRetries: 3, RetryDelay: time.Millisecond}
}

func TestGateway_Reembed(t *testing.T) {
	t.Run("requires an embedder", func(t *testing.T) {
		g, err := NewMemoryGateway(fixtures())
		require.NoError(t, err)
		defer g.Close()

		_, err = g.Reembed(context.Background(), fastReembed(), nil)
		assert.ErrorIs(t, err, ErrEmbedderRequired)
	})

	t.Run("invalid batch size", func(t *testing.T) {
		g, err := NewMemoryGateway(fixtures(), WithEmbedder(mock.NewMockEmbedder()))
		require.NoError(t, err)
		defer g.Close()

		_, err = g.Reembed(context.Background(), ReembedConfig{}, nil)
		assert.ErrorIs(t, err, ErrInvalidBatchSize)
	})

	t.Run("replaces vectors in batches", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		recs := append(fixtures(), &core.Record{ID: "C-4", Attributes: map[string]core.Value{}})
		g, err := NewMemoryGateway(recs, WithEmbedder(embedder))
		require.NoError(t, err)
		defer g.Close()

		embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{3, 4}
			}
			return out, nil
		}

		var calls [][2]int
		n, err := g.Reembed(context.Background(), fastReembed(), func(done, total int) {
			calls = append(calls, [2]int{done, total})
		})
		require.NoError(t, err)
		assert.Equal(t, 3, n, "records without a description are skipped")
		assert.Equal(t, [][2]int{{2, 3}, {3, 3}}, calls)

		rec, err := g.FetchByID(context.Background(), "C-2")
		require.NoError(t, err)
		assert.InDeltaSlice(t, []float32{0.6, 0.8}, rec.Vector, 1e-6)
		v, ok := rec.Get("dealer")
		require.True(t, ok)
		assert.True(t, v.Equal(core.String("Acme")), "attributes survive")

		rec, err = g.FetchByID(context.Background(), "C-4")
		require.NoError(t, err)
		assert.Empty(t, rec.Vector)
	})

	t.Run("retries failed requests", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		g, err := NewMemoryGateway(fixtures(), WithEmbedder(embedder))
		require.NoError(t, err)
		defer g.Close()

		failures := 1
		embedder.EmbedTextsFunc = func(_ context.Context, texts []string) ([][]float32, error) {
			if failures > 0 {
				failures--
				return nil, errors.New("rate limited")
			}
			out := make([][]float32, len(texts))
			for i := range texts {
				out[i] = []float32{1, 0}
			}
			return out, nil
		}

		n, err := g.Reembed(context.Background(), ReembedConfig{BatchSize: 10, MaxRetries: 2, RetryDelay: time.Millisecond}, nil)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		g, err := NewMemoryGateway(fixtures(), WithEmbedder(embedder))
		require.NoError(t, err)
		defer g.Close()

		boom := errors.New("embedding service down")
		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return nil, boom
		}

		n, err := g.Reembed(context.Background(), fastReembed(), nil)
		assert.ErrorIs(t, err, boom)
		assert.Zero(t, n)
	})

	t.Run("count mismatch", func(t *testing.T) {
		embedder := mock.NewMockEmbedder()
		g, err := NewMemoryGateway(fixtures(), WithEmbedder(embedder))
		require.NoError(t, err)
		defer g.Close()

		embedder.EmbedTextsFunc = func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1}}, nil
		}
		_, err = g.Reembed(context.Background(), fastReembed(), nil)
		assert.ErrorContains(t, err, "mismatch")
	})
}
