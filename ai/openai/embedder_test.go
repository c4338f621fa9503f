package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/poiesic/chassismatch/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEmbedder_InvalidConfig(t *testing.T) {
	_, err := NewEmbedder(ai.NewConfig(ai.WithModel("")))
	assert.Error(t, err)
}

func TestEmbedder_EmbedText(t *testing.T) {
	var gotModel string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)

		var req struct {
			Model string `json:"model"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotModel = req.Model

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"object": "list",
			"model": "test-embed",
			"data": [{"object": "embedding", "index": 0, "embedding": [0.5, 0.25, 0.125]}],
			"usage": {"prompt_tokens": 3, "total_tokens": 3}
		}`))
	}))
	defer srv.Close()

	e, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL), ai.WithModel("test-embed")))
	require.NoError(t, err)

	vec, err := e.EmbedText(context.Background(), "Day cab tractor")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.25, 0.125}, vec)
	assert.Equal(t, "test-embed", gotModel)
}

// batchServer answers every input with [index, len(text)] and records the
// request sizes. drop removes that many vectors from each response.
func batchServer(t *testing.T, drop int) (*httptest.Server, func() [][]string) {
	t.Helper()
	var (
		mu       sync.Mutex
		requests [][]string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input []string `json:"input"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		mu.Lock()
		requests = append(requests, req.Input)
		mu.Unlock()

		data := []map[string]any{}
		for i, text := range req.Input[:len(req.Input)-drop] {
			data = append(data, map[string]any{
				"object":    "embedding",
				"index":     i,
				"embedding": []float32{float32(i), float32(len(text))},
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "test-embed",
			"data":   data,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, func() [][]string {
		mu.Lock()
		defer mu.Unlock()
		return requests
	}
}

func TestEmbedder_EmbedTexts(t *testing.T) {
	t.Run("splits into batches", func(t *testing.T) {
		srv, requests := batchServer(t, 0)
		e, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL), ai.WithBatchSize(2)))
		require.NoError(t, err)

		vecs, err := e.EmbedTexts(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
		require.NoError(t, err)
		require.Len(t, vecs, 5)
		assert.Equal(t, []float32{0, 3}, vecs[2], "third text opens the second batch")
		assert.Equal(t, []float32{0, 5}, vecs[4])

		assert.Equal(t, [][]string{{"a", "bb"}, {"ccc", "dddd"}, {"eeeee"}}, requests())
	})

	t.Run("collapses whitespace", func(t *testing.T) {
		srv, requests := batchServer(t, 0)
		e, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL)))
		require.NoError(t, err)

		_, err = e.EmbedText(context.Background(), "  tandem\n day   cab ")
		require.NoError(t, err)
		assert.Equal(t, [][]string{{"tandem day cab"}}, requests())
	})

	t.Run("rejects blank text", func(t *testing.T) {
		srv, requests := batchServer(t, 0)
		e, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL)))
		require.NoError(t, err)

		_, err = e.EmbedTexts(context.Background(), []string{"day cab", " \t"})
		assert.ErrorIs(t, err, ai.ErrEmptyText)
		assert.Empty(t, requests(), "nothing is sent")
	})

	t.Run("short response", func(t *testing.T) {
		srv, _ := batchServer(t, 1)
		e, err := NewEmbedder(ai.NewConfig(ai.WithHost(srv.URL)))
		require.NoError(t, err)

		_, err = e.EmbedTexts(context.Background(), []string{"a", "b"})
		assert.Error(t, err)
	})
}
