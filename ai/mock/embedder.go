package mock

import (
	"context"
	"hash/fnv"
	"math"
	"slices"
	"sync"

	"github.com/poiesic/chassismatch/ai"
)

// Dimensions is the length of the vectors Vector produces.
const Dimensions = 64

// MockEmbedder is a test double for ai.Embedder. Set EmbedTextFunc or
// EmbedTextsFunc to override the deterministic default.
type MockEmbedder struct {
	EmbedTextFunc  func(ctx context.Context, text string) ([]float32, error)
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	mu    sync.Mutex
	calls int
	texts []string
}

var _ ai.Embedder = (*MockEmbedder)(nil)

// NewMockEmbedder creates a mock embedder backed by Vector.
func NewMockEmbedder() *MockEmbedder {
	return &MockEmbedder{}
}

func (m *MockEmbedder) record(texts ...string) {
	m.mu.Lock()
	m.calls++
	m.texts = append(m.texts, texts...)
	m.mu.Unlock()
}

// EmbedText returns Vector(text) unless EmbedTextFunc is set.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	m.record(text)
	if m.EmbedTextFunc != nil {
		return m.EmbedTextFunc(ctx, text)
	}
	return Vector(text), nil
}

// EmbedTexts returns one Vector per text unless EmbedTextsFunc is set.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.record(texts...)
	if m.EmbedTextsFunc != nil {
		return m.EmbedTextsFunc(ctx, texts)
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		out = append(out, Vector(text))
	}
	return out, nil
}

// CallCount is the number of EmbedText and EmbedTexts calls.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Texts returns every text passed to the embedder, in call order.
func (m *MockEmbedder) Texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.texts)
}

// Reset drops recorded calls and injected behaviour.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	m.calls = 0
	m.texts = nil
	m.mu.Unlock()
	m.EmbedTextFunc = nil
	m.EmbedTextsFunc = nil
}

// Vector returns the unit vector the mock produces for text. Equal texts give
// equal vectors, so fixtures can precompute stored embeddings with it.
func Vector(text string) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	state := h.Sum32()

	out := make([]float32, Dimensions)
	var norm float64
	for i := range out {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
		v := float64(state%2001)/1000 - 1 // [-1, 1]
		out[i] = float32(v)
		norm += v * v
	}
	if norm == 0 {
		out[0] = 1
		return out
	}
	scale := 1 / math.Sqrt(norm)
	for i := range out {
		out[i] = float32(float64(out[i]) * scale)
	}
	return out
}
