package openai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/chassismatch/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder against an OpenAI-compatible embeddings
// endpoint through langchaingo.
type Embedder struct {
	client    embeddings.EmbedderClient
	batchSize int
	logger    *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// Option configures an Embedder.
type Option func(*Embedder)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) {
		e.logger = logger.With("component", "openai-embedder")
	}
}

// NewEmbedder creates an embedder for config. The model must be the one that
// produced the vectors stored in the index.
func NewEmbedder(config *ai.Config, opts ...Option) (*Embedder, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	llm, err := openai.New(
		openai.WithBaseURL(config.Host),
		openai.WithToken(config.Token),
		openai.WithEmbeddingModel(config.Model),
	)
	if err != nil {
		return nil, fmt.Errorf("creating openai client: %w", err)
	}

	e := &Embedder{
		client:    llm,
		batchSize: config.BatchSize,
		logger:    slog.Default().With("component", "openai-embedder"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// EmbedText embeds one description.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts embeds texts in requests of at most BatchSize entries and
// returns the vectors in input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	cleaned := make([]string, len(texts))
	for i, text := range texts {
		cleaned[i] = strings.Join(strings.Fields(text), " ")
		if cleaned[i] == "" {
			return nil, fmt.Errorf("%w: text %d", ai.ErrEmptyText, i)
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(cleaned); start += e.batchSize {
		chunk := cleaned[start:min(start+e.batchSize, len(cleaned))]
		e.logger.Debug("requesting embeddings", "offset", start, "count", len(chunk))

		vectors, err := e.client.CreateEmbedding(ctx, chunk)
		if err != nil {
			e.logger.Error("embedding request failed", "offset", start, "count", len(chunk), "err", err)
			return nil, err
		}
		if len(vectors) != len(chunk) {
			return nil, fmt.Errorf("%w: sent %d texts, got %d vectors", ai.ErrVectorCount, len(chunk), len(vectors))
		}
		out = append(out, vectors...)
	}
	return out, nil
}
