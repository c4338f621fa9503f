package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/poiesic/chassismatch/ai"
	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
)

// Gateway implements index.Gateway over an Elasticsearch index.
type Gateway struct {
	client   *elasticsearch.Client
	cfg      Config
	embedder ai.Embedder
	logger   *slog.Logger
}

var (
	_ index.Gateway          = (*Gateway)(nil)
	_ index.NeighborSearcher = (*Gateway)(nil)
)

// Option configures a Gateway.
type Option func(*Gateway)

// WithEmbedder enables NearestNeighbors. The embedder must use the same
// model that produced the stored vectors.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(g *Gateway) {
		g.embedder = embedder
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger.With("component", "elastic-gateway")
	}
}

// NewGateway creates a Gateway. Zero Config fields take their defaults.
func NewGateway(cfg Config, opts ...Option) (*Gateway, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
		APIKey:    cfg.APIKey,
		// Retries are handled per request with backoff below.
		DisableRetry: true,
	})
	if err != nil {
		return nil, err
	}

	g := &Gateway{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "elastic-gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Close is a no-op; the HTTP transport holds no per-gateway resources.
func (g *Gateway) Close() error {
	return nil
}

// Ping checks that the cluster answers.
func (g *Gateway) Ping(ctx context.Context) error {
	res, err := esapi.InfoRequest{}.Do(ctx, g.client)
	if err != nil {
		return fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("%w: %s", core.ErrIndexUnavailable, res.Status())
	}
	return nil
}

type searchHit struct {
	ID     string                     `json:"_id"`
	Source map[string]json.RawMessage `json:"_source"`
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

// FetchByID runs a term query on the ID field and requires exactly one hit.
func (g *Gateway) FetchByID(ctx context.Context, id string) (*core.Record, error) {
	body := map[string]any{
		"query": map[string]any{
			"term": map[string]any{
				g.cfg.IDField: id,
			},
		},
		// Two hits are enough to detect a duplicate.
		"size":             2,
		"track_total_hits": true,
		"_source":          g.sourceFilter(),
	}

	resp, err := g.search(ctx, body)
	if err != nil {
		return nil, err
	}

	switch total := resp.Hits.Total.Value; {
	case total == 0:
		return nil, fmt.Errorf("%w: %s", core.ErrNotFound, id)
	case total > 1:
		return nil, fmt.Errorf("%w: %s matched %d records", core.ErrAmbiguousResult, id, total)
	}
	if len(resp.Hits.Hits) == 0 {
		return nil, fmt.Errorf("%w: hit count 1 with no hits", ErrBadResponse)
	}
	return g.decodeHit(resp.Hits.Hits[0])
}

// SearchAll runs a query_string search with AND semantics over the
// rendered criteria. The first page is fetched immediately to learn the
// total; later pages are requested while the ResultSet is iterated.
func (g *Gateway) SearchAll(ctx context.Context, criteria []core.Criterion) (*index.ResultSet, error) {
	query, err := index.Compose(criteria)
	if err != nil {
		return nil, err
	}

	first, err := g.search(ctx, g.pageBody(query, 0))
	if err != nil {
		return nil, err
	}
	total := first.Hits.Total.Value
	g.logger.Debug("search completed", "query", query, "hits", total)

	limit := min(total, g.cfg.MaxResultWindow)
	seq := func(yield func(*core.Record, error) bool) {
		page := first.Hits.Hits
		from := 0
		for {
			for _, hit := range page {
				rec, err := g.decodeHit(hit)
				if !yield(rec, err) || err != nil {
					return
				}
			}
			from += len(page)
			if len(page) == 0 || from >= limit {
				return
			}

			resp, err := g.search(ctx, g.pageBody(query, from))
			if err != nil {
				yield(nil, err)
				return
			}
			page = resp.Hits.Hits
		}
	}
	return index.NewResultSet(total, seq), nil
}

func (g *Gateway) pageBody(query string, from int) map[string]any {
	return map[string]any{
		"query": map[string]any{
			"query_string": map[string]any{
				"query":            query,
				"default_operator": "AND",
			},
		},
		"from":             from,
		"size":             min(g.cfg.PageSize, g.cfg.MaxResultWindow-from),
		"track_total_hits": true,
		"_source":          g.sourceFilter(),
	}
}

// NearestNeighbors embeds source and runs an approximate kNN query on the
// embedding field.
func (g *Gateway) NearestNeighbors(ctx context.Context, source string, k int) ([]*core.Record, error) {
	if g.embedder == nil {
		return nil, index.ErrNeighborsUnsupported
	}
	if k <= 0 {
		return nil, nil
	}

	vector, err := g.embedder.EmbedText(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	body := map[string]any{
		"knn": map[string]any{
			"field":          g.cfg.EmbeddingField,
			"query_vector":   vector,
			"k":              k,
			"num_candidates": min(max(2*k, 100), 10000),
		},
		"size":    k,
		"_source": g.sourceFilter(),
	}

	resp, err := g.search(ctx, body)
	if err != nil {
		return nil, err
	}

	records := make([]*core.Record, 0, len(resp.Hits.Hits))
	for _, hit := range resp.Hits.Hits {
		rec, err := g.decodeHit(hit)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

func (g *Gateway) sourceFilter() map[string]any {
	return map[string]any{"excludes": []string{g.cfg.EmbeddingField}}
}

func (g *Gateway) decodeHit(hit searchHit) (*core.Record, error) {
	source := hit.Source
	if g.cfg.IDField != core.IDField {
		if raw, ok := source[g.cfg.IDField]; ok {
			source[core.IDField] = raw
			delete(source, g.cfg.IDField)
		}
	}
	rec, err := core.RecordFromDocument(source)
	if err != nil {
		return nil, fmt.Errorf("%w: hit %s: %w", ErrBadResponse, hit.ID, err)
	}
	if rec.ID == "" {
		rec.ID = hit.ID
	}
	return rec, nil
}

// search issues one search request, retrying transport failures and
// retryable statuses with backoff.
func (g *Gateway) search(ctx context.Context, body map[string]any) (*searchResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	var out searchResponse
	err = index.RetryWithBackoff(ctx, func() error {
		req := esapi.SearchRequest{
			Index: []string{g.cfg.Index},
			Body:  bytes.NewReader(payload),
		}
		res, err := req.Do(ctx, g.client)
		if err != nil {
			if ctx.Err() != nil {
				return index.Permanent(err)
			}
			return err
		}
		defer res.Body.Close()

		if res.IsError() {
			statusErr := fmt.Errorf("search %s: %s", g.cfg.Index, res.String())
			if res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusTooManyRequests {
				return fmt.Errorf("%w: %w", errRetryable, statusErr)
			}
			return index.Permanent(statusErr)
		}

		out = searchResponse{}
		if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
			return index.Permanent(fmt.Errorf("%w: %w", ErrBadResponse, err))
		}
		return nil
	}, g.cfg.MaxRetries, g.cfg.RetryDelay)

	switch {
	case err == nil:
		return &out, nil
	case errors.Is(err, ErrBadResponse), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		g.logger.Warn("index request failed", "index", g.cfg.Index, "err", err)
		return nil, fmt.Errorf("%w: %w", core.ErrIndexUnavailable, err)
	}
}
