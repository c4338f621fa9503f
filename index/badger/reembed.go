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



package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
)

// ReembedConfig holds configuration for Reembed.
type ReembedConfig struct {
	// BatchSize is the number of descriptions embedded per request
	BatchSize int

	// MaxRetries is the maximum number of attempts per embedding request
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultReembedConfig returns a ReembedConfig with sensible defaults.
func DefaultReembedConfig() ReembedConfig {
	return ReembedConfig{
		BatchSize:  100,
		MaxRetries: 3,
		RetryDelay: 1 * time.Second,
	}
}

// Reembed replaces the vector of every record that has a description with
// a fresh, normalized embedding from the gateway's embedder. Run it after
// switching embedding models so stored vectors match query vectors.
// progress, if not nil, is called after each batch with the number of
// records done and the total. Returns the number of records reembedded.
func (g *Gateway) Reembed(ctx context.Context, cfg ReembedConfig, progress func(done, total int)) (int, error) {
	if g.embedder == nil {
		return 0, ErrEmbedderRequired
	}
	if cfg.BatchSize <= 0 {
		return 0, ErrInvalidBatchSize
	}

	// 1. Collect records with a description
	var records []*core.Record
	err := g.backend.scanRecords(ctx, func(rec *core.Record) bool {
		if strings.TrimSpace(rec.Description) != "" {
			records = append(records, rec)
		}
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("scanning records: %w", err)
	}

	total := len(records)
	g.logger.Info("reembedding records", "total", total, "batch_size", cfg.BatchSize)

	// 2. Embed and store batch by batch
	for start := 0; start < total; start += cfg.BatchSize {
		chunk := records[start:min(start+cfg.BatchSize, total)]
		if err := g.reembedBatch(ctx, chunk, cfg); err != nil {
			return start, err
		}
		if progress != nil {
			progress(start+len(chunk), total)
		}
	}

	return total, nil
}

func (g *Gateway) reembedBatch(ctx context.Context, records []*core.Record, cfg ReembedConfig) error {
	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Description
	}

	var vectors [][]float32
	err := index.RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = g.embedder.EmbedTexts(ctx, texts)
		return err
	}, cfg.MaxRetries, cfg.RetryDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", cfg.MaxRetries, err)
	}
	if len(vectors) != len(records) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(records), len(vectors))
	}

	for i, rec := range records {
		rec.Vector = normalizeVector(vectors[i])
	}

	return g.backend.WithBatch(func(wb *badger.WriteBatch) error {
		for _, rec := range records {
			if err := wb.Set(makeRecordKey(rec.ID), index.MarshalRecord(rec)); err != nil {
				return err
			}
		}
		return nil
	})
}
