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



package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/match"
)

// Config holds configuration for a batch run.
type Config struct {
	// PoolSize is the number of targets matched concurrently
	PoolSize int

	// Count is the number of candidates requested per target
	Count int

	// Mode selects the matching strategy for every target
	Mode match.Mode

	// ReportInterval is how often to report progress (number of targets)
	ReportInterval int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	return &Config{
		PoolSize:       poolSize,
		Count:          10,
		Mode:           match.ModeRelaxation,
		ReportInterval: 100,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.PoolSize < 1 {
		return ErrInvalidPoolSize
	}
	if c.Count < 1 {
		return ErrInvalidCount
	}
	return nil
}

// Result is the outcome of matching one target.
type Result struct {
	TargetID   string
	Candidates []*core.ScoredCandidate
	Err        error
}

// MarshalJSON writes the result as one JSON object with the error as text.
func (r Result) MarshalJSON() ([]byte, error) {
	out := struct {
		TargetID   string                  `json:"target_id"`
		Candidates []*core.ScoredCandidate `json:"candidates"`
		Error      string                  `json:"error,omitempty"`
	}{
		TargetID:   r.TargetID,
		Candidates: r.Candidates,
	}
	if out.Candidates == nil {
		out.Candidates = []*core.ScoredCandidate{}
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Summary counts batch outcomes.
type Summary struct {
	Total   int
	Matched int
	Empty   int
	Failed  int
}

// Summarize counts results by outcome.
func Summarize(results []Result) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch {
		case r.Err != nil:
			s.Failed++
		case len(r.Candidates) == 0:
			s.Empty++
		default:
			s.Matched++
		}
	}
	return s
}

// Runner matches batches of targets on a worker pool.
type Runner struct {
	matcher    *match.Matcher
	config     *Config
	progress   io.Writer
	newMonitor func() match.Monitor
	logger     *slog.Logger
}

// Option configures a Runner.
type Option func(*Runner) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) error {
		if logger == nil {
			logger = slog.Default()
		}
		r.logger = logger.With("component", "batch")
		return nil
	}
}

// WithMonitorFactory gives every target its own monitor from newMonitor.
func WithMonitorFactory(newMonitor func() match.Monitor) Option {
	return func(r *Runner) error {
		r.newMonitor = newMonitor
		return nil
	}
}

// NewRunner creates a new batch runner.
// config: batch settings (uses DefaultConfig if nil)
// progress: where to write progress output (discarded if nil)
func NewRunner(matcher *match.Matcher, config *Config, progress io.Writer, opts ...Option) (*Runner, error) {
	if matcher == nil {
		return nil, ErrMatcherRequired
	}
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	r := &Runner{
		matcher:  matcher,
		config:   config,
		progress: progress,
		logger:   slog.Default().With("component", "batch"),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Run matches every target and returns one Result per ID in input order.
// A failed target does not stop the batch. Targets not started before ctx
// is cancelled carry the context error, which Run also returns.
func (r *Runner) Run(ctx context.Context, targetIDs []string, sel match.Selection) ([]Result, error) {
	results := make([]Result, len(targetIDs))
	if len(targetIDs) == 0 {
		return results, nil
	}

	poolSize := min(r.config.PoolSize, len(targetIDs))
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("creating worker pool: %w", err)
	}
	defer pool.Release()

	tracker := NewProgressTracker(r.progress, len(targetIDs), r.config.ReportInterval)
	tracker.Start()

	r.logger.Info("starting batch", "targets", len(targetIDs), "pool_size", poolSize, "mode", r.config.Mode.String())

	var wg sync.WaitGroup
	for i, id := range targetIDs {
		results[i].TargetID = id
		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			results[i].Candidates, results[i].Err = r.matchOne(ctx, id, sel)
			if results[i].Err != nil {
				tracker.Fail()
			} else {
				tracker.Increment(1)
			}
		})
		if submitErr != nil {
			wg.Done()
			results[i].Err = fmt.Errorf("submitting target %s: %w", id, submitErr)
		}
	}
	wg.Wait()
	tracker.Finish()

	s := Summarize(results)
	r.logger.Info("batch complete",
		"targets", s.Total,
		"matched", s.Matched,
		"empty", s.Empty,
		"failed", s.Failed,
		"elapsed", tracker.Elapsed())

	return results, ctx.Err()
}

func (r *Runner) matchOne(ctx context.Context, id string, sel match.Selection) ([]*core.ScoredCandidate, error) {
	var monitor match.Monitor
	if r.newMonitor != nil {
		monitor = r.newMonitor()
	}
	req := match.Request{TargetID: id, Count: r.config.Count, Mode: r.config.Mode}
	if r.config.Mode == match.ModeRelaxation {
		req.Selection = sel
	}

	candidates, err := r.matcher.FindWithMonitor(ctx, req, monitor)
	if err != nil {
		r.logger.Warn("target failed", "target", id, "err", err)
		return nil, err
	}
	return candidates, nil
}
