// Package metrics exports Prometheus metrics for match calls.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/match"
)

const namespace = "chassismatch"

// Outcome labels for matches_total.
const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeNotFound    = "not_found"
	OutcomeAmbiguous   = "ambiguous"
	OutcomeUnavailable = "unavailable"
	OutcomeError       = "error"
)

// Collector owns the match metrics. Register it once and hand a fresh
// monitor from NewMonitor to every call.
type Collector struct {
	registry *prometheus.Registry

	matches    *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	levels     prometheus.Histogram
	levelHits  prometheus.Histogram
	candidates *prometheus.CounterVec
	neighbors  prometheus.Histogram
	inFlight   prometheus.Gauge
}

// NewCollector registers the match metrics on a private registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		matches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "matches_total",
				Help:      "Total number of match calls by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "match_duration_seconds",
				Help:      "Duration of match calls",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
		levels: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "relaxation_levels",
				Help:      "Number of relaxation levels queried per match",
				Buckets:   prometheus.LinearBuckets(1, 4, 14),
			},
		),
		levelHits: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "relaxation_level_hits",
				Help:      "Hit count reported by the index per relaxation level",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		candidates: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "candidates_total",
				Help:      "Candidates seen while matching, accepted or skipped as duplicates",
			},
			[]string{"decision"},
		),
		neighbors: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "neighbor_records",
				Help:      "Records returned by nearest-neighbour queries",
				Buckets:   prometheus.LinearBuckets(0, 25, 9),
			},
		),
		inFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "matches_in_flight",
				Help:      "Match calls currently running",
			},
		),
	}
}

// Registry returns the registry holding the match metrics.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// WriteTextfile writes the current metrics in text exposition format,
// suitable for a node_exporter textfile collector.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

// NewMonitor returns a monitor for a single match call.
func (c *Collector) NewMonitor() match.Monitor {
	return &callMonitor{collector: c}
}

// Outcome classifies a finished match for the outcome label.
func Outcome(results []*core.ScoredCandidate, err error) string {
	switch {
	case err == nil && len(results) == 0:
		return OutcomeEmpty
	case err == nil:
		return OutcomeOK
	case errors.Is(err, core.ErrNotFound):
		return OutcomeNotFound
	case errors.Is(err, core.ErrAmbiguousResult):
		return OutcomeAmbiguous
	case errors.Is(err, core.ErrIndexUnavailable):
		return OutcomeUnavailable
	default:
		return OutcomeError
	}
}

// callMonitor records one call. It is not safe for concurrent use.
type callMonitor struct {
	collector *Collector
	mode      match.Mode
	started   time.Time
	levels    int
}

var _ match.Monitor = (*callMonitor)(nil)

func (m *callMonitor) Start(_ string, mode match.Mode) {
	m.mode = mode
	m.started = time.Now()
	m.levels = 0
	m.collector.inFlight.Inc()
}

func (m *callMonitor) AfterTargetFetch(_ *core.Record) {}

func (m *callMonitor) RelaxationLevel(level int, _ []core.Criterion, hits int) {
	m.levels = level
	m.collector.levelHits.Observe(float64(hits))
}

func (m *callMonitor) CandidateAccepted(_ *core.ScoredCandidate) {
	m.collector.candidates.WithLabelValues("accepted").Inc()
}

func (m *callMonitor) DuplicateSkipped(_ string) {
	m.collector.candidates.WithLabelValues("duplicate").Inc()
}

func (m *callMonitor) AfterNeighborSearch(records int) {
	m.collector.neighbors.Observe(float64(records))
}

func (m *callMonitor) Finish(results []*core.ScoredCandidate, err error) {
	c := m.collector
	mode := m.mode.String()
	c.inFlight.Dec()
	c.matches.WithLabelValues(mode, Outcome(results, err)).Inc()
	c.duration.WithLabelValues(mode).Observe(time.Since(m.started).Seconds())
	if m.mode == match.ModeRelaxation && m.levels > 0 {
		c.levels.Observe(float64(m.levels))
	}
}
