package match

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/chassismatch/catalog"
	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
)

// DefaultNeighborCount is the K used for nearest-neighbour queries.
const DefaultNeighborCount = 150

// Mode selects the matching strategy.
type Mode int

const (
	// ModeRelaxation runs progressive constraint relaxation.
	ModeRelaxation Mode = iota
	// ModeNearestNeighbor ranks the target's embedding neighbours.
	ModeNearestNeighbor
)

// String returns the mode name as accepted by ParseMode.
func (m Mode) String() string {
	switch m {
	case ModeRelaxation:
		return "relaxation"
	case ModeNearestNeighbor:
		return "nearest"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// ParseMode converts a mode name into a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "relaxation":
		return ModeRelaxation, nil
	case "nearest":
		return ModeNearestNeighbor, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// Request describes one match.
type Request struct {
	TargetID string
	Count    int
	// Selection applies to ModeRelaxation only.
	Selection Selection
	Mode      Mode
}

// Matcher finds records similar to a target through an index gateway.
// A Matcher holds no per-query state and is safe for concurrent use.
type Matcher struct {
	gateway       index.Gateway
	monitor       Monitor
	neighborCount int
	logger        *slog.Logger
}

// Option configures a Matcher.
type Option func(*Matcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Matcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		m.logger = logger.With("component", "matcher")
		return nil
	}
}

// WithMonitor sets the monitor used when a call does not supply its own.
func WithMonitor(monitor Monitor) Option {
	return func(m *Matcher) error {
		if monitor != nil {
			m.monitor = monitor
		}
		return nil
	}
}

// WithNeighborCount sets K for nearest-neighbour queries.
// Default is DefaultNeighborCount.
func WithNeighborCount(k int) Option {
	return func(m *Matcher) error {
		if k < 1 {
			return ErrInvalidNeighborCount
		}
		m.neighborCount = k
		return nil
	}
}

// NewMatcher creates a new matcher.
func NewMatcher(gateway index.Gateway, opts ...Option) (*Matcher, error) {
	if gateway == nil {
		return nil, ErrGatewayRequired
	}

	m := &Matcher{
		gateway:       gateway,
		monitor:       &noopMonitor{},
		neighborCount: DefaultNeighborCount,
		logger:        slog.Default().With("component", "matcher"),
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, err
		}
	}

	return m, nil
}

// Find runs the strategy named by req.Mode.
func (m *Matcher) Find(ctx context.Context, req Request) ([]*core.ScoredCandidate, error) {
	return m.FindWithMonitor(ctx, req, nil)
}

// FindWithMonitor is Find reporting to monitor. A nil monitor uses the
// matcher's own.
func (m *Matcher) FindWithMonitor(ctx context.Context, req Request, monitor Monitor) ([]*core.ScoredCandidate, error) {
	switch req.Mode {
	case ModeRelaxation:
		return m.FindSimilarWithMonitor(ctx, req.TargetID, req.Count, req.Selection, monitor)
	case ModeNearestNeighbor:
		if !req.Selection.IsZero() {
			return nil, ErrSelectionUnsupported
		}
		return m.FindNearestWithMonitor(ctx, req.TargetID, req.Count, monitor)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(req.Mode))
	}
}

// FindSimilar returns up to count records most similar to the target,
// found by progressive constraint relaxation over sel.
// A zero sel compares the default catalog.
func (m *Matcher) FindSimilar(ctx context.Context, targetID string, count int, sel Selection) ([]*core.ScoredCandidate, error) {
	return m.FindSimilarWithMonitor(ctx, targetID, count, sel, nil)
}

// FindSimilarWithMonitor is FindSimilar reporting to monitor instead of the
// matcher's own monitor.
func (m *Matcher) FindSimilarWithMonitor(ctx context.Context, targetID string, count int, sel Selection, monitor Monitor) (results []*core.ScoredCandidate, err error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}
	sel = sel.orDefault()
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if monitor == nil {
		monitor = m.monitor
	}

	monitor.Start(targetID, ModeRelaxation)
	defer func() { monitor.Finish(results, err) }()

	// 1. Resolve the target
	target, err := m.gateway.FetchByID(ctx, targetID)
	if err != nil {
		m.logger.Error("error fetching target", "target", targetID, "err", err)
		return nil, err
	}
	if target == nil {
		return []*core.ScoredCandidate{}, nil
	}
	monitor.AfterTargetFetch(target)

	// 2. Criteria and the fixed scoring set
	criteria, missing := buildCriteria(target, sel)
	if len(missing) > 0 {
		m.logger.Debug("target lacks selected attributes", "target", targetID, "attributes", missing)
	}
	acc := newAccumulator(target, sel.ScoringNames(), monitor)

	// 3. Relax until the quota is met or nothing removable is left
	for level := 1; len(criteria) > 0; level++ {
		rs, err := m.gateway.SearchAll(ctx, criteria)
		if err != nil {
			m.logger.Error("error searching index", "target", targetID, "level", level, "err", err)
			return nil, err
		}

		hits := rs.Count()
		monitor.RelaxationLevel(level, criteria, hits)
		m.logger.Debug("relaxation level", "target", targetID, "level", level, "criteria", len(criteria), "hits", hits)

		if hits > 0 {
			for rec := range rs.All() {
				acc.offer(rec)
			}
			if err := rs.Err(); err != nil {
				m.logger.Error("error reading search results", "target", targetID, "level", level, "err", err)
				return nil, err
			}
			if acc.len() >= count {
				break
			}
		}

		next, ok := dropFirstRemovable(criteria)
		if !ok {
			m.logger.Debug("relaxation exhausted", "target", targetID, "remaining", clauses(criteria))
			break
		}
		criteria = next
	}

	// 4. Rank and truncate
	return acc.ranked(count), nil
}

// FindNearest returns up to count records ranked from the target's
// embedding neighbours, scored against the default catalog.
// The gateway must implement index.NeighborSearcher.
func (m *Matcher) FindNearest(ctx context.Context, targetID string, count int) ([]*core.ScoredCandidate, error) {
	return m.FindNearestWithMonitor(ctx, targetID, count, nil)
}

// FindNearestWithMonitor is FindNearest reporting to monitor instead of the
// matcher's own monitor.
func (m *Matcher) FindNearestWithMonitor(ctx context.Context, targetID string, count int, monitor Monitor) (results []*core.ScoredCandidate, err error) {
	if count < 1 {
		return nil, ErrInvalidCount
	}
	searcher, ok := m.gateway.(index.NeighborSearcher)
	if !ok {
		return nil, index.ErrNeighborsUnsupported
	}
	if monitor == nil {
		monitor = m.monitor
	}

	monitor.Start(targetID, ModeNearestNeighbor)
	defer func() { monitor.Finish(results, err) }()

	// 1. Resolve the target
	target, err := m.gateway.FetchByID(ctx, targetID)
	if err != nil {
		m.logger.Error("error fetching target", "target", targetID, "err", err)
		return nil, err
	}
	if target == nil {
		return []*core.ScoredCandidate{}, nil
	}
	monitor.AfterTargetFetch(target)
	if strings.TrimSpace(target.Description) == "" {
		m.logger.Warn("target has no description to search on", "target", targetID)
		return []*core.ScoredCandidate{}, nil
	}

	// 2. One neighbour query over the description
	neighbors, err := searcher.NearestNeighbors(ctx, target.Description, m.neighborCount)
	if err != nil {
		m.logger.Error("error in neighbour search", "target", targetID, "err", err)
		return nil, err
	}
	monitor.AfterNeighborSearch(len(neighbors))

	// 3. Score against the full default catalog
	acc := newAccumulator(target, catalog.Names(catalog.DefaultKeys()), monitor)
	for _, rec := range neighbors {
		acc.offer(rec)
	}

	return acc.ranked(count), nil
}
