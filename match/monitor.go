package match

import (
	"github.com/poiesic/chassismatch/core"
)

// Monitor provides hooks to observe a match as it runs.
// Hooks are called synchronously from the matching goroutine.
type Monitor interface {
	Start(targetID string, mode Mode)
	AfterTargetFetch(target *core.Record)
	// RelaxationLevel is called after each search; level counts from 1.
	RelaxationLevel(level int, criteria []core.Criterion, hits int)
	CandidateAccepted(candidate *core.ScoredCandidate)
	DuplicateSkipped(id string)
	AfterNeighborSearch(records int)
	Finish(results []*core.ScoredCandidate, err error)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string, _ Mode)                           {}
func (n *noopMonitor) AfterTargetFetch(_ *core.Record)                  {}
func (n *noopMonitor) RelaxationLevel(_ int, _ []core.Criterion, _ int) {}
func (n *noopMonitor) CandidateAccepted(_ *core.ScoredCandidate)        {}
func (n *noopMonitor) DuplicateSkipped(_ string)                        {}
func (n *noopMonitor) AfterNeighborSearch(_ int)                        {}
func (n *noopMonitor) Finish(_ []*core.ScoredCandidate, _ error)        {}
