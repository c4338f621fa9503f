package match

import (
	"cmp"
	"slices"

	"github.com/poiesic/chassismatch/core"
)

// Score returns the fraction of names on which a and b hold exactly equal
// values. An attribute missing from both records counts as equal.
// An empty name set scores 0.
func Score(a, b *core.Record, names []string) float64 {
	if len(names) == 0 {
		return 0
	}
	matches := 0
	for _, name := range names {
		va, _ := a.Get(name)
		vb, _ := b.Get(name)
		if va.Equal(vb) {
			matches++
		}
	}
	return float64(matches) / float64(len(names))
}

// accumulator collects scored candidates, dropping the target and any ID
// already accepted.
type accumulator struct {
	targetID   string
	names      []string
	target     *core.Record
	seen       map[string]struct{}
	candidates []*core.ScoredCandidate
	monitor    Monitor
}

func newAccumulator(target *core.Record, names []string, monitor Monitor) *accumulator {
	return &accumulator{
		targetID: target.ID,
		names:    names,
		target:   target,
		seen:     make(map[string]struct{}),
		monitor:  monitor,
	}
}

func (a *accumulator) offer(rec *core.Record) {
	if rec == nil || rec.ID == a.targetID {
		return
	}
	if _, dup := a.seen[rec.ID]; dup {
		a.monitor.DuplicateSkipped(rec.ID)
		return
	}
	a.seen[rec.ID] = struct{}{}
	c := &core.ScoredCandidate{Record: rec, Score: Score(rec, a.target, a.names)}
	a.candidates = append(a.candidates, c)
	a.monitor.CandidateAccepted(c)
}

func (a *accumulator) len() int {
	return len(a.candidates)
}

// ranked sorts by score descending, keeping discovery order among ties,
// and truncates to count.
func (a *accumulator) ranked(count int) []*core.ScoredCandidate {
	out := slices.Clone(a.candidates)
	slices.SortStableFunc(out, func(x, y *core.ScoredCandidate) int {
		return cmp.Compare(y.Score, x.Score)
	})
	if len(out) > count {
		out = out[:count]
	}
	return out
}
