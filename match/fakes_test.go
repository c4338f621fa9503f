package match

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index"
)

// rec builds a record from alternating name/value pairs. Strings become
// text values, ints and float64s numbers.
func rec(id string, kv ...any) *core.Record {
	r := &core.Record{ID: id, Description: "chassis " + id, Attributes: map[string]core.Value{}}
	for i := 0; i+1 < len(kv); i += 2 {
		name := kv[i].(string)
		switch v := kv[i+1].(type) {
		case string:
			r.Attributes[name] = core.String(v)
		case int:
			r.Attributes[name] = core.Number(float64(v))
		case float64:
			r.Attributes[name] = core.Number(v)
		default:
			panic(fmt.Sprintf("unsupported value %T", v))
		}
	}
	return r
}

func removable(names ...string) []core.AttributeDescriptor {
	out := make([]core.AttributeDescriptor, len(names))
	for i, n := range names {
		out[i] = core.AttributeDescriptor{Name: n, Tier: core.TierTop}
	}
	return out
}

func mandatory(names ...string) []core.AttributeDescriptor {
	out := removable(names...)
	for i := range out {
		out[i].Mandatory = true
	}
	return out
}

// fakeGateway serves a fixed target and scripted search results, and
// records every criteria list it receives.
type fakeGateway struct {
	target   *core.Record
	fetchErr error

	// search returns the hits for one call; nil means no hits.
	search func(call int, criteria []core.Criterion) ([]*core.Record, error)

	mu    sync.Mutex
	calls [][]core.Criterion
}

var _ index.Gateway = (*fakeGateway)(nil)

func (f *fakeGateway) FetchByID(_ context.Context, id string) (*core.Record, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	if f.target == nil || f.target.ID != id {
		return nil, nil
	}
	return f.target, nil
}

func (f *fakeGateway) SearchAll(_ context.Context, criteria []core.Criterion) (*index.ResultSet, error) {
	f.mu.Lock()
	call := len(f.calls)
	f.calls = append(f.calls, slices.Clone(criteria))
	f.mu.Unlock()

	if f.search == nil {
		return index.FromRecords(nil), nil
	}
	recs, err := f.search(call, criteria)
	if err != nil {
		return nil, err
	}
	return index.FromRecords(recs), nil
}

func (f *fakeGateway) Close() error { return nil }

func (f *fakeGateway) searchCalls() [][]core.Criterion {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

// neighborGateway adds a scripted nearest-neighbour query.
type neighborGateway struct {
	fakeGateway
	neighbors []*core.Record
	gotSource string
	gotK      int
}

var _ index.NeighborSearcher = (*neighborGateway)(nil)

func (n *neighborGateway) NearestNeighbors(_ context.Context, source string, k int) ([]*core.Record, error) {
	n.gotSource = source
	n.gotK = k
	return n.neighbors, nil
}

// recordingMonitor captures monitor callbacks.
type recordingMonitor struct {
	started    []string
	levels     []int
	hits       []int
	accepted   []string
	duplicates []string
	neighbors  int
	finished   int
	finishErr  error
}

var _ Monitor = (*recordingMonitor)(nil)

func (r *recordingMonitor) Start(targetID string, _ Mode)   { r.started = append(r.started, targetID) }
func (r *recordingMonitor) AfterTargetFetch(_ *core.Record) {}
func (r *recordingMonitor) AfterNeighborSearch(records int) { r.neighbors = records }
func (r *recordingMonitor) DuplicateSkipped(id string)      { r.duplicates = append(r.duplicates, id) }

func (r *recordingMonitor) CandidateAccepted(c *core.ScoredCandidate) {
	r.accepted = append(r.accepted, c.Record.ID)
}

func (r *recordingMonitor) RelaxationLevel(level int, _ []core.Criterion, hits int) {
	r.levels = append(r.levels, level)
	r.hits = append(r.hits, hits)
}

func (r *recordingMonitor) Finish(_ []*core.ScoredCandidate, err error) {
	r.finished++
	r.finishErr = err
}

func ids(cands []*core.ScoredCandidate) []string {
	out := make([]string, len(cands))
	for i, c := range cands {
		out[i] = c.Record.ID
	}
	return out
}
