package metrics

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/chassismatch/core"
	"github.com/poiesic/chassismatch/index/badger"
	"github.com/poiesic/chassismatch/match"
)

func chassis(id, dealer, sleeper string) *core.Record {
	return &core.Record{
		ID:          id,
		Description: "chassis " + id,
		Attributes: map[string]core.Value{
			"dealer":  core.String(dealer),
			"sleeper": core.String(sleeper),
		},
	}
}

func setupMatcher(t *testing.T) *match.Matcher {
	t.Helper()
	g, err := badger.NewMemoryGateway([]*core.Record{
		chassis("T", "X", "72in"),
		chassis("A", "X", "72in"),
		chassis("B", "Y", "72in"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { g.Close() })

	m, err := match.NewMatcher(g)
	require.NoError(t, err)
	return m
}

func TestOutcome(t *testing.T) {
	one := []*core.ScoredCandidate{{Record: &core.Record{ID: "A"}}}
	tests := []struct {
		name    string
		results []*core.ScoredCandidate
		err     error
		want    string
	}{
		{"ok", one, nil, OutcomeOK},
		{"empty", nil, nil, OutcomeEmpty},
		{"not found", nil, fmt.Errorf("%w: T", core.ErrNotFound), OutcomeNotFound},
		{"ambiguous", nil, core.ErrAmbiguousResult, OutcomeAmbiguous},
		{"unavailable", nil, core.ErrIndexUnavailable, OutcomeUnavailable},
		{"other", nil, context.Canceled, OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Outcome(tt.results, tt.err))
		})
	}
}

func TestCollector_RecordsRelaxation(t *testing.T) {
	c := NewCollector()
	m := setupMatcher(t)
	sel := match.CustomSelection(
		core.AttributeDescriptor{Name: "dealer", Tier: core.TierTop},
		core.AttributeDescriptor{Name: "sleeper", Tier: core.TierBroad},
	)

	got, err := m.FindSimilarWithMonitor(context.Background(), "T", 5, sel, c.NewMonitor())
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.matches.WithLabelValues("relaxation", OutcomeOK)))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.candidates.WithLabelValues("accepted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.candidates.WithLabelValues("duplicate")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
	assert.Equal(t, 1, testutil.CollectAndCount(c.duration))
}

func TestCollector_RecordsFailures(t *testing.T) {
	c := NewCollector()
	m := setupMatcher(t)

	_, err := m.FindSimilarWithMonitor(context.Background(), "missing", 5, match.Selection{}, c.NewMonitor())
	require.ErrorIs(t, err, core.ErrNotFound)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.matches.WithLabelValues("relaxation", OutcomeNotFound)))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.inFlight))
}

func TestCollector_WriteTextfile(t *testing.T) {
	c := NewCollector()
	m := setupMatcher(t)
	_, err := m.FindSimilarWithMonitor(context.Background(), "T", 1, match.Selection{}, c.NewMonitor())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "match.prom")
	require.NoError(t, c.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `chassismatch_matches_total{mode="relaxation",outcome="ok"} 1`), text)
	assert.Contains(t, text, "chassismatch_relaxation_levels_count 1")
}
