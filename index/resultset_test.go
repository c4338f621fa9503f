package index

import (
	"errors"
	"testing"

	"github.com/poiesic/chassismatch/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultSet_CountWithoutConsuming(t *testing.T) {
	produced := 0
	rs := NewResultSet(3, func(yield func(*core.Record, error) bool) {
		for _, id := range []string{"a", "b", "c"} {
			produced++
			if !yield(&core.Record{ID: id}, nil) {
				return
			}
		}
	})

	assert.Equal(t, 3, rs.Count())
	assert.Equal(t, 0, produced, "count must not pull records")

	recs, err := rs.Collect()
	require.NoError(t, err)
	assert.Len(t, recs, 3)
}

func TestResultSet_SinglePass(t *testing.T) {
	rs := FromRecords([]*core.Record{{ID: "a"}, {ID: "b"}})

	first := 0
	for range rs.All() {
		first++
	}
	assert.Equal(t, 2, first)
	require.NoError(t, rs.Err())

	second := 0
	for range rs.All() {
		second++
	}
	assert.Equal(t, 0, second)
	assert.ErrorIs(t, rs.Err(), ErrCursorConsumed)
}

func TestResultSet_ProducerError(t *testing.T) {
	pageErr := errors.New("page 2 failed")
	rs := NewResultSet(10, func(yield func(*core.Record, error) bool) {
		if !yield(&core.Record{ID: "a"}, nil) {
			return
		}
		yield(nil, pageErr)
	})

	recs, err := rs.Collect()
	assert.ErrorIs(t, err, pageErr)
	assert.Len(t, recs, 1)
}

func TestResultSet_EarlyBreak(t *testing.T) {
	rs := FromRecords([]*core.Record{{ID: "a"}, {ID: "b"}, {ID: "c"}})
	for rec := range rs.All() {
		assert.Equal(t, "a", rec.ID)
		break
	}
	assert.NoError(t, rs.Err())
}
