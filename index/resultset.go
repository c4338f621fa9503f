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


package index

import (
	"iter"
	"sync"

	"github.com/poiesic/chassismatch/core"
)

// ResultSet is a finite, single-pass sequence of records with a known
// total hit count. Paged adapters fetch lazily while the sequence is
// iterated; failures during iteration are reported by Err.
type ResultSet struct {
	count int
	seq   iter.Seq2[*core.Record, error]

	mu       sync.Mutex
	consumed bool
	err      error
}

// NewResultSet wraps a record producer. count is the total number of hits
// the index reported and may exceed what seq yields when the index caps
// result windows.
func NewResultSet(count int, seq iter.Seq2[*core.Record, error]) *ResultSet {
	return &ResultSet{count: count, seq: seq}
}

// FromRecords builds a ResultSet over an in-memory slice.
func FromRecords(records []*core.Record) *ResultSet {
	return NewResultSet(len(records), func(yield func(*core.Record, error) bool) {
		for _, r := range records {
			if !yield(r, nil) {
				return
			}
		}
	})
}

// Count returns the total hit count without consuming the sequence.
func (rs *ResultSet) Count() int {
	return rs.count
}

// All returns the records. The sequence can be ranged over once; a second
// call yields nothing and sets Err to ErrCursorConsumed. Iteration stops at
// the first producer error, which is then available from Err.
func (rs *ResultSet) All() iter.Seq[*core.Record] {
	return func(yield func(*core.Record) bool) {
		rs.mu.Lock()
		if rs.consumed {
			rs.err = ErrCursorConsumed
			rs.mu.Unlock()
			return
		}
		rs.consumed = true
		rs.mu.Unlock()

		if rs.seq == nil {
			return
		}
		for rec, err := range rs.seq {
			if err != nil {
				rs.mu.Lock()
				rs.err = err
				rs.mu.Unlock()
				return
			}
			if !yield(rec) {
				return
			}
		}
	}
}

// Collect drains the result set into a slice.
func (rs *ResultSet) Collect() ([]*core.Record, error) {
	out := make([]*core.Record, 0, rs.count)
	for rec := range rs.All() {
		out = append(out, rec)
	}
	return out, rs.Err()
}

// Err returns the error that ended iteration early, if any.
func (rs *ResultSet) Err() error {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.err
}
