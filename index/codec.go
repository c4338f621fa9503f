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
	"fmt"
	"maps"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/chassismatch/core"
)

// Binary layout of a record:
//
//	ID, Description     string
//	attribute count     varint
//	  name              string
//	  kind              varint
//	  payload           string | float64 (absent: none)
//	vector length       varint
//	  component         float32

// MarshalRecord serializes a Record to bytes.
func MarshalRecord(rec *core.Record) []byte {
	buf := make([]byte, recordSize(rec))
	marshalRecord(rec, buf)
	return buf
}

// UnmarshalRecord deserializes a Record from bytes.
func UnmarshalRecord(data []byte) (*core.Record, error) {
	rec, _, err := unmarshalRecord(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	return rec, nil
}

// MarshalRecords serializes a record list, preserving order.
func MarshalRecords(recs []*core.Record) []byte {
	size := varint.Int.Size(len(recs))
	for _, rec := range recs {
		size += recordSize(rec)
	}
	buf := make([]byte, size)
	n := varint.Int.Marshal(len(recs), buf)
	for _, rec := range recs {
		n += marshalRecord(rec, buf[n:])
	}
	return buf
}

// UnmarshalRecords deserializes a record list written by MarshalRecords.
func UnmarshalRecords(data []byte) ([]*core.Record, error) {
	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
	}
	if count < 0 || count > len(data) {
		return nil, fmt.Errorf("%w: record count %d out of range", ErrSerializationFailed, count)
	}
	recs := make([]*core.Record, 0, count)
	for range count {
		rec, m, err := unmarshalRecord(data[n:])
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSerializationFailed, err)
		}
		n += m
		recs = append(recs, rec)
	}
	return recs, nil
}

func recordSize(rec *core.Record) int {
	size := ord.String.Size(rec.ID) + ord.String.Size(rec.Description)
	size += varint.Int.Size(len(rec.Attributes))
	for name, v := range rec.Attributes {
		size += ord.String.Size(name) + valueSize(v)
	}
	size += varint.Int.Size(len(rec.Vector))
	for _, f := range rec.Vector {
		size += raw.Float32.Size(f)
	}
	return size
}

func marshalRecord(rec *core.Record, bs []byte) int {
	n := ord.String.Marshal(rec.ID, bs)
	n += ord.String.Marshal(rec.Description, bs[n:])
	n += varint.Int.Marshal(len(rec.Attributes), bs[n:])
	// Sorted so equal records encode to equal bytes.
	for _, name := range slices.Sorted(maps.Keys(rec.Attributes)) {
		n += ord.String.Marshal(name, bs[n:])
		n += marshalValue(rec.Attributes[name], bs[n:])
	}
	n += varint.Int.Marshal(len(rec.Vector), bs[n:])
	for _, f := range rec.Vector {
		n += raw.Float32.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalRecord(bs []byte) (*core.Record, int, error) {
	rec := &core.Record{}
	var (
		n, m int
		err  error
	)
	if rec.ID, m, err = ord.String.Unmarshal(bs); err != nil {
		return nil, 0, err
	}
	n += m
	if rec.Description, m, err = ord.String.Unmarshal(bs[n:]); err != nil {
		return nil, 0, err
	}
	n += m

	attrCount, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, 0, err
	}
	n += m
	if attrCount < 0 || attrCount > len(bs) {
		return nil, 0, fmt.Errorf("attribute count %d out of range", attrCount)
	}
	rec.Attributes = make(map[string]core.Value, attrCount)
	for range attrCount {
		name, m, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return nil, 0, err
		}
		n += m
		v, m, err := unmarshalValue(bs[n:])
		if err != nil {
			return nil, 0, err
		}
		n += m
		if !v.IsAbsent() {
			rec.Attributes[name] = v
		}
	}

	vecLen, m, err := varint.Int.Unmarshal(bs[n:])
	if err != nil {
		return nil, 0, err
	}
	n += m
	if vecLen < 0 || vecLen > len(bs) {
		return nil, 0, fmt.Errorf("vector length %d out of range", vecLen)
	}
	if vecLen > 0 {
		rec.Vector = make([]float32, vecLen)
		for i := range rec.Vector {
			if rec.Vector[i], m, err = raw.Float32.Unmarshal(bs[n:]); err != nil {
				return nil, 0, err
			}
			n += m
		}
	}
	return rec, n, nil
}

func valueSize(v core.Value) int {
	size := varint.Int.Size(int(v.Kind()))
	switch v.Kind() {
	case core.KindString:
		s, _ := v.Text()
		size += ord.String.Size(s)
	case core.KindNumber:
		f, _ := v.Float()
		size += raw.Float64.Size(f)
	}
	return size
}

func marshalValue(v core.Value, bs []byte) int {
	n := varint.Int.Marshal(int(v.Kind()), bs)
	switch v.Kind() {
	case core.KindString:
		s, _ := v.Text()
		n += ord.String.Marshal(s, bs[n:])
	case core.KindNumber:
		f, _ := v.Float()
		n += raw.Float64.Marshal(f, bs[n:])
	}
	return n
}

func unmarshalValue(bs []byte) (core.Value, int, error) {
	kind, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return core.Value{}, 0, err
	}
	switch core.Kind(kind) {
	case core.KindNone:
		return core.Value{}, n, nil
	case core.KindString:
		s, m, err := ord.String.Unmarshal(bs[n:])
		if err != nil {
			return core.Value{}, 0, err
		}
		return core.String(s), n + m, nil
	case core.KindNumber:
		f, m, err := raw.Float64.Unmarshal(bs[n:])
		if err != nil {
			return core.Value{}, 0, err
		}
		return core.Number(f), n + m, nil
	default:
		return core.Value{}, 0, fmt.Errorf("unknown value kind %d", kind)
	}
}
