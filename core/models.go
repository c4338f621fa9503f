package core

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/go-crypt/x/blake2b"
)

// Reserved record fields. Every other key of an indexed document is an attribute.
const (
	IDField          = "ID"
	DescriptionField = "description"
	ScoreField       = "_score"
)

// Kind identifies the payload type of a Value.
type Kind uint8

const (
	// KindNone marks an absent value.
	KindNone Kind = iota
	// KindString is a text value.
	KindString
	// KindNumber is a numeric value.
	KindNumber
)

// Value is a tagged scalar held by a Record attribute.
// The zero Value is absent.
type Value struct {
	kind Kind
	str  string
	num  float64
}

// String creates a text Value.
func String(s string) Value {
	return Value{kind: KindString, str: s}
}

// Number creates a numeric Value.
func Number(n float64) Value {
	return Value{kind: KindNumber, num: n}
}

// Kind returns the payload type.
func (v Value) Kind() Kind {
	return v.kind
}

// IsAbsent reports whether v carries no payload.
func (v Value) IsAbsent() bool {
	return v.kind == KindNone
}

// Text returns the string payload. ok is false for non-string values.
func (v Value) Text() (s string, ok bool) {
	return v.str, v.kind == KindString
}

// Float returns the numeric payload. ok is false for non-number values.
func (v Value) Float() (f float64, ok bool) {
	return v.num, v.kind == KindNumber
}

// Equal reports exact equality: same kind and same payload.
// No normalization is applied, so String("200") never equals Number(200).
// Two absent values are equal.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindNumber:
		return v.num == other.num
	default:
		return true
	}
}

// String renders the payload for display and query building.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON encodes the payload as a JSON string, number or null.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts strings, numbers and null. Booleans are kept as text.
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := valueFromAny(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func valueFromAny(raw any) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case bool:
		return String(strconv.FormatBool(t)), nil
	default:
		return Value{}, fmt.Errorf("%w: unsupported attribute type %T", ErrInvalidRecord, raw)
	}
}

// Record is an immutable snapshot of one chassis configuration returned by the index.
type Record struct {
	ID          string
	Description string
	Attributes  map[string]Value
	Vector      []float32 // Embedding, only populated by indexes that store one
}

// Get returns the value stored under name. Missing attributes return the
// absent Value and false. ID and description resolve to their dedicated fields.
func (r *Record) Get(name string) (Value, bool) {
	if r == nil {
		return Value{}, false
	}
	switch name {
	case IDField:
		return String(r.ID), r.ID != ""
	case DescriptionField:
		return String(r.Description), r.Description != ""
	}
	v, ok := r.Attributes[name]
	if !ok || v.IsAbsent() {
		return Value{}, false
	}
	return v, true
}

// AttributeNames returns the attribute keys in sorted order.
func (r *Record) AttributeNames() []string {
	return slices.Sorted(maps.Keys(r.Attributes))
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := &Record{
		ID:          r.ID,
		Description: r.Description,
		Attributes:  maps.Clone(r.Attributes),
		Vector:      slices.Clone(r.Vector),
	}
	return c
}

// MarshalJSON writes the record as one flat object, the shape the index stores.
func (r *Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.flatten())
}

func (r *Record) flatten() map[string]any {
	out := make(map[string]any, len(r.Attributes)+2)
	for name, v := range r.Attributes {
		out[name] = v
	}
	out[IDField] = r.ID
	out[DescriptionField] = r.Description
	return out
}

// UnmarshalJSON reads a flat index document. Nested objects and arrays are rejected,
// except for an "embedding" array which is decoded into Vector.
func (r *Record) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	rec, err := RecordFromDocument(doc)
	if err != nil {
		return err
	}
	*r = *rec
	return nil
}

// EmbeddingField is the document key holding a precomputed embedding.
const EmbeddingField = "embedding"

// RecordFromDocument builds a Record from a decoded index document.
func RecordFromDocument(doc map[string]json.RawMessage) (*Record, error) {
	rec := &Record{Attributes: make(map[string]Value, len(doc))}
	for key, raw := range doc {
		switch key {
		case IDField:
			if err := json.Unmarshal(raw, &rec.ID); err != nil {
				return nil, fmt.Errorf("%w: ID must be a string", ErrInvalidRecord)
			}
		case DescriptionField:
			var desc *string
			if err := json.Unmarshal(raw, &desc); err != nil {
				return nil, fmt.Errorf("%w: description must be a string", ErrInvalidRecord)
			}
			if desc != nil {
				rec.Description = *desc
			}
		case EmbeddingField:
			if err := json.Unmarshal(raw, &rec.Vector); err != nil {
				return nil, fmt.Errorf("%w: embedding must be a number array", ErrInvalidRecord)
			}
		case ScoreField:
			// Search engine metadata, never an attribute.
		default:
			var v Value
			if err := json.Unmarshal(raw, &v); err != nil {
				return nil, fmt.Errorf("%w: attribute %s: %w", ErrInvalidRecord, key, err)
			}
			if !v.IsAbsent() {
				rec.Attributes[key] = v
			}
		}
	}
	return rec, nil
}

// Tier classifies a catalog attribute by discriminating strength.
type Tier int

const (
	// TierTop holds the most specific chassis layout attributes.
	TierTop Tier = iota + 1
	// TierBroad holds coarse classification attributes.
	TierBroad
	// TierExtended holds attributes only offered for extended searches.
	TierExtended
)

// String returns the lowercase tier name.
func (t Tier) String() string {
	switch t {
	case TierTop:
		return "top"
	case TierBroad:
		return "broad"
	case TierExtended:
		return "extended"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// ParseTier converts a tier name back into a Tier.
func ParseTier(s string) (Tier, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "top":
		return TierTop, nil
	case "broad":
		return TierBroad, nil
	case "extended":
		return TierExtended, nil
	default:
		return 0, fmt.Errorf("%w: unknown tier %q", ErrInvalidDescriptor, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t Tier) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *Tier) UnmarshalText(text []byte) error {
	parsed, err := ParseTier(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// AttributeDescriptor names one comparison attribute.
// Mandatory only matters for caller-supplied selections.
type AttributeDescriptor struct {
	Name      string `json:"name"`
	Tier      Tier   `json:"type"`
	Mandatory bool   `json:"mandatory"`
}

// Criterion is one equality constraint derived from a descriptor and the target's value.
type Criterion struct {
	Attribute string
	Value     Value
	Removable bool
}

// Clause renders the canonical equality clause, e.g. dealer: 'X'.
// Quotes and backslashes inside the value are escaped.
func (c Criterion) Clause() string {
	escaped := strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(c.Value.String())
	return c.Attribute + ": '" + escaped + "'"
}

// ScoredCandidate is a record ranked against a target.
type ScoredCandidate struct {
	Record *Record
	Score  float64 // Fraction of scoring attributes equal to the target, in [0,1]
}

// MarshalJSON writes the flat record with the score under "_score".
func (c *ScoredCandidate) MarshalJSON() ([]byte, error) {
	out := c.Record.flatten()
	out[ScoreField] = c.Score
	return json.Marshal(out)
}

// Fingerprint returns a deterministic hex digest of an ordered criteria list
// using 64-bit BLAKE2b. Identical queries produce identical fingerprints.
// The value kind is hashed, so String("200") and Number(200) differ.
func Fingerprint(criteria []Criterion) string {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	for _, c := range criteria {
		h.Write([]byte(c.Attribute))
		h.Write([]byte{0, byte(c.Value.Kind())})
		h.Write([]byte(c.Value.String()))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
