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



package core

import (
	"fmt"
	"math"
)

// ValidateRecord validates a Record according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Attribute names must not be empty or collide with reserved fields
//   - Numeric attributes must be finite
//
// NOT validated:
//   - Description (may be empty for records that were never described)
//   - Vector (only present for indexes that store embeddings)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyID)
	}

	for name, v := range record.Attributes {
		if name == "" {
			return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyAttributeName)
		}
		if isReserved(name) {
			return fmt.Errorf("%w: %w: %s", ErrInvalidRecord, ErrReservedAttribute, name)
		}
		if f, ok := v.Float(); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return fmt.Errorf("%w: attribute %s is not a finite number", ErrInvalidRecord, name)
		}
	}

	return nil
}

// ValidateDescriptor validates an AttributeDescriptor.
func ValidateDescriptor(desc AttributeDescriptor) error {
	if desc.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDescriptor, ErrEmptyAttributeName)
	}
	if isReserved(desc.Name) {
		return fmt.Errorf("%w: %w: %s", ErrInvalidDescriptor, ErrReservedAttribute, desc.Name)
	}
	switch desc.Tier {
	case TierTop, TierBroad, TierExtended:
	default:
		return fmt.Errorf("%w: unknown tier %d for %s", ErrInvalidDescriptor, int(desc.Tier), desc.Name)
	}
	return nil
}

// ValidateSelection validates every descriptor and rejects duplicate names.
func ValidateSelection(descs []AttributeDescriptor) error {
	seen := make(map[string]struct{}, len(descs))
	for _, d := range descs {
		if err := ValidateDescriptor(d); err != nil {
			return err
		}
		if _, dup := seen[d.Name]; dup {
			return fmt.Errorf("%w: %w: %s", ErrInvalidDescriptor, ErrDuplicateAttribute, d.Name)
		}
		seen[d.Name] = struct{}{}
	}
	return nil
}

func isReserved(name string) bool {
	switch name {
	case IDField, DescriptionField, ScoreField, EmbeddingField:
		return true
	}
	return false
}
