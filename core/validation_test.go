package core

import (
	"errors"
	"math"
	"testing"
)

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  *Record
		wantErr error
	}{
		{
			name: "valid record",
			record: &Record{
				ID:          "C-1",
				Description: "day cab tractor",
				Attributes:  map[string]Value{"dealer": String("X"), "wheelbase": Number(200)},
			},
		},
		{
			name:   "valid record without description",
			record: &Record{ID: "C-2"},
		},
		{
			name:    "nil record",
			record:  nil,
			wantErr: ErrInvalidRecord,
		},
		{
			name:    "empty ID",
			record:  &Record{Description: "x"},
			wantErr: ErrEmptyID,
		},
		{
			name:    "empty attribute name",
			record:  &Record{ID: "C-3", Attributes: map[string]Value{"": String("x")}},
			wantErr: ErrEmptyAttributeName,
		},
		{
			name:    "reserved attribute name",
			record:  &Record{ID: "C-4", Attributes: map[string]Value{ScoreField: Number(1)}},
			wantErr: ErrReservedAttribute,
		},
		{
			name:    "non-finite number",
			record:  &Record{ID: "C-5", Attributes: map[string]Value{"wheelbase": Number(math.Inf(1))}},
			wantErr: ErrInvalidRecord,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateRecord() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
			if !errors.Is(err, ErrInvalidRecord) {
				t.Errorf("ValidateRecord() error = %v, should wrap ErrInvalidRecord", err)
			}
		})
	}
}

func TestValidateDescriptor(t *testing.T) {
	tests := []struct {
		name    string
		desc    AttributeDescriptor
		wantErr error
	}{
		{name: "valid top", desc: AttributeDescriptor{Name: "dealer", Tier: TierTop}},
		{name: "valid mandatory", desc: AttributeDescriptor{Name: "unit_type", Tier: TierBroad, Mandatory: true}},
		{name: "empty name", desc: AttributeDescriptor{Tier: TierTop}, wantErr: ErrEmptyAttributeName},
		{name: "reserved", desc: AttributeDescriptor{Name: IDField, Tier: TierTop}, wantErr: ErrReservedAttribute},
		{name: "zero tier", desc: AttributeDescriptor{Name: "dealer"}, wantErr: ErrInvalidDescriptor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDescriptor(tt.desc)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateDescriptor() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateDescriptor() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateSelection(t *testing.T) {
	t.Run("distinct names", func(t *testing.T) {
		err := ValidateSelection([]AttributeDescriptor{
			{Name: "dealer", Tier: TierTop},
			{Name: "sleeper", Tier: TierBroad},
		})
		if err != nil {
			t.Errorf("ValidateSelection() error = %v, want nil", err)
		}
	})

	t.Run("duplicate name", func(t *testing.T) {
		err := ValidateSelection([]AttributeDescriptor{
			{Name: "dealer", Tier: TierTop},
			{Name: "dealer", Tier: TierTop, Mandatory: true},
		})
		if !errors.Is(err, ErrDuplicateAttribute) {
			t.Errorf("ValidateSelection() error = %v, want %v", err, ErrDuplicateAttribute)
		}
	})
}
