package match

import (
	"slices"

	"github.com/poiesic/chassismatch/catalog"
	"github.com/poiesic/chassismatch/core"
)

// Selection is the ordered set of attributes a query compares, split into
// mandatory attributes (never relaxed) and removable ones (relaxed in order).
// The zero Selection behaves like DefaultSelection.
type Selection struct {
	mandatory []core.AttributeDescriptor
	removable []core.AttributeDescriptor
}

// DefaultSelection compares the default catalog with every attribute removable.
func DefaultSelection() Selection {
	return Selection{removable: catalog.DefaultKeys()}
}

// ExtendedSelection compares the extended catalog with every attribute removable.
func ExtendedSelection() Selection {
	return Selection{removable: catalog.ExtendedKeys()}
}

// CustomSelection splits descs by their Mandatory flag, keeping the given
// order within each group. An empty list yields DefaultSelection.
func CustomSelection(descs ...core.AttributeDescriptor) Selection {
	if len(descs) == 0 {
		return DefaultSelection()
	}
	var s Selection
	for _, d := range descs {
		if d.Mandatory {
			s.mandatory = append(s.mandatory, d)
		} else {
			s.removable = append(s.removable, d)
		}
	}
	return s
}

// IsZero reports whether the selection names no attribute.
func (s Selection) IsZero() bool {
	return len(s.mandatory) == 0 && len(s.removable) == 0
}

// Mandatory returns a copy of the mandatory attributes.
func (s Selection) Mandatory() []core.AttributeDescriptor {
	return slices.Clone(s.mandatory)
}

// Removable returns a copy of the removable attributes in relaxation order.
func (s Selection) Removable() []core.AttributeDescriptor {
	return slices.Clone(s.removable)
}

// ScoringNames returns the fixed scoring set: mandatory names followed by
// removable names.
func (s Selection) ScoringNames() []string {
	names := make([]string, 0, len(s.mandatory)+len(s.removable))
	for _, d := range s.mandatory {
		names = append(names, d.Name)
	}
	for _, d := range s.removable {
		names = append(names, d.Name)
	}
	return names
}

// Validate checks every descriptor and rejects duplicate names.
func (s Selection) Validate() error {
	return core.ValidateSelection(slices.Concat(s.mandatory, s.removable))
}

func (s Selection) orDefault() Selection {
	if s.IsZero() {
		return DefaultSelection()
	}
	return s
}
