package match

import (
	"github.com/poiesic/chassismatch/core"
)

// buildCriteria derives one criterion per selected attribute from the
// target's values: mandatory first, then removable in catalog order.
// Attributes the target lacks yield no criterion; they still count in
// the scoring set.
func buildCriteria(target *core.Record, sel Selection) (criteria []core.Criterion, missing []string) {
	add := func(descs []core.AttributeDescriptor, removable bool) {
		for _, d := range descs {
			v, ok := target.Get(d.Name)
			if !ok {
				missing = append(missing, d.Name)
				continue
			}
			criteria = append(criteria, core.Criterion{Attribute: d.Name, Value: v, Removable: removable})
		}
	}
	add(sel.mandatory, false)
	add(sel.removable, true)
	return criteria, missing
}

// dropFirstRemovable returns a new slice without the earliest removable
// criterion. ok is false when only mandatory criteria remain.
func dropFirstRemovable(criteria []core.Criterion) (next []core.Criterion, ok bool) {
	for i, c := range criteria {
		if c.Removable {
			next = make([]core.Criterion, 0, len(criteria)-1)
			next = append(next, criteria[:i]...)
			next = append(next, criteria[i+1:]...)
			return next, true
		}
	}
	return nil, false
}

func clauses(criteria []core.Criterion) []string {
	out := make([]string, len(criteria))
	for i, c := range criteria {
		out[i] = c.Clause()
	}
	return out
}
