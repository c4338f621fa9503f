package index

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/poiesic/chassismatch/core"
)

var fieldPattern = regexp.MustCompile(`^[A-Za-z0-9_.]+$`)

var phraseEscaper = strings.NewReplacer(`\`, `\\`, `"`, `\"`)

// Clause renders one criterion as a Lucene query-string term,
// field:"value". The value is always quoted so reserved operators inside
// it are taken literally.
func Clause(c core.Criterion) (string, error) {
	if !fieldPattern.MatchString(c.Attribute) {
		return "", fmt.Errorf("%w: field name %q", ErrInvalidQuery, c.Attribute)
	}
	if c.Value.IsAbsent() {
		return "", fmt.Errorf("%w: field %s has no value", ErrInvalidQuery, c.Attribute)
	}
	return c.Attribute + `:"` + phraseEscaper.Replace(c.Value.String()) + `"`, nil
}

// Compose joins the clauses of every criterion with AND.
// An empty criteria list composes to the match-all query "*".
func Compose(criteria []core.Criterion) (string, error) {
	if len(criteria) == 0 {
		return "*", nil
	}
	clauses := make([]string, len(criteria))
	for i, c := range criteria {
		clause, err := Clause(c)
		if err != nil {
			return "", err
		}
		clauses[i] = clause
	}
	return strings.Join(clauses, " AND "), nil
}

// Matches reports whether rec satisfies every criterion by exact equality.
// In-process adapters use it in place of a query engine.
func Matches(rec *core.Record, criteria []core.Criterion) bool {
	for _, c := range criteria {
		v, ok := rec.Get(c.Attribute)
		if !ok || !v.Equal(c.Value) {
			return false
		}
	}
	return true
}
