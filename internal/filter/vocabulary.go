package filter

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/cohortdash/internal/cohort"
)

// Vocabulary holds the distinct non-missing values of each facet, in
// natural ascending order.
type Vocabulary map[Facet][]string

// Vocabularies scans the dataset once and collects every facet's values.
func Vocabularies(ds *cohort.Dataset) Vocabulary {
	seen := make(map[Facet]map[string]struct{}, len(Facets))
	for _, f := range Facets {
		seen[f] = map[string]struct{}{}
	}
	for i := 0; i < ds.Len(); i++ {
		r := ds.Record(i)
		for _, f := range Facets {
			if t := f.Value(r); t.Valid {
				seen[f][t.Value] = struct{}{}
			}
		}
	}
	voc := make(Vocabulary, len(Facets))
	for f, set := range seen {
		vals := make([]string, 0, len(set))
		for v := range set {
			vals = append(vals, v)
		}
		cohort.SortNatural(vals)
		voc[f] = vals
	}
	return voc
}

// Options returns the dropdown choices for f: "All" followed by the values.
func (v Vocabulary) Options(f Facet) []string {
	return append([]string{All}, v[f]...)
}

// Contains reports whether val was observed for f.
func (v Vocabulary) Contains(f Facet, val string) bool {
	for _, x := range v[f] {
		if x == val {
			return true
		}
	}
	return false
}

// Ambiguous lists facets whose data contains the literal "All", which the
// boundary input cannot tell apart from "no filter".
func (v Vocabulary) Ambiguous() []Facet {
	var out []Facet
	for _, f := range Facets {
		if v.Contains(f, All) {
			out = append(out, f)
		}
	}
	return out
}

// SelectionError reports a value outside a facet's vocabulary.
type SelectionError struct {
	Facet   Facet
	Value   string
	Allowed []string
}

func (e *SelectionError) Error() string {
	const show = 12
	allowed := e.Allowed
	more := ""
	if len(allowed) > show {
		more = fmt.Sprintf(", ... (%d more)", len(allowed)-show)
		allowed = allowed[:show]
	}
	return fmt.Sprintf("invalid %s %q (allowed: %s%s)", e.Facet.Label(), e.Value, strings.Join(allowed, ", "), more)
}

// Validate checks every selected value against the vocabulary.
func (v Vocabulary) Validate(sel Selection) error {
	for _, f := range sel.Active() {
		if !v.Contains(f, sel[f]) {
			return &SelectionError{Facet: f, Value: sel[f], Allowed: v.Options(f)}
		}
	}
	return nil
}
