package filter

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/cohortdash/internal/cohort"
)

// All is the option shown for "no filter" on a facet.
const All = "All"

// Selection maps facets to the exact value a record must carry. A facet
// absent from the map imposes no constraint. Inside a Selection the literal
// "All" is an ordinary value; the sentinel only exists at input boundaries.
type Selection map[Facet]string

// Active returns the constrained facets in display order.
func (s Selection) Active() []Facet {
	out := make([]Facet, 0, len(s))
	for _, f := range Facets {
		if _, ok := s[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// With returns a copy of s with f set to v.
func (s Selection) With(f Facet, v string) Selection {
	out := make(Selection, len(s)+1)
	for k, val := range s {
		out[k] = val
	}
	out[f] = v
	return out
}

// Strings renders the selection keyed by facet key.
func (s Selection) Strings() map[string]string {
	out := make(map[string]string, len(s))
	for f, v := range s {
		out[f.Key()] = v
	}
	return out
}

// Describe renders "Sex=Male, Diagnosis=PD", or "none".
func (s Selection) Describe() string {
	act := s.Active()
	if len(act) == 0 {
		return "none"
	}
	parts := make([]string, len(act))
	for i, f := range act {
		parts[i] = fmt.Sprintf("%s=%s", f.Label(), s[f])
	}
	return strings.Join(parts, ", ")
}

// ParseSelection converts boundary input keyed by facet name. Empty values
// and the "All" sentinel leave the facet unconstrained.
func ParseSelection(in map[string]string) (Selection, error) {
	sel := Selection{}
	keys := make([]string, 0, len(in))
	for k := range in {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	seen := make(map[Facet]string, len(keys))
	for _, k := range keys {
		f, err := ParseFacet(k)
		if err != nil {
			return nil, err
		}
		if prev, ok := seen[f]; ok {
			return nil, fmt.Errorf("%w: %q and %q both select %s", ErrDuplicateFacet, prev, k, f.Label())
		}
		seen[f] = k
		v := strings.TrimSpace(in[k])
		if v == "" || v == All {
			continue
		}
		sel[f] = v
	}
	return sel, nil
}

// Apply returns the records of view that match every facet in sel.
// A missing cell never matches. The result does not depend on the order in
// which facets are checked.
func Apply(view cohort.View, sel Selection) cohort.View {
	if len(sel) == 0 {
		return view
	}
	type pred struct {
		f Facet
		v string
	}
	preds := make([]pred, 0, len(sel))
	for _, f := range sel.Active() {
		preds = append(preds, pred{f, sel[f]})
	}
	return view.Subset(func(r cohort.Record) bool {
		for _, p := range preds {
			if !p.f.Value(r).Is(p.v) {
				return false
			}
		}
		return true
	})
}
