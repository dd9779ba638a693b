// Package filter narrows a cohort dataset by facet equality predicates.
package filter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/KaramelBytes/cohortdash/internal/cohort"
)

// Facet is a categorical column offered as a single-select filter.
type Facet int

const (
	Sex Facet = iota
	Race
	AgeBin
	DiseaseStatus
	GeneticStatus
	Diagnosis
	CaseControl
	Month
	DrugCategory
)

// Facets lists every facet in display order.
var Facets = []Facet{Sex, Race, AgeBin, DiseaseStatus, GeneticStatus, Diagnosis, CaseControl, Month, DrugCategory}

type facetInfo struct {
	key    string
	label  string
	column string
	value  func(cohort.Record) cohort.Text
}

var facetTable = [...]facetInfo{
	Sex:           {"sex", "Sex", cohort.ColSex, func(r cohort.Record) cohort.Text { return r.Sex }},
	Race:          {"race", "Race", cohort.ColRace, func(r cohort.Record) cohort.Text { return r.Race }},
	AgeBin:        {"age_bin", "Age Bin", cohort.ColAgeBin, func(r cohort.Record) cohort.Text { return r.AgeBin }},
	DiseaseStatus: {"disease_status", "Disease Status", cohort.ColDiseaseStatus, func(r cohort.Record) cohort.Text { return r.DiseaseStatus }},
	GeneticStatus: {"genetic_status", "Genetic Status", cohort.ColGeneticStatus, func(r cohort.Record) cohort.Text { return r.GeneticStatus }},
	Diagnosis:     {"diagnosis", "Diagnosis", cohort.ColDiagnosis, func(r cohort.Record) cohort.Text { return r.Diagnosis }},
	CaseControl:   {"case_control", "Case Control", cohort.ColCaseControl, func(r cohort.Record) cohort.Text { return r.CaseControl }},
	Month:         {"month", "Month", cohort.ColMonth, func(r cohort.Record) cohort.Text { return r.Month }},
	DrugCategory:  {"drug_category", "Drug Category", cohort.ColDrugCategory, func(r cohort.Record) cohort.Text { return r.DrugCategory }},
}

// Key is the machine name used in flags, query strings and presets.
func (f Facet) Key() string { return facetTable[f].key }

// Label is the human-readable name.
func (f Facet) Label() string { return facetTable[f].label }

// Column is the bound header name in the cohort file.
func (f Facet) Column() string { return facetTable[f].column }

// Value extracts the facet's cell from r.
func (f Facet) Value(r cohort.Record) cohort.Text { return facetTable[f].value(r) }

func (f Facet) String() string { return f.Key() }

// MarshalText encodes the facet as its key.
func (f Facet) MarshalText() ([]byte, error) { return []byte(f.Key()), nil }

// UnmarshalText accepts anything ParseFacet accepts.
func (f *Facet) UnmarshalText(b []byte) error {
	p, err := ParseFacet(string(b))
	if err != nil {
		return err
	}
	*f = p
	return nil
}

// ErrUnknownFacet is returned for names that match no facet.
var ErrUnknownFacet = errors.New("unknown facet")

// ErrDuplicateFacet is returned when two inputs name the same facet.
var ErrDuplicateFacet = errors.New("facet given more than once")

// ParseFacet resolves a key, label or column name, case-insensitively.
// Hyphens and spaces are accepted in place of underscores.
func ParseFacet(name string) (Facet, error) {
	n := normalize(name)
	for _, f := range Facets {
		info := facetTable[f]
		if n == info.key || n == normalize(info.label) || n == normalize(info.column) {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFacet, name)
}

func normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_", "(", "", ")", "").Replace(s)
	return s
}
