package cohort

import (
	"encoding/json"
	"strconv"
)

// Text is a nullable categorical cell.
type Text struct {
	Value string
	Valid bool
}

// Str returns a valid Text.
func Str(s string) Text { return Text{Value: s, Valid: true} }

// Is reports whether t holds exactly v.
func (t Text) Is(v string) bool { return t.Valid && t.Value == v }

func (t Text) String() string {
	if !t.Valid {
		return ""
	}
	return t.Value
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.Value)
}

// Number is a nullable numeric cell.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a valid Number.
func Num(f float64) Number { return Number{Value: f, Valid: true} }

func (n Number) String() string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Value, 'g', -1, 64)
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// Record is one sample row. A subject contributes many records.
type Record struct {
	SubjectID string

	Sex           Text
	Race          Text
	AgeBin        Text
	DiseaseStatus Text
	GeneticStatus Text
	Diagnosis     Text
	CaseControl   Text
	ClinicalEvent Text
	Month         Text
	DrugCategory  Text

	DiseaseModifyingDrug    Text
	PDIndicatedDrug         Text
	NonDiseaseModifyingDrug Text
	DiseaseModifyingTime    Text
	NonDiseaseModifyingTime Text
	ParkinsonMedicationTime Text

	TotalDrugs     Number
	TotalDrugsTime Number

	// cells holds every kept column in file order; missing cells are invalid.
	cells []Text
}

// Cells returns the raw cells aligned with Dataset.Columns.
func (r Record) Cells() []Text { return r.cells }

// MissingMedication reports whether every medication column is missing.
func (r Record) MissingMedication() bool {
	for _, t := range []Text{
		r.DiseaseModifyingDrug,
		r.PDIndicatedDrug,
		r.NonDiseaseModifyingDrug,
		r.DiseaseModifyingTime,
		r.NonDiseaseModifyingTime,
		r.ParkinsonMedicationTime,
	} {
		if t.Valid {
			return false
		}
	}
	return true
}
