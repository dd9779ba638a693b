package cohort

import (
	"fmt"
	"strconv"
	"strings"
)

// Column header names as they appear in the cohort export.
const (
	ColSubject                 = "PATNO"
	ColSex                     = "Sex"
	ColRace                    = "Race"
	ColAgeBin                  = "Age (Bin)"
	ColDiseaseStatus           = "Disease Status"
	ColGeneticStatus           = "Genetic Status"
	ColDiagnosis               = "Diagnosis"
	ColCaseControl             = "Case Control"
	ColClinicalEvent           = "Clinical Event"
	ColMonth                   = "Month"
	ColDrugCategory            = "Drug_Category"
	ColDiseaseModifyingDrug    = "Disease_modifying_drug"
	ColPDIndicatedDrug         = "PD_indicated_drug"
	ColNonDiseaseModifyingDrug = "Non_disease_modifying_drug"
	ColDiseaseModifyingTime    = "Disease-modifying-drugs_time(Median)"
	ColNonDiseaseModifyingTime = "Non-disease-modifying-drugs_time(Median)"
	ColParkinsonMedicationTime = "parkinson_medication_time"
	ColTotalDrugs              = "Total_Drugs"
	ColTotalDrugsTime          = "Total_Drugs_Time(Median)"

	// IndexArtifact is the unnamed index column written by dataframe exports.
	IndexArtifact = "Unnamed: 0"
)

// MedicationColumns are the columns checked by Record.MissingMedication.
var MedicationColumns = []string{
	ColDiseaseModifyingDrug,
	ColPDIndicatedDrug,
	ColNonDiseaseModifyingDrug,
	ColDiseaseModifyingTime,
	ColNonDiseaseModifyingTime,
	ColParkinsonMedicationTime,
}

type setter func(r *Record, t Text) error

func text(dst func(*Record) *Text) setter {
	return func(r *Record, t Text) error {
		*dst(r) = t
		return nil
	}
}

func number(dst func(*Record) *Number) setter {
	return func(r *Record, t Text) error {
		if !t.Valid {
			*dst(r) = Number{}
			return nil
		}
		f, err := strconv.ParseFloat(t.Value, 64)
		if err != nil {
			return fmt.Errorf("not a number: %q", t.Value)
		}
		*dst(r) = Num(f)
		return nil
	}
}

// schema binds every required header to the record field it fills.
var schema = []struct {
	name string
	set  setter
}{
	{ColSubject, func(r *Record, t Text) error {
		if !t.Valid {
			return fmt.Errorf("subject id is missing")
		}
		r.SubjectID = t.Value
		return nil
	}},
	{ColSex, text(func(r *Record) *Text { return &r.Sex })},
	{ColRace, text(func(r *Record) *Text { return &r.Race })},
	{ColAgeBin, text(func(r *Record) *Text { return &r.AgeBin })},
	{ColDiseaseStatus, text(func(r *Record) *Text { return &r.DiseaseStatus })},
	{ColGeneticStatus, text(func(r *Record) *Text { return &r.GeneticStatus })},
	{ColDiagnosis, text(func(r *Record) *Text { return &r.Diagnosis })},
	{ColCaseControl, text(func(r *Record) *Text { return &r.CaseControl })},
	{ColClinicalEvent, text(func(r *Record) *Text { return &r.ClinicalEvent })},
	{ColMonth, text(func(r *Record) *Text { return &r.Month })},
	{ColDrugCategory, text(func(r *Record) *Text { return &r.DrugCategory })},
	{ColDiseaseModifyingDrug, text(func(r *Record) *Text { return &r.DiseaseModifyingDrug })},
	{ColPDIndicatedDrug, text(func(r *Record) *Text { return &r.PDIndicatedDrug })},
	{ColNonDiseaseModifyingDrug, text(func(r *Record) *Text { return &r.NonDiseaseModifyingDrug })},
	{ColDiseaseModifyingTime, text(func(r *Record) *Text { return &r.DiseaseModifyingTime })},
	{ColNonDiseaseModifyingTime, text(func(r *Record) *Text { return &r.NonDiseaseModifyingTime })},
	{ColParkinsonMedicationTime, text(func(r *Record) *Text { return &r.ParkinsonMedicationTime })},
	{ColTotalDrugs, number(func(r *Record) *Number { return &r.TotalDrugs })},
	{ColTotalDrugsTime, number(func(r *Record) *Number { return &r.TotalDrugsTime })},
}

// RequiredColumns lists the headers a cohort file must carry.
func RequiredColumns() []string {
	out := make([]string, len(schema))
	for i, c := range schema {
		out[i] = c.name
	}
	return out
}

// SchemaError reports a header that does not match the record schema.
type SchemaError struct {
	Missing   []string
	Duplicate []string
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("missing columns: %s", quoteAll(e.Missing)))
	}
	if len(e.Duplicate) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate columns: %s", quoteAll(e.Duplicate)))
	}
	return "schema mismatch: " + strings.Join(parts, "; ")
}

// RowError reports a cell that could not be bound to its record field.
type RowError struct {
	Row    int // 1-based data row, header excluded
	Column string
	Err    error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d, column %q: %v", e.Row, e.Column, e.Err)
}

func (e *RowError) Unwrap() error { return e.Err }

// Binding maps the positions of a concrete header onto the record schema.
type Binding struct {
	columns []string // kept columns, file order
	keep    []int    // source index per kept column
	fields  []int    // kept-column index per schema entry
	missing map[string]bool
}

// Bind checks header against the schema. The index artifact column is
// dropped; unknown columns are kept as passthrough cells.
func Bind(header []string, missingTokens []string) (*Binding, error) {
	b := &Binding{missing: make(map[string]bool, len(missingTokens))}
	for _, tok := range missingTokens {
		b.missing[tok] = true
	}
	seen := map[string]bool{}
	var dup []string
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if i == 0 && name == "" {
			continue
		}
		if name == IndexArtifact {
			continue
		}
		if seen[name] {
			dup = append(dup, name)
			continue
		}
		seen[name] = true
		b.columns = append(b.columns, name)
		b.keep = append(b.keep, i)
	}
	pos := make(map[string]int, len(b.columns))
	for i, c := range b.columns {
		pos[c] = i
	}
	var miss []string
	b.fields = make([]int, len(schema))
	for i, c := range schema {
		p, ok := pos[c.name]
		if !ok {
			miss = append(miss, c.name)
			continue
		}
		b.fields[i] = p
	}
	if len(miss) > 0 || len(dup) > 0 {
		return nil, &SchemaError{Missing: miss, Duplicate: dup}
	}
	return b, nil
}

// Columns returns the kept column names in file order.
func (b *Binding) Columns() []string {
	out := make([]string, len(b.columns))
	copy(out, b.columns)
	return out
}

// Record converts one source row. row is the 1-based data row number.
func (b *Binding) Record(row int, src []string) (Record, error) {
	var r Record
	r.cells = make([]Text, len(b.keep))
	for i, si := range b.keep {
		if si < len(src) {
			r.cells[i] = b.cell(src[si])
		}
	}
	for i, c := range schema {
		if err := c.set(&r, r.cells[b.fields[i]]); err != nil {
			return Record{}, &RowError{Row: row, Column: c.name, Err: err}
		}
	}
	return r, nil
}

func (b *Binding) cell(raw string) Text {
	v := strings.TrimSpace(raw)
	if v == "" || b.missing[v] {
		return Text{}
	}
	return Str(v)
}

func quoteAll(ss []string) string {
	q := make([]string, len(ss))
	for i, s := range ss {
		q[i] = strconv.Quote(s)
	}
	return strings.Join(q, ", ")
}
