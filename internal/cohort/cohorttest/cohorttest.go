// Package cohorttest builds small cohort datasets for tests.
package cohorttest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/KaramelBytes/cohortdash/internal/cohort"
)

// Row is one sample in test form. Empty strings become missing cells.
type Row struct {
	Subject       string
	Sex           string
	Race          string
	AgeBin        string
	DiseaseStatus string
	GeneticStatus string
	Diagnosis     string
	CaseControl   string
	ClinicalEvent string
	Month         string
	DrugCategory  string
	// Meds fills the six medication columns in cohort.MedicationColumns order.
	Meds           [6]string
	TotalDrugs     string
	TotalDrugsTime string
}

// Header is the column order CSV writes, index artifact first.
func Header() []string {
	return append([]string{""}, cohort.RequiredColumns()...)
}

// CSV renders rows as a cohort export with a leading index column.
func CSV(rows ...Row) string {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	_ = w.Write(Header())
	for i, r := range rows {
		rec := []string{
			strconv.Itoa(i), r.Subject, r.Sex, r.Race, r.AgeBin, r.DiseaseStatus, r.GeneticStatus,
			r.Diagnosis, r.CaseControl, r.ClinicalEvent, r.Month, r.DrugCategory,
		}
		rec = append(rec, r.Meds[:]...)
		rec = append(rec, r.TotalDrugs, r.TotalDrugsTime)
		_ = w.Write(rec)
	}
	w.Flush()
	return sb.String()
}

// Dataset loads rows into a snapshot or fails the test.
func Dataset(t testing.TB, rows ...Row) *cohort.Dataset {
	t.Helper()
	ds, err := cohort.Read(strings.NewReader(CSV(rows...)), cohort.DefaultLoadOptions())
	if err != nil {
		t.Fatalf("cohorttest: read dataset: %v", err)
	}
	ds.Name = "test.csv"
	return ds
}

// WriteFile writes rows as a CSV file in dir and returns its path.
func WriteFile(t testing.TB, dir string, rows ...Row) string {
	t.Helper()
	p := filepath.Join(dir, "cohort.csv")
	if err := os.WriteFile(p, []byte(CSV(rows...)), 0o644); err != nil {
		t.Fatalf("cohorttest: write %s: %v", p, err)
	}
	return p
}

// Treated returns a row with every medication column filled.
func Treated(subject, diagnosis, month, category string, totalDrugs, medianTime float64) Row {
	return Row{
		Subject:        subject,
		Sex:            "Male",
		Race:           "White",
		AgeBin:         "60-70",
		DiseaseStatus:  "PD",
		GeneticStatus:  "Sporadic",
		Diagnosis:      diagnosis,
		CaseControl:    "Case",
		ClinicalEvent:  "Visit",
		Month:          month,
		DrugCategory:   category,
		Meds:           [6]string{"Yes", "Yes", "No", "10", "5", "20"},
		TotalDrugs:     strconv.FormatFloat(totalDrugs, 'g', -1, 64),
		TotalDrugsTime: strconv.FormatFloat(medianTime, 'g', -1, 64),
	}
}
