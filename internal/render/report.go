// Package render presents aggregated cohort views as Markdown reports, PNG
// charts and raw tables.
package render

import (
	"fmt"
	"strings"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
	"github.com/KaramelBytes/cohortdash/internal/cohort"
	"github.com/KaramelBytes/cohortdash/internal/filter"
	"github.com/KaramelBytes/cohortdash/internal/utils"
)

const maxCellWidth = 40

// Report is one dashboard pass: the filters applied and what they produced.
type Report struct {
	Dataset   string
	Selection filter.Selection
	Summary   aggregate.Summary
	// Head holds the first rows of the filtered view; empty skips the section.
	Head  cohort.View
	Notes []string
}

// NewReport summarizes view and keeps up to headRows rows for the head table.
func NewReport(dataset string, sel filter.Selection, view cohort.View, opt aggregate.Options, headRows int) *Report {
	r := &Report{
		Dataset:   dataset,
		Selection: sel,
		Summary:   aggregate.Summarize(view, opt),
	}
	if headRows > 0 {
		r.Head = view.Page(0, headRows)
	}
	if view.Len() == 0 {
		r.Notes = append(r.Notes, "No records match the current filters.")
	}
	return r
}

// Markdown renders the report as sectioned plain text.
func (r *Report) Markdown() string {
	s := r.Summary
	var b strings.Builder
	b.WriteString("[DATASET]\n")
	if r.Dataset != "" {
		b.WriteString(fmt.Sprintf("File: %s\n", r.Dataset))
	}
	b.WriteString(fmt.Sprintf("Filters: %s\n\n", r.Selection.Describe()))

	b.WriteString("[NUMBERS]\n")
	b.WriteString(fmt.Sprintf("- Distinct subjects: %d\n", s.Subjects))
	b.WriteString(fmt.Sprintf("- Total samples: %d\n", s.Records))
	b.WriteString(fmt.Sprintf("- Subjects missing medication data: %d\n", s.MissingMedication))

	if len(s.Diagnosis) > 0 {
		b.WriteString("\n[DIAGNOSIS]\n")
		for _, c := range s.Diagnosis {
			b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(c.Value), c.Count))
		}
	}
	if len(s.Months) > 0 {
		b.WriteString("\n[SAMPLES BY MONTH]\n")
		for _, c := range s.Months {
			b.WriteString(fmt.Sprintf("- %s: %d\n", safeVal(c.Value), c.Count))
		}
	}
	if len(s.DrugCategories) > 0 {
		b.WriteString("\n[DRUG CATEGORY EXPOSURE]\n")
		for _, e := range s.DrugCategories {
			b.WriteString(fmt.Sprintf("- %s: %d subjects (%.1f%%)\n", safeVal(e.Category), e.Subjects, e.Percent))
		}
	}

	b.WriteString("\n[MEDIAN DRUG TIME BY TOTAL DRUGS]\n")
	for _, g := range s.DrugBins {
		st := g.Stats
		if st.N == 0 {
			b.WriteString(fmt.Sprintf("- %s: n=0\n", g.Label))
			continue
		}
		b.WriteString(fmt.Sprintf("- %s: n=%d — median %.4g (IQR %.4g–%.4g), range %.4g–%.4g, mean %.4g",
			g.Label, st.N, st.Median, st.Q1, st.Q3, st.Min, st.Max, st.Mean))
		if len(st.Outliers) > 0 {
			b.WriteString(fmt.Sprintf("; outliers: %d", len(st.Outliers)))
		}
		b.WriteString("\n")
	}
	if s.Unbinned > 0 {
		b.WriteString(fmt.Sprintf("- unbinned: %d\n", s.Unbinned))
	}

	if s.Records > 0 && len(s.Columns) > 0 {
		b.WriteString("\n[COLUMNS]\n")
		for _, c := range s.Columns {
			b.WriteString(fmt.Sprintf("- %s: non-null %d, missing %.1f%%, unique %d\n",
				safeName(c.Name), c.NonNull, c.MissingPercent(), c.Unique))
		}
	}

	if r.Head.Len() > 0 {
		cols := r.Head.Columns()
		b.WriteString("\n[HEAD ROWS]\n")
		b.WriteString("| ")
		for i, c := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString(safeName(c))
		}
		b.WriteString(" |\n| ")
		for i := range cols {
			if i > 0 {
				b.WriteString(" | ")
			}
			b.WriteString("---")
		}
		b.WriteString(" |\n")
		for i := 0; i < r.Head.Len(); i++ {
			cells := r.Head.Record(i).Cells()
			b.WriteString("| ")
			for j := range cols {
				if j > 0 {
					b.WriteString(" | ")
				}
				val := ""
				if j < len(cells) {
					val = cells[j].String()
				}
				b.WriteString(safeVal(utils.Truncate(val, maxCellWidth)))
			}
			b.WriteString(" |\n")
		}
	}
	if len(r.Notes) > 0 {
		b.WriteString("\n[NOTES]\n")
		for _, n := range r.Notes {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteString("\n")
		}
	}
	return b.String()
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "(unnamed)"
	}
	return s
}
func safeVal(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "\n", " "), "|", "/") }
