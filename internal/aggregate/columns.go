package aggregate

import "github.com/KaramelBytes/cohortdash/internal/cohort"

// ColumnFill counts present and missing cells of one column.
type ColumnFill struct {
	Name    string `json:"name"`
	NonNull int    `json:"non_null"`
	Missing int    `json:"missing"`
	Unique  int    `json:"unique"`
}

// MissingPercent is the share of missing cells, 0 for an empty view.
func (c ColumnFill) MissingPercent() float64 {
	return Share(c.Missing, c.NonNull+c.Missing)
}

// Completeness reports per-column fill over v in file column order.
func Completeness(v cohort.View) []ColumnFill {
	cols := v.Columns()
	out := make([]ColumnFill, len(cols))
	uniq := make([]map[string]struct{}, len(cols))
	for j, name := range cols {
		out[j].Name = name
		uniq[j] = map[string]struct{}{}
	}
	for i := 0; i < v.Len(); i++ {
		cells := v.Record(i).Cells()
		for j := range out {
			if j >= len(cells) || !cells[j].Valid {
				out[j].Missing++
				continue
			}
			out[j].NonNull++
			uniq[j][cells[j].Value] = struct{}{}
		}
	}
	for j := range out {
		out[j].Unique = len(uniq[j])
	}
	return out
}
