package render

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/KaramelBytes/cohortdash/internal/cohort"
)

// Table is one page of the raw data table. Missing cells encode as null.
type Table struct {
	Columns []string        `json:"columns"`
	Rows    [][]cohort.Text `json:"rows"`
	Total   int             `json:"total"`
	Offset  int             `json:"offset"`
}

// TableRows returns up to limit rows of v starting at offset. limit <= 0
// returns every remaining row.
func TableRows(v cohort.View, offset, limit int) Table {
	page := v.Page(offset, limit)
	t := Table{
		Columns: v.Columns(),
		Rows:    make([][]cohort.Text, page.Len()),
		Total:   v.Len(),
		Offset:  offset,
	}
	if t.Columns == nil {
		t.Columns = []string{}
	}
	if t.Offset < 0 {
		t.Offset = 0
	}
	for i := 0; i < page.Len(); i++ {
		t.Rows[i] = page.Record(i).Cells()
	}
	return t
}

// WriteCSV writes the view with its header. Missing cells are left empty.
func WriteCSV(w io.Writer, v cohort.View) error {
	cw := csv.NewWriter(w)
	cols := v.Columns()
	if err := cw.Write(cols); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	row := make([]string, len(cols))
	for i := 0; i < v.Len(); i++ {
		cells := v.Record(i).Cells()
		for j := range row {
			row[j] = ""
			if j < len(cells) {
				row[j] = cells[j].String()
			}
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
