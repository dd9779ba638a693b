package cohort

import "time"

// Dataset is the immutable snapshot of a loaded cohort file. Nothing mutates
// it after Load returns, so it may be shared across goroutines.
type Dataset struct {
	Name     string
	Path     string
	LoadedAt time.Time

	columns []string
	records []Record
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// Columns returns the kept column names in file order.
func (d *Dataset) Columns() []string {
	out := make([]string, len(d.columns))
	copy(out, d.columns)
	return out
}

// Record returns the i-th record.
func (d *Dataset) Record(i int) Record { return d.records[i] }

// All returns a view over every record.
func (d *Dataset) All() View {
	idx := make([]int, len(d.records))
	for i := range idx {
		idx[i] = i
	}
	return View{ds: d, idx: idx}
}

// View is an ordered subset of a dataset, held as indices into it.
type View struct {
	ds  *Dataset
	idx []int
}

// Dataset returns the snapshot the view indexes into.
func (v View) Dataset() *Dataset { return v.ds }

// Len returns the number of records in the view.
func (v View) Len() int { return len(v.idx) }

// Record returns the i-th record of the view.
func (v View) Record(i int) Record { return v.ds.records[v.idx[i]] }

// Indices returns dataset positions of the view's records.
func (v View) Indices() []int {
	out := make([]int, len(v.idx))
	copy(out, v.idx)
	return out
}

// Subset returns a new view with the records for which keep is true.
func (v View) Subset(keep func(Record) bool) View {
	idx := make([]int, 0, len(v.idx))
	for _, i := range v.idx {
		if keep(v.ds.records[i]) {
			idx = append(idx, i)
		}
	}
	return View{ds: v.ds, idx: idx}
}

// Reorder returns a view over the given positions of v, in that order.
func (v View) Reorder(positions []int) View {
	idx := make([]int, len(positions))
	for k, p := range positions {
		idx[k] = v.idx[p]
	}
	return View{ds: v.ds, idx: idx}
}

// Page returns up to limit records starting at offset. limit <= 0 means
// everything after offset.
func (v View) Page(offset, limit int) View {
	if offset < 0 {
		offset = 0
	}
	if offset > len(v.idx) {
		offset = len(v.idx)
	}
	end := len(v.idx)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return View{ds: v.ds, idx: v.idx[offset:end]}
}

// Columns returns the dataset's column names, or nil for a zero view.
func (v View) Columns() []string {
	if v.ds == nil {
		return nil
	}
	return v.ds.Columns()
}
