// Package aggregate derives dashboard metrics from a filtered cohort view.
// Every function here is pure and accepts an empty view.
package aggregate

import (
	"fmt"
	"sort"
	"strings"

	"github.com/KaramelBytes/cohortdash/internal/cohort"
)

// Order selects the ordering under which LatestPerSubject keeps a subject's
// last record.
type Order int

const (
	// OrderMonth sorts records by natural month order (missing first),
	// falling back to file order, so the latest visit wins.
	OrderMonth Order = iota
	// OrderFile keeps the record appearing last in the file.
	OrderFile
)

func (o Order) String() string {
	if o == OrderFile {
		return "file"
	}
	return "month"
}

// ParseOrder accepts "month" or "file".
func ParseOrder(s string) (Order, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "month":
		return OrderMonth, nil
	case "file":
		return OrderFile, nil
	}
	return 0, fmt.Errorf("invalid dedup order %q (use month or file)", s)
}

// Options tunes Summarize.
type Options struct {
	Dedup Order
}

// Count is the number of rows or subjects carrying Value.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Exposure is the number of distinct subjects seen under a drug category.
type Exposure struct {
	Category string  `json:"category"`
	Subjects int     `json:"subjects"`
	Percent  float64 `json:"percent"`
}

// BinGroup collects the per-subject median exposure times of one drug bin.
type BinGroup struct {
	Label  string    `json:"label"`
	Values []float64 `json:"values"`
	Stats  BoxStats  `json:"stats"`
}

// Summary is everything the dashboard shows for one view.
type Summary struct {
	Subjects          int        `json:"subjects"`
	Records           int        `json:"records"`
	MissingMedication int        `json:"missing_medication"`
	Diagnosis         []Count    `json:"diagnosis"`
	Months            []Count    `json:"months"`
	DrugCategories    []Exposure `json:"drug_categories"`
	DrugBins          []BinGroup `json:"drug_bins"`
	// Unbinned counts deduplicated subjects whose Total_Drugs has no bin.
	Unbinned int          `json:"unbinned"`
	Columns  []ColumnFill `json:"columns"`
}

// Summarize computes every metric over v.
func Summarize(v cohort.View, opt Options) Summary {
	latest := LatestPerSubject(v, opt.Dedup)
	return Summary{
		Subjects:          DistinctSubjects(v),
		Records:           v.Len(),
		MissingMedication: MissingMedicationSubjects(v),
		Diagnosis:         DiagnosisCounts(v),
		Months:            MonthCounts(v),
		DrugCategories:    DrugCategoryExposure(v),
		DrugBins:          DrugBinGroups(latest),
		Unbinned:          unbinned(latest),
		Columns:           Completeness(v),
	}
}

// DistinctSubjects counts unique subject ids.
func DistinctSubjects(v cohort.View) int {
	seen := make(map[string]struct{}, v.Len())
	for i := 0; i < v.Len(); i++ {
		seen[v.Record(i).SubjectID] = struct{}{}
	}
	return len(seen)
}

// MissingMedicationSubjects counts subjects with at least one record in
// which every medication column is missing.
func MissingMedicationSubjects(v cohort.View) int {
	seen := map[string]struct{}{}
	for i := 0; i < v.Len(); i++ {
		r := v.Record(i)
		if r.MissingMedication() {
			seen[r.SubjectID] = struct{}{}
		}
	}
	return len(seen)
}

// DiagnosisCounts counts rows per diagnosis, most frequent first.
func DiagnosisCounts(v cohort.View) []Count {
	out := countBy(v, func(r cohort.Record) cohort.Text { return r.Diagnosis })
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return cohort.NaturalLess(out[i].Value, out[j].Value)
	})
	return out
}

// MonthCounts counts rows per month in natural month order.
func MonthCounts(v cohort.View) []Count {
	out := countBy(v, func(r cohort.Record) cohort.Text { return r.Month })
	sort.SliceStable(out, func(i, j int) bool { return cohort.NaturalLess(out[i].Value, out[j].Value) })
	return out
}

func countBy(v cohort.View, key func(cohort.Record) cohort.Text) []Count {
	idx := map[string]int{}
	out := []Count{}
	for i := 0; i < v.Len(); i++ {
		k := key(v.Record(i))
		if !k.Valid {
			continue
		}
		j, ok := idx[k.Value]
		if !ok {
			j = len(out)
			idx[k.Value] = j
			out = append(out, Count{Value: k.Value})
		}
		out[j].Count++
	}
	return out
}

// DrugCategoryExposure counts distinct subjects per drug category, in
// category order. Percent is each category's share of the summed counts.
func DrugCategoryExposure(v cohort.View) []Exposure {
	subj := map[string]map[string]struct{}{}
	for i := 0; i < v.Len(); i++ {
		r := v.Record(i)
		if !r.DrugCategory.Valid {
			continue
		}
		set := subj[r.DrugCategory.Value]
		if set == nil {
			set = map[string]struct{}{}
			subj[r.DrugCategory.Value] = set
		}
		set[r.SubjectID] = struct{}{}
	}
	cats := make([]string, 0, len(subj))
	total := 0
	for c, set := range subj {
		cats = append(cats, c)
		total += len(set)
	}
	cohort.SortNatural(cats)
	out := make([]Exposure, len(cats))
	for i, c := range cats {
		n := len(subj[c])
		out[i] = Exposure{Category: c, Subjects: n, Percent: Share(n, total)}
	}
	return out
}

// Share returns part as a percentage of total, or 0 when total is 0.
func Share(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) * 100 / float64(total)
}

// LatestPerSubject keeps one record per subject: the last one under order.
// Kept records stay in their original relative order.
func LatestPerSubject(v cohort.View, order Order) cohort.View {
	pos := make([]int, v.Len())
	for i := range pos {
		pos[i] = i
	}
	if order == OrderMonth {
		sort.SliceStable(pos, func(a, b int) bool {
			ma, mb := v.Record(pos[a]).Month, v.Record(pos[b]).Month
			switch {
			case !ma.Valid:
				return mb.Valid
			case !mb.Valid:
				return false
			}
			return cohort.NaturalLess(ma.Value, mb.Value)
		})
	}
	last := make(map[string]int, len(pos))
	for _, p := range pos {
		last[v.Record(p).SubjectID] = p
	}
	keep := make([]int, 0, len(last))
	for i := 0; i < v.Len(); i++ {
		if last[v.Record(i).SubjectID] == i {
			keep = append(keep, i)
		}
	}
	return v.Reorder(keep)
}

// DrugBinGroups partitions Total_Drugs_Time(Median) values by drug bin.
// Callers pass a view already reduced to one record per subject. Every bin
// is present in the result, possibly empty.
func DrugBinGroups(v cohort.View) []BinGroup {
	groups := make([]BinGroup, len(DrugBins))
	at := make(map[string]int, len(DrugBins))
	for i, b := range DrugBins {
		groups[i] = BinGroup{Label: b.Label, Values: []float64{}}
		at[b.Label] = i
	}
	for i := 0; i < v.Len(); i++ {
		r := v.Record(i)
		if !r.TotalDrugs.Valid || !r.TotalDrugsTime.Valid {
			continue
		}
		b, ok := BinOf(r.TotalDrugs.Value)
		if !ok {
			continue
		}
		g := &groups[at[b.Label]]
		g.Values = append(g.Values, r.TotalDrugsTime.Value)
	}
	for i := range groups {
		groups[i].Stats = Box(groups[i].Values)
	}
	return groups
}

func unbinned(v cohort.View) int {
	n := 0
	for i := 0; i < v.Len(); i++ {
		r := v.Record(i)
		if !r.TotalDrugs.Valid {
			n++
			continue
		}
		if _, ok := BinOf(r.TotalDrugs.Value); !ok {
			n++
		}
	}
	return n
}
