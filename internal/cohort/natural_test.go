package cohort

import (
	"reflect"
	"strings"
	"testing"
)

func TestSortNatural(t *testing.T) {
	got := []string{"12", "V10", "6", "0", "V04", "24", "BL", "006", "b", "B"}
	SortNatural(got)
	want := []string{"0", "006", "6", "12", "24", "B", "BL", "V04", "V10", "b"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("SortNatural = %v, want %v", got, want)
	}
}

func TestNaturalLessIsStrict(t *testing.T) {
	for _, s := range []string{"", "a", "10", "a10b"} {
		if NaturalLess(s, s) {
			t.Fatalf("NaturalLess(%q, %q) = true", s, s)
		}
	}
}

func TestViewSubsetPageAndReorder(t *testing.T) {
	ds, err := Read(strings.NewReader(strings.Join(append([]string{testHeader}, testRows...), "\n")), DefaultLoadOptions())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	all := ds.All()
	males := all.Subset(func(r Record) bool { return r.Sex.Is("Male") })
	if males.Len() != 2 {
		t.Fatalf("males = %d", males.Len())
	}
	if got := all.Page(1, 1).Indices(); !reflect.DeepEqual(got, []int{1}) {
		t.Fatalf("page = %v", got)
	}
	if got := all.Page(5, 10).Len(); got != 0 {
		t.Fatalf("page past end = %d", got)
	}
	if got := all.Reorder([]int{2, 0}).Indices(); !reflect.DeepEqual(got, []int{2, 0}) {
		t.Fatalf("reorder = %v", got)
	}
	if ds.Len() != 3 {
		t.Fatalf("dataset mutated: %d", ds.Len())
	}
	var zero View
	if zero.Len() != 0 || zero.Columns() != nil {
		t.Fatalf("zero view should be empty")
	}
}
