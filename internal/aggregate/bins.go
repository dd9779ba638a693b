package aggregate

import "math"

// DrugBin is a labelled half-open range (Low, High] over Total_Drugs.
type DrugBin struct {
	Label string
	Low   float64
	High  float64
}

// DrugBins are the fixed total-drug ranges, in display order.
var DrugBins = []DrugBin{
	{"0-2", -1, 2},
	{"3-5", 2, 5},
	{"6-10", 5, 10},
	{"11-20", 10, 20},
	{"21-50", 20, 50},
	{"51-100", 50, 100},
}

// BinOf returns the bin holding x, or false when x falls outside every bin.
func BinOf(x float64) (DrugBin, bool) {
	if math.IsNaN(x) {
		return DrugBin{}, false
	}
	for _, b := range DrugBins {
		if x > b.Low && x <= b.High {
			return b, true
		}
	}
	return DrugBin{}, false
}

// BinLabels returns the bin labels in display order.
func BinLabels() []string {
	out := make([]string, len(DrugBins))
	for i, b := range DrugBins {
		out[i] = b.Label
	}
	return out
}
