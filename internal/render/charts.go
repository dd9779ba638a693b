package render

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
)

// Chart names accepted by Chart.
const (
	ChartDiagnosis    = "diagnosis"
	ChartMonth        = "month"
	ChartDrugCategory = "drug-category"
	ChartDrugBins     = "drug-bins"
)

// ChartNames lists every chart in dashboard order.
var ChartNames = []string{ChartDiagnosis, ChartMonth, ChartDrugCategory, ChartDrugBins}

// ErrUnknownChart is returned by Chart for names outside ChartNames.
var ErrUnknownChart = errors.New("unknown chart")

// jitterWidth is the half-width of the horizontal scatter around each box.
const jitterWidth = 0.15

// ChartOptions sizes the canvas and seeds the point jitter.
type ChartOptions struct {
	Width  int
	Height int
	Seed   int64
}

func (o ChartOptions) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 800
	}
	if h <= 0 {
		h = 500
	}
	return w, h
}

// Chart writes the named chart for s as PNG.
func Chart(w io.Writer, name string, s aggregate.Summary, opt ChartOptions) error {
	switch name {
	case ChartDiagnosis:
		return DiagnosisBar(w, s.Diagnosis, opt)
	case ChartMonth:
		return MonthLine(w, s.Months, opt)
	case ChartDrugCategory:
		return DrugCategoryPie(w, s.DrugCategories, opt)
	case ChartDrugBins:
		return DrugBinBox(w, s.DrugBins, opt)
	}
	return fmt.Errorf("%w: %q", ErrUnknownChart, name)
}

// renderer is satisfied by chart.Chart, chart.BarChart and chart.PieChart.
type renderer interface {
	Render(rp chart.RendererProvider, w io.Writer) error
}

// renderPNG renders c, falling back to a blank canvas when go-chart rejects
// the input so callers always get an image.
func renderPNG(w io.Writer, name string, c renderer, width, height int) error {
	var buf bytes.Buffer
	if err := c.Render(chart.PNG, &buf); err != nil {
		slog.Warn("chart render failed; writing blank canvas", "chart", name, "error", err)
		return writeBlank(w, width, height)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeBlank(w io.Writer, width, height int) error {
	return png.Encode(w, blank(width, height))
}

func blank(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 255, G: 255, B: 255, A: 255})
		}
	}
	return img
}

func background() chart.Style {
	return chart.Style{Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16}}
}

// DiagnosisBar draws the row count per diagnosis.
func DiagnosisBar(w io.Writer, counts []aggregate.Count, opt ChartOptions) error {
	width, height := opt.size()
	if len(counts) == 0 {
		return writeBlank(w, width, height)
	}
	bars := make([]chart.Value, len(counts))
	top := 0.0
	for i, c := range counts {
		bars[i] = chart.Value{
			Label: c.Value,
			Value: float64(c.Count),
			Style: chart.Style{FillColor: chart.GetDefaultColor(i), StrokeColor: chart.GetDefaultColor(i)},
		}
		top = math.Max(top, float64(c.Count))
	}
	barWidth := width / (2*len(bars) + 1)
	if barWidth > 80 {
		barWidth = 80
	}
	bc := chart.BarChart{
		Title:      "Diagnosis",
		Width:      width,
		Height:     height,
		Background: background(),
		BarWidth:   barWidth,
		BarSpacing: barWidth,
		XAxis:      chart.Style{FontSize: 9},
		YAxis: chart.YAxis{
			Name:  "Samples",
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Bars: bars,
	}
	return renderPNG(w, ChartDiagnosis, bc, width, height)
}

// MonthLine draws the sample count per month with markers, months spaced
// evenly in natural order.
func MonthLine(w io.Writer, counts []aggregate.Count, opt ChartOptions) error {
	width, height := opt.size()
	if len(counts) == 0 {
		return writeBlank(w, width, height)
	}
	xs := make([]float64, len(counts))
	ys := make([]float64, len(counts))
	ticks := make([]chart.Tick, len(counts))
	top := 0.0
	for i, c := range counts {
		xs[i] = float64(i)
		ys[i] = float64(c.Count)
		ticks[i] = chart.Tick{Value: float64(i), Label: c.Value}
		top = math.Max(top, ys[i])
	}
	ch := chart.Chart{
		Title:      "Samples by Month",
		Width:      width,
		Height:     height,
		Background: background(),
		XAxis: chart.XAxis{
			Name:  "Month",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(counts)) - 0.5},
		},
		YAxis: chart.YAxis{
			Name:  "Samples",
			Range: &chart.ContinuousRange{Min: 0, Max: top * 1.1},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Samples",
				XValues: xs,
				YValues: ys,
				Style:   chart.Style{StrokeColor: chart.ColorBlue, StrokeWidth: 2, DotColor: chart.ColorBlue, DotWidth: 4},
			},
		},
	}
	return renderPNG(w, ChartMonth, ch, width, height)
}

// PieLabel is the slice caption: category, share and absolute subjects.
func PieLabel(e aggregate.Exposure) string {
	return fmt.Sprintf("%s %.1f%% (%d patients)", e.Category, e.Percent, e.Subjects)
}

// DrugCategoryPie draws distinct-subject exposure per drug category.
func DrugCategoryPie(w io.Writer, exp []aggregate.Exposure, opt ChartOptions) error {
	width, height := opt.size()
	values := make([]chart.Value, 0, len(exp))
	for _, e := range exp {
		if e.Subjects == 0 {
			continue
		}
		values = append(values, chart.Value{Label: PieLabel(e), Value: float64(e.Subjects)})
	}
	if len(values) == 0 {
		return writeBlank(w, width, height)
	}
	pc := chart.PieChart{
		Title:      "Drug Category Exposure",
		Width:      width,
		Height:     height,
		Background: background(),
		Values:     values,
	}
	return renderPNG(w, ChartDrugCategory, pc, width, height)
}

// DrugBinBox draws one box per drug bin over the per-subject median drug
// time, with whiskers and the individual values jittered around each box.
func DrugBinBox(w io.Writer, groups []aggregate.BinGroup, opt ChartOptions) error {
	width, height := opt.size()
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, g := range groups {
		for _, v := range g.Values {
			lo, hi = math.Min(lo, v), math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 0) {
		return writeBlank(w, width, height)
	}
	pad := (hi - lo) * 0.05
	if pad == 0 {
		pad = 1
	}

	rng := rand.New(rand.NewPCG(uint64(opt.Seed), 0))
	boxColor := chart.ColorBlue
	pointColor := drawing.ColorFromHex("444444").WithAlpha(160)

	var series []chart.Series
	line := func(xs, ys []float64) {
		series = append(series, chart.ContinuousSeries{
			XValues: xs,
			YValues: ys,
			Style:   chart.Style{StrokeColor: boxColor, StrokeWidth: 1.5},
		})
	}
	ticks := make([]chart.Tick, len(groups))
	for i, g := range groups {
		x := float64(i)
		ticks[i] = chart.Tick{Value: x, Label: g.Label}
		st := g.Stats
		if st.N == 0 {
			continue
		}
		const half, whiskerCap = 0.3, 0.1
		line([]float64{x - half, x + half, x + half, x - half, x - half}, []float64{st.Q1, st.Q1, st.Q3, st.Q3, st.Q1})
		line([]float64{x - half, x + half}, []float64{st.Median, st.Median})
		line([]float64{x, x}, []float64{st.Q3, st.WhiskerHigh})
		line([]float64{x, x}, []float64{st.Q1, st.WhiskerLow})
		line([]float64{x - whiskerCap, x + whiskerCap}, []float64{st.WhiskerHigh, st.WhiskerHigh})
		line([]float64{x - whiskerCap, x + whiskerCap}, []float64{st.WhiskerLow, st.WhiskerLow})

		xs := make([]float64, len(g.Values))
		for k := range xs {
			xs[k] = x + (rng.Float64()*2-1)*jitterWidth
		}
		series = append(series, chart.ContinuousSeries{
			XValues: xs,
			YValues: g.Values,
			Style:   chart.Style{StrokeWidth: chart.Disabled, DotWidth: 3, DotColor: pointColor},
		})
	}

	ch := chart.Chart{
		Title:      "Median Drug Time by Total Drugs",
		Width:      width,
		Height:     height,
		Background: background(),
		XAxis: chart.XAxis{
			Name:  "Total drugs",
			Ticks: ticks,
			Range: &chart.ContinuousRange{Min: -0.5, Max: float64(len(groups)) - 0.5},
		},
		YAxis: chart.YAxis{
			Name:  "Total_Drugs_Time(Median)",
			Range: &chart.ContinuousRange{Min: lo - pad, Max: hi + pad},
		},
		Series: series,
	}
	return renderPNG(w, ChartDrugBins, ch, width, height)
}
