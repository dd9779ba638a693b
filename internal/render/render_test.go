package render

import (
	"bytes"
	"errors"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
	"github.com/KaramelBytes/cohortdash/internal/cohort"
	"github.com/KaramelBytes/cohortdash/internal/cohort/cohorttest"
	"github.com/KaramelBytes/cohortdash/internal/filter"
)

func sample(t *testing.T) *cohort.Dataset {
	return cohorttest.Dataset(t,
		cohorttest.Treated("A", "PD", "0", "Dopaminergic", 3, 10),
		cohorttest.Treated("A", "PD", "12", "Dopaminergic", 4, 12),
		cohorttest.Treated("A", "PD", "24", "MAO-B", 6, 14),
		cohorttest.Treated("B", "Control", "0", "Dopaminergic", 1, 2),
		cohorttest.Treated("C", "PD", "6", "Amantadine", 12, 40),
		cohorttest.Row{Subject: "D", Diagnosis: "Prodromal", Month: "0"},
	)
}

func TestMarkdownSections(t *testing.T) {
	ds := sample(t)
	sel := filter.Selection{filter.Diagnosis: "PD"}
	view := filter.Apply(ds.All(), sel)
	md := NewReport(ds.Name, sel, view, aggregate.Options{}, 2).Markdown()

	for _, want := range []string{
		"[DATASET]", "File: test.csv", "Filters: Diagnosis=PD",
		"[NUMBERS]", "- Distinct subjects: 2", "- Total samples: 4", "- Subjects missing medication data: 0",
		"[DIAGNOSIS]", "- PD: 4",
		"[SAMPLES BY MONTH]", "- 0: 1\n- 6: 1\n- 12: 1\n- 24: 1",
		"[DRUG CATEGORY EXPOSURE]", "- Amantadine: 1 subjects (33.3%)",
		"[MEDIAN DRUG TIME BY TOTAL DRUGS]", "- 0-2: n=0", "- 11-20: n=1",
		"[COLUMNS]", "- Drug_Category: non-null 4, missing 0.0%, unique 3",
		"[HEAD ROWS]", "| PATNO | Sex |",
	} {
		assert.Contains(t, md, want)
	}
	assert.NotContains(t, md, "[NOTES]")
	assert.Equal(t, 2, strings.Count(md, "| A | Male |"))
}

func TestMarkdownEmptyView(t *testing.T) {
	ds := sample(t)
	sel := filter.Selection{filter.Diagnosis: "none"}
	md := NewReport(ds.Name, sel, filter.Apply(ds.All(), sel), aggregate.Options{}, 5).Markdown()
	assert.Contains(t, md, "- Distinct subjects: 0")
	assert.Contains(t, md, "[NOTES]\n- No records match the current filters.")
	assert.NotContains(t, md, "[HEAD ROWS]")
	assert.NotContains(t, md, "[DIAGNOSIS]")
	assert.NotContains(t, md, "[COLUMNS]")
}

func TestChartsRenderPNG(t *testing.T) {
	ds := sample(t)
	full := aggregate.Summarize(ds.All(), aggregate.Options{})
	empty := aggregate.Summarize(filter.Apply(ds.All(), filter.Selection{filter.Sex: "nobody"}), aggregate.Options{})
	opt := ChartOptions{Width: 320, Height: 200, Seed: 7}

	for _, s := range []aggregate.Summary{full, empty} {
		for _, name := range ChartNames {
			var buf bytes.Buffer
			require.NoError(t, Chart(&buf, name, s, opt), name)
			cfg, err := png.DecodeConfig(&buf)
			require.NoError(t, err, name)
			assert.Equal(t, 320, cfg.Width, name)
			assert.Equal(t, 200, cfg.Height, name)
		}
	}
}

func TestChartJitterIsSeeded(t *testing.T) {
	ds := sample(t)
	s := aggregate.Summarize(ds.All(), aggregate.Options{})
	var a, b bytes.Buffer
	require.NoError(t, DrugBinBox(&a, s.DrugBins, ChartOptions{Seed: 3}))
	require.NoError(t, DrugBinBox(&b, s.DrugBins, ChartOptions{Seed: 3}))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestChartUnknown(t *testing.T) {
	err := Chart(&bytes.Buffer{}, "scatter", aggregate.Summary{}, ChartOptions{})
	assert.True(t, errors.Is(err, ErrUnknownChart))
}

func TestPieLabel(t *testing.T) {
	got := PieLabel(aggregate.Exposure{Category: "MAO-B", Subjects: 3, Percent: 37.5})
	assert.Equal(t, "MAO-B 37.5% (3 patients)", got)
}

func TestTableRows(t *testing.T) {
	ds := sample(t)
	tbl := TableRows(ds.All(), 4, 10)
	assert.Equal(t, 6, tbl.Total)
	assert.Equal(t, 4, tbl.Offset)
	require.Len(t, tbl.Rows, 2)
	assert.Equal(t, ds.Columns(), tbl.Columns)
	assert.Equal(t, "C", tbl.Rows[0][0].Value)
	// D has no sex; the cell is missing.
	assert.False(t, tbl.Rows[1][1].Valid)

	empty := TableRows(cohort.View{}, 0, 10)
	assert.Equal(t, []string{}, empty.Columns)
	assert.Empty(t, empty.Rows)
}

func TestWriteCSV(t *testing.T) {
	ds := sample(t)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, filter.Apply(ds.All(), filter.Selection{filter.Diagnosis: "Prodromal"})))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "PATNO,Sex,Race,Age (Bin)"))
	assert.True(t, strings.HasPrefix(lines[1], "D,,,"))
}
