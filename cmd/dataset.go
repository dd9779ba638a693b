package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/cohortdash/internal/cohort"
	"github.com/KaramelBytes/cohortdash/internal/filter"
	"github.com/KaramelBytes/cohortdash/internal/preset"
	"github.com/KaramelBytes/cohortdash/internal/render"
)

// facetFlags holds one command's --<facet> flag values.
type facetFlags map[filter.Facet]*string

func flagName(f filter.Facet) string { return strings.ReplaceAll(f.Key(), "_", "-") }

// addFacetFlags registers a --<facet> flag per facet on cmd.
func addFacetFlags(cmd *cobra.Command) facetFlags {
	ff := facetFlags{}
	for _, f := range filter.Facets {
		ff[f] = cmd.Flags().String(flagName(f), "", fmt.Sprintf("filter by %s (%q for no filter)", f.Label(), filter.All))
	}
	return ff
}

// selection starts from the named preset, if any, and overlays every facet
// flag given on the command line. "All" clears a preset's facet.
func (ff facetFlags) selection(cmd *cobra.Command, presetName string) (filter.Selection, error) {
	sel := filter.Selection{}
	if presetName != "" {
		p, err := presetStore().Load(presetName)
		if err != nil {
			return nil, err
		}
		if sel, err = p.Selection(); err != nil {
			return nil, err
		}
	}
	for _, f := range filter.Facets {
		if !cmd.Flags().Changed(flagName(f)) {
			continue
		}
		v := strings.TrimSpace(*ff[f])
		if v == "" || v == filter.All {
			delete(sel, f)
			continue
		}
		sel[f] = v
	}
	return sel, nil
}

func presetStore() *preset.Store {
	return preset.NewStore(cfg.PresetsDir)
}

// loadDataset reads the configured cohort file. Load failure ends the command.
func loadDataset() (*cohort.Dataset, error) {
	if cfg.DatasetPath == "" {
		return nil, errors.New("no dataset: pass --dataset or set dataset_path")
	}
	opt, err := cfg.LoadOptions()
	if err != nil {
		return nil, err
	}
	ds, err := cohort.Load(cfg.DatasetPath, opt)
	if err != nil {
		return nil, err
	}
	slog.Debug("dataset loaded", "path", ds.Path, "records", ds.Len(), "columns", len(ds.Columns()))
	return ds, nil
}

// filtered loads the dataset and applies the command's selection after
// checking it against the dataset's vocabularies.
func filtered(cmd *cobra.Command, ff facetFlags, presetName string) (*cohort.Dataset, filter.Selection, cohort.View, error) {
	ds, err := loadDataset()
	if err != nil {
		return nil, nil, cohort.View{}, err
	}
	sel, err := ff.selection(cmd, presetName)
	if err != nil {
		return nil, nil, cohort.View{}, err
	}
	voc := filter.Vocabularies(ds)
	for _, f := range voc.Ambiguous() {
		slog.Warn("facet data contains the literal \"All\"; --"+flagName(f)+" All means no filter", "facet", f.Key())
	}
	if err := voc.Validate(sel); err != nil {
		return nil, nil, cohort.View{}, err
	}
	view := filter.Apply(ds.All(), sel)
	slog.Debug("filters applied", "filters", sel.Describe(), "records", view.Len())
	return ds, sel, view, nil
}

func chartOptions() render.ChartOptions {
	return render.ChartOptions{Width: cfg.ChartWidth, Height: cfg.ChartHeight, Seed: cfg.JitterSeed}
}

// writeOutput writes to path, or to the command's stdout when path is empty.
func writeOutput(cmd *cobra.Command, path string, write func(io.Writer) error) error {
	if path == "" {
		return write(cmd.OutOrStdout())
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
