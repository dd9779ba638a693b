package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
	"github.com/KaramelBytes/cohortdash/internal/render"
)

var (
	chartPreset string
	chartOutput string
	chartFacets facetFlags
)

var chartCmd = &cobra.Command{
	Use:   "chart <" + strings.Join(render.ChartNames, "|") + ">",
	Short: "Render a dashboard chart of the filtered cohort as PNG",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if !slices.Contains(render.ChartNames, name) {
			return fmt.Errorf("%w: %q (use %s)", render.ErrUnknownChart, name, strings.Join(render.ChartNames, ", "))
		}
		_, _, view, err := filtered(cmd, chartFacets, chartPreset)
		if err != nil {
			return err
		}
		aopt, err := cfg.AggregateOptions()
		if err != nil {
			return err
		}
		out := chartOutput
		if out == "" {
			out = name + ".png"
		}
		sum := aggregate.Summarize(view, aopt)
		if err := writeOutput(cmd, out, func(w io.Writer) error {
			return render.Chart(w, name, sum, chartOptions())
		}); err != nil {
			return err
		}
		if view.Len() == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), "⚠ Warning: no records match the filters; chart is blank")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s chart to %s\n", name, out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chartCmd)
	chartCmd.Flags().StringVar(&chartPreset, "preset", "", "start from a saved filter preset")
	chartCmd.Flags().StringVarP(&chartOutput, "output", "o", "", "PNG file to write (default <chart>.png)")
	chartFacets = addFacetFlags(chartCmd)
}
