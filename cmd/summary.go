package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
	"github.com/KaramelBytes/cohortdash/internal/render"
	"github.com/KaramelBytes/cohortdash/internal/utils"
)

var (
	sumPreset string
	sumFormat string
	sumOutput string
	sumHead   int
	sumFacets facetFlags
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize the filtered cohort: counts, distributions, drug exposure",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, sel, view, err := filtered(cmd, sumFacets, sumPreset)
		if err != nil {
			return err
		}
		aopt, err := cfg.AggregateOptions()
		if err != nil {
			return err
		}
		head := cfg.SampleRows
		if cmd.Flags().Changed("head") {
			head = sumHead
		}
		rep := render.NewReport(ds.Name, sel, view, aopt, head)

		var out []byte
		switch sumFormat {
		case "", "markdown", "md":
			out = []byte(rep.Markdown())
		case "json":
			out, err = utils.PrettyJSON(struct {
				Dataset string            `json:"dataset"`
				Filters map[string]string `json:"filters"`
				Summary aggregate.Summary `json:"summary"`
			}{ds.Name, sel.Strings(), rep.Summary})
			if err != nil {
				return err
			}
			out = append(out, '\n')
		default:
			return fmt.Errorf("unsupported --format: %s (use markdown|json)", sumFormat)
		}
		if err := writeOutput(cmd, sumOutput, func(w io.Writer) error {
			_, err := w.Write(out)
			return err
		}); err != nil {
			return err
		}
		if sumOutput != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote summary to %s\n", sumOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.Flags().StringVar(&sumPreset, "preset", "", "start from a saved filter preset")
	summaryCmd.Flags().StringVar(&sumFormat, "format", "markdown", "output format: markdown|json")
	summaryCmd.Flags().StringVarP(&sumOutput, "output", "o", "", "write to file instead of stdout")
	summaryCmd.Flags().IntVar(&sumHead, "head", 0, "head rows to include (default sample_rows)")
	sumFacets = addFacetFlags(summaryCmd)
}
