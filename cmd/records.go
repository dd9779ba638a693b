package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/cohortdash/internal/render"
)

var (
	recPreset string
	recFormat string
	recOutput string
	recOffset int
	recLimit  int
	recFacets facetFlags
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Export the filtered raw rows as CSV or JSON",
	RunE: func(cmd *cobra.Command, args []string) error {
		if recOffset < 0 || recLimit < 0 {
			return fmt.Errorf("--offset and --limit must not be negative")
		}
		_, _, view, err := filtered(cmd, recFacets, recPreset)
		if err != nil {
			return err
		}
		var write func(io.Writer) error
		switch recFormat {
		case "", "csv":
			write = func(w io.Writer) error { return render.WriteCSV(w, view.Page(recOffset, recLimit)) }
		case "json":
			write = func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(render.TableRows(view, recOffset, recLimit))
			}
		default:
			return fmt.Errorf("unsupported --format: %s (use csv|json)", recFormat)
		}
		if err := writeOutput(cmd, recOutput, write); err != nil {
			return err
		}
		if recOutput != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %d records to %s\n", view.Page(recOffset, recLimit).Len(), recOutput)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.Flags().StringVar(&recPreset, "preset", "", "start from a saved filter preset")
	recordsCmd.Flags().StringVar(&recFormat, "format", "csv", "output format: csv|json")
	recordsCmd.Flags().StringVarP(&recOutput, "output", "o", "", "write to file instead of stdout")
	recordsCmd.Flags().IntVar(&recOffset, "offset", 0, "skip this many rows")
	recordsCmd.Flags().IntVar(&recLimit, "limit", 0, "maximum rows (0 for all)")
	recFacets = addFacetFlags(recordsCmd)
}
