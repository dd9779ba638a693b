package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/cohortdash/internal/filter"
	"github.com/KaramelBytes/cohortdash/internal/utils"
)

var facetsJSON bool

var facetsCmd = &cobra.Command{
	Use:   "facets",
	Short: "List each facet's selectable values",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := loadDataset()
		if err != nil {
			return err
		}
		voc := filter.Vocabularies(ds)
		out := cmd.OutOrStdout()
		if facetsJSON {
			m := make(map[string][]string, len(filter.Facets))
			for _, f := range filter.Facets {
				m[f.Key()] = voc.Options(f)
			}
			b, err := utils.PrettyJSON(m)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		for _, f := range filter.Facets {
			fmt.Fprintf(out, "%s (--%s): %s\n", f.Label(), flagName(f), strings.Join(voc.Options(f), ", "))
		}
		for _, f := range voc.Ambiguous() {
			fmt.Fprintf(cmd.ErrOrStderr(), "⚠ Warning: %s has a literal %q value; it cannot be selected from the CLI\n", f.Label(), filter.All)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(facetsCmd)
	facetsCmd.Flags().BoolVar(&facetsJSON, "json", false, "print as JSON")
}
