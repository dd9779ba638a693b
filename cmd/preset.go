package cmd

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/cohortdash/internal/filter"
	"github.com/KaramelBytes/cohortdash/internal/preset"
)

var (
	presetDescription string
	presetFrom        string
	presetFacets      facetFlags
)

var presetCmd = &cobra.Command{
	Use:   "preset",
	Short: "Manage saved filter presets",
}

var presetSaveCmd = &cobra.Command{
	Use:   "save <name>",
	Short: "Save the given facet filters under a name",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sel, err := presetFacets.selection(cmd, presetFrom)
		if err != nil {
			return err
		}
		// Check values against the data when a dataset is configured.
		if cfg.DatasetPath != "" {
			ds, err := loadDataset()
			if err != nil {
				return err
			}
			if err := filter.Vocabularies(ds).Validate(sel); err != nil {
				return err
			}
		}
		p := preset.New(args[0], presetDescription, sel)
		if err := presetStore().Save(p); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Saved preset %s (%s)\n", p.Name, sel.Describe())
		return nil
	},
}

var presetListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved presets",
	RunE: func(cmd *cobra.Command, args []string) error {
		list, err := presetStore().List()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if len(list) == 0 {
			fmt.Fprintln(out, "(no presets)")
			return nil
		}
		for _, p := range list {
			sel, err := p.Selection()
			desc := ""
			if err != nil {
				desc = "invalid: " + err.Error()
			} else {
				desc = sel.Describe()
			}
			fmt.Fprintf(out, "- %s: %s", p.Name, desc)
			if p.Description != "" {
				fmt.Fprintf(out, " (%s)", p.Description)
			}
			fmt.Fprintln(out)
		}
		return nil
	},
}

var presetShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Show a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := presetStore().Load(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "name: %s\n", p.Name)
		fmt.Fprintf(out, "id: %s\n", p.ID)
		if p.Description != "" {
			fmt.Fprintf(out, "description: %s\n", p.Description)
		}
		fmt.Fprintf(out, "updated: %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05"))
		keys := make([]string, 0, len(p.Filters))
		for k := range p.Filters {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintln(out, "filters:")
		if len(keys) == 0 {
			fmt.Fprintln(out, "  (none)")
		}
		for _, k := range keys {
			fmt.Fprintf(out, "  %s: %s\n", k, p.Filters[k])
		}
		return nil
	},
}

var presetDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := presetStore().Delete(args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted preset %s\n", args[0])
		return nil
	},
}

func init() {
	rootCmd.AddCommand(presetCmd)
	presetCmd.AddCommand(presetSaveCmd, presetListCmd, presetShowCmd, presetDeleteCmd)
	presetSaveCmd.Flags().StringVarP(&presetDescription, "description", "d", "", "preset description")
	presetSaveCmd.Flags().StringVar(&presetFrom, "from", "", "start from an existing preset")
	presetFacets = addFacetFlags(presetSaveCmd)
}
