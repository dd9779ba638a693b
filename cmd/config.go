package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
	cfgpkg "github.com/KaramelBytes/cohortdash/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View or set cohortdash configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if cfg == nil {
			fmt.Fprintln(out, "No config loaded")
			return nil
		}
		fmt.Fprintf(out, "dataset_path: %s\n", cfg.DatasetPath)
		if cfg.Delimiter != "" {
			fmt.Fprintf(out, "delimiter: %q\n", cfg.Delimiter)
		}
		if cfg.SheetName != "" {
			fmt.Fprintf(out, "sheet_name: %s\n", cfg.SheetName)
		}
		fmt.Fprintf(out, "missing_tokens: %d tokens\n", len(cfg.MissingTokens))
		fmt.Fprintf(out, "dedup_order: %s\n", cfg.DedupOrder)
		fmt.Fprintf(out, "listen_addr: %s\n", cfg.ListenAddr)
		fmt.Fprintf(out, "gin_mode: %s\n", cfg.GinMode)
		if len(cfg.CORSOrigins) > 0 {
			fmt.Fprintf(out, "cors_origins: %s\n", strings.Join(cfg.CORSOrigins, ", "))
		}
		fmt.Fprintf(out, "presets_dir: %s\n", cfg.PresetsDir)
		fmt.Fprintf(out, "chart_width: %d\n", cfg.ChartWidth)
		fmt.Fprintf(out, "chart_height: %d\n", cfg.ChartHeight)
		fmt.Fprintf(out, "jitter_seed: %d\n", cfg.JitterSeed)
		fmt.Fprintf(out, "log_level: %s\n", cfg.LogLevel)
		fmt.Fprintf(out, "log_format: %s\n", cfg.LogFormat)
		fmt.Fprintf(out, "sample_rows: %d\n", cfg.SampleRows)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and save to disk",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, val := args[0], args[1]
		if cfg == nil {
			c, err := cfgpkg.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = c
		}
		positive := func() (int, error) {
			i, err := strconv.Atoi(val)
			if err != nil || i <= 0 {
				return 0, fmt.Errorf("invalid positive int for %s: %v", key, val)
			}
			return i, nil
		}
		switch key {
		case "dataset_path":
			cfg.DatasetPath = val
		case "delimiter":
			cfg.Delimiter = val
			if _, err := cfg.LoadOptions(); err != nil {
				return err
			}
		case "sheet_name":
			cfg.SheetName = val
		case "missing_tokens":
			cfg.MissingTokens = splitList(val)
		case "dedup_order":
			o, err := aggregate.ParseOrder(val)
			if err != nil {
				return err
			}
			cfg.DedupOrder = o.String()
		case "listen_addr":
			cfg.ListenAddr = val
		case "gin_mode":
			switch val {
			case "debug", "release", "test":
				cfg.GinMode = val
			default:
				return fmt.Errorf("invalid gin_mode: %s (use debug, release or test)", val)
			}
		case "cors_origins":
			cfg.CORSOrigins = nil
			for _, o := range splitList(val) {
				if o != "" {
					cfg.CORSOrigins = append(cfg.CORSOrigins, o)
				}
			}
		case "presets_dir":
			cfg.PresetsDir = val
		case "chart_width":
			i, err := positive()
			if err != nil {
				return err
			}
			cfg.ChartWidth = i
		case "chart_height":
			i, err := positive()
			if err != nil {
				return err
			}
			cfg.ChartHeight = i
		case "jitter_seed":
			i, err := strconv.ParseInt(val, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid int for jitter_seed: %w", err)
			}
			cfg.JitterSeed = i
		case "log_level":
			switch strings.ToLower(val) {
			case "debug", "info", "warn", "error":
				cfg.LogLevel = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_level: %s (use debug, info, warn or error)", val)
			}
		case "log_format":
			switch strings.ToLower(val) {
			case "text", "json":
				cfg.LogFormat = strings.ToLower(val)
			default:
				return fmt.Errorf("invalid log_format: %s (use text or json)", val)
			}
		case "sample_rows":
			i, err := strconv.Atoi(val)
			if err != nil || i < 0 {
				return fmt.Errorf("invalid int for sample_rows: %v", val)
			}
			cfg.SampleRows = i
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
		if err := cfgpkg.Save(cfg, cfgFile); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Saved config")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}

// splitList splits a comma separated value and trims each item.
func splitList(val string) []string {
	items := strings.Split(val, ",")
	for i := range items {
		items[i] = strings.TrimSpace(items[i])
	}
	return items
}
