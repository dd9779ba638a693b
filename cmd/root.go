package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	cfgpkg "github.com/KaramelBytes/cohortdash/internal/config"
)

var (
	cfgFile     string
	debug       bool
	datasetPath string

	// Loaded configuration
	cfg *cfgpkg.Global
)

var rootCmd = &cobra.Command{
	Use:   "cohortdash",
	Short: "cohortdash: filter and summarize a clinical cohort table",
	Long: `cohortdash loads a cohort export (one row per sample, many samples per subject),
filters it by demographic, clinical and medication facets, and reports subject
counts, distributions and drug exposure as text, JSON, charts or an HTTP API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ~/.cohortdash/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&datasetPath, "dataset", "", "cohort file to load (.csv, .tsv, .xlsx; overrides dataset_path)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: allow running commands that don't need config
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v; using defaults\n", err)
		if c, err = cfgpkg.Defaults(); err != nil {
			c = &cfgpkg.Global{}
		}
	}
	cfg = c
	if rootCmd.PersistentFlags().Changed("dataset") {
		cfg.DatasetPath = datasetPath
	}
	setupLogging()
}

// setupLogging installs the default slog logger from log_level and
// log_format. Logs go to stderr so command output stays clean.
func setupLogging() {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if debug {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		h = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(h))
}
