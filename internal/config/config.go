package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/cohortdash/internal/aggregate"
	"github.com/KaramelBytes/cohortdash/internal/cohort"
	"github.com/KaramelBytes/cohortdash/internal/utils"
)

// Global configuration structure.
type Global struct {
	// Dataset loading
	DatasetPath   string   `mapstructure:"dataset_path" yaml:"dataset_path"`
	Delimiter     string   `mapstructure:"delimiter" yaml:"delimiter"`
	SheetName     string   `mapstructure:"sheet_name" yaml:"sheet_name"`
	MissingTokens []string `mapstructure:"missing_tokens" yaml:"missing_tokens"`
	DedupOrder    string   `mapstructure:"dedup_order" yaml:"dedup_order"`

	// HTTP service
	ListenAddr string `mapstructure:"listen_addr" yaml:"listen_addr"`
	GinMode    string `mapstructure:"gin_mode" yaml:"gin_mode"`
	// CORSOrigins lists origins allowed to call the API; empty disables CORS.
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`

	PresetsDir string `mapstructure:"presets_dir" yaml:"presets_dir"`

	// Charts
	ChartWidth  int   `mapstructure:"chart_width" yaml:"chart_width"`
	ChartHeight int   `mapstructure:"chart_height" yaml:"chart_height"`
	JitterSeed  int64 `mapstructure:"jitter_seed" yaml:"jitter_seed"`

	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`

	// SampleRows is how many head rows the Markdown report prints.
	SampleRows int `mapstructure:"sample_rows" yaml:"sample_rows"`
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.cohortdash/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := utils.HomeDir()
		if err != nil {
			return err
		}
		if err := utils.EnsureDir(dir); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (cfgFile) > env > config file > defaults.
// A .env file in the working directory seeds the environment first.
func Load(cfgFile string) (*Global, error) {
	_ = godotenv.Load()

	v := newViper()
	v.SetEnvPrefix("COHORTDASH")
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := utils.HomeDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a config file that exists must parse
	if err := v.ReadInConfig(); err != nil && cfgFile != "" {
		if _, statErr := os.Stat(cfgFile); statErr == nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}
	return decode(v)
}

// Defaults returns the configuration with no file or environment applied.
func Defaults() (*Global, error) {
	return decode(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetDefault("dataset_path", "")
	v.SetDefault("delimiter", "")
	v.SetDefault("sheet_name", "")
	v.SetDefault("missing_tokens", cohort.DefaultMissingTokens)
	v.SetDefault("dedup_order", aggregate.OrderMonth.String())
	v.SetDefault("listen_addr", ":8501")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("cors_origins", []string{})
	v.SetDefault("presets_dir", "")
	v.SetDefault("chart_width", 800)
	v.SetDefault("chart_height", 500)
	v.SetDefault("jitter_seed", 1)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("sample_rows", 5)
	return v
}

// decode unmarshals v and resolves the preset directory and home paths.
func decode(v *viper.Viper) (*Global, error) {
	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.PresetsDir == "" {
		dir, err := utils.HomeDir()
		if err != nil {
			return nil, err
		}
		c.PresetsDir = filepath.Join(dir, "presets")
	}
	var err error
	if c.PresetsDir, err = utils.ExpandHome(c.PresetsDir); err != nil {
		return nil, err
	}
	if c.DatasetPath, err = utils.ExpandHome(c.DatasetPath); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadOptions turns the dataset keys into loader options.
func (c *Global) LoadOptions() (cohort.LoadOptions, error) {
	opt := cohort.DefaultLoadOptions()
	opt.SheetName = c.SheetName
	if len(c.MissingTokens) > 0 {
		opt.MissingTokens = c.MissingTokens
	}
	switch c.Delimiter {
	case "":
	case "tab", `\t`, "\t":
		opt.Delimiter = '\t'
	default:
		r := []rune(c.Delimiter)
		if len(r) != 1 {
			return opt, fmt.Errorf("delimiter must be a single character, got %q", c.Delimiter)
		}
		opt.Delimiter = r[0]
	}
	return opt, nil
}

// AggregateOptions turns dedup_order into aggregation options.
func (c *Global) AggregateOptions() (aggregate.Options, error) {
	o, err := aggregate.ParseOrder(c.DedupOrder)
	if err != nil {
		return aggregate.Options{}, err
	}
	return aggregate.Options{Dedup: o}, nil
}
