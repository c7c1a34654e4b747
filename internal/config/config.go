package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/explain-cli/internal/summary"
)

// Global configuration structure.
type Global struct {
	// Mining thresholds
	MinSupport               float64 `mapstructure:"min_support" yaml:"min_support"`
	MinRiskRatio             float64 `mapstructure:"min_risk_ratio" yaml:"min_risk_ratio"`
	UseAttributeCombinations bool    `mapstructure:"use_attribute_combinations" yaml:"use_attribute_combinations"`
	MaxOrder                 int     `mapstructure:"max_order" yaml:"max_order"`
	Workers                  int     `mapstructure:"workers" yaml:"workers"`

	// Outlier labeling
	OutlierPredicate string  `mapstructure:"outlier_predicate" yaml:"outlier_predicate"`
	OutlierColumn    string  `mapstructure:"outlier_column" yaml:"outlier_column"`
	Classifier       string  `mapstructure:"classifier" yaml:"classifier"`
	Percentile       float64 `mapstructure:"percentile" yaml:"percentile"`
	IncludeHigh      bool    `mapstructure:"include_high" yaml:"include_high"`
	IncludeLow       bool    `mapstructure:"include_low" yaml:"include_low"`
	MADThreshold     float64 `mapstructure:"mad_threshold" yaml:"mad_threshold"`

	// Loading
	MaxRows int `mapstructure:"max_rows" yaml:"max_rows"`

	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
	LogFile  string `mapstructure:"log_file" yaml:"log_file"`
	RunsDir  string `mapstructure:"runs_dir" yaml:"runs_dir"`
}

// Keys lists the settable keys in display order.
var Keys = []string{
	"min_support", "min_risk_ratio", "use_attribute_combinations", "max_order", "workers",
	"outlier_predicate", "outlier_column", "classifier", "percentile", "include_high",
	"include_low", "mad_threshold", "max_rows", "log_level", "log_file", "runs_dir",
}

// Dir returns ~/.explain.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".explain"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.explain/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	var path string
	if cfgFile != "" {
		path = cfgFile
	} else {
		dir, err := Dir()
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("mkdir config dir: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults. Command flags are applied on top by the caller.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EXPLAIN")
	v.AutomaticEnv()

	v.SetDefault("min_support", 0.01)
	v.SetDefault("min_risk_ratio", 3.0)
	v.SetDefault("use_attribute_combinations", true)
	v.SetDefault("max_order", 0)
	v.SetDefault("workers", 0)
	v.SetDefault("outlier_predicate", "==1")
	v.SetDefault("outlier_column", "_OUTLIER")
	v.SetDefault("classifier", "percentile")
	v.SetDefault("percentile", 1.0)
	v.SetDefault("include_high", true)
	v.SetDefault("include_low", true)
	v.SetDefault("mad_threshold", 3.5)
	v.SetDefault("max_rows", 1000000)
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_file", "")
	v.SetDefault("runs_dir", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	// optional read; a missing file falls back to defaults
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	// Resolve runs_dir default: ~/.explain/runs
	if c.RunsDir == "" {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		c.RunsDir = filepath.Join(dir, "runs")
	}
	c.Classifier = strings.ToLower(strings.TrimSpace(c.Classifier))
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &c, nil
}

// Validate rejects values the miner or classifiers cannot work with.
func (c *Global) Validate() error {
	if c.MinSupport < 0 || c.MinSupport > 1 {
		return fmt.Errorf("min_support must be within [0, 1], got %v", c.MinSupport)
	}
	if c.MinRiskRatio < 0 {
		return fmt.Errorf("min_risk_ratio must be >= 0, got %v", c.MinRiskRatio)
	}
	if c.MaxOrder < 0 || c.Workers < 0 || c.MaxRows < 0 {
		return fmt.Errorf("max_order, workers and max_rows must be >= 0")
	}
	if _, err := summary.ParsePredicate(c.OutlierPredicate); err != nil {
		return err
	}
	switch c.Classifier {
	case "percentile", "mad", "label":
	default:
		return fmt.Errorf("invalid classifier: %s (use percentile, mad or label)", c.Classifier)
	}
	if c.Percentile <= 0 || c.Percentile >= 100 {
		return fmt.Errorf("percentile must be in (0, 100), got %v", c.Percentile)
	}
	if !c.IncludeHigh && !c.IncludeLow {
		return fmt.Errorf("at least one of include_high and include_low must be true")
	}
	if c.MADThreshold <= 0 {
		return fmt.Errorf("mad_threshold must be > 0, got %v", c.MADThreshold)
	}
	return nil
}

// Get returns the display value of key.
func (c *Global) Get(key string) (string, error) {
	switch key {
	case "min_support":
		return strconv.FormatFloat(c.MinSupport, 'g', -1, 64), nil
	case "min_risk_ratio":
		return strconv.FormatFloat(c.MinRiskRatio, 'g', -1, 64), nil
	case "use_attribute_combinations":
		return strconv.FormatBool(c.UseAttributeCombinations), nil
	case "max_order":
		return strconv.Itoa(c.MaxOrder), nil
	case "workers":
		return strconv.Itoa(c.Workers), nil
	case "outlier_predicate":
		return c.OutlierPredicate, nil
	case "outlier_column":
		return c.OutlierColumn, nil
	case "classifier":
		return c.Classifier, nil
	case "percentile":
		return strconv.FormatFloat(c.Percentile, 'g', -1, 64), nil
	case "include_high":
		return strconv.FormatBool(c.IncludeHigh), nil
	case "include_low":
		return strconv.FormatBool(c.IncludeLow), nil
	case "mad_threshold":
		return strconv.FormatFloat(c.MADThreshold, 'g', -1, 64), nil
	case "max_rows":
		return strconv.Itoa(c.MaxRows), nil
	case "log_level":
		return c.LogLevel, nil
	case "log_file":
		return c.LogFile, nil
	case "runs_dir":
		return c.RunsDir, nil
	default:
		return "", fmt.Errorf("unknown key: %s", key)
	}
}

// Set parses val into key and re-validates the configuration.
func (c *Global) Set(key, val string) error {
	next := *c
	var err error
	switch key {
	case "min_support":
		next.MinSupport, err = parseFloat(key, val)
	case "min_risk_ratio":
		next.MinRiskRatio, err = parseFloat(key, val)
	case "use_attribute_combinations":
		next.UseAttributeCombinations, err = parseBool(key, val)
	case "max_order":
		next.MaxOrder, err = parseInt(key, val)
	case "workers":
		next.Workers, err = parseInt(key, val)
	case "outlier_predicate":
		next.OutlierPredicate = val
	case "outlier_column":
		next.OutlierColumn = val
	case "classifier":
		next.Classifier = strings.ToLower(val)
	case "percentile":
		next.Percentile, err = parseFloat(key, val)
	case "include_high":
		next.IncludeHigh, err = parseBool(key, val)
	case "include_low":
		next.IncludeLow, err = parseBool(key, val)
	case "mad_threshold":
		next.MADThreshold, err = parseFloat(key, val)
	case "max_rows":
		next.MaxRows, err = parseInt(key, val)
	case "log_level":
		next.LogLevel = strings.ToLower(val)
	case "log_file":
		next.LogFile = val
	case "runs_dir":
		next.RunsDir = val
	default:
		return fmt.Errorf("unknown key: %s", key)
	}
	if err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func parseFloat(key, val string) (float64, error) {
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float for %s: %v", key, val)
	}
	return f, nil
}

func parseInt(key, val string) (int, error) {
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("invalid int for %s: %v", key, val)
	}
	return i, nil
}

func parseBool(key, val string) (bool, error) {
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("invalid bool for %s: %v", key, val)
	}
	return b, nil
}
