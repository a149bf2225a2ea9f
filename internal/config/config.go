package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "spellpanel/internal/errors"
)

// envPrefix is the prefix for all environment variable overrides
const envPrefix = "SPELLPANEL"

// Config represents the complete application configuration
type Config struct {
	Aggregation AggregationConfig `yaml:"aggregation" envconfig:"AGGREGATION"`
	Logging     LoggingConfig     `yaml:"logging" envconfig:"LOGGING"`
	Paths       PathsConfig       `yaml:"paths" envconfig:"PATHS"`
}

// AggregationConfig contains the knobs recognized by the aggregation driver
type AggregationConfig struct {
	HorizonYear          int `yaml:"horizon_year" envconfig:"HORIZON_YEAR" default:"2024" validate:"gte=1900"`
	ChunkSize            int `yaml:"chunk_size" envconfig:"CHUNK_SIZE" default:"500000" validate:"gt=0"`
	MinDiversityCellSize int `yaml:"min_diversity_cell_size" envconfig:"MIN_DIVERSITY_CELL_SIZE" default:"10" validate:"gte=1"`
	DecimalPrecision     int `yaml:"decimal_precision" envconfig:"DECIMAL_PRECISION" default:"4" validate:"gte=0,lte=8"`
	Workers              int `yaml:"workers" envconfig:"WORKERS" default:"1" validate:"gte=1"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/spellpanel.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	InputFile  string `yaml:"input_file" envconfig:"INPUT_FILE" default:"data/spells.csv"`
	ReportsDir string `yaml:"reports_dir" envconfig:"REPORTS_DIR" default:"data/reports"`
	LogsDir    string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// Load loads configuration from environment variables and an optional config file.
// Precedence: environment variables, then config file values, then defaults.
func Load() (*Config, error) {
	return LoadFrom(getConfigFilePath())
}

// LoadFrom loads configuration using the given YAML file path if it exists.
func LoadFrom(configFile string) (*Config, error) {
	var cfg Config

	// Defaults (and env values) from struct tags
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("failed to load config from env", err)
	}

	// Overlay values from the config file if it exists
	if configFile != "" {
		if _, err := os.Stat(configFile); err == nil {
			if err := loadFromFile(configFile, &cfg); err != nil {
				return nil, apperrors.NewConfigError("failed to load config from file", err)
			}
			// Re-assert explicitly set environment variables over file values.
			// A second envconfig pass would reset defaulted fields, so only
			// variables actually present in the environment are applied.
			if err := cfg.overlayEnv(); err != nil {
				return nil, apperrors.NewConfigError("failed to apply env overrides", err)
			}
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the configuration against its struct tag constraints
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			first := verrs[0]
			msg := fmt.Sprintf("invalid value for %s (constraint %q)", first.Namespace(), first.Tag())
			return apperrors.NewConfigError(msg, err)
		}
		return apperrors.NewConfigError("config validation failed", err)
	}
	return nil
}

// overlayEnv applies environment variables that are explicitly set,
// leaving file-provided values intact otherwise.
func (c *Config) overlayEnv() error {
	intFields := map[string]*int{
		"AGGREGATION_HORIZON_YEAR":            &c.Aggregation.HorizonYear,
		"AGGREGATION_CHUNK_SIZE":              &c.Aggregation.ChunkSize,
		"AGGREGATION_MIN_DIVERSITY_CELL_SIZE": &c.Aggregation.MinDiversityCellSize,
		"AGGREGATION_DECIMAL_PRECISION":       &c.Aggregation.DecimalPrecision,
		"AGGREGATION_WORKERS":                 &c.Aggregation.Workers,
	}
	for suffix, target := range intFields {
		if raw, ok := os.LookupEnv(envPrefix + "_" + suffix); ok {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				return fmt.Errorf("parse %s_%s: %w", envPrefix, suffix, err)
			}
			*target = parsed
		}
	}

	stringFields := map[string]*string{
		"LOGGING_LEVEL":     &c.Logging.Level,
		"LOGGING_OUTPUT":    &c.Logging.Output,
		"LOGGING_FILE_PATH": &c.Logging.FilePath,
		"PATHS_INPUT_FILE":  &c.Paths.InputFile,
		"PATHS_REPORTS_DIR": &c.Paths.ReportsDir,
		"PATHS_LOGS_DIR":    &c.Paths.LogsDir,
	}
	for suffix, target := range stringFields {
		if raw, ok := os.LookupEnv(envPrefix + "_" + suffix); ok {
			*target = raw
		}
	}

	return nil
}

// loadFromFile reads YAML configuration into cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

// getConfigFilePath returns the default config file location next to the executable,
// falling back to the working directory.
func getConfigFilePath() string {
	if exe, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(exe), "spellpanel.yaml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return "spellpanel.yaml"
}
