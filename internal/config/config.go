package config

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	apperrors "github.com/uanikitin/SurgIl-Dashboard-sub000/internal/errors"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
	Batch     BatchConfig     `yaml:"batch" envconfig:"BATCH"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Engine    flowrate.Config `yaml:"engine" envconfig:"ENGINE"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/flowcalc.log"`
}

// TelemetryConfig controls tracing and metrics export
type TelemetryConfig struct {
	ServiceName    string `yaml:"service_name" envconfig:"SERVICE_NAME" default:"flowcalc" validate:"required"`
	TracingEnabled bool   `yaml:"tracing_enabled" envconfig:"TRACING_ENABLED" default:"false"`
	MetricsEnabled bool   `yaml:"metrics_enabled" envconfig:"METRICS_ENABLED" default:"true"`
	// MetricsAddr serves /metrics when non-empty, e.g. ":9464".
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
}

// BatchConfig bounds concurrent scenario runs
type BatchConfig struct {
	MaxConcurrency  int           `yaml:"max_concurrency" envconfig:"MAX_CONCURRENCY" default:"4" validate:"gte=1,lte=64"`
	ScenarioTimeout time.Duration `yaml:"scenario_timeout" envconfig:"SCENARIO_TIMEOUT" default:"2m" validate:"gt=0"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load builds the configuration from defaults and FLOWCALC_* environment
// variables, then applies the YAML file at path when it exists. Keys present
// in the file override the environment; keys absent from it keep their
// environment or default values. An empty path searches the usual locations.
func Load(path string) (*Config, error) {
	var cfg Config

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, apperrors.NewConfigError("load config from env", err)
	}

	if path == "" {
		path = getConfigFilePath()
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// loadFromFile decodes the YAML file at path onto cfg
func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return apperrors.NewNotFoundError("config file " + path)
		}
		return apperrors.NewConfigError("read config file", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return apperrors.NewConfigError("parse config file", err).WithContext("path", path)
	}
	return nil
}

// validate checks ranges and enumerations across all sections
func (c *Config) validate() error {
	c.Logging.Level = strings.ToLower(c.Logging.Level)

	if err := validate.Struct(struct {
		Logging   LoggingConfig
		Telemetry TelemetryConfig
		Batch     BatchConfig
	}{c.Logging, c.Telemetry, c.Batch}); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]
			return apperrors.NewConfigError(
				fmt.Sprintf("invalid %s: %v", strings.ToLower(fe.Namespace()), fe.Value()), err)
		}
		return apperrors.NewConfigError("invalid configuration", err)
	}

	if (c.Logging.Output == "file" || c.Logging.Output == "both") && c.Logging.FilePath == "" {
		c.Logging.FilePath = DefaultLogFile
	}

	// Resolved paths must stay stable when resolved again.
	if c.Paths.BaseDir != "" {
		abs, err := filepath.Abs(c.Paths.BaseDir)
		if err != nil {
			return apperrors.NewConfigError("invalid paths.base_dir", err)
		}
		c.Paths.BaseDir = abs
	}

	return c.Engine.Validate()
}

// getConfigFilePath returns the first config file found in common locations
func getConfigFilePath() string {
	locations := []string{
		"flowcalc.yaml",
		"configs/flowcalc.yaml",
		"../configs/flowcalc.yaml",
	}

	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}

	return "" // No config file found, use env vars only
}

// Default returns default configuration
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:    "info",
			Output:   "console",
			FilePath: DefaultLogFile,
		},
		Telemetry: TelemetryConfig{
			ServiceName:    AppName,
			MetricsEnabled: true,
		},
		Batch: BatchConfig{
			MaxConcurrency:  DefaultMaxConcurrency,
			ScenarioTimeout: DefaultScenarioTimeout,
		},
		Paths: PathsConfig{
			OutputDir: DefaultOutputDir,
		},
		Engine: flowrate.DefaultConfig(),
	}
}
