package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"
)

// Config represents the complete application configuration
type Config struct {
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Paths     PathsConfig     `yaml:"paths" envconfig:"PATHS"`
	Estimator EstimatorConfig `yaml:"estimator" envconfig:"ESTIMATOR"`
	Report    ReportConfig    `yaml:"report" envconfig:"REPORT"`
	Telemetry TelemetryConfig `yaml:"telemetry" envconfig:"TELEMETRY"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level    string `yaml:"level" envconfig:"LEVEL" default:"info"`
	Format   string `yaml:"format" envconfig:"FORMAT" default:"json"`
	Output   string `yaml:"output" envconfig:"OUTPUT" default:"console"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH" default:"logs/covidcli.log"`
}

// PathsConfig contains file system paths configuration
type PathsConfig struct {
	DataDir   string `yaml:"data_dir" envconfig:"DATA_DIR" default:"data"`
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" default:"output"`
	LogsDir   string `yaml:"logs_dir" envconfig:"LOGS_DIR" default:"logs"`
}

// EstimatorConfig holds the fatal-infection estimator defaults.
type EstimatorConfig struct {
	LagDays    int     `yaml:"lag_days" envconfig:"LAG_DAYS" default:"28"`
	Window     int     `yaml:"window" envconfig:"WINDOW" default:"7"`
	MinPeriods int     `yaml:"min_periods" envconfig:"MIN_PERIODS" default:"0"`
	Tolerance  float64 `yaml:"tolerance" envconfig:"TOLERANCE" default:"1e-7"`
}

// ReportConfig controls the chart job runner.
type ReportConfig struct {
	Workers      int     `yaml:"workers" envconfig:"WORKERS" default:"1"`
	WidthInches  float64 `yaml:"width_inches" envconfig:"WIDTH_INCHES" default:"16"`
	HeightInches float64 `yaml:"height_inches" envconfig:"HEIGHT_INCHES" default:"5"`
}

// TelemetryConfig controls tracing and the metrics textfile.
type TelemetryConfig struct {
	TraceExporter string        `yaml:"trace_exporter" envconfig:"TRACE_EXPORTER" default:"none"`
	MetricsFile   string        `yaml:"metrics_file" envconfig:"METRICS_FILE"`
	FlushTimeout  time.Duration `yaml:"flush_timeout" envconfig:"FLUSH_TIMEOUT" default:"5s"`
}

// Load loads configuration from environment variables and config file
func Load() (*Config, error) {
	var cfg Config

	// Load from environment variables first
	if err := envconfig.Process("COVID", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if configFile := getConfigFilePath(); configFile != "" {
		fileConfig, err := loadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
		cfg = mergeConfigs(*fileConfig, cfg, envSet)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadFromFile loads configuration from YAML file
func loadFromFile(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// envSet reports whether an environment variable was explicitly provided.
func envSet(name string) bool {
	_, ok := os.LookupEnv(name)
	return ok
}

// mergeConfigs merges file config with env config (env takes precedence).
// A file value is used wherever the corresponding variable is unset in the
// environment and the file provides a non-zero value.
func mergeConfigs(fileConfig, envConfig Config, isSet func(string) bool) Config {
	pickS := func(env *string, file, name string) {
		if !isSet(name) && file != "" {
			*env = file
		}
	}
	pickI := func(env *int, file int, name string) {
		if !isSet(name) && file != 0 {
			*env = file
		}
	}
	pickF := func(env *float64, file float64, name string) {
		if !isSet(name) && file != 0 {
			*env = file
		}
	}

	pickS(&envConfig.Logging.Level, fileConfig.Logging.Level, "COVID_LOGGING_LEVEL")
	pickS(&envConfig.Logging.Format, fileConfig.Logging.Format, "COVID_LOGGING_FORMAT")
	pickS(&envConfig.Logging.Output, fileConfig.Logging.Output, "COVID_LOGGING_OUTPUT")
	pickS(&envConfig.Logging.FilePath, fileConfig.Logging.FilePath, "COVID_LOGGING_FILE_PATH")

	pickS(&envConfig.Paths.DataDir, fileConfig.Paths.DataDir, "COVID_PATHS_DATA_DIR")
	pickS(&envConfig.Paths.OutputDir, fileConfig.Paths.OutputDir, "COVID_PATHS_OUTPUT_DIR")
	pickS(&envConfig.Paths.LogsDir, fileConfig.Paths.LogsDir, "COVID_PATHS_LOGS_DIR")

	pickI(&envConfig.Estimator.LagDays, fileConfig.Estimator.LagDays, "COVID_ESTIMATOR_LAG_DAYS")
	pickI(&envConfig.Estimator.Window, fileConfig.Estimator.Window, "COVID_ESTIMATOR_WINDOW")
	pickI(&envConfig.Estimator.MinPeriods, fileConfig.Estimator.MinPeriods, "COVID_ESTIMATOR_MIN_PERIODS")
	pickF(&envConfig.Estimator.Tolerance, fileConfig.Estimator.Tolerance, "COVID_ESTIMATOR_TOLERANCE")

	pickI(&envConfig.Report.Workers, fileConfig.Report.Workers, "COVID_REPORT_WORKERS")
	pickF(&envConfig.Report.WidthInches, fileConfig.Report.WidthInches, "COVID_REPORT_WIDTH_INCHES")
	pickF(&envConfig.Report.HeightInches, fileConfig.Report.HeightInches, "COVID_REPORT_HEIGHT_INCHES")

	pickS(&envConfig.Telemetry.TraceExporter, fileConfig.Telemetry.TraceExporter, "COVID_TELEMETRY_TRACE_EXPORTER")
	pickS(&envConfig.Telemetry.MetricsFile, fileConfig.Telemetry.MetricsFile, "COVID_TELEMETRY_METRICS_FILE")
	if !isSet("COVID_TELEMETRY_FLUSH_TIMEOUT") && fileConfig.Telemetry.FlushTimeout != 0 {
		envConfig.Telemetry.FlushTimeout = fileConfig.Telemetry.FlushTimeout
	}

	return envConfig
}

// validate validates the configuration
func (c *Config) validate() error {
	if c.Estimator.LagDays < 0 {
		return fmt.Errorf("estimator lag must not be negative: %d", c.Estimator.LagDays)
	}
	if c.Estimator.Window < 1 {
		return fmt.Errorf("estimator window must be at least 1: %d", c.Estimator.Window)
	}
	if c.Estimator.MinPeriods < 0 || c.Estimator.MinPeriods > c.Estimator.Window {
		return fmt.Errorf("estimator min periods must be in [0, %d]: %d", c.Estimator.Window, c.Estimator.MinPeriods)
	}
	if c.Estimator.Tolerance <= 0 || c.Estimator.Tolerance >= 1 {
		return fmt.Errorf("estimator tolerance must be in (0, 1): %g", c.Estimator.Tolerance)
	}
	if c.Report.Workers < 1 {
		return fmt.Errorf("report workers must be at least 1: %d", c.Report.Workers)
	}
	if c.Report.WidthInches <= 0 || c.Report.HeightInches <= 0 {
		return fmt.Errorf("chart dimensions must be positive")
	}

	switch c.Telemetry.TraceExporter {
	case "none", "stdout":
	default:
		return fmt.Errorf("unsupported trace exporter: %s", c.Telemetry.TraceExporter)
	}

	if c.Logging.Format != "json" {
		c.Logging.Format = "json"
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		c.Logging.Output = "console"
	}
	if c.Logging.FilePath == "" {
		c.Logging.FilePath = "logs/covidcli.log"
	}

	return nil
}

// getConfigFilePath returns the path to the config file
func getConfigFilePath() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
		"../configs/config.yaml",
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
			Format:   "json",
			Output:   "console",
			FilePath: "logs/covidcli.log",
		},
		Paths: PathsConfig{
			DataDir:   "data",
			OutputDir: "output",
			LogsDir:   "logs",
		},
		Estimator: EstimatorConfig{
			LagDays:   28,
			Window:    7,
			Tolerance: 1e-7,
		},
		Report: ReportConfig{
			Workers:      1,
			WidthInches:  16,
			HeightInches: 5,
		},
		Telemetry: TelemetryConfig{
			TraceExporter: "none",
			FlushTimeout:  5 * time.Second,
		},
	}
}
