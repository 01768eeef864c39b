// Package config provides centralized configuration management for covidcli.
// It handles loading configuration from the environment and an optional YAML
// file, validation, and path resolution for inputs and generated charts.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. config.yaml or configs/config.yaml
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern COVID_<SECTION>_<FIELD>:
//
//	COVID_ESTIMATOR_LAG_DAYS=28
//	COVID_ESTIMATOR_WINDOW=7
//	COVID_ESTIMATOR_MIN_PERIODS=0      # 0 means "the full window"
//	COVID_REPORT_WORKERS=1
//	COVID_TELEMETRY_TRACE_EXPORTER=stdout
//	COVID_TELEMETRY_METRICS_FILE=output/covidcli.prom
//	COVID_LOGGING_LEVEL=debug
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	paths, err := cfg.GetPaths()
//
// For tests, config.Default() returns a configuration that needs no
// environment or files.
package config
