package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 28, cfg.Estimator.LagDays)
	assert.Equal(t, 7, cfg.Estimator.Window)
	assert.Equal(t, 1e-7, cfg.Estimator.Tolerance)
	assert.Equal(t, 1, cfg.Report.Workers)
	assert.Equal(t, "none", cfg.Telemetry.TraceExporter)
	require.NoError(t, cfg.validate())
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("COVID_ESTIMATOR_LAG_DAYS", "21")
	t.Setenv("COVID_ESTIMATOR_WINDOW", "5")
	t.Setenv("COVID_REPORT_WORKERS", "4")
	t.Setenv("COVID_LOGGING_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 21, cfg.Estimator.LagDays)
	assert.Equal(t, 5, cfg.Estimator.Window)
	assert.Equal(t, 4, cfg.Report.Workers)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 1e-7, cfg.Estimator.Tolerance)
	assert.Equal(t, 5*time.Second, cfg.Telemetry.FlushTimeout)
}

func TestLoad_FileMergedUnderEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	yamlContent := `
estimator:
  lag_days: 14
  window: 9
report:
  workers: 3
paths:
  output_dir: charts
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContent), 0644))
	t.Setenv("COVID_ESTIMATOR_WINDOW", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 14, cfg.Estimator.LagDays, "file value used when env unset")
	assert.Equal(t, 7, cfg.Estimator.Window, "env wins over file")
	assert.Equal(t, 3, cfg.Report.Workers)
	assert.Equal(t, "charts", cfg.Paths.OutputDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"negative lag", func(c *Config) { c.Estimator.LagDays = -1 }, true},
		{"zero lag allowed", func(c *Config) { c.Estimator.LagDays = 0 }, false},
		{"zero window", func(c *Config) { c.Estimator.Window = 0 }, true},
		{"min periods above window", func(c *Config) { c.Estimator.MinPeriods = 8 }, true},
		{"tolerance zero", func(c *Config) { c.Estimator.Tolerance = 0 }, true},
		{"tolerance one", func(c *Config) { c.Estimator.Tolerance = 1 }, true},
		{"no workers", func(c *Config) { c.Report.Workers = 0 }, true},
		{"bad exporter", func(c *Config) { c.Telemetry.TraceExporter = "otlp" }, true},
		{"stdout exporter", func(c *Config) { c.Telemetry.TraceExporter = "stdout" }, false},
		{"bad chart size", func(c *Config) { c.Report.WidthInches = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidate_NormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "syslog"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, "logs/covidcli.log", cfg.Logging.FilePath)
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	abs := filepath.Join(base, "elsewhere")

	paths := ResolvePaths(base, PathsConfig{DataDir: "data", OutputDir: abs, LogsDir: "logs"})

	assert.Equal(t, filepath.Join(base, "data"), paths.DataDir)
	assert.Equal(t, abs, paths.OutputDir)
	assert.Equal(t, filepath.Join(base, "data", "publishedweek142021.xlsx"), paths.DataPath("publishedweek142021.xlsx"))
	assert.Equal(t, "/tmp/x.png", paths.OutputPath("/tmp/x.png"))
	assert.Equal(t, filepath.Join(abs, "fig.png"), paths.OutputPath("fig.png"))

	require.NoError(t, paths.EnsureDirectories())
	assert.DirExists(t, paths.OutputDir)
	assert.DirExists(t, paths.LogsDir)
}
