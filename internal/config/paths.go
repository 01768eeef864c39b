package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths contains all the application paths.
// Relative entries in PathsConfig are resolved against the working directory,
// since the tools are run from a checkout next to the published spreadsheets.
type Paths struct {
	BaseDir   string
	DataDir   string
	OutputDir string
	LogsDir   string
}

// GetPaths resolves the configured directories to absolute paths.
func (c *Config) GetPaths() (*Paths, error) {
	base, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return ResolvePaths(base, c.Paths), nil
}

// ResolvePaths resolves cfg against base.
func ResolvePaths(base string, cfg PathsConfig) *Paths {
	resolve := func(p string) string {
		if filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	return &Paths{
		BaseDir:   base,
		DataDir:   resolve(cfg.DataDir),
		OutputDir: resolve(cfg.OutputDir),
		LogsDir:   resolve(cfg.LogsDir),
	}
}

// EnsureDirectories creates the output and log directories if they don't exist.
// The data directory is read-only input and is only checked for existence.
func (p *Paths) EnsureDirectories() error {
	for _, dir := range []string{p.OutputDir, p.LogsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	if _, err := os.Stat(p.DataDir); err != nil {
		slog.Warn("Data directory not accessible",
			slog.String("data_dir", p.DataDir),
			slog.String("error", err.Error()))
	}
	return nil
}

// DataPath returns the path of a published input file.
func (p *Paths) DataPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, name)
}

// OutputPath returns the path of a generated chart or export.
func (p *Paths) OutputPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.OutputDir, name)
}

// LogPath returns the path of a log file.
func (p *Paths) LogPath(name string) string {
	return filepath.Join(p.LogsDir, name)
}
