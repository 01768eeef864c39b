package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetPaths(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)

	t.Run("relative directories resolve against the working directory", func(t *testing.T) {
		paths, err := Default().GetPaths()
		require.NoError(t, err)

		assert.Equal(t, wd, paths.BaseDir)
		assert.True(t, filepath.IsAbs(paths.DataDir), "DataDir should be absolute")
		assert.True(t, filepath.IsAbs(paths.OutputDir), "OutputDir should be absolute")
		assert.True(t, filepath.IsAbs(paths.LogsDir), "LogsDir should be absolute")
		assert.Equal(t, filepath.Join(wd, Default().Paths.DataDir), paths.DataDir)
	})

	t.Run("consistent calls return same paths", func(t *testing.T) {
		first, err := Default().GetPaths()
		require.NoError(t, err)
		second, err := Default().GetPaths()
		require.NoError(t, err)
		assert.Equal(t, first, second)
	})
}

func TestEnsureDirectories(t *testing.T) {
	base := t.TempDir()
	paths := ResolvePaths(base, PathsConfig{DataDir: "data", OutputDir: "out/charts", LogsDir: "logs"})

	t.Run("creates output and log directories", func(t *testing.T) {
		require.NoError(t, paths.EnsureDirectories())
		assert.DirExists(t, paths.OutputDir)
		assert.DirExists(t, paths.LogsDir)
		assert.NoDirExists(t, paths.DataDir, "data directory is input only")
	})

	t.Run("idempotent", func(t *testing.T) {
		require.NoError(t, paths.EnsureDirectories())
		require.NoError(t, paths.EnsureDirectories())
	})

	t.Run("output path is a file", func(t *testing.T) {
		blocked := ResolvePaths(base, PathsConfig{DataDir: "data", OutputDir: "blocked", LogsDir: "logs"})
		require.NoError(t, os.WriteFile(blocked.OutputDir, []byte("x"), 0o644))
		assert.Error(t, blocked.EnsureDirectories())
	})
}

func TestPathHelperMethods(t *testing.T) {
	paths := ResolvePaths("/work", PathsConfig{DataDir: "data", OutputDir: "output", LogsDir: "logs"})

	tests := []struct {
		name     string
		got      string
		expected string
	}{
		{"data file", paths.DataPath("publishedweek142021.xlsx"), filepath.Join("/work", "data", "publishedweek142021.xlsx")},
		{"absolute data file", paths.DataPath("/srv/owid.csv"), "/srv/owid.csv"},
		{"output file", paths.OutputPath("england.png"), filepath.Join("/work", "output", "england.png")},
		{"absolute output file", paths.OutputPath("/tmp/england.png"), "/tmp/england.png"},
		{"log file", paths.LogPath("covidcli.log"), filepath.Join("/work", "logs", "covidcli.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}
