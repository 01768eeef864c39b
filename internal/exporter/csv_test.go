package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"covidcli/internal/config"
	apperrors "covidcli/internal/errors"
)

var bom = []byte{0xEF, 0xBB, 0xBF}

// Setup test environment
func setupTestEnv(t *testing.T) (*config.Paths, string) {
	t.Helper()
	tempDir := t.TempDir()
	paths := config.ResolvePaths(tempDir, config.PathsConfig{
		DataDir:   "data",
		OutputDir: "output",
		LogsDir:   "logs",
	})
	return paths, tempDir
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, bom))).ReadAll()
	require.NoError(t, err)
	return records
}

func TestCSVWriter_WriteCSV(t *testing.T) {
	paths, tempDir := setupTestEnv(t)
	writer := NewCSVWriter(paths)

	tests := []struct {
		name      string
		filePath  string
		options   WriteOptions
		wantPath  string
		wantBOM   bool
		wantLines int
	}{
		{
			name:     "relative path goes to output dir",
			filePath: "england.csv",
			options: WriteOptions{
				Headers: []string{"date", "value"},
				Records: [][]string{{"2020-03-02", "1"}, {"2020-03-03", "2"}},
			},
			wantPath:  filepath.Join(tempDir, "output", "england.csv"),
			wantLines: 3,
		},
		{
			name:     "nested relative path",
			filePath: "reports/wave.csv",
			options: WriteOptions{
				Headers:   []string{"a"},
				Records:   [][]string{{"x"}},
				BOMPrefix: true,
			},
			wantPath:  filepath.Join(tempDir, "output", "reports", "wave.csv"),
			wantBOM:   true,
			wantLines: 2,
		},
		{
			name:      "absolute path is kept",
			filePath:  filepath.Join(tempDir, "elsewhere", "abs.csv"),
			options:   WriteOptions{Records: [][]string{{"only", "rows"}}},
			wantPath:  filepath.Join(tempDir, "elsewhere", "abs.csv"),
			wantLines: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := writer.WriteCSV(tt.filePath, tt.options)
			require.NoError(t, err)
			assert.Equal(t, tt.wantPath, got)

			data, err := os.ReadFile(got)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBOM, bytes.HasPrefix(data, bom))
			assert.Len(t, readCSV(t, got), tt.wantLines)
		})
	}
}

func TestCSVWriter_WriteSimpleCSV(t *testing.T) {
	paths, _ := setupTestEnv(t)
	writer := NewCSVWriter(paths)

	path, err := writer.WriteSimpleCSV("simple.csv", []string{"name", "note"}, [][]string{{"England", "comma, inside"}})
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, bom))
	assert.Equal(t, [][]string{{"name", "note"}, {"England", "comma, inside"}}, readCSV(t, path))
}

func TestCSVWriter_StorageError(t *testing.T) {
	paths, tempDir := setupTestEnv(t)
	blocker := filepath.Join(tempDir, "output")
	require.NoError(t, os.WriteFile(blocker, []byte("not a directory"), 0644))

	_, err := NewCSVWriter(paths).WriteCSV("x.csv", WriteOptions{Headers: []string{"a"}})
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeStorage), "got %v", err)
}

func TestStreamWriter(t *testing.T) {
	paths, _ := setupTestEnv(t)
	stream, err := NewCSVWriter(paths).CreateStreamWriter("stream.csv", []string{"i"})
	require.NoError(t, err)

	for _, rec := range []string{"1", "2", "3"} {
		require.NoError(t, stream.WriteRecord([]string{rec}))
	}
	require.NoError(t, stream.Close())

	assert.Equal(t, [][]string{{"i"}, {"1"}, {"2"}, {"3"}}, readCSV(t, stream.Path()))
}
