package files

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "covidcli/internal/errors"
)

// touch creates name in dir with the given modification time.
func touch(t *testing.T, dir, name string, mod time.Time) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	require.NoError(t, os.Chtimes(path, mod, mod))
	return path
}

func TestFindFilesByPattern(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2021, 4, 1, 12, 0, 0, 0, time.UTC)
	touch(t, dir, "publishedweek142021.xlsx", base.Add(2*time.Hour))
	touch(t, dir, "publishedweek122021.xlsx", base)
	touch(t, dir, "publishedweek132021.xlsx", base.Add(time.Hour))
	touch(t, dir, "notes.txt", base)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "publishedweek.xlsx"), 0o755))

	d := NewDiscovery(dir)
	got, err := d.FindFilesByPattern("publishedweek*.xlsx")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "publishedweek122021.xlsx", got[0].Name)
	assert.Equal(t, "publishedweek142021.xlsx", got[2].Name)

	books, err := d.FindExcelFiles()
	require.NoError(t, err)
	assert.Len(t, books, 3)

	_, err = d.FindFilesByPattern("[")
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeValidation))
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2021, 4, 1, 12, 0, 0, 0, time.UTC)
	touch(t, dir, "old.xlsx", base)
	latest := touch(t, dir, "new.xlsx", base.Add(time.Hour))

	d := NewDiscovery(dir)
	tests := []struct {
		name    string
		in      string
		want    string
		errType apperrors.ErrorType
	}{
		{name: "plain name", in: "deaths.xlsx", want: filepath.Join(dir, "deaths.xlsx")},
		{name: "absolute", in: "/data/deaths.xlsx", want: "/data/deaths.xlsx"},
		{name: "latest match", in: "*.xlsx", want: latest},
		{name: "no match", in: "*.csv", errType: apperrors.ErrTypeStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := d.Resolve(tt.in)
			if tt.errType != "" {
				assert.True(t, apperrors.IsType(err, tt.errType), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetLatestFile(t *testing.T) {
	_, ok := GetLatestFile(nil)
	assert.False(t, ok)

	now := time.Now()
	got, ok := GetLatestFile([]FileInfo{
		{Name: "a", ModTime: now},
		{Name: "b", ModTime: now.Add(-time.Hour)},
		{Name: "c", ModTime: now},
	})
	require.True(t, ok)
	assert.Equal(t, "c", got.Name)
}

func TestIsPattern(t *testing.T) {
	assert.True(t, IsPattern("publishedweek*.xlsx"))
	assert.True(t, IsPattern("week?.xlsx"))
	assert.False(t, IsPattern("deaths.xlsx"))
	assert.True(t, IsWorkbook("A.XLSX"))
	assert.False(t, IsWorkbook("a.csv"))
}
