package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	apperrors "covidcli/internal/errors"
)

// FileInfo represents information about a discovered file
type FileInfo struct {
	Path    string
	Name    string
	Size    int64
	ModTime time.Time
}

// Discovery finds files relative to a base directory.
type Discovery struct {
	basePath string
}

// NewDiscovery creates a new file discovery instance
func NewDiscovery(basePath string) *Discovery {
	return &Discovery{basePath: basePath}
}

// FindFilesByPattern finds files matching a glob pattern, oldest first.
func (d *Discovery) FindFilesByPattern(pattern string) ([]FileInfo, error) {
	searchPattern := pattern
	if !filepath.IsAbs(pattern) {
		searchPattern = filepath.Join(d.basePath, pattern)
	}

	matches, err := filepath.Glob(searchPattern)
	if err != nil {
		return nil, apperrors.NewAppValidationError(fmt.Sprintf("invalid pattern %q: %v", pattern, err))
	}

	var files []FileInfo
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil || info.IsDir() {
			continue
		}
		files = append(files, FileInfo{
			Path:    match,
			Name:    filepath.Base(match),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
	}

	sort.Slice(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name < files[j].Name
		}
		return files[i].ModTime.Before(files[j].ModTime)
	})
	return files, nil
}

// FindExcelFiles finds all .xlsx workbooks in the base directory.
func (d *Discovery) FindExcelFiles() ([]FileInfo, error) {
	all, err := d.FindFilesByPattern("*")
	if err != nil {
		return nil, err
	}
	var files []FileInfo
	for _, f := range all {
		if IsWorkbook(f.Name) {
			files = append(files, f)
		}
	}
	return files, nil
}

// Resolve returns the path of name. A glob resolves to its most recently
// modified match and fails with STORAGE when nothing matches.
func (d *Discovery) Resolve(name string) (string, error) {
	if !IsPattern(name) {
		if filepath.IsAbs(name) {
			return name, nil
		}
		return filepath.Join(d.basePath, name), nil
	}

	files, err := d.FindFilesByPattern(name)
	if err != nil {
		return "", err
	}
	latest, ok := GetLatestFile(files)
	if !ok {
		return "", apperrors.NewStorageError(fmt.Sprintf("no file matches %q in %s", name, d.basePath), os.ErrNotExist)
	}

	slog.Debug("Resolved file pattern",
		slog.String("pattern", name),
		slog.String("path", latest.Path),
		slog.Int("candidates", len(files)))
	return latest.Path, nil
}

// GetLatestFile returns the most recently modified file from a list
func GetLatestFile(files []FileInfo) (FileInfo, bool) {
	if len(files) == 0 {
		return FileInfo{}, false
	}

	latest := files[0]
	for _, file := range files[1:] {
		if !file.ModTime.Before(latest.ModTime) {
			latest = file
		}
	}
	return latest, true
}

// IsPattern reports whether name contains glob metacharacters.
func IsPattern(name string) bool {
	return strings.ContainsAny(name, "*?[")
}

// IsWorkbook reports whether name has an Excel workbook extension.
func IsWorkbook(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".xlsx")
}
