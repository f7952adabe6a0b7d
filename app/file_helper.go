package app

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/ludo-technologies/tsrefs/internal/constants"
)

// FileHelper provides file operation utilities
type FileHelper struct {
	fs afero.Fs
}

// NewFileHelper creates a FileHelper over the OS filesystem
func NewFileHelper() *FileHelper {
	return NewFileHelperWithFs(afero.NewOsFs())
}

// NewFileHelperWithFs creates a FileHelper over fs
func NewFileHelperWithFs(fs afero.Fs) *FileHelper {
	return &FileHelper{fs: fs}
}

// IsTargetFile checks if a file can hold a referenced class
func (h *FileHelper) IsTargetFile(path string) bool {
	ext := filepath.Ext(path)
	for _, allowed := range constants.DirectoryExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// IsDataSourceFile checks if a file can hold the initializer
func (h *FileHelper) IsDataSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".ts" || ext == ".mts" || ext == ".cts" || ext == ".tsx"
}

// FileExists checks if a regular file exists
func (h *FileHelper) FileExists(path string) (bool, error) {
	info, err := h.fs.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return !info.IsDir(), nil
}

// ReadFile reads file content
func (h *FileHelper) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(h.fs, path)
}

// WatchDirectories returns every existing directory below the static prefix
// of each pattern, skipping node_modules and hidden directories
func (h *FileHelper) WatchDirectories(root string, patterns []string) ([]string, error) {
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		base := patternBase(root, pattern)
		info, err := h.fs.Stat(base)
		if err != nil {
			continue
		}
		if !info.IsDir() {
			base = filepath.Dir(base)
		}

		err = afero.Walk(h.fs, base, func(path string, info os.FileInfo, err error) error {
			if err != nil {
				return err
			}
			if !info.IsDir() {
				return nil
			}
			name := info.Name()
			if path != base && (name == "node_modules" || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			seen[path] = true
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}
	sort.Strings(dirs)
	return dirs, nil
}

// patternBase returns the directory a glob pattern can only match below
func patternBase(root, pattern string) string {
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(root, pattern)
	}
	segments := strings.Split(filepath.ToSlash(pattern), "/")
	for i, segment := range segments {
		if strings.ContainsAny(segment, "*?[{") {
			return filepath.FromSlash(strings.Join(segments[:i], "/"))
		}
	}
	return filepath.Clean(pattern)
}
