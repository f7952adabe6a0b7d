// Package testutil provides helpers for testing tsrefs components
package testutil

import (
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/ludo-technologies/tsrefs/internal/parser"
)

// Files maps slash-separated paths relative to a root to file contents
type Files map[string]string

// NewFs returns an in-memory filesystem holding files under root
func NewFs(t *testing.T, root string, files Files) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	WriteFiles(t, fs, root, files)
	return fs
}

// WriteFiles writes files under root, creating directories as needed
func WriteFiles(t *testing.T, fs afero.Fs, root string, files Files) {
	t.Helper()
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("Failed to create directory for %s: %v", name, err)
		}
		if err := afero.WriteFile(fs, path, []byte(Dedent(files[name])), 0o644); err != nil {
			t.Fatalf("Failed to write %s: %v", name, err)
		}
	}
}

// ReadFile returns the content of path, failing the test when it is missing
func ReadFile(t *testing.T, fs afero.Fs, path string) string {
	t.Helper()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read %s: %v", path, err)
	}
	return string(data)
}

// ParseTS parses TypeScript source, failing the test on syntax errors
func ParseTS(t *testing.T, source string) *parser.File {
	t.Helper()
	p := parser.NewParser()
	defer p.Close()

	file, err := p.ParseString(source)
	if err != nil {
		t.Fatalf("Failed to parse test code: %v", err)
	}
	if file.HasError {
		t.Fatalf("Test code has syntax errors:\n%s", source)
	}
	return file
}

// Dedent strips the common leading indentation of a raw string literal and
// a single leading newline, so fixtures can be indented with the test code
func Dedent(s string) string {
	s = strings.TrimPrefix(s, "\n")
	lines := strings.Split(s, "\n")

	prefix := ""
	first := true
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		indent := line[:len(line)-len(strings.TrimLeft(line, " \t"))]
		if first || len(indent) < len(prefix) {
			prefix = indent
			first = false
		}
	}
	if prefix == "" {
		return s
	}

	for i, line := range lines {
		lines[i] = strings.TrimPrefix(line, prefix)
	}
	out := strings.Join(lines, "\n")
	return strings.TrimRight(out, " \t")
}
