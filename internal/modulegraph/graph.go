// Package modulegraph is a lazily loaded, symbol-indexed view of the
// TypeScript files reachable from one entry file.
package modulegraph

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/ludo-technologies/tsrefs/internal/modsys"
	"github.com/ludo-technologies/tsrefs/internal/parser"
	"github.com/ludo-technologies/tsrefs/internal/printer"
)

// ParseFunc parses one file version
type ParseFunc func(ctx context.Context, path string, source []byte) (*parser.File, error)

// Graph owns the latest version of every file it has read and the ordered
// set of files that must be written back. A file is read from storage at
// most once.
type Graph struct {
	fs     afero.Fs
	entry  string
	system modsys.ModuleSystem
	logger *slog.Logger
	parse  ParseFunc

	files    map[string]*parser.File
	original map[string]*parser.File
	modes    map[string]os.FileMode

	dirty    []string
	dirtySet map[string]bool
}

// Option configures a Graph
type Option func(*Graph)

// WithModuleSystem fixes the module system instead of detecting it
func WithModuleSystem(system modsys.ModuleSystem) Option {
	return func(g *Graph) { g.system = system }
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(g *Graph) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithParser replaces the tree-sitter parse step
func WithParser(parse ParseFunc) Option {
	return func(g *Graph) {
		if parse != nil {
			g.parse = parse
		}
	}
}

// New creates a graph rooted at entry
func New(fs afero.Fs, entry string, opts ...Option) *Graph {
	g := &Graph{
		fs:       fs,
		entry:    Normalize(entry),
		logger:   slog.Default(),
		parse:    parser.ParseForLanguage,
		files:    make(map[string]*parser.File),
		original: make(map[string]*parser.File),
		modes:    make(map[string]os.FileMode),
		dirtySet: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Normalize returns the absolute, cleaned form of path used as graph key
func Normalize(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// Init detects the module system of the entry file when it was not fixed
// and loads the entry file
func (g *Graph) Init(ctx context.Context) error {
	if g.system == "" {
		system, err := modsys.Detect(ctx, g.fs, g.entry)
		if err != nil {
			return err
		}
		g.system = system
	}
	_, err := g.File(ctx, g.entry)
	return err
}

// Entry returns the normalized entry path
func (g *Graph) Entry() string { return g.entry }

// ModuleSystem returns the module system used for import specifiers
func (g *Graph) ModuleSystem() modsys.ModuleSystem { return g.system }

// IsEntry reports whether path is the entry file
func (g *Graph) IsEntry(path string) bool {
	return Normalize(path) == g.entry
}

// File returns the latest version of path, reading and parsing it on first use
func (g *Graph) File(ctx context.Context, path string) (*parser.File, error) {
	path = Normalize(path)
	if f, ok := g.files[path]; ok {
		return f, nil
	}

	info, err := g.fs.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	source, err := afero.ReadFile(g.fs, path)
	if err != nil {
		return nil, err
	}

	file, err := g.parse(ctx, path, source)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("loaded source file", slog.String("path", path), slog.Int("bytes", len(source)))
	g.files[path] = file
	g.original[path] = file
	g.modes[path] = info.Mode().Perm()
	return file, nil
}

// Reparse parses source as a new version of path without recording it
func (g *Graph) Reparse(ctx context.Context, path string, source []byte) (*parser.File, error) {
	return g.parse(ctx, Normalize(path), source)
}

// Replace records file as the latest version of its path
func (g *Graph) Replace(file *parser.File) {
	g.files[Normalize(file.Path)] = file
}

// MarkDirty adds path to the write-back set
func (g *Graph) MarkDirty(path string) {
	path = Normalize(path)
	if g.dirtySet[path] {
		return
	}
	g.dirtySet[path] = true
	g.dirty = append(g.dirty, path)
}

// Dirty returns the write-back set in the order paths were added
func (g *Graph) Dirty() []string {
	out := make([]string, len(g.dirty))
	copy(out, g.dirty)
	return out
}

// IsDirty reports whether path is in the write-back set
func (g *Graph) IsDirty(path string) bool {
	return g.dirtySet[Normalize(path)]
}

// RelativeImportPath returns the specifier used in from to import to
func (g *Graph) RelativeImportPath(from, to string) string {
	return modsys.RelativeImportPath(Normalize(from), Normalize(to), g.system)
}

// Newline returns the line ending of path as first read, falling back to
// the entry file's line ending
func (g *Graph) Newline(path string) string {
	fallback := printer.LF
	if entry, ok := g.original[g.entry]; ok {
		fallback = printer.DetectNewline(entry.Source, printer.LF)
	}
	if f, ok := g.original[Normalize(path)]; ok {
		return printer.DetectNewline(f.Source, fallback)
	}
	return fallback
}

// Style returns the formatting conventions of the latest version of file
func (g *Graph) Style(file *parser.File) printer.Style {
	return printer.DetectStyle(file, g.Newline(file.Path))
}
