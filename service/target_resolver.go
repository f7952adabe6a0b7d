package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar"
	lru "github.com/hashicorp/golang-lru/v2"
	ignore "github.com/sabhiram/go-gitignore"
	"github.com/spf13/afero"

	"github.com/ludo-technologies/tsrefs/domain"
	"github.com/ludo-technologies/tsrefs/internal/constants"
	"github.com/ludo-technologies/tsrefs/internal/parser"
)

// DefaultTargetCacheSize is the number of parsed files kept by a caching resolver
const DefaultTargetCacheSize = 2048

// cachedTarget is the extraction result of one file version
type cachedTarget struct {
	modTime time.Time
	size    int64
	target  *domain.ImportTarget
}

// TargetResolverImpl discovers the classes to reference from glob patterns
type TargetResolverImpl struct {
	fs               afero.Fs
	logger           *slog.Logger
	excludePatterns  []string
	respectGitignore bool
	workers          int
	cache            *lru.Cache[string, cachedTarget]
}

// TargetResolverOption configures a TargetResolverImpl
type TargetResolverOption func(*TargetResolverImpl)

// WithResolverFs sets the filesystem patterns are matched against
func WithResolverFs(fs afero.Fs) TargetResolverOption {
	return func(r *TargetResolverImpl) { r.fs = fs }
}

// WithResolverLogger sets the logger
func WithResolverLogger(logger *slog.Logger) TargetResolverOption {
	return func(r *TargetResolverImpl) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithExcludePatterns skips files matching any of patterns, relative to the root
func WithExcludePatterns(patterns []string) TargetResolverOption {
	return func(r *TargetResolverImpl) { r.excludePatterns = patterns }
}

// WithGitignore skips files ignored by the root .gitignore
func WithGitignore(enabled bool) TargetResolverOption {
	return func(r *TargetResolverImpl) { r.respectGitignore = enabled }
}

// WithWorkers bounds the number of files parsed concurrently
func WithWorkers(workers int) TargetResolverOption {
	return func(r *TargetResolverImpl) { r.workers = workers }
}

// WithParseCache keeps the extraction result of up to size files, reused
// while a file's modification time and size are unchanged
func WithParseCache(size int) TargetResolverOption {
	return func(r *TargetResolverImpl) {
		if size <= 0 {
			size = DefaultTargetCacheSize
		}
		cache, err := lru.New[string, cachedTarget](size)
		if err == nil {
			r.cache = cache
		}
	}
}

// NewTargetResolver creates a resolver over the OS filesystem
func NewTargetResolver(opts ...TargetResolverOption) *TargetResolverImpl {
	r := &TargetResolverImpl{
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns one import target per matched file exporting a class, in
// pattern and match order without duplicates
func (r *TargetResolverImpl) Resolve(ctx context.Context, rootDir string, patterns []string) ([]domain.ImportTarget, error) {
	root, err := filepath.Abs(rootDir)
	if err != nil {
		return nil, domain.NewInvalidInputError("invalid root directory", err)
	}

	ignored := r.loadGitignore(root)

	var files []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		matches, err := r.match(root, pattern, ignored)
		if err != nil {
			return nil, err
		}
		for _, path := range matches {
			if !seen[path] {
				seen[path] = true
				files = append(files, path)
			}
		}
	}

	results := make([]*domain.ImportTarget, len(files))
	jobs := make([]Job, len(files))
	for i, path := range files {
		i, path := i, path
		jobs[i] = Job{
			Name: path,
			Run: func(ctx context.Context) error {
				target, err := r.extract(ctx, path)
				if err != nil {
					return err
				}
				results[i] = target
				return nil
			},
		}
	}

	if err := NewParallelExecutor(r.workers).Execute(ctx, jobs); err != nil {
		return nil, fmt.Errorf("failed to resolve targets: %w", err)
	}

	targets := make([]domain.ImportTarget, 0, len(files))
	for _, target := range results {
		if target != nil {
			targets = append(targets, *target)
		}
	}

	r.logger.Debug("resolved targets",
		slog.String("root", root),
		slog.Int("files", len(files)),
		slog.Int("targets", len(targets)))
	return targets, nil
}

// match expands one pattern into candidate source files
func (r *TargetResolverImpl) match(root, pattern string, ignored *ignore.GitIgnore) ([]string, error) {
	if filepath.IsAbs(pattern) {
		rel, err := filepath.Rel(root, pattern)
		if err != nil {
			return nil, domain.NewInvalidInputError(fmt.Sprintf("pattern %s is outside %s", pattern, root), err)
		}
		pattern = rel
	}
	pattern = strings.TrimSuffix(filepath.ToSlash(filepath.Clean(pattern)), "/")

	var out []string
	addMatch := func(path string, info os.FileInfo) error {
		if info.IsDir() {
			children, err := r.directoryChildren(root, path, ignored)
			if err != nil {
				return err
			}
			out = append(out, children...)
			return nil
		}
		if r.accept(root, path, ignored) {
			out = append(out, path)
		}
		return nil
	}

	prefix := staticPrefix(pattern)
	if prefix == pattern {
		path := filepath.Join(root, filepath.FromSlash(pattern))
		info, err := r.fs.Stat(path)
		if err != nil {
			r.logger.Debug("pattern matched nothing", slog.String("pattern", pattern))
			return nil, nil
		}
		return out, addMatch(path, info)
	}

	start := filepath.Join(root, filepath.FromSlash(prefix))
	if _, err := r.fs.Stat(start); err != nil {
		return nil, nil
	}

	err := afero.Walk(r.fs, start, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel := relSlash(root, path)
		if info.IsDir() && path != start && r.skipDir(rel, ignored) {
			return filepath.SkipDir
		}

		ok, err := doublestar.Match(pattern, rel)
		if err != nil {
			return domain.NewInvalidInputError("invalid pattern "+pattern, err)
		}
		if ok {
			return addMatch(path, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// directoryChildren returns the direct source children of dir
func (r *TargetResolverImpl) directoryChildren(root, dir string, ignored *ignore.GitIgnore) ([]string, error) {
	entries, err := afero.ReadDir(r.fs, dir)
	if err != nil {
		return nil, domain.NewFileNotFoundError(dir, err)
	}

	var out []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if r.accept(root, path, ignored) {
			out = append(out, path)
		}
	}
	return out, nil
}

// accept reports whether path is a source file that is neither excluded nor ignored
func (r *TargetResolverImpl) accept(root, path string, ignored *ignore.GitIgnore) bool {
	if !hasTargetExtension(path) {
		return false
	}
	rel := relSlash(root, path)
	if ignored != nil && ignored.MatchesPath(rel) {
		return false
	}
	for _, pattern := range r.excludePatterns {
		if ok, _ := doublestar.Match(pattern, rel); ok {
			return false
		}
	}
	return true
}

func (r *TargetResolverImpl) skipDir(rel string, ignored *ignore.GitIgnore) bool {
	if filepath.Base(rel) == "node_modules" {
		return true
	}
	return ignored != nil && ignored.MatchesPath(rel+"/")
}

// loadGitignore compiles root/.gitignore, or returns nil when disabled or absent
func (r *TargetResolverImpl) loadGitignore(root string) *ignore.GitIgnore {
	if !r.respectGitignore {
		return nil
	}
	data, err := afero.ReadFile(r.fs, filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return ignore.CompileIgnoreLines(strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")...)
}

// extract parses path and returns its exported class, consulting the cache
func (r *TargetResolverImpl) extract(ctx context.Context, path string) (*domain.ImportTarget, error) {
	info, err := r.fs.Stat(path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	if r.cache != nil {
		if hit, ok := r.cache.Get(path); ok && hit.modTime.Equal(info.ModTime()) && hit.size == info.Size() {
			return hit.target, nil
		}
	}

	source, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, domain.NewFileNotFoundError(path, err)
	}
	file, err := parser.ParseForLanguage(ctx, path, source)
	if err != nil {
		return nil, domain.NewParseError(path, err)
	}

	target := ExtractTarget(file)
	if r.cache != nil {
		r.cache.Add(path, cachedTarget{modTime: info.ModTime(), size: info.Size(), target: target})
	}
	return target, nil
}

// Forget drops path from the parse cache
func (r *TargetResolverImpl) Forget(path string) {
	if r.cache != nil {
		r.cache.Remove(path)
	}
}

// ExtractTarget returns the first top-level exported class of file: an
// exported class declaration, or an exported variable initialized with a
// class expression. Anonymous default classes are named after the file.
func ExtractTarget(file *parser.File) *domain.ImportTarget {
	for _, stmt := range file.Statements {
		switch s := stmt.(type) {
		case *parser.VarStatement:
			if !s.Exported {
				continue
			}
			for _, decl := range s.Declarators {
				if decl.Name == nil || decl.Init == nil {
					continue
				}
				if _, ok := parser.Unwrap(decl.Init).(*parser.ClassExpr); !ok {
					continue
				}
				return &domain.ImportTarget{
					FilePath:   file.Path,
					ImportName: decl.Name.Name,
					ExportName: decl.Name.Name,
				}
			}
		case *parser.ClassDecl:
			if !s.Exported {
				continue
			}
			name := ""
			if s.Name != nil {
				name = s.Name.Name
			} else {
				name = FilePathToImportName(file.Path)
			}
			return &domain.ImportTarget{
				FilePath:        file.Path,
				ImportName:      name,
				ExportName:      name,
				IsDefaultExport: s.Default,
			}
		}
	}
	return nil
}

var (
	nonAlphanumeric = regexp.MustCompile(`[^A-Za-z0-9]`)
	leadingDigits   = regexp.MustCompile(`^[0-9]+`)
)

// FilePathToImportName derives an identifier from a file name:
// "1650000000-add-user.ts" becomes "adduser"
func FilePathToImportName(path string) string {
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = nonAlphanumeric.ReplaceAllString(name, "")
	return leadingDigits.ReplaceAllString(name, "")
}

func hasTargetExtension(path string) bool {
	ext := filepath.Ext(path)
	for _, allowed := range constants.DirectoryExtensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// staticPrefix returns the leading segments of pattern without glob syntax
func staticPrefix(pattern string) string {
	segments := strings.Split(pattern, "/")
	for i, segment := range segments {
		if strings.ContainsAny(segment, "*?[{") {
			return strings.Join(segments[:i], "/")
		}
	}
	return pattern
}

func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
