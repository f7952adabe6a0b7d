// Package linker adds a reference to a declaration into a list-like
// property of a constructor call, following the values that make up that
// property across files and writing the import statements the new reference
// needs.
package linker

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/afero"

	"github.com/ludo-technologies/tsrefs/domain"
	"github.com/ludo-technologies/tsrefs/internal/modsys"
	"github.com/ludo-technologies/tsrefs/internal/modulegraph"
	"github.com/ludo-technologies/tsrefs/internal/rewrite"
)

// Linker runs one reference insertion
type Linker struct {
	req    domain.LinkRequest
	fs     afero.Fs
	logger *slog.Logger
}

// Option configures a Linker
type Option func(*Linker)

// WithFs sets the filesystem files are read from and written to
func WithFs(fs afero.Fs) Option {
	return func(l *Linker) {
		if fs != nil {
			l.fs = fs
		}
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(l *Linker) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// New creates a linker for req. Files are read from the OS filesystem unless
// WithFs is given.
func New(req domain.LinkRequest, opts ...Option) *Linker {
	l := &Linker{
		req:    req,
		fs:     afero.NewOsFs(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Apply adds the reference and returns the absolute paths of the files it
// wrote. It returns an empty list, not an error, when the reference could
// not be added safely or was already present.
func (l *Linker) Apply(ctx context.Context) ([]string, error) {
	res, err := l.Link(ctx)
	if err != nil {
		return nil, err
	}
	if res.Files == nil {
		return []string{}, nil
	}
	return res.Files, nil
}

// Link adds the reference and reports the outcome. Soft failures are
// reported through LinkResult.Reason; the returned error is reserved for
// invalid requests, unreadable entry files and write failures.
func (l *Linker) Link(ctx context.Context) (*domain.LinkResult, error) {
	req, err := l.normalize()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts []modulegraph.Option
	opts = append(opts, modulegraph.WithLogger(l.logger))
	if req.Options.ModuleSystem != domain.ModuleSystemAuto {
		opts = append(opts, modulegraph.WithModuleSystem(modsys.ModuleSystem(req.Options.ModuleSystem)))
	}
	graph := modulegraph.New(l.fs, req.TargetFile, opts...)
	if err := graph.Init(ctx); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, domain.NewFileNotFoundError(req.TargetFile, err)
		}
		return nil, domain.NewParseError(req.TargetFile, err)
	}

	r := newRun(ctx, graph, req, l.logger)
	entry, err := graph.File(ctx, graph.Entry())
	if err != nil {
		return nil, domain.NewParseError(req.TargetFile, err)
	}

	matched := r.locate(entry, r.growExisting)
	if matched && !r.outcome.ReferenceAdded && !r.outcome.LinkingError {
		r.locate(entry, r.addNew)
	}

	result := &domain.LinkResult{Files: []string{}}
	if !matched {
		result.Reason = domain.ErrInitializerNotFound
		r.logger.Debug("initializer not found",
			slog.String("file", req.TargetFile),
			slog.String("constructor", req.ConstructorName))
		return result, nil
	}

	r.synthesizeImports()
	result.Outcome = r.outcome
	if !r.outcome.Succeeded() {
		result.Reason = r.failureReason()
		r.logger.Debug("reference not added",
			slog.String("file", req.TargetFile),
			slog.String("import", req.Import.ImportName),
			slog.Any("reason", result.Reason))
		return result, nil
	}

	if err := r.commit(); err != nil {
		r.outcome.LinkingError = true
		result.Outcome = r.outcome
		result.Reason = domain.ErrLinking
		r.logger.Debug("edits rejected", slog.Any("error", err))
		return result, nil
	}

	written, err := graph.WriteBack(ctx)
	if err != nil {
		if errors.Is(err, modulegraph.ErrUnparsable) {
			result.Outcome.LinkingError = true
			result.Reason = domain.ErrLinking
			return result, nil
		}
		return nil, domain.NewOutputError("failed to write updated files", err)
	}
	if written != nil {
		result.Files = written
	}
	return result, nil
}

func (l *Linker) normalize() (domain.LinkRequest, error) {
	req := l.req
	switch {
	case req.TargetFile == "":
		return req, domain.NewInvalidInputError("target file is required", nil)
	case req.ConstructorName == "":
		return req, domain.NewInvalidInputError("constructor name is required", nil)
	case req.PropertyName == "":
		return req, domain.NewInvalidInputError("property name is required", nil)
	case req.Import.FilePath == "":
		return req, domain.NewInvalidInputError("import file path is required", nil)
	case req.Import.ImportName == "":
		return req, domain.NewInvalidInputError("import name is required", nil)
	}
	if req.Import.ExportName == "" {
		req.Import.ExportName = req.Import.ImportName
	}
	req.TargetFile = modulegraph.Normalize(req.TargetFile)
	req.Import.FilePath = modulegraph.Normalize(req.Import.FilePath)
	return req, nil
}

// run is the mutable state of one Link call
type run struct {
	ctx    context.Context
	graph  *modulegraph.Graph
	req    domain.LinkRequest
	logger *slog.Logger

	outcome domain.LinkOutcome
	patches *patchTable

	// fileEdits are statement-level insertions keyed by file path
	fileEdits map[string][]rewrite.Edit

	needImport    []string
	needImportSet map[string]bool

	seen map[any]bool
}

func newRun(ctx context.Context, graph *modulegraph.Graph, req domain.LinkRequest, logger *slog.Logger) *run {
	return &run{
		ctx:           ctx,
		graph:         graph,
		req:           req,
		logger:        logger,
		patches:       newPatchTable(),
		fileEdits:     make(map[string][]rewrite.Edit),
		needImportSet: make(map[string]bool),
		seen:          make(map[any]bool),
	}
}

// requireImport records that path gained a reference and must import the target
func (r *run) requireImport(path string) {
	path = modulegraph.Normalize(path)
	r.graph.MarkDirty(path)
	if r.needImportSet[path] {
		return
	}
	r.needImportSet[path] = true
	r.needImport = append(r.needImport, path)
}

func (r *run) done() bool {
	return r.outcome.ReferenceAdded || r.outcome.LinkingError
}

func (r *run) failureReason() error {
	switch {
	case r.outcome.LinkingError:
		return domain.ErrLinking
	case !r.outcome.ReferenceAdded:
		return domain.ErrUnsupportedValue
	}
	return domain.ErrPartialLink
}
