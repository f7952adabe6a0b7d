package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/ludo-technologies/tsrefs/domain"
	"github.com/ludo-technologies/tsrefs/internal/linker"
	"github.com/ludo-technologies/tsrefs/internal/version"
)

// EngineLinker runs the linker engine against a filesystem
type EngineLinker struct {
	fs     afero.Fs
	logger *slog.Logger
}

// NewEngineLinker creates a ReferenceLinker over fs
func NewEngineLinker(fs afero.Fs, logger *slog.Logger) *EngineLinker {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EngineLinker{fs: fs, logger: logger}
}

// Link adds one reference with a fresh module graph
func (e *EngineLinker) Link(ctx context.Context, req domain.LinkRequest) (*domain.LinkResult, error) {
	return linker.New(req, linker.WithFs(e.fs), linker.WithLogger(e.logger)).Link(ctx)
}

// ReferenceService adds the references of every discovered target to a data source
type ReferenceService struct {
	resolver domain.TargetResolver
	linker   domain.ReferenceLinker
	progress domain.ProgressManager
	logger   *slog.Logger
}

// NewReferenceService creates a new reference service
func NewReferenceService(resolver domain.TargetResolver, refLinker domain.ReferenceLinker, logger *slog.Logger) *ReferenceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReferenceService{
		resolver: resolver,
		linker:   refLinker,
		progress: &NoOpProgressManager{},
		logger:   logger,
	}
}

// WithProgress sets the progress manager reporting linked targets
func (s *ReferenceService) WithProgress(pm domain.ProgressManager) *ReferenceService {
	if pm != nil {
		s.progress = pm
	}
	return s
}

type propertyBatch struct {
	property domain.PropertyTargets
	targets  []domain.ImportTarget
}

// AddReferences resolves the targets of each property in order and links
// them one by one. Soft failures are reported as skipped references.
func (s *ReferenceService) AddReferences(ctx context.Context, req domain.AddReferencesRequest) (*domain.AddReferencesResponse, error) {
	root := req.RootDir
	if root == "" {
		root = "."
	}
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, domain.NewInvalidInputError("invalid root directory", err)
	}
	if req.DataSourcePath == "" {
		return nil, domain.NewInvalidInputError("data source path is required", nil)
	}
	dataSource := req.DataSourcePath
	if !filepath.IsAbs(dataSource) {
		dataSource = filepath.Join(root, dataSource)
	}
	initializer := req.Initializer
	if initializer == "" {
		return nil, domain.NewInvalidInputError("initializer is required", nil)
	}

	var batches []propertyBatch
	total := 0
	for _, property := range req.Properties {
		targets, err := s.resolver.Resolve(ctx, root, property.Patterns)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %s: %w", property.Property, err)
		}
		batches = append(batches, propertyBatch{property: property, targets: targets})
		total += len(targets)
	}

	response := &domain.AddReferencesResponse{
		DataSourcePath: relativeTo(root, dataSource),
		Added:          []domain.AddedReference{},
		Updated:        []string{},
		GeneratedAt:    time.Now().Format(time.RFC3339),
		Version:        version.Short(),
	}
	updated := make(map[string]bool)

	task := s.progress.StartTask("Linking", total)
	defer task.Complete()

	for _, batch := range batches {
		for _, target := range batch.targets {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			task.Describe(filepath.Base(target.FilePath))

			result, err := s.linker.Link(ctx, domain.LinkRequest{
				TargetFile:      dataSource,
				ConstructorName: initializer,
				PropertyName:    batch.property.Property,
				Import:          target,
				Options:         req.Options,
			})
			task.Increment(1)
			if err != nil {
				return nil, fmt.Errorf("failed to add %s to %s: %w", target.ImportName, batch.property.Property, err)
			}

			rel := relativeTo(root, target.FilePath)
			if len(result.Files) == 0 {
				reason := "already referenced"
				if result.Reason != nil {
					reason = result.Reason.Error()
				}
				response.Skipped = append(response.Skipped, domain.SkippedReference{
					Kind:     batch.property.Kind,
					Property: batch.property.Property,
					FilePath: rel,
					Reason:   reason,
				})
				s.logger.Debug("reference skipped",
					slog.String("target", rel),
					slog.String("property", batch.property.Property),
					slog.String("reason", reason))
				continue
			}

			response.Added = append(response.Added, domain.AddedReference{
				Kind:       batch.property.Kind,
				Property:   batch.property.Property,
				FilePath:   rel,
				ImportName: target.ImportName,
			})
			for _, file := range result.Files {
				rel := relativeTo(root, file)
				if !updated[rel] {
					updated[rel] = true
					response.Updated = append(response.Updated, rel)
				}
			}
			s.logger.Info("reference added",
				slog.String("target", rel),
				slog.String("property", batch.property.Property),
				slog.Int("files", len(result.Files)))
		}
	}

	return response, nil
}

// relativeTo returns path relative to root, or path itself outside of it
func relativeTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
