package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/ludo-technologies/tsrefs/domain"
)

// AddReferencesUseCase orchestrates the add-references workflow
type AddReferencesUseCase struct {
	service    domain.ReferenceService
	formatter  domain.OutputFormatter
	fileHelper *FileHelper
}

// NewAddReferencesUseCase creates a new add-references use case
func NewAddReferencesUseCase(service domain.ReferenceService, formatter domain.OutputFormatter) *AddReferencesUseCase {
	return &AddReferencesUseCase{
		service:    service,
		formatter:  formatter,
		fileHelper: NewFileHelper(),
	}
}

// Execute validates the request, adds the references and writes the report
// to req.OutputWriter when one is set
func (uc *AddReferencesUseCase) Execute(ctx context.Context, req domain.AddReferencesRequest) (*domain.AddReferencesResponse, error) {
	if err := uc.validateRequest(&req); err != nil {
		return nil, err
	}

	response, err := uc.service.AddReferences(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.OutputWriter != nil && uc.formatter != nil {
		if err := uc.formatter.Write(response, req.OutputFormat, req.OutputWriter); err != nil {
			return nil, err
		}
	}
	return response, nil
}

// validateRequest checks the data source and fills in the root directory
func (uc *AddReferencesUseCase) validateRequest(req *domain.AddReferencesRequest) error {
	if req.DataSourcePath == "" {
		return domain.NewInvalidInputError("no data source specified", nil)
	}
	if req.RootDir == "" {
		req.RootDir = "."
	}

	dataSource := req.DataSourcePath
	if !filepath.IsAbs(dataSource) {
		dataSource = filepath.Join(req.RootDir, dataSource)
	}
	if !uc.fileHelper.IsDataSourceFile(dataSource) {
		return domain.NewInvalidInputError(fmt.Sprintf("not a TypeScript file: %s", req.DataSourcePath), nil)
	}

	exists, err := uc.fileHelper.FileExists(dataSource)
	if err != nil {
		return domain.NewFileNotFoundError(dataSource, err)
	}
	if !exists {
		return domain.NewFileNotFoundError(dataSource, fmt.Errorf("file does not exist"))
	}

	for _, prop := range req.Properties {
		if prop.Property == "" || len(prop.Patterns) == 0 {
			return domain.NewInvalidInputError(fmt.Sprintf("invalid property targets: %+v", prop), nil)
		}
	}
	return nil
}

// DataSourcePath returns the absolute path of the request's data source
func DataSourcePath(req domain.AddReferencesRequest) string {
	path := req.DataSourcePath
	if !filepath.IsAbs(path) {
		path = filepath.Join(req.RootDir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// AddReferencesUseCaseBuilder provides a builder pattern for creating AddReferencesUseCase
type AddReferencesUseCaseBuilder struct {
	service    domain.ReferenceService
	formatter  domain.OutputFormatter
	fileHelper *FileHelper
}

// NewAddReferencesUseCaseBuilder creates a new builder
func NewAddReferencesUseCaseBuilder() *AddReferencesUseCaseBuilder {
	return &AddReferencesUseCaseBuilder{}
}

// WithService sets the reference service
func (b *AddReferencesUseCaseBuilder) WithService(service domain.ReferenceService) *AddReferencesUseCaseBuilder {
	b.service = service
	return b
}

// WithFormatter sets the output formatter
func (b *AddReferencesUseCaseBuilder) WithFormatter(formatter domain.OutputFormatter) *AddReferencesUseCaseBuilder {
	b.formatter = formatter
	return b
}

// WithFileHelper sets the file helper
func (b *AddReferencesUseCaseBuilder) WithFileHelper(fileHelper *FileHelper) *AddReferencesUseCaseBuilder {
	b.fileHelper = fileHelper
	return b
}

// Build creates the AddReferencesUseCase with the configured dependencies
func (b *AddReferencesUseCaseBuilder) Build() (*AddReferencesUseCase, error) {
	if b.service == nil {
		return nil, fmt.Errorf("reference service is required")
	}

	uc := &AddReferencesUseCase{
		service:    b.service,
		formatter:  b.formatter,
		fileHelper: b.fileHelper,
	}
	if uc.fileHelper == nil {
		uc.fileHelper = NewFileHelper()
	}
	return uc, nil
}
