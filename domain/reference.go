package domain

import (
	"context"
	"io"
)

// OutputFormat represents the supported output formats
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
	OutputFormatYAML OutputFormat = "yaml"
)

// ModuleSystem selects how import specifiers are written. The empty value
// means detect from the entry file.
type ModuleSystem string

const (
	ModuleSystemAuto     ModuleSystem = ""
	ModuleSystemESM      ModuleSystem = "esm"
	ModuleSystemCommonJS ModuleSystem = "commonjs"
)

// ImportTarget is the declaration a reference is added for
type ImportTarget struct {
	// FilePath is the absolute path of the file declaring the symbol
	FilePath string `json:"file_path" yaml:"file_path"`

	// ImportName is the local name used in the list and the import
	ImportName string `json:"import_name" yaml:"import_name"`

	// ExportName is the name the file exports the symbol under
	ExportName string `json:"export_name" yaml:"export_name"`

	IsDefaultExport bool `json:"is_default_export" yaml:"is_default_export"`
}

// LinkOptions are the policy flags of one link run
type LinkOptions struct {
	// UpdateOtherFiles allows edits outside the entry file
	UpdateOtherFiles bool

	// TreatNamespaceAsList treats `import * as X` as a list that grows by
	// re-exporting the target from the imported module
	TreatNamespaceAsList bool

	// PreferWildcardReexport writes `export * from` instead of a named re-export
	PreferWildcardReexport bool

	// TreatObjectAsList treats object literals as sets of shorthand properties
	TreatObjectAsList bool

	// InstantiateObjectByDefault creates a missing property as `{ X }` instead of `[X]`
	InstantiateObjectByDefault bool

	ModuleSystem ModuleSystem
}

// DefaultLinkOptions returns the engine defaults
func DefaultLinkOptions() LinkOptions {
	return LinkOptions{
		TreatNamespaceAsList:   true,
		PreferWildcardReexport: true,
	}
}

// LinkRequest describes one reference to add
type LinkRequest struct {
	TargetFile      string
	ConstructorName string
	PropertyName    string
	Import          ImportTarget
	Options         LinkOptions
}

// LinkOutcome tracks what a run achieved
type LinkOutcome struct {
	ReferenceAdded bool `json:"reference_added" yaml:"reference_added"`
	ImportAdded    bool `json:"import_added" yaml:"import_added"`
	LinkingError   bool `json:"linking_error" yaml:"linking_error"`
}

// Succeeded reports whether both the reference and its import are in place
func (o LinkOutcome) Succeeded() bool {
	return o.ReferenceAdded && o.ImportAdded && !o.LinkingError
}

// LinkResult is the result of one link run
type LinkResult struct {
	// Files lists the absolute paths written, empty when nothing changed
	Files []string

	Outcome LinkOutcome

	// Reason is set to one of the soft failure errors when the run gave up
	Reason error
}

// PropertyTargets names a property of the initializer and the globs of the
// files whose classes should be referenced from it
type PropertyTargets struct {
	// Kind labels the added references in reports (migration, entity, ...)
	Kind     string   `json:"kind" yaml:"kind"`
	Property string   `json:"property" yaml:"property"`
	Patterns []string `json:"patterns" yaml:"patterns"`
}

// AddReferencesRequest represents a request to add references to a data source
type AddReferencesRequest struct {
	DataSourcePath string
	Initializer    string
	RootDir        string
	Properties     []PropertyTargets
	Options        LinkOptions

	ExcludePatterns  []string
	RespectGitignore bool
	Workers          int

	OutputFormat OutputFormat
	OutputWriter io.Writer
	ShowProgress bool
}

// AddedReference is a target file whose reference was added
type AddedReference struct {
	Kind       string `json:"kind" yaml:"kind"`
	Property   string `json:"property" yaml:"property"`
	FilePath   string `json:"file_path" yaml:"file_path"`
	ImportName string `json:"import_name" yaml:"import_name"`
}

// SkippedReference is a target file that could not be linked
type SkippedReference struct {
	Kind     string `json:"kind" yaml:"kind"`
	Property string `json:"property" yaml:"property"`
	FilePath string `json:"file_path" yaml:"file_path"`
	Reason   string `json:"reason" yaml:"reason"`
}

// AddReferencesResponse represents the result of adding references
type AddReferencesResponse struct {
	DataSourcePath string             `json:"data_source" yaml:"data_source"`
	Added          []AddedReference   `json:"added" yaml:"added"`
	Updated        []string           `json:"updated" yaml:"updated"`
	Skipped        []SkippedReference `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	GeneratedAt    string             `json:"generated_at" yaml:"generated_at"`
	Version        string             `json:"version" yaml:"version"`
}

// TargetResolver discovers the import targets matched by glob patterns
type TargetResolver interface {
	Resolve(ctx context.Context, rootDir string, patterns []string) ([]ImportTarget, error)
}

// ReferenceLinker runs one link
type ReferenceLinker interface {
	Link(ctx context.Context, req LinkRequest) (*LinkResult, error)
}

// OutputFormatter writes an AddReferencesResponse
type OutputFormatter interface {
	Write(response *AddReferencesResponse, format OutputFormat, writer io.Writer) error
}

// ReferenceService adds the references of an AddReferencesRequest
type ReferenceService interface {
	AddReferences(ctx context.Context, req AddReferencesRequest) (*AddReferencesResponse, error)
}
