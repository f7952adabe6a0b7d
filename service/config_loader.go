package service

import (
	"fmt"
	"strings"

	"github.com/ludo-technologies/tsrefs/domain"
	"github.com/ludo-technologies/tsrefs/internal/config"
	"github.com/ludo-technologies/tsrefs/internal/constants"
	"github.com/ludo-technologies/tsrefs/internal/modsys"
)

// ConfigurationLoaderImpl loads add-references requests from configuration files
type ConfigurationLoaderImpl struct{}

// NewConfigurationLoader creates a new configuration loader service
func NewConfigurationLoader() *ConfigurationLoaderImpl {
	return &ConfigurationLoaderImpl{}
}

// LoadConfig loads configuration from path, or discovers it upward from
// targetPath when path is empty
func (c *ConfigurationLoaderImpl) LoadConfig(path, targetPath string) (*domain.AddReferencesRequest, error) {
	cfg, err := config.LoadConfigWithTarget(path, targetPath)
	if err != nil {
		return nil, domain.NewConfigError("failed to load configuration file", err)
	}
	return c.convertToRequest(cfg), nil
}

// LoadDefaultConfig loads the discovered configuration, falling back to the
// built-in defaults
func (c *ConfigurationLoaderImpl) LoadDefaultConfig() *domain.AddReferencesRequest {
	cfg, err := config.LoadConfigWithTarget("", "")
	if err != nil {
		cfg = config.DefaultConfig()
	}
	return c.convertToRequest(cfg)
}

// MergeConfig merges CLI flags over a request built from the configuration file
func (c *ConfigurationLoaderImpl) MergeConfig(base *domain.AddReferencesRequest, override *domain.AddReferencesRequest) *domain.AddReferencesRequest {
	merged := *base

	if override.DataSourcePath != "" {
		merged.DataSourcePath = override.DataSourcePath
	}
	if override.Initializer != "" {
		merged.Initializer = override.Initializer
	}
	if override.RootDir != "" {
		merged.RootDir = override.RootDir
	}

	// Patterns given on the command line replace the configured ones of the
	// same property
	merged.Properties = append([]domain.PropertyTargets(nil), base.Properties...)
	for _, prop := range override.Properties {
		replaced := false
		for i := range merged.Properties {
			if merged.Properties[i].Property == prop.Property {
				merged.Properties[i] = prop
				replaced = true
				break
			}
		}
		if !replaced {
			merged.Properties = append(merged.Properties, prop)
		}
	}

	if override.Options.ModuleSystem != domain.ModuleSystemAuto {
		merged.Options.ModuleSystem = override.Options.ModuleSystem
	}
	if len(override.ExcludePatterns) > 0 {
		merged.ExcludePatterns = append(append([]string(nil), base.ExcludePatterns...), override.ExcludePatterns...)
	}
	if override.Workers > 0 {
		merged.Workers = override.Workers
	}

	if override.OutputFormat != "" {
		merged.OutputFormat = override.OutputFormat
	}
	if override.OutputWriter != nil {
		merged.OutputWriter = override.OutputWriter
	}

	return &merged
}

// ValidateConfig validates a merged request
func (c *ConfigurationLoaderImpl) ValidateConfig(req *domain.AddReferencesRequest) error {
	if strings.TrimSpace(req.DataSourcePath) == "" {
		return domain.NewValidationError("data source path is required (--dataSource or data_source in the config file)")
	}
	if strings.TrimSpace(req.Initializer) == "" {
		return domain.NewValidationError("initializer name cannot be empty")
	}

	for _, prop := range req.Properties {
		if prop.Property == "" {
			return domain.NewValidationError("property name cannot be empty")
		}
		if len(prop.Patterns) == 0 {
			return domain.NewValidationError(fmt.Sprintf("property %s has no file patterns", prop.Property))
		}
	}

	if req.Workers < 0 {
		return domain.NewValidationError(fmt.Sprintf("workers must be >= 0, got %d", req.Workers))
	}

	switch req.OutputFormat {
	case domain.OutputFormatText, domain.OutputFormatJSON, domain.OutputFormatYAML:
	default:
		return domain.NewValidationError(fmt.Sprintf("invalid output format: %s (must be one of: text, json, yaml)", req.OutputFormat))
	}

	return nil
}

// ParseModuleSystem converts a configured module system, where "" and
// "auto" mean detection
func ParseModuleSystem(value string) (domain.ModuleSystem, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "auto":
		return domain.ModuleSystemAuto, nil
	}
	system, ok := modsys.Parse(value)
	if !ok {
		return "", domain.NewValidationError(fmt.Sprintf("invalid module system: %s (must be one of: auto, esm, commonjs)", value))
	}
	return domain.ModuleSystem(system), nil
}

// convertToRequest converts a Config to an AddReferencesRequest
func (c *ConfigurationLoaderImpl) convertToRequest(cfg *config.Config) *domain.AddReferencesRequest {
	// Validate has already accepted the value
	system, _ := ParseModuleSystem(cfg.Linking.ModuleSystem)

	return &domain.AddReferencesRequest{
		DataSourcePath: cfg.DataSource,
		Initializer:    cfg.Linking.Initializer,
		Properties:     PropertiesFromTargets(cfg.Targets),
		Options: domain.LinkOptions{
			UpdateOtherFiles:           cfg.Linking.UpdateOtherFiles,
			TreatNamespaceAsList:       cfg.Linking.TreatNamespaceAsList,
			PreferWildcardReexport:     cfg.Linking.PreferWildcardReexport,
			TreatObjectAsList:          cfg.Linking.TreatObjectAsList,
			InstantiateObjectByDefault: cfg.Linking.InstantiateObjectByDefault,
			ModuleSystem:               system,
		},
		ExcludePatterns:  cfg.Discovery.ExcludePatterns,
		RespectGitignore: cfg.Discovery.RespectGitignore,
		Workers:          cfg.Discovery.Workers,
		OutputFormat:     domain.OutputFormat(cfg.Output.Format),
		ShowProgress:     cfg.Output.Progress,
	}
}

// PropertiesFromTargets lists the non-empty target groups in the order
// migrations, entities, subscribers
func PropertiesFromTargets(targets config.TargetsConfig) []domain.PropertyTargets {
	var props []domain.PropertyTargets
	add := func(kind, property string, patterns []string) {
		if len(patterns) > 0 {
			props = append(props, domain.PropertyTargets{Kind: kind, Property: property, Patterns: patterns})
		}
	}
	add(constants.KindMigration, constants.PropertyMigrations, targets.Migrations)
	add(constants.KindEntity, constants.PropertyEntities, targets.Entities)
	add(constants.KindSubscriber, constants.PropertySubscribers, targets.Subscribers)
	return props
}
