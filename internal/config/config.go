package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ludo-technologies/tsrefs/internal/modsys"
)

// Default linking settings
const (
	// DefaultInitializer is the class whose construction holds the lists
	DefaultInitializer = "DataSource"

	// DefaultOutputFormat is the report format
	DefaultOutputFormat = "text"

	// EnvPrefix prefixes the environment variables that override config keys
	EnvPrefix = "TSREFS"
)

// Config represents the main configuration structure
type Config struct {
	// DataSource is the file holding the initializer
	DataSource string `json:"dataSource" mapstructure:"data_source" yaml:"data_source"`

	// Targets holds the glob patterns of the files to reference
	Targets TargetsConfig `json:"targets" mapstructure:"targets" yaml:"targets"`

	// Linking holds the engine policy
	Linking LinkingConfig `json:"linking" mapstructure:"linking" yaml:"linking"`

	// Discovery holds target file discovery configuration
	Discovery DiscoveryConfig `json:"discovery" mapstructure:"discovery" yaml:"discovery"`

	// Output holds output formatting configuration
	Output OutputConfig `json:"output" mapstructure:"output" yaml:"output"`
}

// TargetsConfig holds the glob patterns per initializer property
type TargetsConfig struct {
	Migrations  []string `json:"migrations" mapstructure:"migrations" yaml:"migrations"`
	Entities    []string `json:"entities" mapstructure:"entities" yaml:"entities"`
	Subscribers []string `json:"subscribers" mapstructure:"subscribers" yaml:"subscribers"`
}

// LinkingConfig holds the policy flags of the linker
type LinkingConfig struct {
	// Initializer is the constructor name to look for
	Initializer string `json:"initializer" mapstructure:"initializer" yaml:"initializer"`

	// UpdateOtherFiles allows edits to files other than the data source
	UpdateOtherFiles bool `json:"updateOtherFiles" mapstructure:"update_other_files" yaml:"update_other_files"`

	// TreatNamespaceAsList grows `import * as X` lists by re-exporting from X
	TreatNamespaceAsList bool `json:"treatNamespaceAsList" mapstructure:"treat_namespace_as_list" yaml:"treat_namespace_as_list"`

	// PreferWildcardReexport writes `export * from` re-exports
	PreferWildcardReexport bool `json:"preferWildcardReexport" mapstructure:"prefer_wildcard_reexport" yaml:"prefer_wildcard_reexport"`

	// TreatObjectAsList grows object literals with shorthand properties
	TreatObjectAsList bool `json:"treatObjectAsList" mapstructure:"treat_object_as_list" yaml:"treat_object_as_list"`

	// InstantiateObjectByDefault creates missing properties as objects
	InstantiateObjectByDefault bool `json:"instantiateObjectByDefault" mapstructure:"instantiate_object_by_default" yaml:"instantiate_object_by_default"`

	// ModuleSystem is "auto", "esm" or "commonjs"
	ModuleSystem string `json:"moduleSystem" mapstructure:"module_system" yaml:"module_system"`
}

// DiscoveryConfig holds configuration for target file discovery
type DiscoveryConfig struct {
	// ExcludePatterns are globs of files never referenced
	ExcludePatterns []string `json:"excludePatterns" mapstructure:"exclude_patterns" yaml:"exclude_patterns"`

	// RespectGitignore skips files ignored by the root .gitignore
	RespectGitignore bool `json:"respectGitignore" mapstructure:"respect_gitignore" yaml:"respect_gitignore"`

	// Workers bounds concurrent parsing (0 = number of CPUs)
	Workers int `json:"workers" mapstructure:"workers" yaml:"workers"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	// Format specifies the output format: text, json, yaml
	Format string `json:"format" mapstructure:"format" yaml:"format"`

	// Progress shows a progress bar on interactive terminals
	Progress bool `json:"progress" mapstructure:"progress" yaml:"progress"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Targets: TargetsConfig{
			Migrations:  []string{},
			Entities:    []string{},
			Subscribers: []string{},
		},
		Linking: LinkingConfig{
			Initializer:                DefaultInitializer,
			UpdateOtherFiles:           true,
			TreatNamespaceAsList:       true,
			PreferWildcardReexport:     true,
			TreatObjectAsList:          true,
			InstantiateObjectByDefault: true,
			ModuleSystem:               "auto",
		},
		Discovery: DiscoveryConfig{
			ExcludePatterns: []string{
				"**/*.d.ts",
				"**/*.test.ts",
				"**/*.spec.ts",
			},
			RespectGitignore: true,
			Workers:          0,
		},
		Output: OutputConfig{
			Format:   DefaultOutputFormat,
			Progress: true,
		},
	}
}

// newViper returns a viper instance seeded with the defaults, so that every
// key can be overridden from the environment
func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := DefaultConfig()
	v.SetDefault("data_source", d.DataSource)
	v.SetDefault("targets.migrations", d.Targets.Migrations)
	v.SetDefault("targets.entities", d.Targets.Entities)
	v.SetDefault("targets.subscribers", d.Targets.Subscribers)
	v.SetDefault("linking.initializer", d.Linking.Initializer)
	v.SetDefault("linking.update_other_files", d.Linking.UpdateOtherFiles)
	v.SetDefault("linking.treat_namespace_as_list", d.Linking.TreatNamespaceAsList)
	v.SetDefault("linking.prefer_wildcard_reexport", d.Linking.PreferWildcardReexport)
	v.SetDefault("linking.treat_object_as_list", d.Linking.TreatObjectAsList)
	v.SetDefault("linking.instantiate_object_by_default", d.Linking.InstantiateObjectByDefault)
	v.SetDefault("linking.module_system", d.Linking.ModuleSystem)
	v.SetDefault("discovery.exclude_patterns", d.Discovery.ExcludePatterns)
	v.SetDefault("discovery.respect_gitignore", d.Discovery.RespectGitignore)
	v.SetDefault("discovery.workers", d.Discovery.Workers)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.progress", d.Output.Progress)
	return v
}

// LoadConfig loads configuration from file or returns default config
func LoadConfig(configPath string) (*Config, error) {
	return LoadConfigWithTarget(configPath, "")
}

// LoadConfigWithTarget loads configuration with target path context.
// Without an explicit path the file is discovered from targetPath upward.
func LoadConfigWithTarget(configPath string, targetPath string) (*Config, error) {
	if configPath == "" {
		configPath = findDefaultConfig(targetPath)
	}
	return loadConfigFromFile(configPath)
}

// loadConfigFromFile reads and parses a configuration file. An empty path
// yields the defaults with environment overrides applied.
func loadConfigFromFile(configPath string) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
		}
	}

	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// LoadDotEnv loads dir/.env into the process environment. A missing file
// is not an error; variables already set are kept.
func LoadDotEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// configCandidates lists the config file names in order of preference
var configCandidates = []string{
	"tsrefs.yaml",
	"tsrefs.yml",
	".tsrefs.yaml",
	".tsrefs.yml",
	".tsrefs.toml",
	"tsrefs.json",
}

// searchConfigInDirectory searches for configuration files in a specific directory
func searchConfigInDirectory(dir string, candidates []string) string {
	for _, candidate := range candidates {
		path := filepath.Join(dir, candidate)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// findDefaultConfig looks for a configuration file from targetPath up to the
// filesystem root, then in the current directory and the user config dir
func findDefaultConfig(targetPath string) string {
	if targetPath != "" {
		absPath, err := filepath.Abs(targetPath)
		if err == nil {
			if info, err := os.Stat(absPath); err == nil && !info.IsDir() {
				absPath = filepath.Dir(absPath)
			}

			volume := filepath.VolumeName(absPath)
			for dir := absPath; ; dir = filepath.Dir(dir) {
				if config := searchConfigInDirectory(dir, configCandidates); config != "" {
					return config
				}

				parent := filepath.Dir(dir)
				if parent == dir ||
					dir == volume ||
					(volume != "" && dir == volume+string(filepath.Separator)) {
					break
				}
			}
		}
	}

	if config := searchConfigInDirectory(".", configCandidates); config != "" {
		return config
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		if config := searchConfigInDirectory(filepath.Join(xdgConfig, "tsrefs"), configCandidates); config != "" {
			return config
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		if config := searchConfigInDirectory(filepath.Join(home, ".config", "tsrefs"), configCandidates); config != "" {
			return config
		}
	}

	if envConfig := os.Getenv(EnvPrefix + "_CONFIG"); envConfig != "" {
		if _, err := os.Stat(envConfig); err == nil {
			return envConfig
		}
	}

	return ""
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Linking.Initializer) == "" {
		return fmt.Errorf("linking.initializer cannot be empty")
	}

	switch c.Linking.ModuleSystem {
	case "", "auto":
	default:
		if _, ok := modsys.Parse(c.Linking.ModuleSystem); !ok {
			return fmt.Errorf("invalid linking.module_system '%s', must be one of: auto, esm, commonjs", c.Linking.ModuleSystem)
		}
	}

	if c.Discovery.Workers < 0 {
		return fmt.Errorf("discovery.workers must be >= 0, got %d", c.Discovery.Workers)
	}

	validFormats := map[string]bool{
		"text": true,
		"json": true,
		"yaml": true,
	}
	if !validFormats[c.Output.Format] {
		return fmt.Errorf("invalid output.format '%s', must be one of: text, json, yaml", c.Output.Format)
	}

	return nil
}

// HasTargets reports whether any target glob is configured
func (t *TargetsConfig) HasTargets() bool {
	return len(t.Migrations)+len(t.Entities)+len(t.Subscribers) > 0
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("data_source", config.DataSource)
	v.Set("targets", config.Targets)
	v.Set("linking", config.Linking)
	v.Set("discovery", config.Discovery)
	v.Set("output", config.Output)

	return v.WriteConfig()
}
