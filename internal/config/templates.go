package config

import (
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectLayout represents where a project keeps its data source and classes
type ProjectLayout string

const (
	LayoutTypeORM  ProjectLayout = "typeorm"
	LayoutNest     ProjectLayout = "nest"
	LayoutFeatures ProjectLayout = "features"
)

// Policy represents how far the linker may reach when adding references
type Policy string

const (
	// PolicyEntryOnly only edits the data source file
	PolicyEntryOnly Policy = "entry-only"
	// PolicyFollow edits every file a list is declared in
	PolicyFollow Policy = "follow"
)

// LayoutPreset holds configuration presets for different project layouts
type LayoutPreset struct {
	DataSource  string
	Migrations  []string
	Entities    []string
	Subscribers []string
}

// GetLayoutPresets returns presets for different project layouts
func GetLayoutPresets() map[ProjectLayout]LayoutPreset {
	return map[ProjectLayout]LayoutPreset{
		LayoutTypeORM: {
			DataSource:  "src/data-source.ts",
			Migrations:  []string{"src/migration"},
			Entities:    []string{"src/entity"},
			Subscribers: []string{"src/subscriber"},
		},
		LayoutNest: {
			DataSource:  "src/database/data-source.ts",
			Migrations:  []string{"src/database/migrations"},
			Entities:    []string{"src/**/*.entity.ts"},
			Subscribers: []string{"src/**/*.subscriber.ts"},
		},
		LayoutFeatures: {
			DataSource:  "src/db/data-source.ts",
			Migrations:  []string{"src/db/migrations"},
			Entities:    []string{"src/features/**/entities/*.ts"},
			Subscribers: []string{"src/features/**/subscribers/*.ts"},
		},
	}
}

// GetFullConfigTemplate returns the documented config template as YAML
func GetFullConfigTemplate(layout ProjectLayout, policy Policy) string {
	preset, ok := GetLayoutPresets()[layout]
	if !ok {
		preset = GetLayoutPresets()[LayoutTypeORM]
	}
	follow := policy != PolicyEntryOnly

	return `# tsrefs Configuration
# Documentation: https://github.com/ludo-technologies/tsrefs

# File holding the ` + "`new DataSource(...)`" + ` initializer
data_source: ` + quoteYAML(preset.DataSource) + `

# ============================================================================
# TARGETS
# ============================================================================
# Glob patterns of the files whose exported classes are referenced.
# A directory matches its direct .ts, .cts and .mts children.
targets:
  migrations:` + formatYAMLList(preset.Migrations) + `
  entities:` + formatYAMLList(preset.Entities) + `
  subscribers:` + formatYAMLList(preset.Subscribers) + `

# ============================================================================
# LINKING
# ============================================================================
linking:
  # Constructor whose first argument holds the lists
  initializer: ` + DefaultInitializer + `

  # Edit the files lists are declared in, not only the data source
  update_other_files: ` + strconv.FormatBool(follow) + `

  # Grow ` + "`import * as entities`" + ` lists by re-exporting from that module
  treat_namespace_as_list: true

  # Write ` + "`export * from`" + ` instead of ` + "`export { X } from`" + `
  prefer_wildcard_reexport: true

  # Grow object literals used as sets, e.g. ` + "`{ User, Post }`" + `
  treat_object_as_list: true

  # Create missing properties as ` + "`{ X }`" + ` instead of ` + "`[X]`" + `
  instantiate_object_by_default: true

  # Import specifier style: auto, esm, commonjs
  module_system: auto

# ============================================================================
# DISCOVERY
# ============================================================================
discovery:
  exclude_patterns:
    - "**/*.d.ts"
    - "**/*.test.ts"
    - "**/*.spec.ts"

  # Skip files ignored by the project's .gitignore
  respect_gitignore: true

  # Number of parallel parsers (0 = auto-detect based on CPU)
  workers: 0

# ============================================================================
# OUTPUT
# ============================================================================
output:
  # Output format: text, json, yaml
  format: text

  # Show a progress bar on interactive terminals
  progress: true
`
}

// minimalTemplate is the subset of Config written by the minimal template
type minimalTemplate struct {
	DataSource string        `yaml:"data_source"`
	Targets    TargetsConfig `yaml:"targets"`
}

// GetMinimalConfigTemplate returns a minimal config template
func GetMinimalConfigTemplate(layout ProjectLayout) (string, error) {
	preset, ok := GetLayoutPresets()[layout]
	if !ok {
		preset = GetLayoutPresets()[LayoutTypeORM]
	}

	out, err := yaml.Marshal(minimalTemplate{
		DataSource: preset.DataSource,
		Targets: TargetsConfig{
			Migrations:  preset.Migrations,
			Entities:    preset.Entities,
			Subscribers: preset.Subscribers,
		},
	})
	if err != nil {
		return "", err
	}
	return "# tsrefs Configuration (minimal)\n# See full options: https://github.com/ludo-technologies/tsrefs\n\n" + string(out), nil
}

// formatYAMLList formats a string slice as an indented YAML block sequence
func formatYAMLList(items []string) string {
	if len(items) == 0 {
		return " []"
	}

	var b strings.Builder
	for _, item := range items {
		b.WriteString("\n    - ")
		b.WriteString(quoteYAML(item))
	}
	return b.String()
}

func quoteYAML(s string) string {
	return strconv.Quote(s)
}
