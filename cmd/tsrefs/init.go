package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/tsrefs/internal/config"
	"github.com/ludo-technologies/tsrefs/internal/constants"
)

func initCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a tsrefs configuration file",
		Long: `Generate a documented tsrefs configuration file with sensible defaults.

By default, creates tsrefs.yaml in the current directory for the standard
TypeORM layout. Use --interactive for a guided setup wizard.

Examples:
  # Create tsrefs.yaml in current directory
  tsrefs init

  # Custom output path
  tsrefs init --config config/tsrefs.yaml

  # Overwrite existing file
  tsrefs init --force

  # NestJS layout with data source and target globs only
  tsrefs init --layout nest --minimal

  # Interactive setup wizard
  tsrefs init --interactive
  tsrefs init -i`,
		RunE: runInit,
	}

	cmd.Flags().StringP("config", "c", constants.ConfigFileName,
		"Output path for the config file")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing config file")
	cmd.Flags().Bool("minimal", false,
		"Generate minimal config with the data source and targets only")
	cmd.Flags().String("layout", string(config.LayoutTypeORM),
		"Project layout: typeorm, nest, features")
	cmd.Flags().BoolP("interactive", "i", false,
		"Interactive setup wizard")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	force, _ := cmd.Flags().GetBool("force")
	minimal, _ := cmd.Flags().GetBool("minimal")
	layoutName, _ := cmd.Flags().GetString("layout")
	interactive, _ := cmd.Flags().GetBool("interactive")

	layout := config.ProjectLayout(layoutName)
	if _, ok := config.GetLayoutPresets()[layout]; !ok {
		return fmt.Errorf("unknown layout %q (must be one of: typeorm, nest, features)", layoutName)
	}
	policy := config.PolicyFollow

	if interactive {
		var err error
		layout, policy, configPath, err = runInteractiveSetup(configPath)
		if err != nil {
			return err
		}
	}

	if !force {
		if _, err := os.Stat(configPath); err == nil {
			return fmt.Errorf("%s already exists. Use --force to overwrite", configPath)
		}
	}

	dir := filepath.Dir(configPath)
	if dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			return fmt.Errorf("directory does not exist: %s", dir)
		}
	}

	var content string
	if minimal {
		var err error
		content, err = config.GetMinimalConfigTemplate(layout)
		if err != nil {
			return fmt.Errorf("failed to render config: %w", err)
		}
	} else {
		content = config.GetFullConfigTemplate(layout, policy)
	}

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	displayPath := configPath
	if absPath, err := filepath.Abs(configPath); err == nil {
		displayPath = absPath
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", displayPath)
	fmt.Fprintln(out, "\nRun 'tsrefs add-references' to reference your classes.")

	return nil
}

func runInteractiveSetup(defaultConfigPath string) (config.ProjectLayout, config.Policy, string, error) {
	fmt.Println()
	fmt.Println("tsrefs Configuration Setup")
	fmt.Println("==========================")
	fmt.Println()

	presets := config.GetLayoutPresets()
	layouts := []struct {
		Label      string
		DataSource string
		Value      config.ProjectLayout
	}{
		{"TypeORM (src/entity, src/migration)", presets[config.LayoutTypeORM].DataSource, config.LayoutTypeORM},
		{"NestJS (*.entity.ts next to modules)", presets[config.LayoutNest].DataSource, config.LayoutNest},
		{"Feature folders (src/features/*/entities)", presets[config.LayoutFeatures].DataSource, config.LayoutFeatures},
	}

	layoutTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .DataSource | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .DataSource | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	layoutPrompt := promptui.Select{
		Label:     "How is the project laid out?",
		Items:     layouts,
		Templates: layoutTemplates,
	}

	layoutIdx, _, err := layoutPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("layout selection cancelled: %w", err)
	}
	selectedLayout := layouts[layoutIdx].Value

	fmt.Println()

	policies := []struct {
		Label       string
		Description string
		Value       config.Policy
	}{
		{"Follow lists (recommended)", "Edit the files entity lists are declared in", config.PolicyFollow},
		{"Data source only", "Never edit files other than the data source", config.PolicyEntryOnly},
	}

	policyTemplates := &promptui.SelectTemplates{
		Label:    "{{ . }}",
		Active:   "\U0001F449 {{ .Label | cyan }} - {{ .Description | faint }}",
		Inactive: "   {{ .Label | white }} - {{ .Description | faint }}",
		Selected: "\U00002705 {{ .Label | green }}",
	}

	policyPrompt := promptui.Select{
		Label:     "Which files may tsrefs edit?",
		Items:     policies,
		Templates: policyTemplates,
	}

	policyIdx, _, err := policyPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("policy selection cancelled: %w", err)
	}
	selectedPolicy := policies[policyIdx].Value

	fmt.Println()

	outputPrompt := promptui.Prompt{
		Label:   "Output file path",
		Default: defaultConfigPath,
	}

	outputPath, err := outputPrompt.Run()
	if err != nil {
		return "", "", "", fmt.Errorf("output path input cancelled: %w", err)
	}
	if outputPath == "" {
		outputPath = defaultConfigPath
	}

	fmt.Println()
	fmt.Printf("Creating %s... ", outputPath)

	return selectedLayout, selectedPolicy, outputPath, nil
}
