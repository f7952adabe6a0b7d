package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/tsrefs/app"
	"github.com/ludo-technologies/tsrefs/domain"
	"github.com/ludo-technologies/tsrefs/internal/constants"
	"github.com/ludo-technologies/tsrefs/service"
)

// referenceFlags are the flags shared by add-references and watch
type referenceFlags struct {
	dataSource   string
	migrations   []string
	entities     []string
	subscribers  []string
	properties   []string
	initializer  string
	moduleSystem string
	format       string
	configPath   string
	root         string
	workers      int
}

func bindReferenceFlags(cmd *cobra.Command, f *referenceFlags) {
	cmd.Flags().StringVarP(&f.dataSource, "dataSource", "d", "",
		"File holding the initializer (default: data_source from the config file)")
	cmd.Flags().StringArrayVarP(&f.migrations, "migrations", "m", nil,
		"Glob of migration files (repeatable)")
	cmd.Flags().StringArrayVarP(&f.entities, "entities", "e", nil,
		"Glob of entity files (repeatable)")
	cmd.Flags().StringArrayVarP(&f.subscribers, "subscribers", "s", nil,
		"Glob of subscriber files (repeatable)")
	cmd.Flags().StringArrayVar(&f.properties, "property", nil,
		"Reference files from another property, as name=glob (repeatable)")
	cmd.Flags().StringVar(&f.initializer, "initializer", "",
		"Constructor whose first argument holds the lists (default: DataSource)")
	cmd.Flags().StringVar(&f.moduleSystem, "module-system", "",
		"Import specifier style: auto, esm, commonjs")
	cmd.Flags().StringVar(&f.format, "format", "",
		"Output format: text, json, yaml")
	cmd.Flags().StringVarP(&f.configPath, "config", "c", "",
		"Path to config file")
	cmd.Flags().StringVar(&f.root, "root", "",
		"Directory patterns and the data source are relative to (default: current directory)")
	cmd.Flags().IntVar(&f.workers, "workers", 0,
		"Number of parallel parsers (0 = number of CPUs)")
}

func addReferencesCmd() *cobra.Command {
	flags := &referenceFlags{}

	cmd := &cobra.Command{
		Use:     "add-references",
		Aliases: []string{"addReferences"},
		Short:   "Add references to migrations, entities and subscribers",
		Long: `Add every exported class matched by the given globs to the matching
property of the data source initializer, importing it where needed.

A directory matches its direct .ts, .cts and .mts children. Files already
referenced are left untouched, so the command can be run repeatedly.

Examples:
  tsrefs add-references -d src/data-source.ts -e src/entity -m src/migration
  tsrefs add-references -d src/data-source.ts -e "src/**/*.entity.ts"
  tsrefs add-references --property seeds=src/seeds
  tsrefs add-references --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAddReferences(cmd, flags)
		},
	}

	bindReferenceFlags(cmd, flags)
	return cmd
}

func runAddReferences(cmd *cobra.Command, flags *referenceFlags) error {
	req, err := buildRequest(cmd, flags)
	if err != nil {
		return err
	}
	logger := newLogger()

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	progress := service.NewProgressManager(req.ShowProgress && req.OutputFormat == domain.OutputFormatText)
	defer progress.Close()

	resolver := newTargetResolver(req, logger, false)
	refService := service.NewReferenceService(resolver, service.NewEngineLinker(afero.NewOsFs(), logger), logger).
		WithProgress(progress)

	uc, err := app.NewAddReferencesUseCaseBuilder().
		WithService(refService).
		WithFormatter(service.NewOutputFormatter()).
		Build()
	if err != nil {
		return err
	}

	_, err = uc.Execute(ctx, *req)
	return err
}

// buildRequest merges the command line over the configuration file
func buildRequest(cmd *cobra.Command, flags *referenceFlags) (*domain.AddReferencesRequest, error) {
	loader := service.NewConfigurationLoader()

	base, err := loader.LoadConfig(flags.configPath, configSearchPath(flags))
	if err != nil {
		return nil, err
	}

	override, err := flagsToRequest(flags)
	if err != nil {
		return nil, err
	}
	override.OutputWriter = cmd.OutOrStdout()

	req := loader.MergeConfig(base, override)
	if err := loader.ValidateConfig(req); err != nil {
		return nil, err
	}
	return req, nil
}

// configSearchPath is where config file discovery starts: the data source
// when one is given, otherwise the root
func configSearchPath(flags *referenceFlags) string {
	if flags.dataSource == "" {
		return flags.root
	}
	if flags.root != "" && !filepath.IsAbs(flags.dataSource) {
		return filepath.Join(flags.root, flags.dataSource)
	}
	return flags.dataSource
}

// flagsToRequest converts the command line into a partial request
func flagsToRequest(flags *referenceFlags) (*domain.AddReferencesRequest, error) {
	system, err := service.ParseModuleSystem(flags.moduleSystem)
	if err != nil {
		return nil, err
	}

	props := make([]domain.PropertyTargets, 0, 3+len(flags.properties))
	add := func(kind, property string, patterns []string) {
		if len(patterns) == 0 {
			return
		}
		for i := range props {
			if props[i].Property == property {
				props[i].Patterns = append(props[i].Patterns, patterns...)
				return
			}
		}
		props = append(props, domain.PropertyTargets{Kind: kind, Property: property, Patterns: patterns})
	}
	add(constants.KindMigration, constants.PropertyMigrations, flags.migrations)
	add(constants.KindEntity, constants.PropertyEntities, flags.entities)
	add(constants.KindSubscriber, constants.PropertySubscribers, flags.subscribers)

	for _, value := range flags.properties {
		name, pattern, ok := strings.Cut(value, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(pattern) == "" {
			return nil, domain.NewValidationError(fmt.Sprintf("invalid --property %q, expected name=glob", value))
		}
		add(name, name, []string{pattern})
	}

	return &domain.AddReferencesRequest{
		DataSourcePath: flags.dataSource,
		Initializer:    flags.initializer,
		RootDir:        flags.root,
		Properties:     props,
		Options:        domain.LinkOptions{ModuleSystem: system},
		Workers:        flags.workers,
		OutputFormat:   domain.OutputFormat(strings.ToLower(flags.format)),
	}, nil
}

// newTargetResolver builds the resolver of req. Long-running commands keep
// a parse cache between passes.
func newTargetResolver(req *domain.AddReferencesRequest, logger *slog.Logger, cached bool) *service.TargetResolverImpl {
	opts := []service.TargetResolverOption{
		service.WithResolverLogger(logger),
		service.WithExcludePatterns(req.ExcludePatterns),
		service.WithGitignore(req.RespectGitignore),
		service.WithWorkers(req.Workers),
	}
	if cached {
		opts = append(opts, service.WithParseCache(service.DefaultTargetCacheSize))
	}
	return service.NewTargetResolver(opts...)
}

// interruptible returns ctx cancelled on SIGINT or SIGTERM
func interruptible(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
}
