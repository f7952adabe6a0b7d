package main

import (
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ludo-technologies/tsrefs/app"
	"github.com/ludo-technologies/tsrefs/service"
)

func watchCmd() *cobra.Command {
	flags := &referenceFlags{}

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Add references whenever matching files appear",
		Long: `Run add-references once, then again every time a file matched by the
target globs is created, renamed or changed. Stops on Ctrl+C.

Examples:
  tsrefs watch -d src/data-source.ts -e src/entity -m src/migration
  tsrefs watch --config tsrefs.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, flags)
		},
	}

	bindReferenceFlags(cmd, flags)
	cmd.Flags().Duration("debounce", app.DefaultDebounce,
		"How long to wait for changes to settle before linking")
	return cmd
}

func runWatch(cmd *cobra.Command, flags *referenceFlags) error {
	req, err := buildRequest(cmd, flags)
	if err != nil {
		return err
	}
	debounce, _ := cmd.Flags().GetDuration("debounce")
	logger := newLogger()

	ctx, stop := interruptible(cmd.Context())
	defer stop()

	resolver := newTargetResolver(req, logger, true)
	refService := service.NewReferenceService(resolver, service.NewEngineLinker(afero.NewOsFs(), logger), logger)

	uc, err := app.NewAddReferencesUseCaseBuilder().
		WithService(refService).
		WithFormatter(service.NewOutputFormatter()).
		Build()
	if err != nil {
		return err
	}

	return app.NewWatchUseCase(uc, logger).
		WithDebounce(debounce).
		Run(ctx, *req)
}
