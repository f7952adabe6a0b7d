package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ludo-technologies/tsrefs/internal/config"
	"github.com/ludo-technologies/tsrefs/internal/version"
)

var (
	// Version information (set via ldflags during build)
	Version = version.Version

	verbose bool
)

func main() {
	if err := config.LoadDotEnv("."); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "tsrefs",
		Short: "tsrefs - keep TypeORM data sources in sync with their classes",
		Long: `tsrefs adds references to migrations, entities and subscribers to the
constructor call that declares them, e.g. new DataSource({ ... }).

Lists are followed across variables, imports and namespace re-exports, the
needed imports are synthesized and the surrounding formatting is preserved.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	rootCmd.AddCommand(addReferencesCmd())
	rootCmd.AddCommand(watchCmd())
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(versionCmd())
	return rootCmd
}

// newLogger returns the stderr logger of a command run
func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func versionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			full, _ := cmd.Flags().GetBool("full")
			if full {
				fmt.Fprintln(cmd.OutOrStdout(), version.GetFullVersion())
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "tsrefs version %s\n", version.GetVersion())
			}
		},
	}

	cmd.Flags().BoolP("full", "v", false, "Show detailed version information")
	return cmd
}
