package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	settingsPath string
	verbose      bool
	jsonOutput   bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "platforge",
		Short: "Platforge - Execution Platform Resolution Engine",
		Long: `Platforge resolves execution platforms and toolchains for build targets.

Given constraint, platform, toolchain, and target declarations (Starlark)
plus build settings (CUE), it resolves every exec group of every target to
a concrete execution platform, binds one toolchain per required type, and
merges exec properties across the platform, rule, and target layers.

Features:
  - Starlark declaration files with registration-order semantics
  - CUE-validated build settings
  - Per-group independent platform and toolchain resolution
  - Automatic exec groups per toolchain type
  - Memoized exec transitions for dependency configurations
  - SQLite-backed run history`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&settingsPath, "settings", "s", "settings.cue", "build settings file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newResolveCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}
