package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/platforge/platforge/pkg/stores"
	"github.com/spf13/cobra"
)

func newRunsCommand() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the persisted run history",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "platforge.db", "SQLite database path")

	cmd.AddCommand(newRunsListCommand(&dbPath))
	cmd.AddCommand(newRunsShowCommand(&dbPath))

	return cmd
}

func newRunsListCommand(dbPath *string) *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded evaluation runs",
		Example: `  # List the most recent runs
  platforge runs list --db platforge.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			store, err := openStore(ctx, *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(ctx, limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if jsonOutput {
				return printJSON(runs)
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tSTATUS\tTARGET PLATFORM\tSTARTED")
			for _, run := range runs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					run.ID, run.Status, run.TargetPlatform, run.StartedAt.Format("2006-01-02 15:04:05"))
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")

	return cmd
}

func newRunsShowCommand(dbPath *string) *cobra.Command {
	var target string

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a run's resolutions and diagnostics",
		Args:  cobra.ExactArgs(1),
		Example: `  # Show everything recorded for a run
  platforge runs show 4f9c21aa-... --db platforge.db

  # Show one target's resolutions only
  platforge runs show 4f9c21aa-... --target //demo:my_target`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			runID := args[0]

			store, err := openStore(ctx, *dbPath)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(ctx, runID)
			if err != nil {
				return fmt.Errorf("failed to load run: %w", err)
			}

			var resolutions []*stores.Resolution
			if target != "" {
				resolutions, err = store.ListResolutionsByTarget(ctx, runID, target)
			} else {
				resolutions, err = store.ListResolutionsByRun(ctx, runID)
			}
			if err != nil {
				return fmt.Errorf("failed to load resolutions: %w", err)
			}

			diags, err := store.ListDiagnostics(ctx, &runID, nil, nil, 100, 0)
			if err != nil {
				return fmt.Errorf("failed to load diagnostics: %w", err)
			}

			if jsonOutput {
				return printJSON(map[string]interface{}{
					"run":         run,
					"resolutions": resolutions,
					"diagnostics": diags,
				})
			}

			fmt.Printf("Run %s\n", run.ID)
			fmt.Printf("  Status:          %s\n", run.Status)
			fmt.Printf("  Target platform: %s\n", run.TargetPlatform)
			fmt.Printf("  Started:         %s\n", run.StartedAt.Format("2006-01-02 15:04:05"))
			if run.Error != nil {
				fmt.Printf("  Error:           %s\n", *run.Error)
			}

			fmt.Println()
			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TARGET\tGROUP\tSTATUS\tPLATFORM")
			for _, res := range resolutions {
				platform := ""
				if res.Platform != nil {
					platform = *res.Platform
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", res.Target, res.ExecGroup, res.Status, platform)
			}
			if err := w.Flush(); err != nil {
				return err
			}

			if len(diags) > 0 {
				fmt.Println()
				fmt.Printf("Diagnostics (%d):\n", len(diags))
				for _, d := range diags {
					fmt.Printf("  [%s] %s\n", d.Kind, d.Message)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&target, "target", "", "restrict output to one target's resolutions")

	return cmd
}

// openStore opens an existing run-history database.
func openStore(ctx context.Context, dbPath string) (*stores.SQLiteStore, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return nil, fmt.Errorf("run history database not found: %s", dbPath)
	}
	store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}
	return store, nil
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
