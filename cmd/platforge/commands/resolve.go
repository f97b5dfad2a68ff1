package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/platforge/platforge/pkg/config"
	"github.com/platforge/platforge/pkg/platform"
	"github.com/platforge/platforge/pkg/resolve"
	"github.com/platforge/platforge/pkg/stores"
	"github.com/platforge/platforge/pkg/telemetry"
	"github.com/platforge/platforge/pkg/transition"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// resolutionReport is the serialized outcome of one evaluation run.
type resolutionReport struct {
	GeneratedAt        time.Time          `json:"generated_at" yaml:"generated_at"`
	TargetPlatform     string             `json:"target_platform" yaml:"target_platform"`
	ExecutionPlatforms []string           `json:"execution_platforms" yaml:"execution_platforms"`
	AutoExecGroups     bool               `json:"auto_exec_groups" yaml:"auto_exec_groups"`
	Targets            []targetReport     `json:"targets" yaml:"targets"`
	Diagnostics        []diagnosticReport `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
	TransitionCache    cacheReport        `json:"transition_cache" yaml:"transition_cache"`
}

type targetReport struct {
	Label   string         `json:"label" yaml:"label"`
	Status  string         `json:"status" yaml:"status"`
	Error   string         `json:"error,omitempty" yaml:"error,omitempty"`
	Groups  []groupReport  `json:"groups,omitempty" yaml:"groups,omitempty"`
	Actions []actionReport `json:"actions,omitempty" yaml:"actions,omitempty"`
	Deps    []depReport    `json:"deps,omitempty" yaml:"deps,omitempty"`
}

type groupReport struct {
	Name           string            `json:"name" yaml:"name"`
	Platform       string            `json:"platform" yaml:"platform"`
	Toolchains     map[string]string `json:"toolchains,omitempty" yaml:"toolchains,omitempty"`
	ExecProperties map[string]string `json:"exec_properties,omitempty" yaml:"exec_properties,omitempty"`
}

type actionReport struct {
	Mnemonic string `json:"mnemonic" yaml:"mnemonic"`
	Group    string `json:"group" yaml:"group"`
	Platform string `json:"platform" yaml:"platform"`
}

type depReport struct {
	Attr           string `json:"attr" yaml:"attr"`
	Label          string `json:"label" yaml:"label"`
	Transition     string `json:"transition" yaml:"transition"`
	TargetPlatform string `json:"target_platform,omitempty" yaml:"target_platform,omitempty"`
	IsExec         bool   `json:"is_exec,omitempty" yaml:"is_exec,omitempty"`
}

type diagnosticReport struct {
	Target     string `json:"target" yaml:"target"`
	Group      string `json:"group,omitempty" yaml:"group,omitempty"`
	Kind       string `json:"kind" yaml:"kind"`
	Message    string `json:"message" yaml:"message"`
	Suggestion string `json:"suggestion,omitempty" yaml:"suggestion,omitempty"`
}

type cacheReport struct {
	Hits   uint64 `json:"hits" yaml:"hits"`
	Misses uint64 `json:"misses" yaml:"misses"`
}

func newResolveCommand() *cobra.Command {
	var (
		outPath     string
		format      string
		dbPath      string
		watch       bool
		metricsAddr string
		enableTrace bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Resolve execution platforms and toolchains for all targets",
		Long: `Resolve loads the build settings and declaration files, evaluates every
declared target, and emits a report mapping each exec group to its chosen
execution platform, bound toolchains, and merged exec properties.`,
		Example: `  # Resolve using settings.cue in the current directory
  platforge resolve

  # Write a JSON report to a file and persist the run history
  platforge resolve --format json --out report.json --db platforge.db

  # Re-resolve whenever a declaration or settings file changes
  platforge resolve --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if jsonOutput {
				format = "json"
			}
			if format != "yaml" && format != "json" {
				return fmt.Errorf("unsupported format: %s (must be 'yaml' or 'json')", format)
			}

			tel, err := newTelemetry(metricsAddr, enableTrace)
			if err != nil {
				return fmt.Errorf("failed to initialize telemetry: %w", err)
			}
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = tel.Shutdown(shutdownCtx)
			}()
			if metricsAddr != "" {
				if err := tel.StartMetricsServer(); err != nil {
					return fmt.Errorf("failed to start metrics server: %w", err)
				}
			}

			runOnce := func() error {
				return runResolution(ctx, tel, settingsPath, outPath, format, dbPath)
			}

			if err := runOnce(); err != nil {
				if !watch {
					return err
				}
				log.Error().Err(err).Msg("Initial resolution failed, watching for changes")
			}

			if !watch {
				return nil
			}

			ws, err := loadWorkspace(ctx, settingsPath)
			if err != nil {
				return err
			}
			watcher := config.NewWatcher(log.Logger)
			if err := watcher.Watch(ctx, ws.WatchPaths, runOnce); err != nil {
				return err
			}
			<-ctx.Done()
			return nil
		},
	}

	cmd.Flags().StringVarP(&outPath, "out", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "report format (yaml, json)")
	cmd.Flags().StringVar(&dbPath, "db", "", "SQLite database path for run history")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-resolve when declaration or settings files change")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for the Prometheus metrics endpoint")
	cmd.Flags().BoolVar(&enableTrace, "trace", false, "export trace spans to stdout")

	return cmd
}

// newTelemetry builds the telemetry stack for a CLI invocation. Logs go to
// stderr so report output on stdout stays parseable.
func newTelemetry(metricsAddr string, enableTrace bool) (*telemetry.Telemetry, error) {
	cfg := telemetry.DefaultConfig()
	cfg.Logging.Output = "stderr"
	if verbose {
		cfg.Logging.Level = "debug"
	}
	cfg.Tracing.Enabled = enableTrace
	cfg.Metrics.Enabled = metricsAddr != ""
	if metricsAddr != "" {
		cfg.Metrics.ListenAddress = metricsAddr
	}
	return telemetry.NewTelemetry(cfg)
}

// runResolution performs one full load-evaluate-report cycle.
func runResolution(ctx context.Context, tel *telemetry.Telemetry, settingsFile, outPath, format, dbPath string) error {
	ws, err := loadWorkspace(ctx, settingsFile)
	if err != nil {
		return err
	}

	runID := uuid.New().String()
	runCtx := telemetry.WithRunContext(tel.WithContext(ctx), runID, os.Getenv("USER"))

	log.Info().
		Str("run_id", runID).
		Str("target_platform", ws.Settings.TargetPlatform).
		Int("execution_platforms", len(ws.Candidates)).
		Int("targets", len(ws.Snapshot.Targets)).
		Msg("Resolving targets")

	collector := resolve.NewCollector()
	base := transition.NewConfiguration(platform.Label(ws.Settings.TargetPlatform), false, nil)
	evaluator := resolve.NewEvaluator(ws.Snapshot.Catalog, ws.Snapshot.Registry, ws.Candidates, ws.TargetPlatform, resolve.Options{
		Workers:           ws.Settings.Workers,
		AutoExecGroups:    ws.Settings.AutoExecGroups,
		BaseConfiguration: base,
		Logger:            tel.Logger,
		Metrics:           tel.Metrics,
		Tracer:            tel.Tracer,
		Reporter:          collector,
	})

	results, err := evaluator.EvaluateAll(runCtx, ws.Snapshot.Targets)
	if err != nil {
		telemetry.EndRunContext(runCtx, runID, "failed", err)
		return fmt.Errorf("evaluation aborted: %w", err)
	}

	for _, d := range collector.Diagnostics() {
		_ = tel.Events.PublishDiagnostic(runID, string(d.Target), d.Group, string(d.Kind), d.Message)
	}

	report := buildReport(ws, evaluator, results, collector.Diagnostics())

	failed := 0
	for _, t := range report.Targets {
		if t.Status == "failed" {
			failed++
		}
	}
	var runErr error
	if failed > 0 {
		runErr = fmt.Errorf("%d of %d targets failed to resolve", failed, len(report.Targets))
	}
	status := "completed"
	if runErr != nil {
		status = "failed"
	}
	telemetry.EndRunContext(runCtx, runID, status, runErr)

	log.Info().
		Str("run_id", runID).
		Int("resolved", len(report.Targets)-failed).
		Int("failed", failed).
		Uint64("cache_hits", report.TransitionCache.Hits).
		Msg("Resolution complete")

	if dbPath != "" {
		if err := persistRun(ctx, dbPath, runID, ws, results, collector.Diagnostics()); err != nil {
			return fmt.Errorf("failed to persist run: %w", err)
		}
	}

	if err := writeReport(report, outPath, format); err != nil {
		return err
	}

	return runErr
}

// buildReport flattens evaluation results into the serializable report,
// sorted by target label for stable output.
func buildReport(ws *workspace, evaluator *resolve.Evaluator, results map[platform.Label]*resolve.TargetResolution, diags []resolve.Diagnostic) *resolutionReport {
	hits, misses := evaluator.TransitionStats()
	report := &resolutionReport{
		GeneratedAt:        time.Now().UTC(),
		TargetPlatform:     ws.Settings.TargetPlatform,
		ExecutionPlatforms: ws.Settings.ExecutionPlatforms,
		AutoExecGroups:     ws.Settings.AutoExecGroups,
		TransitionCache:    cacheReport{Hits: hits, Misses: misses},
	}

	labels := make([]string, 0, len(results))
	for label := range results {
		labels = append(labels, string(label))
	}
	sort.Strings(labels)

	for _, label := range labels {
		res := results[platform.Label(label)]
		tr := targetReport{Label: label, Status: "resolved"}
		if res.Failed() {
			tr.Status = "failed"
			tr.Error = res.Err.Error()
		}
		for _, name := range res.GroupNames() {
			group := res.Groups[name]
			gr := groupReport{
				Name:           group.Group,
				Platform:       string(group.Platform),
				ExecProperties: group.ExecProperties,
			}
			if len(group.Toolchains) > 0 {
				gr.Toolchains = make(map[string]string, len(group.Toolchains))
				for typ, inst := range group.Toolchains {
					gr.Toolchains[string(typ)] = string(inst)
				}
			}
			tr.Groups = append(tr.Groups, gr)
		}
		for _, action := range res.Actions {
			tr.Actions = append(tr.Actions, actionReport{
				Mnemonic: action.Mnemonic,
				Group:    action.Group,
				Platform: string(action.Execution.Platform),
			})
		}
		for _, dep := range res.Deps {
			dr := depReport{
				Attr:       dep.Attr,
				Label:      string(dep.Label),
				Transition: string(dep.Kind),
			}
			if dep.Configuration != nil {
				dr.TargetPlatform = string(dep.Configuration.TargetPlatform)
				dr.IsExec = dep.Configuration.IsExec
			}
			tr.Deps = append(tr.Deps, dr)
		}
		report.Targets = append(report.Targets, tr)
	}

	for _, d := range diags {
		report.Diagnostics = append(report.Diagnostics, diagnosticReport{
			Target:     string(d.Target),
			Group:      d.Group,
			Kind:       string(d.Kind),
			Message:    d.Message,
			Suggestion: d.Suggestion,
		})
	}

	return report
}

// writeReport serializes the report to stdout or a file.
func writeReport(report *resolutionReport, outPath, format string) error {
	var data []byte
	var err error
	switch format {
	case "json":
		data, err = json.MarshalIndent(report, "", "  ")
		if err == nil {
			data = append(data, '\n')
		}
	default:
		data, err = yaml.Marshal(report)
	}
	if err != nil {
		return fmt.Errorf("failed to serialize report: %w", err)
	}

	if outPath == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	if err := os.WriteFile(outPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	log.Info().Str("path", outPath).Msg("Report written")
	return nil
}

// persistRun records the run, its per-group resolutions, and its diagnostics
// in the SQLite run history.
func persistRun(ctx context.Context, dbPath, runID string, ws *workspace, results map[platform.Label]*resolve.TargetResolution, diags []resolve.Diagnostic) error {
	store, err := stores.NewSQLiteStore(stores.Config{Path: dbPath})
	if err != nil {
		return err
	}
	if err := store.Init(ctx); err != nil {
		return err
	}
	defer store.Close()
	if err := store.Migrate(ctx); err != nil {
		return err
	}

	now := time.Now()
	metadata, _ := json.Marshal(map[string]interface{}{
		"targets":             len(results),
		"execution_platforms": ws.Settings.ExecutionPlatforms,
	})
	run := &stores.Run{
		ID:             runID,
		SettingsPath:   settingsPath,
		TargetPlatform: ws.Settings.TargetPlatform,
		AutoExecGroups: ws.Settings.AutoExecGroups,
		Status:         stores.RunStatusRunning,
		StartedAt:      now,
		Metadata:       string(metadata),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := store.CreateRun(ctx, run); err != nil {
		return err
	}

	failed := false
	for target, res := range results {
		if res.Failed() {
			failed = true
			msg := res.Err.Error()
			rec := &stores.Resolution{
				ID:        uuid.New().String(),
				RunID:     run.ID,
				Target:    string(target),
				ExecGroup: "default",
				Status:    stores.ResolutionStatusFailed,
				Error:     &msg,
				CreatedAt: time.Now(),
			}
			if err := store.CreateResolution(ctx, rec); err != nil {
				return err
			}
			continue
		}
		for _, name := range res.GroupNames() {
			group := res.Groups[name]
			toolchains, _ := json.Marshal(group.Toolchains)
			props, _ := json.Marshal(group.ExecProperties)
			platformLabel := string(group.Platform)
			rec := &stores.Resolution{
				ID:             uuid.New().String(),
				RunID:          run.ID,
				Target:         string(target),
				ExecGroup:      name,
				Status:         stores.ResolutionStatusResolved,
				Platform:       &platformLabel,
				Toolchains:     string(toolchains),
				ExecProperties: string(props),
				CreatedAt:      time.Now(),
			}
			if err := store.CreateResolution(ctx, rec); err != nil {
				return err
			}
		}
	}

	for _, d := range diags {
		rec := &stores.Diagnostic{
			RunID:     run.ID,
			Target:    string(d.Target),
			Kind:      string(d.Kind),
			Message:   d.Message,
			Timestamp: d.Timestamp,
		}
		if d.Group != "" {
			group := d.Group
			rec.ExecGroup = &group
		}
		if d.Suggestion != "" {
			suggestion := d.Suggestion
			rec.Suggestion = &suggestion
		}
		if err := store.AppendDiagnostic(ctx, rec); err != nil {
			return err
		}
	}

	status := stores.RunStatusCompleted
	var runErr *string
	if failed {
		status = stores.RunStatusFailed
		msg := "one or more targets failed to resolve"
		runErr = &msg
	}
	if err := store.UpdateRunStatus(ctx, run.ID, status, runErr); err != nil {
		return err
	}

	log.Info().Str("run_id", run.ID).Str("db", dbPath).Msg("Run persisted")
	return nil
}
