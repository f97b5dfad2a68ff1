package resolve

import (
	"context"
	"fmt"
	"sync"

	"github.com/platforge/platforge/pkg/execgroup"
	"github.com/platforge/platforge/pkg/platform"
	"github.com/platforge/platforge/pkg/telemetry"
	"github.com/platforge/platforge/pkg/toolchain"
	"github.com/platforge/platforge/pkg/transition"
)

// Options configures an Evaluator.
type Options struct {
	// Workers is the maximum number of targets evaluated concurrently.
	// Defaults to 10.
	Workers int

	// AutoExecGroups enables automatic per-toolchain-type exec groups for
	// rules that do not opt out.
	AutoExecGroups bool

	// BaseConfiguration is the configuration targets are evaluated in.
	// Dependency configurations are derived from it. When nil, dependency
	// edges are validated but no configurations are computed.
	BaseConfiguration *transition.Configuration

	// Logger receives evaluation logs. Optional.
	Logger *telemetry.Logger

	// Metrics receives evaluation metrics. Optional.
	Metrics *telemetry.Metrics

	// Tracer receives evaluation spans. Optional.
	Tracer *telemetry.Tracer

	// Reporter receives diagnostics as they are produced. Optional.
	Reporter Reporter
}

// Evaluator resolves sets of targets concurrently. Each target is evaluated
// independently; a failure is confined to the failing target and the targets
// that depend on it. Results are memoized per target label, so re-evaluating
// an unchanged target is free.
type Evaluator struct {
	resolver       *Resolver
	applier        *transition.Applier
	candidates     []*platform.Platform
	targetPlatform *platform.Platform
	opts           Options

	mu   sync.Mutex
	memo map[platform.Label]*TargetResolution
}

// NewEvaluator creates an evaluator over immutable resolution inputs: the
// constraint catalog, the toolchain registry, the ordered execution platform
// candidates, and the target platform.
func NewEvaluator(
	catalog *platform.Catalog,
	registry *toolchain.Registry,
	candidates []*platform.Platform,
	targetPlatform *platform.Platform,
	opts Options,
) *Evaluator {
	if opts.Workers <= 0 {
		opts.Workers = 10
	}
	return &Evaluator{
		resolver:       NewResolver(catalog, registry),
		applier:        transition.NewApplier(),
		candidates:     candidates,
		targetPlatform: targetPlatform,
		opts:           opts,
		memo:           make(map[platform.Label]*TargetResolution),
	}
}

// EvaluateAll evaluates every target, running up to Options.Workers targets
// in parallel, then propagates failures along dependency edges: a target
// whose dependency failed fails as well, without producing a fresh
// diagnostic for the root cause. Returns ctx.Err() on cancellation; partial
// results are discarded.
func (e *Evaluator) EvaluateAll(ctx context.Context, specs []*TargetSpec) (map[platform.Label]*TargetResolution, error) {
	if e.opts.Tracer != nil {
		var span func(error)
		ctx, span = e.opts.Tracer.StartEvaluationSpan(ctx, len(specs))
		defer func() { span(ctx.Err()) }()
	}

	workerCount := e.opts.Workers
	if len(specs) < workerCount {
		workerCount = len(specs)
	}

	queue := make(chan *TargetSpec, len(specs))
	for _, spec := range specs {
		queue <- spec
	}
	close(queue)

	var wg sync.WaitGroup
	for i := 0; i < workerCount; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for spec := range queue {
				select {
				case <-ctx.Done():
					return
				default:
				}
				e.Evaluate(ctx, spec)
			}
		}()
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := make(map[platform.Label]*TargetResolution, len(specs))
	e.mu.Lock()
	for _, spec := range specs {
		if res, ok := e.memo[spec.Label]; ok {
			results[res.Target] = res
		}
	}
	e.mu.Unlock()

	e.propagateFailures(specs, results)
	e.recordCacheStats()
	return results, nil
}

// Evaluate resolves a single target, returning the memoized result when the
// target was already evaluated.
func (e *Evaluator) Evaluate(ctx context.Context, spec *TargetSpec) *TargetResolution {
	e.mu.Lock()
	if res, ok := e.memo[spec.Label]; ok {
		e.mu.Unlock()
		return res
	}
	e.mu.Unlock()

	res := e.evaluateTarget(ctx, spec)

	e.mu.Lock()
	if existing, ok := e.memo[spec.Label]; ok {
		e.mu.Unlock()
		return existing
	}
	e.memo[spec.Label] = res
	e.mu.Unlock()
	return res
}

// evaluateTarget runs the full per-target pipeline: group index construction,
// validation, per-group resolution, action binding, and dependency
// configuration computation. Every diagnostic the target produces is
// reported, not just the first.
func (e *Evaluator) evaluateTarget(ctx context.Context, spec *TargetSpec) (res *TargetResolution) {
	timer := telemetry.NewTimer()
	logger := e.targetLogger(spec.Label)

	if e.opts.Tracer != nil {
		var end func(error)
		ctx, end = e.opts.Tracer.StartTargetSpan(ctx, string(spec.Label))
		defer func() { end(res.Err) }()
	}

	index, err := execgroup.BuildIndex(spec.Rule, e.opts.AutoExecGroups)
	if err != nil {
		e.report(spec.Label, err)
		e.recordTarget("failed", timer)
		if logger != nil {
			logger.WithError(err).Warn("Exec group declaration rejected")
		}
		return &TargetResolution{Target: spec.Label, Err: err}
	}

	result, errs := e.resolver.ResolveGroups(spec, index, e.candidates, e.targetPlatform)
	for _, resErr := range errs {
		e.report(spec.Label, resErr)
	}

	errs = append(errs, e.bindActions(spec, index, result)...)
	errs = append(errs, e.computeDeps(spec, index, result)...)

	if len(errs) > 0 {
		result.Err = errs[0]
		result.Groups = nil
		result.Actions = nil
		result.Deps = nil
		e.recordTarget("failed", timer)
		if logger != nil {
			logger.WithError(result.Err).Warn("Target evaluation failed")
		}
		return result
	}

	e.recordTarget("resolved", timer)
	if logger != nil {
		logger.WithField("groups", index.Len()).Debug("Target resolved")
	}
	return result
}

// bindActions attaches each registered action to its group's resolution.
// Unknown group references are reported even when resolution already failed,
// so that every bad reference surfaces in one pass.
func (e *Evaluator) bindActions(spec *TargetSpec, index *execgroup.Index, result *TargetResolution) []error {
	var errs []error
	for _, action := range spec.Actions {
		name := action.Group
		if name == "" {
			name = execgroup.DefaultGroupName
		}
		if !index.Has(name) {
			err := NewActionUnknownGroupError(spec.Label, name)
			e.report(spec.Label, err)
			errs = append(errs, err)
			continue
		}
		if exec, ok := result.Groups[name]; ok {
			result.Actions = append(result.Actions, ResolvedAction{
				Mnemonic:  action.Mnemonic,
				Group:     name,
				Execution: exec,
			})
		}
	}
	return errs
}

// computeDeps validates each dependency edge's transition tag and, when a
// base configuration is set and the referenced group resolved, computes the
// dependency's configuration through the memoizing applier.
func (e *Evaluator) computeDeps(spec *TargetSpec, index *execgroup.Index, result *TargetResolution) []error {
	var errs []error
	for _, dep := range spec.Deps {
		kind, name, ok := ParseTransition(dep.Transition)
		if !ok {
			err := fmt.Errorf("attr %q on %s: invalid transition tag %q", dep.Attr, spec.Label, dep.Transition)
			e.report(spec.Label, err)
			errs = append(errs, err)
			continue
		}

		group := execgroup.DefaultGroupName
		if kind == TransitionExecNamed {
			group = name
			if !index.Has(group) {
				err := NewTransitionUnknownGroupError(spec.Label, dep.Attr, group)
				e.report(spec.Label, err)
				errs = append(errs, err)
				continue
			}
		}

		resolved := ResolvedDep{Attr: dep.Attr, Label: dep.Label, Kind: kind}
		if e.opts.BaseConfiguration != nil {
			switch kind {
			case TransitionTarget:
				resolved.Configuration = e.opts.BaseConfiguration
			default:
				exec, ok := result.Groups[group]
				if !ok {
					continue
				}
				resolved.Configuration = e.applier.Apply(e.opts.BaseConfiguration, exec.Platform)
			}
		}
		result.Deps = append(result.Deps, resolved)
	}
	return errs
}

// propagateFailures fails every target that depends, directly or
// transitively, on a failed target. The root cause was already reported as a
// diagnostic; propagation only wraps it, so each bad reference is reported
// exactly once.
func (e *Evaluator) propagateFailures(specs []*TargetSpec, results map[platform.Label]*TargetResolution) {
	specsByLabel := make(map[platform.Label]*TargetSpec, len(specs))
	for _, spec := range specs {
		specsByLabel[spec.Label] = spec
	}

	for changed := true; changed; {
		changed = false
		for _, spec := range specs {
			res := results[spec.Label]
			if res == nil || res.Failed() {
				continue
			}
			for _, dep := range spec.Deps {
				depRes, ok := results[dep.Label]
				if !ok || !depRes.Failed() {
					continue
				}
				res.Err = fmt.Errorf("dependency %s failed: %w", dep.Label, depRes.Err)
				res.Groups = nil
				res.Actions = nil
				res.Deps = nil
				changed = true
				break
			}
		}
	}
}

// TransitionStats exposes the applier's cache counters.
func (e *Evaluator) TransitionStats() (hits, misses uint64) {
	return e.applier.Stats()
}

func (e *Evaluator) targetLogger(target platform.Label) *telemetry.Logger {
	if e.opts.Logger == nil {
		return nil
	}
	return e.opts.Logger.WithTarget(string(target))
}

func (e *Evaluator) report(target platform.Label, err error) {
	d := DiagnosticFromError(target, err)
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordDiagnostic(string(d.Kind))
	}
	if e.opts.Reporter != nil {
		e.opts.Reporter.Report(d)
	}
}

func (e *Evaluator) recordTarget(status string, timer *telemetry.Timer) {
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordTargetResolution(status, timer.Duration())
	}
}

func (e *Evaluator) recordCacheStats() {
	if e.opts.Metrics != nil {
		hits, misses := e.applier.Stats()
		e.opts.Metrics.SetTransitionCacheStats(hits, misses, e.applier.Size())
	}
}
