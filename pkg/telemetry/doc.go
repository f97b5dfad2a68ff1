// Package telemetry provides observability instrumentation for Platforge.
//
// The telemetry package integrates structured logging (zerolog), distributed tracing
// (OpenTelemetry), metrics (Prometheus), and event publishing into a unified system
// for monitoring and debugging Platforge evaluations.
//
// # Architecture
//
// The telemetry system is built on four pillars:
//
//  1. Structured Logging - Context-aware logging with zerolog
//  2. Distributed Tracing - OpenTelemetry traces with stdout export
//  3. Metrics Collection - Prometheus metrics for operational insights
//  4. Event Publishing - Async event system for audit and notifications
//
// # Usage
//
// Initialize telemetry at application startup:
//
//	cfg := telemetry.DefaultConfig()
//	cfg.ServiceName = "platforge"
//	cfg.ServiceVersion = "1.0.0"
//
//	tel, err := telemetry.NewTelemetry(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer tel.Shutdown(context.Background())
//
// Add telemetry to context:
//
//	ctx = tel.WithContext(ctx)
//
// # Structured Logging
//
// The logger provides component-specific logging with automatic context propagation:
//
//	logger := tel.Logger.NewComponentLogger("resolver")
//	logger = logger.WithTarget("//demo:my_target").WithGroup("watermelon")
//	logger.Info("Resolving exec group")
//	logger.WithError(err).Error("Resolution failed")
//
// Log levels: trace, debug, info, warn, error, fatal
//
// # Distributed Tracing
//
// Tracing provides visibility into evaluation flow and performance:
//
//	ctx, span := tel.Tracer.Start(ctx, "resolve.evaluate")
//	defer span.End()
//
//	span.SetAttributes(
//	    attribute.String("target.label", label),
//	    attribute.String("exec_group.name", group),
//	)
//
//	if err != nil {
//	    telemetry.RecordError(span, err)
//	}
//
// Supported exporters: Stdout (development), none (testing)
//
// # Metrics
//
// Prometheus metrics track evaluation behavior and performance:
//
//	tel.Metrics.RecordRunStarted("user@example.com")
//	tel.Metrics.RecordRunCompleted("succeeded", duration)
//	tel.Metrics.RecordTargetResolution("resolved", duration)
//	tel.Metrics.RecordDiagnostic("unknown_exec_group")
//	tel.Metrics.SetTransitionCacheStats(hits, misses, size)
//
// Metrics are exposed via HTTP at /metrics (default: :9090/metrics)
//
// # Event Publishing
//
// The event system provides async publishing with buffering and filtering:
//
//	tel.Events.PublishRunStarted(runID, user)
//	tel.Events.PublishTargetResolved(runID, target, groups)
//	tel.Events.PublishDiagnostic(runID, target, group, kind, message)
//
//	tel.Events.Subscribe(func(event telemetry.Event) {
//	    fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
//	}, telemetry.FilterByLevel("warning"))
//
// Event filters: FilterByLevel, FilterByType, FilterByRunID, FilterByTarget
//
// # Context Helpers
//
// High-level helpers simplify common instrumentation patterns:
//
//	ic := telemetry.StartOperation(ctx, "config.load",
//	    attribute.String("config.path", path))
//	defer ic.End(err)
//
//	ctx = telemetry.WithRunContext(ctx, runID, user)
//	defer telemetry.EndRunContext(ctx, runID, status, err)
//
//	ctx = telemetry.WithTargetContext(ctx, runID, target)
//	defer telemetry.EndTargetContext(ctx, runID, target, groups, err)
//
// # Graceful Shutdown
//
// Always shut down telemetry gracefully to flush pending data:
//
//	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
//	defer cancel()
//
//	if err := tel.Shutdown(ctx); err != nil {
//	    log.Printf("Telemetry shutdown error: %v", err)
//	}
//
// # Common Metrics
//
// Key metrics exposed:
//
//   - platforge_runs_started_total{user}
//   - platforge_runs_completed_total{status}
//   - platforge_run_duration_seconds{status}
//   - platforge_targets_resolved_total{status}
//   - platforge_target_resolution_duration_seconds{status}
//   - platforge_exec_group_resolutions_total{status}
//   - platforge_diagnostics_total{kind}
//   - platforge_transition_cache_hits
//   - platforge_transition_cache_misses
//   - platforge_active_evaluations
package telemetry
