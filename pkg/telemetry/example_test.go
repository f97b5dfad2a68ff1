package telemetry_test

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/platforge/platforge/pkg/telemetry"
)

// Example_basicSetup demonstrates basic telemetry setup.
func Example_basicSetup() {
	// Create configuration
	cfg := telemetry.DefaultConfig()
	cfg.ServiceName = "platforge"
	cfg.ServiceVersion = "1.0.0"

	// Initialize telemetry
	tel, err := telemetry.NewTelemetry(cfg)
	if err != nil {
		panic(err)
	}
	defer tel.Shutdown(context.Background())

	// Add telemetry to context
	ctx := tel.WithContext(context.Background())

	// Use telemetry
	logger := telemetry.FromContext(ctx)
	logger.Info("Application started")

	// Output can vary, so we don't specify output for this example
}

// Example_structuredLogging demonstrates structured logging features.
func Example_structuredLogging() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Logging.Output = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Component-specific logger
	logger := tel.Logger.NewComponentLogger("resolver")

	// Add context fields
	logger = logger.WithTarget("//demo:my_target").WithGroup("watermelon")

	// Log at different levels
	logger.Debug("Checking candidate platforms")
	logger.Info("Exec group resolved")
	logger.Warn("No toolchain registered for type")

	// Log with error
	err := fmt.Errorf("no matching execution platform")
	logger.WithError(err).Error("Resolution failed")

	// Output varies, no output specified
}

// Example_distributedTracing demonstrates distributed tracing usage.
func Example_distributedTracing() {
	cfg := telemetry.DevelopmentConfig()
	cfg.Tracing.Exporter = "stdout"

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start an evaluation span
	ctx, end := tel.Tracer.StartEvaluationSpan(ctx, 5)
	defer end(nil)

	// Nested target span
	_, endTarget := tel.Tracer.StartTargetSpan(ctx, "//demo:my_target")

	// Simulate work
	time.Sleep(10 * time.Millisecond)

	endTarget(nil)

	// Output varies, no output specified
}

// Example_metricsCollection demonstrates metrics collection.
func Example_metricsCollection() {
	cfg := telemetry.DefaultConfig()
	cfg.Metrics.Enabled = true

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Record run metrics
	tel.Metrics.RecordRunStarted("user@example.com")

	// Simulate evaluation
	start := time.Now()
	time.Sleep(50 * time.Millisecond)
	duration := time.Since(start)

	tel.Metrics.RecordRunCompleted("succeeded", duration)

	// Record resolution metrics
	tel.Metrics.RecordTargetResolution("resolved", 25*time.Millisecond)
	tel.Metrics.RecordGroupResolution("resolved")

	// Record diagnostic metrics
	tel.Metrics.RecordDiagnostic("unknown_exec_group")

	// Publish transition cache counters
	tel.Metrics.SetTransitionCacheStats(10, 2, 2)

	fmt.Println("Metrics recorded successfully")
	// Output: Metrics recorded successfully
}

// Example_eventPublishing demonstrates event publishing and subscription.
func Example_eventPublishing() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false // Synchronous for example

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Subscribe to events
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Event: %s - %s\n", event.Type, event.Message)
	}, nil) // No filter, receive all events

	// Publish events
	tel.Events.PublishRunStarted("run-123", "user@example.com")
	tel.Events.PublishTargetResolved("run-123", "//demo:my_target", 2)
	tel.Events.PublishTargetFailed("run-123", "//demo:other_target", "no matching execution platform")

	// Output varies due to async nature, no output specified
}

// Example_runInstrumentation demonstrates instrumenting a complete evaluation run.
func Example_runInstrumentation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start run context
	runID := "run-123"
	user := "admin@example.com"
	ctx = telemetry.WithRunContext(ctx, runID, user)

	// Evaluate a target (simulated)
	evaluateTarget(ctx, runID)

	// End run context
	telemetry.EndRunContext(ctx, runID, "succeeded", nil)

	fmt.Println("Run instrumentation complete")
	// Output: Run instrumentation complete
}

func evaluateTarget(ctx context.Context, runID string) {
	target := "//demo:my_target"

	ctx = telemetry.WithTargetContext(ctx, runID, target)

	// Get logger from context
	logger := telemetry.FromContext(ctx)
	logger.Info("Resolving target")

	// Simulate work
	time.Sleep(10 * time.Millisecond)

	// End target context
	telemetry.EndTargetContext(ctx, runID, target, 2, nil)
}

// Example_instrumentedOperation demonstrates using the InstrumentedContext helper.
func Example_instrumentedOperation() {
	cfg := telemetry.DevelopmentConfig()
	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	ctx := tel.WithContext(context.Background())

	// Start instrumented operation
	ic := telemetry.StartOperation(ctx, "config.load",
		attribute.String("config.path", "/etc/platforge/settings.cue"),
	)
	defer ic.End(nil)

	// Use the instrumented context
	ic.Logger.Info("Loading build settings")

	// Simulate loading
	time.Sleep(5 * time.Millisecond)

	ic.Logger.Debug("Build settings loaded")

	fmt.Println("Operation instrumentation complete")
	// Output: Operation instrumentation complete
}

// Example_eventFiltering demonstrates event filtering.
func Example_eventFiltering() {
	cfg := telemetry.DefaultConfig()
	cfg.Events.Enabled = true
	cfg.Events.EnableAsync = false

	tel, _ := telemetry.NewTelemetry(cfg)
	defer tel.Shutdown(context.Background())

	// Subscribe with level filter (only warnings and errors)
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Important event: %s\n", event.Type)
	}, telemetry.FilterByLevel(telemetry.EventLevelWarning))

	// Subscribe with type filter (only diagnostics)
	tel.Events.Subscribe(func(event telemetry.Event) {
		fmt.Printf("Diagnostic: %s\n", event.Message)
	}, telemetry.FilterByType(telemetry.EventTypeDiagnostic))

	// Publish various events
	tel.Events.PublishRunStarted("run-123", "user") // Info - filtered by level filter
	tel.Events.PublishDiagnostic("run-123", "//demo:my_target", "watermelon",
		"unknown_exec_group", "Tried to set execution constraints for non-existent exec groups")
	tel.Events.PublishRunFailed("run-123", "error") // Error - passes level filter

	// Output varies, no output specified
}
