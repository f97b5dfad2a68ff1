package stores_test

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/platforge/platforge/pkg/stores"
)

// ExampleNewSQLiteStore demonstrates creating and initializing a new SQLite store.
func ExampleNewSQLiteStore() {
	// Create store configuration
	store, err := stores.NewSQLiteStore(stores.Config{
		Path:            ":memory:", // Use in-memory database for example
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	})
	if err != nil {
		log.Fatal(err)
	}

	// Initialize the database connection
	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		log.Fatal(err)
	}

	// Run migrations
	if err := store.Migrate(ctx); err != nil {
		log.Fatal(err)
	}

	defer store.Close()

	// Store is now ready to use
	fmt.Println("Store initialized successfully")
	// Output: Store initialized successfully
}

// ExampleSQLiteStore_CreateRun demonstrates recording an evaluation run.
func ExampleSQLiteStore_CreateRun() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a new run
	run := &stores.Run{
		ID:             "run-001",
		SettingsPath:   "/workspace/settings.cue",
		TargetPlatform: "//platform:platform_1",
		Status:         stores.RunStatusPending,
		StartedAt:      time.Now(),
		Metadata:       `{"targets":12}`,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if err := store.CreateRun(ctx, run); err != nil {
		log.Fatal(err)
	}

	// Retrieve the run
	retrieved, err := store.GetRun(ctx, "run-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Run ID: %s, Status: %s\n", retrieved.ID, retrieved.Status)
	// Output: Run ID: run-001, Status: pending
}

// ExampleSQLiteStore_CreateResolution demonstrates recording a group resolution.
func ExampleSQLiteStore_CreateResolution() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a run (required for foreign key)
	run := &stores.Run{
		ID:             "run-002",
		SettingsPath:   "/workspace/settings.cue",
		TargetPlatform: "//platform:platform_1",
		Status:         stores.RunStatusRunning,
		StartedAt:      time.Now(),
		Metadata:       `{}`,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	_ = store.CreateRun(ctx, run)

	// Record the watermelon group's resolution
	platform := "//platform:platform_2"
	res := &stores.Resolution{
		ID:             "res-001",
		RunID:          "run-002",
		Target:         "//demo:my_target",
		ExecGroup:      "watermelon",
		Status:         stores.ResolutionStatusResolved,
		Platform:       &platform,
		Toolchains:     `{"//rule:toolchain_type_2":"//toolchain:bar"}`,
		ExecProperties: `{"color":"pink","season":"summer"}`,
		CreatedAt:      time.Now(),
	}

	if err := store.CreateResolution(ctx, res); err != nil {
		log.Fatal(err)
	}

	// Retrieve it
	retrieved, err := store.GetResolution(ctx, "run-002", "//demo:my_target", "watermelon")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Group %s on %s\n", retrieved.ExecGroup, *retrieved.Platform)
	// Output: Group watermelon on //platform:platform_2
}

// ExampleSQLiteStore_AppendDiagnostic demonstrates logging diagnostics.
func ExampleSQLiteStore_AppendDiagnostic() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Create a run
	run := &stores.Run{
		ID:             "run-003",
		SettingsPath:   "/workspace/settings.cue",
		TargetPlatform: "//platform:platform_1",
		Status:         stores.RunStatusRunning,
		StartedAt:      time.Now(),
		Metadata:       `{}`,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}
	_ = store.CreateRun(ctx, run)

	// Log a diagnostic
	suggestion := "my_group"
	diag := &stores.Diagnostic{
		RunID:      run.ID,
		Target:     "//demo:my_target",
		Kind:       "unknown_exec_group",
		Message:    "Tried to set execution constraints for non-existent exec groups on //demo:my_target: my_grou (did you mean 'my_group'?)",
		Suggestion: &suggestion,
		Timestamp:  time.Now(),
	}

	if err := store.AppendDiagnostic(ctx, diag); err != nil {
		log.Fatal(err)
	}

	// Retrieve diagnostics
	diags, err := store.ListDiagnostics(ctx, &run.ID, nil, nil, 10, 0)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Diagnostic count: %d, Kind: %s\n", len(diags), diags[0].Kind)
	// Output: Diagnostic count: 1, Kind: unknown_exec_group
}

// ExampleSQLiteStore_BeginTx demonstrates using transactions.
func ExampleSQLiteStore_BeginTx() {
	store, _ := stores.NewSQLiteStore(stores.Config{Path: ":memory:"})
	ctx := context.Background()
	_ = store.Init(ctx)
	_ = store.Migrate(ctx)
	defer store.Close()

	// Begin transaction
	tx, err := store.BeginTx(ctx)
	if err != nil {
		log.Fatal(err)
	}

	// Perform operations within transaction
	query := `
		INSERT INTO runs (id, settings_path, target_platform, auto_exec_groups, status, started_at, metadata, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	now := time.Now()
	_, err = tx.ExecContext(ctx, query, "run-tx-001", "/workspace/settings.cue",
		"//platform:platform_1", false, "pending", now, "{}", now, now)

	if err != nil {
		_ = store.RollbackTx(tx)
		log.Fatal(err)
	}

	// Commit transaction
	if err := store.CommitTx(tx); err != nil {
		log.Fatal(err)
	}

	// Verify run was created
	run, err := store.GetRun(ctx, "run-tx-001")
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("Transaction committed: Run %s created\n", run.ID)
	// Output: Transaction committed: Run run-tx-001 created
}
