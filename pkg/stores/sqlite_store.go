package stores

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	// SQLite driver
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// Config holds SQLite store configuration
type Config struct {
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewSQLiteStore creates a new SQLite store instance
func NewSQLiteStore(cfg Config) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	return &SQLiteStore{
		path: cfg.Path,
	}, nil
}

// Init initializes the database connection and enables WAL mode.
func (s *SQLiteStore) Init(ctx context.Context) error {
	// Open database with SQLite-specific connection parameters
	dsn := fmt.Sprintf("%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate", s.path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	// Verify connection and set PRAGMAs
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	// Ensure foreign keys are enabled (connection-level setting)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s.db = db
	return nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Migrate runs database migrations.
func (s *SQLiteStore) Migrate(_ context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	// Create migration source from embedded FS
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to create migration source: %w", err)
	}

	// Create database driver
	driver, err := sqlite3.WithInstance(s.db, &sqlite3.Config{})
	if err != nil {
		return fmt.Errorf("failed to create database driver: %w", err)
	}

	// Create migration instance
	m, err := migrate.NewWithInstance("iofs", sourceDriver, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("failed to create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// BeginTx starts a new transaction
func (s *SQLiteStore) BeginTx(ctx context.Context) (*sql.Tx, error) {
	return s.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelSerializable,
	})
}

// CommitTx commits a transaction
func (s *SQLiteStore) CommitTx(tx *sql.Tx) error {
	return tx.Commit()
}

// RollbackTx rolls back a transaction
func (s *SQLiteStore) RollbackTx(tx *sql.Tx) error {
	return tx.Rollback()
}

// CreateRun creates a new run record
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	query := `
		INSERT INTO runs (
			id, settings_path, target_platform, auto_exec_groups, status,
			started_at, completed_at, error, metadata, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.SettingsPath,
		run.TargetPlatform,
		run.AutoExecGroups,
		run.Status,
		run.StartedAt,
		run.CompletedAt,
		run.Error,
		run.Metadata,
		run.CreatedAt,
		run.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}

	return nil
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `
		SELECT id, settings_path, target_platform, auto_exec_groups, status,
			   started_at, completed_at, error, metadata, created_at, updated_at
		FROM runs
		WHERE id = ?
	`

	run := &Run{}
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID,
		&run.SettingsPath,
		&run.TargetPlatform,
		&run.AutoExecGroups,
		&run.Status,
		&run.StartedAt,
		&run.CompletedAt,
		&run.Error,
		&run.Metadata,
		&run.CreatedAt,
		&run.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	return run, nil
}

// UpdateRunStatus updates the status of a run
func (s *SQLiteStore) UpdateRunStatus(ctx context.Context, id string, status RunStatus, errMsg *string) error {
	query := `
		UPDATE runs
		SET status = ?, error = ?, completed_at = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	var completedAt *time.Time
	if status == RunStatusCompleted || status == RunStatusFailed || status == RunStatusCancelled {
		completedAt = &now
	}

	result, err := s.db.ExecContext(ctx, query, status, errMsg, completedAt, now, id)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// ListRuns lists runs with pagination
func (s *SQLiteStore) ListRuns(ctx context.Context, limit, offset int) ([]*Run, error) {
	query := `
		SELECT id, settings_path, target_platform, auto_exec_groups, status,
			   started_at, completed_at, error, metadata, created_at, updated_at
		FROM runs
		ORDER BY started_at DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.SettingsPath,
			&run.TargetPlatform,
			&run.AutoExecGroups,
			&run.Status,
			&run.StartedAt,
			&run.CompletedAt,
			&run.Error,
			&run.Metadata,
			&run.CreatedAt,
			&run.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating runs: %w", err)
	}

	return runs, nil
}

// DeleteRun deletes a run by ID. Resolutions and diagnostics cascade.
func (s *SQLiteStore) DeleteRun(ctx context.Context, id string) error {
	query := `DELETE FROM runs WHERE id = ?`

	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("run not found: %s", id)
	}

	return nil
}

// CreateResolution creates a new resolution record
func (s *SQLiteStore) CreateResolution(ctx context.Context, res *Resolution) error {
	query := `
		INSERT INTO resolutions (
			id, run_id, target, exec_group, status, platform,
			toolchains, exec_properties, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		res.ID,
		res.RunID,
		res.Target,
		res.ExecGroup,
		res.Status,
		res.Platform,
		res.Toolchains,
		res.ExecProperties,
		res.Error,
		res.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create resolution: %w", err)
	}

	return nil
}

// GetResolution retrieves one (run, target, group) resolution
func (s *SQLiteStore) GetResolution(ctx context.Context, runID, target, group string) (*Resolution, error) {
	query := `
		SELECT id, run_id, target, exec_group, status, platform,
			   toolchains, exec_properties, error, created_at
		FROM resolutions
		WHERE run_id = ? AND target = ? AND exec_group = ?
	`

	res := &Resolution{}
	err := s.db.QueryRowContext(ctx, query, runID, target, group).Scan(
		&res.ID,
		&res.RunID,
		&res.Target,
		&res.ExecGroup,
		&res.Status,
		&res.Platform,
		&res.Toolchains,
		&res.ExecProperties,
		&res.Error,
		&res.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("resolution not found: %s %s %s", runID, target, group)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get resolution: %w", err)
	}

	return res, nil
}

// ListResolutionsByRun lists all resolutions recorded for a run
func (s *SQLiteStore) ListResolutionsByRun(ctx context.Context, runID string) ([]*Resolution, error) {
	query := `
		SELECT id, run_id, target, exec_group, status, platform,
			   toolchains, exec_properties, error, created_at
		FROM resolutions
		WHERE run_id = ?
		ORDER BY target ASC, exec_group ASC
	`

	return s.queryResolutions(ctx, query, runID)
}

// ListResolutionsByTarget lists a run's resolutions for one target
func (s *SQLiteStore) ListResolutionsByTarget(ctx context.Context, runID, target string) ([]*Resolution, error) {
	query := `
		SELECT id, run_id, target, exec_group, status, platform,
			   toolchains, exec_properties, error, created_at
		FROM resolutions
		WHERE run_id = ? AND target = ?
		ORDER BY exec_group ASC
	`

	return s.queryResolutions(ctx, query, runID, target)
}

func (s *SQLiteStore) queryResolutions(ctx context.Context, query string, args ...interface{}) ([]*Resolution, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list resolutions: %w", err)
	}
	defer rows.Close()

	resolutions := []*Resolution{}
	for rows.Next() {
		res := &Resolution{}
		err := rows.Scan(
			&res.ID,
			&res.RunID,
			&res.Target,
			&res.ExecGroup,
			&res.Status,
			&res.Platform,
			&res.Toolchains,
			&res.ExecProperties,
			&res.Error,
			&res.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resolution: %w", err)
		}
		resolutions = append(resolutions, res)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating resolutions: %w", err)
	}

	return resolutions, nil
}

// AppendDiagnostic appends a new diagnostic to the log
func (s *SQLiteStore) AppendDiagnostic(ctx context.Context, diag *Diagnostic) error {
	query := `
		INSERT INTO diagnostics (run_id, target, exec_group, kind, message, suggestion, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		diag.RunID,
		diag.Target,
		diag.ExecGroup,
		diag.Kind,
		diag.Message,
		diag.Suggestion,
		diag.Timestamp,
	)

	if err != nil {
		return fmt.Errorf("failed to append diagnostic: %w", err)
	}

	// Get the auto-generated ID
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get diagnostic ID: %w", err)
	}

	diag.ID = id
	return nil
}

// ListDiagnostics retrieves diagnostics with optional filters and pagination
func (s *SQLiteStore) ListDiagnostics(ctx context.Context, runID *string, target *string, kind *string, limit, offset int) ([]*Diagnostic, error) {
	query := `
		SELECT id, run_id, target, exec_group, kind, message, suggestion, timestamp
		FROM diagnostics
		WHERE (? IS NULL OR run_id = ?)
		  AND (? IS NULL OR target = ?)
		  AND (? IS NULL OR kind = ?)
		ORDER BY timestamp DESC
		LIMIT ? OFFSET ?
	`

	rows, err := s.db.QueryContext(ctx, query, runID, runID, target, target, kind, kind, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list diagnostics: %w", err)
	}
	defer rows.Close()

	diagnostics := []*Diagnostic{}
	for rows.Next() {
		diag := &Diagnostic{}
		err := rows.Scan(
			&diag.ID,
			&diag.RunID,
			&diag.Target,
			&diag.ExecGroup,
			&diag.Kind,
			&diag.Message,
			&diag.Suggestion,
			&diag.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic: %w", err)
		}
		diagnostics = append(diagnostics, diag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diagnostics: %w", err)
	}

	return diagnostics, nil
}

// CountDiagnosticsByKind counts a run's diagnostics grouped by kind
func (s *SQLiteStore) CountDiagnosticsByKind(ctx context.Context, runID string) (map[string]int64, error) {
	query := `
		SELECT kind, COUNT(*)
		FROM diagnostics
		WHERE run_id = ?
		GROUP BY kind
	`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to count diagnostics: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var kind string
		var count int64
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic count: %w", err)
		}
		counts[kind] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating diagnostic counts: %w", err)
	}

	return counts, nil
}

// HealthCheck verifies the database connection is healthy
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("database not initialized")
	}

	return s.db.PingContext(ctx)
}
