package stores

import (
	"context"
	"database/sql"
	"time"
)

// RunStatus represents the status of an evaluation run
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCancelled RunStatus = "cancelled"
)

// ResolutionStatus represents the outcome of one (target, group) resolution
type ResolutionStatus string

const (
	ResolutionStatusResolved ResolutionStatus = "resolved"
	ResolutionStatusFailed   ResolutionStatus = "failed"
)

// Run represents one evaluation run over a declaration snapshot
type Run struct {
	ID             string     `json:"id"`
	SettingsPath   string     `json:"settings_path"`
	TargetPlatform string     `json:"target_platform"`
	AutoExecGroups bool       `json:"auto_exec_groups"`
	Status         RunStatus  `json:"status"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	Error          *string    `json:"error,omitempty"`
	Metadata       string     `json:"metadata"` // JSON blob
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Resolution represents the stored outcome of one (target, exec group) pair
type Resolution struct {
	ID             string           `json:"id"`
	RunID          string           `json:"run_id"`
	Target         string           `json:"target"`
	ExecGroup      string           `json:"exec_group"`
	Status         ResolutionStatus `json:"status"`
	Platform       *string          `json:"platform,omitempty"`
	Toolchains     string           `json:"toolchains"`      // JSON object: type label -> instance label
	ExecProperties string           `json:"exec_properties"` // JSON object
	Error          *string          `json:"error,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Diagnostic represents a stored validation or resolution diagnostic
type Diagnostic struct {
	ID         int64     `json:"id"`
	RunID      string    `json:"run_id"`
	Target     string    `json:"target"`
	ExecGroup  *string   `json:"exec_group,omitempty"`
	Kind       string    `json:"kind"`
	Message    string    `json:"message"`
	Suggestion *string   `json:"suggestion,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Store defines the interface for the persistence layer
type Store interface {
	// Lifecycle
	Init(ctx context.Context) error
	Close() error
	Migrate(ctx context.Context) error

	// Transaction support
	BeginTx(ctx context.Context) (*sql.Tx, error)
	CommitTx(tx *sql.Tx) error
	RollbackTx(tx *sql.Tx) error

	// Run operations
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	UpdateRunStatus(ctx context.Context, id string, status RunStatus, err *string) error
	ListRuns(ctx context.Context, limit, offset int) ([]*Run, error)
	DeleteRun(ctx context.Context, id string) error

	// Resolution operations
	CreateResolution(ctx context.Context, res *Resolution) error
	GetResolution(ctx context.Context, runID, target, group string) (*Resolution, error)
	ListResolutionsByRun(ctx context.Context, runID string) ([]*Resolution, error)
	ListResolutionsByTarget(ctx context.Context, runID, target string) ([]*Resolution, error)

	// Diagnostic operations
	AppendDiagnostic(ctx context.Context, diag *Diagnostic) error
	ListDiagnostics(ctx context.Context, runID *string, target *string, kind *string, limit, offset int) ([]*Diagnostic, error)
	CountDiagnosticsByKind(ctx context.Context, runID string) (map[string]int64, error)

	// Utility
	HealthCheck(ctx context.Context) error
}
