package resolve

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/platforge/platforge/pkg/execgroup"
	"github.com/platforge/platforge/pkg/platform"
)

// Diagnostic is one discrete, independently reportable validation or
// resolution failure. Every violated rule produces its own diagnostic; the
// encompassing build aggregates them and decides whether to keep evaluating.
type Diagnostic struct {
	// ID is the unique identifier for this diagnostic.
	ID string `json:"id"`

	// Timestamp is when the diagnostic was produced.
	Timestamp time.Time `json:"timestamp"`

	// Target is the offending target.
	Target platform.Label `json:"target"`

	// Group is the group in scope, when any.
	Group string `json:"group,omitempty"`

	// Kind is the error classification.
	Kind ErrorKind `json:"kind"`

	// Message is the human-readable message. Its identity information (group
	// name, unknown name, suggested correction) is stable for downstream
	// pattern matching.
	Message string `json:"message"`

	// Suggestion is the nearest-name correction, when one was found.
	Suggestion string `json:"suggestion,omitempty"`
}

// Reporter consumes diagnostics as they are produced. Implementations must be
// safe for concurrent use; the evaluator reports from multiple workers.
type Reporter interface {
	Report(d Diagnostic)
}

// Collector is a Reporter that retains every diagnostic, for tests and for
// batch persistence after an evaluation.
type Collector struct {
	mu    sync.Mutex
	diags []Diagnostic
}

// NewCollector returns an empty collector.
func NewCollector() *Collector { return &Collector{} }

// Report implements Reporter.
func (c *Collector) Report(d Diagnostic) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.diags = append(c.diags, d)
}

// Diagnostics returns a copy of everything reported so far.
func (c *Collector) Diagnostics() []Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Diagnostic, len(c.diags))
	copy(out, c.diags)
	return out
}

// DiagnosticFromError converts a resolution error into a reportable
// diagnostic, classifying declaration-time group errors as well.
func DiagnosticFromError(target platform.Label, err error) Diagnostic {
	d := Diagnostic{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		Target:    target,
		Message:   err.Error(),
	}

	var resErr *Error
	if errors.As(err, &resErr) {
		d.Kind = resErr.Kind
		d.Group = resErr.Group
		d.Suggestion = resErr.Suggestion
		if resErr.Target != "" {
			d.Target = resErr.Target
		}
		return d
	}

	var reserved *execgroup.ReservedNameError
	if errors.As(err, &reserved) {
		d.Kind = KindReservedGroupName
		return d
	}

	d.Kind = ErrorKind("internal")
	return d
}
