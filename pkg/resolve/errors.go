package resolve

import (
	"errors"
	"fmt"
	"strings"

	"github.com/platforge/platforge/pkg/platform"
)

// ErrorKind classifies a resolution error for reporting and aggregation.
type ErrorKind string

const (
	// KindUnknownExecGroup is a reference to an undeclared exec group from a
	// transition attribute, an action, or exec_group_compatible_with.
	KindUnknownExecGroup ErrorKind = "unknown_exec_group"

	// KindReservedGroupName is a group declared under the reserved default
	// group name.
	KindReservedGroupName ErrorKind = "reserved_group_name"

	// KindNoMatchingExecutionPlatform means resolution exhausted every
	// candidate platform without satisfying all required toolchain types.
	KindNoMatchingExecutionPlatform ErrorKind = "no_matching_execution_platform"

	// KindMalformedPropertyNamespace is an exec_properties key whose group
	// prefix matches no declared group.
	KindMalformedPropertyNamespace ErrorKind = "malformed_property_namespace"
)

// Site identifies where an unknown-group reference originated.
type Site string

const (
	// SiteTransition is a cfg=exec(<name>) dependency attribute.
	SiteTransition Site = "transition"

	// SiteAction is an action's exec_group reference.
	SiteAction Site = "action"

	// SiteCompatibleWith is an exec_group_compatible_with entry.
	SiteCompatibleWith Site = "exec_group_compatible_with"

	// SiteProperties is an exec_properties key namespace.
	SiteProperties Site = "exec_properties"
)

// Error is a classified, per-target resolution error. Errors are local to the
// offending target: they are reported as diagnostics and never abort sibling
// targets.
type Error struct {
	// Kind is the error classification.
	Kind ErrorKind

	// Target is the label of the target whose evaluation failed.
	Target platform.Label

	// Group is the evaluated group name, when one is in scope.
	Group string

	// Unknown is the unresolvable referenced name, for unknown-group and
	// malformed-namespace errors.
	Unknown string

	// Suggestion is the nearest declared name within edit distance, empty
	// when nothing close enough exists.
	Suggestion string

	// Attr is the dependency attribute that declared the transition.
	Attr string

	// MissingTypes are the toolchain types left unsatisfied on every
	// candidate platform.
	MissingTypes []platform.Label

	// ConstraintsUnsatisfied marks a platform-selection failure caused by the
	// group's constraint set rejecting every candidate, rather than by a
	// toolchain gap.
	ConstraintsUnsatisfied bool

	// Err is the underlying error, if any.
	Err error

	// actionSite distinguishes action references from
	// exec_group_compatible_with references, which share the unknown-group
	// kind but not the message shape.
	actionSite bool
}

// Error implements the error interface. Message shapes are stable: downstream
// tooling pattern-matches on the group name, the unknown name, and the
// suggested correction.
func (e *Error) Error() string {
	switch e.Kind {
	case KindUnknownExecGroup:
		switch {
		case e.Attr != "":
			return fmt.Sprintf("Attr '%s' declares a transition for non-existent exec group '%s'", e.Attr, e.Unknown)
		case e.site() == SiteAction:
			return fmt.Sprintf("Action declared for non-existent exec group '%s'", e.Unknown)
		default:
			msg := fmt.Sprintf("Tried to set execution constraints for non-existent exec groups on %s: %s", e.Target, e.Unknown)
			if e.Suggestion != "" {
				msg += fmt.Sprintf(" (did you mean '%s'?)", e.Suggestion)
			}
			return msg
		}
	case KindReservedGroupName:
		return fmt.Sprintf("Exec group name '%s' is not a valid name", e.Unknown)
	case KindNoMatchingExecutionPlatform:
		if e.ConstraintsUnsatisfied {
			return fmt.Sprintf("no matching execution platform for exec group '%s': no candidate satisfies the group's constraints", e.Group)
		}
		types := make([]string, len(e.MissingTypes))
		for i, t := range e.MissingTypes {
			types[i] = t.String()
		}
		return fmt.Sprintf("no matching execution platform for exec group '%s': no compatible toolchain for [%s]",
			e.Group, strings.Join(types, ", "))
	case KindMalformedPropertyNamespace:
		msg := fmt.Sprintf("Tried to set exec_properties for non-existent exec groups on %s: %s", e.Target, e.Unknown)
		if e.Suggestion != "" {
			msg += fmt.Sprintf(" (did you mean '%s'?)", e.Suggestion)
		}
		return msg
	default:
		if e.Err != nil {
			return e.Err.Error()
		}
		return string(e.Kind)
	}
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error { return e.Err }

// Is matches errors by kind, so callers can test taxonomy membership with
// errors.Is and a bare kind-only error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func (e *Error) site() Site {
	if e.Attr != "" {
		return SiteTransition
	}
	if e.actionSite {
		return SiteAction
	}
	return SiteCompatibleWith
}

// NewUnknownExecGroupError reports an exec_group_compatible_with entry (or
// other constraint reference) naming an undeclared group.
func NewUnknownExecGroupError(target platform.Label, unknown, suggestion string) *Error {
	return &Error{
		Kind:       KindUnknownExecGroup,
		Target:     target,
		Unknown:    unknown,
		Suggestion: suggestion,
	}
}

// NewTransitionUnknownGroupError reports a dependency attribute declaring a
// transition into an undeclared group.
func NewTransitionUnknownGroupError(target platform.Label, attr, unknown string) *Error {
	return &Error{
		Kind:    KindUnknownExecGroup,
		Target:  target,
		Attr:    attr,
		Unknown: unknown,
	}
}

// NewActionUnknownGroupError reports an action referencing an undeclared
// group.
func NewActionUnknownGroupError(target platform.Label, unknown string) *Error {
	return &Error{
		Kind:       KindUnknownExecGroup,
		Target:     target,
		Unknown:    unknown,
		actionSite: true,
	}
}

// NewReservedGroupNameError reports a declaration colliding with the reserved
// default group name.
func NewReservedGroupNameError(target platform.Label, name string) *Error {
	return &Error{
		Kind:    KindReservedGroupName,
		Target:  target,
		Unknown: name,
	}
}

// NewNoMatchingPlatformError reports resolution failure after exhausting all
// candidate platforms.
func NewNoMatchingPlatformError(target platform.Label, group string, missing []platform.Label) *Error {
	return &Error{
		Kind:         KindNoMatchingExecutionPlatform,
		Target:       target,
		Group:        group,
		MissingTypes: missing,
	}
}

// NewMalformedPropertyNamespaceError reports an exec_properties key whose
// namespace prefix matches no declared group.
func NewMalformedPropertyNamespaceError(target platform.Label, prefix, suggestion string) *Error {
	return &Error{
		Kind:       KindMalformedPropertyNamespace,
		Target:     target,
		Unknown:    prefix,
		Suggestion: suggestion,
	}
}

// WithConstraintsUnsatisfied marks the failure as a constraint rejection
// rather than a toolchain gap.
func (e *Error) WithConstraintsUnsatisfied() *Error {
	e.ConstraintsUnsatisfied = true
	return e
}

// WithGroup attaches the evaluated group name.
func (e *Error) WithGroup(group string) *Error {
	e.Group = group
	return e
}

// WithErr attaches an underlying error.
func (e *Error) WithErr(err error) *Error {
	e.Err = err
	return e
}

// IsKind reports whether err is a resolution error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
