package execgroup

import (
	"fmt"

	"github.com/platforge/platforge/pkg/platform"
)

// DefaultGroupName is the reserved name of the group synthesized from a
// rule's top-level toolchains and exec_compatible_with. Declaring a group
// under this name is rejected.
const DefaultGroupName = "default"

// Group is one named, independently resolved execution requirement bundle.
type Group struct {
	// Name is unique within the owning target's index.
	Name string `json:"name" validate:"required"`

	// Toolchains are the toolchain types this group requires.
	Toolchains []platform.Label `json:"toolchains,omitempty"`

	// ExecCompatibleWith are extra constraint values the chosen execution
	// platform must satisfy, layered on top of whatever the consuming target
	// declares for this group.
	ExecCompatibleWith []platform.Label `json:"exec_compatible_with,omitempty"`

	// Automatic marks groups synthesized by automatic-exec-group mode, one
	// per required toolchain type.
	Automatic bool `json:"automatic,omitempty"`
}

// Decl is an exec group as declared on a rule or aspect, before the
// per-target index is built.
type Decl struct {
	// Toolchains are the toolchain types the group requires.
	Toolchains []platform.Label `json:"toolchains,omitempty"`

	// ExecCompatibleWith are extra execution constraints for the group.
	ExecCompatibleWith []platform.Label `json:"exec_compatible_with,omitempty"`
}

// ReservedNameError reports a declared group colliding with the reserved
// default group name. It is raised at declaration time, whether or not the
// group is ever referenced.
type ReservedNameError struct {
	// Name is the offending declared name.
	Name string
}

// Error implements the error interface.
func (e *ReservedNameError) Error() string {
	return fmt.Sprintf("Exec group name '%s' is not a valid name", e.Name)
}

// CollisionError reports two declarations (for example a rule and an aspect)
// declaring the same group name on one target.
type CollisionError struct {
	// Name is the group name declared twice.
	Name string
}

// Error implements the error interface.
func (e *CollisionError) Error() string {
	return fmt.Sprintf("exec group '%s' declared more than once", e.Name)
}
