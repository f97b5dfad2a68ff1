package resolve

import (
	"sort"
	"strings"

	"github.com/platforge/platforge/pkg/execgroup"
	"github.com/platforge/platforge/pkg/platform"
	"github.com/platforge/platforge/pkg/transition"
)

// TransitionKind tags how a dependency's configuration relates to its
// parent's.
type TransitionKind string

const (
	// TransitionTarget keeps the dependency in the parent's configuration.
	TransitionTarget TransitionKind = "target"

	// TransitionExec rebuilds the dependency for the parent's default-group
	// execution platform (cfg = "exec").
	TransitionExec TransitionKind = "exec"

	// TransitionExecNamed rebuilds the dependency for a named group's
	// execution platform (cfg = config.exec(name)).
	TransitionExecNamed TransitionKind = "exec-named"
)

// ParseTransition parses a per-dependency transition tag: "target",
// "exec-default" (or "exec"), or "exec-named:<group>".
func ParseTransition(tag string) (TransitionKind, string, bool) {
	switch tag {
	case "", "target":
		return TransitionTarget, "", true
	case "exec", "exec-default":
		return TransitionExec, "", true
	}
	if name, ok := strings.CutPrefix(tag, "exec-named:"); ok && name != "" {
		return TransitionExecNamed, name, true
	}
	return "", "", false
}

// DepSpec is one dependency edge of a target, with its configuration
// transition tag.
type DepSpec struct {
	// Attr is the attribute name declaring the dependency.
	Attr string `json:"attr" validate:"required"`

	// Label is the dependency target.
	Label platform.Label `json:"label" validate:"required"`

	// Transition is the transition tag ("target", "exec-default",
	// "exec-named:<group>").
	Transition string `json:"transition,omitempty"`
}

// ActionSpec is one action a target registers, bound to a single exec group.
type ActionSpec struct {
	// Mnemonic names the action for diagnostics.
	Mnemonic string `json:"mnemonic" validate:"required"`

	// Group is the exec group the action runs under. Empty means the
	// default group.
	Group string `json:"group,omitempty"`
}

// TargetSpec is everything the engine needs to resolve one configured
// target: its rule's exec-group surface plus the target-level attributes
// layered on top.
type TargetSpec struct {
	// Label identifies the target.
	Label platform.Label `json:"label" validate:"required"`

	// Rule is the rule/aspect exec-group declaration surface.
	Rule execgroup.RuleSpec `json:"rule"`

	// ExecProperties is the target's exec_properties attribute. Keys may be
	// group-prefixed.
	ExecProperties map[string]string `json:"exec_properties,omitempty"`

	// ExecGroupCompatibleWith maps group name to extra constraint values the
	// target demands of that group's execution platform.
	ExecGroupCompatibleWith map[string][]platform.Label `json:"exec_group_compatible_with,omitempty"`

	// Actions are the actions the target registers.
	Actions []ActionSpec `json:"actions,omitempty"`

	// Deps are the target's dependency edges.
	Deps []DepSpec `json:"deps,omitempty"`
}

// ResolvedExecution is the resolution result for one (target, group) pair:
// the chosen platform, one toolchain instance per required type, and the
// merged exec-properties map. Computed once per evaluation and immutable
// afterwards.
type ResolvedExecution struct {
	// Group is the resolved group's name.
	Group string `json:"group"`

	// Platform is the chosen execution platform.
	Platform platform.Label `json:"platform"`

	// Toolchains maps required toolchain type to the bound instance.
	Toolchains map[platform.Label]platform.Label `json:"toolchains,omitempty"`

	// ExecProperties is the merged property map for this group.
	ExecProperties map[string]string `json:"exec_properties,omitempty"`
}

// ResolvedAction binds one registered action to its group's resolution. The
// action inherits the group's platform, toolchains, and merged properties.
type ResolvedAction struct {
	// Mnemonic names the action.
	Mnemonic string `json:"mnemonic"`

	// Group is the exec group the action runs under.
	Group string `json:"group"`

	// Execution is the group's resolution.
	Execution *ResolvedExecution `json:"execution"`
}

// ResolvedDep is one dependency edge with its computed child configuration.
type ResolvedDep struct {
	// Attr is the attribute declaring the dependency.
	Attr string `json:"attr"`

	// Label is the dependency target.
	Label platform.Label `json:"label"`

	// Kind is the parsed transition kind.
	Kind TransitionKind `json:"kind"`

	// Configuration is the dependency's configuration after the transition.
	Configuration *transition.Configuration `json:"configuration"`
}

// TargetResolution is the per-target evaluation outcome: one
// ResolvedExecution per declared group, or the error that failed the target.
// Sibling targets are unaffected by a failure.
type TargetResolution struct {
	// Target is the evaluated target.
	Target platform.Label `json:"target"`

	// Groups maps group name to its resolution. Nil when Err is set.
	Groups map[string]*ResolvedExecution `json:"groups,omitempty"`

	// Actions are the target's actions bound to their resolved groups.
	Actions []ResolvedAction `json:"actions,omitempty"`

	// Deps are the target's dependency edges with child configurations.
	Deps []ResolvedDep `json:"deps,omitempty"`

	// Err is the first error that failed this target's evaluation.
	Err error `json:"-"`
}

// Failed reports whether the target's evaluation failed.
func (r *TargetResolution) Failed() bool { return r.Err != nil }

// Group returns the named group's resolution.
func (r *TargetResolution) Group(name string) (*ResolvedExecution, bool) {
	g, ok := r.Groups[name]
	return g, ok
}

// Default returns the default group's resolution.
func (r *TargetResolution) Default() (*ResolvedExecution, bool) {
	return r.Group(execgroup.DefaultGroupName)
}

// GroupNames returns resolved group names in sorted order.
func (r *TargetResolution) GroupNames() []string {
	names := make([]string, 0, len(r.Groups))
	for name := range r.Groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
