package execgroup

import (
	"sort"

	"github.com/platforge/platforge/pkg/platform"
)

// RuleSpec is the exec-group surface a rule declares, together with any
// groups contributed by aspects applied to the target.
type RuleSpec struct {
	// Toolchains are the rule's top-level required toolchain types, in
	// declaration order.
	Toolchains []platform.Label `json:"toolchains,omitempty"`

	// ExecCompatibleWith are the rule's top-level execution constraints.
	// They form the default group's constraint set.
	ExecCompatibleWith []platform.Label `json:"exec_compatible_with,omitempty"`

	// Groups maps declared group name to its declaration.
	Groups map[string]Decl `json:"exec_groups,omitempty"`

	// AspectGroups are exec groups contributed by aspects. They share the
	// rule's namespace: a name colliding with a rule-declared group is an
	// error.
	AspectGroups map[string]Decl `json:"aspect_exec_groups,omitempty"`

	// UseAutoExecGroups overrides the global automatic-exec-groups setting
	// for this rule when non-nil.
	UseAutoExecGroups *bool `json:"use_auto_exec_groups,omitempty"`
}

// Index is the closed, per-target set of exec groups, keyed by name. Built
// once per target and immutable afterwards.
type Index struct {
	groups map[string]*Group
}

// BuildIndex constructs a target's group index from its rule spec.
//
// The default group is always synthesized from the rule's top-level
// toolchains and exec_compatible_with. When automatic exec groups are in
// effect (the global setting, unless the rule opts out), each top-level
// toolchain type instead gets its own singleton group named after the type's
// label and the default group keeps only the constraints; this is the legacy
// ungrouped mode otherwise. Explicitly declared groups are never affected by
// the mode.
func BuildIndex(spec RuleSpec, autoExecGroups bool) (*Index, error) {
	if spec.UseAutoExecGroups != nil {
		autoExecGroups = *spec.UseAutoExecGroups
	}

	idx := &Index{groups: make(map[string]*Group, len(spec.Groups)+len(spec.AspectGroups)+1)}

	add := func(name string, decl Decl) error {
		if name == DefaultGroupName {
			return &ReservedNameError{Name: name}
		}
		if _, exists := idx.groups[name]; exists {
			return &CollisionError{Name: name}
		}
		idx.groups[name] = &Group{
			Name:               name,
			Toolchains:         append([]platform.Label(nil), decl.Toolchains...),
			ExecCompatibleWith: append([]platform.Label(nil), decl.ExecCompatibleWith...),
		}
		return nil
	}

	for _, name := range sortedNames(spec.Groups) {
		if err := add(name, spec.Groups[name]); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedNames(spec.AspectGroups) {
		if err := add(name, spec.AspectGroups[name]); err != nil {
			return nil, err
		}
	}

	defaultGroup := &Group{
		Name:               DefaultGroupName,
		ExecCompatibleWith: append([]platform.Label(nil), spec.ExecCompatibleWith...),
	}
	if autoExecGroups {
		for _, typ := range spec.Toolchains {
			name := typ.String()
			if _, exists := idx.groups[name]; exists {
				// An explicit group already owns this name; the toolchain
				// stays on the default group as in legacy mode.
				defaultGroup.Toolchains = append(defaultGroup.Toolchains, typ)
				continue
			}
			idx.groups[name] = &Group{
				Name:               name,
				Toolchains:         []platform.Label{typ},
				ExecCompatibleWith: append([]platform.Label(nil), spec.ExecCompatibleWith...),
				Automatic:          true,
			}
		}
	} else {
		defaultGroup.Toolchains = append([]platform.Label(nil), spec.Toolchains...)
	}
	idx.groups[DefaultGroupName] = defaultGroup

	return idx, nil
}

// Group looks up a group by name.
func (i *Index) Group(name string) (*Group, bool) {
	g, ok := i.groups[name]
	return g, ok
}

// Has reports whether a group with the given name is declared.
func (i *Index) Has(name string) bool {
	_, ok := i.groups[name]
	return ok
}

// Default returns the synthesized default group.
func (i *Index) Default() *Group {
	return i.groups[DefaultGroupName]
}

// Names returns all group names in sorted order, for deterministic iteration
// and diagnostics.
func (i *Index) Names() []string {
	names := make([]string, 0, len(i.groups))
	for name := range i.groups {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of groups, the default group included.
func (i *Index) Len() int { return len(i.groups) }

func sortedNames(m map[string]Decl) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
