package resolve

import (
	"fmt"

	"github.com/platforge/platforge/pkg/execgroup"
	"github.com/platforge/platforge/pkg/platform"
	"github.com/platforge/platforge/pkg/toolchain"
)

// Resolver selects execution platforms and binds toolchain instances for exec
// groups. It holds only immutable inputs (catalog, registry) and is safe for
// concurrent use.
type Resolver struct {
	catalog  *platform.Catalog
	registry *toolchain.Registry
}

// NewResolver creates a resolver over the given constraint catalog and
// toolchain registry.
func NewResolver(catalog *platform.Catalog, registry *toolchain.Registry) *Resolver {
	return &Resolver{catalog: catalog, registry: registry}
}

// Resolve picks the execution platform for one exec group.
//
// Candidates are checked in declaration order. A candidate is selected when
// it satisfies the union of the group's exec_compatible_with and the
// target-declared extra constraints, and every required toolchain type has at
// least one compatible instance on it. The first such candidate wins; later
// candidates are never preferred even when also compatible. The first
// compatible instance per type (registration order) is bound into the result.
func (r *Resolver) Resolve(
	target platform.Label,
	group *execgroup.Group,
	extraConstraints []platform.Label,
	candidates []*platform.Platform,
	targetPlatform *platform.Platform,
) (*ResolvedExecution, error) {
	required := combineConstraints(group.ExecCompatibleWith, extraConstraints)

	anySatisfied := false
	for _, candidate := range candidates {
		ok, err := r.catalog.Satisfies(candidate, required)
		if err != nil {
			return nil, fmt.Errorf("group %q on %s: %w", group.Name, candidate.Label, err)
		}
		if !ok {
			continue
		}
		anySatisfied = true

		bound := make(map[platform.Label]platform.Label, len(group.Toolchains))
		satisfied := true
		for _, typ := range group.Toolchains {
			matches, err := r.registry.FindCompatible(typ, candidate, targetPlatform)
			if err != nil {
				return nil, fmt.Errorf("group %q on %s: %w", group.Name, candidate.Label, err)
			}
			if len(matches) == 0 {
				satisfied = false
				break
			}
			bound[typ] = matches[0].Label
		}
		if !satisfied {
			continue
		}

		return &ResolvedExecution{
			Group:      group.Name,
			Platform:   candidate.Label,
			Toolchains: bound,
		}, nil
	}

	if !anySatisfied {
		return nil, NewNoMatchingPlatformError(target, group.Name, nil).WithConstraintsUnsatisfied()
	}
	return nil, NewNoMatchingPlatformError(
		target, group.Name, r.unsatisfiableTypes(group.Toolchains, candidates, targetPlatform))
}

// unsatisfiableTypes names every required toolchain type that has no
// compatible instance on any candidate platform, for the failure diagnostic.
func (r *Resolver) unsatisfiableTypes(
	types []platform.Label,
	candidates []*platform.Platform,
	targetPlatform *platform.Platform,
) []platform.Label {
	var missing []platform.Label
	for _, typ := range types {
		found := false
		for _, candidate := range candidates {
			matches, err := r.registry.FindCompatible(typ, candidate, targetPlatform)
			if err == nil && len(matches) > 0 {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, typ)
		}
	}
	return missing
}

// ResolveGroups resolves every group of a target's index independently and
// merges each group's exec properties. The returned errors are the target's
// validation and resolution diagnostics; the resolution fails (Err set) when
// any of them occurred, but every group is still attempted so that all
// diagnostics surface in one pass.
func (r *Resolver) ResolveGroups(
	spec *TargetSpec,
	index *execgroup.Index,
	candidates []*platform.Platform,
	targetPlatform *platform.Platform,
) (*TargetResolution, []error) {
	var errs []error
	errs = append(errs, ValidateGroupCompatibleWith(spec.Label, spec.ExecGroupCompatibleWith, index)...)
	errs = append(errs, ValidateExecProperties(spec.Label, spec.ExecProperties, index)...)

	result := &TargetResolution{
		Target: spec.Label,
		Groups: make(map[string]*ResolvedExecution, index.Len()),
	}

	platformsByLabel := make(map[platform.Label]*platform.Platform, len(candidates))
	for _, c := range candidates {
		platformsByLabel[c.Label] = c
	}

	for _, name := range index.Names() {
		group, _ := index.Group(name)
		resolved, err := r.Resolve(spec.Label, group, spec.ExecGroupCompatibleWith[name], candidates, targetPlatform)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		execPlatform := platformsByLabel[resolved.Platform]
		resolved.ExecProperties = MergeExecProperties(name, execPlatform.ExecProperties(), spec.ExecProperties)
		result.Groups[name] = resolved
	}

	if len(errs) > 0 {
		result.Err = errs[0]
		result.Groups = nil
	}
	return result, errs
}

// combineConstraints unions two constraint sets, preserving first-seen order
// and dropping duplicates.
func combineConstraints(a, b []platform.Label) []platform.Label {
	if len(b) == 0 {
		return a
	}
	out := make([]platform.Label, 0, len(a)+len(b))
	seen := make(map[platform.Label]bool, len(a)+len(b))
	for _, set := range [][]platform.Label{a, b} {
		for _, label := range set {
			if !seen[label] {
				seen[label] = true
				out = append(out, label)
			}
		}
	}
	return out
}
