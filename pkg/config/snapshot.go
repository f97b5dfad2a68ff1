package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/platforge/platforge/pkg/platform"
	"github.com/platforge/platforge/pkg/resolve"
	"github.com/platforge/platforge/pkg/toolchain"
)

// Snapshot is the immutable engine input assembled from loaded declarations:
// the constraint catalog, the toolchain registry, constructed platforms, and
// the declared targets. Built once per load and shared read-only afterwards.
type Snapshot struct {
	// Catalog indexes the declared constraint settings and values.
	Catalog *platform.Catalog

	// Registry indexes toolchain types and instances in registration order.
	Registry *toolchain.Registry

	// Platforms are the constructed platforms in declaration order.
	Platforms []*platform.Platform

	// Targets are the declared targets in declaration order.
	Targets []*resolve.TargetSpec

	byLabel map[platform.Label]*platform.Platform
}

// Build validates the declarations and assembles the engine snapshot.
// Declaration order is preserved everywhere it carries meaning.
func (d *Declarations) Build() (*Snapshot, error) {
	v := validator.New()

	catalog := platform.NewCatalog()
	for _, setting := range d.Settings {
		if err := v.Struct(setting); err != nil {
			return nil, fmt.Errorf("constraint setting %s: %w", setting.Label, err)
		}
		if err := catalog.AddSetting(setting); err != nil {
			return nil, err
		}
	}
	for _, value := range d.Values {
		if err := v.Struct(value); err != nil {
			return nil, fmt.Errorf("constraint value %s: %w", value.Label, err)
		}
		if err := catalog.AddValue(value); err != nil {
			return nil, err
		}
	}

	// Default constraint values must name a value of their own setting.
	for _, setting := range d.Settings {
		if setting.DefaultValue.IsEmpty() {
			continue
		}
		value, ok := catalog.Value(setting.DefaultValue)
		if !ok {
			return nil, fmt.Errorf("constraint setting %s: unknown default value %s",
				setting.Label, setting.DefaultValue)
		}
		if value.Setting != setting.Label {
			return nil, fmt.Errorf("constraint setting %s: default value %s belongs to setting %s",
				setting.Label, setting.DefaultValue, value.Setting)
		}
	}

	snap := &Snapshot{
		Catalog:  catalog,
		Registry: toolchain.NewRegistry(catalog),
		byLabel:  make(map[platform.Label]*platform.Platform, len(d.Platforms)),
	}

	for _, decl := range d.Platforms {
		if err := v.Struct(decl); err != nil {
			return nil, fmt.Errorf("platform %s: %w", decl.Label, err)
		}
		if _, exists := snap.byLabel[decl.Label]; exists {
			return nil, fmt.Errorf("platform %s already declared", decl.Label)
		}
		p, err := platform.NewPlatform(catalog, decl.Label, decl.ConstraintValues, decl.ExecProperties)
		if err != nil {
			return nil, err
		}
		snap.Platforms = append(snap.Platforms, p)
		snap.byLabel[decl.Label] = p
	}

	for _, typ := range d.ToolchainTypes {
		if err := v.Struct(typ); err != nil {
			return nil, fmt.Errorf("toolchain type %s: %w", typ.Label, err)
		}
		if err := snap.Registry.DeclareType(typ); err != nil {
			return nil, err
		}
	}
	for _, inst := range d.Toolchains {
		if err := v.Struct(inst); err != nil {
			return nil, fmt.Errorf("toolchain %s: %w", inst.Label, err)
		}
		if err := snap.Registry.Register(inst); err != nil {
			return nil, err
		}
	}

	seen := make(map[platform.Label]bool, len(d.Targets))
	for _, target := range d.Targets {
		if err := v.Struct(target); err != nil {
			return nil, fmt.Errorf("target %s: %w", target.Label, err)
		}
		if seen[target.Label] {
			return nil, fmt.Errorf("target %s already declared", target.Label)
		}
		seen[target.Label] = true
		snap.Targets = append(snap.Targets, target)
	}

	return snap, nil
}

// Platform looks up a constructed platform by label.
func (s *Snapshot) Platform(label platform.Label) (*platform.Platform, bool) {
	p, ok := s.byLabel[label]
	return p, ok
}

// Candidates returns the platforms named by the settings' ordered execution
// platform list. Every label must be declared.
func (s *Snapshot) Candidates(labels []string) ([]*platform.Platform, error) {
	out := make([]*platform.Platform, 0, len(labels))
	for _, label := range labels {
		p, ok := s.byLabel[platform.Label(label)]
		if !ok {
			return nil, fmt.Errorf("execution platform %s is not declared", label)
		}
		out = append(out, p)
	}
	return out, nil
}
