package toolchain

import (
	"testing"

	"github.com/platforge/platforge/pkg/platform"
)

// fixture mirrors the canonical two-type setup: type_1 is implemented by a
// toolchain runnable on platform_1, type_2 by one runnable on platform_2,
// both producing output for platform_1.
type fixture struct {
	catalog   *platform.Catalog
	registry  *Registry
	platform1 *platform.Platform
	platform2 *platform.Platform
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	c := platform.NewCatalog()
	if err := c.AddSetting(&platform.ConstraintSetting{Label: "//platform:setting"}); err != nil {
		t.Fatal(err)
	}
	for _, v := range []string{"//platform:constraint_1", "//platform:constraint_2"} {
		if err := c.AddValue(&platform.ConstraintValue{Label: platform.Label(v), Setting: "//platform:setting"}); err != nil {
			t.Fatal(err)
		}
	}

	p1, err := platform.NewPlatform(c, "//platform:platform_1", []platform.Label{"//platform:constraint_1"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := platform.NewPlatform(c, "//platform:platform_2", []platform.Label{"//platform:constraint_2"}, nil)
	if err != nil {
		t.Fatal(err)
	}

	r := NewRegistry(c)
	for _, typ := range []string{"//rule:toolchain_type_1", "//rule:toolchain_type_2"} {
		if err := r.DeclareType(&Type{Label: platform.Label(typ)}); err != nil {
			t.Fatal(err)
		}
	}
	if err := r.Register(&Instance{
		Label:                "//toolchain:foo_toolchain",
		Type:                 "//rule:toolchain_type_1",
		ExecCompatibleWith:   []platform.Label{"//platform:constraint_1"},
		TargetCompatibleWith: []platform.Label{"//platform:constraint_1"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := r.Register(&Instance{
		Label:                "//toolchain:bar_toolchain",
		Type:                 "//rule:toolchain_type_2",
		ExecCompatibleWith:   []platform.Label{"//platform:constraint_2"},
		TargetCompatibleWith: []platform.Label{"//platform:constraint_1"},
	}); err != nil {
		t.Fatal(err)
	}

	return &fixture{catalog: c, registry: r, platform1: p1, platform2: p2}
}

func TestFindCompatible_MatchesExecPlatform(t *testing.T) {
	f := newFixture(t)

	matches, err := f.registry.FindCompatible("//rule:toolchain_type_1", f.platform1, f.platform1)
	if err != nil {
		t.Fatalf("FindCompatible: %v", err)
	}
	if len(matches) != 1 || matches[0].Label != "//toolchain:foo_toolchain" {
		t.Errorf("Expected foo_toolchain on platform_1, got %v", matches)
	}

	matches, err = f.registry.FindCompatible("//rule:toolchain_type_2", f.platform1, f.platform1)
	if err != nil {
		t.Fatalf("FindCompatible: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no toolchain_type_2 instance on platform_1, got %v", matches)
	}
}

func TestFindCompatible_ChecksTargetConstraints(t *testing.T) {
	f := newFixture(t)

	// bar_toolchain runs on platform_2 but only targets platform_1.
	matches, err := f.registry.FindCompatible("//rule:toolchain_type_2", f.platform2, f.platform2)
	if err != nil {
		t.Fatalf("FindCompatible: %v", err)
	}
	if len(matches) != 0 {
		t.Errorf("Expected no match when target platform is platform_2, got %v", matches)
	}

	matches, err = f.registry.FindCompatible("//rule:toolchain_type_2", f.platform2, f.platform1)
	if err != nil {
		t.Fatalf("FindCompatible: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("Expected bar_toolchain when target platform is platform_1, got %v", matches)
	}
}

func TestFindCompatible_RegistrationOrderWinsOnTie(t *testing.T) {
	f := newFixture(t)

	// A second instance of type_1, equally compatible, registered later.
	if err := f.registry.Register(&Instance{
		Label:                "//toolchain:foo_toolchain_late",
		Type:                 "//rule:toolchain_type_1",
		ExecCompatibleWith:   []platform.Label{"//platform:constraint_1"},
		TargetCompatibleWith: []platform.Label{"//platform:constraint_1"},
	}); err != nil {
		t.Fatal(err)
	}

	matches, err := f.registry.FindCompatible("//rule:toolchain_type_1", f.platform1, f.platform1)
	if err != nil {
		t.Fatalf("FindCompatible: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("Expected 2 matches, got %d", len(matches))
	}
	if matches[0].Label != "//toolchain:foo_toolchain" {
		t.Errorf("Expected first registered instance first, got %s", matches[0].Label)
	}
	if matches[0].Order() >= matches[1].Order() {
		t.Error("Expected matches ordered by registration sequence")
	}
}

func TestFindCompatible_UnknownType(t *testing.T) {
	f := newFixture(t)
	if _, err := f.registry.FindCompatible("//rule:nonexistent", f.platform1, f.platform1); err == nil {
		t.Error("Expected error for unknown toolchain type")
	}
}

func TestRegister_RequiresDeclaredType(t *testing.T) {
	f := newFixture(t)
	err := f.registry.Register(&Instance{
		Label: "//toolchain:orphan",
		Type:  "//rule:undeclared_type",
	})
	if err == nil {
		t.Error("Expected error registering an instance of an undeclared type")
	}
}
