package platform

import "testing"

func testCatalog(t *testing.T) *Catalog {
	t.Helper()

	c := NewCatalog()
	mustAddSetting(t, c, &ConstraintSetting{Label: "//platform:setting"})
	mustAddValue(t, c, &ConstraintValue{Label: "//platform:constraint_1", Setting: "//platform:setting"})
	mustAddValue(t, c, &ConstraintValue{Label: "//platform:constraint_2", Setting: "//platform:setting"})

	mustAddSetting(t, c, &ConstraintSetting{
		Label:        "//platform:fast_cpu",
		DefaultValue: "//platform:no_fast_cpu",
	})
	mustAddValue(t, c, &ConstraintValue{Label: "//platform:no_fast_cpu", Setting: "//platform:fast_cpu"})
	mustAddValue(t, c, &ConstraintValue{Label: "//platform:has_fast_cpu", Setting: "//platform:fast_cpu"})

	return c
}

func mustAddSetting(t *testing.T, c *Catalog, s *ConstraintSetting) {
	t.Helper()
	if err := c.AddSetting(s); err != nil {
		t.Fatalf("AddSetting(%s): %v", s.Label, err)
	}
}

func mustAddValue(t *testing.T, c *Catalog, v *ConstraintValue) {
	t.Helper()
	if err := c.AddValue(v); err != nil {
		t.Fatalf("AddValue(%s): %v", v.Label, err)
	}
}

func TestSatisfies_ExplicitValue(t *testing.T) {
	c := testCatalog(t)
	p, err := NewPlatform(c, "//platform:platform_1", []Label{"//platform:constraint_1"}, nil)
	if err != nil {
		t.Fatalf("NewPlatform: %v", err)
	}

	ok, err := c.Satisfies(p, []Label{"//platform:constraint_1"})
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if !ok {
		t.Error("Expected platform to satisfy its own constraint value")
	}

	ok, err = c.Satisfies(p, []Label{"//platform:constraint_2"})
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if ok {
		t.Error("Expected platform holding constraint_1 to not satisfy constraint_2")
	}
}

func TestSatisfies_DefaultValue(t *testing.T) {
	c := testCatalog(t)

	// Declares nothing for the fast_cpu setting, so the setting default applies.
	p, err := NewPlatform(c, "//platform:plain", []Label{"//platform:constraint_1"}, nil)
	if err != nil {
		t.Fatalf("NewPlatform: %v", err)
	}

	ok, err := c.Satisfies(p, []Label{"//platform:no_fast_cpu"})
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if !ok {
		t.Error("Expected unset setting to satisfy its declared default value")
	}

	ok, err = c.Satisfies(p, []Label{"//platform:has_fast_cpu"})
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if ok {
		t.Error("Expected unset setting to not satisfy a non-default value")
	}
}

func TestSatisfies_ExplicitValueBeatsDefault(t *testing.T) {
	c := testCatalog(t)
	p, err := NewPlatform(c, "//platform:fast", []Label{"//platform:has_fast_cpu"}, nil)
	if err != nil {
		t.Fatalf("NewPlatform: %v", err)
	}

	ok, err := c.Satisfies(p, []Label{"//platform:no_fast_cpu"})
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if ok {
		t.Error("Expected explicit has_fast_cpu to override the setting default")
	}
}

func TestSatisfies_MultipleRequirements(t *testing.T) {
	c := testCatalog(t)
	p, err := NewPlatform(c, "//platform:both",
		[]Label{"//platform:constraint_1", "//platform:has_fast_cpu"}, nil)
	if err != nil {
		t.Fatalf("NewPlatform: %v", err)
	}

	ok, err := c.Satisfies(p, []Label{"//platform:constraint_1", "//platform:has_fast_cpu"})
	if err != nil {
		t.Fatalf("Satisfies: %v", err)
	}
	if !ok {
		t.Error("Expected platform to satisfy the full requirement set")
	}
}

func TestSatisfies_UnknownValue(t *testing.T) {
	c := testCatalog(t)
	p, err := NewPlatform(c, "//platform:platform_1", []Label{"//platform:constraint_1"}, nil)
	if err != nil {
		t.Fatalf("NewPlatform: %v", err)
	}

	if _, err := c.Satisfies(p, []Label{"//platform:nonexistent"}); err == nil {
		t.Error("Expected error for unknown constraint value")
	}
}

func TestNewPlatform_RejectsDuplicateSetting(t *testing.T) {
	c := testCatalog(t)
	_, err := NewPlatform(c, "//platform:bad",
		[]Label{"//platform:constraint_1", "//platform:constraint_2"}, nil)
	if err == nil {
		t.Fatal("Expected error for two values of the same constraint setting")
	}
}

func TestNewPlatform_CopiesExecProperties(t *testing.T) {
	c := testCatalog(t)
	props := map[string]string{"watermelon.ripeness": "unripe"}
	p, err := NewPlatform(c, "//platform:platform_2", []Label{"//platform:constraint_2"}, props)
	if err != nil {
		t.Fatalf("NewPlatform: %v", err)
	}

	props["watermelon.ripeness"] = "mutated"
	if v, _ := p.ExecProperty("watermelon.ripeness"); v != "unripe" {
		t.Errorf("Expected platform properties to be isolated from caller map, got %q", v)
	}
}

func TestCatalog_RejectsDuplicatesAndUnknownSetting(t *testing.T) {
	c := testCatalog(t)

	if err := c.AddSetting(&ConstraintSetting{Label: "//platform:setting"}); err == nil {
		t.Error("Expected error re-declaring a constraint setting")
	}
	if err := c.AddValue(&ConstraintValue{Label: "//platform:constraint_1", Setting: "//platform:setting"}); err == nil {
		t.Error("Expected error re-declaring a constraint value")
	}
	if err := c.AddValue(&ConstraintValue{Label: "//platform:v", Setting: "//platform:missing"}); err == nil {
		t.Error("Expected error declaring a value for an unknown setting")
	}
}
