package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/platforge/platforge/pkg/execgroup"
	"github.com/platforge/platforge/pkg/resolve"
)

const declarationScript = `
constraint_setting(
    name = "//platform:setting",
    default_constraint_value = "//platform:constraint_1",
)
constraint_value(name = "//platform:constraint_1", constraint_setting = "//platform:setting")
constraint_value(name = "//platform:constraint_2", constraint_setting = "//platform:setting")

platform(
    name = "//platform:platform_1",
    constraint_values = ["//platform:constraint_1"],
    exec_properties = {"watermelon.color": "red"},
)
platform(
    name = "//platform:platform_2",
    constraint_values = ["//platform:constraint_2"],
)

toolchain_type(name = "//rule:toolchain_type_1")
toolchain_type(name = "//rule:toolchain_type_2")

toolchain(
    name = "//toolchain:foo",
    toolchain_type = "//rule:toolchain_type_1",
    exec_compatible_with = ["//platform:constraint_1"],
    target_compatible_with = ["//platform:constraint_1"],
)
toolchain(
    name = "//toolchain:bar",
    toolchain_type = "//rule:toolchain_type_2",
    exec_compatible_with = ["//platform:constraint_2"],
)

rule_target(
    name = "//demo:my_target",
    toolchains = ["//rule:toolchain_type_1"],
    exec_groups = {
        "watermelon": exec_group(toolchains = ["//rule:toolchain_type_2"]),
    },
    exec_properties = {"watermelon.color": "pink"},
    exec_group_compatible_with = {"watermelon": ["//platform:constraint_2"]},
    actions = [
        action("Compile", group = "watermelon"),
        action("Link"),
    ],
    deps = [
        dep(attr = "deps", label = "//demo:lib", cfg = "target"),
        dep(attr = "tool", label = "//demo:gen", cfg = "exec-named:watermelon"),
    ],
)
`

func TestLoad_Declarations(t *testing.T) {
	loader := NewLoader(0)

	decls, err := loader.Load(context.Background(), "decls.star", declarationScript)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(decls.Settings) != 1 {
		t.Fatalf("Expected 1 constraint setting, got %d", len(decls.Settings))
	}
	if decls.Settings[0].DefaultValue != "//platform:constraint_1" {
		t.Errorf("Expected default value constraint_1, got %s", decls.Settings[0].DefaultValue)
	}
	if len(decls.Values) != 2 {
		t.Errorf("Expected 2 constraint values, got %d", len(decls.Values))
	}
	if len(decls.Platforms) != 2 {
		t.Fatalf("Expected 2 platforms, got %d", len(decls.Platforms))
	}
	if decls.Platforms[0].ExecProperties["watermelon.color"] != "red" {
		t.Errorf("Expected platform exec property carried through, got %v", decls.Platforms[0].ExecProperties)
	}
	if len(decls.ToolchainTypes) != 2 {
		t.Errorf("Expected 2 toolchain types, got %d", len(decls.ToolchainTypes))
	}

	// Registration order follows text order.
	if len(decls.Toolchains) != 2 {
		t.Fatalf("Expected 2 toolchains, got %d", len(decls.Toolchains))
	}
	if decls.Toolchains[0].Label != "//toolchain:foo" || decls.Toolchains[1].Label != "//toolchain:bar" {
		t.Errorf("Expected toolchains in declaration order, got %s then %s",
			decls.Toolchains[0].Label, decls.Toolchains[1].Label)
	}
}

func TestLoad_RuleTarget(t *testing.T) {
	loader := NewLoader(0)

	decls, err := loader.Load(context.Background(), "decls.star", declarationScript)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(decls.Targets) != 1 {
		t.Fatalf("Expected 1 target, got %d", len(decls.Targets))
	}
	target := decls.Targets[0]

	if target.Label != "//demo:my_target" {
		t.Errorf("Expected target label //demo:my_target, got %s", target.Label)
	}
	group, ok := target.Rule.Groups["watermelon"]
	if !ok {
		t.Fatal("Expected watermelon exec group")
	}
	if len(group.Toolchains) != 1 || group.Toolchains[0] != "//rule:toolchain_type_2" {
		t.Errorf("Expected group toolchains [toolchain_type_2], got %v", group.Toolchains)
	}
	if target.ExecProperties["watermelon.color"] != "pink" {
		t.Errorf("Expected target exec property carried through, got %v", target.ExecProperties)
	}
	if got := target.ExecGroupCompatibleWith["watermelon"]; len(got) != 1 || got[0] != "//platform:constraint_2" {
		t.Errorf("Expected per-group constraints [constraint_2], got %v", got)
	}

	if len(target.Actions) != 2 {
		t.Fatalf("Expected 2 actions, got %d", len(target.Actions))
	}
	if target.Actions[0].Group != "watermelon" {
		t.Errorf("Expected Compile bound to watermelon, got %q", target.Actions[0].Group)
	}
	if target.Actions[1].Group != "" {
		t.Errorf("Expected Link left on the default group, got %q", target.Actions[1].Group)
	}

	if len(target.Deps) != 2 {
		t.Fatalf("Expected 2 deps, got %d", len(target.Deps))
	}
	if target.Deps[1].Transition != "exec-named:watermelon" {
		t.Errorf("Expected exec-named transition tag, got %q", target.Deps[1].Transition)
	}
}

func TestLoad_UseAutoExecGroups(t *testing.T) {
	loader := NewLoader(0)

	decls, err := loader.Load(context.Background(), "decls.star", `
rule_target(name = "//demo:opt_out", use_auto_exec_groups = False)
rule_target(name = "//demo:unset")
`)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	optOut := decls.Targets[0]
	if optOut.Rule.UseAutoExecGroups == nil || *optOut.Rule.UseAutoExecGroups {
		t.Errorf("Expected explicit opt-out, got %v", optOut.Rule.UseAutoExecGroups)
	}
	if decls.Targets[1].Rule.UseAutoExecGroups != nil {
		t.Errorf("Expected unset tri-state to stay nil, got %v", decls.Targets[1].Rule.UseAutoExecGroups)
	}
}

func TestLoad_InvalidTransitionTag(t *testing.T) {
	loader := NewLoader(0)

	_, err := loader.Load(context.Background(), "decls.star", `
rule_target(
    name = "//demo:my_target",
    deps = [dep(attr = "deps", label = "//demo:lib", cfg = "sideways")],
)
`)
	if err == nil {
		t.Fatal("Expected error for invalid cfg tag")
	}
}

func TestLoad_TypeErrors(t *testing.T) {
	loader := NewLoader(0)

	cases := []struct {
		name   string
		script string
	}{
		{"non-string constraint value", `platform(name = "//p:p", constraint_values = [1])`},
		{"non-string property value", `platform(name = "//p:p", exec_properties = {"k": 1})`},
		{"non-group exec_groups value", `rule_target(name = "//d:t", exec_groups = {"g": "nope"})`},
		{"non-action actions element", `rule_target(name = "//d:t", actions = ["nope"])`},
		{"non-bool auto flag", `rule_target(name = "//d:t", use_auto_exec_groups = "yes")`},
	}
	for _, tc := range cases {
		if _, err := loader.Load(context.Background(), "decls.star", tc.script); err == nil {
			t.Errorf("Expected error for %s", tc.name)
		}
	}
}

func TestLoad_SyntaxError(t *testing.T) {
	loader := NewLoader(0)

	_, err := loader.Load(context.Background(), "decls.star", `platform(name = `)
	if err == nil {
		t.Fatal("Expected syntax error")
	}
}

func TestLoad_Timeout(t *testing.T) {
	loader := NewLoader(1 * time.Millisecond)

	_, err := loader.Load(context.Background(), "decls.star", `
for i in range(10000):
    for j in range(10000):
        pass
`)
	if err == nil {
		t.Fatal("Expected timeout error")
	}
}

func TestLoadFiles_MergePreservesOrder(t *testing.T) {
	dir := t.TempDir()

	first := filepath.Join(dir, "platforms.star")
	if err := os.WriteFile(first, []byte(`
constraint_setting(name = "//platform:setting")
constraint_value(name = "//platform:constraint_1", constraint_setting = "//platform:setting")
platform(name = "//platform:platform_1", constraint_values = ["//platform:constraint_1"])
toolchain_type(name = "//rule:toolchain_type_1")
toolchain(name = "//toolchain:first", toolchain_type = "//rule:toolchain_type_1")
`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	second := filepath.Join(dir, "targets.star")
	if err := os.WriteFile(second, []byte(`
toolchain(name = "//toolchain:second", toolchain_type = "//rule:toolchain_type_1")
rule_target(name = "//demo:my_target", toolchains = ["//rule:toolchain_type_1"])
`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loader := NewLoader(0)
	decls, err := loader.LoadFiles(context.Background(), []string{first, second})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}

	if len(decls.SourceFiles) != 2 {
		t.Errorf("Expected 2 source files, got %v", decls.SourceFiles)
	}
	if len(decls.Toolchains) != 2 || decls.Toolchains[0].Label != "//toolchain:first" {
		t.Errorf("Expected cross-file registration order preserved, got %v", decls.Toolchains)
	}
	if len(decls.Targets) != 1 {
		t.Errorf("Expected 1 target, got %d", len(decls.Targets))
	}
}

func TestBuild_Snapshot(t *testing.T) {
	loader := NewLoader(0)

	decls, err := loader.Load(context.Background(), "decls.star", declarationScript)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	snap, err := decls.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if _, ok := snap.Catalog.Setting("//platform:setting"); !ok {
		t.Error("Expected setting in catalog")
	}
	if len(snap.Platforms) != 2 || snap.Platforms[0].Label != "//platform:platform_1" {
		t.Errorf("Expected platforms in declaration order, got %v", snap.Platforms)
	}
	if _, ok := snap.Platform("//platform:platform_2"); !ok {
		t.Error("Expected platform lookup by label")
	}

	candidates, err := snap.Candidates([]string{"//platform:platform_2", "//platform:platform_1"})
	if err != nil {
		t.Fatalf("Candidates: %v", err)
	}
	if candidates[0].Label != "//platform:platform_2" {
		t.Errorf("Expected candidate order to follow settings order, got %s", candidates[0].Label)
	}

	if _, err := snap.Candidates([]string{"//platform:missing"}); err == nil {
		t.Error("Expected error for undeclared execution platform")
	}

	// The snapshot feeds resolution directly.
	spec := snap.Targets[0]
	index, err := execgroup.BuildIndex(spec.Rule, false)
	if err != nil {
		t.Fatalf("BuildIndex: %v", err)
	}
	targetPlatform, _ := snap.Platform("//platform:platform_1")
	resolver := resolve.NewResolver(snap.Catalog, snap.Registry)
	result, errs := resolver.ResolveGroups(spec, index, snap.Platforms, targetPlatform)
	if len(errs) != 0 {
		t.Fatalf("ResolveGroups: %v", errs)
	}
	if got, ok := result.Group("watermelon"); !ok || got.Platform != "//platform:platform_2" {
		t.Errorf("Expected watermelon group on platform_2, got %+v", got)
	}
}

func TestBuild_Errors(t *testing.T) {
	loader := NewLoader(0)

	cases := []struct {
		name   string
		script string
	}{
		{
			"unknown default value",
			`constraint_setting(name = "//platform:setting", default_constraint_value = "//platform:missing")`,
		},
		{
			"default value of another setting",
			`
constraint_setting(name = "//platform:a", default_constraint_value = "//platform:b1")
constraint_setting(name = "//platform:b")
constraint_value(name = "//platform:b1", constraint_setting = "//platform:b")
`,
		},
		{
			"duplicate platform",
			`
constraint_setting(name = "//platform:setting")
platform(name = "//platform:platform_1")
platform(name = "//platform:platform_1")
`,
		},
		{
			"duplicate target",
			`
rule_target(name = "//demo:my_target")
rule_target(name = "//demo:my_target")
`,
		},
		{
			"toolchain of undeclared type",
			`toolchain(name = "//toolchain:foo", toolchain_type = "//rule:missing")`,
		},
	}
	for _, tc := range cases {
		decls, err := loader.Load(context.Background(), "decls.star", tc.script)
		if err != nil {
			t.Fatalf("%s: Load: %v", tc.name, err)
		}
		if _, err := decls.Build(); err == nil {
			t.Errorf("Expected Build error for %s", tc.name)
		}
	}
}
