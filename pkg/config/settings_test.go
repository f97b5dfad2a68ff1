package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

const validSettings = `
settings: {
	target_platform: "//platform:platform_1"
	execution_platforms: [
		"//platform:platform_1",
		"//platform:platform_2",
	]
	auto_exec_groups: true
	workers: 4
	declaration_files: ["decls.star"]
}
`

func TestParseInline_ValidSettings(t *testing.T) {
	parser := NewSettingsParser()

	settings, verrs, err := parser.ParseInline(context.Background(), validSettings)
	if err != nil {
		t.Fatalf("ParseInline: %v", err)
	}
	if len(verrs) != 0 {
		t.Fatalf("Expected no validation errors, got %v", verrs)
	}

	if settings.TargetPlatform != "//platform:platform_1" {
		t.Errorf("Expected target platform platform_1, got %s", settings.TargetPlatform)
	}
	if len(settings.ExecutionPlatforms) != 2 || settings.ExecutionPlatforms[1] != "//platform:platform_2" {
		t.Errorf("Expected ordered execution platforms, got %v", settings.ExecutionPlatforms)
	}
	if !settings.AutoExecGroups {
		t.Error("Expected auto_exec_groups enabled")
	}
	if settings.Workers != 4 {
		t.Errorf("Expected 4 workers, got %d", settings.Workers)
	}
}

func TestParseInline_Defaults(t *testing.T) {
	parser := NewSettingsParser()

	settings, verrs, err := parser.ParseInline(context.Background(), `
settings: {
	target_platform: "//platform:platform_1"
	execution_platforms: ["//platform:platform_1"]
}
`)
	if err != nil {
		t.Fatalf("ParseInline: %v", err)
	}
	if len(verrs) != 0 {
		t.Fatalf("Expected no validation errors, got %v", verrs)
	}
	if settings.AutoExecGroups {
		t.Error("Expected auto_exec_groups off by default")
	}
	if settings.Workers != 0 {
		t.Errorf("Expected unset workers to stay zero, got %d", settings.Workers)
	}
}

func TestParseInline_MissingSettingsBlock(t *testing.T) {
	parser := NewSettingsParser()

	_, verrs, err := parser.ParseInline(context.Background(), `other: {}`)
	if err != nil {
		t.Fatalf("ParseInline: %v", err)
	}
	if len(verrs) != 1 || verrs[0].Path != "settings" {
		t.Fatalf("Expected a settings-block validation error, got %v", verrs)
	}
}

func TestParseInline_SchemaViolations(t *testing.T) {
	parser := NewSettingsParser()

	cases := []struct {
		name    string
		content string
	}{
		{
			"empty execution platforms",
			`settings: {target_platform: "//p:p", execution_platforms: []}`,
		},
		{
			"non-label target platform",
			`settings: {target_platform: "p", execution_platforms: ["//p:p"]}`,
		},
		{
			"zero workers",
			`settings: {target_platform: "//p:p", execution_platforms: ["//p:p"], workers: 0}`,
		},
		{
			"missing target platform",
			`settings: {execution_platforms: ["//p:p"]}`,
		},
	}
	for _, tc := range cases {
		settings, verrs, err := parser.ParseInline(context.Background(), tc.content)
		if err != nil {
			t.Fatalf("%s: ParseInline: %v", tc.name, err)
		}
		if len(verrs) == 0 {
			t.Errorf("Expected validation errors for %s, got settings %+v", tc.name, settings)
		}
	}
}

func TestParseInline_SyntaxErrorHasPosition(t *testing.T) {
	parser := NewSettingsParser()

	_, verrs, err := parser.ParseInline(context.Background(), "settings: {\n\ttarget_platform: \n}")
	if err != nil {
		t.Fatalf("ParseInline: %v", err)
	}
	if len(verrs) == 0 {
		t.Fatal("Expected validation errors for malformed CUE")
	}
	if verrs[0].Severity != "error" {
		t.Errorf("Expected error severity, got %s", verrs[0].Severity)
	}
}

func TestParseFile_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.cue")
	if err := os.WriteFile(path, []byte(validSettings), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	parser := NewSettingsParser()
	settings, verrs, err := parser.ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile: %v", err)
	}
	if len(verrs) != 0 {
		t.Fatalf("Expected no validation errors, got %v", verrs)
	}
	if settings.TargetPlatform != "//platform:platform_1" {
		t.Errorf("Expected target platform platform_1, got %s", settings.TargetPlatform)
	}
}

func TestParseFile_Missing(t *testing.T) {
	parser := NewSettingsParser()

	if _, _, err := parser.ParseFile(context.Background(), "/nonexistent/settings.cue"); err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestSchemaRegistry_ExecProperties(t *testing.T) {
	registry := NewSchemaRegistry()

	good := map[string]string{
		"color":            "orange",
		"watermelon.color": "pink",
	}
	if err := registry.ValidateExecProperties(context.Background(), good); err != nil {
		t.Errorf("Expected valid property map, got %v", err)
	}

	bad := map[string]string{"wat ermelon": "pink"}
	if err := registry.ValidateExecProperties(context.Background(), bad); err == nil {
		t.Error("Expected error for malformed property key")
	}
}

func TestSchemaRegistry_ValidateSettings(t *testing.T) {
	registry := NewSchemaRegistry()

	settings := BuildSettings{
		TargetPlatform:     "//platform:platform_1",
		ExecutionPlatforms: []string{"//platform:platform_1"},
	}
	if err := registry.ValidateSettings(context.Background(), settings); err != nil {
		t.Errorf("Expected valid settings, got %v", err)
	}

	settings.ExecutionPlatforms = nil
	if err := registry.ValidateSettings(context.Background(), settings); err == nil {
		t.Error("Expected error for missing execution platforms")
	}
}
