package config

import (
	"context"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// SchemaRegistry manages CUE schemas for validation.
type SchemaRegistry struct {
	ctx     *cue.Context
	schemas map[string]cue.Value
	mu      sync.RWMutex
}

// NewSchemaRegistry creates a new schema registry with built-in schemas.
func NewSchemaRegistry() *SchemaRegistry {
	ctx := cuecontext.New()
	sr := &SchemaRegistry{
		ctx:     ctx,
		schemas: make(map[string]cue.Value),
	}

	// Register built-in schemas
	sr.registerBuiltInSchemas()

	return sr
}

// registerBuiltInSchemas registers all built-in schemas.
func (sr *SchemaRegistry) registerBuiltInSchemas() {
	sr.RegisterSchema("settings", builtinSettingsSchema)
	sr.RegisterSchema("exec_properties", builtinExecPropertiesSchema)
}

// RegisterSchema registers a CUE schema with the given name.
func (sr *SchemaRegistry) RegisterSchema(name, schema string) error {
	sr.mu.Lock()
	defer sr.mu.Unlock()

	val := sr.ctx.CompileString(schema)
	if err := val.Err(); err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", name, err)
	}

	sr.schemas[name] = val
	return nil
}

// GetSchema retrieves a schema by name.
func (sr *SchemaRegistry) GetSchema(name string) (cue.Value, bool) {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	val, ok := sr.schemas[name]
	return val, ok
}

// ValidateAgainstSchema validates data against a named schema's single
// definition.
func (sr *SchemaRegistry) ValidateAgainstSchema(ctx context.Context, schemaName, definition string, data interface{}) error {
	schema, ok := sr.GetSchema(schemaName)
	if !ok {
		return fmt.Errorf("schema %s not found", schemaName)
	}

	// Convert data to CUE value
	dataVal := sr.ctx.Encode(data)
	if err := dataVal.Err(); err != nil {
		return fmt.Errorf("failed to encode data: %w", err)
	}

	// Unify with schema (validates)
	unified := schema.LookupPath(cue.ParsePath(definition)).Unify(dataVal)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	return nil
}

// ListSchemas returns all registered schema names.
func (sr *SchemaRegistry) ListSchemas() []string {
	sr.mu.RLock()
	defer sr.mu.RUnlock()

	names := make([]string, 0, len(sr.schemas))
	for name := range sr.schemas {
		names = append(names, name)
	}
	return names
}

// ValidateSettings validates build settings against the settings schema.
func (sr *SchemaRegistry) ValidateSettings(ctx context.Context, settings BuildSettings) error {
	return sr.ValidateAgainstSchema(ctx, "settings", "#Settings", settings)
}

// ValidateExecProperties validates an exec-properties map's shape.
func (sr *SchemaRegistry) ValidateExecProperties(ctx context.Context, props map[string]string) error {
	return sr.ValidateAgainstSchema(ctx, "exec_properties", "#ExecProperties", props)
}

// Built-in schema definitions

const builtinSettingsSchema = `
// Settings schema for the Platforge build-settings file
#Settings: {
	// TargetPlatform is the label of the platform being built for
	target_platform: string & =~"^//"

	// ExecutionPlatforms is the ordered candidate list, earliest wins
	execution_platforms: [...string & =~"^//"] & [_, ...]

	// AutoExecGroups gives each required toolchain type its own group
	auto_exec_groups?: bool

	// Workers bounds concurrent target evaluation
	workers?: int & >0

	// DeclarationFiles are the Starlark declaration files to load
	declaration_files?: [...string]
}
`

const builtinExecPropertiesSchema = `
// ExecProperties schema: string map whose keys may carry a group prefix
#ExecProperties: {
	[=~"^([a-zA-Z0-9_-]+\\.)?[a-zA-Z0-9_.-]+$"]: string
}
`
