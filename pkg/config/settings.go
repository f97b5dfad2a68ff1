package config

import (
	"context"
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"github.com/go-playground/validator/v10"
)

// SettingsParser parses and validates the CUE build-settings file.
type SettingsParser struct {
	ctx            *cue.Context
	schemaRegistry *SchemaRegistry
	validator      *validator.Validate
}

// NewSettingsParser creates a new settings parser.
func NewSettingsParser() *SettingsParser {
	return &SettingsParser{
		ctx:            cuecontext.New(),
		schemaRegistry: NewSchemaRegistry(),
		validator:      validator.New(),
	}
}

// ParseFile parses build settings from a CUE file.
func (sp *SettingsParser) ParseFile(ctx context.Context, path string) (*BuildSettings, []ValidationError, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read settings file %s: %w", path, err)
	}
	return sp.parse(ctx, path, string(content))
}

// ParseInline parses build settings from inline CUE content.
func (sp *SettingsParser) ParseInline(ctx context.Context, content string) (*BuildSettings, []ValidationError, error) {
	return sp.parse(ctx, "inline", content)
}

// parse compiles, schema-checks, decodes, and struct-validates the settings.
// Validation findings come back as ValidationError values; the error return
// is reserved for I/O and decode failures.
func (sp *SettingsParser) parse(ctx context.Context, filename, content string) (*BuildSettings, []ValidationError, error) {
	val := sp.ctx.CompileString(content, cue.Filename(filename))
	if err := val.Err(); err != nil {
		return nil, sp.convertCUEErrors(err), nil
	}

	settingsVal := val.LookupPath(cue.ParsePath("settings"))
	if !settingsVal.Exists() {
		return nil, []ValidationError{{
			File:     filename,
			Path:     "settings",
			Message:  "settings block not found",
			Severity: "error",
		}}, nil
	}

	// Unify with the built-in schema before decoding.
	if schema, ok := sp.schemaRegistry.GetSchema("settings"); ok {
		unified := schema.LookupPath(cue.ParsePath("#Settings")).Unify(settingsVal)
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			return nil, sp.convertCUEErrors(err), nil
		}
	}

	var settings BuildSettings
	if err := settingsVal.Decode(&settings); err != nil {
		return nil, nil, fmt.Errorf("failed to decode settings: %w", err)
	}

	// Validate using struct tags
	if err := sp.validator.Struct(settings); err != nil {
		return nil, []ValidationError{{
			File:     filename,
			Path:     "settings",
			Message:  err.Error(),
			Severity: "error",
		}}, nil
	}

	return &settings, nil, nil
}

// convertCUEErrors converts CUE errors to ValidationError slice.
func (sp *SettingsParser) convertCUEErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	errs := errors.Errors(err)
	for _, e := range errs {
		pos := errors.Positions(e)
		var file string
		var line, column int

		if len(pos) > 0 {
			file = pos[0].Filename()
			line = pos[0].Line()
			column = pos[0].Column()
		}

		validationErrors = append(validationErrors, ValidationError{
			File:     file,
			Line:     line,
			Column:   column,
			Message:  errors.Details(e, nil),
			Severity: "error",
		})
	}

	return validationErrors
}

// GetSchemaRegistry returns the schema registry.
func (sp *SettingsParser) GetSchemaRegistry() *SchemaRegistry {
	return sp.schemaRegistry
}
