package config

import (
	"time"

	"github.com/platforge/platforge/pkg/platform"
	"github.com/platforge/platforge/pkg/resolve"
	"github.com/platforge/platforge/pkg/toolchain"
)

// PlatformDecl is a platform declaration before catalog-backed construction.
type PlatformDecl struct {
	// Label is the unique identity of the platform.
	Label platform.Label `json:"label" validate:"required"`

	// ConstraintValues are the constraint value labels the platform holds.
	ConstraintValues []platform.Label `json:"constraint_values,omitempty"`

	// ExecProperties are string properties attached to the platform. Keys may
	// carry a "<group>." namespace prefix.
	ExecProperties map[string]string `json:"exec_properties,omitempty"`
}

// Declarations is everything a set of declaration files contributes, in
// declaration order. Order matters: toolchain registration order breaks
// resolution ties, and execution platform candidates are consulted first
// match wins.
type Declarations struct {
	// Settings are the declared constraint settings.
	Settings []*platform.ConstraintSetting `json:"settings,omitempty"`

	// Values are the declared constraint values.
	Values []*platform.ConstraintValue `json:"values,omitempty"`

	// Platforms are the declared platforms.
	Platforms []PlatformDecl `json:"platforms,omitempty"`

	// ToolchainTypes are the declared toolchain types.
	ToolchainTypes []*toolchain.Type `json:"toolchain_types,omitempty"`

	// Toolchains are the registered toolchain instances, in registration
	// order.
	Toolchains []*toolchain.Instance `json:"toolchains,omitempty"`

	// Targets are the declared configured targets.
	Targets []*resolve.TargetSpec `json:"targets,omitempty"`

	// SourceFiles are the declaration files that were loaded.
	SourceFiles []string `json:"source_files,omitempty"`

	// LoadedAt is when the declarations were loaded.
	LoadedAt time.Time `json:"loaded_at"`
}

// Merge appends another file's declarations after this one's, preserving
// per-file order.
func (d *Declarations) Merge(other *Declarations) {
	d.Settings = append(d.Settings, other.Settings...)
	d.Values = append(d.Values, other.Values...)
	d.Platforms = append(d.Platforms, other.Platforms...)
	d.ToolchainTypes = append(d.ToolchainTypes, other.ToolchainTypes...)
	d.Toolchains = append(d.Toolchains, other.Toolchains...)
	d.Targets = append(d.Targets, other.Targets...)
	d.SourceFiles = append(d.SourceFiles, other.SourceFiles...)
}

// BuildSettings is the engine configuration loaded from the CUE settings
// file.
type BuildSettings struct {
	// TargetPlatform is the label of the platform being built for.
	TargetPlatform string `json:"target_platform" validate:"required"`

	// ExecutionPlatforms is the ordered candidate list consulted during
	// resolution. Earlier entries win.
	ExecutionPlatforms []string `json:"execution_platforms" validate:"required,min=1,dive,required"`

	// AutoExecGroups enables one singleton group per required toolchain type.
	AutoExecGroups bool `json:"auto_exec_groups"`

	// Workers bounds concurrent target evaluation. Zero means the engine
	// default.
	Workers int `json:"workers,omitempty" validate:"omitempty,min=1"`

	// DeclarationFiles are the Starlark declaration files to load.
	DeclarationFiles []string `json:"declaration_files,omitempty"`
}

// ValidationError is a settings-file error with source location.
type ValidationError struct {
	// File is the source file path.
	File string `json:"file,omitempty"`

	// Line is the line number (1-indexed).
	Line int `json:"line,omitempty"`

	// Column is the column number (1-indexed).
	Column int `json:"column,omitempty"`

	// Path is the CUE path to the error (e.g., "settings.execution_platforms").
	Path string `json:"path,omitempty"`

	// Message is the error message.
	Message string `json:"message"`

	// Severity is the error severity (error, warning, info).
	Severity string `json:"severity" validate:"required,oneof=error warning info"`
}
