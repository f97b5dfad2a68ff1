package config

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.starlark.net/starlark"
	"go.starlark.net/starlarkstruct"

	"github.com/platforge/platforge/pkg/execgroup"
	"github.com/platforge/platforge/pkg/platform"
	"github.com/platforge/platforge/pkg/resolve"
	"github.com/platforge/platforge/pkg/toolchain"
)

// Loader executes Starlark declaration files. Each builtin appends one
// well-formed record to the file's Declarations; ordering follows execution
// order, so registration-order semantics fall out of the file's text order.
type Loader struct {
	timeout time.Duration
}

// NewLoader creates a new declaration loader.
func NewLoader(timeout time.Duration) *Loader {
	if timeout == 0 {
		timeout = 30 * time.Second // Default timeout
	}
	return &Loader{
		timeout: timeout,
	}
}

// LoadFiles loads and merges multiple declaration files in order.
func (l *Loader) LoadFiles(ctx context.Context, paths []string) (*Declarations, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("no declaration files provided")
	}

	merged := &Declarations{LoadedAt: time.Now()}
	for _, path := range paths {
		decls, err := l.LoadFile(ctx, path)
		if err != nil {
			return nil, err
		}
		merged.Merge(decls)
	}
	return merged, nil
}

// LoadFile loads a single declaration file.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Declarations, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read declaration file %s: %w", path, err)
	}
	return l.Load(ctx, path, string(src))
}

// Load executes declaration source and returns the records it declared.
func (l *Loader) Load(ctx context.Context, filename, src string) (*Declarations, error) {
	// Create timeout context
	loadCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	// Create channel to receive result or error
	resultCh := make(chan *Declarations, 1)
	errCh := make(chan error, 1)

	go func() {
		decls, err := l.loadSync(filename, src)
		if err != nil {
			errCh <- err
		} else {
			resultCh <- decls
		}
	}()

	// Wait for result or timeout
	select {
	case <-loadCtx.Done():
		return nil, fmt.Errorf("declaration load timeout after %v", l.timeout)
	case err := <-errCh:
		return nil, err
	case decls := <-resultCh:
		return decls, nil
	}
}

// loadSync performs the actual Starlark execution synchronously.
func (l *Loader) loadSync(filename, src string) (*Declarations, error) {
	state := &loadState{
		decls: &Declarations{
			SourceFiles: []string{filename},
			LoadedAt:    time.Now(),
		},
	}

	// Create thread
	thread := &starlark.Thread{
		Name: "platforge",
		Print: func(_ *starlark.Thread, msg string) {
			// Suppress print
		},
	}

	// Build predeclared environment with the declaration builtins
	predeclared := starlark.StringDict{
		"struct":             starlarkstruct.Default,
		"constraint_setting": starlark.NewBuiltin("constraint_setting", state.constraintSetting),
		"constraint_value":   starlark.NewBuiltin("constraint_value", state.constraintValue),
		"platform":           starlark.NewBuiltin("platform", state.platform),
		"toolchain_type":     starlark.NewBuiltin("toolchain_type", state.toolchainType),
		"toolchain":          starlark.NewBuiltin("toolchain", state.toolchain),
		"exec_group":         starlark.NewBuiltin("exec_group", state.execGroup),
		"action":             starlark.NewBuiltin("action", state.action),
		"dep":                starlark.NewBuiltin("dep", state.dep),
		"rule_target":        starlark.NewBuiltin("rule_target", state.ruleTarget),
	}

	// Execute the file
	if _, err := starlark.ExecFile(thread, filename, src, predeclared); err != nil {
		return nil, fmt.Errorf("declaration load failed: %w", err)
	}

	return state.decls, nil
}

// loadState accumulates declarations while one file executes.
type loadState struct {
	decls *Declarations
}

// constraintSetting implements the constraint_setting() builtin.
func (st *loadState) constraintSetting(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, defaultValue string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name,
		"default_constraint_value?", &defaultValue,
	); err != nil {
		return nil, err
	}

	st.decls.Settings = append(st.decls.Settings, &platform.ConstraintSetting{
		Label:        platform.Label(name),
		DefaultValue: platform.Label(defaultValue),
	})
	return starlark.None, nil
}

// constraintValue implements the constraint_value() builtin.
func (st *loadState) constraintValue(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, setting string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name,
		"constraint_setting", &setting,
	); err != nil {
		return nil, err
	}

	st.decls.Values = append(st.decls.Values, &platform.ConstraintValue{
		Label:   platform.Label(name),
		Setting: platform.Label(setting),
	})
	return starlark.None, nil
}

// platform implements the platform() builtin.
func (st *loadState) platform(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var values *starlark.List
	var props *starlark.Dict
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name,
		"constraint_values?", &values,
		"exec_properties?", &props,
	); err != nil {
		return nil, err
	}

	valueLabels, err := labelList(values)
	if err != nil {
		return nil, fmt.Errorf("%s: constraint_values: %w", b.Name(), err)
	}
	properties, err := stringDict(props)
	if err != nil {
		return nil, fmt.Errorf("%s: exec_properties: %w", b.Name(), err)
	}

	st.decls.Platforms = append(st.decls.Platforms, PlatformDecl{
		Label:            platform.Label(name),
		ConstraintValues: valueLabels,
		ExecProperties:   properties,
	})
	return starlark.None, nil
}

// toolchainType implements the toolchain_type() builtin.
func (st *loadState) toolchainType(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name); err != nil {
		return nil, err
	}

	st.decls.ToolchainTypes = append(st.decls.ToolchainTypes, &toolchain.Type{
		Label: platform.Label(name),
	})
	return starlark.None, nil
}

// toolchain implements the toolchain() builtin.
func (st *loadState) toolchain(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name, typ string
	var execCompat, targetCompat *starlark.List
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name,
		"toolchain_type", &typ,
		"exec_compatible_with?", &execCompat,
		"target_compatible_with?", &targetCompat,
	); err != nil {
		return nil, err
	}

	execLabels, err := labelList(execCompat)
	if err != nil {
		return nil, fmt.Errorf("%s: exec_compatible_with: %w", b.Name(), err)
	}
	targetLabels, err := labelList(targetCompat)
	if err != nil {
		return nil, fmt.Errorf("%s: target_compatible_with: %w", b.Name(), err)
	}

	st.decls.Toolchains = append(st.decls.Toolchains, &toolchain.Instance{
		Label:                platform.Label(name),
		Type:                 platform.Label(typ),
		ExecCompatibleWith:   execLabels,
		TargetCompatibleWith: targetLabels,
	})
	return starlark.None, nil
}

// execGroup implements the exec_group() builtin. It returns an opaque value
// passed to rule_target's exec_groups dict.
func (st *loadState) execGroup(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var toolchains, execCompat *starlark.List
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"toolchains?", &toolchains,
		"exec_compatible_with?", &execCompat,
	); err != nil {
		return nil, err
	}

	typeLabels, err := labelList(toolchains)
	if err != nil {
		return nil, fmt.Errorf("%s: toolchains: %w", b.Name(), err)
	}
	execLabels, err := labelList(execCompat)
	if err != nil {
		return nil, fmt.Errorf("%s: exec_compatible_with: %w", b.Name(), err)
	}

	return &execGroupValue{decl: execgroup.Decl{
		Toolchains:         typeLabels,
		ExecCompatibleWith: execLabels,
	}}, nil
}

// action implements the action() builtin. An empty group binds the action to
// the default group.
func (st *loadState) action(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var mnemonic, group string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"mnemonic", &mnemonic,
		"group?", &group,
	); err != nil {
		return nil, err
	}

	return &actionValue{spec: resolve.ActionSpec{
		Mnemonic: mnemonic,
		Group:    group,
	}}, nil
}

// dep implements the dep() builtin.
func (st *loadState) dep(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var attr, label, cfg string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"attr", &attr,
		"label", &label,
		"cfg?", &cfg,
	); err != nil {
		return nil, err
	}

	if _, _, ok := resolve.ParseTransition(cfg); !ok {
		return nil, fmt.Errorf("%s: invalid cfg %q", b.Name(), cfg)
	}

	return &depValue{spec: resolve.DepSpec{
		Attr:       attr,
		Label:      platform.Label(label),
		Transition: cfg,
	}}, nil
}

// ruleTarget implements the rule_target() builtin.
func (st *loadState) ruleTarget(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var toolchains, execCompat, actions, deps *starlark.List
	var groups, aspectGroups, props, groupCompat *starlark.Dict
	var useAuto starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs,
		"name", &name,
		"toolchains?", &toolchains,
		"exec_compatible_with?", &execCompat,
		"exec_groups?", &groups,
		"aspect_exec_groups?", &aspectGroups,
		"exec_properties?", &props,
		"exec_group_compatible_with?", &groupCompat,
		"actions?", &actions,
		"deps?", &deps,
		"use_auto_exec_groups?", &useAuto,
	); err != nil {
		return nil, err
	}

	spec := &resolve.TargetSpec{Label: platform.Label(name)}

	var err error
	if spec.Rule.Toolchains, err = labelList(toolchains); err != nil {
		return nil, fmt.Errorf("%s: toolchains: %w", b.Name(), err)
	}
	if spec.Rule.ExecCompatibleWith, err = labelList(execCompat); err != nil {
		return nil, fmt.Errorf("%s: exec_compatible_with: %w", b.Name(), err)
	}
	if spec.Rule.Groups, err = groupDict(groups); err != nil {
		return nil, fmt.Errorf("%s: exec_groups: %w", b.Name(), err)
	}
	if spec.Rule.AspectGroups, err = groupDict(aspectGroups); err != nil {
		return nil, fmt.Errorf("%s: aspect_exec_groups: %w", b.Name(), err)
	}
	if spec.ExecProperties, err = stringDict(props); err != nil {
		return nil, fmt.Errorf("%s: exec_properties: %w", b.Name(), err)
	}
	if spec.ExecGroupCompatibleWith, err = labelListDict(groupCompat); err != nil {
		return nil, fmt.Errorf("%s: exec_group_compatible_with: %w", b.Name(), err)
	}
	if spec.Actions, err = actionList(actions); err != nil {
		return nil, fmt.Errorf("%s: actions: %w", b.Name(), err)
	}
	if spec.Deps, err = depList(deps); err != nil {
		return nil, fmt.Errorf("%s: deps: %w", b.Name(), err)
	}

	if useAuto != nil && useAuto != starlark.None {
		flag, ok := useAuto.(starlark.Bool)
		if !ok {
			return nil, fmt.Errorf("%s: use_auto_exec_groups must be a bool, got %s", b.Name(), useAuto.Type())
		}
		v := bool(flag)
		spec.Rule.UseAutoExecGroups = &v
	}

	st.decls.Targets = append(st.decls.Targets, spec)
	return starlark.None, nil
}

// Opaque Starlark values produced by exec_group(), action(), and dep().

type execGroupValue struct {
	decl execgroup.Decl
}

func (v *execGroupValue) String() string        { return "exec_group(...)" }
func (v *execGroupValue) Type() string          { return "exec_group" }
func (v *execGroupValue) Freeze()               {}
func (v *execGroupValue) Truth() starlark.Bool  { return starlark.True }
func (v *execGroupValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: exec_group") }

type actionValue struct {
	spec resolve.ActionSpec
}

func (v *actionValue) String() string        { return fmt.Sprintf("action(%q)", v.spec.Mnemonic) }
func (v *actionValue) Type() string          { return "action" }
func (v *actionValue) Freeze()               {}
func (v *actionValue) Truth() starlark.Bool  { return starlark.True }
func (v *actionValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: action") }

type depValue struct {
	spec resolve.DepSpec
}

func (v *depValue) String() string        { return fmt.Sprintf("dep(%q)", v.spec.Label) }
func (v *depValue) Type() string          { return "dep" }
func (v *depValue) Freeze()               {}
func (v *depValue) Truth() starlark.Bool  { return starlark.True }
func (v *depValue) Hash() (uint32, error) { return 0, fmt.Errorf("unhashable type: dep") }

// Starlark-to-Go conversion helpers.

// labelList converts a Starlark list of strings to labels. A nil list is
// valid and empty.
func labelList(list *starlark.List) ([]platform.Label, error) {
	if list == nil {
		return nil, nil
	}
	labels := make([]platform.Label, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		s, ok := starlark.AsString(list.Index(i))
		if !ok {
			return nil, fmt.Errorf("element %d must be a string, got %s", i, list.Index(i).Type())
		}
		labels = append(labels, platform.Label(s))
	}
	return labels, nil
}

// stringDict converts a Starlark dict with string keys and values.
func stringDict(dict *starlark.Dict) (map[string]string, error) {
	if dict == nil {
		return nil, nil
	}
	out := make(map[string]string, dict.Len())
	for _, item := range dict.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("key must be a string, got %s", item[0].Type())
		}
		value, ok := starlark.AsString(item[1])
		if !ok {
			return nil, fmt.Errorf("value for %q must be a string, got %s", key, item[1].Type())
		}
		out[key] = value
	}
	return out, nil
}

// groupDict converts a dict of name to exec_group() values.
func groupDict(dict *starlark.Dict) (map[string]execgroup.Decl, error) {
	if dict == nil {
		return nil, nil
	}
	out := make(map[string]execgroup.Decl, dict.Len())
	for _, item := range dict.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("key must be a string, got %s", item[0].Type())
		}
		group, ok := item[1].(*execGroupValue)
		if !ok {
			return nil, fmt.Errorf("value for %q must be an exec_group, got %s", key, item[1].Type())
		}
		out[key] = group.decl
	}
	return out, nil
}

// labelListDict converts a dict of name to list of labels.
func labelListDict(dict *starlark.Dict) (map[string][]platform.Label, error) {
	if dict == nil {
		return nil, nil
	}
	out := make(map[string][]platform.Label, dict.Len())
	for _, item := range dict.Items() {
		key, ok := starlark.AsString(item[0])
		if !ok {
			return nil, fmt.Errorf("key must be a string, got %s", item[0].Type())
		}
		list, ok := item[1].(*starlark.List)
		if !ok {
			return nil, fmt.Errorf("value for %q must be a list, got %s", key, item[1].Type())
		}
		labels, err := labelList(list)
		if err != nil {
			return nil, fmt.Errorf("value for %q: %w", key, err)
		}
		out[key] = labels
	}
	return out, nil
}

// actionList converts a list of action() values.
func actionList(list *starlark.List) ([]resolve.ActionSpec, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]resolve.ActionSpec, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		action, ok := list.Index(i).(*actionValue)
		if !ok {
			return nil, fmt.Errorf("element %d must be an action, got %s", i, list.Index(i).Type())
		}
		out = append(out, action.spec)
	}
	return out, nil
}

// depList converts a list of dep() values.
func depList(list *starlark.List) ([]resolve.DepSpec, error) {
	if list == nil {
		return nil, nil
	}
	out := make([]resolve.DepSpec, 0, list.Len())
	for i := 0; i < list.Len(); i++ {
		dep, ok := list.Index(i).(*depValue)
		if !ok {
			return nil, fmt.Errorf("element %d must be a dep, got %s", i, list.Index(i).Type())
		}
		out = append(out, dep.spec)
	}
	return out, nil
}
