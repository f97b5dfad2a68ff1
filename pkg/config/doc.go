// Package config loads the declaration surface of a Platforge workspace.
//
// Declarations (constraint settings and values, platforms, toolchain types
// and instances, exec groups, targets) live in Starlark files executed with a
// small predeclared environment:
//
//	constraint_setting(name = "//platform:os", default_constraint_value = "//platform:linux")
//	constraint_value(name = "//platform:linux", constraint_setting = "//platform:os")
//
//	platform(
//	    name = "//platform:linux_worker",
//	    constraint_values = ["//platform:linux"],
//	    exec_properties = {"watermelon.color": "red"},
//	)
//
//	toolchain_type(name = "//rule:toolchain_type_1")
//	toolchain(
//	    name = "//toolchain:foo",
//	    toolchain_type = "//rule:toolchain_type_1",
//	    exec_compatible_with = ["//platform:linux"],
//	)
//
//	rule_target(
//	    name = "//demo:my_target",
//	    toolchains = ["//rule:toolchain_type_1"],
//	    exec_groups = {"watermelon": exec_group(toolchains = ["//rule:toolchain_type_2"])},
//	    actions = [action("Compile", group = "watermelon")],
//	    deps = [dep(attr = "tool", label = "//demo:gen", cfg = "exec-named:watermelon")],
//	)
//
// Each builtin appends a record in execution order, so toolchain registration
// order and the execution platform candidate order follow the text of the
// file. Declarations.Build assembles the records into an immutable Snapshot
// (catalog, registry, platforms, targets) for the resolution engine.
//
// Build settings (target platform, ordered execution platforms, automatic
// exec groups, worker count) come from a separate CUE file validated against
// an embedded schema:
//
//	settings: {
//	    target_platform:     "//platform:linux_worker"
//	    execution_platforms: ["//platform:linux_worker", "//platform:mac_worker"]
//	    auto_exec_groups:    false
//	}
package config
