// Package resolve implements execution-platform and toolchain resolution: for
// every target and every exec group it declares, pick the first configured
// execution platform that satisfies the group's constraints and offers a
// compatible toolchain per required type, bind toolchain instances, and merge
// the group's exec properties.
//
// Resolution is a pure function of immutable inputs (constraint catalog,
// toolchain registry, candidate platform list, declared groups). The Evaluator
// runs many targets' resolutions concurrently, memoizes on the full input
// snapshot, and reports validation failures as per-target diagnostics instead
// of aborting the whole evaluation.
package resolve
