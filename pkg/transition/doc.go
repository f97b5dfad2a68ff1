// Package transition rewrites dependency configurations for execution: a
// dependency tagged cfg=exec (or config.exec(name)) is built for the
// dependent's resolved execution platform instead of the target platform.
// The rewrite is a pure function of (input configuration, resolved platform)
// and therefore idempotent; results are memoized to keep the number of
// distinct configuration objects bounded across many dependency edges.
package transition
