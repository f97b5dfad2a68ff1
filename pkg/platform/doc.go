// Package platform defines the constraint model for the Platforge resolution
// engine: constraint settings and values, execution/target platforms, and the
// satisfaction predicate used by toolchain and execution-platform resolution.
//
// All types in this package are immutable once constructed and safe for
// concurrent readers. Resolution never mutates a Platform or Catalog; it only
// evaluates predicates against them.
package platform
