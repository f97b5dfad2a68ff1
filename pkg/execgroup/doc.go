// Package execgroup models named exec groups: bundles of required toolchain
// types and extra execution constraints that resolve to an execution platform
// independently of each other. Every target owns an index of groups built once
// from its rule (and any aspects applied to it) and treated as immutable
// afterwards; all later references to group names are validated against that
// closed index instead of trusting free-form strings.
package execgroup
