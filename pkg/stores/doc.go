// Package stores provides the persistence layer for Platforge.
// It includes SQLite-based storage with WAL mode, connection pooling,
// and CRUD operations for evaluation runs, per-group resolutions,
// and diagnostics.
package stores
