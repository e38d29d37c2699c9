// Package prefs provides the preference store used by the linter.
//
// # Overview
//
// The linter reads and writes a small set of settings (linting enabled,
// custom schema path, disabled rule names) through the narrow Store
// interface. The store is injected into consumers so tests can substitute
// MemoryStore for the file-backed implementation.
//
// # Implementations
//
// FileStore: YAML file on disk, write-through on every Set
// MemoryStore: in-memory map, used by tests
//
// # Related Packages
//
//   - pkg/schema: SchemaManager persists its settings through a Store
package prefs
