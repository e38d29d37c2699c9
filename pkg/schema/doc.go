// Package schema loads and manages the linter schema for model documents.
//
// # Overview
//
// A schema is a versioned JSON document describing validation rules (with
// severity and a mutable enabled flag), node type definitions (required and
// optional parameters, downstream link parameters, allowed outputs), data
// types backed by regular expressions, and expected sections.
//
// # Loading
//
// LoadDefault reads the embedded default schema; LoadFile reads a custom
// schema from disk. Manager ties loading to the preference store: a missing
// or corrupt custom schema degrades to the default with the fallback
// observable through FallbackActive, never an error to the caller.
//
// # Rule State
//
// Rule enabled flags are the only mutable schema state and are safe to
// toggle while validation runs. Manager.SetRuleEnabled flips one rule
// without a reload; Manager.UpdatePreferences persists and reloads.
//
// # Related Packages
//
//   - pkg/prefs: injected preference store
//   - pkg/linter: evaluates parsed models against the schema
package schema
