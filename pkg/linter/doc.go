// Package linter validates parsed model documents against the active
// schema and produces line-anchored diagnostics.
//
// # Overview
//
// The Linter runs a fixed set of validators over a model.ParsedModel:
// section constraints, node types and parameters, cross-references, node
// name uniqueness, and input file existence. Each validator runs under a
// panic guard so one misbehaving rule cannot abort the pass. Diagnostics
// carry the rule name that produced them; disabled rules are suppressed
// both at emission and in a final filter over the result.
//
// # Related Packages
//
//   - pkg/model parses documents into the structure the validators consume.
//   - pkg/schema supplies the rule set, node types, and data types.
//   - pkg/validation drives the linter asynchronously with caching.
package linter
