// Package model parses INI model documents into structured sections.
//
// # Overview
//
// Model documents are INI files with plain sections ([attributes]), node
// sections ([node.<name>] with a type property and ds_* downstream links),
// and two list-style sections (inputs, outputs) whose entries are bare lines
// rather than key = value pairs.
//
// # Parsing Paths
//
// Parse: standard line-oriented parser for typical documents
// ParseOptimized: streaming path for documents above LargeContentLines,
// trading regex matching for byte scanning on the hot loop
//
// Both paths are lossless with respect to validation needs: section
// boundaries, property line numbers, duplicate node sections, and
// input/output entry positions are all retained.
//
// # Related Packages
//
//   - pkg/linter: validates parsed models against a schema
//   - pkg/validation: chooses the parsing path by document size
package model
