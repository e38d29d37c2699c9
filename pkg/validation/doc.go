// Package validation is the asynchronous validation pipeline behind the
// editor linter.
//
// # Overview
//
// The Orchestrator is the public entry point. Submissions flow through a
// content-addressed result cache first; misses are scheduled on the
// Executor, which debounces bursts of edits into a single run of the latest
// content and cancels superseded runs through their context. Small
// documents are validated incrementally, re-checking only changed sections;
// large documents take an optimized parse path. A MemoryMonitor samples
// heap usage in the background and the orchestrator reclaims memory when
// pressure climbs after a run.
//
// Callbacks follow an exactly-once contract per submission: completed,
// cancelled, or error. A superseded or cancelled run never reports
// completion, even if its result was already computed.
//
// # Related Packages
//
//   - pkg/linter performs the actual rule checks.
//   - pkg/schema supplies rule configuration and toggling.
//   - pkg/observability provides logging, metrics, and tracing.
package validation
