package linter

import (
	"fmt"

	"github.com/chasegan/kalixlint/pkg/schema"
)

// Diagnostic is a single reported issue with its document location and the
// rule that produced it.
type Diagnostic struct {
	Line     int             `json:"line"`
	Message  string          `json:"message"`
	Severity schema.Severity `json:"severity"`
	Rule     string          `json:"rule"`
}

// Result holds the ordered diagnostics of one validation run. Results are
// treated as immutable once returned to a caller; the cache and orchestrator
// share them without copying diagnostics.
type Result struct {
	Diagnostics []Diagnostic `json:"diagnostics"`
}

// NewResult returns an empty result.
func NewResult() *Result {
	return &Result{}
}

// Add appends a diagnostic.
func (r *Result) Add(d Diagnostic) {
	r.Diagnostics = append(r.Diagnostics, d)
}

// AddIssue appends a diagnostic from its parts.
func (r *Result) AddIssue(line int, message string, severity schema.Severity, rule string) {
	r.Add(Diagnostic{Line: line, Message: message, Severity: severity, Rule: rule})
}

// Errors returns diagnostics with error severity.
func (r *Result) Errors() []Diagnostic {
	return r.filter(schema.SeverityError)
}

// Warnings returns diagnostics with warning severity.
func (r *Result) Warnings() []Diagnostic {
	return r.filter(schema.SeverityWarning)
}

func (r *Result) filter(sev schema.Severity) []Diagnostic {
	out := make([]Diagnostic, 0)
	for _, d := range r.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	for _, d := range r.Diagnostics {
		if d.Severity == schema.SeverityError {
			return true
		}
	}
	return false
}

// Valid reports whether the document passed validation (no errors).
func (r *Result) Valid() bool {
	return !r.HasErrors()
}

// IsEmpty reports whether the result carries no diagnostics at all.
func (r *Result) IsEmpty() bool {
	return len(r.Diagnostics) == 0
}

// Clone returns an independent copy of the result.
func (r *Result) Clone() *Result {
	out := &Result{Diagnostics: make([]Diagnostic, len(r.Diagnostics))}
	copy(out.Diagnostics, r.Diagnostics)
	return out
}

func (r *Result) String() string {
	return fmt.Sprintf("Result{errors=%d, warnings=%d}", len(r.Errors()), len(r.Warnings()))
}
