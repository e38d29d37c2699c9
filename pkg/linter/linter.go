package linter

import (
	"github.com/chasegan/kalixlint/pkg/model"
	"github.com/chasegan/kalixlint/pkg/observability"
	"github.com/chasegan/kalixlint/pkg/schema"
)

// Validator checks one aspect of a parsed model against the active schema
// and appends diagnostics to the result.
type Validator interface {
	// Description identifies the validator in logs.
	Description() string
	// Validate inspects the model and records any issues on the result.
	Validate(m *model.ParsedModel, s *schema.Schema, r *Result)
}

// Linter runs the full set of validators over a parsed model. A panicking
// validator is logged and skipped; the remaining validators still run so one
// bad rule cannot take down the whole pass.
type Linter struct {
	schemas    *schema.Manager
	validators []Validator
	logger     *observability.Logger

	// baseDir resolves relative input file references. Empty disables the
	// file existence check.
	baseDir string
}

// New builds a linter bound to a schema manager.
func New(schemas *schema.Manager, logger *observability.Logger) *Linter {
	if logger == nil {
		logger = observability.NopLogger()
	}
	l := &Linter{
		schemas: schemas,
		logger:  logger,
	}
	l.validators = []Validator{
		&sectionValidator{},
		&nodeValidator{},
		&referenceValidator{},
		&uniqueNameValidator{},
		&fileValidator{linter: l},
	}
	return l
}

// SetBaseDir sets the directory input file references are resolved against.
func (l *Linter) SetBaseDir(dir string) {
	l.baseDir = dir
}

// Validate parses content and validates the resulting model.
func (l *Linter) Validate(content string) *Result {
	if !l.schemas.IsLintingEnabled() {
		return NewResult()
	}
	return l.ValidateModel(model.Parse(content))
}

// ValidateModel validates an already-parsed model. Callers that parse up
// front (the optimized large-document path) use this to avoid parsing twice.
func (l *Linter) ValidateModel(m *model.ParsedModel) *Result {
	result := NewResult()
	if !l.schemas.IsLintingEnabled() {
		return result
	}
	s := l.schemas.CurrentSchema()
	if s == nil {
		return result
	}

	for _, v := range l.validators {
		l.runValidator(v, m, s, result)
	}
	return l.filterDisabled(s, result)
}

// ValidateSection runs only the section-level property checks for a single
// named section. Incremental validation uses this to refresh diagnostics for
// sections whose edits cannot affect the rest of the document.
func (l *Linter) ValidateSection(m *model.ParsedModel, name string) *Result {
	result := NewResult()
	if !l.schemas.IsLintingEnabled() {
		return result
	}
	s := l.schemas.CurrentSchema()
	if s == nil {
		return result
	}
	def := s.Sections()[name]
	section := m.Sections[name]
	if def == nil || section == nil {
		return result
	}
	(&sectionValidator{}).checkProperties(section, def, s, result)
	return l.filterDisabled(s, result)
}

func (l *Linter) runValidator(v Validator, m *model.ParsedModel, s *schema.Schema, r *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			l.logger.WithFields(map[string]any{
				"validator": v.Description(),
				"panic":     rec,
			}).Error("validator panicked, skipping")
		}
	}()
	v.Validate(m, s, r)
}

// filterDisabled drops diagnostics whose rule is disabled. Validators also
// check before emitting; this final pass guarantees the contract even if a
// validator emits unconditionally.
func (l *Linter) filterDisabled(s *schema.Schema, r *Result) *Result {
	out := NewResult()
	for _, d := range r.Diagnostics {
		if d.Rule != "" && !s.RuleEnabled(d.Rule) {
			continue
		}
		out.Add(d)
	}
	return out
}

// emit records a diagnostic under the named rule unless that rule is
// disabled. Severity comes from the schema's rule definition when one
// exists, otherwise the supplied default.
func emit(s *schema.Schema, r *Result, line int, message, ruleName string, def schema.Severity) {
	if !s.RuleEnabled(ruleName) {
		return
	}
	severity := def
	if rule := s.Rule(ruleName); rule != nil {
		severity = rule.Severity
	}
	r.AddIssue(line, message, severity, ruleName)
}
