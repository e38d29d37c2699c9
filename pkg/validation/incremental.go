package validation

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"sync"

	"github.com/chasegan/kalixlint/pkg/linter"
	"github.com/chasegan/kalixlint/pkg/model"
	"github.com/chasegan/kalixlint/pkg/observability"
)

// maxIncrementalSections caps how many changed sections the incremental
// path will handle before falling back to a full pass.
const maxIncrementalSections = 5

// ChangeSet names the sections that differ between two document versions.
type ChangeSet struct {
	Added    []string
	Removed  []string
	Modified []string
}

// Total returns the number of changed sections.
func (c ChangeSet) Total() int {
	return len(c.Added) + len(c.Removed) + len(c.Modified)
}

// TouchesNodes reports whether any changed section is a node section. Node
// edits can invalidate references and duplicate checks anywhere in the
// document, so they always force a full pass.
func (c ChangeSet) TouchesNodes() bool {
	return c.anyPrefix("node.")
}

// TouchesSpecials reports whether the inputs or outputs sections changed.
// Those entries reference nodes, so their diagnostics are not local either.
func (c ChangeSet) TouchesSpecials() bool {
	for _, name := range c.all() {
		if name == "inputs" || name == "outputs" {
			return true
		}
	}
	return false
}

func (c ChangeSet) anyPrefix(prefix string) bool {
	for _, name := range c.all() {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (c ChangeSet) all() []string {
	out := make([]string, 0, c.Total())
	out = append(out, c.Added...)
	out = append(out, c.Removed...)
	out = append(out, c.Modified...)
	return out
}

// IncrementalValidator validates successive versions of the same document,
// re-checking only the sections that changed when the edit is provably
// local. Anything cross-cutting (node edits, reference lists, too many
// changed sections, no prior state) falls back to a full validation.
type IncrementalValidator struct {
	linter *linter.Linter
	logger *observability.Logger

	mu           sync.Mutex
	lastModel    *model.ParsedModel
	lastResult   *linter.Result
	fingerprints map[string]string
}

// NewIncrementalValidator builds an incremental validator over the linter.
func NewIncrementalValidator(l *linter.Linter, logger *observability.Logger) *IncrementalValidator {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &IncrementalValidator{linter: l, logger: logger}
}

// Validate validates content, incrementally when possible. The boolean
// reports whether the incremental path was taken.
func (v *IncrementalValidator) Validate(content string) (*linter.Result, bool) {
	m := model.Parse(content)
	fps := sectionFingerprints(m)

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.lastResult == nil || len(v.fingerprints) == 0 {
		return v.fullLocked(m, fps), false
	}

	changes := diffFingerprints(v.fingerprints, fps)
	if changes.Total() == 0 {
		// Whitespace or comment-only edit.
		return v.lastResult, true
	}
	if changes.Total() > maxIncrementalSections || changes.TouchesNodes() || changes.TouchesSpecials() {
		v.logger.WithFields(map[string]any{
			"changed_sections": changes.Total(),
			"touches_nodes":    changes.TouchesNodes(),
		}).Debug("falling back to full validation")
		return v.fullLocked(m, fps), false
	}

	result, ok := v.mergeLocked(m, changes)
	if !ok {
		v.logger.Debug("prior diagnostic outside any section, falling back to full validation")
		return v.fullLocked(m, fps), false
	}
	v.lastModel = m
	v.lastResult = result
	v.fingerprints = fps
	return result, true
}

func (v *IncrementalValidator) fullLocked(m *model.ParsedModel, fps map[string]string) *linter.Result {
	result := v.linter.ValidateModel(m)
	v.lastModel = m
	v.lastResult = result
	v.fingerprints = fps
	return result
}

// mergeLocked carries over diagnostics from unchanged sections, shifting
// their lines by how far the section moved, and re-validates the changed
// sections in isolation. It reports false when a prior diagnostic belongs to
// no section: such a diagnostic cannot be proven unaffected by the edit, so
// the caller must fall back to a full pass.
func (v *IncrementalValidator) mergeLocked(m *model.ParsedModel, changes ChangeSet) (*linter.Result, bool) {
	changed := make(map[string]bool, len(changes.Added)+len(changes.Modified))
	for _, name := range changes.Added {
		changed[name] = true
	}
	for _, name := range changes.Modified {
		changed[name] = true
	}
	removed := make(map[string]bool, len(changes.Removed))
	for _, name := range changes.Removed {
		removed[name] = true
	}

	result := linter.NewResult()
	for _, d := range v.lastResult.Diagnostics {
		section := v.lastModel.SectionFor(d.Line)
		if section == "" {
			return nil, false
		}
		if changed[section] || removed[section] {
			continue
		}
		shifted := d
		if old, ok := v.lastModel.Sections[section]; ok {
			if now, ok := m.Sections[section]; ok {
				shifted.Line += now.StartLine - old.StartLine
			}
		}
		result.Add(shifted)
	}
	for _, name := range m.SectionOrder {
		if !changed[name] {
			continue
		}
		fresh := v.linter.ValidateSection(m, name)
		result.Diagnostics = append(result.Diagnostics, fresh.Diagnostics...)
	}
	return result, true
}

// Clear drops all remembered state; the next validation runs the full pass.
func (v *IncrementalValidator) Clear() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.lastModel = nil
	v.lastResult = nil
	v.fingerprints = nil
}

// DetectChanges exposes the structural diff for callers that want it
// without validating.
func (v *IncrementalValidator) DetectChanges(content string) ChangeSet {
	fps := sectionFingerprints(model.Parse(content))
	v.mu.Lock()
	defer v.mu.Unlock()
	return diffFingerprints(v.fingerprints, fps)
}

func sectionFingerprints(m *model.ParsedModel) map[string]string {
	fps := make(map[string]string, len(m.Sections))
	for name, section := range m.Sections {
		fps[name] = fingerprintSection(section, m)
	}
	return fps
}

// fingerprintSection hashes a section's properties in a stable order. The
// inputs and outputs sections hash their bare-line entries instead.
func fingerprintSection(s *model.Section, m *model.ParsedModel) string {
	h := sha256.New()
	h.Write([]byte(s.Name))
	switch s.Name {
	case "inputs":
		for _, f := range m.InputFiles {
			h.Write([]byte("\n"))
			h.Write([]byte(f))
		}
	case "outputs":
		for _, ref := range m.OutputRefs {
			h.Write([]byte("\n"))
			h.Write([]byte(ref))
		}
	}
	keys := make([]string, 0, len(s.Properties))
	for k := range s.Properties {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte("\n"))
		h.Write([]byte(k))
		h.Write([]byte("="))
		h.Write([]byte(s.Properties[k].Value))
	}
	return hex.EncodeToString(h.Sum(nil))
}

func diffFingerprints(old, now map[string]string) ChangeSet {
	var c ChangeSet
	for name, fp := range now {
		prev, ok := old[name]
		switch {
		case !ok:
			c.Added = append(c.Added, name)
		case prev != fp:
			c.Modified = append(c.Modified, name)
		}
	}
	for name := range old {
		if _, ok := now[name]; !ok {
			c.Removed = append(c.Removed, name)
		}
	}
	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Modified)
	return c
}
