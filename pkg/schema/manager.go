package schema

import (
	"os"
	"sync"

	"github.com/chasegan/kalixlint/pkg/observability"
	"github.com/chasegan/kalixlint/pkg/prefs"
)

// EnabledListener is notified when the linting enabled flag changes.
type EnabledListener func(enabled bool)

// Manager owns the active schema and its per-rule enabled state. The
// preference store is injected so tests can substitute an in-memory one.
//
// A corrupt or missing custom schema never propagates an error: the manager
// degrades to the embedded default schema and records the fallback.
type Manager struct {
	store  prefs.Store
	logger *observability.Logger

	mu             sync.RWMutex
	current        *Schema
	disabled       map[string]struct{}
	lintingEnabled bool
	fallbackActive bool

	listenerMu sync.Mutex
	listeners  []EnabledListener
}

// NewManager creates a schema manager backed by the given preference store.
func NewManager(store prefs.Store, logger *observability.Logger) *Manager {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Manager{
		store:    store,
		logger:   logger,
		disabled: make(map[string]struct{}),
	}
}

// Initialize loads preferences and then the schema. Schema load failures
// fall back to the embedded default and are logged, never returned.
func (m *Manager) Initialize() {
	m.loadPreferences()
	m.ReloadSchema()
}

func (m *Manager) loadPreferences() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lintingEnabled = m.store.GetBool(prefs.KeyLintingEnabled, true)

	m.disabled = make(map[string]struct{})
	for _, name := range m.store.GetStringList(prefs.KeyDisabledRules, nil) {
		m.disabled[name] = struct{}{}
	}

	m.logger.WithFields(map[string]interface{}{
		"enabled":        m.lintingEnabled,
		"disabled_rules": len(m.disabled),
	}).Debug("Loaded linter preferences")
}

// ReloadSchema loads the schema named by the preference store, falling back
// to the embedded default on any failure (missing file, parse error).
func (m *Manager) ReloadSchema() {
	customPath := m.store.GetString(prefs.KeySchemaPath, "")

	var (
		loaded   *Schema
		fallback bool
	)

	if customPath == "" {
		loaded = m.loadDefault()
	} else if _, err := os.Stat(customPath); err != nil {
		m.logger.WithField("path", customPath).Warn("Custom schema file not found, falling back to default")
		loaded = m.loadDefault()
		fallback = true
	} else if s, err := LoadFile(customPath); err != nil {
		m.logger.WithError(err).WithField("path", customPath).Warn("Failed to load custom schema, falling back to default")
		loaded = m.loadDefault()
		fallback = true
	} else {
		m.logger.WithField("path", customPath).Info("Loaded custom schema")
		loaded = s
	}

	m.mu.Lock()
	m.current = loaded
	m.fallbackActive = fallback
	m.applyDisabledRulesLocked()
	m.mu.Unlock()
}

func (m *Manager) loadDefault() *Schema {
	s, err := LoadDefault()
	if err != nil {
		// The embedded schema failing to parse means a broken build; keep
		// the pipeline alive with no schema rather than crash it.
		m.logger.WithError(err).Error("Failed to load embedded default schema")
		return nil
	}
	m.logger.Info("Loaded default embedded schema")
	return s
}

// applyDisabledRulesLocked flags disabled rules on the current schema.
// Callers must hold m.mu.
func (m *Manager) applyDisabledRulesLocked() {
	if m.current == nil {
		return
	}
	for name := range m.disabled {
		if rule := m.current.Rule(name); rule != nil {
			rule.SetEnabled(false)
			m.logger.WithField("rule", name).Debug("Disabled rule")
		}
	}
}

// UpdatePreferences persists new settings, swaps rule state, reloads the
// schema, and notifies listeners only when the enabled flag actually changed.
func (m *Manager) UpdatePreferences(enabled bool, schemaPath string, disabledRules []string) {
	m.mu.Lock()
	wasEnabled := m.lintingEnabled
	m.lintingEnabled = enabled
	m.disabled = make(map[string]struct{}, len(disabledRules))
	for _, name := range disabledRules {
		m.disabled[name] = struct{}{}
	}
	m.mu.Unlock()

	if err := m.store.SetBool(prefs.KeyLintingEnabled, enabled); err != nil {
		m.logger.WithError(err).Warn("Failed to persist linting enabled flag")
	}
	if err := m.store.SetString(prefs.KeySchemaPath, schemaPath); err != nil {
		m.logger.WithError(err).Warn("Failed to persist schema path")
	}
	if err := m.store.SetStringList(prefs.KeyDisabledRules, disabledRules); err != nil {
		m.logger.WithError(err).Warn("Failed to persist disabled rules")
	}

	m.ReloadSchema()

	if wasEnabled != enabled {
		m.notifyEnabledChanged(enabled)
	}

	m.logger.Info("Updated linter preferences and reloaded schema")
}

// SetRuleEnabled toggles a single rule without a full schema reload.
func (m *Manager) SetRuleEnabled(name string, enabled bool) {
	m.mu.Lock()
	if enabled {
		delete(m.disabled, name)
	} else {
		m.disabled[name] = struct{}{}
	}
	if m.current != nil {
		if rule := m.current.Rule(name); rule != nil {
			rule.SetEnabled(enabled)
		}
	}
	disabled := make([]string, 0, len(m.disabled))
	for n := range m.disabled {
		disabled = append(disabled, n)
	}
	m.mu.Unlock()

	if err := m.store.SetStringList(prefs.KeyDisabledRules, disabled); err != nil {
		m.logger.WithError(err).Warn("Failed to persist disabled rules")
	}
}

// CurrentSchema returns the active schema, or nil when none is loaded.
func (m *Manager) CurrentSchema() *Schema {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// IsLintingEnabled reports whether linting is on and a schema is loaded.
func (m *Manager) IsLintingEnabled() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.lintingEnabled && m.current != nil
}

// IsSchemaLoaded reports whether a schema is active.
func (m *Manager) IsSchemaLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current != nil
}

// FallbackActive reports whether the active schema is the default loaded
// after a custom schema failed.
func (m *Manager) FallbackActive() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fallbackActive
}

// SchemaVersion returns the active schema version for display.
func (m *Manager) SchemaVersion() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.current == nil {
		return "unknown"
	}
	return m.current.Version
}

// SchemaPath returns the configured custom schema path, empty for default.
func (m *Manager) SchemaPath() string {
	return m.store.GetString(prefs.KeySchemaPath, "")
}

// DisabledRules returns a copy of the disabled rule names.
func (m *Manager) DisabledRules() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.disabled))
	for name := range m.disabled {
		out = append(out, name)
	}
	return out
}

// AddEnabledListener registers a listener for linting enabled changes.
func (m *Manager) AddEnabledListener(l EnabledListener) {
	m.listenerMu.Lock()
	defer m.listenerMu.Unlock()
	// Copy-on-write: notification iterates a snapshot, so appends during
	// notification never race.
	next := make([]EnabledListener, len(m.listeners), len(m.listeners)+1)
	copy(next, m.listeners)
	m.listeners = append(next, l)
}

func (m *Manager) notifyEnabledChanged(enabled bool) {
	m.listenerMu.Lock()
	snapshot := m.listeners
	m.listenerMu.Unlock()

	for i, l := range snapshot {
		// One bad listener must not break the others.
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.logger.WithFields(map[string]interface{}{
						"listener": i,
						"panic":    r,
					}).Warn("Linting state listener panicked")
				}
			}()
			l(enabled)
		}()
	}
}
