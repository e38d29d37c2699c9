package schema

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chasegan/kalixlint/pkg/prefs"
)

func newTestManager(t *testing.T) (*Manager, prefs.Store) {
	t.Helper()
	store := prefs.NewMemoryStore()
	m := NewManager(store, nil)
	m.Initialize()
	return m, store
}

func TestManagerInitialize(t *testing.T) {
	m, _ := newTestManager(t)

	assert.True(t, m.IsSchemaLoaded())
	assert.True(t, m.IsLintingEnabled())
	assert.False(t, m.FallbackActive())
	assert.Equal(t, "1.2", m.SchemaVersion())
}

func TestManagerFallback(t *testing.T) {
	store := prefs.NewMemoryStore()
	require.NoError(t, store.SetString(prefs.KeySchemaPath, filepath.Join(t.TempDir(), "missing.json")))

	m := NewManager(store, nil)
	m.Initialize()

	assert.True(t, m.IsSchemaLoaded(), "fallback must still load the default schema")
	assert.True(t, m.FallbackActive())
	assert.Equal(t, "1.2", m.SchemaVersion())
}

func TestManagerDisabledRules(t *testing.T) {
	store := prefs.NewMemoryStore()
	require.NoError(t, store.SetStringList(prefs.KeyDisabledRules, []string{"duplicate_node_name"}))

	m := NewManager(store, nil)
	m.Initialize()

	s := m.CurrentSchema()
	require.NotNil(t, s)
	assert.False(t, s.RuleEnabled("duplicate_node_name"))
	assert.True(t, s.RuleEnabled("missing_node_type"))
}

func TestManagerUpdatePreferences(t *testing.T) {
	m, store := newTestManager(t)

	m.UpdatePreferences(false, "", []string{"file_not_found"})

	assert.False(t, m.IsLintingEnabled())
	assert.False(t, store.GetBool(prefs.KeyLintingEnabled, true))
	assert.Equal(t, []string{"file_not_found"}, store.GetStringList(prefs.KeyDisabledRules, nil))
	assert.False(t, m.CurrentSchema().RuleEnabled("file_not_found"))
}

func TestManagerSetRuleEnabled(t *testing.T) {
	m, store := newTestManager(t)

	m.SetRuleEnabled("missing_node_type", false)
	assert.False(t, m.CurrentSchema().RuleEnabled("missing_node_type"))
	assert.Contains(t, store.GetStringList(prefs.KeyDisabledRules, nil), "missing_node_type")

	m.SetRuleEnabled("missing_node_type", true)
	assert.True(t, m.CurrentSchema().RuleEnabled("missing_node_type"))
	assert.Empty(t, store.GetStringList(prefs.KeyDisabledRules, nil))
}

func TestManagerListeners(t *testing.T) {
	t.Run("NotifiedOnChangeOnly", func(t *testing.T) {
		m, _ := newTestManager(t)

		var got []bool
		m.AddEnabledListener(func(enabled bool) { got = append(got, enabled) })

		m.UpdatePreferences(false, "", nil)
		m.UpdatePreferences(false, "", nil) // no change, no notification
		m.UpdatePreferences(true, "", nil)

		assert.Equal(t, []bool{false, true}, got)
	})

	t.Run("PanickingListenerIsIsolated", func(t *testing.T) {
		m, _ := newTestManager(t)

		m.AddEnabledListener(func(bool) { panic("boom") })
		called := false
		m.AddEnabledListener(func(bool) { called = true })

		m.UpdatePreferences(false, "", nil)
		assert.True(t, called, "listener after the panicking one must still run")
	})
}
