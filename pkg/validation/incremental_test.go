package validation

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chasegan/kalixlint/pkg/linter"
	"github.com/chasegan/kalixlint/pkg/prefs"
	"github.com/chasegan/kalixlint/pkg/schema"
)

func newTestIncremental(t *testing.T) *IncrementalValidator {
	t.Helper()
	schemas := schema.NewManager(prefs.NewMemoryStore(), nil)
	schemas.Initialize()
	return NewIncrementalValidator(linter.New(schemas, nil), nil)
}

func TestIncrementalValidator(t *testing.T) {
	v := newTestIncremental(t)

	base := "[attributes]\nini_version = 1.0.0\n\n[node.a]\ntype = inflow\n"

	t.Run("FirstRunIsFull", func(t *testing.T) {
		result, incremental := v.Validate(base)
		assert.False(t, incremental)
		assert.Empty(t, result.Diagnostics)
	})

	t.Run("UnchangedContentReusesResult", func(t *testing.T) {
		result, incremental := v.Validate(base)
		assert.True(t, incremental)
		assert.Empty(t, result.Diagnostics)
	})

	t.Run("AttributeEditValidatesIncrementally", func(t *testing.T) {
		edited := "[attributes]\nini_version = banana\n\n[node.a]\ntype = inflow\n"
		result, incremental := v.Validate(edited)
		assert.True(t, incremental)
		require.Len(t, result.Diagnostics, 1)
		assert.Equal(t, "invalid_ini_version", result.Diagnostics[0].Rule)
		assert.Equal(t, 2, result.Diagnostics[0].Line)
	})

	t.Run("NodeEditForcesFullValidation", func(t *testing.T) {
		edited := "[attributes]\nini_version = 1.0.0\n\n[node.a]\ntype = frobnicator\n"
		result, incremental := v.Validate(edited)
		assert.False(t, incremental)
		require.Len(t, result.Diagnostics, 1)
		assert.Equal(t, "unknown_node_type", result.Diagnostics[0].Rule)
	})

	t.Run("ClearForcesFullPass", func(t *testing.T) {
		v.Clear()
		_, incremental := v.Validate(base)
		assert.False(t, incremental)
	})
}

func TestIncrementalCarriesUnaffectedDiagnostics(t *testing.T) {
	v := newTestIncremental(t)

	// The node section has a standing diagnostic; an attributes-only edit
	// must carry it over with its line shifted by the inserted property.
	first := "[attributes]\nini_version = 1.0.0\n\n[node.a]\narea = 1\n"
	result, incremental := v.Validate(first)
	require.False(t, incremental)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, "missing_node_type", result.Diagnostics[0].Rule)
	require.Equal(t, 4, result.Diagnostics[0].Line)

	second := "[attributes]\nini_version = 1.0.0\nauthor = me\n\n[node.a]\narea = 1\n"
	result, incremental = v.Validate(second)
	assert.True(t, incremental)
	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, "missing_node_type", result.Diagnostics[0].Rule)
	assert.Equal(t, 5, result.Diagnostics[0].Line, "carried diagnostic shifts with its section")
}

func TestIncrementalUnattributableDiagnosticForcesFull(t *testing.T) {
	// A schema with a required section reports its absence at line 1, which
	// belongs to no section when the document starts with a blank line.
	schemaJSON := `{
		"version": "1.0",
		"validation_rules": {
			"missing_section": {"description": "required section absent", "severity": "error"}
		},
		"sections": {
			"options": {"required": true}
		}
	}`
	path := filepath.Join(t.TempDir(), "schema.json")
	require.NoError(t, os.WriteFile(path, []byte(schemaJSON), 0o644))

	schemas := schema.NewManager(prefs.NewMemoryStore(), nil)
	schemas.Initialize()
	schemas.UpdatePreferences(true, path, nil)
	require.False(t, schemas.FallbackActive())

	v := NewIncrementalValidator(linter.New(schemas, nil), nil)

	first := "\n[attributes]\nini_version = 1.0.0\n"
	result, incremental := v.Validate(first)
	require.False(t, incremental)
	require.Len(t, result.Diagnostics, 1)
	require.Equal(t, "missing_section", result.Diagnostics[0].Rule)

	// Adding the section resolves the diagnostic. The carried-over result
	// cannot prove that, so the edit must run the full pass.
	second := "\n[attributes]\nini_version = 1.0.0\n\n[options]\nmode = fast\n"
	result, incremental = v.Validate(second)
	assert.False(t, incremental, "a prior diagnostic outside any section falls back to a full pass")
	assert.Empty(t, result.Diagnostics)
}

func TestIncrementalFallbackConditions(t *testing.T) {
	t.Run("TooManySectionsChanged", func(t *testing.T) {
		v := newTestIncremental(t)

		build := func(suffix string) string {
			out := ""
			for _, name := range []string{"s1", "s2", "s3", "s4", "s5", "s6"} {
				out += "[" + name + "]\nvalue = " + suffix + "\n"
			}
			return out
		}
		_, incremental := v.Validate(build("a"))
		require.False(t, incremental)

		_, incremental = v.Validate(build("b"))
		assert.False(t, incremental, "more than five changed sections falls back")
	})

	t.Run("OutputsChanged", func(t *testing.T) {
		v := newTestIncremental(t)

		_, incremental := v.Validate("[node.a]\ntype = inflow\n\n[outputs]\nnode.a.dsflow\n")
		require.False(t, incremental)

		_, incremental = v.Validate("[node.a]\ntype = inflow\n\n[outputs]\nnode.a.usflow\n")
		assert.False(t, incremental, "output reference edits are not local")
	})
}

func TestDetectChanges(t *testing.T) {
	v := newTestIncremental(t)
	v.Validate("[attributes]\nini_version = 1.0.0\n\n[node.a]\ntype = inflow\n")

	changes := v.DetectChanges("[attributes]\nini_version = 2.0.0\n\n[node.b]\ntype = inflow\n")
	assert.Equal(t, []string{"attributes"}, changes.Modified)
	assert.Equal(t, []string{"node.b"}, changes.Added)
	assert.Equal(t, []string{"node.a"}, changes.Removed)
	assert.True(t, changes.TouchesNodes())
	assert.Equal(t, 3, changes.Total())
}
