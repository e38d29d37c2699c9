package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	s, err := LoadDefault()
	require.NoError(t, err)

	assert.Equal(t, "1.2", s.Version)
	assert.Greater(t, s.RuleCount(), 0)

	t.Run("RuleLookup", func(t *testing.T) {
		rule := s.Rule("missing_node_type")
		require.NotNil(t, rule)
		assert.Equal(t, SeverityError, rule.Severity)
		assert.True(t, rule.Enabled())

		assert.Nil(t, s.Rule("no_such_rule"))
	})

	t.Run("UnknownRuleDefaultsEnabled", func(t *testing.T) {
		assert.True(t, s.RuleEnabled("no_such_rule"))
	})

	t.Run("NodeTypes", func(t *testing.T) {
		gr4j := s.NodeType("gr4j")
		require.NotNil(t, gr4j)
		assert.Equal(t, []string{"area", "params"}, gr4j.RequiredParams)
		assert.Contains(t, gr4j.AllowedOutputs, "dsflow")

		params := gr4j.Parameters["params"]
		require.NotNil(t, params)
		assert.Equal(t, 4, params.Count)

		assert.Nil(t, s.NodeType("bogus"))
	})

	t.Run("DataTypePatterns", func(t *testing.T) {
		number := s.DataType("number")
		require.NotNil(t, number)
		assert.True(t, number.Matches("3.14"))
		assert.True(t, number.Matches("-2e5"))
		assert.False(t, number.Matches("abc"))

		version := s.DataType("version")
		require.NotNil(t, version)
		assert.True(t, version.Matches("1.0.0"))
		assert.False(t, version.Matches("1.0"))
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("ValidSchema", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "schema.json")
		require.NoError(t, os.WriteFile(path, DefaultSchemaContent(), 0o644))

		s, err := LoadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "1.2", s.Version)
	})

	t.Run("MissingFile", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "nope.json"))
		assert.Error(t, err)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

		_, err := LoadFile(path)
		assert.Error(t, err)
	})
}

func TestRuleToggle(t *testing.T) {
	s, err := LoadDefault()
	require.NoError(t, err)

	rule := s.Rule("duplicate_node_name")
	require.NotNil(t, rule)

	rule.SetEnabled(false)
	assert.False(t, s.RuleEnabled("duplicate_node_name"))
	rule.SetEnabled(true)
	assert.True(t, s.RuleEnabled("duplicate_node_name"))
}
