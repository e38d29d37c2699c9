package model

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Run("SectionsAndProperties", func(t *testing.T) {
		content := "[attributes]\nini_version = 1.0.0\n\n[node.inflow1]\ntype = inflow\nds_node = gauge1\n"
		m := Parse(content)

		require.Len(t, m.SectionOrder, 2)
		assert.Equal(t, []string{"attributes", "node.inflow1"}, m.SectionOrder)

		attrs := m.Sections["attributes"]
		require.NotNil(t, attrs)
		assert.Equal(t, 1, attrs.StartLine)
		assert.Equal(t, "1.0.0", attrs.Properties["ini_version"].Value)
		assert.Equal(t, 2, attrs.Properties["ini_version"].Line)
	})

	t.Run("NodeSections", func(t *testing.T) {
		m := Parse("[node.catchment_a]\ntype = gr4j\narea = 150\n")

		node := m.Nodes["catchment_a"]
		require.NotNil(t, node)
		assert.True(t, node.IsNode)
		assert.Equal(t, "catchment_a", node.NodeName)
		assert.Equal(t, "gr4j", node.NodeType)
		assert.Len(t, m.NodeSections, 1)
	})

	t.Run("BareLineInputsAndOutputs", func(t *testing.T) {
		m := Parse("[inputs]\nrain.csv\nevap.csv\n\n[outputs]\nnode.gauge1.dsflow\n")

		assert.Equal(t, []string{"rain.csv", "evap.csv"}, m.InputFiles)
		assert.Equal(t, 2, m.InputFileLines["rain.csv"])
		assert.Equal(t, []string{"node.gauge1.dsflow"}, m.OutputRefs)
		assert.Equal(t, 6, m.OutputRefLines["node.gauge1.dsflow"])
	})

	t.Run("CommentsIgnored", func(t *testing.T) {
		m := Parse("; leading comment\n[node.a]\n# another\ntype = inflow\n")
		require.NotNil(t, m.Nodes["a"])
		assert.Equal(t, "inflow", m.Nodes["a"].NodeType)
		assert.Len(t, m.Nodes["a"].Properties, 1)
	})

	t.Run("CRLFLineEndings", func(t *testing.T) {
		m := Parse("[node.a]\r\ntype = inflow\r\n")
		require.NotNil(t, m.Nodes["a"])
		assert.Equal(t, "inflow", m.Nodes["a"].NodeType)
	})

	t.Run("EmptyContent", func(t *testing.T) {
		m := Parse("")
		assert.Empty(t, m.SectionOrder)
		assert.Empty(t, m.Nodes)
	})

	t.Run("DuplicateNodeTracking", func(t *testing.T) {
		m := Parse("[node.a]\ntype = inflow\n\n[node.a]\ntype = gauge\n")

		assert.Len(t, m.NodeSections, 2)
		dups := m.FindDuplicateNodes()
		require.Contains(t, dups, "a")
		assert.Equal(t, []int{1, 4}, dups["a"])
	})
}

func TestSectionFor(t *testing.T) {
	m := Parse("[attributes]\nini_version = 1.0.0\n\n[node.a]\ntype = inflow\n")

	assert.Equal(t, "attributes", m.SectionFor(2))
	assert.Equal(t, "node.a", m.SectionFor(5))
	assert.Equal(t, "", m.SectionFor(100))
}

func TestDownstreamReferences(t *testing.T) {
	m := Parse("[node.a]\ntype = inflow\nds_node = b\n\n[node.b]\ntype = gauge\n")

	refs := m.DownstreamReferences()
	assert.Contains(t, refs, "b")
	assert.NotContains(t, refs, "a")
}

func TestParseOptimized(t *testing.T) {
	t.Run("SmallContentFallsBack", func(t *testing.T) {
		content := "[node.a]\ntype = inflow\n"
		assert.False(t, ShouldUseOptimized(content))
		m := ParseOptimized(content)
		require.NotNil(t, m.Nodes["a"])
	})

	t.Run("LargeContentMatchesRegularParse", func(t *testing.T) {
		var b strings.Builder
		for i := 0; i < LargeContentLines; i++ {
			fmt.Fprintf(&b, "[node.n%d]\ntype = inflow\n", i)
		}
		content := b.String()
		require.True(t, ShouldUseOptimized(content))

		fast := ParseOptimized(content)
		slow := Parse(content)
		assert.Equal(t, len(slow.Nodes), len(fast.Nodes))
		assert.Equal(t, slow.SectionOrder, fast.SectionOrder)
		assert.Equal(t, slow.Nodes["n42"].NodeType, fast.Nodes["n42"].NodeType)
		assert.Equal(t, slow.Nodes["n42"].StartLine, fast.Nodes["n42"].StartLine)
	})
}
