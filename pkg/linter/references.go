package linter

import (
	"fmt"
	"strings"

	"github.com/chasegan/kalixlint/pkg/model"
	"github.com/chasegan/kalixlint/pkg/schema"
)

// referenceValidator resolves cross-references: downstream node links
// (ds_* properties) and [outputs] entries of the form node.<name>.<output>.
type referenceValidator struct{}

func (v *referenceValidator) Description() string { return "references" }

func (v *referenceValidator) Validate(m *model.ParsedModel, s *schema.Schema, r *Result) {
	v.checkDownstreamLinks(m, s, r)
	v.checkOutputRefs(m, s, r)
}

func (v *referenceValidator) checkDownstreamLinks(m *model.ParsedModel, s *schema.Schema, r *Result) {
	for _, node := range m.NodeSections {
		for key, prop := range node.Properties {
			if !strings.HasPrefix(key, "ds_") || prop.Value == "" {
				continue
			}
			if _, ok := m.Nodes[prop.Value]; !ok {
				emit(s, r, prop.Line,
					fmt.Sprintf("node %q references nonexistent node %q via %s", node.NodeName, prop.Value, key),
					"invalid_node_reference", schema.SeverityError)
			}
		}
	}
}

func (v *referenceValidator) checkOutputRefs(m *model.ParsedModel, s *schema.Schema, r *Result) {
	for _, ref := range m.OutputRefs {
		line := m.OutputRefLines[ref]
		parts := strings.Split(ref, ".")
		if len(parts) < 3 || parts[0] != "node" {
			emit(s, r, line,
				fmt.Sprintf("output reference %q is malformed (expected node.<name>.<output>)", ref),
				"invalid_output_reference", schema.SeverityError)
			continue
		}

		nodeName := parts[1]
		output := strings.Join(parts[2:], ".")
		node, ok := m.Nodes[nodeName]
		if !ok {
			emit(s, r, line,
				fmt.Sprintf("output reference %q names nonexistent node %q", ref, nodeName),
				"invalid_output_reference", schema.SeverityError)
			continue
		}

		nt := s.NodeType(node.NodeType)
		if nt == nil || len(nt.AllowedOutputs) == 0 {
			continue
		}
		if !contains(nt.AllowedOutputs, output) {
			emit(s, r, line,
				fmt.Sprintf("node %q (%s) has no output %q", nodeName, node.NodeType, output),
				"invalid_output_reference", schema.SeverityError)
		}
	}
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
