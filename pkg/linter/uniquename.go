package linter

import (
	"fmt"

	"github.com/chasegan/kalixlint/pkg/model"
	"github.com/chasegan/kalixlint/pkg/schema"
)

// uniqueNameValidator flags every definition of a node name that appears
// more than once. Iterating NodeSections keeps diagnostics in document
// order.
type uniqueNameValidator struct{}

func (v *uniqueNameValidator) Description() string { return "unique-names" }

func (v *uniqueNameValidator) Validate(m *model.ParsedModel, s *schema.Schema, r *Result) {
	duplicates := m.FindDuplicateNodes()
	if len(duplicates) == 0 {
		return
	}
	for _, node := range m.NodeSections {
		lines, dup := duplicates[node.NodeName]
		if !dup {
			continue
		}
		emit(s, r, node.StartLine,
			fmt.Sprintf("node name %q is defined %d times", node.NodeName, len(lines)),
			"duplicate_node_name", schema.SeverityError)
	}
}
