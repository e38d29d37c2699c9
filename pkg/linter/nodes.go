package linter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chasegan/kalixlint/pkg/model"
	"github.com/chasegan/kalixlint/pkg/schema"
)

// nodeValidator checks node sections: every node must declare a type known
// to the schema, carry that type's required parameters, and supply parameter
// values that satisfy their definitions.
type nodeValidator struct{}

func (v *nodeValidator) Description() string { return "nodes" }

func (v *nodeValidator) Validate(m *model.ParsedModel, s *schema.Schema, r *Result) {
	for _, node := range m.NodeSections {
		v.validateNode(node, s, r)
	}
}

func (v *nodeValidator) validateNode(node *model.Section, s *schema.Schema, r *Result) {
	if node.NodeType == "" {
		emit(s, r, node.StartLine,
			fmt.Sprintf("node %q has no type property", node.NodeName),
			"missing_node_type", schema.SeverityError)
		return
	}

	nt := s.NodeType(node.NodeType)
	if nt == nil {
		line := node.StartLine
		if prop, ok := node.Properties["type"]; ok {
			line = prop.Line
		}
		emit(s, r, line,
			fmt.Sprintf("node %q has unknown type %q", node.NodeName, node.NodeType),
			"unknown_node_type", schema.SeverityError)
		return
	}

	for _, required := range nt.RequiredParams {
		if _, ok := node.Properties[required]; !ok {
			emit(s, r, node.StartLine,
				fmt.Sprintf("node %q is missing required parameter %q", node.NodeName, required),
				"missing_required_parameter", schema.SeverityError)
		}
	}

	for key, prop := range node.Properties {
		if key == "type" || strings.HasPrefix(key, "ds_") {
			continue
		}
		def := nt.Parameters[key]
		if def == nil {
			continue
		}
		if msg := v.checkValue(def, prop.Value, s); msg != "" {
			emit(s, r, prop.Line,
				fmt.Sprintf("node %q parameter %q: %s", node.NodeName, key, msg),
				"invalid_parameter_value", schema.SeverityError)
		}
	}
}

// checkValue returns an explanation of why the value is invalid, or "" when
// it passes.
func (v *nodeValidator) checkValue(def *schema.ParameterDef, value string, s *schema.Schema) string {
	if def.Pattern != "" && !def.Matches(value) {
		return fmt.Sprintf("value %q does not match required pattern", value)
	}

	if def.Count > 0 {
		parts := strings.Split(value, ",")
		if len(parts) != def.Count {
			return fmt.Sprintf("expected %d values, got %d", def.Count, len(parts))
		}
		for _, part := range parts {
			if _, err := strconv.ParseFloat(strings.TrimSpace(part), 64); err != nil {
				return fmt.Sprintf("%q is not a number", strings.TrimSpace(part))
			}
		}
		return ""
	}

	if dt := s.DataType(def.Type); dt != nil && !dt.Matches(value) {
		return fmt.Sprintf("value %q is not a valid %s", value, def.Type)
	}

	if def.Min != nil || def.Max != nil {
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return fmt.Sprintf("value %q is not a number", value)
		}
		if def.Min != nil && n < *def.Min {
			return fmt.Sprintf("value %v is below minimum %v", n, *def.Min)
		}
		if def.Max != nil && n > *def.Max {
			return fmt.Sprintf("value %v is above maximum %v", n, *def.Max)
		}
	}
	return ""
}
