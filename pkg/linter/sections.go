package linter

import (
	"fmt"

	"github.com/chasegan/kalixlint/pkg/model"
	"github.com/chasegan/kalixlint/pkg/schema"
)

// sectionValidator enforces section-level schema constraints: required
// sections, required properties within them, and property value formats.
type sectionValidator struct{}

func (v *sectionValidator) Description() string { return "sections" }

func (v *sectionValidator) Validate(m *model.ParsedModel, s *schema.Schema, r *Result) {
	for name, def := range s.Sections() {
		section, present := m.Sections[name]
		if !present {
			if def.Required {
				emit(s, r, 1, fmt.Sprintf("required section [%s] is missing", name),
					"missing_section", schema.SeverityError)
			}
			continue
		}
		v.checkProperties(section, def, s, r)
	}
}

func (v *sectionValidator) checkProperties(section *model.Section, def *schema.SectionDef, s *schema.Schema, r *Result) {
	for propName, propDef := range def.Properties {
		prop, present := section.Properties[propName]
		if !present {
			if propDef.Required {
				emit(s, r, section.StartLine,
					fmt.Sprintf("section [%s] is missing required property %q", section.Name, propName),
					missingPropertyRule(propName), schema.SeverityError)
			}
			continue
		}
		if !v.valueMatches(propDef, prop.Value, s) {
			emit(s, r, prop.Line,
				fmt.Sprintf("property %q has invalid value %q (expected %s)", propName, prop.Value, propDef.Type),
				invalidPropertyRule(propName), schema.SeverityError)
		}
	}
}

func (v *sectionValidator) valueMatches(def *schema.PropertyDef, value string, s *schema.Schema) bool {
	if def.Pattern != "" {
		return def.Matches(value)
	}
	if dt := s.DataType(def.Type); dt != nil {
		return dt.Matches(value)
	}
	return true
}

// ini_version gets its own rule names so it can be toggled independently of
// other section properties.
func missingPropertyRule(propName string) string {
	if propName == "ini_version" {
		return "missing_ini_version"
	}
	return "missing_required_property"
}

func invalidPropertyRule(propName string) string {
	if propName == "ini_version" {
		return "invalid_ini_version"
	}
	return "invalid_property_value"
}
