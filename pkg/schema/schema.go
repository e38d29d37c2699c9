package schema

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sync/atomic"
)

//go:embed default_schema.json
var defaultSchemaJSON []byte

// Severity indicates how serious a rule violation is
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)

// parseSeverity maps schema severity strings to a Severity, defaulting to error.
func parseSeverity(s string) Severity {
	switch s {
	case string(SeverityWarning):
		return SeverityWarning
	case string(SeverityInfo):
		return SeverityInfo
	default:
		return SeverityError
	}
}

// Rule is a named validation rule. The enabled flag is the only mutable
// state and may be toggled concurrently with validation runs.
type Rule struct {
	Name        string
	Description string
	Severity    Severity

	enabled atomic.Bool
}

// Enabled reports whether the rule is currently active.
func (r *Rule) Enabled() bool { return r.enabled.Load() }

// SetEnabled toggles the rule.
func (r *Rule) SetEnabled(v bool) { r.enabled.Store(v) }

// ParameterDef describes one node parameter.
type ParameterDef struct {
	Name        string
	Type        string
	Description string
	Count       int
	Min         *float64
	Max         *float64
	Pattern     string

	compiled *regexp.Regexp
}

// Matches reports whether value satisfies the parameter pattern. A parameter
// without a pattern matches everything.
func (p *ParameterDef) Matches(value string) bool {
	if p.compiled == nil {
		return true
	}
	return p.compiled.MatchString(value)
}

// NodeType describes a node type accepted in [node.*] sections.
type NodeType struct {
	Name           string
	Description    string
	RequiredParams []string
	OptionalParams []string
	DSNodeParams   []string
	AllowedOutputs []string
	Parameters     map[string]*ParameterDef
}

// DataType is a named value format backed by a regular expression.
type DataType struct {
	Name    string
	Pattern string

	compiled *regexp.Regexp
}

// Matches reports whether value satisfies the data type pattern.
func (d *DataType) Matches(value string) bool {
	if d.compiled == nil {
		return true
	}
	return d.compiled.MatchString(value)
}

// PropertyDef describes one expected property of a plain section.
type PropertyDef struct {
	Name     string
	Type     string
	Required bool
	Pattern  string

	compiled *regexp.Regexp
}

// Matches reports whether value satisfies the property pattern.
func (p *PropertyDef) Matches(value string) bool {
	if p.compiled == nil {
		return true
	}
	return p.compiled.MatchString(value)
}

// SectionDef describes one expected section of a model document.
type SectionDef struct {
	Name       string
	Required   bool
	Properties map[string]*PropertyDef
}

// Schema is a versioned set of validation rules, node types, data types and
// section definitions. Read-only during validation; only the per-rule
// enabled flags mutate.
type Schema struct {
	Version   string
	rules     map[string]*Rule
	nodeTypes map[string]*NodeType
	dataTypes map[string]*DataType
	sections  map[string]*SectionDef
}

// Rule returns the named validation rule, or nil.
func (s *Schema) Rule(name string) *Rule { return s.rules[name] }

// RuleCount returns the number of rules in the schema.
func (s *Schema) RuleCount() int { return len(s.rules) }

// Rules returns all rules keyed by name. The map is a copy; the rules are shared.
func (s *Schema) Rules() map[string]*Rule {
	out := make(map[string]*Rule, len(s.rules))
	for k, v := range s.rules {
		out[k] = v
	}
	return out
}

// RuleEnabled reports whether a rule is enabled. Rules not present in the
// schema are treated as enabled so validators can emit structural
// diagnostics the schema does not name.
func (s *Schema) RuleEnabled(name string) bool {
	if r, ok := s.rules[name]; ok {
		return r.Enabled()
	}
	return true
}

// NodeType returns the named node type definition, or nil.
func (s *Schema) NodeType(name string) *NodeType { return s.nodeTypes[name] }

// DataType returns the named data type, or nil.
func (s *Schema) DataType(name string) *DataType { return s.dataTypes[name] }

// Sections returns all section definitions keyed by name.
func (s *Schema) Sections() map[string]*SectionDef { return s.sections }

// rawSchema mirrors the JSON document layout.
type rawSchema struct {
	Version         string                   `json:"version"`
	ValidationRules map[string]rawRule       `json:"validation_rules"`
	NodeTypes       map[string]rawNodeType   `json:"node_types"`
	DataTypes       map[string]rawDataType   `json:"data_types"`
	Sections        map[string]rawSectionDef `json:"sections"`
}

type rawRule struct {
	Description string `json:"description"`
	Severity    string `json:"severity"`
}

type rawNodeType struct {
	Description    string                  `json:"description"`
	RequiredParams []string                `json:"required_params"`
	OptionalParams []string                `json:"optional_params"`
	DSNodeParams   []string                `json:"dsnode_params"`
	AllowedOutputs []string                `json:"allowed_outputs"`
	Parameters     map[string]rawParameter `json:"parameters"`
}

type rawParameter struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Count       int      `json:"count"`
	Min         *float64 `json:"min"`
	Max         *float64 `json:"max"`
	Pattern     string   `json:"pattern"`
}

type rawDataType struct {
	Pattern string `json:"pattern"`
}

type rawSectionDef struct {
	Required   bool                   `json:"required"`
	Properties map[string]rawProperty `json:"properties"`
}

type rawProperty struct {
	Type     string `json:"type"`
	Required bool   `json:"required"`
	Pattern  string `json:"pattern"`
}

// LoadDefault loads the embedded default schema.
func LoadDefault() (*Schema, error) {
	s, err := loadJSON(defaultSchemaJSON)
	if err != nil {
		return nil, fmt.Errorf("failed to load default schema: %w", err)
	}
	return s, nil
}

// LoadFile loads a schema from an external JSON file.
func LoadFile(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema %s: %w", path, err)
	}
	s, err := loadJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema %s: %w", path, err)
	}
	return s, nil
}

// DefaultSchemaContent returns the embedded default schema JSON, useful for
// exporting a starting point for custom schemas.
func DefaultSchemaContent() []byte {
	out := make([]byte, len(defaultSchemaJSON))
	copy(out, defaultSchemaJSON)
	return out
}

func loadJSON(data []byte) (*Schema, error) {
	var raw rawSchema
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	s := &Schema{
		Version:   raw.Version,
		rules:     make(map[string]*Rule, len(raw.ValidationRules)),
		nodeTypes: make(map[string]*NodeType, len(raw.NodeTypes)),
		dataTypes: make(map[string]*DataType, len(raw.DataTypes)),
		sections:  make(map[string]*SectionDef, len(raw.Sections)),
	}
	if s.Version == "" {
		s.Version = "unknown"
	}

	for name, rr := range raw.ValidationRules {
		rule := &Rule{
			Name:        name,
			Description: rr.Description,
			Severity:    parseSeverity(rr.Severity),
		}
		rule.enabled.Store(true)
		s.rules[name] = rule
	}

	for name, rn := range raw.NodeTypes {
		nt := &NodeType{
			Name:           name,
			Description:    rn.Description,
			RequiredParams: rn.RequiredParams,
			OptionalParams: rn.OptionalParams,
			DSNodeParams:   rn.DSNodeParams,
			AllowedOutputs: rn.AllowedOutputs,
			Parameters:     make(map[string]*ParameterDef, len(rn.Parameters)),
		}
		for pname, rp := range rn.Parameters {
			pd := &ParameterDef{
				Name:        pname,
				Type:        rp.Type,
				Description: rp.Description,
				Count:       rp.Count,
				Min:         rp.Min,
				Max:         rp.Max,
				Pattern:     rp.Pattern,
			}
			if rp.Pattern != "" {
				compiled, err := regexp.Compile(rp.Pattern)
				if err != nil {
					return nil, fmt.Errorf("invalid pattern for parameter %s.%s: %w", name, pname, err)
				}
				pd.compiled = compiled
			}
			nt.Parameters[pname] = pd
		}
		s.nodeTypes[name] = nt
	}

	for name, rd := range raw.DataTypes {
		dt := &DataType{Name: name, Pattern: rd.Pattern}
		if rd.Pattern != "" {
			compiled, err := regexp.Compile(rd.Pattern)
			if err != nil {
				return nil, fmt.Errorf("invalid pattern for data type %s: %w", name, err)
			}
			dt.compiled = compiled
		}
		s.dataTypes[name] = dt
	}

	for name, rs := range raw.Sections {
		sd := &SectionDef{
			Name:       name,
			Required:   rs.Required,
			Properties: make(map[string]*PropertyDef, len(rs.Properties)),
		}
		for pname, rp := range rs.Properties {
			pd := &PropertyDef{
				Name:     pname,
				Type:     rp.Type,
				Required: rp.Required,
				Pattern:  rp.Pattern,
			}
			if rp.Pattern != "" {
				compiled, err := regexp.Compile(rp.Pattern)
				if err != nil {
					return nil, fmt.Errorf("invalid pattern for property %s.%s: %w", name, pname, err)
				}
				pd.compiled = compiled
			}
			sd.Properties[pname] = pd
		}
		s.sections[name] = sd
	}

	return s, nil
}
