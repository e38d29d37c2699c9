package model

// Property is a single key = value entry within a section, with the
// 1-based line number it was parsed from.
type Property struct {
	Key   string
	Value string
	Line  int
}

// Section is a parsed INI section. Node sections ([node.<name>]) carry
// NodeName and NodeType in addition to their properties.
type Section struct {
	Name       string
	StartLine  int
	EndLine    int
	Properties map[string]Property

	IsNode   bool
	NodeName string
	NodeType string
}

func newSection(name string, line int) *Section {
	return &Section{
		Name:       name,
		StartLine:  line,
		EndLine:    line,
		Properties: make(map[string]Property),
	}
}

func (s *Section) addProperty(key, value string, line int) {
	s.Properties[key] = Property{Key: key, Value: value, Line: line}
	s.EndLine = line
	if s.IsNode && key == "type" {
		s.NodeType = value
	}
}

// ParsedModel is the structured form of an INI model document.
type ParsedModel struct {
	// Sections maps section name to section, latest definition wins.
	Sections map[string]*Section
	// SectionOrder preserves document order of section names.
	SectionOrder []string

	// InputFiles lists bare-line entries of the [inputs] section.
	InputFiles []string
	// InputFileLines maps input file entries to their line numbers.
	InputFileLines map[string]int

	// OutputRefs lists bare-line entries of the [outputs] section.
	OutputRefs []string
	// OutputRefLines maps output references to their line numbers.
	OutputRefLines map[string]int

	// Nodes maps node name to its section, latest definition wins.
	Nodes map[string]*Section
	// NodeSections lists every node section in document order, including
	// duplicates, for duplicate-name detection.
	NodeSections []*Section
}

// NewParsedModel returns an empty model.
func NewParsedModel() *ParsedModel {
	return &ParsedModel{
		Sections:       make(map[string]*Section),
		InputFileLines: make(map[string]int),
		OutputRefLines: make(map[string]int),
		Nodes:          make(map[string]*Section),
	}
}

// SectionFor returns the name of the section covering the given line, or ""
// when no section boundary contains it.
func (m *ParsedModel) SectionFor(line int) string {
	for _, name := range m.SectionOrder {
		s := m.Sections[name]
		if line >= s.StartLine && line <= s.EndLine {
			return name
		}
	}
	// Output references may sit outside recorded section boundaries when the
	// document is being edited mid-line.
	for _, l := range m.OutputRefLines {
		if l == line {
			return "outputs"
		}
	}
	return ""
}

// DownstreamReferences returns the set of node names referenced by ds_*
// properties across all node sections.
func (m *ParsedModel) DownstreamReferences() map[string]struct{} {
	refs := make(map[string]struct{})
	for _, node := range m.Nodes {
		for key, prop := range node.Properties {
			if len(key) > 3 && key[:3] == "ds_" {
				refs[prop.Value] = struct{}{}
			}
		}
	}
	return refs
}

// FindDuplicateNodes returns node names defined more than once, mapped to
// the start lines of each definition.
func (m *ParsedModel) FindDuplicateNodes() map[string][]int {
	lines := make(map[string][]int)
	for _, node := range m.NodeSections {
		lines[node.NodeName] = append(lines[node.NodeName], node.StartLine)
	}

	duplicates := make(map[string][]int)
	for name, ls := range lines {
		if len(ls) > 1 {
			duplicates[name] = ls
		}
	}
	return duplicates
}
