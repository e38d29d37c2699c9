package model

import (
	"bufio"
	"regexp"
	"strings"
)

var (
	sectionPattern  = regexp.MustCompile(`^\s*\[([^\]]+)\]\s*$`)
	keyValuePattern = regexp.MustCompile(`^\s*([^=]+?)\s*=\s*(.*?)\s*$`)
	commentPattern  = regexp.MustCompile(`^\s*[;#].*$`)
)

const nodeSectionPrefix = "node."

// Parse parses INI model content into a structured model. Parsing never
// fails: lines that match no construct are ignored, matching editor behavior
// where partially typed documents must still produce a usable model.
func Parse(content string) *ParsedModel {
	m := NewParsedModel()

	scanner := bufio.NewScanner(strings.NewReader(content))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	lineNumber := 0
	var current *Section

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || commentPattern.MatchString(line) {
			continue
		}

		if match := sectionPattern.FindStringSubmatch(line); match != nil {
			current = m.addSection(strings.TrimSpace(match[1]), lineNumber)
			continue
		}

		if match := keyValuePattern.FindStringSubmatch(line); match != nil && current != nil {
			current.addProperty(match[1], match[2], lineNumber)
			continue
		}

		// Bare lines are entries in the inputs/outputs sections.
		if current != nil {
			switch current.Name {
			case "inputs":
				m.InputFiles = append(m.InputFiles, line)
				m.InputFileLines[line] = lineNumber
				current.EndLine = lineNumber
			case "outputs":
				m.OutputRefs = append(m.OutputRefs, line)
				m.OutputRefLines[line] = lineNumber
				current.EndLine = lineNumber
			}
		}
	}

	return m
}

func (m *ParsedModel) addSection(name string, line int) *Section {
	s := newSection(name, line)

	if strings.HasPrefix(name, nodeSectionPrefix) {
		s.IsNode = true
		s.NodeName = name[len(nodeSectionPrefix):]
		// NodeSections keeps duplicates; Nodes keeps the latest definition.
		m.NodeSections = append(m.NodeSections, s)
		m.Nodes[s.NodeName] = s
	}

	if _, exists := m.Sections[name]; !exists {
		m.SectionOrder = append(m.SectionOrder, name)
	}
	m.Sections[name] = s
	return s
}

// CountLines counts lines without allocating a line slice.
func CountLines(content string) int {
	if content == "" {
		return 0
	}
	count := 1
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			count++
		}
	}
	return count
}
