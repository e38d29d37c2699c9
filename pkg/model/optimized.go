package model

import "strings"

// LargeContentLines is the line count above which ParseOptimized switches
// to the streaming path. Below it, the standard parser is used.
const LargeContentLines = 1000

// ShouldUseOptimized reports whether content is large enough to benefit
// from the optimized parsing path.
func ShouldUseOptimized(content string) bool {
	return CountLines(content) > LargeContentLines
}

// ParseOptimized parses large documents with a streaming line splitter and
// presized collections, avoiding the per-line trimming and regex work of the
// standard parser where it can. Semantics are identical to Parse. Small
// documents are handed to the standard parser.
func ParseOptimized(content string) *ParsedModel {
	lineCount := CountLines(content)
	if lineCount <= LargeContentLines {
		return Parse(content)
	}

	lines := splitLines(content, lineCount)
	return parseLines(lines)
}

// splitLines splits content into lines handling both LF and CRLF without
// the intermediate allocations of strings.Split followed by trimming.
func splitLines(content string, estimated int) []string {
	lines := make([]string, 0, estimated)
	start := 0
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			end := i
			if end > start && content[end-1] == '\r' {
				end--
			}
			lines = append(lines, content[start:end])
			start = i + 1
		}
	}
	if start < len(content) {
		lines = append(lines, content[start:])
	}
	return lines
}

func parseLines(lines []string) *ParsedModel {
	m := NewParsedModel()
	var current *Section

	for i, raw := range lines {
		lineNumber := i + 1

		// Cheap pre-checks before regex matching.
		line := strings.TrimSpace(raw)
		if line == "" || line[0] == ';' || line[0] == '#' {
			continue
		}

		if line[0] == '[' {
			if match := sectionPattern.FindStringSubmatch(line); match != nil {
				current = m.addSection(strings.TrimSpace(match[1]), lineNumber)
				continue
			}
		}

		if eq := strings.IndexByte(line, '='); eq > 0 && current != nil {
			key := strings.TrimSpace(line[:eq])
			value := strings.TrimSpace(line[eq+1:])
			if key != "" {
				current.addProperty(key, value, lineNumber)
				continue
			}
		}

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
