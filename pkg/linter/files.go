package linter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/chasegan/kalixlint/pkg/model"
	"github.com/chasegan/kalixlint/pkg/schema"
)

// fileValidator checks that [inputs] entries name files that exist on disk,
// resolved against the linter's base directory. In-memory documents have no
// base directory and skip the check entirely.
type fileValidator struct {
	linter *Linter
}

func (v *fileValidator) Description() string { return "input-files" }

func (v *fileValidator) Validate(m *model.ParsedModel, s *schema.Schema, r *Result) {
	base := v.linter.baseDir
	if base == "" {
		return
	}
	for _, file := range m.InputFiles {
		path := file
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		if _, err := os.Stat(path); err != nil {
			emit(s, r, m.InputFileLines[file],
				fmt.Sprintf("input file %q not found", file),
				"file_not_found", schema.SeverityWarning)
		}
	}
}
