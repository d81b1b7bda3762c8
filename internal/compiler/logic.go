package compiler

import (
	"strings"

	"github.com/fentz26/dagsmith/internal/models"
	"github.com/fentz26/dagsmith/internal/naming"
)

const indent = "    "

// Imports returns the trimmed, non-blank import lines of every task in
// pipeline order, keeping only the first occurrence of each.
func Imports(pipeline []models.Stage) []string {
	seen := make(map[string]bool)
	var out []string
	for _, stage := range pipeline {
		for _, t := range stage.Tasks {
			for _, line := range strings.Split(t.Imports, "\n") {
				line = strings.TrimSpace(line)
				if line == "" || seen[line] {
					continue
				}
				seen[line] = true
				out = append(out, line)
			}
		}
	}
	return out
}

// Logic renders the business-logic module: the merged imports followed by
// one function per task.
func Logic(pipeline []models.Stage) string {
	var b strings.Builder

	if imports := Imports(pipeline); len(imports) > 0 {
		b.WriteString(strings.Join(imports, "\n"))
		b.WriteString("\n\n")
	}

	for _, stage := range pipeline {
		for _, t := range stage.Tasks {
			b.WriteString("def ")
			b.WriteString(naming.Identifier(t.Name))
			b.WriteString("(**context):\n")
			b.WriteString(body(t.Code))
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

// body indents every non-empty line by one level. Code without any
// non-whitespace content becomes a no-op.
func body(code string) string {
	if strings.TrimSpace(code) == "" {
		return indent + "pass"
	}
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = indent + line
		}
	}
	return strings.Join(lines, "\n")
}
