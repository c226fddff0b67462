// Package export renders a notebook into other text formats. Rendering is a
// pure transformation; writing the result to disk stays with the caller so
// that path validation and atomic persistence are applied uniformly.
package export

import (
	"fmt"
	"strings"

	"github.com/starford/ansuz/internal/notebook"
)

// Supported export formats.
const (
	FormatPython   = "python"
	FormatScript   = "script"
	FormatMarkdown = "markdown"
)

// Extension returns the file extension conventionally used for format.
func Extension(format string) (string, bool) {
	switch format {
	case FormatPython, FormatScript:
		return ".py", true
	case FormatMarkdown:
		return ".md", true
	default:
		return "", false
	}
}

// Render converts the notebook to the requested format.
func Render(nb *notebook.Notebook, format string) (string, error) {
	switch format {
	case FormatPython, FormatScript:
		return renderScript(nb), nil
	case FormatMarkdown:
		return renderMarkdown(nb), nil
	default:
		return "", fmt.Errorf("unsupported export format %q (supported: python, script, markdown)", format)
	}
}

// renderScript emits code cells verbatim and markdown cells as comment
// blocks, the way a notebook-to-script conversion is conventionally read
// back. Raw cells are skipped: they carry no executable or narrative content
// for a script target.
func renderScript(nb *notebook.Notebook) string {
	var b strings.Builder
	b.WriteString("#!/usr/bin/env python\n# coding: utf-8\n")
	for _, cell := range nb.Cells {
		switch cell.Type {
		case notebook.CellCode:
			b.WriteString("\n")
			b.WriteString(cell.Source)
			b.WriteString("\n")
		case notebook.CellMarkdown:
			b.WriteString("\n")
			for _, line := range cell.Lines() {
				if line == "" {
					b.WriteString("#\n")
					continue
				}
				b.WriteString("# " + line + "\n")
			}
		}
	}
	return b.String()
}

// renderMarkdown emits markdown and raw cells verbatim and fences code cells.
func renderMarkdown(nb *notebook.Notebook) string {
	var parts []string
	for _, cell := range nb.Cells {
		switch cell.Type {
		case notebook.CellCode:
			parts = append(parts, "```python\n"+cell.Source+"\n```")
		case notebook.CellMarkdown, notebook.CellRaw:
			parts = append(parts, cell.Source)
		}
	}
	return strings.Join(parts, "\n\n") + "\n"
}
