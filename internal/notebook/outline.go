package notebook

import (
	"regexp"
	"strings"
)

var (
	atxHeadingRe = regexp.MustCompile(`^(#{1,6})\s+(.+)`)
	codeDefRe    = regexp.MustCompile(`^(async\s+def|def|class)\s+([A-Za-z_][A-Za-z0-9_]*)`)
)

// OutlineItem is one entry in a notebook's structural outline: a markdown
// heading or a code cell summarized by its top-level definitions.
type OutlineItem struct {
	Level       int      `json:"level"`
	Text        string   `json:"text"`
	CellIndex   int      `json:"cell_index"`
	Kind        string   `json:"type"`
	Definitions []string `json:"definitions,omitempty"`
	Context     []string `json:"context,omitempty"`
}

// Outline scans the notebook and returns one entry per markdown heading
// (level = heading depth) and one per code cell that contains definitions or
// any non-comment content (level 0). Order follows cell order, then in-cell
// order. The scan is read-only.
func (nb *Notebook) Outline() []OutlineItem {
	var out []OutlineItem
	for i, cell := range nb.Cells {
		switch cell.Type {
		case CellMarkdown:
			for _, line := range cell.Lines() {
				m := atxHeadingRe.FindStringSubmatch(strings.TrimSpace(line))
				if m == nil {
					continue
				}
				text := strings.TrimSpace(m[2])
				if text == "" {
					continue
				}
				out = append(out, OutlineItem{
					Level:     len(m[1]),
					Text:      text,
					CellIndex: i,
					Kind:      "markdown_heading",
				})
			}
		case CellCode:
			defs := codeDefinitions(cell.Source)
			context := firstCodeLines(cell.Source, 3)
			if len(defs) == 0 && len(context) == 0 {
				continue
			}
			text := ""
			if len(defs) > 0 {
				text = defs[0]
			} else {
				text = context[0]
			}
			out = append(out, OutlineItem{
				Level:       0,
				Text:        strings.TrimSpace(text),
				CellIndex:   i,
				Kind:        "code",
				Definitions: defs,
				Context:     context,
			})
		}
	}
	return out
}

// codeDefinitions extracts top-level python function and class definitions.
func codeDefinitions(source string) []string {
	var defs []string
	for _, line := range strings.Split(source, "\n") {
		m := codeDefRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		switch {
		case strings.HasPrefix(m[1], "async"):
			defs = append(defs, "async def "+m[2]+"(...)")
		case m[1] == "def":
			defs = append(defs, "def "+m[2]+"(...)")
		default:
			defs = append(defs, "class "+m[2]+":")
		}
	}
	return defs
}

// firstCodeLines returns up to max leading non-empty, non-comment lines.
func firstCodeLines(source string, max int) []string {
	var out []string
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		out = append(out, line)
		if len(out) >= max {
			break
		}
	}
	return out
}

// SearchMatch is one line of one cell containing the search query.
type SearchMatch struct {
	CellIndex   int      `json:"cell_index"`
	CellType    CellType `json:"cell_type"`
	LineNumber  int      `json:"line_number"`
	LineContent string   `json:"line_content"`
}

// Search returns every line in every cell's source containing query as a
// substring. Line numbers are 1-based. Matching is case-insensitive unless
// caseSensitive is set; matched lines are returned in their original form.
func (nb *Notebook) Search(query string, caseSensitive bool) []SearchMatch {
	needle := query
	if !caseSensitive {
		needle = strings.ToLower(query)
	}
	var matches []SearchMatch
	for i, cell := range nb.Cells {
		for n, line := range cell.Lines() {
			hay := line
			if !caseSensitive {
				hay = strings.ToLower(line)
			}
			if strings.Contains(hay, needle) {
				matches = append(matches, SearchMatch{
					CellIndex:   i,
					CellType:    cell.Type,
					LineNumber:  n + 1,
					LineContent: line,
				})
			}
		}
	}
	return matches
}
