package notebook

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/starford/ansuz/internal/apperr"
)

// ReadOutputs returns the output records of the code cell at index, with any
// payload exceeding maxBytes replaced by a placeholder that carries the byte
// count and a short prefix. The notebook itself is never modified.
func (nb *Notebook) ReadOutputs(index, maxBytes int) ([]map[string]any, error) {
	cell, err := nb.Cell(index)
	if err != nil {
		return nil, err
	}
	if cell.Type != CellCode {
		return nil, fmt.Errorf("%w: cell %d is a %s cell", apperr.ErrNotACodeCell, index, cell.Type)
	}
	out := make([]map[string]any, 0, len(cell.Outputs))
	for _, raw := range cell.Outputs {
		var rec map[string]any
		if err := json.Unmarshal(raw, &rec); err != nil {
			// Keep unreadable records opaque rather than failing the read.
			rec = map[string]any{"raw": string(raw)}
		}
		truncateOutputRecord(rec, maxBytes)
		out = append(out, rec)
	}
	return out, nil
}

// truncateOutputRecord bounds "data" mime bundles and stream "text" payloads
// in place. maxBytes <= 0 disables truncation.
func truncateOutputRecord(rec map[string]any, maxBytes int) {
	if maxBytes <= 0 {
		return
	}
	if data, ok := rec["data"].(map[string]any); ok {
		for mime, v := range data {
			s, ok := flattenText(v)
			if !ok || len(s) <= maxBytes {
				continue
			}
			if strings.HasPrefix(mime, "image/") {
				data[mime] = fmt.Sprintf("<image data too large: %d bytes>", len(s))
			} else {
				data[mime] = fmt.Sprintf("<data too large: %d bytes, first 256 chars: %s...>", len(s), prefix(s, 256))
			}
		}
	}
	if v, ok := rec["text"]; ok {
		if s, ok := flattenText(v); ok && len(s) > maxBytes {
			rec["text"] = fmt.Sprintf("<text data too large: %d bytes, first 256 chars: %s...>", len(s), prefix(s, 256))
		}
	}
}

// flattenText normalizes a string-or-list-of-strings JSON value.
func flattenText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case []any:
		var b strings.Builder
		for _, item := range t {
			s, ok := item.(string)
			if !ok {
				return "", false
			}
			b.WriteString(s)
		}
		return b.String(), true
	default:
		return "", false
	}
}

// prefix returns at most n leading bytes of s, trimmed back to a rune
// boundary so the placeholder stays valid UTF-8.
func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// ClearAllOutputs clears outputs and execution counts of every code cell,
// skipping non-code cells, and returns how many cells actually changed.
func (nb *Notebook) ClearAllOutputs() int {
	cleared := 0
	for i := range nb.Cells {
		if nb.Cells[i].Type != CellCode {
			continue
		}
		if nb.Cells[i].ClearOutputs() {
			cleared++
		}
	}
	return cleared
}
