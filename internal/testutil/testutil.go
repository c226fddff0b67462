// Package testutil provides shared test helpers for setting up allowed roots
// and notebook files on disk.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/starford/ansuz/internal/notebook"
	"github.com/starford/ansuz/internal/pathguard"
)

// TestRoot creates a temporary allowed root with a guard scoped to it.
func TestRoot(t *testing.T) (string, *pathguard.Guard) {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	guard, err := pathguard.New([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	return dir, guard
}

// TestStore returns a store with ceilings large enough for test fixtures.
func TestStore() *notebook.Store {
	return notebook.NewStore(1<<20, 1<<16, 1<<16)
}

// SampleNotebook builds a small three-cell notebook: a markdown title, a code
// cell with one stream output, and a raw cell.
func SampleNotebook() *notebook.Notebook {
	nb := notebook.New()
	md := notebook.NewCell(notebook.CellMarkdown, "# Title\n\nIntro text.")
	code := notebook.NewCell(notebook.CellCode, "x = 1\nprint(x)")
	code.Outputs = []notebook.Output{
		json.RawMessage(`{"output_type":"stream","name":"stdout","text":["1\n"]}`),
	}
	one := 1
	code.ExecutionCount = &one
	raw := notebook.NewCell(notebook.CellRaw, "raw content")
	nb.Cells = append(nb.Cells, md, code, raw)
	return nb
}

// WriteNotebook serializes nb to path and fails the test on any error.
func WriteNotebook(t *testing.T, path string, nb *notebook.Notebook) {
	t.Helper()
	data, err := json.MarshalIndent(nb, "", " ")
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		t.Fatal(err)
	}
}
