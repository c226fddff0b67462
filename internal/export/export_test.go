package export

import (
	"strings"
	"testing"

	"github.com/starford/ansuz/internal/notebook"
)

func exportNotebook() *notebook.Notebook {
	nb := notebook.New()
	nb.Cells = append(nb.Cells,
		notebook.NewCell(notebook.CellMarkdown, "# Title\n\nIntro."),
		notebook.NewCell(notebook.CellCode, "x = 1\nprint(x)"),
		notebook.NewCell(notebook.CellRaw, "raw block"),
	)
	return nb
}

func TestExtension(t *testing.T) {
	tests := []struct {
		format string
		want   string
		ok     bool
	}{
		{FormatPython, ".py", true},
		{FormatScript, ".py", true},
		{FormatMarkdown, ".md", true},
		{"html", "", false},
	}
	for _, tt := range tests {
		got, ok := Extension(tt.format)
		if got != tt.want || ok != tt.ok {
			t.Errorf("Extension(%q) = %q, %v", tt.format, got, ok)
		}
	}
}

func TestRenderScript(t *testing.T) {
	got, err := Render(exportNotebook(), FormatPython)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "#!/usr/bin/env python\n# coding: utf-8\n\n# # Title\n#\n# Intro.\n\nx = 1\nprint(x)\n"
	if got != want {
		t.Errorf("script render:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestRenderMarkdown(t *testing.T) {
	got, err := Render(exportNotebook(), FormatMarkdown)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "# Title\n\nIntro.\n\n```python\nx = 1\nprint(x)\n```\n\nraw block\n"
	if got != want {
		t.Errorf("markdown render:\ngot:  %q\nwant: %q", got, want)
	}
}

func TestRenderUnsupportedFormat(t *testing.T) {
	if _, err := Render(notebook.New(), "pdf"); err == nil || !strings.Contains(err.Error(), "unsupported") {
		t.Errorf("err = %v", err)
	}
}

func TestRenderEmptyNotebook(t *testing.T) {
	got, err := Render(notebook.New(), FormatScript)
	if err != nil {
		t.Fatal(err)
	}
	if got != "#!/usr/bin/env python\n# coding: utf-8\n" {
		t.Errorf("empty script render = %q", got)
	}
}
