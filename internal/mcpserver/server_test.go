package mcpserver

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/notebook"
	"github.com/starford/ansuz/internal/testutil"
)

func testServer(t *testing.T) (*Server, string) {
	t.Helper()
	root, guard := testutil.TestRoot(t)
	srv := New(guard, testutil.TestStore())
	return srv, root
}

// sampleFile writes the three-cell sample notebook into root and returns its path.
func sampleFile(t *testing.T, root string) string {
	t.Helper()
	path := filepath.Join(root, "sample.ipynb")
	testutil.WriteNotebook(t, path, testutil.SampleNotebook())
	return path
}

// callTool invokes a tool handler directly, the way the MCP dispatcher would.
func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error
	switch name {
	case "notebook_add_cell":
		result, err = srv.addCell(ctx, req)
	case "notebook_edit_cell":
		result, err = srv.editCell(ctx, req)
	case "notebook_delete_cell":
		result, err = srv.deleteCell(ctx, req)
	case "notebook_move_cell":
		result, err = srv.moveCell(ctx, req)
	case "notebook_split_cell":
		result, err = srv.splitCell(ctx, req)
	case "notebook_merge_cells":
		result, err = srv.mergeCells(ctx, req)
	case "notebook_change_cell_type":
		result, err = srv.changeCellType(ctx, req)
	case "notebook_duplicate_cell":
		result, err = srv.duplicateCell(ctx, req)
	case "notebook_create":
		result, err = srv.createNotebook(ctx, req)
	case "notebook_delete":
		result, err = srv.deleteNotebook(ctx, req)
	case "notebook_rename":
		result, err = srv.renameNotebook(ctx, req)
	case "notebook_validate":
		result, err = srv.validateNotebook(ctx, req)
	case "notebook_export":
		result, err = srv.exportNotebook(ctx, req)
	case "notebook_read":
		result, err = srv.readNotebook(ctx, req)
	case "notebook_read_cell":
		result, err = srv.readCell(ctx, req)
	case "notebook_get_cell_count":
		result, err = srv.getCellCount(ctx, req)
	case "notebook_get_info":
		result, err = srv.getInfo(ctx, req)
	case "notebook_get_outline":
		result, err = srv.getOutline(ctx, req)
	case "notebook_search":
		result, err = srv.searchNotebook(ctx, req)
	case "notebook_read_metadata":
		result, err = srv.readMetadata(ctx, req)
	case "notebook_edit_metadata":
		result, err = srv.editMetadata(ctx, req)
	case "notebook_read_cell_metadata":
		result, err = srv.readCellMetadata(ctx, req)
	case "notebook_edit_cell_metadata":
		result, err = srv.editCellMetadata(ctx, req)
	case "notebook_read_cell_output":
		result, err = srv.readCellOutput(ctx, req)
	case "notebook_clear_cell_outputs":
		result, err = srv.clearCellOutputs(ctx, req)
	case "notebook_clear_all_outputs":
		result, err = srv.clearAllOutputs(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}
	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// reload reads the notebook back from disk to verify what a tool persisted.
func reload(t *testing.T, srv *Server, path string) *notebook.Notebook {
	t.Helper()
	nb, err := srv.store.Load(path)
	if err != nil {
		t.Fatalf("reload %s: %v", path, err)
	}
	return nb
}

func TestAddCell(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_add_cell", map[string]interface{}{
		"notebook_path":      path,
		"cell_type":          "code",
		"source":             "y = 2",
		"insert_after_index": 0,
	})
	if r.IsError {
		t.Fatalf("add_cell failed: %s", resultText(r))
	}
	nb := reload(t, srv, path)
	if nb.Len() != 4 || nb.Cells[1].Source != "y = 2" {
		t.Errorf("unexpected cells after add: %d", nb.Len())
	}
}

func TestAddCellAtFront(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	callTool(t, srv, "notebook_add_cell", map[string]interface{}{
		"notebook_path":      path,
		"cell_type":          "markdown",
		"source":             "first",
		"insert_after_index": -1,
	})
	nb := reload(t, srv, path)
	if nb.Cells[0].Source != "first" {
		t.Errorf("cell 0 = %q", nb.Cells[0].Source)
	}
}

func TestEditAndReadCell(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	callTool(t, srv, "notebook_edit_cell", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    1,
		"source":        "z = 3",
	})
	r := callTool(t, srv, "notebook_read_cell", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    1,
	})
	if got := resultText(r); got != "z = 3" {
		t.Errorf("read_cell = %q", got)
	}
}

func TestDeleteCell(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_delete_cell", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    0,
	})
	if r.IsError {
		t.Fatalf("delete_cell failed: %s", resultText(r))
	}
	nb := reload(t, srv, path)
	if nb.Len() != 2 || nb.Cells[0].Type != notebook.CellCode {
		t.Errorf("cells after delete: %d", nb.Len())
	}
}

func TestMoveCellSwapsAdjacent(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_move_cell", map[string]interface{}{
		"notebook_path": path,
		"from_index":    0,
		"to_index":      1,
	})
	if r.IsError {
		t.Fatalf("move_cell failed: %s", resultText(r))
	}
	nb := reload(t, srv, path)
	if nb.Cells[0].Type != notebook.CellCode || nb.Cells[1].Type != notebook.CellMarkdown {
		t.Errorf("cells not swapped: %s, %s", nb.Cells[0].Type, nb.Cells[1].Type)
	}
}

func TestMoveCellSameIndexSkipsRewrite(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	r := callTool(t, srv, "notebook_move_cell", map[string]interface{}{
		"notebook_path": path,
		"from_index":    1,
		"to_index":      1,
	})
	if r.IsError {
		t.Fatalf("move_cell failed: %s", resultText(r))
	}
	if !strings.Contains(resultText(r), "unchanged") {
		t.Errorf("result = %q", resultText(r))
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("no-op move rewrote the file")
	}
}

func TestSplitCell(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_split_cell", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    1,
		"split_at_line": 2,
	})
	if r.IsError {
		t.Fatalf("split_cell failed: %s", resultText(r))
	}
	nb := reload(t, srv, path)
	if nb.Len() != 4 {
		t.Fatalf("len = %d, want 4", nb.Len())
	}
	if nb.Cells[1].Source != "x = 1" || nb.Cells[2].Source != "print(x)" {
		t.Errorf("halves = %q, %q", nb.Cells[1].Source, nb.Cells[2].Source)
	}
}

func TestMergeCellsTypeMismatchLeavesFileUnchanged(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	// Cell 0 is markdown, cell 1 is code.
	r := callTool(t, srv, "notebook_merge_cells", map[string]interface{}{
		"notebook_path":    path,
		"first_cell_index": 0,
	})
	if !r.IsError {
		t.Fatal("expected merge of mixed types to fail")
	}
	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("failed merge modified the file")
	}
}

func TestMergeCells(t *testing.T) {
	srv, root := testServer(t)
	path := filepath.Join(root, "merge.ipynb")
	nb := notebook.New()
	nb.Cells = append(nb.Cells,
		notebook.NewCell(notebook.CellCode, "a = 1"),
		notebook.NewCell(notebook.CellCode, "b = 2"),
	)
	testutil.WriteNotebook(t, path, nb)

	r := callTool(t, srv, "notebook_merge_cells", map[string]interface{}{
		"notebook_path":    path,
		"first_cell_index": 0,
	})
	if r.IsError {
		t.Fatalf("merge_cells failed: %s", resultText(r))
	}
	got := reload(t, srv, path)
	if got.Len() != 1 || got.Cells[0].Source != "a = 1\nb = 2" {
		t.Errorf("merged = %q", got.Cells[0].Source)
	}
}

func TestChangeCellType(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	callTool(t, srv, "notebook_change_cell_type", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    1,
		"new_type":      "markdown",
	})
	nb := reload(t, srv, path)
	c := nb.Cells[1]
	if c.Type != notebook.CellMarkdown || c.Source != "x = 1\nprint(x)" {
		t.Errorf("cell = %s %q", c.Type, c.Source)
	}
}

func TestDuplicateCell(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	callTool(t, srv, "notebook_duplicate_cell", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    1,
		"count":         2,
	})
	nb := reload(t, srv, path)
	if nb.Len() != 5 {
		t.Fatalf("len = %d, want 5", nb.Len())
	}
	for i := 1; i <= 3; i++ {
		if nb.Cells[i].Source != "x = 1\nprint(x)" {
			t.Errorf("cell %d = %q", i, nb.Cells[i].Source)
		}
	}
	// Copies never claim the execution results of the original.
	if len(nb.Cells[2].Outputs) != 0 || nb.Cells[2].ExecutionCount != nil {
		t.Error("copy kept outputs")
	}
}

func TestCreateNotebook(t *testing.T) {
	srv, root := testServer(t)
	path := filepath.Join(root, "new.ipynb")

	r := callTool(t, srv, "notebook_create", map[string]interface{}{"notebook_path": path})
	if r.IsError {
		t.Fatalf("create failed: %s", resultText(r))
	}
	nb := reload(t, srv, path)
	if nb.Len() != 0 || nb.NBFormat != 4 {
		t.Errorf("created notebook: %d cells, nbformat %d", nb.Len(), nb.NBFormat)
	}

	r = callTool(t, srv, "notebook_create", map[string]interface{}{"notebook_path": path})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("second create = %q", resultText(r))
	}
}

func TestDeleteNotebook(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_delete", map[string]interface{}{"notebook_path": path})
	if r.IsError {
		t.Fatalf("delete failed: %s", resultText(r))
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still exists")
	}

	r = callTool(t, srv, "notebook_delete", map[string]interface{}{"notebook_path": path})
	if !r.IsError {
		t.Error("deleting a missing notebook should fail")
	}
}

func TestRenameNotebook(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)
	dest := filepath.Join(root, "renamed.ipynb")

	r := callTool(t, srv, "notebook_rename", map[string]interface{}{
		"old_path": path,
		"new_path": dest,
	})
	if r.IsError {
		t.Fatalf("rename failed: %s", resultText(r))
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("old file still exists")
	}
	if reload(t, srv, dest).Len() != 3 {
		t.Error("renamed notebook unreadable")
	}
}

func TestRenameRefusesToOverwrite(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)
	dest := filepath.Join(root, "other.ipynb")
	testutil.WriteNotebook(t, dest, notebook.New())

	r := callTool(t, srv, "notebook_rename", map[string]interface{}{
		"old_path": path,
		"new_path": dest,
	})
	if !r.IsError || !strings.Contains(resultText(r), "already exists") {
		t.Errorf("rename onto existing file = %q", resultText(r))
	}
}

func TestValidateNotebook(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_validate", map[string]interface{}{"notebook_path": path})
	if !strings.Contains(resultText(r), "valid") {
		t.Errorf("validate = %q", resultText(r))
	}

	bad := filepath.Join(root, "bad.ipynb")
	if err := os.WriteFile(bad, []byte("{broken"), 0o644); err != nil {
		t.Fatal(err)
	}
	r = callTool(t, srv, "notebook_validate", map[string]interface{}{"notebook_path": bad})
	if !strings.Contains(resultText(r), "invalid") {
		t.Errorf("validate broken = %q", resultText(r))
	}
}

func TestExportNotebook(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)
	out := filepath.Join(root, "sample.py")

	r := callTool(t, srv, "notebook_export", map[string]interface{}{
		"notebook_path": path,
		"export_format": "python",
		"output_path":   out,
	})
	if r.IsError {
		t.Fatalf("export failed: %s", resultText(r))
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "#!/usr/bin/env python") {
		t.Errorf("exported script starts with %.40q", data)
	}
	if !strings.Contains(string(data), "x = 1") {
		t.Error("exported script missing code")
	}
}

func TestExportRejectsMismatchedExtension(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_export", map[string]interface{}{
		"notebook_path": path,
		"export_format": "markdown",
		"output_path":   filepath.Join(root, "out.py"),
	})
	if !r.IsError {
		t.Error("expected extension mismatch to fail")
	}
}

func TestGetCellCount(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_get_cell_count", map[string]interface{}{"notebook_path": path})
	if got := resultText(r); got != "Notebook has 3 cells." {
		t.Errorf("cell count = %q", got)
	}
}

func TestGetInfo(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_get_info", map[string]interface{}{"notebook_path": path})
	text := resultText(r)
	for _, want := range []string{`"sha256"`, `"cell_count": 3`, `"nbformat": 4`, `"markdown": 1`, `"code": 1`} {
		if !strings.Contains(text, want) {
			t.Errorf("info missing %s:\n%s", want, text)
		}
	}
}

func TestGetOutline(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_get_outline", map[string]interface{}{"notebook_path": path})
	text := resultText(r)
	if !strings.Contains(text, `"Title"`) || !strings.Contains(text, "markdown_heading") {
		t.Errorf("outline = %s", text)
	}
}

func TestSearchTool(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_search", map[string]interface{}{
		"notebook_path": path,
		"query":         "PRINT",
	})
	if !strings.Contains(resultText(r), "print(x)") {
		t.Errorf("search = %q", resultText(r))
	}

	r = callTool(t, srv, "notebook_search", map[string]interface{}{
		"notebook_path":  path,
		"query":          "PRINT",
		"case_sensitive": true,
	})
	if !strings.Contains(resultText(r), "No matches") {
		t.Errorf("case-sensitive search = %q", resultText(r))
	}
}

func TestMetadataTools(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	callTool(t, srv, "notebook_edit_metadata", map[string]interface{}{
		"notebook_path":    path,
		"metadata_updates": map[string]interface{}{"authors": []interface{}{"ada"}},
	})
	r := callTool(t, srv, "notebook_read_metadata", map[string]interface{}{"notebook_path": path})
	if !strings.Contains(resultText(r), `"ada"`) {
		t.Errorf("metadata = %q", resultText(r))
	}

	// A null value removes the key.
	callTool(t, srv, "notebook_edit_metadata", map[string]interface{}{
		"notebook_path":    path,
		"metadata_updates": map[string]interface{}{"authors": nil},
	})
	r = callTool(t, srv, "notebook_read_metadata", map[string]interface{}{"notebook_path": path})
	if strings.Contains(resultText(r), "authors") {
		t.Errorf("key not removed: %q", resultText(r))
	}
}

func TestCellMetadataTools(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	callTool(t, srv, "notebook_edit_cell_metadata", map[string]interface{}{
		"notebook_path":    path,
		"cell_index":       1,
		"metadata_updates": map[string]interface{}{"collapsed": true},
	})
	r := callTool(t, srv, "notebook_read_cell_metadata", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    1,
	})
	if !strings.Contains(resultText(r), `"collapsed": true`) {
		t.Errorf("cell metadata = %q", resultText(r))
	}
}

func TestReadCellOutput(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_read_cell_output", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    1,
	})
	if !strings.Contains(resultText(r), "stream") {
		t.Errorf("output = %q", resultText(r))
	}

	r = callTool(t, srv, "notebook_read_cell_output", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    0,
	})
	if !r.IsError {
		t.Error("reading outputs of a markdown cell should fail")
	}
}

func TestClearCellOutputs(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_clear_cell_outputs", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    1,
	})
	if r.IsError {
		t.Fatalf("clear failed: %s", resultText(r))
	}
	nb := reload(t, srv, path)
	if len(nb.Cells[1].Outputs) != 0 || nb.Cells[1].ExecutionCount != nil {
		t.Error("outputs not cleared on disk")
	}
}

func TestClearAllOutputs(t *testing.T) {
	srv, root := testServer(t)
	path := sampleFile(t, root)

	r := callTool(t, srv, "notebook_clear_all_outputs", map[string]interface{}{"notebook_path": path})
	if !strings.Contains(resultText(r), "1 cell(s)") {
		t.Errorf("clear all = %q", resultText(r))
	}

	r = callTool(t, srv, "notebook_clear_all_outputs", map[string]interface{}{"notebook_path": path})
	if !strings.Contains(resultText(r), "unchanged") {
		t.Errorf("second clear all = %q", resultText(r))
	}
}

func TestOversizedSourceLeavesFileUnchanged(t *testing.T) {
	root, guard := testutil.TestRoot(t)
	srv := New(guard, notebook.NewStore(1<<20, 16, 1<<16))
	path := sampleFile(t, root)
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	huge := strings.Repeat("x", 64)

	r := callTool(t, srv, "notebook_add_cell", map[string]interface{}{
		"notebook_path":      path,
		"cell_type":          "code",
		"source":             huge,
		"insert_after_index": 0,
	})
	if !r.IsError || !strings.Contains(resultText(r), "source too large") {
		t.Errorf("add_cell with oversized source = %q", resultText(r))
	}

	r = callTool(t, srv, "notebook_edit_cell", map[string]interface{}{
		"notebook_path": path,
		"cell_index":    1,
		"source":        huge,
	})
	if !r.IsError || !strings.Contains(resultText(r), "source too large") {
		t.Errorf("edit_cell with oversized source = %q", resultText(r))
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("rejected mutation modified the file")
	}
}

func TestPathOutsideRootRejected(t *testing.T) {
	srv, _ := testServer(t)

	r := callTool(t, srv, "notebook_read", map[string]interface{}{
		"notebook_path": "/tmp/elsewhere.ipynb",
	})
	if !r.IsError || !strings.Contains(resultText(r), "allowed roots") {
		t.Errorf("outside path = %q", resultText(r))
	}
}

func TestNonNotebookExtensionRejected(t *testing.T) {
	srv, root := testServer(t)

	r := callTool(t, srv, "notebook_read", map[string]interface{}{
		"notebook_path": filepath.Join(root, "file.txt"),
	})
	if !r.IsError || !strings.Contains(resultText(r), ".ipynb") {
		t.Errorf("wrong extension = %q", resultText(r))
	}
}

func TestMissingRequiredArgument(t *testing.T) {
	srv, _ := testServer(t)
	r := callTool(t, srv, "notebook_read", map[string]interface{}{})
	if !r.IsError {
		t.Error("missing notebook_path should fail")
	}
}
