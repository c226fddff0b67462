// Package mcpserver provides an MCP (Model Context Protocol) server exposing
// notebook editing tools for LLM integration over stdio or streamable HTTP.
//
// Every tool call is self-contained: validate the path, load the notebook
// from disk, mutate the in-memory document, save, respond. No document state
// survives across calls.
package mcpserver

import (
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/ansuz/internal/notebook"
	"github.com/starford/ansuz/internal/pathguard"
)

// Server wraps the MCP server with the notebook tools.
type Server struct {
	mcp   *server.MCPServer
	guard *pathguard.Guard
	store *notebook.Store
}

// New creates a new MCP server with all notebook tools registered.
func New(guard *pathguard.Guard, store *notebook.Store) *Server {
	s := &Server{guard: guard, store: store}

	s.mcp = server.NewMCPServer(
		"Ansuz",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	// Cell structure tools.
	s.mcp.AddTool(mcp.NewTool("notebook_add_cell",
		mcp.WithDescription("Add a new cell to a notebook after the specified index."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithString("cell_type", mcp.Required(), mcp.Description("Type of cell: 'code', 'markdown', or 'raw'")),
		mcp.WithString("source", mcp.Required(), mcp.Description("Source content for the new cell")),
		mcp.WithNumber("insert_after_index", mcp.Required(), mcp.Description("0-based index after which to insert (-1 to insert at the beginning)")),
	), s.addCell)

	s.mcp.AddTool(mcp.NewTool("notebook_edit_cell",
		mcp.WithDescription("Replace the source content of a specific cell."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the cell to edit")),
		mcp.WithString("source", mcp.Required(), mcp.Description("New source content for the cell")),
	), s.editCell)

	s.mcp.AddTool(mcp.NewTool("notebook_delete_cell",
		mcp.WithDescription("Delete a specific cell from a notebook."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the cell to delete")),
	), s.deleteCell)

	s.mcp.AddTool(mcp.NewTool("notebook_move_cell",
		mcp.WithDescription("Move a cell to a new position. to_index is the cell's index in the resulting notebook."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("from_index", mcp.Required(), mcp.Description("0-based index of the cell to move")),
		mcp.WithNumber("to_index", mcp.Required(), mcp.Description("0-based index the cell should occupy after the move")),
	), s.moveCell)

	s.mcp.AddTool(mcp.NewTool("notebook_split_cell",
		mcp.WithDescription("Split a cell into two at a line boundary."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the cell to split")),
		mcp.WithNumber("split_at_line", mcp.Required(), mcp.Description("1-based line number; the split happens at the boundary before this line")),
	), s.splitCell)

	s.mcp.AddTool(mcp.NewTool("notebook_merge_cells",
		mcp.WithDescription("Merge a cell with the one immediately following it. Both cells must have the same type."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("first_cell_index", mcp.Required(), mcp.Description("0-based index of the first cell of the pair")),
	), s.mergeCells)

	s.mcp.AddTool(mcp.NewTool("notebook_change_cell_type",
		mcp.WithDescription("Change the type of a cell, preserving source and metadata."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the cell to change")),
		mcp.WithString("new_type", mcp.Required(), mcp.Description("Target cell type: 'code', 'markdown', or 'raw'")),
	), s.changeCellType)

	s.mcp.AddTool(mcp.NewTool("notebook_duplicate_cell",
		mcp.WithDescription("Duplicate a cell one or more times, inserting the copies right after it."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the cell to duplicate")),
		mcp.WithNumber("count", mcp.Description("Number of copies to create (default 1)")),
	), s.duplicateCell)

	// File tools.
	s.mcp.AddTool(mcp.NewTool("notebook_create",
		mcp.WithDescription("Create a new, empty notebook file."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path for the new .ipynb file within an allowed root")),
	), s.createNotebook)

	s.mcp.AddTool(mcp.NewTool("notebook_delete",
		mcp.WithDescription("Delete a notebook file."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
	), s.deleteNotebook)

	s.mcp.AddTool(mcp.NewTool("notebook_rename",
		mcp.WithDescription("Rename or move a notebook file. Both paths must be inside allowed roots."),
		mcp.WithString("old_path", mcp.Required(), mcp.Description("Absolute path to the existing .ipynb file")),
		mcp.WithString("new_path", mcp.Required(), mcp.Description("Absolute destination path ending in .ipynb")),
	), s.renameNotebook)

	s.mcp.AddTool(mcp.NewTool("notebook_validate",
		mcp.WithDescription("Check that a file parses as a structurally valid notebook."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
	), s.validateNotebook)

	s.mcp.AddTool(mcp.NewTool("notebook_export",
		mcp.WithDescription("Export a notebook to another format (python, script, or markdown)."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the source .ipynb file")),
		mcp.WithString("export_format", mcp.Required(), mcp.Description("Output format: 'python', 'script', or 'markdown'")),
		mcp.WithString("output_path", mcp.Required(), mcp.Description("Absolute path for the exported file, inside an allowed root")),
	), s.exportNotebook)

	// Info tools.
	s.mcp.AddTool(mcp.NewTool("notebook_read",
		mcp.WithDescription("Read the entire content of a notebook."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
	), s.readNotebook)

	s.mcp.AddTool(mcp.NewTool("notebook_read_cell",
		mcp.WithDescription("Read the source content of a specific cell."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the cell to read")),
	), s.readCell)

	s.mcp.AddTool(mcp.NewTool("notebook_get_cell_count",
		mcp.WithDescription("Get the number of cells in a notebook."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
	), s.getCellCount)

	s.mcp.AddTool(mcp.NewTool("notebook_get_info",
		mcp.WithDescription("Get file and format information about a notebook, including a content checksum."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
	), s.getInfo)

	s.mcp.AddTool(mcp.NewTool("notebook_get_outline",
		mcp.WithDescription("Get a structural outline: markdown headings and code definitions."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
	), s.getOutline)

	s.mcp.AddTool(mcp.NewTool("notebook_search",
		mcp.WithDescription("Search cell sources for a substring."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithString("query", mcp.Required(), mcp.Description("String to search for")),
		mcp.WithBoolean("case_sensitive", mcp.Description("Match case exactly (default false)")),
	), s.searchNotebook)

	// Metadata tools.
	s.mcp.AddTool(mcp.NewTool("notebook_read_metadata",
		mcp.WithDescription("Read the top-level metadata of a notebook."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
	), s.readMetadata)

	s.mcp.AddTool(mcp.NewTool("notebook_edit_metadata",
		mcp.WithDescription("Update the top-level metadata of a notebook. A null value removes the key."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithObject("metadata_updates", mcp.Required(), mcp.Description("Keys and values to update or add; null values delete the key")),
	), s.editMetadata)

	s.mcp.AddTool(mcp.NewTool("notebook_read_cell_metadata",
		mcp.WithDescription("Read the metadata of a specific cell."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the cell")),
	), s.readCellMetadata)

	s.mcp.AddTool(mcp.NewTool("notebook_edit_cell_metadata",
		mcp.WithDescription("Update the metadata of a specific cell. A null value removes the key."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the cell")),
		mcp.WithObject("metadata_updates", mcp.Required(), mcp.Description("Keys and values to update or add; null values delete the key")),
	), s.editCellMetadata)

	// Output tools.
	s.mcp.AddTool(mcp.NewTool("notebook_read_cell_output",
		mcp.WithDescription("Read the outputs of a specific code cell. Oversized payloads are truncated."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the code cell")),
	), s.readCellOutput)

	s.mcp.AddTool(mcp.NewTool("notebook_clear_cell_outputs",
		mcp.WithDescription("Clear the outputs and execution count of a specific code cell."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
		mcp.WithNumber("cell_index", mcp.Required(), mcp.Description("0-based index of the code cell")),
	), s.clearCellOutputs)

	s.mcp.AddTool(mcp.NewTool("notebook_clear_all_outputs",
		mcp.WithDescription("Clear outputs and execution counts of every code cell in a notebook."),
		mcp.WithString("notebook_path", mcp.Required(), mcp.Description("Absolute path to the .ipynb file within an allowed root")),
	), s.clearAllOutputs)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// StreamableHTTP returns an http.Handler serving the streamable HTTP transport.
func (s *Server) StreamableHTTP() *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(s.mcp, server.WithStateLess(true))
}

// loadNotebook runs the shared front half of every tool: path guard, then a
// fresh load from disk.
func (s *Server) loadNotebook(path string) (string, *notebook.Notebook, error) {
	resolved, err := s.guard.ResolveNotebook(path)
	if err != nil {
		return "", nil, err
	}
	nb, err := s.store.Load(resolved)
	if err != nil {
		return "", nil, err
	}
	return resolved, nb, nil
}

// toolError logs a failed tool call and wraps the error as a tool result.
// Tool failures are results, not protocol errors.
func toolError(tool string, err error) *mcp.CallToolResult {
	slog.Error("tool failed", slog.String("tool", tool), slog.String("error", err.Error()))
	return mcp.NewToolResultError(err.Error())
}

// jsonResult marshals v as an indented JSON tool result.
func jsonResult(tool string, v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError(tool, err)
	}
	return mcp.NewToolResultText(string(out))
}
