package mcpserver

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/checksum"
)

func (s *Server) readNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_read", err), nil
	}
	return jsonResult("notebook_read", nb), nil
}

func (s *Server) readCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("cell_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_read_cell", err), nil
	}
	cell, err := nb.Cell(index)
	if err != nil {
		return toolError("notebook_read_cell", err), nil
	}
	return mcp.NewToolResultText(cell.Source), nil
}

func (s *Server) getCellCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_get_cell_count", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Notebook has %d cells.", nb.Len())), nil
}

// notebookInfo is the notebook_get_info response payload.
type notebookInfo struct {
	Path          string         `json:"path"`
	SizeBytes     int64          `json:"size_bytes"`
	ModifiedAt    string         `json:"modified_at"`
	SHA256        string         `json:"sha256"`
	NBFormat      int            `json:"nbformat"`
	NBFormatMinor int            `json:"nbformat_minor"`
	CellCount     int            `json:"cell_count"`
	CellTypes     map[string]int `json:"cell_types"`
}

func (s *Server) getInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_get_info", err), nil
	}
	stat, err := os.Stat(resolved)
	if err != nil {
		return toolError("notebook_get_info", fmt.Errorf("stat %s: %w", resolved, err)), nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return toolError("notebook_get_info", fmt.Errorf("read %s: %w", resolved, err)), nil
	}

	types := map[string]int{}
	for _, c := range nb.Cells {
		types[string(c.Type)]++
	}
	info := notebookInfo{
		Path:          resolved,
		SizeBytes:     stat.Size(),
		ModifiedAt:    stat.ModTime().UTC().Format(time.RFC3339),
		SHA256:        checksum.Sum(data),
		NBFormat:      nb.NBFormat,
		NBFormatMinor: nb.NBFormatMinor,
		CellCount:     nb.Len(),
		CellTypes:     types,
	}
	return jsonResult("notebook_get_info", info), nil
}

func (s *Server) getOutline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_get_outline", err), nil
	}
	items := nb.Outline()
	if len(items) == 0 {
		return mcp.NewToolResultText("Notebook has no headings or code definitions."), nil
	}
	return jsonResult("notebook_get_outline", items), nil
}

func (s *Server) searchNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	caseSensitive := req.GetBool("case_sensitive", false)

	_, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_search", err), nil
	}
	matches := nb.Search(query, caseSensitive)
	if len(matches) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("No matches for %q.", query)), nil
	}
	return jsonResult("notebook_search", matches), nil
}
