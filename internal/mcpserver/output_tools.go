package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/notebook"
)

func (s *Server) readCellOutput(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
		return toolError("notebook_read_cell_output", err), nil
	}
	outputs, err := nb.ReadOutputs(index, s.store.MaxOutputBytes)
	if err != nil {
		return toolError("notebook_read_cell_output", err), nil
	}
	if len(outputs) == 0 {
		return mcp.NewToolResultText(fmt.Sprintf("Cell %d has no outputs.", index)), nil
	}
	return jsonResult("notebook_read_cell_output", outputs), nil
}

func (s *Server) clearCellOutputs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("cell_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_clear_cell_outputs", err), nil
	}
	cell, err := nb.Cell(index)
	if err != nil {
		return toolError("notebook_clear_cell_outputs", err), nil
	}
	if cell.Type != notebook.CellCode {
		return mcp.NewToolResultText(fmt.Sprintf("Cell %d is a %s cell and has no outputs. Notebook unchanged.", index, cell.Type)), nil
	}
	if !cell.ClearOutputs() {
		return mcp.NewToolResultText(fmt.Sprintf("Cell %d already has no outputs. Notebook unchanged.", index)), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_clear_cell_outputs", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared outputs of cell %d.", index)), nil
}

func (s *Server) clearAllOutputs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_clear_all_outputs", err), nil
	}
	cleared := nb.ClearAllOutputs()
	if cleared == 0 {
		return mcp.NewToolResultText("No cells had outputs. Notebook unchanged."), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_clear_all_outputs", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Cleared outputs of %d cell(s).", cleared)), nil
}
