package mcpserver

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// metadataUpdates pulls the metadata_updates object out of the raw arguments.
// JSON null values arrive as nil entries, which is how key removal is spelled.
func metadataUpdates(req mcp.CallToolRequest) (map[string]any, error) {
	raw, ok := req.GetArguments()["metadata_updates"]
	if !ok {
		return nil, fmt.Errorf("required argument \"metadata_updates\" not found")
	}
	updates, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("metadata_updates must be a JSON object")
	}
	return updates, nil
}

func (s *Server) readMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	_, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_read_metadata", err), nil
	}
	return jsonResult("notebook_read_metadata", nb.Metadata), nil
}

func (s *Server) editMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	updates, err := metadataUpdates(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_edit_metadata", err), nil
	}
	nb.EditMetadata(updates)
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_edit_metadata", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated %d notebook metadata key(s).", len(updates))), nil
}

func (s *Server) readCellMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
		return toolError("notebook_read_cell_metadata", err), nil
	}
	cell, err := nb.Cell(index)
	if err != nil {
		return toolError("notebook_read_cell_metadata", err), nil
	}
	return jsonResult("notebook_read_cell_metadata", cell.Metadata), nil
}

func (s *Server) editCellMetadata(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("cell_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	updates, err := metadataUpdates(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_edit_cell_metadata", err), nil
	}
	if err := nb.EditCellMetadata(index, updates); err != nil {
		return toolError("notebook_edit_cell_metadata", err), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_edit_cell_metadata", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Updated %d metadata key(s) on cell %d.", len(updates), index)), nil
}
