package mcpserver

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/notebook"
)

func (s *Server) addCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cellType, err := req.RequireString("cell_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	afterIndex, err := req.RequireInt("insert_after_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_add_cell", err), nil
	}
	if err := s.store.CheckSource(source); err != nil {
		return toolError("notebook_add_cell", err), nil
	}
	at, err := nb.InsertCell(notebook.CellType(cellType), source, afterIndex)
	if err != nil {
		return toolError("notebook_add_cell", err), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_add_cell", err), nil
	}
	slog.Debug("cell added", slog.String("path", resolved), slog.Int("index", at))
	return mcp.NewToolResultText(fmt.Sprintf("Added %s cell at index %d. Notebook now has %d cells.", cellType, at, nb.Len())), nil
}

func (s *Server) editCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("cell_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	source, err := req.RequireString("source")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_edit_cell", err), nil
	}
	if err := s.store.CheckSource(source); err != nil {
		return toolError("notebook_edit_cell", err), nil
	}
	if err := nb.EditCell(index, source); err != nil {
		return toolError("notebook_edit_cell", err), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_edit_cell", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Replaced source of cell %d.", index)), nil
}

func (s *Server) deleteCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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
		return toolError("notebook_delete_cell", err), nil
	}
	if err := nb.DeleteCell(index); err != nil {
		return toolError("notebook_delete_cell", err), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_delete_cell", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Deleted cell %d. Notebook now has %d cells.", index, nb.Len())), nil
}

func (s *Server) moveCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	from, err := req.RequireInt("from_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	to, err := req.RequireInt("to_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_move_cell", err), nil
	}
	moved, err := nb.MoveCell(from, to)
	if err != nil {
		return toolError("notebook_move_cell", err), nil
	}
	if !moved {
		// Nothing changed, skip the file rewrite.
		return mcp.NewToolResultText(fmt.Sprintf("Cell %d is already at index %d. Notebook unchanged.", from, to)), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_move_cell", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Moved cell from index %d to index %d.", from, to)), nil
}

func (s *Server) splitCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("cell_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	line, err := req.RequireInt("split_at_line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_split_cell", err), nil
	}
	if err := nb.SplitCell(index, line); err != nil {
		return toolError("notebook_split_cell", err), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_split_cell", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Split cell %d at line %d into cells %d and %d.", index, line, index, index+1)), nil
}

func (s *Server) mergeCells(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	first, err := req.RequireInt("first_cell_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_merge_cells", err), nil
	}
	if err := nb.MergeCells(first); err != nil {
		return toolError("notebook_merge_cells", err), nil
	}
	merged, err := nb.Cell(first)
	if err != nil {
		return toolError("notebook_merge_cells", err), nil
	}
	if err := s.store.CheckSource(merged.Source); err != nil {
		return toolError("notebook_merge_cells", err), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_merge_cells", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Merged cell %d into cell %d. Notebook now has %d cells.", first+1, first, nb.Len())), nil
}

func (s *Server) changeCellType(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("cell_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newType, err := req.RequireString("new_type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_change_cell_type", err), nil
	}
	changed, err := nb.ChangeCellType(index, notebook.CellType(newType))
	if err != nil {
		return toolError("notebook_change_cell_type", err), nil
	}
	if !changed {
		return mcp.NewToolResultText(fmt.Sprintf("Cell %d is already a %s cell. Notebook unchanged.", index, newType)), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_change_cell_type", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Changed cell %d to type %s.", index, newType)), nil
}

func (s *Server) duplicateCell(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	index, err := req.RequireInt("cell_index")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	count := req.GetInt("count", 1)

	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_duplicate_cell", err), nil
	}
	if err := nb.DuplicateCell(index, count); err != nil {
		return toolError("notebook_duplicate_cell", err), nil
	}
	if err := s.store.Save(resolved, nb); err != nil {
		return toolError("notebook_duplicate_cell", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Duplicated cell %d %d time(s). Notebook now has %d cells.", index, count, nb.Len())), nil
}
