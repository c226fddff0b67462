package mcpserver

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/ansuz/internal/apperr"
	"github.com/starford/ansuz/internal/export"
	"github.com/starford/ansuz/internal/notebook"
)

func (s *Server) createNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.guard.ResolveNotebook(path)
	if err != nil {
		return toolError("notebook_create", err), nil
	}
	if _, err := os.Stat(resolved); err == nil {
		return toolError("notebook_create", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, resolved)), nil
	} else if !os.IsNotExist(err) {
		return toolError("notebook_create", fmt.Errorf("stat %s: %w", resolved, err)), nil
	}
	if err := s.store.Save(resolved, notebook.New()); err != nil {
		return toolError("notebook_create", err), nil
	}
	slog.Info("notebook created", slog.String("path", resolved))
	return mcp.NewToolResultText(fmt.Sprintf("Created empty notebook at %s.", resolved)), nil
}

func (s *Server) deleteNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.guard.ResolveNotebook(path)
	if err != nil {
		return toolError("notebook_delete", err), nil
	}
	if err := os.Remove(resolved); err != nil {
		if os.IsNotExist(err) {
			return toolError("notebook_delete", fmt.Errorf("%w: notebook file %s", apperr.ErrNotFound, resolved)), nil
		}
		return toolError("notebook_delete", fmt.Errorf("remove %s: %w", resolved, err)), nil
	}
	slog.Info("notebook deleted", slog.String("path", resolved))
	return mcp.NewToolResultText(fmt.Sprintf("Deleted notebook %s.", resolved)), nil
}

func (s *Server) renameNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldPath, err := req.RequireString("old_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newPath, err := req.RequireString("new_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	oldResolved, err := s.guard.ResolveNotebook(oldPath)
	if err != nil {
		return toolError("notebook_rename", err), nil
	}
	newResolved, err := s.guard.ResolveNotebook(newPath)
	if err != nil {
		return toolError("notebook_rename", err), nil
	}
	if _, err := os.Stat(oldResolved); err != nil {
		if os.IsNotExist(err) {
			return toolError("notebook_rename", fmt.Errorf("%w: notebook file %s", apperr.ErrNotFound, oldResolved)), nil
		}
		return toolError("notebook_rename", fmt.Errorf("stat %s: %w", oldResolved, err)), nil
	}
	if _, err := os.Stat(newResolved); err == nil {
		return toolError("notebook_rename", fmt.Errorf("%w: %s", apperr.ErrAlreadyExists, newResolved)), nil
	} else if !os.IsNotExist(err) {
		return toolError("notebook_rename", fmt.Errorf("stat %s: %w", newResolved, err)), nil
	}
	if err := os.Rename(oldResolved, newResolved); err != nil {
		return toolError("notebook_rename", fmt.Errorf("rename: %w", err)), nil
	}
	slog.Info("notebook renamed", slog.String("from", oldResolved), slog.String("to", newResolved))
	return mcp.NewToolResultText(fmt.Sprintf("Renamed notebook %s to %s.", oldResolved, newResolved)), nil
}

func (s *Server) validateNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	resolved, err := s.guard.ResolveNotebook(path)
	if err != nil {
		return toolError("notebook_validate", err), nil
	}
	nb, err := s.store.Load(resolved)
	if err != nil {
		return mcp.NewToolResultText(fmt.Sprintf("Notebook is invalid: %v", err)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Notebook is valid (nbformat %d.%d, %d cells).", nb.NBFormat, nb.NBFormatMinor, nb.Len())), nil
}

func (s *Server) exportNotebook(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := req.RequireString("notebook_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	format, err := req.RequireString("export_format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputPath, err := req.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ext, ok := export.Extension(format)
	if !ok {
		return toolError("notebook_export", fmt.Errorf("unsupported export format %q (use python, script, or markdown)", format)), nil
	}
	resolved, nb, err := s.loadNotebook(path)
	if err != nil {
		return toolError("notebook_export", err), nil
	}
	outResolved, err := s.guard.Resolve(outputPath)
	if err != nil {
		return toolError("notebook_export", err), nil
	}
	if !strings.HasSuffix(outResolved, ext) {
		return toolError("notebook_export", fmt.Errorf("output path %s must end in %s for format %s", outResolved, ext, format)), nil
	}
	rendered, err := export.Render(nb, format)
	if err != nil {
		return toolError("notebook_export", err), nil
	}
	if err := writeFileAtomic(outResolved, []byte(rendered)); err != nil {
		return toolError("notebook_export", err), nil
	}
	slog.Info("notebook exported", slog.String("from", resolved), slog.String("to", outResolved), slog.String("format", format))
	return mcp.NewToolResultText(fmt.Sprintf("Exported notebook to %s.", outResolved)), nil
}

// writeFileAtomic writes exported content with the same temp-and-rename
// discipline the notebook store uses.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".ansuz-tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp in %s: %v", apperr.ErrWrite, dir, err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("%w: write temp: %v", apperr.ErrWrite, err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %v", apperr.ErrWrite, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close temp: %v", apperr.ErrWrite, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("%w: rename into place: %v", apperr.ErrWrite, err)
	}
	success = true
	return nil
}
