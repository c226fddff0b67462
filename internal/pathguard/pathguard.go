// Package pathguard validates that file paths stay inside the configured
// allowed root directories. Every operation that touches the file system
// resolves its paths here before any I/O.
package pathguard

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/starford/ansuz/internal/apperr"
)

// NotebookExt is the only file extension the server reads or writes notebooks under.
const NotebookExt = ".ipynb"

// Guard holds the resolved allowed roots. Roots are fixed at construction
// and never change for the lifetime of the process.
type Guard struct {
	roots []string
}

// New resolves each root and returns a Guard. Roots must be absolute paths
// to existing directories.
func New(roots []string) (*Guard, error) {
	if len(roots) == 0 {
		return nil, fmt.Errorf("pathguard: at least one allowed root is required")
	}
	resolved := make([]string, 0, len(roots))
	for _, r := range roots {
		if !filepath.IsAbs(r) {
			return nil, fmt.Errorf("pathguard: root must be absolute: %s", r)
		}
		abs, err := filepath.EvalSymlinks(r)
		if err != nil {
			return nil, fmt.Errorf("pathguard: resolve root %s: %w", r, err)
		}
		info, err := os.Stat(abs)
		if err != nil {
			return nil, fmt.Errorf("pathguard: stat root %s: %w", r, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("pathguard: root is not a directory: %s", r)
		}
		resolved = append(resolved, abs)
	}
	return &Guard{roots: resolved}, nil
}

// Roots returns the resolved allowed roots.
func (g *Guard) Roots() []string {
	out := make([]string, len(g.roots))
	copy(out, g.roots)
	return out
}

// Resolve canonicalizes path (following symlinks) and verifies the result is
// equal to or a descendant of one of the allowed roots. The file itself need
// not exist: symlinks are resolved through the deepest existing ancestor so
// that create and rename destinations are validated too.
func (g *Guard) Resolve(path string) (string, error) {
	if !filepath.IsAbs(path) {
		return "", fmt.Errorf("%w: only absolute paths are allowed: %s", apperr.ErrPathRejected, path)
	}
	abs, err := resolveSymlinks(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve %s: %v", apperr.ErrPathRejected, path, err)
	}
	for _, root := range g.roots {
		if abs == root || strings.HasPrefix(abs, root+string(os.PathSeparator)) {
			return abs, nil
		}
	}
	return "", fmt.Errorf("%w: %s is outside the allowed roots", apperr.ErrPathRejected, path)
}

// ResolveNotebook is Resolve plus the notebook extension check.
func (g *Guard) ResolveNotebook(path string) (string, error) {
	if !strings.HasSuffix(path, NotebookExt) {
		return "", fmt.Errorf("%w: %s must point to a %s file", apperr.ErrPathRejected, path, NotebookExt)
	}
	return g.Resolve(path)
}

// resolveSymlinks follows symlinks like filepath.EvalSymlinks but tolerates a
// trailing suffix that does not exist yet: it walks up to the deepest existing
// ancestor, resolves that, and rejoins the remainder.
func resolveSymlinks(path string) (string, error) {
	var trailing []string
	cur := path
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(trailing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, trailing[i])
			}
			return resolved, nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", err
		}
		trailing = append(trailing, filepath.Base(cur))
		cur = parent
	}
}
