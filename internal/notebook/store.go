package notebook

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/starford/ansuz/internal/apperr"
)

// Store loads and saves notebook files and enforces the configured size
// ceilings. Paths passed to Load and Save must already have been resolved by
// the path guard; the store performs no containment checks of its own.
type Store struct {
	MaxNotebookBytes int
	MaxSourceBytes   int
	MaxOutputBytes   int
}

// NewStore returns a store with the given ceilings (all in bytes).
func NewStore(maxNotebook, maxSource, maxOutput int) *Store {
	return &Store{
		MaxNotebookBytes: maxNotebook,
		MaxSourceBytes:   maxSource,
		MaxOutputBytes:   maxOutput,
	}
}

// Load reads and parses the notebook at path. A structurally invalid file
// fails with ErrNotANotebook rather than producing a partial document.
func (s *Store) Load(path string) (*Notebook, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: notebook file %s", apperr.ErrNotFound, path)
		}
		return nil, fmt.Errorf("%w: stat %s: %v", apperr.ErrWrite, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", apperr.ErrNotANotebook, path)
	}
	if s.MaxNotebookBytes > 0 && info.Size() > int64(s.MaxNotebookBytes) {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d", apperr.ErrNotebookTooLarge, path, info.Size(), s.MaxNotebookBytes)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", apperr.ErrWrite, path, err)
	}
	nb := &Notebook{}
	if err := json.Unmarshal(data, nb); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", apperr.ErrNotANotebook, path, err)
	}
	return nb, nil
}

// Save serializes the whole notebook and writes it atomically: temp file in
// the target directory, fsync, rename. A crash mid-write never leaves a
// corrupt file under the original name.
func (s *Store) Save(path string, nb *Notebook) error {
	data, err := json.MarshalIndent(nb, "", " ")
	if err != nil {
		return fmt.Errorf("%w: serialize notebook: %v", apperr.ErrWrite, err)
	}
	data = append(data, '\n')
	if s.MaxNotebookBytes > 0 && len(data) > s.MaxNotebookBytes {
		return fmt.Errorf("%w: serialized notebook is %d bytes, limit is %d", apperr.ErrNotebookTooLarge, len(data), s.MaxNotebookBytes)
	}

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

// CheckSource fails with ErrSourceTooLarge when the source exceeds the
// configured per-cell ceiling. Checked after a mutation is computed and
// before it is committed, so a rejected operation never reaches disk.
func (s *Store) CheckSource(source string) error {
	if s.MaxSourceBytes > 0 && len(source) > s.MaxSourceBytes {
		return fmt.Errorf("%w: %d bytes, limit is %d", apperr.ErrSourceTooLarge, len(source), s.MaxSourceBytes)
	}
	return nil
}

// CheckOutputs fails with ErrOutputTooLarge when the serialized outputs of a
// cell exceed the configured ceiling.
func (s *Store) CheckOutputs(c *Cell) error {
	if s.MaxOutputBytes <= 0 || len(c.Outputs) == 0 {
		return nil
	}
	total := 0
	for _, out := range c.Outputs {
		total += len(out)
	}
	if total > s.MaxOutputBytes {
		return fmt.Errorf("%w: %d bytes serialized, limit is %d", apperr.ErrOutputTooLarge, total, s.MaxOutputBytes)
	}
	return nil
}
