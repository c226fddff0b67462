// Package notebook implements the in-memory Jupyter notebook document model
// and the structural operations over its cell sequence.
//
// A Notebook exists only for the duration of one operation: it is loaded from
// disk, mutated in place, saved, and discarded. Fields the operations do not
// touch round-trip through load and save unchanged; unknown keys on the
// document and on individual cells are carried verbatim in a raw side-map.
package notebook

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
)

// CellType tags a cell as code, markdown, or raw.
type CellType string

const (
	CellCode     CellType = "code"
	CellMarkdown CellType = "markdown"
	CellRaw      CellType = "raw"
)

// ValidCellType reports whether t is one of the three notebook cell types.
func ValidCellType(t CellType) bool {
	return t == CellCode || t == CellMarkdown || t == CellRaw
}

// Output is an opaque output record of a code cell. Its internal shape is not
// interpreted by the mutation engine; only its serialized size is inspected.
type Output = json.RawMessage

// Cell is one unit of a notebook. Source is the full textual content as a
// single newline-delimited string. Outputs and ExecutionCount exist only on
// code cells; Attachments only on markdown and raw cells.
type Cell struct {
	Type           CellType
	ID             string
	Source         string
	Metadata       map[string]any
	Attachments    map[string]any
	Outputs        []Output
	ExecutionCount *int

	// Unknown on-disk keys, preserved byte-for-byte across load and save.
	extra map[string]json.RawMessage
}

// NewCell returns a fresh cell of the given type with a new ID and empty
// metadata. Code cells start with an empty output list and no execution count.
func NewCell(t CellType, source string) Cell {
	c := Cell{
		Type:     t,
		ID:       uuid.New().String(),
		Source:   source,
		Metadata: map[string]any{},
	}
	if t == CellCode {
		c.Outputs = []Output{}
	}
	return c
}

// Lines splits the cell source on newlines. An empty source is one empty line.
func (c *Cell) Lines() []string {
	return strings.Split(c.Source, "\n")
}

// Clone returns a deep copy sharing no mutable state with the receiver.
func (c *Cell) Clone() Cell {
	data, err := json.Marshal(c)
	if err != nil {
		// Cells are built from decoded JSON; re-encoding cannot fail.
		panic(fmt.Sprintf("notebook: clone cell: %v", err))
	}
	var out Cell
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("notebook: clone cell: %v", err))
	}
	return out
}

// ClearOutputs drops outputs and the execution count of a code cell. It
// reports whether anything was actually cleared.
func (c *Cell) ClearOutputs() bool {
	if c.Type != CellCode {
		return false
	}
	cleared := false
	if len(c.Outputs) > 0 {
		cleared = true
	}
	c.Outputs = []Output{}
	if c.ExecutionCount != nil {
		c.ExecutionCount = nil
		cleared = true
	}
	return cleared
}

// cell source is stored on disk as either a single string or a list of lines
// (each carrying its own trailing newline). joinSource normalizes to the
// in-memory single-string form; splitSource converts back for serialization.

func joinSource(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var lines []string
	if err := json.Unmarshal(raw, &lines); err != nil {
		return "", fmt.Errorf("source is neither string nor list of strings")
	}
	return strings.Join(lines, ""), nil
}

func splitSource(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.SplitAfter(s, "\n")
	if parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}
	return parts
}

// UnmarshalJSON decodes a cell, normalizing the source to a single string and
// stashing unrecognized keys for lossless re-serialization.
func (c *Cell) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	take := func(key string, dst any) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		return json.Unmarshal(raw, dst)
	}

	var typ string
	if err := take("cell_type", &typ); err != nil {
		return fmt.Errorf("cell_type: %w", err)
	}
	c.Type = CellType(typ)
	if !ValidCellType(c.Type) {
		return fmt.Errorf("unknown cell_type %q", typ)
	}
	if err := take("id", &c.ID); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	if raw, ok := fields["source"]; ok {
		delete(fields, "source")
		src, err := joinSource(raw)
		if err != nil {
			return err
		}
		c.Source = src
	}
	if err := take("metadata", &c.Metadata); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if c.Metadata == nil {
		c.Metadata = map[string]any{}
	}
	if err := take("attachments", &c.Attachments); err != nil {
		return fmt.Errorf("attachments: %w", err)
	}
	if c.Type == CellCode {
		if err := take("outputs", &c.Outputs); err != nil {
			return fmt.Errorf("outputs: %w", err)
		}
		if c.Outputs == nil {
			c.Outputs = []Output{}
		}
		if err := take("execution_count", &c.ExecutionCount); err != nil {
			return fmt.Errorf("execution_count: %w", err)
		}
	}
	// A malformed document may carry outputs or execution_count on a
	// non-code cell; those stay in the extras map and round-trip as-is.

	if len(fields) > 0 {
		c.extra = fields
	} else {
		c.extra = nil
	}
	return nil
}

// MarshalJSON encodes the cell in the on-disk form: source as a list of
// lines, outputs and execution_count present only for code cells, and any
// preserved unknown keys merged back in. Keys serialize alphabetically,
// matching how Jupyter itself writes notebook files.
func (c Cell) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(c.extra)+7)
	for k, v := range c.extra {
		m[k] = v
	}

	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		m[key] = raw
		return nil
	}

	if err := put("cell_type", string(c.Type)); err != nil {
		return nil, err
	}
	if c.ID != "" {
		if err := put("id", c.ID); err != nil {
			return nil, err
		}
	}
	if err := put("source", splitSource(c.Source)); err != nil {
		return nil, err
	}
	meta := c.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if err := put("metadata", meta); err != nil {
		return nil, err
	}
	if c.Attachments != nil {
		if err := put("attachments", c.Attachments); err != nil {
			return nil, err
		}
	}
	if c.Type == CellCode {
		outs := c.Outputs
		if outs == nil {
			outs = []Output{}
		}
		if err := put("outputs", outs); err != nil {
			return nil, err
		}
		if err := put("execution_count", c.ExecutionCount); err != nil {
			return nil, err
		}
	}
	return json.Marshal(m)
}

// Notebook is the full document: an ordered cell sequence plus document-level
// metadata and the format-version marker.
type Notebook struct {
	Cells         []Cell
	Metadata      map[string]any
	NBFormat      int
	NBFormatMinor int

	extra map[string]json.RawMessage
}

// New returns an empty notebook in the current format version.
func New() *Notebook {
	return &Notebook{
		Cells:         []Cell{},
		Metadata:      map[string]any{},
		NBFormat:      4,
		NBFormatMinor: 5,
	}
}

// Len returns the number of cells.
func (nb *Notebook) Len() int { return len(nb.Cells) }

// CheckIndex validates a zero-based cell index against the current sequence.
func (nb *Notebook) CheckIndex(index int) error {
	if index < 0 || index >= len(nb.Cells) {
		return fmt.Errorf("%w: index %d, notebook has %d cells", apperr.ErrIndexOutOfRange, index, len(nb.Cells))
	}
	return nil
}

// Cell returns a pointer to the cell at index.
func (nb *Notebook) Cell(index int) (*Cell, error) {
	if err := nb.CheckIndex(index); err != nil {
		return nil, err
	}
	return &nb.Cells[index], nil
}

func (nb *Notebook) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}

	take := func(key string, dst any) error {
		raw, ok := fields[key]
		if !ok {
			return nil
		}
		delete(fields, key)
		return json.Unmarshal(raw, dst)
	}

	if err := take("nbformat", &nb.NBFormat); err != nil {
		return fmt.Errorf("nbformat: %w", err)
	}
	if err := take("nbformat_minor", &nb.NBFormatMinor); err != nil {
		return fmt.Errorf("nbformat_minor: %w", err)
	}
	if nb.NBFormat < 4 {
		return fmt.Errorf("unsupported nbformat %d (need 4 or later)", nb.NBFormat)
	}
	rawCells, ok := fields["cells"]
	if !ok {
		return fmt.Errorf("missing cells list")
	}
	delete(fields, "cells")
	if err := json.Unmarshal(rawCells, &nb.Cells); err != nil {
		return fmt.Errorf("cells: %w", err)
	}
	if nb.Cells == nil {
		nb.Cells = []Cell{}
	}
	if err := take("metadata", &nb.Metadata); err != nil {
		return fmt.Errorf("metadata: %w", err)
	}
	if nb.Metadata == nil {
		nb.Metadata = map[string]any{}
	}

	if len(fields) > 0 {
		nb.extra = fields
	} else {
		nb.extra = nil
	}
	return nil
}

func (nb Notebook) MarshalJSON() ([]byte, error) {
	m := make(map[string]json.RawMessage, len(nb.extra)+4)
	for k, v := range nb.extra {
		m[k] = v
	}

	put := func(key string, v any) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		m[key] = raw
		return nil
	}

	cells := nb.Cells
	if cells == nil {
		cells = []Cell{}
	}
	if err := put("cells", cells); err != nil {
		return nil, err
	}
	meta := nb.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	if err := put("metadata", meta); err != nil {
		return nil, err
	}
	if err := put("nbformat", nb.NBFormat); err != nil {
		return nil, err
	}
	if err := put("nbformat_minor", nb.NBFormatMinor); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}
