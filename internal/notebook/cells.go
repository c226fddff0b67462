package notebook

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/starford/ansuz/internal/apperr"
)

// The structural operations below mutate only the in-memory cell sequence.
// All index validation happens before the first mutation, so a failed
// operation leaves the notebook exactly as loaded.

// InsertCell inserts a new cell of the given type immediately after
// afterIndex and returns the position of the new cell. afterIndex -1 inserts
// at the front; afterIndex len-1 appends.
func (nb *Notebook) InsertCell(t CellType, source string, afterIndex int) (int, error) {
	if !ValidCellType(t) {
		return 0, fmt.Errorf("%w: invalid cell type %q", apperr.ErrTypeMismatch, t)
	}
	at := afterIndex + 1
	if at < 0 || at > len(nb.Cells) {
		return 0, fmt.Errorf("%w: insertion point %d (after index %d), notebook has %d cells",
			apperr.ErrIndexOutOfRange, at, afterIndex, len(nb.Cells))
	}
	cell := NewCell(t, source)
	nb.Cells = append(nb.Cells, Cell{})
	copy(nb.Cells[at+1:], nb.Cells[at:])
	nb.Cells[at] = cell
	return at, nil
}

// EditCell replaces the source of the cell at index.
func (nb *Notebook) EditCell(index int, source string) error {
	cell, err := nb.Cell(index)
	if err != nil {
		return err
	}
	cell.Source = source
	return nil
}

// DeleteCell removes the cell at index; later cells shift down by one.
// Deleting the only remaining cell is allowed and leaves an empty notebook.
func (nb *Notebook) DeleteCell(index int) error {
	if err := nb.CheckIndex(index); err != nil {
		return err
	}
	nb.Cells = append(nb.Cells[:index], nb.Cells[index+1:]...)
	return nil
}

// MoveCell removes the cell at from and re-inserts it so that it ends up at
// position to in the resulting sequence. It reports whether the sequence
// actually changed: from == to is the only no-op. There is no adjacency
// special case; moving index 0 to 1 in a two-cell notebook swaps the cells.
func (nb *Notebook) MoveCell(from, to int) (bool, error) {
	n := len(nb.Cells)
	if from < 0 || from >= n {
		return false, fmt.Errorf("%w: source index %d, notebook has %d cells", apperr.ErrIndexOutOfRange, from, n)
	}
	if to < 0 || to >= n {
		return false, fmt.Errorf("%w: destination index %d, notebook has %d cells", apperr.ErrIndexOutOfRange, to, n)
	}
	if from == to {
		return false, nil
	}
	cell := nb.Cells[from]
	rest := append(nb.Cells[:from], nb.Cells[from+1:]...)
	rest = append(rest, Cell{})
	copy(rest[to+1:], rest[to:])
	rest[to] = cell
	nb.Cells = rest
	return true, nil
}

// SplitCell splits the cell at index at the boundary before the 1-based line
// splitAtLine, replacing it with two cells of the same type at index and
// index+1. Splitting at the first line leaves an empty first cell; splitting
// at a trailing empty line leaves an empty second cell. A split code cell has
// its outputs cleared, since neither half can claim the old execution.
func (nb *Notebook) SplitCell(index, splitAtLine int) error {
	cell, err := nb.Cell(index)
	if err != nil {
		return err
	}
	lines := cell.Lines()
	if splitAtLine < 1 || splitAtLine > len(lines) {
		return fmt.Errorf("%w: line %d, cell %d has %d lines", apperr.ErrInvalidSplitPoint, splitAtLine, index, len(lines))
	}

	first := strings.Join(lines[:splitAtLine-1], "\n")
	second := strings.Join(lines[splitAtLine-1:], "\n")

	tail := cell.Clone()
	tail.ID = uuid.New().String()
	tail.Source = second
	tail.ClearOutputs()

	cell.Source = first
	cell.ClearOutputs()

	nb.Cells = append(nb.Cells, Cell{})
	copy(nb.Cells[index+2:], nb.Cells[index+1:])
	nb.Cells[index+1] = tail
	return nil
}

// MergeCells concatenates the sources of the cells at first and first+1
// (joined with a newline) into the cell at first, then removes the following
// cell. Both cells must have the same type. Outputs of the retained cell are
// cleared: the semantics of the merged code are undefined once source changes.
func (nb *Notebook) MergeCells(first int) error {
	if err := nb.CheckIndex(first); err != nil {
		return err
	}
	if first == len(nb.Cells)-1 {
		return fmt.Errorf("%w: index %d is the last cell, nothing to merge", apperr.ErrIndexOutOfRange, first)
	}
	a := &nb.Cells[first]
	b := &nb.Cells[first+1]
	if a.Type != b.Type {
		return fmt.Errorf("%w: cannot merge %s cell %d with %s cell %d",
			apperr.ErrTypeMismatch, a.Type, first, b.Type, first+1)
	}
	a.Source = a.Source + "\n" + b.Source
	a.ClearOutputs()
	nb.Cells = append(nb.Cells[:first+1], nb.Cells[first+2:]...)
	return nil
}

// ChangeCellType re-tags the cell at index. Converting from code drops
// outputs and the execution count; converting to code initializes them empty
// and discards attachments. Converting to the current type is a successful
// no-op; the return value reports whether anything changed.
func (nb *Notebook) ChangeCellType(index int, newType CellType) (bool, error) {
	if !ValidCellType(newType) {
		return false, fmt.Errorf("%w: invalid cell type %q", apperr.ErrTypeMismatch, newType)
	}
	cell, err := nb.Cell(index)
	if err != nil {
		return false, err
	}
	if cell.Type == newType {
		return false, nil
	}
	cell.Type = newType
	if newType == CellCode {
		cell.Outputs = []Output{}
		cell.ExecutionCount = nil
		cell.Attachments = nil
	} else {
		cell.Outputs = nil
		cell.ExecutionCount = nil
	}
	return true, nil
}

// DuplicateCell inserts count independent copies of the cell at index
// immediately after it. Copies share no mutable state with the original,
// carry fresh IDs, and never claim the original's execution results.
func (nb *Notebook) DuplicateCell(index, count int) error {
	if err := nb.CheckIndex(index); err != nil {
		return err
	}
	if count < 1 {
		return fmt.Errorf("%w: count must be at least 1, got %d", apperr.ErrInvalidCount, count)
	}
	src := nb.Cells[index]
	copies := make([]Cell, count)
	for i := range copies {
		dup := src.Clone()
		dup.ID = uuid.New().String()
		dup.ClearOutputs()
		copies[i] = dup
	}
	nb.Cells = append(nb.Cells[:index+1], append(copies, nb.Cells[index+1:]...)...)
	return nil
}
