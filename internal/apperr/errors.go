// Package apperr defines the sentinel error kinds shared by all notebook
// operations. Call sites wrap these with fmt.Errorf and %w, adding the
// offending path, index, or size so the caller can self-correct.
package apperr

import "errors"

var (
	ErrPathRejected      = errors.New("path rejected")
	ErrNotFound          = errors.New("not found")
	ErrNotANotebook      = errors.New("not a notebook")
	ErrAlreadyExists     = errors.New("already exists")
	ErrIndexOutOfRange   = errors.New("cell index out of range")
	ErrTypeMismatch      = errors.New("cell type mismatch")
	ErrInvalidSplitPoint = errors.New("invalid split point")
	ErrInvalidCount      = errors.New("invalid count")
	ErrSourceTooLarge    = errors.New("cell source too large")
	ErrOutputTooLarge    = errors.New("cell output too large")
	ErrNotebookTooLarge  = errors.New("notebook too large")
	ErrNotACodeCell      = errors.New("not a code cell")
	ErrWrite             = errors.New("storage failure")
)
