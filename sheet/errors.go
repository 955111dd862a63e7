package sheet

import (
	"errors"
	"fmt"
)

var (
	// ErrStorage is the sentinel every StorageError unwraps to.
	ErrStorage = errors.New("storage failure")

	// ErrRowNotFound is returned by FindRow when no row matches.
	ErrRowNotFound = errors.New("row not found")

	// ErrUnknownSheet is returned for a sheet name the store does not hold.
	ErrUnknownSheet = errors.New("unknown sheet")
)

// StorageError wraps any failure of the underlying store.
type StorageError struct {
	Op    string // read_all, append_row, update_cell, find_row, update_cells
	Sheet string
	Err   error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s on %s: %v", e.Op, e.Sheet, e.Err)
}

// Unwrap exposes both ErrStorage and the cause so callers can match either.
func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}

// Wrap returns nil for a nil err, passes ErrRowNotFound through untouched
// and wraps everything else in a *StorageError.
func Wrap(op, sheetName string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrRowNotFound) {
		return err
	}
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Sheet: sheetName, Err: err}
}

// IsStorage reports whether err came from the store.
func IsStorage(err error) bool {
	return errors.Is(err, ErrStorage)
}
