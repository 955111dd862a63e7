package calendar

import (
	"errors"
	"fmt"
)

var (
	// ErrFormat is returned when text does not have the expected shape.
	ErrFormat = errors.New("malformed value")

	// ErrInvalidDate is returned when well-formed text names a date or
	// time that does not exist.
	ErrInvalidDate = errors.New("invalid date")
)

// FormatError reports text that could not be split into numeric fields.
type FormatError struct {
	Kind  string // "date" or "time"
	Value string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("malformed %s %q", e.Kind, e.Value)
}

func (e *FormatError) Unwrap() error {
	return ErrFormat
}

// InvalidDateError reports a calendar value that does not exist.
type InvalidDateError struct {
	Value string
}

func (e *InvalidDateError) Error() string {
	return fmt.Sprintf("invalid date or time %q", e.Value)
}

func (e *InvalidDateError) Unwrap() error {
	return ErrInvalidDate
}
