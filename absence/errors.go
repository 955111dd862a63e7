/*
errors.go - Error types for the absence core

PURPOSE:
  All error types in one place. Every structured error unwraps to a
  sentinel so callers can branch with errors.Is and still read details
  with errors.As.

ERROR CATEGORIES:
  1. Input errors      - calendar.FormatError, calendar.InvalidDateError
  2. Rule violations   - InvalidRangeError, InsufficientBalanceError,
                         InvalidTransitionError, ErrForbidden
  3. Lookup failures   - ErrRequestNotFound, ErrEntitlementNotFound
  4. Storage failures  - sheet.StorageError, PartialWriteError

CodeOf maps any of these to the short code the HTTP layer returns.
*/
package absence

import (
	"errors"
	"fmt"

	"github.com/warp/worktime/calendar"
	"github.com/warp/worktime/sheet"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrInvalidRange        = errors.New("invalid date range")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInvalidTransition   = errors.New("invalid transition")

	// ErrUnsupportedTransfer is returned for a bucket pair that no flow uses.
	ErrUnsupportedTransfer = errors.New("unsupported bucket transfer")

	ErrRequestNotFound     = errors.New("request not found")
	ErrEntitlementNotFound = errors.New("entitlement not found")
	ErrEntitlementExists   = errors.New("entitlement already exists")

	// ErrForbidden is returned when the actor lacks the role for an operation.
	ErrForbidden = errors.New("forbidden")

	// ErrPartialWrite is returned when a flow stopped between two writes.
	ErrPartialWrite = errors.New("partial write")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// Range rejection reasons.
const (
	ReasonEndBeforeStart   = "end_before_start"
	ReasonNotSingleDay     = "not_single_day"
	ReasonTooFewWeekdays   = "too_few_weekdays"
	ReasonPastDate         = "past_date"
	ReasonOtherYear        = "other_year"
	ReasonWeekend          = "weekend"
	ReasonNonPositiveHours = "non_positive_hours"
	ReasonOutsideMonth     = "outside_month"
)

// InvalidRangeError rejects a date range or quantity before any write.
type InvalidRangeError struct {
	Start    calendar.Date
	End      calendar.Date
	Weekdays int
	Reason   string
}

func (e *InvalidRangeError) Error() string {
	switch e.Reason {
	case ReasonTooFewWeekdays:
		return fmt.Sprintf("invalid range %s..%s: %d weekday(s), need at least 2", e.Start, e.End, e.Weekdays)
	case ReasonNonPositiveHours:
		return "invalid range: hours must be positive"
	default:
		return fmt.Sprintf("invalid range %s..%s: %s", e.Start, e.End, e.Reason)
	}
}

func (e *InvalidRangeError) Unwrap() error {
	return ErrInvalidRange
}

// InsufficientBalanceError reports a bucket that cannot cover a request.
type InsufficientBalanceError struct {
	EmployeeID string
	Bucket     Bucket
	Available  Hours
	Requested  Hours
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s hours for %s: available %d, requested %d",
		e.Bucket, e.EmployeeID, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// InvalidTransitionError reports a request state change that is not allowed.
type InvalidTransitionError struct {
	RequestID int
	From      string // current state, e.g. "rejected", "cancelled", "started"
	Action    string // approve, reject, cancel
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %d: %s", e.Action, e.RequestID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// PartialWriteError reports a flow whose first write landed and whose
// second did not. Reconcile repairs the buckets from the request rows.
type PartialWriteError struct {
	Step      string // the step that completed, e.g. "request_created"
	RequestID int
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("partial write after %s (request %d): %v", e.Step, e.RequestID, e.Err)
}

func (e *PartialWriteError) Unwrap() []error {
	return []error{ErrPartialWrite, e.Err}
}

// =============================================================================
// ERROR CODES
// =============================================================================

// Code is the short machine-readable error reason given to the outer layer.
type Code string

const (
	CodeFormat              Code = "format"
	CodeInvalidDate         Code = "invalid_date"
	CodeInvalidRange        Code = "invalid_range"
	CodeInsufficientBalance Code = "insufficient_balance"
	CodeInvalidTransition   Code = "invalid_transition"
	CodeNotFound            Code = "not_found"
	CodeConflict            Code = "conflict"
	CodeForbidden           Code = "forbidden"
	CodeStorage             Code = "storage"
	CodeInternal            Code = "internal"
)

// CodeOf classifies err. A nil error has no code.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, calendar.ErrFormat):
		return CodeFormat
	case errors.Is(err, calendar.ErrInvalidDate):
		return CodeInvalidDate
	case errors.Is(err, ErrInvalidRange):
		return CodeInvalidRange
	case errors.Is(err, ErrInsufficientBalance):
		return CodeInsufficientBalance
	case errors.Is(err, ErrInvalidTransition):
		return CodeInvalidTransition
	case errors.Is(err, ErrRequestNotFound), errors.Is(err, ErrEntitlementNotFound):
		return CodeNotFound
	case errors.Is(err, ErrEntitlementExists):
		return CodeConflict
	case errors.Is(err, ErrForbidden):
		return CodeForbidden
	case errors.Is(err, sheet.ErrStorage), errors.Is(err, ErrPartialWrite):
		return CodeStorage
	default:
		return CodeInternal
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return sheet.IsStorage(err) && !errors.Is(err, ErrPartialWrite)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	switch CodeOf(err) {
	case CodeFormat, CodeInvalidDate, CodeInvalidRange, CodeInsufficientBalance,
		CodeInvalidTransition, CodeConflict, CodeForbidden:
		return true
	}
	return false
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) || errors.Is(err, ErrEntitlementNotFound)
}
