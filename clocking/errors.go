package clocking

import (
	"errors"
	"fmt"

	"github.com/warp/worktime/calendar"
)

var (
	// ErrDayClosed is returned when an employee punches after clocking out.
	ErrDayClosed = errors.New("already clocked out for the day")

	// ErrInvalidCorrection is returned for a correction the admin may not make.
	ErrInvalidCorrection = errors.New("invalid clocking correction")
)

// Correction rejection reasons.
const (
	ReasonFutureDate    = "future_date"
	ReasonPayrollClosed = "payroll_closed"
	ReasonOutOfOrder    = "out_of_order"
)

// CorrectionError explains why a correction was refused.
type CorrectionError struct {
	EmployeeID string
	Date       calendar.Date
	Reason     string
}

func (e *CorrectionError) Error() string {
	switch e.Reason {
	case ReasonFutureDate:
		return fmt.Sprintf("cannot set a clocking for %s: date is in the future", e.Date)
	case ReasonPayrollClosed:
		return fmt.Sprintf("cannot update clockings for %s: payroll has been processed", e.Date)
	case ReasonOutOfOrder:
		return fmt.Sprintf("clock in must be before clock out for %s on %s", e.EmployeeID, e.Date)
	default:
		return fmt.Sprintf("invalid correction for %s on %s: %s", e.EmployeeID, e.Date, e.Reason)
	}
}

func (e *CorrectionError) Unwrap() error {
	return ErrInvalidCorrection
}

// DayClosedError reports the clock-out that closed the day.
type DayClosedError struct {
	EmployeeID string
	Date       calendar.Date
	ClockedOut string
}

func (e *DayClosedError) Error() string {
	return fmt.Sprintf("%s already clocked out at %s on %s", e.EmployeeID, e.ClockedOut, e.Date)
}

func (e *DayClosedError) Unwrap() error {
	return ErrDayClosed
}
