/*
types.go - Core types for absence entitlements and requests

PURPOSE:
  Defines the vocabulary of the absence core: hours, buckets, approval
  states, duration codes, actors, entitlement records and requests.

UNITS:
  Hours is the only unit used for arithmetic. The absence_requests sheet
  stores durations in days ("0.5", "1", "10"); conversion happens in
  row.go and nowhere else.

WIRE ENCODING:
  ApprovalState is a proper enum internally and is written to the sheet
  as "/" (pending), "True" (approved) or "False" (rejected) so existing
  spreadsheet data keeps working.

SEE ALSO:
  - row.go: sheet row <-> struct conversion
  - rules.go: how durations map to hours
*/
package absence

import (
	"fmt"
	"strings"

	"github.com/warp/worktime/calendar"
)

// =============================================================================
// HOURS AND BUCKETS
// =============================================================================

// Hours is a whole number of work hours.
type Hours int

// HoursPerDay is the length of one working day.
const HoursPerDay Hours = 8

// HalfDay is the length of a morning or afternoon absence.
const HalfDay Hours = 4

// Bucket is one of the four subdivisions of a yearly allowance.
type Bucket int

const (
	BucketTaken Bucket = iota
	BucketPlanned
	BucketPending
	BucketUnallocated
)

func (b Bucket) String() string {
	switch b {
	case BucketTaken:
		return "taken"
	case BucketPlanned:
		return "planned"
	case BucketPending:
		return "pending"
	case BucketUnallocated:
		return "unallocated"
	default:
		return fmt.Sprintf("bucket(%d)", int(b))
	}
}

// =============================================================================
// ENTITLEMENT
// =============================================================================

// Entitlement is one employee's allowance for the current leave year.
// Taken+Planned+Pending+Unallocated always equals Total.
type Entitlement struct {
	EmployeeID  string `json:"employee_id"`
	Total       Hours  `json:"total"`
	Taken       Hours  `json:"taken"`
	Planned     Hours  `json:"planned"`
	Pending     Hours  `json:"pending"`
	Unallocated Hours  `json:"unallocated"`
}

// NewEntitlement returns an allowance with every hour unallocated.
func NewEntitlement(employeeID string, total Hours) Entitlement {
	return Entitlement{EmployeeID: employeeID, Total: total, Unallocated: total}
}

// In returns the hours held in b.
func (e Entitlement) In(b Bucket) Hours {
	switch b {
	case BucketTaken:
		return e.Taken
	case BucketPlanned:
		return e.Planned
	case BucketPending:
		return e.Pending
	default:
		return e.Unallocated
	}
}

func (e *Entitlement) add(b Bucket, h Hours) {
	switch b {
	case BucketTaken:
		e.Taken += h
	case BucketPlanned:
		e.Planned += h
	case BucketPending:
		e.Pending += h
	default:
		e.Unallocated += h
	}
}

// Sum adds the four buckets.
func (e Entitlement) Sum() Hours {
	return e.Taken + e.Planned + e.Pending + e.Unallocated
}

// Balanced reports whether the buckets add up to Total and none is negative.
func (e Entitlement) Balanced() bool {
	return e.Sum() == e.Total &&
		e.Taken >= 0 && e.Planned >= 0 && e.Pending >= 0 && e.Unallocated >= 0
}

// =============================================================================
// APPROVAL STATE
// =============================================================================

// ApprovalState is the admin's decision on a request. The zero value is
// Pending.
type ApprovalState int

const (
	Pending ApprovalState = iota
	Approved
	Rejected
)

func (s ApprovalState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Approved:
		return "approved"
	case Rejected:
		return "rejected"
	default:
		return fmt.Sprintf("approval(%d)", int(s))
	}
}

// MarshalText renders the state for JSON.
func (s ApprovalState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Legacy sheet encoding.
const (
	wirePending  = "/"
	wireApproved = "True"
	wireRejected = "False"
	wireTrue     = "True"
	wireFalse    = "False"
)

func (s ApprovalState) wire() string {
	switch s {
	case Approved:
		return wireApproved
	case Rejected:
		return wireRejected
	default:
		return wirePending
	}
}

func parseApproval(v string) (ApprovalState, error) {
	switch strings.TrimSpace(v) {
	case wirePending:
		return Pending, nil
	case wireApproved:
		return Approved, nil
	case wireRejected:
		return Rejected, nil
	}
	return Pending, &calendar.FormatError{Kind: "approval state", Value: v}
}

// =============================================================================
// DURATION CODES
// =============================================================================

// DurationCode is how a requester describes the length of an absence.
type DurationCode string

const (
	Morning   DurationCode = "morning"
	Afternoon DurationCode = "afternoon"
	FullDay   DurationCode = "full_day"
	MultiDay  DurationCode = "multi_day"
)

// ParseDurationCode accepts the canonical codes plus the spaced and
// hyphenated spellings people type ("full day", "multi-day").
func ParseDurationCode(s string) (DurationCode, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	switch DurationCode(norm) {
	case Morning, Afternoon, FullDay, MultiDay:
		return DurationCode(norm), nil
	}
	return "", &calendar.FormatError{Kind: "duration code", Value: s}
}

// HalfDayWindow returns the clock window of a half-day absence, or two
// empty strings for whole days.
func HalfDayWindow(code DurationCode) (start, end string) {
	switch code {
	case Morning:
		return "9:30", "13:30"
	case Afternoon:
		return "13:30", "17:30"
	default:
		return "", ""
	}
}

// =============================================================================
// ACTORS
// =============================================================================

// Role is what an actor may do.
type Role int

const (
	RoleEmployee Role = iota
	RoleAdmin
)

func (r Role) String() string {
	if r == RoleAdmin {
		return "admin"
	}
	return "employee"
}

// Actor is whoever is calling the core.
type Actor struct {
	ID   string
	Role Role
}

// Employee returns a self-service actor.
func Employee(id string) Actor { return Actor{ID: id, Role: RoleEmployee} }

// Admin returns the approver actor.
func Admin(id string) Actor { return Actor{ID: id, Role: RoleAdmin} }

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanActFor reports whether a may operate on employeeID's records.
func (a Actor) CanActFor(employeeID string) bool {
	return a.IsAdmin() || a.ID == employeeID
}

// =============================================================================
// REQUEST
// =============================================================================

// Request is one row of absence_requests.
type Request struct {
	ID          int           `json:"request_id"`
	EmployeeID  string        `json:"employee_id"`
	StartDate   calendar.Date `json:"start_date"`
	EndDate     calendar.Date `json:"end_date"`
	StartTime   string        `json:"start_time,omitempty"`
	EndTime     string        `json:"end_time,omitempty"`
	Duration    Hours         `json:"duration_hours"`
	Unpaid      bool          `json:"unpaid"`
	SubmittedOn calendar.Date `json:"submitted_on"`
	Approval    ApprovalState `json:"approval"`
	Cancelled   bool          `json:"cancelled"`
}

// Holds reports whether the request still reserves hours in a bucket
// other than unallocated.
func (r Request) Holds() bool {
	return !r.Unpaid && !r.Cancelled && r.Approval != Rejected
}

// DueAbsence is one entry of the starting-today view.
type DueAbsence struct {
	RequestID  int    `json:"request_id"`
	EmployeeID string `json:"employee_id"`
	Duration   Hours  `json:"duration_hours"`
}
