package absence

import (
	"github.com/warp/worktime/calendar"
)

// DurationHours prices an absence in work hours.
//
// Half days cost 4 hours and full days 8; both must start and end on the
// same date. A multi-day absence costs 8 hours per weekday in the
// inclusive range and must cover at least two weekdays.
func DurationHours(code DurationCode, start, end calendar.Date) (Hours, error) {
	switch code {
	case Morning, Afternoon, FullDay:
		if !end.Equal(start) {
			return 0, &InvalidRangeError{Start: start, End: end, Reason: ReasonNotSingleDay}
		}
		if code == FullDay {
			return HoursPerDay, nil
		}
		return HalfDay, nil

	case MultiDay:
		if end.Before(start) {
			return 0, &InvalidRangeError{Start: start, End: end, Reason: ReasonEndBeforeStart}
		}
		n := calendar.WeekdayCount(start, end)
		if n < 2 {
			return 0, &InvalidRangeError{Start: start, End: end, Weekdays: n, Reason: ReasonTooFewWeekdays}
		}
		return Hours(n) * HoursPerDay, nil
	}
	return 0, &calendar.FormatError{Kind: "duration code", Value: string(code)}
}

// ValidateAgainstBalance fails when hours exceed what is unallocated.
func ValidateAgainstBalance(e Entitlement, hours Hours) error {
	if hours > e.Unallocated {
		return &InsufficientBalanceError{
			EmployeeID: e.EmployeeID,
			Bucket:     BucketUnallocated,
			Available:  e.Unallocated,
			Requested:  hours,
		}
	}
	return nil
}

// ValidateSelfServiceDate checks the start date of an employee's own
// booking: strictly after today, in the current year, not a weekend.
func ValidateSelfServiceDate(start, end, today calendar.Date) error {
	switch {
	case !start.After(today):
		return &InvalidRangeError{Start: start, End: end, Reason: ReasonPastDate}
	case start.Year() != today.Year():
		return &InvalidRangeError{Start: start, End: end, Reason: ReasonOtherYear}
	case start.IsWeekend():
		return &InvalidRangeError{Start: start, End: end, Reason: ReasonWeekend}
	}
	return nil
}

// ValidateRecordedDate checks the start date of an admin-entered absence.
// Past dates are allowed; paid absences must fall in the current year.
func ValidateRecordedDate(start, end, today calendar.Date, paid bool) error {
	switch {
	case paid && start.Year() != today.Year():
		return &InvalidRangeError{Start: start, End: end, Reason: ReasonOtherYear}
	case start.IsWeekend():
		return &InvalidRangeError{Start: start, End: end, Reason: ReasonWeekend}
	}
	return nil
}

// approvalDestination is where pending hours go when a request is approved.
func approvalDestination(start, today calendar.Date) Bucket {
	if start.After(today) {
		return BucketPlanned
	}
	return BucketTaken
}

// cancellationSource is the bucket holding a live request's hours.
func cancellationSource(state ApprovalState) Bucket {
	if state == Approved {
		return BucketPlanned
	}
	return BucketPending
}

// bucketFor is where a request's hours belong on a given day, used when
// rebuilding an allowance from scratch. ok is false when the request
// holds nothing. An undecided request keeps its hours pending even after
// its start date; only a decision releases them.
func bucketFor(r Request, today calendar.Date) (b Bucket, ok bool) {
	if !r.Holds() {
		return 0, false
	}
	if r.Approval == Pending {
		return BucketPending, true
	}
	return approvalDestination(r.StartDate, today), true
}
