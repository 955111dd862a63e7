package absence

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/worktime/calendar"
	"github.com/warp/worktime/sheet"
)

// unpaidTag replaces the submission date on unpaid absence rows.
const unpaidTag = "unpaid"

var hoursPerDayDec = decimal.NewFromInt(int64(HoursPerDay))

// DaysString renders hours as the legacy day quantity: 4 -> "0.5", 8 -> "1".
func DaysString(h Hours) string {
	return decimal.NewFromInt(int64(h)).Div(hoursPerDayDec).String()
}

// ParseDays converts a legacy day quantity to hours. Quantities that do not
// land on a whole hour are rejected rather than truncated.
func ParseDays(s string) (Hours, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return 0, &calendar.FormatError{Kind: "duration", Value: s}
	}
	h := d.Mul(hoursPerDayDec)
	if !h.IsInteger() {
		return 0, &calendar.FormatError{Kind: "duration", Value: s}
	}
	return Hours(h.IntPart()), nil
}

// parseHours reads an entitlement cell. The sheet sometimes holds "200.0".
func parseHours(s string) (Hours, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil || !d.IsInteger() {
		return 0, &calendar.FormatError{Kind: "hours", Value: s}
	}
	return Hours(d.IntPart()), nil
}

// parseID reads a request id cell.
func parseID(s string) (int, error) {
	return strconv.Atoi(strings.TrimSpace(s))
}

func hoursCell(h Hours) string {
	return strconv.Itoa(int(h))
}

// =============================================================================
// ENTITLEMENT ROWS
// =============================================================================

func entitlementFromRow(r sheet.Row) (Entitlement, error) {
	e := Entitlement{EmployeeID: r.Cell(sheet.EntColEmployeeID)}
	if e.EmployeeID == "" {
		return Entitlement{}, fmt.Errorf("missing employee id")
	}
	fields := []struct {
		col int
		dst *Hours
	}{
		{sheet.EntColTotal, &e.Total},
		{sheet.EntColTaken, &e.Taken},
		{sheet.EntColPlanned, &e.Planned},
		{sheet.EntColPending, &e.Pending},
		{sheet.EntColUnallocated, &e.Unallocated},
	}
	for _, f := range fields {
		h, err := parseHours(r.Cell(f.col))
		if err != nil {
			return Entitlement{}, err
		}
		*f.dst = h
	}
	return e, nil
}

func entitlementToRow(e Entitlement) sheet.Row {
	return sheet.Row{
		e.EmployeeID,
		hoursCell(e.Total),
		hoursCell(e.Taken),
		hoursCell(e.Planned),
		hoursCell(e.Pending),
		hoursCell(e.Unallocated),
	}
}

func bucketColumn(b Bucket) int {
	switch b {
	case BucketTaken:
		return sheet.EntColTaken
	case BucketPlanned:
		return sheet.EntColPlanned
	case BucketPending:
		return sheet.EntColPending
	default:
		return sheet.EntColUnallocated
	}
}

// =============================================================================
// REQUEST ROWS
// =============================================================================

func requestFromRow(r sheet.Row) (Request, error) {
	id, err := parseID(r.Cell(sheet.ReqColID))
	if err != nil {
		return Request{}, &calendar.FormatError{Kind: "request id", Value: r.Cell(sheet.ReqColID)}
	}

	req := Request{
		ID:         id,
		EmployeeID: r.Cell(sheet.ReqColEmployeeID),
		StartTime:  r.Cell(sheet.ReqColStartTime),
		EndTime:    r.Cell(sheet.ReqColEndTime),
	}
	if req.StartDate, err = calendar.ParseDate(r.Cell(sheet.ReqColStartDate)); err != nil {
		return Request{}, err
	}
	if req.EndDate, err = calendar.ParseDate(r.Cell(sheet.ReqColEndDate)); err != nil {
		return Request{}, err
	}
	if req.Duration, err = ParseDays(r.Cell(sheet.ReqColDuration)); err != nil {
		return Request{}, err
	}

	if submitted := r.Cell(sheet.ReqColSubmittedOn); submitted == unpaidTag {
		req.Unpaid = true
	} else if req.SubmittedOn, err = calendar.ParseDate(submitted); err != nil {
		return Request{}, err
	}

	if req.Approval, err = parseApproval(r.Cell(sheet.ReqColApproved)); err != nil {
		return Request{}, err
	}
	req.Cancelled = r.Cell(sheet.ReqColCancelled) == wireTrue
	return req, nil
}

func requestToRow(r Request) sheet.Row {
	submitted := r.SubmittedOn.String()
	if r.Unpaid {
		submitted = unpaidTag
	}
	cancelled := wireFalse
	if r.Cancelled {
		cancelled = wireTrue
	}
	return sheet.Row{
		strconv.Itoa(r.ID),
		r.EmployeeID,
		r.StartDate.String(),
		r.EndDate.String(),
		r.StartTime,
		r.EndTime,
		DaysString(r.Duration),
		submitted,
		r.Approval.wire(),
		cancelled,
	}
}
