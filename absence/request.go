/*
request.go - Absence request ledger

PURPOSE:
  Owns the absence_requests sheet: id allocation, creation, the two
  one-shot transitions (approval decision, cancellation) and the derived
  views used by employees and the admin.

ID ALLOCATION:
  A new request gets max(existing id) + 1, or 1 on an empty sheet.
  NextID followed by the append runs under one lock so two creators can
  never take the same id.

ROW LOOKUP:
  RowFor scans the sheet for the id. Ids are not row numbers; rows may
  be out of order or have gaps.

MALFORMED ROWS:
  Rows that fail to parse are skipped with a warning in the views, but
  their id still counts toward NextID.
*/
package absence

import (
	"context"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/warp/worktime/calendar"
	"github.com/warp/worktime/sheet"
)

// RequestLedger reads and writes the absence_requests sheet.
type RequestLedger struct {
	store sheet.Store
	clock calendar.Clock

	createMu sync.Mutex // global: id allocation + append
	mu       sync.Mutex // transitions
}

// NewRequestLedger binds the ledger to a store and a clock.
func NewRequestLedger(store sheet.Store, clock calendar.Clock) *RequestLedger {
	return &RequestLedger{store: store, clock: clock}
}

// All returns every well-formed request in sheet order.
func (l *RequestLedger) All(ctx context.Context) ([]Request, error) {
	rows, err := l.store.ReadAll(ctx, sheet.AbsenceRequests)
	if err != nil {
		return nil, err
	}

	out := make([]Request, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		r, err := requestFromRow(rows[i])
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"sheet": sheet.AbsenceRequests,
				"row":   sheet.RowNumber(i),
			}).WithError(err).Warn("skipping malformed request row")
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// Get returns one request by id.
func (l *RequestLedger) Get(ctx context.Context, id int) (Request, error) {
	all, err := l.All(ctx)
	if err != nil {
		return Request{}, err
	}
	for _, r := range all {
		if r.ID == id {
			return r, nil
		}
	}
	return Request{}, fmt.Errorf("%w: %d", ErrRequestNotFound, id)
}

// NextID returns the id the next Create will use. It does not reserve it.
func (l *RequestLedger) NextID(ctx context.Context) (int, error) {
	rows, err := l.store.ReadAll(ctx, sheet.AbsenceRequests)
	if err != nil {
		return 0, err
	}
	maxID := 0
	for i := 1; i < len(rows); i++ {
		id, err := parseID(rows[i].Cell(sheet.ReqColID))
		if err != nil {
			continue
		}
		if id > maxID {
			maxID = id
		}
	}
	return maxID + 1, nil
}

// Create assigns the next id and appends the request. Approval and
// Cancelled are written as given; self-service requests leave them at
// their zero values (pending, not cancelled).
func (l *RequestLedger) Create(ctx context.Context, r Request) (Request, error) {
	l.createMu.Lock()
	defer l.createMu.Unlock()

	id, err := l.NextID(ctx)
	if err != nil {
		return Request{}, err
	}
	r.ID = id
	if err := l.store.AppendRow(ctx, sheet.AbsenceRequests, requestToRow(r)); err != nil {
		return Request{}, err
	}
	return r, nil
}

// RowFor returns the sheet row holding the request. Id cells are read
// the same way Get reads them, so hand-typed padding still matches.
func (l *RequestLedger) RowFor(ctx context.Context, id int) (int, error) {
	rows, err := l.store.ReadAll(ctx, sheet.AbsenceRequests)
	if err != nil {
		return 0, err
	}
	for i := 1; i < len(rows); i++ {
		if n, err := parseID(rows[i].Cell(sheet.ReqColID)); err == nil && n == id {
			return sheet.RowNumber(i), nil
		}
	}
	return 0, fmt.Errorf("%w: %d", ErrRequestNotFound, id)
}

// SetApproval records the admin's decision. A request is decided once.
func (l *RequestLedger) SetApproval(ctx context.Context, id int, outcome ApprovalState) (Request, error) {
	action := "approve"
	if outcome == Rejected {
		action = "reject"
	}
	if outcome == Pending {
		return Request{}, &InvalidTransitionError{RequestID: id, From: "pending", Action: "reset"}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	r, err := l.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.Cancelled {
		return Request{}, &InvalidTransitionError{RequestID: id, From: "cancelled", Action: action}
	}
	if r.Approval != Pending {
		return Request{}, &InvalidTransitionError{RequestID: id, From: r.Approval.String(), Action: action}
	}

	row, err := l.RowFor(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if err := l.store.UpdateCell(ctx, sheet.AbsenceRequests, row, sheet.ReqColApproved, outcome.wire()); err != nil {
		return Request{}, err
	}
	r.Approval = outcome
	return r, nil
}

// SetCancelled marks the request cancelled. Rejected and already
// cancelled requests are refused.
func (l *RequestLedger) SetCancelled(ctx context.Context, id int) (Request, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	r, err := l.Get(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if r.Cancelled {
		return Request{}, &InvalidTransitionError{RequestID: id, From: "cancelled", Action: "cancel"}
	}
	if r.Approval == Rejected {
		return Request{}, &InvalidTransitionError{RequestID: id, From: "rejected", Action: "cancel"}
	}

	row, err := l.RowFor(ctx, id)
	if err != nil {
		return Request{}, err
	}
	if err := l.store.UpdateCell(ctx, sheet.AbsenceRequests, row, sheet.ReqColCancelled, wireTrue); err != nil {
		return Request{}, err
	}
	r.Cancelled = true
	return r, nil
}

// =============================================================================
// VIEWS
// =============================================================================

// ListNew is the admin review queue: undecided, not cancelled, starting
// after today.
func (l *RequestLedger) ListNew(ctx context.Context) ([]Request, error) {
	today := calendar.Today(l.clock)
	return l.filter(ctx, func(r Request) bool {
		return r.StartDate.After(today) && r.Approval == Pending && !r.Cancelled
	})
}

// ListCancellable returns the employee's requests that may still be
// cancelled: starting after today, not rejected, not cancelled.
func (l *RequestLedger) ListCancellable(ctx context.Context, employeeID string) ([]Request, error) {
	today := calendar.Today(l.clock)
	return l.filter(ctx, func(r Request) bool {
		return r.EmployeeID == employeeID && r.StartDate.After(today) &&
			r.Approval != Rejected && !r.Cancelled
	})
}

// ListStartingToday returns approved, live absences that begin today.
func (l *RequestLedger) ListStartingToday(ctx context.Context) ([]DueAbsence, error) {
	today := calendar.Today(l.clock)
	reqs, err := l.filter(ctx, func(r Request) bool {
		return r.StartDate.Equal(today) && r.Approval == Approved && !r.Cancelled
	})
	if err != nil {
		return nil, err
	}
	out := make([]DueAbsence, len(reqs))
	for i, r := range reqs {
		out[i] = DueAbsence{RequestID: r.ID, EmployeeID: r.EmployeeID, Duration: r.Duration}
	}
	return out, nil
}

// ListByEmployee returns all of one employee's requests.
func (l *RequestLedger) ListByEmployee(ctx context.Context, employeeID string) ([]Request, error) {
	return l.filter(ctx, func(r Request) bool { return r.EmployeeID == employeeID })
}

func (l *RequestLedger) filter(ctx context.Context, keep func(Request) bool) ([]Request, error) {
	all, err := l.All(ctx)
	if err != nil {
		return nil, err
	}
	out := []Request{}
	for _, r := range all {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out, nil
}
