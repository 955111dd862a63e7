/*
entitlement.go - Four-bucket allowance ledger

PURPOSE:
  Owns the entitlements sheet. Hours move between buckets only through
  Transfer, and only along the pairs the request lifecycle uses.

INVARIANT:
  taken + planned + pending + unallocated == total, before and after every
  transfer. A transfer never drives a bucket negative.

ATOMICITY:
  Both cells of a transfer are written together when the store supports
  sheet.BatchUpdater. Otherwise the source cell is written first and, if
  the destination write fails, the source cell is restored. If the restore
  also fails the row is left unbalanced and the error says so; Reconcile
  rebuilds it from the request rows.

LOOKUP:
  Rows are located by scanning the sheet for the employee id. Row numbers
  are never derived from anything else.
*/
package absence

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/warp/worktime/calendar"
	"github.com/warp/worktime/sheet"
)

type transferKey struct{ from, to Bucket }

// transfers lists every bucket pair a flow may move hours along.
var transfers = map[transferKey]string{
	{BucketUnallocated, BucketPending}: "submit",
	{BucketPending, BucketPlanned}:     "approve_future",
	{BucketPending, BucketTaken}:       "approve_started",
	{BucketPending, BucketUnallocated}: "reject_or_cancel_pending",
	{BucketPlanned, BucketUnallocated}: "cancel_approved",
	{BucketUnallocated, BucketTaken}:   "record_past",
	{BucketUnallocated, BucketPlanned}: "record_future",
}

// EntitlementLedger reads and writes the entitlements sheet.
type EntitlementLedger struct {
	store sheet.Store
	mu    sync.Mutex
}

// NewEntitlementLedger binds the ledger to a store.
func NewEntitlementLedger(store sheet.Store) *EntitlementLedger {
	return &EntitlementLedger{store: store}
}

// Get returns the employee's current allowance.
func (l *EntitlementLedger) Get(ctx context.Context, employeeID string) (Entitlement, error) {
	e, _, err := l.locate(ctx, employeeID)
	return e, err
}

// List returns every well-formed entitlement row.
func (l *EntitlementLedger) List(ctx context.Context) ([]Entitlement, error) {
	rows, err := l.store.ReadAll(ctx, sheet.Entitlements)
	if err != nil {
		return nil, err
	}

	var out []Entitlement
	for i := 1; i < len(rows); i++ {
		e, err := entitlementFromRow(rows[i])
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"sheet": sheet.Entitlements,
				"row":   sheet.RowNumber(i),
			}).WithError(err).Warn("skipping malformed entitlement row")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Transfer moves hours from one bucket to another and returns the
// resulting allowance.
func (l *EntitlementLedger) Transfer(ctx context.Context, employeeID string, from, to Bucket, hours Hours) (Entitlement, error) {
	if hours <= 0 {
		return Entitlement{}, &InvalidRangeError{Reason: ReasonNonPositiveHours}
	}
	if _, ok := transfers[transferKey{from, to}]; !ok {
		return Entitlement{}, fmt.Errorf("%w: %s -> %s", ErrUnsupportedTransfer, from, to)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	before, row, err := l.locate(ctx, employeeID)
	if err != nil {
		return Entitlement{}, err
	}
	if before.In(from) < hours {
		return Entitlement{}, &InsufficientBalanceError{
			EmployeeID: employeeID,
			Bucket:     from,
			Available:  before.In(from),
			Requested:  hours,
		}
	}

	after := before
	after.add(from, -hours)
	after.add(to, hours)

	if err := l.writeBuckets(ctx, row, before, after, from, to); err != nil {
		return Entitlement{}, err
	}

	logrus.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"from":        from.String(),
		"to":          to.String(),
		"hours":       int(hours),
	}).Debug("entitlement transfer")
	return after, nil
}

func (l *EntitlementLedger) writeBuckets(ctx context.Context, row int, before, after Entitlement, buckets ...Bucket) error {
	values := make(map[int]string, len(buckets))
	for _, b := range buckets {
		values[bucketColumn(b)] = hoursCell(after.In(b))
	}
	if bu, ok := l.store.(sheet.BatchUpdater); ok {
		return bu.UpdateCells(ctx, sheet.Entitlements, row, values)
	}

	for i, b := range buckets {
		err := l.store.UpdateCell(ctx, sheet.Entitlements, row, bucketColumn(b), hoursCell(after.In(b)))
		if err == nil {
			continue
		}
		// Put back whatever already landed so the row stays balanced.
		for _, done := range buckets[:i] {
			if rerr := l.store.UpdateCell(ctx, sheet.Entitlements, row, bucketColumn(done), hoursCell(before.In(done))); rerr != nil {
				logrus.WithFields(logrus.Fields{
					"employee_id": before.EmployeeID,
					"bucket":      done.String(),
				}).WithError(rerr).Error("failed to restore entitlement cell; row is unbalanced until reconciled")
				return errors.Join(err, rerr)
			}
		}
		return err
	}
	return nil
}

// Provision creates an allowance with every hour unallocated.
func (l *EntitlementLedger) Provision(ctx context.Context, employeeID string, total Hours) (Entitlement, error) {
	if employeeID == "" {
		return Entitlement{}, &calendar.FormatError{Kind: "employee id", Value: employeeID}
	}
	if total < 0 {
		return Entitlement{}, &InvalidRangeError{Reason: ReasonNonPositiveHours}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, _, err := l.locate(ctx, employeeID); err == nil {
		return Entitlement{}, fmt.Errorf("%w: %s", ErrEntitlementExists, employeeID)
	} else if !errors.Is(err, ErrEntitlementNotFound) {
		return Entitlement{}, err
	}

	e := NewEntitlement(employeeID, total)
	if err := l.store.AppendRow(ctx, sheet.Entitlements, entitlementToRow(e)); err != nil {
		return Entitlement{}, err
	}
	return e, nil
}

// Overwrite replaces the four buckets of an existing row. Total is kept
// from the stored row; e must balance against it.
func (l *EntitlementLedger) Overwrite(ctx context.Context, e Entitlement) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	current, row, err := l.locate(ctx, e.EmployeeID)
	if err != nil {
		return err
	}
	e.Total = current.Total
	if !e.Balanced() {
		return &InsufficientBalanceError{
			EmployeeID: e.EmployeeID,
			Bucket:     BucketUnallocated,
			Available:  current.Total,
			Requested:  e.Taken + e.Planned + e.Pending,
		}
	}
	return sheet.UpdateCells(ctx, l.store, sheet.Entitlements, row, map[int]string{
		sheet.EntColTaken:       hoursCell(e.Taken),
		sheet.EntColPlanned:     hoursCell(e.Planned),
		sheet.EntColPending:     hoursCell(e.Pending),
		sheet.EntColUnallocated: hoursCell(e.Unallocated),
	})
}

// locate finds the employee's row by scanning the first column.
func (l *EntitlementLedger) locate(ctx context.Context, employeeID string) (Entitlement, int, error) {
	rows, err := l.store.ReadAll(ctx, sheet.Entitlements)
	if err != nil {
		return Entitlement{}, 0, err
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Cell(sheet.EntColEmployeeID) != employeeID {
			continue
		}
		e, err := entitlementFromRow(rows[i])
		if err != nil {
			return Entitlement{}, 0, fmt.Errorf("entitlement row %d: %w", sheet.RowNumber(i), err)
		}
		return e, sheet.RowNumber(i), nil
	}
	return Entitlement{}, 0, fmt.Errorf("%w: %s", ErrEntitlementNotFound, employeeID)
}
