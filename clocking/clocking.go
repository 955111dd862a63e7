/*
clocking.go - Daily clock-in/clock-out ledger

PURPOSE:
  Owns the clockings sheet: one row per employee per day holding the
  clock-in and clock-out times as HH:MM:SS.

UPSERT:
  The first punch of a day appends the row; every later punch overwrites
  its column in place. A clock-out with no clock-in creates the row with
  an empty start time. Rows are found by scanning for (employee, date);
  the ledger lock makes find-then-append atomic so a day is never
  written twice.

POLICY:
  The ledger writes unconditionally. Punch adds the employee rule (no
  punching after the day is closed) and Correct adds the admin rules
  (not in the future, current payroll month only, in before out).
*/
package clocking

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/warp/worktime/calendar"
	"github.com/warp/worktime/sheet"
)

// Kind selects which end of the day a punch records.
type Kind int

const (
	In Kind = iota
	Out
)

func (k Kind) String() string {
	if k == Out {
		return "out"
	}
	return "in"
}

func (k Kind) column() int {
	if k == Out {
		return sheet.ClkColEnd
	}
	return sheet.ClkColStart
}

// Record is one employee's clock card for one day. Empty times mean the
// punch has not happened.
type Record struct {
	EmployeeID string        `json:"employee_id"`
	Date       calendar.Date `json:"date"`
	StartTime  string        `json:"start_time"`
	EndTime    string        `json:"end_time"`
}

// Closed reports whether the employee has clocked out.
func (r Record) Closed() bool {
	return r.EndTime != ""
}

func (r Record) row() sheet.Row {
	return sheet.Row{r.EmployeeID, r.Date.String(), r.StartTime, r.EndTime}
}

func (r *Record) set(k Kind, t calendar.TimeOfDay) {
	if k == Out {
		r.EndTime = t.String()
		return
	}
	r.StartTime = t.String()
}

// Ledger reads and writes the clockings sheet.
type Ledger struct {
	store sheet.Store
	clock calendar.Clock
	mu    sync.Mutex
}

// NewLedger binds the ledger to a store and a clock.
func NewLedger(store sheet.Store, clock calendar.Clock) *Ledger {
	return &Ledger{store: store, clock: clock}
}

// GetForDate returns the employee's record for the day. found is false
// when the employee has not punched that day.
func (l *Ledger) GetForDate(ctx context.Context, employeeID string, date calendar.Date) (rec Record, found bool, err error) {
	rec, row, err := l.find(ctx, employeeID, date)
	return rec, row > 0, err
}

// ClockIn sets the clock-in time, creating the day's row if needed.
func (l *Ledger) ClockIn(ctx context.Context, employeeID string, date calendar.Date, t calendar.TimeOfDay) (Record, error) {
	return l.upsert(ctx, employeeID, date, In, t)
}

// ClockOut sets the clock-out time, creating the day's row if needed.
func (l *Ledger) ClockOut(ctx context.Context, employeeID string, date calendar.Date, t calendar.TimeOfDay) (Record, error) {
	return l.upsert(ctx, employeeID, date, Out, t)
}

func (l *Ledger) upsert(ctx context.Context, employeeID string, date calendar.Date, k Kind, t calendar.TimeOfDay) (Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.upsertLocked(ctx, employeeID, date, k, t)
}

func (l *Ledger) upsertLocked(ctx context.Context, employeeID string, date calendar.Date, k Kind, t calendar.TimeOfDay) (Record, error) {
	rec, row, err := l.find(ctx, employeeID, date)
	if err != nil {
		return Record{}, err
	}

	if row == 0 {
		rec = Record{EmployeeID: employeeID, Date: date}
		rec.set(k, t)
		if err := l.store.AppendRow(ctx, sheet.Clockings, rec.row()); err != nil {
			return Record{}, err
		}
		return rec, nil
	}

	rec.set(k, t)
	if err := l.store.UpdateCell(ctx, sheet.Clockings, row, k.column(), t.String()); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// =============================================================================
// POLICY
// =============================================================================

// Punch records the current time for the employee. Once the day is closed
// only an override (an admin acting on the employee's behalf) may punch
// again.
func (l *Ledger) Punch(ctx context.Context, employeeID string, k Kind, override bool) (Record, error) {
	now := l.clock.Now()
	today := calendar.DateOf(now)

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, _, err := l.find(ctx, employeeID, today)
	if err != nil {
		return Record{}, err
	}
	if rec.Closed() && !override {
		return rec, &DayClosedError{EmployeeID: employeeID, Date: today, ClockedOut: rec.EndTime}
	}

	rec, err = l.upsertLocked(ctx, employeeID, today, k, calendar.TimeOfDayOf(now))
	if err != nil {
		return Record{}, err
	}
	logrus.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"date":        today.String(),
		"kind":        k.String(),
	}).Info("clocked")
	return rec, nil
}

// ValidateCorrectionDate checks that a day may still be corrected: not in
// the future and within the current payroll month.
func ValidateCorrectionDate(date, today calendar.Date) error {
	switch {
	case date.After(today):
		return &CorrectionError{Date: date, Reason: ReasonFutureDate}
	case !date.SameMonth(today):
		return &CorrectionError{Date: date, Reason: ReasonPayrollClosed}
	}
	return nil
}

// Correct sets one end of an employee's day on an admin's say-so. The new
// time must keep clock-in before clock-out.
func (l *Ledger) Correct(ctx context.Context, employeeID string, date calendar.Date, k Kind, t calendar.TimeOfDay) (Record, error) {
	if err := ValidateCorrectionDate(date, calendar.Today(l.clock)); err != nil {
		return Record{}, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	rec, _, err := l.find(ctx, employeeID, date)
	if err != nil {
		return Record{}, err
	}
	if !inOrder(rec, k, t) {
		return Record{}, &CorrectionError{EmployeeID: employeeID, Date: date, Reason: ReasonOutOfOrder}
	}

	rec, err = l.upsertLocked(ctx, employeeID, date, k, t)
	if err != nil {
		return Record{}, err
	}
	logrus.WithFields(logrus.Fields{
		"employee_id": employeeID,
		"date":        date.String(),
		"kind":        k.String(),
		"time":        t.String(),
	}).Info("clocking corrected")
	return rec, nil
}

func inOrder(rec Record, k Kind, t calendar.TimeOfDay) bool {
	other := rec.EndTime
	if k == Out {
		other = rec.StartTime
	}
	if other == "" {
		return true
	}
	o, err := calendar.ParseTimeOfDay(other)
	if err != nil {
		// An unreadable stored time cannot be compared.
		return true
	}
	if k == Out {
		return o.Before(t)
	}
	return t.Before(o)
}

// =============================================================================
// VIEWS
// =============================================================================

// WeekRecords returns the employee's records in the Monday-to-Sunday week
// containing date, in date order.
func (l *Ledger) WeekRecords(ctx context.Context, employeeID string, date calendar.Date) ([]Record, error) {
	return l.Range(ctx, employeeID, calendar.WeekRange(date, calendar.FullWeek))
}

// Range returns the employee's records on the given days, in the order
// the days are given. Days without a record are left out.
func (l *Ledger) Range(ctx context.Context, employeeID string, days []calendar.Date) ([]Record, error) {
	all, err := l.all(ctx)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, d := range days {
		for _, r := range all {
			if r.EmployeeID == employeeID && r.Date.Equal(d) {
				out = append(out, r)
				break
			}
		}
	}
	return out, nil
}

// DayRecords returns every employee's record for one day, in sheet order.
func (l *Ledger) DayRecords(ctx context.Context, date calendar.Date) ([]Record, error) {
	all, err := l.all(ctx)
	if err != nil {
		return nil, err
	}
	out := []Record{}
	for _, r := range all {
		if r.Date.Equal(date) {
			out = append(out, r)
		}
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// find returns the record and its sheet row, or row 0 when absent.
func (l *Ledger) find(ctx context.Context, employeeID string, date calendar.Date) (Record, int, error) {
	rows, err := l.store.ReadAll(ctx, sheet.Clockings)
	if err != nil {
		return Record{}, 0, err
	}
	for i := 1; i < len(rows); i++ {
		r := rows[i]
		if r.Cell(sheet.ClkColEmployeeID) != employeeID {
			continue
		}
		// Hand-entered dates may drop the leading zeros.
		if d, err := calendar.ParseDate(r.Cell(sheet.ClkColDate)); err == nil && d.Equal(date) {
			return Record{
				EmployeeID: employeeID,
				Date:       date,
				StartTime:  r.Cell(sheet.ClkColStart),
				EndTime:    r.Cell(sheet.ClkColEnd),
			}, sheet.RowNumber(i), nil
		}
	}
	return Record{}, 0, nil
}

func (l *Ledger) all(ctx context.Context) ([]Record, error) {
	rows, err := l.store.ReadAll(ctx, sheet.Clockings)
	if err != nil {
		return nil, err
	}
	out := make([]Record, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		r := rows[i]
		d, err := calendar.ParseDate(r.Cell(sheet.ClkColDate))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"sheet": sheet.Clockings,
				"row":   sheet.RowNumber(i),
			}).WithError(err).Warn("skipping malformed clocking row")
			continue
		}
		out = append(out, Record{
			EmployeeID: r.Cell(sheet.ClkColEmployeeID),
			Date:       d,
			StartTime:  r.Cell(sheet.ClkColStart),
			EndTime:    r.Cell(sheet.ClkColEnd),
		})
	}
	return out, nil
}
