/*
service.go - Absence request lifecycle

PURPOSE:
  Ties the request ledger to the entitlement ledger. Every flow validates
  first, then writes the request row, then moves hours between buckets.

REQUEST FLOW:
  Submit          (none)   -> Pending     unallocated -> pending
  Approve         Pending  -> Approved    pending -> planned, or taken once started
  Reject          Pending  -> Rejected    pending -> unallocated
  Cancel          live     -> cancelled   pending or planned -> unallocated
  RecordAbsence   (none)   -> Approved    unallocated -> planned, or taken once started

  Unpaid absences follow the same request transitions but never touch
  the entitlement ledger and skip the balance check.

CONCURRENCY:
  Flows for one employee run one at a time. Reconcile excludes every flow
  while it rebuilds the allowances.

PARTIAL WRITES:
  The sheet has no multi-row transaction. When the request row is written
  and the transfer then fails, the caller gets a *PartialWriteError, the
  event is logged at error level and audited, and Reconcile repairs the
  allowance from the request rows.

SEE ALSO:
  - request.go, entitlement.go: the two ledgers
  - rules.go: pricing and date checks
  - reconcile.go: rebuilding allowances from requests
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

// Service runs the absence flows.
type Service struct {
	Entitlements *EntitlementLedger
	Requests     *RequestLedger
	Audit        *AuditLog

	clock calendar.Clock

	reconcileMu sync.RWMutex
	locks       keyedMutex
}

// NewService wires both ledgers and the audit log to one store.
func NewService(store sheet.Store, clock calendar.Clock) *Service {
	return &Service{
		Entitlements: NewEntitlementLedger(store),
		Requests:     NewRequestLedger(store, clock),
		Audit:        NewAuditLog(store, clock),
		clock:        clock,
	}
}

// AbsenceInput describes an absence to submit or record.
type AbsenceInput struct {
	EmployeeID string
	Code       DurationCode
	Start      calendar.Date
	End        calendar.Date // defaults to Start
	Unpaid     bool
}

// Outcome is the result of a flow: the request as written and, for paid
// absences, the allowance after the transfer.
type Outcome struct {
	Request     Request      `json:"request"`
	Entitlement *Entitlement `json:"entitlement,omitempty"`
}

func (s *Service) today() calendar.Date {
	return calendar.Today(s.clock)
}

// lockEmployee serializes flows for one employee and holds off Reconcile.
func (s *Service) lockEmployee(employeeID string) func() {
	s.reconcileMu.RLock()
	unlock := s.locks.lock(employeeID)
	return func() {
		unlock()
		s.reconcileMu.RUnlock()
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit books an absence on the employee's own behalf. The request starts
// pending and, when paid, its hours move from unallocated to pending.
func (s *Service) Submit(ctx context.Context, actor Actor, in AbsenceInput) (Outcome, error) {
	if !actor.CanActFor(in.EmployeeID) {
		return Outcome{}, fmt.Errorf("%w: %s cannot book for %s", ErrForbidden, actor.ID, in.EmployeeID)
	}
	if in.End.IsZero() {
		in.End = in.Start
	}

	hours, err := DurationHours(in.Code, in.Start, in.End)
	if err != nil {
		return Outcome{}, err
	}
	today := s.today()
	if err := ValidateSelfServiceDate(in.Start, in.End, today); err != nil {
		return Outcome{}, err
	}

	unlock := s.lockEmployee(in.EmployeeID)
	defer unlock()

	if !in.Unpaid {
		ent, err := s.Entitlements.Get(ctx, in.EmployeeID)
		if err != nil {
			return Outcome{}, err
		}
		if err := ValidateAgainstBalance(ent, hours); err != nil {
			return Outcome{}, err
		}
	}

	startTime, endTime := HalfDayWindow(in.Code)
	req, err := s.Requests.Create(ctx, Request{
		EmployeeID:  in.EmployeeID,
		StartDate:   in.Start,
		EndDate:     in.End,
		StartTime:   startTime,
		EndTime:     endTime,
		Duration:    hours,
		Unpaid:      in.Unpaid,
		SubmittedOn: today,
		Approval:    Pending,
	})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Request: req}
	if !in.Unpaid {
		ent, err := s.Entitlements.Transfer(ctx, in.EmployeeID, BucketUnallocated, BucketPending, hours)
		if err != nil {
			return out, s.partial(ctx, actor, "request_created", req, err)
		}
		out.Entitlement = &ent
	}

	s.Audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditRequestCreated,
		EmployeeID: req.EmployeeID,
		RequestID:  req.ID,
		Payload:    map[string]any{"hours": int(hours), "unpaid": req.Unpaid},
	})
	logrus.WithFields(logrus.Fields{
		"employee_id": req.EmployeeID,
		"request_id":  req.ID,
		"hours":       int(hours),
	}).Info("absence request submitted")
	return out, nil
}

// =============================================================================
// DECIDE
// =============================================================================

// Approve accepts a pending request. Its hours move to planned, or to
// taken when the absence has already started.
func (s *Service) Approve(ctx context.Context, actor Actor, requestID int) (Outcome, error) {
	return s.decide(ctx, actor, requestID, Approved)
}

// Reject refuses a pending request and releases its hours.
func (s *Service) Reject(ctx context.Context, actor Actor, requestID int) (Outcome, error) {
	return s.decide(ctx, actor, requestID, Rejected)
}

func (s *Service) decide(ctx context.Context, actor Actor, requestID int, outcome ApprovalState) (Outcome, error) {
	if !actor.IsAdmin() {
		return Outcome{}, fmt.Errorf("%w: only an admin can decide requests", ErrForbidden)
	}

	current, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return Outcome{}, err
	}

	unlock := s.lockEmployee(current.EmployeeID)
	defer unlock()

	req, err := s.Requests.SetApproval(ctx, requestID, outcome)
	if err != nil {
		return Outcome{}, err
	}

	action, step := AuditRequestApproved, "request_approved"
	dest := approvalDestination(req.StartDate, s.today())
	if outcome == Rejected {
		action, step = AuditRequestRejected, "request_rejected"
		dest = BucketUnallocated
	}

	out := Outcome{Request: req}
	if !req.Unpaid {
		ent, err := s.Entitlements.Transfer(ctx, req.EmployeeID, BucketPending, dest, req.Duration)
		if err != nil {
			return out, s.partial(ctx, actor, step, req, err)
		}
		out.Entitlement = &ent
	}

	s.Audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     action,
		EmployeeID: req.EmployeeID,
		RequestID:  req.ID,
		Payload:    map[string]any{"hours": int(req.Duration), "bucket": dest.String()},
	})
	logrus.WithFields(logrus.Fields{
		"employee_id": req.EmployeeID,
		"request_id":  req.ID,
		"decision":    outcome.String(),
	}).Info("absence request decided")
	return out, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel withdraws a request that has not started yet. Rejected and
// already cancelled requests cannot be cancelled.
func (s *Service) Cancel(ctx context.Context, actor Actor, requestID int) (Outcome, error) {
	current, err := s.Requests.Get(ctx, requestID)
	if err != nil {
		return Outcome{}, err
	}
	if !actor.CanActFor(current.EmployeeID) {
		return Outcome{}, fmt.Errorf("%w: %s cannot cancel for %s", ErrForbidden, actor.ID, current.EmployeeID)
	}

	unlock := s.lockEmployee(current.EmployeeID)
	defer unlock()

	// Re-read under the lock; a decision may have landed in between.
	current, err = s.Requests.Get(ctx, requestID)
	if err != nil {
		return Outcome{}, err
	}
	if !current.StartDate.After(s.today()) {
		return Outcome{}, &InvalidTransitionError{RequestID: requestID, From: "started", Action: "cancel"}
	}
	source := cancellationSource(current.Approval)

	req, err := s.Requests.SetCancelled(ctx, requestID)
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Request: req}
	if !req.Unpaid {
		ent, err := s.Entitlements.Transfer(ctx, req.EmployeeID, source, BucketUnallocated, req.Duration)
		if err != nil {
			return out, s.partial(ctx, actor, "request_cancelled", req, err)
		}
		out.Entitlement = &ent
	}

	s.Audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditRequestCanceled,
		EmployeeID: req.EmployeeID,
		RequestID:  req.ID,
		Payload:    map[string]any{"hours": int(req.Duration), "bucket": source.String()},
	})
	logrus.WithFields(logrus.Fields{
		"employee_id": req.EmployeeID,
		"request_id":  req.ID,
	}).Info("absence request cancelled")
	return out, nil
}

// =============================================================================
// ADMIN-ENTERED ABSENCE
// =============================================================================

// RecordAbsence enters an absence on an employee's behalf. The request is
// written already approved. Paid hours move from unallocated straight to
// planned for a future start, or to taken otherwise.
func (s *Service) RecordAbsence(ctx context.Context, actor Actor, in AbsenceInput) (Outcome, error) {
	if !actor.IsAdmin() {
		return Outcome{}, fmt.Errorf("%w: only an admin can record absences", ErrForbidden)
	}
	if in.End.IsZero() {
		in.End = in.Start
	}

	hours, err := DurationHours(in.Code, in.Start, in.End)
	if err != nil {
		return Outcome{}, err
	}
	today := s.today()
	if err := ValidateRecordedDate(in.Start, in.End, today, !in.Unpaid); err != nil {
		return Outcome{}, err
	}

	unlock := s.lockEmployee(in.EmployeeID)
	defer unlock()

	if !in.Unpaid {
		ent, err := s.Entitlements.Get(ctx, in.EmployeeID)
		if err != nil {
			return Outcome{}, err
		}
		if err := ValidateAgainstBalance(ent, hours); err != nil {
			return Outcome{}, err
		}
	}

	startTime, endTime := HalfDayWindow(in.Code)
	req, err := s.Requests.Create(ctx, Request{
		EmployeeID:  in.EmployeeID,
		StartDate:   in.Start,
		EndDate:     in.End,
		StartTime:   startTime,
		EndTime:     endTime,
		Duration:    hours,
		Unpaid:      in.Unpaid,
		SubmittedOn: today,
		Approval:    Approved,
	})
	if err != nil {
		return Outcome{}, err
	}

	out := Outcome{Request: req}
	dest := approvalDestination(in.Start, today)
	if !in.Unpaid {
		ent, err := s.Entitlements.Transfer(ctx, in.EmployeeID, BucketUnallocated, dest, hours)
		if err != nil {
			return out, s.partial(ctx, actor, "absence_recorded", req, err)
		}
		out.Entitlement = &ent
	}

	s.Audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditAbsenceRecorded,
		EmployeeID: req.EmployeeID,
		RequestID:  req.ID,
		Payload:    map[string]any{"hours": int(hours), "unpaid": req.Unpaid, "bucket": dest.String()},
	})
	return out, nil
}

// =============================================================================
// VIEWS
// =============================================================================

// Balance returns an employee's allowance.
func (s *Service) Balance(ctx context.Context, actor Actor, employeeID string) (Entitlement, error) {
	if !actor.CanActFor(employeeID) {
		return Entitlement{}, fmt.Errorf("%w: %s cannot view %s", ErrForbidden, actor.ID, employeeID)
	}
	return s.Entitlements.Get(ctx, employeeID)
}

// History lists all of an employee's requests.
func (s *Service) History(ctx context.Context, actor Actor, employeeID string) ([]Request, error) {
	if !actor.CanActFor(employeeID) {
		return nil, fmt.Errorf("%w: %s cannot view %s", ErrForbidden, actor.ID, employeeID)
	}
	return s.Requests.ListByEmployee(ctx, employeeID)
}

// Cancellable lists the requests the employee may still cancel.
func (s *Service) Cancellable(ctx context.Context, actor Actor, employeeID string) ([]Request, error) {
	if !actor.CanActFor(employeeID) {
		return nil, fmt.Errorf("%w: %s cannot view %s", ErrForbidden, actor.ID, employeeID)
	}
	return s.Requests.ListCancellable(ctx, employeeID)
}

// ReviewQueue lists requests awaiting the admin's decision.
func (s *Service) ReviewQueue(ctx context.Context, actor Actor) ([]Request, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin can review requests", ErrForbidden)
	}
	return s.Requests.ListNew(ctx)
}

// StartingToday lists approved absences beginning today.
func (s *Service) StartingToday(ctx context.Context, actor Actor) ([]DueAbsence, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("%w: only an admin can list today's absences", ErrForbidden)
	}
	return s.Requests.ListStartingToday(ctx)
}

// Provision creates an employee's allowance.
func (s *Service) Provision(ctx context.Context, actor Actor, employeeID string, total Hours) (Entitlement, error) {
	if !actor.IsAdmin() {
		return Entitlement{}, fmt.Errorf("%w: only an admin can provision allowances", ErrForbidden)
	}

	unlock := s.lockEmployee(employeeID)
	defer unlock()

	e, err := s.Entitlements.Provision(ctx, employeeID, total)
	if err != nil {
		return Entitlement{}, err
	}
	s.Audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditEntitlementAdded,
		EmployeeID: employeeID,
		Payload:    map[string]any{"total": int(total)},
	})
	return e, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (s *Service) partial(ctx context.Context, actor Actor, step string, req Request, err error) error {
	logrus.WithFields(logrus.Fields{
		"employee_id": req.EmployeeID,
		"request_id":  req.ID,
		"step":        step,
	}).WithError(err).Error("request written but entitlement transfer failed; run reconcile")

	s.Audit.Record(ctx, AuditEntry{
		ActorID:    actor.ID,
		Action:     AuditPartialWrite,
		EmployeeID: req.EmployeeID,
		RequestID:  req.ID,
		Payload:    map[string]any{"step": step, "error": err.Error()},
	})
	return &PartialWriteError{Step: step, RequestID: req.ID, Err: err}
}

// keyedMutex hands out one mutex per key. Keys are employee ids, a small
// bounded set, so entries are never evicted.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (k *keyedMutex) lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*sync.Mutex)
	}
	m, ok := k.locks[key]
	if !ok {
		m = &sync.Mutex{}
		k.locks[key] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
