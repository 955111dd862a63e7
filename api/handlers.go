/*
handlers.go - HTTP API handlers for the absence and clocking core

PURPOSE:
  Exposes the absence service and the clocking ledger via a REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Employees:
    GET    /api/employees/{id}/entitlement          Allowance in hours and days
    GET    /api/employees/{id}/requests             Request history
    POST   /api/employees/{id}/requests             Book an absence
    GET    /api/employees/{id}/requests/cancellable Requests that may be cancelled
    POST   /api/employees/{id}/clock-in             Clock in now
    POST   /api/employees/{id}/clock-out            Clock out now
    GET    /api/employees/{id}/clockings            Clock card for a week

  Requests:
    GET    /api/requests/new                        Admin review queue
    GET    /api/requests/starting-today             Approved absences due today
    POST   /api/requests/{id}/approve               Admin approves
    POST   /api/requests/{id}/reject                Admin rejects
    POST   /api/requests/{id}/cancel                Owner or admin cancels

  Admin:
    POST   /api/admin/absences                      Record an absence
    POST   /api/admin/entitlements                  Provision an allowance
    POST   /api/admin/reconcile                     Rebuild allowances
    PUT    /api/admin/clockings                     Correct a clock card
    GET    /api/admin/clockings                     Everyone's clock cards for a day

IDENTITY:
  The caller names themselves in the X-Employee-ID header. The configured
  admin id gets the admin role; everyone else acts as an employee.

ERROR HANDLING:
  Errors are returned as {"error": code, "details": message}:
  - 400: format, invalid_date, invalid_range
  - 401: missing identity
  - 403: forbidden
  - 404: not_found
  - 409: insufficient_balance, invalid_transition, conflict
  - 503: storage (including partial writes)
  - 500: internal

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"

	"github.com/warp/worktime/absence"
	"github.com/warp/worktime/calendar"
	"github.com/warp/worktime/clocking"
)

// ActorHeader carries the caller's employee id.
const ActorHeader = "X-Employee-ID"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Absences  *absence.Service
	Clockings *clocking.Ledger
	Clock     calendar.Clock
	AdminID   string
}

// NewHandler creates a handler. adminID is the employee id that gets the
// admin role.
func NewHandler(svc *absence.Service, clockings *clocking.Ledger, clock calendar.Clock, adminID string) *Handler {
	return &Handler{Absences: svc, Clockings: clockings, Clock: clock, AdminID: adminID}
}

// actor resolves the caller, writing a 401 when the header is missing.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (absence.Actor, bool) {
	id := strings.TrimSpace(r.Header.Get(ActorHeader))
	if id == "" {
		writeError(w, http.StatusUnauthorized, string(absence.CodeForbidden), fmt.Errorf("missing %s header", ActorHeader))
		return absence.Actor{}, false
	}
	if h.AdminID != "" && id == h.AdminID {
		return absence.Admin(id), true
	}
	return absence.Employee(id), true
}

// =============================================================================
// ENTITLEMENT AND REQUEST HANDLERS
// =============================================================================

// GetEntitlement returns an employee's allowance.
// GET /api/employees/{id}/entitlement
func (h *Handler) GetEntitlement(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	e, err := h.Absences.Balance(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toEntitlementDTO(e))
}

// ListRequests returns an employee's request history.
// GET /api/employees/{id}/requests
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	reqs, err := h.Absences.History(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// ListCancellable returns the requests the employee may still cancel.
// GET /api/employees/{id}/requests/cancellable
func (h *Handler) ListCancellable(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	reqs, err := h.Absences.Cancellable(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// SubmitRequest books an absence for the employee in the path.
// POST /api/employees/{id}/requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var body SubmitAbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, string(absence.CodeFormat), err)
		return
	}
	in, err := absenceInput(chi.URLParam(r, "id"), body)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out, err := h.Absences.Submit(r.Context(), actor, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// ListNewRequests returns the admin review queue.
// GET /api/requests/new
func (h *Handler) ListNewRequests(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	reqs, err := h.Absences.ReviewQueue(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reqs)
}

// ListStartingToday returns approved absences beginning today.
// GET /api/requests/starting-today
func (h *Handler) ListStartingToday(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	due, err := h.Absences.StartingToday(r.Context(), actor)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, due)
}

// ApproveRequest accepts a pending request.
// POST /api/requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Absences.Approve)
}

// RejectRequest refuses a pending request.
// POST /api/requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Absences.Reject)
}

// CancelRequest withdraws a request that has not started.
// POST /api/requests/{id}/cancel
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Absences.Cancel)
}

type transitionFunc func(ctx context.Context, actor absence.Actor, requestID int) (absence.Outcome, error)

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn transitionFunc) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	raw := chi.URLParam(r, "id")
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		writeDomainError(w, &calendar.FormatError{Kind: "request id", Value: raw})
		return
	}

	out, err := fn(r.Context(), actor, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// RecordAbsence enters an absence on an employee's behalf.
// POST /api/admin/absences
func (h *Handler) RecordAbsence(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var body RecordAbsenceRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, string(absence.CodeFormat), err)
		return
	}
	in, err := absenceInput(body.EmployeeID, body.SubmitAbsenceRequest)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out, err := h.Absences.RecordAbsence(r.Context(), actor, in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

// ProvisionEntitlement creates an employee's allowance.
// POST /api/admin/entitlements
func (h *Handler) ProvisionEntitlement(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var body ProvisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, string(absence.CodeFormat), err)
		return
	}

	e, err := h.Absences.Provision(r.Context(), actor, body.EmployeeID, absence.Hours(body.TotalHours))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toEntitlementDTO(e))
}

// Reconcile rebuilds every allowance from the request rows.
// POST /api/admin/reconcile
func (h *Handler) Reconcile(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		writeDomainError(w, fmt.Errorf("%w: only an admin can reconcile", absence.ErrForbidden))
		return
	}

	report, err := h.Absences.Reconcile(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// =============================================================================
// CLOCKING HANDLERS
// =============================================================================

// ClockIn stamps the current time as the employee's clock-in.
// POST /api/employees/{id}/clock-in
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, clocking.In)
}

// ClockOut stamps the current time as the employee's clock-out.
// POST /api/employees/{id}/clock-out
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	h.punch(w, r, clocking.Out)
}

func (h *Handler) punch(w http.ResponseWriter, r *http.Request, k clocking.Kind) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	employeeID := chi.URLParam(r, "id")
	if !actor.CanActFor(employeeID) {
		writeDomainError(w, fmt.Errorf("%w: %s cannot clock for %s", absence.ErrForbidden, actor.ID, employeeID))
		return
	}

	rec, err := h.Clockings.Punch(r.Context(), employeeID, k, actor.IsAdmin())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetClockCard returns an employee's clockings for the week containing
// ?date= (default today). ?mode=weekdays limits it to Monday to Friday.
// GET /api/employees/{id}/clockings
func (h *Handler) GetClockCard(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	employeeID := chi.URLParam(r, "id")
	if !actor.CanActFor(employeeID) {
		writeDomainError(w, fmt.Errorf("%w: %s cannot view %s", absence.ErrForbidden, actor.ID, employeeID))
		return
	}
	day, err := h.dateParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var recs []clocking.Record
	switch mode := r.URL.Query().Get("mode"); mode {
	case "", "week":
		recs, err = h.Clockings.WeekRecords(r.Context(), employeeID, day)
	case "weekdays":
		recs, err = h.Clockings.Range(r.Context(), employeeID, calendar.WeekRange(day, calendar.Weekdays))
	default:
		err = &calendar.FormatError{Kind: "week mode", Value: mode}
	}
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// CorrectClocking sets a clock-in or clock-out time on an admin's say-so.
// PUT /api/admin/clockings
func (h *Handler) CorrectClocking(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		writeDomainError(w, fmt.Errorf("%w: only an admin can correct clockings", absence.ErrForbidden))
		return
	}
	var body CorrectClockingRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, string(absence.CodeFormat), err)
		return
	}

	day, err := calendar.ParseDate(body.Date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	t, err := calendar.ParseTimeOfDay(body.Time)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	var kind clocking.Kind
	switch strings.ToLower(body.Kind) {
	case "in":
		kind = clocking.In
	case "out":
		kind = clocking.Out
	default:
		writeDomainError(w, &calendar.FormatError{Kind: "clocking kind", Value: body.Kind})
		return
	}
	if body.EmployeeID == "" {
		writeDomainError(w, &calendar.FormatError{Kind: "employee id", Value: body.EmployeeID})
		return
	}

	rec, err := h.Clockings.Correct(r.Context(), body.EmployeeID, day, kind, t)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListDayClockings returns every employee's clock card for ?date=
// (default today).
// GET /api/admin/clockings
func (h *Handler) ListDayClockings(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if !actor.IsAdmin() {
		writeDomainError(w, fmt.Errorf("%w: only an admin can review attendance", absence.ErrForbidden))
		return
	}
	day, err := h.dateParam(r)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	recs, err := h.Clockings.DayRecords(r.Context(), day)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) dateParam(r *http.Request) (calendar.Date, error) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		return calendar.Today(h.Clock), nil
	}
	return calendar.ParseDate(raw)
}

func absenceInput(employeeID string, body SubmitAbsenceRequest) (absence.AbsenceInput, error) {
	code, err := absence.ParseDurationCode(body.Duration)
	if err != nil {
		return absence.AbsenceInput{}, err
	}
	start, err := calendar.ParseDate(body.StartDate)
	if err != nil {
		return absence.AbsenceInput{}, err
	}
	in := absence.AbsenceInput{EmployeeID: employeeID, Code: code, Start: start, Unpaid: body.Unpaid}
	if body.EndDate != "" {
		if in.End, err = calendar.ParseDate(body.EndDate); err != nil {
			return absence.AbsenceInput{}, err
		}
	}
	return in, nil
}

// codeOf extends absence.CodeOf with the clocking errors.
func codeOf(err error) absence.Code {
	switch {
	case errors.Is(err, clocking.ErrDayClosed):
		return absence.CodeInvalidTransition
	case errors.Is(err, clocking.ErrInvalidCorrection):
		return absence.CodeInvalidRange
	}
	return absence.CodeOf(err)
}

func statusFor(code absence.Code) int {
	switch code {
	case absence.CodeFormat, absence.CodeInvalidDate, absence.CodeInvalidRange:
		return http.StatusBadRequest
	case absence.CodeForbidden:
		return http.StatusForbidden
	case absence.CodeNotFound:
		return http.StatusNotFound
	case absence.CodeInsufficientBalance, absence.CodeInvalidTransition, absence.CodeConflict:
		return http.StatusConflict
	case absence.CodeStorage:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	code := codeOf(err)
	status := statusFor(code)
	if status >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("code", code).Error("request failed")
	}
	writeError(w, status, string(code), err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	resp := ErrorResponse{Error: code}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
