package absence

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/warp/worktime/calendar"
	"github.com/warp/worktime/sheet"
)

// AuditAction names what happened.
type AuditAction string

const (
	AuditRequestCreated   AuditAction = "request_created"
	AuditRequestApproved  AuditAction = "request_approved"
	AuditRequestRejected  AuditAction = "request_rejected"
	AuditRequestCanceled  AuditAction = "request_canceled"
	AuditAbsenceRecorded  AuditAction = "absence_recorded"
	AuditReconciliation   AuditAction = "reconciliation"
	AuditPartialWrite     AuditAction = "partial_write"
	AuditEntitlementAdded AuditAction = "entitlement_provisioned"
)

// AuditEntry records who did what when.
type AuditEntry struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	ActorID    string         `json:"actor_id"`
	Action     AuditAction    `json:"action"`
	EmployeeID string         `json:"employee_id"`
	RequestID  int            `json:"request_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// AuditLog appends entries to the audit_log sheet. Failing to audit never
// fails the operation being audited; the failure is logged instead.
type AuditLog struct {
	store sheet.Store
	clock calendar.Clock
}

// NewAuditLog binds the log to a store.
func NewAuditLog(store sheet.Store, clock calendar.Clock) *AuditLog {
	return &AuditLog{store: store, clock: clock}
}

// Record appends one entry, filling ID and Timestamp.
func (a *AuditLog) Record(ctx context.Context, e AuditEntry) {
	if a == nil {
		return
	}
	e.ID = uuid.NewString()
	e.Timestamp = a.clock.Now()

	detail := ""
	if len(e.Payload) > 0 {
		if b, err := json.Marshal(e.Payload); err == nil {
			detail = string(b)
		}
	}
	reqID := ""
	if e.RequestID != 0 {
		reqID = strconv.Itoa(e.RequestID)
	}

	row := sheet.Row{
		e.ID,
		e.Timestamp.Format(time.RFC3339),
		e.ActorID,
		string(e.Action),
		e.EmployeeID,
		reqID,
		detail,
	}
	if err := a.store.AppendRow(ctx, sheet.AuditLog, row); err != nil {
		logrus.WithFields(logrus.Fields{
			"action":      e.Action,
			"employee_id": e.EmployeeID,
			"request_id":  e.RequestID,
		}).WithError(err).Warn("failed to write audit entry")
	}
}

// Entries reads back the log, oldest first.
func (a *AuditLog) Entries(ctx context.Context) ([]AuditEntry, error) {
	rows, err := a.store.ReadAll(ctx, sheet.AuditLog)
	if err != nil {
		return nil, err
	}
	out := make([]AuditEntry, 0, len(rows))
	for i := 1; i < len(rows); i++ {
		r := rows[i]
		e := AuditEntry{
			ID:         r.Cell(sheet.AudColID),
			ActorID:    r.Cell(sheet.AudColActor),
			Action:     AuditAction(r.Cell(sheet.AudColAction)),
			EmployeeID: r.Cell(sheet.AudColEmployeeID),
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, r.Cell(sheet.AudColTimestamp))
		e.RequestID, _ = strconv.Atoi(r.Cell(sheet.AudColRequestID))
		if d := r.Cell(sheet.AudColDetail); d != "" {
			_ = json.Unmarshal([]byte(d), &e.Payload)
		}
		out = append(out, e)
	}
	return out, nil
}
