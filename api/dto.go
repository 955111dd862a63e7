/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON bodies the API accepts and the few response shapes
  that differ from the domain types. Requests, entitlements and
  clockings are otherwise returned as the domain types themselves; their
  dates marshal as DD/MM/YYYY.

NAMING CONVENTION:
  - *Request: Request body types from clients
  - *DTO: Response types returned to clients

VALIDATION:
  Validation is done in handlers and the domain packages, not in DTOs.
*/
package api

import (
	"github.com/warp/worktime/absence"
)

// =============================================================================
// REQUEST BODIES
// =============================================================================

// SubmitAbsenceRequest is the body of POST /api/employees/{id}/requests.
type SubmitAbsenceRequest struct {
	Duration  string `json:"duration"`   // morning, afternoon, full day, multi-day
	StartDate string `json:"start_date"` // DD/MM/YYYY
	EndDate   string `json:"end_date,omitempty"`
	Unpaid    bool   `json:"unpaid,omitempty"`
}

// RecordAbsenceRequest is the body of POST /api/admin/absences.
type RecordAbsenceRequest struct {
	EmployeeID string `json:"employee_id"`
	SubmitAbsenceRequest
}

// CorrectClockingRequest is the body of PUT /api/admin/clockings.
type CorrectClockingRequest struct {
	EmployeeID string `json:"employee_id"`
	Date       string `json:"date"` // DD/MM/YYYY
	Kind       string `json:"kind"` // in or out
	Time       string `json:"time"` // HH:MM or HH:MM:SS
}

// ProvisionRequest is the body of POST /api/admin/entitlements.
type ProvisionRequest struct {
	EmployeeID string `json:"employee_id"`
	TotalHours int    `json:"total_hours"`
}

// =============================================================================
// RESPONSES
// =============================================================================

// EntitlementDTO shows an allowance in hours and in the days the sheet
// users are used to.
type EntitlementDTO struct {
	absence.Entitlement
	Days BucketDaysDTO `json:"days"`
}

// BucketDaysDTO is an allowance expressed in days.
type BucketDaysDTO struct {
	Total       string `json:"total"`
	Taken       string `json:"taken"`
	Planned     string `json:"planned"`
	Pending     string `json:"pending"`
	Unallocated string `json:"unallocated"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

func toEntitlementDTO(e absence.Entitlement) EntitlementDTO {
	return EntitlementDTO{
		Entitlement: e,
		Days: BucketDaysDTO{
			Total:       absence.DaysString(e.Total),
			Taken:       absence.DaysString(e.Taken),
			Planned:     absence.DaysString(e.Planned),
			Pending:     absence.DaysString(e.Pending),
			Unallocated: absence.DaysString(e.Unallocated),
		},
	}
}
