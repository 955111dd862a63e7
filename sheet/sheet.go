/*
sheet.go - Row-store contract shared by every storage backend

PURPOSE:
  The ledgers persist into named sheets of string cells, exactly as the
  spreadsheet the business already uses. Store is the only thing the
  ledgers know about storage; backends live in this package (Memory) and
  under store/ (sqlite, gsheets).

ADDRESSING:
  Rows are addressed the way the spreadsheet addresses them: row 1 is the
  header, the first data row is row 2. Columns are 0-based indexes into
  the layouts declared below.

OPTIONAL CAPABILITIES:
  BatchUpdater writes several cells of one row together. Callers detect it
  with a type assertion and fall back to UpdateCell when it is absent.

SEE ALSO:
  - memory.go: In-memory Store for tests and local runs
  - store/sqlite: SQLite Store
  - store/gsheets: Google Sheets Store
*/
package sheet

import (
	"context"
	"fmt"
	"sort"
)

// =============================================================================
// SHEET NAMES AND LAYOUTS
// =============================================================================

const (
	AbsenceRequests = "absence_requests"
	Entitlements    = "entitlements"
	Clockings       = "clockings"
	AuditLog        = "audit_log"
)

// absence_requests columns
const (
	ReqColID = iota
	ReqColEmployeeID
	ReqColStartDate
	ReqColEndDate
	ReqColStartTime
	ReqColEndTime
	ReqColDuration
	ReqColSubmittedOn
	ReqColApproved
	ReqColCancelled
)

// entitlements columns
const (
	EntColEmployeeID = iota
	EntColTotal
	EntColTaken
	EntColPlanned
	EntColPending
	EntColUnallocated
)

// clockings columns
const (
	ClkColEmployeeID = iota
	ClkColDate
	ClkColStart
	ClkColEnd
)

// audit_log columns
const (
	AudColID = iota
	AudColTimestamp
	AudColActor
	AudColAction
	AudColEmployeeID
	AudColRequestID
	AudColDetail
)

// Headers is the header row each sheet is created with.
var Headers = map[string]Row{
	AbsenceRequests: {"request_id", "employee_id", "start_date", "end_date", "start_time", "end_time", "duration", "submitted_on", "approved", "cancelled"},
	Entitlements:    {"employee_id", "total", "taken", "planned", "pending", "unallocated"},
	Clockings:       {"employee_id", "date", "clocked_in_at", "clocked_out_at"},
	AuditLog:        {"id", "timestamp", "actor", "action", "employee_id", "request_id", "detail"},
}

// Names lists every sheet in a stable order.
func Names() []string {
	return []string{AbsenceRequests, Entitlements, Clockings, AuditLog}
}

// FirstDataRow is the sheet row number of the first row below the header.
const FirstDataRow = 2

// RowNumber converts an index into ReadAll's result to a sheet row number.
func RowNumber(index int) int {
	return index + 1
}

// =============================================================================
// ROWS
// =============================================================================

// Row is one spreadsheet row.
type Row []string

// Cell returns column i, or "" when the row is shorter. The spreadsheet
// trims trailing empty cells so short rows are normal.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r) {
		return ""
	}
	return r[i]
}

// Clone copies the row.
func (r Row) Clone() Row {
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// ColumnLetter converts a 0-based column index to A1 notation (0 -> A, 26 -> AA).
func ColumnLetter(col int) string {
	s := ""
	for col >= 0 {
		s = string(rune('A'+col%26)) + s
		col = col/26 - 1
	}
	return s
}

// A1 returns the A1 reference of a cell, e.g. "C7".
func A1(row, col int) string {
	return fmt.Sprintf("%s%d", ColumnLetter(col), row)
}

// =============================================================================
// STORE INTERFACES
// =============================================================================

// Store is the storage collaborator consumed by the ledgers.
type Store interface {
	// ReadAll returns every row of the sheet, header first.
	ReadAll(ctx context.Context, sheet string) ([]Row, error)

	// AppendRow adds a row after the last one.
	AppendRow(ctx context.Context, sheet string, row Row) error

	// UpdateCell overwrites one cell. row is the 1-based sheet row and
	// col the 0-based column.
	UpdateCell(ctx context.Context, sheet string, row, col int, value string) error

	// FindRow returns the sheet row number of the first row whose first
	// cell equals key, or ErrRowNotFound.
	FindRow(ctx context.Context, sheet string, key string) (int, error)
}

// BatchUpdater is implemented by stores that can overwrite several cells
// of one row in a single write.
type BatchUpdater interface {
	UpdateCells(ctx context.Context, sheet string, row int, values map[int]string) error
}

// UpdateCells writes values through BatchUpdater when the store has it and
// otherwise cell by cell. The fallback is not atomic; the returned error
// names the first cell that failed.
func UpdateCells(ctx context.Context, s Store, sheet string, row int, values map[int]string) error {
	if bu, ok := s.(BatchUpdater); ok {
		return bu.UpdateCells(ctx, sheet, row, values)
	}
	for _, col := range sortedCols(values) {
		if err := s.UpdateCell(ctx, sheet, row, col, values[col]); err != nil {
			return err
		}
	}
	return nil
}

func sortedCols(values map[int]string) []int {
	cols := make([]int, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Ints(cols)
	return cols
}
