package sheet

import (
	"context"
	"fmt"
	"sync"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory holds every sheet in process memory. Each sheet starts with its
// header row.
type Memory struct {
	mu     sync.RWMutex
	sheets map[string][]Row
}

// NewMemory returns a store holding the standard sheets, each with only
// its header.
func NewMemory() *Memory {
	m := &Memory{sheets: make(map[string][]Row)}
	for _, name := range Names() {
		m.sheets[name] = []Row{Headers[name].Clone()}
	}
	return m
}

// ReadAll returns a copy of every row, header first.
func (m *Memory) ReadAll(_ context.Context, sheet string) ([]Row, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, ok := m.sheets[sheet]
	if !ok {
		return nil, Wrap("read_all", sheet, ErrUnknownSheet)
	}
	out := make([]Row, len(rows))
	for i, r := range rows {
		out[i] = r.Clone()
	}
	return out, nil
}

func (m *Memory) AppendRow(_ context.Context, sheet string, row Row) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, ok := m.sheets[sheet]
	if !ok {
		return Wrap("append_row", sheet, ErrUnknownSheet)
	}
	m.sheets[sheet] = append(rows, row.Clone())
	return nil
}

func (m *Memory) UpdateCell(_ context.Context, sheet string, row, col int, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked("update_cell", sheet, row, map[int]string{col: value})
}

// UpdateCells writes all values or none.
func (m *Memory) UpdateCells(_ context.Context, sheet string, row int, values map[int]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked("update_cells", sheet, row, values)
}

func (m *Memory) updateLocked(op, sheet string, row int, values map[int]string) error {
	rows, ok := m.sheets[sheet]
	if !ok {
		return Wrap(op, sheet, ErrUnknownSheet)
	}
	idx := row - 1
	if idx < 0 || idx >= len(rows) {
		return Wrap(op, sheet, fmt.Errorf("row %d out of range", row))
	}
	for col := range values {
		if col < 0 {
			return Wrap(op, sheet, fmt.Errorf("column %d out of range", col))
		}
	}

	r := rows[idx]
	for col, v := range values {
		for len(r) <= col {
			r = append(r, "")
		}
		r[col] = v
	}
	rows[idx] = r
	return nil
}

func (m *Memory) FindRow(_ context.Context, sheet string, key string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rows, ok := m.sheets[sheet]
	if !ok {
		return 0, Wrap("find_row", sheet, ErrUnknownSheet)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Cell(0) == key {
			return RowNumber(i), nil
		}
	}
	return 0, ErrRowNotFound
}
