package sheet_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/sheet"
)

func TestColumnLetter(t *testing.T) {
	assert.Equal(t, "A", sheet.ColumnLetter(0))
	assert.Equal(t, "J", sheet.ColumnLetter(9))
	assert.Equal(t, "Z", sheet.ColumnLetter(25))
	assert.Equal(t, "AA", sheet.ColumnLetter(26))
	assert.Equal(t, "AB", sheet.ColumnLetter(27))
	assert.Equal(t, "C7", sheet.A1(7, 2))
}

func TestRow_CellPadsShortRows(t *testing.T) {
	r := sheet.Row{"1", "E1"}
	assert.Equal(t, "E1", r.Cell(1))
	assert.Equal(t, "", r.Cell(5))
	assert.Equal(t, "", r.Cell(-1))
}

func TestMemory_Contract(t *testing.T) {
	ctx := context.Background()
	m := sheet.NewMemory()

	// GIVEN: a fresh store
	rows, err := m.ReadAll(ctx, sheet.Entitlements)
	require.NoError(t, err)
	require.Len(t, rows, 1, "header only")
	assert.Equal(t, sheet.Headers[sheet.Entitlements], rows[0])

	// WHEN: rows are appended and a cell updated
	require.NoError(t, m.AppendRow(ctx, sheet.Entitlements, sheet.Row{"E1", "200", "0", "0", "0", "200"}))
	require.NoError(t, m.AppendRow(ctx, sheet.Entitlements, sheet.Row{"E2", "160", "0", "0", "0", "160"}))

	row, err := m.FindRow(ctx, sheet.Entitlements, "E2")
	require.NoError(t, err)
	assert.Equal(t, 3, row)

	require.NoError(t, m.UpdateCell(ctx, sheet.Entitlements, row, sheet.EntColPending, "8"))

	// THEN: the update lands on the right row
	rows, err = m.ReadAll(ctx, sheet.Entitlements)
	require.NoError(t, err)
	assert.Equal(t, "8", rows[2][sheet.EntColPending])
	assert.Equal(t, "0", rows[1][sheet.EntColPending])

	_, err = m.FindRow(ctx, sheet.Entitlements, "nobody")
	assert.ErrorIs(t, err, sheet.ErrRowNotFound)
}

func TestMemory_ReadAllReturnsCopies(t *testing.T) {
	ctx := context.Background()
	m := sheet.NewMemory()
	require.NoError(t, m.AppendRow(ctx, sheet.Clockings, sheet.Row{"E1", "01/03/2023", "09:00:00", ""}))

	rows, err := m.ReadAll(ctx, sheet.Clockings)
	require.NoError(t, err)
	rows[1][0] = "tampered"

	again, err := m.ReadAll(ctx, sheet.Clockings)
	require.NoError(t, err)
	assert.Equal(t, "E1", again[1][0])
}

func TestMemory_UpdateCellsExtendsShortRows(t *testing.T) {
	ctx := context.Background()
	m := sheet.NewMemory()
	require.NoError(t, m.AppendRow(ctx, sheet.Clockings, sheet.Row{"E1", "01/03/2023"}))

	require.NoError(t, m.UpdateCells(ctx, sheet.Clockings, 2, map[int]string{sheet.ClkColEnd: "17:00:00"}))

	rows, err := m.ReadAll(ctx, sheet.Clockings)
	require.NoError(t, err)
	assert.Equal(t, sheet.Row{"E1", "01/03/2023", "", "17:00:00"}, rows[1])
}

func TestMemory_Errors(t *testing.T) {
	ctx := context.Background()
	m := sheet.NewMemory()

	_, err := m.ReadAll(ctx, "nope")
	assert.True(t, sheet.IsStorage(err))
	assert.ErrorIs(t, err, sheet.ErrUnknownSheet)

	err = m.UpdateCell(ctx, sheet.Entitlements, 9, 0, "x")
	var se *sheet.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "update_cell", se.Op)
}

type cellOnly struct {
	sheet.Store
	writes []int
	failAt int
}

func (c *cellOnly) UpdateCell(ctx context.Context, name string, row, col int, value string) error {
	if col == c.failAt {
		return errors.New("boom")
	}
	c.writes = append(c.writes, col)
	return c.Store.UpdateCell(ctx, name, row, col, value)
}

func TestUpdateCells_FallsBackToCellWritesInColumnOrder(t *testing.T) {
	ctx := context.Background()
	mem := sheet.NewMemory()
	require.NoError(t, mem.AppendRow(ctx, sheet.Entitlements, sheet.Row{"E1", "200", "0", "0", "0", "200"}))

	s := &cellOnly{Store: mem, failAt: -1}
	err := sheet.UpdateCells(ctx, s, sheet.Entitlements, 2, map[int]string{5: "192", 4: "8"})
	require.NoError(t, err)
	assert.Equal(t, []int{4, 5}, s.writes)

	s = &cellOnly{Store: mem, failAt: 5}
	err = sheet.UpdateCells(ctx, s, sheet.Entitlements, 2, map[int]string{5: "0", 4: "0"})
	assert.Error(t, err)
	assert.Equal(t, []int{4}, s.writes)
}
