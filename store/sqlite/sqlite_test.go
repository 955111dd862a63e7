package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/sheet"
	"github.com/warp/worktime/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

var _ sheet.Store = (*sqlite.Store)(nil)
var _ sheet.BatchUpdater = (*sqlite.Store)(nil)

// =============================================================================
// CONTRACT TESTS
// =============================================================================

func TestStore_SeedsHeaders(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range sheet.Names() {
		rows, err := store.ReadAll(ctx, name)
		require.NoError(t, err, name)
		require.Len(t, rows, 1, name)
		assert.Equal(t, sheet.Headers[name], rows[0])
	}
}

func TestStore_AppendFindUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	// GIVEN: two request rows with non-sequential ids
	require.NoError(t, store.AppendRow(ctx, sheet.AbsenceRequests,
		sheet.Row{"7", "E1", "10/03/2023", "10/03/2023", "9:30", "17:30", "1", "01/03/2023", "/", "False"}))
	require.NoError(t, store.AppendRow(ctx, sheet.AbsenceRequests,
		sheet.Row{"3", "E2", "13/03/2023", "13/03/2023", "9:30", "13:30", "0.5", "01/03/2023", "/", "False"}))

	// WHEN: looking up by id
	row, err := store.FindRow(ctx, sheet.AbsenceRequests, "3")
	require.NoError(t, err)

	// THEN: the row number is the sheet position, not id+1
	assert.Equal(t, 3, row)

	require.NoError(t, store.UpdateCell(ctx, sheet.AbsenceRequests, row, sheet.ReqColApproved, "True"))
	rows, err := store.ReadAll(ctx, sheet.AbsenceRequests)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "True", rows[2][sheet.ReqColApproved])
	assert.Equal(t, "/", rows[1][sheet.ReqColApproved])

	_, err = store.FindRow(ctx, sheet.AbsenceRequests, "request_id")
	assert.ErrorIs(t, err, sheet.ErrRowNotFound, "header is never a match")
}

func TestStore_UpdateCellsAtomic(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, sheet.Entitlements, sheet.Row{"E1", "200", "0", "0", "0", "200"}))

	err := store.UpdateCells(ctx, sheet.Entitlements, 2, map[int]string{
		sheet.EntColPending:     "8",
		sheet.EntColUnallocated: "192",
	})
	require.NoError(t, err)

	rows, err := store.ReadAll(ctx, sheet.Entitlements)
	require.NoError(t, err)
	assert.Equal(t, sheet.Row{"E1", "200", "0", "0", "8", "192"}, rows[1])

	err = store.UpdateCells(ctx, sheet.Entitlements, 5, map[int]string{0: "x"})
	assert.True(t, sheet.IsStorage(err))
}

func TestStore_UpdatingKeyCellMovesLookup(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, sheet.Clockings, sheet.Row{"E1", "01/03/2023", "09:00:00", ""}))

	require.NoError(t, store.UpdateCell(ctx, sheet.Clockings, 2, 0, "E9"))

	_, err := store.FindRow(ctx, sheet.Clockings, "E1")
	assert.ErrorIs(t, err, sheet.ErrRowNotFound)
	row, err := store.FindRow(ctx, sheet.Clockings, "E9")
	require.NoError(t, err)
	assert.Equal(t, 2, row)
}

func TestStore_UnknownSheet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.ReadAll(ctx, "nope")
	assert.ErrorIs(t, err, sheet.ErrUnknownSheet)
	err = store.AppendRow(ctx, "nope", sheet.Row{"x"})
	assert.ErrorIs(t, err, sheet.ErrUnknownSheet)
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "worktime.db")
	ctx := context.Background()

	store, err := sqlite.New(path)
	require.NoError(t, err)
	require.NoError(t, store.AppendRow(ctx, sheet.Entitlements, sheet.Row{"E1", "200", "0", "0", "0", "200"}))
	require.NoError(t, store.Close())

	reopened, err := sqlite.New(path)
	require.NoError(t, err)
	defer reopened.Close()

	rows, err := reopened.ReadAll(ctx, sheet.Entitlements)
	require.NoError(t, err)
	require.Len(t, rows, 2, "header is not duplicated on reopen")
	assert.Equal(t, "E1", rows[1][0])
}
