package gsheets_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/worktime/sheet"
	"github.com/warp/worktime/store/gsheets"
)

// =============================================================================
// FAKE SHEETS API
// =============================================================================

type fakeSheets struct {
	mu      sync.Mutex
	sheets  map[string][][]string
	batches int
	fail    bool
}

func newFakeSheets() *fakeSheets {
	f := &fakeSheets{sheets: map[string][][]string{}}
	for _, name := range sheet.Names() {
		f.sheets[name] = [][]string{append([]string{}, sheet.Headers[name]...)}
	}
	return f
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.fail {
		http.Error(w, `{"error":{"code":503}}`, http.StatusServiceUnavailable)
		return
	}

	const prefix = "/spreadsheets/sheet-123/values"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, prefix)

	switch {
	case rest == ":batchUpdate" && r.Method == http.MethodPost:
		var req struct {
			ValueInputOption string `json:"valueInputOption"`
			Data             []struct {
				Range  string     `json:"range"`
				Values [][]string `json:"values"`
			} `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.batches++
		for _, d := range req.Data {
			f.set(d.Range, d.Values[0][0])
		}
		w.Write([]byte(`{}`))

	case strings.HasSuffix(rest, ":append") && r.Method == http.MethodPost:
		rng := strings.TrimSuffix(strings.TrimPrefix(rest, "/"), ":append")
		name := strings.SplitN(rng, "!", 2)[0]
		if r.URL.Query().Get("valueInputOption") != "RAW" {
			http.Error(w, "missing valueInputOption", http.StatusBadRequest)
			return
		}
		var vr struct {
			Values [][]string `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		f.sheets[name] = append(f.sheets[name], vr.Values...)
		w.Write([]byte(`{}`))

	case r.Method == http.MethodPut:
		var vr struct {
			Values [][]string `json:"values"`
		}
		json.NewDecoder(r.Body).Decode(&vr)
		f.set(strings.TrimPrefix(rest, "/"), vr.Values[0][0])
		w.Write([]byte(`{}`))

	case r.Method == http.MethodGet:
		name := strings.TrimPrefix(rest, "/")
		rows, ok := f.sheets[name]
		if !ok {
			http.Error(w, `{"error":{"code":400,"message":"Unable to parse range"}}`, http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"range": name, "majorDimension": "ROWS", "values": rows})

	default:
		http.NotFound(w, r)
	}
}

// set writes "sheet!C7" style references. Only single-letter columns are
// needed by the layouts.
func (f *fakeSheets) set(ref, value string) {
	parts := strings.SplitN(ref, "!", 2)
	name, cell := parts[0], parts[1]
	col := int(cell[0] - 'A')
	row, _ := strconv.Atoi(cell[1:])
	rows := f.sheets[name]
	r := rows[row-1]
	for len(r) <= col {
		r = append(r, "")
	}
	r[col] = value
	rows[row-1] = r
}

func newTestStore(t *testing.T) (*gsheets.Store, *fakeSheets) {
	fake := newFakeSheets()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return gsheets.NewWithHTTPClient(srv.URL, "sheet-123", srv.Client()), fake
}

var _ sheet.Store = (*gsheets.Store)(nil)
var _ sheet.BatchUpdater = (*gsheets.Store)(nil)

// =============================================================================
// TESTS
// =============================================================================

func TestStore_ReadAppendFind(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AppendRow(ctx, sheet.Entitlements, sheet.Row{"E1", "200", "0", "0", "0", "200"}))
	require.NoError(t, store.AppendRow(ctx, sheet.Entitlements, sheet.Row{"E2", "160", "0", "0", "0", "160"}))

	rows, err := store.ReadAll(ctx, sheet.Entitlements)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "employee_id", rows[0][0])
	assert.Equal(t, sheet.Row{"E2", "160", "0", "0", "0", "160"}, rows[2])

	row, err := store.FindRow(ctx, sheet.Entitlements, "E2")
	require.NoError(t, err)
	assert.Equal(t, 3, row)

	_, err = store.FindRow(ctx, sheet.Entitlements, "E3")
	assert.ErrorIs(t, err, sheet.ErrRowNotFound)
}

func TestStore_UpdateCell(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, sheet.AbsenceRequests,
		sheet.Row{"1", "E1", "10/03/2023", "10/03/2023", "9:30", "17:30", "1", "01/03/2023", "/", "False"}))

	require.NoError(t, store.UpdateCell(ctx, sheet.AbsenceRequests, 2, sheet.ReqColApproved, "True"))

	assert.Equal(t, "True", fake.sheets[sheet.AbsenceRequests][1][sheet.ReqColApproved])
}

func TestStore_UpdateCellsUsesOneBatch(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	require.NoError(t, store.AppendRow(ctx, sheet.Entitlements, sheet.Row{"E1", "200", "0", "0", "0", "200"}))

	err := store.UpdateCells(ctx, sheet.Entitlements, 2, map[int]string{
		sheet.EntColPending:     "8",
		sheet.EntColUnallocated: "192",
	})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.batches)
	assert.Equal(t, []string{"E1", "200", "0", "0", "8", "192"}, fake.sheets[sheet.Entitlements][1])
}

func TestStore_APIErrorsAreStorageErrors(t *testing.T) {
	store, fake := newTestStore(t)
	ctx := context.Background()
	fake.fail = true

	_, err := store.ReadAll(ctx, sheet.Entitlements)
	require.Error(t, err)
	assert.True(t, sheet.IsStorage(err))

	var apiErr *gsheets.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.Status)

	err = store.UpdateCell(ctx, sheet.Entitlements, 2, 1, "x")
	var se *sheet.StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "update_cell", se.Op)
}

func TestStore_ContextCancelled(t *testing.T) {
	store, _ := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := store.ReadAll(ctx, sheet.Entitlements)
	assert.True(t, sheet.IsStorage(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := gsheets.New(context.Background(), gsheets.Config{})
	assert.Error(t, err)

	_, err = gsheets.New(context.Background(), gsheets.Config{SpreadsheetID: "x"})
	assert.Error(t, err)

	_, err = gsheets.New(context.Background(), gsheets.Config{SpreadsheetID: "x", CredentialsJSON: []byte("{not json")})
	assert.Error(t, err)
}
