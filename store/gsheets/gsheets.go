/*
Package gsheets implements sheet.Store on top of the Google Sheets v4 REST API.

PURPOSE:
  The business keeps its absence and clocking records in a shared
  spreadsheet. This store reads and writes that spreadsheet directly, one
  worksheet per sheet name, so the ledgers see exactly the rows people see
  in the browser.

AUTH:
  A service-account JSON key is exchanged for tokens through
  golang.org/x/oauth2/google. The resulting *http.Client refreshes tokens
  on its own. Every call carries the caller's context and the client has a
  hard timeout, so a slow API never blocks a ledger forever.

ENDPOINTS USED:
  GET  values/{sheet}                         ReadAll, FindRow
  POST values/{sheet}!A1:append               AppendRow
  PUT  values/{sheet}!{cell}                  UpdateCell
  POST values:batchUpdate                     UpdateCells

SEE ALSO:
  - sheet/sheet.go: Store contract
*/
package gsheets

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/warp/worktime/sheet"
)

const (
	// DefaultBaseURL is the public Sheets API endpoint.
	DefaultBaseURL = "https://sheets.googleapis.com/v4"

	// Scope grants read/write access to spreadsheets.
	Scope = "https://www.googleapis.com/auth/spreadsheets"

	defaultTimeout = 30 * time.Second
)

// Config selects the spreadsheet and credentials.
type Config struct {
	SpreadsheetID   string
	CredentialsFile string        // path to a service-account JSON key
	CredentialsJSON []byte        // used instead of CredentialsFile when set
	Timeout         time.Duration // per-request timeout, default 30s
}

// Store talks to one spreadsheet.
type Store struct {
	baseURL       string
	spreadsheetID string
	httpClient    *http.Client
}

// New authenticates with the service-account key and returns a Store.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.SpreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is required")
	}

	key := cfg.CredentialsJSON
	if len(key) == 0 {
		if cfg.CredentialsFile == "" {
			return nil, fmt.Errorf("credentials file is required")
		}
		b, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("reading credentials: %w", err)
		}
		key = b
	}

	creds, err := google.CredentialsFromJSON(ctx, key, Scope)
	if err != nil {
		return nil, fmt.Errorf("parsing credentials: %w", err)
	}

	client := oauth2.NewClient(ctx, creds.TokenSource)
	client.Timeout = cfg.Timeout
	if client.Timeout <= 0 {
		client.Timeout = defaultTimeout
	}
	return NewWithHTTPClient(DefaultBaseURL, cfg.SpreadsheetID, client), nil
}

// NewWithHTTPClient builds a Store against an arbitrary endpoint with a
// caller-supplied client. Tests point it at an httptest server.
func NewWithHTTPClient(baseURL, spreadsheetID string, client *http.Client) *Store {
	return &Store{
		baseURL:       strings.TrimRight(baseURL, "/"),
		spreadsheetID: spreadsheetID,
		httpClient:    client,
	}
}

// valueRange mirrors the Sheets API ValueRange resource.
type valueRange struct {
	Range          string     `json:"range,omitempty"`
	MajorDimension string     `json:"majorDimension,omitempty"`
	Values         [][]string `json:"values"`
}

type batchUpdateRequest struct {
	ValueInputOption string       `json:"valueInputOption"`
	Data             []valueRange `json:"data"`
}

// APIError is a non-2xx response from the Sheets API.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sheets API error %d: %s", e.Status, e.Body)
}

// =============================================================================
// ROW STORE (sheet.Store interface)
// =============================================================================

func (s *Store) ReadAll(ctx context.Context, name string) ([]sheet.Row, error) {
	var vr valueRange
	if err := s.do(ctx, http.MethodGet, s.valuesURL(name, ""), nil, &vr); err != nil {
		return nil, sheet.Wrap("read_all", name, err)
	}
	rows := make([]sheet.Row, len(vr.Values))
	for i, v := range vr.Values {
		rows[i] = sheet.Row(v)
	}
	return rows, nil
}

func (s *Store) AppendRow(ctx context.Context, name string, row sheet.Row) error {
	q := url.Values{}
	q.Set("valueInputOption", "RAW")
	q.Set("insertDataOption", "INSERT_ROWS")
	body := valueRange{Values: [][]string{row}}
	err := s.do(ctx, http.MethodPost, s.valuesURL(name+"!A1", ":append")+"?"+q.Encode(), body, nil)
	return sheet.Wrap("append_row", name, err)
}

func (s *Store) UpdateCell(ctx context.Context, name string, row, col int, value string) error {
	rng := name + "!" + sheet.A1(row, col)
	q := url.Values{}
	q.Set("valueInputOption", "RAW")
	body := valueRange{Range: rng, Values: [][]string{{value}}}
	err := s.do(ctx, http.MethodPut, s.valuesURL(rng, "")+"?"+q.Encode(), body, nil)
	return sheet.Wrap("update_cell", name, err)
}

// UpdateCells sends every cell in one batchUpdate call, which the API
// applies as a unit.
func (s *Store) UpdateCells(ctx context.Context, name string, row int, values map[int]string) error {
	cols := make([]int, 0, len(values))
	for c := range values {
		cols = append(cols, c)
	}
	sort.Ints(cols)

	req := batchUpdateRequest{ValueInputOption: "RAW"}
	for _, c := range cols {
		req.Data = append(req.Data, valueRange{
			Range:  name + "!" + sheet.A1(row, c),
			Values: [][]string{{values[c]}},
		})
	}
	endpoint := fmt.Sprintf("%s/spreadsheets/%s/values:batchUpdate", s.baseURL, url.PathEscape(s.spreadsheetID))
	err := s.do(ctx, http.MethodPost, endpoint, req, nil)
	return sheet.Wrap("update_cells", name, err)
}

// FindRow reads the sheet and scans the first column. The API has no
// server-side lookup for plain values.
func (s *Store) FindRow(ctx context.Context, name string, key string) (int, error) {
	rows, err := s.ReadAll(ctx, name)
	if err != nil {
		return 0, sheet.Wrap("find_row", name, err)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i].Cell(0) == key {
			return sheet.RowNumber(i), nil
		}
	}
	return 0, sheet.ErrRowNotFound
}

// =============================================================================
// HTTP
// =============================================================================

func (s *Store) valuesURL(rng, suffix string) string {
	return fmt.Sprintf("%s/spreadsheets/%s/values/%s%s",
		s.baseURL, url.PathEscape(s.spreadsheetID), url.PathEscape(rng), suffix)
}

func (s *Store) do(ctx context.Context, method, endpoint string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sheets API request failed: %w", err)
	}
	respBody, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("reading response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Body: string(respBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("decoding sheets response: %w", err)
	}
	return nil
}
