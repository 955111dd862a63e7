/*
Package sqlite provides a SQLite-backed implementation of sheet.Store.

PURPOSE:
  Keeps the same sheet/row/cell model the spreadsheet uses, persisted in a
  local SQLite file. Useful for running the service without network access
  to the spreadsheet and for integration tests.

KEY TABLES:
  sheet_rows: one record per spreadsheet row
    sheet     sheet name (absence_requests, entitlements, ...)
    position  sheet row number, header is 1
    row_key   first cell, indexed for FindRow
    cells     JSON array of the row's cells

CONCURRENCY:
  Uses sync.RWMutex for thread-safety, same as the in-memory store.
  ":memory:" databases are pinned to a single connection so every query
  sees the same database.

WAL MODE:
  File databases are opened with WAL (Write-Ahead Logging).

USAGE:
  store, err := sqlite.New("./data/worktime.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - sheet/sheet.go: Interface definitions
  - sheet/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/worktime/sheet"
)

// Store implements sheet.Store and sheet.BatchUpdater using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	dsn := dbPath + "?_foreign_keys=on&_journal_mode=WAL"
	if dbPath == ":memory:" {
		dsn = dbPath
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the schema and seeds each known sheet with its header.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheet_rows (
		sheet TEXT NOT NULL,
		position INTEGER NOT NULL,
		row_key TEXT NOT NULL DEFAULT '',
		cells TEXT NOT NULL,
		PRIMARY KEY (sheet, position)
	);

	CREATE INDEX IF NOT EXISTS idx_sheet_rows_key
		ON sheet_rows(sheet, row_key);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	for _, name := range sheet.Names() {
		cells, err := encodeCells(sheet.Headers[name])
		if err != nil {
			return err
		}
		_, err = s.db.Exec(
			`INSERT OR IGNORE INTO sheet_rows (sheet, position, row_key, cells) VALUES (?, 1, ?, ?)`,
			name, sheet.Headers[name].Cell(0), cells,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// ROW STORE (sheet.Store interface)
// =============================================================================

// ReadAll returns every row of the sheet ordered by position.
func (s *Store) ReadAll(ctx context.Context, name string) ([]sheet.Row, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT position, cells FROM sheet_rows WHERE sheet = ? ORDER BY position`, name)
	if err != nil {
		return nil, sheet.Wrap("read_all", name, err)
	}
	defer rows.Close()

	var out []sheet.Row
	for rows.Next() {
		var pos int
		var raw string
		if err := rows.Scan(&pos, &raw); err != nil {
			return nil, sheet.Wrap("read_all", name, err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, sheet.Wrap("read_all", name, fmt.Errorf("row %d: %w", pos, err))
		}
		out = append(out, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, sheet.Wrap("read_all", name, err)
	}
	if len(out) == 0 {
		return nil, sheet.Wrap("read_all", name, sheet.ErrUnknownSheet)
	}
	return out, nil
}

// AppendRow inserts the row after the current last position.
func (s *Store) AppendRow(ctx context.Context, name string, row sheet.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cells, err := encodeCells(row)
	if err != nil {
		return sheet.Wrap("append_row", name, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sheet.Wrap("append_row", name, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	var last sql.NullInt64
	if err := tx.QueryRowContext(ctx,
		`SELECT MAX(position) FROM sheet_rows WHERE sheet = ?`, name).Scan(&last); err != nil {
		return sheet.Wrap("append_row", name, err)
	}
	if !last.Valid {
		return sheet.Wrap("append_row", name, sheet.ErrUnknownSheet)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sheet_rows (sheet, position, row_key, cells) VALUES (?, ?, ?, ?)`,
		name, last.Int64+1, row.Cell(0), cells); err != nil {
		return sheet.Wrap("append_row", name, err)
	}
	return sheet.Wrap("append_row", name, tx.Commit())
}

// UpdateCell overwrites one cell of an existing row.
func (s *Store) UpdateCell(ctx context.Context, name string, row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, "update_cell", name, row, map[int]string{col: value})
}

// UpdateCells overwrites several cells of one row in a single transaction.
func (s *Store) UpdateCells(ctx context.Context, name string, row int, values map[int]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.update(ctx, "update_cells", name, row, values)
}

func (s *Store) update(ctx context.Context, op, name string, row int, values map[int]string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return sheet.Wrap(op, name, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		`SELECT cells FROM sheet_rows WHERE sheet = ? AND position = ?`, name, row).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return sheet.Wrap(op, name, fmt.Errorf("row %d out of range", row))
	}
	if err != nil {
		return sheet.Wrap(op, name, err)
	}

	cells, err := decodeCells(raw)
	if err != nil {
		return sheet.Wrap(op, name, err)
	}
	for col, v := range values {
		if col < 0 {
			return sheet.Wrap(op, name, fmt.Errorf("column %d out of range", col))
		}
		for len(cells) <= col {
			cells = append(cells, "")
		}
		cells[col] = v
	}

	encoded, err := encodeCells(cells)
	if err != nil {
		return sheet.Wrap(op, name, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sheet_rows SET cells = ?, row_key = ? WHERE sheet = ? AND position = ?`,
		encoded, cells.Cell(0), name, row); err != nil {
		return sheet.Wrap(op, name, err)
	}
	return sheet.Wrap(op, name, tx.Commit())
}

// FindRow returns the position of the first data row keyed by key.
func (s *Store) FindRow(ctx context.Context, name string, key string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pos int
	err := s.db.QueryRowContext(ctx,
		`SELECT position FROM sheet_rows WHERE sheet = ? AND row_key = ? AND position > 1
		 ORDER BY position LIMIT 1`, name, key).Scan(&pos)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, sheet.ErrRowNotFound
	}
	if err != nil {
		return 0, sheet.Wrap("find_row", name, err)
	}
	return pos, nil
}

func encodeCells(r sheet.Row) (string, error) {
	if r == nil {
		r = sheet.Row{}
	}
	b, err := json.Marshal([]string(r))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeCells(raw string) (sheet.Row, error) {
	var cells []string
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("decoding cells: %w", err)
	}
	return sheet.Row(cells), nil
}
