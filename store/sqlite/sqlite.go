/*
Package sqlite provides a SQLite-backed implementation of tabular.Store.

PURPOSE:
  Local persistence without a Google account. Keeps the same
  row/column shape as the spreadsheet backend so the ledger code is
  identical against either.

SCHEMA:
  sheet_tables: one row per table (sheet tab)
  sheet_rows:   one row per sheet row, cells stored as a JSON array
                of strings keyed by (table_name, row_idx)

Rows are sparse: writing row 7 of an empty table stores only row 7,
and reads treat missing indexes as empty rows, matching spreadsheet
semantics.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of WAL mode. The ledger
  service serializes writes anyway; the mutex keeps raw Store usage
  safe too.

USAGE:
  store, err := sqlite.New("./data/stock.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - tabular/store.go: Interface definition
  - tabular/memory: In-memory implementation for testing
  - store/sheets: Google Sheets implementation
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/lotbook/stock-engine/tabular"
)

// Store implements tabular.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New opens (or creates) the database at path and migrates the schema.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheet_tables (
		name       TEXT PRIMARY KEY,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sheet_rows (
		table_name TEXT NOT NULL,
		row_idx    INTEGER NOT NULL,
		cells_json TEXT NOT NULL,
		PRIMARY KEY (table_name, row_idx),
		FOREIGN KEY (table_name) REFERENCES sheet_tables(name)
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

// =============================================================================
// TABLE MANAGEMENT
// =============================================================================

func (s *Store) CreateTable(ctx context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return err
	}
	if exists {
		return tabular.ErrTableExists
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sheet_tables (name, created_at) VALUES (?, ?)`,
		table, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	return nil
}

func (s *Store) Tables(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sheet_tables ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *Store) tableExists(ctx context.Context, table string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM sheet_tables WHERE name = ?`, table).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check table %s: %w", table, err)
	}
	return true, nil
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) ReadRange(ctx context.Context, table, rng string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, tabular.ErrTableNotFound
	}

	r, err := tabular.ParseRange(rng)
	if err != nil {
		return nil, err
	}

	stored, maxIdx, err := s.loadRows(ctx, table)
	if err != nil {
		return nil, err
	}

	startRow := r.StartRow
	if startRow == 0 {
		startRow = 1
	}
	endRow := r.EndRow
	if endRow == 0 || endRow > maxIdx {
		endRow = maxIdx
	}

	var out [][]string
	for i := startRow; i <= endRow; i++ {
		out = append(out, tabular.ClipCells(stored[i], r))
	}
	return out, nil
}

// loadRows reads every stored row of a table into a sparse map keyed by
// 1-based row index, plus the highest index present.
func (s *Store) loadRows(ctx context.Context, table string) (map[int][]string, int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT row_idx, cells_json FROM sheet_rows WHERE table_name = ?`, table)
	if err != nil {
		return nil, 0, fmt.Errorf("read rows %s: %w", table, err)
	}
	defer rows.Close()

	stored := make(map[int][]string)
	maxIdx := 0
	for rows.Next() {
		var idx int
		var blob string
		if err := rows.Scan(&idx, &blob); err != nil {
			return nil, 0, err
		}
		var cells []string
		if err := json.Unmarshal([]byte(blob), &cells); err != nil {
			return nil, 0, fmt.Errorf("decode row %s/%d: %w", table, idx, err)
		}
		stored[idx] = cells
		if idx > maxIdx {
			maxIdx = idx
		}
	}
	return stored, maxIdx, rows.Err()
}

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) WriteRange(ctx context.Context, table, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(ctx, table, rng, rows)
}

func (s *Store) AppendRow(ctx context.Context, table string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		return tabular.ErrTableNotFound
	}

	var maxIdx sql.NullInt64
	err = s.db.QueryRowContext(ctx,
		`SELECT MAX(row_idx) FROM sheet_rows WHERE table_name = ?`, table).Scan(&maxIdx)
	if err != nil {
		return fmt.Errorf("append extent %s: %w", table, err)
	}

	next := int(maxIdx.Int64) + 1
	return s.writeLocked(ctx, table, tabular.RowSpan(next, len(row)), [][]string{row})
}

func (s *Store) writeLocked(ctx context.Context, table, rng string, rows [][]string) error {
	exists, err := s.tableExists(ctx, table)
	if err != nil {
		return err
	}
	if !exists {
		return tabular.ErrTableNotFound
	}

	r, err := tabular.ParseRange(rng)
	if err != nil {
		return err
	}
	startRow := r.StartRow
	if startRow == 0 {
		startRow = 1
	}
	startCol := r.StartCol
	if startCol == 0 {
		startCol = 1
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin write %s: %w", table, err)
	}
	defer tx.Rollback()

	for i, row := range rows {
		rowIdx := startRow + i

		var blob string
		var cells []string
		err := tx.QueryRowContext(ctx,
			`SELECT cells_json FROM sheet_rows WHERE table_name = ? AND row_idx = ?`,
			table, rowIdx).Scan(&blob)
		switch {
		case err == sql.ErrNoRows:
			// New row.
		case err != nil:
			return fmt.Errorf("read row %s/%d: %w", table, rowIdx, err)
		default:
			if err := json.Unmarshal([]byte(blob), &cells); err != nil {
				return fmt.Errorf("decode row %s/%d: %w", table, rowIdx, err)
			}
		}

		for j, cell := range row {
			colIdx := startCol + j
			for colIdx > len(cells) {
				cells = append(cells, "")
			}
			cells[colIdx-1] = cell
		}

		encoded, err := json.Marshal(cells)
		if err != nil {
			return fmt.Errorf("encode row %s/%d: %w", table, rowIdx, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO sheet_rows (table_name, row_idx, cells_json) VALUES (?, ?, ?)
			 ON CONFLICT (table_name, row_idx) DO UPDATE SET cells_json = excluded.cells_json`,
			table, rowIdx, string(encoded))
		if err != nil {
			return fmt.Errorf("write row %s/%d: %w", table, rowIdx, err)
		}
	}

	return tx.Commit()
}
