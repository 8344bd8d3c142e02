/*
store.go - Tabular store contract

PURPOSE:
  Defines the interface between the ledger and the backing table store.
  The ledger treats persistence as a set of named tables of string rows,
  addressed with A1-style ranges. Different implementations can use
  Google Sheets, SQLite, or in-memory storage.

KEY OPERATIONS:
  ReadRange:   Fetch rows within an A1 range
  WriteRange:  Overwrite cells at an absolute address
  AppendRow:   Write past the current extent of the table
  CreateTable: Create a named empty table
  Tables:      List existing table names

CELLS ARE STRINGS:
  Every cell is a string on the wire, exactly as the Sheets values API
  returns them. Typed decoding happens one layer up (ledger/codec.go),
  where the tolerant-parsing policy lives.

APPEND IS NOT ATOMIC:
  AppendRow is "read row count, then write the next row". Two writers
  appending to the same table concurrently can collide. The ledger
  serializes its own writes; cross-process writers are not coordinated.

IMPLEMENTATIONS:
  - store/sheets:   Google Sheets (production)
  - store/sqlite:   Local single-file store
  - tabular/memory: In-memory for testing

SEE ALSO:
  - range.go: A1 range parsing and formatting
  - ledger/service.go: The only consumer of this interface
*/
package tabular

import (
	"context"
	"errors"
)

// =============================================================================
// SENTINEL ERRORS
// =============================================================================

var (
	// ErrTableNotFound is returned when a named table does not exist.
	ErrTableNotFound = errors.New("table not found")

	// ErrTableExists is returned by CreateTable when the table already exists.
	// Callers that want idempotent creation list Tables first.
	ErrTableExists = errors.New("table already exists")

	// ErrInvalidRange is returned when a range spec cannot be parsed.
	ErrInvalidRange = errors.New("invalid range spec")
)

// =============================================================================
// STORE - Interface for tabular persistence
// =============================================================================

// Store is a key-ordered table store. Each table is an ordered sequence of
// rows; each row is an ordered sequence of string cells.
type Store interface {
	// ReadRange returns the rows within rng. Rows are returned in table
	// order. Trailing empty cells may be omitted, matching the Sheets
	// values API.
	ReadRange(ctx context.Context, table, rng string) ([][]string, error)

	// WriteRange overwrites cells starting at the top-left of rng.
	// The table grows as needed to fit the written rows.
	WriteRange(ctx context.Context, table, rng string, rows [][]string) error

	// AppendRow writes row to the first row past the current extent.
	AppendRow(ctx context.Context, table string, row []string) error

	// CreateTable creates a named table with zero rows.
	CreateTable(ctx context.Context, table string) error

	// Tables returns the names of all existing tables.
	Tables(ctx context.Context) ([]string, error)
}
