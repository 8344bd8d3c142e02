/* sheets.go - Google Sheets implementation of tabular.Store

Talks to the Sheets values API. Each table is one sheet (tab) inside a
single spreadsheet; ranges are passed through in A1 notation prefixed
with the sheet title ("Lots!A2:J").

PURPOSE: production backend — the ledger lives in a spreadsheet the
owner can open and audit by hand.

SEE ALSO: tabular/store.go (contract), tabular/memory (test double)
*/

package sheets

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/lotbook/stock-engine/tabular"
)

// perCallTimeout bounds every round trip to the Sheets API so a hung
// call cannot stall the single-writer service indefinitely.
const perCallTimeout = 20 * time.Second

type Store struct {
	svc           *sheets.Service
	spreadsheetID string
}

// New builds a Store for the given spreadsheet, authenticating every
// call with the supplied token source.
func New(ctx context.Context, spreadsheetID string, ts oauth2.TokenSource) (*Store, error) {
	svc, err := sheets.NewService(ctx, option.WithTokenSource(ts))
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Store{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// =============================================================================
// READS
// =============================================================================

func (s *Store) ReadRange(ctx context.Context, table, rng string) ([][]string, error) {
	if _, err := tabular.ParseRange(rng); err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	resp, err := s.svc.Spreadsheets.Values.
		Get(s.spreadsheetID, table+"!"+rng).
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets read %s!%s: %w", table, rng, err)
	}

	rows := make([][]string, 0, len(resp.Values))
	for _, raw := range resp.Values {
		row := make([]string, 0, len(raw))
		for _, cell := range raw {
			row = append(row, cellString(cell))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *Store) Tables(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	meta, err := s.svc.Spreadsheets.
		Get(s.spreadsheetID).
		Fields("sheets.properties.title").
		Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("sheets metadata: %w", err)
	}

	names := make([]string, 0, len(meta.Sheets))
	for _, sh := range meta.Sheets {
		if sh.Properties != nil {
			names = append(names, sh.Properties.Title)
		}
	}
	return names, nil
}

// =============================================================================
// WRITES
// =============================================================================

func (s *Store) WriteRange(ctx context.Context, table, rng string, rows [][]string) error {
	if _, err := tabular.ParseRange(rng); err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	vr := &sheets.ValueRange{Values: toValues(rows)}
	_, err := s.svc.Spreadsheets.Values.
		Update(s.spreadsheetID, table+"!"+rng, vr).
		ValueInputOption("RAW").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("sheets write %s!%s: %w", table, rng, err)
	}
	return nil
}

// AppendRow writes at the first row past the current extent of column A.
// Read-then-write rather than the values.append API so the row lands at
// a predictable index even when earlier rows contain gaps.
func (s *Store) AppendRow(ctx context.Context, table string, row []string) error {
	existing, err := s.ReadRange(ctx, table, "A:A")
	if err != nil {
		return err
	}
	next := len(existing) + 1
	return s.WriteRange(ctx, table, tabular.RowSpan(next, len(row)), [][]string{row})
}

func (s *Store) CreateTable(ctx context.Context, table string) error {
	names, err := s.Tables(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if name == table {
			return tabular.ErrTableExists
		}
	}

	ctx, cancel := context.WithTimeout(ctx, perCallTimeout)
	defer cancel()

	req := &sheets.BatchUpdateSpreadsheetRequest{
		Requests: []*sheets.Request{{
			AddSheet: &sheets.AddSheetRequest{
				Properties: &sheets.SheetProperties{Title: table},
			},
		}},
	}
	if _, err := s.svc.Spreadsheets.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("sheets create table %s: %w", table, err)
	}
	return nil
}

// =============================================================================
// HELPERS
// =============================================================================

func cellString(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func toValues(rows [][]string) [][]interface{} {
	out := make([][]interface{}, len(rows))
	for i, row := range rows {
		cells := make([]interface{}, len(row))
		for j, cell := range row {
			cells[j] = cell
		}
		out[i] = cells
	}
	return out
}
