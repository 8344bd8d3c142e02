/*
codec.go - Row-to-record encoding and decoding

PURPOSE:
  Converts between typed ledger records and the raw string rows of the
  tabular store. Decoding is strict about shape (a row wider than its
  table's header is rejected) but deliberately tolerant about numeric
  content: an unparseable number decodes to zero so that one bad row
  cannot break an entire listing.

COLUMN ORDER:
  Fixed by the table headers in types.go. Encoding always emits the full
  width; decoding pads short rows, because the store may drop trailing
  empty cells.

SEE ALSO:
  - types.go: Record types and headers
  - service.go: The only caller
*/
package ledger

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TOLERANT FIELD PARSERS
// =============================================================================

// parseIntCell parses an integer cell, substituting 0 for anything
// unparseable. This keeps one bad row from failing a whole listing.
func parseIntCell(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// parseDecimalCell parses a money cell, substituting zero for anything
// unparseable.
func parseDecimalCell(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseTimeCell parses an RFC 3339 timestamp, substituting the zero time
// for anything unparseable.
func parseTimeCell(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// padRow grows row to width with empty cells, rejecting rows that are
// wider than the table allows.
func padRow(row []string, width int) ([]string, error) {
	if len(row) > width {
		return nil, fmt.Errorf("%w: row has %d cells, want at most %d",
			ErrValidation, len(row), width)
	}
	out := make([]string, width)
	copy(out, row)
	return out, nil
}

// =============================================================================
// LOT CODEC
// =============================================================================

func EncodeLotRow(l Lot) []string {
	return []string{
		l.LotID,
		l.SupplierName,
		l.SupplierMobile,
		strconv.Itoa(l.Pieces),
		l.PricePerPiece.String(),
		l.TotalPrice.String(),
		l.ImageURL,
		formatTime(l.EntryDate),
		l.Status,
		strconv.Itoa(l.RemainingPieces),
	}
}

func decodeLot(row []string) (Lot, error) {
	cells, err := padRow(row, len(LotHeader))
	if err != nil {
		return Lot{}, err
	}
	status := cells[8]
	if status == "" {
		status = StatusActive
	}
	return Lot{
		LotID:           cells[0],
		SupplierName:    cells[1],
		SupplierMobile:  cells[2],
		Pieces:          parseIntCell(cells[3]),
		PricePerPiece:   parseDecimalCell(cells[4]),
		TotalPrice:      parseDecimalCell(cells[5]),
		ImageURL:        cells[6],
		EntryDate:       parseTimeCell(cells[7]),
		Status:          status,
		RemainingPieces: parseIntCell(cells[9]),
	}, nil
}

// =============================================================================
// SALE CODEC
// =============================================================================

func EncodeSaleRow(s Sale) []string {
	return []string{
		s.SaleID,
		s.LotID,
		strconv.Itoa(s.Pieces),
		s.PricePerPiece.String(),
		s.TotalPrice.String(),
		s.CustomerName,
		s.CustomerMobile,
		s.ImageURL,
		formatTime(s.SaleDate),
		s.Profit.String(),
	}
}

func decodeSale(row []string) (Sale, error) {
	cells, err := padRow(row, len(SaleHeader))
	if err != nil {
		return Sale{}, err
	}
	return Sale{
		SaleID:         cells[0],
		LotID:          cells[1],
		Pieces:         parseIntCell(cells[2]),
		PricePerPiece:  parseDecimalCell(cells[3]),
		TotalPrice:     parseDecimalCell(cells[4]),
		CustomerName:   cells[5],
		CustomerMobile: cells[6],
		ImageURL:       cells[7],
		SaleDate:       parseTimeCell(cells[8]),
		Profit:         parseDecimalCell(cells[9]),
	}, nil
}

// =============================================================================
// INVENTORY CODEC
// =============================================================================

func EncodeInventoryRow(r InventoryRow) []string {
	return []string{
		r.LotID,
		strconv.Itoa(r.TotalPieces),
		strconv.Itoa(r.SoldPieces),
		strconv.Itoa(r.RemainingPieces),
		formatTime(r.LastUpdate),
	}
}

func decodeInventory(row []string) (InventoryRow, error) {
	cells, err := padRow(row, len(InventoryHeader))
	if err != nil {
		return InventoryRow{}, err
	}
	return InventoryRow{
		LotID:           cells[0],
		TotalPieces:     parseIntCell(cells[1]),
		SoldPieces:      parseIntCell(cells[2]),
		RemainingPieces: parseIntCell(cells[3]),
		LastUpdate:      parseTimeCell(cells[4]),
	}, nil
}
