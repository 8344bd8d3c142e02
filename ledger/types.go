/*
Package ledger owns the inventory ledger: lot and sale record lifecycle,
stock invariants, sequential ID allocation, and the inventory rollup.

KEY CONCEPTS IN THIS FILE (types.go):
  - Lot: A purchased batch of goods, tracked as a unit of stock
  - Sale: A disposal of pieces from exactly one Lot
  - InventoryRow: Denormalized per-lot rollup kept in sync on every sale
  - EntityKind: Which sequence counter an ID comes from

DESIGN PRINCIPLES:
  1. Derived fields (totalPrice, profit) are persisted at creation time,
     never recomputed from later state
  2. Precision: decimal.Decimal for money, int for piece counts
  3. Records are created once and read many times; a Lot mutates only its
     remainingPieces/status, a Sale never mutates, nothing is deleted

SEE ALSO:
  - service.go: Record lifecycle and invariants
  - codec.go: Row encoding/decoding against the tabular store
  - sequence.go: ID allocation
*/
package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// TABLES - Names and header rows in the backing store
// =============================================================================

const (
	TableLots      = "Lots"
	TableSales     = "Sales"
	TableInventory = "Inventory"
	TableConfig    = "Config"
)

var (
	LotHeader = []string{
		"Lot ID", "Supplier Name", "Supplier Mobile", "Pieces",
		"Price Per Piece", "Total Price", "Image URL", "Entry Date",
		"Status", "Remaining Pieces",
	}
	SaleHeader = []string{
		"Sale ID", "Lot ID", "Pieces", "Price Per Piece", "Total Price",
		"Customer Name", "Customer Mobile", "Image URL", "Sale Date", "Profit",
	}
	InventoryHeader = []string{
		"Lot ID", "Total Pieces", "Sold Pieces", "Remaining Pieces", "Last Update",
	}
	ConfigHeader = []string{"Key", "Value"}
)

// =============================================================================
// ENTITY KINDS - One sequence counter per kind
// =============================================================================

type EntityKind string

const (
	KindLot  EntityKind = "LOT"
	KindSale EntityKind = "SALE"
)

// CounterKey is the Config-table key holding the last-issued ID for a kind.
func (k EntityKind) CounterKey() string {
	switch k {
	case KindLot:
		return "LastLotID"
	case KindSale:
		return "LastSaleID"
	}
	return "Last" + string(k) + "ID"
}

// =============================================================================
// LOT - A purchased batch of goods
// =============================================================================

// Lot statuses. A lot starts Active and is marked SoldOut when its last
// piece is sold.
const (
	StatusActive  = "Active"
	StatusSoldOut = "Sold Out"
)

type Lot struct {
	LotID           string
	SupplierName    string
	SupplierMobile  string
	Pieces          int
	PricePerPiece   decimal.Decimal
	TotalPrice      decimal.Decimal
	ImageURL        string
	EntryDate       time.Time
	Status          string
	RemainingPieces int
}

// =============================================================================
// SALE - A disposal of pieces from exactly one Lot
// =============================================================================

type Sale struct {
	SaleID         string
	LotID          string
	Pieces         int
	PricePerPiece  decimal.Decimal
	TotalPrice     decimal.Decimal
	CustomerName   string
	CustomerMobile string
	ImageURL       string
	SaleDate       time.Time
	Profit         decimal.Decimal
}

// =============================================================================
// INVENTORY ROW - Materialized per-lot rollup
// =============================================================================

// InventoryRow mirrors one Lot. Invariant:
// SoldPieces + RemainingPieces == TotalPieces == Lot.Pieces.
type InventoryRow struct {
	LotID           string
	TotalPieces     int
	SoldPieces      int
	RemainingPieces int
	LastUpdate      time.Time
}
