/*
service.go - Ledger service: record lifecycle and stock invariants

PURPOSE:
  The Service owns Lot and Sale creation, listing, and the inventory
  rollup. It is the only writer to the backing store.

CRITICAL INVARIANTS:
  1. 0 <= lot.remainingPieces <= lot.pieces, always
  2. inventory.soldPieces + inventory.remainingPieces == inventory.totalPieces
     == lot.pieces
  3. IDs never repeat and strictly increase per kind
  4. Derived fields (totalPrice, profit) are computed once, at creation

MULTI-STEP WRITES:
  CreateLot is two sequential writes (Lots row, Inventory row);
  CreateSale is three (Sales row, Lot update, Inventory update). Each
  write can fail independently. A failure partway leaves a detectable
  inconsistency and no automatic compensation; ReconcileInventory
  recomputes the rollup and lot counts from Lots+Sales on demand.

CONCURRENCY:
  All mutations are serialized through a single mutex, making the
  check-then-decrement sequence and ID allocation safe within this
  process. The store itself offers no compare-and-swap, so a second
  process writing to the same spreadsheet can still race; deployments
  that need multi-writer correctness must funnel all mutations through
  one Service instance.

SEE ALSO:
  - sequence.go: ID allocation
  - codec.go: Row encoding/decoding
  - tabular/store.go: Store contract
*/
package ledger

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lotbook/stock-engine/tabular"
)

// =============================================================================
// SERVICE
// =============================================================================

type Service struct {
	store tabular.Store
	alloc *Allocator

	mu  sync.Mutex       // serializes all mutations
	now func() time.Time // injectable clock
}

func NewService(store tabular.Store) *Service {
	return &Service{
		store: store,
		alloc: NewAllocator(store),
		now:   time.Now,
	}
}

// =============================================================================
// BOOTSTRAP - First-use table and counter setup
// =============================================================================

// Bootstrap ensures the four tables exist with their header rows and that
// both sequence counters are initialized. Safe to call on every startup.
func (s *Service) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Tables(ctx)
	if err != nil {
		return storeErr("list tables", "", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}

	headers := map[string][]string{
		TableLots:      LotHeader,
		TableSales:     SaleHeader,
		TableInventory: InventoryHeader,
		TableConfig:    ConfigHeader,
	}
	for _, table := range []string{TableLots, TableSales, TableInventory, TableConfig} {
		if have[table] {
			continue
		}
		if err := s.store.CreateTable(ctx, table); err != nil && !errors.Is(err, tabular.ErrTableExists) {
			return storeErr("create", table, err)
		}
		header := headers[table]
		if err := s.store.WriteRange(ctx, table, tabular.RowSpan(1, len(header)), [][]string{header}); err != nil {
			return storeErr("write header", table, err)
		}
		log.Info().Str("table", table).Msg("created table")
	}

	return s.ensureCounters(ctx)
}

func (s *Service) ensureCounters(ctx context.Context) error {
	rows, err := s.store.ReadRange(ctx, TableConfig, "A:B")
	if err != nil {
		return storeErr("read", TableConfig, err)
	}
	have := make(map[string]bool)
	for _, row := range rows {
		if len(row) > 0 {
			have[row[0]] = true
		}
	}
	for _, kind := range []EntityKind{KindLot, KindSale} {
		if have[kind.CounterKey()] {
			continue
		}
		seed := []string{kind.CounterKey(), string(kind) + "-000"}
		if err := s.store.AppendRow(ctx, TableConfig, seed); err != nil {
			return storeErr("append", TableConfig, err)
		}
	}
	return nil
}

// =============================================================================
// LOT CREATION
// =============================================================================

type CreateLotInput struct {
	SupplierName   string
	SupplierMobile string
	Pieces         int
	PricePerPiece  decimal.Decimal
	ImageURL       string
}

// CreateLot validates the input, allocates a lot ID, and appends the Lot
// record plus its matching Inventory rollup row. Both writes must succeed
// for the lot to be valid; a failure between them leaves the Inventory row
// missing, which callers surface for retry.
func (s *Service) CreateLot(ctx context.Context, in CreateLotInput) (Lot, error) {
	if err := validateCreateLot(in); err != nil {
		return Lot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.alloc.NextID(ctx, KindLot)
	if err != nil {
		return Lot{}, err
	}

	now := s.now()
	lot := Lot{
		LotID:           id,
		SupplierName:    in.SupplierName,
		SupplierMobile:  in.SupplierMobile,
		Pieces:          in.Pieces,
		PricePerPiece:   in.PricePerPiece,
		TotalPrice:      in.PricePerPiece.Mul(decimal.NewFromInt(int64(in.Pieces))),
		ImageURL:        in.ImageURL,
		EntryDate:       now,
		Status:          StatusActive,
		RemainingPieces: in.Pieces,
	}

	if err := s.store.AppendRow(ctx, TableLots, EncodeLotRow(lot)); err != nil {
		return Lot{}, storeErr("append", TableLots, err)
	}

	inv := InventoryRow{
		LotID:           id,
		TotalPieces:     in.Pieces,
		SoldPieces:      0,
		RemainingPieces: in.Pieces,
		LastUpdate:      now,
	}
	if err := s.store.AppendRow(ctx, TableInventory, EncodeInventoryRow(inv)); err != nil {
		return Lot{}, storeErr("append", TableInventory, err)
	}

	log.Info().Str("lot_id", id).Int("pieces", in.Pieces).Msg("lot created")
	return lot, nil
}

func validateCreateLot(in CreateLotInput) error {
	if in.SupplierName == "" {
		return &ValidationError{Field: "supplierName", Message: "required"}
	}
	if in.Pieces <= 0 {
		return &ValidationError{Field: "pieces", Message: "must be positive"}
	}
	if in.PricePerPiece.IsNegative() {
		return &ValidationError{Field: "pricePerPiece", Message: "must not be negative"}
	}
	return nil
}

// =============================================================================
// SALE CREATION
// =============================================================================

type CreateSaleInput struct {
	LotID          string
	Pieces         int
	PricePerPiece  decimal.Decimal
	CustomerName   string
	CustomerMobile string
	ImageURL       string
}

// CreateSale checks stock against the referenced lot, records the sale,
// then decrements the lot and updates the inventory rollup. Profit is
// computed against the lot's original purchase price.
//
// The three writes are sequential and independently failable; a failure
// after the Sales append leaves the sale recorded with stock not yet
// decremented until ReconcileInventory runs or the caller retries.
func (s *Service) CreateSale(ctx context.Context, in CreateSaleInput) (Sale, error) {
	if err := validateCreateSale(in); err != nil {
		return Sale{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lot, lotRow, err := s.findLot(ctx, in.LotID)
	if err != nil {
		return Sale{}, err
	}
	if in.Pieces > lot.RemainingPieces {
		return Sale{}, &InsufficientStockError{
			LotID:     in.LotID,
			Requested: in.Pieces,
			Remaining: lot.RemainingPieces,
		}
	}

	id, err := s.alloc.NextID(ctx, KindSale)
	if err != nil {
		return Sale{}, err
	}

	now := s.now()
	pieces := decimal.NewFromInt(int64(in.Pieces))
	totalPrice := in.PricePerPiece.Mul(pieces)
	sale := Sale{
		SaleID:         id,
		LotID:          in.LotID,
		Pieces:         in.Pieces,
		PricePerPiece:  in.PricePerPiece,
		TotalPrice:     totalPrice,
		CustomerName:   in.CustomerName,
		CustomerMobile: in.CustomerMobile,
		ImageURL:       in.ImageURL,
		SaleDate:       now,
		Profit:         totalPrice.Sub(lot.PricePerPiece.Mul(pieces)),
	}

	if err := s.store.AppendRow(ctx, TableSales, EncodeSaleRow(sale)); err != nil {
		return Sale{}, storeErr("append", TableSales, err)
	}

	remaining := lot.RemainingPieces - in.Pieces
	if err := s.writeLotStock(ctx, lotRow, remaining); err != nil {
		return Sale{}, err
	}

	if err := s.applySaleToInventory(ctx, in.LotID, in.Pieces, now); err != nil {
		return Sale{}, err
	}

	log.Info().
		Str("sale_id", id).
		Str("lot_id", in.LotID).
		Int("pieces", in.Pieces).
		Int("remaining", remaining).
		Msg("sale created")
	return sale, nil
}

func validateCreateSale(in CreateSaleInput) error {
	if in.LotID == "" {
		return &ValidationError{Field: "lotId", Message: "required"}
	}
	if in.Pieces <= 0 {
		return &ValidationError{Field: "pieces", Message: "must be positive"}
	}
	if in.PricePerPiece.IsNegative() {
		return &ValidationError{Field: "pricePerPiece", Message: "must not be negative"}
	}
	return nil
}

// writeLotStock overwrites the status and remaining-pieces cells of the
// lot at the given 1-based table row.
func (s *Service) writeLotStock(ctx context.Context, lotRow, remaining int) error {
	status := StatusActive
	if remaining == 0 {
		status = StatusSoldOut
	}
	rng := tabular.Cell(9, lotRow) + ":" + tabular.Cell(10, lotRow)
	cells := [][]string{{status, strconv.Itoa(remaining)}}
	if err := s.store.WriteRange(ctx, TableLots, rng, cells); err != nil {
		return storeErr("write", TableLots, err)
	}
	return nil
}

func (s *Service) applySaleToInventory(ctx context.Context, lotID string, sold int, at time.Time) error {
	rows, err := s.store.ReadRange(ctx, TableInventory, "A2:E")
	if err != nil {
		return storeErr("read", TableInventory, err)
	}
	for i, row := range rows {
		if len(row) == 0 || row[0] != lotID {
			continue
		}
		inv, err := decodeInventory(row)
		if err != nil {
			return err
		}
		inv.SoldPieces += sold
		inv.RemainingPieces = inv.TotalPieces - inv.SoldPieces
		inv.LastUpdate = at

		rng := tabular.Cell(3, i+2) + ":" + tabular.Cell(5, i+2)
		cells := [][]string{{
			strconv.Itoa(inv.SoldPieces),
			strconv.Itoa(inv.RemainingPieces),
			formatTime(at),
		}}
		if err := s.store.WriteRange(ctx, TableInventory, rng, cells); err != nil {
			return storeErr("write", TableInventory, err)
		}
		return nil
	}
	return &NotFoundError{Kind: KindLot, ID: lotID}
}

// =============================================================================
// READS
// =============================================================================

// ListLots returns every lot in table order. Rows with unparseable numeric
// cells decode with zeros rather than failing the listing.
func (s *Service) ListLots(ctx context.Context) ([]Lot, error) {
	lots, _, err := s.scanLots(ctx)
	return lots, err
}

// scanLots returns every lot together with its 1-based physical row in
// the Lots table. Blank rows are skipped, but the physical offsets of
// the rows after a gap are preserved; any write-back must target these
// offsets, never the position in the filtered slice.
func (s *Service) scanLots(ctx context.Context) ([]Lot, []int, error) {
	rows, err := s.store.ReadRange(ctx, TableLots, "A2:J")
	if err != nil {
		return nil, nil, storeErr("read", TableLots, err)
	}
	lots := make([]Lot, 0, len(rows))
	rowIdx := make([]int, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		lot, err := decodeLot(row)
		if err != nil {
			return nil, nil, err
		}
		lots = append(lots, lot)
		rowIdx = append(rowIdx, i+2)
	}
	return lots, rowIdx, nil
}

// ListSales returns every sale in table order, with the same tolerant
// decoding as ListLots.
func (s *Service) ListSales(ctx context.Context) ([]Sale, error) {
	rows, err := s.store.ReadRange(ctx, TableSales, "A2:J")
	if err != nil {
		return nil, storeErr("read", TableSales, err)
	}
	sales := make([]Sale, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		sale, err := decodeSale(row)
		if err != nil {
			return nil, err
		}
		sales = append(sales, sale)
	}
	return sales, nil
}

// ListInventory returns the materialized rollup rows.
func (s *Service) ListInventory(ctx context.Context) ([]InventoryRow, error) {
	rows, _, err := s.scanInventory(ctx)
	return rows, err
}

// scanInventory returns the rollup rows with their 1-based physical rows,
// with the same gap-preserving semantics as scanLots.
func (s *Service) scanInventory(ctx context.Context) ([]InventoryRow, []int, error) {
	rows, err := s.store.ReadRange(ctx, TableInventory, "A2:E")
	if err != nil {
		return nil, nil, storeErr("read", TableInventory, err)
	}
	out := make([]InventoryRow, 0, len(rows))
	rowIdx := make([]int, 0, len(rows))
	for i, row := range rows {
		if len(row) == 0 || row[0] == "" {
			continue
		}
		inv, err := decodeInventory(row)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, inv)
		rowIdx = append(rowIdx, i+2)
	}
	return out, rowIdx, nil
}

// GetLot returns a single lot by ID.
func (s *Service) GetLot(ctx context.Context, lotID string) (Lot, error) {
	lot, _, err := s.findLot(ctx, lotID)
	return lot, err
}

// findLot returns the lot and its 1-based row in the Lots table.
func (s *Service) findLot(ctx context.Context, lotID string) (Lot, int, error) {
	rows, err := s.store.ReadRange(ctx, TableLots, "A2:J")
	if err != nil {
		return Lot{}, 0, storeErr("read", TableLots, err)
	}
	for i, row := range rows {
		if len(row) > 0 && row[0] == lotID {
			lot, err := decodeLot(row)
			if err != nil {
				return Lot{}, 0, err
			}
			return lot, i + 2, nil
		}
	}
	return Lot{}, 0, &NotFoundError{Kind: KindLot, ID: lotID}
}

// =============================================================================
// RECONCILIATION - Rollup as a derived cache
// =============================================================================

// ReconcileInventory recomputes per-lot sold/remaining counts from the
// Lots and Sales tables and rewrites any lot or inventory row that has
// drifted (for example after a partial multi-step write). Returns the
// number of corrected rows.
func (s *Service) ReconcileInventory(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Blank rows shift filtered-slice positions away from table rows, so
	// every write-back below targets the physical row from the scan.
	lots, lotRows, err := s.scanLots(ctx)
	if err != nil {
		return 0, err
	}
	sales, err := s.ListSales(ctx)
	if err != nil {
		return 0, err
	}
	invRecs, invPhysRows, err := s.scanInventory(ctx)
	if err != nil {
		return 0, err
	}
	invByLot := make(map[string]int, len(invRecs)) // lotID -> index into invRecs/invPhysRows
	for i, inv := range invRecs {
		invByLot[inv.LotID] = i
	}

	soldByLot := make(map[string]int, len(lots))
	for _, sale := range sales {
		soldByLot[sale.LotID] += sale.Pieces
	}

	now := s.now()
	fixed := 0
	for i, lot := range lots {
		sold := soldByLot[lot.LotID]
		if sold > lot.Pieces {
			// Oversold lot: clamp so the invariant holds; the excess is
			// surfaced in the log for manual follow-up.
			log.Warn().Str("lot_id", lot.LotID).
				Int("sold", sold).Int("pieces", lot.Pieces).
				Msg("lot oversold; clamping remaining to zero")
			sold = lot.Pieces
		}
		remaining := lot.Pieces - sold

		if lot.RemainingPieces != remaining {
			if err := s.writeLotStock(ctx, lotRows[i], remaining); err != nil {
				return fixed, err
			}
			fixed++
		}

		want := InventoryRow{
			LotID:           lot.LotID,
			TotalPieces:     lot.Pieces,
			SoldPieces:      sold,
			RemainingPieces: remaining,
			LastUpdate:      now,
		}
		j, ok := invByLot[lot.LotID]
		if !ok {
			// Missing rollup row (lot write succeeded, inventory write
			// didn't): recreate it.
			if err := s.store.AppendRow(ctx, TableInventory, EncodeInventoryRow(want)); err != nil {
				return fixed, storeErr("append", TableInventory, err)
			}
			fixed++
			continue
		}
		cur := invRecs[j]
		if cur.TotalPieces != want.TotalPieces || cur.SoldPieces != want.SoldPieces ||
			cur.RemainingPieces != want.RemainingPieces {
			rng := tabular.RowSpan(invPhysRows[j], len(InventoryHeader))
			if err := s.store.WriteRange(ctx, TableInventory, rng, [][]string{EncodeInventoryRow(want)}); err != nil {
				return fixed, storeErr("write", TableInventory, err)
			}
			fixed++
		}
	}

	if fixed > 0 {
		log.Warn().Int("corrected", fixed).Msg("inventory reconciliation applied corrections")
	}
	return fixed, nil
}
