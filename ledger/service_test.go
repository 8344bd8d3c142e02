package ledger

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotbook/stock-engine/tabular/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	store := memory.New()
	svc := NewService(store)
	svc.now = func() time.Time {
		return time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	}
	require.NoError(t, svc.Bootstrap(context.Background()))
	return svc, store
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// =============================================================================
// BOOTSTRAP
// =============================================================================

func TestBootstrap_CreatesTablesAndCounters(t *testing.T) {
	_, store := newTestService(t)
	ctx := context.Background()

	tables, err := store.Tables(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{TableLots, TableSales, TableInventory, TableConfig}, tables)

	header, err := store.ReadRange(ctx, TableLots, "A1:J1")
	require.NoError(t, err)
	require.Len(t, header, 1)
	assert.Equal(t, LotHeader, header[0])

	config, err := store.ReadRange(ctx, TableConfig, "A:B")
	require.NoError(t, err)
	assert.Contains(t, config, []string{"LastLotID", "LOT-000"})
	assert.Contains(t, config, []string{"LastSaleID", "SALE-000"})
}

func TestBootstrap_Idempotent(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// WHEN bootstrap runs again on an initialized store
	require.NoError(t, svc.Bootstrap(ctx))

	// THEN counters are not duplicated or reset
	config, err := store.ReadRange(ctx, TableConfig, "A:B")
	require.NoError(t, err)
	count := 0
	for _, row := range config {
		if len(row) > 0 && row[0] == "LastLotID" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

// =============================================================================
// LOT CREATION
// =============================================================================

func TestCreateLot(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// GIVEN a purchase of 100 pieces at 50 per piece
	lot, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName:   "Karim Textiles",
		SupplierMobile: "01711111111",
		Pieces:         100,
		PricePerPiece:  dec("50"),
	})
	require.NoError(t, err)

	// THEN the lot gets the first sequential ID and derived fields
	assert.Equal(t, "LOT-001", lot.LotID)
	assert.True(t, lot.TotalPrice.Equal(dec("5000")), "total price %s", lot.TotalPrice)
	assert.Equal(t, StatusActive, lot.Status)
	assert.Equal(t, 100, lot.RemainingPieces)

	// AND the listing round-trips it
	lots, err := svc.ListLots(ctx)
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, lot.LotID, lots[0].LotID)
	assert.True(t, lots[0].TotalPrice.Equal(dec("5000")))

	// AND the inventory rollup row was created alongside
	inv, err := svc.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "LOT-001", inv[0].LotID)
	assert.Equal(t, 100, inv[0].TotalPieces)
	assert.Equal(t, 0, inv[0].SoldPieces)
	assert.Equal(t, 100, inv[0].RemainingPieces)
}

func TestCreateLot_SequentialIDs(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	for i, want := range []string{"LOT-001", "LOT-002", "LOT-003"} {
		lot, err := svc.CreateLot(ctx, CreateLotInput{
			SupplierName:  "Supplier " + strconv.Itoa(i),
			Pieces:        10,
			PricePerPiece: dec("1"),
		})
		require.NoError(t, err)
		assert.Equal(t, want, lot.LotID)
	}
}

func TestCreateLot_Validation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		in   CreateLotInput
	}{
		{"missing supplier", CreateLotInput{Pieces: 10, PricePerPiece: dec("5")}},
		{"zero pieces", CreateLotInput{SupplierName: "S", Pieces: 0, PricePerPiece: dec("5")}},
		{"negative pieces", CreateLotInput{SupplierName: "S", Pieces: -3, PricePerPiece: dec("5")}},
		{"negative price", CreateLotInput{SupplierName: "S", Pieces: 10, PricePerPiece: dec("-1")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateLot(ctx, tc.in)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}

	// Nothing was written by the failed attempts.
	lots, err := svc.ListLots(ctx)
	require.NoError(t, err)
	assert.Empty(t, lots)
}

// =============================================================================
// SALE CREATION
// =============================================================================

func TestCreateSale(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// GIVEN a lot of 100 pieces bought at 50
	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName:  "Karim Textiles",
		Pieces:        100,
		PricePerPiece: dec("50"),
	})
	require.NoError(t, err)

	// WHEN 30 pieces are sold at 80
	sale, err := svc.CreateSale(ctx, CreateSaleInput{
		LotID:         "LOT-001",
		Pieces:        30,
		PricePerPiece: dec("80"),
		CustomerName:  "Rahim Store",
	})
	require.NoError(t, err)

	// THEN the sale carries the derived totals
	assert.Equal(t, "SALE-001", sale.SaleID)
	assert.True(t, sale.TotalPrice.Equal(dec("2400")), "total %s", sale.TotalPrice)
	assert.True(t, sale.Profit.Equal(dec("900")), "profit %s", sale.Profit)

	// AND the lot stock was decremented
	lot, err := svc.GetLot(ctx, "LOT-001")
	require.NoError(t, err)
	assert.Equal(t, 70, lot.RemainingPieces)
	assert.Equal(t, StatusActive, lot.Status)

	// AND the inventory rollup matches
	inv, err := svc.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, 30, inv[0].SoldPieces)
	assert.Equal(t, 70, inv[0].RemainingPieces)
	assert.Equal(t, 100, inv[0].TotalPieces)
}

func TestCreateSale_InsufficientStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName:  "Karim Textiles",
		Pieces:        100,
		PricePerPiece: dec("50"),
	})
	require.NoError(t, err)
	_, err = svc.CreateSale(ctx, CreateSaleInput{
		LotID: "LOT-001", Pieces: 30, PricePerPiece: dec("80"),
	})
	require.NoError(t, err)

	// WHEN a sale requests more than the 70 remaining
	_, err = svc.CreateSale(ctx, CreateSaleInput{
		LotID: "LOT-001", Pieces: 71, PricePerPiece: dec("80"),
	})

	// THEN it is rejected with the remaining count attached
	var stockErr *InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 71, stockErr.Requested)
	assert.Equal(t, 70, stockErr.Remaining)

	// AND nothing changed
	lot, err := svc.GetLot(ctx, "LOT-001")
	require.NoError(t, err)
	assert.Equal(t, 70, lot.RemainingPieces)

	sales, err := svc.ListSales(ctx)
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestCreateSale_ExactRemainderSellsOut(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName:  "Karim Textiles",
		Pieces:        10,
		PricePerPiece: dec("50"),
	})
	require.NoError(t, err)

	// WHEN the entire lot is sold in one sale
	_, err = svc.CreateSale(ctx, CreateSaleInput{
		LotID: "LOT-001", Pieces: 10, PricePerPiece: dec("60"),
	})
	require.NoError(t, err)

	// THEN remaining hits exactly zero and the lot is marked sold out
	lot, err := svc.GetLot(ctx, "LOT-001")
	require.NoError(t, err)
	assert.Equal(t, 0, lot.RemainingPieces)
	assert.Equal(t, StatusSoldOut, lot.Status)

	// AND further sales are rejected
	_, err = svc.CreateSale(ctx, CreateSaleInput{
		LotID: "LOT-001", Pieces: 1, PricePerPiece: dec("60"),
	})
	assert.ErrorIs(t, err, ErrInsufficientStock)
}

func TestCreateSale_UnknownLot(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateSale(context.Background(), CreateSaleInput{
		LotID: "LOT-999", Pieces: 1, PricePerPiece: dec("10"),
	})

	var nfErr *NotFoundError
	require.ErrorAs(t, err, &nfErr)
	assert.Equal(t, "LOT-999", nfErr.ID)
}

func TestCreateSale_NegativeProfitAllowed(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName:  "Karim Textiles",
		Pieces:        10,
		PricePerPiece: dec("50"),
	})
	require.NoError(t, err)

	// Selling below cost is legal; profit is simply negative.
	sale, err := svc.CreateSale(ctx, CreateSaleInput{
		LotID: "LOT-001", Pieces: 2, PricePerPiece: dec("40"),
	})
	require.NoError(t, err)
	assert.True(t, sale.Profit.Equal(dec("-20")), "profit %s", sale.Profit)
}

// =============================================================================
// READS
// =============================================================================

func TestGetLot_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.GetLot(context.Background(), "LOT-042")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListLots_TolerantOfBadCells(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// GIVEN a hand-edited row with junk in the numeric columns
	require.NoError(t, store.AppendRow(ctx, TableLots, []string{
		"LOT-001", "Karim Textiles", "", "not-a-number", "abc", "", "", "yesterday", "", "??",
	}))

	// WHEN listing
	lots, err := svc.ListLots(ctx)

	// THEN the row decodes with zeros instead of failing the listing
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, 0, lots[0].Pieces)
	assert.True(t, lots[0].PricePerPiece.IsZero())
	assert.True(t, lots[0].EntryDate.IsZero())
	assert.Equal(t, StatusActive, lots[0].Status)
}

func TestListLots_SkipsBlankRows(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName: "Karim Textiles", Pieces: 5, PricePerPiece: dec("10"),
	})
	require.NoError(t, err)

	// A row cleared by hand leaves an empty gap in the table.
	require.NoError(t, store.WriteRange(ctx, TableLots, "A3:J3", [][]string{
		{"", "", "", "", "", "", "", "", "", ""},
	}))
	_, err = svc.CreateLot(ctx, CreateLotInput{
		SupplierName: "Rahman Fabrics", Pieces: 5, PricePerPiece: dec("10"),
	})
	require.NoError(t, err)

	lots, err := svc.ListLots(ctx)
	require.NoError(t, err)
	assert.Len(t, lots, 2)
}

// =============================================================================
// RECONCILIATION
// =============================================================================

func TestReconcileInventory_NoDrift(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName: "Karim Textiles", Pieces: 100, PricePerPiece: dec("50"),
	})
	require.NoError(t, err)
	_, err = svc.CreateSale(ctx, CreateSaleInput{
		LotID: "LOT-001", Pieces: 30, PricePerPiece: dec("80"),
	})
	require.NoError(t, err)

	fixed, err := svc.ReconcileInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, fixed)
}

func TestReconcileInventory_RepairsDriftedRollup(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName: "Karim Textiles", Pieces: 100, PricePerPiece: dec("50"),
	})
	require.NoError(t, err)
	_, err = svc.CreateSale(ctx, CreateSaleInput{
		LotID: "LOT-001", Pieces: 30, PricePerPiece: dec("80"),
	})
	require.NoError(t, err)

	// GIVEN a rollup row corrupted by a hand edit
	require.NoError(t, store.WriteRange(ctx, TableInventory, "C2:D2", [][]string{{"5", "95"}}))

	// WHEN reconciling
	fixed, err := svc.ReconcileInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	// THEN the rollup again matches the Sales history
	inv, err := svc.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, 30, inv[0].SoldPieces)
	assert.Equal(t, 70, inv[0].RemainingPieces)
}

func TestReconcileInventory_RepairsDriftedLotStock(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName: "Karim Textiles", Pieces: 100, PricePerPiece: dec("50"),
	})
	require.NoError(t, err)
	_, err = svc.CreateSale(ctx, CreateSaleInput{
		LotID: "LOT-001", Pieces: 40, PricePerPiece: dec("80"),
	})
	require.NoError(t, err)

	// GIVEN a lot row whose remaining count was hand-edited
	require.NoError(t, store.WriteRange(ctx, TableLots, "J2", [][]string{{"100"}}))

	fixed, err := svc.ReconcileInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	lot, err := svc.GetLot(ctx, "LOT-001")
	require.NoError(t, err)
	assert.Equal(t, 60, lot.RemainingPieces)
}

func TestReconcileInventory_RecreatesMissingRollupRow(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName: "Karim Textiles", Pieces: 50, PricePerPiece: dec("50"),
	})
	require.NoError(t, err)

	// GIVEN the inventory row was wiped (simulating a partial CreateLot)
	require.NoError(t, store.WriteRange(ctx, TableInventory, "A2:E2", [][]string{
		{"", "", "", "", ""},
	}))

	fixed, err := svc.ReconcileInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, fixed)

	inv, err := svc.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, "LOT-001", inv[0].LotID)
	assert.Equal(t, 50, inv[0].TotalPieces)
}

func TestReconcileInventory_RepairsRowsAfterBlankGap(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	// GIVEN two lots where the first lot's rows were cleared by hand,
	// leaving blank gaps above the second lot in both tables
	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName: "Karim Textiles", Pieces: 10, PricePerPiece: dec("50"),
	})
	require.NoError(t, err)
	_, err = svc.CreateLot(ctx, CreateLotInput{
		SupplierName: "Rahman Fabrics", Pieces: 20, PricePerPiece: dec("40"),
	})
	require.NoError(t, err)
	_, err = svc.CreateSale(ctx, CreateSaleInput{
		LotID: "LOT-002", Pieces: 5, PricePerPiece: dec("70"),
	})
	require.NoError(t, err)

	require.NoError(t, store.WriteRange(ctx, TableLots, "A2:J2", [][]string{
		{"", "", "", "", "", "", "", "", "", ""},
	}))
	require.NoError(t, store.WriteRange(ctx, TableInventory, "A2:E2", [][]string{
		{"", "", "", "", ""},
	}))

	// AND the surviving lot's counts drifted (it sits at table row 3)
	require.NoError(t, store.WriteRange(ctx, TableLots, "J3", [][]string{{"20"}}))
	require.NoError(t, store.WriteRange(ctx, TableInventory, "C3:D3", [][]string{{"0", "20"}}))

	// WHEN reconciling
	fixed, err := svc.ReconcileInventory(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, fixed)

	// THEN the corrections landed on the lot's actual row, not the
	// position it holds once blank rows are filtered out
	lotCells, err := store.ReadRange(ctx, TableLots, "J3")
	require.NoError(t, err)
	require.Len(t, lotCells, 1)
	assert.Equal(t, []string{"15"}, lotCells[0])

	invCells, err := store.ReadRange(ctx, TableInventory, "C3:D3")
	require.NoError(t, err)
	require.Len(t, invCells, 1)
	assert.Equal(t, []string{"5", "15"}, invCells[0])

	// AND the cleared rows stayed blank
	gap, err := store.ReadRange(ctx, TableLots, "A2:J2")
	require.NoError(t, err)
	for _, row := range gap {
		assert.Empty(t, row)
	}

	lot, err := svc.GetLot(ctx, "LOT-002")
	require.NoError(t, err)
	assert.Equal(t, 15, lot.RemainingPieces)
}

func TestReconcileInventory_ClampsOversoldLot(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateLot(ctx, CreateLotInput{
		SupplierName: "Karim Textiles", Pieces: 10, PricePerPiece: dec("50"),
	})
	require.NoError(t, err)

	// GIVEN sales history that exceeds the lot size (hand-entered rows)
	sale := Sale{
		SaleID: "SALE-900", LotID: "LOT-001", Pieces: 15,
		PricePerPiece: dec("60"), TotalPrice: dec("900"),
		SaleDate: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.AppendRow(ctx, TableSales, EncodeSaleRow(sale)))

	fixed, err := svc.ReconcileInventory(ctx)
	require.NoError(t, err)
	assert.Greater(t, fixed, 0)

	// THEN remaining is clamped to zero, never negative
	lot, err := svc.GetLot(ctx, "LOT-001")
	require.NoError(t, err)
	assert.Equal(t, 0, lot.RemainingPieces)
	assert.Equal(t, StatusSoldOut, lot.Status)

	inv, err := svc.ListInventory(ctx)
	require.NoError(t, err)
	require.Len(t, inv, 1)
	assert.Equal(t, 10, inv[0].SoldPieces)
	assert.Equal(t, 0, inv[0].RemainingPieces)
}
