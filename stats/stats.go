/*
Package stats computes dashboard and report statistics.

PURPOSE:
  Pure, stateless functions over an already-fetched {lots, sales}
  snapshot. No I/O happens here; callers list the tables first and pass
  the slices in, together with the reference time for windowed series.

KEY FUNCTIONS:
  - Dashboard:       Counts, piece totals, revenue/profit sums, series,
                     and the top-selling ranking in one pass
  - MonthlyRollup:   Trailing-6-calendar-month series, zero-filled
  - TopSellingLots:  Pieces sold per lot joined against the Lot table

MALFORMED DATA:
  These functions never fail on a bad record. Sales whose lot is missing
  rank with supplier "Unknown" and totalPieces 0; a zero-piece lot yields
  percentage 0 instead of dividing by zero.
*/
package stats

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lotbook/stock-engine/ledger"
)

// =============================================================================
// DASHBOARD
// =============================================================================

type Dashboard struct {
	TotalLots       int
	ActiveLots      int
	TotalPieces     int
	RemainingPieces int
	SoldPieces      int

	TotalSales   int
	TotalRevenue decimal.Decimal
	TotalProfit  decimal.Decimal

	MonthlySales   []MonthValue
	MonthlyProfit  []MonthValue
	TopSellingLots []LotRank
}

// Compute builds the full dashboard from a lots+sales snapshot. now anchors
// the trailing-6-month windows.
func Compute(lots []ledger.Lot, sales []ledger.Sale, now time.Time) Dashboard {
	d := Dashboard{
		TotalLots:    len(lots),
		TotalSales:   len(sales),
		TotalRevenue: decimal.Zero,
		TotalProfit:  decimal.Zero,
	}

	for _, lot := range lots {
		if lot.RemainingPieces > 0 {
			d.ActiveLots++
		}
		d.TotalPieces += lot.Pieces
		d.RemainingPieces += lot.RemainingPieces
	}
	d.SoldPieces = d.TotalPieces - d.RemainingPieces

	for _, sale := range sales {
		d.TotalRevenue = d.TotalRevenue.Add(sale.TotalPrice)
		d.TotalProfit = d.TotalProfit.Add(sale.Profit)
	}

	d.MonthlySales = MonthlyRollup(sales, func(s ledger.Sale) decimal.Decimal { return s.TotalPrice }, now)
	d.MonthlyProfit = MonthlyRollup(sales, func(s ledger.Sale) decimal.Decimal { return s.Profit }, now)
	d.TopSellingLots = TopSellingLots(lots, sales, 5)
	return d
}

// =============================================================================
// MONTHLY ROLLUP
// =============================================================================

// MonthValue is one bucket of a monthly time series.
type MonthValue struct {
	Month string // YYYY-MM
	Value decimal.Decimal
}

// MonthlyRollup buckets sales into the trailing 6 calendar months ending at
// now's month, keyed by YYYY-MM of each sale's local calendar date. Months
// with no sales appear with value 0; sales outside the window are excluded.
// Order is chronological ascending.
func MonthlyRollup(sales []ledger.Sale, value func(ledger.Sale) decimal.Decimal, now time.Time) []MonthValue {
	buckets := make(map[string]decimal.Decimal, 6)
	months := make([]string, 0, 6)
	for i := 5; i >= 0; i-- {
		m := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		key := m.Format("2006-01")
		months = append(months, key)
		buckets[key] = decimal.Zero
	}

	for _, sale := range sales {
		key := sale.SaleDate.In(now.Location()).Format("2006-01")
		if cur, ok := buckets[key]; ok {
			buckets[key] = cur.Add(value(sale))
		}
	}

	out := make([]MonthValue, 0, len(months))
	for _, key := range months {
		out = append(out, MonthValue{Month: key, Value: buckets[key]})
	}
	return out
}

// =============================================================================
// TOP-SELLING LOTS
// =============================================================================

// LotRank is one entry of the top-selling ranking.
type LotRank struct {
	LotID        string
	SupplierName string
	TotalSold    int
	TotalPieces  int
	Percentage   float64
}

// TopSellingLots groups sales by lot, joins against the Lot table, and
// returns the top `limit` lots by pieces sold. Ties keep the grouping
// order (first sale seen first). Orphaned sales fall back to supplier
// "Unknown" and totalPieces 0.
func TopSellingLots(lots []ledger.Lot, sales []ledger.Sale, limit int) []LotRank {
	byID := make(map[string]ledger.Lot, len(lots))
	for _, lot := range lots {
		byID[lot.LotID] = lot
	}

	sold := make(map[string]int)
	var order []string
	for _, sale := range sales {
		if _, seen := sold[sale.LotID]; !seen {
			order = append(order, sale.LotID)
		}
		sold[sale.LotID] += sale.Pieces
	}

	ranks := make([]LotRank, 0, len(order))
	for _, lotID := range order {
		r := LotRank{LotID: lotID, SupplierName: "Unknown", TotalSold: sold[lotID]}
		if lot, ok := byID[lotID]; ok {
			r.SupplierName = lot.SupplierName
			r.TotalPieces = lot.Pieces
		}
		if r.TotalPieces > 0 {
			r.Percentage = float64(r.TotalSold) / float64(r.TotalPieces) * 100
		}
		ranks = append(ranks, r)
	}

	sort.SliceStable(ranks, func(i, j int) bool {
		return ranks[i].TotalSold > ranks[j].TotalSold
	})
	if limit > 0 && len(ranks) > limit {
		ranks = ranks[:limit]
	}
	return ranks
}
