/*
dto.go - Request/response data structures for the HTTP API

PURPOSE:
  JSON shapes exchanged with clients. Prices cross the wire as float64
  for frontend convenience; internally everything is decimal.Decimal
  and conversion happens only at this boundary.

VALIDATION:
  Create requests carry validator tags; the handler runs them before
  the domain layer sees the input, so obviously-bad payloads fail fast
  with a field-level message.

SEE ALSO:
  - handlers.go: Handlers that produce/consume these
  - ledger/types.go: The domain records these mirror
*/
package api

import (
	"time"

	"github.com/lotbook/stock-engine/ledger"
	"github.com/lotbook/stock-engine/stats"
)

// =============================================================================
// REQUESTS
// =============================================================================

type CreateLotRequest struct {
	SupplierName   string  `json:"supplier_name" validate:"required"`
	SupplierMobile string  `json:"supplier_mobile"`
	Pieces         int     `json:"pieces" validate:"required,gt=0"`
	PricePerPiece  float64 `json:"price_per_piece" validate:"gte=0"`
	ImageURL       string  `json:"image_url" validate:"omitempty,url"`
}

type CreateSaleRequest struct {
	LotID          string  `json:"lot_id" validate:"required"`
	Pieces         int     `json:"pieces" validate:"required,gt=0"`
	PricePerPiece  float64 `json:"price_per_piece" validate:"gte=0"`
	CustomerName   string  `json:"customer_name"`
	CustomerMobile string  `json:"customer_mobile"`
	ImageURL       string  `json:"image_url" validate:"omitempty,url"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type LotDTO struct {
	LotID           string  `json:"lot_id"`
	SupplierName    string  `json:"supplier_name"`
	SupplierMobile  string  `json:"supplier_mobile"`
	Pieces          int     `json:"pieces"`
	PricePerPiece   float64 `json:"price_per_piece"`
	TotalPrice      float64 `json:"total_price"`
	ImageURL        string  `json:"image_url,omitempty"`
	EntryDate       string  `json:"entry_date"`
	Status          string  `json:"status"`
	RemainingPieces int     `json:"remaining_pieces"`
}

type SaleDTO struct {
	SaleID         string  `json:"sale_id"`
	LotID          string  `json:"lot_id"`
	Pieces         int     `json:"pieces"`
	PricePerPiece  float64 `json:"price_per_piece"`
	TotalPrice     float64 `json:"total_price"`
	CustomerName   string  `json:"customer_name"`
	CustomerMobile string  `json:"customer_mobile"`
	ImageURL       string  `json:"image_url,omitempty"`
	SaleDate       string  `json:"sale_date"`
	Profit         float64 `json:"profit"`
}

type InventoryDTO struct {
	LotID           string `json:"lot_id"`
	TotalPieces     int    `json:"total_pieces"`
	SoldPieces      int    `json:"sold_pieces"`
	RemainingPieces int    `json:"remaining_pieces"`
	LastUpdate      string `json:"last_update,omitempty"`
}

type MonthValueDTO struct {
	Month string  `json:"month"`
	Value float64 `json:"value"`
}

type LotRankDTO struct {
	LotID        string  `json:"lot_id"`
	SupplierName string  `json:"supplier_name"`
	TotalSold    int     `json:"total_sold"`
	TotalPieces  int     `json:"total_pieces"`
	Percentage   float64 `json:"percentage"`
}

type DashboardDTO struct {
	TotalLots       int     `json:"total_lots"`
	ActiveLots      int     `json:"active_lots"`
	TotalPieces     int     `json:"total_pieces"`
	RemainingPieces int     `json:"remaining_pieces"`
	SoldPieces      int     `json:"sold_pieces"`
	TotalSales      int     `json:"total_sales"`
	TotalRevenue    float64 `json:"total_revenue"`
	TotalProfit     float64 `json:"total_profit"`

	MonthlySales   []MonthValueDTO `json:"monthly_sales"`
	MonthlyProfit  []MonthValueDTO `json:"monthly_profit"`
	TopSellingLots []LotRankDTO    `json:"top_selling_lots"`
}

type ReconcileResponse struct {
	Corrected int `json:"corrected_rows"`
}

type UploadResponse struct {
	URL string `json:"url"`
}

// ErrorResponse is the JSON error envelope for all non-2xx responses.
type ErrorResponse struct {
	Error           string `json:"error"`
	Details         string `json:"details,omitempty"`
	RemainingPieces *int   `json:"remaining_pieces,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func toLotDTO(l ledger.Lot) LotDTO {
	return LotDTO{
		LotID:           l.LotID,
		SupplierName:    l.SupplierName,
		SupplierMobile:  l.SupplierMobile,
		Pieces:          l.Pieces,
		PricePerPiece:   l.PricePerPiece.InexactFloat64(),
		TotalPrice:      l.TotalPrice.InexactFloat64(),
		ImageURL:        l.ImageURL,
		EntryDate:       l.EntryDate.Format(time.RFC3339),
		Status:          l.Status,
		RemainingPieces: l.RemainingPieces,
	}
}

func toSaleDTO(s ledger.Sale) SaleDTO {
	return SaleDTO{
		SaleID:         s.SaleID,
		LotID:          s.LotID,
		Pieces:         s.Pieces,
		PricePerPiece:  s.PricePerPiece.InexactFloat64(),
		TotalPrice:     s.TotalPrice.InexactFloat64(),
		CustomerName:   s.CustomerName,
		CustomerMobile: s.CustomerMobile,
		ImageURL:       s.ImageURL,
		SaleDate:       s.SaleDate.Format(time.RFC3339),
		Profit:         s.Profit.InexactFloat64(),
	}
}

func toInventoryDTO(row ledger.InventoryRow) InventoryDTO {
	dto := InventoryDTO{
		LotID:           row.LotID,
		TotalPieces:     row.TotalPieces,
		SoldPieces:      row.SoldPieces,
		RemainingPieces: row.RemainingPieces,
	}
	if !row.LastUpdate.IsZero() {
		dto.LastUpdate = row.LastUpdate.Format(time.RFC3339)
	}
	return dto
}

func toDashboardDTO(d stats.Dashboard) DashboardDTO {
	out := DashboardDTO{
		TotalLots:       d.TotalLots,
		ActiveLots:      d.ActiveLots,
		TotalPieces:     d.TotalPieces,
		RemainingPieces: d.RemainingPieces,
		SoldPieces:      d.SoldPieces,
		TotalSales:      d.TotalSales,
		TotalRevenue:    d.TotalRevenue.InexactFloat64(),
		TotalProfit:     d.TotalProfit.InexactFloat64(),
		MonthlySales:    make([]MonthValueDTO, 0, len(d.MonthlySales)),
		MonthlyProfit:   make([]MonthValueDTO, 0, len(d.MonthlyProfit)),
		TopSellingLots:  make([]LotRankDTO, 0, len(d.TopSellingLots)),
	}
	for _, m := range d.MonthlySales {
		out.MonthlySales = append(out.MonthlySales, MonthValueDTO{Month: m.Month, Value: m.Value.InexactFloat64()})
	}
	for _, m := range d.MonthlyProfit {
		out.MonthlyProfit = append(out.MonthlyProfit, MonthValueDTO{Month: m.Month, Value: m.Value.InexactFloat64()})
	}
	for _, r := range d.TopSellingLots {
		out.TopSellingLots = append(out.TopSellingLots, LotRankDTO{
			LotID:        r.LotID,
			SupplierName: r.SupplierName,
			TotalSold:    r.TotalSold,
			TotalPieces:  r.TotalPieces,
			Percentage:   r.Percentage,
		})
	}
	return out
}
