/*
handlers.go - HTTP API handlers for the lot/sale ledger

PURPOSE:
  Exposes the ledger service via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Lots:
    GET    /api/lots                 List all lots
    POST   /api/lots                 Register a purchased lot
    GET    /api/lots/{id}            Get a single lot

  Sales:
    GET    /api/sales                List all sales
    POST   /api/sales                Record a sale against a lot

  Inventory:
    GET    /api/inventory            Per-lot stock rollup
    POST   /api/inventory/reconcile  Recompute the rollup from sales

  Stats:
    GET    /api/dashboard            Aggregated business metrics

  Export:
    GET    /api/export/{entity}.csv  CSV dump (lots|sales|inventory)
    GET    /api/export/report.xlsx   Full workbook

  Uploads:
    POST   /api/uploads              Store an image, returns its URL

ERROR HANDLING:
  Domain errors map to HTTP status by taxonomy:
  - 400: Validation errors, invalid input
  - 404: Lot not found
  - 409: Insufficient stock (response carries remaining_pieces)
  - 502: Backing store unreachable
  - 500: Everything else

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - ledger/service.go: The domain logic behind these
*/
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/lotbook/stock-engine/export"
	"github.com/lotbook/stock-engine/ledger"
	"github.com/lotbook/stock-engine/stats"
	"github.com/lotbook/stock-engine/upload"
)

// maxUploadBytes caps multipart image uploads.
const maxUploadBytes = 10 << 20 // 10 MiB

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Svc      *ledger.Service
	Uploader upload.Uploader

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a new handler around the ledger service.
func NewHandler(svc *ledger.Service, uploader upload.Uploader) *Handler {
	return &Handler{
		Svc:      svc,
		Uploader: uploader,
		validate: validator.New(),
		now:      time.Now,
	}
}

// =============================================================================
// LOT HANDLERS
// =============================================================================

// ListLots returns all lots.
func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Svc.ListLots(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]LotDTO, len(lots))
	for i, l := range lots {
		dtos[i] = toLotDTO(l)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLot returns a single lot by ID.
func (h *Handler) GetLot(w http.ResponseWriter, r *http.Request) {
	lot, err := h.Svc.GetLot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLotDTO(lot))
}

// CreateLot registers a purchased lot.
func (h *Handler) CreateLot(w http.ResponseWriter, r *http.Request) {
	var req CreateLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid lot", err)
		return
	}

	lot, err := h.Svc.CreateLot(r.Context(), ledger.CreateLotInput{
		SupplierName:   req.SupplierName,
		SupplierMobile: req.SupplierMobile,
		Pieces:         req.Pieces,
		PricePerPiece:  decimal.NewFromFloat(req.PricePerPiece),
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toLotDTO(lot))
}

// =============================================================================
// SALE HANDLERS
// =============================================================================

// ListSales returns all sales.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Svc.ListSales(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateSale records a sale against an existing lot.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	var req CreateSaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid sale", err)
		return
	}

	sale, err := h.Svc.CreateSale(r.Context(), ledger.CreateSaleInput{
		LotID:          req.LotID,
		Pieces:         req.Pieces,
		PricePerPiece:  decimal.NewFromFloat(req.PricePerPiece),
		CustomerName:   req.CustomerName,
		CustomerMobile: req.CustomerMobile,
		ImageURL:       req.ImageURL,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSaleDTO(sale))
}

// =============================================================================
// INVENTORY HANDLERS
// =============================================================================

// ListInventory returns the per-lot stock rollup.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.Svc.ListInventory(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	dtos := make([]InventoryDTO, len(rows))
	for i, row := range rows {
		dtos[i] = toInventoryDTO(row)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ReconcileInventory recomputes the rollup from the Sales history and
// repairs any drifted rows.
func (h *Handler) ReconcileInventory(w http.ResponseWriter, r *http.Request) {
	corrected, err := h.Svc.ReconcileInventory(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ReconcileResponse{Corrected: corrected})
}

// =============================================================================
// DASHBOARD
// =============================================================================

// GetDashboard aggregates lots and sales into business metrics.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lots, err := h.Svc.ListLots(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sales, err := h.Svc.ListSales(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toDashboardDTO(stats.Compute(lots, sales, h.now())))
}

// =============================================================================
// EXPORT HANDLERS
// =============================================================================

// ExportCSV streams one entity table as CSV.
// GET /api/export/{entity}.csv where entity is lots|sales|inventory.
// The CSV is built in full before any header is committed, so a store
// failure still maps onto the error taxonomy instead of an empty 200.
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	entity := chi.URLParam(r, "entity")

	var buf bytes.Buffer
	switch entity {
	case "lots":
		lots, err := h.Svc.ListLots(ctx)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := export.WriteLotsCSV(&buf, lots); err != nil {
			writeError(w, http.StatusInternalServerError, "Export failed", err)
			return
		}
	case "sales":
		sales, err := h.Svc.ListSales(ctx)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := export.WriteSalesCSV(&buf, sales); err != nil {
			writeError(w, http.StatusInternalServerError, "Export failed", err)
			return
		}
	case "inventory":
		rows, err := h.Svc.ListInventory(ctx)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if err := export.WriteInventoryCSV(&buf, rows); err != nil {
			writeError(w, http.StatusInternalServerError, "Export failed", err)
			return
		}
	default:
		writeError(w, http.StatusNotFound, fmt.Sprintf("Unknown export entity %q", entity), nil)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", entity+".csv"))
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Str("entity", entity).Msg("csv export failed")
	}
}

// ExportWorkbook streams the full XLSX report (one sheet per table).
func (h *Handler) ExportWorkbook(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	lots, err := h.Svc.ListLots(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	sales, err := h.Svc.ListSales(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	inventory, err := h.Svc.ListInventory(ctx)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="report.xlsx"`)

	if err := export.WriteWorkbook(w, lots, sales, inventory); err != nil {
		log.Error().Err(err).Msg("xlsx export failed")
	}
}

// =============================================================================
// UPLOAD HANDLER
// =============================================================================

// UploadImage accepts a multipart file and stores it via the configured
// uploader, returning the public reference URL.
func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form", err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field", err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to read file", err)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	url, err := h.Uploader.Upload(r.Context(), header.Filename, contentType, data)
	if err != nil {
		writeError(w, http.StatusBadGateway, "Upload failed", err)
		return
	}

	writeJSON(w, http.StatusCreated, UploadResponse{URL: url})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps ledger errors onto HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	var stockErr *ledger.InsufficientStockError
	if errors.As(err, &stockErr) {
		remaining := stockErr.Remaining
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:           "Insufficient stock",
			Details:         err.Error(),
			RemainingPieces: &remaining,
		})
		return
	}

	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, ledger.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case ledger.IsRetryable(err):
		writeError(w, http.StatusBadGateway, "Backing store unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}
