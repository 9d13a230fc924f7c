package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// AdminService defines the admin-only pool operations.
type AdminService interface {
	Initialize(ctx context.Context, caller string) error
	AddAsset(ctx context.Context, caller, symbol string, ltvRatio, liquidationThreshold uint64, pairID string, initialPrice uint64) error
	UpdatePrice(ctx context.Context, caller, symbol string, price uint64) error
}

// RateAdminService registers utilization curve models.
type RateAdminService interface {
	Register(symbol string, baseRate, slope1, slope2 uint64)
}

// AdminHandler serves the admin-only endpoints. Requests reach it only after
// passing the API-key middleware; the configured admin identity is passed as
// the caller on every engine operation.
type AdminHandler struct {
	pool   AdminService
	rates  RateAdminService
	admin  string
	logger *slog.Logger
}

// NewAdminHandler creates an AdminHandler acting as the given admin identity.
func NewAdminHandler(pool AdminService, rates RateAdminService, admin string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{pool: pool, rates: rates, admin: admin, logger: logger}
}

// Initialize brings the pool online with its seed asset.
// POST /api/admin/initialize
func (h *AdminHandler) Initialize(w http.ResponseWriter, r *http.Request) {
	if err := h.pool.Initialize(r.Context(), h.admin); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "initialized"})
}

// addAssetRequest is the body for listing a new asset.
type addAssetRequest struct {
	Symbol               string `json:"symbol"`
	LTVRatio             uint64 `json:"ltv_ratio"`
	LiquidationThreshold uint64 `json:"liquidation_threshold"`
	PairID               string `json:"pair_id"`
	InitialPrice         uint64 `json:"initial_price"`
}

// AddAsset lists a new asset in the registry. Re-listing a known symbol is a
// no-op.
// POST /api/admin/assets
func (h *AdminHandler) AddAsset(w http.ResponseWriter, r *http.Request) {
	var req addAssetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	err := h.pool.AddAsset(r.Context(), h.admin, req.Symbol,
		req.LTVRatio, req.LiquidationThreshold, req.PairID, req.InitialPrice)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "listed", "symbol": req.Symbol})
}

// updatePriceRequest is the body for posting an oracle price.
type updatePriceRequest struct {
	Price uint64 `json:"price"`
}

// UpdatePrice posts a new oracle price for an asset. Posting for an unknown
// symbol is accepted and ignored.
// PUT /api/admin/assets/{symbol}/price
func (h *AdminHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	var req updatePriceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.pool.UpdatePrice(r.Context(), h.admin, symbol, req.Price); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "updated", "symbol": symbol})
}

// registerRateRequest is the body for registering a rate curve model.
type registerRateRequest struct {
	Symbol   string `json:"symbol"`
	BaseRate uint64 `json:"base_rate"`
	Slope1   uint64 `json:"slope1"`
	Slope2   uint64 `json:"slope2"`
}

// RegisterRateModel registers a utilization curve for an asset.
// POST /api/admin/rates
func (h *AdminHandler) RegisterRateModel(w http.ResponseWriter, r *http.Request) {
	var req registerRateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	h.rates.Register(req.Symbol, req.BaseRate, req.Slope1, req.Slope2)
	writeJSON(w, http.StatusOK, map[string]string{"status": "registered", "symbol": req.Symbol})
}
