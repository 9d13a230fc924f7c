package handler

import (
	"log/slog"
	"net/http"

	"github.com/meridianfi/lendcore/internal/domain"
)

// RateService defines the utilization curve reads and updates the rate
// handler requires.
type RateService interface {
	CurrentRate(symbol string) (uint64, error)
	Model(symbol string) (domain.RateModel, error)
	UpdateRate(symbol string, totalBorrows, totalSupply uint64) (uint64, error)
}

// RateHandler serves the standalone utilization rate curve. The curve is not
// consulted by borrow or liquidation; it is reported and updated on its own.
type RateHandler struct {
	rates  RateService
	logger *slog.Logger
}

// NewRateHandler creates a RateHandler.
func NewRateHandler(rates RateService, logger *slog.Logger) *RateHandler {
	return &RateHandler{rates: rates, logger: logger}
}

// rateResponse is the full curve model for one asset.
type rateResponse struct {
	Symbol      string `json:"symbol"`
	BaseRate    uint64 `json:"base_rate"`
	Slope1      uint64 `json:"slope1"`
	Slope2      uint64 `json:"slope2"`
	CurrentRate uint64 `json:"current_rate"`
	LastUpdate  int64  `json:"last_update"`
}

// GetRate returns the current borrow rate model for an asset.
// GET /api/rates/{symbol}
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	model, err := h.rates.Model(symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rateResponse{
		Symbol:      model.Symbol,
		BaseRate:    model.BaseRate,
		Slope1:      model.Slope1,
		Slope2:      model.Slope2,
		CurrentRate: model.CurrentRate,
		LastUpdate:  model.LastUpdate,
	})
}

// updateRateRequest carries the utilization inputs for a recompute.
type updateRateRequest struct {
	TotalBorrows uint64 `json:"total_borrows"`
	TotalSupply  uint64 `json:"total_supply"`
}

// updateRateResponse reports the rate after the recompute attempt.
type updateRateResponse struct {
	Symbol string `json:"symbol"`
	Rate   uint64 `json:"rate"`
}

// UpdateRate recomputes the borrow rate from reported utilization. Calls
// within the recompute window return the cached rate unchanged.
// POST /api/rates/{symbol}/update
func (h *RateHandler) UpdateRate(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	var req updateRateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rate, err := h.rates.UpdateRate(symbol, req.TotalBorrows, req.TotalSupply)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updateRateResponse{Symbol: symbol, Rate: rate})
}
