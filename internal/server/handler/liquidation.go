package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meridianfi/lendcore/internal/engine"
)

// LiquidationService defines the risk operations the liquidation handler
// requires.
type LiquidationService interface {
	HealthFactor(user, debtSymbol, collateralSymbol string) (uint64, error)
	IsLiquidatable(user, debtSymbol, collateralSymbol string) (bool, error)
	Liquidate(ctx context.Context, liquidator, user, debtSymbol, collateralSymbol string, repayAmount uint64) (uint64, error)
	LiquidationInfoFor(user, debtSymbol, collateralSymbol string, repayAmount uint64) (engine.LiquidationInfo, error)
}

// LiquidationHandler serves health-factor queries, liquidation previews, and
// liquidation execution.
type LiquidationHandler struct {
	risk   LiquidationService
	logger *slog.Logger
}

// NewLiquidationHandler creates a LiquidationHandler.
func NewLiquidationHandler(risk LiquidationService, logger *slog.Logger) *LiquidationHandler {
	return &LiquidationHandler{risk: risk, logger: logger}
}

// pairParams reads the debt/collateral symbol pair from the query string.
func pairParams(r *http.Request) (debtSymbol, collateralSymbol string, ok bool) {
	q := r.URL.Query()
	debtSymbol = q.Get("debt_symbol")
	collateralSymbol = q.Get("collateral_symbol")
	return debtSymbol, collateralSymbol, debtSymbol != "" && collateralSymbol != ""
}

// healthResponse carries a position's health against one debt/collateral pair.
type healthResponse struct {
	User         string `json:"user"`
	HealthFactor uint64 `json:"health_factor"`
	Liquidatable bool   `json:"liquidatable"`
}

// Health returns the health factor and liquidation eligibility for one user
// against a debt/collateral pair.
// GET /api/positions/{user}/health?debt_symbol=USDC&collateral_symbol=DOGE
func (h *LiquidationHandler) Health(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	debtSymbol, collateralSymbol, ok := pairParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "debt_symbol and collateral_symbol query parameters required")
		return
	}

	hf, err := h.risk.HealthFactor(user, debtSymbol, collateralSymbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	liquidatable, err := h.risk.IsLiquidatable(user, debtSymbol, collateralSymbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{
		User:         user,
		HealthFactor: hf,
		Liquidatable: liquidatable,
	})
}

// previewResponse is the read-only liquidation estimate.
type previewResponse struct {
	User         string `json:"user"`
	HealthFactor uint64 `json:"health_factor"`
	Liquidatable bool   `json:"liquidatable"`
	SeizeAmount  uint64 `json:"seize_amount"`
}

// Preview returns the bonus-based seizure estimate for a hypothetical
// repayment without mutating anything.
// GET /api/liquidations/preview?user=alice&debt_symbol=USDC&collateral_symbol=DOGE&repay=1000
func (h *LiquidationHandler) Preview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	user := q.Get("user")
	if user == "" {
		writeError(w, http.StatusBadRequest, "user query parameter required")
		return
	}
	debtSymbol, collateralSymbol, ok := pairParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "debt_symbol and collateral_symbol query parameters required")
		return
	}
	repay, err := parseUint(q.Get("repay"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "repay query parameter must be a non-negative integer")
		return
	}

	info, err := h.risk.LiquidationInfoFor(user, debtSymbol, collateralSymbol, repay)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, previewResponse{
		User:         user,
		HealthFactor: info.HealthFactor,
		Liquidatable: info.Liquidatable,
		SeizeAmount:  info.SeizeAmount,
	})
}

// liquidateRequest is the body for liquidation execution.
type liquidateRequest struct {
	Liquidator       string `json:"liquidator"`
	User             string `json:"user"`
	DebtSymbol       string `json:"debt_symbol"`
	CollateralSymbol string `json:"collateral_symbol"`
	RepayAmount      uint64 `json:"repay_amount"`
}

// liquidateResponse reports the seized collateral.
type liquidateResponse struct {
	SeizedAmount uint64 `json:"seized_amount"`
}

// Liquidate repays part of an unhealthy position's debt and seizes
// collateral for the liquidator.
// POST /api/liquidations
func (h *LiquidationHandler) Liquidate(w http.ResponseWriter, r *http.Request) {
	var req liquidateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Liquidator == "" || req.User == "" || req.DebtSymbol == "" || req.CollateralSymbol == "" {
		writeError(w, http.StatusBadRequest, "liquidator, user, debt_symbol and collateral_symbol are required")
		return
	}

	seized, err := h.risk.Liquidate(r.Context(), req.Liquidator, req.User,
		req.DebtSymbol, req.CollateralSymbol, req.RepayAmount)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "liquidation failed",
			slog.String("liquidator", req.Liquidator),
			slog.String("user", req.User),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, liquidateResponse{SeizedAmount: seized})
}
