package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/meridianfi/lendcore/internal/domain"
)

// LedgerService defines the position operations the ledger handler requires.
type LedgerService interface {
	Deposit(ctx context.Context, user, symbol string, amount uint64) error
	Borrow(ctx context.Context, user, symbol string, amount uint64) error
	GetPosition(user, symbol string) (domain.AccountView, error)
}

// PositionHandler serves deposit, borrow, and position query endpoints.
type PositionHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

// NewPositionHandler creates a PositionHandler.
func NewPositionHandler(ledger LedgerService, logger *slog.Logger) *PositionHandler {
	return &PositionHandler{ledger: ledger, logger: logger}
}

// mutationRequest is the body for deposit and borrow calls.
type mutationRequest struct {
	User   string `json:"user"`
	Symbol string `json:"symbol"`
	Amount uint64 `json:"amount"`
}

func (m mutationRequest) validate() string {
	if m.User == "" {
		return "user is required"
	}
	if m.Symbol == "" {
		return "symbol is required"
	}
	return ""
}

// Deposit adds collateral to the caller's position.
// POST /api/deposit
func (h *PositionHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.ledger.Deposit(r.Context(), req.User, req.Symbol, req.Amount); err != nil {
		h.logger.ErrorContext(r.Context(), "deposit failed",
			slog.String("user", req.User),
			slog.String("symbol", req.Symbol),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deposited"})
}

// Borrow draws liquidity against the caller's collateral.
// POST /api/borrow
func (h *PositionHandler) Borrow(w http.ResponseWriter, r *http.Request) {
	var req mutationRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.ledger.Borrow(r.Context(), req.User, req.Symbol, req.Amount); err != nil {
		h.logger.ErrorContext(r.Context(), "borrow failed",
			slog.String("user", req.User),
			slog.String("symbol", req.Symbol),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "borrowed"})
}

// positionResponse is the per-asset view of one user's position.
type positionResponse struct {
	User       string `json:"user"`
	Symbol     string `json:"symbol"`
	Collateral uint64 `json:"collateral"`
	Debt       uint64 `json:"debt"`
}

// GetPosition returns the (collateral, debt) pair for one user and asset.
// GET /api/positions/{user}/{symbol}
func (h *PositionHandler) GetPosition(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	symbol := r.PathValue("symbol")

	view, err := h.ledger.GetPosition(user, symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, positionResponse{
		User:       user,
		Symbol:     symbol,
		Collateral: view.Collateral,
		Debt:       view.Debt,
	})
}
