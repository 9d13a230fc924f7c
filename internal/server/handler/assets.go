package handler

import (
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/meridianfi/lendcore/internal/domain"
)

// AssetService defines the registry reads the asset handler requires.
type AssetService interface {
	ActiveAssets() []string
	GetAsset(symbol string) (domain.AssetConfig, error)
	AssetDetails(symbol string) (price, ltvRatio, liquidationThreshold uint64, err error)
}

// AssetHandler serves asset registry endpoints.
type AssetHandler struct {
	assets AssetService
	logger *slog.Logger
}

// NewAssetHandler creates an AssetHandler.
func NewAssetHandler(assets AssetService, logger *slog.Logger) *AssetHandler {
	return &AssetHandler{assets: assets, logger: logger}
}

// listAssetsResponse wraps the active asset symbols.
type listAssetsResponse struct {
	Assets []string `json:"assets"`
}

// ListAssets returns every active asset symbol in registration order.
// GET /api/assets
func (h *AssetHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	symbols := h.assets.ActiveAssets()
	if symbols == nil {
		symbols = []string{}
	}
	writeJSON(w, http.StatusOK, listAssetsResponse{Assets: symbols})
}

// assetResponse is the raw registry entry for one asset.
type assetResponse struct {
	Symbol               string `json:"symbol"`
	LTVRatio             uint64 `json:"ltv_ratio"`
	LiquidationThreshold uint64 `json:"liquidation_threshold"`
	Active               bool   `json:"active"`
	PairID               string `json:"pair_id"`
	LastPrice            uint64 `json:"last_price"`
	LastUpdate           int64  `json:"last_update"`
}

// GetAsset returns the registry entry for one asset, including a possibly
// stale last price.
// GET /api/assets/{symbol}
func (h *AssetHandler) GetAsset(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	cfg, err := h.assets.GetAsset(symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assetResponse{
		Symbol:               cfg.Symbol,
		LTVRatio:             cfg.LTVRatio,
		LiquidationThreshold: cfg.LiquidationThreshold,
		Active:               cfg.Active,
		PairID:               cfg.PairID,
		LastPrice:            cfg.LastPrice,
		LastUpdate:           cfg.LastUpdate,
	})
}

// assetDetailsResponse carries the freshness-gated valuation parameters.
type assetDetailsResponse struct {
	Symbol               string `json:"symbol"`
	Price                uint64 `json:"price"`
	PriceUSD             string `json:"price_usd"`
	LTVRatio             uint64 `json:"ltv_ratio"`
	LiquidationThreshold uint64 `json:"liquidation_threshold"`
}

// AssetDetails returns the valuation parameters for one asset. Unlike
// GetAsset, this read fails with a conflict when the price is stale.
// GET /api/assets/{symbol}/details
func (h *AssetHandler) AssetDetails(w http.ResponseWriter, r *http.Request) {
	symbol := r.PathValue("symbol")

	price, ltv, threshold, err := h.assets.AssetDetails(symbol)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assetDetailsResponse{
		Symbol:               symbol,
		Price:                price,
		PriceUSD:             decimal.NewFromUint64(price).Shift(-domain.PriceDecimals).String(),
		LTVRatio:             ltv,
		LiquidationThreshold: threshold,
	})
}
