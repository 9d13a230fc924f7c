package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianfi/lendcore/internal/domain"
	"github.com/meridianfi/lendcore/internal/engine"
	"github.com/meridianfi/lendcore/internal/vault"
)

func newPool(t *testing.T) (*engine.Engine, *vault.Memory) {
	t.Helper()
	v := vault.NewMemory()
	v.RegisterToken("DOGE")
	v.RegisterToken("USDC")

	e := engine.New(engine.Config{
		Admin: "admin",
		Seed: engine.SeedAsset{
			Symbol:               "DOGE",
			LTVRatio:             500,
			LiquidationThreshold: 8_000,
			PairID:               "DOGE_USD",
			InitialPrice:         1_000_000,
		},
		Now: func() time.Time { return time.Unix(1_700_000_000, 0) },
	}, v, domain.EventSinkFunc(func(context.Context, domain.Event) {}), slog.Default())

	require.NoError(t, e.Initialize(context.Background(), "admin"))
	return e, v
}

func TestGetAsset(t *testing.T) {
	e, _ := newPool(t)
	h := NewAssetHandler(e, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/assets/{symbol}", h.GetAsset)
	mux.HandleFunc("GET /api/assets/{symbol}/details", h.AssetDetails)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/DOGE", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"symbol":"DOGE"`)
	assert.Contains(t, rec.Body.String(), `"ltv_ratio":500`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/SHIB", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/assets/DOGE/details", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price_usd":"1"`)
}

func TestDepositAndGetPosition(t *testing.T) {
	e, v := newPool(t)
	h := NewPositionHandler(e, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/deposit", h.Deposit)
	mux.HandleFunc("GET /api/positions/{user}/{symbol}", h.GetPosition)

	v.Credit("alice", "DOGE", 1_000)

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"user":"alice","symbol":"DOGE","amount":1000}`)
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/deposit", body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions/alice/DOGE", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"collateral":1000`)
	assert.Contains(t, rec.Body.String(), `"debt":0`)
}

func TestDepositErrorsMapped(t *testing.T) {
	e, _ := newPool(t)
	h := NewPositionHandler(e, slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/deposit", h.Deposit)

	t.Run("zero amount is a bad request", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"user":"alice","symbol":"DOGE","amount":0}`)
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/deposit", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown asset is not found", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"user":"alice","symbol":"SHIB","amount":10}`)
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/deposit", body))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unfunded account is unprocessable", func(t *testing.T) {
		rec := httptest.NewRecorder()
		body := strings.NewReader(`{"user":"alice","symbol":"DOGE","amount":10}`)
		mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/deposit", body))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})
}

func TestBorrowLimitMapped(t *testing.T) {
	e, v := newPool(t)
	require.NoError(t, e.AddAsset(context.Background(), "admin", "USDC", 500, 8_000, "USDC_USD", 1_000_000))

	h := NewPositionHandler(e, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/borrow", h.Borrow)

	v.Credit("alice", "DOGE", 1_000_000_000)
	v.Fund("USDC", 1_000_000_000)
	require.NoError(t, e.Deposit(context.Background(), "alice", "DOGE", 1_000_000_000))

	rec := httptest.NewRecorder()
	body := strings.NewReader(`{"user":"alice","symbol":"USDC","amount":50000001}`)
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/borrow", body))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "borrow limit")

	rec = httptest.NewRecorder()
	body = strings.NewReader(`{"user":"alice","symbol":"USDC","amount":50000000}`)
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/borrow", body))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealthEndpoint(t *testing.T) {
	e, v := newPool(t)
	require.NoError(t, e.AddAsset(context.Background(), "admin", "USDC", 500, 8_000, "USDC_USD", 1_000_000))

	h := NewLiquidationHandler(e, slog.Default())
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/positions/{user}/health", h.Health)

	v.Credit("alice", "DOGE", 1_000)
	require.NoError(t, e.Deposit(context.Background(), "alice", "DOGE", 1_000))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet,
		"/api/positions/alice/health?debt_symbol=USDC&collateral_symbol=DOGE", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"health_factor":10000`)
	assert.Contains(t, rec.Body.String(), `"liquidatable":false`)

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/positions/alice/health", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminInitializeConflict(t *testing.T) {
	e, _ := newPool(t)
	h := NewAdminHandler(e, nil, "admin", slog.Default())

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/admin/initialize", h.Initialize)

	// The pool is already initialized by the fixture.
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/admin/initialize", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}
