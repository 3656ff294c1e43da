package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	billingapp "github.com/amadolemli/factureman-sub000/internal/application/billing"
	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	documentapp "github.com/amadolemli/factureman-sub000/internal/application/document"
	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	profileapp "github.com/amadolemli/factureman-sub000/internal/application/profile"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/cache"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/handler"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/swaggo/swag/v2"
	"go.uber.org/zap"
)

var apiOwnerID = uuid.MustParse("3c9d2b8e-1f4a-4c6b-8e7d-5a0b9c8d7e6f")

func init() {
	middleware.SetupValidator()
}

type okCharger struct{}

func (okCharger) ChargeCredits(context.Context, uuid.UUID, decimal.Decimal, string) error { return nil }

type fixedConnectivity struct{ online bool }

func (f *fixedConnectivity) IsOnline() bool { return f.online }

func (f *fixedConnectivity) SetOnline(_ context.Context, online bool) bool {
	changed := f.online != online
	f.online = online
	return changed
}

func newAPIEngine(t *testing.T) (*gin.Engine, *ledgerapp.Store) {
	t.Helper()
	log := zap.NewNop()
	conn := &fixedConnectivity{online: true}
	ledgers := ledgerapp.NewStore(apiOwnerID, nil, log)
	stock := catalogapp.NewStockService(apiOwnerID, log)
	quota := billingapp.NewOfflineQuotaController(apiOwnerID, billingapp.NewMemoryStateStore(),
		okCharger{}, conn, billingapp.DefaultConfig(), log)
	documents := documentapp.NewFinalizationService(apiOwnerID, documentapp.NewDocumentStore(), ledgers, stock, quota, log)

	limiter := middleware.NewRateLimiter(1, time.Minute)
	t.Cleanup(limiter.Stop)
	store := cache.NewInMemoryIdempotencyStore()
	t.Cleanup(func() { _ = store.Close() })

	engine := gin.New()
	engine.Use(middleware.RequestID())
	r := NewRouter(engine).Use(
		middleware.Owner(apiOwnerID),
		middleware.Idempotency(store, time.Hour),
	)
	RegisterAPI(r, Handlers{
		System:    handler.NewSystemHandler("factureman", "test", apiOwnerID),
		Ledger:    handler.NewLedgerHandler(ledgers, documents),
		Document:  handler.NewDocumentHandler(documents),
		Product:   handler.NewProductHandler(stock),
		Profile:   handler.NewProfileHandler(profileapp.NewService(apiOwnerID)),
		Billing:   handler.NewBillingHandler(quota),
		Sync:      handler.NewSyncHandler(nil, nil, conn),
		ScanLimit: middleware.RateLimit(limiter),
	}).Setup()
	return engine, ledgers
}

func postJSON(engine *gin.Engine, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestAPIGroupsMountEveryRoute(t *testing.T) {
	engine, _ := newAPIEngine(t)

	registered := make(map[string]bool)
	for _, route := range engine.Routes() {
		registered[route.Method+" "+route.Path] = true
	}
	for _, want := range []string{
		"GET /api/v1/system/ping",
		"GET /api/v1/ledgers",
		"POST /api/v1/ledgers/payments",
		"DELETE /api/v1/ledgers/:id/postings/:posting_id",
		"POST /api/v1/documents/finalize",
		"POST /api/v1/documents/:id/restore",
		"POST /api/v1/documents/scan",
		"PUT /api/v1/products/:id/stock",
		"PUT /api/v1/profile",
		"POST /api/v1/billing/settle",
		"POST /api/v1/sync/trigger",
		"PUT /api/v1/connectivity",
	} {
		assert.True(t, registered[want], "missing route %s", want)
	}
}

var ginParam = regexp.MustCompile(`:(\w+)`)

func TestAPIRoutesAreDocumented(t *testing.T) {
	raw, err := swag.ReadDoc()
	require.NoError(t, err)
	var doc struct {
		Paths map[string]map[string]json.RawMessage `json:"paths"`
	}
	require.NoError(t, json.Unmarshal([]byte(raw), &doc))

	documented := map[string]bool{"ledgers": true, "documents": true, "billing": true, "sync": true, "connectivity": true}
	for _, g := range APIGroups(Handlers{}) {
		if !documented[g.Name()] {
			continue
		}
		for _, route := range g.Routes() {
			p := ginParam.ReplaceAllString(route.Path, "{$1}")
			_, ok := doc.Paths[p][strings.ToLower(route.Method)]
			assert.True(t, ok, "%s %s has no OpenAPI entry", route.Method, p)
		}
	}
}

func TestAPIIdempotentPayment(t *testing.T) {
	engine, ledgers := newAPIEngine(t)
	body := ledgerapp.RecordPaymentRequest{CustomerName: "Awa", Amount: decimal.NewFromInt(500)}
	headers := map[string]string{middleware.IdempotencyKeyHeader: "pay-1"}

	first := postJSON(engine, "/api/v1/ledgers/payments", body, headers)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	replay := postJSON(engine, "/api/v1/ledgers/payments", body, headers)
	assert.Equal(t, http.StatusConflict, replay.Code)
	var resp dto.Response
	require.NoError(t, json.Unmarshal(replay.Body.Bytes(), &resp))
	assert.Equal(t, dto.ErrCodeDuplicateRequest, resp.Error.Code)

	record, err := ledgers.GetByName(context.Background(), "Awa")
	require.NoError(t, err)
	assert.Len(t, record.History, 1)
	assert.True(t, record.RemainingBalance.Equal(decimal.NewFromInt(-500)))
}

func TestAPIScanIsRateLimited(t *testing.T) {
	engine, _ := newAPIEngine(t)

	first := postJSON(engine, "/api/v1/documents/scan", nil, nil)
	assert.Equal(t, http.StatusBadRequest, first.Code, "first call reaches the handler")

	second := postJSON(engine, "/api/v1/documents/scan", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.NotEmpty(t, second.Header().Get("Retry-After"))
}

func TestAPIEchoesRequestID(t *testing.T) {
	engine, _ := newAPIEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/system/info", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-abc")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-abc", w.Header().Get(middleware.RequestIDHeader))
}
