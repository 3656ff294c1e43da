package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"

	billingapp "github.com/amadolemli/factureman-sub000/internal/application/billing"
	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	documentapp "github.com/amadolemli/factureman-sub000/internal/application/document"
	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	profileapp "github.com/amadolemli/factureman-sub000/internal/application/profile"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubCharger struct {
	err   error
	calls int
}

func (c *stubCharger) ChargeCredits(context.Context, uuid.UUID, decimal.Decimal, string) error {
	c.calls++
	return c.err
}

type stubConnectivity struct{ online bool }

func (c *stubConnectivity) IsOnline() bool { return c.online }

func (c *stubConnectivity) SetOnline(_ context.Context, online bool) bool {
	changed := c.online != online
	c.online = online
	return changed
}

type stubExtractor struct {
	items []document.LineItem
	err   error
}

func (e *stubExtractor) Extract(context.Context, []byte) ([]document.LineItem, error) {
	return e.items, e.err
}

// testEnv wires the in-memory services behind a gin engine
type testEnv struct {
	engine    *gin.Engine
	ledger    *ledgerapp.Store
	stock     *catalogapp.StockService
	documents *documentapp.FinalizationService
	profile   *profileapp.Service
	billing   *billingapp.OfflineQuotaController
	charger   *stubCharger
	conn      *stubConnectivity
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		engine:  gin.New(),
		ledger:  ledgerapp.NewStore(testOwnerID, nil, zap.NewNop()),
		stock:   catalogapp.NewStockService(testOwnerID, zap.NewNop()),
		profile: profileapp.NewService(testOwnerID),
		charger: &stubCharger{},
		conn:    &stubConnectivity{online: true},
	}
	env.billing = billingapp.NewOfflineQuotaController(testOwnerID, billingapp.NewMemoryStateStore(),
		env.charger, env.conn, billingapp.DefaultConfig(), zap.NewNop())
	env.documents = documentapp.NewFinalizationService(testOwnerID, documentapp.NewDocumentStore(),
		env.ledger, env.stock, env.billing, zap.NewNop())
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.engine.ServeHTTP(w, req)
	return w
}

// decode unmarshals the envelope and, when out is set, its data
func decode(t *testing.T, w *httptest.ResponseRecorder, out any) dto.Response {
	t.Helper()
	var raw struct {
		dto.Response
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw), w.Body.String())
	if out != nil {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return raw.Response
}

func amount(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func assertStatus(t *testing.T, want int, w *httptest.ResponseRecorder) {
	t.Helper()
	require.Equal(t, want, w.Code, w.Body.String())
}
