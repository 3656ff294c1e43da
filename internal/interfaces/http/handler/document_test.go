package handler

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	documentapp "github.com/amadolemli/factureman-sub000/internal/application/document"
	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDocumentRoutes(env *testEnv) {
	h := NewDocumentHandler(env.documents)
	g := env.engine.Group("/documents")
	g.POST("", h.Create)
	g.POST("/scan", h.Scan)
	g.POST("/finalize", h.FinalizeNew)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/finalize", h.Finalize)
	g.DELETE("/:id", h.Delete)
	g.POST("/:id/restore", h.Restore)
}

func invoiceRequest(customer string, paid int64) documentapp.CreateDraftRequest {
	return documentapp.CreateDraftRequest{
		Type:         "INVOICE",
		CustomerName: customer,
		Items: []documentapp.LineItemInput{
			{Description: "Sac de riz", Quantity: 2, UnitPrice: amount(500)},
		},
		AmountPaid: amount(paid),
	}
}

func TestDocumentHandler_CreateAndGet(t *testing.T) {
	env := newTestEnv(t)
	setupDocumentRoutes(env)

	w := env.do(t, http.MethodPost, "/documents", invoiceRequest("Awa Traoré", 0))
	assertStatus(t, http.StatusCreated, w)

	var created documentapp.DocumentResponse
	decode(t, w, &created)
	assert.Equal(t, "DRAFT", created.Lifecycle)
	assert.True(t, created.Total.Equal(amount(1000)))
	assert.NotEmpty(t, created.Number)

	w = env.do(t, http.MethodGet, "/documents/"+created.ID.String(), nil)
	assertStatus(t, http.StatusOK, w)
	var got documentapp.DocumentResponse
	decode(t, w, &got)
	assert.Equal(t, created.ID, got.ID)
}

func TestDocumentHandler_CreateRejectsUnknownType(t *testing.T) {
	env := newTestEnv(t)
	setupDocumentRoutes(env)

	req := invoiceRequest("Awa", 0)
	req.Type = "BILL"
	w := env.do(t, http.MethodPost, "/documents", req)

	assertStatus(t, http.StatusBadRequest, w)
	resp := decode(t, w, nil)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
}

func TestDocumentHandler_GetInvalidID(t *testing.T) {
	env := newTestEnv(t)
	setupDocumentRoutes(env)

	w := env.do(t, http.MethodGet, "/documents/not-a-uuid", nil)
	assertStatus(t, http.StatusBadRequest, w)
}

func TestDocumentHandler_FinalizeNewPostsToLedger(t *testing.T) {
	env := newTestEnv(t)
	setupDocumentRoutes(env)

	w := env.do(t, http.MethodPost, "/documents/finalize", invoiceRequest("Awa Traoré", 300))
	assertStatus(t, http.StatusCreated, w)

	var resp documentapp.FinalizeResponse
	decode(t, w, &resp)
	assert.True(t, resp.Document.IsFinalized)
	require.NotNil(t, resp.Ledger)
	assert.True(t, resp.Ledger.RemainingBalance.Equal(amount(700)))
	require.NotNil(t, resp.Receipt, "partial payment creates a companion receipt")
	assert.True(t, resp.Receipt.AmountPaid.Equal(amount(300)))
	require.NotNil(t, resp.Billing)
	assert.Equal(t, 1, env.charger.calls)
}

func TestDocumentHandler_FinalizeUnpaidWithoutCustomer(t *testing.T) {
	env := newTestEnv(t)
	setupDocumentRoutes(env)

	w := env.do(t, http.MethodPost, "/documents/finalize", invoiceRequest("", 0))

	assertStatus(t, http.StatusUnprocessableEntity, w)
	resp := decode(t, w, nil)
	assert.Equal(t, dto.ErrCodeMissingCustomerName, resp.Error.Code)
	assert.Empty(t, env.ledger.List(context.Background()))
}

func TestDocumentHandler_FinalizeStoredDraft(t *testing.T) {
	env := newTestEnv(t)
	setupDocumentRoutes(env)

	w := env.do(t, http.MethodPost, "/documents", invoiceRequest("Awa", 0))
	var draft documentapp.DocumentResponse
	decode(t, w, &draft)

	paid := amount(1000)
	w = env.do(t, http.MethodPost, "/documents/"+draft.ID.String()+"/finalize", documentapp.FinalizeRequest{AmountPaid: &paid})
	assertStatus(t, http.StatusOK, w)
	var resp documentapp.FinalizeResponse
	decode(t, w, &resp)
	assert.True(t, resp.Document.AmountPaid.Equal(paid))
	assert.Nil(t, resp.Receipt, "fully paid invoice has no companion receipt")

	t.Run("second finalize is refused", func(t *testing.T) {
		w := env.do(t, http.MethodPost, "/documents/"+draft.ID.String()+"/finalize", nil)
		assertStatus(t, http.StatusUnprocessableEntity, w)
		resp := decode(t, w, nil)
		assert.Equal(t, dto.ErrCodeAlreadyFinalized, resp.Error.Code)
	})

	t.Run("finalized documents cannot be edited", func(t *testing.T) {
		w := env.do(t, http.MethodPut, "/documents/"+draft.ID.String(), documentapp.UpdateDraftRequest{CustomerName: "Other"})
		assertStatus(t, http.StatusUnprocessableEntity, w)
	})
}

func TestDocumentHandler_BillingDenied(t *testing.T) {
	env := newTestEnv(t)
	setupDocumentRoutes(env)
	env.charger.err = billing.ErrInsufficientCredits

	w := env.do(t, http.MethodPost, "/documents/finalize", invoiceRequest("Awa", 1000))

	assertStatus(t, http.StatusPaymentRequired, w)
	resp := decode(t, w, nil)
	assert.Equal(t, dto.ErrCodeInsufficientBalance, resp.Error.Code)
	assert.NotEmpty(t, resp.Error.Help)
	assert.Empty(t, env.ledger.List(context.Background()))
}

func TestDocumentHandler_DeleteAndRestore(t *testing.T) {
	env := newTestEnv(t)
	setupDocumentRoutes(env)
	ctx := context.Background()
	_, err := env.stock.CreateProduct(ctx, "Sac de riz", amount(500), 10)
	require.NoError(t, err)

	w := env.do(t, http.MethodPost, "/documents/finalize", invoiceRequest("Awa", 0))
	assertStatus(t, http.StatusCreated, w)
	var fin documentapp.FinalizeResponse
	decode(t, w, &fin)
	require.Len(t, fin.StockChanges, 1)
	assert.Equal(t, 8, fin.StockChanges[0].StockAfter)
	id := fin.Document.ID.String()

	w = env.do(t, http.MethodDelete, "/documents/"+id, nil)
	assertStatus(t, http.StatusOK, w)
	var del documentapp.DeletionResponse
	decode(t, w, &del)
	assert.True(t, del.Changed)
	assert.Equal(t, "DELETED", del.Document.Deletion)
	require.NotNil(t, del.Ledger)
	assert.True(t, del.Ledger.RemainingBalance.IsZero())
	require.Len(t, del.StockChanges, 1)
	assert.Equal(t, 10, del.StockChanges[0].StockAfter)

	t.Run("deleting twice is a no-op", func(t *testing.T) {
		w := env.do(t, http.MethodDelete, "/documents/"+id, nil)
		assertStatus(t, http.StatusOK, w)
		var again documentapp.DeletionResponse
		decode(t, w, &again)
		assert.False(t, again.Changed)
	})

	t.Run("deleted documents are hidden by default", func(t *testing.T) {
		w := env.do(t, http.MethodGet, "/documents", nil)
		var list []documentapp.DocumentResponse
		resp := decode(t, w, &list)
		assert.Empty(t, list)
		assert.Equal(t, int64(0), resp.Meta.Total)

		w = env.do(t, http.MethodGet, "/documents?include_deleted=true", nil)
		decode(t, w, &list)
		assert.Len(t, list, 1)
	})

	w = env.do(t, http.MethodPost, "/documents/"+id+"/restore", nil)
	assertStatus(t, http.StatusOK, w)
	var restored documentapp.DeletionResponse
	decode(t, w, &restored)
	assert.Equal(t, "ACTIVE", restored.Document.Deletion)
	require.NotNil(t, restored.Ledger)
	assert.True(t, restored.Ledger.RemainingBalance.Equal(amount(1000)))
}

func TestDocumentHandler_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	setupDocumentRoutes(env)

	env.do(t, http.MethodPost, "/documents", invoiceRequest("Awa", 0))
	quote := invoiceRequest("Awa", 0)
	quote.Type = "QUOTE"
	env.do(t, http.MethodPost, "/documents", quote)

	w := env.do(t, http.MethodGet, "/documents?type=QUOTE", nil)
	assertStatus(t, http.StatusOK, w)
	var list []documentapp.DocumentResponse
	decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "QUOTE", list[0].Type)

	w = env.do(t, http.MethodGet, "/documents?customer_id=bad", nil)
	assertStatus(t, http.StatusBadRequest, w)
}

func scanRequest(t *testing.T, docType string, image []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	require.NoError(t, mw.WriteField("type", docType))
	require.NoError(t, mw.WriteField("customer_name", "Awa"))
	if image != nil {
		part, err := mw.CreateFormFile("image", "facture.jpg")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/documents/scan", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocumentHandler_Scan(t *testing.T) {
	t.Run("extracts a draft", func(t *testing.T) {
		env := newTestEnv(t)
		env.documents.SetItemExtractor(&stubExtractor{items: []document.LineItem{
			{Description: "Huile", Quantity: 3, UnitPrice: amount(1200)},
		}})
		setupDocumentRoutes(env)

		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, scanRequest(t, "INVOICE", []byte{0xff, 0xd8, 0xff}))

		assertStatus(t, http.StatusCreated, w)
		var doc documentapp.DocumentResponse
		decode(t, w, &doc)
		assert.Equal(t, "DRAFT", doc.Lifecycle)
		require.Len(t, doc.Items, 1)
		assert.True(t, doc.Total.Equal(amount(3600)))
	})

	t.Run("no extractor configured", func(t *testing.T) {
		env := newTestEnv(t)
		setupDocumentRoutes(env)

		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, scanRequest(t, "INVOICE", []byte{1}))

		assertStatus(t, http.StatusServiceUnavailable, w)
	})

	t.Run("missing image", func(t *testing.T) {
		env := newTestEnv(t)
		setupDocumentRoutes(env)

		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, scanRequest(t, "INVOICE", nil))

		assertStatus(t, http.StatusBadRequest, w)
	})

	t.Run("invalid type", func(t *testing.T) {
		env := newTestEnv(t)
		setupDocumentRoutes(env)

		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, scanRequest(t, "BILL", []byte{1}))

		assertStatus(t, http.StatusBadRequest, w)
	})
}
