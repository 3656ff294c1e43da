package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLedgerRoutes(env *testEnv) {
	h := NewLedgerHandler(env.ledger, env.documents)
	g := env.engine.Group("/ledgers")
	g.GET("", h.List)
	g.GET("/lookup", h.Lookup)
	g.GET("/balance", h.Balance)
	g.GET("/verify", h.VerifyAll)
	g.POST("/payments", h.RecordPayment)
	g.POST("/postings/cancel", h.CancelPosting)
	g.POST("/adjustments", h.AdjustBalance)
	g.GET("/:id", h.Get)
	g.GET("/:id/verify", h.Verify)
	g.PUT("/:id/name", h.Rename)
	g.PUT("/:id/phone", h.UpdatePhone)
	g.POST("/:id/appointments", h.ScheduleAppointment)
	g.DELETE("/:id/postings/:posting_id", h.CancelPostingByID)
}

// seedInvoice posts an unpaid invoice for customer and returns the ledger
func seedInvoice(t *testing.T, env *testEnv, customer string, total int64) *ledgerapp.PostingResult {
	t.Helper()
	res, err := env.ledger.ApplyInvoicePosting(context.Background(), customer, amount(total), "Facture", nil)
	require.NoError(t, err)
	return res
}

func TestLedgerHandler_RecordPayment(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)
	seedInvoice(t, env, "Moussa Diallo", 5000)

	w := env.do(t, http.MethodPost, "/ledgers/payments", ledgerapp.RecordPaymentRequest{
		CustomerName: "  moussa   diallo ",
		Amount:       amount(2000),
		Description:  "Versement",
	})

	assertStatus(t, http.StatusOK, w)
	var resp ledgerapp.PostingResultResponse
	decode(t, w, &resp)
	assert.False(t, resp.Created)
	assert.True(t, resp.Ledger.RemainingBalance.Equal(amount(3000)))
	assert.True(t, resp.Ledger.TotalDebt.Equal(amount(5000)))
	require.NotNil(t, resp.Posting)
	assert.Equal(t, "PAYMENT", resp.Posting.Type)
}

func TestLedgerHandler_RecordPaymentCreatesLedger(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)

	w := env.do(t, http.MethodPost, "/ledgers/payments", ledgerapp.RecordPaymentRequest{
		CustomerName: "Fatou",
		Amount:       amount(1500),
	})

	assertStatus(t, http.StatusCreated, w)
	var resp ledgerapp.PostingResultResponse
	decode(t, w, &resp)
	assert.True(t, resp.Created)
	assert.True(t, resp.Ledger.RemainingBalance.Equal(amount(-1500)))
}

func TestLedgerHandler_RecordPaymentValidation(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)

	tests := []struct {
		name     string
		body     any
		wantCode string
	}{
		{"missing customer", ledgerapp.RecordPaymentRequest{Amount: amount(10)}, dto.ErrCodeValidation},
		{"zero amount", ledgerapp.RecordPaymentRequest{CustomerName: "A", Amount: amount(0)}, dto.ErrCodeValidation},
		{"negative amount", ledgerapp.RecordPaymentRequest{CustomerName: "A", Amount: amount(-5)}, dto.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/ledgers/payments", tt.body)
			assertStatus(t, http.StatusBadRequest, w)
			resp := decode(t, w, nil)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
	assert.Empty(t, env.ledger.List(context.Background()))
}

func TestLedgerHandler_CancelPosting(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)
	seeded := seedInvoice(t, env, "Moussa", 5000)

	w := env.do(t, http.MethodPost, "/ledgers/postings/cancel", ledgerapp.CancelPostingRequest{
		CustomerName: "Moussa",
		PostingID:    seeded.Posting.ID,
	})

	assertStatus(t, http.StatusOK, w)
	var resp ledgerapp.PostingResultResponse
	decode(t, w, &resp)
	assert.True(t, resp.Ledger.RemainingBalance.IsZero())
	assert.True(t, resp.Ledger.TotalDebt.Equal(amount(5000)))
	require.Len(t, resp.Ledger.History, 2)

	t.Run("reversal cannot be cancelled", func(t *testing.T) {
		reversal := resp.Posting
		require.NotNil(t, reversal)
		path := "/ledgers/" + resp.Ledger.ID.String() + "/postings/" + reversal.ID.String()
		w := env.do(t, http.MethodDelete, path, nil)
		assertStatus(t, http.StatusUnprocessableEntity, w)
	})

	t.Run("unknown posting", func(t *testing.T) {
		path := "/ledgers/" + resp.Ledger.ID.String() + "/postings/" + uuid.NewString()
		w := env.do(t, http.MethodDelete, path, nil)
		assertStatus(t, http.StatusNotFound, w)
	})
}

func TestLedgerHandler_AdjustBalance(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)
	seedInvoice(t, env, "Moussa", 5000)

	w := env.do(t, http.MethodPost, "/ledgers/adjustments", ledgerapp.AdjustBalanceRequest{
		CustomerName: "Moussa",
		NewBalance:   amount(4200),
		Reason:       "Remise accordée",
	})

	assertStatus(t, http.StatusOK, w)
	var resp ledgerapp.PostingResultResponse
	decode(t, w, &resp)
	assert.True(t, resp.Ledger.RemainingBalance.Equal(amount(4200)))

	w = env.do(t, http.MethodGet, "/ledgers/"+resp.Ledger.ID.String()+"/verify", nil)
	assertStatus(t, http.StatusOK, w)
	var verify VerifyResponse
	decode(t, w, &verify)
	assert.True(t, verify.Consistent)
}

func TestLedgerHandler_LookupAndBalance(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)
	seedInvoice(t, env, "Moussa", 5000)

	w := env.do(t, http.MethodGet, "/ledgers/lookup?name=MOUSSA", nil)
	assertStatus(t, http.StatusOK, w)

	w = env.do(t, http.MethodGet, "/ledgers/lookup?name=Nobody", nil)
	assertStatus(t, http.StatusNotFound, w)

	w = env.do(t, http.MethodGet, "/ledgers/lookup", nil)
	assertStatus(t, http.StatusBadRequest, w)

	w = env.do(t, http.MethodGet, "/ledgers/balance?name=Nobody", nil)
	assertStatus(t, http.StatusOK, w)
	var bal BalanceResponse
	decode(t, w, &bal)
	assert.True(t, bal.RemainingBalance.IsZero())

	w = env.do(t, http.MethodGet, "/ledgers/balance?name=moussa", nil)
	decode(t, w, &bal)
	assert.True(t, bal.RemainingBalance.Equal(amount(5000)))
}

func TestLedgerHandler_ListPaging(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)
	for _, name := range []string{"Awa", "Bintou", "Cheick"} {
		seedInvoice(t, env, name, 100)
	}
	_, err := env.ledger.ApplyPaymentPosting(context.Background(), "Bintou", amount(100), "", nil)
	require.NoError(t, err)

	w := env.do(t, http.MethodGet, "/ledgers?page=2&page_size=2", nil)
	assertStatus(t, http.StatusOK, w)
	var page []ledgerapp.LedgerSummaryResponse
	resp := decode(t, w, &page)
	require.Len(t, page, 1)
	assert.Equal(t, int64(3), resp.Meta.Total)
	assert.Equal(t, 2, resp.Meta.TotalPages)

	w = env.do(t, http.MethodGet, "/ledgers?with_balance=true", nil)
	resp = decode(t, w, &page)
	assert.Equal(t, int64(2), resp.Meta.Total)

	w = env.do(t, http.MethodGet, "/ledgers?search=bin", nil)
	decode(t, w, &page)
	require.Len(t, page, 1)

	w = env.do(t, http.MethodGet, "/ledgers?page_size=1000", nil)
	assertStatus(t, http.StatusBadRequest, w)
}

func TestLedgerHandler_RenameMovesDocuments(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)
	setupDocumentRoutes(env)

	w := env.do(t, http.MethodPost, "/documents/finalize", invoiceRequest("Awa", 0))
	assertStatus(t, http.StatusCreated, w)
	var fin struct {
		Ledger ledgerapp.LedgerResponse `json:"ledger"`
	}
	decode(t, w, &fin)
	id := fin.Ledger.ID.String()

	w = env.do(t, http.MethodPut, "/ledgers/"+id+"/name", ledgerapp.RenameCustomerRequest{Name: "Awa Koné"})
	assertStatus(t, http.StatusOK, w)
	var renamed ledgerapp.LedgerResponse
	decode(t, w, &renamed)
	assert.Equal(t, fin.Ledger.ID, renamed.ID)
	assert.True(t, renamed.RemainingBalance.Equal(amount(1000)))

	t.Run("name already taken", func(t *testing.T) {
		seedInvoice(t, env, "Bintou", 100)
		w := env.do(t, http.MethodPut, "/ledgers/"+id+"/name", ledgerapp.RenameCustomerRequest{Name: "bintou"})
		assertStatus(t, http.StatusConflict, w)
	})
}

func TestLedgerHandler_UpdatePhone(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)
	id := seedInvoice(t, env, "Moussa", 100).Ledger.ID.String()

	w := env.do(t, http.MethodPut, "/ledgers/"+id+"/phone", UpdatePhoneRequest{Phone: "+22370000000"})
	assertStatus(t, http.StatusOK, w)
	var resp ledgerapp.LedgerResponse
	decode(t, w, &resp)
	assert.Equal(t, "+22370000000", resp.CustomerPhone)

	w = env.do(t, http.MethodPut, "/ledgers/"+id+"/phone", UpdatePhoneRequest{Phone: "70 00 00"})
	assertStatus(t, http.StatusBadRequest, w)
}

func TestLedgerHandler_ScheduleAppointment(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)
	id := seedInvoice(t, env, "Moussa", 100).Ledger.ID.String()

	w := env.do(t, http.MethodPost, "/ledgers/"+id+"/appointments", ledgerapp.ScheduleAppointmentRequest{
		Date: time.Now().Add(48 * time.Hour),
		Note: "Relance",
	})

	assertStatus(t, http.StatusCreated, w)
	var resp ledgerapp.LedgerResponse
	decode(t, w, &resp)
	require.Len(t, resp.Appointments, 1)
	assert.Equal(t, "Relance", resp.Appointments[0].Note)

	w = env.do(t, http.MethodPost, "/ledgers/"+uuid.NewString()+"/appointments", ledgerapp.ScheduleAppointmentRequest{
		Date: time.Now(),
	})
	assertStatus(t, http.StatusNotFound, w)
}

func TestLedgerHandler_VerifyAll(t *testing.T) {
	env := newTestEnv(t)
	setupLedgerRoutes(env)
	seedInvoice(t, env, "Awa", 100)
	seedInvoice(t, env, "Moussa", 200)

	w := env.do(t, http.MethodGet, "/ledgers/verify", nil)
	assertStatus(t, http.StatusOK, w)
	var resp VerifyAllResponse
	decode(t, w, &resp)
	assert.Equal(t, 2, resp.Checked)
	assert.Empty(t, resp.Inconsistent)
}
