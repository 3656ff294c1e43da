package handler

import (
	"context"
	"errors"
	"net/http"
	"testing"

	billingapp "github.com/amadolemli/factureman-sub000/internal/application/billing"
	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBillingRoutes(env *testEnv) {
	h := NewBillingHandler(env.billing)
	env.engine.GET("/billing/state", h.GetState)
	env.engine.POST("/billing/settle", h.Settle)
}

func recordOffline(t *testing.T, env *testEnv, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, env.billing.IncrementOfflineCount(context.Background()))
	}
}

func TestBillingHandler_GetState(t *testing.T) {
	env := newTestEnv(t)
	setupBillingRoutes(env)
	recordOffline(t, env, 3)

	w := env.do(t, http.MethodGet, "/billing/state", nil)
	assertStatus(t, http.StatusOK, w)

	var state BillingStateResponse
	decode(t, w, &state)
	assert.Equal(t, "CLEAR", state.Status)
	assert.Equal(t, 3, state.OfflineCount)
	assert.Equal(t, billing.DefaultMaxOfflineDocs, state.MaxOfflineDocs)
	assert.Equal(t, billing.DefaultMaxOfflineDocs-3, state.Remaining)
	assert.True(t, state.OwedAmount.Equal(amount(3)))
	assert.True(t, state.CanPerformAction)
}

func TestBillingHandler_OfflineLimitReached(t *testing.T) {
	env := newTestEnv(t)
	setupBillingRoutes(env)
	env.conn.online = false
	recordOffline(t, env, billing.DefaultMaxOfflineDocs)

	w := env.do(t, http.MethodGet, "/billing/state", nil)
	var state BillingStateResponse
	decode(t, w, &state)
	assert.False(t, state.CanPerformAction)
	assert.Equal(t, string(billing.DenialOfflineLimit), state.DenialReason)
	assert.Zero(t, state.Remaining)
}

func TestBillingHandler_Settle(t *testing.T) {
	t.Run("settles the deferred count", func(t *testing.T) {
		env := newTestEnv(t)
		setupBillingRoutes(env)
		recordOffline(t, env, 4)

		w := env.do(t, http.MethodPost, "/billing/settle", nil)
		assertStatus(t, http.StatusOK, w)
		var res billingapp.SettlementResult
		decode(t, w, &res)
		assert.True(t, res.Settled)
		assert.True(t, res.Amount.Equal(amount(4)))
		assert.Equal(t, 1, env.charger.calls)
	})

	t.Run("failed settlement blocks", func(t *testing.T) {
		env := newTestEnv(t)
		setupBillingRoutes(env)
		recordOffline(t, env, 2)
		env.charger.err = errors.New("gateway timeout")

		w := env.do(t, http.MethodPost, "/billing/settle", nil)
		assertStatus(t, http.StatusOK, w)
		var res billingapp.SettlementResult
		decode(t, w, &res)
		assert.True(t, res.Attempted)
		assert.False(t, res.Settled)
		assert.Equal(t, billing.StatusBlocked, res.Status)

		w = env.do(t, http.MethodGet, "/billing/state", nil)
		var state BillingStateResponse
		decode(t, w, &state)
		assert.Equal(t, string(billing.DenialDebtBlocked), state.DenialReason)
		assert.Equal(t, "gateway timeout", state.LastFailureReason)
	})
}
