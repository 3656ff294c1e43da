package handler

import (
	"time"

	billingapp "github.com/amadolemli/factureman-sub000/internal/application/billing"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// BillingHandler exposes the offline quota state and manual settlement
type BillingHandler struct {
	BaseHandler
	controller *billingapp.OfflineQuotaController
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(controller *billingapp.OfflineQuotaController) *BillingHandler {
	return &BillingHandler{
		controller: controller,
	}
}

// BillingStateResponse is the billing gate as seen by the user
type BillingStateResponse struct {
	Status            string          `json:"status"`
	OfflineCount      int             `json:"offline_count"`
	MaxOfflineDocs    int             `json:"max_offline_docs"`
	Remaining         int             `json:"remaining"`
	OwedAmount        decimal.Decimal `json:"owed_amount"`
	HasUnpaidDebt     bool            `json:"has_unpaid_debt"`
	CanPerformAction  bool            `json:"can_perform_action"`
	DenialReason      string          `json:"denial_reason,omitempty"`
	LastFailureReason string          `json:"last_failure_reason,omitempty"`
	LastSettledAt     *time.Time      `json:"last_settled_at,omitempty"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// GetState godoc
// @ID           getBillingState
// @Summary      Get the offline billing state
// @Description  Offline document count, amount owed and whether new documents are allowed
// @Tags         billing
// @Produce      json
// @Success      200 {object} dto.Response{data=BillingStateResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/state [get]
func (h *BillingHandler) GetState(c *gin.Context) {
	ctx := c.Request.Context()
	state, err := h.controller.State(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	reason, err := h.controller.Check(ctx)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	cfg := h.controller.Config()
	h.Success(c, BillingStateResponse{
		Status:            state.Status().String(),
		OfflineCount:      state.OfflineCount,
		MaxOfflineDocs:    cfg.MaxOfflineDocs,
		Remaining:         max(cfg.MaxOfflineDocs-state.OfflineCount, 0),
		OwedAmount:        cfg.CostPerDocument.Mul(decimal.NewFromInt(int64(state.OfflineCount))),
		HasUnpaidDebt:     state.HasUnpaidDebt,
		CanPerformAction:  reason == "",
		DenialReason:      reason.String(),
		LastFailureReason: state.LastFailureReason,
		LastSettledAt:     state.LastSettledAt,
		UpdatedAt:         state.UpdatedAt,
	})
}

// Settle godoc
// @ID           settleBilling
// @Summary      Settle deferred billing
// @Description  Charge the documents created while offline
// @Tags         billing
// @Produce      json
// @Success      200 {object} dto.Response{data=billingapp.SettlementResult}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /billing/settle [post]
func (h *BillingHandler) Settle(c *gin.Context) {
	result, err := h.controller.AttemptToPayDebt(c.Request.Context())
	if err != nil && result == nil {
		h.HandleError(c, err)
		return
	}
	if err != nil {
		h.SuccessWithWarnings(c, result, []string{err.Error()})
		return
	}
	h.Success(c, result)
}
