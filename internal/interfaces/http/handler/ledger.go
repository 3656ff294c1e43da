package handler

import (
	"errors"
	"sort"
	"strings"

	documentapp "github.com/amadolemli/factureman-sub000/internal/application/document"
	ledgerapp "github.com/amadolemli/factureman-sub000/internal/application/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerHandler handles customer ledger API endpoints
type LedgerHandler struct {
	BaseHandler
	store     *ledgerapp.Store
	documents *documentapp.FinalizationService
}

// NewLedgerHandler creates a new LedgerHandler. Renames go through the
// document service so that documents follow the new customer name.
func NewLedgerHandler(store *ledgerapp.Store, documents *documentapp.FinalizationService) *LedgerHandler {
	return &LedgerHandler{
		store:     store,
		documents: documents,
	}
}

// BalanceResponse is the remaining balance of one customer
type BalanceResponse struct {
	CustomerName     string          `json:"customer_name"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
}

// VerifyResponse reports the consistency of one ledger
type VerifyResponse struct {
	LedgerID   uuid.UUID `json:"ledger_id"`
	Consistent bool      `json:"consistent"`
	Error      string    `json:"error,omitempty"`
}

// VerifyAllResponse reports the consistency of every ledger
type VerifyAllResponse struct {
	Checked      int              `json:"checked"`
	Inconsistent []VerifyResponse `json:"inconsistent"`
}

// UpdatePhoneRequest sets the phone number of a ledger
type UpdatePhoneRequest struct {
	Phone string `json:"phone" binding:"omitempty,e164"`
}

// List godoc
// @ID           listLedgers
// @Summary      List customer ledgers
// @Description  List ledgers with optional name search and open-balance filter
// @Tags         ledgers
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size (max 100)"
// @Param        search query string false "Customer name contains"
// @Param        with_balance query bool false "Only ledgers with a positive balance"
// @Success      200 {object} dto.Response{data=[]ledgerapp.LedgerSummaryResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers [get]
func (h *LedgerHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	records := h.store.List(c.Request.Context())
	if q := strings.TrimSpace(c.Query("search")); q != "" {
		key := ledger.NormalizeCustomerName(q)
		filtered := records[:0]
		for _, r := range records {
			if strings.Contains(r.CustomerKey, key) {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}
	if c.Query("with_balance") == "true" {
		filtered := records[:0]
		for _, r := range records {
			if r.RemainingBalance.IsPositive() {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	start, end := req.Bounds(len(records))
	out := make([]ledgerapp.LedgerSummaryResponse, 0, end-start)
	for _, r := range records[start:end] {
		out = append(out, ledgerapp.ToLedgerSummaryResponse(r))
	}
	h.SuccessWithMeta(c, out, int64(len(records)), req.Page, req.PageSize)
}

// Get godoc
// @ID           getLedger
// @Summary      Get a ledger
// @Description  Get a ledger with its posting history and appointments
// @Tags         ledgers
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.LedgerResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/{id} [get]
func (h *LedgerHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}

	record, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledgerapp.ToLedgerResponse(record))
}

// Lookup godoc
// @ID           lookupLedger
// @Summary      Find a ledger by customer name
// @Description  Customer names are matched after normalization
// @Tags         ledgers
// @Produce      json
// @Param        name query string true "Customer name"
// @Success      200 {object} dto.Response{data=ledgerapp.LedgerResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/lookup [get]
func (h *LedgerHandler) Lookup(c *gin.Context) {
	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		h.BadRequest(c, "Query parameter 'name' is required")
		return
	}

	record, err := h.store.GetByName(c.Request.Context(), name)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledgerapp.ToLedgerResponse(record))
}

// Balance godoc
// @ID           getCustomerBalance
// @Summary      Get a customer balance
// @Description  Unknown customers have a zero balance
// @Tags         ledgers
// @Produce      json
// @Param        name query string true "Customer name"
// @Success      200 {object} dto.Response{data=BalanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/balance [get]
func (h *LedgerHandler) Balance(c *gin.Context) {
	name := c.Query("name")
	if strings.TrimSpace(name) == "" {
		h.BadRequest(c, "Query parameter 'name' is required")
		return
	}
	h.Success(c, BalanceResponse{
		CustomerName:     strings.TrimSpace(name),
		RemainingBalance: h.store.Balance(c.Request.Context(), name),
	})
}

// Verify godoc
// @ID           verifyLedger
// @Summary      Verify a ledger
// @Description  Recompute the balance and total debt from the posting history
// @Tags         ledgers
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Success      200 {object} dto.Response{data=VerifyResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/{id}/verify [get]
func (h *LedgerHandler) Verify(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}

	err := h.store.Verify(c.Request.Context(), id)
	if err != nil && !isInconsistent(err) {
		h.HandleError(c, err)
		return
	}
	resp := VerifyResponse{LedgerID: id, Consistent: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	h.Success(c, resp)
}

// VerifyAll godoc
// @ID           verifyAllLedgers
// @Summary      Verify every ledger
// @Description  List ledgers whose stored totals disagree with their history
// @Tags         ledgers
// @Produce      json
// @Success      200 {object} dto.Response{data=VerifyAllResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/verify [get]
func (h *LedgerHandler) VerifyAll(c *gin.Context) {
	ctx := c.Request.Context()
	failures := h.store.VerifyAll(ctx)

	resp := VerifyAllResponse{
		Checked:      len(h.store.List(ctx)),
		Inconsistent: make([]VerifyResponse, 0, len(failures)),
	}
	for id, err := range failures {
		resp.Inconsistent = append(resp.Inconsistent, VerifyResponse{LedgerID: id, Error: err.Error()})
	}
	sort.Slice(resp.Inconsistent, func(i, j int) bool {
		return resp.Inconsistent[i].LedgerID.String() < resp.Inconsistent[j].LedgerID.String()
	})
	h.Success(c, resp)
}

// RecordPayment godoc
// @ID           recordPayment
// @Summary      Record a payment
// @Description  Record a payment against a customer ledger, creating the ledger if needed
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.RecordPaymentRequest true "Payment"
// @Success      201 {object} dto.Response{data=ledgerapp.PostingResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/payments [post]
func (h *LedgerHandler) RecordPayment(c *gin.Context) {
	var req ledgerapp.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.store.ApplyPaymentPosting(c.Request.Context(), req.CustomerName, req.Amount, req.Description, nil)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if result.Created {
		h.Created(c, ledgerapp.ToPostingResultResponse(result))
		return
	}
	h.Success(c, ledgerapp.ToPostingResultResponse(result))
}

// CancelPosting godoc
// @ID           cancelPosting
// @Summary      Cancel a posting
// @Description  Append a compensating posting for an existing one
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.CancelPostingRequest true "Posting to cancel"
// @Success      200 {object} dto.Response{data=ledgerapp.PostingResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/postings/cancel [post]
func (h *LedgerHandler) CancelPosting(c *gin.Context) {
	var req ledgerapp.CancelPostingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.store.CancelPosting(c.Request.Context(), req.CustomerName, req.PostingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledgerapp.ToPostingResultResponse(result))
}

// CancelPostingByID godoc
// @ID           cancelPostingByID
// @Summary      Cancel a posting by ledger ID
// @Description  Append a compensating posting for an existing one
// @Tags         ledgers
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Param        posting_id path string true "Posting ID" format(uuid)
// @Success      200 {object} dto.Response{data=ledgerapp.PostingResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/{id}/postings/{posting_id} [delete]
func (h *LedgerHandler) CancelPostingByID(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}
	postingID, ok := parseIDParam(c, "posting_id")
	if !ok {
		h.BadRequest(c, "Invalid posting ID format")
		return
	}

	result, err := h.store.CancelPostingByLedgerID(c.Request.Context(), id, postingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledgerapp.ToPostingResultResponse(result))
}

// AdjustBalance godoc
// @ID           adjustBalance
// @Summary      Adjust a balance
// @Description  Set the remaining balance through an administrative adjustment posting
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        request body ledgerapp.AdjustBalanceRequest true "Adjustment"
// @Success      200 {object} dto.Response{data=ledgerapp.PostingResultResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/adjustments [post]
func (h *LedgerHandler) AdjustBalance(c *gin.Context) {
	var req ledgerapp.AdjustBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.store.AdjustBalanceManually(c.Request.Context(), req.CustomerName, req.NewBalance, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledgerapp.ToPostingResultResponse(result))
}

// Rename godoc
// @ID           renameCustomer
// @Summary      Rename a customer
// @Description  Rename a ledger customer and the documents issued to them
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Param        request body ledgerapp.RenameCustomerRequest true "New name"
// @Success      200 {object} dto.Response{data=ledgerapp.LedgerResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/{id}/name [put]
func (h *LedgerHandler) Rename(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}
	var req ledgerapp.RenameCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	var (
		record *ledger.LedgerRecord
		err    error
	)
	if h.documents != nil {
		record, err = h.documents.RenameCustomer(c.Request.Context(), id, req.Name)
	} else {
		record, err = h.store.Rename(c.Request.Context(), id, req.Name)
	}
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledgerapp.ToLedgerResponse(record))
}

// UpdatePhone godoc
// @ID           updateCustomerPhone
// @Summary      Update a customer phone
// @Description  Set or clear the phone number of a ledger
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Param        request body UpdatePhoneRequest true "Phone number in E.164 form"
// @Success      200 {object} dto.Response{data=ledgerapp.LedgerResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/{id}/phone [put]
func (h *LedgerHandler) UpdatePhone(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}
	var req UpdatePhoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	record, err := h.store.UpdatePhone(c.Request.Context(), id, req.Phone)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, ledgerapp.ToLedgerResponse(record))
}

// ScheduleAppointment godoc
// @ID           scheduleAppointment
// @Summary      Schedule a follow-up
// @Description  Add a payment follow-up appointment to a ledger
// @Tags         ledgers
// @Accept       json
// @Produce      json
// @Param        id path string true "Ledger ID" format(uuid)
// @Param        request body ledgerapp.ScheduleAppointmentRequest true "Appointment"
// @Success      201 {object} dto.Response{data=ledgerapp.LedgerResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /ledgers/{id}/appointments [post]
func (h *LedgerHandler) ScheduleAppointment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid ledger ID format")
		return
	}
	var req ledgerapp.ScheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	record, err := h.store.ScheduleAppointment(c.Request.Context(), id, req.Date, req.Note, req.PostingID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ledgerapp.ToLedgerResponse(record))
}

func isInconsistent(err error) bool {
	return errors.Is(err, ledger.ErrInconsistentLedger)
}
