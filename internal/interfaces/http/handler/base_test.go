package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/amadolemli/factureman-sub000/internal/domain/billing"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/domain/ledger"
	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()
}

var testOwnerID = uuid.MustParse("7b0f3c1e-52a4-4d6e-9a8f-0c2d1e3f4a5b")

// runBase runs fn against a bare gin context and returns the recorded
// response, decoded envelope and context
func runBase(t *testing.T, req *http.Request, fn func(h *BaseHandler, c *gin.Context)) (*httptest.ResponseRecorder, dto.Response, *gin.Context) {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	if req == nil {
		req = httptest.NewRequest(http.MethodGet, "/", nil)
	}
	c.Request = req
	fn(&BaseHandler{}, c)

	var resp dto.Response
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp, c
}

func TestGetRequestID(t *testing.T) {
	t.Run("context value wins over header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "header-id")
		_, resp, _ := runBase(t, req, func(h *BaseHandler, c *gin.Context) {
			c.Set(middleware.RequestIDContextKey, "ctx-id")
			h.BadRequest(c, "bad")
		})
		assert.Equal(t, "ctx-id", resp.Error.RequestID)
	})

	t.Run("header used outside the middleware", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(middleware.RequestIDHeader, "header-id")
		_, resp, _ := runBase(t, req, func(h *BaseHandler, c *gin.Context) {
			h.BadRequest(c, "bad")
		})
		assert.Equal(t, "header-id", resp.Error.RequestID)
	})
}

func TestBaseHandlerResponses(t *testing.T) {
	t.Run("success with meta", func(t *testing.T) {
		w, resp, _ := runBase(t, nil, func(h *BaseHandler, c *gin.Context) {
			h.SuccessWithMeta(c, []string{"FAC-0001"}, 41, 2, 20)
		})
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, resp.Meta)
		assert.Equal(t, int64(41), resp.Meta.Total)
		assert.Equal(t, 3, resp.Meta.TotalPages)
	})

	t.Run("created", func(t *testing.T) {
		w, resp, _ := runBase(t, nil, func(h *BaseHandler, c *gin.Context) {
			h.Created(c, gin.H{"number": "REC-0001"})
		})
		assert.Equal(t, http.StatusCreated, w.Code)
		assert.True(t, resp.Success)
	})

	t.Run("warnings travel with data", func(t *testing.T) {
		w, resp, _ := runBase(t, nil, func(h *BaseHandler, c *gin.Context) {
			h.SuccessWithWarnings(c, gin.H{"ok": true}, []string{"remote unreachable"})
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, []string{"remote unreachable"}, resp.Warnings)
	})

	t.Run("internal error", func(t *testing.T) {
		w, resp, _ := runBase(t, nil, func(h *BaseHandler, c *gin.Context) {
			h.InternalError(c, "boom")
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, dto.ErrCodeInternal, resp.Error.Code)
	})
}

func TestHandleDomainError(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "NOT_FOUND error",
			err:          shared.ErrNotFound,
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
		{
			name:         "ALREADY_EXISTS error",
			err:          shared.ErrAlreadyExists,
			expectedCode: http.StatusConflict,
			expectedErr:  dto.ErrCodeAlreadyExists,
		},
		{
			name:         "INVALID_INPUT error",
			err:          shared.ErrInvalidInput,
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeInvalidInput,
		},
		{
			name:         "INVALID_STATE error",
			err:          shared.ErrInvalidState,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeInvalidState,
		},
		{
			name:         "ledger not found",
			err:          ledger.ErrLedgerNotFound,
			expectedCode: http.StatusNotFound,
			expectedErr:  dto.ErrCodeNotFound,
		},
		{
			name:         "ledger inconsistent",
			err:          ledger.ErrInconsistentLedger,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeLedgerInconsistent,
		},
		{
			name:         "missing customer name",
			err:          document.ErrMissingCustomerName,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeMissingCustomerName,
		},
		{
			name:         "already finalized",
			err:          document.ErrAlreadyFinalized,
			expectedCode: http.StatusUnprocessableEntity,
			expectedErr:  dto.ErrCodeAlreadyFinalized,
		},
		{
			name:         "negative amount",
			err:          document.ErrInvalidAmountPaid,
			expectedCode: http.StatusBadRequest,
			expectedErr:  dto.ErrCodeInvalidAmount,
		},
		{
			name:         "insufficient balance denial",
			err:          billing.NewBillingDeniedError(billing.DenialInsufficientBalance, 0, 30),
			expectedCode: http.StatusPaymentRequired,
			expectedErr:  dto.ErrCodeInsufficientBalance,
		},
		{
			name:         "offline limit denial",
			err:          billing.NewBillingDeniedError(billing.DenialOfflineLimit, 30, 30),
			expectedCode: http.StatusTooManyRequests,
			expectedErr:  dto.ErrCodeOfflineLimit,
		},
		{
			name:         "debt blocked denial",
			err:          fmt.Errorf("finalize: %w", billing.NewBillingDeniedError(billing.DenialDebtBlocked, 4, 30)),
			expectedCode: http.StatusLocked,
			expectedErr:  dto.ErrCodeDebtBlocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp, _ := runBase(t, nil, func(h *BaseHandler, c *gin.Context) {
				h.HandleDomainError(c, tt.err)
			})
			assert.Equal(t, tt.expectedCode, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedErr, resp.Error.Code)
		})
	}
}

func TestHandleError(t *testing.T) {
	t.Run("nil writes nothing", func(t *testing.T) {
		w, _, c := runBase(t, nil, func(h *BaseHandler, c *gin.Context) {
			h.HandleError(c, nil)
		})
		assert.Zero(t, w.Body.Len())
		assert.Empty(t, c.Errors)
	})

	t.Run("wrapped domain error keeps its code", func(t *testing.T) {
		w, resp, c := runBase(t, nil, func(h *BaseHandler, c *gin.Context) {
			h.HandleError(c, fmt.Errorf("cancel posting: %w", ledger.ErrPostingNotFound))
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)
		assert.Len(t, c.Errors, 1)
	})

	t.Run("unknown error is hidden", func(t *testing.T) {
		w, resp, _ := runBase(t, nil, func(h *BaseHandler, c *gin.Context) {
			h.HandleError(c, assert.AnError)
		})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Equal(t, "An unexpected error occurred", resp.Error.Message)
	})

	t.Run("billing denial carries remediation", func(t *testing.T) {
		_, resp, _ := runBase(t, nil, func(h *BaseHandler, c *gin.Context) {
			h.HandleError(c, billing.NewBillingDeniedError(billing.DenialOfflineLimit, 30, 30))
		})
		assert.Equal(t, billing.DenialOfflineLimit.Remediation(), resp.Error.Help)
	})
}

func TestBindError(t *testing.T) {
	type input struct {
		Name string `json:"name" binding:"required"`
	}
	bind := func(body string) (*httptest.ResponseRecorder, dto.Response) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w, resp, _ := runBase(t, req, func(h *BaseHandler, c *gin.Context) {
			var in input
			h.BindError(c, c.ShouldBindJSON(&in))
		})
		return w, resp
	}

	w, resp := bind(`{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
	require.Len(t, resp.Error.Details, 1)
	assert.Equal(t, "name", resp.Error.Details[0].Field)

	w, resp = bind(`{"name":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, dto.ErrCodeInvalidJSON, resp.Error.Code)
}

func TestParseIDParam(t *testing.T) {
	id := uuid.New()
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Params = gin.Params{{Key: "id", Value: id.String()}, {Key: "bad", Value: "nope"}}

	got, ok := parseIDParam(c, "id")
	assert.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = parseIDParam(c, "bad")
	assert.False(t, ok)
}
