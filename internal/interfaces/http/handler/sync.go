package handler

import (
	"context"
	"net/http"

	"github.com/amadolemli/factureman-sub000/internal/application/reconciliation"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SyncStatusProvider reports the reconciliation state
type SyncStatusProvider interface {
	Status() reconciliation.SyncStatus
}

// CycleTrigger requests a reconciliation cycle outside the schedule
type CycleTrigger interface {
	TriggerImmediate() error
}

// ConnectivityController reads and overrides the connectivity state
type ConnectivityController interface {
	IsOnline() bool
	SetOnline(ctx context.Context, online bool) bool
}

// SyncHandler handles synchronization and connectivity endpoints
type SyncHandler struct {
	BaseHandler
	status       SyncStatusProvider
	trigger      CycleTrigger
	connectivity ConnectivityController
}

// NewSyncHandler creates a new SyncHandler. status and trigger are nil when
// no remote store is configured.
func NewSyncHandler(status SyncStatusProvider, trigger CycleTrigger, connectivity ConnectivityController) *SyncHandler {
	return &SyncHandler{
		status:       status,
		trigger:      trigger,
		connectivity: connectivity,
	}
}

// SyncStatusResponse is the sync state with the current connectivity
type SyncStatusResponse struct {
	reconciliation.SyncStatus
	Enabled bool `json:"enabled"`
	Online  bool `json:"online"`
}

// ConnectivityRequest overrides the connectivity state
type ConnectivityRequest struct {
	Online *bool `json:"online" binding:"required"`
}

// ConnectivityResponse is the connectivity state
type ConnectivityResponse struct {
	Online  bool `json:"online"`
	Changed bool `json:"changed"`
}

// Status godoc
// @ID           getSyncStatus
// @Summary      Get the synchronization status
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response{data=SyncStatusResponse}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/status [get]
func (h *SyncHandler) Status(c *gin.Context) {
	resp := SyncStatusResponse{Online: h.isOnline()}
	if h.status != nil {
		resp.SyncStatus = h.status.Status()
		resp.Enabled = true
	}
	h.Success(c, resp)
}

// Trigger godoc
// @ID           triggerSync
// @Summary      Trigger a reconciliation cycle
// @Description  Request a push and pull cycle outside the schedule
// @Tags         sync
// @Produce      json
// @Success      202 {object} dto.Response
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /sync/trigger [post]
func (h *SyncHandler) Trigger(c *gin.Context) {
	if h.trigger == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Synchronization is not configured")
		return
	}
	if err := h.trigger.TriggerImmediate(); err != nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, dto.NewSuccessResponse(gin.H{"triggered": true}))
}

// GetConnectivity godoc
// @ID           getConnectivity
// @Summary      Get the connectivity state
// @Tags         sync
// @Produce      json
// @Success      200 {object} dto.Response{data=ConnectivityResponse}
// @Router       /connectivity [get]
func (h *SyncHandler) GetConnectivity(c *gin.Context) {
	h.Success(c, ConnectivityResponse{Online: h.isOnline()})
}

// SetConnectivity godoc
// @ID           setConnectivity
// @Summary      Override the connectivity state
// @Tags         sync
// @Accept       json
// @Produce      json
// @Param        request body ConnectivityRequest true "Connectivity"
// @Success      200 {object} dto.Response{data=ConnectivityResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /connectivity [put]
func (h *SyncHandler) SetConnectivity(c *gin.Context) {
	if h.connectivity == nil {
		h.Error(c, http.StatusServiceUnavailable, dto.ErrCodeUnavailable, "Connectivity monitor is not configured")
		return
	}
	var req ConnectivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	changed := h.connectivity.SetOnline(c.Request.Context(), *req.Online)
	h.Success(c, ConnectivityResponse{Online: h.connectivity.IsOnline(), Changed: changed})
}

func (h *SyncHandler) isOnline() bool {
	return h.connectivity != nil && h.connectivity.IsOnline()
}
