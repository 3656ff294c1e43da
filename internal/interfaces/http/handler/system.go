package handler

import (
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SystemHandler serves build and uptime information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	ownerID   uuid.UUID
	startTime time.Time
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version string, ownerID uuid.UUID) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		ownerID:   ownerID,
		startTime: time.Now(),
	}
}

// SystemInfoResponse represents the system information response
type SystemInfoResponse struct {
	Name      string    `json:"name"`
	Version   string    `json:"version"`
	OwnerID   uuid.UUID `json:"owner_id"`
	GoVersion string    `json:"go_version"`
	Uptime    string    `json:"uptime"`
}

// GetSystemInfo handles GET /system/info
func (h *SystemHandler) GetSystemInfo(c *gin.Context) {
	h.Success(c, SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		OwnerID:   h.ownerID,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// PingResponse represents the ping response
type PingResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// Ping handles GET /system/ping
func (h *SystemHandler) Ping(c *gin.Context) {
	h.Success(c, PingResponse{
		Message:   "pong",
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
