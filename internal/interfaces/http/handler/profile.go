package handler

import (
	profileapp "github.com/amadolemli/factureman-sub000/internal/application/profile"
	"github.com/gin-gonic/gin"
)

// ProfileHandler handles the business profile endpoints
type ProfileHandler struct {
	BaseHandler
	service *profileapp.Service
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(service *profileapp.Service) *ProfileHandler {
	return &ProfileHandler{
		service: service,
	}
}

// Get handles GET /profile
func (h *ProfileHandler) Get(c *gin.Context) {
	p, err := h.service.Get(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profileapp.ToProfileResponse(p))
}

// Update handles PUT /profile
func (h *ProfileHandler) Update(c *gin.Context) {
	var req profileapp.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	p, err := h.service.Update(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, profileapp.ToProfileResponse(p))
}
