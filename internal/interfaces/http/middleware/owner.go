package middleware

import (
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OwnerIDContextKey is the gin context key holding the workspace owner ID
const OwnerIDContextKey = "owner_id"

// Owner binds every request to the device's workspace owner. The owner
// is fixed by configuration; the request logger gains an owner_id field.
func Owner(ownerID uuid.UUID) gin.HandlerFunc {
	id := ownerID.String()
	return func(c *gin.Context) {
		c.Set(OwnerIDContextKey, id)

		ctx := c.Request.Context()
		ctx, _ = logger.WithOwnerID(ctx, logger.FromContext(ctx), id)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// GetOwnerID returns the owner ID bound by Owner, or "" outside it
func GetOwnerID(c *gin.Context) string {
	return c.GetString(OwnerIDContextKey)
}
