package middleware

import (
	"net/http"
	"time"

	"github.com/amadolemli/factureman-sub000/internal/domain/shared"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/logger"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IdempotencyKeyHeader carries a client generated key for a mutating command
const IdempotencyKeyHeader = "Idempotency-Key"

const maxIdempotencyKeyLength = 128

// Idempotency rejects a replayed mutating command. Requests without the
// header pass through. A key is claimed before the handler runs and
// released again when the handler answers with an error status, so a
// rejected command can be retried with the same key.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" || !isMutating(c.Request.Method) {
			c.Next()
			return
		}
		if len(key) > maxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest,
				"Idempotency-Key must be at most 128 characters",
				getRequestIDFromContext(c),
			))
			return
		}

		ctx := c.Request.Context()
		scoped := idempotencyScope(c, key)
		fresh, err := store.MarkProcessed(ctx, scoped, ttl)
		if err != nil {
			// Fail open
			logger.L(ctx).Warn("Idempotency store unavailable", zap.Error(err))
			c.Next()
			return
		}
		if !fresh {
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicateRequest,
				"This request was already processed",
				getRequestIDFromContext(c),
			))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			if err := store.Forget(ctx, scoped); err != nil {
				logger.L(ctx).Warn("Failed to release idempotency key", zap.Error(err))
			}
		}
	}
}

func idempotencyScope(c *gin.Context, key string) string {
	scope := c.Request.Method + " " + c.FullPath() + ":" + key
	if ownerID := GetOwnerID(c); ownerID != "" {
		scope = ownerID + ":" + scope
	}
	return scope
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
