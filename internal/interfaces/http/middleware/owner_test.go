package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amadolemli/factureman-sub000/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

var testOwnerID = uuid.MustParse("7b0f3c1e-52a4-4d6e-9a8f-0c2d1e3f4a5b")

func TestOwner(t *testing.T) {
	gin.SetMode(gin.TestMode)

	var fromGin, fromCtx string
	router := gin.New()
	router.Use(Owner(testOwnerID))
	router.GET("/test", func(c *gin.Context) {
		fromGin = GetOwnerID(c)
		fromCtx = logger.GetOwnerID(c.Request.Context())
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, testOwnerID.String(), fromGin)
	assert.Equal(t, testOwnerID.String(), fromCtx)
}

func TestGetOwnerID_Unset(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Empty(t, GetOwnerID(c))
}
