package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemEngine(h *SystemHandler) *gin.Engine {
	r := gin.New()
	r.GET("/system/info", h.GetSystemInfo)
	r.GET("/system/ping", h.Ping)
	return r
}

func TestSystemHandler(t *testing.T) {
	h := NewSystemHandler("factureman", "2.3.1", testOwnerID)
	h.startTime = time.Now().Add(-90 * time.Second)
	r := systemEngine(h)

	t.Run("info reports the device workspace", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/info", nil))
		assertStatus(t, http.StatusOK, w)

		var info SystemInfoResponse
		resp := decode(t, w, &info)
		assert.True(t, resp.Success)
		assert.Equal(t, "factureman", info.Name)
		assert.Equal(t, "2.3.1", info.Version)
		assert.Equal(t, testOwnerID, info.OwnerID)
		assert.NotEmpty(t, info.GoVersion)

		uptime, err := time.ParseDuration(info.Uptime)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, uptime, 90*time.Second)
	})

	t.Run("ping", func(t *testing.T) {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/system/ping", nil))
		assertStatus(t, http.StatusOK, w)

		var pong PingResponse
		decode(t, w, &pong)
		assert.Equal(t, "pong", pong.Message)
		_, err := time.Parse(time.RFC3339, pong.Timestamp)
		assert.NoError(t, err)
	})
}
