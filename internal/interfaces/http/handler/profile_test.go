package handler

import (
	"net/http"
	"testing"

	profileapp "github.com/amadolemli/factureman-sub000/internal/application/profile"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/stretchr/testify/assert"
)

func setupProfileRoutes(env *testEnv) {
	h := NewProfileHandler(env.profile)
	env.engine.GET("/profile", h.Get)
	env.engine.PUT("/profile", h.Update)
}

func TestProfileHandler(t *testing.T) {
	env := newTestEnv(t)
	setupProfileRoutes(env)

	w := env.do(t, http.MethodGet, "/profile", nil)
	assertStatus(t, http.StatusNotFound, w)
	resp := decode(t, w, nil)
	assert.Equal(t, dto.ErrCodeNotFound, resp.Error.Code)

	w = env.do(t, http.MethodPut, "/profile", profileapp.UpdateProfileRequest{
		BusinessName: "Boutique Kadi",
		Phone:        "+22376000000",
		Currency:     "XOF",
	})
	assertStatus(t, http.StatusOK, w)

	w = env.do(t, http.MethodGet, "/profile", nil)
	assertStatus(t, http.StatusOK, w)
	var got profileapp.ProfileResponse
	decode(t, w, &got)
	assert.Equal(t, "Boutique Kadi", got.BusinessName)
	assert.Equal(t, testOwnerID, got.OwnerID)

	w = env.do(t, http.MethodPut, "/profile", profileapp.UpdateProfileRequest{BusinessName: "X", Currency: "FCFA"})
	assertStatus(t, http.StatusBadRequest, w)
}
