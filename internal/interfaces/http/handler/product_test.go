package handler

import (
	"net/http"
	"testing"

	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProductRoutes(env *testEnv) {
	h := NewProductHandler(env.stock)
	g := env.engine.Group("/products")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id/stock", h.SetStock)
}

func TestProductHandler_CreateGetAndSetStock(t *testing.T) {
	env := newTestEnv(t)
	setupProductRoutes(env)

	w := env.do(t, http.MethodPost, "/products", catalogapp.CreateProductRequest{
		Name: "Savon", UnitPrice: amount(250), Stock: 40,
	})
	assertStatus(t, http.StatusCreated, w)
	var created catalogapp.ProductResponse
	decode(t, w, &created)
	assert.Equal(t, 40, created.Stock)

	w = env.do(t, http.MethodPut, "/products/"+created.ID.String()+"/stock", catalogapp.SetStockRequest{Stock: 12})
	assertStatus(t, http.StatusOK, w)
	var updated catalogapp.ProductResponse
	decode(t, w, &updated)
	assert.Equal(t, 12, updated.Stock)

	w = env.do(t, http.MethodGet, "/products/"+created.ID.String(), nil)
	assertStatus(t, http.StatusOK, w)

	w = env.do(t, http.MethodGet, "/products/"+uuid.NewString(), nil)
	assertStatus(t, http.StatusNotFound, w)
}

func TestProductHandler_Validation(t *testing.T) {
	env := newTestEnv(t)
	setupProductRoutes(env)

	w := env.do(t, http.MethodPost, "/products", catalogapp.CreateProductRequest{Name: "", Stock: 1})
	assertStatus(t, http.StatusBadRequest, w)

	w = env.do(t, http.MethodPost, "/products", catalogapp.CreateProductRequest{Name: "Savon", Stock: -1})
	assertStatus(t, http.StatusBadRequest, w)

	w = env.do(t, http.MethodPut, "/products/bad/stock", catalogapp.SetStockRequest{Stock: 1})
	assertStatus(t, http.StatusBadRequest, w)
}

func TestProductHandler_ListSearch(t *testing.T) {
	env := newTestEnv(t)
	setupProductRoutes(env)
	for _, name := range []string{"Savon", "Sucre", "Riz"} {
		w := env.do(t, http.MethodPost, "/products", catalogapp.CreateProductRequest{Name: name, UnitPrice: amount(100)})
		assertStatus(t, http.StatusCreated, w)
	}

	w := env.do(t, http.MethodGet, "/products", nil)
	var all []catalogapp.ProductResponse
	resp := decode(t, w, &all)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(3), resp.Meta.Total)

	w = env.do(t, http.MethodGet, "/products?search=su", nil)
	var found []catalogapp.ProductResponse
	decode(t, w, &found)
	require.Len(t, found, 1)
	assert.Equal(t, "Sucre", found[0].Name)
}
