package handler

import (
	"strings"

	catalogapp "github.com/amadolemli/factureman-sub000/internal/application/catalog"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ProductHandler handles product and stock API endpoints
type ProductHandler struct {
	BaseHandler
	stock *catalogapp.StockService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(stock *catalogapp.StockService) *ProductHandler {
	return &ProductHandler{
		stock: stock,
	}
}

// Create handles POST /products
func (h *ProductHandler) Create(c *gin.Context) {
	var req catalogapp.CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	product, err := h.stock.CreateProduct(c.Request.Context(), req.Name, req.UnitPrice, req.Stock)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, catalogapp.ToProductResponse(product))
}

// Get handles GET /products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid product ID format")
		return
	}

	product, err := h.stock.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, catalogapp.ToProductResponse(product))
}

// List handles GET /products
func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BindError(c, err)
		return
	}
	req.Normalize()

	products := h.stock.List(c.Request.Context())
	if q := strings.ToLower(strings.TrimSpace(c.Query("search"))); q != "" {
		filtered := products[:0]
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), q) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}

	start, end := req.Bounds(len(products))
	out := make([]catalogapp.ProductResponse, 0, end-start)
	for _, p := range products[start:end] {
		out = append(out, catalogapp.ToProductResponse(p))
	}
	h.SuccessWithMeta(c, out, int64(len(products)), req.Page, req.PageSize)
}

// SetStock handles PUT /products/:id/stock
func (h *ProductHandler) SetStock(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid product ID format")
		return
	}
	var req catalogapp.SetStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	product, err := h.stock.SetStock(c.Request.Context(), id, req.Stock)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, catalogapp.ToProductResponse(product))
}
