package handler

import (
	"io"
	"net/http"

	documentapp "github.com/amadolemli/factureman-sub000/internal/application/document"
	"github.com/amadolemli/factureman-sub000/internal/domain/document"
	"github.com/amadolemli/factureman-sub000/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MaxScanImageSize caps uploaded document photos
const MaxScanImageSize = 8 << 20

// DocumentHandler handles document API endpoints
type DocumentHandler struct {
	BaseHandler
	service *documentapp.FinalizationService
}

// NewDocumentHandler creates a new DocumentHandler
func NewDocumentHandler(service *documentapp.FinalizationService) *DocumentHandler {
	return &DocumentHandler{
		service: service,
	}
}

// DocumentListQuery holds the filters of GET /documents
type DocumentListQuery struct {
	dto.ListRequest
	Type           string `form:"type" binding:"omitempty,oneof=INVOICE RECEIPT DELIVERY_NOTE PURCHASE_ORDER QUOTE PROFORMA"`
	CustomerID     string `form:"customer_id" binding:"omitempty,uuid"`
	IncludeDeleted bool   `form:"include_deleted"`
}

// Create godoc
// @ID           createDocument
// @Summary      Create a draft document
// @Description  Create an editable draft; drafts touch neither stock nor ledgers
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        request body documentapp.CreateDraftRequest true "Draft"
// @Success      201 {object} dto.Response{data=documentapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents [post]
func (h *DocumentHandler) Create(c *gin.Context) {
	var req documentapp.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := h.service.CreateDraft(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, documentapp.ToDocumentResponse(doc))
}

// Scan godoc
// @ID           scanDocument
// @Summary      Create a draft from a photo
// @Description  Extract a draft document from an uploaded image
// @Tags         documents
// @Accept       multipart/form-data
// @Produce      json
// @Param        type formData string true "Document type"
// @Param        image formData file true "Document photo"
// @Success      201 {object} dto.Response{data=documentapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      413 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      429 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      503 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents/scan [post]
func (h *DocumentHandler) Scan(c *gin.Context) {
	docType := document.DocumentType(c.PostForm("type"))
	if !docType.IsValid() {
		h.BadRequest(c, "Form field 'type' must be a valid document type")
		return
	}

	header, err := c.FormFile("image")
	if err != nil {
		h.BadRequest(c, "Form field 'image' is required")
		return
	}
	if header.Size > MaxScanImageSize {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "Image is too large")
		return
	}
	f, err := header.Open()
	if err != nil {
		h.BadRequest(c, "Could not read uploaded image")
		return
	}
	defer f.Close()
	image, err := io.ReadAll(io.LimitReader(f, MaxScanImageSize))
	if err != nil {
		h.BadRequest(c, "Could not read uploaded image")
		return
	}

	doc, err := h.service.DraftFromImage(c.Request.Context(), docType, c.PostForm("customer_name"), image)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, documentapp.ToDocumentResponse(doc))
}

// Update godoc
// @ID           updateDocument
// @Summary      Update a draft
// @Description  Replace the content of a draft document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body documentapp.UpdateDraftRequest true "Draft content"
// @Success      200 {object} dto.Response{data=documentapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents/{id} [put]
func (h *DocumentHandler) Update(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID format")
		return
	}
	var req documentapp.UpdateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	doc, err := h.service.UpdateDraft(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, documentapp.ToDocumentResponse(doc))
}

// Get godoc
// @ID           getDocument
// @Summary      Get a document
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=documentapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	doc, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, documentapp.ToDocumentResponse(doc))
}

// List godoc
// @ID           listDocuments
// @Summary      List documents
// @Description  List documents newest first
// @Tags         documents
// @Produce      json
// @Param        page query int false "Page number"
// @Param        page_size query int false "Page size (max 100)"
// @Param        type query string false "Document type"
// @Param        customer_id query string false "Ledger ID" format(uuid)
// @Param        include_deleted query bool false "Include soft-deleted documents"
// @Success      200 {object} dto.Response{data=[]documentapp.DocumentResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents [get]
func (h *DocumentHandler) List(c *gin.Context) {
	var q DocumentListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		h.BindError(c, err)
		return
	}
	q.Normalize()

	filter := documentapp.ListFilter{
		Type:           document.DocumentType(q.Type),
		IncludeDeleted: q.IncludeDeleted,
	}
	if q.CustomerID != "" {
		id := uuid.MustParse(q.CustomerID)
		filter.CustomerID = &id
	}

	docs := h.service.List(c.Request.Context(), filter)
	start, end := q.Bounds(len(docs))
	h.SuccessWithMeta(c, documentapp.ToDocumentResponses(docs[start:end]), int64(len(docs)), q.Page, q.PageSize)
}

// Finalize godoc
// @ID           finalizeDocument
// @Summary      Finalize a draft
// @Description  Finalize a draft, applying stock and ledger effects and the offline billing gate
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Param        request body documentapp.FinalizeRequest false "Payment override"
// @Success      200 {object} dto.Response{data=documentapp.FinalizeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      402 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents/{id}/finalize [post]
func (h *DocumentHandler) Finalize(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID format")
		return
	}
	var req documentapp.FinalizeRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindError(c, err)
			return
		}
	}

	result, err := h.service.Finalize(c.Request.Context(), id, req.AmountPaid)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondFinalized(c, result, http.StatusOK)
}

// FinalizeNew godoc
// @ID           createAndFinalizeDocument
// @Summary      Create and finalize a document
// @Description  Create a document and finalize it in one step
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        request body documentapp.CreateDraftRequest true "Document"
// @Success      201 {object} dto.Response{data=documentapp.FinalizeResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      402 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents/finalize [post]
func (h *DocumentHandler) FinalizeNew(c *gin.Context) {
	var req documentapp.CreateDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	result, err := h.service.FinalizeNew(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.respondFinalized(c, result, http.StatusCreated)
}

// Delete godoc
// @ID           deleteDocument
// @Summary      Soft delete a document
// @Description  Move a document to the trash, reversing its ledger and stock effects
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=documentapp.DeletionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	result, err := h.service.SoftDelete(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, documentapp.ToDeletionResponse(result))
}

// Restore godoc
// @ID           restoreDocument
// @Summary      Restore a document
// @Description  Restore a soft-deleted document, reapplying its ledger and stock effects
// @Tags         documents
// @Produce      json
// @Param        id path string true "Document ID" format(uuid)
// @Success      200 {object} dto.Response{data=documentapp.DeletionResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      500 {object} dto.Response{error=dto.ErrorInfo}
// @Router       /documents/{id}/restore [post]
func (h *DocumentHandler) Restore(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		h.BadRequest(c, "Invalid document ID format")
		return
	}

	result, err := h.service.Restore(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, documentapp.ToDeletionResponse(result))
}

// respondFinalized writes a finalization result. Warnings from best-effort
// side effects are surfaced next to the data.
func (h *DocumentHandler) respondFinalized(c *gin.Context, result *documentapp.FinalizeResult, status int) {
	resp := dto.NewSuccessResponseWithWarnings(documentapp.ToFinalizeResponse(result), result.Warnings)
	c.JSON(status, resp)
}
