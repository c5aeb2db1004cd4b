package handler

import (
	purchasingapp "github.com/erp/procurement/internal/application/purchasing"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DraftHandler exposes the order builder: drafts are edited line by line
// and submitted as purchase orders
type DraftHandler struct {
	BaseHandler
	builder *purchasingapp.OrderBuilderService
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(builder *purchasingapp.OrderBuilderService) *DraftHandler {
	return &DraftHandler{builder: builder}
}

// Create starts a new draft
// POST /drafts
func (h *DraftHandler) Create(c *gin.Context) {
	var req purchasingapp.CreateDraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindingError(c, err)
			return
		}
	}

	draft, err := h.builder.CreateDraft(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, draft)
}

// Get returns a draft with its computed totals
// GET /drafts/:id
func (h *DraftHandler) Get(c *gin.Context) {
	draftID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	draft, err := h.builder.GetDraft(c.Request.Context(), draftID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, draft)
}

// UpdateHeader replaces supplier, reference, dates, notes and tax rate
// PUT /drafts/:id
func (h *DraftHandler) UpdateHeader(c *gin.Context) {
	draftID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req purchasingapp.UpdateDraftHeaderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	draft, err := h.builder.UpdateDraftHeader(c.Request.Context(), draftID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, draft)
}

// AddLine adds a variant at its cost price, or bumps the quantity of an existing line
// POST /drafts/:id/lines
func (h *DraftHandler) AddLine(c *gin.Context) {
	draftID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req purchasingapp.AddLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	draft, err := h.builder.AddLine(c.Request.Context(), draftID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, draft)
}

// UpdateQuantity sets a line quantity
// PUT /drafts/:id/lines/:variant_id/quantity
func (h *DraftHandler) UpdateQuantity(c *gin.Context) {
	draftID, variantID, ok := h.lineParams(c)
	if !ok {
		return
	}
	var req purchasingapp.UpdateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	draft, err := h.builder.UpdateQuantity(c.Request.Context(), draftID, variantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, draft)
}

// UpdateDiscount sets a line discount
// PUT /drafts/:id/lines/:variant_id/discount
func (h *DraftHandler) UpdateDiscount(c *gin.Context) {
	draftID, variantID, ok := h.lineParams(c)
	if !ok {
		return
	}
	var req purchasingapp.UpdateDiscountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	draft, err := h.builder.UpdateDiscount(c.Request.Context(), draftID, variantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, draft)
}

// UpdateUnitPrice overrides a line unit price
// PUT /drafts/:id/lines/:variant_id/price
func (h *DraftHandler) UpdateUnitPrice(c *gin.Context) {
	draftID, variantID, ok := h.lineParams(c)
	if !ok {
		return
	}
	var req purchasingapp.UpdateUnitPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	draft, err := h.builder.UpdateUnitPrice(c.Request.Context(), draftID, variantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, draft)
}

// RemoveLine drops a variant from the draft
// DELETE /drafts/:id/lines/:variant_id
func (h *DraftHandler) RemoveLine(c *gin.Context) {
	draftID, variantID, ok := h.lineParams(c)
	if !ok {
		return
	}

	draft, err := h.builder.RemoveLine(c.Request.Context(), draftID, variantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, draft)
}

// Discard deletes a draft without submitting it
// DELETE /drafts/:id
func (h *DraftHandler) Discard(c *gin.Context) {
	draftID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	if err := h.builder.DiscardDraft(c.Request.Context(), draftID); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// Submit validates the draft, persists it as a PENDING purchase order and
// deletes the draft
// POST /drafts/:id/submit
func (h *DraftHandler) Submit(c *gin.Context) {
	draftID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req purchasingapp.SubmitDraftRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.BindingError(c, err)
			return
		}
	}

	order, err := h.builder.SubmitDraft(c.Request.Context(), draftID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

func (h *DraftHandler) lineParams(c *gin.Context) (draftID, variantID uuid.UUID, ok bool) {
	if draftID, ok = h.uuidParam(c, "id"); !ok {
		return
	}
	variantID, ok = h.uuidParam(c, "variant_id")
	return
}
