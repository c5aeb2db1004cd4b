package handler

import (
	"strings"

	purchasingapp "github.com/erp/procurement/internal/application/purchasing"
	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/gin-gonic/gin"
)

// IdempotencyKeyHeader carries the caller's replay key on transition requests
const IdempotencyKeyHeader = "Idempotency-Key"

// maxIdempotencyKeyLength bounds the header so keys stay cheap to store
const maxIdempotencyKeyLength = 128

// PurchaseOrderHandler handles purchase order endpoints
type PurchaseOrderHandler struct {
	BaseHandler
	builder     *purchasingapp.OrderBuilderService
	transitions *purchasingapp.TransitionService
	queries     *purchasingapp.OrderQueryService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(
	builder *purchasingapp.OrderBuilderService,
	transitions *purchasingapp.TransitionService,
	queries *purchasingapp.OrderQueryService,
) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{
		builder:     builder,
		transitions: transitions,
		queries:     queries,
	}
}

// Create submits a purchase order with inline lines in one call
// POST /purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req purchasingapp.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}

	order, err := h.builder.SubmitOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// List returns a page of orders
// GET /purchase-orders?supplier_id=&status=&date_from=&date_to=&search=&sort_order=&page=&page_size=
func (h *PurchaseOrderHandler) List(c *gin.Context) {
	var filter purchasingapp.ListOrdersFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindingError(c, err)
		return
	}

	page, err := h.queries.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetByID returns an order with its lines
// GET /purchase-orders/:id
func (h *PurchaseOrderHandler) GetByID(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	order, err := h.queries.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Transition requests a status change. Moving into RECEIVED applies the
// stock increments exactly once; the outcome field tells a fresh transition
// apart from a replayed, unchanged or already-received one.
// POST /purchase-orders/:id/transitions
func (h *PurchaseOrderHandler) Transition(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req purchasingapp.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindingError(c, err)
		return
	}
	target, err := purchasing.ParseStatus(req.TargetStatus)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > maxIdempotencyKeyLength {
		h.BadRequest(c, IdempotencyKeyHeader+" must be at most 128 characters")
		return
	}

	resp, err := h.transitions.RequestTransitionWithKey(c.Request.Context(), key, orderID, target)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// StockMovements lists the ledger rows written when the order was received
// GET /purchase-orders/:id/stock-movements
func (h *PurchaseOrderHandler) StockMovements(c *gin.Context) {
	orderID, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}

	movements, err := h.queries.ListStockMovements(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, movements)
}
