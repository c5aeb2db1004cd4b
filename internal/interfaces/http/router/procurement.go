package router

import (
	"github.com/erp/procurement/internal/interfaces/http/handler"
)

// NewDraftRoutes maps the order builder endpoints under /drafts
func NewDraftRoutes(h *handler.DraftHandler) *DomainGroup {
	drafts := NewDomainGroup("drafts", "/drafts")
	drafts.POST("", h.Create)
	drafts.GET("/:id", h.Get)
	drafts.PUT("/:id", h.UpdateHeader)
	drafts.DELETE("/:id", h.Discard)
	drafts.POST("/:id/submit", h.Submit)

	lines := drafts.Group("draft-lines", "/:id/lines")
	lines.POST("", h.AddLine)
	lines.PUT("/:variant_id/quantity", h.UpdateQuantity)
	lines.PUT("/:variant_id/discount", h.UpdateDiscount)
	lines.PUT("/:variant_id/price", h.UpdateUnitPrice)
	lines.DELETE("/:variant_id", h.RemoveLine)
	return drafts
}

// NewPurchaseOrderRoutes maps the persisted order endpoints under /purchase-orders
func NewPurchaseOrderRoutes(h *handler.PurchaseOrderHandler) *DomainGroup {
	orders := NewDomainGroup("purchase-orders", "/purchase-orders")
	orders.POST("", h.Create)
	orders.GET("", h.List)
	orders.GET("/:id", h.GetByID)
	orders.POST("/:id/transitions", h.Transition)
	orders.GET("/:id/stock-movements", h.StockMovements)
	return orders
}
