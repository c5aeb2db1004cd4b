package models

import (
	"time"

	"github.com/erp/procurement/internal/domain/purchasing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SupplierModel maps the suppliers table, owned by the partner subsystem
type SupplierModel struct {
	BaseModel
	LegalName    string `gorm:"type:varchar(200);not null"`
	TaxID        string `gorm:"type:varchar(50)"`
	ContactName  string `gorm:"type:varchar(100)"`
	ContactEmail string `gorm:"type:varchar(200)"`
	ContactPhone string `gorm:"type:varchar(50)"`
	Status       string `gorm:"type:varchar(20);not null;default:'ACTIVE'"`
}

func (SupplierModel) TableName() string {
	return "suppliers"
}

// ToDomain converts the model to a domain Supplier
func (m *SupplierModel) ToDomain() *purchasing.Supplier {
	return &purchasing.Supplier{
		ID:           m.ID,
		LegalName:    m.LegalName,
		TaxID:        m.TaxID,
		ContactName:  m.ContactName,
		ContactEmail: m.ContactEmail,
		ContactPhone: m.ContactPhone,
		Status:       purchasing.SupplierStatus(m.Status),
	}
}

// FromDomain populates the model from a domain Supplier
func (m *SupplierModel) FromDomain(s *purchasing.Supplier) {
	m.ID = s.ID
	m.LegalName = s.LegalName
	m.TaxID = s.TaxID
	m.ContactName = s.ContactName
	m.ContactEmail = s.ContactEmail
	m.ContactPhone = s.ContactPhone
	m.Status = string(s.Status)
}

// ProductVariantModel maps the product_variants table, owned by the catalog
type ProductVariantModel struct {
	BaseModel
	ProductID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	SKU           string          `gorm:"column:sku;type:varchar(100);not null;uniqueIndex"`
	Color         string          `gorm:"type:varchar(50)"`
	Size          string          `gorm:"type:varchar(50)"`
	StockQuantity int             `gorm:"not null;default:0"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	SalePrice     decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
}

func (ProductVariantModel) TableName() string {
	return "product_variants"
}

// ToDomain converts the model to a domain ProductVariant
func (m *ProductVariantModel) ToDomain() *purchasing.ProductVariant {
	return &purchasing.ProductVariant{
		ID:            m.ID,
		ProductID:     m.ProductID,
		SKU:           m.SKU,
		Color:         m.Color,
		Size:          m.Size,
		StockQuantity: m.StockQuantity,
		CostPrice:     m.CostPrice,
		SalePrice:     m.SalePrice,
	}
}

// FromDomain populates the model from a domain ProductVariant
func (m *ProductVariantModel) FromDomain(v *purchasing.ProductVariant) {
	m.ID = v.ID
	m.ProductID = v.ProductID
	m.SKU = v.SKU
	m.Color = v.Color
	m.Size = v.Size
	m.StockQuantity = v.StockQuantity
	m.CostPrice = v.CostPrice
	m.SalePrice = v.SalePrice
}

// PurchaseOrderModel maps the purchase_orders table
type PurchaseOrderModel struct {
	AggregateModel
	OrderNumber          string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	SupplierID           uuid.UUID                `gorm:"type:uuid;not null;index"`
	ExternalReference    string                   `gorm:"type:varchar(100)"`
	OrderDate            time.Time                `gorm:"not null;index"`
	ExpectedDeliveryDate *time.Time               `gorm:"default:null"`
	Notes                string                   `gorm:"type:text"`
	TaxRate              decimal.Decimal          `gorm:"type:decimal(5,2);not null;default:0"`
	Status               string                   `gorm:"type:varchar(30);not null;default:'PENDING';index"`
	ReceivedAt           *time.Time               `gorm:"default:null"`
	Subtotal             decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountTotal        decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	TaxAmount            decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	GrandTotal           decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	Lines                []PurchaseOrderLineModel `gorm:"foreignKey:OrderID;references:ID"`
}

func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// ToDomain converts the model and its loaded lines to a domain PurchaseOrder
func (m *PurchaseOrderModel) ToDomain() *purchasing.PurchaseOrder {
	order := &purchasing.PurchaseOrder{
		BaseAggregateRoot:    m.ToDomainAggregateRoot(),
		OrderNumber:          m.OrderNumber,
		SupplierID:           m.SupplierID,
		ExternalReference:    m.ExternalReference,
		OrderDate:            m.OrderDate,
		ExpectedDeliveryDate: m.ExpectedDeliveryDate,
		Notes:                m.Notes,
		TaxRate:              m.TaxRate,
		Status:               purchasing.Status(m.Status),
		ReceivedAt:           m.ReceivedAt,
		Subtotal:             m.Subtotal,
		DiscountTotal:        m.DiscountTotal,
		TaxAmount:            m.TaxAmount,
		GrandTotal:           m.GrandTotal,
		Lines:                make([]purchasing.LineItem, len(m.Lines)),
	}
	for i := range m.Lines {
		order.Lines[i] = m.Lines[i].ToDomain()
	}
	return order
}

// FromDomain populates the model, lines included, from a domain PurchaseOrder
func (m *PurchaseOrderModel) FromDomain(o *purchasing.PurchaseOrder) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.SupplierID = o.SupplierID
	m.ExternalReference = o.ExternalReference
	m.OrderDate = o.OrderDate
	m.ExpectedDeliveryDate = o.ExpectedDeliveryDate
	m.Notes = o.Notes
	m.TaxRate = o.TaxRate
	m.Status = string(o.Status)
	m.ReceivedAt = o.ReceivedAt
	m.Subtotal = o.Subtotal
	m.DiscountTotal = o.DiscountTotal
	m.TaxAmount = o.TaxAmount
	m.GrandTotal = o.GrandTotal

	m.Lines = make([]PurchaseOrderLineModel, len(o.Lines))
	for i := range o.Lines {
		m.Lines[i].FromDomain(&o.Lines[i], o.CreatedAt)
	}
}

// PurchaseOrderLineModel maps the purchase_order_lines table
type PurchaseOrderLineModel struct {
	BaseModel
	OrderID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_po_lines_order_variant,priority:1"`
	VariantID      uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_po_lines_order_variant,priority:2"`
	SKU            string          `gorm:"column:sku;type:varchar(100)"`
	Position       int             `gorm:"not null"`
	Quantity       int             `gorm:"not null"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	DiscountKind   string          `gorm:"type:varchar(20);not null;default:'none'"`
	DiscountValue  decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(18,4);not null;default:0"`
	LineTotal      decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

func (PurchaseOrderLineModel) TableName() string {
	return "purchase_order_lines"
}

// ToDomain converts the model to a domain LineItem
func (m *PurchaseOrderLineModel) ToDomain() purchasing.LineItem {
	return purchasing.LineItem{
		ID:        m.ID,
		OrderID:   m.OrderID,
		VariantID: m.VariantID,
		SKU:       m.SKU,
		Position:  m.Position,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		Discount: purchasing.Discount{
			Kind:  purchasing.DiscountKind(m.DiscountKind),
			Value: m.DiscountValue,
		},
		DiscountAmount: m.DiscountAmount,
		LineTotal:      m.LineTotal,
	}
}

// FromDomain populates the model from a domain LineItem. Lines are written
// once with their order, so both timestamps take the order's creation time.
func (m *PurchaseOrderLineModel) FromDomain(l *purchasing.LineItem, createdAt time.Time) {
	m.BaseModel = BaseModel{ID: l.ID, CreatedAt: createdAt, UpdatedAt: createdAt}
	m.OrderID = l.OrderID
	m.VariantID = l.VariantID
	m.SKU = l.SKU
	m.Position = l.Position
	m.Quantity = l.Quantity
	m.UnitPrice = l.UnitPrice
	m.DiscountKind = string(l.Discount.Kind)
	if m.DiscountKind == "" {
		m.DiscountKind = string(purchasing.DiscountNone)
	}
	m.DiscountValue = l.Discount.Value
	m.DiscountAmount = l.DiscountAmount
	m.LineTotal = l.LineTotal
}

// StockMovementModel maps the stock_movements ledger table
type StockMovementModel struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	VariantID     uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_stock_movements_source,priority:3"`
	SourceType    string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_stock_movements_source,priority:1"`
	SourceID      uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_stock_movements_source,priority:2"`
	Quantity      int       `gorm:"not null"`
	BalanceBefore int       `gorm:"not null"`
	BalanceAfter  int       `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
}

func (StockMovementModel) TableName() string {
	return "stock_movements"
}

// ToDomain converts the model to a domain StockMovement
func (m *StockMovementModel) ToDomain() purchasing.StockMovement {
	return purchasing.StockMovement{
		ID:            m.ID,
		VariantID:     m.VariantID,
		SourceType:    m.SourceType,
		SourceID:      m.SourceID,
		Quantity:      m.Quantity,
		BalanceBefore: m.BalanceBefore,
		BalanceAfter:  m.BalanceAfter,
		CreatedAt:     m.CreatedAt,
	}
}

// FromDomain populates the model from a domain StockMovement
func (m *StockMovementModel) FromDomain(s *purchasing.StockMovement) {
	m.ID = s.ID
	m.VariantID = s.VariantID
	m.SourceType = s.SourceType
	m.SourceID = s.SourceID
	m.Quantity = s.Quantity
	m.BalanceBefore = s.BalanceBefore
	m.BalanceAfter = s.BalanceAfter
	m.CreatedAt = s.CreatedAt
}

// ProcurementModels lists every model in dependency order, for AutoMigrate
// in tests and the sqlite development mode.
func ProcurementModels() []any {
	return []any{
		&SupplierModel{},
		&ProductVariantModel{},
		&PurchaseOrderModel{},
		&PurchaseOrderLineModel{},
		&StockMovementModel{},
	}
}
