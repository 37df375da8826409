package models

import (
	"time"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared"
	"github.com/erp/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PurchaseOrderModel is the persistence model for the PurchaseOrder aggregate root.
type PurchaseOrderModel struct {
	AggregateModel
	PONumber        string                   `gorm:"type:varchar(50);not null;uniqueIndex"`
	VendorCode      string                   `gorm:"type:varchar(50);not null;index"`
	VendorName      string                   `gorm:"type:varchar(200);not null"`
	TotalAmount     decimal.Decimal          `gorm:"type:decimal(18,4);not null;default:0"`
	Currency        string                   `gorm:"type:varchar(3);not null;default:'BRL'"`
	Items           []PurchaseOrderItemModel `gorm:"foreignKey:OrderID;references:ID"`
	Status          procurement.POStatus     `gorm:"type:varchar(20);not null;default:'pending';index"`
	LockedBy        string                   `gorm:"type:varchar(100);not null;default:''"`
	LockedAt        *time.Time
	LedgerDocNumber string `gorm:"type:varchar(50)"`
	CreatedBy       string `gorm:"type:varchar(100)"`
	ApprovedBy      string `gorm:"type:varchar(100)"`
	ApprovedAt      *time.Time
	RejectionReason string `gorm:"type:varchar(500)"`
	FailureReason   string `gorm:"type:varchar(500)"`
	CompletedAt     *time.Time
}

// TableName returns the table name for GORM
func (PurchaseOrderModel) TableName() string {
	return "purchase_orders"
}

// PurchaseOrderItemModel is the persistence model for purchase order lines.
type PurchaseOrderItemModel struct {
	ID          uuid.UUID       `gorm:"type:uuid;primary_key"`
	OrderID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	ItemNumber  string          `gorm:"type:varchar(20);not null"`
	Description string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// TableName returns the table name for GORM
func (PurchaseOrderItemModel) TableName() string {
	return "purchase_order_items"
}

// ToDomain converts the persistence model to a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) ToDomain() *procurement.PurchaseOrder {
	po := &procurement.PurchaseOrder{
		BaseAggregateRoot: shared.BaseAggregateRoot{
			BaseEntity: shared.BaseEntity{
				ID:        m.ID,
				CreatedAt: m.CreatedAt,
				UpdatedAt: m.UpdatedAt,
			},
			Version: m.Version,
		},
		PONumber:        m.PONumber,
		VendorCode:      m.VendorCode,
		VendorName:      m.VendorName,
		TotalAmount:     m.TotalAmount,
		Currency:        valueobject.Currency(m.Currency),
		Status:          m.Status,
		LockedBy:        m.LockedBy,
		LockedAt:        m.LockedAt,
		LedgerDocNumber: m.LedgerDocNumber,
		CreatedBy:       m.CreatedBy,
		ApprovedBy:      m.ApprovedBy,
		ApprovedAt:      m.ApprovedAt,
		RejectionReason: m.RejectionReason,
		FailureReason:   m.FailureReason,
		CompletedAt:     m.CompletedAt,
		Items:           make([]procurement.POItem, len(m.Items)),
	}
	for i, item := range m.Items {
		po.Items[i] = procurement.POItem{
			ItemNumber:  item.ItemNumber,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		}
	}
	return po
}

// FromDomain populates the persistence model from a domain PurchaseOrder entity.
func (m *PurchaseOrderModel) FromDomain(po *procurement.PurchaseOrder) {
	m.AggregateModel = newAggregateModel(po.BaseAggregateRoot)
	m.PONumber = po.PONumber
	m.VendorCode = po.VendorCode
	m.VendorName = po.VendorName
	m.TotalAmount = po.TotalAmount
	m.Currency = string(po.Currency)
	m.Status = po.Status
	m.LockedBy = po.LockedBy
	m.LockedAt = po.LockedAt
	m.LedgerDocNumber = po.LedgerDocNumber
	m.CreatedBy = po.CreatedBy
	m.ApprovedBy = po.ApprovedBy
	m.ApprovedAt = po.ApprovedAt
	m.RejectionReason = po.RejectionReason
	m.FailureReason = po.FailureReason
	m.CompletedAt = po.CompletedAt

	m.Items = make([]PurchaseOrderItemModel, len(po.Items))
	for i, item := range po.Items {
		m.Items[i] = PurchaseOrderItemModel{
			ID:          uuid.New(),
			OrderID:     po.ID,
			ItemNumber:  item.ItemNumber,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		}
	}
}

// PurchaseOrderModelFromDomain creates a new persistence model from a domain entity.
func PurchaseOrderModelFromDomain(po *procurement.PurchaseOrder) *PurchaseOrderModel {
	m := &PurchaseOrderModel{}
	m.FromDomain(po)
	return m
}
