package procurement

import (
	"github.com/erp/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypePurchaseOrder = "PurchaseOrder"

// Event type constants
const (
	EventTypePOProcessingStarted = "POProcessingStarted"
	EventTypePOApprovalRequired  = "POApprovalRequired"
	EventTypePOApproved          = "POApproved"
	EventTypePORejected          = "PORejected"
	EventTypePOCompleted         = "POCompleted"
	EventTypePOProcessingFailed  = "POProcessingFailed"
)

// POProcessingStartedEvent is raised when a processing run claims an order
type POProcessingStartedEvent struct {
	shared.BaseDomainEvent
	PONumber string `json:"po_number"`
	Actor    string `json:"actor"`
}

// NewPOProcessingStartedEvent creates a new POProcessingStartedEvent
func NewPOProcessingStartedEvent(po *PurchaseOrder, actor string) *POProcessingStartedEvent {
	return &POProcessingStartedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePOProcessingStarted, AggregateTypePurchaseOrder, po.ID),
		PONumber:        po.PONumber,
		Actor:           actor,
	}
}

// POApprovalRequiredEvent is raised when an order is parked for manual review
type POApprovalRequiredEvent struct {
	shared.BaseDomainEvent
	PONumber    string          `json:"po_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Reason      string          `json:"reason"`
}

// NewPOApprovalRequiredEvent creates a new POApprovalRequiredEvent
func NewPOApprovalRequiredEvent(po *PurchaseOrder, reason string) *POApprovalRequiredEvent {
	return &POApprovalRequiredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePOApprovalRequired, AggregateTypePurchaseOrder, po.ID),
		PONumber:        po.PONumber,
		TotalAmount:     po.TotalAmount,
		Reason:          reason,
	}
}

// POApprovedEvent is raised when an order is approved
type POApprovedEvent struct {
	shared.BaseDomainEvent
	PONumber   string `json:"po_number"`
	ApprovedBy string `json:"approved_by"`
}

// NewPOApprovedEvent creates a new POApprovedEvent
func NewPOApprovedEvent(po *PurchaseOrder, approvedBy string) *POApprovedEvent {
	return &POApprovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePOApproved, AggregateTypePurchaseOrder, po.ID),
		PONumber:        po.PONumber,
		ApprovedBy:      approvedBy,
	}
}

// PORejectedEvent is raised when an order is rejected
type PORejectedEvent struct {
	shared.BaseDomainEvent
	PONumber   string `json:"po_number"`
	RejectedBy string `json:"rejected_by"`
	Reason     string `json:"reason"`
}

// NewPORejectedEvent creates a new PORejectedEvent
func NewPORejectedEvent(po *PurchaseOrder, rejectedBy, reason string) *PORejectedEvent {
	return &PORejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePORejected, AggregateTypePurchaseOrder, po.ID),
		PONumber:        po.PONumber,
		RejectedBy:      rejectedBy,
		Reason:          reason,
	}
}

// POCompletedEvent is raised when an order reaches completed
type POCompletedEvent struct {
	shared.BaseDomainEvent
	PONumber    string          `json:"po_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewPOCompletedEvent creates a new POCompletedEvent
func NewPOCompletedEvent(po *PurchaseOrder) *POCompletedEvent {
	return &POCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePOCompleted, AggregateTypePurchaseOrder, po.ID),
		PONumber:        po.PONumber,
		TotalAmount:     po.TotalAmount,
	}
}

// POProcessingFailedEvent is raised when an order fails into the error status
type POProcessingFailedEvent struct {
	shared.BaseDomainEvent
	PONumber string `json:"po_number"`
	Reason   string `json:"reason"`
}

// NewPOProcessingFailedEvent creates a new POProcessingFailedEvent
func NewPOProcessingFailedEvent(po *PurchaseOrder, reason string) *POProcessingFailedEvent {
	return &POProcessingFailedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePOProcessingFailed, AggregateTypePurchaseOrder, po.ID),
		PONumber:        po.PONumber,
		Reason:          reason,
	}
}
