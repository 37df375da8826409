package procurement

import (
	"time"

	"github.com/erp/backend/internal/domain/procurement"
)

// PurchaseOrderResponse is the outward representation of a purchase order
type PurchaseOrderResponse struct {
	ID              string           `json:"id"`
	PONumber        string           `json:"po_number"`
	VendorCode      string           `json:"vendor_code"`
	VendorName      string           `json:"vendor_name"`
	TotalAmount     string           `json:"total_amount"`
	Currency        string           `json:"currency"`
	Status          string           `json:"status"`
	Items           []POItemResponse `json:"items"`
	LockedBy        string           `json:"locked_by,omitempty"`
	LockedAt        *time.Time       `json:"locked_at,omitempty"`
	LedgerDocNumber string           `json:"ledger_doc_number,omitempty"`
	CreatedBy       string           `json:"created_by,omitempty"`
	ApprovedBy      string           `json:"approved_by,omitempty"`
	ApprovedAt      *time.Time       `json:"approved_at,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	FailureReason   string           `json:"failure_reason,omitempty"`
	CompletedAt     *time.Time       `json:"completed_at,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// POItemResponse is one order line in a response
type POItemResponse struct {
	ItemNumber  string `json:"item_number"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	TotalPrice  string `json:"total_price"`
}

// MismatchResponse is one reconciliation finding
type MismatchResponse struct {
	ItemNumber string `json:"item_number,omitempty"`
	Field      string `json:"field"`
	Local      string `json:"local"`
	Remote     string `json:"remote"`
	Severity   string `json:"severity"`
}

// ReconciliationResponse summarizes a reconciliation run
type ReconciliationResponse struct {
	PONumber    string             `json:"po_number"`
	Clean       bool               `json:"clean"`
	HasBlocking bool               `json:"has_blocking"`
	Mismatches  []MismatchResponse `json:"mismatches"`
}

// ProcessOutcome labels how a processing run ended
type ProcessOutcome string

const (
	OutcomeCompleted       ProcessOutcome = "completed"
	OutcomePendingApproval ProcessOutcome = "pending_approval"
	OutcomeApproved        ProcessOutcome = "approved"
	OutcomeRejected        ProcessOutcome = "rejected"
)

// ProcessResult is returned by the processing and approval workflows
type ProcessResult struct {
	PONumber       string                  `json:"po_number"`
	Outcome        ProcessOutcome          `json:"outcome"`
	Status         string                  `json:"status"`
	Message        string                  `json:"message"`
	InvoiceNumber  string                  `json:"invoice_number,omitempty"`
	Reconciliation *ReconciliationResponse `json:"reconciliation,omitempty"`
	Order          *PurchaseOrderResponse  `json:"order,omitempty"`
}

// StatusSummary reports purchase order counts grouped by status
type StatusSummary struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
}

// ListPurchaseOrdersQuery filters the list endpoint
type ListPurchaseOrdersQuery struct {
	Status   string `form:"status"`
	Vendor   string `form:"vendor"`
	Page     int    `form:"page,default=1"`
	PageSize int    `form:"page_size,default=20"`
}

// PurchaseOrderListResponse pages purchase orders
type PurchaseOrderListResponse struct {
	Items    []PurchaseOrderResponse `json:"items"`
	Total    int64                   `json:"total"`
	Page     int                     `json:"page"`
	PageSize int                     `json:"page_size"`
}

func toPurchaseOrderResponse(po *procurement.PurchaseOrder) *PurchaseOrderResponse {
	items := make([]POItemResponse, 0, len(po.Items))
	for _, item := range po.Items {
		items = append(items, POItemResponse{
			ItemNumber:  item.ItemNumber,
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   item.UnitPrice.String(),
			TotalPrice:  item.TotalPrice.String(),
		})
	}
	return &PurchaseOrderResponse{
		ID:              po.ID.String(),
		PONumber:        po.PONumber,
		VendorCode:      po.VendorCode,
		VendorName:      po.VendorName,
		TotalAmount:     po.TotalAmount.StringFixed(2),
		Currency:        string(po.Currency),
		Status:          string(po.Status),
		Items:           items,
		LockedBy:        po.LockedBy,
		LockedAt:        po.LockedAt,
		LedgerDocNumber: po.LedgerDocNumber,
		CreatedBy:       po.CreatedBy,
		ApprovedBy:      po.ApprovedBy,
		ApprovedAt:      po.ApprovedAt,
		RejectionReason: po.RejectionReason,
		FailureReason:   po.FailureReason,
		CompletedAt:     po.CompletedAt,
		CreatedAt:       po.CreatedAt,
		UpdatedAt:       po.UpdatedAt,
	}
}

func toReconciliationResponse(report *procurement.ReconciliationReport) *ReconciliationResponse {
	if report == nil {
		return nil
	}
	mismatches := make([]MismatchResponse, 0, len(report.Mismatches))
	for _, m := range report.Mismatches {
		mismatches = append(mismatches, MismatchResponse{
			ItemNumber: m.ItemNumber,
			Field:      m.Field,
			Local:      m.Local,
			Remote:     m.Remote,
			Severity:   string(m.Severity),
		})
	}
	return &ReconciliationResponse{
		PONumber:    report.PONumber,
		Clean:       report.IsClean(),
		HasBlocking: report.HasBlocking(),
		Mismatches:  mismatches,
	}
}
