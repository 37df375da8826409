package procurement

import (
	"fmt"
	"time"

	"github.com/erp/backend/internal/domain/shared"
	"github.com/erp/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// POStatus represents the status of a purchase order
type POStatus string

const (
	POStatusPending          POStatus = "pending"
	POStatusProcessing       POStatus = "processing"
	POStatusAwaitingApproval POStatus = "awaiting_approval"
	POStatusApproved         POStatus = "approved"
	POStatusRejected         POStatus = "rejected"
	POStatusCompleted        POStatus = "completed"
	POStatusError            POStatus = "error"
)

// IsValid checks if the status is a valid POStatus
func (s POStatus) IsValid() bool {
	switch s {
	case POStatusPending, POStatusProcessing, POStatusAwaitingApproval,
		POStatusApproved, POStatusRejected, POStatusCompleted, POStatusError:
		return true
	}
	return false
}

// String returns the string representation of POStatus
func (s POStatus) String() string {
	return string(s)
}

// IsTerminal returns true for statuses with no further automatic transition
func (s POStatus) IsTerminal() bool {
	return s == POStatusCompleted || s == POStatusRejected
}

// CanTransitionTo checks if the status can transition to the target status
func (s POStatus) CanTransitionTo(target POStatus) bool {
	// Any non-terminal state may fail into error on unrecoverable faults
	if target == POStatusError {
		return !s.IsTerminal() && s != POStatusError
	}
	switch s {
	case POStatusPending:
		return target == POStatusProcessing
	case POStatusProcessing:
		return target == POStatusAwaitingApproval || target == POStatusApproved || target == POStatusCompleted
	case POStatusAwaitingApproval:
		return target == POStatusApproved || target == POStatusRejected
	case POStatusApproved:
		return target == POStatusCompleted
	case POStatusError:
		// Reprocessing is allowed only from pending or error
		return target == POStatusProcessing
	case POStatusCompleted, POStatusRejected:
		return false
	}
	return false
}

// CanStartProcessing returns true if a processing run may claim this status
func (s POStatus) CanStartProcessing() bool {
	return s == POStatusPending || s == POStatusError
}

// amountEpsilon bounds rounding drift tolerated by structural validation,
// matching the precision line totals are stored at
var amountEpsilon = decimal.NewFromFloat(0.01)

// POItem represents a line item in a purchase order
type POItem struct {
	ItemNumber  string          `gorm:"type:varchar(20);not null"`
	Description string          `gorm:"type:varchar(200);not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	TotalPrice  decimal.Decimal `gorm:"type:decimal(18,4);not null"`
}

// Validate checks the line total against quantity * unit price
func (i POItem) Validate() error {
	if i.ItemNumber == "" {
		return shared.NewDomainError("INVALID_ITEM", "Item number cannot be empty")
	}
	if i.Quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_QUANTITY", fmt.Sprintf("Item %s quantity must be positive", i.ItemNumber))
	}
	if i.UnitPrice.IsNegative() {
		return shared.NewDomainError("INVALID_PRICE", fmt.Sprintf("Item %s unit price cannot be negative", i.ItemNumber))
	}
	expected := i.Quantity.Mul(i.UnitPrice)
	if expected.Sub(i.TotalPrice).Abs().GreaterThan(amountEpsilon) {
		return shared.NewDomainError("INVALID_ITEM_TOTAL",
			fmt.Sprintf("Item %s total %s does not match quantity * unit price (%s)", i.ItemNumber, i.TotalPrice, expected))
	}
	return nil
}

// PurchaseOrder represents a purchase order aggregate root
// It owns the processing lifecycle from intake to a terminal state
type PurchaseOrder struct {
	shared.BaseAggregateRoot
	PONumber        string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	VendorCode      string               `gorm:"type:varchar(50);not null"`
	VendorName      string               `gorm:"type:varchar(200);not null"`
	TotalAmount     decimal.Decimal      `gorm:"type:decimal(18,4);not null;default:0"`
	Currency        valueobject.Currency `gorm:"type:varchar(3);not null;default:'BRL'"`
	Items           []POItem             `gorm:"-"`
	Status          POStatus             `gorm:"type:varchar(20);not null;default:'pending'"`
	LockedBy        string               `gorm:"type:varchar(100)"`
	LockedAt        *time.Time
	LedgerDocNumber string `gorm:"type:varchar(50)"`
	CreatedBy       string `gorm:"type:varchar(100)"`
	ApprovedBy      string `gorm:"type:varchar(100)"`
	ApprovedAt      *time.Time
	RejectionReason string `gorm:"type:varchar(500)"`
	FailureReason   string `gorm:"type:varchar(500)"`
	CompletedAt     *time.Time
}

// NewPurchaseOrder creates a new purchase order in pending status
func NewPurchaseOrder(poNumber, vendorCode, vendorName string, currency valueobject.Currency, items []POItem) (*PurchaseOrder, error) {
	if poNumber == "" {
		return nil, shared.NewDomainError("INVALID_PO_NUMBER", "PO number cannot be empty")
	}
	if currency == "" {
		currency = valueobject.DefaultCurrency
	}

	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}

	po := &PurchaseOrder{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		PONumber:          poNumber,
		VendorCode:        vendorCode,
		VendorName:        vendorName,
		TotalAmount:       total,
		Currency:          currency,
		Items:             items,
		Status:            POStatusPending,
		CreatedBy:         "system",
	}

	if err := po.Validate(); err != nil {
		return nil, err
	}

	return po, nil
}

// Validate checks the structural invariants of the purchase order
func (po *PurchaseOrder) Validate() error {
	if po.TotalAmount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Total amount must be positive")
	}
	if len(po.VendorCode) < 3 {
		return shared.NewDomainError("INVALID_VENDOR", "Vendor code must have at least 3 characters")
	}
	if po.VendorName == "" {
		return shared.NewDomainError("INVALID_VENDOR", "Vendor name is required")
	}
	if !po.Currency.IsSupported() {
		return shared.NewDomainError("INVALID_CURRENCY", fmt.Sprintf("Unsupported currency: %s", po.Currency))
	}
	if len(po.Items) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Purchase order must have at least one item")
	}

	itemsTotal := decimal.Zero
	for _, item := range po.Items {
		if err := item.Validate(); err != nil {
			return err
		}
		itemsTotal = itemsTotal.Add(item.TotalPrice)
	}
	if itemsTotal.Sub(po.TotalAmount).Abs().GreaterThan(amountEpsilon) {
		return shared.NewDomainError("AMOUNT_MISMATCH",
			fmt.Sprintf("Items total %s does not match PO total %s", itemsTotal, po.TotalAmount))
	}

	return nil
}

// transitionTo moves the order to a new status, enforcing the transition table
func (po *PurchaseOrder) transitionTo(target POStatus) error {
	if !po.Status.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Invalid transition: %s -> %s", po.Status, target))
	}
	po.Status = target
	po.UpdatedAt = time.Now()
	return nil
}

// StartProcessing marks the order as claimed by a processing run.
// Callers must have won the store-level compare-and-set first; this only
// brings the in-memory instance in line with the persisted claim.
func (po *PurchaseOrder) StartProcessing(actor string) error {
	if err := po.transitionTo(POStatusProcessing); err != nil {
		return err
	}
	// The winning compare-and-set bumped the stored version
	po.IncrementVersion()
	now := time.Now()
	po.LockedBy = actor
	po.LockedAt = &now
	po.FailureReason = ""
	po.AddDomainEvent(NewPOProcessingStartedEvent(po, actor))
	return nil
}

// RequireApproval parks the order until a human decision arrives.
// The processing lock is released: the order is no longer claimed by a run.
func (po *PurchaseOrder) RequireApproval(reason string) error {
	if err := po.transitionTo(POStatusAwaitingApproval); err != nil {
		return err
	}
	po.releaseLock()
	po.AddDomainEvent(NewPOApprovalRequiredEvent(po, reason))
	return nil
}

// Approve records an approval decision
func (po *PurchaseOrder) Approve(approvedBy string) error {
	if approvedBy == "" {
		return shared.NewDomainError("INVALID_APPROVER", "Approver is required")
	}
	if err := po.transitionTo(POStatusApproved); err != nil {
		return err
	}
	now := time.Now()
	po.ApprovedBy = approvedBy
	po.ApprovedAt = &now
	po.AddDomainEvent(NewPOApprovedEvent(po, approvedBy))
	return nil
}

// Reject records a rejection with a mandatory reason; terminal, no lock held
func (po *PurchaseOrder) Reject(rejectedBy, reason string) error {
	if reason == "" {
		return shared.NewDomainError("VALIDATION_FAILED", "Rejection reason is required")
	}
	if err := po.transitionTo(POStatusRejected); err != nil {
		return err
	}
	po.RejectionReason = reason
	po.releaseLock()
	po.AddDomainEvent(NewPORejectedEvent(po, rejectedBy, reason))
	return nil
}

// Complete finalizes the order after the invoice has been posted
func (po *PurchaseOrder) Complete() error {
	if err := po.transitionTo(POStatusCompleted); err != nil {
		return err
	}
	now := time.Now()
	po.CompletedAt = &now
	po.releaseLock()
	po.AddDomainEvent(NewPOCompletedEvent(po))
	return nil
}

// MarkError moves the order to the error status on unrecoverable failure.
// The lock is always released so the order never stays claimed.
func (po *PurchaseOrder) MarkError(reason string) error {
	if err := po.transitionTo(POStatusError); err != nil {
		return err
	}
	po.FailureReason = reason
	po.releaseLock()
	po.AddDomainEvent(NewPOProcessingFailedEvent(po, reason))
	return nil
}

func (po *PurchaseOrder) releaseLock() {
	po.LockedBy = ""
	po.LockedAt = nil
}

// IsLocked returns true while a processing run holds the order
func (po *PurchaseOrder) IsLocked() bool {
	return po.LockedBy != ""
}

// IsTerminal returns true if the order is completed or rejected
func (po *PurchaseOrder) IsTerminal() bool {
	return po.Status.IsTerminal()
}

// GetTotalAmountMoney returns the total amount as a Money value object
func (po *PurchaseOrder) GetTotalAmountMoney() valueobject.Money {
	m, _ := valueobject.NewMoney(po.TotalAmount, po.Currency)
	return m
}

// GetItem returns the line with the given item number, or nil
func (po *PurchaseOrder) GetItem(itemNumber string) *POItem {
	for idx := range po.Items {
		if po.Items[idx].ItemNumber == itemNumber {
			return &po.Items[idx]
		}
	}
	return nil
}

// ItemCount returns the number of line items
func (po *PurchaseOrder) ItemCount() int {
	return len(po.Items)
}
