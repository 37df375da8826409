package procurement

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ApprovalDecision records who approved an order and whether the invoice
// should be posted as part of finalization
type ApprovalDecision struct {
	Approved    bool      `json:"approved"`
	ApprovedBy  string    `json:"approved_by"`
	Reason      string    `json:"reason"`
	PostInvoice bool      `json:"post_invoice"`
	DecidedAt   time.Time `json:"decided_at"`
}

// ApprovalPolicy decides whether an order can proceed automatically.
// A nil decision means the order needs a manual review; policies are pure
// strategies and must not mutate the order.
type ApprovalPolicy interface {
	Decide(po *PurchaseOrder, report ReconciliationReport) *ApprovalDecision
}

// ThresholdPolicy routes orders to manual review when the reconciliation
// report has a blocking mismatch or the amount exceeds the threshold.
// The comparison is strictly greater: an order exactly at the threshold is
// auto-approved.
type ThresholdPolicy struct {
	Threshold decimal.Decimal
}

// NewThresholdPolicy creates a ThresholdPolicy with the given auto-approval limit
func NewThresholdPolicy(threshold decimal.Decimal) *ThresholdPolicy {
	return &ThresholdPolicy{Threshold: threshold}
}

// Decide implements ApprovalPolicy
func (p *ThresholdPolicy) Decide(po *PurchaseOrder, report ReconciliationReport) *ApprovalDecision {
	if report.HasBlocking() {
		return nil
	}
	if po.TotalAmount.GreaterThan(p.Threshold) {
		return nil
	}
	return &ApprovalDecision{
		Approved:    true,
		ApprovedBy:  "system",
		Reason:      fmt.Sprintf("Auto-approved: amount %s within threshold %s", po.TotalAmount, p.Threshold),
		PostInvoice: true,
		DecidedAt:   time.Now(),
	}
}
