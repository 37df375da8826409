package procurement

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Severity grades a reconciliation mismatch
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityBlocking Severity = "blocking"
)

// Mismatch is a single field-level difference between the local order and
// the ledger snapshot. ItemNumber is empty for header-level fields.
type Mismatch struct {
	ItemNumber string   `json:"item_number,omitempty"`
	Field      string   `json:"field"`
	Local      string   `json:"local"`
	Remote     string   `json:"remote"`
	Severity   Severity `json:"severity"`
}

func (m Mismatch) String() string {
	if m.ItemNumber == "" {
		return fmt.Sprintf("%s: local=%s remote=%s (%s)", m.Field, m.Local, m.Remote, m.Severity)
	}
	return fmt.Sprintf("item %s %s: local=%s remote=%s (%s)", m.ItemNumber, m.Field, m.Local, m.Remote, m.Severity)
}

// ReconciliationReport is the ordered set of mismatches found for one order.
// It is an ephemeral value consumed by the approval policy, never persisted.
type ReconciliationReport struct {
	PONumber   string     `json:"po_number"`
	Mismatches []Mismatch `json:"mismatches"`
}

// HasBlocking returns true if any mismatch has blocking severity
func (r ReconciliationReport) HasBlocking() bool {
	for _, m := range r.Mismatches {
		if m.Severity == SeverityBlocking {
			return true
		}
	}
	return false
}

// IsClean returns true when no mismatches were found
func (r ReconciliationReport) IsClean() bool {
	return len(r.Mismatches) == 0
}

// Summary joins all mismatches into a single human-readable line
func (r ReconciliationReport) Summary() string {
	if r.IsClean() {
		return "all fields reconciled"
	}
	s := ""
	for i, m := range r.Mismatches {
		if i > 0 {
			s += "; "
		}
		s += m.String()
	}
	return s
}

// ReconciliationEngine compares a local purchase order against a ledger
// snapshot. It is a pure function over its inputs: identical inputs always
// produce an identical, deterministically ordered report.
type ReconciliationEngine struct {
	tolerance decimal.Decimal
}

// NewReconciliationEngine creates an engine with the given amount tolerance
func NewReconciliationEngine(tolerance decimal.Decimal) *ReconciliationEngine {
	return &ReconciliationEngine{tolerance: tolerance}
}

// Reconcile produces a field-by-field mismatch report.
// Header fields are compared first, then lines are matched by item number;
// lines present on only one side are reported as blocking mismatches.
func (e *ReconciliationEngine) Reconcile(po *PurchaseOrder, snapshot *LedgerSnapshot) ReconciliationReport {
	mismatches := make([]Mismatch, 0)

	if po.VendorCode != snapshot.VendorCode {
		mismatches = append(mismatches, Mismatch{
			Field:    "vendor_code",
			Local:    po.VendorCode,
			Remote:   snapshot.VendorCode,
			Severity: SeverityBlocking,
		})
	}
	if string(po.Currency) != string(snapshot.Currency) {
		mismatches = append(mismatches, Mismatch{
			Field:    "currency",
			Local:    string(po.Currency),
			Remote:   string(snapshot.Currency),
			Severity: SeverityBlocking,
		})
	}
	if po.TotalAmount.Sub(snapshot.TotalAmount).Abs().GreaterThan(e.tolerance) {
		mismatches = append(mismatches, Mismatch{
			Field:    "total_amount",
			Local:    po.TotalAmount.String(),
			Remote:   snapshot.TotalAmount.String(),
			Severity: SeverityBlocking,
		})
	}

	for _, item := range po.Items {
		remote := snapshot.GetItem(item.ItemNumber)
		if remote == nil {
			mismatches = append(mismatches, Mismatch{
				ItemNumber: item.ItemNumber,
				Field:      "presence",
				Local:      "present",
				Remote:     "missing",
				Severity:   SeverityBlocking,
			})
			continue
		}
		mismatches = append(mismatches, e.compareItem(item, *remote)...)
	}

	for _, remote := range snapshot.Items {
		if po.GetItem(remote.ItemNumber) == nil {
			mismatches = append(mismatches, Mismatch{
				ItemNumber: remote.ItemNumber,
				Field:      "presence",
				Local:      "missing",
				Remote:     "present",
				Severity:   SeverityBlocking,
			})
		}
	}

	// Sort by item number then field so the report is reproducible
	// regardless of input ordering
	sort.Slice(mismatches, func(i, j int) bool {
		if mismatches[i].ItemNumber != mismatches[j].ItemNumber {
			return mismatches[i].ItemNumber < mismatches[j].ItemNumber
		}
		return mismatches[i].Field < mismatches[j].Field
	})

	return ReconciliationReport{
		PONumber:   po.PONumber,
		Mismatches: mismatches,
	}
}

func (e *ReconciliationEngine) compareItem(local POItem, remote SnapshotItem) []Mismatch {
	mismatches := make([]Mismatch, 0, 2)

	if !local.Quantity.Equal(remote.Quantity) {
		mismatches = append(mismatches, Mismatch{
			ItemNumber: local.ItemNumber,
			Field:      "quantity",
			Local:      local.Quantity.String(),
			Remote:     remote.Quantity.String(),
			Severity:   SeverityBlocking,
		})
	}
	if local.UnitPrice.Sub(remote.UnitPrice).Abs().GreaterThan(e.tolerance) {
		mismatches = append(mismatches, Mismatch{
			ItemNumber: local.ItemNumber,
			Field:      "unit_price",
			Local:      local.UnitPrice.String(),
			Remote:     remote.UnitPrice.String(),
			Severity:   SeverityBlocking,
		})
	}
	if local.TotalPrice.Sub(remote.TotalPrice).Abs().GreaterThan(e.tolerance) {
		mismatches = append(mismatches, Mismatch{
			ItemNumber: local.ItemNumber,
			Field:      "total_price",
			Local:      local.TotalPrice.String(),
			Remote:     remote.TotalPrice.String(),
			Severity:   SeverityWarn,
		})
	}
	if local.Description != remote.Description {
		mismatches = append(mismatches, Mismatch{
			ItemNumber: local.ItemNumber,
			Field:      "description",
			Local:      local.Description,
			Remote:     remote.Description,
			Severity:   SeverityInfo,
		})
	}

	return mismatches
}
