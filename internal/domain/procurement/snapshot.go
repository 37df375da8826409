package procurement

import (
	"github.com/erp/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// SnapshotItem is a line item as reported by the ledger system
type SnapshotItem struct {
	ItemNumber  string          `json:"item_number"`
	Description string          `json:"description"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// LedgerSnapshot is the ledger system's view of a purchase order, fetched
// for reconciliation against the locally held order
type LedgerSnapshot struct {
	PONumber    string               `json:"po_number"`
	VendorCode  string               `json:"vendor_code"`
	TotalAmount decimal.Decimal      `json:"total_amount"`
	Currency    valueobject.Currency `json:"currency"`
	Items       []SnapshotItem       `json:"items"`
	DocNumber   string               `json:"doc_number"`
	FiscalYear  string               `json:"fiscal_year"`
}

// GetItem returns the snapshot line with the given item number, or nil
func (s *LedgerSnapshot) GetItem(itemNumber string) *SnapshotItem {
	for idx := range s.Items {
		if s.Items[idx].ItemNumber == itemNumber {
			return &s.Items[idx]
		}
	}
	return nil
}
