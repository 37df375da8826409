package ledger

import (
	"github.com/erp/backend/internal/domain/procurement"
	"github.com/shopspring/decimal"
)

// defaultSnapshots mirrors the demo purchase orders seeded into the local
// store. PO-1001 carries a deliberate quantity divergence on line 20 so the
// reconciliation path has a blocking mismatch to surface.
func defaultSnapshots() map[string]*procurement.LedgerSnapshot {
	snapshots := []*procurement.LedgerSnapshot{
		{
			PONumber:    "PO-1001",
			VendorCode:  "V001",
			TotalAmount: decimal.RequireFromString("11700.50"),
			Currency:    "BRL",
			DocNumber:   "4500000101",
			FiscalYear:  "2024",
			Items: []procurement.SnapshotItem{
				{
					ItemNumber:  "10",
					Description: "Cabo optico",
					Quantity:    decimal.NewFromInt(10),
					UnitPrice:   decimal.RequireFromString("450.05"),
					TotalPrice:  decimal.RequireFromString("4500.50"),
				},
				{
					ItemNumber:  "20",
					Description: "Conector SC",
					Quantity:    decimal.NewFromInt(45),
					UnitPrice:   decimal.RequireFromString("160.00"),
					TotalPrice:  decimal.RequireFromString("7200.00"),
				},
			},
		},
		{
			PONumber:    "PO-1002",
			VendorCode:  "V014",
			TotalAmount: decimal.RequireFromString("3200.00"),
			Currency:    "BRL",
			DocNumber:   "4500000102",
			FiscalYear:  "2024",
			Items: []procurement.SnapshotItem{
				{
					ItemNumber:  "10",
					Description: "Roteador",
					Quantity:    decimal.NewFromInt(2),
					UnitPrice:   decimal.RequireFromString("1600.00"),
					TotalPrice:  decimal.RequireFromString("3200.00"),
				},
			},
		},
		{
			PONumber:    "PO-1003",
			VendorCode:  "V007",
			TotalAmount: decimal.RequireFromString("7800.00"),
			Currency:    "BRL",
			DocNumber:   "4500000103",
			FiscalYear:  "2024",
			Items: []procurement.SnapshotItem{
				{
					ItemNumber:  "10",
					Description: "Switch 48 portas",
					Quantity:    decimal.NewFromInt(1),
					UnitPrice:   decimal.RequireFromString("7800.00"),
					TotalPrice:  decimal.RequireFromString("7800.00"),
				},
			},
		},
	}

	out := make(map[string]*procurement.LedgerSnapshot, len(snapshots))
	for _, s := range snapshots {
		out[s.PONumber] = s
	}
	return out
}
