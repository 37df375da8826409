package persistence

import (
	"context"
	"fmt"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SeedDemoPurchaseOrders inserts the demo purchase orders when the store is
// empty. Running it against a populated database is a no-op, so it is safe to
// call on every startup.
func SeedDemoPurchaseOrders(ctx context.Context, repo procurement.PurchaseOrderRepository, logger *zap.Logger) error {
	_, total, err := repo.FindAll(ctx, procurement.ListFilter{Page: 1, PageSize: 1})
	if err != nil {
		return fmt.Errorf("failed to check for existing purchase orders: %w", err)
	}
	if total > 0 {
		return nil
	}

	for _, po := range demoPurchaseOrders() {
		if err := repo.Save(ctx, po); err != nil {
			return fmt.Errorf("failed to seed purchase order %s: %w", po.PONumber, err)
		}
		logger.Info("Seeded demo purchase order",
			zap.String("po_number", po.PONumber),
			zap.String("status", po.Status.String()))
	}
	return nil
}

func demoPurchaseOrders() []*procurement.PurchaseOrder {
	alpha := mustNewPurchaseOrder("PO-1001", "V001", "Fornecedor Alpha", []procurement.POItem{
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
			Quantity:    decimal.NewFromInt(50),
			UnitPrice:   decimal.RequireFromString("160.00"),
			TotalPrice:  decimal.RequireFromString("8000.00"),
		},
	})
	// Parked mid-flight so the approve and reject endpoints have something
	// to act on out of the box
	alpha.Status = procurement.POStatusAwaitingApproval
	alpha.LedgerDocNumber = "4500000101"

	beta := mustNewPurchaseOrder("PO-1002", "V014", "Fornecedor Beta", []procurement.POItem{
		{
			ItemNumber:  "10",
			Description: "Roteador",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.RequireFromString("1600.00"),
			TotalPrice:  decimal.RequireFromString("3200.00"),
		},
	})

	gama := mustNewPurchaseOrder("PO-1003", "V007", "Fornecedor Gama", []procurement.POItem{
		{
			ItemNumber:  "10",
			Description: "Switch 48 portas",
			Quantity:    decimal.NewFromInt(1),
			UnitPrice:   decimal.RequireFromString("7800.00"),
			TotalPrice:  decimal.RequireFromString("7800.00"),
		},
	})

	return []*procurement.PurchaseOrder{alpha, beta, gama}
}

func mustNewPurchaseOrder(poNumber, vendorCode, vendorName string, items []procurement.POItem) *procurement.PurchaseOrder {
	po, err := procurement.NewPurchaseOrder(poNumber, vendorCode, vendorName, valueobject.DefaultCurrency, items)
	if err != nil {
		panic(fmt.Sprintf("invalid demo purchase order %s: %v", poNumber, err))
	}
	return po
}
