package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPurchaseOrderRepository is a mock implementation of PurchaseOrderRepository
type MockPurchaseOrderRepository struct {
	mock.Mock
}

func (m *MockPurchaseOrderRepository) FindByNumber(ctx context.Context, poNumber string) (*procurement.PurchaseOrder, error) {
	args := m.Called(ctx, poNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.PurchaseOrder), args.Error(1)
}

func (m *MockPurchaseOrderRepository) FindAll(ctx context.Context, filter procurement.ListFilter) ([]procurement.PurchaseOrder, int64, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]procurement.PurchaseOrder), args.Get(1).(int64), args.Error(2)
}

func (m *MockPurchaseOrderRepository) Save(ctx context.Context, po *procurement.PurchaseOrder) error {
	args := m.Called(ctx, po)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) SaveWithLock(ctx context.Context, po *procurement.PurchaseOrder) error {
	args := m.Called(ctx, po)
	return args.Error(0)
}

func (m *MockPurchaseOrderRepository) CompareAndSetProcessing(ctx context.Context, poNumber, lockedBy string, expected ...procurement.POStatus) (bool, error) {
	callArgs := []interface{}{ctx, poNumber, lockedBy}
	for _, status := range expected {
		callArgs = append(callArgs, status)
	}
	args := m.Called(callArgs...)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseOrderRepository) ClaimForApproval(ctx context.Context, poNumber, lockedBy string) (bool, error) {
	args := m.Called(ctx, poNumber, lockedBy)
	return args.Bool(0), args.Error(1)
}

func (m *MockPurchaseOrderRepository) CountByStatus(ctx context.Context, status procurement.POStatus) (int64, error) {
	args := m.Called(ctx, status)
	return args.Get(0).(int64), args.Error(1)
}

// MockLedgerGateway is a mock implementation of LedgerGateway
type MockLedgerGateway struct {
	mock.Mock
}

func (m *MockLedgerGateway) FetchPO(ctx context.Context, poNumber string) (*procurement.LedgerSnapshot, error) {
	args := m.Called(ctx, poNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*procurement.LedgerSnapshot), args.Error(1)
}

func (m *MockLedgerGateway) LockDocument(ctx context.Context, docNumber string) error {
	args := m.Called(ctx, docNumber)
	return args.Error(0)
}

func (m *MockLedgerGateway) UnlockDocument(ctx context.Context, docNumber string) error {
	args := m.Called(ctx, docNumber)
	return args.Error(0)
}

func (m *MockLedgerGateway) PostInvoice(ctx context.Context, po *procurement.PurchaseOrder) (string, error) {
	args := m.Called(ctx, po)
	return args.String(0), args.Error(1)
}

// MockNotificationPort is a mock implementation of NotificationPort
type MockNotificationPort struct {
	mock.Mock
}

func (m *MockNotificationPort) Notify(ctx context.Context, n procurement.Notification) error {
	args := m.Called(ctx, n)
	return args.Error(0)
}

// newTestOrder builds a pending single-line order whose total is qty * price
func newTestOrder(t *testing.T, poNumber, qty, price string) *procurement.PurchaseOrder {
	t.Helper()
	quantity := decimal.RequireFromString(qty)
	unitPrice := decimal.RequireFromString(price)
	po, err := procurement.NewPurchaseOrder(poNumber, "VND001", "Acme Supplies Ltda", valueobject.BRL, []procurement.POItem{
		{
			ItemNumber:  "00010",
			Description: "Industrial fasteners",
			Quantity:    quantity,
			UnitPrice:   unitPrice,
			TotalPrice:  quantity.Mul(unitPrice),
		},
	})
	require.NoError(t, err)
	return po
}

// snapshotFor mirrors an order into a matching ledger snapshot
func snapshotFor(po *procurement.PurchaseOrder, docNumber string) *procurement.LedgerSnapshot {
	items := make([]procurement.SnapshotItem, 0, len(po.Items))
	for _, item := range po.Items {
		items = append(items, procurement.SnapshotItem{
			ItemNumber:  item.ItemNumber,
			Description: item.Description,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
			TotalPrice:  item.TotalPrice,
		})
	}
	return &procurement.LedgerSnapshot{
		PONumber:    po.PONumber,
		VendorCode:  po.VendorCode,
		TotalAmount: po.TotalAmount,
		Currency:    po.Currency,
		Items:       items,
		DocNumber:   docNumber,
		FiscalYear:  "2026",
	}
}

// newTestProcessService wires a ProcessService with fast retries and the
// given auto-approval threshold
func newTestProcessService(repo *MockPurchaseOrderRepository, gateway *MockLedgerGateway, notifier *MockNotificationPort, threshold string) *ProcessService {
	retrier := NewRetrier(RetryPolicy{MaxAttempts: 4, BaseDelay: 1, Jitter: 0}).
		WithSleep(func(ctx context.Context, d time.Duration) error { return nil })
	return NewProcessService(
		repo,
		gateway,
		procurement.NewReconciliationEngine(decimal.NewFromFloat(0.01)),
		procurement.NewThresholdPolicy(decimal.RequireFromString(threshold)),
		notifier,
		retrier,
		"approvals@example.com",
		zap.NewNop(),
	)
}
