package procurement

import (
	"testing"

	"github.com/erp/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helpers

func testItem(itemNumber string, quantity, unitPrice float64) POItem {
	q := decimal.NewFromFloat(quantity)
	p := decimal.NewFromFloat(unitPrice)
	return POItem{
		ItemNumber:  itemNumber,
		Description: "Test item " + itemNumber,
		Quantity:    q,
		UnitPrice:   p,
		TotalPrice:  q.Mul(p),
	}
}

func createTestPO(t *testing.T) *PurchaseOrder {
	t.Helper()
	po, err := NewPurchaseOrder("PO-2026-001", "VND001", "Test Vendor", valueobject.BRL,
		[]POItem{testItem("00010", 10, 50), testItem("00020", 4, 25)})
	require.NoError(t, err)
	return po
}

// ============================================
// POStatus Tests
// ============================================

func TestPOStatus_IsValid(t *testing.T) {
	tests := []struct {
		status  POStatus
		isValid bool
	}{
		{POStatusPending, true},
		{POStatusProcessing, true},
		{POStatusAwaitingApproval, true},
		{POStatusApproved, true},
		{POStatusRejected, true},
		{POStatusCompleted, true},
		{POStatusError, true},
		{POStatus("INVALID"), false},
		{POStatus(""), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.isValid, tt.status.IsValid())
		})
	}
}

func TestPOStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from     POStatus
		to       POStatus
		canTrans bool
	}{
		// From pending
		{POStatusPending, POStatusProcessing, true},
		{POStatusPending, POStatusError, true},
		{POStatusPending, POStatusCompleted, false},
		{POStatusPending, POStatusAwaitingApproval, false},
		// From processing
		{POStatusProcessing, POStatusAwaitingApproval, true},
		{POStatusProcessing, POStatusApproved, true},
		{POStatusProcessing, POStatusCompleted, true},
		{POStatusProcessing, POStatusError, true},
		{POStatusProcessing, POStatusPending, false},
		// From awaiting_approval
		{POStatusAwaitingApproval, POStatusApproved, true},
		{POStatusAwaitingApproval, POStatusRejected, true},
		{POStatusAwaitingApproval, POStatusError, true},
		{POStatusAwaitingApproval, POStatusCompleted, false},
		// From approved
		{POStatusApproved, POStatusCompleted, true},
		{POStatusApproved, POStatusError, true},
		{POStatusApproved, POStatusRejected, false},
		// From error: only reprocessing
		{POStatusError, POStatusProcessing, true},
		{POStatusError, POStatusError, false},
		{POStatusError, POStatusCompleted, false},
		// Terminal states
		{POStatusCompleted, POStatusProcessing, false},
		{POStatusCompleted, POStatusError, false},
		{POStatusRejected, POStatusProcessing, false},
		{POStatusRejected, POStatusError, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.canTrans, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestPOStatus_IsTerminal(t *testing.T) {
	assert.True(t, POStatusCompleted.IsTerminal())
	assert.True(t, POStatusRejected.IsTerminal())
	assert.False(t, POStatusError.IsTerminal())
	assert.False(t, POStatusPending.IsTerminal())
	assert.False(t, POStatusAwaitingApproval.IsTerminal())
}

// ============================================
// PurchaseOrder Tests
// ============================================

func TestNewPurchaseOrder(t *testing.T) {
	po := createTestPO(t)

	assert.Equal(t, "PO-2026-001", po.PONumber)
	assert.Equal(t, POStatusPending, po.Status)
	assert.Equal(t, valueobject.BRL, po.Currency)
	assert.True(t, po.TotalAmount.Equal(decimal.NewFromInt(600)))
	assert.False(t, po.IsLocked())
	assert.Equal(t, 1, po.Version)
}

func TestNewPurchaseOrder_TotalIsSumOfLines(t *testing.T) {
	po, err := NewPurchaseOrder("PO-2026-002", "VND001", "Vendor", valueobject.USD,
		[]POItem{testItem("00010", 3, 1066.50)})
	require.NoError(t, err)
	assert.True(t, po.TotalAmount.Equal(decimal.NewFromFloat(3199.50)))
}

func TestNewPurchaseOrder_Invalid(t *testing.T) {
	tests := []struct {
		name       string
		poNumber   string
		vendorCode string
		vendorName string
		currency   valueobject.Currency
		items      []POItem
	}{
		{"empty po number", "", "VND001", "Vendor", valueobject.BRL, []POItem{testItem("00010", 1, 10)}},
		{"no items", "PO-1", "VND001", "Vendor", valueobject.BRL, nil},
		{"short vendor code", "PO-1", "V1", "Vendor", valueobject.BRL, []POItem{testItem("00010", 1, 10)}},
		{"empty vendor name", "PO-1", "VND001", "", valueobject.BRL, []POItem{testItem("00010", 1, 10)}},
		{"unsupported currency", "PO-1", "VND001", "Vendor", valueobject.Currency("JPY"), []POItem{testItem("00010", 1, 10)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPurchaseOrder(tt.poNumber, tt.vendorCode, tt.vendorName, tt.currency, tt.items)
			assert.Error(t, err)
		})
	}
}

func TestPurchaseOrder_Validate_ItemTotalInconsistent(t *testing.T) {
	po := createTestPO(t)
	po.Items[0].TotalPrice = po.Items[0].TotalPrice.Add(decimal.NewFromInt(5))

	err := po.Validate()
	require.Error(t, err)
}

func TestPurchaseOrder_Validate_HeaderTotalInconsistent(t *testing.T) {
	po := createTestPO(t)
	po.TotalAmount = po.TotalAmount.Add(decimal.NewFromInt(1))

	err := po.Validate()
	require.Error(t, err)
}

func TestPurchaseOrder_StartProcessing(t *testing.T) {
	po := createTestPO(t)

	err := po.StartProcessing("worker-1")
	require.NoError(t, err)

	assert.Equal(t, POStatusProcessing, po.Status)
	assert.Equal(t, "worker-1", po.LockedBy)
	assert.NotNil(t, po.LockedAt)
	assert.Len(t, po.GetDomainEvents(), 1)
}

func TestPurchaseOrder_StartProcessing_FromError(t *testing.T) {
	po := createTestPO(t)
	require.NoError(t, po.StartProcessing("worker-1"))
	require.NoError(t, po.MarkError("gateway unreachable"))

	err := po.StartProcessing("worker-2")
	require.NoError(t, err)
	assert.Equal(t, POStatusProcessing, po.Status)
	assert.Equal(t, "worker-2", po.LockedBy)
	assert.Empty(t, po.FailureReason)
}

func TestPurchaseOrder_StartProcessing_InvalidState(t *testing.T) {
	po := createTestPO(t)
	require.NoError(t, po.StartProcessing("worker-1"))

	err := po.StartProcessing("worker-2")
	assert.Error(t, err)
}

func TestPurchaseOrder_RequireApproval_ReleasesLock(t *testing.T) {
	po := createTestPO(t)
	require.NoError(t, po.StartProcessing("worker-1"))

	err := po.RequireApproval("amount above threshold")
	require.NoError(t, err)

	assert.Equal(t, POStatusAwaitingApproval, po.Status)
	assert.False(t, po.IsLocked())
	assert.Nil(t, po.LockedAt)
}

func TestPurchaseOrder_ApproveComplete(t *testing.T) {
	po := createTestPO(t)
	require.NoError(t, po.StartProcessing("worker-1"))
	require.NoError(t, po.RequireApproval("manual review"))

	err := po.Approve("alice")
	require.NoError(t, err)
	assert.Equal(t, POStatusApproved, po.Status)
	assert.Equal(t, "alice", po.ApprovedBy)
	assert.NotNil(t, po.ApprovedAt)

	err = po.Complete()
	require.NoError(t, err)
	assert.Equal(t, POStatusCompleted, po.Status)
	assert.NotNil(t, po.CompletedAt)
	assert.False(t, po.IsLocked())
	assert.True(t, po.IsTerminal())
}

func TestPurchaseOrder_Approve_EmptyApprover(t *testing.T) {
	po := createTestPO(t)
	require.NoError(t, po.StartProcessing("worker-1"))
	require.NoError(t, po.RequireApproval("manual review"))

	err := po.Approve("")
	assert.Error(t, err)
	assert.Equal(t, POStatusAwaitingApproval, po.Status)
}

func TestPurchaseOrder_Reject(t *testing.T) {
	po := createTestPO(t)
	require.NoError(t, po.StartProcessing("worker-1"))
	require.NoError(t, po.RequireApproval("manual review"))

	err := po.Reject("bob", "duplicate order")
	require.NoError(t, err)

	assert.Equal(t, POStatusRejected, po.Status)
	assert.Equal(t, "duplicate order", po.RejectionReason)
	assert.False(t, po.IsLocked())
	assert.True(t, po.IsTerminal())
}

func TestPurchaseOrder_Reject_EmptyReason(t *testing.T) {
	po := createTestPO(t)
	require.NoError(t, po.StartProcessing("worker-1"))
	require.NoError(t, po.RequireApproval("manual review"))

	err := po.Reject("bob", "")
	assert.Error(t, err)
	// Status unchanged on validation failure
	assert.Equal(t, POStatusAwaitingApproval, po.Status)
}

func TestPurchaseOrder_MarkError_ReleasesLock(t *testing.T) {
	po := createTestPO(t)
	require.NoError(t, po.StartProcessing("worker-1"))

	err := po.MarkError("posting rejected by ledger")
	require.NoError(t, err)

	assert.Equal(t, POStatusError, po.Status)
	assert.Equal(t, "posting rejected by ledger", po.FailureReason)
	assert.False(t, po.IsLocked())
}

func TestPurchaseOrder_MarkError_FromTerminal(t *testing.T) {
	po := createTestPO(t)
	require.NoError(t, po.StartProcessing("worker-1"))
	require.NoError(t, po.RequireApproval("manual review"))
	require.NoError(t, po.Reject("bob", "not needed"))

	err := po.MarkError("should not happen")
	assert.Error(t, err)
	assert.Equal(t, POStatusRejected, po.Status)
}

func TestPurchaseOrder_GetItem(t *testing.T) {
	po := createTestPO(t)

	item := po.GetItem("00020")
	require.NotNil(t, item)
	assert.Equal(t, "00020", item.ItemNumber)

	assert.Nil(t, po.GetItem("99999"))
	assert.Equal(t, 2, po.ItemCount())
}
