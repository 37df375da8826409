package procurement

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestApprovalService(repo *MockPurchaseOrderRepository, gateway *MockLedgerGateway, notifier *MockNotificationPort) *ApprovalService {
	processor := newTestProcessService(repo, gateway, notifier, "10000")
	return NewApprovalService(repo, processor, zap.NewNop())
}

func awaitingOrder(t *testing.T, poNumber string) *procurement.PurchaseOrder {
	t.Helper()
	po := newTestOrder(t, poNumber, "50", "250.01")
	po.Status = procurement.POStatusAwaitingApproval
	po.LedgerDocNumber = "4500000777"
	return po
}

func TestApprovalService_Approve_FinalizesOrder(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	po := awaitingOrder(t, "PO-1001")

	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(po, nil)
	repo.On("ClaimForApproval", mock.Anything, "PO-1001", "maria@example.com").Return(true, nil)
	repo.On("SaveWithLock", mock.Anything, po).Return(nil)
	gateway.On("PostInvoice", mock.Anything, po).Return("INV-9001", nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	result, err := service.Approve(context.Background(), "PO-1001", "maria@example.com")

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, "INV-9001", result.InvoiceNumber)
	assert.Equal(t, procurement.POStatusCompleted, po.Status)
	assert.Equal(t, "maria@example.com", po.ApprovedBy)
	assert.NotNil(t, po.ApprovedAt)
	assert.False(t, po.IsLocked())
	// The aggregate mirrors the version bump of the won claim
	assert.Equal(t, 2, po.Version)
}

func TestApprovalService_Approve_IdempotentOnTerminalOrder(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	po := newTestOrder(t, "PO-1001", "50", "250.01")
	po.Status = procurement.POStatusCompleted

	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(po, nil)

	result, err := service.Approve(context.Background(), "PO-1001", "maria@example.com")

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, string(procurement.POStatusCompleted), result.Status)
	repo.AssertNotCalled(t, "ClaimForApproval", mock.Anything, mock.Anything, mock.Anything)
	gateway.AssertNotCalled(t, "PostInvoice", mock.Anything, mock.Anything)
}

func TestApprovalService_Approve_InvalidState(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	po := newTestOrder(t, "PO-1002", "16", "200.00")

	repo.On("FindByNumber", mock.Anything, "PO-1002").Return(po, nil)

	_, err := service.Approve(context.Background(), "PO-1002", "maria@example.com")

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	assert.Equal(t, procurement.POStatusPending, po.Status)
}

func TestApprovalService_Approve_MissingApprover(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	_, err := service.Approve(context.Background(), "PO-1001", "")

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	repo.AssertNotCalled(t, "FindByNumber", mock.Anything, mock.Anything)
}

func TestApprovalService_Approve_ClaimLost(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	po := awaitingOrder(t, "PO-1001")

	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(po, nil)
	repo.On("ClaimForApproval", mock.Anything, "PO-1001", "maria@example.com").Return(false, nil)

	_, err := service.Approve(context.Background(), "PO-1001", "maria@example.com")

	assert.ErrorIs(t, err, shared.ErrAlreadyLocked)
	gateway.AssertNotCalled(t, "PostInvoice", mock.Anything, mock.Anything)
}

func TestApprovalService_Approve_PostingFailureMarksError(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	po := awaitingOrder(t, "PO-1001")
	transient := procurement.NewTransientError("post_invoice", errors.New("gateway timeout"))

	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(po, nil)
	repo.On("ClaimForApproval", mock.Anything, "PO-1001", "maria@example.com").Return(true, nil)
	repo.On("SaveWithLock", mock.Anything, po).Return(nil)
	gateway.On("PostInvoice", mock.Anything, po).Return("", transient)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	_, err := service.Approve(context.Background(), "PO-1001", "maria@example.com")

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "PROCESSING_FAILED", domainErr.Code)
	assert.Equal(t, procurement.POStatusError, po.Status)
	assert.Contains(t, po.FailureReason, "invoice posting failed")
	assert.False(t, po.IsLocked())
	gateway.AssertNumberOfCalls(t, "PostInvoice", 4)
}

func TestApprovalService_Reject_RecordsReason(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	po := awaitingOrder(t, "PO-1001")

	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(po, nil)
	repo.On("SaveWithLock", mock.Anything, po).Return(nil)
	notifier.On("Notify", mock.Anything, mock.Anything).Return(nil)

	result, err := service.Reject(context.Background(), "PO-1001", "maria@example.com", "quantities do not match the delivery")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, procurement.POStatusRejected, po.Status)
	assert.Equal(t, "quantities do not match the delivery", po.RejectionReason)
	notifier.AssertCalled(t, "Notify", mock.Anything, mock.MatchedBy(func(n procurement.Notification) bool {
		return n.Kind == procurement.NotificationKindRejected
	}))
}

func TestApprovalService_Reject_EmptyReasonLeavesOrderUntouched(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	_, err := service.Reject(context.Background(), "PO-1001", "maria@example.com", "")

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "VALIDATION_FAILED", domainErr.Code)
	repo.AssertNotCalled(t, "FindByNumber", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestApprovalService_Reject_IdempotentOnTerminalOrder(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	po := newTestOrder(t, "PO-1001", "50", "250.01")
	po.Status = procurement.POStatusRejected
	po.RejectionReason = "duplicate order"

	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(po, nil)

	result, err := service.Reject(context.Background(), "PO-1001", "maria@example.com", "other reason")

	require.NoError(t, err)
	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, "duplicate order", po.RejectionReason)
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestApprovalService_Reject_LosesToConcurrentApproval(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	// The rejection loads the order before a concurrent approval wins the
	// claim; the claim bumps the stored version, so the rejection's
	// version-guarded write must fail instead of overwriting the approval.
	stale := awaitingOrder(t, "PO-1001")
	settled := awaitingOrder(t, "PO-1001")
	settled.Status = procurement.POStatusCompleted

	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(stale, nil).Once()
	repo.On("SaveWithLock", mock.Anything, stale).Return(shared.ErrConcurrencyConflict)
	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(settled, nil).Once()

	result, err := service.Reject(context.Background(), "PO-1001", "maria@example.com", "duplicate order")

	require.NoError(t, err)
	assert.Equal(t, OutcomeCompleted, result.Outcome)
	assert.Equal(t, string(procurement.POStatusCompleted), result.Status)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestApprovalService_Reject_ConflictWithDecisionInFlight(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	stale := awaitingOrder(t, "PO-1001")
	inFlight := awaitingOrder(t, "PO-1001")
	inFlight.LockedBy = "joao@example.com"

	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(stale, nil).Once()
	repo.On("SaveWithLock", mock.Anything, stale).Return(shared.ErrConcurrencyConflict)
	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(inFlight, nil).Once()

	_, err := service.Reject(context.Background(), "PO-1001", "maria@example.com", "duplicate order")

	assert.ErrorIs(t, err, shared.ErrAlreadyLocked)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
}

func TestApprovalService_Reject_LockedOrderIsRefused(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	po := awaitingOrder(t, "PO-1001")
	po.LockedBy = "joao@example.com"

	repo.On("FindByNumber", mock.Anything, "PO-1001").Return(po, nil)

	_, err := service.Reject(context.Background(), "PO-1001", "maria@example.com", "not needed")

	assert.ErrorIs(t, err, shared.ErrAlreadyLocked)
	assert.Equal(t, procurement.POStatusAwaitingApproval, po.Status)
	repo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
}

func TestApprovalService_Reject_FromPendingIsInvalid(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	gateway := new(MockLedgerGateway)
	notifier := new(MockNotificationPort)
	service := newTestApprovalService(repo, gateway, notifier)

	po := newTestOrder(t, "PO-1002", "16", "200.00")

	repo.On("FindByNumber", mock.Anything, "PO-1002").Return(po, nil)

	_, err := service.Reject(context.Background(), "PO-1002", "maria@example.com", "not needed")

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_STATE", domainErr.Code)
	assert.Equal(t, procurement.POStatusPending, po.Status)
}
