package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ApprovalService resolves orders parked in awaiting_approval.
// Decisions are idempotent: approving or rejecting an order that already
// reached a terminal state reports the existing state instead of failing.
type ApprovalService struct {
	repo      procurement.PurchaseOrderRepository
	processor *ProcessService
	logger    *zap.Logger
}

// NewApprovalService creates a new ApprovalService
func NewApprovalService(repo procurement.PurchaseOrderRepository, processor *ProcessService, logger *zap.Logger) *ApprovalService {
	return &ApprovalService{
		repo:      repo,
		processor: processor,
		logger:    logger,
	}
}

// Approve records a manual approval and finalizes the order.
// The decision slot is claimed with a conditional update so two approvers
// racing on the same order cannot both post the invoice.
func (s *ApprovalService) Approve(ctx context.Context, poNumber, approvedBy string) (*ProcessResult, error) {
	if approvedBy == "" {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Approver is required")
	}

	po, err := s.repo.FindByNumber(ctx, poNumber)
	if err != nil {
		return nil, err
	}

	if po.IsTerminal() {
		return s.terminalResult(po, "already resolved"), nil
	}
	if po.Status != procurement.POStatusAwaitingApproval {
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Purchase order %s cannot be approved from status %s", poNumber, po.Status))
	}

	claimed, err := s.repo.ClaimForApproval(ctx, poNumber, approvedBy)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, shared.ErrAlreadyLocked
	}
	// The won claim bumped the stored version; keep the aggregate in step
	po.IncrementVersion()

	if err := po.Approve(approvedBy); err != nil {
		return nil, err
	}
	s.logger.Info("Purchase order approved",
		zap.String("po_number", poNumber),
		zap.String("approved_by", approvedBy))

	decision := &procurement.ApprovalDecision{
		Approved:    true,
		ApprovedBy:  approvedBy,
		Reason:      fmt.Sprintf("Manually approved by %s", approvedBy),
		PostInvoice: true,
		DecidedAt:   time.Now(),
	}
	return s.processor.finalize(ctx, po, decision, nil)
}

// Reject records a manual rejection. The reason is mandatory; an empty
// reason is a validation error and leaves the order untouched. The write is
// version-guarded, so a rejection cannot overwrite a concurrently settled
// decision.
func (s *ApprovalService) Reject(ctx context.Context, poNumber, rejectedBy, reason string) (*ProcessResult, error) {
	if reason == "" {
		return nil, shared.NewDomainError("VALIDATION_FAILED", "Rejection reason is required")
	}

	po, err := s.repo.FindByNumber(ctx, poNumber)
	if err != nil {
		return nil, err
	}

	if po.IsTerminal() {
		return s.terminalResult(po, "already resolved"), nil
	}
	if po.IsLocked() {
		return nil, shared.ErrAlreadyLocked
	}

	if err := po.Reject(rejectedBy, reason); err != nil {
		return nil, err
	}
	if err := s.repo.SaveWithLock(ctx, po); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			return s.resolveConflict(ctx, poNumber)
		}
		return nil, err
	}
	drainEvents(s.logger, po)

	s.logger.Info("Purchase order rejected",
		zap.String("po_number", poNumber),
		zap.String("rejected_by", rejectedBy),
		zap.String("reason", reason))
	s.processor.recordOutcome(ctx, string(procurement.POStatusRejected))
	s.processor.notify(ctx, po, procurement.Notification{
		PONumber:  po.PONumber,
		Kind:      procurement.NotificationKindRejected,
		Recipient: s.processor.recipientFor(po),
		Subject:   fmt.Sprintf("Purchase order %s rejected", po.PONumber),
		Message:   fmt.Sprintf("Purchase order %s was rejected by %s: %s", po.PONumber, rejectedBy, reason),
	})

	return &ProcessResult{
		PONumber: po.PONumber,
		Outcome:  OutcomeRejected,
		Status:   string(po.Status),
		Message:  reason,
		Order:    toPurchaseOrderResponse(po),
	}, nil
}

// resolveConflict reloads an order whose optimistic write lost to a
// concurrent decision. A terminal order reports the settled state; anything
// else means a decision is still in flight.
func (s *ApprovalService) resolveConflict(ctx context.Context, poNumber string) (*ProcessResult, error) {
	current, err := s.repo.FindByNumber(ctx, poNumber)
	if err != nil {
		return nil, err
	}
	if current.IsTerminal() {
		return s.terminalResult(current, "already resolved"), nil
	}
	return nil, shared.ErrAlreadyLocked
}

func (s *ApprovalService) terminalResult(po *procurement.PurchaseOrder, message string) *ProcessResult {
	outcome := OutcomeCompleted
	if po.Status == procurement.POStatusRejected {
		outcome = OutcomeRejected
	}
	return &ProcessResult{
		PONumber: po.PONumber,
		Outcome:  outcome,
		Status:   string(po.Status),
		Message:  message,
		Order:    toPurchaseOrderResponse(po),
	}
}
