package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared"
	"github.com/erp/backend/internal/infrastructure/logger"
	"github.com/erp/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// ProcessService drives a purchase order from intake to a terminal state:
// claim, validate, reconcile against the ledger, decide, finalize. Exactly
// one run may hold an order at a time; the claim is taken with a
// compare-and-set at the store and released on every exit path.
type ProcessService struct {
	repo            procurement.PurchaseOrderRepository
	gateway         procurement.LedgerGateway
	engine          *procurement.ReconciliationEngine
	policy          procurement.ApprovalPolicy
	notifier        procurement.NotificationPort
	retrier         *Retrier
	approverEmail   string
	logger          *zap.Logger
	businessMetrics *telemetry.BusinessMetrics
}

// NewProcessService creates a new ProcessService
func NewProcessService(
	repo procurement.PurchaseOrderRepository,
	gateway procurement.LedgerGateway,
	engine *procurement.ReconciliationEngine,
	policy procurement.ApprovalPolicy,
	notifier procurement.NotificationPort,
	retrier *Retrier,
	approverEmail string,
	logger *zap.Logger,
) *ProcessService {
	return &ProcessService{
		repo:          repo,
		gateway:       gateway,
		engine:        engine,
		policy:        policy,
		notifier:      notifier,
		retrier:       retrier,
		approverEmail: approverEmail,
		logger:        logger,
	}
}

// SetBusinessMetrics sets the business metrics collector
func (s *ProcessService) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	s.businessMetrics = bm
}

// Process runs the full workflow for one purchase order.
// Orders in pending or error status are eligible; anything else is an
// invalid-state error, and losing the claim race reports the order as
// locked by another run.
func (s *ProcessService) Process(ctx context.Context, poNumber, actor string) (*ProcessResult, error) {
	po, err := s.repo.FindByNumber(ctx, poNumber)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		if s.businessMetrics != nil {
			s.businessMetrics.RecordProcessingDuration(ctx, time.Since(start), string(po.Status))
		}
	}()

	if !po.Status.CanStartProcessing() {
		if po.Status == procurement.POStatusProcessing {
			return nil, shared.ErrAlreadyLocked
		}
		return nil, shared.NewDomainError("INVALID_STATE",
			fmt.Sprintf("Purchase order %s cannot be processed from status %s", poNumber, po.Status))
	}

	claimed, err := s.repo.CompareAndSetProcessing(ctx, poNumber, actor,
		procurement.POStatusPending, procurement.POStatusError)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, shared.ErrAlreadyLocked
	}

	if err := po.StartProcessing(actor); err != nil {
		// The store already moved the row to processing; bring it back out
		return nil, s.fail(ctx, po, err.Error())
	}

	ctx, log := logger.WithPONumber(ctx, s.logger, poNumber)
	log.Info("Processing purchase order", zap.String("actor", actor))

	if err := po.Validate(); err != nil {
		log.Warn("Purchase order failed validation", zap.Error(err))
		return nil, s.fail(ctx, po, fmt.Sprintf("validation failed: %v", err))
	}

	// Best-effort lock on the external document while we work on it
	var lockedDoc string
	defer func() {
		if lockedDoc != "" {
			if err := s.gateway.UnlockDocument(ctx, lockedDoc); err != nil {
				log.Warn("Failed to unlock ledger document",
					zap.String("doc_number", lockedDoc),
					zap.Error(err))
			}
		}
	}()
	if po.LedgerDocNumber != "" {
		s.lockDocument(ctx, po, po.LedgerDocNumber, &lockedDoc)
	}

	snapshot, err := s.fetchSnapshot(ctx, poNumber)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, s.fail(ctx, po, "purchase order not found in ledger")
		}
		return nil, s.fail(ctx, po, fmt.Sprintf("ledger fetch failed: %v", err))
	}

	po.LedgerDocNumber = snapshot.DocNumber
	if lockedDoc == "" && snapshot.DocNumber != "" {
		s.lockDocument(ctx, po, snapshot.DocNumber, &lockedDoc)
	}

	report := s.engine.Reconcile(po, snapshot)
	log.Info("Reconciliation finished",
		zap.Int("mismatches", len(report.Mismatches)),
		zap.Bool("blocking", report.HasBlocking()))
	if s.businessMetrics != nil {
		for _, mm := range report.Mismatches {
			s.businessMetrics.RecordReconciliationMismatch(ctx, string(mm.Severity))
		}
	}

	decision := s.policy.Decide(po, report)
	if decision == nil {
		reason := report.Summary()
		if !report.HasBlocking() {
			reason = fmt.Sprintf("amount %s exceeds auto-approval threshold", po.TotalAmount.StringFixed(2))
		}
		if err := po.RequireApproval(reason); err != nil {
			return nil, s.fail(ctx, po, err.Error())
		}
		if err := s.repo.Save(ctx, po); err != nil {
			return nil, err
		}
		drainEvents(s.logger, po)
		s.recordOutcome(ctx, string(procurement.POStatusAwaitingApproval))
		s.notify(ctx, po, procurement.Notification{
			PONumber:  po.PONumber,
			Kind:      procurement.NotificationKindApprovalRequired,
			Recipient: s.approverEmail,
			Subject:   fmt.Sprintf("Purchase order %s requires approval", po.PONumber),
			Message:   fmt.Sprintf("Purchase order %s (%s %s) needs a manual decision: %s", po.PONumber, po.Currency, po.TotalAmount.StringFixed(2), reason),
		})
		return &ProcessResult{
			PONumber:       po.PONumber,
			Outcome:        OutcomePendingApproval,
			Status:         string(po.Status),
			Message:        reason,
			Reconciliation: toReconciliationResponse(&report),
			Order:          toPurchaseOrderResponse(po),
		}, nil
	}

	if err := po.Approve(decision.ApprovedBy); err != nil {
		return nil, s.fail(ctx, po, err.Error())
	}
	return s.finalize(ctx, po, decision, &report)
}

// finalize posts the invoice for an approved order and completes it.
// Shared by the automatic path and the manual approval path. The completion
// write is version-guarded so it cannot overwrite a concurrently settled
// decision.
func (s *ProcessService) finalize(ctx context.Context, po *procurement.PurchaseOrder, decision *procurement.ApprovalDecision, report *procurement.ReconciliationReport) (*ProcessResult, error) {
	var invoiceNumber string
	if decision.PostInvoice {
		err := s.retrier.Do(ctx, func(ctx context.Context) error {
			number, postErr := s.gateway.PostInvoice(ctx, po)
			if postErr != nil {
				return postErr
			}
			invoiceNumber = number
			return nil
		})
		if err != nil {
			s.logger.Error("Invoice posting failed",
				zap.String("po_number", po.PONumber),
				zap.Error(err))
			return nil, s.fail(ctx, po, fmt.Sprintf("invoice posting failed: %v", err))
		}
	}

	if err := po.Complete(); err != nil {
		return nil, s.fail(ctx, po, err.Error())
	}
	if err := s.repo.SaveWithLock(ctx, po); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			s.logger.Warn("Purchase order changed while completing",
				zap.String("po_number", po.PONumber))
		}
		return nil, err
	}
	drainEvents(s.logger, po)

	s.logger.Info("Purchase order completed",
		zap.String("po_number", po.PONumber),
		zap.String("approved_by", decision.ApprovedBy),
		zap.String("invoice_number", invoiceNumber))
	s.recordOutcome(ctx, string(procurement.POStatusCompleted))
	s.notify(ctx, po, procurement.Notification{
		PONumber:  po.PONumber,
		Kind:      procurement.NotificationKindCompleted,
		Recipient: s.recipientFor(po),
		Subject:   fmt.Sprintf("Purchase order %s completed", po.PONumber),
		Message:   fmt.Sprintf("Purchase order %s was approved by %s and finalized. Invoice: %s", po.PONumber, decision.ApprovedBy, invoiceNumber),
	})

	return &ProcessResult{
		PONumber:       po.PONumber,
		Outcome:        OutcomeCompleted,
		Status:         string(po.Status),
		Message:        decision.Reason,
		InvoiceNumber:  invoiceNumber,
		Reconciliation: toReconciliationResponse(report),
		Order:          toPurchaseOrderResponse(po),
	}, nil
}

// fail moves the order to error status, persists it and reports the failure.
// The returned error carries the reason so callers surface a typed failure.
func (s *ProcessService) fail(ctx context.Context, po *procurement.PurchaseOrder, reason string) error {
	if err := po.MarkError(reason); err != nil {
		s.logger.Error("Failed to mark purchase order as errored",
			zap.String("po_number", po.PONumber),
			zap.Error(err))
		return err
	}
	if err := s.repo.SaveWithLock(ctx, po); err != nil {
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// Someone else settled the order first; keep their state and
			// report the failure to the caller only
			s.logger.Warn("Purchase order changed while recording failure",
				zap.String("po_number", po.PONumber),
				zap.String("reason", reason))
			return shared.NewDomainError("PROCESSING_FAILED", reason)
		}
		s.logger.Error("Failed to persist errored purchase order",
			zap.String("po_number", po.PONumber),
			zap.Error(err))
		return err
	}
	drainEvents(s.logger, po)
	s.recordOutcome(ctx, string(procurement.POStatusError))
	s.notify(ctx, po, procurement.Notification{
		PONumber:  po.PONumber,
		Kind:      procurement.NotificationKindFailed,
		Recipient: s.approverEmail,
		Subject:   fmt.Sprintf("Purchase order %s processing failed", po.PONumber),
		Message:   fmt.Sprintf("Processing of purchase order %s failed: %s", po.PONumber, reason),
	})
	return shared.NewDomainError("PROCESSING_FAILED", reason)
}

func (s *ProcessService) fetchSnapshot(ctx context.Context, poNumber string) (*procurement.LedgerSnapshot, error) {
	var snapshot *procurement.LedgerSnapshot
	err := s.retrier.Do(ctx, func(ctx context.Context) error {
		fetched, fetchErr := s.gateway.FetchPO(ctx, poNumber)
		if fetchErr != nil {
			return fetchErr
		}
		snapshot = fetched
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *ProcessService) lockDocument(ctx context.Context, po *procurement.PurchaseOrder, docNumber string, lockedDoc *string) {
	if err := s.gateway.LockDocument(ctx, docNumber); err != nil {
		s.logger.Warn("Failed to lock ledger document",
			zap.String("po_number", po.PONumber),
			zap.String("doc_number", docNumber),
			zap.Error(err))
		return
	}
	*lockedDoc = docNumber
}

// notify delivers best-effort: failures are logged, never propagated
func (s *ProcessService) notify(ctx context.Context, po *procurement.PurchaseOrder, n procurement.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("Notification delivery failed",
			zap.String("po_number", po.PONumber),
			zap.String("kind", string(n.Kind)),
			zap.Error(err))
		if s.businessMetrics != nil {
			s.businessMetrics.RecordNotificationFailure(ctx, string(n.Kind))
		}
	}
}

// drainEvents logs the aggregate's pending domain events and clears them.
// Events have no outbox here, the log stream is their outbound channel.
func drainEvents(log *zap.Logger, po *procurement.PurchaseOrder) {
	for _, ev := range po.GetDomainEvents() {
		log.Debug("Domain event",
			zap.String("event_type", ev.EventType()),
			zap.String("po_number", po.PONumber))
	}
	po.ClearDomainEvents()
}

func (s *ProcessService) recordOutcome(ctx context.Context, status string) {
	if s.businessMetrics != nil {
		s.businessMetrics.RecordProcessingOutcome(ctx, status)
	}
}

func (s *ProcessService) recipientFor(po *procurement.PurchaseOrder) string {
	if po.CreatedBy != "" {
		return po.CreatedBy
	}
	return s.approverEmail
}
