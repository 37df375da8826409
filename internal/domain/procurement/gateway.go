package procurement

import (
	"context"
	"errors"
	"fmt"
)

// TransientError marks a gateway failure that is worth retrying
// (timeouts, connection resets, throttling)
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient ledger error during %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps err as a retryable gateway failure
func NewTransientError(op string, err error) *TransientError {
	return &TransientError{Op: op, Err: err}
}

// PermanentError marks a gateway failure that retrying cannot fix
// (rejected postings, authorization failures, malformed documents)
type PermanentError struct {
	Op  string
	Err error
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("permanent ledger error during %s: %v", e.Op, e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// NewPermanentError wraps err as a non-retryable gateway failure
func NewPermanentError(op string, err error) *PermanentError {
	return &PermanentError{Op: op, Err: err}
}

// IsTransient reports whether err is a retryable gateway failure
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// LedgerGateway is the port to the external system of record.
// Implementations must classify failures as TransientError or
// PermanentError so the orchestrator can apply its retry policy.
type LedgerGateway interface {
	// FetchPO retrieves the ledger's snapshot of a purchase order.
	// Returns shared.ErrNotFound if the ledger has no such order.
	FetchPO(ctx context.Context, poNumber string) (*LedgerSnapshot, error)

	// LockDocument claims the external document for exclusive processing
	LockDocument(ctx context.Context, docNumber string) error

	// UnlockDocument releases a previously locked document
	UnlockDocument(ctx context.Context, docNumber string) error

	// PostInvoice posts the invoice for an approved order and returns the
	// invoice number assigned by the ledger
	PostInvoice(ctx context.Context, po *PurchaseOrder) (string, error)
}
