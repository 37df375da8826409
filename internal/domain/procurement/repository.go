package procurement

import (
	"context"
)

// ListFilter narrows and paginates purchase order listings
type ListFilter struct {
	Status   *POStatus
	Vendor   string
	Page     int
	PageSize int
}

// PurchaseOrderRepository provides durable persistence of purchase order
// state between processing runs
type PurchaseOrderRepository interface {
	// FindByNumber loads an order with its items.
	// Returns shared.ErrNotFound if no order has that number.
	FindByNumber(ctx context.Context, poNumber string) (*PurchaseOrder, error)

	// FindAll lists orders matching the filter, newest first
	FindAll(ctx context.Context, filter ListFilter) ([]PurchaseOrder, int64, error)

	// Save persists the order and its items
	Save(ctx context.Context, po *PurchaseOrder) error

	// SaveWithLock persists with an optimistic version check: the write only
	// lands if the persisted version still matches the version the aggregate
	// was loaded with, and bumps it on success. Returns
	// shared.ErrConcurrencyConflict when the persisted version moved.
	SaveWithLock(ctx context.Context, po *PurchaseOrder) error

	// CompareAndSetProcessing atomically claims the order for a processing
	// run: it sets status to processing and records the lock holder only if
	// the persisted status is one of expected. Returns false when the claim
	// was lost to a concurrent run. A won claim also bumps the persisted
	// version. This is the sole mutual-exclusion primitive; it must be a
	// single conditional update at the store so the guarantee survives
	// process restarts.
	CompareAndSetProcessing(ctx context.Context, poNumber, lockedBy string, expected ...POStatus) (bool, error)

	// ClaimForApproval atomically records the lock holder on an order that
	// awaits approval and is not already locked. Returns false when another
	// decision is in flight. A won claim bumps the persisted version so
	// decisions loaded before the claim fail their optimistic check. Like
	// CompareAndSetProcessing this must be a single conditional update at
	// the store.
	ClaimForApproval(ctx context.Context, poNumber, lockedBy string) (bool, error)

	// CountByStatus returns the number of orders currently in the status
	CountByStatus(ctx context.Context, status POStatus) (int64, error)
}
