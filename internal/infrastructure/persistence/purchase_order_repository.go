package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared"
	"github.com/erp/backend/internal/infrastructure/logger"
	"github.com/erp/backend/internal/infrastructure/persistence/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GormPurchaseOrderRepository implements PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

// FindByNumber finds a purchase order by its PO number
func (r *GormPurchaseOrderRepository) FindByNumber(ctx context.Context, poNumber string) (*procurement.PurchaseOrder, error) {
	var model models.PurchaseOrderModel
	if err := r.db.WithContext(ctx).
		Preload("Items").
		Where("po_number = ?", poNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAll lists purchase orders matching the filter, newest first
func (r *GormPurchaseOrderRepository) FindAll(ctx context.Context, filter procurement.ListFilter) ([]procurement.PurchaseOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.PurchaseOrderModel{})
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.Vendor != "" {
		query = query.Where("vendor_code = ?", filter.Vendor)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orderModels []models.PurchaseOrderModel
	offset := (filter.Page - 1) * filter.PageSize
	if err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.PageSize).
		Find(&orderModels).Error; err != nil {
		return nil, 0, err
	}

	orders := make([]procurement.PurchaseOrder, len(orderModels))
	for i, model := range orderModels {
		orders[i] = *model.ToDomain()
	}
	return orders, total, nil
}

// Save persists the purchase order and replaces its items
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, po *procurement.PurchaseOrder) error {
	model := models.PurchaseOrderModelFromDomain(po)
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		items := model.Items
		model.Items = nil
		if err := tx.Save(model).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", model.ID).
			Delete(&models.PurchaseOrderItemModel{}).Error; err != nil {
			return err
		}
		if len(items) > 0 {
			if err := tx.Create(&items).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveWithLock saves with optimistic locking. The guard is the version the
// aggregate carried when it was loaded (or claimed); a successful write bumps
// it, so any write or claim that landed in between fails the predicate.
func (r *GormPurchaseOrderRepository) SaveWithLock(ctx context.Context, po *procurement.PurchaseOrder) error {
	model := models.PurchaseOrderModelFromDomain(po)
	model.Items = nil
	model.Version = po.Version + 1
	// Select("*") forces zero-valued columns through, so a released lock
	// (locked_by = '') is actually written
	result := r.db.WithContext(ctx).
		Model(model).
		Select("*").
		Omit("Items").
		Where("id = ? AND version = ?", po.ID, po.Version).
		Updates(model)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	po.IncrementVersion()
	return nil
}

// CompareAndSetProcessing claims the order for a processing run with a single
// conditional update, so concurrent runs race at the store rather than in
// application memory
func (r *GormPurchaseOrderRepository) CompareAndSetProcessing(ctx context.Context, poNumber, lockedBy string, expected ...procurement.POStatus) (bool, error) {
	if len(expected) == 0 {
		expected = []procurement.POStatus{procurement.POStatusPending, procurement.POStatusError}
	}
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("po_number = ? AND status IN ? AND (locked_by = '' OR locked_by IS NULL)", poNumber, expected).
		Updates(map[string]interface{}{
			"status":         procurement.POStatusProcessing,
			"locked_by":      lockedBy,
			"locked_at":      now,
			"failure_reason": "",
			"version":        gorm.Expr("version + 1"),
			"updated_at":     now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		logger.FromContext(ctx).Debug("Processing claim lost",
			zap.String("po_number", poNumber),
			zap.String("locked_by", lockedBy))
		return false, nil
	}
	return true, nil
}

// ClaimForApproval records the lock holder on an order awaiting a decision,
// again as a single conditional update. The version bump fails the optimistic
// guard of any decision that loaded the order before the claim.
func (r *GormPurchaseOrderRepository) ClaimForApproval(ctx context.Context, poNumber, lockedBy string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("po_number = ? AND status = ? AND (locked_by = '' OR locked_by IS NULL)",
			poNumber, procurement.POStatusAwaitingApproval).
		Updates(map[string]interface{}{
			"locked_by":  lockedBy,
			"locked_at":  now,
			"version":    gorm.Expr("version + 1"),
			"updated_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		logger.FromContext(ctx).Debug("Approval claim lost",
			zap.String("po_number", poNumber),
			zap.String("locked_by", lockedBy))
		return false, nil
	}
	return true, nil
}

// CountByStatus returns the number of orders in the given status
func (r *GormPurchaseOrderRepository) CountByStatus(ctx context.Context, status procurement.POStatus) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.PurchaseOrderModel{}).
		Where("status = ?", status).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
