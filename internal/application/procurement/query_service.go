package procurement

import (
	"context"
	"fmt"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared"
)

// QueryService serves read-only views of purchase orders
type QueryService struct {
	repo procurement.PurchaseOrderRepository
}

// NewQueryService creates a new QueryService
func NewQueryService(repo procurement.PurchaseOrderRepository) *QueryService {
	return &QueryService{repo: repo}
}

// GetByNumber retrieves a purchase order by its number
func (s *QueryService) GetByNumber(ctx context.Context, poNumber string) (*PurchaseOrderResponse, error) {
	po, err := s.repo.FindByNumber(ctx, poNumber)
	if err != nil {
		return nil, err
	}
	return toPurchaseOrderResponse(po), nil
}

// List returns a page of purchase orders matching the query
func (s *QueryService) List(ctx context.Context, query ListPurchaseOrdersQuery) (*PurchaseOrderListResponse, error) {
	filter := procurement.ListFilter{
		Vendor:   query.Vendor,
		Page:     query.Page,
		PageSize: query.PageSize,
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize < 1 || filter.PageSize > 100 {
		filter.PageSize = 20
	}
	if query.Status != "" {
		status := procurement.POStatus(query.Status)
		if !status.IsValid() {
			return nil, shared.NewDomainError("INVALID_INPUT", fmt.Sprintf("Unknown status: %s", query.Status))
		}
		filter.Status = &status
	}

	orders, total, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	items := make([]PurchaseOrderResponse, 0, len(orders))
	for idx := range orders {
		items = append(items, *toPurchaseOrderResponse(&orders[idx]))
	}
	return &PurchaseOrderListResponse{
		Items:    items,
		Total:    total,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}, nil
}

// Summary reports purchase order counts per status
func (s *QueryService) Summary(ctx context.Context) (*StatusSummary, error) {
	statuses := []procurement.POStatus{
		procurement.POStatusPending,
		procurement.POStatusProcessing,
		procurement.POStatusAwaitingApproval,
		procurement.POStatusApproved,
		procurement.POStatusRejected,
		procurement.POStatusCompleted,
		procurement.POStatusError,
	}

	summary := &StatusSummary{ByStatus: make(map[string]int64, len(statuses))}
	for _, status := range statuses {
		count, err := s.repo.CountByStatus(ctx, status)
		if err != nil {
			return nil, err
		}
		summary.ByStatus[string(status)] = count
		summary.Total += count
	}
	return summary, nil
}
