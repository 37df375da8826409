package procurement

import (
	"context"
	"testing"

	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestQueryService_GetByNumber(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	service := NewQueryService(repo)

	po := newTestOrder(t, "PO-1002", "16", "200.00")
	repo.On("FindByNumber", mock.Anything, "PO-1002").Return(po, nil)

	resp, err := service.GetByNumber(context.Background(), "PO-1002")

	require.NoError(t, err)
	assert.Equal(t, "PO-1002", resp.PONumber)
	assert.Equal(t, "3200.00", resp.TotalAmount)
	assert.Equal(t, "BRL", resp.Currency)
	assert.Len(t, resp.Items, 1)
}

func TestQueryService_GetByNumber_NotFound(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	service := NewQueryService(repo)

	repo.On("FindByNumber", mock.Anything, "PO-9999").Return(nil, shared.ErrNotFound)

	_, err := service.GetByNumber(context.Background(), "PO-9999")

	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestQueryService_List_NormalizesPagination(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	service := NewQueryService(repo)

	po := newTestOrder(t, "PO-1002", "16", "200.00")
	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f procurement.ListFilter) bool {
		return f.Page == 1 && f.PageSize == 20
	})).Return([]procurement.PurchaseOrder{*po}, int64(1), nil)

	resp, err := service.List(context.Background(), ListPurchaseOrdersQuery{Page: -5, PageSize: 9999})

	require.NoError(t, err)
	assert.Equal(t, int64(1), resp.Total)
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.PageSize)
	assert.Len(t, resp.Items, 1)
}

func TestQueryService_List_RejectsUnknownStatus(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	service := NewQueryService(repo)

	_, err := service.List(context.Background(), ListPurchaseOrdersQuery{Status: "bogus"})

	require.Error(t, err)
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	repo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
}

func TestQueryService_Summary(t *testing.T) {
	repo := new(MockPurchaseOrderRepository)
	service := NewQueryService(repo)

	counts := map[procurement.POStatus]int64{
		procurement.POStatusPending:          3,
		procurement.POStatusProcessing:       1,
		procurement.POStatusAwaitingApproval: 2,
		procurement.POStatusApproved:         0,
		procurement.POStatusRejected:         1,
		procurement.POStatusCompleted:        7,
		procurement.POStatusError:            1,
	}
	for status, count := range counts {
		repo.On("CountByStatus", mock.Anything, status).Return(count, nil)
	}

	summary, err := service.Summary(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(15), summary.Total)
	assert.Equal(t, int64(7), summary.ByStatus["completed"])
	assert.Equal(t, int64(2), summary.ByStatus["awaiting_approval"])
}
