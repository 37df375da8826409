package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/erp/backend/internal/domain/procurement"
	"github.com/erp/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// newMockPurchaseOrderRepository creates a GormPurchaseOrderRepository with a mocked SQL connection
func newMockPurchaseOrderRepository(t *testing.T) (*GormPurchaseOrderRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormPurchaseOrderRepository(gormDB), mock, mockDB
}

func orderRows(id uuid.UUID) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "version", "po_number", "vendor_code",
		"vendor_name", "total_amount", "currency", "status", "locked_by",
	}).AddRow(id, now, now, 1, "PO-1002", "V014",
		"Fornecedor Beta", decimal.RequireFromString("3200.00"), "BRL", "pending", "")
}

func itemRows(orderID uuid.UUID) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "order_id", "item_number", "description", "quantity", "unit_price", "total_price",
	}).AddRow(uuid.New(), orderID, "10", "Roteador",
		decimal.NewFromInt(2), decimal.RequireFromString("1600.00"), decimal.RequireFromString("3200.00"))
}

func TestGormPurchaseOrderRepository_FindByNumber(t *testing.T) {
	t.Run("finds order with items", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "purchase_orders" WHERE po_number = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("PO-1002", 1).
			WillReturnRows(orderRows(orderID))
		mock.ExpectQuery(`SELECT \* FROM "purchase_order_items" WHERE "purchase_order_items"\."order_id" = \$1`).
			WithArgs(orderID).
			WillReturnRows(itemRows(orderID))

		po, err := repo.FindByNumber(context.Background(), "PO-1002")

		assert.NoError(t, err)
		require.NotNil(t, po)
		assert.Equal(t, "PO-1002", po.PONumber)
		assert.Equal(t, procurement.POStatusPending, po.Status)
		require.Len(t, po.Items, 1)
		assert.Equal(t, "10", po.Items[0].ItemNumber)
		assert.True(t, po.TotalAmount.Equal(decimal.RequireFromString("3200.00")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for unknown number", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT \* FROM "purchase_orders" WHERE po_number = \$1 ORDER BY .* LIMIT .*`).
			WithArgs("PO-9999", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		po, err := repo.FindByNumber(context.Background(), "PO-9999")

		assert.Nil(t, po)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPurchaseOrderRepository_FindAll(t *testing.T) {
	t.Run("filters by status and paginates", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		orderID := uuid.New()
		status := procurement.POStatusPending

		mock.ExpectQuery(`SELECT count\(\*\) FROM "purchase_orders" WHERE status = \$1`).
			WithArgs(string(status)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`SELECT \* FROM "purchase_orders" WHERE status = \$1 ORDER BY created_at DESC LIMIT .*`).
			WillReturnRows(orderRows(orderID))
		mock.ExpectQuery(`SELECT \* FROM "purchase_order_items" WHERE "purchase_order_items"\."order_id" = \$1`).
			WithArgs(orderID).
			WillReturnRows(itemRows(orderID))

		orders, total, err := repo.FindAll(context.Background(), procurement.ListFilter{
			Status:   &status,
			Page:     1,
			PageSize: 20,
		})

		assert.NoError(t, err)
		assert.Equal(t, int64(1), total)
		require.Len(t, orders, 1)
		assert.Equal(t, "PO-1002", orders[0].PONumber)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPurchaseOrderRepository_SaveWithLock(t *testing.T) {
	t.Run("returns conflict when version moved", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		po := seededOrder(t)

		mock.ExpectExec(`UPDATE "purchase_orders" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveWithLock(context.Background(), po)

		assert.Equal(t, shared.ErrConcurrencyConflict, err)
		assert.Equal(t, 1, po.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("succeeds and bumps the version", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		po := seededOrder(t)

		mock.ExpectExec(`UPDATE "purchase_orders" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveWithLock(context.Background(), po)

		assert.NoError(t, err)
		assert.Equal(t, 2, po.Version)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPurchaseOrderRepository_CompareAndSetProcessing(t *testing.T) {
	t.Run("claims an unclaimed pending order", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "purchase_orders" SET .* WHERE po_number = \$\d+ AND status IN \(.*\) AND \(locked_by = '' OR locked_by IS NULL\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.CompareAndSetProcessing(context.Background(), "PO-1002", "run-1",
			procurement.POStatusPending, procurement.POStatusError)

		assert.NoError(t, err)
		assert.True(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("loses the claim when no row matches", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "purchase_orders" SET .* WHERE po_number = \$\d+ AND status IN \(.*\) AND \(locked_by = '' OR locked_by IS NULL\)`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := repo.CompareAndSetProcessing(context.Background(), "PO-1002", "run-2",
			procurement.POStatusPending, procurement.POStatusError)

		assert.NoError(t, err)
		assert.False(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPurchaseOrderRepository_ClaimForApproval(t *testing.T) {
	t.Run("claims an awaiting order", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "purchase_orders" SET .* WHERE po_number = \$\d+ AND status = \$\d+ AND \(locked_by = '' OR locked_by IS NULL\)`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		claimed, err := repo.ClaimForApproval(context.Background(), "PO-1001", "maria@example.com")

		assert.NoError(t, err)
		assert.True(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns false when already claimed", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectExec(`UPDATE "purchase_orders" SET .*`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		claimed, err := repo.ClaimForApproval(context.Background(), "PO-1001", "joao@example.com")

		assert.NoError(t, err)
		assert.False(t, claimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormPurchaseOrderRepository_CountByStatus(t *testing.T) {
	t.Run("counts orders in a status", func(t *testing.T) {
		repo, mock, mockDB := newMockPurchaseOrderRepository(t)
		defer mockDB.Close()

		mock.ExpectQuery(`SELECT count\(\*\) FROM "purchase_orders" WHERE status = \$1`).
			WithArgs(string(procurement.POStatusCompleted)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

		count, err := repo.CountByStatus(context.Background(), procurement.POStatusCompleted)

		assert.NoError(t, err)
		assert.Equal(t, int64(7), count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func seededOrder(t *testing.T) *procurement.PurchaseOrder {
	t.Helper()
	po, err := procurement.NewPurchaseOrder("PO-1002", "V014", "Fornecedor Beta", "BRL", []procurement.POItem{
		{
			ItemNumber:  "10",
			Description: "Roteador",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.RequireFromString("1600.00"),
			TotalPrice:  decimal.RequireFromString("3200.00"),
		},
	})
	require.NoError(t, err)
	return po
}
