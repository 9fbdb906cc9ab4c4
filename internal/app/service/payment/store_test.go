package payment

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cardwave/giftpay/pkg/types"
)

func newMockStore(t *testing.T) (Store, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return NewStore(db, zap.NewNop().Sugar()), mock
}

func TestStoreResolveByOrderID(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"id", "order_id", "user_id", "amount", "currency", "status", "invoice_id"}).
		AddRow("p1", "order_1", "u1", "5", "USDT", "pending", "txn1")
	mock.ExpectQuery(`SELECT \* FROM "payment" WHERE order_id = \$1`).WillReturnRows(rows)

	p, err := store.Resolve(context.Background(), "order_1")
	require.NoError(t, err)
	require.Equal(t, "p1", p.ID)
	require.Equal(t, types.PaymentStatusPending, p.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreResolveFallsBackToInvoiceID(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "payment" WHERE order_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	rows := sqlmock.NewRows([]string{"id", "order_id", "invoice_id", "status"}).
		AddRow("p1", "order_1", "txn1", "completed")
	mock.ExpectQuery(`SELECT \* FROM "payment" WHERE invoice_id = \$1`).WillReturnRows(rows)

	p, err := store.Resolve(context.Background(), "txn1")
	require.NoError(t, err)
	require.Equal(t, "order_1", p.OrderID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreResolveStripsProviderPrefix(t *testing.T) {
	store, mock := newMockStore(t)

	// The decorated id misses on both columns, then the stripped id is tried.
	mock.ExpectQuery(`SELECT \* FROM "payment" WHERE order_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "payment" WHERE invoice_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "payment" WHERE order_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	rows := sqlmock.NewRows([]string{"id", "order_id", "invoice_id", "status"}).
		AddRow("p1", "order_1", "txn1", "pending")
	mock.ExpectQuery(`SELECT \* FROM "payment" WHERE invoice_id = \$1`).WillReturnRows(rows)

	p, err := store.Resolve(context.Background(), "plisio_txn1")
	require.NoError(t, err)
	require.Equal(t, "txn1", p.InvoiceID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreResolveNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT \* FROM "payment" WHERE order_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectQuery(`SELECT \* FROM "payment" WHERE invoice_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.Resolve(context.Background(), "order_missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreResolveEmptyID(t *testing.T) {
	store, _ := newMockStore(t)
	_, err := store.Resolve(context.Background(), "  ")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStoreUpdateNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "payment" SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), "p-missing", map[string]any{"status": types.PaymentStatusExpired})
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreUpdateEmptyPatchIsNoop(t *testing.T) {
	store, mock := newMockStore(t)
	require.NoError(t, store.Update(context.Background(), "p1", nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreClaimFulfillment(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "payment" SET .+ WHERE id = \$\d+ AND fulfillment_claimed_at IS NULL AND voucher_details IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := store.ClaimFulfillment(context.Background(), "p1")
	require.NoError(t, err)
	require.True(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreClaimFulfillmentLosesRace(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`UPDATE "payment" SET .+ AND fulfillment_claimed_at IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := store.ClaimFulfillment(context.Background(), "p1")
	require.NoError(t, err)
	require.False(t, claimed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreReleaseFulfillmentKeepsVoucheredRows(t *testing.T) {
	store, mock := newMockStore(t)

	// The release predicate refuses to clear the claim once vouchers exist.
	mock.ExpectExec(`UPDATE "payment" SET .+ WHERE id = \$\d+ AND voucher_details IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.ReleaseFulfillment(context.Background(), "p1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreSetVouchersIsSetOnce(t *testing.T) {
	store, mock := newMockStore(t)
	vouchers := []types.VoucherDetail{{CardNumber: "4111"}}

	mock.ExpectExec(`UPDATE "payment" SET .+ WHERE id = \$\d+ AND voucher_details IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	written, err := store.SetVouchers(context.Background(), "p1", vouchers)
	require.NoError(t, err)
	require.True(t, written)

	mock.ExpectExec(`UPDATE "payment" SET .+ WHERE id = \$\d+ AND voucher_details IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	written, err = store.SetVouchers(context.Background(), "p1", vouchers)
	require.NoError(t, err)
	require.False(t, written)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreScanPagination(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "payment"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(42))
	rows := sqlmock.NewRows([]string{"id", "order_id", "status", "created_at"}).
		AddRow("p1", "order_1", "pending", time.Now()).
		AddRow("p2", "order_2", "completed", time.Now())
	mock.ExpectQuery(`SELECT \* FROM "payment" ORDER BY "created_at" DESC LIMIT \$\d+ OFFSET \$\d+`).
		WillReturnRows(rows)

	res, err := store.Scan(context.Background(), &ScanPaymentsRequest{From: 10, Size: 2, SortBy: "created_at"})
	require.NoError(t, err)
	require.EqualValues(t, 42, res.Total)
	require.Len(t, res.Items, 2)
	require.NoError(t, mock.ExpectationsWereMet())
}
