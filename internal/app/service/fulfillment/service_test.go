package fulfillment

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/internal/platform/hubble"
	"github.com/cardwave/giftpay/pkg/types"
)

type fakePartner struct {
	placeCalls   int
	lastOrder    *hubble.OrderRequest
	placeResp    *hubble.OrderResponse
	placeErr     error
	byRefResp    map[string]any
	byRefErr     error
	byRefCalls   int
}

func (f *fakePartner) PlaceOrder(_ context.Context, req *hubble.OrderRequest) (*hubble.OrderResponse, error) {
	f.placeCalls++
	f.lastOrder = req
	return f.placeResp, f.placeErr
}

func (f *fakePartner) GetOrderByReference(context.Context, string) (map[string]any, error) {
	f.byRefCalls++
	return f.byRefResp, f.byRefErr
}

func newService(t *testing.T, partner *fakePartner) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	return &Service{db: db, partner: partner, log: zap.NewNop().Sugar()}, mock
}

func confirmedPayment() *models.Payment {
	return &models.Payment{
		ID:          "p1",
		OrderID:     "order_1",
		UserID:      "u1",
		Amount:      "10",
		LocalAmount: "835",
		Currency:    "USDT",
		Status:      types.PaymentStatusCompleted,
		Extra: datatypes.NewJSONType(&models.PaymentExtra{
			ProductID: "prod-amazon",
			Email:     "buyer@example.com",
		}),
	}
}

func expectNoPriorOrder(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(`SELECT \* FROM "partner_order" WHERE reference_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
}

func TestFulfillPlacesOrderAndReturnsVouchers(t *testing.T) {
	partner := &fakePartner{
		placeResp: &hubble.OrderResponse{
			ID:     "po-1",
			Status: "success",
			Vouchers: []types.VoucherDetail{
				{CardNumber: "4111", CardPin: "1234", Amount: "835"},
			},
			Raw: map[string]any{"id": "po-1"},
		},
	}
	svc, mock := newService(t, partner)
	expectNoPriorOrder(mock)
	mock.ExpectExec(`INSERT INTO "partner_order"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	vouchers, err := svc.Fulfill(context.Background(), confirmedPayment())
	require.NoError(t, err)
	require.Len(t, vouchers, 1)
	require.Equal(t, "4111", vouchers[0].CardNumber)

	require.Equal(t, 1, partner.placeCalls)
	require.Equal(t, "prod-amazon", partner.lastOrder.ProductID)
	require.Equal(t, "order_1", partner.lastOrder.ReferenceID)
	require.Equal(t, "835", partner.lastOrder.Amount)
	require.Equal(t, "buyer@example.com", partner.lastOrder.CustomerDetails.Email)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillRequiresProduct(t *testing.T) {
	svc, _ := newService(t, &fakePartner{})
	p := confirmedPayment()
	p.Extra = datatypes.NewJSONType[*models.PaymentExtra](nil)

	_, err := svc.Fulfill(context.Background(), p)
	require.ErrorContains(t, err, "no product")
}

func TestFulfillRequiresFiatAmount(t *testing.T) {
	partner := &fakePartner{}
	svc, mock := newService(t, partner)
	expectNoPriorOrder(mock)

	p := confirmedPayment()
	p.LocalAmount = ""
	_, err := svc.Fulfill(context.Background(), p)
	require.ErrorContains(t, err, "no fiat amount")
	require.Zero(t, partner.placeCalls)
}

func TestFulfillPartnerRejection(t *testing.T) {
	partner := &fakePartner{
		placeResp: &hubble.OrderResponse{
			ID:            "po-2",
			Status:        "failed",
			FailureReason: "product out of stock",
			Raw:           map[string]any{"id": "po-2"},
		},
	}
	svc, mock := newService(t, partner)
	expectNoPriorOrder(mock)
	mock.ExpectExec(`INSERT INTO "partner_order"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Fulfill(context.Background(), confirmedPayment())
	require.ErrorContains(t, err, "out of stock")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFulfillPartnerError(t *testing.T) {
	partner := &fakePartner{placeErr: errors.New("http 503")}
	svc, mock := newService(t, partner)
	expectNoPriorOrder(mock)

	_, err := svc.Fulfill(context.Background(), confirmedPayment())
	require.ErrorContains(t, err, "503")
}

func TestFulfillEmptyVoucherList(t *testing.T) {
	partner := &fakePartner{
		placeResp: &hubble.OrderResponse{
			ID:     "po-3",
			Status: "processing",
			Raw:    map[string]any{"id": "po-3"},
		},
	}
	svc, mock := newService(t, partner)
	expectNoPriorOrder(mock)
	mock.ExpectExec(`INSERT INTO "partner_order"`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	_, err := svc.Fulfill(context.Background(), confirmedPayment())
	require.ErrorContains(t, err, "no vouchers")
}

func TestFulfillRecoversExistingOrderByReference(t *testing.T) {
	partner := &fakePartner{
		byRefResp: map[string]any{
			"id": "po-old",
			"vouchers": []any{
				map[string]any{"cardNumber": "5555", "cardPin": "0000"},
			},
		},
	}
	svc, mock := newService(t, partner)
	mock.ExpectQuery(`SELECT \* FROM "partner_order" WHERE reference_id = \$1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "reference_id", "partner_order_id", "status"}).
			AddRow("row-1", "order_1", "po-old", "success"))

	vouchers, err := svc.Fulfill(context.Background(), confirmedPayment())
	require.NoError(t, err)
	require.Len(t, vouchers, 1)
	require.Equal(t, "5555", vouchers[0].CardNumber)

	require.Equal(t, 1, partner.byRefCalls)
	require.Zero(t, partner.placeCalls, "must not order twice for one reference")
	require.NoError(t, mock.ExpectationsWereMet())
}
