package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/cardwave/giftpay/internal/app/service/rates"
	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/internal/platform/hubble"
	"github.com/cardwave/giftpay/pkg/logctx"
	"github.com/cardwave/giftpay/pkg/tool"
	"github.com/cardwave/giftpay/pkg/types"
)

const (
	defaultCustomerName = "GiftPay Customer"
	// The partner requires a phone number on every order; payments initiated
	// from the bot do not carry one.
	placeholderPhone = "9999999999"
)

// partnerAPI is the slice of the partner client the fulfiller needs.
type partnerAPI interface {
	PlaceOrder(ctx context.Context, req *hubble.OrderRequest) (*hubble.OrderResponse, error)
	GetOrderByReference(ctx context.Context, referenceID string) (map[string]any, error)
}

// Service turns a confirmed payment into partner gift-card vouchers. It
// never writes the payment row; the lifecycle owns voucher persistence.
type Service struct {
	db      *gorm.DB
	partner partnerAPI
	log     *zap.SugaredLogger
}

func New(db *gorm.DB, partner *hubble.Client, log *zap.SugaredLogger) *Service {
	return &Service{db: db, partner: partner, log: log}
}

// Fulfill places the partner order for a confirmed payment and returns the
// minted vouchers. The payment OrderID doubles as the partner reference id,
// so a crashed attempt is recovered by reference instead of ordering twice.
func (s *Service) Fulfill(ctx context.Context, p *models.Payment) ([]types.VoucherDetail, error) {
	if p == nil {
		return nil, fmt.Errorf("nil payment")
	}
	log := logctx.FromCtx(ctx, s.log)

	extra := p.Extra.Data()
	if extra == nil || extra.ProductID == "" {
		return nil, fmt.Errorf("payment %s has no product to fulfill", p.OrderID)
	}

	if vouchers := s.recoverByReference(ctx, p.OrderID); len(vouchers) > 0 {
		log.Infow("recovered partner order by reference", "order_id", p.OrderID)
		return vouchers, nil
	}

	amount := p.LocalAmountDecimal().Round(rates.FiatPlaces)
	if amount.IsZero() {
		return nil, fmt.Errorf("payment %s has no fiat amount", p.OrderID)
	}

	order, err := s.partner.PlaceOrder(ctx, &hubble.OrderRequest{
		ProductID:   extra.ProductID,
		ReferenceID: p.OrderID,
		Amount:      amount.String(),
		DenominationDetails: []hubble.DenominationDetail{
			{Denomination: amount.String(), Quantity: 1},
		},
		CustomerDetails: hubble.CustomerDetails{
			Name:        defaultCustomerName,
			PhoneNumber: placeholderPhone,
			Email:       customerEmail(p),
		},
		RecipientDetails: hubble.RecipientDetails{
			Name:        defaultCustomerName,
			PhoneNumber: placeholderPhone,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("place partner order for %s: %w", p.OrderID, err)
	}

	s.persistOrder(ctx, p.OrderID, order)

	if order.FailureReason != "" {
		return nil, fmt.Errorf("partner rejected order %s: %s", p.OrderID, order.FailureReason)
	}
	if len(order.Vouchers) == 0 {
		return nil, fmt.Errorf("partner order %s returned no vouchers (status %s)", p.OrderID, order.Status)
	}
	log.Infow("partner order placed",
		"order_id", p.OrderID, "partner_order_id", order.ID, "vouchers", len(order.Vouchers))
	return order.Vouchers, nil
}

// recoverByReference checks whether an order for this reference already
// exists on the partner side. A previous attempt may have placed the order
// and crashed before the vouchers reached the store.
func (s *Service) recoverByReference(ctx context.Context, referenceID string) []types.VoucherDetail {
	var existing models.PartnerOrder
	err := s.db.WithContext(ctx).
		Where("reference_id = ?", referenceID).
		Take(&existing).Error
	if err != nil {
		return nil
	}

	raw, err := s.partner.GetOrderByReference(ctx, referenceID)
	if err != nil {
		logctx.FromCtx(ctx, s.log).Warnw("partner order lookup by reference failed",
			"reference_id", referenceID, "err", err)
		return nil
	}
	body, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	return parseRecoveredVouchers(body)
}

func parseRecoveredVouchers(raw []byte) []types.VoucherDetail {
	var probe struct {
		Vouchers []types.VoucherDetail `json:"vouchers"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil
	}
	return probe.Vouchers
}

// persistOrder records the partner's response. Failure here is logged and
// swallowed: the vouchers are already minted and must reach the caller.
func (s *Service) persistOrder(ctx context.Context, referenceID string, order *hubble.OrderResponse) {
	body, err := json.Marshal(order.Raw)
	if err != nil {
		body = []byte("{}")
	}
	row := &models.PartnerOrder{
		ID:             tool.GenerateUUIDV7(),
		PartnerOrderID: order.ID,
		ReferenceID:    referenceID,
		Status:         order.Status,
		RawResponse:    datatypes.JSON(body),
	}
	if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
		logctx.FromCtx(ctx, s.log).Errorw("failed to persist partner order",
			"reference_id", referenceID, "partner_order_id", order.ID, "err", err)
	}
}

func customerEmail(p *models.Payment) string {
	if extra := p.Extra.Data(); extra != nil && extra.Email != "" {
		return extra.Email
	}
	return fmt.Sprintf("user-%s@giftcardstore.com", p.UserID)
}
