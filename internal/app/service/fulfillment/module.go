package fulfillment

import (
	"go.uber.org/fx"

	"github.com/cardwave/giftpay/internal/app/service/payment"
)

var Module = fx.Options(
	fx.Provide(
		New,
		func(s *Service) payment.Fulfiller { return s },
	),
)
