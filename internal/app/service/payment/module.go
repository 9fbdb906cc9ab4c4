package payment

import (
	"go.uber.org/fx"

	"github.com/cardwave/giftpay/internal/app/service/callbacklog"
	"github.com/cardwave/giftpay/internal/platform/plisio"
)

// Module wires the payment store and lifecycle manager. The Fulfiller
// binding lives in the fulfillment package.
var Module = fx.Options(
	fx.Provide(
		NewStore,
		NewService,
		func(c *plisio.Client) Gateway { return c },
		func(s *callbacklog.Service) CallbackRecorder { return s },
	),
)
