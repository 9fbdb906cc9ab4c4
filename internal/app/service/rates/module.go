package rates

import "go.uber.org/fx"

// Module exposes the currency converter via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
