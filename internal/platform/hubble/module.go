package hubble

import "go.uber.org/fx"

// Module exposes the partner API client via Fx.
var Module = fx.Options(
	fx.Provide(NewAuthClient),
	fx.Provide(NewClient),
)
