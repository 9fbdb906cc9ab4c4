package token

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/cardwave/giftpay/internal/platform/hubble"
)

// refreshInterval matches the partner's daily credential rotation.
const refreshInterval = 24 * time.Hour

// Module exposes the token service via Fx and starts the daily refresh job.
var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(s *Service) hubble.TokenSource { return s }),
	fx.Invoke(registerRefreshJob),
)

// registerRefreshJob logs in once at startup and then once per day. A failed
// startup login is logged, not fatal: the service can come up before the
// partner does, and callers re-attempt on demand.
func registerRefreshJob(lc fx.Lifecycle, s *Service, log *zap.SugaredLogger) {
	stop := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := s.Refresh(ctx); err != nil {
				log.Warnw("initial partner login failed", "err", err)
			}
			go func() {
				ticker := time.NewTicker(refreshInterval)
				defer ticker.Stop()
				for {
					select {
					case <-ticker.C:
						ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
						if err := s.Refresh(ctx); err != nil {
							log.Errorw("daily partner login failed", "err", err)
						}
						cancel()
					case <-stop:
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			close(stop)
			return nil
		},
	})
}
