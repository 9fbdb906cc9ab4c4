package callbacklog

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/pkg/logctx"
	"github.com/cardwave/giftpay/pkg/tool"
)

type Service struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func New(db *gorm.DB, log *zap.SugaredLogger) *Service { return &Service{db: db, log: log} }

// Save asynchronously persists a callback log entry. Nil input is ignored.
// Logging must never slow down or fail the callback path itself.
func (s *Service) Save(ctx context.Context, entry *models.CallbackLog) {
	go func() {
		if entry == nil {
			return
		}
		if entry.ID == "" {
			entry.ID = tool.GenerateUUIDV7()
		}
		if err := s.db.Save(entry).Error; err != nil {
			logctx.FromCtx(ctx, s.log).Errorf("failed to save callback log: %v", err)
		}
	}()
}

// Module exposes the callback log service via Fx.
var Module = fx.Options(
	fx.Provide(New),
)
