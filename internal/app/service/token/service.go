package token

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/internal/platform/hubble"
	"github.com/cardwave/giftpay/pkg/config"
)

// refreshSlack re-logins this long before the token's exp claim to avoid
// racing the partner's clock.
const refreshSlack = 10 * time.Minute

// Service owns the partner API bearer token: a single durable row, refreshed
// daily by the background job and on demand when a caller finds it stale.
type Service struct {
	cfg  *config.Config
	db   *gorm.DB
	auth *hubble.AuthClient
	log  *zap.SugaredLogger

	mu     sync.RWMutex
	cached *models.ClientToken
}

func New(cfg *config.Config, db *gorm.DB, auth *hubble.AuthClient, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, db: db, auth: auth, log: log}
}

// Token returns the current bearer token, refreshing it when the stored one
// is missing or inside the expiry slack.
func (s *Service) Token(ctx context.Context) (string, error) {
	if t := s.current(ctx); t != nil && !s.stale(t) {
		return t.Token, nil
	}
	if err := s.Refresh(ctx); err != nil {
		// A stale-but-present token beats failing the caller outright.
		if t := s.current(ctx); t != nil {
			s.log.Warnw("partner login failed, serving stored token", "err", err)
			return t.Token, nil
		}
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cached.Token, nil
}

// Refresh logs into the partner API and upserts the single token row.
func (s *Service) Refresh(ctx context.Context) error {
	if s.cfg.Partner.ClientID == "" || s.cfg.Partner.ClientSecret == "" {
		return fmt.Errorf("partner client credentials are not configured")
	}

	tok, err := s.auth.Login(ctx, s.cfg.Partner.ClientID, s.cfg.Partner.ClientSecret)
	if err != nil {
		return fmt.Errorf("partner login: %w", err)
	}

	row := &models.ClientToken{Token: tok, ExpiresAt: tokenExpiry(tok)}

	var existing models.ClientToken
	err = s.db.WithContext(ctx).First(&existing).Error
	switch {
	case err == nil:
		row.ID = existing.ID
		if err := s.db.WithContext(ctx).Save(row).Error; err != nil {
			return fmt.Errorf("update token row: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := s.db.WithContext(ctx).Create(row).Error; err != nil {
			return fmt.Errorf("insert token row: %w", err)
		}
	default:
		return fmt.Errorf("read token row: %w", err)
	}

	s.mu.Lock()
	s.cached = row
	s.mu.Unlock()
	s.log.Infow("partner token refreshed", "expires_at", row.ExpiresAt)
	return nil
}

func (s *Service) current(ctx context.Context) *models.ClientToken {
	s.mu.RLock()
	if s.cached != nil {
		defer s.mu.RUnlock()
		return s.cached
	}
	s.mu.RUnlock()

	var row models.ClientToken
	if err := s.db.WithContext(ctx).First(&row).Error; err != nil {
		return nil
	}
	s.mu.Lock()
	s.cached = &row
	s.mu.Unlock()
	return &row
}

func (s *Service) stale(t *models.ClientToken) bool {
	if t.Token == "" {
		return true
	}
	if t.ExpiresAt == nil {
		return false
	}
	return time.Now().After(t.ExpiresAt.Add(-refreshSlack))
}

// tokenExpiry pulls the exp claim out of the JWT without verifying the
// signature; we only use it for refresh scheduling. Opaque tokens get no
// expiry and rely on the daily job.
func tokenExpiry(tok string) *time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(tok, claims); err != nil {
		return nil
	}
	exp, ok := claims["exp"].(float64)
	if !ok || exp <= 0 {
		return nil
	}
	return lo.ToPtr(time.Unix(int64(exp), 0))
}
