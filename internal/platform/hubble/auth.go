package hubble

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	cfgpkg "github.com/cardwave/giftpay/pkg/config"
)

// AuthClient is the unauthenticated slice of the partner API, kept separate
// so the token service can log in without depending on the full client
// (which itself consumes the token service).
type AuthClient struct {
	inner *Client
}

func NewAuthClient(cfg *cfgpkg.Config, log *zap.SugaredLogger) *AuthClient {
	return &AuthClient{inner: &Client{
		baseURL: cfg.Partner.BaseURL,
		httpc:   &http.Client{Timeout: requestTimeout},
		log:     log,
	}}
}

func (a *AuthClient) Login(ctx context.Context, clientID, clientSecret string) (string, error) {
	return a.inner.Login(ctx, clientID, clientSecret)
}
