package token

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/cardwave/giftpay/internal/models"
	"github.com/cardwave/giftpay/internal/platform/hubble"
	"github.com/cardwave/giftpay/pkg/config"
)

// unsignedJWT builds a syntactically valid JWT carrying the given claims;
// the signature is junk, which is fine since only ParseUnverified reads it.
func unsignedJWT(t *testing.T, claims map[string]any) string {
	t.Helper()
	enc := func(v any) string {
		b, err := json.Marshal(v)
		require.NoError(t, err)
		return base64.RawURLEncoding.EncodeToString(b)
	}
	return fmt.Sprintf("%s.%s.x", enc(map[string]string{"alg": "HS256", "typ": "JWT"}), enc(claims))
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(24 * time.Hour).Unix()
	got := tokenExpiry(unsignedJWT(t, map[string]any{"exp": exp}))
	require.NotNil(t, got)
	require.Equal(t, exp, got.Unix())

	require.Nil(t, tokenExpiry("opaque-token"))
	require.Nil(t, tokenExpiry(unsignedJWT(t, map[string]any{"sub": "x"})))
}

func TestStale(t *testing.T) {
	s := &Service{}

	require.True(t, s.stale(&models.ClientToken{}))

	// no expiry claim: only the daily job rotates it
	require.False(t, s.stale(&models.ClientToken{Token: "opaque"}))

	soon := time.Now().Add(time.Minute)
	require.True(t, s.stale(&models.ClientToken{Token: "t", ExpiresAt: &soon}))

	later := time.Now().Add(48 * time.Hour)
	require.False(t, s.stale(&models.ClientToken{Token: "t", ExpiresAt: &later}))
}

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	return gdb, mock
}

func TestRefresh_InsertsFirstRow(t *testing.T) {
	jwtTok := unsignedJWT(t, map[string]any{"exp": time.Now().Add(12 * time.Hour).Unix()})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"accessToken": jwtTok})
	}))
	defer srv.Close()

	cfg := &config.Config{Partner: config.PartnerConfig{
		BaseURL:      srv.URL,
		ClientID:     "cid",
		ClientSecret: "sec",
	}}

	gdb, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT \* FROM "client_token"`).
		WillReturnError(gorm.ErrRecordNotFound)
	mock.ExpectQuery(`INSERT INTO "client_token"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	s := New(cfg, gdb, hubble.NewAuthClient(cfg, zap.NewNop().Sugar()), zap.NewNop().Sugar())
	require.NoError(t, s.Refresh(context.Background()))

	// the freshly stored token is served from cache without another query
	tok, err := s.Token(context.Background())
	require.NoError(t, err)
	require.Equal(t, jwtTok, tok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefresh_RequiresCredentials(t *testing.T) {
	s := New(&config.Config{}, nil, nil, zap.NewNop().Sugar())
	require.Error(t, s.Refresh(context.Background()))
}
