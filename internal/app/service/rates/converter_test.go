package rates

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cardwave/giftpay/pkg/config"
)

func newConverter(t *testing.T, seed map[string]string) *Converter {
	t.Helper()
	cfg := &config.Config{Currency: config.CurrencyConfig{SeedRates: seed}}
	return New(cfg, zap.NewNop().Sugar())
}

func TestConvert_IdentityPair(t *testing.T) {
	c := newConverter(t, nil)
	in := decimal.RequireFromString("100")
	require.True(t, c.Convert(in, "INR", "INR").Equal(in))
	// identity works even for currencies the table has never seen
	require.True(t, c.Convert(in, "XYZ", "XYZ").Equal(in))
}

func TestConvert_ZeroAmount(t *testing.T) {
	c := newConverter(t, nil)
	require.True(t, c.Convert(decimal.Zero, "USD", "INR").IsZero())
}

func TestConvert_ThroughPivot(t *testing.T) {
	c := newConverter(t, map[string]string{"USD": "83.5", "INR": "1"})

	got := c.Convert(decimal.NewFromInt(2), "USD", "INR")
	require.True(t, got.Equal(decimal.RequireFromString("167")), got.String())

	back := c.Convert(decimal.RequireFromString("167"), "INR", "USD")
	require.True(t, back.Equal(decimal.NewFromInt(2)), back.String())
}

func TestConvert_MonotonicInAmount(t *testing.T) {
	c := newConverter(t, map[string]string{"USD": "83.5"})
	small := c.Convert(decimal.NewFromInt(10), "INR", "USD")
	large := c.Convert(decimal.NewFromInt(20), "INR", "USD")
	require.True(t, large.GreaterThan(small))
}

func TestConvert_UnknownPairFallsBack(t *testing.T) {
	c := newConverter(t, nil)

	// USD/INR keeps working through the hardwired constant even when the
	// seed table is wiped out.
	c.mu.Lock()
	c.rates = map[string]decimal.Decimal{}
	c.mu.Unlock()

	got := c.Convert(decimal.NewFromInt(1), "USD", "INR")
	require.True(t, got.Equal(decimal.RequireFromString("83.5")), got.String())

	// Fully unknown pairs pass through unchanged rather than failing.
	in := decimal.RequireFromString("42.42")
	require.True(t, c.Convert(in, "ABC", "DEF").Equal(in))
}

func TestConvert_InvalidSeedRateIgnored(t *testing.T) {
	c := newConverter(t, map[string]string{"USD": "-1", "EUR": "garbage", "GBP": "105.2"})

	// bad seeds ignored, builtin USD default survives
	got := c.Convert(decimal.NewFromInt(1), "USD", "INR")
	require.True(t, got.Equal(decimal.RequireFromString("83.5")), got.String())

	got = c.Convert(decimal.NewFromInt(2), "GBP", "INR")
	require.True(t, got.Equal(decimal.RequireFromString("210.4")), got.String())
}

func TestSetRate(t *testing.T) {
	c := newConverter(t, nil)
	c.SetRate("usdt", decimal.RequireFromString("83.2"))
	got := c.Convert(decimal.NewFromInt(1), "USDT", "INR")
	require.True(t, got.Equal(decimal.RequireFromString("83.2")), got.String())

	// non-positive updates are dropped
	c.SetRate("USDT", decimal.Zero)
	got = c.Convert(decimal.NewFromInt(1), "USDT", "INR")
	require.True(t, got.Equal(decimal.RequireFromString("83.2")), got.String())
}
