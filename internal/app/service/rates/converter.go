package rates

import (
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cardwave/giftpay/pkg/config"
)

// The converter pivots through INR: every cached rate is INR per one unit of
// the keyed currency. fallbackUSDToINR is the hardwired last line of defense
// when the table has no usable entry.
var fallbackUSDToINR = decimal.RequireFromString("83.5")

const (
	pivotCurrency = "INR"
	// FiatPlaces / CryptoPlaces are the native precisions of the two sides
	// of a conversion; callers round with these, the converter itself never
	// truncates.
	FiatPlaces   = 2
	CryptoPlaces = 8
)

// Converter turns amounts between currencies using a cached rate table.
// It deliberately never fails: on any missing rate it falls back to a
// hardcoded constant, and as a last resort returns the input unchanged.
// Availability over precision; degraded conversions are logged, not raised.
type Converter struct {
	mu    sync.RWMutex
	rates map[string]decimal.Decimal
	log   *zap.SugaredLogger
}

func New(cfg *config.Config, log *zap.SugaredLogger) *Converter {
	c := &Converter{
		rates: map[string]decimal.Decimal{
			"USD":         fallbackUSDToINR,
			pivotCurrency: decimal.NewFromInt(1),
		},
		log: log,
	}
	for code, rate := range cfg.Currency.SeedRates {
		d, err := decimal.NewFromString(rate)
		if err != nil || !d.IsPositive() {
			log.Warnw("ignoring invalid seed rate", "currency", code, "rate", rate)
			continue
		}
		c.rates[strings.ToUpper(code)] = d
	}
	return c
}

// SetRate updates one cached rate (INR per unit). Non-positive rates are
// ignored so a bad feed cannot poison the table.
func (c *Converter) SetRate(code string, rate decimal.Decimal) {
	if !rate.IsPositive() {
		return
	}
	c.mu.Lock()
	c.rates[strings.ToUpper(code)] = rate
	c.mu.Unlock()
}

// Convert changes amount from one currency to another. Identity pairs skip
// the rate lookup entirely. Unsupported pairs degrade to the fallback
// constant or, failing that, return the amount unchanged.
func (c *Converter) Convert(amount decimal.Decimal, from, to string) decimal.Decimal {
	from = strings.ToUpper(strings.TrimSpace(from))
	to = strings.ToUpper(strings.TrimSpace(to))
	if from == to {
		return amount
	}
	if amount.IsZero() {
		return amount
	}

	c.mu.RLock()
	fromRate, okFrom := c.rates[from]
	toRate, okTo := c.rates[to]
	c.mu.RUnlock()

	if okFrom && okTo {
		return amount.Mul(fromRate).DivRound(toRate, CryptoPlaces)
	}

	// Degraded path: the table has no usable pair. USD/INR keeps working on
	// the hardwired constant; anything else passes through unchanged.
	c.log.Warnw("currency pair not in rate table, using fallback",
		"from", from, "to", to)
	switch {
	case from == pivotCurrency && to == "USD":
		return amount.DivRound(fallbackUSDToINR, CryptoPlaces)
	case from == "USD" && to == pivotCurrency:
		return amount.Mul(fallbackUSDToINR)
	}
	return amount
}
