package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RateMap maps a currency code to its →EUR multiplier.
type RateMap map[string]decimal.Decimal

// Last-known rates, used when every provider is down. Stale beats absent:
// callers always get a usable map.
var staticRates = map[string]float64{
	"EUR": 1,
	"USD": 0.92,
	"GBP": 0.86,
}

type PrimaryProvider interface {
	// Rates returns EUR-based rates (units of symbol per 1 EUR).
	Rates(ctx context.Context, symbols []string) (map[string]float64, error)
}

type SecondaryProvider interface {
	// Rate returns units of 'to' per 1 'from'.
	Rate(ctx context.Context, from, to string) (float64, error)
}

// FxService resolves the current →EUR cross rates with a fallback chain:
// keyed primary provider, quote-pair secondary provider, static defaults.
// EURCrossRates never fails; historical valuations never call it again for a
// date that already has a stored rate.
type FxService struct {
	Primary    PrimaryProvider
	Secondary  SecondaryProvider
	Currencies []string
	Timeout    time.Duration
	Logger     *zap.Logger
}

func (s *FxService) EURCrossRates(ctx context.Context) RateMap {
	out := RateMap{"EUR": decimal.NewFromInt(1)}
	currencies := s.Currencies
	if len(currencies) == 0 {
		currencies = []string{"USD", "GBP"}
	}

	if s.Primary != nil {
		cctx, cancel := s.callCtx(ctx)
		rates, err := s.Primary.Rates(cctx, currencies)
		cancel()
		if err == nil {
			for _, cur := range currencies {
				if r, ok := rates[cur]; ok && r > 0 {
					// Primary is EUR-based; invert to get cur→EUR.
					out[cur] = decimal.NewFromInt(1).Div(decimal.NewFromFloat(r))
				}
			}
		} else if s.Logger != nil {
			s.Logger.Warn("fx primary provider failed", zap.Error(err))
		}
	}

	for _, cur := range currencies {
		if _, ok := out[cur]; ok {
			continue
		}
		if s.Secondary != nil {
			cctx, cancel := s.callCtx(ctx)
			r, err := s.Secondary.Rate(cctx, cur, "EUR")
			cancel()
			if err == nil && r > 0 {
				out[cur] = decimal.NewFromFloat(r)
				continue
			}
			if err != nil && s.Logger != nil {
				s.Logger.Warn("fx secondary provider failed",
					zap.String("currency", cur), zap.Error(err))
			}
		}
		if r, ok := staticRates[cur]; ok {
			out[cur] = decimal.NewFromFloat(r)
		}
	}
	return out
}

// Rate is a convenience lookup; unknown currencies resolve to 1 so a missing
// mapping degrades to "already EUR" instead of zeroing a valuation.
func (m RateMap) Rate(currency string) decimal.Decimal {
	if r, ok := m[currency]; ok {
		return r
	}
	return decimal.NewFromInt(1)
}

func (s *FxService) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}
