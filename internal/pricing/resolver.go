package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"valuation/internal/calendar"
	"valuation/internal/client/marketdata"
	"valuation/internal/models"
	"valuation/internal/repository"
)

// ErrPriceUnavailable means no close could be resolved for the requested
// date. Callers treat it as "skip this position for this date", not as a
// failure of the whole run.
var ErrPriceUnavailable = errors.New("pricing: price unavailable")

var minorUnitFactor = decimal.NewFromInt(100)

// InstrumentRef carries the metadata the resolver needs about one holding.
// Denomination is an explicit flag on the instrument; the resolver never
// sniffs minor-unit quoting from ticker suffixes.
type InstrumentRef struct {
	Company      string
	Ticker       string
	Currency     string
	Denomination string
}

type ResolvedPrice struct {
	Date     time.Time
	Close    decimal.Decimal
	Currency string
	FxToEUR  decimal.Decimal
	Source   string
}

type MarketData interface {
	DailyCandles(ctx context.Context, symbol string, from, to time.Time) ([]marketdata.Candle, string, error)
}

// Resolver answers "what did this instrument close at on this date". It is
// cache-first: each resolved close is persisted as a DailyPrice fact together
// with the fx rate in force at resolution time, so later reads of the same
// date are stable.
type Resolver struct {
	Repo   repository.Repository
	Market MarketData
	Fx     *FxService
	Logger *zap.Logger

	// Days past the requested date the provider query may extend to absorb
	// market holidays.
	ForwardToleranceDays int
	// Below this fraction of expected business-day coverage the resolver
	// re-fetches the position's full history instead of one day at a time.
	CoverageThreshold float64
	FetchTimeout      time.Duration
}

func (r *Resolver) ResolveClose(ctx context.Context, userID string, ref InstrumentRef, date time.Time) (*ResolvedPrice, error) {
	date = calendar.DateOnly(date)

	if cached, err := r.Repo.GetDailyPrice(ctx, userID, ref.Ticker, date); err != nil {
		return nil, err
	} else if cached != nil {
		return fromModel(cached), nil
	}

	if r.Market == nil {
		return nil, ErrPriceUnavailable
	}

	if backfilled := r.maybeBackfill(ctx, userID, ref, date); backfilled {
		if cached, err := r.Repo.GetDailyPrice(ctx, userID, ref.Ticker, date); err == nil && cached != nil {
			return fromModel(cached), nil
		}
	}

	candle, err := r.fetchNearest(ctx, ref.Ticker, date)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Debug("close fetch failed",
				zap.String("ticker", ref.Ticker),
				zap.Time("date", date),
				zap.Error(err))
		}
		return nil, ErrPriceUnavailable
	}

	row := r.toModel(ctx, userID, ref, date, candle)
	if err := r.Repo.CreateDailyPriceIfAbsent(ctx, row); err != nil {
		return nil, err
	}
	return fromModel(row), nil
}

// fetchNearest queries [date-tolerance, date+tolerance] and picks the
// nearest candle at or before the requested date, falling back to the only
// candle available. Holidays and half-sessions resolve to the prior close.
func (r *Resolver) fetchNearest(ctx context.Context, ticker string, date time.Time) (marketdata.Candle, error) {
	tolerance := r.ForwardToleranceDays
	if tolerance <= 0 {
		tolerance = 4
	}
	from := date.AddDate(0, 0, -tolerance)
	to := date.AddDate(0, 0, tolerance)

	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	candles, _, err := r.Market.DailyCandles(cctx, ticker, from, to)
	if err != nil {
		return marketdata.Candle{}, err
	}
	if len(candles) == 0 {
		return marketdata.Candle{}, marketdata.ErrNoResult
	}

	var best *marketdata.Candle
	for i := range candles {
		d := calendar.DateOnly(candles[i].Date)
		if d.After(date) {
			continue
		}
		if best == nil || d.After(calendar.DateOnly(best.Date)) {
			best = &candles[i]
		}
	}
	if best == nil {
		best = &candles[0]
	}
	return *best, nil
}

// maybeBackfill re-fetches the position's whole candle history when the
// cache covers less than CoverageThreshold of the expected business days,
// amortizing provider calls instead of filling day by day. Returns whether a
// backfill ran.
func (r *Resolver) maybeBackfill(ctx context.Context, userID string, ref InstrumentRef, date time.Time) bool {
	first, err := r.Repo.FirstDailyPriceDate(ctx, userID, ref.Ticker)
	if err != nil || first == nil {
		return false
	}
	count, err := r.Repo.CountDailyPrices(ctx, userID, ref.Ticker)
	if err != nil {
		return false
	}

	threshold := r.CoverageThreshold
	if threshold <= 0 {
		threshold = 0.7
	}
	expected := calendar.CountBusinessDays(*first, date)
	if expected <= 0 || float64(count) >= threshold*float64(expected) {
		return false
	}

	start := *first
	if opFirst, err := r.Repo.FirstOperationDate(ctx, userID, ref.Ticker); err == nil && opFirst != nil && opFirst.Before(start) {
		start = *opFirst
	}

	cctx, cancel := r.callCtx(ctx)
	defer cancel()
	candles, _, err := r.Market.DailyCandles(cctx, ref.Ticker, start, date)
	if err != nil {
		if r.Logger != nil {
			r.Logger.Warn("historical backfill failed",
				zap.String("ticker", ref.Ticker), zap.Error(err))
		}
		return false
	}

	if r.Logger != nil {
		r.Logger.Info("backfilling price history",
			zap.String("ticker", ref.Ticker),
			zap.Int("candles", len(candles)),
			zap.Int64("cached", count),
			zap.Int("expected", expected))
	}
	for i := range candles {
		row := r.toModel(ctx, userID, ref, calendar.DateOnly(candles[i].Date), candles[i])
		if err := r.Repo.CreateDailyPriceIfAbsent(ctx, row); err != nil && r.Logger != nil {
			r.Logger.Warn("backfill persist failed",
				zap.String("ticker", ref.Ticker), zap.Error(err))
		}
		// Rows cached before OHLC capture keep their confirmed close;
		// only previously-missing fields are completed.
		if err := r.Repo.FillDailyPriceFields(ctx, row); err != nil && r.Logger != nil {
			r.Logger.Warn("backfill field fill failed",
				zap.String("ticker", ref.Ticker), zap.Error(err))
		}
	}
	return true
}

func (r *Resolver) toModel(ctx context.Context, userID string, ref InstrumentRef, date time.Time, c marketdata.Candle) *models.DailyPrice {
	rate := decimal.NewFromInt(1)
	if r.Fx != nil {
		rate = r.Fx.EURCrossRates(ctx).Rate(ref.Currency)
	}
	if ref.Denomination == models.DenominationMinor {
		rate = rate.Div(minorUnitFactor)
	}

	row := &models.DailyPrice{
		UserID:   userID,
		Ticker:   ref.Ticker,
		Date:     date,
		Close:    decimal.NewFromFloat(c.Close),
		Currency: ref.Currency,
		FxToEUR:  rate,
		Source:   "marketdata",
	}
	if c.Open > 0 {
		v := decimal.NewFromFloat(c.Open)
		row.Open = &v
	}
	if c.High > 0 {
		v := decimal.NewFromFloat(c.High)
		row.High = &v
	}
	if c.Low > 0 {
		v := decimal.NewFromFloat(c.Low)
		row.Low = &v
	}
	if c.Volume > 0 {
		v := decimal.NewFromFloat(c.Volume)
		row.Volume = &v
	}
	return row
}

func (r *Resolver) callCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := r.FetchTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return context.WithTimeout(ctx, timeout)
}

func fromModel(m *models.DailyPrice) *ResolvedPrice {
	return &ResolvedPrice{
		Date:     m.Date,
		Close:    m.Close,
		Currency: m.Currency,
		FxToEUR:  m.FxToEUR,
		Source:   m.Source,
	}
}
