// Package history reconstructs a portfolio's daily value series on demand.
// It is a pure read over the ledger and the price cache: no writes, no state
// of its own, safe to run concurrently with the snapshot job.
package history

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"valuation/internal/calendar"
	"valuation/internal/models"
	"valuation/internal/repository"
	"valuation/internal/valuation"
)

// Point is one business day of the reconstructed series.
//
// TotalInvested is net injected capital: cumulative purchase outflow minus
// sale inflow. This is a cash-flow metric and deliberately NOT the
// average-cost basis used for live positions; the two diverge by exactly the
// realized gain once any sale closes at a profit or loss.
type Point struct {
	Date          time.Time       `json:"date"`
	TotalInvested decimal.Decimal `json:"total_invested"`
	TotalValue    decimal.Decimal `json:"total_value"`
	PnL           decimal.Decimal `json:"pnl"`
}

type Reconstructor struct {
	Repo   repository.Repository
	Logger *zap.Logger

	// Now is a test seam; nil means time.Now.
	Now func() time.Time
}

// GetHistory returns the last `days` business days, oldest first. Weekend
// dates never appear in the output. A day with no cached close for a held
// position carries the most recent prior close forward instead of valuing
// the position at zero.
func (r *Reconstructor) GetHistory(ctx context.Context, userID, portfolio string, days int) ([]Point, error) {
	if days <= 0 {
		days = 30
	}
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}
	window := calendar.BusinessDaysBack(now().UTC(), days)

	ops, err := r.Repo.ListOperations(ctx, userID, portfolio)
	if err != nil {
		return nil, err
	}
	if len(ops) == 0 {
		return []Point{}, nil
	}
	valuation.SortOperations(ops)

	shares := map[string]decimal.Decimal{}
	refs := map[string]models.Operation{}
	injected := decimal.Zero
	carried := map[string]*models.DailyPrice{}
	opIdx := 0

	points := make([]Point, 0, len(window))
	for _, day := range window {
		cutoff := calendar.EndOfDay(day)
		for opIdx < len(ops) && !ops[opIdx].TradedAt.After(cutoff) {
			op := ops[opIdx]
			key := op.PositionKey()
			refs[key] = op
			switch op.Kind {
			case models.OperationPurchase:
				shares[key] = shares[key].Add(op.Shares)
				injected = injected.Add(op.TotalCost.Abs())
			case models.OperationSale:
				shares[key] = shares[key].Sub(op.Shares)
				injected = injected.Sub(op.TotalCost.Abs())
			}
			opIdx++
		}

		value := decimal.Zero
		for key, qty := range shares {
			if qty.LessThanOrEqual(decimal.Zero) {
				continue
			}
			ticker := refs[key].Ticker
			price := r.priceFor(ctx, userID, ticker, day, carried)
			if price == nil {
				if r.Logger != nil {
					r.Logger.Debug("no close available, skipping position for day",
						zap.String("ticker", ticker), zap.Time("date", day))
				}
				continue
			}
			value = value.Add(qty.Mul(price.Close).Mul(price.FxToEUR))
		}

		points = append(points, Point{
			Date:          day,
			TotalInvested: injected,
			TotalValue:    value,
			PnL:           value.Sub(injected),
		})
	}
	return points, nil
}

// priceFor resolves the close used for ticker on day: the cached fact for
// that exact date, else the carried-forward prior close, else a one-time
// lookup of the latest close before the day.
func (r *Reconstructor) priceFor(ctx context.Context, userID, ticker string, day time.Time, carried map[string]*models.DailyPrice) *models.DailyPrice {
	if p, err := r.Repo.GetDailyPrice(ctx, userID, ticker, day); err == nil && p != nil {
		carried[ticker] = p
		return p
	}
	if p, ok := carried[ticker]; ok {
		return p
	}
	if p, err := r.Repo.GetLatestDailyPriceBefore(ctx, userID, ticker, day); err == nil && p != nil {
		carried[ticker] = p
		return p
	}
	return nil
}
