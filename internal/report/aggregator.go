// Package report derives rollups from the engine's outputs. It is a thin
// consumer: everything here is arithmetic over already-computed series.
package report

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"valuation/internal/history"
	"valuation/internal/valuation"
)

// MonthPnL is the PnL level at the last business day of the month — a level,
// not a month-over-month delta. "Best month" therefore means the month that
// ended with the highest absolute PnL.
type MonthPnL struct {
	Month string          `json:"month"` // YYYY-MM
	PnL   decimal.Decimal `json:"pnl"`
}

// MonthlyPnL samples the month-end PnL level of a daily series.
func MonthlyPnL(points []history.Point) []MonthPnL {
	if len(points) == 0 {
		return nil
	}
	last := map[string]history.Point{}
	var order []string
	for _, p := range points {
		m := p.Date.Format("2006-01")
		if _, ok := last[m]; !ok {
			order = append(order, m)
		}
		last[m] = p
	}
	out := make([]MonthPnL, 0, len(order))
	for _, m := range order {
		out = append(out, MonthPnL{Month: m, PnL: last[m].PnL})
	}
	return out
}

// BestWorstMonth picks the months with the highest and lowest end-of-month
// PnL level.
func BestWorstMonth(months []MonthPnL) (best, worst *MonthPnL) {
	for i := range months {
		m := &months[i]
		if best == nil || m.PnL.GreaterThan(best.PnL) {
			best = m
		}
		if worst == nil || m.PnL.LessThan(worst.PnL) {
			worst = m
		}
	}
	return best, worst
}

// RealizedByMonth sums realized PnL by sale month.
func RealizedByMonth(trades []valuation.ClosedTrade) []MonthPnL {
	sums := map[string]decimal.Decimal{}
	for _, tr := range trades {
		m := tr.SoldAt.Format("2006-01")
		sums[m] = sums[m].Add(tr.PnL)
	}
	months := make([]string, 0, len(sums))
	for m := range sums {
		months = append(months, m)
	}
	sort.Strings(months)
	out := make([]MonthPnL, 0, len(months))
	for _, m := range months {
		out = append(out, MonthPnL{Month: m, PnL: sums[m]})
	}
	return out
}

// DrawdownPoint is the percentage drop from the running PnL peak.
type DrawdownPoint struct {
	Date        time.Time       `json:"date"`
	DrawdownPct decimal.Decimal `json:"drawdown_pct"`
}

// Drawdown computes the drawdown series of a daily PnL sequence. Days at or
// above the running peak report zero.
func Drawdown(points []history.Point) []DrawdownPoint {
	out := make([]DrawdownPoint, 0, len(points))
	var peak decimal.Decimal
	hundred := decimal.NewFromInt(100)
	for i, p := range points {
		if i == 0 || p.PnL.GreaterThan(peak) {
			peak = p.PnL
		}
		dd := decimal.Zero
		if p.PnL.LessThan(peak) && !peak.IsZero() {
			dd = peak.Sub(p.PnL).Div(peak.Abs()).Mul(hundred)
		}
		out = append(out, DrawdownPoint{Date: p.Date, DrawdownPct: dd})
	}
	return out
}

// PositionWeight is a position's share of total portfolio market value.
type PositionWeight struct {
	Ticker string          `json:"ticker"`
	Weight decimal.Decimal `json:"weight"`
}

// Concentration computes the Herfindahl index over position market values:
// the sum of squared weights, 1 for a single-position portfolio and 1/n for
// n equally sized positions.
func Concentration(values map[string]decimal.Decimal) (decimal.Decimal, []PositionWeight) {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	if total.IsZero() {
		return decimal.Zero, nil
	}

	tickers := make([]string, 0, len(values))
	for t := range values {
		tickers = append(tickers, t)
	}
	sort.Strings(tickers)

	index := decimal.Zero
	weights := make([]PositionWeight, 0, len(tickers))
	for _, t := range tickers {
		w := values[t].Div(total)
		weights = append(weights, PositionWeight{Ticker: t, Weight: w})
		index = index.Add(w.Mul(w))
	}
	return index, weights
}
