package service

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"valuation/internal/history"
	"valuation/internal/models"
	"valuation/internal/report"
	"valuation/internal/repository"
	"valuation/internal/valuation"
)

// PortfolioService is the read surface of the engine: active positions,
// closed trades, reconstructed history and stored snapshots. All methods are
// pure reads and safe to serve while the snapshot job runs.
type PortfolioService struct {
	Repo    repository.Repository
	History *history.Reconstructor
	Logger  *zap.Logger
}

// ActivePosition is an open holding enriched with the latest cached close,
// when one exists. Enrichment never triggers an external fetch.
type ActivePosition struct {
	Company   string          `json:"company"`
	Ticker    string          `json:"ticker"`
	Currency  string          `json:"currency"`
	Shares    decimal.Decimal `json:"shares"`
	CostBasis decimal.Decimal `json:"cost_basis"`
	AvgCost   decimal.Decimal `json:"avg_cost"`

	LastClose *decimal.Decimal `json:"last_close,omitempty"`
	LastDate  *time.Time       `json:"last_date,omitempty"`
	Value     *decimal.Decimal `json:"value,omitempty"`
	PnL       *decimal.Decimal `json:"pnl,omitempty"`
}

func (s *PortfolioService) ActivePositions(ctx context.Context, userID, portfolio string) ([]ActivePosition, error) {
	ops, err := s.Repo.ListOperations(ctx, userID, portfolio)
	if err != nil {
		return nil, err
	}
	positions, err := valuation.Aggregate(ops)
	if err != nil {
		return nil, err
	}

	tomorrow := time.Now().UTC().AddDate(0, 0, 1)
	out := make([]ActivePosition, 0)
	for _, pos := range valuation.Active(positions) {
		item := ActivePosition{
			Company:   pos.Company,
			Ticker:    pos.Ticker,
			Currency:  pos.Currency,
			Shares:    pos.Shares,
			CostBasis: pos.CostBasis,
			AvgCost:   pos.AvgCost(),
		}
		if price, err := s.Repo.GetLatestDailyPriceBefore(ctx, userID, pos.Ticker, tomorrow); err == nil && price != nil {
			value := pos.Shares.Mul(price.Close).Mul(price.FxToEUR)
			pnl := value.Sub(pos.CostBasis)
			d := price.Date
			item.LastClose = &price.Close
			item.LastDate = &d
			item.Value = &value
			item.PnL = &pnl
		}
		out = append(out, item)
	}
	return out, nil
}

func (s *PortfolioService) ClosedTrades(ctx context.Context, userID, portfolio string) ([]valuation.ClosedTrade, error) {
	ops, err := s.Repo.ListOperations(ctx, userID, portfolio)
	if err != nil {
		return nil, err
	}

	byPosition := map[string][]models.Operation{}
	for _, op := range ops {
		key := op.PositionKey()
		byPosition[key] = append(byPosition[key], op)
	}

	var out []valuation.ClosedTrade
	for _, posOps := range byPosition {
		trades, _, err := valuation.MatchClosedTrades(posOps)
		if err != nil {
			return nil, err
		}
		out = append(out, trades...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SoldAt.Before(out[j].SoldAt) })
	return out, nil
}

func (s *PortfolioService) GetHistory(ctx context.Context, userID, portfolio string, days int) ([]history.Point, error) {
	return s.History.GetHistory(ctx, userID, portfolio, days)
}

// Snapshot returns the stored valuation for one date, or nils when the date
// was never snapshotted. Absence is a normal outcome, not an error.
func (s *PortfolioService) Snapshot(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, []models.DailyPositionSnapshot, error) {
	stats, err := s.Repo.GetDailyPortfolioStats(ctx, userID, portfolio, date)
	if err != nil {
		return nil, nil, err
	}
	if stats == nil {
		return nil, nil, nil
	}
	positions, err := s.Repo.ListDailyPositionSnapshots(ctx, userID, portfolio, date)
	if err != nil {
		return nil, nil, err
	}
	return stats, positions, nil
}

// Summary is the report rollup over a reconstructed window.
type Summary struct {
	Months          []report.MonthPnL       `json:"months"`
	BestMonth       *report.MonthPnL        `json:"best_month,omitempty"`
	WorstMonth      *report.MonthPnL        `json:"worst_month,omitempty"`
	RealizedByMonth []report.MonthPnL       `json:"realized_by_month"`
	Drawdown        []report.DrawdownPoint  `json:"drawdown"`
	Concentration   decimal.Decimal         `json:"concentration"`
	Weights         []report.PositionWeight `json:"weights"`
}

func (s *PortfolioService) Summary(ctx context.Context, userID, portfolio string, days int) (*Summary, error) {
	points, err := s.GetHistory(ctx, userID, portfolio, days)
	if err != nil {
		return nil, err
	}
	trades, err := s.ClosedTrades(ctx, userID, portfolio)
	if err != nil {
		return nil, err
	}
	actives, err := s.ActivePositions(ctx, userID, portfolio)
	if err != nil {
		return nil, err
	}

	values := map[string]decimal.Decimal{}
	for _, p := range actives {
		if p.Value != nil {
			values[p.Ticker] = *p.Value
		}
	}

	months := report.MonthlyPnL(points)
	best, worst := report.BestWorstMonth(months)
	concentration, weights := report.Concentration(values)

	return &Summary{
		Months:          months,
		BestMonth:       best,
		WorstMonth:      worst,
		RealizedByMonth: report.RealizedByMonth(trades),
		Drawdown:        report.Drawdown(points),
		Concentration:   concentration,
		Weights:         weights,
	}, nil
}
