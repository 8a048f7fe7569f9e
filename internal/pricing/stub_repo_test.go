package pricing

import (
	"context"
	"time"

	"valuation/internal/calendar"
	"valuation/internal/models"
	"valuation/internal/repository"
)

type stubRepo struct {
	operations []models.Operation
	prices     map[string]models.DailyPrice // key: user|ticker|yyyy-mm-dd
	created    int
	filled     int
}

var _ repository.Repository = (*stubRepo)(nil)

func newStubRepo() *stubRepo {
	return &stubRepo{prices: map[string]models.DailyPrice{}}
}

func priceKey(userID, ticker string, date time.Time) string {
	return userID + "|" + ticker + "|" + calendar.DateOnly(date).Format("2006-01-02")
}

func (s *stubRepo) ListOwners(ctx context.Context) ([]repository.Owner, error) {
	seen := map[repository.Owner]struct{}{}
	var out []repository.Owner
	for _, op := range s.operations {
		o := repository.Owner{UserID: op.UserID, Portfolio: op.Portfolio}
		if _, ok := seen[o]; ok {
			continue
		}
		seen[o] = struct{}{}
		out = append(out, o)
	}
	return out, nil
}

func (s *stubRepo) ListOperations(ctx context.Context, userID, portfolio string) ([]models.Operation, error) {
	var out []models.Operation
	for _, op := range s.operations {
		if op.UserID == userID && op.Portfolio == portfolio {
			out = append(out, op)
		}
	}
	return out, nil
}

func (s *stubRepo) ListOperationsThrough(ctx context.Context, userID, portfolio string, through time.Time) ([]models.Operation, error) {
	var out []models.Operation
	for _, op := range s.operations {
		if op.UserID == userID && op.Portfolio == portfolio && !op.TradedAt.After(through) {
			out = append(out, op)
		}
	}
	return out, nil
}

func (s *stubRepo) FirstOperationDate(ctx context.Context, userID, ticker string) (*time.Time, error) {
	var first *time.Time
	for _, op := range s.operations {
		if op.UserID != userID || op.Ticker != ticker {
			continue
		}
		t := op.TradedAt
		if first == nil || t.Before(*first) {
			first = &t
		}
	}
	return first, nil
}

func (s *stubRepo) GetDailyPrice(ctx context.Context, userID, ticker string, date time.Time) (*models.DailyPrice, error) {
	if p, ok := s.prices[priceKey(userID, ticker, date)]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *stubRepo) GetLatestDailyPriceBefore(ctx context.Context, userID, ticker string, date time.Time) (*models.DailyPrice, error) {
	var best *models.DailyPrice
	for _, p := range s.prices {
		p := p
		if p.UserID != userID || p.Ticker != ticker || !p.Date.Before(calendar.DateOnly(date)) {
			continue
		}
		if best == nil || p.Date.After(best.Date) {
			best = &p
		}
	}
	return best, nil
}

func (s *stubRepo) CreateDailyPriceIfAbsent(ctx context.Context, item *models.DailyPrice) error {
	key := priceKey(item.UserID, item.Ticker, item.Date)
	if _, ok := s.prices[key]; ok {
		return nil
	}
	item.Date = calendar.DateOnly(item.Date)
	s.prices[key] = *item
	s.created++
	return nil
}

func (s *stubRepo) FillDailyPriceFields(ctx context.Context, item *models.DailyPrice) error {
	key := priceKey(item.UserID, item.Ticker, item.Date)
	row, ok := s.prices[key]
	if !ok {
		return nil
	}
	changed := false
	if row.Open == nil && item.Open != nil {
		row.Open = item.Open
		changed = true
	}
	if row.High == nil && item.High != nil {
		row.High = item.High
		changed = true
	}
	if row.Low == nil && item.Low != nil {
		row.Low = item.Low
		changed = true
	}
	if row.Volume == nil && item.Volume != nil {
		row.Volume = item.Volume
		changed = true
	}
	if changed {
		s.prices[key] = row
		s.filled++
	}
	return nil
}

func (s *stubRepo) CountDailyPrices(ctx context.Context, userID, ticker string) (int64, error) {
	var n int64
	for _, p := range s.prices {
		if p.UserID == userID && p.Ticker == ticker {
			n++
		}
	}
	return n, nil
}

func (s *stubRepo) FirstDailyPriceDate(ctx context.Context, userID, ticker string) (*time.Time, error) {
	var first *time.Time
	for _, p := range s.prices {
		if p.UserID != userID || p.Ticker != ticker {
			continue
		}
		d := p.Date
		if first == nil || d.Before(*first) {
			first = &d
		}
	}
	return first, nil
}

func (s *stubRepo) CreateDailyPortfolioStatsIfAbsent(ctx context.Context, item *models.DailyPortfolioStats) error {
	return nil
}

func (s *stubRepo) GetDailyPortfolioStats(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error) {
	return nil, nil
}

func (s *stubRepo) GetLatestDailyPortfolioStatsBefore(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error) {
	return nil, nil
}

func (s *stubRepo) CreateDailyPositionSnapshotIfAbsent(ctx context.Context, item *models.DailyPositionSnapshot) error {
	return nil
}

func (s *stubRepo) ListDailyPositionSnapshots(ctx context.Context, userID, portfolio string, date time.Time) ([]models.DailyPositionSnapshot, error) {
	return nil, nil
}

func (s *stubRepo) GetJobRun(ctx context.Context, name string) (*models.JobRun, error) {
	return nil, nil
}

func (s *stubRepo) SaveJobRun(ctx context.Context, item *models.JobRun) error {
	return nil
}
