package snapshot

import (
	"context"
	"time"

	"valuation/internal/calendar"
	"valuation/internal/models"
	"valuation/internal/repository"
)

type stubRepo struct {
	operations []models.Operation
	prices     map[string]models.DailyPrice

	statsRows     map[string]models.DailyPortfolioStats
	statsAttempts int
	posRows       map[string]models.DailyPositionSnapshot
	posAttempts   int
	jobRuns       []models.JobRun

	priceReadHadDeadline bool
}

var _ repository.Repository = (*stubRepo)(nil)

func newStubRepo() *stubRepo {
	return &stubRepo{
		prices:    map[string]models.DailyPrice{},
		statsRows: map[string]models.DailyPortfolioStats{},
		posRows:   map[string]models.DailyPositionSnapshot{},
	}
}

func priceKey(userID, ticker string, date time.Time) string {
	return userID + "|" + ticker + "|" + calendar.DateOnly(date).Format("2006-01-02")
}

func statsKey(userID, portfolio string, date time.Time) string {
	return userID + "|" + portfolio + "|" + calendar.DateOnly(date).Format("2006-01-02")
}

func posKey(userID, portfolio, ticker string, date time.Time) string {
	return userID + "|" + portfolio + "|" + ticker + "|" + calendar.DateOnly(date).Format("2006-01-02")
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
	return nil, nil
}

func (s *stubRepo) GetDailyPrice(ctx context.Context, userID, ticker string, date time.Time) (*models.DailyPrice, error) {
	if _, ok := ctx.Deadline(); ok {
		s.priceReadHadDeadline = true
	}
	if p, ok := s.prices[priceKey(userID, ticker, date)]; ok {
		return &p, nil
	}
	return nil, nil
}

func (s *stubRepo) GetLatestDailyPriceBefore(ctx context.Context, userID, ticker string, date time.Time) (*models.DailyPrice, error) {
	return nil, nil
}

func (s *stubRepo) CreateDailyPriceIfAbsent(ctx context.Context, item *models.DailyPrice) error {
	key := priceKey(item.UserID, item.Ticker, item.Date)
	if _, ok := s.prices[key]; !ok {
		s.prices[key] = *item
	}
	return nil
}

func (s *stubRepo) FillDailyPriceFields(ctx context.Context, item *models.DailyPrice) error {
	return nil
}

func (s *stubRepo) CountDailyPrices(ctx context.Context, userID, ticker string) (int64, error) {
	return 0, nil
}

func (s *stubRepo) FirstDailyPriceDate(ctx context.Context, userID, ticker string) (*time.Time, error) {
	return nil, nil
}

func (s *stubRepo) CreateDailyPortfolioStatsIfAbsent(ctx context.Context, item *models.DailyPortfolioStats) error {
	s.statsAttempts++
	key := statsKey(item.UserID, item.Portfolio, item.Date)
	if _, ok := s.statsRows[key]; !ok {
		s.statsRows[key] = *item
	}
	return nil
}

func (s *stubRepo) GetDailyPortfolioStats(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error) {
	if row, ok := s.statsRows[statsKey(userID, portfolio, date)]; ok {
		return &row, nil
	}
	return nil, nil
}

func (s *stubRepo) GetLatestDailyPortfolioStatsBefore(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error) {
	var best *models.DailyPortfolioStats
	for _, row := range s.statsRows {
		row := row
		if row.UserID != userID || row.Portfolio != portfolio || !row.Date.Before(calendar.DateOnly(date)) {
			continue
		}
		if best == nil || row.Date.After(best.Date) {
			best = &row
		}
	}
	return best, nil
}

func (s *stubRepo) CreateDailyPositionSnapshotIfAbsent(ctx context.Context, item *models.DailyPositionSnapshot) error {
	s.posAttempts++
	key := posKey(item.UserID, item.Portfolio, item.Ticker, item.Date)
	if _, ok := s.posRows[key]; !ok {
		s.posRows[key] = *item
	}
	return nil
}

func (s *stubRepo) ListDailyPositionSnapshots(ctx context.Context, userID, portfolio string, date time.Time) ([]models.DailyPositionSnapshot, error) {
	var out []models.DailyPositionSnapshot
	for _, row := range s.posRows {
		if row.UserID == userID && row.Portfolio == portfolio && row.Date.Equal(calendar.DateOnly(date)) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubRepo) GetJobRun(ctx context.Context, name string) (*models.JobRun, error) {
	if len(s.jobRuns) == 0 {
		return nil, nil
	}
	run := s.jobRuns[len(s.jobRuns)-1]
	return &run, nil
}

func (s *stubRepo) SaveJobRun(ctx context.Context, item *models.JobRun) error {
	s.jobRuns = append(s.jobRuns, *item)
	return nil
}
