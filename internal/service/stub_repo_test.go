package service

import (
	"context"
	"time"

	"valuation/internal/calendar"
	"valuation/internal/models"
	"valuation/internal/repository"
)

type stubRepo struct {
	operations []models.Operation
	prices     []models.DailyPrice
	statsRows  []models.DailyPortfolioStats
	posRows    []models.DailyPositionSnapshot
}

var _ repository.Repository = (*stubRepo)(nil)

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
	day := calendar.DateOnly(date)
	for _, p := range s.prices {
		if p.UserID == userID && p.Ticker == ticker && p.Date.Equal(day) {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetLatestDailyPriceBefore(ctx context.Context, userID, ticker string, date time.Time) (*models.DailyPrice, error) {
	day := calendar.DateOnly(date)
	var best *models.DailyPrice
	for i := range s.prices {
		p := s.prices[i]
		if p.UserID != userID || p.Ticker != ticker || !p.Date.Before(day) {
			continue
		}
		if best == nil || p.Date.After(best.Date) {
			best = &p
		}
	}
	return best, nil
}

func (s *stubRepo) CreateDailyPriceIfAbsent(ctx context.Context, item *models.DailyPrice) error {
	s.prices = append(s.prices, *item)
	return nil
}

func (s *stubRepo) FillDailyPriceFields(ctx context.Context, item *models.DailyPrice) error {
	return nil
}

func (s *stubRepo) CountDailyPrices(ctx context.Context, userID, ticker string) (int64, error) {
	return int64(len(s.prices)), nil
}

func (s *stubRepo) FirstDailyPriceDate(ctx context.Context, userID, ticker string) (*time.Time, error) {
	return nil, nil
}

func (s *stubRepo) CreateDailyPortfolioStatsIfAbsent(ctx context.Context, item *models.DailyPortfolioStats) error {
	s.statsRows = append(s.statsRows, *item)
	return nil
}

func (s *stubRepo) GetDailyPortfolioStats(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error) {
	day := calendar.DateOnly(date)
	for i := range s.statsRows {
		row := s.statsRows[i]
		if row.UserID == userID && row.Portfolio == portfolio && row.Date.Equal(day) {
			return &row, nil
		}
	}
	return nil, nil
}

func (s *stubRepo) GetLatestDailyPortfolioStatsBefore(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error) {
	return nil, nil
}

func (s *stubRepo) CreateDailyPositionSnapshotIfAbsent(ctx context.Context, item *models.DailyPositionSnapshot) error {
	s.posRows = append(s.posRows, *item)
	return nil
}

func (s *stubRepo) ListDailyPositionSnapshots(ctx context.Context, userID, portfolio string, date time.Time) ([]models.DailyPositionSnapshot, error) {
	day := calendar.DateOnly(date)
	var out []models.DailyPositionSnapshot
	for _, row := range s.posRows {
		if row.UserID == userID && row.Portfolio == portfolio && row.Date.Equal(day) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *stubRepo) GetJobRun(ctx context.Context, name string) (*models.JobRun, error) {
	return nil, nil
}

func (s *stubRepo) SaveJobRun(ctx context.Context, item *models.JobRun) error {
	return nil
}
