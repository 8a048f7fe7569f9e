package gormrepository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"valuation/internal/models"
	"valuation/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// --- ledger -----------------------------------------------------------------

func (s *Store) ListOwners(ctx context.Context) ([]repository.Owner, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var owners []repository.Owner
	err := s.db.WithContext(ctx).
		Model(&models.Operation{}).
		Distinct("user_id", "portfolio").
		Order("user_id, portfolio").
		Find(&owners).Error
	return owners, err
}

func (s *Store) ListOperations(ctx context.Context, userID, portfolio string) ([]models.Operation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Operation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND portfolio = ?", userID, portfolio).
		Order("traded_at ASC, seq ASC").
		Find(&items).Error
	return items, err
}

func (s *Store) ListOperationsThrough(ctx context.Context, userID, portfolio string, through time.Time) ([]models.Operation, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Operation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND portfolio = ? AND traded_at <= ?", userID, portfolio, through).
		Order("traded_at ASC, seq ASC").
		Find(&items).Error
	return items, err
}

func (s *Store) FirstOperationDate(ctx context.Context, userID, ticker string) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.Operation
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND ticker = ?", userID, ticker).
		Order("traded_at ASC, seq ASC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item.TradedAt, nil
}

// --- daily price cache ------------------------------------------------------

func (s *Store) GetDailyPrice(ctx context.Context, userID, ticker string, date time.Time) (*models.DailyPrice, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.DailyPrice
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND ticker = ? AND date = ?", userID, ticker, dateOnly(date)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetLatestDailyPriceBefore(ctx context.Context, userID, ticker string, date time.Time) (*models.DailyPrice, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.DailyPrice
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND ticker = ? AND date < ?", userID, ticker, dateOnly(date)).
		Order("date DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateDailyPriceIfAbsent(ctx context.Context, item *models.DailyPrice) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Date = dateOnly(item.Date)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "ticker"}, {Name: "date"}},
		DoNothing: true,
	}).Create(item).Error
}

// FillDailyPriceFields completes optional OHLC/volume fields on an existing
// row. Confirmed fields (close, currency, fx) are never rewritten.
func (s *Store) FillDailyPriceFields(ctx context.Context, item *models.DailyPrice) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	updates := map[string]any{}
	if item.Open != nil {
		updates["open"] = *item.Open
	}
	if item.High != nil {
		updates["high"] = *item.High
	}
	if item.Low != nil {
		updates["low"] = *item.Low
	}
	if item.Volume != nil {
		updates["volume"] = *item.Volume
	}
	if len(updates) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.DailyPrice{}).
		Where("user_id = ? AND ticker = ? AND date = ?", item.UserID, item.Ticker, dateOnly(item.Date)).
		Where("open IS NULL OR high IS NULL OR low IS NULL OR volume IS NULL").
		Updates(updates).Error
}

func (s *Store) CountDailyPrices(ctx context.Context, userID, ticker string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	var n int64
	err := s.db.WithContext(ctx).
		Model(&models.DailyPrice{}).
		Where("user_id = ? AND ticker = ?", userID, ticker).
		Count(&n).Error
	return n, err
}

func (s *Store) FirstDailyPriceDate(ctx context.Context, userID, ticker string) (*time.Time, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.DailyPrice
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND ticker = ?", userID, ticker).
		Order("date ASC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item.Date, nil
}

// --- snapshots --------------------------------------------------------------

func (s *Store) CreateDailyPortfolioStatsIfAbsent(ctx context.Context, item *models.DailyPortfolioStats) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Date = dateOnly(item.Date)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "portfolio"}, {Name: "date"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) GetDailyPortfolioStats(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.DailyPortfolioStats
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND portfolio = ? AND date = ?", userID, portfolio, dateOnly(date)).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetLatestDailyPortfolioStatsBefore(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.DailyPortfolioStats
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND portfolio = ? AND date < ?", userID, portfolio, dateOnly(date)).
		Order("date DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateDailyPositionSnapshotIfAbsent(ctx context.Context, item *models.DailyPositionSnapshot) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	item.Date = dateOnly(item.Date)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "portfolio"}, {Name: "ticker"}, {Name: "date"}},
		DoNothing: true,
	}).Create(item).Error
}

func (s *Store) ListDailyPositionSnapshots(ctx context.Context, userID, portfolio string, date time.Time) ([]models.DailyPositionSnapshot, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.DailyPositionSnapshot
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND portfolio = ? AND date = ?", userID, portfolio, dateOnly(date)).
		Order("ticker ASC").
		Find(&items).Error
	return items, err
}

// --- job bookkeeping --------------------------------------------------------

func (s *Store) GetJobRun(ctx context.Context, name string) (*models.JobRun, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var item models.JobRun
	err := s.db.WithContext(ctx).Where("name = ?", name).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) SaveJobRun(ctx context.Context, item *models.JobRun) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"state", "last_run_at", "last_date", "failure_count", "detail", "updated_at",
		}),
	}).Create(item).Error
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
