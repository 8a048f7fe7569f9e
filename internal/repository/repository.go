package repository

import (
	"context"
	"time"

	"valuation/internal/models"
)

// Owner is one (user, portfolio) pair present in the ledger.
type Owner struct {
	UserID    string
	Portfolio string
}

// Repository is the persistence boundary of the valuation engine. The
// operations table is read-only here; writes are limited to the price cache,
// the append-only snapshot tables and job bookkeeping.
type Repository interface {
	// Ledger (owned by the external CRUD layer; ordered reads only).
	ListOwners(ctx context.Context) ([]Owner, error)
	ListOperations(ctx context.Context, userID, portfolio string) ([]models.Operation, error)
	ListOperationsThrough(ctx context.Context, userID, portfolio string, through time.Time) ([]models.Operation, error)
	FirstOperationDate(ctx context.Context, userID, ticker string) (*time.Time, error)

	// Daily price cache.
	GetDailyPrice(ctx context.Context, userID, ticker string, date time.Time) (*models.DailyPrice, error)
	GetLatestDailyPriceBefore(ctx context.Context, userID, ticker string, date time.Time) (*models.DailyPrice, error)
	CreateDailyPriceIfAbsent(ctx context.Context, item *models.DailyPrice) error
	FillDailyPriceFields(ctx context.Context, item *models.DailyPrice) error
	CountDailyPrices(ctx context.Context, userID, ticker string) (int64, error)
	FirstDailyPriceDate(ctx context.Context, userID, ticker string) (*time.Time, error)

	// Append-only snapshots. Create-if-absent is the only write path; an
	// existing row for the same composite key is left untouched.
	CreateDailyPortfolioStatsIfAbsent(ctx context.Context, item *models.DailyPortfolioStats) error
	GetDailyPortfolioStats(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error)
	GetLatestDailyPortfolioStatsBefore(ctx context.Context, userID, portfolio string, date time.Time) (*models.DailyPortfolioStats, error)
	CreateDailyPositionSnapshotIfAbsent(ctx context.Context, item *models.DailyPositionSnapshot) error
	ListDailyPositionSnapshots(ctx context.Context, userID, portfolio string, date time.Time) ([]models.DailyPositionSnapshot, error)

	// Job bookkeeping.
	GetJobRun(ctx context.Context, name string) (*models.JobRun, error)
	SaveJobRun(ctx context.Context, item *models.JobRun) error
}
