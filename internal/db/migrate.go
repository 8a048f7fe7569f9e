package db

import (
	"valuation/internal/models"
)

// AutoMigrate creates or extends the engine's tables: the read-only ledger,
// the price cache, the two append-only snapshot tables and job bookkeeping.
func (d *DB) AutoMigrate() error {
	if d == nil || d.Gorm == nil {
		return nil
	}

	return d.Gorm.AutoMigrate(
		&models.Operation{},
		&models.DailyPrice{},
		&models.DailyPortfolioStats{},
		&models.DailyPositionSnapshot{},
		&models.JobRun{},
	)
}
