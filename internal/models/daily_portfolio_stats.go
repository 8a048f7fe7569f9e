package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPortfolioStats is the immutable per-portfolio valuation snapshot.
// Append-only: once a row exists for a date it is never updated, which is
// what keeps re-runs of the snapshot job harmless.
type DailyPortfolioStats struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_portfolio_stats"`
	Portfolio string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_portfolio_stats"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_portfolio_stats;index"`

	TotalInvested decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	TotalValue    decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	PnL           decimal.Decimal `gorm:"column:pnl;type:numeric(30,10);not null"`
	DayChangePct  decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	ROIPct        decimal.Decimal `gorm:"column:roi_pct;type:numeric(20,10);not null;default:0"`

	OpenPositions    int `gorm:"not null;default:0"`
	ClosedOperations int `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (DailyPortfolioStats) TableName() string {
	return "daily_portfolio_stats"
}
