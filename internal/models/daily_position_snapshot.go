package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPositionSnapshot is the per-position companion of DailyPortfolioStats,
// under the same append-only contract.
type DailyPositionSnapshot struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_position_snapshot"`
	Portfolio string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_position_snapshot"`
	Ticker    string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_position_snapshot"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_position_snapshot;index"`

	Company string `gorm:"type:varchar(200);not null"`

	Shares   decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Close    decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Currency string          `gorm:"type:varchar(10);not null"`
	FxToEUR  decimal.Decimal `gorm:"column:fx_to_eur;type:numeric(20,10);not null"`

	Invested decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	Value    decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	PnL      decimal.Decimal `gorm:"column:pnl;type:numeric(30,10);not null"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (DailyPositionSnapshot) TableName() string {
	return "daily_position_snapshots"
}
