package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyPrice is the cached close for one owner/position/date. Created once,
// read many times; only previously-missing fields may ever be filled in.
type DailyPrice struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_daily_price"`
	Ticker    string    `gorm:"type:varchar(30);not null;uniqueIndex:idx_daily_price;index"`
	Date      time.Time `gorm:"type:date;not null;uniqueIndex:idx_daily_price;index"`

	Close    decimal.Decimal  `gorm:"type:numeric(20,10);not null"`
	Open     *decimal.Decimal `gorm:"type:numeric(20,10)"`
	High     *decimal.Decimal `gorm:"type:numeric(20,10)"`
	Low      *decimal.Decimal `gorm:"type:numeric(20,10)"`
	Volume   *decimal.Decimal `gorm:"type:numeric(30,4)"`
	Currency string           `gorm:"type:varchar(10);not null"`
	FxToEUR  decimal.Decimal  `gorm:"column:fx_to_eur;type:numeric(20,10);not null"`
	Source   string           `gorm:"type:varchar(50)"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime"`
}

func (DailyPrice) TableName() string {
	return "daily_prices"
}
