package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	OperationPurchase = "purchase"
	OperationSale     = "sale"
)

// Price denomination of the quoted instrument. Minor means the market quotes
// in 1/100 of the nominal currency (e.g. GBX pence vs GBP).
const (
	DenominationMajor = "major"
	DenominationMinor = "minor"
)

// Operation is one ledger entry. Rows are owned by the external CRUD layer;
// this engine only ever reads them. Seq breaks ties between operations that
// share the same trade timestamp so replay stays deterministic.
type Operation struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	UserID    string `gorm:"type:varchar(100);not null;index:idx_ops_owner"`
	Portfolio string `gorm:"type:varchar(100);not null;index:idx_ops_owner"`

	Kind    string `gorm:"type:varchar(10);not null"`
	Company string `gorm:"type:varchar(200);not null"`
	Ticker  string `gorm:"type:varchar(30);not null;index"`

	Shares    decimal.Decimal `gorm:"type:numeric(30,10);not null"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(20,10);not null"`
	Currency  string          `gorm:"type:varchar(10);not null"`
	// Use explicit column name, default GORM naming turns "FxToEUR" into "fx_to_e_u_r".
	FxToEUR    decimal.Decimal `gorm:"column:fx_to_eur;type:numeric(20,10);not null"`
	Commission decimal.Decimal `gorm:"type:numeric(20,10);not null;default:0"`
	TotalCost  decimal.Decimal `gorm:"type:numeric(30,10);not null"`

	PriceDenomination string `gorm:"type:varchar(10);not null;default:'major'"`

	TradedAt time.Time `gorm:"type:timestamptz;not null;index"`
	Seq      uint64    `gorm:"not null;default:0"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime"`
}

func (Operation) TableName() string {
	return "operations"
}

// PositionKey identifies one holding inside a portfolio.
func (o Operation) PositionKey() string {
	return o.Company + "|" + o.Ticker
}
