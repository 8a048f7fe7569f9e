package valuation

import (
	"time"

	"github.com/shopspring/decimal"

	"valuation/internal/models"
)

// ClosedTrade is a sale operation enriched with the purchase lots it
// consumed. Always recomputed from the ledger, never stored.
type ClosedTrade struct {
	SaleID    uint64
	Company   string
	Ticker    string
	Currency  string
	SoldAt    time.Time
	Shares    decimal.Decimal
	UnitPrice decimal.Decimal

	MatchedCost decimal.Decimal // EUR cost of the consumed lots
	NetProceeds decimal.Decimal // EUR, after commission
	PnL         decimal.Decimal
	PnLPct      decimal.Decimal

	// Mean purchase date of the consumed lots, weighted by shares taken
	// from each lot.
	AvgPurchaseDate time.Time
}

// lot is the unconsumed remainder of one purchase, shared across every sale
// of the position so that sequential sales see each other's consumption.
type lot struct {
	date   time.Time
	shares decimal.Decimal
	cost   decimal.Decimal // EUR total cost of the remainder
}

func (l lot) unitCost() decimal.Decimal {
	if l.shares.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return l.cost.Div(l.shares)
}

// MatchClosedTrades FIFO-matches every sale of one position against its
// purchase lots and returns the realized trades plus the unconsumed lot
// remainders. The remainders are carried across the whole sale sequence:
// after all sales, their quantities sum to the position's open share count.
func MatchClosedTrades(ops []models.Operation) ([]ClosedTrade, []RemainingLot, error) {
	SortOperations(ops)

	var lots []lot
	var trades []ClosedTrade

	for _, op := range ops {
		switch op.Kind {
		case models.OperationPurchase:
			lots = append(lots, lot{
				date:   op.TradedAt,
				shares: op.Shares,
				cost:   op.TotalCost.Abs(),
			})
		case models.OperationSale:
			trade, rest, err := consume(lots, op)
			if err != nil {
				return nil, nil, err
			}
			lots = rest
			trades = append(trades, trade)
		}
	}

	remaining := make([]RemainingLot, 0, len(lots))
	for _, l := range lots {
		if l.shares.GreaterThan(epsilon) {
			remaining = append(remaining, RemainingLot{
				Date:   l.date,
				Shares: l.shares,
				Cost:   l.cost,
			})
		}
	}
	return trades, remaining, nil
}

// RemainingLot is an unconsumed purchase remainder after FIFO matching.
type RemainingLot struct {
	Date   time.Time
	Shares decimal.Decimal
	Cost   decimal.Decimal
}

func consume(lots []lot, sale models.Operation) (ClosedTrade, []lot, error) {
	toSell := sale.Shares
	matchedCost := decimal.Zero
	weightedDate := decimal.Zero
	consumed := decimal.Zero

	var rest []lot
	for _, l := range lots {
		if toSell.LessThanOrEqual(epsilon) {
			rest = append(rest, l)
			continue
		}
		take := decimal.Min(toSell, l.shares)
		cost := l.unitCost().Mul(take)
		matchedCost = matchedCost.Add(cost)
		weightedDate = weightedDate.Add(decimal.NewFromInt(l.date.Unix()).Mul(take))
		consumed = consumed.Add(take)
		toSell = toSell.Sub(take)

		left := l.shares.Sub(take)
		if left.GreaterThan(epsilon) {
			rest = append(rest, lot{date: l.date, shares: left, cost: l.cost.Sub(cost)})
		}
	}

	if toSell.GreaterThan(epsilon) {
		return ClosedTrade{}, nil, &IntegrityError{
			UserID:    sale.UserID,
			Portfolio: sale.Portfolio,
			Ticker:    sale.Ticker,
			Reason:    "sale exceeds purchased shares",
		}
	}

	gross := sale.Shares.Mul(sale.UnitPrice).Mul(sale.FxToEUR)
	net := gross.Sub(sale.Commission.Mul(sale.FxToEUR))
	pnl := net.Sub(matchedCost)
	pct := decimal.Zero
	if !matchedCost.IsZero() {
		pct = pnl.Div(matchedCost).Mul(decimal.NewFromInt(100))
	}

	var avgDate time.Time
	if consumed.GreaterThan(decimal.Zero) {
		avgDate = time.Unix(weightedDate.Div(consumed).IntPart(), 0).UTC()
	}

	return ClosedTrade{
		SaleID:          sale.ID,
		Company:         sale.Company,
		Ticker:          sale.Ticker,
		Currency:        sale.Currency,
		SoldAt:          sale.TradedAt,
		Shares:          sale.Shares,
		UnitPrice:       sale.UnitPrice,
		MatchedCost:     matchedCost,
		NetProceeds:     net,
		PnL:             pnl,
		PnLPct:          pct,
		AvgPurchaseDate: avgDate,
	}, rest, nil
}
