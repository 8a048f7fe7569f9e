package valuation

import (
	"sort"

	"github.com/shopspring/decimal"

	"valuation/internal/models"
)

// Shares below this are treated as a fully closed position. Ledgers store
// fractional shares, so exact zero cannot be relied on after division.
var epsilon = decimal.New(1, -9)

// Position is the derived state of one holding. It only exists as a
// computation result; it is never persisted with its own identity.
type Position struct {
	Company  string
	Ticker   string
	Currency string

	// Denomination of the market quote for this instrument (major/minor),
	// taken from the most recent operation.
	Denomination string

	Shares    decimal.Decimal
	CostBasis decimal.Decimal // average-cost, EUR
}

func (p Position) Key() string {
	return p.Company + "|" + p.Ticker
}

// AvgCost is the average EUR cost per share, zero for an empty position.
func (p Position) AvgCost() decimal.Decimal {
	if p.Shares.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return p.CostBasis.Div(p.Shares)
}

// SortOperations orders a ledger slice for deterministic replay: trade
// timestamp ascending, insertion sequence as the tie-break.
func SortOperations(ops []models.Operation) {
	sort.SliceStable(ops, func(i, j int) bool {
		if !ops[i].TradedAt.Equal(ops[j].TradedAt) {
			return ops[i].TradedAt.Before(ops[j].TradedAt)
		}
		return ops[i].Seq < ops[j].Seq
	})
}

// Aggregate replays a portfolio's ledger into average-cost positions.
//
// Purchases add shares and their EUR total cost to the basis. Sales reduce
// the basis proportionally to the fraction of shares sold, then subtract the
// shares. A sale against a zero or insufficient holding is a ledger
// integrity violation and is reported, never clamped.
//
// The returned map contains every position the ledger ever touched; use
// Active to filter to open holdings.
func Aggregate(ops []models.Operation) (map[string]Position, error) {
	SortOperations(ops)

	positions := make(map[string]Position)
	for _, op := range ops {
		key := op.PositionKey()
		pos, ok := positions[key]
		if !ok {
			pos = Position{
				Company:  op.Company,
				Ticker:   op.Ticker,
				Currency: op.Currency,
			}
		}
		if op.PriceDenomination != "" {
			pos.Denomination = op.PriceDenomination
		}

		switch op.Kind {
		case models.OperationPurchase:
			pos.Shares = pos.Shares.Add(op.Shares)
			pos.CostBasis = pos.CostBasis.Add(op.TotalCost.Abs())
		case models.OperationSale:
			if pos.Shares.LessThanOrEqual(decimal.Zero) {
				return nil, &IntegrityError{
					UserID:    op.UserID,
					Portfolio: op.Portfolio,
					Ticker:    op.Ticker,
					Reason:    "sale against empty position",
				}
			}
			fraction := op.Shares.Div(pos.Shares)
			pos.CostBasis = pos.CostBasis.Sub(pos.CostBasis.Mul(fraction))
			pos.Shares = pos.Shares.Sub(op.Shares)
			if pos.Shares.LessThan(epsilon.Neg()) {
				return nil, &IntegrityError{
					UserID:    op.UserID,
					Portfolio: op.Portfolio,
					Ticker:    op.Ticker,
					Reason:    "replay produced negative shares",
				}
			}
		}
		positions[key] = pos
	}
	return positions, nil
}

// Active filters an Aggregate result down to open positions.
func Active(positions map[string]Position) []Position {
	out := make([]Position, 0, len(positions))
	for _, p := range positions {
		if p.Shares.GreaterThan(epsilon) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}
