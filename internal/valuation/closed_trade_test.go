package valuation

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"valuation/internal/models"
)

func TestMatchClosedTrades_FIFOAcrossLots(t *testing.T) {
	ops := []models.Operation{
		op(t, models.OperationPurchase, "ACME", 10, 100, "2024-01-01", 1),
		op(t, models.OperationPurchase, "ACME", 5, 120, "2024-02-01", 2),
		op(t, models.OperationSale, "ACME", 12, 150, "2024-03-01", 3),
	}
	trades, remaining, err := MatchClosedTrades(ops)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(trades) != 1 {
		t.Fatalf("trades=%d want=1", len(trades))
	}
	tr := trades[0]
	// 10 shares from lot 1 at 100 + 2 from lot 2 at 120.
	if tr.MatchedCost.Cmp(decimal.NewFromInt(1240)) != 0 {
		t.Fatalf("matchedCost=%s want=1240", tr.MatchedCost)
	}
	if tr.NetProceeds.Cmp(decimal.NewFromInt(1800)) != 0 {
		t.Fatalf("netProceeds=%s want=1800", tr.NetProceeds)
	}
	if tr.PnL.Cmp(decimal.NewFromInt(560)) != 0 {
		t.Fatalf("pnl=%s want=560", tr.PnL)
	}
	if tr.PnLPct.Round(2).Cmp(decimal.NewFromFloat(45.16)) != 0 {
		t.Fatalf("pnlPct=%s want=45.16", tr.PnLPct.Round(2))
	}
	if len(remaining) != 1 {
		t.Fatalf("remaining lots=%d want=1", len(remaining))
	}
	if remaining[0].Shares.Cmp(decimal.NewFromInt(3)) != 0 {
		t.Fatalf("remaining shares=%s want=3", remaining[0].Shares)
	}
	if remaining[0].Cost.Cmp(decimal.NewFromInt(360)) != 0 {
		t.Fatalf("remaining cost=%s want=360", remaining[0].Cost)
	}
}

func TestMatchClosedTrades_LotRemaindersCarryAcrossSales(t *testing.T) {
	// Two sequential sales; the second must see the first's consumption of
	// lot 1 instead of re-walking it from scratch.
	ops := []models.Operation{
		op(t, models.OperationPurchase, "ACME", 10, 100, "2024-01-01", 1),
		op(t, models.OperationPurchase, "ACME", 10, 200, "2024-02-01", 2),
		op(t, models.OperationSale, "ACME", 6, 150, "2024-03-01", 3),
		op(t, models.OperationSale, "ACME", 6, 150, "2024-04-01", 4),
	}
	trades, remaining, err := MatchClosedTrades(ops)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if len(trades) != 2 {
		t.Fatalf("trades=%d want=2", len(trades))
	}
	// Sale 1: 6 shares from lot 1 at 100.
	if trades[0].MatchedCost.Cmp(decimal.NewFromInt(600)) != 0 {
		t.Fatalf("sale1 matchedCost=%s want=600", trades[0].MatchedCost)
	}
	// Sale 2: the remaining 4 of lot 1 at 100, then 2 of lot 2 at 200.
	if trades[1].MatchedCost.Cmp(decimal.NewFromInt(800)) != 0 {
		t.Fatalf("sale2 matchedCost=%s want=800", trades[1].MatchedCost)
	}
	// Lot conservation: remaining lot quantities equal the open share count.
	positions, err := Aggregate(ops)
	if err != nil {
		t.Fatalf("aggregate: %v", err)
	}
	open := positions["ACME Inc|ACME"].Shares
	sum := decimal.Zero
	for _, l := range remaining {
		sum = sum.Add(l.Shares)
	}
	if sum.Cmp(open) != 0 {
		t.Fatalf("remaining=%s open=%s; lot conservation broken", sum, open)
	}
}

func TestMatchClosedTrades_WeightedAvgPurchaseDate(t *testing.T) {
	ops := []models.Operation{
		op(t, models.OperationPurchase, "ACME", 3, 100, "2024-01-01", 1),
		op(t, models.OperationPurchase, "ACME", 1, 100, "2024-01-05", 2),
		op(t, models.OperationSale, "ACME", 4, 150, "2024-02-01", 3),
	}
	trades, _, err := MatchClosedTrades(ops)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	// 3 shares on Jan 1 + 1 share on Jan 5: mean is Jan 2.
	want := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	if !trades[0].AvgPurchaseDate.Equal(want) {
		t.Fatalf("avgPurchaseDate=%s want=%s", trades[0].AvgPurchaseDate, want)
	}
}

func TestMatchClosedTrades_CommissionAndFx(t *testing.T) {
	sale := op(t, models.OperationSale, "ACME", 10, 20, "2024-02-01", 2)
	sale.Currency = "USD"
	sale.FxToEUR = decimal.NewFromFloat(0.9)
	sale.Commission = decimal.NewFromInt(10)
	ops := []models.Operation{
		op(t, models.OperationPurchase, "ACME", 10, 10, "2024-01-01", 1),
		sale,
	}
	trades, _, err := MatchClosedTrades(ops)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	// (10*20 - 10) * 0.9 = 171 EUR net.
	if trades[0].NetProceeds.Cmp(decimal.NewFromInt(171)) != 0 {
		t.Fatalf("netProceeds=%s want=171", trades[0].NetProceeds)
	}
}

func TestMatchClosedTrades_OversoldFails(t *testing.T) {
	ops := []models.Operation{
		op(t, models.OperationPurchase, "ACME", 5, 100, "2024-01-01", 1),
		op(t, models.OperationSale, "ACME", 8, 150, "2024-02-01", 2),
	}
	_, _, err := MatchClosedTrades(ops)
	var ie *IntegrityError
	if !errors.As(err, &ie) {
		t.Fatalf("err=%v want IntegrityError", err)
	}
}

func TestMatchClosedTrades_ZeroMatchedCostPct(t *testing.T) {
	free := op(t, models.OperationPurchase, "ACME", 5, 0, "2024-01-01", 1)
	free.TotalCost = decimal.Zero
	ops := []models.Operation{
		free,
		op(t, models.OperationSale, "ACME", 5, 10, "2024-02-01", 2),
	}
	trades, _, err := MatchClosedTrades(ops)
	if err != nil {
		t.Fatalf("match: %v", err)
	}
	if !trades[0].PnLPct.IsZero() {
		t.Fatalf("pnlPct=%s want=0 when matched cost is 0", trades[0].PnLPct)
	}
}
