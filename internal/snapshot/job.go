package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"valuation/internal/calendar"
	"valuation/internal/models"
	"valuation/internal/pricing"
	"valuation/internal/repository"
	"valuation/internal/valuation"
)

const jobName = "daily_snapshot"

// Reserved identity owning the market-index benchmark snapshots. Not a real
// user; kept out of the per-owner loop.
const (
	BenchmarkUserID    = "benchmark"
	BenchmarkPortfolio = "index"
)

var (
	// ErrAlreadyRunning marks a skipped run because one is already in
	// flight. A no-op outcome, not a failure.
	ErrAlreadyRunning = errors.New("snapshot: job already running")
	// ErrNoProcessingDate means the job could not even determine which day
	// to snapshot. The whole run fails.
	ErrNoProcessingDate = errors.New("snapshot: cannot determine processing date")
)

const (
	StateCompleted       = models.JobStateCompleted
	StatePartiallyFailed = models.JobStatePartiallyFailed
	StateFailed          = models.JobStateFailed
	StateSkipped         = "skipped"
)

// Failure is one isolated per-position (or per-portfolio) snapshot failure.
type Failure struct {
	UserID    string `json:"user_id"`
	Portfolio string `json:"portfolio"`
	Ticker    string `json:"ticker,omitempty"`
	Reason    string `json:"reason"`
}

// Result is the structured outcome of one job run.
type Result struct {
	State      string
	Date       time.Time
	Portfolios int
	Positions  int
	Failures   []Failure
	Err        error
}

// CompletionHook is invoked after a successful (or partially failed) run,
// e.g. to kick off report generation. Hook errors never roll back the
// snapshots that were already written.
type CompletionHook func(ctx context.Context, res Result) error

// Job produces the immutable daily valuation snapshots. One run covers the
// previous business day: for every (user, portfolio) in the ledger it replays
// operations as of that day, resolves each active position's close, and
// writes the per-portfolio and per-position rows if they are absent.
//
// Reentrancy inside the process is guarded by a flag; this does NOT protect
// against concurrent runs across multiple process instances. Deployments
// running more than one instance need an external lock or lease. Re-running
// for an already-snapshotted date is safe regardless, because every write is
// create-if-absent.
type Job struct {
	Repo   repository.Repository
	Prices *pricing.Resolver
	Logger *zap.Logger

	// Reference zone in which "previous business day" is computed.
	Timezone          string
	BenchmarkTicker   string
	BenchmarkLabel    string
	BenchmarkCurrency string
	OnCompleted       CompletionHook

	// Upper bound on each close resolution, including any provider fetch it
	// triggers. Zero means no per-call bound.
	FetchTimeout time.Duration

	// Now is a test seam; nil means time.Now.
	Now func() time.Time

	running atomic.Bool
}

func (j *Job) RunOnce(ctx context.Context) Result {
	if !j.running.CompareAndSwap(false, true) {
		if j.Logger != nil {
			j.Logger.Info("snapshot run skipped, already in flight")
		}
		return Result{State: StateSkipped, Err: ErrAlreadyRunning}
	}
	defer j.running.Store(false)

	date, err := j.processingDate()
	if err != nil {
		return j.finish(ctx, Result{State: StateFailed, Err: err})
	}

	owners, err := j.Repo.ListOwners(ctx)
	if err != nil {
		return j.finish(ctx, Result{State: StateFailed, Date: date, Err: fmt.Errorf("list owners: %w", err)})
	}

	res := Result{Date: date}
	for _, owner := range owners {
		if owner.UserID == BenchmarkUserID {
			continue
		}
		positions, failures := j.snapshotPortfolio(ctx, owner, date)
		res.Portfolios++
		res.Positions += positions
		res.Failures = append(res.Failures, failures...)
	}

	if j.BenchmarkTicker != "" {
		if f := j.snapshotBenchmark(ctx, date); f != nil {
			res.Failures = append(res.Failures, *f)
		}
	}

	if len(res.Failures) > 0 {
		res.State = StatePartiallyFailed
	} else {
		res.State = StateCompleted
	}
	return j.finish(ctx, res)
}

func (j *Job) processingDate() (time.Time, error) {
	tz := j.Timezone
	if tz == "" {
		tz = "UTC"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrNoProcessingDate, err)
	}
	now := time.Now
	if j.Now != nil {
		now = j.Now
	}
	return calendar.PreviousBusinessDay(now().In(loc)), nil
}

// snapshotPortfolio values one portfolio as of date. Per-position price
// failures are recorded and skipped; they never abort sibling positions or
// other portfolios.
func (j *Job) snapshotPortfolio(ctx context.Context, owner repository.Owner, date time.Time) (int, []Failure) {
	ops, err := j.Repo.ListOperationsThrough(ctx, owner.UserID, owner.Portfolio, calendar.EndOfDay(date))
	if err != nil {
		return 0, []Failure{{UserID: owner.UserID, Portfolio: owner.Portfolio, Reason: "ledger read: " + err.Error()}}
	}
	if len(ops) == 0 {
		return 0, nil
	}

	positions, err := valuation.Aggregate(ops)
	if err != nil {
		// Integrity violations are reportable, never absorbed into a
		// half-right snapshot.
		return 0, []Failure{{UserID: owner.UserID, Portfolio: owner.Portfolio, Reason: err.Error()}}
	}

	closedOps := 0
	for _, op := range ops {
		if op.Kind == models.OperationSale {
			closedOps++
		}
	}

	var failures []Failure
	totalInvested := decimal.Zero
	totalValue := decimal.Zero
	snapshotted := 0

	for _, pos := range valuation.Active(positions) {
		price, err := j.resolveClose(ctx, owner.UserID, pricing.InstrumentRef{
			Company:      pos.Company,
			Ticker:       pos.Ticker,
			Currency:     pos.Currency,
			Denomination: pos.Denomination,
		}, date)
		if err != nil {
			failures = append(failures, Failure{
				UserID:    owner.UserID,
				Portfolio: owner.Portfolio,
				Ticker:    pos.Ticker,
				Reason:    "price: " + err.Error(),
			})
			continue
		}

		value := pos.Shares.Mul(price.Close).Mul(price.FxToEUR)
		invested := pos.CostBasis
		row := &models.DailyPositionSnapshot{
			UserID:    owner.UserID,
			Portfolio: owner.Portfolio,
			Ticker:    pos.Ticker,
			Date:      date,
			Company:   pos.Company,
			Shares:    pos.Shares,
			Close:     price.Close,
			Currency:  price.Currency,
			FxToEUR:   price.FxToEUR,
			Invested:  invested,
			Value:     value,
			PnL:       value.Sub(invested),
		}
		if err := j.Repo.CreateDailyPositionSnapshotIfAbsent(ctx, row); err != nil {
			failures = append(failures, Failure{
				UserID:    owner.UserID,
				Portfolio: owner.Portfolio,
				Ticker:    pos.Ticker,
				Reason:    "persist: " + err.Error(),
			})
			continue
		}
		totalInvested = totalInvested.Add(invested)
		totalValue = totalValue.Add(value)
		snapshotted++
	}

	pnl := totalValue.Sub(totalInvested)
	roi := decimal.Zero
	if !totalInvested.IsZero() {
		roi = pnl.Div(totalInvested).Mul(decimal.NewFromInt(100))
	}
	dayChange := decimal.Zero
	if prev, err := j.Repo.GetLatestDailyPortfolioStatsBefore(ctx, owner.UserID, owner.Portfolio, date); err == nil && prev != nil && !prev.TotalValue.IsZero() {
		dayChange = totalValue.Sub(prev.TotalValue).Div(prev.TotalValue).Mul(decimal.NewFromInt(100))
	}

	stats := &models.DailyPortfolioStats{
		UserID:           owner.UserID,
		Portfolio:        owner.Portfolio,
		Date:             date,
		TotalInvested:    totalInvested,
		TotalValue:       totalValue,
		PnL:              pnl,
		DayChangePct:     dayChange,
		ROIPct:           roi,
		OpenPositions:    snapshotted,
		ClosedOperations: closedOps,
	}
	if err := j.Repo.CreateDailyPortfolioStatsIfAbsent(ctx, stats); err != nil {
		failures = append(failures, Failure{
			UserID:    owner.UserID,
			Portfolio: owner.Portfolio,
			Reason:    "persist stats: " + err.Error(),
		})
	}
	return snapshotted, failures
}

// resolveClose bounds each price resolution with the job's fetch timeout so
// one stuck provider call cannot stall the whole run.
func (j *Job) resolveClose(ctx context.Context, userID string, ref pricing.InstrumentRef, date time.Time) (*pricing.ResolvedPrice, error) {
	if j.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.FetchTimeout)
		defer cancel()
	}
	return j.Prices.ResolveClose(ctx, userID, ref, date)
}

// snapshotBenchmark records the market index close under the reserved
// benchmark identity so user portfolios can be compared against it.
func (j *Job) snapshotBenchmark(ctx context.Context, date time.Time) *Failure {
	currency := j.BenchmarkCurrency
	if currency == "" {
		currency = "USD"
	}
	price, err := j.resolveClose(ctx, BenchmarkUserID, pricing.InstrumentRef{
		Company:  j.BenchmarkLabel,
		Ticker:   j.BenchmarkTicker,
		Currency: currency,
	}, date)
	if err != nil {
		return &Failure{
			UserID:    BenchmarkUserID,
			Portfolio: BenchmarkPortfolio,
			Ticker:    j.BenchmarkTicker,
			Reason:    "price: " + err.Error(),
		}
	}

	one := decimal.NewFromInt(1)
	value := price.Close.Mul(price.FxToEUR)
	row := &models.DailyPositionSnapshot{
		UserID:    BenchmarkUserID,
		Portfolio: BenchmarkPortfolio,
		Ticker:    j.BenchmarkTicker,
		Date:      date,
		Company:   j.BenchmarkLabel,
		Shares:    one,
		Close:     price.Close,
		Currency:  price.Currency,
		FxToEUR:   price.FxToEUR,
		Invested:  value,
		Value:     value,
		PnL:       decimal.Zero,
	}
	if err := j.Repo.CreateDailyPositionSnapshotIfAbsent(ctx, row); err != nil {
		return &Failure{
			UserID:    BenchmarkUserID,
			Portfolio: BenchmarkPortfolio,
			Ticker:    j.BenchmarkTicker,
			Reason:    "persist: " + err.Error(),
		}
	}
	return nil
}

// finish records the run outcome and fires the completion hook. It never
// panics the host and never turns hook failures into job failures.
func (j *Job) finish(ctx context.Context, res Result) Result {
	now := time.Now().UTC()
	run := &models.JobRun{
		Name:         jobName,
		State:        res.State,
		LastRunAt:    &now,
		FailureCount: len(res.Failures),
	}
	if !res.Date.IsZero() {
		d := res.Date
		run.LastDate = &d
	}
	if res.Err != nil {
		run.Detail = res.Err.Error()
	} else if len(res.Failures) > 0 {
		run.Detail = fmt.Sprintf("%d position failures", len(res.Failures))
	}
	if err := j.Repo.SaveJobRun(ctx, run); err != nil && j.Logger != nil {
		j.Logger.Warn("save job run failed", zap.Error(err))
	}

	if j.Logger != nil {
		j.Logger.Info("snapshot run finished",
			zap.String("state", res.State),
			zap.Time("date", res.Date),
			zap.Int("portfolios", res.Portfolios),
			zap.Int("positions", res.Positions),
			zap.Int("failures", len(res.Failures)),
		)
	}

	if j.OnCompleted != nil && (res.State == StateCompleted || res.State == StatePartiallyFailed) {
		if err := j.OnCompleted(ctx, res); err != nil && j.Logger != nil {
			j.Logger.Warn("completion hook failed", zap.Error(err))
		}
	}
	return res
}
