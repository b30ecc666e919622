package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"ChartScan/internal/domain/models"
	drepo "ChartScan/internal/domain/repository"
	"ChartScan/internal/services/patterns"
	"ChartScan/internal/services/performance"
	"ChartScan/pkg/logger"
	"ChartScan/pkg/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type BacktestConfig struct {
	LookbackBars  int
	MinBars       int
	RSICeiling    decimal.Decimal
	Horizon       models.Horizon
	ExpiredPolicy models.ExpiredPolicy
	StrideDays    int
	Workers       int
}

// BacktestParams describes one run. Zero-valued overrides fall back to config.
type BacktestParams struct {
	Start         time.Time
	End           time.Time
	StrideDays    int
	Universe      []string
	Patterns      []models.Pattern
	RSICeiling    *decimal.Decimal
	Horizon       *models.Horizon
	ExpiredPolicy models.ExpiredPolicy
}

// Backtester replays the scanner over historical dates and scores the
// synthesised outcomes. Nothing it does touches the signal store.
type Backtester struct {
	bars    drepo.BarStore
	sink    drepo.RecordSink
	reports drepo.ReportStore
	metrics drepo.Metrics
	log     *logger.Logger
	cfg     BacktestConfig
	now     func() time.Time
	newID   func() string
}

// NewBacktester wires a harness. sink, reports and metrics may be nil.
func NewBacktester(
	bars drepo.BarStore,
	sink drepo.RecordSink,
	reports drepo.ReportStore,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg BacktestConfig,
) *Backtester {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Horizon.Days <= 0 {
		cfg.Horizon = models.DefaultHorizon
	}
	if cfg.ExpiredPolicy == "" {
		cfg.ExpiredPolicy = models.ExpiredExclude
	}
	if cfg.StrideDays < 1 {
		cfg.StrideDays = 1
	}
	return &Backtester{
		bars:    bars,
		sink:    sink,
		reports: reports,
		metrics: metrics,
		log:     log.With(logger.String("component", "backtest")),
		cfg:     cfg,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// NewRunID hands out an id before a run is queued.
func (b *Backtester) NewRunID() string { return b.newID() }

// Run executes a backtest under a fresh run id.
func (b *Backtester) Run(ctx context.Context, p BacktestParams) (*models.BacktestReport, error) {
	return b.RunWithID(ctx, b.newID(), p)
}

// RunWithID executes a backtest and, when a report store is configured,
// records its progress under runID.
func (b *Backtester) RunWithID(ctx context.Context, runID string, p BacktestParams) (*models.BacktestReport, error) {
	start, end := models.Day(p.Start), models.Day(p.End)
	if end.Before(start) {
		return nil, fmt.Errorf("backtest: end %s before start %s: %w", util.FormatDate(end), util.FormatDate(start), models.ErrInvariantViolation)
	}
	universe := util.NormalizeTickers(p.Universe)
	horizon := b.cfg.Horizon
	if p.Horizon != nil && p.Horizon.Days > 0 {
		horizon = *p.Horizon
	}
	policy := b.cfg.ExpiredPolicy
	if p.ExpiredPolicy != "" {
		policy = p.ExpiredPolicy
	}
	stride := b.strideFor(p)
	ceiling := b.cfg.RSICeiling
	if p.RSICeiling != nil {
		ceiling = *p.RSICeiling
	}

	report := &models.BacktestReport{
		RunID:         runID,
		Status:        models.ReportRunning,
		Start:         start,
		End:           end,
		StrideDays:    stride,
		Universe:      universe,
		Horizon:       horizon,
		ExpiredPolicy: policy,
		Records:       []models.BacktestRecord{},
		Skipped:       models.SkipCounts{},
		StartedAt:     b.now().UTC(),
	}
	b.save(ctx, report)

	err := b.run(ctx, report, evaluator{
		lookback:  b.cfg.LookbackBars,
		minBars:   b.cfg.MinBars,
		ceiling:   ceiling,
		detectors: patterns.Filter(patterns.Catalog(), p.Patterns),
		log:       b.log,
	})
	report.FinishedAt = b.now().UTC()
	if err != nil {
		report.Status = models.ReportFailed
		report.Error = err.Error()
		b.save(context.Background(), report)
		b.metrics.RecordError("backtest")
		return report, err
	}

	report.Status = models.ReportDone
	b.save(ctx, report)
	b.metrics.RecordLatency("backtest", report.FinishedAt.Sub(report.StartedAt).Seconds())
	b.log.Info("backtest finished",
		logger.String("run_id", runID),
		logger.Date("start", start),
		logger.Date("end", end),
		logger.Int("dates", report.Dates),
		logger.Int("records", len(report.Records)),
		logger.Decimal("win_rate", report.Overall.WinRate),
		logger.Decimal("expectancy", report.Overall.Expectancy))
	return report, nil
}

func (b *Backtester) strideFor(p BacktestParams) int {
	if p.StrideDays < 1 {
		return b.cfg.StrideDays
	}
	return p.StrideDays
}

func (b *Backtester) save(ctx context.Context, report *models.BacktestReport) {
	if b.reports == nil {
		return
	}
	if err := b.reports.SaveReport(ctx, report); err != nil {
		b.log.Warn("save backtest report", logger.String("run_id", report.RunID), logger.Error(err))
	}
}

func (b *Backtester) run(ctx context.Context, report *models.BacktestReport, ev evaluator) error {
	dates := util.DateRange(report.Start, report.End, report.StrideDays)
	report.Dates = len(dates)
	if len(dates) == 0 || len(report.Universe) == 0 {
		report.ByPattern, report.Overall = performance.Summarise(nil, report.ExpiredPolicy)
		return nil
	}

	history, err := b.preload(ctx, report)
	if err != nil {
		return err
	}

	perDate := make([]dateResult, len(dates))
	workers := b.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, day := range dates {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			perDate[i] = b.evaluateDate(ev, history, report, day)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	for _, r := range perDate {
		report.Records = append(report.Records, r.records...)
		report.Skipped.Merge(r.skipped)
	}
	report.ByPattern, report.Overall = performance.Summarise(performance.FromRecords(report.Records), report.ExpiredPolicy)

	if b.sink != nil && len(report.Records) > 0 {
		if err := b.sink.WriteRecords(ctx, report.RunID, report.Records); err != nil {
			return fmt.Errorf("backtest: write records: %w", err)
		}
	}
	return nil
}

// history is every ticker's bars over the whole run, loaded once.
type history map[string][]models.Bar

// preload fetches [start - lookback, end + horizon] per ticker. A ticker that
// fails to load is counted once per evaluation date; if all fail the run fails.
func (b *Backtester) preload(ctx context.Context, report *models.BacktestReport) (history, error) {
	from := lookbackStart(report.Start, b.cfg.LookbackBars)
	to := report.End.AddDate(0, 0, report.Horizon.Span()+7)

	h := make(history, len(report.Universe))
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(max(b.cfg.Workers, 1))
	failed := 0
	for _, ticker := range report.Universe {
		g.Go(func() error {
			bars, err := b.bars.BarsFor(ctx, ticker, from, to)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failed++
				b.log.Error("preload bars", logger.String("ticker", ticker), logger.Error(err))
				return nil
			}
			sort.Slice(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
			h[ticker] = bars
			return nil
		})
	}
	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if failed == len(report.Universe) {
		return nil, fmt.Errorf("backtest: no ticker could be loaded: %w", models.ErrBarStoreUnavailable)
	}
	return h, nil
}

type dateResult struct {
	records []models.BacktestRecord
	skipped models.SkipCounts
}

func (b *Backtester) evaluateDate(ev evaluator, h history, report *models.BacktestReport, day time.Time) dateResult {
	res := dateResult{skipped: models.SkipCounts{}}
	for _, ticker := range report.Universe {
		bars, ok := h[ticker]
		if !ok {
			res.skipped.Add(models.SkipBarStore)
			continue
		}
		e := ev.evaluate(ticker, bars, day)
		if e.signal == nil {
			res.skipped.Add(e.skip)
			continue
		}

		// forward bars live apart from the detection window
		forward := models.BarsAfter(bars, day)
		last := day
		if n := len(forward); n > 0 {
			last = forward[n-1].Date
		}
		out, closed := EvaluateOutcome(*e.signal, forward, report.Horizon, last)
		if !closed {
			res.skipped.Add(models.SkipIncompleteForward)
			continue
		}
		sig := e.signal
		res.records = append(res.records, models.BacktestRecord{
			Date:      sig.Date,
			Ticker:    sig.Ticker,
			Pattern:   sig.Pattern,
			Entry:     sig.Entry,
			Support:   sig.Support,
			Target:    sig.Target,
			RR:        sig.RiskReward,
			Status:    out.Classification,
			ReturnPct: out.ReturnPct,
			MaxGain:   out.MaxGain,
			MaxLoss:   out.MaxLoss,
			DaysHeld:  out.DaysHeld,
		})
	}
	return res
}

// ErrNoBacktestReports is returned by Report when no report store is wired.
var ErrNoBacktestReports = errors.New("backtest reports are not stored")

// Report looks up a stored report by run id.
func (b *Backtester) Report(ctx context.Context, runID string) (*models.BacktestReport, error) {
	if b.reports == nil {
		return nil, ErrNoBacktestReports
	}
	return b.reports.Report(ctx, runID)
}
