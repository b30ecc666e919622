package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"ChartScan/internal/domain/models"
	drepo "ChartScan/internal/domain/repository"
	"ChartScan/internal/services/patterns"
	"ChartScan/pkg/logger"
	"ChartScan/pkg/util"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// ScannerConfig carries the scanner knobs from config.
type ScannerConfig struct {
	LookbackBars     int
	MinBars          int
	RSICeiling       decimal.Decimal
	RunTimeout       time.Duration
	Workers          int
	MaxStoreFailures int
	LockTTL          time.Duration
}

// DefaultScannerConfig mirrors the values in config.yaml.
func DefaultScannerConfig() ScannerConfig {
	return ScannerConfig{
		LookbackBars:     65,
		MinBars:          50,
		RSICeiling:       decimal.NewFromInt(60),
		RunTimeout:       5 * time.Minute,
		Workers:          1,
		MaxStoreFailures: 5,
		LockTTL:          10 * time.Minute,
	}
}

// Scanner evaluates a universe of tickers for one date and persists the
// first signal per ticker.
type Scanner struct {
	bars      drepo.BarStore
	signals   drepo.SignalStore
	events    drepo.EventPublisher
	locker    drepo.Locker
	metrics   drepo.Metrics
	log       *logger.Logger
	cfg       ScannerConfig
	detectors []patterns.Detector
	now       func() time.Time
}

// NewScanner wires a scanner. events, locker and metrics may be nil.
func NewScanner(
	bars drepo.BarStore,
	signals drepo.SignalStore,
	events drepo.EventPublisher,
	locker drepo.Locker,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg ScannerConfig,
) *Scanner {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Scanner{
		bars:      bars,
		signals:   signals,
		events:    events,
		locker:    locker,
		metrics:   metrics,
		log:       log.With(logger.String("component", "scanner")),
		cfg:       cfg,
		detectors: patterns.Catalog(),
		now:       time.Now,
	}
}

type scanOptions struct {
	patterns []models.Pattern
	ceiling  *decimal.Decimal
}

// ScanOption narrows a single run.
type ScanOption func(*scanOptions)

// WithPatterns restricts the run to the named detectors, still in catalog order.
func WithPatterns(p ...models.Pattern) ScanOption {
	return func(o *scanOptions) { o.patterns = p }
}

// WithRSICeiling overrides the overbought threshold for one run.
func WithRSICeiling(c decimal.Decimal) ScanOption {
	return func(o *scanOptions) { o.ceiling = &c }
}

func (s *Scanner) evaluator(opts []ScanOption) evaluator {
	var o scanOptions
	for _, fn := range opts {
		fn(&o)
	}
	ceiling := s.cfg.RSICeiling
	if o.ceiling != nil {
		ceiling = *o.ceiling
	}
	return evaluator{
		lookback:  s.cfg.LookbackBars,
		minBars:   s.cfg.MinBars,
		ceiling:   ceiling,
		detectors: patterns.Filter(s.detectors, o.patterns),
		log:       s.log,
	}
}

// Scan runs the catalog over universe for date. It returns an error only
// when the bar store looks dead, the scan lock is held elsewhere, or the
// caller's context is gone; all per-ticker problems land in Skipped.
func (s *Scanner) Scan(ctx context.Context, date time.Time, universe []string, opts ...ScanOption) (*models.ScanResult, error) {
	date = models.Day(date)
	universe = util.NormalizeTickers(universe)
	started := time.Now()

	if s.locker != nil {
		key := "scan:" + util.FormatDate(date)
		ok, err := s.locker.TryLock(ctx, key, s.cfg.LockTTL)
		switch {
		case err != nil:
			s.log.Warn("scan lock unavailable, continuing without it", logger.Date("date", date), logger.Error(err))
		case !ok:
			return nil, fmt.Errorf("scan %s: %w", util.FormatDate(date), models.ErrScanInProgress)
		default:
			defer func() {
				if err := s.locker.Unlock(context.Background(), key); err != nil {
					s.log.Warn("scan unlock failed", logger.String("key", key), logger.Error(err))
				}
			}()
		}
	}

	runCtx := ctx
	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	ev := s.evaluator(opts)
	results := s.evaluateUniverse(runCtx, ev, date, universe)

	res := &models.ScanResult{Date: date, Signals: []models.Signal{}, Skipped: models.SkipCounts{}}
	failed, attempted := 0, 0
	for _, r := range results {
		if r.loaded {
			attempted++
			res.Evaluated++
		}
		res.DetectorErrors += r.detectorErrors
		switch r.skip {
		case "":
		case models.SkipBarStore:
			attempted++
			failed++
			s.skip(res, r.skip)
		case models.SkipDeadline:
			res.Partial = true
			s.skip(res, r.skip)
		default:
			s.skip(res, r.skip)
		}
	}

	if err := ctx.Err(); err != nil {
		return res, err
	}
	for _, r := range results {
		if r.signal != nil {
			s.persist(ctx, res, r.signal)
		}
	}

	s.metrics.RecordLatency("scan", time.Since(started).Seconds())
	s.log.Info("scan finished",
		logger.Date("date", date),
		logger.Int("universe", len(universe)),
		logger.Int("evaluated", res.Evaluated),
		logger.Int("signals", len(res.Signals)),
		logger.Int("skipped", res.Skipped.Total()),
		logger.Int("detector_errors", res.DetectorErrors),
		logger.Bool("partial", res.Partial),
		logger.Duration("took_ms", time.Since(started)))

	if attempted > 0 && (failed == attempted || maxRun(results, models.SkipBarStore) >= s.maxFailures()) {
		s.metrics.RecordError("bar_store")
		return res, fmt.Errorf("scan %s: %d of %d tickers failed: %w", util.FormatDate(date), failed, attempted, models.ErrBarStoreUnavailable)
	}
	return res, nil
}

func (s *Scanner) skip(res *models.ScanResult, reason models.SkipReason) {
	res.Skipped.Add(reason)
	s.metrics.RecordSkip(string(reason))
}

func (s *Scanner) maxFailures() int {
	if s.cfg.MaxStoreFailures <= 0 {
		return math.MaxInt
	}
	return s.cfg.MaxStoreFailures
}

// evaluateUniverse returns one evaluation per ticker in universe order.
func (s *Scanner) evaluateUniverse(ctx context.Context, ev evaluator, date time.Time, universe []string) []evaluation {
	results := make([]evaluation, len(universe))
	start := lookbackStart(date, s.cfg.LookbackBars)

	if s.cfg.Workers <= 1 {
		consecutive := 0
		for i, ticker := range universe {
			if ctx.Err() != nil || consecutive >= s.maxFailures() {
				reason := models.SkipDeadline
				if ctx.Err() == nil {
					reason = models.SkipBarStore
				}
				for j := i; j < len(universe); j++ {
					results[j] = evaluation{ticker: universe[j], skip: reason}
				}
				break
			}
			results[i] = s.evaluateTicker(ctx, ev, ticker, start, date)
			if results[i].skip == models.SkipBarStore {
				consecutive++
			} else {
				consecutive = 0
			}
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for i, ticker := range universe {
		g.Go(func() error {
			if ctx.Err() != nil {
				results[i] = evaluation{ticker: ticker, skip: models.SkipDeadline}
				return nil
			}
			results[i] = s.evaluateTicker(ctx, ev, ticker, start, date)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scanner) evaluateTicker(ctx context.Context, ev evaluator, ticker string, start, date time.Time) evaluation {
	bars, err := s.bars.BarsFor(ctx, ticker, start, date)
	if err != nil {
		if ctx.Err() != nil {
			return evaluation{ticker: ticker, skip: models.SkipDeadline}
		}
		s.log.Error("bar store read failed", logger.String("ticker", ticker), logger.Date("date", date), logger.Error(err))
		return evaluation{ticker: ticker, skip: models.SkipBarStore}
	}
	return ev.evaluate(ticker, bars, date)
}

func (s *Scanner) persist(ctx context.Context, res *models.ScanResult, sig *models.Signal) {
	sig.DetectedAt = s.now().UTC()
	err := s.signals.PutSignal(ctx, sig)
	switch {
	case errors.Is(err, models.ErrStoreConflict):
		res.Duplicates++
		s.skip(res, models.SkipDuplicate)
		s.log.Debug("signal already stored", logger.String("ticker", sig.Ticker), logger.Date("date", sig.Date))
		return
	case err != nil:
		s.skip(res, models.SkipStoreError)
		s.metrics.RecordError("signal_store")
		s.log.Error("store signal", logger.String("ticker", sig.Ticker), logger.String("pattern", string(sig.Pattern)), logger.Error(err))
		return
	}

	res.Signals = append(res.Signals, *sig)
	s.metrics.RecordSignal(string(sig.Pattern))
	s.log.Info("signal",
		logger.String("ticker", sig.Ticker),
		logger.Date("date", sig.Date),
		logger.String("pattern", string(sig.Pattern)),
		logger.Decimal("entry", sig.Entry),
		logger.Decimal("support", sig.Support),
		logger.Decimal("target", sig.Target),
		logger.Decimal("rr", sig.RiskReward))

	if s.events != nil {
		if err := s.events.PublishSignal(ctx, *sig); err != nil {
			s.metrics.RecordError("publish_signal")
			s.log.Warn("publish signal", logger.String("ticker", sig.Ticker), logger.Error(err))
		}
	}
}

// maxRun is the longest streak of reason in result order.
func maxRun(results []evaluation, reason models.SkipReason) int {
	best, cur := 0, 0
	for _, r := range results {
		if r.skip == reason {
			cur++
			if cur > best {
				best = cur
			}
		} else {
			cur = 0
		}
	}
	return best
}

type noopMetrics struct{}

func (noopMetrics) RecordSignal(string)           {}
func (noopMetrics) RecordSkip(string)             {}
func (noopMetrics) RecordOutcome(string)          {}
func (noopMetrics) RecordError(string)            {}
func (noopMetrics) RecordLatency(string, float64) {}
