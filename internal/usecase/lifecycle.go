package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChartScan/internal/domain/models"
	drepo "ChartScan/internal/domain/repository"
	"ChartScan/pkg/logger"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// pctChange is (to-from)/from in percent, rounded to two places.
func pctChange(from, to decimal.Decimal) decimal.Decimal {
	if from.IsZero() {
		return decimal.Zero
	}
	return to.Sub(from).Div(from).Mul(hundred).RoundBank(2)
}

// EvaluateOutcome walks forward bars (dated after the signal, ascending, none
// after asOf) and decides whether the signal closes. A bar that touches
// support is a LOSS even if it also reaches the target. It returns false
// when the signal should stay open.
func EvaluateOutcome(sig models.Signal, forward []models.Bar, h models.Horizon, asOf time.Time) (*models.Outcome, bool) {
	from := models.Day(sig.Date)
	asOf = models.Day(asOf)
	if len(forward) == 0 {
		return nil, false
	}

	var (
		maxHigh, minLow decimal.Decimal
		last            models.Bar
		inside          int
		beyond          bool
	)
	for i, b := range forward {
		idx := i + 1
		if !h.Includes(from, b.Date, idx) {
			beyond = true
			break
		}
		if inside == 0 {
			maxHigh, minLow = b.High, b.Low
		} else {
			maxHigh = decimal.Max(maxHigh, b.High)
			minLow = decimal.Min(minLow, b.Low)
		}
		inside, last = idx, b

		closeAt := func(c models.Classification, exit decimal.Decimal) *models.Outcome {
			return &models.Outcome{
				Classification: c,
				ExitPrice:      exit,
				ReturnPct:      pctChange(sig.Entry, exit),
				DaysHeld:       idx,
				ClosedDate:     models.Day(b.Date),
				MaxGain:        pctChange(sig.Entry, maxHigh),
				MaxLoss:        pctChange(sig.Entry, minLow),
			}
		}
		if b.Low.LessThanOrEqual(sig.Support) {
			return closeAt(models.OutcomeLoss, sig.Support), true
		}
		if b.High.GreaterThanOrEqual(sig.Target) {
			return closeAt(models.OutcomeWin, sig.Target), true
		}
	}

	done := beyond
	switch h.Unit {
	case models.HorizonTrading:
		done = done || inside >= h.Days
	default:
		done = done || !asOf.Before(h.End(from))
	}
	if !done {
		return nil, false
	}

	if inside == 0 {
		// the first bar we have is already past the horizon
		return &models.Outcome{
			Classification: models.OutcomeExpired,
			ExitPrice:      sig.Entry,
			ReturnPct:      decimal.Zero,
			ClosedDate:     h.End(from),
			MaxGain:        decimal.Zero,
			MaxLoss:        decimal.Zero,
		}, true
	}
	return &models.Outcome{
		Classification: models.OutcomeExpired,
		ExitPrice:      last.Close,
		ReturnPct:      pctChange(sig.Entry, last.Close),
		DaysHeld:       inside,
		ClosedDate:     models.Day(last.Date),
		MaxGain:        pctChange(sig.Entry, maxHigh),
		MaxLoss:        pctChange(sig.Entry, minLow),
	}, true
}

// LifecycleEvaluator closes open signals against bars that arrived since.
type LifecycleEvaluator struct {
	bars    drepo.BarStore
	signals drepo.SignalStore
	events  drepo.EventPublisher
	metrics drepo.Metrics
	log     *logger.Logger
	horizon models.Horizon

	onClosed []func(context.Context)
}

func NewLifecycleEvaluator(
	bars drepo.BarStore,
	signals drepo.SignalStore,
	events drepo.EventPublisher,
	metrics drepo.Metrics,
	log *logger.Logger,
	horizon models.Horizon,
) *LifecycleEvaluator {
	if metrics == nil {
		metrics = noopMetrics{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if horizon.Days <= 0 {
		horizon = models.DefaultHorizon
	}
	return &LifecycleEvaluator{
		bars:    bars,
		signals: signals,
		events:  events,
		metrics: metrics,
		log:     log.With(logger.String("component", "lifecycle")),
		horizon: horizon,
	}
}

// OnClosed registers fn to run after a pass that closed at least one signal.
func (l *LifecycleEvaluator) OnClosed(fn func(context.Context)) {
	l.onClosed = append(l.onClosed, fn)
}

// Run evaluates every open signal as of asOf.
func (l *LifecycleEvaluator) Run(ctx context.Context, asOf time.Time) (*models.LifecycleResult, error) {
	asOf = models.Day(asOf)
	started := time.Now()

	open, err := l.signals.OpenSignals(ctx)
	if err != nil {
		l.metrics.RecordError("signal_store")
		return nil, fmt.Errorf("lifecycle: load open signals: %w", err)
	}

	res := &models.LifecycleResult{AsOf: asOf, Closed: map[models.Classification]int{}}
	storeFailures, fetched := 0, 0
	for _, sig := range open {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Examined++
		if !sig.Date.Before(asOf) {
			res.StillOpen++
			continue
		}

		bars, err := l.bars.BarsFor(ctx, sig.Ticker, sig.Date.AddDate(0, 0, 1), asOf)
		if err != nil {
			res.Failed++
			storeFailures++
			l.log.Error("load forward bars", logger.String("ticker", sig.Ticker), logger.Date("date", sig.Date), logger.Error(err))
			continue
		}
		fetched++
		out, closed := EvaluateOutcome(sig, models.BarsAfter(bars, sig.Date), l.horizon, asOf)
		if !closed {
			res.StillOpen++
			continue
		}

		err = l.signals.UpdateOutcome(ctx, sig.Ticker, sig.Date, *out)
		switch {
		case errors.Is(err, models.ErrStoreConflict):
			l.log.Debug("signal already closed", logger.String("ticker", sig.Ticker), logger.Date("date", sig.Date))
			continue
		case err != nil:
			res.Failed++
			l.metrics.RecordError("signal_store")
			l.log.Error("update outcome", logger.String("ticker", sig.Ticker), logger.Date("date", sig.Date), logger.Error(err))
			continue
		}

		res.Closed[out.Classification]++
		l.metrics.RecordOutcome(string(out.Classification))
		l.log.Info("signal closed",
			logger.String("ticker", sig.Ticker),
			logger.Date("date", sig.Date),
			logger.String("pattern", string(sig.Pattern)),
			logger.String("outcome", string(out.Classification)),
			logger.Decimal("return_pct", out.ReturnPct),
			logger.Int("days_held", out.DaysHeld))

		if l.events != nil {
			sig.Status = models.StatusClosed
			sig.Outcome = out
			if err := l.events.PublishOutcome(ctx, sig); err != nil {
				l.metrics.RecordError("publish_outcome")
				l.log.Warn("publish outcome", logger.String("ticker", sig.Ticker), logger.Error(err))
			}
		}
	}

	if len(res.Closed) > 0 {
		for _, fn := range l.onClosed {
			fn(ctx)
		}
	}
	l.metrics.RecordLatency("lifecycle", time.Since(started).Seconds())
	l.log.Info("lifecycle finished",
		logger.Date("as_of", asOf),
		logger.Int("examined", res.Examined),
		logger.Int("still_open", res.StillOpen),
		logger.Int("failed", res.Failed))

	if storeFailures > 0 && fetched == 0 {
		return res, fmt.Errorf("lifecycle: %d forward reads failed: %w", storeFailures, models.ErrBarStoreUnavailable)
	}
	return res, nil
}
