package repository

import (
	"context"
	"time"

	"ChartScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

// BarStore serves daily bars in ascending date order. Range bounds are inclusive.
type BarStore interface {
	BarsFor(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error)
	LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error)
}

// SignalStore is the authoritative serialisation point for signals.
// PutSignal is unique on (ticker, date) and reports duplicates as ErrStoreConflict.
type SignalStore interface {
	PutSignal(ctx context.Context, sig *models.Signal) error
	OpenSignals(ctx context.Context) ([]models.Signal, error)
	UpdateOutcome(ctx context.Context, ticker string, date time.Time, outcome models.Outcome) error
	Signals(ctx context.Context, filter models.SignalFilter) ([]models.Signal, error)
}

// EventPublisher fans signal and outcome events out to downstream consumers.
type EventPublisher interface {
	PublishSignal(ctx context.Context, sig models.Signal) error
	PublishOutcome(ctx context.Context, sig models.Signal) error
	Close() error
}

// RecordSink persists flat backtest records.
type RecordSink interface {
	WriteRecords(ctx context.Context, runID string, records []models.BacktestRecord) error
}

// ReportStore keeps backtest reports addressable by run id.
type ReportStore interface {
	SaveReport(ctx context.Context, report *models.BacktestReport) error
	Report(ctx context.Context, runID string) (*models.BacktestReport, error)
}

// Locker guards work that must not run concurrently across instances.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	Unlock(ctx context.Context, key string) error
}

type Metrics interface {
	RecordSignal(pattern string)
	RecordSkip(reason string)
	RecordOutcome(classification string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
