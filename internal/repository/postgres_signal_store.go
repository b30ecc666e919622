package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChartScan/internal/domain/models"
	"ChartScan/pkg/logger"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// signalRow is the persisted form of a signal and, once closed, its outcome.
type signalRow struct {
	ID                int64            `gorm:"primaryKey;autoIncrement"`
	Ticker            string           `gorm:"type:text;not null;uniqueIndex:idx_signal_ticker_date"`
	SignalDate        time.Time        `gorm:"type:date;not null;uniqueIndex:idx_signal_ticker_date;index"`
	Pattern           string           `gorm:"type:text;not null;index"`
	Entry             decimal.Decimal  `gorm:"type:numeric(18,4);not null"`
	Support           decimal.Decimal  `gorm:"type:numeric(18,4);not null"`
	Resistance        decimal.Decimal  `gorm:"type:numeric(18,4)"`
	Target            decimal.Decimal  `gorm:"type:numeric(18,4);not null"`
	RiskReward        decimal.Decimal  `gorm:"type:numeric(10,4)"`
	VolumeSurge       decimal.Decimal  `gorm:"type:numeric(10,4)"`
	HistoricalWinRate *decimal.Decimal `gorm:"type:numeric(6,2)"`
	SignalCount       int
	Status            string `gorm:"type:text;not null;index"`
	DetectedAt        time.Time

	Outcome    *string          `gorm:"type:text"`
	ExitPrice  *decimal.Decimal `gorm:"type:numeric(18,4)"`
	ReturnPct  *decimal.Decimal `gorm:"type:numeric(10,2)"`
	DaysHeld   *int
	ClosedDate *time.Time       `gorm:"type:date"`
	MaxGain    *decimal.Decimal `gorm:"type:numeric(10,2)"`
	MaxLoss    *decimal.Decimal `gorm:"type:numeric(10,2)"`
}

func (signalRow) TableName() string { return "signals" }

func toRow(s models.Signal) signalRow {
	r := signalRow{
		Ticker:            s.Ticker,
		SignalDate:        models.Day(s.Date),
		Pattern:           string(s.Pattern),
		Entry:             s.Entry,
		Support:           s.Support,
		Resistance:        s.Resistance,
		Target:            s.Target,
		RiskReward:        s.RiskReward,
		VolumeSurge:       s.VolumeSurge,
		HistoricalWinRate: s.HistoricalWinRate,
		SignalCount:       s.SignalCount,
		Status:            string(s.Status),
		DetectedAt:        s.DetectedAt,
	}
	if r.Status == "" {
		r.Status = string(models.StatusActive)
	}
	return r
}

func (r signalRow) toSignal() models.Signal {
	s := models.Signal{
		Date:              models.Day(r.SignalDate),
		Ticker:            r.Ticker,
		Pattern:           models.Pattern(r.Pattern),
		Entry:             r.Entry,
		Support:           r.Support,
		Resistance:        r.Resistance,
		Target:            r.Target,
		RiskReward:        r.RiskReward,
		VolumeSurge:       r.VolumeSurge,
		HistoricalWinRate: r.HistoricalWinRate,
		SignalCount:       r.SignalCount,
		Status:            models.SignalStatus(r.Status),
		DetectedAt:        r.DetectedAt,
	}
	if r.Outcome != nil {
		o := models.Outcome{Classification: models.Classification(*r.Outcome)}
		if r.ExitPrice != nil {
			o.ExitPrice = *r.ExitPrice
		}
		if r.ReturnPct != nil {
			o.ReturnPct = *r.ReturnPct
		}
		if r.DaysHeld != nil {
			o.DaysHeld = *r.DaysHeld
		}
		if r.ClosedDate != nil {
			o.ClosedDate = models.Day(*r.ClosedDate)
		}
		if r.MaxGain != nil {
			o.MaxGain = *r.MaxGain
		}
		if r.MaxLoss != nil {
			o.MaxLoss = *r.MaxLoss
		}
		s.Outcome = &o
	}
	return s
}

// PGSignalStore persists signals in Postgres. The unique index on
// (ticker, signal_date) serialises concurrent scanners.
type PGSignalStore struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPGSignalStore(db *gorm.DB, log *logger.Logger) *PGSignalStore {
	if log == nil {
		log = logger.Nop()
	}
	return &PGSignalStore{db: db, log: log.With(logger.String("component", "pg_signal_store"))}
}

// Migrate creates the signals table and its indexes.
func (s *PGSignalStore) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&signalRow{}); err != nil {
		return fmt.Errorf("migrate signals: %w", err)
	}
	return nil
}

func (s *PGSignalStore) PutSignal(ctx context.Context, sig *models.Signal) error {
	row := toRow(*sig)
	res := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ticker"}, {Name: "signal_date"}},
			DoNothing: true,
		}).
		Create(&row)
	if res.Error != nil {
		return fmt.Errorf("put signal %s: %w", sig.Key(), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("put signal %s: %w", sig.Key(), models.ErrStoreConflict)
	}
	sig.Status = models.SignalStatus(row.Status)
	return nil
}

func (s *PGSignalStore) OpenSignals(ctx context.Context) ([]models.Signal, error) {
	return s.Signals(ctx, models.SignalFilter{Status: models.StatusActive})
}

// UpdateOutcome closes a signal only while it is still active.
func (s *PGSignalStore) UpdateOutcome(ctx context.Context, ticker string, date time.Time, o models.Outcome) error {
	class := string(o.Classification)
	closed := models.Day(o.ClosedDate)
	res := s.db.WithContext(ctx).
		Model(&signalRow{}).
		Where("ticker = ? AND signal_date = ? AND status = ?", ticker, models.Day(date), string(models.StatusActive)).
		Updates(map[string]interface{}{
			"status":      string(models.StatusClosed),
			"outcome":     class,
			"exit_price":  o.ExitPrice,
			"return_pct":  o.ReturnPct,
			"days_held":   o.DaysHeld,
			"closed_date": closed,
			"max_gain":    o.MaxGain,
			"max_loss":    o.MaxLoss,
		})
	if res.Error != nil {
		return fmt.Errorf("close signal %s: %w", models.SignalKey(ticker, date), res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("close signal %s: %w", models.SignalKey(ticker, date), models.ErrStoreConflict)
	}
	return nil
}

func (s *PGSignalStore) Signals(ctx context.Context, f models.SignalFilter) ([]models.Signal, error) {
	q := s.db.WithContext(ctx).Model(&signalRow{}).Order("signal_date ASC, ticker ASC")
	if f.Ticker != "" {
		q = q.Where("ticker = ?", f.Ticker)
	}
	if f.Pattern != "" {
		q = q.Where("pattern = ?", string(f.Pattern))
	}
	if f.Status != "" {
		q = q.Where("status = ?", string(f.Status))
	}
	if !f.From.IsZero() {
		q = q.Where("signal_date >= ?", models.Day(f.From))
	}
	if !f.To.IsZero() {
		q = q.Where("signal_date <= ?", models.Day(f.To))
	}

	var rows []signalRow
	if err := q.Find(&rows).Error; err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("query signals: %w", err)
	}
	out := make([]models.Signal, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toSignal())
	}
	return out, nil
}
