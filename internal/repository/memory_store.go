package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ChartScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

// MemoryBarStore serves bars from process memory. It backs tests and
// offline runs fed from CSV.
type MemoryBarStore struct {
	mu   sync.RWMutex
	bars map[string][]models.Bar
	// reads of a ticker in fail return its error
	fail map[string]error
}

func NewMemoryBarStore() *MemoryBarStore {
	return &MemoryBarStore{bars: map[string][]models.Bar{}, fail: map[string]error{}}
}

// Put replaces a ticker's bars, keeping them sorted by date.
func (s *MemoryBarStore) Put(ticker string, bars []models.Bar) {
	cp := make([]models.Bar, len(bars))
	copy(cp, bars)
	for i := range cp {
		cp[i].Ticker = ticker
		cp[i].Date = models.Day(cp[i].Date)
	}
	sort.Slice(cp, func(i, j int) bool { return cp[i].Date.Before(cp[j].Date) })

	s.mu.Lock()
	defer s.mu.Unlock()
	s.bars[ticker] = cp
}

// FailWith makes every read of ticker return err; nil clears it.
func (s *MemoryBarStore) FailWith(ticker string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, ticker)
		return
	}
	s.fail[ticker] = err
}

func (s *MemoryBarStore) Tickers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.bars))
	for t := range s.bars {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func (s *MemoryBarStore) BarsFor(_ context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail[ticker]; err != nil {
		return nil, fmt.Errorf("bars %s: %v: %w", ticker, err, models.ErrBarStoreUnavailable)
	}
	start, end = models.Day(start), models.Day(end)
	out := make([]models.Bar, 0)
	for _, b := range s.bars[ticker] {
		if b.Date.Before(start) || b.Date.After(end) {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (s *MemoryBarStore) LatestPrice(_ context.Context, ticker string) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.fail[ticker]; err != nil {
		return decimal.Zero, fmt.Errorf("latest %s: %v: %w", ticker, err, models.ErrBarStoreUnavailable)
	}
	bars := s.bars[ticker]
	if len(bars) == 0 {
		return decimal.Zero, fmt.Errorf("latest %s: %w", ticker, models.ErrInsufficientData)
	}
	return bars[len(bars)-1].Close, nil
}

// MemorySignalStore keeps signals keyed by (ticker, date).
type MemorySignalStore struct {
	mu      sync.Mutex
	signals map[string]models.Signal
	// PutErr, when set, is returned by PutSignal.
	PutErr error
}

func NewMemorySignalStore() *MemorySignalStore {
	return &MemorySignalStore{signals: map[string]models.Signal{}}
}

func cloneSignal(s models.Signal) models.Signal {
	if s.Outcome != nil {
		o := *s.Outcome
		s.Outcome = &o
	}
	if s.HistoricalWinRate != nil {
		w := *s.HistoricalWinRate
		s.HistoricalWinRate = &w
	}
	return s
}

func (s *MemorySignalStore) PutSignal(_ context.Context, sig *models.Signal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PutErr != nil {
		return s.PutErr
	}
	sig.Date = models.Day(sig.Date)
	key := sig.Key()
	if _, ok := s.signals[key]; ok {
		return fmt.Errorf("signal %s: %w", key, models.ErrStoreConflict)
	}
	if sig.Status == "" {
		sig.Status = models.StatusActive
	}
	s.signals[key] = cloneSignal(*sig)
	return nil
}

func (s *MemorySignalStore) OpenSignals(ctx context.Context) ([]models.Signal, error) {
	return s.Signals(ctx, models.SignalFilter{Status: models.StatusActive})
}

// UpdateOutcome closes an open signal; closing twice is a conflict.
func (s *MemorySignalStore) UpdateOutcome(_ context.Context, ticker string, date time.Time, outcome models.Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := models.SignalKey(ticker, date)
	sig, ok := s.signals[key]
	if !ok || !sig.IsOpen() {
		return fmt.Errorf("close %s: %w", key, models.ErrStoreConflict)
	}
	sig.Status = models.StatusClosed
	sig.Outcome = &outcome
	s.signals[key] = sig
	return nil
}

// Signals returns matches ordered by date then ticker.
func (s *MemorySignalStore) Signals(_ context.Context, f models.SignalFilter) ([]models.Signal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Signal, 0)
	for _, sig := range s.signals {
		if f.Match(sig) {
			out = append(out, cloneSignal(sig))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out, nil
}

// MemoryReportStore keeps backtest reports for the life of the process.
type MemoryReportStore struct {
	mu      sync.RWMutex
	reports map[string]models.BacktestReport
}

func NewMemoryReportStore() *MemoryReportStore {
	return &MemoryReportStore{reports: map[string]models.BacktestReport{}}
}

func (s *MemoryReportStore) SaveReport(_ context.Context, r *models.BacktestReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	cp.Records = append([]models.BacktestRecord(nil), r.Records...)
	s.reports[r.RunID] = cp
	return nil
}

func (s *MemoryReportStore) Report(_ context.Context, runID string) (*models.BacktestReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[runID]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", runID, models.ErrReportNotFound)
	}
	return &r, nil
}
