package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ChartScan/internal/domain/models"
	"ChartScan/pkg/cache"
)

// CacheReportStore keeps backtest reports in the shared cache so any
// instance can answer GET /api/backtest/:id.
type CacheReportStore struct {
	cache cache.Service
	ttl   time.Duration
}

func NewCacheReportStore(c cache.Service, ttl time.Duration) *CacheReportStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &CacheReportStore{cache: c, ttl: ttl}
}

func reportKey(runID string) string { return cache.Key("backtest", runID) }

func (s *CacheReportStore) SaveReport(ctx context.Context, r *models.BacktestReport) error {
	if err := s.cache.Set(ctx, reportKey(r.RunID), r, s.ttl); err != nil {
		return fmt.Errorf("save report %s: %w", r.RunID, err)
	}
	return nil
}

func (s *CacheReportStore) Report(ctx context.Context, runID string) (*models.BacktestReport, error) {
	var r models.BacktestReport
	err := s.cache.Get(ctx, reportKey(runID), &r)
	switch {
	case errors.Is(err, cache.ErrCacheMiss):
		return nil, fmt.Errorf("report %s: %w", runID, models.ErrReportNotFound)
	case err != nil:
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}
	return &r, nil
}
