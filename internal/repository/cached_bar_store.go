package repository

import (
	"context"
	"time"

	"ChartScan/internal/domain/models"
	drepo "ChartScan/internal/domain/repository"
	"ChartScan/pkg/cache"
	"ChartScan/pkg/logger"
	"ChartScan/pkg/util"

	"github.com/shopspring/decimal"
)

// CachedBarStore memoises BarsFor per (ticker, start, end). Cache failures
// fall through to the wrapped store.
type CachedBarStore struct {
	next  drepo.BarStore
	cache cache.Service
	ttl   time.Duration
	log   *logger.Logger
}

func NewCachedBarStore(next drepo.BarStore, c cache.Service, ttl time.Duration, log *logger.Logger) *CachedBarStore {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &CachedBarStore{next: next, cache: c, ttl: ttl, log: log}
}

func barsKey(ticker string, start, end time.Time) string {
	return cache.Key("bars", ticker, util.FormatDate(start), util.FormatDate(end))
}

// BarsFor reads through the cache. A range ending today can still grow, so
// only closed ranges are stored.
func (s *CachedBarStore) BarsFor(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	key := barsKey(ticker, start, end)
	return cache.ReadThrough(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) ([]models.Bar, bool, error) {
			bars, err := s.next.BarsFor(ctx, ticker, start, end)
			return bars, models.Day(end).Before(util.Day(time.Now())), err
		},
		func(op string, err error) {
			s.log.Warn("bar cache "+op, logger.String("key", key), logger.Error(err))
		})
}

func (s *CachedBarStore) LatestPrice(ctx context.Context, ticker string) (decimal.Decimal, error) {
	return s.next.LatestPrice(ctx, ticker)
}
