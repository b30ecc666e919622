package usecase

import (
	"context"
	"fmt"
	"time"

	"ChartScan/internal/domain/models"
	drepo "ChartScan/internal/domain/repository"
	"ChartScan/internal/services/performance"
	"ChartScan/pkg/cache"
	"ChartScan/pkg/logger"
)

const statsCachePrefix = "stats"

// PerformanceReport is the stats endpoint payload.
type PerformanceReport struct {
	ExpiredPolicy models.ExpiredPolicy  `json:"expired_policy"`
	ByPattern     []models.PatternStats `json:"by_pattern"`
	Overall       models.PatternStats   `json:"overall"`
	GeneratedAt   time.Time             `json:"generated_at"`
}

// StatsService derives per-pattern performance from closed signals.
// Results are cached per policy until the next lifecycle pass invalidates them.
type StatsService struct {
	signals drepo.SignalStore
	cache   cache.Service
	ttl     time.Duration
	log     *logger.Logger
	now     func() time.Time
}

// NewStatsService builds the service; c may be nil to disable caching.
func NewStatsService(signals drepo.SignalStore, c cache.Service, ttl time.Duration, log *logger.Logger) *StatsService {
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &StatsService{
		signals: signals,
		cache:   c,
		ttl:     ttl,
		log:     log.With(logger.String("component", "stats")),
		now:     time.Now,
	}
}

func statsKey(policy models.ExpiredPolicy, pattern models.Pattern) string {
	if pattern == "" {
		pattern = models.OverallPattern
	}
	return cache.Key(statsCachePrefix, policy, pattern)
}

// Performance returns stats for every pattern, or only for pattern when set.
// The overall row always covers the same samples as the per-pattern rows.
func (s *StatsService) Performance(ctx context.Context, pattern models.Pattern, policy models.ExpiredPolicy) (*PerformanceReport, error) {
	if policy == "" {
		policy = models.ExpiredExclude
	}
	key := statsKey(policy, pattern)
	return cache.ReadThrough(ctx, s.cache, key, s.ttl,
		func(ctx context.Context) (*PerformanceReport, bool, error) {
			closed, err := s.signals.Signals(ctx, models.SignalFilter{Status: models.StatusClosed, Pattern: pattern})
			if err != nil {
				return nil, false, fmt.Errorf("stats: load closed signals: %w", err)
			}
			samples := performance.FromSignals(closed)
			byPattern, overall := performance.Summarise(samples, policy)
			if pattern != "" {
				byPattern = onlyPattern(byPattern, pattern)
			}
			return &PerformanceReport{
				ExpiredPolicy: policy,
				ByPattern:     byPattern,
				Overall:       overall,
				GeneratedAt:   s.now().UTC(),
			}, true, nil
		},
		func(op string, err error) {
			s.log.Warn("stats cache "+op, logger.String("key", key), logger.Error(err))
		})
}

func onlyPattern(rows []models.PatternStats, p models.Pattern) []models.PatternStats {
	for _, r := range rows {
		if r.Pattern == p {
			return []models.PatternStats{r}
		}
	}
	return []models.PatternStats{}
}

// Invalidate drops every cached stats entry.
func (s *StatsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, cache.Under(statsCachePrefix)); err != nil {
		s.log.Warn("stats cache invalidate", logger.Error(err))
	}
}
