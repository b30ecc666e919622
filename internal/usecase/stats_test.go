package usecase

import (
	"context"
	"testing"
	"time"

	"ChartScan/internal/domain/models"
	"ChartScan/internal/repository"
	"ChartScan/pkg/cache"
)

func closeSignal(t *testing.T, store *repository.MemorySignalStore, ticker string, p models.Pattern, day int, c models.Classification, ret string) {
	t.Helper()
	ctx := context.Background()
	date := scanDate.AddDate(0, 0, -day)
	sig := openSignal(ticker, date, "100", "95", "110")
	sig.Pattern = p
	if err := store.PutSignal(ctx, &sig); err != nil {
		t.Fatal(err)
	}
	if c == "" {
		return
	}
	out := models.Outcome{Classification: c, ReturnPct: d(ret), DaysHeld: 3, ClosedDate: date.AddDate(0, 0, 3)}
	if err := store.UpdateOutcome(ctx, ticker, date, out); err != nil {
		t.Fatal(err)
	}
}

func seededStats(t *testing.T) (*repository.MemorySignalStore, *StatsService) {
	store := repository.NewMemorySignalStore()
	closeSignal(t, store, "AAPL", models.PatternReversalAfterDecline, 10, models.OutcomeWin, "8")
	closeSignal(t, store, "MSFT", models.PatternReversalAfterDecline, 9, models.OutcomeLoss, "-4")
	closeSignal(t, store, "NVDA", models.PatternGapUpHold, 8, models.OutcomeExpired, "2")
	closeSignal(t, store, "AMZN", models.PatternGapUpHold, 1, "", "")

	mc := cache.NewMemoryCache()
	t.Cleanup(func() { _ = mc.Close() })
	return store, NewStatsService(store, mc, time.Minute, nil)
}

func TestPerformancePolicies(t *testing.T) {
	_, stats := seededStats(t)
	ctx := context.Background()

	cases := []struct {
		policy  models.ExpiredPolicy
		wins    int
		expired int
		winRate string
	}{
		{models.ExpiredExclude, 1, 1, "50"},
		{models.ExpiredBySign, 2, 0, "66.67"},
	}
	for _, tc := range cases {
		t.Run(string(tc.policy), func(t *testing.T) {
			r, err := stats.Performance(ctx, "", tc.policy)
			if err != nil {
				t.Fatal(err)
			}
			o := r.Overall
			if o.Count != 3 || o.Wins != tc.wins || o.Losses != 1 || o.Expired != tc.expired || !o.WinRate.Equal(d(tc.winRate)) {
				t.Fatalf("overall %+v", o)
			}
			if len(r.ByPattern) != 2 || r.ByPattern[0].Pattern != models.PatternReversalAfterDecline {
				t.Fatalf("by pattern %+v", r.ByPattern)
			}
			if !o.AvgReturn.Equal(d("2")) {
				t.Fatalf("avg return %s", o.AvgReturn)
			}
		})
	}
}

func TestPerformanceSinglePattern(t *testing.T) {
	_, stats := seededStats(t)
	r, err := stats.Performance(context.Background(), models.PatternGapUpHold, models.ExpiredExclude)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.ByPattern) != 1 || r.Overall.Count != 1 || r.ByPattern[0].Count != r.Overall.Count {
		t.Fatalf("report %+v", r)
	}
	// no decided trades leaves the rate at zero
	if !r.Overall.WinRate.IsZero() {
		t.Fatalf("win rate %s", r.Overall.WinRate)
	}
}

func TestPerformanceCacheInvalidation(t *testing.T) {
	store, stats := seededStats(t)
	ctx := context.Background()

	if _, err := stats.Performance(ctx, "", models.ExpiredExclude); err != nil {
		t.Fatal(err)
	}
	closeSignal(t, store, "TSLA", models.PatternReversalAfterDecline, 7, models.OutcomeWin, "5")

	r, _ := stats.Performance(ctx, "", models.ExpiredExclude)
	if r.Overall.Count != 3 {
		t.Fatalf("expected cached count 3, got %d", r.Overall.Count)
	}
	stats.Invalidate(ctx)
	r, _ = stats.Performance(ctx, "", models.ExpiredExclude)
	if r.Overall.Count != 4 {
		t.Fatalf("expected fresh count 4, got %d", r.Overall.Count)
	}
}
