package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ChartScan/internal/domain/models"
	"ChartScan/internal/repository"
	"ChartScan/pkg/cache"
)

type scanFixture struct {
	bars    *repository.MemoryBarStore
	signals *repository.MemorySignalStore
	events  *capturePublisher
	metrics *recordingMetrics
	scanner *Scanner
}

func newScanFixture(t *testing.T, cfg ScannerConfig) *scanFixture {
	t.Helper()
	f := &scanFixture{
		bars:    repository.NewMemoryBarStore(),
		signals: repository.NewMemorySignalStore(),
		events:  &capturePublisher{},
		metrics: newRecordingMetrics(),
	}
	f.scanner = NewScanner(f.bars, f.signals, f.events, nil, f.metrics, nil, cfg)
	f.scanner.now = func() time.Time { return scanDate.Add(22 * time.Hour) }
	return f
}

func TestScanClassifiesUniverse(t *testing.T) {
	for _, workers := range []int{1, 4} {
		cfg := DefaultScannerConfig()
		cfg.Workers = workers
		f := newScanFixture(t, cfg)
		f.bars.Put("AAPL", endingOn(scanDate, reversalSeries()))
		f.bars.Put("MSFT", endingOn(scanDate, zigzagSeries()))
		f.bars.Put("TSLA", endingOn(scanDate, zigzagSeries()[:14]))
		f.bars.Put("NVDA", endingOn(scanDate, momentumSeries()))
		f.bars.Put("AMZN", endingOn(scanDate.AddDate(0, 0, -1), zigzagSeries()))
		f.bars.FailWith("GOOG", errors.New("connection refused"))

		res, err := f.scanner.Scan(context.Background(), scanDate, []string{"aapl", "MSFT", "TSLA", "NVDA", "AMZN", "GOOG", "AAPL"})
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if len(res.Signals) != 1 {
			t.Fatalf("workers=%d: got %d signals", workers, len(res.Signals))
		}
		sig := res.Signals[0]
		if sig.Ticker != "AAPL" || sig.Pattern != models.PatternReversalAfterDecline {
			t.Fatalf("unexpected signal %+v", sig)
		}
		if !sig.Entry.Equal(d("96")) || !sig.Support.Equal(d("93")) || !sig.Target.Equal(d("103.68")) {
			t.Fatalf("levels %s/%s/%s", sig.Entry, sig.Support, sig.Target)
		}
		if !sig.DetectedAt.Equal(scanDate.Add(22*time.Hour)) || sig.Status != models.StatusActive {
			t.Fatalf("detected_at %s status %s", sig.DetectedAt, sig.Status)
		}

		want := models.SkipCounts{
			models.SkipNoPattern:        1,
			models.SkipInsufficientData: 1,
			models.SkipOverbought:       1,
			models.SkipStaleWindow:      1,
			models.SkipBarStore:         1,
		}
		for reason, n := range want {
			if res.Skipped[reason] != n {
				t.Errorf("workers=%d: %s = %d, want %d (all %v)", workers, reason, res.Skipped[reason], n, res.Skipped)
			}
		}
		if res.Evaluated != 5 || res.Partial {
			t.Errorf("workers=%d: evaluated %d partial %v", workers, res.Evaluated, res.Partial)
		}
		if len(f.events.signals) != 1 || f.metrics.signals[string(models.PatternReversalAfterDecline)] != 1 {
			t.Errorf("workers=%d: events %d metrics %v", workers, len(f.events.signals), f.metrics.signals)
		}
	}
}

func TestScanSkipsInvalidBars(t *testing.T) {
	f := newScanFixture(t, DefaultScannerConfig())
	broken := endingOn(scanDate, reversalSeries())
	broken[len(broken)-3].High = d("90") // below its own close
	f.bars.Put("AAPL", broken)
	f.bars.Put("MSFT", endingOn(scanDate, zigzagSeries()))

	res, err := f.scanner.Scan(context.Background(), scanDate, []string{"AAPL", "MSFT"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Signals) != 0 || res.Skipped[models.SkipInvalidBars] != 1 || res.Skipped[models.SkipNoPattern] != 1 {
		t.Fatalf("signals %d, skipped %v", len(res.Signals), res.Skipped)
	}
}

func TestScanIsIdempotent(t *testing.T) {
	f := newScanFixture(t, DefaultScannerConfig())
	f.bars.Put("AAPL", endingOn(scanDate, reversalSeries()))

	first, err := f.scanner.Scan(context.Background(), scanDate, []string{"AAPL"})
	if err != nil || len(first.Signals) != 1 {
		t.Fatalf("first run: %v, %+v", err, first)
	}
	second, err := f.scanner.Scan(context.Background(), scanDate, []string{"AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Signals) != 0 || second.Duplicates != 1 || second.Skipped[models.SkipDuplicate] != 1 {
		t.Fatalf("second run %+v", second)
	}
	stored, _ := f.signals.Signals(context.Background(), models.SignalFilter{})
	if len(stored) != 1 {
		t.Fatalf("store holds %d signals", len(stored))
	}
}

func TestScanCeilingOverrideIsMonotonic(t *testing.T) {
	cases := []struct {
		ceiling string
		signals int
	}{
		{"60", 0},
		{"64", 0},
		{"65", 1},
		{"75", 1},
	}
	for _, tc := range cases {
		t.Run(tc.ceiling, func(t *testing.T) {
			f := newScanFixture(t, DefaultScannerConfig())
			f.bars.Put("NVDA", endingOn(scanDate, momentumSeries()))
			res, err := f.scanner.Scan(context.Background(), scanDate, []string{"NVDA"}, WithRSICeiling(d(tc.ceiling)))
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Signals) != tc.signals {
				t.Fatalf("got %d signals, skipped %v", len(res.Signals), res.Skipped)
			}
			if tc.signals == 1 && res.Signals[0].Pattern != models.PatternMomentumAlignment {
				t.Fatalf("pattern %s", res.Signals[0].Pattern)
			}
		})
	}
}

func TestScanPatternSubset(t *testing.T) {
	f := newScanFixture(t, DefaultScannerConfig())
	f.bars.Put("AAPL", endingOn(scanDate, reversalSeries()))
	res, err := f.scanner.Scan(context.Background(), scanDate, []string{"AAPL"}, WithPatterns(models.PatternBullFlag, models.PatternGapUpHold))
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Signals) != 0 || res.Skipped[models.SkipNoPattern] != 1 {
		t.Fatalf("got %+v", res)
	}
}

func TestScanDeadBarStore(t *testing.T) {
	cfg := DefaultScannerConfig()
	cfg.MaxStoreFailures = 3
	f := newScanFixture(t, cfg)
	universe := []string{"A", "B", "C", "D", "E"}
	for _, tk := range universe {
		f.bars.FailWith(tk, errors.New("timeout"))
	}

	res, err := f.scanner.Scan(context.Background(), scanDate, universe)
	if !errors.Is(err, models.ErrBarStoreUnavailable) {
		t.Fatalf("want ErrBarStoreUnavailable, got %v", err)
	}
	if res == nil || res.Skipped[models.SkipBarStore] != 5 || res.Evaluated != 0 {
		t.Fatalf("result %+v", res)
	}
}

func TestScanStoreErrorIsSkipped(t *testing.T) {
	f := newScanFixture(t, DefaultScannerConfig())
	f.bars.Put("AAPL", endingOn(scanDate, reversalSeries()))
	f.signals.PutErr = errors.New("disk full")

	res, err := f.scanner.Scan(context.Background(), scanDate, []string{"AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Signals) != 0 || res.Skipped[models.SkipStoreError] != 1 || len(f.events.signals) != 0 {
		t.Fatalf("got %+v", res)
	}
}

func TestScanLockHeldElsewhere(t *testing.T) {
	locks := cache.NewMemoryCache()
	defer locks.Close()
	bars := repository.NewMemoryBarStore()
	bars.Put("AAPL", endingOn(scanDate, reversalSeries()))
	s := NewScanner(bars, repository.NewMemorySignalStore(), nil, locks, nil, nil, DefaultScannerConfig())

	ok, _ := locks.TryLock(context.Background(), "scan:2024-04-30", time.Minute)
	if !ok {
		t.Fatal("setup lock failed")
	}
	if _, err := s.Scan(context.Background(), scanDate, []string{"AAPL"}); !errors.Is(err, models.ErrScanInProgress) {
		t.Fatalf("want ErrScanInProgress, got %v", err)
	}

	_ = locks.Unlock(context.Background(), "scan:2024-04-30")
	res, err := s.Scan(context.Background(), scanDate, []string{"AAPL"})
	if err != nil || len(res.Signals) != 1 {
		t.Fatalf("after unlock: %v, %+v", err, res)
	}
	if held, _ := locks.Exists(context.Background(), "scan:2024-04-30"); held {
		t.Fatal("scan should release its lock")
	}
}

func TestScanCancelledContext(t *testing.T) {
	f := newScanFixture(t, DefaultScannerConfig())
	f.bars.Put("AAPL", endingOn(scanDate, reversalSeries()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.scanner.Scan(ctx, scanDate, []string{"AAPL"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
	stored, _ := f.signals.Signals(context.Background(), models.SignalFilter{})
	if len(stored) != 0 {
		t.Fatal("nothing should be persisted after cancellation")
	}
}
