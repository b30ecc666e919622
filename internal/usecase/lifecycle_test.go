package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"ChartScan/internal/domain/models"
	"ChartScan/internal/repository"
)

func openSignal(ticker string, date time.Time, entry, support, target string) models.Signal {
	return models.Signal{
		Date:    date,
		Ticker:  ticker,
		Pattern: models.PatternReversalAfterDecline,
		Entry:   d(entry),
		Support: d(support),
		Target:  d(target),
		Status:  models.StatusActive,
	}
}

func TestEvaluateOutcome(t *testing.T) {
	sig := openSignal("AAPL", scanDate, "100", "95", "110")
	calendar7 := models.DefaultHorizon

	cases := []struct {
		name     string
		sig      models.Signal
		forward  []models.Bar
		horizon  models.Horizon
		asOf     time.Time
		closed   bool
		class    models.Classification
		ret      string
		daysHeld int
	}{
		{
			name: "win crossing target on day 6",
			sig:  openSignal("AAPL", scanDate, "96", "93", "103.68"),
			forward: startingAfter(scanDate, append(
				repeat(5, bar("97", "99", "95", "98", 1000)),
				bar("99", "104", "98", "103", 1000),
				bar("103", "105", "102", "104", 1000),
			)),
			horizon: calendar7, asOf: scanDate.AddDate(0, 0, 20),
			closed: true, class: models.OutcomeWin, ret: "8", daysHeld: 6,
		},
		{
			name:    "both levels on one bar is a loss",
			sig:     sig,
			forward: startingAfter(scanDate, []models.Bar{bar("100", "112", "94", "105", 1000)}),
			horizon: calendar7, asOf: scanDate.AddDate(0, 0, 1),
			closed: true, class: models.OutcomeLoss, ret: "-5", daysHeld: 1,
		},
		{
			name: "expires at last close inside horizon",
			sig:  sig,
			forward: startingAfter(scanDate, []models.Bar{
				bar("100", "101", "97", "98", 1000),
				bar("98", "100", "96.5", "99", 1000),
				bar("99", "104", "98", "103", 1000),
				bar("103", "108", "101", "106", 1000),
				bar("106", "107", "102", "104", 1000),
				bar("104", "105", "100", "101", 1000),
				bar("101", "103", "99", "102", 1000),
			}),
			horizon: calendar7, asOf: scanDate.AddDate(0, 0, 7),
			closed: true, class: models.OutcomeExpired, ret: "2", daysHeld: 7,
		},
		{
			name:    "still open before the horizon ends",
			sig:     sig,
			forward: startingAfter(scanDate, repeat(3, bar("100", "101", "99", "100", 1000))),
			horizon: calendar7, asOf: scanDate.AddDate(0, 0, 3),
			closed: false,
		},
		{
			name:    "no forward bars stays open",
			sig:     sig,
			horizon: calendar7, asOf: scanDate.AddDate(0, 0, 30),
			closed: false,
		},
		{
			name:    "trading horizon counts bars",
			sig:     sig,
			forward: startingAfter(scanDate, repeat(3, bar("100", "102", "99", "101", 1000))),
			horizon: models.Horizon{Days: 3, Unit: models.HorizonTrading}, asOf: scanDate.AddDate(0, 0, 3),
			closed: true, class: models.OutcomeExpired, ret: "1", daysHeld: 3,
		},
		{
			name: "only bars beyond the horizon expire flat",
			sig:  sig,
			forward: []models.Bar{func() models.Bar {
				b := bar("100", "120", "90", "100", 1000)
				b.Date = scanDate.AddDate(0, 0, 10)
				return b
			}()},
			horizon: calendar7, asOf: scanDate.AddDate(0, 0, 10),
			closed: true, class: models.OutcomeExpired, ret: "0", daysHeld: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, closed := EvaluateOutcome(tc.sig, tc.forward, tc.horizon, tc.asOf)
			if closed != tc.closed {
				t.Fatalf("closed = %v, want %v", closed, tc.closed)
			}
			if !closed {
				return
			}
			if out.Classification != tc.class || !out.ReturnPct.Equal(d(tc.ret)) || out.DaysHeld != tc.daysHeld {
				t.Fatalf("got %s %s%% after %d days", out.Classification, out.ReturnPct, out.DaysHeld)
			}
		})
	}
}

func TestEvaluateOutcomeExcursions(t *testing.T) {
	sig := openSignal("AAPL", scanDate, "100", "95", "110")
	forward := startingAfter(scanDate, []models.Bar{
		bar("100", "104", "97", "101", 1000),
		bar("101", "111", "99", "110", 1000),
	})
	out, closed := EvaluateOutcome(sig, forward, models.DefaultHorizon, scanDate.AddDate(0, 0, 2))
	if !closed || out.Classification != models.OutcomeWin {
		t.Fatalf("got %+v", out)
	}
	if !out.ExitPrice.Equal(d("110")) || !out.MaxGain.Equal(d("11")) || !out.MaxLoss.Equal(d("-3")) {
		t.Fatalf("exit %s gain %s loss %s", out.ExitPrice, out.MaxGain, out.MaxLoss)
	}
	if !out.ClosedDate.Equal(scanDate.AddDate(0, 0, 2)) {
		t.Fatalf("closed on %s", out.ClosedDate)
	}
}

func TestLifecycleRun(t *testing.T) {
	ctx := context.Background()
	bars := repository.NewMemoryBarStore()
	signals := repository.NewMemorySignalStore()
	events := &capturePublisher{}
	metrics := newRecordingMetrics()

	win := openSignal("AAPL", scanDate, "96", "93", "103.68")
	loss := openSignal("MSFT", scanDate, "100", "95", "110")
	today := openSignal("NVDA", scanDate.AddDate(0, 0, 3), "50", "48", "55")
	for _, s := range []models.Signal{win, loss, today} {
		if err := signals.PutSignal(ctx, &s); err != nil {
			t.Fatal(err)
		}
	}
	bars.Put("AAPL", startingAfter(scanDate, []models.Bar{bar("97", "104", "96", "103", 1000)}))
	bars.Put("MSFT", startingAfter(scanDate, []models.Bar{bar("99", "100", "94", "96", 1000)}))

	l := NewLifecycleEvaluator(bars, signals, events, metrics, nil, models.DefaultHorizon)
	invalidated := 0
	l.OnClosed(func(context.Context) { invalidated++ })

	res, err := l.Run(ctx, scanDate.AddDate(0, 0, 3))
	if err != nil {
		t.Fatal(err)
	}
	if res.Examined != 3 || res.StillOpen != 1 || res.Closed[models.OutcomeWin] != 1 || res.Closed[models.OutcomeLoss] != 1 {
		t.Fatalf("result %+v", res)
	}
	if len(events.outcomes) != 2 || events.outcomes[0].Status != models.StatusClosed || events.outcomes[0].Outcome == nil {
		t.Fatalf("events %+v", events.outcomes)
	}
	if invalidated != 1 || metrics.outcomes["WIN"] != 1 {
		t.Fatalf("invalidated %d, outcomes %v", invalidated, metrics.outcomes)
	}

	open, _ := signals.OpenSignals(ctx)
	if len(open) != 1 || open[0].Ticker != "NVDA" {
		t.Fatalf("open %+v", open)
	}

	// a second pass finds nothing new to close
	res, err = l.Run(ctx, scanDate.AddDate(0, 0, 3))
	if err != nil || len(res.Closed) != 0 || invalidated != 1 {
		t.Fatalf("second pass %+v, %v", res, err)
	}
}

func TestLifecycleBarStoreDown(t *testing.T) {
	ctx := context.Background()
	bars := repository.NewMemoryBarStore()
	signals := repository.NewMemorySignalStore()
	s := openSignal("AAPL", scanDate, "96", "93", "103.68")
	_ = signals.PutSignal(ctx, &s)
	bars.FailWith("AAPL", errors.New("refused"))

	res, err := NewLifecycleEvaluator(bars, signals, nil, nil, nil, models.DefaultHorizon).Run(ctx, scanDate.AddDate(0, 0, 5))
	if !errors.Is(err, models.ErrBarStoreUnavailable) {
		t.Fatalf("want ErrBarStoreUnavailable, got %v", err)
	}
	if res.Failed != 1 {
		t.Fatalf("result %+v", res)
	}
	open, _ := signals.OpenSignals(ctx)
	if len(open) != 1 {
		t.Fatal("signal must stay open")
	}
}
