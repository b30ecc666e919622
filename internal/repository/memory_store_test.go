package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"ChartScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

var day0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func testBars(n int) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		px := decimal.NewFromInt(int64(100 + i))
		out[i] = models.Bar{
			Date:   day0.AddDate(0, 0, i),
			Open:   px,
			High:   px.Add(d("1")),
			Low:    px.Sub(d("1")),
			Close:  px,
			Volume: 1000,
		}
	}
	return out
}

func TestMemoryBarStoreRange(t *testing.T) {
	s := NewMemoryBarStore()
	bars := testBars(10)
	// reversed on purpose
	rev := make([]models.Bar, len(bars))
	for i := range bars {
		rev[len(bars)-1-i] = bars[i]
	}
	s.Put("AAPL", rev)

	got, err := s.BarsFor(context.Background(), "AAPL", day0.AddDate(0, 0, 2), day0.AddDate(0, 0, 4))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || !got[0].Date.Equal(day0.AddDate(0, 0, 2)) || got[0].Ticker != "AAPL" {
		t.Fatalf("got %+v", got)
	}
	got[0].Close = d("1")
	again, _ := s.BarsFor(context.Background(), "AAPL", day0.AddDate(0, 0, 2), day0.AddDate(0, 0, 2))
	if again[0].Close.Equal(d("1")) {
		t.Fatal("BarsFor must not alias stored bars")
	}

	px, err := s.LatestPrice(context.Background(), "AAPL")
	if err != nil || !px.Equal(d("109")) {
		t.Fatalf("latest %s, %v", px, err)
	}
	if _, err := s.LatestPrice(context.Background(), "MSFT"); !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("want insufficient data, got %v", err)
	}

	s.FailWith("AAPL", errors.New("down"))
	if _, err := s.BarsFor(context.Background(), "AAPL", day0, day0); !errors.Is(err, models.ErrBarStoreUnavailable) {
		t.Fatalf("want unavailable, got %v", err)
	}
}

func testSignal(ticker string, date time.Time) *models.Signal {
	return &models.Signal{
		Date:    date,
		Ticker:  ticker,
		Pattern: models.PatternBullFlag,
		Entry:   d("10"),
		Support: d("9"),
		Target:  d("13"),
	}
}

func TestMemorySignalStoreUniqueness(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySignalStore()

	if err := s.PutSignal(ctx, testSignal("AAPL", day0)); err != nil {
		t.Fatal(err)
	}
	err := s.PutSignal(ctx, testSignal("AAPL", day0.Add(5*time.Hour)))
	if !errors.Is(err, models.ErrStoreConflict) {
		t.Fatalf("same calendar day should conflict, got %v", err)
	}
	if err := s.PutSignal(ctx, testSignal("AAPL", day0.AddDate(0, 0, 1))); err != nil {
		t.Fatal(err)
	}

	open, _ := s.OpenSignals(ctx)
	if len(open) != 2 || open[0].Status != models.StatusActive {
		t.Fatalf("got %+v", open)
	}
}

func TestMemorySignalStoreCloseOnce(t *testing.T) {
	ctx := context.Background()
	s := NewMemorySignalStore()
	_ = s.PutSignal(ctx, testSignal("MSFT", day0))

	out := models.Outcome{Classification: models.OutcomeWin, ExitPrice: d("13"), ReturnPct: d("30"), DaysHeld: 2}
	if err := s.UpdateOutcome(ctx, "MSFT", day0, out); err != nil {
		t.Fatal(err)
	}
	if err := s.UpdateOutcome(ctx, "MSFT", day0, out); !errors.Is(err, models.ErrStoreConflict) {
		t.Fatalf("second close should conflict, got %v", err)
	}
	if err := s.UpdateOutcome(ctx, "NVDA", day0, out); !errors.Is(err, models.ErrStoreConflict) {
		t.Fatalf("unknown signal should conflict, got %v", err)
	}

	open, _ := s.OpenSignals(ctx)
	closed, _ := s.Signals(ctx, models.SignalFilter{Status: models.StatusClosed})
	if len(open) != 0 || len(closed) != 1 || closed[0].Outcome.Classification != models.OutcomeWin {
		t.Fatalf("open %v closed %v", open, closed)
	}
}

func TestMemoryReportStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryReportStore()
	if _, err := s.Report(ctx, "nope"); !errors.Is(err, models.ErrReportNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	_ = s.SaveReport(ctx, &models.BacktestReport{RunID: "r1", Status: models.ReportDone})
	r, err := s.Report(ctx, "r1")
	if err != nil || r.Status != models.ReportDone {
		t.Fatalf("got %+v, %v", r, err)
	}
}
