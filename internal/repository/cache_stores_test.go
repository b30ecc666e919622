package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"ChartScan/internal/domain/models"
	"ChartScan/pkg/cache"
)

type countingBarStore struct {
	*MemoryBarStore
	calls int
}

func (c *countingBarStore) BarsFor(ctx context.Context, ticker string, start, end time.Time) ([]models.Bar, error) {
	c.calls++
	return c.MemoryBarStore.BarsFor(ctx, ticker, start, end)
}

func TestCachedBarStoreServesRepeatsFromCache(t *testing.T) {
	ctx := context.Background()
	inner := &countingBarStore{MemoryBarStore: NewMemoryBarStore()}
	inner.Put("AAPL", testBars(10))
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCachedBarStore(inner, mc, time.Hour, nil)

	end := day0.AddDate(0, 0, 9)
	for i := 0; i < 3; i++ {
		bars, err := s.BarsFor(ctx, "AAPL", day0, end)
		if err != nil || len(bars) != 10 {
			t.Fatalf("got %d bars, %v", len(bars), err)
		}
		if !bars[9].Close.Equal(d("109")) {
			t.Fatalf("decoded close %s", bars[9].Close)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("inner store hit %d times", inner.calls)
	}
}

func TestCacheReportStore(t *testing.T) {
	ctx := context.Background()
	mc := cache.NewMemoryCache()
	defer mc.Close()
	s := NewCacheReportStore(mc, time.Hour)

	if _, err := s.Report(ctx, "missing"); !errors.Is(err, models.ErrReportNotFound) {
		t.Fatalf("want not found, got %v", err)
	}
	in := &models.BacktestReport{
		RunID:   "run-1",
		Status:  models.ReportDone,
		Horizon: models.DefaultHorizon,
		Records: []models.BacktestRecord{{Ticker: "AAPL", Pattern: models.PatternBullFlag, ReturnPct: d("8")}},
		Skipped: models.SkipCounts{models.SkipNoPattern: 3},
	}
	if err := s.SaveReport(ctx, in); err != nil {
		t.Fatal(err)
	}
	out, err := s.Report(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if out.Status != models.ReportDone || len(out.Records) != 1 || out.Skipped[models.SkipNoPattern] != 3 || !out.Records[0].ReturnPct.Equal(d("8")) {
		t.Fatalf("got %+v", out)
	}
}

func TestWriteReport(t *testing.T) {
	r := &models.BacktestReport{
		RunID: "run-2",
		Records: []models.BacktestRecord{{
			Date: day0, Ticker: "AAPL", Pattern: models.PatternGapUpHold,
			Entry: d("53"), Support: d("51"), Target: d("57.24"), RR: d("2.12"),
			Status: models.OutcomeWin, ReturnPct: d("8"), MaxGain: d("8"), MaxLoss: d("-1.5"), DaysHeld: 3,
		}},
	}

	var csvOut bytes.Buffer
	if err := WriteReport(&csvOut, r, FormatCSV); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(csvOut.String()), "\n")
	want := "2024-03-01,AAPL,gap_up_hold,53,51,57.24,2.12,WIN,8.00,8.00,-1.50,3"
	if len(lines) != 2 || lines[1] != want {
		t.Fatalf("got %q", lines)
	}

	var jsonOut bytes.Buffer
	if err := WriteReport(&jsonOut, r, FormatJSON); err != nil {
		t.Fatal(err)
	}
	var back models.BacktestReport
	if err := json.Unmarshal(jsonOut.Bytes(), &back); err != nil || back.RunID != "run-2" {
		t.Fatalf("json: %+v, %v", back, err)
	}

	if _, err := ParseReportFormat("xml"); err == nil {
		t.Fatal("xml should be rejected")
	}
}
