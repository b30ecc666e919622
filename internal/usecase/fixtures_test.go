package usecase

import (
	"context"
	"sync"
	"time"

	"ChartScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

// scanDate is a Tuesday so the backtest date sweep includes it.
var scanDate = time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func bar(o, h, l, c string, v int64) models.Bar {
	return models.Bar{Open: d(o), High: d(h), Low: d(l), Close: d(c), Volume: v}
}

// endingOn dates bars on consecutive days so the last one falls on end.
func endingOn(end time.Time, bars []models.Bar) []models.Bar {
	out := make([]models.Bar, len(bars))
	for i, b := range bars {
		b.Date = end.AddDate(0, 0, i-len(bars)+1)
		out[i] = b
	}
	return out
}

// startingAfter dates bars on the days following from.
func startingAfter(from time.Time, bars []models.Bar) []models.Bar {
	out := make([]models.Bar, len(bars))
	for i, b := range bars {
		b.Date = from.AddDate(0, 0, i+1)
		out[i] = b
	}
	return out
}

func repeat(n int, b models.Bar) []models.Bar {
	out := make([]models.Bar, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// reversalSeries fires reversal_after_decline only: entry 96, support 93,
// target 103.68, RSI 25.
func reversalSeries() []models.Bar {
	bars := repeat(46, bar("100", "101", "99", "100", 1000))
	return append(bars,
		bar("100", "100", "97.5", "98", 1000),
		bar("98", "98", "95.5", "96", 1000),
		bar("96", "96", "93", "94", 1000),
		bar("94", "96.5", "93.5", "96", 2000),
	)
}

// zigzagSeries alternates 100/99 closes: RSI 50, no pattern.
func zigzagSeries() []models.Bar {
	out := make([]models.Bar, 50)
	for i := range out {
		if i%2 == 0 {
			out[i] = bar("100", "100.5", "99.5", "100", 1000)
		} else {
			out[i] = bar("99", "99.5", "98.5", "99", 1000)
		}
	}
	return out
}

// momentumSeries fires momentum_alignment with RSI 64.29, above the
// default ceiling of 60.
func momentumSeries() []models.Bar {
	out := make([]models.Bar, 50)
	for i := range out {
		zig := d("0.735")
		if i%2 == 1 {
			zig = zig.Neg()
		}
		c := decimal.NewFromInt(200).Add(d("0.005").Mul(decimal.NewFromInt(int64(i * i)))).Add(zig).RoundBank(2)
		out[i] = models.Bar{Open: c, High: c.Add(d("0.2")), Low: c.Sub(d("0.2")), Close: c, Volume: 1000}
	}
	return out
}

type recordingMetrics struct {
	mu       sync.Mutex
	signals  map[string]int
	skips    map[string]int
	outcomes map[string]int
	errors   map[string]int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{signals: map[string]int{}, skips: map[string]int{}, outcomes: map[string]int{}, errors: map[string]int{}}
}

func (m *recordingMetrics) RecordSignal(p string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals[p]++
}

func (m *recordingMetrics) RecordSkip(r string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.skips[r]++
}

func (m *recordingMetrics) RecordOutcome(c string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[c]++
}

func (m *recordingMetrics) RecordError(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors[k]++
}

func (m *recordingMetrics) RecordLatency(string, float64) {}

type capturePublisher struct {
	mu       sync.Mutex
	signals  []models.Signal
	outcomes []models.Signal
}

func (p *capturePublisher) PublishSignal(_ context.Context, s models.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.signals = append(p.signals, s)
	return nil
}

func (p *capturePublisher) PublishOutcome(_ context.Context, s models.Signal) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, s)
	return nil
}

func (p *capturePublisher) Close() error { return nil }
