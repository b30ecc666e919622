package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical calendar-day format used on the wire.
const DateLayout = "2006-01-02"

// Bar is one trading day's OHLCV record for one ticker.
type Bar struct {
	Ticker string          `json:"ticker"`
	Date   time.Time       `json:"date"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

// Validate checks the price geometry of a single bar.
func (b Bar) Validate() error {
	if !b.Open.IsPositive() || !b.High.IsPositive() || !b.Low.IsPositive() || !b.Close.IsPositive() {
		return fmt.Errorf("bar %s %s: non-positive price: %w", b.Ticker, b.Date.Format(DateLayout), ErrInvariantViolation)
	}
	if b.Volume < 0 {
		return fmt.Errorf("bar %s %s: negative volume: %w", b.Ticker, b.Date.Format(DateLayout), ErrInvariantViolation)
	}
	if b.High.LessThan(decimal.Max(b.Open, b.Close, b.Low)) {
		return fmt.Errorf("bar %s %s: high below body: %w", b.Ticker, b.Date.Format(DateLayout), ErrInvariantViolation)
	}
	if b.Low.GreaterThan(decimal.Min(b.Open, b.Close, b.High)) {
		return fmt.Errorf("bar %s %s: low above body: %w", b.Ticker, b.Date.Format(DateLayout), ErrInvariantViolation)
	}
	return nil
}

// Day normalises t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// BarsAfter returns the bars dated strictly after day, preserving order.
// The returned slice never aliases the input.
func BarsAfter(bars []Bar, day time.Time) []Bar {
	day = Day(day)
	out := make([]Bar, 0, len(bars))
	for _, b := range bars {
		if Day(b.Date).After(day) {
			out = append(out, b)
		}
	}
	return out
}
