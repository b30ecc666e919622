package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var day0 = time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ohlcv(o, h, l, c string, v int64) Bar {
	return Bar{Ticker: "AAPL", Date: day0, Open: d(o), High: d(h), Low: d(l), Close: d(c), Volume: v}
}

func TestBarValidate(t *testing.T) {
	cases := []struct {
		name string
		bar  Bar
		ok   bool
	}{
		{"valid", ohlcv("10", "12", "9", "11", 100), true},
		{"flat bar", ohlcv("10", "10", "10", "10", 0), true},
		{"high below open", ohlcv("10", "9.5", "9", "9.2", 100), false},
		{"high below close", ohlcv("10", "10.5", "9", "11", 100), false},
		{"low above open", ohlcv("10", "12", "10.5", "11", 100), false},
		{"low above close", ohlcv("11", "12", "10.5", "10", 100), false},
		{"zero open", ohlcv("0", "12", "9", "11", 100), false},
		{"negative low", ohlcv("10", "12", "-1", "11", 100), false},
		{"negative volume", ohlcv("10", "12", "9", "11", -1), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.bar.Validate()
			if tc.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrInvariantViolation) {
				t.Fatalf("want ErrInvariantViolation, got %v", err)
			}
		})
	}
}

func TestBarsAfter(t *testing.T) {
	bars := series("AAPL", 5)
	got := BarsAfter(bars, day0.AddDate(0, 0, 2).Add(15*time.Hour))
	if len(got) != 2 || !got[0].Date.Equal(day0.AddDate(0, 0, 3)) {
		t.Fatalf("got %+v", got)
	}
	got[0].Ticker = "X"
	if bars[3].Ticker != "AAPL" {
		t.Fatal("BarsAfter aliased its input")
	}
}
