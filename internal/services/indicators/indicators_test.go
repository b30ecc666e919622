package indicators

import (
	"errors"
	"testing"

	"ChartScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

func decs(vals ...float64) []decimal.Decimal {
	out := make([]decimal.Decimal, len(vals))
	for i, v := range vals {
		out[i] = decimal.NewFromFloat(v)
	}
	return out
}

func seq(from, to int) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, decimal.NewFromInt(int64(i)))
	}
	return out
}

func mustEqual(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	w := decimal.RequireFromString(want)
	if !got.Equal(w) {
		t.Fatalf("%s: got %s want %s", name, got, w)
	}
}

func TestSMA(t *testing.T) {
	got, err := SMA(seq(1, 10), 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "sma", got, "8.5")

	got, _ = SMA(decs(1, 2, 2), 3)
	mustEqual(t, "sma rounding", got, "1.6667")
}

func TestInsufficientData(t *testing.T) {
	x := seq(1, 5)
	cases := map[string]error{}
	_, cases["sma"] = SMA(x, 6)
	_, cases["ema"] = EMA(x, 6)
	_, cases["rsi"] = RSI(x, 5)
	_, cases["stddev"] = StdDev(x, 6)
	_, cases["bollinger"] = Bollinger(x, 6, two)
	_, cases["atr"] = ATR(x, x, x, 5)
	_, cases["rolling high"] = RollingHigh(x, 6)
	_, cases["rolling low"] = RollingLow(x, 0)
	_, cases["mean"] = Mean(nil)
	for name, err := range cases {
		t.Run(name, func(t *testing.T) {
			if !errors.Is(err, models.ErrInsufficientData) {
				t.Fatalf("expected ErrInsufficientData, got %v", err)
			}
		})
	}
}

func TestEMALinearSeries(t *testing.T) {
	// k = 0.5 on a unit-slope series keeps the average one step behind.
	got, err := EMA(seq(1, 10), 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "ema", got, "9")
}

func TestRSI(t *testing.T) {
	t.Run("no losses", func(t *testing.T) {
		got, _ := RSI(seq(1, 20), 14)
		mustEqual(t, "rsi", got, "100")
	})
	t.Run("mixed", func(t *testing.T) {
		// seven +2 moves and seven -1 moves: RS = 2.
		closes := []float64{50}
		for i := 0; i < 7; i++ {
			last := closes[len(closes)-1]
			closes = append(closes, last+2, last+1)
		}
		got, err := RSI(decs(closes...), 14)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		mustEqual(t, "rsi", got, "66.6667")
	})
	t.Run("only losses", func(t *testing.T) {
		x := seq(1, 15)
		for i, j := 0, len(x)-1; i < j; i, j = i+1, j-1 {
			x[i], x[j] = x[j], x[i]
		}
		got, _ := RSI(x, 14)
		mustEqual(t, "rsi", got, "0")
	})
}

func TestMACD(t *testing.T) {
	t.Run("short history", func(t *testing.T) {
		got := MACD(seq(1, 30))
		if !got.Line.IsZero() || !got.Signal.IsZero() || !got.Histogram.IsZero() {
			t.Fatalf("expected zeros, got %+v", got)
		}
	})
	t.Run("linear series", func(t *testing.T) {
		// SMA-seeded EMAs of a unit slope lag by (n-1)/2 exactly.
		got := MACD(seq(1, 60))
		mustEqual(t, "line", got.Line, "7")
		mustEqual(t, "signal", got.Signal, "7")
		mustEqual(t, "histogram", got.Histogram, "0")
	})
}

func TestBollinger(t *testing.T) {
	got, err := Bollinger(seq(1, 20), 20, two)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "middle", got.Middle, "10.5")
	mustEqual(t, "upper", got.Upper, "22.0326")
	mustEqual(t, "lower", got.Lower, "-1.0326")

	flat, _ := Bollinger(decs(5, 5, 5, 5), 4, two)
	mustEqual(t, "flat upper", flat.Upper, "5")
	mustEqual(t, "flat lower", flat.Lower, "5")
}

func TestStdDev(t *testing.T) {
	got, _ := StdDev(decs(2, 4, 4, 4, 5, 5, 7, 9), 8)
	mustEqual(t, "stddev", got, "2")
}

func TestATR(t *testing.T) {
	highs := decs(11, 12, 13, 14, 15)
	lows := decs(9, 10, 11, 12, 13)
	closes := decs(10, 11, 12, 13, 14)
	got, err := ATR(highs, lows, closes, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mustEqual(t, "atr", got, "2")

	// a gap makes the previous close dominate the true range.
	gapped, _ := ATR(decs(10, 20), decs(9, 19), decs(10, 19.5), 1)
	mustEqual(t, "gap", gapped, "10")

	if _, err := ATR(highs, lows[:4], closes, 2); !errors.Is(err, models.ErrInvariantViolation) {
		t.Fatalf("expected invariant violation for ragged input, got %v", err)
	}
}

func TestRollingExtremes(t *testing.T) {
	x := decs(5, 9, 1, 7, 3)
	hi, _ := RollingHigh(x, 3)
	lo, _ := RollingLow(x, 3)
	mustEqual(t, "high", hi, "7")
	mustEqual(t, "low", lo, "1")
}

func TestDeterministic(t *testing.T) {
	x := decs(101.25, 99.5, 100.75, 102, 98.25, 97.5, 99, 103.5, 104.25, 102.75,
		101.5, 100.25, 99.75, 100.5, 102.5, 103.25, 101.75, 100, 99.25, 98.75)
	a, _ := RSI(x, 14)
	b, _ := RSI(x, 14)
	if !a.Equal(b) || a.Exponent() < -IndicatorPlaces {
		t.Fatalf("rsi not reproducible at declared rounding: %s vs %s", a, b)
	}
	e1, _ := EMA(x, 10)
	e2, _ := EMA(x, 10)
	if !e1.Equal(e2) {
		t.Fatalf("ema not reproducible: %s vs %s", e1, e2)
	}
}
