// Package indicators holds the pure indicator kernel used by detectors.
// Inputs are chronological; every function reports the value at the
// rightmost index. Results are rounded half-even to IndicatorPlaces.
package indicators

import (
	"fmt"
	"math"

	"ChartScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

const (
	PricePlaces     = 2
	IndicatorPlaces = 4

	// workPlaces bounds intermediate precision so recursive updates stay small.
	workPlaces = 16
)

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

func RoundPrice(d decimal.Decimal) decimal.Decimal     { return d.RoundBank(PricePlaces) }
func RoundIndicator(d decimal.Decimal) decimal.Decimal { return d.RoundBank(IndicatorPlaces) }

func short(name string, need, have int) error {
	return fmt.Errorf("%s needs %d values, have %d: %w", name, need, have, models.ErrInsufficientData)
}

func mean(x []decimal.Decimal) decimal.Decimal {
	return decimal.Sum(x[0], x[1:]...).Div(decimal.NewFromInt(int64(len(x))))
}

// Mean is the arithmetic mean of all values.
func Mean(x []decimal.Decimal) (decimal.Decimal, error) {
	if len(x) == 0 {
		return decimal.Zero, short("mean", 1, 0)
	}
	return RoundIndicator(mean(x)), nil
}

// SMA is the mean of the last n values.
func SMA(x []decimal.Decimal, n int) (decimal.Decimal, error) {
	if n <= 0 || len(x) < n {
		return decimal.Zero, short("sma", n, len(x))
	}
	return RoundIndicator(mean(x[len(x)-n:])), nil
}

// EMA is seeded with the SMA of the first n values and updated with 2/(n+1).
func EMA(x []decimal.Decimal, n int) (decimal.Decimal, error) {
	s, err := emaSeries(x, n)
	if err != nil {
		return decimal.Zero, err
	}
	return RoundIndicator(s[len(s)-1]), nil
}

// emaSeries returns unrounded EMA values for indices n-1..len(x)-1.
func emaSeries(x []decimal.Decimal, n int) ([]decimal.Decimal, error) {
	if n <= 0 || len(x) < n {
		return nil, short("ema", n, len(x))
	}
	k := two.Div(decimal.NewFromInt(int64(n + 1)))
	prev := mean(x[:n]).Round(workPlaces)
	out := make([]decimal.Decimal, 0, len(x)-n+1)
	out = append(out, prev)
	for _, v := range x[n:] {
		prev = v.Sub(prev).Mul(k).Add(prev).Round(workPlaces)
		out = append(out, prev)
	}
	return out, nil
}

// RSI uses simple average gain and loss over the last n one-day changes.
// A window with no losses reads 100.
func RSI(closes []decimal.Decimal, n int) (decimal.Decimal, error) {
	if n <= 0 || len(closes) < n+1 {
		return decimal.Zero, short("rsi", n+1, len(closes))
	}
	tail := closes[len(closes)-n-1:]
	gain, loss := decimal.Zero, decimal.Zero
	for i := 1; i < len(tail); i++ {
		d := tail[i].Sub(tail[i-1])
		if d.IsPositive() {
			gain = gain.Add(d)
		} else {
			loss = loss.Sub(d)
		}
	}
	if loss.IsZero() {
		return hundred, nil
	}
	count := decimal.NewFromInt(int64(n))
	rs := gain.Div(count).Div(loss.Div(count))
	return RoundIndicator(hundred.Sub(hundred.Div(one.Add(rs)))), nil
}

// MACDResult is the MACD line, its signal line and their difference.
type MACDResult struct {
	Line      decimal.Decimal
	Signal    decimal.Decimal
	Histogram decimal.Decimal
}

// MACD uses the standard 12/26/9 periods.
func MACD(closes []decimal.Decimal) MACDResult {
	return MACDWith(closes, 12, 26, 9)
}

// MACDWith returns zeros when history is too short to seed the signal line.
func MACDWith(closes []decimal.Decimal, fast, slow, signal int) MACDResult {
	if fast <= 0 || slow <= fast || signal <= 0 || len(closes) < slow+signal-1 {
		return MACDResult{Line: decimal.Zero, Signal: decimal.Zero, Histogram: decimal.Zero}
	}
	fastS, _ := emaSeries(closes, fast)
	slowS, _ := emaSeries(closes, slow)
	offset := slow - fast
	line := make([]decimal.Decimal, len(slowS))
	for i := range slowS {
		line[i] = fastS[i+offset].Sub(slowS[i])
	}
	sig, _ := emaSeries(line, signal)
	l, s := line[len(line)-1], sig[len(sig)-1]
	return MACDResult{
		Line:      RoundIndicator(l),
		Signal:    RoundIndicator(s),
		Histogram: RoundIndicator(l.Sub(s)),
	}
}

// StdDev is the population standard deviation of the last n values.
func StdDev(x []decimal.Decimal, n int) (decimal.Decimal, error) {
	if n <= 0 || len(x) < n {
		return decimal.Zero, short("stddev", n, len(x))
	}
	return RoundIndicator(stddev(x[len(x)-n:])), nil
}

func stddev(x []decimal.Decimal) decimal.Decimal {
	m := mean(x)
	sum := decimal.Zero
	for _, v := range x {
		d := v.Sub(m)
		sum = sum.Add(d.Mul(d))
	}
	return sqrt(sum.Div(decimal.NewFromInt(int64(len(x)))))
}

// sqrt starts from the float estimate and refines with Newton steps.
func sqrt(v decimal.Decimal) decimal.Decimal {
	if !v.IsPositive() {
		return decimal.Zero
	}
	s := decimal.NewFromFloat(math.Sqrt(v.InexactFloat64()))
	if !s.IsPositive() {
		s = one
	}
	for i := 0; i < 4; i++ {
		s = s.Add(v.Div(s)).Div(two).Round(workPlaces)
	}
	return s
}

// Bands holds Bollinger middle, upper and lower lines.
type Bands struct {
	Middle decimal.Decimal
	Upper  decimal.Decimal
	Lower  decimal.Decimal
}

// Bollinger computes mean ± k·σ over the last n closes.
func Bollinger(closes []decimal.Decimal, n int, k decimal.Decimal) (Bands, error) {
	if n <= 0 || len(closes) < n {
		return Bands{}, short("bollinger", n, len(closes))
	}
	tail := closes[len(closes)-n:]
	m := mean(tail)
	width := stddev(tail).Mul(k)
	return Bands{
		Middle: RoundIndicator(m),
		Upper:  RoundIndicator(m.Add(width)),
		Lower:  RoundIndicator(m.Sub(width)),
	}, nil
}

// ATR is the mean of the last n true ranges.
func ATR(highs, lows, closes []decimal.Decimal, n int) (decimal.Decimal, error) {
	size := len(closes)
	if len(highs) != size || len(lows) != size {
		return decimal.Zero, fmt.Errorf("atr: series lengths differ (%d/%d/%d): %w", len(highs), len(lows), size, models.ErrInvariantViolation)
	}
	if n <= 0 || size < n+1 {
		return decimal.Zero, short("atr", n+1, size)
	}
	sum := decimal.Zero
	for i := size - n; i < size; i++ {
		prev := closes[i-1]
		tr := decimal.Max(highs[i].Sub(lows[i]), highs[i].Sub(prev).Abs(), lows[i].Sub(prev).Abs())
		sum = sum.Add(tr)
	}
	return RoundIndicator(sum.Div(decimal.NewFromInt(int64(n)))), nil
}

// RollingHigh is the maximum of the last n values.
func RollingHigh(x []decimal.Decimal, n int) (decimal.Decimal, error) {
	if n <= 0 || len(x) < n {
		return decimal.Zero, short("rolling high", n, len(x))
	}
	tail := x[len(x)-n:]
	return decimal.Max(tail[0], tail[1:]...), nil
}

// RollingLow is the minimum of the last n values.
func RollingLow(x []decimal.Decimal, n int) (decimal.Decimal, error) {
	if n <= 0 || len(x) < n {
		return decimal.Zero, short("rolling low", n, len(x))
	}
	tail := x[len(x)-n:]
	return decimal.Min(tail[0], tail[1:]...), nil
}
