package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Window is a contiguous, ascending run of one ticker's bars ending on AsOf.
// It is only built through NewWindow so that no bar after AsOf can leak in.
type Window struct {
	Ticker string
	AsOf   time.Time
	bars   []Bar
}

// NewWindow copies the bars of ticker dated on or before asOf.
// Bars must be ascending by date; any ordering or geometry problem is
// reported as ErrInvariantViolation.
func NewWindow(ticker string, bars []Bar, asOf time.Time) (Window, error) {
	return NewTrailingWindow(ticker, bars, asOf, 0)
}

// NewTrailingWindow is NewWindow restricted to the last n bars dated on or
// before asOf. Only those bars are checked, so a bad bar earlier in a long
// history does not disqualify the window. n <= 0 keeps every bar.
func NewTrailingWindow(ticker string, bars []Bar, asOf time.Time, n int) (Window, error) {
	asOf = Day(asOf)
	idx := make([]int, 0, len(bars))
	for i, b := range bars {
		if !Day(b.Date).After(asOf) {
			idx = append(idx, i)
		}
	}
	if n > 0 && len(idx) > n {
		idx = idx[len(idx)-n:]
	}

	kept := make([]Bar, 0, len(idx))
	var prev time.Time
	for _, i := range idx {
		b := bars[i]
		d := Day(b.Date)
		if b.Ticker != ticker {
			return Window{}, fmt.Errorf("window %s: bar %d belongs to %s: %w", ticker, i, b.Ticker, ErrInvariantViolation)
		}
		if len(kept) > 0 && !d.After(prev) {
			return Window{}, fmt.Errorf("window %s: dates not strictly increasing at %s: %w", ticker, d.Format(DateLayout), ErrInvariantViolation)
		}
		if err := b.Validate(); err != nil {
			return Window{}, err
		}
		b.Date = d
		kept = append(kept, b)
		prev = d
	}
	return Window{Ticker: ticker, AsOf: asOf, bars: kept}, nil
}

func (w Window) Len() int { return len(w.bars) }

// Bar returns the i-th bar; negative indices count from the end.
func (w Window) Bar(i int) Bar {
	if i < 0 {
		i += len(w.bars)
	}
	return w.bars[i]
}

func (w Window) Last() Bar { return w.bars[len(w.bars)-1] }

// Bars returns a copy of the underlying bars.
func (w Window) Bars() []Bar {
	out := make([]Bar, len(w.bars))
	copy(out, w.bars)
	return out
}

// Tail returns the trailing n bars (or all when fewer exist).
func (w Window) Tail(n int) Window {
	if n >= len(w.bars) {
		return w
	}
	return Window{Ticker: w.Ticker, AsOf: w.AsOf, bars: w.bars[len(w.bars)-n:]}
}

// Slice returns bars [i:j) as a new window sharing AsOf.
func (w Window) Slice(i, j int) Window {
	return Window{Ticker: w.Ticker, AsOf: w.AsOf, bars: w.bars[i:j]}
}

// EndsOn reports whether the last bar is dated on day.
func (w Window) EndsOn(day time.Time) bool {
	return len(w.bars) > 0 && w.Last().Date.Equal(Day(day))
}

func (w Window) Opens() []decimal.Decimal  { return w.series(func(b Bar) decimal.Decimal { return b.Open }) }
func (w Window) Highs() []decimal.Decimal  { return w.series(func(b Bar) decimal.Decimal { return b.High }) }
func (w Window) Lows() []decimal.Decimal   { return w.series(func(b Bar) decimal.Decimal { return b.Low }) }
func (w Window) Closes() []decimal.Decimal { return w.series(func(b Bar) decimal.Decimal { return b.Close }) }

// Volumes returns volumes as decimals so they can feed the indicator kernel.
func (w Window) Volumes() []decimal.Decimal {
	return w.series(func(b Bar) decimal.Decimal { return decimal.NewFromInt(b.Volume) })
}

func (w Window) series(f func(Bar) decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, len(w.bars))
	for i, b := range w.bars {
		out[i] = f(b)
	}
	return out
}
