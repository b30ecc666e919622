// Package patterns implements the chart-pattern detectors. Each detector
// looks at the trailing bars of a window and either returns a Signal or
// nil for "no pattern". Genuine failures come back as typed errors and
// never as panics the caller has to interpret.
package patterns

import (
	"fmt"

	"ChartScan/internal/domain/models"
	"ChartScan/internal/services/indicators"

	"github.com/shopspring/decimal"
)

// Detector is one entry of the catalog.
type Detector interface {
	Pattern() models.Pattern
	MinBars() int
	// Detect returns (nil, nil) when the pattern is absent.
	Detect(w models.Window) (*models.Signal, error)
}

// setup is the raw geometry a detector proposes before the common gate.
type setup struct {
	entry       decimal.Decimal
	support     decimal.Decimal
	resistance  decimal.Decimal
	target      decimal.Decimal
	volumeSurge decimal.Decimal
}

// gate carries per-pattern constants applied by finalize.
type gate struct {
	pattern models.Pattern
	floor   decimal.Decimal
	winRate *decimal.Decimal
}

// finalize rounds the setup, enforces target > entry > support > 0 and
// applies the risk/reward floor as the last check. A floor miss is a
// plain rejection; broken geometry is an ErrInvariantViolation.
func finalize(w models.Window, g gate, s setup) (*models.Signal, error) {
	entry := indicators.RoundPrice(s.entry)
	support := indicators.RoundPrice(s.support)
	target := indicators.RoundPrice(s.target)

	sig := &models.Signal{
		Date:              w.Last().Date,
		Ticker:            w.Ticker,
		Pattern:           g.pattern,
		Entry:             entry,
		Support:           support,
		Resistance:        indicators.RoundPrice(s.resistance),
		Target:            target,
		VolumeSurge:       s.volumeSurge.RoundBank(2),
		HistoricalWinRate: g.winRate,
		Status:            models.StatusActive,
	}
	if err := sig.Check(decimal.Zero); err != nil {
		return nil, err
	}
	rr := models.RiskReward(entry, support, target)
	if rr.LessThan(g.floor) {
		return nil, nil
	}
	sig.RiskReward = rr.RoundBank(2)
	return sig, nil
}

func need(w models.Window, d Detector) error {
	if w.Len() < d.MinBars() {
		return fmt.Errorf("%s needs %d bars, have %d: %w", d.Pattern(), d.MinBars(), w.Len(), models.ErrInsufficientData)
	}
	return nil
}

func pct(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func winRate(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

// ratio returns a/b, or zero when b is zero.
func ratio(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// rangePct is (high-low)/low over the given bars.
func rangePct(highs, lows []decimal.Decimal) decimal.Decimal {
	hi := decimal.Max(highs[0], highs[1:]...)
	lo := decimal.Min(lows[0], lows[1:]...)
	return ratio(hi.Sub(lo), lo)
}

func maxOf(x []decimal.Decimal) decimal.Decimal { return decimal.Max(x[0], x[1:]...) }
func minOf(x []decimal.Decimal) decimal.Decimal { return decimal.Min(x[0], x[1:]...) }

func meanOf(x []decimal.Decimal) decimal.Decimal {
	m, _ := indicators.Mean(x)
	return m
}

// lowOfLast20 is the support rule shared by most momentum-style patterns.
func lowOfLast20(w models.Window) decimal.Decimal {
	lo, _ := indicators.RollingLow(w.Lows(), 20)
	return lo
}

func highOfLast20(w models.Window) decimal.Decimal {
	hi, _ := indicators.RollingHigh(w.Highs(), 20)
	return hi
}

func decimalVol(b models.Bar) decimal.Decimal { return decimal.NewFromInt(b.Volume) }

// atLeast reports v >= factor*base.
func atLeast(v, base decimal.Decimal, factor string) bool {
	return v.GreaterThanOrEqual(base.Mul(pct(factor)))
}

// above reports v > factor*base.
func above(v, base decimal.Decimal, factor string) bool {
	return v.GreaterThan(base.Mul(pct(factor)))
}
