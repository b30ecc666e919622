package patterns

import (
	"ChartScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

// ConsolidationBreakout looks for a tight 35-bar base followed by a
// five-bar push through its high.
type ConsolidationBreakout struct{}

func (ConsolidationBreakout) Pattern() models.Pattern { return models.PatternConsolidationBreak }
func (ConsolidationBreakout) MinBars() int            { return 40 }

func (d ConsolidationBreakout) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())
	s, ok := consolidationCandidate(w)
	if !ok {
		return nil, nil
	}
	return finalize(w, gate{pattern: d.Pattern(), floor: pct("2.0")}, s)
}

// consolidationCandidate expects exactly 40 bars: base [0,35), breakout [35,40).
func consolidationCandidate(w models.Window) (setup, bool) {
	base := w.Slice(0, 35)
	resistance := maxOf(base.Highs())
	support := minOf(base.Lows())
	if ratio(resistance.Sub(support), support).GreaterThan(pct("0.10")) {
		return setup{}, false
	}

	last, prev := w.Last(), w.Bar(-2)
	if !above(last.Close, resistance, "1.02") || !above(prev.Close, resistance, "1.01") {
		return setup{}, false
	}
	// close in the top quartile of the day's range
	span := last.High.Sub(last.Low)
	if last.Close.Sub(last.Low).LessThan(span.Mul(pct("0.75"))) {
		return setup{}, false
	}
	baseVol := meanOf(base.Volumes())
	lastVol := decimalVol(last)
	if !atLeast(lastVol, baseVol, "2") {
		return setup{}, false
	}

	return setup{
		entry:       last.Close,
		support:     support,
		resistance:  resistance,
		target:      last.Close.Add(resistance.Sub(support).Mul(decimal.NewFromInt(2))),
		volumeSurge: ratio(lastVol, baseVol),
	}, true
}
