package patterns

import (
	"ChartScan/internal/domain/models"
)

// BullFlag is a 20 % pole over seven bars, a tight flag, then a breakout bar.
type BullFlag struct{}

func (BullFlag) Pattern() models.Pattern { return models.PatternBullFlag }
func (BullFlag) MinBars() int            { return 15 }

func (d BullFlag) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())

	poleStart := w.Bar(0).Low
	poleHigh := w.Bar(7).High
	if ratio(poleHigh.Sub(poleStart), poleStart).LessThan(pct("0.20")) {
		return nil, nil
	}

	// flag is bars 7..13; bar 14 is the breakout
	flag := w.Slice(7, 14)
	if !rangePct(flag.Highs(), flag.Lows()).LessThan(pct("0.08")) {
		return nil, nil
	}
	flagHigh := maxOf(flag.Highs())
	last := w.Last()
	if !above(last.Close, flagHigh, "1.01") {
		return nil, nil
	}
	flagVol := meanOf(flag.Volumes())
	lastVol := decimalVol(last)
	if !atLeast(lastVol, flagVol, "1.3") {
		return nil, nil
	}

	return finalize(w, gate{pattern: d.Pattern(), floor: pct("1.5")}, setup{
		entry:       last.Close,
		support:     minOf(flag.Lows()),
		resistance:  flagHigh,
		target:      last.Close.Add(poleHigh.Sub(poleStart)),
		volumeSurge: ratio(lastVol, flagVol),
	})
}
