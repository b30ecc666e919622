package patterns

import (
	"sort"

	"ChartScan/internal/domain/models"
)

// AscendingTriangle is a flat top over a 30-bar base with higher lows in
// each third, broken by the current bar.
type AscendingTriangle struct{}

func (AscendingTriangle) Pattern() models.Pattern { return models.PatternAscendingTriangle }
func (AscendingTriangle) MinBars() int            { return 31 }

func (d AscendingTriangle) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())
	base := w.Slice(0, 30)

	highs := base.Highs()
	sort.Slice(highs, func(i, j int) bool { return highs[i].GreaterThan(highs[j]) })
	top := highs[:4]
	resistance := meanOf(top)
	if ratio(top[0].Sub(top[3]), resistance).GreaterThan(pct("0.02")) {
		return nil, nil
	}

	first := minOf(base.Slice(0, 10).Lows())
	middle := minOf(base.Slice(10, 20).Lows())
	third := minOf(base.Slice(20, 30).Lows())
	if !first.LessThan(middle) || !middle.LessThan(third) {
		return nil, nil
	}

	last := w.Last()
	if !above(last.Close, resistance, "1.02") {
		return nil, nil
	}
	baseVol := meanOf(base.Volumes())
	lastVol := decimalVol(last)
	if !atLeast(lastVol, baseVol, "1.5") {
		return nil, nil
	}

	return finalize(w, gate{pattern: d.Pattern(), floor: pct("1.5")}, setup{
		entry:       last.Close,
		support:     third,
		resistance:  resistance,
		target:      last.Close.Add(resistance.Sub(first)),
		volumeSurge: ratio(lastVol, baseVol),
	})
}

