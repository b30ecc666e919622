package patterns

import (
	"ChartScan/internal/domain/models"
)

// DoubleBottom finds two lows within 3 % at least five bars apart and a
// close back over the neckline between them.
type DoubleBottom struct{}

func (DoubleBottom) Pattern() models.Pattern { return models.PatternDoubleBottom }
func (DoubleBottom) MinBars() int            { return 30 }

func (d DoubleBottom) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())
	s, ok := doubleBottomCandidate(w)
	if !ok {
		return nil, nil
	}
	return finalize(w, gate{pattern: d.Pattern(), floor: pct("1.8")}, s)
}

// doubleBottomCandidate expects 30 bars; the base is [0,29) and bar 29 is today.
func doubleBottomCandidate(w models.Window) (setup, bool) {
	base := w.Slice(0, 29)
	lows := base.Lows()

	i1 := 0
	for i, l := range lows {
		if l.LessThan(lows[i1]) {
			i1 = i
		}
	}
	i2 := -1
	for i, l := range lows {
		if abs(i-i1) < 5 {
			continue
		}
		if ratio(l.Sub(lows[i1]), lows[i1]).GreaterThan(pct("0.03")) {
			continue
		}
		if i2 < 0 || l.LessThan(lows[i2]) {
			i2 = i
		}
	}
	if i2 < 0 {
		return setup{}, false
	}
	lo, hi := i1, i2
	if lo > hi {
		lo, hi = hi, lo
	}
	neckline := maxOf(base.Slice(lo+1, hi).Highs())
	lower, higher := lows[i1], lows[i2]

	rise := ratio(neckline.Sub(lower), lower)
	if rise.LessThan(pct("0.08")) || rise.GreaterThan(pct("0.20")) {
		return setup{}, false
	}
	last := w.Last()
	if !above(last.Close, neckline, "1.01") {
		return setup{}, false
	}
	avgVol := meanOf(w.Slice(9, 29).Volumes())
	lastVol := decimalVol(last)
	if !atLeast(lastVol, avgVol, "1.3") {
		return setup{}, false
	}

	return setup{
		entry:       last.Close,
		support:     higher,
		resistance:  neckline,
		target:      last.Close.Add(neckline.Sub(lower)),
		volumeSurge: ratio(lastVol, avgVol),
	}, true
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
