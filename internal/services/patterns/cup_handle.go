package patterns

import (
	"ChartScan/internal/domain/models"
)

// CupAndHandle reads a 50-bar rounded base, a 10-bar handle and a breakout bar.
type CupAndHandle struct{}

func (CupAndHandle) Pattern() models.Pattern { return models.PatternCupAndHandle }
func (CupAndHandle) MinBars() int            { return 61 }

func (d CupAndHandle) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())
	cup := w.Slice(0, 50)
	handle := w.Slice(50, 60)

	rim := maxOf(cup.Slice(0, 10).Closes())
	bottom := minOf(cup.Slice(15, 25).Closes())
	depth := ratio(rim.Sub(bottom), rim)
	if depth.LessThan(pct("0.12")) || depth.GreaterThan(pct("0.33")) {
		return nil, nil
	}
	if !atLeast(maxOf(cup.Slice(25, 50).Closes()), rim, "0.95") {
		return nil, nil
	}

	handleHigh := maxOf(handle.Highs())
	handleLow := minOf(handle.Lows())
	handleDepth := ratio(handleHigh.Sub(handleLow), handleHigh)
	if handleDepth.LessThan(pct("0.03")) || handleDepth.GreaterThan(pct("0.12")) {
		return nil, nil
	}

	last := w.Last()
	if !above(last.Close, rim, "1.01") {
		return nil, nil
	}
	avgVol := meanOf(w.Slice(40, 60).Volumes())
	lastVol := decimalVol(last)
	if !atLeast(lastVol, avgVol, "1.2") {
		return nil, nil
	}

	return finalize(w, gate{pattern: d.Pattern(), floor: pct("2.0")}, setup{
		entry:       last.Close,
		support:     handleLow,
		resistance:  rim,
		target:      last.Close.Add(rim.Sub(bottom)),
		volumeSurge: ratio(lastVol, avgVol),
	})
}
