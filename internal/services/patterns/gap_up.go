package patterns

import (
	"ChartScan/internal/domain/models"
)

// GapUpHold: yesterday opened at least 2 % above the day before and neither
// yesterday nor today traded back into the gap.
type GapUpHold struct{}

func (GapUpHold) Pattern() models.Pattern { return models.PatternGapUpHold }
func (GapUpHold) MinBars() int            { return 20 }

func (d GapUpHold) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())
	n := w.Len()
	pre, gap, last := w.Bar(-3), w.Bar(-2), w.Last()

	if !atLeast(gap.Open, pre.Open, "1.02") {
		return nil, nil
	}
	if !gap.Low.GreaterThan(pre.Close) || !last.Low.GreaterThan(pre.Close) {
		return nil, nil
	}
	// the 18 sessions before the gap day
	avgVol := meanOf(w.Slice(0, n-2).Volumes())
	gapVol := decimalVol(gap)
	if !atLeast(gapVol, avgVol, "2") {
		return nil, nil
	}

	support := gap.Low
	if last.Low.LessThan(support) {
		support = last.Low
	}
	return finalize(w, gate{pattern: d.Pattern(), floor: pct("1.5"), winRate: winRate("67.3")}, setup{
		entry:       last.Close,
		support:     support,
		resistance:  highOfLast20(w),
		target:      last.Close.Mul(pct("1.08")),
		volumeSurge: ratio(gapVol, avgVol),
	})
}
