package patterns

import (
	"ChartScan/internal/domain/models"
)

// VolumeBreakout needs two heavy sessions and a close through the prior 20-bar high.
type VolumeBreakout struct{}

func (VolumeBreakout) Pattern() models.Pattern { return models.PatternVolumeBreakout }
func (VolumeBreakout) MinBars() int            { return 25 }

func (d VolumeBreakout) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())
	n := w.Len()
	last, prev := w.Last(), w.Bar(-2)

	// the 20 bars before the current one
	prior := w.Slice(n-21, n-1)
	baseline := meanOf(prior.Volumes())
	lastVol, prevVol := decimalVol(last), decimalVol(prev)
	if !atLeast(lastVol, baseline, "3") || !atLeast(prevVol, baseline, "2") {
		return nil, nil
	}
	priorHigh := maxOf(prior.Highs())
	if !last.Close.GreaterThan(priorHigh) || !last.Close.GreaterThan(prev.Close) {
		return nil, nil
	}

	return finalize(w, gate{pattern: d.Pattern(), floor: pct("1.5")}, setup{
		entry:       last.Close,
		support:     lowOfLast20(w),
		resistance:  priorHigh,
		target:      last.Close.Mul(pct("1.15")),
		volumeSurge: ratio(lastVol, baseline),
	})
}
