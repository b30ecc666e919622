package patterns

import (
	"ChartScan/internal/domain/models"
)

// ReversalAfterDecline wants three straight down closes and a strong up day.
type ReversalAfterDecline struct{}

func (ReversalAfterDecline) Pattern() models.Pattern { return models.PatternReversalAfterDecline }
func (ReversalAfterDecline) MinBars() int            { return 21 }

func (d ReversalAfterDecline) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())
	for i := -2; i >= -4; i-- {
		if !w.Bar(i).Close.LessThan(w.Bar(i - 1).Close) {
			return nil, nil
		}
	}

	last, prev := w.Last(), w.Bar(-2)
	change := ratio(last.Close.Sub(prev.Close), prev.Close)
	if !change.GreaterThan(pct("0.02")) {
		return nil, nil
	}
	n := w.Len()
	avgVol := meanOf(w.Slice(n-6, n-1).Volumes())
	lastVol := decimalVol(last)
	if !atLeast(lastVol, avgVol, "1.5") {
		return nil, nil
	}

	return finalize(w, gate{pattern: d.Pattern(), floor: pct("1.5"), winRate: winRate("68.9")}, setup{
		entry:       last.Close,
		support:     lowOfLast20(w),
		resistance:  highOfLast20(w),
		target:      last.Close.Mul(pct("1.08")),
		volumeSurge: ratio(lastVol, avgVol),
	})
}
