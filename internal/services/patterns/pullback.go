package patterns

import (
	"ChartScan/internal/domain/models"
	"ChartScan/internal/services/indicators"
)

// MA20Pullback looks for a close sitting on the 20-day average with RSI cooled off.
type MA20Pullback struct{}

func (MA20Pullback) Pattern() models.Pattern { return models.PatternMA20Pullback }
func (MA20Pullback) MinBars() int            { return 21 }

func (d MA20Pullback) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())
	closes := w.Closes()
	last := w.Last()

	sma20, err := indicators.SMA(closes, 20)
	if err != nil {
		return nil, err
	}
	if ratio(last.Close.Sub(sma20).Abs(), sma20).GreaterThan(pct("0.02")) {
		return nil, nil
	}
	if last.Close.LessThan(sma20.Mul(pct("0.98"))) {
		return nil, nil
	}
	rsi, err := indicators.RSI(closes, 14)
	if err != nil {
		return nil, err
	}
	if rsi.LessThan(pct("30")) || rsi.GreaterThan(pct("40")) {
		return nil, nil
	}

	vols := w.Volumes()
	avgVol, _ := indicators.SMA(vols, 20)
	return finalize(w, gate{pattern: d.Pattern(), floor: pct("1.5"), winRate: winRate("60.2")}, setup{
		entry:       last.Close,
		support:     lowOfLast20(w),
		resistance:  highOfLast20(w),
		target:      last.Close.Mul(pct("1.08")),
		volumeSurge: ratio(vols[len(vols)-1], avgVol),
	})
}
