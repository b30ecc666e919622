package patterns

import (
	"ChartScan/internal/domain/models"
	"ChartScan/internal/services/indicators"
)

// MomentumAlignment fires when RSI, MACD and the 20/50 averages all agree.
type MomentumAlignment struct{}

func (MomentumAlignment) Pattern() models.Pattern { return models.PatternMomentumAlignment }
func (MomentumAlignment) MinBars() int            { return 50 }

func (d MomentumAlignment) Detect(w models.Window) (*models.Signal, error) {
	if err := need(w, d); err != nil {
		return nil, err
	}
	w = w.Tail(d.MinBars())
	closes := w.Closes()
	last := w.Last()

	rsi, err := indicators.RSI(closes, 14)
	if err != nil {
		return nil, err
	}
	if rsi.LessThan(pct("55")) || rsi.GreaterThan(pct("75")) {
		return nil, nil
	}
	macd := indicators.MACD(closes)
	if !macd.Line.GreaterThan(macd.Signal) {
		return nil, nil
	}
	sma20, err := indicators.SMA(closes, 20)
	if err != nil {
		return nil, err
	}
	sma50, err := indicators.SMA(closes, 50)
	if err != nil {
		return nil, err
	}
	if !last.Close.GreaterThan(sma20) || !sma20.GreaterThan(sma50) {
		return nil, nil
	}
	vols := w.Volumes()
	avgVol, err := indicators.SMA(vols, 20)
	if err != nil {
		return nil, err
	}
	lastVol := vols[len(vols)-1]
	if !atLeast(lastVol, avgVol, "0.8") {
		return nil, nil
	}

	return finalize(w, gate{pattern: d.Pattern(), floor: pct("2.0")}, setup{
		entry:       last.Close,
		support:     lowOfLast20(w),
		resistance:  highOfLast20(w),
		target:      last.Close.Mul(pct("1.10")),
		volumeSurge: ratio(lastVol, avgVol),
	})
}
