// Package performance folds closed outcomes into per-pattern statistics.
package performance

import (
	"ChartScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Sample is one closed trade attributed to a pattern.
type Sample struct {
	Pattern models.Pattern
	Outcome models.Outcome
}

// FromSignals keeps the closed signals.
func FromSignals(sigs []models.Signal) []Sample {
	out := make([]Sample, 0, len(sigs))
	for _, s := range sigs {
		if s.Outcome == nil {
			continue
		}
		out = append(out, Sample{Pattern: s.Pattern, Outcome: *s.Outcome})
	}
	return out
}

func FromRecords(recs []models.BacktestRecord) []Sample {
	out := make([]Sample, 0, len(recs))
	for _, r := range recs {
		out = append(out, Sample{Pattern: r.Pattern, Outcome: models.Outcome{
			Classification: r.Status,
			ReturnPct:      r.ReturnPct,
			DaysHeld:       r.DaysHeld,
			MaxGain:        r.MaxGain,
			MaxLoss:        r.MaxLoss,
		}})
	}
	return out
}

// classify applies the expired policy to one outcome.
func classify(o models.Outcome, policy models.ExpiredPolicy) models.Classification {
	if o.Classification != models.OutcomeExpired || policy != models.ExpiredBySign {
		return o.Classification
	}
	switch o.ReturnPct.Sign() {
	case 1:
		return models.OutcomeWin
	case -1:
		return models.OutcomeLoss
	}
	return models.OutcomeExpired
}

// Aggregate computes stats over every sample given, labelled p.
//
// win_rate = wins / (wins + losses); avg_return includes EXPIRED;
// expectancy = wr·avg_win + (1−wr)·avg_loss using the unrounded rate.
func Aggregate(p models.Pattern, samples []Sample, policy models.ExpiredPolicy) models.PatternStats {
	st := models.PatternStats{Pattern: p, Count: len(samples)}
	if len(samples) == 0 {
		return st
	}

	var sumRet, sumWin, sumLoss, sumGain, sumDraw decimal.Decimal
	for _, s := range samples {
		o := s.Outcome
		sumRet = sumRet.Add(o.ReturnPct)
		sumGain = sumGain.Add(o.MaxGain)
		sumDraw = sumDraw.Add(o.MaxLoss)
		switch classify(o, policy) {
		case models.OutcomeWin:
			st.Wins++
			sumWin = sumWin.Add(o.ReturnPct)
		case models.OutcomeLoss:
			st.Losses++
			sumLoss = sumLoss.Add(o.ReturnPct)
		default:
			st.Expired++
		}
	}

	n := decimal.NewFromInt(int64(len(samples)))
	st.AvgReturn = sumRet.Div(n).RoundBank(2)
	st.AvgMaxGain = sumGain.Div(n).RoundBank(2)
	st.AvgMaxLoss = sumDraw.Div(n).RoundBank(2)

	avgWin, avgLoss := decimal.Zero, decimal.Zero
	if st.Wins > 0 {
		avgWin = sumWin.Div(decimal.NewFromInt(int64(st.Wins)))
	}
	if st.Losses > 0 {
		avgLoss = sumLoss.Div(decimal.NewFromInt(int64(st.Losses)))
	}
	st.AvgWin = avgWin.RoundBank(2)
	st.AvgLoss = avgLoss.RoundBank(2)

	decided := st.Wins + st.Losses
	if decided == 0 {
		return st
	}
	wr := decimal.NewFromInt(int64(st.Wins)).Div(decimal.NewFromInt(int64(decided)))
	st.WinRate = wr.Mul(hundred).RoundBank(2)
	st.Expectancy = wr.Mul(avgWin).Add(decimal.NewFromInt(1).Sub(wr).Mul(avgLoss)).RoundBank(2)
	return st
}

// Summarise groups samples by pattern in catalog order (patterns with no
// samples are left out) and adds an overall row.
func Summarise(samples []Sample, policy models.ExpiredPolicy) ([]models.PatternStats, models.PatternStats) {
	groups := make(map[models.Pattern][]Sample)
	for _, s := range samples {
		groups[s.Pattern] = append(groups[s.Pattern], s)
	}
	byPattern := make([]models.PatternStats, 0, len(groups))
	for _, p := range models.Patterns {
		if g, ok := groups[p]; ok {
			byPattern = append(byPattern, Aggregate(p, g, policy))
		}
	}
	return byPattern, Aggregate(models.OverallPattern, samples, policy)
}
