package performance

import (
	"testing"

	"ChartScan/internal/domain/models"

	"github.com/shopspring/decimal"
)

func sample(p models.Pattern, c models.Classification, ret string) Sample {
	return Sample{Pattern: p, Outcome: models.Outcome{Classification: c, ReturnPct: decimal.RequireFromString(ret)}}
}

func many(n int, s Sample) []Sample {
	out := make([]Sample, n)
	for i := range out {
		out[i] = s
	}
	return out
}

func want(t *testing.T, name string, got decimal.Decimal, w string) {
	t.Helper()
	if !got.Equal(decimal.RequireFromString(w)) {
		t.Errorf("%s: got %s want %s", name, got, w)
	}
}

// 68 wins at +8, 22 losses at -3, 10 expired averaging +1.
func scenario() []Sample {
	p := models.PatternBullFlag
	s := many(68, sample(p, models.OutcomeWin, "8"))
	s = append(s, many(22, sample(p, models.OutcomeLoss, "-3"))...)
	s = append(s, many(5, sample(p, models.OutcomeExpired, "3"))...)
	return append(s, many(5, sample(p, models.OutcomeExpired, "-1"))...)
}

func TestAggregateExcludesExpiredFromWinRate(t *testing.T) {
	st := Aggregate(models.PatternBullFlag, scenario(), models.ExpiredExclude)
	if st.Count != 100 || st.Wins != 68 || st.Losses != 22 || st.Expired != 10 {
		t.Fatalf("counts %+v", st)
	}
	want(t, "win_rate", st.WinRate, "75.56")
	want(t, "expectancy", st.Expectancy, "5.31")
	want(t, "avg_return", st.AvgReturn, "4.88")
	want(t, "avg_win", st.AvgWin, "8")
	want(t, "avg_loss", st.AvgLoss, "-3")
}

func TestAggregateBySign(t *testing.T) {
	st := Aggregate(models.PatternBullFlag, scenario(), models.ExpiredBySign)
	if st.Wins != 73 || st.Losses != 27 || st.Expired != 0 {
		t.Fatalf("counts %+v", st)
	}
	want(t, "win_rate", st.WinRate, "73")
	// avg_return does not depend on the policy
	want(t, "avg_return", st.AvgReturn, "4.88")
}

func TestAggregateEmptyAndUndecided(t *testing.T) {
	st := Aggregate(models.PatternGapUpHold, nil, models.ExpiredExclude)
	if st.Count != 0 || !st.WinRate.IsZero() {
		t.Fatalf("unexpected %+v", st)
	}
	st = Aggregate(models.PatternGapUpHold, many(3, sample(models.PatternGapUpHold, models.OutcomeExpired, "1.5")), models.ExpiredExclude)
	if st.Expired != 3 || !st.WinRate.IsZero() || !st.Expectancy.IsZero() {
		t.Fatalf("unexpected %+v", st)
	}
	want(t, "avg_return", st.AvgReturn, "1.5")
}

func TestSummariseOrdersByCatalog(t *testing.T) {
	samples := []Sample{
		sample(models.PatternDoubleBottom, models.OutcomeWin, "5"),
		sample(models.PatternMomentumAlignment, models.OutcomeLoss, "-2"),
		sample(models.PatternDoubleBottom, models.OutcomeLoss, "-1"),
	}
	by, overall := Summarise(samples, models.ExpiredExclude)
	if len(by) != 2 || by[0].Pattern != models.PatternMomentumAlignment || by[1].Pattern != models.PatternDoubleBottom {
		t.Fatalf("unexpected order %+v", by)
	}
	if overall.Pattern != models.OverallPattern || overall.Count != 3 || overall.Wins != 1 {
		t.Fatalf("overall %+v", overall)
	}
	want(t, "double bottom win rate", by[1].WinRate, "50")
}

func TestFromSignalsSkipsOpen(t *testing.T) {
	closed := models.Signal{Pattern: models.PatternBullFlag, Outcome: &models.Outcome{Classification: models.OutcomeWin}}
	open := models.Signal{Pattern: models.PatternBullFlag}
	if got := FromSignals([]models.Signal{closed, open}); len(got) != 1 {
		t.Fatalf("got %d samples", len(got))
	}
}
