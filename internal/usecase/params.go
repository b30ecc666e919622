package usecase

import (
	"fmt"

	"ChartScan/internal/domain/models"
	"ChartScan/pkg/util"

	"github.com/shopspring/decimal"
)

// ParsePatterns validates pattern names; an empty list means the whole catalog.
func ParsePatterns(names []string) ([]models.Pattern, error) {
	out := make([]models.Pattern, 0, len(names))
	for _, n := range names {
		p, err := models.ParsePattern(n)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ceilingOverride treats zero as "use the configured ceiling".
func ceilingOverride(v float64) *decimal.Decimal {
	if v <= 0 {
		return nil
	}
	d := decimal.NewFromFloat(v)
	return &d
}

// ScanOptionsFrom turns request overrides into scan options.
func ScanOptionsFrom(req models.ScanRequest) ([]ScanOption, error) {
	ps, err := ParsePatterns(req.Patterns)
	if err != nil {
		return nil, err
	}
	var opts []ScanOption
	if len(ps) > 0 {
		opts = append(opts, WithPatterns(ps...))
	}
	if c := ceilingOverride(req.RSICeiling); c != nil {
		opts = append(opts, WithRSICeiling(*c))
	}
	return opts, nil
}

// BacktestParamsFrom validates a request. Universe falls back to def when
// the request names no tickers; stride and expired policy stay zero so the
// Backtester applies its configured values.
func BacktestParamsFrom(req models.BacktestRequest, def []string) (BacktestParams, error) {
	start, err := util.ParseDate(req.Start)
	if err != nil {
		return BacktestParams{}, fmt.Errorf("start: %w", err)
	}
	end, err := util.ParseDate(req.End)
	if err != nil {
		return BacktestParams{}, fmt.Errorf("end: %w", err)
	}
	if end.Before(start) {
		return BacktestParams{}, fmt.Errorf("end %s is before start %s", req.End, req.Start)
	}
	ps, err := ParsePatterns(req.Patterns)
	if err != nil {
		return BacktestParams{}, err
	}
	var policy models.ExpiredPolicy
	if req.ExpiredPolicy != "" {
		if policy, err = models.ParseExpiredPolicy(req.ExpiredPolicy); err != nil {
			return BacktestParams{}, err
		}
	}

	p := BacktestParams{
		Start:         start,
		End:           end,
		StrideDays:    req.StrideDays,
		Universe:      req.Tickers,
		Patterns:      ps,
		RSICeiling:    ceilingOverride(req.RSICeiling),
		ExpiredPolicy: policy,
	}
	if len(p.Universe) == 0 {
		p.Universe = def
	}
	if req.HorizonDays > 0 {
		unit, err := models.ParseHorizonUnit(req.HorizonUnit)
		if err != nil {
			return BacktestParams{}, err
		}
		p.Horizon = &models.Horizon{Days: req.HorizonDays, Unit: unit}
	}
	return p, nil
}
