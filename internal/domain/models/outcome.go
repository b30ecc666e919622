package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Classification string

const (
	OutcomeWin     Classification = "WIN"
	OutcomeLoss    Classification = "LOSS"
	OutcomeExpired Classification = "EXPIRED"
)

// Outcome is written once, when a signal closes. Percent fields are
// expressed in percent (8.00 means +8 %).
type Outcome struct {
	Classification Classification  `json:"outcome"`
	ExitPrice      decimal.Decimal `json:"exit_price"`
	ReturnPct      decimal.Decimal `json:"return_pct"`
	DaysHeld       int             `json:"days_held"`
	ClosedDate     time.Time       `json:"closed_date"`
	MaxGain        decimal.Decimal `json:"max_gain"`
	MaxLoss        decimal.Decimal `json:"max_loss"`
}

// HorizonUnit selects how Horizon.Days is counted.
type HorizonUnit string

const (
	HorizonCalendar HorizonUnit = "calendar"
	HorizonTrading  HorizonUnit = "trading"
)

// Horizon is the maximum holding window before a signal expires.
type Horizon struct {
	Days int         `json:"days" yaml:"days"`
	Unit HorizonUnit `json:"unit" yaml:"unit"`
}

// DefaultHorizon is seven calendar days.
var DefaultHorizon = Horizon{Days: 7, Unit: HorizonCalendar}

func ParseHorizonUnit(s string) (HorizonUnit, error) {
	switch HorizonUnit(strings.ToLower(s)) {
	case HorizonCalendar, "":
		return HorizonCalendar, nil
	case HorizonTrading:
		return HorizonTrading, nil
	}
	return "", fmt.Errorf("unknown horizon unit %q", s)
}

// Includes reports whether the forward bar at 1-based index idx, dated
// day, still lies inside the horizon of a signal dated from.
func (h Horizon) Includes(from, day time.Time, idx int) bool {
	if h.Unit == HorizonTrading {
		return idx <= h.Days
	}
	return !Day(day).After(Day(from).AddDate(0, 0, h.Days))
}

// End is the last calendar day a calendar horizon covers.
func (h Horizon) End(from time.Time) time.Time {
	return Day(from).AddDate(0, 0, h.Days)
}

// Span is a generous calendar span that covers the horizon in either unit.
func (h Horizon) Span() int {
	if h.Unit == HorizonTrading {
		return h.Days*7/5 + 7
	}
	return h.Days
}

// ExpiredPolicy decides how EXPIRED outcomes enter win/loss counts.
type ExpiredPolicy string

const (
	// ExpiredExclude counts EXPIRED toward returns only.
	ExpiredExclude ExpiredPolicy = "exclude"
	// ExpiredBySign counts a positive EXPIRED as a win and a negative one as a loss.
	ExpiredBySign ExpiredPolicy = "by_sign"
)

func ParseExpiredPolicy(s string) (ExpiredPolicy, error) {
	switch ExpiredPolicy(s) {
	case ExpiredExclude, "":
		return ExpiredExclude, nil
	case ExpiredBySign:
		return ExpiredBySign, nil
	}
	return "", fmt.Errorf("unknown expired policy %q", s)
}
