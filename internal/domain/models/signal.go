package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Pattern names a detector in the fixed catalog.
type Pattern string

const (
	PatternMomentumAlignment    Pattern = "momentum_alignment"
	PatternVolumeBreakout       Pattern = "volume_breakout"
	PatternConsolidationBreak   Pattern = "consolidation_breakout"
	PatternBullFlag             Pattern = "bull_flag"
	PatternAscendingTriangle    Pattern = "ascending_triangle"
	PatternReversalAfterDecline Pattern = "reversal_after_decline"
	PatternGapUpHold            Pattern = "gap_up_hold"
	PatternMA20Pullback         Pattern = "ma20_pullback"
	PatternCupAndHandle         Pattern = "cup_and_handle"
	PatternDoubleBottom         Pattern = "double_bottom"
)

// Patterns lists the catalog in scanner priority order.
var Patterns = []Pattern{
	PatternMomentumAlignment,
	PatternVolumeBreakout,
	PatternConsolidationBreak,
	PatternBullFlag,
	PatternAscendingTriangle,
	PatternReversalAfterDecline,
	PatternGapUpHold,
	PatternMA20Pullback,
	PatternCupAndHandle,
	PatternDoubleBottom,
}

// ParsePattern validates a pattern name against the catalog.
func ParsePattern(s string) (Pattern, error) {
	for _, p := range Patterns {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown pattern %q", s)
}

type SignalStatus string

const (
	StatusActive SignalStatus = "active"
	StatusClosed SignalStatus = "closed"
)

// Signal is a trade setup emitted by a detector for one (ticker, date).
// Field names are the canonical wire names consumed downstream.
type Signal struct {
	Date              time.Time        `json:"date"`
	Ticker            string           `json:"ticker"`
	Pattern           Pattern          `json:"pattern"`
	Entry             decimal.Decimal  `json:"entry"`
	Support           decimal.Decimal  `json:"support"`
	Resistance        decimal.Decimal  `json:"resistance"`
	Target            decimal.Decimal  `json:"target"`
	RiskReward        decimal.Decimal  `json:"risk_reward"`
	VolumeSurge       decimal.Decimal  `json:"volume_surge"`
	HistoricalWinRate *decimal.Decimal `json:"historical_win_rate,omitempty"`
	SignalCount       int              `json:"signal_count"`
	Status            SignalStatus     `json:"status"`
	DetectedAt        time.Time        `json:"detected_at"`

	*Outcome
}

// Key is the uniqueness key enforced by the signal store.
func (s Signal) Key() string {
	return SignalKey(s.Ticker, s.Date)
}

func SignalKey(ticker string, date time.Time) string {
	return ticker + "|" + Day(date).Format(DateLayout)
}

func (s Signal) IsOpen() bool { return s.Status == StatusActive }

// Check enforces target > entry > support > 0 and the risk/reward floor.
func (s Signal) Check(floor decimal.Decimal) error {
	if !s.Support.IsPositive() {
		return fmt.Errorf("%s %s: support %s not positive: %w", s.Ticker, s.Pattern, s.Support, ErrInvariantViolation)
	}
	if !s.Entry.GreaterThan(s.Support) {
		return fmt.Errorf("%s %s: entry %s not above support %s: %w", s.Ticker, s.Pattern, s.Entry, s.Support, ErrInvariantViolation)
	}
	if !s.Target.GreaterThan(s.Entry) {
		return fmt.Errorf("%s %s: target %s not above entry %s: %w", s.Ticker, s.Pattern, s.Target, s.Entry, ErrInvariantViolation)
	}
	if s.RiskReward.LessThan(floor) {
		return fmt.Errorf("%s %s: risk/reward %s below %s: %w", s.Ticker, s.Pattern, s.RiskReward, floor, ErrInvariantViolation)
	}
	return nil
}

// RiskReward computes (target-entry)/(entry-support).
func RiskReward(entry, support, target decimal.Decimal) decimal.Decimal {
	risk := entry.Sub(support)
	if risk.IsZero() {
		return decimal.Zero
	}
	return target.Sub(entry).Div(risk)
}

// SignalFilter narrows signal queries; zero fields match everything.
type SignalFilter struct {
	Ticker  string
	Pattern Pattern
	Status  SignalStatus
	From    time.Time
	To      time.Time
	Limit   int
}

// Match reports whether s satisfies the filter.
func (f SignalFilter) Match(s Signal) bool {
	if f.Ticker != "" && s.Ticker != f.Ticker {
		return false
	}
	if f.Pattern != "" && s.Pattern != f.Pattern {
		return false
	}
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if !f.From.IsZero() && s.Date.Before(Day(f.From)) {
		return false
	}
	if !f.To.IsZero() && s.Date.After(Day(f.To)) {
		return false
	}
	return true
}
