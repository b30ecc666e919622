package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PatternStats is derived on demand from closed outcomes. Rates and returns
// are percentages rounded to two places.
type PatternStats struct {
	Pattern    Pattern         `json:"pattern"`
	Count      int             `json:"count"`
	Wins       int             `json:"wins"`
	Losses     int             `json:"losses"`
	Expired    int             `json:"expired"`
	WinRate    decimal.Decimal `json:"win_rate"`
	AvgReturn  decimal.Decimal `json:"avg_return"`
	AvgWin     decimal.Decimal `json:"avg_win"`
	AvgLoss    decimal.Decimal `json:"avg_loss"`
	AvgMaxGain decimal.Decimal `json:"avg_max_gain"`
	AvgMaxLoss decimal.Decimal `json:"avg_max_loss"`
	Expectancy decimal.Decimal `json:"expectancy"`
}

// ScanResult summarises one scanner run for an evaluation date.
type ScanResult struct {
	Date           time.Time  `json:"date"`
	Evaluated      int        `json:"evaluated"`
	Signals        []Signal   `json:"signals"`
	Skipped        SkipCounts `json:"skipped"`
	Duplicates     int        `json:"duplicates"`
	DetectorErrors int        `json:"detector_errors"`
	Partial        bool       `json:"partial"`
}

// LifecycleResult summarises one lifecycle pass over open signals.
type LifecycleResult struct {
	AsOf      time.Time              `json:"as_of"`
	Examined  int                    `json:"examined"`
	Closed    map[Classification]int `json:"closed"`
	StillOpen int                    `json:"still_open"`
	Failed    int                    `json:"failed"`
}

// BacktestRecord is the flat, serialisable row of one synthesised trade.
type BacktestRecord struct {
	Date      time.Time       `json:"date"`
	Ticker    string          `json:"ticker"`
	Pattern   Pattern         `json:"pattern"`
	Entry     decimal.Decimal `json:"entry"`
	Support   decimal.Decimal `json:"support"`
	Target    decimal.Decimal `json:"target"`
	RR        decimal.Decimal `json:"rr"`
	Status    Classification  `json:"status"`
	ReturnPct decimal.Decimal `json:"return_pct"`
	MaxGain   decimal.Decimal `json:"max_gain"`
	MaxLoss   decimal.Decimal `json:"max_loss"`
	DaysHeld  int             `json:"days_held"`
}

// BacktestReport is the in-memory aggregate returned by a backtest run.
type BacktestReport struct {
	RunID         string           `json:"run_id"`
	Status        string           `json:"status"`
	Start         time.Time        `json:"start"`
	End           time.Time        `json:"end"`
	StrideDays    int              `json:"stride_days"`
	Universe      []string         `json:"universe"`
	Horizon       Horizon          `json:"horizon"`
	ExpiredPolicy ExpiredPolicy    `json:"expired_policy"`
	Dates         int              `json:"dates"`
	Records       []BacktestRecord `json:"records"`
	ByPattern     []PatternStats   `json:"by_pattern"`
	Overall       PatternStats     `json:"overall"`
	Skipped       SkipCounts       `json:"skipped"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	Error         string           `json:"error,omitempty"`
}

const (
	ReportQueued   = "queued"
	ReportRunning  = "running"
	ReportDone     = "done"
	ReportFailed   = "failed"
	OverallPattern = Pattern("all")
)
