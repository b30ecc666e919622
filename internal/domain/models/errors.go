package models

import "errors"

var (
	// ErrInsufficientData means a series or window is shorter than required.
	ErrInsufficientData = errors.New("insufficient data")
	// ErrBarStoreUnavailable means the bar store could not serve a read.
	ErrBarStoreUnavailable = errors.New("bar store unavailable")
	// ErrStoreConflict means a signal with the same (ticker, date) already exists,
	// or a lifecycle transition targeted a signal that is no longer open.
	ErrStoreConflict = errors.New("signal store conflict")
	// ErrInvariantViolation means computed or loaded values break a domain invariant.
	ErrInvariantViolation = errors.New("invariant violation")
	// ErrScanInProgress means another instance holds the scan lock for the date.
	ErrScanInProgress = errors.New("scan already in progress")
	// ErrReportNotFound means no backtest report exists for the run id.
	ErrReportNotFound = errors.New("backtest report not found")
)

// SkipReason classifies why a ticker produced no signal.
type SkipReason string

const (
	SkipInsufficientData  SkipReason = "insufficient_data"
	SkipStaleWindow       SkipReason = "stale_window"
	SkipInvalidBars       SkipReason = "invalid_bars"
	SkipOverbought        SkipReason = "overbought"
	SkipNoPattern         SkipReason = "no_pattern"
	SkipDetectorError     SkipReason = "detector_error"
	SkipBarStore          SkipReason = "bar_store_unavailable"
	SkipStoreError        SkipReason = "store_error"
	SkipDuplicate         SkipReason = "duplicate"
	SkipDeadline          SkipReason = "deadline"
	SkipIncompleteForward SkipReason = "incomplete_forward"
)

// SkipCounts tallies skipped tickers per reason.
type SkipCounts map[SkipReason]int

func (s SkipCounts) Add(r SkipReason) { s[r]++ }

// Merge folds other into s.
func (s SkipCounts) Merge(other SkipCounts) {
	for k, v := range other {
		s[k] += v
	}
}

func (s SkipCounts) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}
