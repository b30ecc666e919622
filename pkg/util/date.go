package util

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used in configs, requests and files.
const DateLayout = "2006-01-02"

// ParseDate accepts YYYY-MM-DD or RFC3339 and returns midnight UTC of that day.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
}

// ParseDateDefault parses s or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, err := ParseDate(s); err == nil {
		return t
	}
	return def
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

// Day truncates t to midnight UTC of its calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DateRange steps from start to end inclusive by stride calendar days. A
// step that lands on a weekend moves forward to the following Monday; moved
// dates past end or already emitted are dropped. A stride below one is
// treated as one.
func DateRange(start, end time.Time, stride int) []time.Time {
	if stride < 1 {
		stride = 1
	}
	start, end = Day(start), Day(end)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, stride) {
		day := NextWeekday(d)
		if day.After(end) {
			continue
		}
		if n := len(out); n > 0 && !day.After(out[n-1]) {
			continue
		}
		out = append(out, day)
	}
	return out
}

// NextWeekday returns t's day, or the Monday after it when t falls on a weekend.
func NextWeekday(t time.Time) time.Time {
	d := Day(t)
	for IsWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// TradingDaysBack returns the date n weekdays before t.
func TradingDaysBack(t time.Time, n int) time.Time {
	d := Day(t)
	for n > 0 {
		d = d.AddDate(0, 0, -1)
		if !IsWeekend(d) {
			n--
		}
	}
	return d
}
