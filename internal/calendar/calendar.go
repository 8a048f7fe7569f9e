// Package calendar has the business-day arithmetic shared by the snapshot
// job and the history reconstructor. Weekends are skipped; market holidays
// are absorbed downstream by the price resolver's forward tolerance.
package calendar

import "time"

func IsBusinessDay(t time.Time) bool {
	wd := t.Weekday()
	return wd != time.Saturday && wd != time.Sunday
}

// PreviousBusinessDay returns the last business day strictly before t.
func PreviousBusinessDay(t time.Time) time.Time {
	d := DateOnly(t).AddDate(0, 0, -1)
	for !IsBusinessDay(d) {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

// CountBusinessDays counts business days in [from, to] inclusive.
func CountBusinessDays(from, to time.Time) int {
	from, to = DateOnly(from), DateOnly(to)
	n := 0
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if IsBusinessDay(d) {
			n++
		}
	}
	return n
}

// BusinessDaysBack returns the last n business days up to and including
// `to` (if it is one), oldest first.
func BusinessDaysBack(to time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := DateOnly(to)
	for len(out) < n {
		if IsBusinessDay(d) {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, -1)
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay is the last instant of t's date, for as-of ledger filtering.
func EndOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999999999, time.UTC)
}
