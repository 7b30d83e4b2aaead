// Package timewindow resolves symbolic time-range selectors into concrete
// intervals and compares a selected range against the range covered by the
// most recent completed scan.
package timewindow

import (
	"math"
	"time"
)

// Selector identifies a symbolic time range.
type Selector string

// Known selectors.
const (
	SelectorLast24h    Selector = "last-24h"
	SelectorLastWeek   Selector = "last-week"
	SelectorLastMonth  Selector = "last-month"
	SelectorLast3Moths Selector = "last-3-months"
	SelectorLast6Moths Selector = "last-6-months"
	SelectorYear       Selector = "year"
	SelectorAllTime    Selector = "all-time"
	SelectorCustom     Selector = "custom"
)

// Valid reports whether s is a recognized selector.
func (s Selector) Valid() bool {
	switch s {
	case SelectorLast24h, SelectorLastWeek, SelectorLastMonth,
		SelectorLast3Moths, SelectorLast6Moths, SelectorYear,
		SelectorAllTime, SelectorCustom:
		return true
	}
	return false
}

// relativeDays maps each relative selector to its day count.
var relativeDays = map[Selector]int{
	SelectorLast24h:    1,
	SelectorLastWeek:   7,
	SelectorLastMonth:  30,
	SelectorLast3Moths: 90,
	SelectorLast6Moths: 180,
}

// Range is a selector plus its parameters. Year is meaningful only for
// SelectorYear; From and To only for SelectorCustom, where either may be
// unset (nil) and then stands for "now".
type Range struct {
	Selector Selector   `json:"selector"`
	Year     int        `json:"year,omitempty"`
	From     *time.Time `json:"from,omitempty"`
	To       *time.Time `json:"to,omitempty"`
}

// Window is a resolved [From, To] interval. Unbounded marks the all-time
// window, whose lower bound is a sentinel rather than a finite instant so
// containment checks never lose precision against real timestamps.
type Window struct {
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	Unbounded bool      `json:"unbounded,omitempty"`
}

// Contains reports whether t falls inside the window, bounds inclusive.
func (w Window) Contains(t time.Time) bool {
	if w.Unbounded {
		return !t.After(w.To)
	}
	return !t.Before(w.From) && !t.After(w.To)
}

// Equal reports whether two windows resolve to the same interval.
func (w Window) Equal(o Window) bool {
	if w.Unbounded != o.Unbounded {
		return false
	}
	if w.Unbounded {
		return w.To.Equal(o.To)
	}
	return w.From.Equal(o.From) && w.To.Equal(o.To)
}

// Resolve translates a Range into a concrete Window relative to now.
// Relative selectors count back whole days from now. A fixed year spans
// Jan 1 00:00:00 through Dec 31 23:59:59 local time. Custom bounds snap to
// the start and end of their calendar day; an unset custom bound means now.
func Resolve(r Range, now time.Time) Window {
	switch r.Selector {
	case SelectorAllTime:
		return Window{To: now, Unbounded: true}
	case SelectorYear:
		return Window{
			From: time.Date(r.Year, time.January, 1, 0, 0, 0, 0, now.Location()),
			To:   time.Date(r.Year, time.December, 31, 23, 59, 59, 0, now.Location()),
		}
	case SelectorCustom:
		w := Window{From: now, To: now}
		if r.From != nil {
			w.From = startOfDay(*r.From)
		}
		if r.To != nil {
			w.To = endOfDay(*r.To)
		}
		return w
	default:
		days, ok := relativeDays[r.Selector]
		if !ok {
			// Unknown selector: degenerate zero-width window at now.
			return Window{From: now, To: now}
		}
		return Window{From: now.AddDate(0, 0, -days), To: now}
	}
}

// Record captures the range actually used by the last completed scan.
// It is distinct from the currently selected Range, which may diverge
// from it until the next scan.
type Record struct {
	Range  Range  `json:"range"`
	Window Window `json:"window"`
}

// ExceedsScanned reports whether files satisfying selected could fall
// outside what the recorded scan already covers, i.e. whether a rescan is
// needed before a filtered view can be trusted as complete.
//
// For a year-constrained scan compared against a relative selector this is
// a deliberate day-count approximation, not full interval containment: the
// relative window is declared out of range as soon as it reaches earlier
// than Jan 1 of the scanned year. The check exists as a cheap user-visible
// guard and the approximation is kept as-is.
func ExceedsScanned(selected Range, scanned *Record, now time.Time) bool {
	// Nothing recorded yet: nothing to exceed. Callers gate "no results"
	// separately.
	if scanned == nil {
		return false
	}

	if selected.Selector == scanned.Range.Selector {
		switch selected.Selector {
		case SelectorCustom:
			sel := Resolve(selected, now)
			if sel.Equal(scanned.Window) {
				return false
			}
			return sel.From.Before(scanned.Window.From) || sel.To.After(scanned.Window.To)
		case SelectorYear:
			if selected.Year == scanned.Range.Year {
				return false
			}
			// Different years fall through to the year-scan comparison.
		default:
			return false
		}
	}

	switch scanned.Range.Selector {
	case SelectorAllTime:
		// A full-history scan is a superset of every window.
		return false
	case SelectorYear:
		return exceedsYearScan(selected, scanned.Range.Year, now)
	}

	// Two bounded/relative selectors: compare day-count proxies.
	selDays, selOK := dayProxy(selected, now)
	scanDays, scanOK := dayProxy(scanned.Range, now)
	if !selOK || !scanOK {
		// Fail safe toward forcing a rescan rather than silently
		// presenting incomplete data.
		return true
	}
	return selDays > scanDays
}

// exceedsYearScan compares a selected range against a scan that only
// covered dates inside a single year.
func exceedsYearScan(selected Range, year int, now time.Time) bool {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, now.Location())
	yearEnd := time.Date(year, time.December, 31, 23, 59, 59, 0, now.Location())

	switch selected.Selector {
	case SelectorAllTime:
		return true
	case SelectorCustom, SelectorYear:
		w := Resolve(selected, now)
		return w.From.Before(yearStart) || w.To.After(yearEnd)
	default:
		days, ok := relativeDays[selected.Selector]
		if !ok {
			return true
		}
		// Conservative guard: the relative window exceeds as soon as it
		// reaches earlier than the scanned year's start.
		return now.AddDate(0, 0, -days).Before(yearStart)
	}
}

// dayProxy reduces a range to an approximate day count for coarse
// comparisons. All-time maps to +Inf, a fixed year to 365, custom to the
// rounded-up span of its resolved window.
func dayProxy(r Range, now time.Time) (float64, bool) {
	switch r.Selector {
	case SelectorAllTime:
		return math.Inf(1), true
	case SelectorYear:
		return 365, true
	case SelectorCustom:
		w := Resolve(r, now)
		return math.Ceil(w.To.Sub(w.From).Hours() / 24), true
	default:
		days, ok := relativeDays[r.Selector]
		if !ok {
			return 0, false
		}
		return float64(days), true
	}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
