package timewindow

import (
	"testing"
	"time"
)

// fixed reference instant for deterministic resolution.
var now = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 10, 30, 0, 0, time.UTC)
	return &t
}

func TestResolve_RelativeSelectors(t *testing.T) {
	tests := []struct {
		selector Selector
		days     int
	}{
		{SelectorLast24h, 1},
		{SelectorLastWeek, 7},
		{SelectorLastMonth, 30},
		{SelectorLast3Moths, 90},
		{SelectorLast6Moths, 180},
	}
	for _, tc := range tests {
		t.Run(string(tc.selector), func(t *testing.T) {
			w := Resolve(Range{Selector: tc.selector}, now)
			if !w.To.Equal(now) {
				t.Errorf("To = %v, want %v", w.To, now)
			}
			wantFrom := now.AddDate(0, 0, -tc.days)
			if !w.From.Equal(wantFrom) {
				t.Errorf("From = %v, want %v", w.From, wantFrom)
			}
			if w.Unbounded {
				t.Error("relative window should not be unbounded")
			}
		})
	}
}

func TestResolve_Year(t *testing.T) {
	w := Resolve(Range{Selector: SelectorYear, Year: 2024}, now)
	if w.From.Year() != 2024 || w.From.Month() != time.January || w.From.Day() != 1 {
		t.Errorf("From = %v, want Jan 1 2024", w.From)
	}
	if w.To.Year() != 2024 || w.To.Month() != time.December || w.To.Day() != 31 {
		t.Errorf("To = %v, want Dec 31 2024", w.To)
	}
	if w.To.Hour() != 23 || w.To.Minute() != 59 || w.To.Second() != 59 {
		t.Errorf("To = %v, want end of day", w.To)
	}
}

func TestResolve_AllTime(t *testing.T) {
	w := Resolve(Range{Selector: SelectorAllTime}, now)
	if !w.Unbounded {
		t.Fatal("all-time window must be unbounded")
	}
	// The all-time window contains every other resolved window.
	others := []Range{
		{Selector: SelectorLast24h},
		{Selector: SelectorLast6Moths},
		{Selector: SelectorYear, Year: 1999},
		{Selector: SelectorCustom, From: datePtr(2001, time.March, 3)},
	}
	for _, r := range others {
		o := Resolve(r, now)
		if !w.Contains(o.From) || !w.Contains(o.To) {
			t.Errorf("all-time window does not contain %s window %v..%v", r.Selector, o.From, o.To)
		}
	}
}

func TestResolve_Custom(t *testing.T) {
	t.Run("both bounds snap to calendar day", func(t *testing.T) {
		r := Range{Selector: SelectorCustom, From: datePtr(2025, time.May, 1), To: datePtr(2025, time.May, 10)}
		w := Resolve(r, now)
		if w.From.Hour() != 0 || w.From.Minute() != 0 {
			t.Errorf("From = %v, want start of day", w.From)
		}
		if w.To.Hour() != 23 || w.To.Second() != 59 {
			t.Errorf("To = %v, want end of day", w.To)
		}
	})

	t.Run("unset bounds mean now", func(t *testing.T) {
		w := Resolve(Range{Selector: SelectorCustom}, now)
		if !w.From.Equal(now) || !w.To.Equal(now) {
			t.Errorf("unset custom bounds = %v..%v, want zero-width at now", w.From, w.To)
		}
	})
}

func TestResolve_FromNeverAfterTo(t *testing.T) {
	ranges := []Range{
		{Selector: SelectorLast24h},
		{Selector: SelectorLastWeek},
		{Selector: SelectorLastMonth},
		{Selector: SelectorLast3Moths},
		{Selector: SelectorLast6Moths},
		{Selector: SelectorYear, Year: 2023},
		{Selector: SelectorCustom, From: datePtr(2025, time.January, 2), To: datePtr(2025, time.February, 3)},
	}
	for _, r := range ranges {
		w := Resolve(r, now)
		if w.From.After(w.To) {
			t.Errorf("%s: From %v after To %v", r.Selector, w.From, w.To)
		}
	}
}

func record(r Range) *Record {
	return &Record{Range: r, Window: Resolve(r, now)}
}

func TestExceedsScanned_NoRecord(t *testing.T) {
	if ExceedsScanned(Range{Selector: SelectorAllTime}, nil, now) {
		t.Error("nil record must never exceed")
	}
}

func TestExceedsScanned_SameSelector(t *testing.T) {
	selectors := []Range{
		{Selector: SelectorLast24h},
		{Selector: SelectorLastWeek},
		{Selector: SelectorLastMonth},
		{Selector: SelectorLast3Moths},
		{Selector: SelectorLast6Moths},
		{Selector: SelectorYear, Year: 2025},
		{Selector: SelectorAllTime},
	}
	for _, r := range selectors {
		if ExceedsScanned(r, record(r), now) {
			t.Errorf("%s vs itself: want false", r.Selector)
		}
	}
}

func TestExceedsScanned_CustomWindows(t *testing.T) {
	base := Range{Selector: SelectorCustom, From: datePtr(2025, time.May, 1), To: datePtr(2025, time.May, 31)}

	t.Run("identical windows do not exceed", func(t *testing.T) {
		if ExceedsScanned(base, record(base), now) {
			t.Error("equal custom windows: want false")
		}
	})

	t.Run("wider from exceeds", func(t *testing.T) {
		wider := Range{Selector: SelectorCustom, From: datePtr(2025, time.April, 1), To: datePtr(2025, time.May, 31)}
		if !ExceedsScanned(wider, record(base), now) {
			t.Error("earlier from: want true")
		}
	})

	t.Run("later to exceeds", func(t *testing.T) {
		wider := Range{Selector: SelectorCustom, From: datePtr(2025, time.May, 1), To: datePtr(2025, time.June, 10)}
		if !ExceedsScanned(wider, record(base), now) {
			t.Error("later to: want true")
		}
	})

	t.Run("narrower window does not exceed", func(t *testing.T) {
		narrow := Range{Selector: SelectorCustom, From: datePtr(2025, time.May, 10), To: datePtr(2025, time.May, 20)}
		if ExceedsScanned(narrow, record(base), now) {
			t.Error("contained window: want false")
		}
	})
}

func TestExceedsScanned_YearScan(t *testing.T) {
	scanned := record(Range{Selector: SelectorYear, Year: 2025})

	t.Run("all-time always exceeds a year scan", func(t *testing.T) {
		if !ExceedsScanned(Range{Selector: SelectorAllTime}, scanned, now) {
			t.Error("want true")
		}
	})

	t.Run("custom inside the year does not exceed", func(t *testing.T) {
		sel := Range{Selector: SelectorCustom, From: datePtr(2025, time.February, 1), To: datePtr(2025, time.March, 1)}
		if ExceedsScanned(sel, scanned, now) {
			t.Error("want false")
		}
	})

	t.Run("custom reaching outside the year exceeds", func(t *testing.T) {
		sel := Range{Selector: SelectorCustom, From: datePtr(2024, time.December, 20), To: datePtr(2025, time.January, 5)}
		if !ExceedsScanned(sel, scanned, now) {
			t.Error("want true")
		}
	})

	t.Run("short relative window within the year does not exceed", func(t *testing.T) {
		// now is mid-June 2025, so last-week stays inside 2025.
		if ExceedsScanned(Range{Selector: SelectorLastWeek}, scanned, now) {
			t.Error("want false")
		}
	})

	t.Run("relative window reaching before the year exceeds", func(t *testing.T) {
		if !ExceedsScanned(Range{Selector: SelectorLast6Moths}, scanned, now) {
			t.Error("last-6-months from mid-June reaches into 2024, want true")
		}
	})

	t.Run("different fixed year exceeds", func(t *testing.T) {
		if !ExceedsScanned(Range{Selector: SelectorYear, Year: 2024}, scanned, now) {
			t.Error("want true")
		}
	})
}

func TestExceedsScanned_AllTimeScan(t *testing.T) {
	scanned := record(Range{Selector: SelectorAllTime})
	selected := []Range{
		{Selector: SelectorLast24h},
		{Selector: SelectorLast6Moths},
		{Selector: SelectorYear, Year: 2020},
		{Selector: SelectorCustom, From: datePtr(1990, time.January, 1)},
		{Selector: SelectorAllTime},
	}
	for _, sel := range selected {
		if ExceedsScanned(sel, scanned, now) {
			t.Errorf("%s vs all-time scan: want false", sel.Selector)
		}
	}
}

func TestExceedsScanned_DayProxies(t *testing.T) {
	tests := []struct {
		name     string
		selected Range
		scanned  Range
		want     bool
	}{
		{"week within month", Range{Selector: SelectorLastWeek}, Range{Selector: SelectorLastMonth}, false},
		{"month over week", Range{Selector: SelectorLastMonth}, Range{Selector: SelectorLastWeek}, true},
		{"six months over three", Range{Selector: SelectorLast6Moths}, Range{Selector: SelectorLast3Moths}, true},
		{"all-time over relative", Range{Selector: SelectorAllTime}, Range{Selector: SelectorLastMonth}, true},
		{
			"short custom within relative",
			Range{Selector: SelectorCustom, From: datePtr(2025, time.June, 10), To: datePtr(2025, time.June, 14)},
			Range{Selector: SelectorLastMonth},
			false,
		},
		{
			"wide custom over relative",
			Range{Selector: SelectorCustom, From: datePtr(2024, time.January, 1), To: datePtr(2025, time.June, 1)},
			Range{Selector: SelectorLast3Moths},
			true,
		},
		{"unresolvable selected fails safe", Range{Selector: "bogus"}, Range{Selector: SelectorLastMonth}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExceedsScanned(tc.selected, record(tc.scanned), now); got != tc.want {
				t.Errorf("ExceedsScanned = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	w := Resolve(Range{Selector: SelectorLastWeek}, now)
	if !w.Contains(now) {
		t.Error("upper bound should be inclusive")
	}
	if !w.Contains(now.AddDate(0, 0, -7)) {
		t.Error("lower bound should be inclusive")
	}
	if w.Contains(now.AddDate(0, 0, -8)) {
		t.Error("instant before window should be excluded")
	}
	if w.Contains(now.Add(time.Hour)) {
		t.Error("instant after window should be excluded")
	}
}
