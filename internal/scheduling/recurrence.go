/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"sort"
	"time"
)

// Frequency enumerates recurrence cadences.
type Frequency string

const (
	FreqWeekly    Frequency = "weekly"
	FreqBiweekly  Frequency = "biweekly"
	FreqMonthly   Frequency = "monthly"
	FreqQuarterly Frequency = "quarterly"
	FreqCustom    Frequency = "custom"
)

// EndKind enumerates how a recurrence terminates.
type EndKind string

const (
	EndNever EndKind = "never"
	EndUntil EndKind = "until"
	EndCount EndKind = "count"
)

// EndCondition is the tagged end of a recurrence. Exactly one variant is
// active, selected by Kind; Until and Count are only read for their kind.
type EndCondition struct {
	Kind  EndKind   `json:"kind"`
	Until time.Time `json:"until,omitempty"`
	Count int       `json:"count,omitempty"`
}

// Never runs until the caller stops pulling occurrences.
func Never() EndCondition { return EndCondition{Kind: EndNever} }

// UntilDate stops after d; a date equal to d is still emitted.
func UntilDate(d time.Time) EndCondition {
	return EndCondition{Kind: EndUntil, Until: DateOf(d)}
}

// AfterCount stops after exactly n dates, the anchor occurrence counting
// as the first.
func AfterCount(n int) EndCondition { return EndCondition{Kind: EndCount, Count: n} }

// Pattern describes a recurrence. DaysOfWeek applies to weekly, biweekly
// and custom cadences; DayOfMonth to monthly and quarterly; IntervalWeeks
// is the caller-specified multiplier for custom cadences.
type Pattern struct {
	Frequency     Frequency      `json:"frequency"`
	DaysOfWeek    []time.Weekday `json:"days_of_week,omitempty"`
	DayOfMonth    int            `json:"day_of_month,omitempty"`
	IntervalWeeks int            `json:"interval_weeks,omitempty"`
	End           EndCondition   `json:"end"`
}

// Expansion is a pull-based iterator over a pattern's occurrence dates.
// It computes one date per Next call and never materializes ahead of the
// caller, so Never-ended patterns are safe to expand. Calling Expand again
// with the same inputs reproduces the identical sequence.
type Expansion struct {
	end     EndCondition
	emitted int
	done    bool
	next    func() (time.Time, bool)
}

// Expand starts expanding a pattern from an anchor date. Degenerate
// patterns (no usable days, unknown frequency, non-positive count) produce
// an empty sequence rather than an error.
func Expand(anchor time.Time, p Pattern) *Expansion {
	x := &Expansion{end: p.End}
	if p.End.Kind == EndCount && p.End.Count <= 0 {
		x.done = true
		return x
	}

	anchorDate := DateOf(anchor)
	switch p.Frequency {
	case FreqWeekly:
		x.next = weekdayStepper(anchorDate, p.DaysOfWeek, 1, true)
	case FreqBiweekly:
		x.next = weekdayStepper(anchorDate, p.DaysOfWeek, 2, true)
	case FreqCustom:
		interval := p.IntervalWeeks
		if interval <= 0 {
			interval = 1
		}
		x.next = weekdayStepper(anchorDate, p.DaysOfWeek, interval, false)
	case FreqMonthly:
		x.next = monthStepper(anchorDate, p.DayOfMonth, 1)
	case FreqQuarterly:
		x.next = monthStepper(anchorDate, p.DayOfMonth, 3)
	default:
		x.done = true
	}
	if x.next == nil {
		x.done = true
	}
	return x
}

// Next returns the next occurrence date. ok is false once the end
// condition has been reached or the pattern is degenerate.
func (x *Expansion) Next() (time.Time, bool) {
	if x.done {
		return time.Time{}, false
	}
	d, ok := x.next()
	if !ok {
		x.done = true
		return time.Time{}, false
	}
	if x.end.Kind == EndUntil && d.After(x.end.Until) {
		x.done = true
		return time.Time{}, false
	}
	x.emitted++
	if x.end.Kind == EndCount && x.emitted >= x.end.Count {
		// Next call will report exhaustion.
		x.done = true
		return d, true
	}
	return d, true
}

// Take pulls up to n dates. It is the standard way to bound a Never-ended
// expansion.
func (x *Expansion) Take(n int) []time.Time {
	var out []time.Time
	for len(out) < n {
		d, ok := x.Next()
		if !ok {
			break
		}
		out = append(out, d)
	}
	return out
}

// Within pulls every occurrence on or before the given date. Callers must
// bound Never-ended patterns with this or Take.
func (x *Expansion) Within(until time.Time) []time.Time {
	limit := DateOf(until)
	var out []time.Time
	for {
		d, ok := x.Next()
		if !ok || d.After(limit) {
			break
		}
		out = append(out, d)
	}
	return out
}

// weekdayStepper yields dates on the selected weekdays, in chronological
// order, for weeks that land on the cadence grid anchored at the anchor's
// week. With defaultToAnchor set, an empty weekday set falls back to the
// anchor's own weekday; custom patterns instead produce nothing.
func weekdayStepper(anchor time.Time, days []time.Weekday, intervalWeeks int, defaultToAnchor bool) func() (time.Time, bool) {
	selected := normalizeWeekdays(days)
	if len(selected) == 0 {
		if !defaultToAnchor {
			return nil
		}
		selected = []time.Weekday{anchor.Weekday()}
	}

	// Sunday-based start of the anchor's week; the cadence grid counts
	// whole weeks from here.
	weekBase := anchor.AddDate(0, 0, -int(anchor.Weekday()))

	week := weekBase
	idx := 0
	return func() (time.Time, bool) {
		for {
			if idx >= len(selected) {
				idx = 0
				week = week.AddDate(0, 0, 7*intervalWeeks)
			}
			d := week.AddDate(0, 0, int(selected[idx]))
			idx++
			if !d.Before(anchor) {
				return d, true
			}
		}
	}
}

// monthStepper yields one date every intervalMonths calendar months on the
// requested day of month, clamped to the last day of short months so no
// month is ever silently skipped. A zero day falls back to the anchor's day.
func monthStepper(anchor time.Time, dayOfMonth, intervalMonths int) func() (time.Time, bool) {
	day := dayOfMonth
	if day < 1 || day > 31 {
		day = anchor.Day()
	}

	year, month := anchor.Year(), anchor.Month()
	return func() (time.Time, bool) {
		for {
			d := clampedMonthDay(year, month, day)
			month += time.Month(intervalMonths)
			for month > 12 {
				month -= 12
				year++
			}
			if !d.Before(anchor) {
				return d, true
			}
		}
	}
}

// clampedMonthDay builds the date for day in year/month, clamped to the
// month's last day (day 31 in February becomes the 28th or 29th).
func clampedMonthDay(year int, month time.Month, day int) time.Time {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		day = last
	}
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func normalizeWeekdays(days []time.Weekday) []time.Weekday {
	seen := map[time.Weekday]bool{}
	out := make([]time.Weekday, 0, len(days))
	for _, d := range days {
		if d < time.Sunday || d > time.Saturday || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
