/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduling implements the conflict-detection and time-allocation
// engine: interval overlap checks, open slot suggestion, recurrence
// expansion, and move planning. Everything in this package is a pure
// function over in-memory data; persistence lives in internal/scheduler.
package scheduling

import (
	"fmt"
	"time"
)

// ClockTime is a time of day expressed as minutes since midnight.
// Times are timezone-naive: a job at 09:00 is at 09:00 wherever the
// workspace operates.
type ClockTime int

// ParseClock parses "HH:MM" or "HH:MM:SS" into a ClockTime.
// The boolean is false for anything unparseable or out of range.
func ParseClock(s string) (ClockTime, bool) {
	var h, m, sec int
	if _, err := fmt.Sscanf(s, "%d:%d:%d", &h, &m, &sec); err != nil {
		if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
			return 0, false
		}
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, false
	}
	return ClockTime(h*60 + m), true
}

// String renders the time as "HH:MM".
func (c ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(c)/60, int(c)%60)
}

// Add returns the clock time shifted by minutes. The result may run past
// midnight; intervals are allowed to extend beyond 24:00 on their own date.
func (c ClockTime) Add(minutes int) ClockTime {
	return c + ClockTime(minutes)
}

// Job is the read-only view of a job the engine operates on. The caller
// (the job store layer) maps its records into this shape; the engine never
// mutates a Job or writes anything back.
type Job struct {
	ID              string
	Date            time.Time  // calendar date; time-of-day is ignored
	Start           *ClockTime // nil = no determinate start time
	DurationMinutes int        // <= 0 = unknown, coerced to the default
}

// Interval is a date-scoped [Start, End) window.
type Interval struct {
	Date  time.Time
	Start ClockTime
	End   ClockTime
}

// Defaults carries the engine-wide fallback values. The source system
// scattered 60- and 120-minute assumptions across call sites; here both
// live in one place and every path reads them from here.
type Defaults struct {
	// DurationMinutes is assumed for interval math when a job has no
	// usable duration. Never persisted back to the job record.
	DurationMinutes int
	// QuickDurationMinutes is the assumed duration for the fixed-list
	// quick-suggestion path.
	QuickDurationMinutes int
	// CommonTimes is the candidate list for quick suggestions, in the
	// order they should be tried.
	CommonTimes []ClockTime
}

// StandardDefaults returns the canonical defaults: 60-minute jobs,
// 2-hour quick suggestions, on-the-hour candidates 08:00 through 16:00.
func StandardDefaults() Defaults {
	common := make([]ClockTime, 0, 9)
	for h := 8; h <= 16; h++ {
		common = append(common, ClockTime(h*60))
	}
	return Defaults{
		DurationMinutes:      60,
		QuickDurationMinutes: 120,
		CommonTimes:          common,
	}
}

// WorkingHours bounds slot suggestions for a day.
type WorkingHours struct {
	Start ClockTime
	End   ClockTime
}

// Engine evaluates scheduling queries against a fixed set of defaults.
// It holds no other state and is safe for concurrent use.
type Engine struct {
	defaults Defaults
}

// NewEngine builds an engine, falling back to StandardDefaults for any
// zero-valued field.
func NewEngine(d Defaults) Engine {
	std := StandardDefaults()
	if d.DurationMinutes <= 0 {
		d.DurationMinutes = std.DurationMinutes
	}
	if d.QuickDurationMinutes <= 0 {
		d.QuickDurationMinutes = std.QuickDurationMinutes
	}
	if len(d.CommonTimes) == 0 {
		d.CommonTimes = std.CommonTimes
	}
	return Engine{defaults: d}
}

// Defaults returns the engine's resolved defaults.
func (e Engine) Defaults() Defaults {
	return e.defaults
}

// DateOf truncates a timestamp to its calendar date in UTC.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether two timestamps fall on the same calendar date.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// interval derives the job's occupied window, if it has one. Jobs without
// a start time occupy no interval; zero or negative durations are coerced
// to the default so one malformed record cannot break a day's math.
func (e Engine) interval(j Job) (Interval, bool) {
	if j.Start == nil {
		return Interval{}, false
	}
	dur := j.DurationMinutes
	if dur <= 0 {
		dur = e.defaults.DurationMinutes
	}
	return Interval{
		Date:  DateOf(j.Date),
		Start: *j.Start,
		End:   j.Start.Add(dur),
	}, true
}

// JobsOn filters a job list down to one calendar date. Untimed jobs are
// included: they count toward the day's totals even though they take part
// in no overlap math.
func JobsOn(jobs []Job, date time.Time) []Job {
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if SameDay(j.Date, date) {
			out = append(out, j)
		}
	}
	return out
}
