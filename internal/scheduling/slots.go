/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"sort"
	"time"
)

// SuggestSlots walks the day's timed jobs in start order and returns up to
// maxResults start times where a job of the requested length fits without
// touching any existing interval. Every returned slot lies entirely within
// working hours. Untimed jobs are skipped: they occupy no window.
func (e Engine) SuggestSlots(jobs []Job, hours WorkingHours, requestedMinutes, maxResults int) []ClockTime {
	if requestedMinutes <= 0 {
		requestedMinutes = e.defaults.DurationMinutes
	}
	if maxResults <= 0 {
		maxResults = 4
	}
	if hours.End <= hours.Start {
		return nil
	}

	type window struct{ start, end ClockTime }
	occupied := make([]window, 0, len(jobs))
	for _, j := range jobs {
		if iv, ok := e.interval(j); ok {
			occupied = append(occupied, window{iv.Start, iv.End})
		}
	}
	sort.Slice(occupied, func(i, j int) bool { return occupied[i].start < occupied[j].start })

	var slots []ClockTime
	cursor := hours.Start
	for _, w := range occupied {
		if len(slots) >= maxResults {
			return slots
		}
		if w.start >= hours.End {
			break
		}
		if gap := int(w.start - cursor); gap >= requestedMinutes && cursor.Add(requestedMinutes) <= hours.End {
			slots = append(slots, cursor)
		}
		if w.end > cursor {
			cursor = w.end
		}
	}
	if len(slots) < maxResults && int(hours.End-cursor) >= requestedMinutes {
		slots = append(slots, cursor)
	}
	return slots
}

// SuggestCommonTimes is the quick-default path: it checks the configured
// common start times against the day's jobs, assuming the quick-suggest
// duration, and returns the first maxResults that are conflict-free.
// It is a convenience for form defaults, not a replacement for SuggestSlots.
func (e Engine) SuggestCommonTimes(jobs []Job, date time.Time, maxResults int) []ClockTime {
	if maxResults <= 0 {
		maxResults = 4
	}

	var slots []ClockTime
	for _, t := range e.defaults.CommonTimes {
		if len(slots) >= maxResults {
			break
		}
		c := Candidate{Date: DateOf(date), Start: t, DurationMinutes: e.defaults.QuickDurationMinutes}
		if !e.WouldConflict(c, jobs, "") {
			slots = append(slots, t)
		}
	}
	return slots
}
