/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import (
	"testing"
	"time"
)

func hours(startH, endH int) WorkingHours {
	return WorkingHours{Start: ClockTime(startH * 60), End: ClockTime(endH * 60)}
}

func TestSuggestSlots(t *testing.T) {
	e := NewEngine(Defaults{})
	day := date(2024, time.June, 10)

	tests := []struct {
		name      string
		jobs      []Job
		hours     WorkingHours
		requested int
		max       int
		want      []string
	}{
		{
			name:      "exact gap before first job",
			jobs:      []Job{timedJob("a", day, 9, 0, 120)}, // 09:00-11:00
			hours:     hours(8, 18),
			requested: 60,
			max:       4,
			want:      []string{"08:00", "11:00"},
		},
		{
			name:      "empty day single slot at opening",
			jobs:      nil,
			hours:     hours(8, 18),
			requested: 60,
			max:       4,
			want:      []string{"08:00"},
		},
		{
			name: "gap too small is skipped",
			jobs: []Job{
				timedJob("a", day, 8, 30, 60),  // 08:30-09:30
				timedJob("b", day, 10, 0, 120), // 10:00-12:00
			},
			hours:     hours(8, 18),
			requested: 60,
			max:       4,
			want:      []string{"12:00"},
		},
		{
			name: "unsorted input is handled",
			jobs: []Job{
				timedJob("b", day, 14, 0, 60),
				timedJob("a", day, 9, 0, 60),
			},
			hours:     hours(8, 18),
			requested: 60,
			max:       4,
			want:      []string{"08:00", "10:00", "15:00"},
		},
		{
			name:      "max results caps output",
			jobs:      nil,
			hours:     hours(8, 18),
			requested: 60,
			max:       1,
			want:      []string{"08:00"},
		},
		{
			name:      "no room at end of day",
			jobs:      []Job{timedJob("a", day, 8, 0, 600)}, // 08:00-18:00
			hours:     hours(8, 18),
			requested: 60,
			max:       4,
			want:      nil,
		},
		{
			name:      "untimed jobs occupy nothing",
			jobs:      []Job{{ID: "a", Date: day}},
			hours:     hours(8, 10),
			requested: 120,
			max:       4,
			want:      []string{"08:00"},
		},
		{
			name:      "inverted working hours",
			jobs:      nil,
			hours:     WorkingHours{Start: ClockTime(18 * 60), End: ClockTime(8 * 60)},
			requested: 60,
			max:       4,
			want:      nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := e.SuggestSlots(tt.jobs, tt.hours, tt.requested, tt.max)
			if len(got) != len(tt.want) {
				t.Fatalf("SuggestSlots() = %v, want %v", got, tt.want)
			}
			for i, s := range got {
				if s.String() != tt.want[i] {
					t.Errorf("SuggestSlots()[%d] = %s, want %s", i, s, tt.want[i])
				}
			}
		})
	}
}

// Every suggested slot must be conflict-free and fit inside working hours.
func TestSuggestSlotsGuarantee(t *testing.T) {
	e := NewEngine(Defaults{})
	day := date(2024, time.June, 10)
	jobs := []Job{
		timedJob("a", day, 8, 30, 45),
		timedJob("b", day, 10, 0, 90),
		timedJob("c", day, 13, 15, 30),
		timedJob("d", day, 16, 0, 60),
	}
	wh := hours(8, 18)
	requested := 45

	for _, slot := range e.SuggestSlots(jobs, wh, requested, 10) {
		c := Candidate{Date: day, Start: slot, DurationMinutes: requested}
		if e.WouldConflict(c, jobs, "") {
			t.Errorf("slot %s conflicts with existing jobs", slot)
		}
		if slot < wh.Start || slot.Add(requested) > wh.End {
			t.Errorf("slot %s does not fit inside working hours", slot)
		}
	}
}

func TestSuggestCommonTimes(t *testing.T) {
	e := NewEngine(Defaults{})
	day := date(2024, time.June, 10)

	t.Run("empty day returns first candidates", func(t *testing.T) {
		got := e.SuggestCommonTimes(nil, day, 3)
		want := []string{"08:00", "09:00", "10:00"}
		if len(got) != len(want) {
			t.Fatalf("SuggestCommonTimes() = %v, want %v", got, want)
		}
		for i, s := range got {
			if s.String() != want[i] {
				t.Errorf("SuggestCommonTimes()[%d] = %s, want %s", i, s, want[i])
			}
		}
	})

	t.Run("skips times blocked by the assumed duration", func(t *testing.T) {
		// Job 09:00-12:00 blocks 2-hour candidates at 08:00 through 11:00.
		jobs := []Job{timedJob("a", day, 9, 0, 180)}
		got := e.SuggestCommonTimes(jobs, day, 2)
		want := []string{"12:00", "13:00"}
		if len(got) != len(want) {
			t.Fatalf("SuggestCommonTimes() = %v, want %v", got, want)
		}
		for i, s := range got {
			if s.String() != want[i] {
				t.Errorf("SuggestCommonTimes()[%d] = %s, want %s", i, s, want[i])
			}
		}
	})
}
