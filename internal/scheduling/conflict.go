/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import "time"

// ConflictPair is an unordered pair of job ids whose intervals overlap on
// the same date. Pairs are computed fresh on every query and never stored.
type ConflictPair struct {
	A string `json:"a"`
	B string `json:"b"`
}

// Candidate is a proposed placement being tested against existing jobs.
type Candidate struct {
	Date            time.Time
	Start           ClockTime
	DurationMinutes int
}

// Overlaps reports whether two jobs occupy overlapping windows on the same
// date. Both must have a determinate start time; the comparison is strict,
// so intervals that merely touch at an endpoint do not conflict.
func (e Engine) Overlaps(a, b Job) bool {
	ia, ok := e.interval(a)
	if !ok {
		return false
	}
	ib, ok := e.interval(b)
	if !ok {
		return false
	}
	if !SameDay(ia.Date, ib.Date) {
		return false
	}
	return ia.Start < ib.End && ib.Start < ia.End
}

// FindConflicts examines every unordered pair of the given jobs once and
// returns all overlapping pairs. Pair order follows the input enumeration
// order, so a fixed input list always yields an identical result.
// O(n^2), which is fine for daily job counts in the tens.
func (e Engine) FindConflicts(jobs []Job) []ConflictPair {
	var pairs []ConflictPair
	for i := 0; i < len(jobs); i++ {
		for j := i + 1; j < len(jobs); j++ {
			if e.Overlaps(jobs[i], jobs[j]) {
				pairs = append(pairs, ConflictPair{A: jobs[i].ID, B: jobs[j].ID})
			}
		}
	}
	return pairs
}

// ConflictingJobs returns the ids of every job whose interval the candidate
// would overlap. excludeID skips the job being moved so a reschedule never
// conflicts with itself.
func (e Engine) ConflictingJobs(c Candidate, jobs []Job, excludeID string) []string {
	dur := c.DurationMinutes
	if dur <= 0 {
		dur = e.defaults.DurationMinutes
	}
	start := c.Start
	probe := Job{ID: "", Date: c.Date, Start: &start, DurationMinutes: dur}

	var ids []string
	for _, j := range jobs {
		if excludeID != "" && j.ID == excludeID {
			continue
		}
		if e.Overlaps(probe, j) {
			ids = append(ids, j.ID)
		}
	}
	return ids
}

// WouldConflict reports whether placing the candidate would overlap any
// existing job on that date, excluding the job identified by excludeID.
func (e Engine) WouldConflict(c Candidate, jobs []Job, excludeID string) bool {
	return len(e.ConflictingJobs(c, jobs, excludeID)) > 0
}
