/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduling

import "time"

// MoveOutcomeKind classifies the result of planning a move.
type MoveOutcomeKind string

const (
	// MoveClear means the move may proceed silently.
	MoveClear MoveOutcomeKind = "clear"
	// MoveNeedsConfirmation means the move overlaps existing jobs and the
	// caller must obtain explicit user confirmation before committing.
	MoveNeedsConfirmation MoveOutcomeKind = "conflict_requires_confirmation"
)

// MoveOutcome is the engine's verdict on a proposed move. The engine never
// commits anything: the caller performs the job store write after a Clear
// outcome or a confirmed conflict, and leaves the job untouched when the
// user declines.
type MoveOutcome struct {
	Kind              MoveOutcomeKind `json:"kind"`
	ConflictingJobIDs []string        `json:"conflicting_job_ids,omitempty"`
}

// Clear reports whether the move needs no confirmation.
func (o MoveOutcome) Clear() bool { return o.Kind == MoveClear }

// PlanMove evaluates dropping a job onto a new date and optional time
// against the jobs already on the target date. A move with no target time
// is always clear: an untimed job occupies no interval and cannot conflict.
func (e Engine) PlanMove(job Job, targetDate time.Time, targetTime *ClockTime, jobsOnTarget []Job) MoveOutcome {
	if targetTime == nil {
		return MoveOutcome{Kind: MoveClear}
	}

	c := Candidate{
		Date:            DateOf(targetDate),
		Start:           *targetTime,
		DurationMinutes: job.DurationMinutes,
	}
	ids := e.ConflictingJobs(c, jobsOnTarget, job.ID)
	if len(ids) == 0 {
		return MoveOutcome{Kind: MoveClear}
	}
	return MoveOutcome{Kind: MoveNeedsConfirmation, ConflictingJobIDs: ids}
}
