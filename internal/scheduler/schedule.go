/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/cache"
	"github.com/freshnest/freshnest/internal/events"
	"github.com/freshnest/freshnest/internal/models"
	"github.com/freshnest/freshnest/internal/scheduling"
	"github.com/freshnest/freshnest/internal/telemetry"
)

// ErrJobNotFound is returned when a job ID does not resolve.
var ErrJobNotFound = errors.New("job not found")

// dayViews returns the engine views of every scheduled job on a date,
// using the cache when available. Templates never appear here; only
// concrete visits count toward conflicts.
func (s *Service) dayViews(ctx context.Context, date time.Time) ([]scheduling.Job, error) {
	date = scheduling.DateOf(date)

	if s.cache != nil {
		if cached, ok := s.cache.GetDaySchedule(ctx, date); ok {
			views := make([]scheduling.Job, 0, len(cached))
			for _, job := range cached {
				view := scheduling.Job{
					ID:              job.ID,
					Date:            date,
					DurationMinutes: job.DurationMinutes,
				}
				if t, ok := scheduling.ParseClock(job.ScheduledTime); ok {
					view.Start = &t
				}
				views = append(views, view)
			}
			return views, nil
		}
	}

	jobs, err := s.jobsOn(ctx, date)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		cached := make([]cache.CachedJob, 0, len(jobs))
		for i := range jobs {
			job := &jobs[i]
			cached = append(cached, cache.CachedJob{
				ID:              job.ID,
				ClientID:        job.ClientID,
				ServiceType:     job.ServiceType,
				ScheduledTime:   job.ScheduledTime,
				DurationMinutes: job.EstimatedDurationMinutes,
				Status:          string(job.Status),
				AssignedTo:      job.AssignedEmployeeID,
			})
		}
		if err := s.cache.SetDaySchedule(ctx, date, cached); err != nil {
			s.logger.Debug().Err(err).Msg("failed to cache day schedule")
		}
	}

	views := make([]scheduling.Job, 0, len(jobs))
	for i := range jobs {
		views = append(views, jobs[i].ScheduleView())
	}
	return views, nil
}

func (s *Service) jobsOn(ctx context.Context, date time.Time) ([]models.Job, error) {
	var jobs []models.Job
	err := s.db.WithContext(ctx).
		Where("scheduled_date = ?", scheduling.DateOf(date)).
		Where("status = ?", models.JobScheduled).
		Where("is_recurring = ? OR recurrence_parent_id IS NOT NULL", false).
		Order("scheduled_time ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("load jobs on %s: %w", date.Format("2006-01-02"), err)
	}
	return jobs, nil
}

// ConflictsOn reports every overlapping pair on a date.
func (s *Service) ConflictsOn(ctx context.Context, date time.Time) ([]scheduling.ConflictPair, error) {
	ctx, span := telemetry.StartSpan(ctx, "scheduler", "ConflictsOn")
	defer span.End()

	views, err := s.dayViews(ctx, date)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	pairs := s.engine.FindConflicts(views)
	if len(pairs) > 0 {
		telemetry.ConflictChecks.WithLabelValues("conflict").Inc()
	} else {
		telemetry.ConflictChecks.WithLabelValues("clear").Inc()
	}
	return pairs, nil
}

// CheckCandidate reports which jobs a prospective booking would collide
// with. The excludeID carve-out lets an edit ignore its own row.
func (s *Service) CheckCandidate(ctx context.Context, c scheduling.Candidate, excludeID string) ([]string, error) {
	views, err := s.dayViews(ctx, c.Date)
	if err != nil {
		return nil, err
	}

	ids := s.engine.ConflictingJobs(c, views, excludeID)
	if len(ids) > 0 {
		telemetry.ConflictChecks.WithLabelValues("conflict").Inc()
	} else {
		telemetry.ConflictChecks.WithLabelValues("clear").Inc()
	}
	return ids, nil
}

// SuggestSlots returns open start times on a date that fit the
// requested duration inside working hours.
func (s *Service) SuggestSlots(ctx context.Context, date time.Time, durationMinutes int) ([]scheduling.ClockTime, error) {
	start := time.Now()
	defer func() {
		telemetry.SlotQueryDuration.Observe(time.Since(start).Seconds())
	}()

	views, err := s.dayViews(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.engine.SuggestSlots(views, s.hours, durationMinutes, s.maxSlots), nil
}

// QuickSlots returns the conflict-free subset of the business's common
// start times for a date.
func (s *Service) QuickSlots(ctx context.Context, date time.Time) ([]scheduling.ClockTime, error) {
	start := time.Now()
	defer func() {
		telemetry.SlotQueryDuration.Observe(time.Since(start).Seconds())
	}()

	views, err := s.dayViews(ctx, date)
	if err != nil {
		return nil, err
	}
	return s.engine.SuggestCommonTimes(views, date, s.maxSlots), nil
}

// PlanMove evaluates rescheduling a job without committing it.
func (s *Service) PlanMove(ctx context.Context, jobID string, targetDate time.Time, targetTime *scheduling.ClockTime) (scheduling.MoveOutcome, *models.Job, error) {
	var job models.Job
	if err := s.db.WithContext(ctx).First(&job, "id = ?", jobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return scheduling.MoveOutcome{}, nil, ErrJobNotFound
		}
		return scheduling.MoveOutcome{}, nil, err
	}

	views, err := s.dayViews(ctx, targetDate)
	if err != nil {
		return scheduling.MoveOutcome{}, nil, err
	}

	outcome := s.engine.PlanMove(job.ScheduleView(), targetDate, targetTime, views)
	return outcome, &job, nil
}

// CommitMove reschedules a job. A conflicting target is only written
// when the caller has confirmed the double-booking; otherwise the
// outcome is returned untouched for the caller to surface.
func (s *Service) CommitMove(ctx context.Context, jobID string, targetDate time.Time, targetTime *scheduling.ClockTime, confirmed bool) (scheduling.MoveOutcome, *models.Job, error) {
	outcome, job, err := s.PlanMove(ctx, jobID, targetDate, targetTime)
	if err != nil {
		return outcome, nil, err
	}

	if !outcome.Clear() && !confirmed {
		s.publish(events.EventConflictFound, events.Payload{
			"job_id":      jobID,
			"date":        targetDate.Format("2006-01-02"),
			"conflicting": outcome.ConflictingJobIDs,
		})
		return outcome, job, nil
	}

	oldDate := scheduling.DateOf(job.ScheduledDate)
	newDate := scheduling.DateOf(targetDate)

	updates := map[string]any{
		"scheduled_date": newDate,
		"scheduled_time": "",
	}
	if targetTime != nil {
		updates["scheduled_time"] = targetTime.String()
	}

	if err := s.db.WithContext(ctx).Model(job).Updates(updates).Error; err != nil {
		return outcome, nil, fmt.Errorf("move job %s: %w", jobID, err)
	}
	job.ScheduledDate = newDate
	job.ScheduledTime = updates["scheduled_time"].(string)

	if s.cache != nil {
		for _, day := range []time.Time{oldDate, newDate} {
			if err := s.cache.InvalidateDay(ctx, day); err != nil {
				s.logger.Debug().Err(err).Msg("failed to invalidate day cache")
			}
		}
	}

	payload := events.Payload{
		"job_id":    jobID,
		"from_date": oldDate.Format("2006-01-02"),
		"to_date":   newDate.Format("2006-01-02"),
		"confirmed": confirmed,
	}
	if targetTime != nil {
		payload["to_time"] = targetTime.String()
	}
	s.publish(events.EventJobMoved, payload)

	s.logger.Info().
		Str("job_id", jobID).
		Str("to_date", newDate.Format("2006-01-02")).
		Bool("had_conflict", !outcome.Clear()).
		Msg("job rescheduled")

	return outcome, job, nil
}
