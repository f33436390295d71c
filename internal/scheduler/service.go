/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package scheduler orchestrates the persistent schedule: it expands
// recurring job templates into concrete rows ahead of time and answers
// conflict, slot and reschedule questions against the stored jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/cache"
	"github.com/freshnest/freshnest/internal/calendar"
	"github.com/freshnest/freshnest/internal/events"
	"github.com/freshnest/freshnest/internal/models"
	"github.com/freshnest/freshnest/internal/scheduling"
	"github.com/freshnest/freshnest/internal/telemetry"
)

// Publisher is the event sink the service notifies on schedule changes.
// Both the in-process bus and the NATS bridge satisfy it.
type Publisher interface {
	Publish(eventType events.EventType, payload events.Payload)
}

// Service orchestrates the rolling schedule.
type Service struct {
	db       *gorm.DB
	engine   scheduling.Engine
	hours    scheduling.WorkingHours
	maxSlots int
	cache    *cache.Cache
	bus      Publisher
	logger   zerolog.Logger

	lookahead time.Duration
	interval  time.Duration

	mu          sync.Mutex
	lastCleanup time.Time
}

// New constructs the scheduler service.
func New(db *gorm.DB, engine scheduling.Engine, hours scheduling.WorkingHours, maxSlots int, lookahead, interval time.Duration, logger zerolog.Logger) *Service {
	if lookahead <= 0 {
		lookahead = 90 * 24 * time.Hour
	}
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &Service{
		db:        db,
		engine:    engine,
		hours:     hours,
		maxSlots:  maxSlots,
		lookahead: lookahead,
		interval:  interval,
		logger:    logger.With().Str("component", "scheduler").Logger(),
	}
}

// Lookahead reports how far ahead recurring templates are expanded.
func (s *Service) Lookahead() time.Duration {
	return s.lookahead
}

// SetCache sets the cache instance for the scheduler.
func (s *Service) SetCache(c *cache.Cache) {
	s.cache = c
}

// SetPublisher sets the event sink for schedule change notifications.
func (s *Service) SetPublisher(p Publisher) {
	s.bus = p
}

// Run executes the materializer loop until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("materializer loop started")

	// Materialize once at startup so a fresh deployment has rows
	// before the first tick.
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("materializer loop stopped")
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Service) tick(ctx context.Context) {
	if _, err := s.MaterializeAll(ctx); err != nil {
		s.logger.Error().Err(err).Msg("materializer run failed")
		telemetry.MaterializerRuns.WithLabelValues("error").Inc()
		return
	}
	telemetry.MaterializerRuns.WithLabelValues("ok").Inc()

	s.maybeCleanupCancelled(ctx)
}

// MaterializeAll expands every active recurring template up to the
// lookahead horizon. Returns the number of job rows created.
func (s *Service) MaterializeAll(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "scheduler", "MaterializeAll")
	defer span.End()

	var templates []models.Job
	if err := s.db.WithContext(ctx).
		Where("is_recurring = ? AND recurrence_parent_id IS NULL", true).
		Where("status = ?", models.JobScheduled).
		Find(&templates).Error; err != nil {
		telemetry.RecordError(span, err)
		return 0, fmt.Errorf("load recurring templates: %w", err)
	}

	horizon := scheduling.DateOf(time.Now().UTC()).Add(s.lookahead)
	created := 0

	for i := range templates {
		n, err := s.MaterializeTemplate(ctx, &templates[i], horizon)
		if err != nil {
			s.logger.Warn().Err(err).Str("template", templates[i].ID).Msg("template materialization failed")
			continue
		}
		created += n
	}

	if created > 0 {
		s.logger.Info().Int("created", created).Int("templates", len(templates)).Msg("materialized recurring jobs")
		if s.cache != nil {
			if err := s.cache.InvalidateAllDays(ctx); err != nil {
				s.logger.Debug().Err(err).Msg("failed to invalidate day caches")
			}
		}
	}

	return created, nil
}

// MaterializeTemplate expands one template into occurrence rows up to
// horizon. Occurrences that already exist for a date are left alone, so
// the operation is idempotent and repeatable.
func (s *Service) MaterializeTemplate(ctx context.Context, tpl *models.Job, horizon time.Time) (int, error) {
	if !tpl.IsTemplate() {
		return 0, fmt.Errorf("job %s is not a recurring template", tpl.ID)
	}

	occurrences, err := s.occurrenceDates(tpl, horizon)
	if err != nil {
		return 0, err
	}
	if len(occurrences) == 0 {
		return 0, nil
	}

	var existing []models.Job
	if err := s.db.WithContext(ctx).
		Select("scheduled_date").
		Where("recurrence_parent_id = ?", tpl.ID).
		Find(&existing).Error; err != nil {
		return 0, fmt.Errorf("load existing occurrences: %w", err)
	}

	seen := make(map[string]struct{}, len(existing))
	for _, job := range existing {
		seen[job.ScheduledDate.Format("2006-01-02")] = struct{}{}
	}

	today := scheduling.DateOf(time.Now().UTC())
	created := 0

	for _, date := range occurrences {
		if date.Before(today) {
			continue
		}
		if _, ok := seen[date.Format("2006-01-02")]; ok {
			continue
		}

		occurrence := models.Job{
			ID:                       uuid.NewString(),
			ClientID:                 tpl.ClientID,
			AssignedEmployeeID:       tpl.AssignedEmployeeID,
			ServiceType:              tpl.ServiceType,
			Address:                  tpl.Address,
			Notes:                    tpl.Notes,
			Price:                    tpl.Price,
			ScheduledDate:            date,
			ScheduledTime:            tpl.ScheduledTime,
			EstimatedDurationMinutes: tpl.EstimatedDurationMinutes,
			Status:                   models.JobScheduled,
			IsRecurring:              true,
			RecurrenceParentID:       &tpl.ID,
		}

		if err := s.db.WithContext(ctx).Create(&occurrence).Error; err != nil {
			return created, fmt.Errorf("create occurrence on %s: %w", date.Format("2006-01-02"), err)
		}

		created++
		telemetry.MaterializedJobs.Inc()
		s.publish(events.EventJobMaterialized, events.Payload{
			"job_id":      occurrence.ID,
			"template_id": tpl.ID,
			"date":        date.Format("2006-01-02"),
		})
	}

	return created, nil
}

// occurrenceDates computes the series dates for a template up to
// horizon. A raw RRULE on the template takes the advanced path through
// the rrule library; everything else uses the structured pattern.
func (s *Service) occurrenceDates(tpl *models.Job, horizon time.Time) ([]time.Time, error) {
	anchor := scheduling.DateOf(tpl.ScheduledDate)

	if tpl.RRule != "" {
		rule, err := calendar.SeriesRule(anchor, tpl.RecurrencePattern(), tpl.RRule)
		if err != nil {
			return nil, err
		}
		raw := rule.Between(anchor, horizon, true)
		dates := make([]time.Time, 0, len(raw))
		for _, d := range raw {
			dates = append(dates, scheduling.DateOf(d))
		}
		return dates, nil
	}

	return scheduling.Expand(anchor, tpl.RecurrencePattern()).Within(horizon), nil
}

// maybeCleanupCancelled deletes cancelled occurrence rows older than 90
// days. Runs at most once per hour to avoid unnecessary DB churn.
func (s *Service) maybeCleanupCancelled(ctx context.Context) {
	s.mu.Lock()
	if time.Since(s.lastCleanup) < time.Hour {
		s.mu.Unlock()
		return
	}
	s.lastCleanup = time.Now()
	s.mu.Unlock()

	cutoff := time.Now().UTC().Add(-90 * 24 * time.Hour)
	result := s.db.WithContext(ctx).
		Where("scheduled_date < ? AND status = ? AND recurrence_parent_id IS NOT NULL", cutoff, models.JobCancelled).
		Delete(&models.Job{})
	if result.Error != nil {
		s.logger.Warn().Err(result.Error).Msg("failed to clean up cancelled occurrences")
		return
	}
	if result.RowsAffected > 0 {
		s.logger.Info().Int64("deleted", result.RowsAffected).Msg("cleaned up old cancelled occurrences")
	}
}

func (s *Service) publish(eventType events.EventType, payload events.Payload) {
	if s.bus != nil {
		s.bus.Publish(eventType, payload)
	}
}
