/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package calendar renders the schedule as iCalendar data so clients
// and cleaners can subscribe from their own calendar apps.
package calendar

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/models"
	"github.com/freshnest/freshnest/internal/scheduling"
)

// ExportService renders jobs to iCal.
type ExportService struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// NewExportService creates a new export service.
func NewExportService(db *gorm.DB, logger zerolog.Logger) *ExportService {
	return &ExportService{
		db:     db,
		logger: logger.With().Str("component", "calendar_export").Logger(),
	}
}

// ExportICalResult contains the iCal export data.
type ExportICalResult struct {
	Data        []byte
	Filename    string
	ContentType string
}

// ExportToICal exports the concrete schedule between start and end. When
// includeSeries is set, recurring templates are appended as RRULE events
// so subscribing calendars project the series past the export window.
func (s *ExportService) ExportToICal(ctx context.Context, start, end time.Time, includeSeries bool) (*ExportICalResult, error) {
	var jobs []models.Job
	if err := s.db.WithContext(ctx).
		Where("scheduled_date >= ? AND scheduled_date < ?", start, end).
		Where("status = ?", models.JobScheduled).
		Where("is_recurring = ? OR recurrence_parent_id IS NOT NULL", false).
		Preload("Client").
		Order("scheduled_date ASC, scheduled_time ASC").
		Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("fetch jobs: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("BEGIN:VCALENDAR\r\n")
	buf.WriteString("VERSION:2.0\r\n")
	buf.WriteString("PRODID:-//FreshNest//Schedule Export//EN\r\n")
	buf.WriteString("X-WR-CALNAME:FreshNest Schedule\r\n")
	buf.WriteString("CALSCALE:GREGORIAN\r\n")
	buf.WriteString("METHOD:PUBLISH\r\n")

	for i := range jobs {
		s.writeEvent(&buf, &jobs[i], "")
	}

	if includeSeries {
		var templates []models.Job
		if err := s.db.WithContext(ctx).
			Where("is_recurring = ? AND recurrence_parent_id IS NULL", true).
			Where("status = ?", models.JobScheduled).
			Preload("Client").
			Find(&templates).Error; err != nil {
			return nil, fmt.Errorf("fetch templates: %w", err)
		}

		for i := range templates {
			tpl := &templates[i]
			rule, err := SeriesRule(eventStart(tpl), tpl.RecurrencePattern(), tpl.RRule)
			if err != nil {
				s.logger.Warn().Err(err).Str("job_id", tpl.ID).Msg("skipping series with bad recurrence")
				continue
			}
			s.writeEvent(&buf, tpl, rule.String())
		}
	}

	buf.WriteString("END:VCALENDAR\r\n")

	filename := fmt.Sprintf("freshnest-schedule-%s-to-%s.ics",
		start.Format("2006-01-02"),
		end.Format("2006-01-02"))

	return &ExportICalResult{
		Data:        buf.Bytes(),
		Filename:    filename,
		ContentType: "text/calendar; charset=utf-8",
	}, nil
}

// writeEvent appends one VEVENT. A non-empty rruleLine marks a series
// template.
func (s *ExportService) writeEvent(buf *bytes.Buffer, job *models.Job, rruleLine string) {
	startsAt := eventStart(job)
	duration := job.EstimatedDurationMinutes
	if duration <= 0 {
		duration = scheduling.StandardDefaults().DurationMinutes
	}
	endsAt := startsAt.Add(time.Duration(duration) * time.Minute)

	buf.WriteString("BEGIN:VEVENT\r\n")
	buf.WriteString(fmt.Sprintf("UID:%s@freshnest\r\n", job.ID))
	buf.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", formatICalTime(time.Now())))

	if job.ScheduledTime == "" {
		// Untimed visits become all-day events.
		buf.WriteString(fmt.Sprintf("DTSTART;VALUE=DATE:%s\r\n", job.ScheduledDate.Format("20060102")))
	} else {
		buf.WriteString(fmt.Sprintf("DTSTART:%s\r\n", formatICalTime(startsAt)))
		buf.WriteString(fmt.Sprintf("DTEND:%s\r\n", formatICalTime(endsAt)))
	}

	if rruleLine != "" {
		buf.WriteString(fmt.Sprintf("RRULE:%s\r\n", rruleLine))
	}

	buf.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICalText(eventSummary(job))))

	if location := eventLocation(job); location != "" {
		buf.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICalText(location)))
	}
	if job.Notes != "" {
		buf.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICalText(job.Notes)))
	}

	buf.WriteString("END:VEVENT\r\n")
}

func eventStart(job *models.Job) time.Time {
	day := job.ScheduledDate
	if t, ok := scheduling.ParseClock(job.ScheduledTime); ok {
		return time.Date(day.Year(), day.Month(), day.Day(), int(t)/60, int(t)%60, 0, 0, time.UTC)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func eventSummary(job *models.Job) string {
	service := job.ServiceType
	if service == "" {
		service = "Cleaning"
	}
	if job.Client != nil && job.Client.Name != "" {
		return fmt.Sprintf("%s - %s", service, job.Client.Name)
	}
	return service
}

func eventLocation(job *models.Job) string {
	if job.Address != "" {
		return job.Address
	}
	if job.Client != nil {
		return job.Client.Address
	}
	return ""
}

func formatICalTime(t time.Time) string {
	return t.UTC().Format("20060102T150405Z")
}

func escapeICalText(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, ";", "\\;")
	s = strings.ReplaceAll(s, ",", "\\,")
	s = strings.ReplaceAll(s, "\n", "\\n")
	return s
}
