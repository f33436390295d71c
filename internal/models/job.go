/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package models

import (
	"time"

	"github.com/freshnest/freshnest/internal/scheduling"
)

// JobStatus defines the lifecycle state of a job.
type JobStatus string

const (
	JobScheduled JobStatus = "scheduled"
	JobCompleted JobStatus = "completed"
	JobCancelled JobStatus = "cancelled"
)

// Job is one scheduled cleaning visit. For recurring series the template
// row carries the recurrence fields and each materialized occurrence is a
// plain Job pointing back at the template through RecurrenceParentID.
type Job struct {
	ID                 string  `gorm:"type:uuid;primaryKey" json:"id"`
	ClientID           string  `gorm:"type:uuid;index:idx_jobs_client;not null" json:"client_id"`
	AssignedEmployeeID *string `gorm:"type:uuid;index:idx_jobs_employee" json:"assigned_employee_id,omitempty"`
	ServiceType        string  `gorm:"type:varchar(64)" json:"service_type,omitempty"` // e.g. "standard", "deep", "move_out"
	Address            string  `gorm:"type:text" json:"address,omitempty"`             // overrides the client address when set
	Notes              string  `gorm:"type:text" json:"notes,omitempty"`
	Price              float64 `gorm:"default:0" json:"price,omitempty"`

	ScheduledDate            time.Time `gorm:"type:date;index:idx_jobs_date;not null" json:"scheduled_date"`
	ScheduledTime            string    `gorm:"type:varchar(8)" json:"scheduled_time,omitempty"` // "HH:MM", empty = untimed
	EstimatedDurationMinutes int       `gorm:"default:0" json:"estimated_duration_minutes,omitempty"`

	Status JobStatus `gorm:"type:varchar(32);not null;default:'scheduled';index" json:"status"`

	// Recurrence definition (template rows only)
	IsRecurring      bool       `gorm:"not null;default:false;index" json:"is_recurring"`
	Frequency        string     `gorm:"type:varchar(32)" json:"frequency,omitempty"` // weekly|biweekly|monthly|quarterly|custom
	DaysOfWeek       []int      `gorm:"type:jsonb;serializer:json" json:"days_of_week,omitempty"` // 0=Sunday .. 6=Saturday
	DayOfMonth       int        `gorm:"default:0" json:"day_of_month,omitempty"`
	IntervalWeeks    int        `gorm:"default:0" json:"interval_weeks,omitempty"`
	RecurrenceEnd    string     `gorm:"type:varchar(16)" json:"recurrence_end,omitempty"` // never|until|count
	RecurrenceUntil  *time.Time `gorm:"type:date" json:"recurrence_until,omitempty"`
	RecurrenceCount  int        `gorm:"default:0" json:"recurrence_count,omitempty"`
	RRule            string     `gorm:"type:text" json:"rrule,omitempty"` // optional raw RRULE for advanced patterns
	RecurrenceParentID *string  `gorm:"type:uuid;index:idx_jobs_recurrence_parent" json:"recurrence_parent_id,omitempty"`

	// Relationships
	Client           *Client   `gorm:"foreignKey:ClientID" json:"client,omitempty"`
	AssignedEmployee *Employee `gorm:"foreignKey:AssignedEmployeeID" json:"assigned_employee,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for GORM.
func (Job) TableName() string {
	return "jobs"
}

// IsTemplate reports whether this row defines a recurring series rather
// than a single visit.
func (j *Job) IsTemplate() bool {
	return j.IsRecurring && j.RecurrenceParentID == nil
}

// ScheduleView maps the stored record into the shape the scheduling engine
// consumes. An unparseable time is treated as untimed, per the engine's
// best-effort policy.
func (j *Job) ScheduleView() scheduling.Job {
	view := scheduling.Job{
		ID:              j.ID,
		Date:            j.ScheduledDate,
		DurationMinutes: j.EstimatedDurationMinutes,
	}
	if j.ScheduledTime != "" {
		if t, ok := scheduling.ParseClock(j.ScheduledTime); ok {
			view.Start = &t
		}
	}
	return view
}

// RecurrencePattern assembles the engine pattern from the stored fields.
// The two legacy end fields collapse into one tagged condition; an unset
// end kind means the series never ends.
func (j *Job) RecurrencePattern() scheduling.Pattern {
	days := make([]time.Weekday, 0, len(j.DaysOfWeek))
	for _, d := range j.DaysOfWeek {
		days = append(days, time.Weekday(d))
	}

	end := scheduling.Never()
	switch j.RecurrenceEnd {
	case string(scheduling.EndUntil):
		if j.RecurrenceUntil != nil {
			end = scheduling.UntilDate(*j.RecurrenceUntil)
		}
	case string(scheduling.EndCount):
		end = scheduling.AfterCount(j.RecurrenceCount)
	}

	return scheduling.Pattern{
		Frequency:     scheduling.Frequency(j.Frequency),
		DaysOfWeek:    days,
		DayOfMonth:    j.DayOfMonth,
		IntervalWeeks: j.IntervalWeeks,
		End:           end,
	}
}
