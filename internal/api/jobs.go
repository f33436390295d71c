/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/events"
	"github.com/freshnest/freshnest/internal/models"
	"github.com/freshnest/freshnest/internal/scheduler"
	"github.com/freshnest/freshnest/internal/scheduling"
)

type jobRequest struct {
	ClientID           string  `json:"client_id"`
	AssignedEmployeeID *string `json:"assigned_employee_id"`
	ServiceType        string  `json:"service_type"`
	Address            string  `json:"address"`
	Notes              string  `json:"notes"`
	Price              float64 `json:"price"`

	ScheduledDate            string `json:"scheduled_date"` // YYYY-MM-DD
	ScheduledTime            string `json:"scheduled_time"` // HH:MM, empty = untimed
	EstimatedDurationMinutes int    `json:"estimated_duration_minutes"`

	IsRecurring     bool   `json:"is_recurring"`
	Frequency       string `json:"frequency"`
	DaysOfWeek      []int  `json:"days_of_week"`
	DayOfMonth      int    `json:"day_of_month"`
	IntervalWeeks   int    `json:"interval_weeks"`
	RecurrenceEnd   string `json:"recurrence_end"`
	RecurrenceUntil string `json:"recurrence_until"` // YYYY-MM-DD
	RecurrenceCount int    `json:"recurrence_count"`
	RRule           string `json:"rrule"`
}

// jobResponse wraps a job with the advisory conflict list computed at
// write time.
type jobResponse struct {
	Job       *models.Job `json:"job"`
	Conflicts []string    `json:"conflicts,omitempty"`
}

func (a *API) handleJobsList(w http.ResponseWriter, r *http.Request) {
	q := a.db.WithContext(r.Context()).Preload("Client")

	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date")
			return
		}
		q = q.Where("scheduled_date = ?", date)
	} else {
		if raw := r.URL.Query().Get("from"); raw != "" {
			from, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_from")
				return
			}
			q = q.Where("scheduled_date >= ?", from)
		}
		if raw := r.URL.Query().Get("to"); raw != "" {
			to, err := time.Parse("2006-01-02", raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid_to")
				return
			}
			q = q.Where("scheduled_date < ?", to)
		}
	}

	if status := r.URL.Query().Get("status"); status != "" {
		q = q.Where("status = ?", status)
	}
	if clientID := r.URL.Query().Get("client_id"); clientID != "" {
		q = q.Where("client_id = ?", clientID)
	}
	// Templates are definitions, not visits; request them explicitly.
	if r.URL.Query().Get("templates") == "true" {
		q = q.Where("is_recurring = ? AND recurrence_parent_id IS NULL", true)
	} else {
		q = q.Where("is_recurring = ? OR recurrence_parent_id IS NOT NULL", false)
	}

	var jobs []models.Job
	if err := q.Order("scheduled_date ASC, scheduled_time ASC").Find(&jobs).Error; err != nil {
		a.logger.Error().Err(err).Msg("list jobs failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

func (a *API) handleJobsCreate(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.ClientID == "" {
		writeError(w, http.StatusBadRequest, "client_id_required")
		return
	}

	date, err := time.Parse("2006-01-02", req.ScheduledDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scheduled_date")
		return
	}

	job := models.Job{
		ID:                       uuid.NewString(),
		ClientID:                 req.ClientID,
		AssignedEmployeeID:       req.AssignedEmployeeID,
		ServiceType:              req.ServiceType,
		Address:                  req.Address,
		Notes:                    req.Notes,
		Price:                    req.Price,
		ScheduledDate:            date,
		ScheduledTime:            req.ScheduledTime,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		Status:                   models.JobScheduled,
		IsRecurring:              req.IsRecurring,
		Frequency:                req.Frequency,
		DaysOfWeek:               req.DaysOfWeek,
		DayOfMonth:               req.DayOfMonth,
		IntervalWeeks:            req.IntervalWeeks,
		RecurrenceEnd:            req.RecurrenceEnd,
		RecurrenceCount:          req.RecurrenceCount,
		RRule:                    req.RRule,
	}
	if req.RecurrenceUntil != "" {
		until, err := time.Parse("2006-01-02", req.RecurrenceUntil)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_recurrence_until")
			return
		}
		job.RecurrenceUntil = &until
	}

	// Advisory conflict check; a double-booking is allowed, but the
	// caller is told who it collides with.
	conflicts := a.candidateConflicts(r, &job, "")

	if err := a.db.WithContext(r.Context()).Create(&job).Error; err != nil {
		a.logger.Error().Err(err).Msg("create job failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	a.invalidateDay(r, date)
	a.publish(events.EventJobCreated, events.Payload{"job_id": job.ID, "client_id": job.ClientID})
	if len(conflicts) > 0 {
		a.publish(events.EventConflictFound, events.Payload{"job_id": job.ID, "conflicting": conflicts})
	}

	writeJSON(w, http.StatusCreated, jobResponse{Job: &job, Conflicts: conflicts})
}

func (a *API) handleJobsGet(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var job models.Job
	err := a.db.WithContext(r.Context()).Preload("Client").Preload("AssignedEmployee").First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "job_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, &job)
}

func (a *API) handleJobsUpdate(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var job models.Job
	err := a.db.WithContext(r.Context()).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "job_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	var req jobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	oldDate := job.ScheduledDate

	if req.ScheduledDate != "" {
		date, err := time.Parse("2006-01-02", req.ScheduledDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_scheduled_date")
			return
		}
		job.ScheduledDate = date
	}
	job.ScheduledTime = req.ScheduledTime
	if req.EstimatedDurationMinutes != 0 {
		job.EstimatedDurationMinutes = req.EstimatedDurationMinutes
	}
	if req.ServiceType != "" {
		job.ServiceType = req.ServiceType
	}
	job.Address = req.Address
	job.Notes = req.Notes
	if req.Price != 0 {
		job.Price = req.Price
	}
	if req.AssignedEmployeeID != nil {
		job.AssignedEmployeeID = req.AssignedEmployeeID
	}

	conflicts := a.candidateConflicts(r, &job, job.ID)

	if err := a.db.WithContext(r.Context()).Save(&job).Error; err != nil {
		a.logger.Error().Err(err).Msg("update job failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	a.invalidateDay(r, oldDate)
	a.invalidateDay(r, job.ScheduledDate)
	a.publish(events.EventJobUpdated, events.Payload{"job_id": job.ID})

	writeJSON(w, http.StatusOK, jobResponse{Job: &job, Conflicts: conflicts})
}

func (a *API) handleJobsDelete(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var job models.Job
	err := a.db.WithContext(r.Context()).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "job_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	if err := a.db.WithContext(r.Context()).Delete(&job).Error; err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	a.invalidateDay(r, job.ScheduledDate)
	payload := a.auditContext(r)
	payload["job_id"] = jobID
	a.publish(events.EventAuditJobDelete, payload)
	a.publish(events.EventJobDeleted, events.Payload{"job_id": jobID})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type moveRequest struct {
	Date    string `json:"date"` // YYYY-MM-DD
	Time    string `json:"time"` // HH:MM, empty = untimed
	Confirm bool   `json:"confirm"`
}

type moveResponse struct {
	Outcome   string      `json:"outcome"`
	Conflicts []string    `json:"conflicts,omitempty"`
	Job       *models.Job `json:"job,omitempty"`
}

func (a *API) handleJobMove(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var req moveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	var target *scheduling.ClockTime
	if req.Time != "" {
		t, ok := scheduling.ParseClock(req.Time)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid_time")
			return
		}
		target = &t
	}

	outcome, job, err := a.scheduler.CommitMove(r.Context(), jobID, date, target, req.Confirm)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		writeError(w, http.StatusNotFound, "job_not_found")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Str("job_id", jobID).Msg("move failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	resp := moveResponse{
		Outcome:   string(outcome.Kind),
		Conflicts: outcome.ConflictingJobIDs,
		Job:       job,
	}

	if !outcome.Clear() && !req.Confirm {
		// Nothing was written; the caller must resubmit with confirm.
		writeJSON(w, http.StatusConflict, resp)
		return
	}

	payload := a.auditContext(r)
	payload["job_id"] = jobID
	payload["to_date"] = req.Date
	a.publish(events.EventAuditJobMove, payload)

	writeJSON(w, http.StatusOK, resp)
}

// handleJobMaterialize expands one recurring template immediately
// instead of waiting for the next materializer tick.
func (a *API) handleJobMaterialize(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	var job models.Job
	err := a.db.WithContext(r.Context()).First(&job, "id = ?", jobID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "job_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if !job.IsTemplate() {
		writeError(w, http.StatusBadRequest, "not_a_recurring_template")
		return
	}

	horizon := scheduling.DateOf(time.Now().UTC()).Add(a.scheduler.Lookahead())
	created, err := a.scheduler.MaterializeTemplate(r.Context(), &job, horizon)
	if err != nil {
		a.logger.Error().Err(err).Str("job_id", jobID).Msg("materialize failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"created": created})
}

// candidateConflicts runs the advisory conflict check for a job write.
// Untimed or recurring-template rows never conflict.
func (a *API) candidateConflicts(r *http.Request, job *models.Job, excludeID string) []string {
	if job.ScheduledTime == "" || job.IsTemplate() {
		return nil
	}
	start, ok := scheduling.ParseClock(job.ScheduledTime)
	if !ok {
		return nil
	}

	ids, err := a.scheduler.CheckCandidate(r.Context(), scheduling.Candidate{
		Date:            job.ScheduledDate,
		Start:           start,
		DurationMinutes: job.EstimatedDurationMinutes,
	}, excludeID)
	if err != nil {
		a.logger.Warn().Err(err).Msg("conflict check failed")
		return nil
	}
	return ids
}

func (a *API) invalidateDay(r *http.Request, date time.Time) {
	if a.cache != nil {
		if err := a.cache.InvalidateDay(r.Context(), date); err != nil {
			a.logger.Debug().Err(err).Msg("failed to invalidate day cache")
		}
	}
}
