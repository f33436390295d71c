/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package api exposes the HTTP surface: auth, clients, employees, jobs
// and the schedule query endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/auth"
	"github.com/freshnest/freshnest/internal/cache"
	"github.com/freshnest/freshnest/internal/calendar"
	"github.com/freshnest/freshnest/internal/events"
	"github.com/freshnest/freshnest/internal/models"
	"github.com/freshnest/freshnest/internal/scheduler"
)

// API exposes HTTP handlers.
type API struct {
	db        *gorm.DB
	jwtSecret []byte
	scheduler *scheduler.Service
	exporter  *calendar.ExportService
	cache     *cache.Cache
	bus       scheduler.Publisher
	logger    zerolog.Logger
}

// New creates the API router wrapper.
func New(db *gorm.DB, jwtSecret []byte, sched *scheduler.Service, exporter *calendar.ExportService, logger zerolog.Logger) *API {
	return &API{
		db:        db,
		jwtSecret: jwtSecret,
		scheduler: sched,
		exporter:  exporter,
		logger:    logger.With().Str("component", "api").Logger(),
	}
}

// SetCache sets the cache instance used for read paths.
func (a *API) SetCache(c *cache.Cache) {
	a.cache = c
}

// SetPublisher sets the event sink for change notifications.
func (a *API) SetPublisher(p scheduler.Publisher) {
	a.bus = p
}

// Routes mounts all API routes.
func (a *API) Routes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", a.handleHealth)
		r.Post("/auth/login", a.handleLogin)

		r.Group(func(pr chi.Router) {
			pr.Use(auth.Middleware(a.jwtSecret))

			pr.Get("/auth/me", a.handleMe)

			pr.Route("/clients", func(r chi.Router) {
				r.Get("/", a.handleClientsList)
				r.With(requireManager).Post("/", a.handleClientsCreate)
				r.Route("/{clientID}", func(r chi.Router) {
					r.Get("/", a.handleClientsGet)
					r.With(requireManager).Put("/", a.handleClientsUpdate)
					r.With(requireManager).Delete("/", a.handleClientsDelete)
				})
			})

			pr.Route("/employees", func(r chi.Router) {
				r.With(requireManager).Get("/", a.handleEmployeesList)
				r.With(requireAdmin).Post("/", a.handleEmployeesCreate)
			})

			pr.Route("/jobs", func(r chi.Router) {
				r.Get("/", a.handleJobsList)
				r.Post("/", a.handleJobsCreate)
				r.Route("/{jobID}", func(r chi.Router) {
					r.Get("/", a.handleJobsGet)
					r.Put("/", a.handleJobsUpdate)
					r.With(requireManager).Delete("/", a.handleJobsDelete)
					r.Post("/move", a.handleJobMove)
					r.With(requireManager).Post("/materialize", a.handleJobMaterialize)
				})
			})

			pr.Route("/schedule", func(r chi.Router) {
				r.Get("/conflicts", a.handleScheduleConflicts)
				r.Get("/slots", a.handleScheduleSlots)
				r.Get("/quick-slots", a.handleScheduleQuickSlots)
				r.Get("/export.ics", a.handleScheduleExport)
			})
		})
	})
}

var (
	requireManager = auth.RequireRole(string(models.RoleAdmin), string(models.RoleManager))
	requireAdmin   = auth.RequireRole(string(models.RoleAdmin))
)

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// publish forwards to the configured event sink, if any.
func (a *API) publish(eventType events.EventType, payload events.Payload) {
	if a.bus != nil {
		a.bus.Publish(eventType, payload)
	}
}

// auditContext extracts user and request info for audit events.
func (a *API) auditContext(r *http.Request) events.Payload {
	payload := events.Payload{
		"ip_address": r.RemoteAddr,
		"user_agent": r.UserAgent(),
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		payload["user_id"] = claims.UserID
		payload["role"] = claims.Role
	}
	return payload
}

// parseDate reads a YYYY-MM-DD query parameter; empty falls back to today.
func parseDate(r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), true
	}
	d, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
