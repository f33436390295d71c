/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/api"
	"github.com/freshnest/freshnest/internal/cache"
	"github.com/freshnest/freshnest/internal/calendar"
	"github.com/freshnest/freshnest/internal/config"
	"github.com/freshnest/freshnest/internal/db"
	"github.com/freshnest/freshnest/internal/eventbus"
	"github.com/freshnest/freshnest/internal/events"
	"github.com/freshnest/freshnest/internal/scheduler"
	"github.com/freshnest/freshnest/internal/scheduling"
	"github.com/freshnest/freshnest/internal/telemetry"
)

// Server bundles the HTTP API and supporting services.
type Server struct {
	cfg           *config.Config
	logger        zerolog.Logger
	router        chi.Router
	httpServer    *http.Server
	metricsServer *http.Server
	closers       []func() error

	db        *gorm.DB
	cache     *cache.Cache
	bus       *events.Bus
	bridge    *eventbus.NATSBridge
	scheduler *scheduler.Service
	exporter  *calendar.ExportService
	api       *api.API

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("freshnest-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		bus:    events.NewBus(),
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	// Redis cache is optional; an empty address keeps everything on the DB.
	if s.cfg.RedisAddr != "" {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		dayCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = dayCache
			s.DeferClose(func() error { return s.cache.Close() })
		}
	}

	// Without NATS, events stay on the in-process bus.
	var publisher scheduler.Publisher = s.bus
	if s.cfg.NATSURL != "" {
		natsCfg := eventbus.DefaultNATSConfig()
		natsCfg.URL = s.cfg.NATSURL
		bridge, err := eventbus.NewNATSBridge(natsCfg, s.bus, s.logger)
		if err != nil {
			return fmt.Errorf("connect NATS event bridge: %w", err)
		}
		s.bridge = bridge
		s.DeferClose(func() error { return s.bridge.Close() })
		publisher = bridge
	}

	engine, hours, err := schedulingFromConfig(s.cfg.Business)
	if err != nil {
		return err
	}

	s.scheduler = scheduler.New(database, engine, hours, s.cfg.Business.SlotMaxResults,
		s.cfg.MaterializeLookahead, s.cfg.MaterializeInterval, s.logger)
	s.scheduler.SetPublisher(publisher)

	s.exporter = calendar.NewExportService(database, s.logger)

	s.api = api.New(database, []byte(s.cfg.JWTSigningKey), s.scheduler, s.exporter, s.logger)
	s.api.SetPublisher(publisher)

	if s.cache != nil {
		s.scheduler.SetCache(s.cache)
		s.api.SetCache(s.cache)
	}

	return nil
}

// schedulingFromConfig builds the conflict engine and working hours from
// the business settings.
func schedulingFromConfig(b config.Business) (scheduling.Engine, scheduling.WorkingHours, error) {
	start, ok := scheduling.ParseClock(b.WorkingHoursStart)
	if !ok {
		return scheduling.Engine{}, scheduling.WorkingHours{}, fmt.Errorf("invalid working hours start %q", b.WorkingHoursStart)
	}
	end, ok := scheduling.ParseClock(b.WorkingHoursEnd)
	if !ok {
		return scheduling.Engine{}, scheduling.WorkingHours{}, fmt.Errorf("invalid working hours end %q", b.WorkingHoursEnd)
	}
	if start >= end {
		return scheduling.Engine{}, scheduling.WorkingHours{}, fmt.Errorf("working hours start %s must precede end %s", start, end)
	}

	common := make([]scheduling.ClockTime, 0, len(b.CommonTimes))
	for _, raw := range b.CommonTimes {
		t, ok := scheduling.ParseClock(raw)
		if !ok {
			return scheduling.Engine{}, scheduling.WorkingHours{}, fmt.Errorf("invalid common time %q", raw)
		}
		common = append(common, t)
	}

	engine := scheduling.NewEngine(scheduling.Defaults{
		DurationMinutes:      b.DefaultDuration,
		QuickDurationMinutes: b.QuickDuration,
		CommonTimes:          common,
	})
	return engine, scheduling.WorkingHours{Start: start, End: end}, nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()

	if s.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.metricsServer.Shutdown(ctx); err != nil {
			s.logger.Error().Err(err).Msg("metrics server shutdown error")
		}
		cancel()
	}

	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		if err := s.scheduler.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error().Err(err).Msg("materializer loop exited")
		}
	}()

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.runCacheInvalidationListener(ctx)
		}()
	}
}

// runCacheInvalidationListener invalidates caches on schedule change
// events. Local handlers invalidate inline already; this covers events
// replayed from other nodes through the NATS bridge.
func (s *Server) runCacheInvalidationListener(ctx context.Context) {
	jobCreated := s.bus.Subscribe(events.EventJobCreated)
	jobUpdated := s.bus.Subscribe(events.EventJobUpdated)
	jobDeleted := s.bus.Subscribe(events.EventJobDeleted)
	jobMoved := s.bus.Subscribe(events.EventJobMoved)
	clientCreated := s.bus.Subscribe(events.EventClientCreated)
	clientUpdated := s.bus.Subscribe(events.EventClientUpdated)
	clientDeleted := s.bus.Subscribe(events.EventClientDeleted)

	defer func() {
		s.bus.Unsubscribe(events.EventJobCreated, jobCreated)
		s.bus.Unsubscribe(events.EventJobUpdated, jobUpdated)
		s.bus.Unsubscribe(events.EventJobDeleted, jobDeleted)
		s.bus.Unsubscribe(events.EventJobMoved, jobMoved)
		s.bus.Unsubscribe(events.EventClientCreated, clientCreated)
		s.bus.Unsubscribe(events.EventClientUpdated, clientUpdated)
		s.bus.Unsubscribe(events.EventClientDeleted, clientDeleted)
	}()

	s.logger.Info().Msg("cache invalidation listener started")

	invalidateDays := func() {
		if err := s.cache.InvalidateAllDays(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("failed to invalidate day caches")
		}
	}
	invalidateClients := func() {
		if err := s.cache.InvalidateClientList(ctx); err != nil {
			s.logger.Debug().Err(err).Msg("failed to invalidate client list cache")
		}
	}

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("cache invalidation listener stopped")
			return
		case <-jobCreated:
			invalidateDays()
		case <-jobUpdated:
			invalidateDays()
		case <-jobDeleted:
			invalidateDays()
		case <-jobMoved:
			invalidateDays()
		case <-clientCreated:
			invalidateClients()
		case <-clientUpdated:
			invalidateClients()
		case <-clientDeleted:
			invalidateClients()
		}
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

func (s *Server) configureRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Metrics are served on a separate private bind when configured,
	// otherwise on the main listener.
	if s.cfg.MetricsBind != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", telemetry.Handler())
		s.metricsServer = &http.Server{
			Addr:              s.cfg.MetricsBind,
			Handler:           mux,
			ReadHeaderTimeout: 15 * time.Second,
		}
		go func() {
			s.logger.Info().Str("addr", s.cfg.MetricsBind).Msg("metrics server listening")
			if err := s.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.logger.Error().Err(err).Msg("metrics server error")
			}
		}()
	} else {
		s.router.Handle("/metrics", telemetry.Handler())
	}

	s.api.Routes(s.router)
}
