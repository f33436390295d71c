/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for frequently
// accessed schedule data.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/freshnest/freshnest/internal/telemetry"
)

// Default TTL values for different cache types
const (
	DefaultDayScheduleTTL = 5 * time.Minute
	DefaultClientListTTL  = 15 * time.Minute
)

// Key prefixes for Redis cache
const (
	KeyDaySchedule = "freshnest:cache:day:" // + YYYY-MM-DD
	KeyClientList  = "freshnest:cache:clients"
)

// Config contains cache configuration.
type Config struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// TTL overrides
	DayScheduleTTL time.Duration
	ClientListTTL  time.Duration

	// Fallback behavior
	DisableOnError bool // If true, disable caching on Redis errors
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		DayScheduleTTL: DefaultDayScheduleTTL,
		ClientListTTL:  DefaultClientListTTL,
		DisableOnError: true,
	}
}

// Cache provides Redis-backed caching with graceful fallback.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
}

// New creates a new cache instance. A missing or unreachable Redis is
// not fatal: the cache starts disabled and every lookup is a miss.
func New(cfg Config, logger zerolog.Logger) (*Cache, error) {
	if cfg.DayScheduleTTL == 0 {
		cfg.DayScheduleTTL = DefaultDayScheduleTTL
	}
	if cfg.ClientListTTL == 0 {
		cfg.ClientListTTL = DefaultClientListTTL
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn().Err(err).Msg("Redis cache unavailable, running without caching")
		return &Cache{
			logger:   logger.With().Str("component", "cache").Logger(),
			config:   cfg,
			disabled: true,
		}, nil
	}

	logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")

	return &Cache{
		client: client,
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
	}, nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if the cache is operational.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || err == redis.Nil {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling cache due to Redis error")
	}
}

// get retrieves a value from cache and unmarshals it.
func (c *Cache) get(ctx context.Context, key string, dest any) (bool, error) {
	if !c.IsAvailable() {
		return false, nil
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		c.handleError(err, "get")
		return false, err
	}

	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false, nil
	}

	return true, nil
}

// set stores a value in cache with TTL.
func (c *Cache) set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if !c.IsAvailable() {
		return nil
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if err := c.client.Set(ctx, key, data, ttl).Err(); err != nil {
		c.handleError(err, "set")
		return err
	}

	return nil
}

// delete removes a key from cache.
func (c *Cache) delete(ctx context.Context, key string) error {
	if !c.IsAvailable() {
		return nil
	}

	if err := c.client.Del(ctx, key).Err(); err != nil {
		c.handleError(err, "delete")
		return err
	}

	return nil
}

// deletePattern deletes all keys matching a pattern using SCAN.
func (c *Cache) deletePattern(ctx context.Context, pattern string) error {
	if !c.IsAvailable() {
		return nil
	}

	var cursor uint64
	for {
		keys, nextCursor, err := c.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			c.handleError(err, "scan")
			return err
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				c.handleError(err, "delete_batch")
				return err
			}
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return nil
}

// Day schedule caching

// CachedJob is the schedule view of a job stored per day.
type CachedJob struct {
	ID              string  `json:"id"`
	ClientID        string  `json:"client_id"`
	ServiceType     string  `json:"service_type"`
	ScheduledTime   string  `json:"scheduled_time"` // "HH:MM", empty if untimed
	DurationMinutes int     `json:"duration_minutes"`
	Status          string  `json:"status"`
	AssignedTo      *string `json:"assigned_to,omitempty"`
}

func dayKey(date time.Time) string {
	return KeyDaySchedule + date.Format("2006-01-02")
}

// GetDaySchedule retrieves the cached jobs for a date.
func (c *Cache) GetDaySchedule(ctx context.Context, date time.Time) ([]CachedJob, bool) {
	var jobs []CachedJob
	found, err := c.get(ctx, dayKey(date), &jobs)
	if err != nil || !found {
		telemetry.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	telemetry.CacheRequests.WithLabelValues("hit").Inc()
	c.logger.Debug().Str("date", date.Format("2006-01-02")).Int("count", len(jobs)).Msg("day schedule cache hit")
	return jobs, true
}

// SetDaySchedule caches the jobs for a date.
func (c *Cache) SetDaySchedule(ctx context.Context, date time.Time, jobs []CachedJob) error {
	c.logger.Debug().Str("date", date.Format("2006-01-02")).Int("count", len(jobs)).Msg("caching day schedule")
	return c.set(ctx, dayKey(date), jobs, c.config.DayScheduleTTL)
}

// InvalidateDay removes the cached schedule for a date.
func (c *Cache) InvalidateDay(ctx context.Context, date time.Time) error {
	c.logger.Debug().Str("date", date.Format("2006-01-02")).Msg("invalidating day schedule cache")
	return c.delete(ctx, dayKey(date))
}

// InvalidateAllDays removes every cached day schedule. Used after bulk
// writes such as a materializer run.
func (c *Cache) InvalidateAllDays(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating all day schedule caches")
	return c.deletePattern(ctx, KeyDaySchedule+"*")
}

// Client list caching

// CachedClient represents a cached client record.
type CachedClient struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Active  bool   `json:"active"`
}

// GetClientList retrieves the cached list of clients.
func (c *Cache) GetClientList(ctx context.Context) ([]CachedClient, bool) {
	var clients []CachedClient
	found, err := c.get(ctx, KeyClientList, &clients)
	if err != nil || !found {
		telemetry.CacheRequests.WithLabelValues("miss").Inc()
		return nil, false
	}
	telemetry.CacheRequests.WithLabelValues("hit").Inc()
	c.logger.Debug().Int("count", len(clients)).Msg("client list cache hit")
	return clients, true
}

// SetClientList caches the list of clients.
func (c *Cache) SetClientList(ctx context.Context, clients []CachedClient) error {
	c.logger.Debug().Int("count", len(clients)).Msg("caching client list")
	return c.set(ctx, KeyClientList, clients, c.config.ClientListTTL)
}

// InvalidateClientList removes the client list from cache.
func (c *Cache) InvalidateClientList(ctx context.Context) error {
	c.logger.Debug().Msg("invalidating client list cache")
	return c.delete(ctx, KeyClientList)
}

// FlushAll removes all cached data (use sparingly).
func (c *Cache) FlushAll(ctx context.Context) error {
	c.logger.Warn().Msg("flushing all cache data")
	return c.deletePattern(ctx, "freshnest:cache:*")
}
