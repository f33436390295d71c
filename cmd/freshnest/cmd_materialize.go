/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/freshnest/freshnest/internal/db"
	"github.com/freshnest/freshnest/internal/scheduler"
	"github.com/freshnest/freshnest/internal/scheduling"
)

// Materialize flags
var (
	materializeLookaheadDays int
)

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Expand recurring visit templates into concrete jobs",
	Long: `Runs one materializer pass: every active recurring template is expanded
into concrete job rows up to the lookahead horizon, then the process
exits. The serve command runs the same pass periodically; this command
exists for cron-style deployments and for pre-seeding a fresh database.

Already-materialized dates are skipped, so the command is safe to run
repeatedly.

Examples:
  freshnest materialize
  freshnest materialize --lookahead-days 30`,
	RunE: runMaterialize,
}

func init() {
	rootCmd.AddCommand(materializeCmd)

	materializeCmd.Flags().IntVar(&materializeLookaheadDays, "lookahead-days", 0, "Horizon in days (default: FRESHNEST_MATERIALIZE_LOOKAHEAD_DAYS)")
}

func runMaterialize(cmd *cobra.Command, args []string) error {
	if err := loadConfig(); err != nil {
		return err
	}

	database, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close(database)

	if err := db.Migrate(database); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	lookahead := cfg.MaterializeLookahead
	if materializeLookaheadDays > 0 {
		lookahead = time.Duration(materializeLookaheadDays) * 24 * time.Hour
	}

	start, ok := scheduling.ParseClock(cfg.Business.WorkingHoursStart)
	if !ok {
		return fmt.Errorf("invalid working hours start %q", cfg.Business.WorkingHoursStart)
	}
	end, ok := scheduling.ParseClock(cfg.Business.WorkingHoursEnd)
	if !ok {
		return fmt.Errorf("invalid working hours end %q", cfg.Business.WorkingHoursEnd)
	}

	svc := scheduler.New(database, scheduling.NewEngine(scheduling.Defaults{}),
		scheduling.WorkingHours{Start: start, End: end}, cfg.Business.SlotMaxResults,
		lookahead, cfg.MaterializeInterval, logger)

	created, err := svc.MaterializeAll(context.Background())
	if err != nil {
		return fmt.Errorf("materialize: %w", err)
	}

	fmt.Printf("Materialized %d job(s) up to %s\n",
		created, time.Now().UTC().Add(lookahead).Format("2006-01-02"))
	return nil
}
