/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package calendar

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/freshnest/freshnest/internal/models"
	"github.com/freshnest/freshnest/internal/scheduling"
)

func anchor() time.Time {
	return time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC) // a Monday
}

func TestSeriesRuleWeekly(t *testing.T) {
	pattern := scheduling.Pattern{
		Frequency:  scheduling.FreqWeekly,
		DaysOfWeek: []time.Weekday{time.Monday, time.Wednesday},
		End:        scheduling.AfterCount(5),
	}

	rule, err := SeriesRule(anchor(), pattern, "")
	if err != nil {
		t.Fatalf("SeriesRule() error = %v", err)
	}

	out := rule.String()
	for _, want := range []string{"FREQ=WEEKLY", "BYDAY=MO,WE", "COUNT=5"} {
		if !strings.Contains(out, want) {
			t.Errorf("rule %q missing %s", out, want)
		}
	}
}

func TestSeriesRuleBiweekly(t *testing.T) {
	rule, err := SeriesRule(anchor(), scheduling.Pattern{
		Frequency: scheduling.FreqBiweekly,
		End:       scheduling.Never(),
	}, "")
	if err != nil {
		t.Fatalf("SeriesRule() error = %v", err)
	}

	out := rule.String()
	if !strings.Contains(out, "FREQ=WEEKLY") || !strings.Contains(out, "INTERVAL=2") {
		t.Errorf("rule %q, want biweekly", out)
	}
}

func TestSeriesRuleMonthlyDayOfMonth(t *testing.T) {
	rule, err := SeriesRule(anchor(), scheduling.Pattern{
		Frequency:  scheduling.FreqMonthly,
		DayOfMonth: 15,
		End:        scheduling.Never(),
	}, "")
	if err != nil {
		t.Fatalf("SeriesRule() error = %v", err)
	}

	out := rule.String()
	if !strings.Contains(out, "FREQ=MONTHLY") || !strings.Contains(out, "BYMONTHDAY=15") {
		t.Errorf("rule %q, want monthly on the 15th", out)
	}
}

func TestSeriesRuleRawOverride(t *testing.T) {
	rule, err := SeriesRule(anchor(), scheduling.Pattern{Frequency: scheduling.FreqWeekly}, "FREQ=DAILY;COUNT=3")
	if err != nil {
		t.Fatalf("SeriesRule() error = %v", err)
	}

	dates := rule.All()
	if len(dates) != 3 {
		t.Fatalf("All() returned %d dates, want 3", len(dates))
	}
	if !dates[0].Equal(anchor()) {
		t.Errorf("first occurrence = %v, want anchor %v", dates[0], anchor())
	}
}

func TestSeriesRuleUnknownFrequency(t *testing.T) {
	if _, err := SeriesRule(anchor(), scheduling.Pattern{Frequency: "hourly"}, ""); err == nil {
		t.Error("SeriesRule() with unknown frequency expected error")
	}
}

func TestWriteEventTimed(t *testing.T) {
	svc := &ExportService{}
	job := &models.Job{
		ID:                       "job-1",
		ServiceType:              "deep",
		ScheduledDate:            time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
		ScheduledTime:            "09:30",
		EstimatedDurationMinutes: 90,
		Client:                   &models.Client{Name: "Ada", Address: "12 Elm St"},
	}

	var buf bytes.Buffer
	svc.writeEvent(&buf, job, "")
	out := buf.String()

	for _, want := range []string{
		"UID:job-1@freshnest",
		"DTSTART:20260302T093000Z",
		"DTEND:20260302T110000Z",
		"SUMMARY:deep - Ada",
		"LOCATION:12 Elm St",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("event missing %q:\n%s", want, out)
		}
	}
}

func TestWriteEventUntimed(t *testing.T) {
	svc := &ExportService{}
	job := &models.Job{
		ID:            "job-2",
		ScheduledDate: time.Date(2026, time.March, 3, 0, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	svc.writeEvent(&buf, job, "")
	out := buf.String()

	if !strings.Contains(out, "DTSTART;VALUE=DATE:20260303") {
		t.Errorf("untimed event should be all-day:\n%s", out)
	}
	if strings.Contains(out, "DTEND:") {
		t.Errorf("all-day event should have no DTEND:\n%s", out)
	}
}

func TestEscapeICalText(t *testing.T) {
	got := escapeICalText("a,b;c\nd")
	want := `a\,b\;c\nd`
	if got != want {
		t.Errorf("escapeICalText() = %q, want %q", got, want)
	}
}
