/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/models"
	"github.com/freshnest/freshnest/internal/scheduling"
)

func testDay() time.Time {
	return scheduling.DateOf(time.Now().UTC()).AddDate(0, 0, 14)
}

func seedVisit(t *testing.T, db *gorm.DB, day time.Time, at string, minutes int) *models.Job {
	t.Helper()
	job := &models.Job{
		ID:                       uuid.NewString(),
		ClientID:                 uuid.NewString(),
		ServiceType:              "standard",
		ScheduledDate:            day,
		ScheduledTime:            at,
		EstimatedDurationMinutes: minutes,
		Status:                   models.JobScheduled,
	}
	if err := db.Create(job).Error; err != nil {
		t.Fatalf("failed to seed job: %v", err)
	}
	return job
}

func TestJobsCreateReportsAdvisoryConflicts(t *testing.T) {
	_, db, handler := newTestAPI(t)
	manager := createTestEmployee(t, db, "m@freshnest.test", "pw123456", models.RoleManager)
	day := testDay()
	existing := seedVisit(t, db, day, "09:00", 120)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/jobs", tokenFor(t, manager), map[string]any{
		"client_id":                  uuid.NewString(),
		"scheduled_date":             day.Format("2006-01-02"),
		"scheduled_time":             "10:00",
		"estimated_duration_minutes": 60,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp jobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Conflicts) != 1 || resp.Conflicts[0] != existing.ID {
		t.Errorf("Conflicts = %v, want [%s]", resp.Conflicts, existing.ID)
	}

	// The booking is still written; conflicts are advisory on create.
	var count int64
	if err := db.Model(&models.Job{}).Count(&count).Error; err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("job rows = %d, want 2", count)
	}
}

func TestJobsCreateUntimedHasNoConflicts(t *testing.T) {
	_, db, handler := newTestAPI(t)
	manager := createTestEmployee(t, db, "m@freshnest.test", "pw123456", models.RoleManager)
	day := testDay()
	seedVisit(t, db, day, "09:00", 600)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/jobs", tokenFor(t, manager), map[string]any{
		"client_id":      uuid.NewString(),
		"scheduled_date": day.Format("2006-01-02"),
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}

	var resp jobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Conflicts) != 0 {
		t.Errorf("untimed job conflicts = %v, want none", resp.Conflicts)
	}
}

func TestJobMoveStateMachine(t *testing.T) {
	_, db, handler := newTestAPI(t)
	cleaner := createTestEmployee(t, db, "c@freshnest.test", "pw123456", models.RoleCleaner)

	from := testDay()
	to := from.AddDate(0, 0, 1)
	job := seedVisit(t, db, from, "09:00", 60)
	blocker := seedVisit(t, db, to, "10:00", 120)

	// Conflicting move without confirmation: 409, no write.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/jobs/"+job.ID+"/move", tokenFor(t, cleaner), map[string]any{
		"date": to.Format("2006-01-02"),
		"time": "10:30",
	})
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", rec.Code, rec.Body.String())
	}
	var resp moveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Outcome != "conflict_requires_confirmation" {
		t.Errorf("outcome = %s, want conflict_requires_confirmation", resp.Outcome)
	}
	if len(resp.Conflicts) != 1 || resp.Conflicts[0] != blocker.ID {
		t.Errorf("conflicts = %v, want [%s]", resp.Conflicts, blocker.ID)
	}

	var stored models.Job
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !scheduling.SameDay(stored.ScheduledDate, from) {
		t.Error("job moved without confirmation")
	}

	// Same move with confirm: 200 and written.
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/jobs/"+job.ID+"/move", tokenFor(t, cleaner), map[string]any{
		"date":    to.Format("2006-01-02"),
		"time":    "10:30",
		"confirm": true,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("confirmed status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if err := db.First(&stored, "id = ?", job.ID).Error; err != nil {
		t.Fatal(err)
	}
	if !scheduling.SameDay(stored.ScheduledDate, to) || stored.ScheduledTime != "10:30" {
		t.Errorf("stored = %v %s, want confirmed move", stored.ScheduledDate, stored.ScheduledTime)
	}
}

func TestJobMoveToFreeSlot(t *testing.T) {
	_, db, handler := newTestAPI(t)
	cleaner := createTestEmployee(t, db, "c@freshnest.test", "pw123456", models.RoleCleaner)

	from := testDay()
	to := from.AddDate(0, 0, 2)
	job := seedVisit(t, db, from, "09:00", 60)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/jobs/"+job.ID+"/move", tokenFor(t, cleaner), map[string]any{
		"date": to.Format("2006-01-02"),
		"time": "14:00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp moveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Outcome != "clear" {
		t.Errorf("outcome = %s, want clear", resp.Outcome)
	}
}

func TestJobMoveNotFound(t *testing.T) {
	_, db, handler := newTestAPI(t)
	cleaner := createTestEmployee(t, db, "c@freshnest.test", "pw123456", models.RoleCleaner)

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/jobs/"+uuid.NewString()+"/move", tokenFor(t, cleaner), map[string]any{
		"date": testDay().Format("2006-01-02"),
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestJobMaterializeEndpoint(t *testing.T) {
	_, db, handler := newTestAPI(t)
	manager := createTestEmployee(t, db, "m@freshnest.test", "pw123456", models.RoleManager)

	tpl := &models.Job{
		ID:              uuid.NewString(),
		ClientID:        uuid.NewString(),
		ScheduledDate:   testDay(),
		ScheduledTime:   "09:00",
		Status:          models.JobScheduled,
		IsRecurring:     true,
		Frequency:       string(scheduling.FreqWeekly),
		RecurrenceEnd:   string(scheduling.EndCount),
		RecurrenceCount: 3,
	}
	if err := db.Create(tpl).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/jobs/"+tpl.ID+"/materialize", tokenFor(t, manager), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]int
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["created"] != 3 {
		t.Errorf("created = %d, want 3", resp["created"])
	}

	// One-off jobs cannot be materialized.
	oneOff := seedVisit(t, db, testDay(), "12:00", 60)
	rec = doJSON(t, handler, http.MethodPost, "/api/v1/jobs/"+oneOff.ID+"/materialize", tokenFor(t, manager), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("one-off materialize status = %d, want 400", rec.Code)
	}
}

func TestScheduleConflictsEndpoint(t *testing.T) {
	_, db, handler := newTestAPI(t)
	cleaner := createTestEmployee(t, db, "c@freshnest.test", "pw123456", models.RoleCleaner)
	day := testDay()

	a := seedVisit(t, db, day, "09:00", 120)
	b := seedVisit(t, db, day, "10:30", 60)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/schedule/conflicts?date="+day.Format("2006-01-02"), tokenFor(t, cleaner), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Date      string                 `json:"date"`
		Conflicts []conflictPairResponse `json:"conflicts"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Conflicts) != 1 {
		t.Fatalf("conflicts = %d, want 1", len(resp.Conflicts))
	}
	pair := resp.Conflicts[0]
	if !(pair.A == a.ID && pair.B == b.ID) && !(pair.A == b.ID && pair.B == a.ID) {
		t.Errorf("pair = %+v, want %s/%s", pair, a.ID, b.ID)
	}
}

func TestScheduleSlotsEndpoint(t *testing.T) {
	_, db, handler := newTestAPI(t)
	cleaner := createTestEmployee(t, db, "c@freshnest.test", "pw123456", models.RoleCleaner)
	day := testDay()

	seedVisit(t, db, day, "09:00", 120)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/schedule/slots?date="+day.Format("2006-01-02")+"&duration=60", tokenFor(t, cleaner), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Slots []string `json:"slots"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Slots) == 0 || resp.Slots[0] != "08:00" {
		t.Errorf("slots = %v, want first 08:00", resp.Slots)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/schedule/slots?date=not-a-date", tokenFor(t, cleaner), nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad date status = %d, want 400", rec.Code)
	}
}

func TestScheduleExportEndpoint(t *testing.T) {
	_, db, handler := newTestAPI(t)
	cleaner := createTestEmployee(t, db, "c@freshnest.test", "pw123456", models.RoleCleaner)
	day := testDay()

	job := seedVisit(t, db, day, "09:00", 90)

	path := "/api/v1/schedule/export.ics?start=" + day.Format("2006-01-02") + "&end=" + day.AddDate(0, 0, 7).Format("2006-01-02")
	rec := doJSON(t, handler, http.MethodGet, path, tokenFor(t, cleaner), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Content-Type = %s, want text/calendar", ct)
	}

	body := rec.Body.String()
	if !strings.Contains(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "UID:"+job.ID+"@freshnest") {
		t.Errorf("export missing event:\n%s", body)
	}
}
