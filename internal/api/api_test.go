/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/auth"
	"github.com/freshnest/freshnest/internal/calendar"
	"github.com/freshnest/freshnest/internal/models"
	"github.com/freshnest/freshnest/internal/scheduler"
	"github.com/freshnest/freshnest/internal/scheduling"
)

var testSecret = []byte("test-secret")

func newTestAPI(t *testing.T) (*API, *gorm.DB, http.Handler) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.AutoMigrate(&models.Client{}, &models.Employee{}, &models.Job{}); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}

	start, _ := scheduling.ParseClock("08:00")
	end, _ := scheduling.ParseClock("18:00")
	sched := scheduler.New(db, scheduling.NewEngine(scheduling.Defaults{}),
		scheduling.WorkingHours{Start: start, End: end}, 4,
		90*24*time.Hour, 30*time.Minute, zerolog.Nop())

	exporter := calendar.NewExportService(db, zerolog.Nop())

	a := New(db, testSecret, sched, exporter, zerolog.Nop())
	r := chi.NewRouter()
	a.Routes(r)
	return a, db, r
}

func createTestEmployee(t *testing.T, db *gorm.DB, email, password string, role models.Role) *models.Employee {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	emp := &models.Employee{
		ID:           uuid.NewString(),
		Name:         "Test Employee",
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Active:       true,
	}
	if err := db.Create(emp).Error; err != nil {
		t.Fatalf("failed to create employee: %v", err)
	}
	return emp
}

func tokenFor(t *testing.T, emp *models.Employee) string {
	t.Helper()
	token, err := auth.Issue(testSecret, auth.Claims{
		UserID: emp.ID,
		Email:  emp.Email,
		Role:   string(emp.Role),
	}, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	_, _, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestLogin(t *testing.T) {
	_, db, handler := newTestAPI(t)
	createTestEmployee(t, db, "owner@freshnest.test", "hunter22", models.RoleAdmin)

	tests := []struct {
		name       string
		body       map[string]string
		wantStatus int
	}{
		{"valid", map[string]string{"email": "owner@freshnest.test", "password": "hunter22"}, http.StatusOK},
		{"wrong password", map[string]string{"email": "owner@freshnest.test", "password": "nope"}, http.StatusUnauthorized},
		{"unknown user", map[string]string{"email": "ghost@freshnest.test", "password": "hunter22"}, http.StatusUnauthorized},
		{"missing fields", map[string]string{"email": "owner@freshnest.test"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				var resp loginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decode response: %v", err)
				}
				if resp.Token == "" {
					t.Error("login response missing token")
				}
			}
		})
	}
}

func TestLoginInactiveEmployee(t *testing.T) {
	_, db, handler := newTestAPI(t)
	emp := createTestEmployee(t, db, "gone@freshnest.test", "pw123456", models.RoleCleaner)
	if err := db.Model(emp).Update("active", false).Error; err != nil {
		t.Fatal(err)
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "",
		map[string]string{"email": "gone@freshnest.test", "password": "pw123456"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestMe(t *testing.T) {
	_, db, handler := newTestAPI(t)
	emp := createTestEmployee(t, db, "me@freshnest.test", "pw123456", models.RoleManager)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/auth/me", tokenFor(t, emp), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got models.Employee
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != emp.ID {
		t.Errorf("ID = %s, want %s", got.ID, emp.ID)
	}
	if got.PasswordHash != "" {
		t.Error("password hash leaked in response")
	}
}

func TestClientRoleGates(t *testing.T) {
	_, db, handler := newTestAPI(t)
	cleaner := createTestEmployee(t, db, "cleaner@freshnest.test", "pw123456", models.RoleCleaner)
	manager := createTestEmployee(t, db, "manager@freshnest.test", "pw123456", models.RoleManager)

	body := map[string]string{"name": "Ada Lovelace"}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/clients", tokenFor(t, cleaner), body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("cleaner create: status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/clients", tokenFor(t, manager), body)
	if rec.Code != http.StatusCreated {
		t.Errorf("manager create: status = %d, want 201", rec.Code)
	}

	// Reads are open to all authenticated staff.
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/clients", tokenFor(t, cleaner), nil)
	if rec.Code != http.StatusOK {
		t.Errorf("cleaner list: status = %d, want 200", rec.Code)
	}
}

func TestEmployeeCreateAdminOnly(t *testing.T) {
	_, db, handler := newTestAPI(t)
	manager := createTestEmployee(t, db, "manager@freshnest.test", "pw123456", models.RoleManager)
	admin := createTestEmployee(t, db, "admin@freshnest.test", "pw123456", models.RoleAdmin)

	body := map[string]any{"name": "New Hire", "email": "new@freshnest.test", "password": "pw123456"}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/employees", tokenFor(t, manager), body)
	if rec.Code != http.StatusForbidden {
		t.Errorf("manager: status = %d, want 403", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/employees", tokenFor(t, admin), body)
	if rec.Code != http.StatusCreated {
		t.Errorf("admin: status = %d, want 201", rec.Code)
	}
}

func TestUnauthenticatedRejected(t *testing.T) {
	_, _, handler := newTestAPI(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/jobs", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
