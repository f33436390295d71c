/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/freshnest/freshnest/internal/config"
)

func TestSecurityHeaders(t *testing.T) {
	handler := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	want := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "strict-origin-when-cross-origin",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}

	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS set on plain HTTP request: %q", got)
	}
}

func TestSecurityHeadersHSTSBehindProxy(t *testing.T) {
	handler := securityHeadersMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get("Strict-Transport-Security"); got == "" {
		t.Error("HSTS missing on forwarded HTTPS request")
	}
}

func TestSchedulingFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		biz     config.Business
		wantErr bool
	}{
		{
			name: "valid",
			biz: config.Business{
				WorkingHoursStart: "08:00",
				WorkingHoursEnd:   "18:00",
				DefaultDuration:   60,
				QuickDuration:     120,
				CommonTimes:       []string{"08:00", "10:00", "13:00"},
			},
		},
		{
			name: "bad start",
			biz: config.Business{
				WorkingHoursStart: "8am",
				WorkingHoursEnd:   "18:00",
			},
			wantErr: true,
		},
		{
			name: "end before start",
			biz: config.Business{
				WorkingHoursStart: "18:00",
				WorkingHoursEnd:   "08:00",
			},
			wantErr: true,
		},
		{
			name: "bad common time",
			biz: config.Business{
				WorkingHoursStart: "08:00",
				WorkingHoursEnd:   "18:00",
				CommonTimes:       []string{"25:00"},
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, hours, err := schedulingFromConfig(tt.biz)
			if (err != nil) != tt.wantErr {
				t.Fatalf("schedulingFromConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if hours.Start.String() != "08:00" || hours.End.String() != "18:00" {
				t.Errorf("hours = %s-%s, want 08:00-18:00", hours.Start, hours.End)
			}
		})
	}
}
