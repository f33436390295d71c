/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package auth

import (
	"testing"
	"time"
)

func TestIssueAndParse(t *testing.T) {
	secret := []byte("test-secret")

	token, err := Issue(secret, Claims{
		UserID: "emp-1",
		Email:  "cleaner@example.com",
		Role:   "cleaner",
	}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := Parse(secret, token)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if claims.UserID != "emp-1" {
		t.Errorf("UserID = %s, want emp-1", claims.UserID)
	}
	if claims.Role != "cleaner" {
		t.Errorf("Role = %s, want cleaner", claims.Role)
	}
	if claims.Subject != "emp-1" {
		t.Errorf("Subject = %s, want emp-1", claims.Subject)
	}
}

func TestParseWrongSecret(t *testing.T) {
	token, err := Issue([]byte("secret-a"), Claims{UserID: "emp-1"}, time.Hour)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := Parse([]byte("secret-b"), token); err == nil {
		t.Error("Parse() with wrong secret expected error, got nil")
	}
}

func TestParseExpired(t *testing.T) {
	secret := []byte("test-secret")

	token, err := Issue(secret, Claims{UserID: "emp-1"}, -time.Minute)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := Parse(secret, token); err == nil {
		t.Error("Parse() of expired token expected error, got nil")
	}
}
