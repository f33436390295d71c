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

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/auth"
	"github.com/freshnest/freshnest/internal/events"
	"github.com/freshnest/freshnest/internal/models"
)

const tokenTTL = 24 * time.Hour

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string           `json:"token"`
	Employee *models.Employee `json:"employee"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials")
		return
	}

	var employee models.Employee
	err := a.db.WithContext(r.Context()).First(&employee, "email = ? AND active = ?", req.Email, true).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}
	if err != nil {
		a.logger.Error().Err(err).Msg("login lookup failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(employee.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
		return
	}

	token, err := auth.Issue(a.jwtSecret, auth.Claims{
		UserID: employee.ID,
		Email:  employee.Email,
		Role:   string(employee.Role),
	}, tokenTTL)
	if err != nil {
		a.logger.Error().Err(err).Msg("token issue failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	payload := a.auditContext(r)
	payload["user_id"] = employee.ID
	a.publish(events.EventAuditLogin, payload)

	writeJSON(w, http.StatusOK, loginResponse{Token: token, Employee: &employee})
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var employee models.Employee
	if err := a.db.WithContext(r.Context()).First(&employee, "id = ?", claims.UserID).Error; err != nil {
		writeError(w, http.StatusNotFound, "employee_not_found")
		return
	}

	writeJSON(w, http.StatusOK, &employee)
}
