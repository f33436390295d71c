/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/freshnest/freshnest/internal/models"
)

type employeeRequest struct {
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      string  `json:"phone"`
	Password   string  `json:"password"`
	Role       string  `json:"role"`
	HourlyRate float64 `json:"hourly_rate"`
}

func (a *API) handleEmployeesList(w http.ResponseWriter, r *http.Request) {
	var employees []models.Employee
	if err := a.db.WithContext(r.Context()).Order("name ASC").Find(&employees).Error; err != nil {
		a.logger.Error().Err(err).Msg("list employees failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	writeJSON(w, http.StatusOK, employees)
}

func (a *API) handleEmployeesCreate(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "missing_fields")
		return
	}

	role := models.Role(req.Role)
	switch role {
	case models.RoleAdmin, models.RoleManager, models.RoleCleaner:
	case "":
		role = models.RoleCleaner
	default:
		writeError(w, http.StatusBadRequest, "invalid_role")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	employee := models.Employee{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         role,
		HourlyRate:   req.HourlyRate,
		Active:       true,
	}

	if err := a.db.WithContext(r.Context()).Create(&employee).Error; err != nil {
		a.logger.Error().Err(err).Msg("create employee failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusCreated, &employee)
}
