/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/freshnest/freshnest/internal/cache"
	"github.com/freshnest/freshnest/internal/events"
	"github.com/freshnest/freshnest/internal/models"
)

type clientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	Notes   string `json:"notes"`
	Active  *bool  `json:"active"`
}

func (a *API) handleClientsList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if a.cache != nil {
		if cached, ok := a.cache.GetClientList(ctx); ok {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	var clients []models.Client
	if err := a.db.WithContext(ctx).Where("active = ?", true).Order("name ASC").Find(&clients).Error; err != nil {
		a.logger.Error().Err(err).Msg("list clients failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	if a.cache != nil {
		cached := make([]cache.CachedClient, len(clients))
		for i, c := range clients {
			cached[i] = cache.CachedClient{
				ID:      c.ID,
				Name:    c.Name,
				Email:   c.Email,
				Phone:   c.Phone,
				Address: c.Address,
				Active:  c.Active,
			}
		}
		if err := a.cache.SetClientList(ctx, cached); err != nil {
			a.logger.Debug().Err(err).Msg("failed to cache client list")
		}
	}

	writeJSON(w, http.StatusOK, clients)
}

func (a *API) handleClientsCreate(w http.ResponseWriter, r *http.Request) {
	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name_required")
		return
	}

	client := models.Client{
		ID:      uuid.NewString(),
		Name:    req.Name,
		Email:   req.Email,
		Phone:   req.Phone,
		Address: req.Address,
		Notes:   req.Notes,
		Active:  true,
	}

	if err := a.db.WithContext(r.Context()).Create(&client).Error; err != nil {
		a.logger.Error().Err(err).Msg("create client failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	a.invalidateClients(r)
	a.publish(events.EventClientCreated, events.Payload{"client_id": client.ID})

	writeJSON(w, http.StatusCreated, &client)
}

func (a *API) handleClientsGet(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var client models.Client
	err := a.db.WithContext(r.Context()).First(&client, "id = ?", clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "client_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	writeJSON(w, http.StatusOK, &client)
}

func (a *API) handleClientsUpdate(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	var client models.Client
	err := a.db.WithContext(r.Context()).First(&client, "id = ?", clientID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		writeError(w, http.StatusNotFound, "client_not_found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	var req clientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}

	if req.Name != "" {
		client.Name = req.Name
	}
	client.Email = req.Email
	client.Phone = req.Phone
	client.Address = req.Address
	client.Notes = req.Notes
	if req.Active != nil {
		client.Active = *req.Active
	}

	if err := a.db.WithContext(r.Context()).Save(&client).Error; err != nil {
		a.logger.Error().Err(err).Msg("update client failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	a.invalidateClients(r)
	a.publish(events.EventClientUpdated, events.Payload{"client_id": client.ID})

	writeJSON(w, http.StatusOK, &client)
}

func (a *API) handleClientsDelete(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "clientID")

	// Clients with history are deactivated, not removed, so past jobs
	// keep their reference.
	result := a.db.WithContext(r.Context()).
		Model(&models.Client{}).
		Where("id = ?", clientID).
		Update("active", false)
	if result.Error != nil {
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}
	if result.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "client_not_found")
		return
	}

	a.invalidateClients(r)
	a.publish(events.EventClientDeleted, events.Payload{"client_id": clientID})

	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (a *API) invalidateClients(r *http.Request) {
	if a.cache != nil {
		if err := a.cache.InvalidateClientList(r.Context()); err != nil {
			a.logger.Debug().Err(err).Msg("failed to invalidate client list cache")
		}
	}
}
