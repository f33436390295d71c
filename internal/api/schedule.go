/*
Copyright (C) 2026 FreshNest

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"net/http"
	"strconv"
	"time"
)

type conflictPairResponse struct {
	A string `json:"a"`
	B string `json:"b"`
}

func (a *API) handleScheduleConflicts(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r, "date")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	pairs, err := a.scheduler.ConflictsOn(r.Context(), date)
	if err != nil {
		a.logger.Error().Err(err).Msg("conflict scan failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]conflictPairResponse, len(pairs))
	for i, p := range pairs {
		out[i] = conflictPairResponse{A: p.A, B: p.B}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":      date.Format("2006-01-02"),
		"conflicts": out,
	})
}

func (a *API) handleScheduleSlots(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r, "date")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	duration := 0
	if raw := r.URL.Query().Get("duration"); raw != "" {
		d, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_duration")
			return
		}
		duration = d
	}

	slots, err := a.scheduler.SuggestSlots(r.Context(), date, duration)
	if err != nil {
		a.logger.Error().Err(err).Msg("slot suggestion failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.Format("2006-01-02"),
		"slots": out,
	})
}

func (a *API) handleScheduleQuickSlots(w http.ResponseWriter, r *http.Request) {
	date, ok := parseDate(r, "date")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_date")
		return
	}

	slots, err := a.scheduler.QuickSlots(r.Context(), date)
	if err != nil {
		a.logger.Error().Err(err).Msg("quick slot suggestion failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"date":  date.Format("2006-01-02"),
		"slots": out,
	})
}

func (a *API) handleScheduleExport(w http.ResponseWriter, r *http.Request) {
	start, ok := parseDate(r, "start")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid_start")
		return
	}

	end := start.AddDate(0, 1, 0)
	if raw := r.URL.Query().Get("end"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end")
			return
		}
		end = parsed
	}
	if !end.After(start) {
		writeError(w, http.StatusBadRequest, "end_before_start")
		return
	}

	includeSeries := r.URL.Query().Get("series") == "true"

	result, err := a.exporter.ExportToICal(r.Context(), start, end, includeSeries)
	if err != nil {
		a.logger.Error().Err(err).Msg("ical export failed")
		writeError(w, http.StatusInternalServerError, "internal_error")
		return
	}

	w.Header().Set("Content-Type", result.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(result.Data)
}
