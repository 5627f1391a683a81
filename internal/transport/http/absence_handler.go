package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/example/provider-scheduler/internal/service/scheduling"
	"github.com/example/provider-scheduler/internal/store"
)

type absenceRequest struct {
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
	Reason    string    `json:"reason"`
}

func (h *Handler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerID")
	var req absenceRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	created, conflicts, err := h.service.CreateAbsence(r.Context(), scheduling.CreateAbsenceInput{
		ProviderID: providerID,
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
		Reason:     req.Reason,
	})
	if err != nil {
		// An overlap rejection carries the offending bookings.
		if errors.Is(err, store.ErrConflict) && len(conflicts) > 0 {
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":     err.Error(),
				"conflicts": conflicts,
			})
			return
		}
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateAbsence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid absence id")
		return
	}
	var req absenceRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, conflicts, err := h.service.UpdateAbsence(r.Context(), id, req.StartDate, req.EndDate, req.Reason)
	if err != nil {
		if errors.Is(err, store.ErrConflict) && len(conflicts) > 0 {
			respondJSON(w, http.StatusConflict, map[string]any{
				"error":     err.Error(),
				"conflicts": conflicts,
			})
			return
		}
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) CancelAbsence(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid absence id")
		return
	}
	cancelled, err := h.service.CancelAbsence(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, cancelled)
}
