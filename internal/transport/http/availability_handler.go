package httpapi

import (
	"net/http"
	"time"

	"github.com/example/provider-scheduler/internal/service/availability"
)

type createAvailabilityRequest struct {
	Weekday      int    `json:"weekday"`
	SpecificDate string `json:"specificDate,omitempty"`
	StartMinute  int    `json:"startMinute"`
	EndMinute    int    `json:"endMinute"`
	Recurring    bool   `json:"recurring"`
}

func (h *Handler) CreateAvailability(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerID")
	var req createAvailabilityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	in := availability.CreateWindowInput{
		ProviderID:  providerID,
		Weekday:     time.Weekday(req.Weekday),
		StartMinute: req.StartMinute,
		EndMinute:   req.EndMinute,
		Recurring:   req.Recurring,
	}
	if req.SpecificDate != "" {
		date, err := time.Parse("2006-01-02", req.SpecificDate)
		if err != nil {
			respondError(w, http.StatusBadRequest, "specificDate must be YYYY-MM-DD")
			return
		}
		in.SpecificDate = &date
	}

	created, err := h.service.CreateAvailability(r.Context(), in)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

type updateAvailabilityRequest struct {
	StartMinute int `json:"startMinute"`
	EndMinute   int `json:"endMinute"`
}

func (h *Handler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid availability id")
		return
	}
	var req updateAvailabilityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.UpdateAvailability(r.Context(), id, req.StartMinute, req.EndMinute)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (h *Handler) DisableAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid availability id")
		return
	}
	disabled, err := h.service.DisableAvailability(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, disabled)
}

func (h *Handler) CheckAvailabilityDeletable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid availability id")
		return
	}
	deletable, err := h.service.CheckAvailabilityDeletable(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, deletable)
}

// DeleteAvailability refuses while dependent bookings exist; ?force=true
// runs the two-step check-then-delete override.
func (h *Handler) DeleteAvailability(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid availability id")
		return
	}

	if r.URL.Query().Get("force") == "true" {
		err = h.service.ForceDeleteAvailability(r.Context(), id)
	} else {
		err = h.service.DeleteAvailability(r.Context(), id)
	}
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
