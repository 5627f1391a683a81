package httpapi

import (
	"net/http"
	"time"

	"github.com/example/provider-scheduler/internal/domain"
	"github.com/example/provider-scheduler/internal/service/optimizer"
)

func (h *Handler) dayBookings(r *http.Request, providerID string, day time.Time) ([]domain.Booking, error) {
	day = domain.DayOf(day)
	schedule, err := h.service.GetCompleteSchedule(r.Context(), providerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	return schedule.Bookings, nil
}

type optimizeDayRequest struct {
	Date time.Time `json:"date"`
}

func (h *Handler) OptimizeDay(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerID")
	var req optimizeDayRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bookings, err := h.dayBookings(r, providerID, req.Date)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	result, err := h.optimizer.OptimizeDay(r.Context(), providerID, bookings, req.Date)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type optimizeRouteRequest struct {
	Date          time.Time `json:"date"`
	StartLocation string    `json:"startLocation,omitempty"`
	EndLocation   string    `json:"endLocation,omitempty"`
}

func (h *Handler) OptimizeRoute(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerID")
	var req optimizeRouteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	bookings, err := h.dayBookings(r, providerID, req.Date)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	result, err := h.optimizer.OptimizeRoute(r.Context(), bookings, req.StartLocation, req.EndLocation)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

type suggestSlotsRequest struct {
	Date            time.Time  `json:"date"`
	DurationMinutes int        `json:"durationMinutes"`
	Address         string     `json:"address"`
	PreferredStart  *time.Time `json:"preferredStart,omitempty"`
}

func (h *Handler) SuggestSlots(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerID")
	var req suggestSlotsRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DurationMinutes <= 0 {
		respondError(w, http.StatusBadRequest, "durationMinutes must be positive")
		return
	}

	suggestions, err := h.optimizer.SuggestSlots(r.Context(), providerID, req.Date, req.DurationMinutes, req.Address, optimizer.Preferences{PreferredStart: req.PreferredStart})
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"suggestions": suggestions, "count": len(suggestions)})
}

func (h *Handler) BalanceWeek(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerID")
	weekStart, err := queryTime(r, "weekStart")
	if err != nil {
		respondError(w, http.StatusBadRequest, "weekStart must be RFC3339")
		return
	}

	report, err := h.optimizer.BalanceWeek(r.Context(), providerID, weekStart)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, report)
}

func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerID")
	from, err := queryTime(r, "from")
	if err != nil {
		respondError(w, http.StatusBadRequest, "from must be RFC3339")
		return
	}
	to, err := queryTime(r, "to")
	if err != nil {
		respondError(w, http.StatusBadRequest, "to must be RFC3339")
		return
	}

	recs, err := h.service.SuggestOptimizations(r.Context(), providerID, from, to)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"recommendations": recs, "count": len(recs)})
}
