package httpapi

import (
	"net/http"
	"strings"
)

func (h *Handler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
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
	duration := queryInt(r, "duration", 60)

	slots, err := h.service.AvailableSlots(r.Context(), providerID, from, to, duration)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"slots": slots, "count": len(slots)})
}

func (h *Handler) NextAvailableSlot(w http.ResponseWriter, r *http.Request) {
	providerID := r.PathValue("providerID")
	after, err := queryTime(r, "after")
	if err != nil {
		respondError(w, http.StatusBadRequest, "after must be RFC3339")
		return
	}
	duration := queryInt(r, "duration", 60)

	slot, err := h.service.FindNextAvailableSlot(r.Context(), providerID, after, duration)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, slot)
}

func (h *Handler) OccupancyRate(w http.ResponseWriter, r *http.Request) {
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

	rate, err := h.service.OccupancyRate(r.Context(), providerID, from, to)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]float64{"occupancy": rate})
}

func (h *Handler) IsPeriodFree(w http.ResponseWriter, r *http.Request) {
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

	free, err := h.service.IsPeriodFree(r.Context(), providerID, from, to)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"free": free})
}

func (h *Handler) DetectConflicts(w http.ResponseWriter, r *http.Request) {
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

	conflicts, err := h.service.DetectConflicts(r.Context(), providerID, from, to)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"conflicts": conflicts, "count": len(conflicts)})
}

func (h *Handler) CompleteSchedule(w http.ResponseWriter, r *http.Request) {
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

	schedule, err := h.service.GetCompleteSchedule(r.Context(), providerID, from, to)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, schedule)
}

func (h *Handler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
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

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.csv"`)
	if err := h.service.ExportScheduleCSV(r.Context(), w, providerID, from, to); err != nil {
		h.logger.Error("schedule export failed", "error", err)
	}
}

func (h *Handler) CommonSlots(w http.ResponseWriter, r *http.Request) {
	providers := strings.Split(r.URL.Query().Get("providers"), ",")
	if len(providers) == 0 || providers[0] == "" {
		respondError(w, http.StatusBadRequest, "providers is required")
		return
	}
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
	duration := queryInt(r, "duration", 60)

	slots, err := h.service.CommonAvailabilities(r.Context(), providers, from, to, duration)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"slots": slots, "count": len(slots)})
}
