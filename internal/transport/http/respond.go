package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/example/provider-scheduler/internal/service/availability"
	"github.com/example/provider-scheduler/internal/service/scheduling"
	"github.com/example/provider-scheduler/internal/store"
)

func respondJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	respondJSON(w, statusCode, map[string]string{"error": message})
}

// respondServiceError maps the service error taxonomy onto HTTP statuses:
// validation failures are 422, conflicts 409, missing entities 404.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var availErr *availability.ValidationError
	var schedErr *scheduling.ValidationError
	switch {
	case errors.As(err, &availErr), errors.As(err, &schedErr):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrConflict):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("request failed", slog.String("error", err.Error()))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}

func queryTime(r *http.Request, key string) (time.Time, error) {
	return time.Parse(time.RFC3339, r.URL.Query().Get(key))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func decodeBody(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
