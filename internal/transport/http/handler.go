package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/example/provider-scheduler/internal/service/optimizer"
	"github.com/example/provider-scheduler/internal/service/scheduling"
)

// Handler exposes the scheduling core over JSON. All scheduling semantics
// live in the services; the handlers only parse, delegate, and map errors.
type Handler struct {
	service   *scheduling.Service
	optimizer *optimizer.Optimizer
	logger    *slog.Logger
}

func NewHandler(service *scheduling.Service, opt *optimizer.Optimizer, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{service: service, optimizer: opt, logger: logger}
}

// NewRouter wires every operation onto a stdlib mux.
func NewRouter(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/providers/{providerID}/availabilities", h.CreateAvailability)
	mux.HandleFunc("PUT /api/availabilities/{id}", h.UpdateAvailability)
	mux.HandleFunc("POST /api/availabilities/{id}/disable", h.DisableAvailability)
	mux.HandleFunc("GET /api/availabilities/{id}/deletable", h.CheckAvailabilityDeletable)
	mux.HandleFunc("DELETE /api/availabilities/{id}", h.DeleteAvailability)

	mux.HandleFunc("POST /api/providers/{providerID}/absences", h.CreateAbsence)
	mux.HandleFunc("PUT /api/absences/{id}", h.UpdateAbsence)
	mux.HandleFunc("POST /api/absences/{id}/cancel", h.CancelAbsence)

	mux.HandleFunc("GET /api/providers/{providerID}/slots", h.AvailableSlots)
	mux.HandleFunc("GET /api/providers/{providerID}/slots/next", h.NextAvailableSlot)
	mux.HandleFunc("GET /api/providers/{providerID}/occupancy", h.OccupancyRate)
	mux.HandleFunc("GET /api/providers/{providerID}/free", h.IsPeriodFree)
	mux.HandleFunc("GET /api/providers/{providerID}/conflicts", h.DetectConflicts)
	mux.HandleFunc("GET /api/providers/{providerID}/schedule", h.CompleteSchedule)
	mux.HandleFunc("GET /api/providers/{providerID}/schedule/export", h.ExportSchedule)
	mux.HandleFunc("GET /api/slots/common", h.CommonSlots)

	mux.HandleFunc("POST /api/providers/{providerID}/optimize/day", h.OptimizeDay)
	mux.HandleFunc("POST /api/providers/{providerID}/optimize/route", h.OptimizeRoute)
	mux.HandleFunc("POST /api/providers/{providerID}/suggestions", h.SuggestSlots)
	mux.HandleFunc("GET /api/providers/{providerID}/balance", h.BalanceWeek)
	mux.HandleFunc("GET /api/providers/{providerID}/recommendations", h.Recommendations)

	return mux
}
