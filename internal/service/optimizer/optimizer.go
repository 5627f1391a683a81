package optimizer

import (
	"context"
	"time"

	"github.com/example/provider-scheduler/internal/distance"
	"github.com/example/provider-scheduler/internal/domain"
	"github.com/example/provider-scheduler/internal/service/conflict"
	"github.com/example/provider-scheduler/internal/store"
)

// Config carries the optimizer tunables. The scoring weights are deployment
// configuration with no inherent business meaning.
type Config struct {
	TravelWeight       float64
	EfficiencyWeight   float64
	PreferenceWeight   float64
	GapWeight          float64
	IdealGap           time.Duration
	SuggestionLimit    int
	RebalanceThreshold time.Duration
}

func DefaultConfig() Config {
	return Config{
		TravelWeight:       3.0,
		EfficiencyWeight:   2.0,
		PreferenceWeight:   1.5,
		GapWeight:          1.0,
		IdealGap:           15 * time.Minute,
		SuggestionLimit:    5,
		RebalanceThreshold: 2 * time.Hour,
	}
}

// Optimizer re-orders and re-times a provider's bookings. Every operation is
// a pure function of its inputs plus the injected distance estimator; nothing
// here mutates persisted state. Results are proposals the caller must commit
// through the normal conflict-checked write path.
type Optimizer struct {
	estimator distance.Estimator
	windows   store.AvailabilityRepository
	absences  store.AbsenceRepository
	bookings  store.BookingReader
	cfg       Config
}

// NewOptimizer takes the config as given: callers start from DefaultConfig
// and override, so a zero weight is a deliberate choice, not an omission.
// Structural knobs that would break the algorithms (gap, limit, threshold)
// are still backfilled when non-positive.
func NewOptimizer(estimator distance.Estimator, windows store.AvailabilityRepository, absences store.AbsenceRepository, bookings store.BookingReader, cfg Config) *Optimizer {
	def := DefaultConfig()
	if cfg.IdealGap <= 0 {
		cfg.IdealGap = def.IdealGap
	}
	if cfg.SuggestionLimit <= 0 {
		cfg.SuggestionLimit = def.SuggestionLimit
	}
	if cfg.RebalanceThreshold <= 0 {
		cfg.RebalanceThreshold = def.RebalanceThreshold
	}
	return &Optimizer{estimator: estimator, windows: windows, absences: absences, bookings: bookings, cfg: cfg}
}

type DaySchedule struct {
	Bookings []domain.Booking
	Metrics  ScheduleMetrics
}

type DayResult struct {
	Current         DaySchedule
	Optimized       DaySchedule
	TimeSaved       time.Duration
	DistanceSavedKm float64
	// EfficiencyGain is optimized minus current efficiency. Negative when
	// the proposal is worse; never clamped.
	EfficiencyGain float64
	Feasible       bool
	Conflicts      []domain.Conflict
}

// OptimizeDay proposes a reordered, re-timed schedule for one provider/day.
// The proposal is checked for feasibility against the provider's windows and
// absences; an infeasible proposal is still returned, flagged with its
// conflicts, so the caller decides whether to apply it.
func (o *Optimizer) OptimizeDay(ctx context.Context, providerID string, bookings []domain.Booking, day time.Time) (DayResult, error) {
	if len(bookings) == 0 {
		return DayResult{Feasible: true, Conflicts: []domain.Conflict{}}, nil
	}
	day = domain.DayOf(day)

	current, err := o.Analyze(ctx, bookings)
	if err != nil {
		return DayResult{}, err
	}

	ordered, err := o.OrderBookings(ctx, bookings)
	if err != nil {
		return DayResult{}, err
	}
	retimed, err := o.retime(ctx, providerID, ordered, day)
	if err != nil {
		return DayResult{}, err
	}

	optimized, err := o.Analyze(ctx, retimed)
	if err != nil {
		return DayResult{}, err
	}

	windows, err := o.windows.ListActive(ctx, providerID)
	if err != nil {
		return DayResult{}, err
	}
	absences, err := o.absences.ListActiveForPeriod(ctx, providerID, day, day.AddDate(0, 0, 1))
	if err != nil {
		return DayResult{}, err
	}
	conflicts := conflict.CheckBookings(providerID, retimed, absences, windows)

	return DayResult{
		Current:         DaySchedule{Bookings: bookings, Metrics: current},
		Optimized:       DaySchedule{Bookings: retimed, Metrics: optimized},
		TimeSaved:       (current.TravelTime + current.IdleTime) - (optimized.TravelTime + optimized.IdleTime),
		DistanceSavedKm: current.TravelKm - optimized.TravelKm,
		EfficiencyGain:  optimized.Efficiency - current.Efficiency,
		Feasible:        len(conflicts) == 0,
		Conflicts:       conflicts,
	}, nil
}

// retime chains the ordered bookings across the day: the first flexible
// booking anchors at the earliest active window start, each following one at
// the previous end plus travel plus the ideal gap. Fixed bookings keep their
// scheduled time; the chain resumes after them.
func (o *Optimizer) retime(ctx context.Context, providerID string, ordered []domain.Booking, day time.Time) ([]domain.Booking, error) {
	windows, err := o.windows.ListActiveForDay(ctx, providerID, day)
	if err != nil {
		return nil, err
	}

	cursor := ordered[0].ScheduledStart.UTC()
	if len(windows) > 0 {
		earliest := windows[0].WindowOn(day).Start
		for _, w := range windows[1:] {
			if s := w.WindowOn(day).Start; s.Before(earliest) {
				earliest = s
			}
		}
		cursor = earliest
	}

	out := make([]domain.Booking, len(ordered))
	prevAddress := ""
	for i, b := range ordered {
		if i > 0 {
			leg, err := o.estimator.Between(ctx, prevAddress, b.Address)
			if err != nil {
				return nil, err
			}
			cursor = cursor.Add(leg.TravelTime + o.cfg.IdealGap)
		}
		if b.Fixed() {
			b.ScheduledStart = b.ScheduledStart.UTC()
		} else {
			b.ScheduledStart = cursor
		}
		out[i] = b
		cursor = b.End()
		prevAddress = b.Address
	}
	return out, nil
}
