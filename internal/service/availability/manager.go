package availability

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/example/provider-scheduler/internal/domain"
	"github.com/example/provider-scheduler/internal/store"
)

type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string {
	return e.msg
}

func validationError(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Manager owns the lifecycle of a provider's availability windows and every
// read derived from them: slot generation, occupancy, cross-provider
// intersection.
type Manager struct {
	windows  store.AvailabilityRepository
	bookings store.BookingReader
}

func NewManager(windows store.AvailabilityRepository, bookings store.BookingReader) *Manager {
	return &Manager{windows: windows, bookings: bookings}
}

type CreateWindowInput struct {
	ProviderID   string
	Weekday      time.Weekday
	SpecificDate *time.Time
	StartMinute  int
	EndMinute    int
	Recurring    bool
}

func (m *Manager) CreateWindow(ctx context.Context, in CreateWindowInput) (domain.Availability, error) {
	if in.ProviderID == "" {
		return domain.Availability{}, validationError("provider_id is required")
	}
	if err := validateMinuteRange(in.StartMinute, in.EndMinute); err != nil {
		return domain.Availability{}, err
	}
	if in.Recurring {
		if in.Weekday < time.Sunday || in.Weekday > time.Saturday {
			return domain.Availability{}, validationError("weekday must be in [0, 6]")
		}
	} else if in.SpecificDate == nil {
		return domain.Availability{}, validationError("specific_date is required for one-off windows")
	}

	av := domain.Availability{
		ProviderID:  in.ProviderID,
		Weekday:     int16(in.Weekday),
		StartMinute: in.StartMinute,
		EndMinute:   in.EndMinute,
		Recurring:   in.Recurring,
		Active:      true,
	}
	if in.SpecificDate != nil {
		d := domain.DayOf(*in.SpecificDate)
		av.SpecificDate = &d
		if !in.Recurring {
			av.Weekday = int16(d.Weekday())
		}
	}

	existing, err := m.windows.ListActive(ctx, in.ProviderID)
	if err != nil {
		return domain.Availability{}, err
	}
	for _, other := range existing {
		if av.Collides(other) {
			return domain.Availability{}, fmt.Errorf("window overlaps %s: %w", other.ID, store.ErrConflict)
		}
	}

	// The repository re-checks inside a provider-locked transaction; the
	// check above only exists to fail fast with a useful message.
	return m.windows.Create(ctx, av)
}

// UpdateWindow re-times a window. Bookings already scheduled inside the
// current window must still fit the new one; edits never orphan a booking
// outside availability.
func (m *Manager) UpdateWindow(ctx context.Context, id uuid.UUID, startMinute, endMinute int) (domain.Availability, error) {
	if err := validateMinuteRange(startMinute, endMinute); err != nil {
		return domain.Availability{}, err
	}

	av, err := m.windows.Get(ctx, id)
	if err != nil {
		return domain.Availability{}, err
	}

	updated := av
	updated.StartMinute = startMinute
	updated.EndMinute = endMinute

	dependent, err := m.dependentBookings(ctx, av)
	if err != nil {
		return domain.Availability{}, err
	}
	for _, b := range dependent {
		day := domain.DayOf(b.ScheduledStart)
		if !updated.WindowOn(day).Contains(b.Interval()) {
			return domain.Availability{}, fmt.Errorf("booking %s would fall outside the window: %w", b.ID, store.ErrConflict)
		}
	}

	return m.windows.Update(ctx, updated)
}

func (m *Manager) DisableWindow(ctx context.Context, id uuid.UUID) (domain.Availability, error) {
	av, err := m.windows.Get(ctx, id)
	if err != nil {
		return domain.Availability{}, err
	}
	av.Active = false
	return m.windows.Update(ctx, av)
}

type Deletable struct {
	Deletable      bool
	BlockingReason string
}

// CheckDeletable reports whether the window can be hard-deleted and, when it
// cannot, why. Callers present the reason before forcing.
func (m *Manager) CheckDeletable(ctx context.Context, id uuid.UUID) (Deletable, error) {
	av, err := m.windows.Get(ctx, id)
	if err != nil {
		return Deletable{}, err
	}
	dependent, err := m.dependentBookings(ctx, av)
	if err != nil {
		return Deletable{}, err
	}
	if len(dependent) > 0 {
		return Deletable{
			Deletable:      false,
			BlockingReason: fmt.Sprintf("%d future booking(s) depend on this window", len(dependent)),
		}, nil
	}
	return Deletable{Deletable: true}, nil
}

// DeleteWindow hard-deletes, refusing while future bookings depend on the
// window.
func (m *Manager) DeleteWindow(ctx context.Context, id uuid.UUID) error {
	check, err := m.CheckDeletable(ctx, id)
	if err != nil {
		return err
	}
	if !check.Deletable {
		return fmt.Errorf("%s: %w", check.BlockingReason, store.ErrConflict)
	}
	return m.ForceDeleteWindow(ctx, id)
}

// ForceDeleteWindow skips the dependent-booking check.
func (m *Manager) ForceDeleteWindow(ctx context.Context, id uuid.UUID) error {
	av, err := m.windows.Get(ctx, id)
	if err != nil {
		return err
	}
	return m.windows.Delete(ctx, av.ProviderID, av.ID)
}

// IsAvailable reports whether an active window covers [at, at+duration) on
// that day and no booking occupies any of it.
func (m *Manager) IsAvailable(ctx context.Context, providerID string, at time.Time, durationMinutes int) (bool, error) {
	if durationMinutes <= 0 {
		return false, validationError("duration must be positive")
	}
	iv := domain.NewInterval(at, at.Add(time.Duration(durationMinutes)*time.Minute))

	windows, err := m.windows.ListActiveForDay(ctx, providerID, iv.Start)
	if err != nil {
		return false, err
	}
	covered := false
	for _, w := range windows {
		if w.WindowOn(iv.Start).Contains(iv) {
			covered = true
			break
		}
	}
	if !covered {
		return false, nil
	}

	bookings, err := m.bookings.ListForPeriod(ctx, providerID, iv.Start, iv.End)
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if iv.Overlaps(b.Interval()) {
			return false, nil
		}
	}
	return true, nil
}

// AvailableSlots generates the provider's bookable slots over the period.
// Slots are anchored at each window start, fully contained in their window,
// and filtered against existing bookings.
func (m *Manager) AvailableSlots(ctx context.Context, providerID string, periodStart, periodEnd time.Time, slotMinutes int) ([]domain.TimeSlot, error) {
	if slotMinutes <= 0 {
		return nil, validationError("slot duration must be positive")
	}
	periodStart = periodStart.UTC()
	periodEnd = periodEnd.UTC()
	if !periodEnd.After(periodStart) {
		return nil, validationError("period end must be after period start")
	}

	windows, err := m.windows.ListActive(ctx, providerID)
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return []domain.TimeSlot{}, nil
	}

	bookings, err := m.bookings.ListForPeriod(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}

	slots := []domain.TimeSlot{}
	for day := domain.DayOf(periodStart); day.Before(periodEnd); day = day.AddDate(0, 0, 1) {
		for _, w := range windows {
			if !w.AppliesOn(day) {
				continue
			}
			for _, s := range domain.SlotsInWindow(w.WindowOn(day), w.ID, slotMinutes) {
				if s.Start.Before(periodStart) || s.End.After(periodEnd) {
					continue
				}
				if slotConflicts(s, bookings) {
					continue
				}
				slots = append(slots, s)
			}
		}
	}

	sort.Slice(slots, func(i, j int) bool { return slots[i].Start.Before(slots[j].Start) })
	return slots, nil
}

// OccupancyRate is booked minutes as a percentage of available minutes over
// the period, clamped to [0, 100]. Zero availability yields zero, not an
// error.
func (m *Manager) OccupancyRate(ctx context.Context, providerID string, periodStart, periodEnd time.Time) (float64, error) {
	periodStart = periodStart.UTC()
	periodEnd = periodEnd.UTC()
	if !periodEnd.After(periodStart) {
		return 0, validationError("period end must be after period start")
	}

	windows, err := m.windows.ListActive(ctx, providerID)
	if err != nil {
		return 0, err
	}

	availableMinutes := 0
	for day := domain.DayOf(periodStart); day.Before(periodEnd); day = day.AddDate(0, 0, 1) {
		for _, w := range windows {
			if w.AppliesOn(day) {
				availableMinutes += w.DurationMinutes()
			}
		}
	}
	if availableMinutes == 0 {
		return 0, nil
	}

	bookings, err := m.bookings.ListForPeriod(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return 0, err
	}
	// Only the in-period portion counts; a booking straddling the period
	// edge must not inflate the rate.
	period := domain.Interval{Start: periodStart, End: periodEnd}
	bookedMinutes := 0
	for _, b := range bookings {
		if iv, ok := b.Interval().Intersect(period); ok {
			bookedMinutes += int(iv.Duration() / time.Minute)
		}
	}

	rate := float64(bookedMinutes) / float64(availableMinutes) * 100
	return math.Min(100, rate), nil
}

// CommonAvailabilities intersects every provider's available slots. The
// result narrows monotonically as providers are added and is empty as soon
// as any single provider has no slots.
func (m *Manager) CommonAvailabilities(ctx context.Context, providerIDs []string, periodStart, periodEnd time.Time, durationMinutes int) ([]domain.TimeSlot, error) {
	if len(providerIDs) == 0 {
		return []domain.TimeSlot{}, nil
	}

	common, err := m.AvailableSlots(ctx, providerIDs[0], periodStart, periodEnd, durationMinutes)
	if err != nil {
		return nil, err
	}
	for _, providerID := range providerIDs[1:] {
		if len(common) == 0 {
			return []domain.TimeSlot{}, nil
		}
		slots, err := m.AvailableSlots(ctx, providerID, periodStart, periodEnd, durationMinutes)
		if err != nil {
			return nil, err
		}
		common = domain.IntersectSlots(common, slots, durationMinutes)
	}

	sort.Slice(common, func(i, j int) bool { return common[i].Start.Before(common[j].Start) })
	return common, nil
}

func (m *Manager) dependentBookings(ctx context.Context, av domain.Availability) ([]domain.Booking, error) {
	now := time.Now().UTC()
	bookings, err := m.bookings.ListForPeriod(ctx, av.ProviderID, now, now.Add(store.BookingLookahead))
	if err != nil {
		return nil, err
	}
	var out []domain.Booking
	for _, b := range bookings {
		day := domain.DayOf(b.ScheduledStart)
		if av.AppliesOn(day) && av.WindowOn(day).Overlaps(b.Interval()) {
			out = append(out, b)
		}
	}
	return out, nil
}

func slotConflicts(s domain.TimeSlot, bookings []domain.Booking) bool {
	for _, b := range bookings {
		if s.Interval().Overlaps(b.Interval()) {
			return true
		}
	}
	return false
}

func validateMinuteRange(startMinute, endMinute int) error {
	if startMinute < 0 || endMinute > 24*60 {
		return validationError("window must fall within a single day")
	}
	if startMinute >= endMinute {
		return validationError("start must be before end")
	}
	d := endMinute - startMinute
	if d < domain.MinWindowMinutes || d > domain.MaxWindowMinutes {
		return validationError("window duration must be between %d and %d minutes", domain.MinWindowMinutes, domain.MaxWindowMinutes)
	}
	return nil
}
