package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/provider-scheduler/internal/domain"
	"github.com/example/provider-scheduler/internal/service/availability"
	"github.com/example/provider-scheduler/internal/service/conflict"
	"github.com/example/provider-scheduler/internal/service/optimizer"
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

// DefaultNextSlotHorizon bounds the forward scan of FindNextAvailableSlot.
const DefaultNextSlotHorizon = 60 * 24 * time.Hour

// Service is the single entry point external callers use. Availability and
// occupancy operations delegate to the manager; the service itself owns
// absence bookkeeping and whole-period schedule assembly.
type Service struct {
	windows   store.AvailabilityRepository
	absences  store.AbsenceRepository
	bookings  store.BookingReader
	manager   *availability.Manager
	detector  *conflict.Detector
	optimizer *optimizer.Optimizer
	horizon   time.Duration
}

func NewService(windows store.AvailabilityRepository, absences store.AbsenceRepository, bookings store.BookingReader, opt *optimizer.Optimizer, nextSlotHorizon time.Duration) *Service {
	if nextSlotHorizon <= 0 {
		nextSlotHorizon = DefaultNextSlotHorizon
	}
	return &Service{
		windows:   windows,
		absences:  absences,
		bookings:  bookings,
		manager:   availability.NewManager(windows, bookings),
		detector:  conflict.NewDetector(windows, absences, bookings),
		optimizer: opt,
		horizon:   nextSlotHorizon,
	}
}

// Availability operations delegate 1:1 to the manager.

func (s *Service) CreateAvailability(ctx context.Context, in availability.CreateWindowInput) (domain.Availability, error) {
	return s.manager.CreateWindow(ctx, in)
}

func (s *Service) UpdateAvailability(ctx context.Context, id uuid.UUID, startMinute, endMinute int) (domain.Availability, error) {
	return s.manager.UpdateWindow(ctx, id, startMinute, endMinute)
}

func (s *Service) DisableAvailability(ctx context.Context, id uuid.UUID) (domain.Availability, error) {
	return s.manager.DisableWindow(ctx, id)
}

func (s *Service) CheckAvailabilityDeletable(ctx context.Context, id uuid.UUID) (availability.Deletable, error) {
	return s.manager.CheckDeletable(ctx, id)
}

func (s *Service) DeleteAvailability(ctx context.Context, id uuid.UUID) error {
	return s.manager.DeleteWindow(ctx, id)
}

func (s *Service) ForceDeleteAvailability(ctx context.Context, id uuid.UUID) error {
	return s.manager.ForceDeleteWindow(ctx, id)
}

func (s *Service) AvailableSlots(ctx context.Context, providerID string, periodStart, periodEnd time.Time, slotMinutes int) ([]domain.TimeSlot, error) {
	return s.manager.AvailableSlots(ctx, providerID, periodStart, periodEnd, slotMinutes)
}

func (s *Service) OccupancyRate(ctx context.Context, providerID string, periodStart, periodEnd time.Time) (float64, error) {
	return s.manager.OccupancyRate(ctx, providerID, periodStart, periodEnd)
}

func (s *Service) CommonAvailabilities(ctx context.Context, providerIDs []string, periodStart, periodEnd time.Time, durationMinutes int) ([]domain.TimeSlot, error) {
	return s.manager.CommonAvailabilities(ctx, providerIDs, periodStart, periodEnd, durationMinutes)
}

func (s *Service) DetectConflicts(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Conflict, error) {
	return s.detector.DetectAll(ctx, providerID, periodStart, periodEnd)
}

type CreateAbsenceInput struct {
	ProviderID string
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
}

// CreateAbsence records a closed period for the provider. A period that
// overlaps committed bookings is rejected; the overlaps are reported back so
// the caller can rebook or replace them first.
func (s *Service) CreateAbsence(ctx context.Context, in CreateAbsenceInput) (domain.Absence, []domain.Conflict, error) {
	if in.ProviderID == "" {
		return domain.Absence{}, nil, validationError("provider id is required")
	}
	if !in.EndDate.After(in.StartDate) {
		return domain.Absence{}, nil, validationError("absence end %s is not after start %s", in.EndDate, in.StartDate)
	}

	conflicts, err := s.bookingOverlaps(ctx, in.ProviderID, in.StartDate, in.EndDate)
	if err != nil {
		return domain.Absence{}, nil, err
	}
	if len(conflicts) > 0 {
		return domain.Absence{}, conflicts, fmt.Errorf("absence overlaps %d bookings: %w", len(conflicts), store.ErrConflict)
	}

	created, err := s.absences.Create(ctx, domain.Absence{
		ProviderID: in.ProviderID,
		StartDate:  in.StartDate.UTC(),
		EndDate:    in.EndDate.UTC(),
		Reason:     in.Reason,
		Status:     domain.AbsenceStatusActive,
	})
	if err != nil {
		return domain.Absence{}, nil, err
	}
	return created, nil, nil
}

// UpdateAbsence moves or relabels an active absence. Cancelled absences are
// immutable.
func (s *Service) UpdateAbsence(ctx context.Context, id uuid.UUID, startDate, endDate time.Time, reason string) (domain.Absence, []domain.Conflict, error) {
	existing, err := s.absences.Get(ctx, id)
	if err != nil {
		return domain.Absence{}, nil, err
	}
	if !existing.IsActive() {
		return domain.Absence{}, nil, validationError("absence %s is cancelled and cannot be updated", id)
	}
	if !endDate.After(startDate) {
		return domain.Absence{}, nil, validationError("absence end %s is not after start %s", endDate, startDate)
	}

	conflicts, err := s.bookingOverlaps(ctx, existing.ProviderID, startDate, endDate)
	if err != nil {
		return domain.Absence{}, nil, err
	}
	if len(conflicts) > 0 {
		return domain.Absence{}, conflicts, fmt.Errorf("absence overlaps %d bookings: %w", len(conflicts), store.ErrConflict)
	}

	existing.StartDate = startDate.UTC()
	existing.EndDate = endDate.UTC()
	existing.Reason = reason
	updated, err := s.absences.Update(ctx, existing)
	if err != nil {
		return domain.Absence{}, nil, err
	}
	return updated, nil, nil
}

// CancelAbsence is a status transition, not a delete. It is blocked while
// replacement bookings created for the absence still exist in the booking
// subsystem.
func (s *Service) CancelAbsence(ctx context.Context, id uuid.UUID) (domain.Absence, error) {
	existing, err := s.absences.Get(ctx, id)
	if err != nil {
		return domain.Absence{}, err
	}
	if !existing.IsActive() {
		return domain.Absence{}, validationError("absence %s is already cancelled", id)
	}

	replacements, err := s.bookings.CountReplacements(ctx, id)
	if err != nil {
		return domain.Absence{}, err
	}
	if replacements > 0 {
		return domain.Absence{}, fmt.Errorf("absence %s has %d replacement bookings: %w", id, replacements, store.ErrConflict)
	}

	existing.Status = domain.AbsenceStatusCancelled
	return s.absences.Update(ctx, existing)
}

func (s *Service) bookingOverlaps(ctx context.Context, providerID string, start, end time.Time) ([]domain.Conflict, error) {
	bookings, err := s.bookings.ListForPeriod(ctx, providerID, start, end)
	if err != nil {
		return nil, err
	}
	var conflicts []domain.Conflict
	for _, b := range bookings {
		if !domain.IntervalsOverlap(b.ScheduledStart, b.End(), start, end) {
			continue
		}
		conflicts = append(conflicts, domain.Conflict{
			Kind:       domain.ConflictAbsenceOverlap,
			ProviderID: providerID,
			Start:      b.ScheduledStart.UTC(),
			End:        b.End().UTC(),
			BookingID:  b.ID,
		})
	}
	return conflicts, nil
}

type CompleteSchedule struct {
	ProviderID     string
	PeriodStart    time.Time
	PeriodEnd      time.Time
	Availabilities []domain.Availability
	Bookings       []domain.Booking
	Absences       []domain.Absence
	Conflicts      []domain.Conflict
}

// GetCompleteSchedule assembles everything known about the provider's period
// in one read: windows, bookings, absences, and the conflicts among them.
func (s *Service) GetCompleteSchedule(ctx context.Context, providerID string, periodStart, periodEnd time.Time) (CompleteSchedule, error) {
	windows, err := s.windows.ListActive(ctx, providerID)
	if err != nil {
		return CompleteSchedule{}, err
	}
	bookings, err := s.bookings.ListForPeriod(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return CompleteSchedule{}, err
	}
	absences, err := s.absences.ListActiveForPeriod(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return CompleteSchedule{}, err
	}
	conflicts, err := s.detector.DetectAll(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return CompleteSchedule{}, err
	}
	return CompleteSchedule{
		ProviderID:     providerID,
		PeriodStart:    periodStart.UTC(),
		PeriodEnd:      periodEnd.UTC(),
		Availabilities: windows,
		Bookings:       bookings,
		Absences:       absences,
		Conflicts:      conflicts,
	}, nil
}

// IsPeriodFree reports whether the period overlaps no absence, overlaps no
// booking, and falls inside the provider's availability.
func (s *Service) IsPeriodFree(ctx context.Context, providerID string, periodStart, periodEnd time.Time) (bool, error) {
	if !periodEnd.After(periodStart) {
		return false, validationError("period end %s is not after start %s", periodEnd, periodStart)
	}

	absences, err := s.absences.ListActiveForPeriod(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return false, err
	}
	for _, ab := range absences {
		if ab.IsActive() && domain.IntervalsOverlap(ab.StartDate, ab.EndDate, periodStart, periodEnd) {
			return false, nil
		}
	}

	bookings, err := s.bookings.ListForPeriod(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if domain.IntervalsOverlap(b.ScheduledStart, b.End(), periodStart, periodEnd) {
			return false, nil
		}
	}

	// Round sub-minute remainders up so a short period still asks the
	// availability check a positive-length question.
	minutes := int((periodEnd.Sub(periodStart) + time.Minute - 1) / time.Minute)
	return s.manager.IsAvailable(ctx, providerID, periodStart, minutes)
}

// FindNextAvailableSlot scans forward day by day from the given instant and
// returns the first free slot of the requested length. Slots inside an
// active absence are skipped. The scan is bounded by the configured horizon;
// store.ErrNotFound when nothing is free inside it.
func (s *Service) FindNextAvailableSlot(ctx context.Context, providerID string, after time.Time, durationMinutes int) (domain.TimeSlot, error) {
	after = after.UTC()
	limit := after.Add(s.horizon)

	for day := domain.DayOf(after); day.Before(limit); day = day.AddDate(0, 0, 1) {
		slots, err := s.manager.AvailableSlots(ctx, providerID, day, day.AddDate(0, 0, 1), durationMinutes)
		if err != nil {
			return domain.TimeSlot{}, err
		}
		if len(slots) == 0 {
			continue
		}
		absences, err := s.absences.ListActiveForPeriod(ctx, providerID, day, day.AddDate(0, 0, 1))
		if err != nil {
			return domain.TimeSlot{}, err
		}
		for _, slot := range slots {
			if slot.Start.Before(after) || slotInAbsence(slot, absences) {
				continue
			}
			return slot, nil
		}
	}
	return domain.TimeSlot{}, fmt.Errorf("no free %d-minute slot within %s of %s: %w", durationMinutes, s.horizon, after, store.ErrNotFound)
}

func slotInAbsence(slot domain.TimeSlot, absences []domain.Absence) bool {
	for _, ab := range absences {
		if ab.IsActive() && slot.Interval().Overlaps(ab.Interval()) {
			return true
		}
	}
	return false
}
