package conflict

import (
	"context"
	"sort"
	"time"

	"github.com/example/provider-scheduler/internal/domain"
	"github.com/example/provider-scheduler/internal/store"
)

// Detector answers overlap questions across a provider's bookings, absences
// and availability windows. Pure read path; no method mutates anything.
type Detector struct {
	availabilities store.AvailabilityRepository
	absences       store.AbsenceRepository
	bookings       store.BookingReader
}

func NewDetector(availabilities store.AvailabilityRepository, absences store.AbsenceRepository, bookings store.BookingReader) *Detector {
	return &Detector{availabilities: availabilities, absences: absences, bookings: bookings}
}

// HasConflict reports whether the proposed interval overlaps a committed
// booking or an active absence of the provider.
func (d *Detector) HasConflict(ctx context.Context, providerID string, proposedStart, proposedEnd time.Time) (bool, error) {
	iv := domain.NewInterval(proposedStart, proposedEnd)
	if !iv.IsValid() {
		return false, nil
	}

	bookings, err := d.bookings.ListForPeriod(ctx, providerID, iv.Start, iv.End)
	if err != nil {
		return false, err
	}
	for _, b := range bookings {
		if iv.Overlaps(b.Interval()) {
			return true, nil
		}
	}

	absences, err := d.absences.ListActiveForPeriod(ctx, providerID, iv.Start, iv.End)
	if err != nil {
		return false, err
	}
	for _, ab := range absences {
		if iv.Overlaps(ab.Interval()) {
			return true, nil
		}
	}
	return false, nil
}

// DetectAll lists every conflict in the period: double bookings, bookings
// inside absences, and bookings outside every active availability window.
// An empty period yields an empty list, never an error.
func (d *Detector) DetectAll(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Conflict, error) {
	bookings, err := d.bookings.ListForPeriod(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	if len(bookings) == 0 {
		return []domain.Conflict{}, nil
	}

	absences, err := d.absences.ListActiveForPeriod(ctx, providerID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	windows, err := d.availabilities.ListActive(ctx, providerID)
	if err != nil {
		return nil, err
	}

	return CheckBookings(providerID, bookings, absences, windows), nil
}

// CheckBookings evaluates an explicit booking set against absences and
// windows without touching the store. The optimizer uses it to test proposed
// schedules before anything is persisted.
func CheckBookings(providerID string, bookings []domain.Booking, absences []domain.Absence, windows []domain.Availability) []domain.Conflict {
	sorted := make([]domain.Booking, len(bookings))
	copy(sorted, bookings)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].ScheduledStart.Before(sorted[j].ScheduledStart)
	})

	conflicts := []domain.Conflict{}

	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if !sorted[i].Interval().Overlaps(sorted[j].Interval()) {
				break
			}
			conflicts = append(conflicts, domain.Conflict{
				Kind:           domain.ConflictDoubleBooking,
				ProviderID:     providerID,
				Start:          sorted[j].ScheduledStart.UTC(),
				End:            minTime(sorted[i].End(), sorted[j].End()).UTC(),
				BookingID:      sorted[i].ID,
				OtherBookingID: sorted[j].ID,
			})
		}
	}

	for _, b := range sorted {
		for _, ab := range absences {
			if !ab.IsActive() || !b.Interval().Overlaps(ab.Interval()) {
				continue
			}
			conflicts = append(conflicts, domain.Conflict{
				Kind:       domain.ConflictAbsenceOverlap,
				ProviderID: providerID,
				Start:      b.ScheduledStart.UTC(),
				End:        b.End().UTC(),
				BookingID:  b.ID,
				AbsenceID:  ab.ID,
			})
		}
	}

	for _, b := range sorted {
		if coveredByWindow(b, windows) {
			continue
		}
		conflicts = append(conflicts, domain.Conflict{
			Kind:       domain.ConflictOutsideAvailability,
			ProviderID: providerID,
			Start:      b.ScheduledStart.UTC(),
			End:        b.End().UTC(),
			BookingID:  b.ID,
		})
	}

	return conflicts
}

func coveredByWindow(b domain.Booking, windows []domain.Availability) bool {
	day := domain.DayOf(b.ScheduledStart)
	for _, w := range windows {
		if w.AppliesOn(day) && w.WindowOn(day).Contains(b.Interval()) {
			return true
		}
	}
	return false
}

func minTime(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}
