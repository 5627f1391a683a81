package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/provider-scheduler/internal/domain"
)

// BookingLookahead bounds how far into the future dependent bookings are
// considered when shrinking or deleting an availability window.
const BookingLookahead = 180 * 24 * time.Hour

type AvailabilityRepository interface {
	Create(ctx context.Context, av domain.Availability) (domain.Availability, error)
	Update(ctx context.Context, av domain.Availability) (domain.Availability, error)
	Delete(ctx context.Context, providerID string, id uuid.UUID) error
	Get(ctx context.Context, id uuid.UUID) (domain.Availability, error)
	ListForProvider(ctx context.Context, providerID string) ([]domain.Availability, error)
	ListActive(ctx context.Context, providerID string) ([]domain.Availability, error)
	ListActiveForDay(ctx context.Context, providerID string, day time.Time) ([]domain.Availability, error)
}

type AbsenceRepository interface {
	Create(ctx context.Context, ab domain.Absence) (domain.Absence, error)
	Update(ctx context.Context, ab domain.Absence) (domain.Absence, error)
	Get(ctx context.Context, id uuid.UUID) (domain.Absence, error)
	ListActiveForPeriod(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Absence, error)
}

// BookingReader is the read-only view onto the booking subsystem. Cancelled
// bookings are excluded from every query.
type BookingReader interface {
	ListForPeriod(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Booking, error)
	// CountReplacements reports how many replacement bookings reference the
	// absence. Replacements live in the booking subsystem; only the count is
	// reachable from here.
	CountReplacements(ctx context.Context, absenceID uuid.UUID) (int, error)
}
