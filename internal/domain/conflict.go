package domain

import (
	"time"

	"github.com/google/uuid"
)

type ConflictKind string

const (
	ConflictDoubleBooking       ConflictKind = "double_booking"
	ConflictAbsenceOverlap      ConflictKind = "absence_overlap"
	ConflictOutsideAvailability ConflictKind = "outside_availability"
)

// Conflict describes one overlap between a booking and another booking, an
// absence, or the complement of the provider's availability.
type Conflict struct {
	Kind           ConflictKind
	ProviderID     string
	Start          time.Time
	End            time.Time
	BookingID      uuid.UUID
	OtherBookingID uuid.UUID
	AbsenceID      uuid.UUID
}
