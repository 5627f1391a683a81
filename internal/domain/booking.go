package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const BookingStatusCancelled = "cancelled"

// Booking is owned by the booking subsystem; the scheduling core reads it as
// an opaque interval with a location.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	ID                uuid.UUID `bun:"id,pk,type:uuid"`
	ProviderID        string    `bun:"provider_id,notnull"`
	ScheduledStart    time.Time `bun:"scheduled_start,notnull"`
	DurationMinutes   int       `bun:"duration_minutes,notnull"`
	Address           string    `bun:"address"`
	Status            string    `bun:"status,notnull"`
	PreferredByClient bool      `bun:"preferred_by_client,notnull"`
	Pinned            bool      `bun:"pinned,notnull"`
}

func (b Booking) End() time.Time {
	return b.ScheduledStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

func (b Booking) Interval() Interval {
	return Interval{Start: b.ScheduledStart.UTC(), End: b.End().UTC()}
}

// Fixed bookings keep their time during optimization.
func (b Booking) Fixed() bool {
	return b.PreferredByClient || b.Pinned
}
