package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

const (
	MinWindowMinutes = 30
	MaxWindowMinutes = 720
)

// Availability is a provider's recurring or one-off bookable window.
// StartMinute/EndMinute are minutes from midnight on the day the window
// applies to; Weekday is meaningful only for recurring windows and
// SpecificDate only for one-off windows.
type Availability struct {
	bun.BaseModel `bun:"table:availabilities"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid"`
	ProviderID   string     `bun:"provider_id,notnull"`
	Weekday      int16      `bun:"weekday,notnull"`
	SpecificDate *time.Time `bun:"specific_date"`
	StartMinute  int        `bun:"start_minute,notnull"`
	EndMinute    int        `bun:"end_minute,notnull"`
	Recurring    bool       `bun:"recurring,notnull"`
	Active       bool       `bun:"active,notnull"`
	CreatedAt    time.Time  `bun:"created_at,notnull"`
	UpdatedAt    time.Time  `bun:"updated_at,notnull"`
}

func (a *Availability) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if a.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			a.ID = id
		}
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
		if a.UpdatedAt.IsZero() {
			a.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		a.UpdatedAt = now
	}
	return nil
}

func (a Availability) DurationMinutes() int {
	return a.EndMinute - a.StartMinute
}

// AppliesOn reports whether the window is in effect on the given UTC day.
func (a Availability) AppliesOn(day time.Time) bool {
	if !a.Active {
		return false
	}
	day = DayOf(day)
	if a.Recurring {
		return int16(day.Weekday()) == a.Weekday
	}
	return a.SpecificDate != nil && DayOf(*a.SpecificDate).Equal(day)
}

// WindowOn materializes the concrete [start, end) interval on the given day.
// The caller is expected to have checked AppliesOn first.
func (a Availability) WindowOn(day time.Time) Interval {
	day = DayOf(day)
	return Interval{
		Start: day.Add(time.Duration(a.StartMinute) * time.Minute),
		End:   day.Add(time.Duration(a.EndMinute) * time.Minute),
	}
}

// Collides reports whether two windows can be in effect on the same calendar
// day with overlapping minute ranges. Recurring windows collide with one-off
// windows whose date falls on the recurring weekday.
func (a Availability) Collides(b Availability) bool {
	if a.StartMinute >= b.EndMinute || b.StartMinute >= a.EndMinute {
		return false
	}
	switch {
	case a.Recurring && b.Recurring:
		return a.Weekday == b.Weekday
	case !a.Recurring && !b.Recurring:
		return a.SpecificDate != nil && b.SpecificDate != nil &&
			DayOf(*a.SpecificDate).Equal(DayOf(*b.SpecificDate))
	case a.Recurring:
		return b.SpecificDate != nil && int16(DayOf(*b.SpecificDate).Weekday()) == a.Weekday
	default:
		return a.SpecificDate != nil && int16(DayOf(*a.SpecificDate).Weekday()) == b.Weekday
	}
}
