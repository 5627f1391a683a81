package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type AbsenceStatus string

const (
	AbsenceStatusActive    AbsenceStatus = "active"
	AbsenceStatusCancelled AbsenceStatus = "cancelled"
)

// Absence is an explicit closed period overriding availability.
type Absence struct {
	bun.BaseModel `bun:"table:absences"`

	ID         uuid.UUID     `bun:"id,pk,type:uuid"`
	ProviderID string        `bun:"provider_id,notnull"`
	StartDate  time.Time     `bun:"start_date,notnull"`
	EndDate    time.Time     `bun:"end_date,notnull"`
	Reason     string        `bun:"reason"`
	Status     AbsenceStatus `bun:"status,notnull"`
	CreatedAt  time.Time     `bun:"created_at,notnull"`
	UpdatedAt  time.Time     `bun:"updated_at,notnull"`
}

func (ab *Absence) BeforeAppendModel(ctx context.Context, query bun.Query) error {
	now := time.Now().UTC()
	switch query.(type) {
	case *bun.InsertQuery:
		if ab.ID == uuid.Nil {
			id, err := uuid.NewV7()
			if err != nil {
				return err
			}
			ab.ID = id
		}
		if ab.CreatedAt.IsZero() {
			ab.CreatedAt = now
		}
		if ab.UpdatedAt.IsZero() {
			ab.UpdatedAt = now
		}
	case *bun.UpdateQuery:
		ab.UpdatedAt = now
	}
	return nil
}

func (ab Absence) Interval() Interval {
	return Interval{Start: ab.StartDate.UTC(), End: ab.EndDate.UTC()}
}

func (ab Absence) IsActive() bool {
	return ab.Status == AbsenceStatusActive
}
