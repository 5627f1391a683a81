package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/example/provider-scheduler/internal/domain"
)

// BookingRepo is a read-only adapter over the booking subsystem's tables.
type BookingRepo struct {
	db *bun.DB
}

func NewBookingRepo(db *bun.DB) *BookingRepo {
	return &BookingRepo{db: db}
}

func (r *BookingRepo) ListForPeriod(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Booking, error) {
	var rows []domain.Booking
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status <> ?", domain.BookingStatusCancelled).
		Where("scheduled_start < ?", periodEnd).
		Where("scheduled_start + make_interval(mins => duration_minutes) > ?", periodStart).
		OrderExpr("scheduled_start ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *BookingRepo) CountReplacements(ctx context.Context, absenceID uuid.UUID) (int, error) {
	count, err := r.db.NewSelect().
		Table("booking_replacements").
		Where("absence_id = ?", absenceID).
		Count(ctx)
	if err != nil {
		return 0, err
	}
	return count, nil
}
