package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/example/provider-scheduler/internal/domain"
	"github.com/example/provider-scheduler/internal/store"
)

type AbsenceRepo struct {
	db *bun.DB
}

func NewAbsenceRepo(db *bun.DB) *AbsenceRepo {
	return &AbsenceRepo{db: db}
}

func (r *AbsenceRepo) Create(ctx context.Context, ab domain.Absence) (domain.Absence, error) {
	m := ab
	err := r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderCalendar(ctx, tx, ab.ProviderID); err != nil {
			return err
		}
		_, err := tx.NewInsert().Model(&m).Exec(ctx)
		return err
	})
	if err != nil {
		return domain.Absence{}, err
	}
	return m, nil
}

func (r *AbsenceRepo) Update(ctx context.Context, ab domain.Absence) (domain.Absence, error) {
	m := ab
	res, err := r.db.NewUpdate().
		Model(&m).
		Column("start_date", "end_date", "reason", "status", "updated_at").
		Where("id = ?", m.ID).
		Exec(ctx)
	if err != nil {
		return domain.Absence{}, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Absence{}, err
	}
	if affected == 0 {
		return domain.Absence{}, store.ErrNotFound
	}
	return m, nil
}

func (r *AbsenceRepo) Get(ctx context.Context, id uuid.UUID) (domain.Absence, error) {
	var row domain.Absence
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Absence{}, store.ErrNotFound
		}
		return domain.Absence{}, err
	}
	return row, nil
}

func (r *AbsenceRepo) ListActiveForPeriod(ctx context.Context, providerID string, periodStart, periodEnd time.Time) ([]domain.Absence, error) {
	var rows []domain.Absence
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("status = ?", domain.AbsenceStatusActive).
		Where("start_date < ?", periodEnd).
		Where("end_date > ?", periodStart).
		OrderExpr("start_date ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}
