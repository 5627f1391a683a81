package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"github.com/example/provider-scheduler/internal/domain"
	"github.com/example/provider-scheduler/internal/store"
)

type AvailabilityRepo struct {
	db *bun.DB
}

func NewAvailabilityRepo(db *bun.DB) *AvailabilityRepo {
	return &AvailabilityRepo{db: db}
}

// Create inserts the window after re-checking for colliding active windows
// inside a provider-locked transaction, so concurrent creates cannot slip
// past each other.
func (r *AvailabilityRepo) Create(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	var out domain.Availability
	err := r.inProviderTransaction(ctx, av.ProviderID, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureNoWindowCollision(ctx, tx, av); err != nil {
			return err
		}
		m := av
		if _, err := tx.NewInsert().Model(&m).Exec(ctx); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23P01" {
				return store.ErrConflict
			}
			return err
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Availability{}, err
	}
	return out, nil
}

func (r *AvailabilityRepo) Update(ctx context.Context, av domain.Availability) (domain.Availability, error) {
	var out domain.Availability
	err := r.inProviderTransaction(ctx, av.ProviderID, func(ctx context.Context, tx bun.Tx) error {
		if err := ensureNoWindowCollision(ctx, tx, av); err != nil {
			return err
		}
		m := av
		res, err := tx.NewUpdate().
			Model(&m).
			Column("weekday", "specific_date", "start_minute", "end_minute", "recurring", "active", "updated_at").
			Where("id = ?", m.ID).
			Where("provider_id = ?", m.ProviderID).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		out = m
		return nil
	})
	if err != nil {
		return domain.Availability{}, err
	}
	return out, nil
}

func (r *AvailabilityRepo) Delete(ctx context.Context, providerID string, id uuid.UUID) error {
	return r.inProviderTransaction(ctx, providerID, func(ctx context.Context, tx bun.Tx) error {
		res, err := tx.NewDelete().
			Model((*domain.Availability)(nil)).
			Where("provider_id = ?", providerID).
			Where("id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}

func (r *AvailabilityRepo) Get(ctx context.Context, id uuid.UUID) (domain.Availability, error) {
	var row domain.Availability
	err := r.db.NewSelect().
		Model(&row).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Availability{}, store.ErrNotFound
		}
		return domain.Availability{}, err
	}
	return row, nil
}

func (r *AvailabilityRepo) ListForProvider(ctx context.Context, providerID string) ([]domain.Availability, error) {
	var rows []domain.Availability
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		OrderExpr("weekday ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) ListActive(ctx context.Context, providerID string) ([]domain.Availability, error) {
	var rows []domain.Availability
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("active").
		OrderExpr("weekday ASC, start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) ListActiveForDay(ctx context.Context, providerID string, day time.Time) ([]domain.Availability, error) {
	day = domain.DayOf(day)
	var rows []domain.Availability
	err := r.db.NewSelect().
		Model(&rows).
		Where("provider_id = ?", providerID).
		Where("active").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.
				WhereOr("recurring AND weekday = ?", int16(day.Weekday())).
				WhereOr("NOT recurring AND specific_date = ?", day)
		}).
		OrderExpr("start_minute ASC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *AvailabilityRepo) inProviderTransaction(ctx context.Context, providerID string, fn func(ctx context.Context, tx bun.Tx) error) error {
	return r.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := lockProviderCalendar(ctx, tx, providerID); err != nil {
			return err
		}
		return fn(ctx, tx)
	})
}

func lockProviderCalendar(ctx context.Context, tx bun.Tx, providerID string) error {
	_, err := tx.NewRaw("SELECT pg_advisory_xact_lock(hashtext(?))", providerID).Exec(ctx)
	return err
}

func ensureNoWindowCollision(ctx context.Context, tx bun.Tx, av domain.Availability) error {
	if !av.Active {
		return nil
	}
	var rows []domain.Availability
	err := tx.NewSelect().
		Model(&rows).
		Where("provider_id = ?", av.ProviderID).
		Where("active").
		Where("id <> ?", av.ID).
		Scan(ctx)
	if err != nil {
		return err
	}
	for _, existing := range rows {
		if av.Collides(existing) {
			return store.ErrConflict
		}
	}
	return nil
}
