// Package recurringrepo manages repository layer of recurring payments.
package recurringrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/dbpkg"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates recurring payment repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns recurring payment RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const columns = `id, user_id, amount, destination, account_kind, payment_interval, next_run_at,
	last_run_at, created_at`

const createQuery = `
INSERT INTO
    recurring_payments (user_id, amount, destination, account_kind, payment_interval, next_run_at)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING ` + columns

// Create creates the recurring payment and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateRecurringPaymentParams) (domain.RecurringPayment, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.UserID,
		arg.Amount,
		arg.Destination,
		arg.AccountKind,
		arg.Interval,
		arg.NextRunAt,
	)

	rp, err := scanRecurringPayment(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "recurring_payments_amount_check":
				return rp, domain.ErrInvalidAmount
			case "recurring_payments_account_kind_check":
				return rp, domain.ErrInvalidAccountKind
			case "recurring_payments_payment_interval_check":
				return rp, domain.ErrInvalidInterval
			}
		}

		return rp, errorspkg.ErrInternal
	}

	return rp, nil
}

const listByUserQuery = `
SELECT ` + columns + `
FROM recurring_payments
WHERE user_id = $1
ORDER BY id
`

// ListByUser returns the recurring payments of the user.
func (r *RepoPGS) ListByUser(ctx context.Context, userID int64) ([]domain.RecurringPayment, error) {
	return r.list(ctx, listByUserQuery, userID)
}

const listDueQuery = `
SELECT ` + columns + `
FROM recurring_payments
WHERE next_run_at <= $1
ORDER BY next_run_at, id
`

// ListDue returns the recurring payments whose next run is not after now.
func (r *RepoPGS) ListDue(ctx context.Context, now time.Time) ([]domain.RecurringPayment, error) {
	return r.list(ctx, listDueQuery, now)
}

func (r *RepoPGS) list(ctx context.Context, query string, arg interface{}) ([]domain.RecurringPayment, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.RecurringPayment{}

	for rows.Next() {
		rp, err := scanRecurringPayment(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, rp)
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const advanceQuery = `
UPDATE recurring_payments
SET last_run_at = $2, next_run_at = $3
WHERE id = $1
RETURNING ` + columns

// Advance records a run of the recurring payment and schedules the next one.
func (r *RepoPGS) Advance(ctx context.Context, id int64, lastRunAt, nextRunAt time.Time) (domain.RecurringPayment, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, advanceQuery, id, lastRunAt, nextRunAt)

	rp, err := scanRecurringPayment(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return rp, domain.ErrRecurringPaymentNotFound
		}

		l.Error().Err(err).Int64("recurring_payment_id", id).Send()

		return rp, errorspkg.ErrInternal
	}

	return rp, nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecurringPayment(s scanner) (domain.RecurringPayment, error) {
	var (
		rp        domain.RecurringPayment
		lastRunAt sql.NullTime
	)

	err := s.Scan(
		&rp.ID,
		&rp.UserID,
		&rp.Amount,
		&rp.Destination,
		&rp.AccountKind,
		&rp.Interval,
		&rp.NextRunAt,
		&lastRunAt,
		&rp.CreatedAt,
	)
	if err != nil {
		return domain.RecurringPayment{}, err
	}

	if lastRunAt.Valid {
		t := lastRunAt.Time
		rp.LastRunAt = &t
	}

	return rp, nil
}
