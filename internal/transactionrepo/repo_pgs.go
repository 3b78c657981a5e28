// Package transactionrepo manages repository layer of the payments journal.
package transactionrepo

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

// RepoPGS facilitates transaction repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns transaction RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const columns = `id, user_id, amount, destination, account_kind, kind, status, failure_reason,
	recurring_payment_id, created_at, completed_at`

const createQuery = `
INSERT INTO
    transactions (user_id, amount, destination, account_kind, kind, recurring_payment_id)
VALUES
    ($1, $2, $3, $4, $5, $6)
RETURNING ` + columns

// Create records the PENDING transaction and then returns it.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery,
		arg.UserID,
		arg.Amount,
		arg.Destination,
		arg.AccountKind,
		arg.Kind,
		arg.RecurringPaymentID,
	)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", arg)

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "transactions_amount_check":
				return t, domain.ErrInvalidAmount
			case "transactions_account_kind_check":
				return t, domain.ErrInvalidAccountKind
			case "transactions_kind_check":
				return t, domain.ErrInvalidTransactionKind
			case "transactions_recurring_payment_id_fkey":
				return t, domain.ErrRecurringPaymentNotFound
			}
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const completeQuery = `
UPDATE transactions
SET status = $2, failure_reason = $3, completed_at = now()
WHERE id = $1 AND status = 'PENDING'
RETURNING ` + columns

// Complete moves the PENDING transaction to a terminal state.
//
// A transaction that is already SUCCESS or FAILED is never changed.
func (r *RepoPGS) Complete(ctx context.Context, arg domain.CompleteTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if !arg.Status.IsTerminal() {
		return domain.Transaction{}, domain.ErrValidation
	}

	row := r.db.QueryRowContext(ctx, completeQuery, arg.ID, arg.Status, arg.FailureReason)

	t, err := scanTransaction(row)
	if err == nil {
		return t, nil
	}

	if err != sql.ErrNoRows {
		l.Error().Err(err).Send()
		return t, errorspkg.ErrInternal
	}

	if _, err := r.Get(ctx, arg.ID); err != nil {
		return t, err
	}

	l.Warn().Int64("transaction_id", arg.ID).Err(domain.ErrTransactionFinalized).Send()

	return t, domain.ErrTransactionFinalized
}

const getQuery = `
SELECT ` + columns + `
FROM transactions
WHERE id = $1
`

// Get returns the transaction with the given id.
func (r *RepoPGS) Get(ctx context.Context, id int64) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, id)

	t, err := scanTransaction(row)
	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return t, domain.ErrTransactionNotFound
		}

		return t, errorspkg.ErrInternal
	}

	return t, nil
}

const listQuery = `
SELECT ` + columns + `
FROM transactions
WHERE user_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3
`

// List returns the specified page of the user's transactions, newest first.
func (r *RepoPGS) List(ctx context.Context, userID int64, limit, offset int32) ([]domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, userID, limit, offset)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Transaction{}

	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, t)
	}

	if err := rows.Close(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	if err := rows.Err(); err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}

	return items, nil
}

const countQuery = `
SELECT count(*)
FROM transactions
WHERE user_id = $1
`

// Count returns the number of the user's transactions.
func (r *RepoPGS) Count(ctx context.Context, userID int64) (int64, error) {
	l := zerolog.Ctx(ctx)

	var n int64
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&n); err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.ErrInternal
	}

	return n, nil
}

const failStaleQuery = `
UPDATE transactions
SET status = 'FAILED', failure_reason = $2, completed_at = now()
WHERE status = 'PENDING' AND created_at < $1
`

// FailStale marks PENDING transactions created before olderThan as FAILED and
// returns how many were changed.
func (r *RepoPGS) FailStale(ctx context.Context, olderThan time.Time, reason string) (int64, error) {
	l := zerolog.Ctx(ctx)

	res, err := r.db.ExecContext(ctx, failStaleQuery, olderThan, reason)
	if err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.ErrInternal
	}

	n, err := res.RowsAffected()
	if err != nil {
		l.Error().Err(err).Send()
		return 0, errorspkg.ErrInternal
	}

	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var (
		t           domain.Transaction
		recurringID sql.NullInt64
		completedAt sql.NullTime
	)

	err := row.Scan(
		&t.ID,
		&t.UserID,
		&t.Amount,
		&t.Destination,
		&t.AccountKind,
		&t.Kind,
		&t.Status,
		&t.FailureReason,
		&recurringID,
		&t.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return domain.Transaction{}, err
	}

	if recurringID.Valid {
		t.RecurringPaymentID = &recurringID.Int64
	}

	if completedAt.Valid {
		t.CompletedAt = &completedAt.Time
	}

	return t, nil
}
