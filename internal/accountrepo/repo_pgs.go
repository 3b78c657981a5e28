// Package accountrepo manages repository layer of accounts.
package accountrepo

import (
	"context"
	"database/sql"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/dbpkg"
	"github.com/go-petr/fundsflow/pkg/errorspkg"

	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates account repository layer logic.
type RepoPGS struct {
	db dbpkg.SQLInterface
}

// NewRepoPGS returns account RepoPGS.
func NewRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

const addBalanceQuery = `
UPDATE accounts
SET balance = balance + $1, updated_at = now()
WHERE user_id = $2 AND kind = $3
RETURNING id, user_id, kind, balance, created_at, updated_at
`

// AddBalance changes the account's balance by delta and returns the changed account.
//
// The row lock taken by the update serializes concurrent changes of one
// account, and accounts_balance_check rejects a negative result for every
// kind except loan.
func (r *RepoPGS) AddBalance(ctx context.Context, userID int64, kind domain.AccountKind, delta int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, addBalanceQuery, delta, userID, kind)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Int64("user_id", userID).Str("kind", string(kind)).Int64("delta", delta).Send()

		if err == sql.ErrNoRows {
			return a, domain.ErrAccountNotFound
		}

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Constraint == "accounts_balance_check" {
				return a, domain.ErrInsufficientFunds
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const createQuery = `
INSERT INTO
    accounts (user_id, kind, balance)
VALUES
    ($1, $2, $3)
RETURNING id, user_id, kind, balance, created_at, updated_at
`

// Create creates the account and then returns it.
func (r *RepoPGS) Create(ctx context.Context, userID int64, kind domain.AccountKind, balance int64) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, createQuery, userID, kind, balance)

	a, err := scanAccount(row)
	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Constraint {
			case "accounts_user_id_fkey":
				return a, domain.ErrUserNotFound
			case "accounts_kind_check":
				return a, domain.ErrInvalidAccountKind
			case "accounts_balance_check":
				return a, domain.ErrInsufficientFunds
			}
		}

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const getQuery = `
SELECT
	id, user_id, kind, balance, created_at, updated_at
FROM accounts
WHERE user_id = $1 AND kind = $2
`

// Get returns the account of the given kind of the user.
func (r *RepoPGS) Get(ctx context.Context, userID int64, kind domain.AccountKind) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getQuery, userID, kind)

	a, err := scanAccount(row)
	if err != nil {
		if err == sql.ErrNoRows {
			l.Info().Err(err).Int64("user_id", userID).Str("kind", string(kind)).Send()
			return a, domain.ErrAccountNotFound
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	return a, nil
}

const listQuery = `
SELECT
	id, user_id, kind, balance, created_at, updated_at
FROM accounts
WHERE user_id = $1
ORDER BY id
`

// List returns all accounts of the given user.
func (r *RepoPGS) List(ctx context.Context, userID int64) ([]domain.Account, error) {
	l := zerolog.Ctx(ctx)

	rows, err := r.db.QueryContext(ctx, listQuery, userID)
	if err != nil {
		l.Error().Err(err).Send()
		return nil, errorspkg.ErrInternal
	}
	defer rows.Close()

	items := []domain.Account{}

	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			l.Error().Err(err).Send()
			return nil, errorspkg.ErrInternal
		}

		items = append(items, a)
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

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(row scanner) (domain.Account, error) {
	var a domain.Account

	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Kind,
		&a.Balance,
		&a.CreatedAt,
		&a.UpdatedAt,
	)

	return a, err
}
