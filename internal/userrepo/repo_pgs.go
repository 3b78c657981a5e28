// Package userrepo manages repository layer of users.
package userrepo

import (
	"context"
	"database/sql"

	"github.com/go-petr/fundsflow/internal/accountrepo"
	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/dbpkg"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
)

// RepoPGS facilitates user repository layer logic.
type RepoPGS struct {
	db   dbpkg.SQLInterface
	conn *sql.DB
}

// NewTxRepoPGS returns user RepoPGS running inside the transaction the caller owns.
func NewTxRepoPGS(db dbpkg.SQLInterface) *RepoPGS {
	return &RepoPGS{
		db: db,
	}
}

// NewRepoPGS returns user RepoPGS with connection to start transactions.
func NewRepoPGS(db *sql.DB) *RepoPGS {
	return &RepoPGS{
		db:   db,
		conn: db,
	}
}

const createQuery = `
INSERT INTO users (
    email,
    hashed_password
) VALUES (
    $1, $2
) RETURNING id, email, hashed_password, created_at
`

// Create creates the user together with one account of every kind holding the
// initial balance, within a single db transaction.
func (r *RepoPGS) Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, []domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if r.conn == nil {
		return r.create(ctx, r.db, arg)
	}

	tx, err := r.conn.BeginTx(ctx, nil)
	if err != nil {
		l.Error().Err(err).Send()
		return domain.User{}, nil, errorspkg.ErrInternal
	}

	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			l.Error().Err(err).Send()
		}
	}()

	u, accounts, err := r.create(ctx, tx, arg)
	if err != nil {
		return u, nil, err
	}

	if err := tx.Commit(); err != nil {
		l.Error().Err(err).Send()
		return domain.User{}, nil, errorspkg.ErrInternal
	}

	return u, accounts, nil
}

func (r *RepoPGS) create(ctx context.Context, db dbpkg.SQLInterface, arg domain.CreateUserParams) (domain.User, []domain.Account, error) {
	l := zerolog.Ctx(ctx)

	row := db.QueryRowContext(ctx, createQuery, arg.Email, arg.HashedPassword)

	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if pqErr, ok := err.(*pq.Error); ok {
			if pqErr.Code.Name() == "unique_violation" && pqErr.Constraint == "users_email_key" {
				return u, nil, domain.ErrEmailAlreadyExists
			}
		}

		return u, nil, errorspkg.ErrInternal
	}

	accountRepo := accountrepo.NewRepoPGS(db)
	accounts := make([]domain.Account, 0, len(domain.AccountKinds))

	for _, kind := range domain.AccountKinds {
		a, err := accountRepo.Create(ctx, u.ID, kind, arg.InitialBalance)
		if err != nil {
			return domain.User{}, nil, err
		}

		accounts = append(accounts, a)
	}

	return u, accounts, nil
}

const getByEmailQuery = `
SELECT
	id,
	email,
	hashed_password,
	created_at
FROM users
WHERE email = $1
`

// GetByEmail returns the user with the given email.
func (r *RepoPGS) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	l := zerolog.Ctx(ctx)

	row := r.db.QueryRowContext(ctx, getByEmailQuery, email)

	var u domain.User

	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.HashedPassword,
		&u.CreatedAt,
	)

	if err != nil {
		l.Error().Err(err).Send()

		if err == sql.ErrNoRows {
			return u, domain.ErrUserNotFound
		}

		return u, errorspkg.ErrInternal
	}

	return u, nil
}
