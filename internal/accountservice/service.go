// Package accountservice manages business logic layer of accounts.
package accountservice

import (
	"context"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by account service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package accountservice
type Repo interface {
	Get(ctx context.Context, userID int64, kind domain.AccountKind) (domain.Account, error)
	List(ctx context.Context, userID int64) ([]domain.Account, error)
	AddBalance(ctx context.Context, userID int64, kind domain.AccountKind, delta int64) (domain.Account, error)
}

// IdempotencyStore keeps the outcome of balance changes made with a request id.
type IdempotencyStore interface {
	Reserve(ctx context.Context, userID int64, requestID string) (bool, error)
	Load(ctx context.Context, userID int64, requestID string) (domain.Account, error)
	Store(ctx context.Context, userID int64, requestID string, a domain.Account) error
	Release(ctx context.Context, userID int64, requestID string) error
}

// Service facilitates account service layer logic.
type Service struct {
	repo        Repo
	idempotency IdempotencyStore
}

// New returns account service struct to manage account bussines logic.
//
// Request ids are ignored when the idempotency store is nil.
func New(ar Repo, is IdempotencyStore) *Service {
	return &Service{
		repo:        ar,
		idempotency: is,
	}
}

// GetBalance returns the account of the given kind of the user.
func (s *Service) GetBalance(ctx context.Context, userID int64, kind domain.AccountKind) (domain.Account, error) {
	if err := validate(userID, kind); err != nil {
		return domain.Account{}, err
	}

	return s.repo.Get(ctx, userID, kind)
}

// ApplyDelta atomically changes the balance of the account by arg.Delta.
//
// A change that would make a credit or debit balance negative is rejected
// with ErrInsufficientFunds and nothing is changed. A change carrying a
// request id is applied at most once; repeating it returns the account
// produced by the first call.
func (s *Service) ApplyDelta(ctx context.Context, arg domain.ApplyDeltaParams) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	if err := validate(arg.UserID, arg.Kind); err != nil {
		return domain.Account{}, err
	}

	if arg.RequestID == "" || s.idempotency == nil {
		return s.repo.AddBalance(ctx, arg.UserID, arg.Kind, arg.Delta)
	}

	reserved, err := s.idempotency.Reserve(ctx, arg.UserID, arg.RequestID)
	if err != nil {
		return domain.Account{}, err
	}

	if !reserved {
		l.Info().Str("request_id", arg.RequestID).Msg("repeated balance change")
		return s.idempotency.Load(ctx, arg.UserID, arg.RequestID)
	}

	account, err := s.repo.AddBalance(ctx, arg.UserID, arg.Kind, arg.Delta)
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, arg.UserID, arg.RequestID); releaseErr != nil {
			l.Error().Err(releaseErr).Str("request_id", arg.RequestID).Msg("release idempotency key")
		}

		return domain.Account{}, err
	}

	// The change is applied at this point, so a failed write only makes
	// repeated calls wait for the key to expire.
	if err := s.idempotency.Store(ctx, arg.UserID, arg.RequestID, account); err != nil {
		l.Error().Err(err).Str("request_id", arg.RequestID).Msg("store idempotency key")
	}

	return account, nil
}

// List returns all accounts of the user.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.Account, error) {
	if userID < 1 {
		return nil, domain.ErrInvalidUserID
	}

	return s.repo.List(ctx, userID)
}

func validate(userID int64, kind domain.AccountKind) error {
	if userID < 1 {
		return domain.ErrInvalidUserID
	}

	if !kind.Valid() {
		return domain.ErrInvalidAccountKind
	}

	return nil
}
