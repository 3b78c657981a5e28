// Package userservice manages business logic layer of users.
package userservice

import (
	"context"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/go-petr/fundsflow/pkg/passpkg"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by user service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package userservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateUserParams) (domain.User, []domain.Account, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// Service facilitates user service layer logic.
type Service struct {
	repo           Repo
	initialBalance int64
}

// New return user service struct to manage user bussines logic.
//
// Every registered user gets one account of each kind holding initialBalance.
func New(ur Repo, initialBalance int64) *Service {
	return &Service{
		repo:           ur,
		initialBalance: initialBalance,
	}
}

// NewUserWithoutPassword returns user with removed sensitive data.
func NewUserWithoutPassword(u domain.User) domain.UserWithoutPassword {
	return domain.UserWithoutPassword{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
}

// Create creates and returns user together with its provisioned accounts.
func (s *Service) Create(ctx context.Context, email, password string) (domain.UserWithoutPassword, []domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var result domain.UserWithoutPassword

	hashedPassword, err := passpkg.Hash(password)
	if err != nil {
		l.Error().Err(err).Send()
		return result, nil, errorspkg.ErrInternal
	}

	arg := domain.CreateUserParams{
		Email:          email,
		HashedPassword: hashedPassword,
		InitialBalance: s.initialBalance,
	}

	gotUser, accounts, err := s.repo.Create(ctx, arg)
	if err != nil {
		return result, nil, err
	}

	result = NewUserWithoutPassword(gotUser)

	return result, accounts, nil
}

// CheckPassword checks if the password is valid for the given email.
func (s *Service) CheckPassword(ctx context.Context, email, pass string) (domain.UserWithoutPassword, error) {
	l := zerolog.Ctx(ctx)

	var response domain.UserWithoutPassword

	gotUser, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return response, err
	}

	err = passpkg.Check(pass, gotUser.HashedPassword)
	if err != nil {
		l.Warn().Err(err).Send()
		return response, domain.ErrWrongPassword
	}

	response = NewUserWithoutPassword(gotUser)

	return response, nil
}
