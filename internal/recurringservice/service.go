// Package recurringservice manages business logic layer of recurring payments.
package recurringservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/rs/zerolog"
)

// Repo provides data access layer interface needed by recurring payment service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package recurringservice
type Repo interface {
	Create(ctx context.Context, arg domain.CreateRecurringPaymentParams) (domain.RecurringPayment, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.RecurringPayment, error)
}

// Service facilitates recurring payment service layer logic.
type Service struct {
	repo Repo
	now  func() time.Time
}

// New returns recurring payment service struct.
func New(r Repo) *Service {
	return &Service{
		repo: r,
		now:  time.Now,
	}
}

// Create validates and creates the recurring payment.
//
// The account kind defaults to debit. A zero arg.NextRunAt makes the payment
// due right away.
func (s *Service) Create(ctx context.Context, arg domain.CreateRecurringPaymentParams) (domain.RecurringPayment, error) {
	l := zerolog.Ctx(ctx)

	now := s.now().UTC()

	if arg.AccountKind == "" {
		arg.AccountKind = domain.AccountKindDebit
	}

	if arg.NextRunAt.IsZero() {
		arg.NextRunAt = now
	}

	if err := validate(&arg, now); err != nil {
		l.Info().Err(err).Send()
		return domain.RecurringPayment{}, err
	}

	rp, err := s.repo.Create(ctx, arg)
	if err != nil {
		return domain.RecurringPayment{}, err
	}

	l.Info().
		Int64("recurring_payment_id", rp.ID).
		Str("interval", string(rp.Interval)).
		Time("next_run_at", rp.NextRunAt).
		Msg("recurring payment created")

	return rp, nil
}

// List returns the recurring payments of the user.
func (s *Service) List(ctx context.Context, userID int64) ([]domain.RecurringPayment, error) {
	if userID < 1 {
		return nil, domain.ErrInvalidUserID
	}

	return s.repo.ListByUser(ctx, userID)
}

func validate(arg *domain.CreateRecurringPaymentParams, now time.Time) error {
	if arg.UserID < 1 {
		return domain.ErrInvalidUserID
	}

	if arg.Amount <= 0 {
		return domain.ErrInvalidAmount
	}

	arg.Destination = strings.TrimSpace(arg.Destination)
	if arg.Destination == "" {
		return domain.ErrInvalidDestination
	}

	if !arg.AccountKind.Valid() {
		return domain.ErrInvalidAccountKind
	}

	if !arg.Interval.Valid() {
		return domain.ErrInvalidInterval
	}

	arg.NextRunAt = arg.NextRunAt.UTC()
	if arg.NextRunAt.Before(now.Add(-time.Minute)) {
		return fmt.Errorf("%w: start_at must not be in the past", domain.ErrValidation)
	}

	return nil
}
