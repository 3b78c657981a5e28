// Package transferservice manages business logic layer of transfers.
package transferservice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/rs/zerolog"
)

// Journal provides transaction records storage needed by transfer service layer.
//
//go:generate mockgen -source service.go -destination service_mock.go -package transferservice
type Journal interface {
	Create(ctx context.Context, arg domain.CreateTransactionParams) (domain.Transaction, error)
	Complete(ctx context.Context, arg domain.CompleteTransactionParams) (domain.Transaction, error)
	List(ctx context.Context, userID int64, limit, offset int32) ([]domain.Transaction, error)
	Count(ctx context.Context, userID int64) (int64, error)
}

// Ledger provides the balance operations of the ledger service.
type Ledger interface {
	GetBalance(ctx context.Context, token string, userID int64, kind domain.AccountKind) (domain.Account, error)
	ApplyDelta(ctx context.Context, token string, arg domain.ApplyDeltaParams) (domain.Account, error)
}

// Settler performs the external side effect of a transfer.
type Settler interface {
	Settle(ctx context.Context, txn domain.Transaction) error
}

// Service facilitates transfer service layer logic.
type Service struct {
	journal Journal
	ledger  Ledger
	settler Settler
}

// New return transfer service struct to manage transfer bussines logic.
func New(j Journal, l Ledger, s Settler) *Service {
	return &Service{
		journal: j,
		ledger:  l,
		settler: s,
	}
}

// RequestID returns the idempotency key of the debit of the transaction.
func RequestID(transactionID int64) string {
	return "transaction-" + strconv.FormatInt(transactionID, 10)
}

func validate(cred domain.Credential, arg *domain.CreateTransactionParams) error {
	if arg.UserID < 1 {
		return domain.ErrInvalidUserID
	}

	if arg.UserID != cred.UserID {
		return domain.ErrUnauthorizedUser
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

	if !arg.Kind.Valid() {
		return domain.ErrInvalidTransactionKind
	}

	return nil
}

// Execute moves arg.Amount out of the user's account to arg.Destination.
//
// Nothing is recorded when validation or the balance check fails. Once the
// PENDING transaction is recorded the workflow is no longer bound to ctx
// cancellation, and every return finalizes the record as SUCCESS or FAILED.
// Errors found after that point are returned along with the FAILED record.
func (s *Service) Execute(ctx context.Context, cred domain.Credential, arg domain.CreateTransactionParams) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	if err := validate(cred, &arg); err != nil {
		l.Info().Err(err).Send()
		return domain.Transaction{}, err
	}

	account, err := s.ledger.GetBalance(ctx, cred.Token, arg.UserID, arg.AccountKind)
	if err != nil {
		l.Warn().Err(err).Int64("user_id", arg.UserID).Str("kind", string(arg.AccountKind)).Msg("get balance")
		return domain.Transaction{}, err
	}

	if !account.CanCover(arg.Amount) {
		l.Info().
			Int64("user_id", arg.UserID).
			Int64("balance", account.Balance).
			Int64("amount", arg.Amount).
			Err(domain.ErrInsufficientFunds).
			Send()

		return domain.Transaction{}, domain.ErrInsufficientFunds
	}

	txn, err := s.journal.Create(ctx, arg)
	if err != nil {
		return domain.Transaction{}, err
	}

	return s.run(context.WithoutCancel(ctx), cred, txn)
}

func (s *Service) run(ctx context.Context, cred domain.Credential, txn domain.Transaction) (result domain.Transaction, err error) {
	l := zerolog.Ctx(ctx).With().Int64("transaction_id", txn.ID).Logger()
	ctx = l.WithContext(ctx)

	defer func() {
		if p := recover(); p != nil {
			l.Error().Msgf("panic message: %v", p)
			result, err = s.fail(ctx, txn, fmt.Errorf("%w: panic: %v", errorspkg.ErrInternal, p))
		}
	}()

	if err := s.settler.Settle(ctx, txn); err != nil {
		if !errors.Is(err, domain.ErrSettlementFailed) {
			err = fmt.Errorf("%w: %v", domain.ErrSettlementFailed, err)
		}

		return s.fail(ctx, txn, err)
	}

	debit := domain.ApplyDeltaParams{
		UserID:    txn.UserID,
		Kind:      txn.AccountKind,
		Delta:     -txn.Amount,
		RequestID: RequestID(txn.ID),
	}

	if _, err := s.ledger.ApplyDelta(ctx, cred.Token, debit); err != nil {
		return s.fail(ctx, txn, err)
	}

	done, err := s.journal.Complete(ctx, domain.CompleteTransactionParams{
		ID:     txn.ID,
		Status: domain.TransactionStatusSuccess,
	})
	if err != nil {
		l.Error().Err(err).Msg("debited transaction left pending")

		txn.Status = domain.TransactionStatusSuccess

		return txn, errorspkg.ErrInternal
	}

	l.Info().Int64("amount", done.Amount).Str("destination", done.Destination).Msg("transaction succeeded")

	return done, nil
}

// fail finalizes the transaction as FAILED with cause as the failure reason
// and returns cause.
func (s *Service) fail(ctx context.Context, txn domain.Transaction, cause error) (domain.Transaction, error) {
	l := zerolog.Ctx(ctx)

	l.Warn().Err(cause).Msg("transaction failed")

	failed, err := s.journal.Complete(ctx, domain.CompleteTransactionParams{
		ID:            txn.ID,
		Status:        domain.TransactionStatusFailed,
		FailureReason: cause.Error(),
	})
	if err != nil {
		l.Error().Err(err).Msg("failed transaction left pending")

		txn.Status = domain.TransactionStatusFailed
		txn.FailureReason = cause.Error()

		return txn, cause
	}

	return failed, cause
}

// MaxPageLimit is the largest page of the payment history.
const MaxPageLimit = 100

// List returns the page of the user's payment history, newest first.
func (s *Service) List(ctx context.Context, userID int64, page, limit int32) (domain.TransactionPage, error) {
	if userID < 1 {
		return domain.TransactionPage{}, domain.ErrInvalidUserID
	}

	if page < 1 || limit < 1 || limit > MaxPageLimit {
		return domain.TransactionPage{}, fmt.Errorf("%w: page must be positive and limit between 1 and %d", domain.ErrValidation, MaxPageLimit)
	}

	total, err := s.journal.Count(ctx, userID)
	if err != nil {
		return domain.TransactionPage{}, err
	}

	result := domain.TransactionPage{
		Page:              page,
		Limit:             limit,
		TotalTransactions: total,
		TotalPages:        (total + int64(limit) - 1) / int64(limit),
		Transactions:      []domain.Transaction{},
	}

	offset := int64(page-1) * int64(limit)
	if offset >= total || offset > math.MaxInt32 {
		return result, nil
	}

	items, err := s.journal.List(ctx, userID, limit, int32(offset))
	if err != nil {
		return domain.TransactionPage{}, err
	}

	result.Transactions = items

	return result, nil
}
