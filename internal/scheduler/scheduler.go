// Package scheduler turns due recurring payments into transfers.
package scheduler

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/tokenpkg"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Repo provides the recurring payments storage needed by the scheduler.
//
//go:generate mockgen -source scheduler.go -destination scheduler_mock.go -package scheduler
type Repo interface {
	ListDue(ctx context.Context, now time.Time) ([]domain.RecurringPayment, error)
	Advance(ctx context.Context, id int64, lastRunAt, nextRunAt time.Time) (domain.RecurringPayment, error)
}

// Executor runs a transfer on behalf of a user.
type Executor interface {
	Execute(ctx context.Context, cred domain.Credential, arg domain.CreateTransactionParams) (domain.Transaction, error)
}

// Sweeper fails transactions left PENDING.
type Sweeper interface {
	FailStale(ctx context.Context, olderThan time.Time, reason string) (int64, error)
}

// TokenMaker mints the credentials scheduled transfers run with.
type TokenMaker interface {
	CreateToken(userID int64, duration time.Duration) (string, *tokenpkg.Payload, error)
}

// Config holds the scheduler settings.
type Config struct {
	Interval          time.Duration
	Concurrency       int
	TokenDuration     time.Duration
	StalePendingAfter time.Duration
}

// StaleReason is the failure reason of swept transactions.
const StaleReason = "abandoned while pending"

// TickResult summarizes one pass over the due recurring payments.
type TickResult struct {
	Due       int
	Succeeded int
	Failed    int
	Swept     int64
}

// Scheduler executes due recurring payments.
type Scheduler struct {
	repo     Repo
	executor Executor
	sweeper  Sweeper
	maker    TokenMaker
	config   Config
	now      func() time.Time
}

// New returns Scheduler.
func New(r Repo, e Executor, s Sweeper, tm TokenMaker, config Config) *Scheduler {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}

	return &Scheduler{
		repo:     r,
		executor: e,
		sweeper:  s,
		maker:    tm,
		config:   config,
		now:      time.Now,
	}
}

// Run ticks once right away and then every config.Interval until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	l := zerolog.Ctx(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		res := s.Tick(ctx, s.now().UTC())

		l.Info().
			Int("due", res.Due).
			Int("succeeded", res.Succeeded).
			Int("failed", res.Failed).
			Int64("swept", res.Swept).
			Msg("scheduler tick")

		select {
		case <-ctx.Done():
			l.Info().Msg("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick executes every recurring payment due at now and schedules its next
// run, whatever the outcome of the transfer. It then fails the transactions
// that stayed PENDING for longer than config.StalePendingAfter.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) TickResult {
	l := zerolog.Ctx(ctx)

	var res TickResult

	due, err := s.repo.ListDue(ctx, now)
	if err != nil {
		l.Error().Err(err).Msg("list due recurring payments")
	}

	res.Due = len(due)

	var succeeded, failed atomic.Int64

	g := new(errgroup.Group)
	g.SetLimit(s.config.Concurrency)

	for i := range due {
		rp := due[i]

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil // Stays due for the next run.
			}

			if s.execute(ctx, rp) {
				succeeded.Add(1)
			} else {
				failed.Add(1)
			}

			s.advance(ctx, rp, now)

			return nil
		})
	}

	_ = g.Wait() // Goroutines never return errors.

	res.Succeeded = int(succeeded.Load())
	res.Failed = int(failed.Load())

	if s.config.StalePendingAfter > 0 {
		swept, err := s.sweeper.FailStale(ctx, now.Add(-s.config.StalePendingAfter), StaleReason)
		if err != nil {
			l.Error().Err(err).Msg("sweep stale transactions")
		}

		res.Swept = swept
	}

	return res
}

func (s *Scheduler) execute(ctx context.Context, rp domain.RecurringPayment) (ok bool) {
	l := zerolog.Ctx(ctx).With().
		Int64("recurring_payment_id", rp.ID).
		Int64("user_id", rp.UserID).
		Logger()
	ctx = l.WithContext(ctx)

	defer func() {
		if p := recover(); p != nil {
			l.Error().Msgf("panic message: %v", p)
			ok = false
		}
	}()

	token, _, err := s.maker.CreateToken(rp.UserID, s.config.TokenDuration)
	if err != nil {
		l.Error().Err(err).Msg("create scheduler token")
		return false
	}

	id := rp.ID

	txn, err := s.executor.Execute(ctx, domain.Credential{UserID: rp.UserID, Token: token}, domain.CreateTransactionParams{
		UserID:             rp.UserID,
		Amount:             rp.Amount,
		Destination:        rp.Destination,
		AccountKind:        rp.AccountKind,
		Kind:               domain.TransactionKindSend,
		RecurringPaymentID: &id,
	})
	if err != nil {
		l.Warn().Err(err).Int64("transaction_id", txn.ID).Msg("recurring payment failed")
		return false
	}

	l.Info().Int64("transaction_id", txn.ID).Msg("recurring payment executed")

	return true
}

// advance records the run even when ctx is done.
func (s *Scheduler) advance(ctx context.Context, rp domain.RecurringPayment, now time.Time) {
	ctx = context.WithoutCancel(ctx)
	next := rp.Interval.Next(now)

	if _, err := s.repo.Advance(ctx, rp.ID, now, next); err != nil {
		zerolog.Ctx(ctx).Error().
			Err(err).
			Int64("recurring_payment_id", rp.ID).
			Time("next_run_at", next).
			Msg("advance recurring payment")
	}
}
