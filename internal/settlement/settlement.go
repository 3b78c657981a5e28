// Package settlement performs the external side effect of a transfer.
package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/rs/zerolog"
)

// Delayed settles a transaction after a fixed delay, standing in for the
// payment network.
type Delayed struct {
	delay time.Duration
}

// NewDelayed returns Delayed settling after delay.
func NewDelayed(delay time.Duration) *Delayed {
	return &Delayed{delay: delay}
}

// Settle waits for the delay and reports the transaction as settled.
//
// It returns ErrSettlementFailed when ctx is done first.
func (d *Delayed) Settle(ctx context.Context, txn domain.Transaction) error {
	l := zerolog.Ctx(ctx)

	timer := time.NewTimer(d.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		l.Warn().Err(ctx.Err()).Int64("transaction_id", txn.ID).Msg("settlement interrupted")
		return fmt.Errorf("%w: %v", domain.ErrSettlementFailed, ctx.Err())
	case <-timer.C:
	}

	l.Info().
		Int64("transaction_id", txn.ID).
		Str("destination", txn.Destination).
		Int64("amount", txn.Amount).
		Msg("transaction settled")

	return nil
}
