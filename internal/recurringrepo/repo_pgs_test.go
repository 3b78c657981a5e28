//go:build integration

package recurringrepo_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/internal/integrationtest"
	"github.com/go-petr/fundsflow/internal/recurringrepo"
	"github.com/go-petr/fundsflow/pkg/configpkg"
	"github.com/go-petr/fundsflow/pkg/randompkg"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func setupRepo(t *testing.T) *recurringrepo.RepoPGS {
	t.Helper()

	config, err := configpkg.Load("../../configs", "payments")
	if err != nil {
		t.Fatalf(`configpkg.Load("../../configs", "payments") returned error: %v`, err)
	}

	tx := integrationtest.SetupTX(t, config.DBDriver, config.DBSource)

	return recurringrepo.NewRepoPGS(tx)
}

func randomParams(userID int64, nextRunAt time.Time) domain.CreateRecurringPaymentParams {
	return domain.CreateRecurringPaymentParams{
		UserID:      userID,
		Amount:      randompkg.Amount(100, 1_000),
		Destination: randompkg.Destination(),
		AccountKind: domain.AccountKindDebit,
		Interval:    domain.IntervalDaily,
		NextRunAt:   nextRunAt,
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	next := time.Now().UTC().Truncate(time.Second)

	testCases := []struct {
		name    string
		arg     domain.CreateRecurringPaymentParams
		wantErr error
	}{
		{
			name: "OK",
			arg:  randomParams(randompkg.UserID(), next),
		},
		{
			name: "InvalidAmount",
			arg: func() domain.CreateRecurringPaymentParams {
				a := randomParams(randompkg.UserID(), next)
				a.Amount = 0
				return a
			}(),
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "InvalidInterval",
			arg: func() domain.CreateRecurringPaymentParams {
				a := randomParams(randompkg.UserID(), next)
				a.Interval = "hourly"
				return a
			}(),
			wantErr: domain.ErrInvalidInterval,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			// A failed statement aborts the transaction, so every case gets its own.
			repo := setupRepo(t)

			got, err := repo.Create(ctx, tc.arg)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("repo.Create(ctx, %+v) returned error %v, want %v", tc.arg, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			want := domain.RecurringPayment{
				UserID:      tc.arg.UserID,
				Amount:      tc.arg.Amount,
				Destination: tc.arg.Destination,
				AccountKind: tc.arg.AccountKind,
				Interval:    tc.arg.Interval,
				NextRunAt:   tc.arg.NextRunAt,
			}

			ignoreFields := cmpopts.IgnoreFields(domain.RecurringPayment{}, "ID", "CreatedAt")
			if diff := cmp.Diff(want, got, ignoreFields); diff != "" {
				t.Errorf("repo.Create(ctx, %+v) mismatch (-want +got):\n%s", tc.arg, diff)
			}
		})
	}
}

func TestListDueAndAdvance(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Second)
	userID := randompkg.UserID()

	due, err := repo.Create(ctx, randomParams(userID, now.Add(-time.Minute)))
	if err != nil {
		t.Fatalf("repo.Create returned error: %v", err)
	}

	if _, err := repo.Create(ctx, randomParams(userID, now.Add(time.Hour))); err != nil {
		t.Fatalf("repo.Create returned error: %v", err)
	}

	items, err := repo.ListDue(ctx, now)
	if err != nil {
		t.Fatalf("repo.ListDue returned error: %v", err)
	}

	found := false

	for _, rp := range items {
		if !rp.NextRunAt.After(now) {
			found = found || rp.ID == due.ID
			continue
		}

		t.Errorf("repo.ListDue(ctx, %v) returned a payment due at %v", now, rp.NextRunAt)
	}

	if !found {
		t.Errorf("repo.ListDue(ctx, %v) did not return payment %d", now, due.ID)
	}

	next := domain.IntervalDaily.Next(now)

	advanced, err := repo.Advance(ctx, due.ID, now, next)
	if err != nil {
		t.Fatalf("repo.Advance returned error: %v", err)
	}

	if !advanced.NextRunAt.Equal(next) || advanced.LastRunAt == nil || !advanced.LastRunAt.Equal(now) {
		t.Errorf("advanced payment = %+v, want next_run_at %v and last_run_at %v", advanced, next, now)
	}

	mine, err := repo.ListByUser(ctx, userID)
	if err != nil || len(mine) != 2 {
		t.Fatalf("repo.ListByUser() = %v, %v, want 2 payments", mine, err)
	}

	if _, err := repo.Advance(ctx, due.ID+1_000_000, now, next); !errors.Is(err, domain.ErrRecurringPaymentNotFound) {
		t.Errorf("repo.Advance of unknown id returned error %v, want %v", err, domain.ErrRecurringPaymentNotFound)
	}
}
