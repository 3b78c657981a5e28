//go:build integration

package accountrepo_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-petr/fundsflow/internal/accountrepo"
	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/internal/integrationtest"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestAddBalance(t *testing.T) {
	config := integrationtest.LoadConfig(t, "../../configs", "ledger")
	ctx := context.Background()

	testCases := []struct {
		name        string
		kind        domain.AccountKind
		delta       int64
		wantBalance int64
		wantErr     error
	}{
		{name: "Credit", kind: domain.AccountKindCredit, delta: 2_500, wantBalance: 12_500},
		{name: "Debit", kind: domain.AccountKindDebit, delta: -10_000, wantBalance: 0},
		{name: "DebitOverdraw", kind: domain.AccountKindDebit, delta: -10_001, wantErr: domain.ErrInsufficientFunds},
		{name: "LoanNegative", kind: domain.AccountKindLoan, delta: -25_000, wantBalance: -15_000},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx := integrationtest.SetupTX(t, config.DBDriver, config.DBSource)
			user, _, _ := integrationtest.SeedUser(t, tx, 10_000)

			repo := accountrepo.NewRepoPGS(tx)

			got, err := repo.AddBalance(ctx, user.ID, tc.kind, tc.delta)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("repo.AddBalance(ctx, %d, %v, %d) returned error %v, want %v", user.ID, tc.kind, tc.delta, err, tc.wantErr)
			}

			if tc.wantErr != nil {
				return
			}

			want := domain.Account{UserID: user.ID, Kind: tc.kind, Balance: tc.wantBalance}

			ignoreFields := cmpopts.IgnoreFields(domain.Account{}, "ID", "CreatedAt", "UpdatedAt")
			if diff := cmp.Diff(want, got, ignoreFields); diff != "" {
				t.Errorf("repo.AddBalance(ctx, %d, %v, %d) mismatch (-want +got):\n%s", user.ID, tc.kind, tc.delta, diff)
			}
		})
	}
}

func TestGetAndList(t *testing.T) {
	config := integrationtest.LoadConfig(t, "../../configs", "ledger")
	tx := integrationtest.SetupTX(t, config.DBDriver, config.DBSource)
	ctx := context.Background()

	user, _, accounts := integrationtest.SeedUser(t, tx, 10_000)
	repo := accountrepo.NewRepoPGS(tx)

	got, err := repo.List(ctx, user.ID)
	if err != nil {
		t.Fatalf("repo.List(ctx, %d) returned error: %v", user.ID, err)
	}

	if diff := cmp.Diff(accounts, got); diff != "" {
		t.Errorf("repo.List(ctx, %d) mismatch (-want +got):\n%s", user.ID, diff)
	}

	if _, err := repo.Get(ctx, user.ID+1_000_000, domain.AccountKindDebit); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Errorf("repo.Get of unknown user returned error %v, want %v", err, domain.ErrAccountNotFound)
	}
}

func TestAddBalanceConcurrent(t *testing.T) {
	config := integrationtest.LoadConfig(t, "../../configs", "ledger")
	db := integrationtest.SetupDB(t, config.DBDriver, config.DBSource)
	ctx := context.Background()

	user, _, _ := integrationtest.SeedUser(t, db, 7_000)
	repo := accountrepo.NewRepoPGS(db)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for i := 0; i < 5; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.AddBalance(ctx, user.ID, domain.AccountKindDebit, -2_000)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()

				return
			}

			if !errors.Is(err, domain.ErrInsufficientFunds) {
				t.Errorf("repo.AddBalance returned unexpected error %v", err)
			}
		}()
	}

	wg.Wait()

	if succeeded != 3 {
		t.Errorf("succeeded debits = %d, want 3", succeeded)
	}

	a, err := repo.Get(ctx, user.ID, domain.AccountKindDebit)
	if err != nil {
		t.Fatalf("repo.Get returned error: %v", err)
	}

	if a.Balance != 1_000 {
		t.Errorf("debit balance = %d, want 1000", a.Balance)
	}
}
