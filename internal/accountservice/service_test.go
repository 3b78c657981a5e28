package accountservice

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-petr/fundsflow/internal/accountrepo"
	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/go-petr/fundsflow/pkg/randompkg"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
)

func randomAccount(kind domain.AccountKind) domain.Account {
	return domain.Account{
		ID:      randompkg.Int64Between(1, 1_000),
		UserID:  randompkg.UserID(),
		Kind:    kind,
		Balance: randompkg.Amount(1_000, 10_000),
	}
}

func TestGetBalance(t *testing.T) {
	t.Parallel()

	account := randomAccount(domain.AccountKindDebit)

	testCases := []struct {
		name       string
		userID     int64
		kind       domain.AccountKind
		buildStubs func(repo *MockRepo)
		want       domain.Account
		wantErr    error
	}{
		{
			name:   "OK",
			userID: account.UserID,
			kind:   account.Kind,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), account.UserID, account.Kind).
					Times(1).
					Return(account, nil)
			},
			want: account,
		},
		{
			name:   "ErrAccountNotFound",
			userID: account.UserID,
			kind:   account.Kind,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().
					Get(gomock.Any(), account.UserID, account.Kind).
					Times(1).
					Return(domain.Account{}, domain.ErrAccountNotFound)
			},
			wantErr: domain.ErrAccountNotFound,
		},
		{
			name:   "InvalidKind",
			userID: account.UserID,
			kind:   domain.AccountKind("savings"),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAccountKind,
		},
		{
			name:   "InvalidUserID",
			userID: 0,
			kind:   account.Kind,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidUserID,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			tc.buildStubs(repo)

			service := New(repo, nil)

			got, err := service.GetBalance(context.Background(), tc.userID, tc.kind)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("service.GetBalance(ctx, %d, %v) returned error %v, want %v", tc.userID, tc.kind, err, tc.wantErr)
			}

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("service.GetBalance(ctx, %d, %v) mismatch (-want +got):\n%s", tc.userID, tc.kind, diff)
			}
		})
	}
}

func TestApplyDelta(t *testing.T) {
	t.Parallel()

	account := randomAccount(domain.AccountKindDebit)
	requestID := "transaction-" + randompkg.String(6)

	withRequest := domain.ApplyDeltaParams{
		UserID:    account.UserID,
		Kind:      account.Kind,
		Delta:     -500,
		RequestID: requestID,
	}
	withoutRequest := withRequest
	withoutRequest.RequestID = ""

	testCases := []struct {
		name       string
		arg        domain.ApplyDeltaParams
		buildStubs func(repo *MockRepo, store *MockIdempotencyStore)
		want       domain.Account
		wantErr    error
	}{
		{
			name: "WithoutRequestID",
			arg:  withoutRequest,
			buildStubs: func(repo *MockRepo, store *MockIdempotencyStore) {
				repo.EXPECT().
					AddBalance(gomock.Any(), account.UserID, account.Kind, int64(-500)).
					Times(1).
					Return(account, nil)
				store.EXPECT().Reserve(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			want: account,
		},
		{
			name: "FirstRequest",
			arg:  withRequest,
			buildStubs: func(repo *MockRepo, store *MockIdempotencyStore) {
				gomock.InOrder(
					store.EXPECT().
						Reserve(gomock.Any(), account.UserID, requestID).
						Times(1).
						Return(true, nil),
					repo.EXPECT().
						AddBalance(gomock.Any(), account.UserID, account.Kind, int64(-500)).
						Times(1).
						Return(account, nil),
					store.EXPECT().
						Store(gomock.Any(), account.UserID, requestID, account).
						Times(1).
						Return(nil),
				)
			},
			want: account,
		},
		{
			name: "RepeatedRequest",
			arg:  withRequest,
			buildStubs: func(repo *MockRepo, store *MockIdempotencyStore) {
				store.EXPECT().
					Reserve(gomock.Any(), account.UserID, requestID).
					Times(1).
					Return(false, nil)
				store.EXPECT().
					Load(gomock.Any(), account.UserID, requestID).
					Times(1).
					Return(account, nil)
				repo.EXPECT().AddBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			want: account,
		},
		{
			name: "RequestInProgress",
			arg:  withRequest,
			buildStubs: func(repo *MockRepo, store *MockIdempotencyStore) {
				store.EXPECT().
					Reserve(gomock.Any(), account.UserID, requestID).
					Times(1).
					Return(false, nil)
				store.EXPECT().
					Load(gomock.Any(), account.UserID, requestID).
					Times(1).
					Return(domain.Account{}, domain.ErrRequestInProgress)
				repo.EXPECT().AddBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrRequestInProgress,
		},
		{
			name: "InsufficientFundsReleasesKey",
			arg:  withRequest,
			buildStubs: func(repo *MockRepo, store *MockIdempotencyStore) {
				store.EXPECT().
					Reserve(gomock.Any(), account.UserID, requestID).
					Times(1).
					Return(true, nil)
				repo.EXPECT().
					AddBalance(gomock.Any(), account.UserID, account.Kind, int64(-500)).
					Times(1).
					Return(domain.Account{}, domain.ErrInsufficientFunds)
				store.EXPECT().
					Release(gomock.Any(), account.UserID, requestID).
					Times(1).
					Return(nil)
				store.EXPECT().Store(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInsufficientFunds,
		},
		{
			name: "StoreFailureKeepsResult",
			arg:  withRequest,
			buildStubs: func(repo *MockRepo, store *MockIdempotencyStore) {
				store.EXPECT().
					Reserve(gomock.Any(), account.UserID, requestID).
					Times(1).
					Return(true, nil)
				repo.EXPECT().
					AddBalance(gomock.Any(), account.UserID, account.Kind, int64(-500)).
					Times(1).
					Return(account, nil)
				store.EXPECT().
					Store(gomock.Any(), account.UserID, requestID, account).
					Times(1).
					Return(errorspkg.ErrInternal)
			},
			want: account,
		},
		{
			name: "ReserveError",
			arg:  withRequest,
			buildStubs: func(repo *MockRepo, store *MockIdempotencyStore) {
				store.EXPECT().
					Reserve(gomock.Any(), account.UserID, requestID).
					Times(1).
					Return(false, errorspkg.ErrInternal)
				repo.EXPECT().AddBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: errorspkg.ErrInternal,
		},
		{
			name: "InvalidKind",
			arg: domain.ApplyDeltaParams{
				UserID: account.UserID,
				Kind:   domain.AccountKind("savings"),
				Delta:  100,
			},
			buildStubs: func(repo *MockRepo, store *MockIdempotencyStore) {
				repo.EXPECT().AddBalance(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAccountKind,
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := NewMockRepo(ctrl)
			store := NewMockIdempotencyStore(ctrl)
			tc.buildStubs(repo, store)

			service := New(repo, store)

			got, err := service.ApplyDelta(context.Background(), tc.arg)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("service.ApplyDelta(ctx, %+v) returned error %v, want %v", tc.arg, err, tc.wantErr)
			}

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("service.ApplyDelta(ctx, %+v) mismatch (-want +got):\n%s", tc.arg, diff)
			}
		})
	}
}

func TestApplyDeltaConcurrent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	repo := accountrepo.NewRepoMemory()
	service := New(repo, nil)
	userID := randompkg.UserID()

	const initial = 5_000

	if _, err := repo.Provision(ctx, userID, initial); err != nil {
		t.Fatalf("repo.Provision returned error: %v", err)
	}

	var (
		wg  sync.WaitGroup
		sum int64
	)

	for i := 0; i < 100; i++ {
		delta := randompkg.Int64Between(-40, 50)
		sum += delta

		wg.Add(1)

		go func(delta int64) {
			defer wg.Done()

			arg := domain.ApplyDeltaParams{UserID: userID, Kind: domain.AccountKindCredit, Delta: delta}
			if _, err := service.ApplyDelta(ctx, arg); err != nil {
				t.Errorf("service.ApplyDelta(ctx, %+v) returned error: %v", arg, err)
			}
		}(delta)
	}

	wg.Wait()

	got, err := service.GetBalance(ctx, userID, domain.AccountKindCredit)
	if err != nil {
		t.Fatalf("service.GetBalance returned error: %v", err)
	}

	if want := initial + sum; got.Balance != want {
		t.Errorf("final balance = %d, want %d", got.Balance, want)
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := NewMockRepo(ctrl)
	service := New(repo, nil)

	userID := randompkg.UserID()
	want := []domain.Account{randomAccount(domain.AccountKindCredit), randomAccount(domain.AccountKindLoan)}

	repo.EXPECT().List(gomock.Any(), userID).Times(1).Return(want, nil)

	got, err := service.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("service.List(ctx, %d) returned error: %v", userID, err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("service.List(ctx, %d) mismatch (-want +got):\n%s", userID, diff)
	}

	if _, err := service.List(context.Background(), 0); !errors.Is(err, domain.ErrInvalidUserID) {
		t.Errorf("service.List(ctx, 0) returned error %v, want %v", err, domain.ErrInvalidUserID)
	}
}
