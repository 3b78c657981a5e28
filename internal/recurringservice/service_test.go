package recurringservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/go-petr/fundsflow/pkg/randompkg"
	"github.com/golang/mock/gomock"
	"github.com/google/go-cmp/cmp"
)

func TestCreate(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC)
	userID := randompkg.UserID()
	destination := randompkg.Destination()

	base := domain.CreateRecurringPaymentParams{
		UserID:      userID,
		Amount:      500,
		Destination: destination,
		AccountKind: domain.AccountKindCredit,
		Interval:    domain.IntervalWeekly,
		NextRunAt:   now.Add(48 * time.Hour),
	}

	with := func(mutate func(a *domain.CreateRecurringPaymentParams)) domain.CreateRecurringPaymentParams {
		a := base
		mutate(&a)

		return a
	}

	created := func(arg domain.CreateRecurringPaymentParams) domain.RecurringPayment {
		return domain.RecurringPayment{
			ID:          7,
			UserID:      arg.UserID,
			Amount:      arg.Amount,
			Destination: arg.Destination,
			AccountKind: arg.AccountKind,
			Interval:    arg.Interval,
			NextRunAt:   arg.NextRunAt,
			CreatedAt:   now,
		}
	}

	defaulted := with(func(a *domain.CreateRecurringPaymentParams) {
		a.AccountKind = domain.AccountKindDebit
		a.NextRunAt = now
	})

	testCases := []struct {
		name       string
		arg        domain.CreateRecurringPaymentParams
		buildStubs func(repo *MockRepo)
		want       domain.RecurringPayment
		wantErr    error
	}{
		{
			name: "OK",
			arg:  base,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Eq(base)).Times(1).Return(created(base), nil)
			},
			want: created(base),
		},
		{
			name: "Defaults",
			arg: with(func(a *domain.CreateRecurringPaymentParams) {
				a.AccountKind = ""
				a.NextRunAt = time.Time{}
				a.Destination = " " + destination + "\t"
			}),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Eq(defaulted)).Times(1).Return(created(defaulted), nil)
			},
			want: created(defaulted),
		},
		{
			name: "StartInPast",
			arg:  with(func(a *domain.CreateRecurringPaymentParams) { a.NextRunAt = now.Add(-time.Hour) }),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrValidation,
		},
		{
			name: "InvalidInterval",
			arg:  with(func(a *domain.CreateRecurringPaymentParams) { a.Interval = "yearly" }),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidInterval,
		},
		{
			name: "InvalidAmount",
			arg:  with(func(a *domain.CreateRecurringPaymentParams) { a.Amount = 0 }),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAmount,
		},
		{
			name: "BlankDestination",
			arg:  with(func(a *domain.CreateRecurringPaymentParams) { a.Destination = "  " }),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidDestination,
		},
		{
			name: "InvalidAccountKind",
			arg:  with(func(a *domain.CreateRecurringPaymentParams) { a.AccountKind = "savings" }),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidAccountKind,
		},
		{
			name: "InvalidUserID",
			arg:  with(func(a *domain.CreateRecurringPaymentParams) { a.UserID = 0 }),
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantErr: domain.ErrInvalidUserID,
		},
		{
			name: "RepoError",
			arg:  base,
			buildStubs: func(repo *MockRepo) {
				repo.EXPECT().Create(gomock.Any(), gomock.Any()).Times(1).
					Return(domain.RecurringPayment{}, errorspkg.ErrInternal)
			},
			wantErr: errorspkg.ErrInternal,
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

			service := New(repo)
			service.now = func() time.Time { return now }

			got, err := service.Create(context.Background(), tc.arg)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("service.Create(ctx, %+v) returned error %v, want %v", tc.arg, err, tc.wantErr)
			}

			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("service.Create(ctx, %+v) mismatch (-want +got):\n%s", tc.arg, diff)
			}
		})
	}
}

func TestList(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := randompkg.UserID()
	items := []domain.RecurringPayment{{ID: 1, UserID: userID, Interval: domain.IntervalDaily}}

	repo := NewMockRepo(ctrl)
	repo.EXPECT().ListByUser(gomock.Any(), userID).Times(1).Return(items, nil)

	service := New(repo)

	got, err := service.List(context.Background(), userID)
	if err != nil {
		t.Fatalf("service.List(ctx, %d) returned error: %v", userID, err)
	}

	if diff := cmp.Diff(items, got); diff != "" {
		t.Errorf("service.List(ctx, %d) mismatch (-want +got):\n%s", userID, diff)
	}

	if _, err := service.List(context.Background(), 0); !errors.Is(err, domain.ErrInvalidUserID) {
		t.Errorf("service.List(ctx, 0) returned error %v, want %v", err, domain.ErrInvalidUserID)
	}
}
