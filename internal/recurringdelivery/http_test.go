package recurringdelivery

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/internal/middleware"
	"github.com/go-petr/fundsflow/internal/validation"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/go-petr/fundsflow/pkg/randompkg"
	"github.com/go-petr/fundsflow/pkg/tokenpkg"
	"github.com/go-petr/fundsflow/pkg/web"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)

	if err := validation.Register(); err != nil {
		fmt.Fprintf(os.Stderr, "validation.Register() returned error: %v\n", err)
		os.Exit(1)
	}

	os.Exit(m.Run())
}

func newServer(tokenMaker tokenpkg.Maker, service Service) *gin.Engine {
	handler := NewHandler(service)

	server := gin.New()
	authRoutes := server.Group("/").Use(middleware.AuthMiddleware(tokenMaker))
	authRoutes.POST("/recurring-payments", handler.Create)
	authRoutes.GET("/recurring-payments", handler.List)

	return server
}

func TestCreateAPI(t *testing.T) {
	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	userID := randompkg.UserID()
	destination := randompkg.Destination()
	startAt := time.Date(2026, time.December, 1, 8, 0, 0, 0, time.UTC)

	rp := domain.RecurringPayment{
		ID:          1,
		UserID:      userID,
		Amount:      1_500,
		Destination: destination,
		AccountKind: domain.AccountKindDebit,
		Interval:    domain.IntervalMonthly,
		NextRunAt:   startAt,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	testCases := []struct {
		name       string
		body       gin.H
		buildStubs func(s *MockService)
		wantStatus int
		wantError  string
	}{
		{
			name: "OK",
			body: gin.H{
				"amount":      1_500,
				"destination": destination,
				"interval":    "monthly",
				"start_at":    startAt.Format(time.RFC3339),
			},
			buildStubs: func(s *MockService) {
				s.EXPECT().
					Create(gomock.Any(), domain.CreateRecurringPaymentParams{
						UserID:      userID,
						Amount:      1_500,
						Destination: destination,
						Interval:    domain.IntervalMonthly,
						NextRunAt:   startAt,
					}).
					Times(1).
					Return(rp, nil)
			},
			wantStatus: http.StatusCreated,
		},
		{
			name: "InvalidInterval",
			body: gin.H{"amount": 1_500, "destination": destination, "interval": "hourly"},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Interval must be one of daily, weekly, monthly",
		},
		{
			name: "InvalidAccountKind",
			body: gin.H{"amount": 1_500, "destination": destination, "interval": "daily", "account_kind": "savings"},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "AccountKind must be one of credit, debit, loan",
		},
		{
			name: "MissingDestination",
			body: gin.H{"amount": 1_500, "interval": "daily"},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any()).Times(0)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  "Destination field is required",
		},
		{
			name: "StartInPast",
			body: gin.H{"amount": 1_500, "destination": destination, "interval": "daily"},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any()).Times(1).
					Return(domain.RecurringPayment{}, domain.ErrValidation)
			},
			wantStatus: http.StatusBadRequest,
			wantError:  domain.ErrValidation.Error(),
		},
		{
			name: "InternalError",
			body: gin.H{"amount": 1_500, "destination": destination, "interval": "daily"},
			buildStubs: func(s *MockService) {
				s.EXPECT().Create(gomock.Any(), gomock.Any()).Times(1).
					Return(domain.RecurringPayment{}, errorspkg.ErrInternal)
			},
			wantStatus: http.StatusInternalServerError,
			wantError:  errorspkg.ErrInternal.Error(),
		},
	}

	for i := range testCases {
		tc := testCases[i]

		t.Run(tc.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			service := NewMockService(ctrl)
			tc.buildStubs(service)

			server := newServer(tokenMaker, service)

			body, err := json.Marshal(tc.body)
			require.NoError(t, err)

			req, err := http.NewRequest(http.MethodPost, "/recurring-payments", bytes.NewReader(body))
			require.NoError(t, err)

			err = middleware.AddAuthorization(req, tokenMaker, middleware.AuthTypeBearer, userID, time.Minute)
			require.NoError(t, err)

			recorder := httptest.NewRecorder()
			server.ServeHTTP(recorder, req)

			require.Equal(t, tc.wantStatus, recorder.Code)

			if tc.wantError != "" {
				var res web.Response
				require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
				require.Equal(t, tc.wantError, res.Error)

				return
			}

			var res response
			require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
			require.Equal(t, rp.ID, res.Data.RecurringPayment.ID)
			require.True(t, rp.NextRunAt.Equal(res.Data.RecurringPayment.NextRunAt))
		})
	}
}

func TestListAPI(t *testing.T) {
	tokenMaker, err := tokenpkg.NewPasetoMaker(randompkg.String(32))
	require.NoError(t, err)

	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	userID := randompkg.UserID()
	items := []domain.RecurringPayment{
		{ID: 1, UserID: userID, Interval: domain.IntervalDaily},
		{ID: 2, UserID: userID, Interval: domain.IntervalWeekly},
	}

	service := NewMockService(ctrl)
	service.EXPECT().List(gomock.Any(), userID).Times(1).Return(items, nil)

	req, err := http.NewRequest(http.MethodGet, "/recurring-payments", nil)
	require.NoError(t, err)

	err = middleware.AddAuthorization(req, tokenMaker, middleware.AuthTypeBearer, userID, time.Minute)
	require.NoError(t, err)

	recorder := httptest.NewRecorder()
	newServer(tokenMaker, service).ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)

	var res responseList
	require.NoError(t, json.NewDecoder(recorder.Body).Decode(&res))
	require.Len(t, res.Data.RecurringPayments, 2)
	require.Equal(t, domain.IntervalWeekly, res.Data.RecurringPayments[1].Interval)
}
