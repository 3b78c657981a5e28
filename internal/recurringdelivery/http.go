// Package recurringdelivery manages delivery layer of recurring payments.
package recurringdelivery

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/internal/middleware"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/go-petr/fundsflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Service provides service layer interface needed by recurring payment delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package recurringdelivery
type Service interface {
	Create(ctx context.Context, arg domain.CreateRecurringPaymentParams) (domain.RecurringPayment, error)
	List(ctx context.Context, userID int64) ([]domain.RecurringPayment, error)
}

// Handler facilitates recurring payment delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns recurring payment handler.
func NewHandler(rs Service) *Handler {
	return &Handler{
		service: rs,
	}
}

type request struct {
	Amount      int64      `json:"amount" binding:"required,min=1"`
	Destination string     `json:"destination" binding:"required"`
	Interval    string     `json:"interval" binding:"required,interval"`
	AccountKind string     `json:"account_kind" binding:"omitempty,account_kind"`
	StartAt     *time.Time `json:"start_at"`
}

type data struct {
	RecurringPayment domain.RecurringPayment `json:"recurring_payment"`
}

type response struct {
	Data data `json:"data"`
}

// Create handles http request to set up a recurring payment for the caller.
func (h *Handler) Create(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var req request
	if err := gctx.ShouldBindJSON(&req); err != nil {
		zerolog.Ctx(ctx).Info().Err(err).Send()

		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})
			return
		}

		gctx.JSON(http.StatusBadRequest, web.Error(err))

		return
	}

	arg := domain.CreateRecurringPaymentParams{
		UserID:      middleware.Credential(gctx).UserID,
		Amount:      req.Amount,
		Destination: req.Destination,
		AccountKind: domain.AccountKind(req.AccountKind),
		Interval:    domain.Interval(req.Interval),
	}

	if req.StartAt != nil {
		arg.NextRunAt = *req.StartAt
	}

	rp, err := h.service.Create(ctx, arg)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusCreated, response{Data: data{rp}})
}

type dataList struct {
	RecurringPayments []domain.RecurringPayment `json:"recurring_payments"`
}

type responseList struct {
	Data dataList `json:"data"`
}

// List handles http request to list the caller's recurring payments.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	items, err := h.service.List(ctx, middleware.Credential(gctx).UserID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseList{Data: dataList{items}})
}

func respondError(gctx *gin.Context, err error) {
	if errors.Is(err, domain.ErrValidation) {
		gctx.JSON(http.StatusBadRequest, web.Error(err))
		return
	}

	zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
	gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
}
