// Package transferdelivery manages delivery layer of transfers.
package transferdelivery

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/internal/middleware"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/go-petr/fundsflow/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// Service provides service layer interface needed by transfer delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package transferdelivery
type Service interface {
	Execute(ctx context.Context, cred domain.Credential, arg domain.CreateTransactionParams) (domain.Transaction, error)
	List(ctx context.Context, userID int64, page, limit int32) (domain.TransactionPage, error)
}

// Handler facilitates transfer delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns transfer handler.
func NewHandler(ts Service) *Handler {
	return &Handler{
		service: ts,
	}
}

type request struct {
	Amount      int64  `json:"amount" binding:"required,min=1"`
	Destination string `json:"destination" binding:"required"`
	AccountKind string `json:"account_kind" binding:"required,account_kind"`
}

type data struct {
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

// Send handles http request to send money from the caller's account.
func (h *Handler) Send(gctx *gin.Context) {
	h.execute(gctx, domain.TransactionKindSend)
}

// Withdraw handles http request to withdraw money from the caller's account.
func (h *Handler) Withdraw(gctx *gin.Context) {
	h.execute(gctx, domain.TransactionKindWithdraw)
}

func (h *Handler) execute(gctx *gin.Context, kind domain.TransactionKind) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var req request
	if err := gctx.ShouldBindJSON(&req); err != nil {
		respondBindError(gctx, err)
		return
	}

	cred := middleware.Credential(gctx)

	arg := domain.CreateTransactionParams{
		UserID:      cred.UserID,
		Amount:      req.Amount,
		Destination: req.Destination,
		AccountKind: domain.AccountKind(req.AccountKind),
		Kind:        kind,
	}

	txn, err := h.service.Execute(ctx, cred, arg)
	if err != nil {
		respondError(gctx, err, txn)
		return
	}

	l.Info().Int64("transaction_id", txn.ID).Str("kind", string(kind)).Msg("transaction completed")

	gctx.JSON(http.StatusOK, response{Data: data{Transaction: &txn}})
}

type listQuery struct {
	Page  int32 `form:"page,default=1" binding:"min=1"`
	Limit int32 `form:"limit,default=10" binding:"min=1,max=100"`
}

type responsePage struct {
	Data domain.TransactionPage `json:"data"`
}

// List handles http request to list the caller's payment history.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var q listQuery
	if err := gctx.ShouldBindQuery(&q); err != nil {
		respondBindError(gctx, err)
		return
	}

	cred := middleware.Credential(gctx)

	page, err := h.service.List(ctx, cred.UserID, q.Page, q.Limit)
	if err != nil {
		respondError(gctx, err, domain.Transaction{})
		return
	}

	gctx.JSON(http.StatusOK, responsePage{Data: page})
}

func respondBindError(gctx *gin.Context, err error) {
	zerolog.Ctx(gctx.Request.Context()).Info().Err(err).Send()

	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		gctx.JSON(http.StatusBadRequest, web.Response{Error: web.GetErrorMsg(ve)})
		return
	}

	gctx.JSON(http.StatusBadRequest, web.Error(err))
}

// statusCode returns the http status code the error is reported with.
func statusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrAccountNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUnauthorized),
		errors.Is(err, domain.ErrUnauthorizedUser),
		errors.Is(err, domain.ErrSettlementFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrRemoteUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAmbiguousOutcome):
		return http.StatusGatewayTimeout
	}

	return http.StatusInternalServerError
}

// respondError reports err along with txn when the transaction was recorded.
func respondError(gctx *gin.Context, err error, txn domain.Transaction) {
	code := statusCode(err)

	if code == http.StatusInternalServerError {
		zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
		err = errorspkg.ErrInternal
	}

	if txn.ID == 0 {
		gctx.JSON(code, web.Error(err))
		return
	}

	gctx.JSON(code, web.ErrorWithData(err, data{Transaction: &txn}))
}
