// Package accountdelivery manages delivery layer of account balances.
package accountdelivery

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

// IdempotencyKeyHeader carries the request id of a balance change.
const IdempotencyKeyHeader = "Idempotency-Key"

// Service provides service layer interface needed by account delivery layer.
//
//go:generate mockgen -source http.go -destination http_mock.go -package accountdelivery
type Service interface {
	GetBalance(ctx context.Context, userID int64, kind domain.AccountKind) (domain.Account, error)
	ApplyDelta(ctx context.Context, arg domain.ApplyDeltaParams) (domain.Account, error)
	List(ctx context.Context, userID int64) ([]domain.Account, error)
}

// Handler facilitates account delivery layer logic.
type Handler struct {
	service Service
}

// NewHandler returns account handler.
func NewHandler(as Service) Handler {
	return Handler{service: as}
}

type data struct {
	Account domain.Account `json:"account"`
}

type response struct {
	Data data `json:"data,omitempty"`
}

type balanceURI struct {
	UserID      int64  `uri:"user_id" binding:"required,min=1"`
	AccountKind string `uri:"account_kind" binding:"required,account_kind"`
}

// GetBalance handles http request to get the balance of the caller's account.
func (h *Handler) GetBalance(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	var uri balanceURI
	if !bindURI(gctx, &uri) || !authorize(gctx, uri.UserID) {
		return
	}

	account, err := h.service.GetBalance(ctx, uri.UserID, domain.AccountKind(uri.AccountKind))
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, response{Data: data{account}})
}

type applyDeltaRequest struct {
	Delta int64 `json:"delta" binding:"required"`
}

// ApplyDelta handles http request to change the balance of the caller's account.
//
// The optional Idempotency-Key header makes the change exactly-once.
func (h *Handler) ApplyDelta(gctx *gin.Context) {
	ctx := gctx.Request.Context()
	l := zerolog.Ctx(ctx)

	var uri balanceURI
	if !bindURI(gctx, &uri) || !authorize(gctx, uri.UserID) {
		return
	}

	var req applyDeltaRequest
	if err := gctx.ShouldBindJSON(&req); err != nil {
		respondBindError(gctx, err)
		return
	}

	arg := domain.ApplyDeltaParams{
		UserID:    uri.UserID,
		Kind:      domain.AccountKind(uri.AccountKind),
		Delta:     req.Delta,
		RequestID: gctx.GetHeader(IdempotencyKeyHeader),
	}

	account, err := h.service.ApplyDelta(ctx, arg)
	if err != nil {
		respondError(gctx, err)
		return
	}

	l.Info().
		Int64("user_id", arg.UserID).
		Str("kind", string(arg.Kind)).
		Int64("delta", arg.Delta).
		Int64("balance", account.Balance).
		Msg("balance changed")

	gctx.JSON(http.StatusOK, response{Data: data{account}})
}

type dataAccounts struct {
	Accounts []domain.Account `json:"accounts"`
}

type responseAccounts struct {
	Data dataAccounts `json:"data,omitempty"`
}

// List handles http request to list the caller's accounts.
func (h *Handler) List(gctx *gin.Context) {
	ctx := gctx.Request.Context()

	cred := middleware.Credential(gctx)

	accounts, err := h.service.List(ctx, cred.UserID)
	if err != nil {
		respondError(gctx, err)
		return
	}

	gctx.JSON(http.StatusOK, responseAccounts{Data: dataAccounts{accounts}})
}

func bindURI(gctx *gin.Context, uri *balanceURI) bool {
	if err := gctx.ShouldBindUri(uri); err != nil {
		respondBindError(gctx, err)
		return false
	}

	return true
}

// authorize rejects requests for accounts of a user other than the caller.
func authorize(gctx *gin.Context, userID int64) bool {
	cred := middleware.Credential(gctx)
	if cred.UserID == userID {
		return true
	}

	zerolog.Ctx(gctx.Request.Context()).Warn().
		Int64("caller", cred.UserID).
		Int64("user_id", userID).
		Err(domain.ErrUnauthorizedUser).
		Send()
	gctx.JSON(http.StatusForbidden, web.Error(domain.ErrUnauthorizedUser))

	return false
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

func respondError(gctx *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		gctx.JSON(http.StatusBadRequest, web.Error(err))
	case errors.Is(err, domain.ErrAccountNotFound):
		gctx.JSON(http.StatusNotFound, web.Error(err))
	case errors.Is(err, domain.ErrRequestInProgress):
		gctx.JSON(http.StatusConflict, web.Error(err))
	case errors.Is(err, domain.ErrInsufficientFunds):
		gctx.JSON(http.StatusUnprocessableEntity, web.Error(err))
	default:
		zerolog.Ctx(gctx.Request.Context()).Error().Err(err).Send()
		gctx.JSON(http.StatusInternalServerError, web.Error(errorspkg.ErrInternal))
	}
}
