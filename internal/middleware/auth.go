// Package middleware provides the gin middlewares shared by the ledger and
// payments services.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/tokenpkg"
	"github.com/go-petr/fundsflow/pkg/web"
	"github.com/rs/zerolog"
)

// Authorization header constants and gin context keys.
const (
	AuthHeaderKey  = "Authorization"
	AuthTypeBearer = "bearer"
	AuthPayloadKey = "authorization_payload"
	AuthTokenKey   = "authorization_token"
)

// Authorization errors.
var (
	ErrAuthHeaderNotFound  = errors.New("authorization header is not provided")
	ErrBadAuthHeaderFormat = errors.New("invalid authorization header format")
	ErrUnsupportedAuthType = errors.New("unsupported authorization type")
)

// AddAuthorization creates a token for userID and sets it as the request's authorization header.
func AddAuthorization(
	r *http.Request,
	tokenMaker tokenpkg.Maker,
	authType string,
	userID int64,
	duration time.Duration,
) error {
	token, _, err := tokenMaker.CreateToken(userID, duration)
	if err != nil {
		return err
	}

	r.Header.Set(AuthHeaderKey, fmt.Sprintf("%s %s", authType, token))

	return nil
}

// AuthMiddleware verifies the bearer token and stores its payload and the raw
// token in the gin context.
func AuthMiddleware(tokenMaker tokenpkg.Maker) gin.HandlerFunc {
	return func(gctx *gin.Context) {
		l := zerolog.Ctx(gctx.Request.Context())

		authHeader := gctx.GetHeader(AuthHeaderKey)
		if len(authHeader) == 0 {
			l.Info().Err(ErrAuthHeaderNotFound).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrAuthHeaderNotFound))

			return
		}

		fields := strings.Fields(authHeader)
		if len(fields) != 2 {
			l.Info().Err(ErrBadAuthHeaderFormat).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrBadAuthHeaderFormat))

			return
		}

		if strings.ToLower(fields[0]) != AuthTypeBearer {
			l.Info().Err(ErrUnsupportedAuthType).Str("type", fields[0]).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(ErrUnsupportedAuthType))

			return
		}

		payload, err := tokenMaker.VerifyToken(fields[1])
		if err != nil {
			l.Info().Err(err).Send()
			gctx.AbortWithStatusJSON(http.StatusUnauthorized, web.Error(err))

			return
		}

		gctx.Set(AuthPayloadKey, payload)
		gctx.Set(AuthTokenKey, fields[1])
		gctx.Next()
	}
}

// Credential returns the authenticated caller of the request.
//
// It must only be called from handlers behind AuthMiddleware.
func Credential(gctx *gin.Context) domain.Credential {
	payload := gctx.MustGet(AuthPayloadKey).(*tokenpkg.Payload)

	return domain.Credential{
		UserID: payload.UserID,
		Token:  gctx.GetString(AuthTokenKey),
	}
}
