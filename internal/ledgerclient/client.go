// Package ledgerclient calls the ledger service on behalf of an authenticated user.
package ledgerclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/rs/zerolog"
)

// Client is the ledger service RPC client.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// New returns Client calling the ledger at baseURL. Every call is bounded by timeout.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
	}
}

type envelope struct {
	Data struct {
		Account domain.Account `json:"account"`
	} `json:"data"`
	Error string `json:"error"`
}

// GetBalance returns the account of the given kind of the user.
//
// A timeout is reported as ErrRemoteUnavailable since nothing was changed.
func (c *Client) GetBalance(ctx context.Context, token string, userID int64, kind domain.AccountKind) (domain.Account, error) {
	path := balancePath(userID, kind)

	a, err := c.do(ctx, http.MethodGet, path, token, "", nil)
	if err != nil && errors.Is(err, errTimeout) {
		return a, fmt.Errorf("%w: %s %s timed out", domain.ErrRemoteUnavailable, http.MethodGet, path)
	}

	return a, err
}

type applyDeltaRequest struct {
	Delta int64 `json:"delta"`
}

// ApplyDelta changes the balance of the user's account by arg.Delta.
//
// arg.RequestID is sent as the Idempotency-Key header. A timeout is reported
// as ErrAmbiguousOutcome since the change may have been applied.
func (c *Client) ApplyDelta(ctx context.Context, token string, arg domain.ApplyDeltaParams) (domain.Account, error) {
	path := balancePath(arg.UserID, arg.Kind) + "/deltas"

	body, err := json.Marshal(applyDeltaRequest{Delta: arg.Delta})
	if err != nil {
		return domain.Account{}, err
	}

	a, err := c.do(ctx, http.MethodPost, path, token, arg.RequestID, body)
	if err != nil && errors.Is(err, errTimeout) {
		return a, fmt.Errorf("%w: %s %s timed out", domain.ErrAmbiguousOutcome, http.MethodPost, path)
	}

	return a, err
}

var errTimeout = errors.New("ledger call timed out")

func (c *Client) do(ctx context.Context, method, path, token, requestID string, body []byte) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var a domain.Account

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		l.Error().Err(err).Send()
		return a, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	if requestID != "" {
		req.Header.Set("Idempotency-Key", requestID)
	}

	start := time.Now()

	res, err := c.http.Do(req)
	if err != nil {
		l.Warn().Err(err).Str("method", method).Str("path", path).Dur("latency", time.Since(start)).Msg("ledger call failed")

		if isTimeout(err) {
			return a, errTimeout
		}

		return a, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer res.Body.Close()

	var env envelope

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		l.Warn().Err(err).Str("method", method).Str("path", path).Msg("read ledger response")

		if isTimeout(err) {
			return a, errTimeout
		}

		return a, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}

	if err := json.Unmarshal(raw, &env); err != nil && res.StatusCode == http.StatusOK {
		l.Error().Err(err).Str("body", string(raw)).Msg("decode ledger response")
		return a, fmt.Errorf("%w: malformed response: %v", domain.ErrRemoteUnavailable, err)
	}

	l.Debug().
		Str("method", method).
		Str("path", path).
		Int("status_code", res.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("ledger call")

	if res.StatusCode == http.StatusOK {
		return env.Data.Account, nil
	}

	msg := env.Error
	if msg == "" {
		msg = http.StatusText(res.StatusCode)
	}

	return a, fmt.Errorf("%w: %s", statusError(res.StatusCode), msg)
}

func statusError(code int) error {
	switch code {
	case http.StatusBadRequest:
		return domain.ErrValidation
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusForbidden:
		return domain.ErrUnauthorizedUser
	case http.StatusNotFound:
		return domain.ErrAccountNotFound
	case http.StatusConflict:
		return domain.ErrAmbiguousOutcome
	case http.StatusUnprocessableEntity:
		return domain.ErrInsufficientFunds
	}

	return domain.ErrRemoteUnavailable
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ne net.Error

	return errors.As(err, &ne) && ne.Timeout()
}

func balancePath(userID int64, kind domain.AccountKind) string {
	return "/balances/" + strconv.FormatInt(userID, 10) + "/" + url.PathEscape(string(kind))
}
