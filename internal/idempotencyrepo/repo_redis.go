// Package idempotencyrepo keeps the outcome of balance changes made with an
// idempotency key.
package idempotencyrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-petr/fundsflow/internal/domain"
	"github.com/go-petr/fundsflow/pkg/errorspkg"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const pendingMarker = "pending"

// RepoRedis stores idempotency keys in redis.
//
// A key is first reserved with a pending marker and then replaced with the
// account produced by the change. Keys expire after ttl.
type RepoRedis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRepoRedis returns idempotency RepoRedis.
func NewRepoRedis(client *redis.Client, ttl time.Duration) *RepoRedis {
	return &RepoRedis{
		client: client,
		ttl:    ttl,
	}
}

// Key returns the redis key of the request of the user.
func Key(userID int64, requestID string) string {
	return fmt.Sprintf("ledger:delta:%d:%s", userID, requestID)
}

// Reserve marks the request as in progress.
//
// It returns false when the request has already been reserved.
func (r *RepoRedis) Reserve(ctx context.Context, userID int64, requestID string) (bool, error) {
	l := zerolog.Ctx(ctx)

	ok, err := r.client.SetNX(ctx, Key(userID, requestID), pendingMarker, r.ttl).Result()
	if err != nil {
		l.Error().Err(err).Int64("user_id", userID).Str("request_id", requestID).Send()
		return false, errorspkg.ErrInternal
	}

	return ok, nil
}

// Load returns the account stored for the completed request.
//
// ErrRequestInProgress is returned while the request is still being applied.
func (r *RepoRedis) Load(ctx context.Context, userID int64, requestID string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	var a domain.Account

	data, err := r.client.Get(ctx, Key(userID, requestID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return a, domain.ErrRequestInProgress
		}

		l.Error().Err(err).Send()

		return a, errorspkg.ErrInternal
	}

	if string(data) == pendingMarker {
		return a, domain.ErrRequestInProgress
	}

	if err := json.Unmarshal(data, &a); err != nil {
		l.Error().Err(err).Str("value", string(data)).Send()
		return a, errorspkg.ErrInternal
	}

	return a, nil
}

// Store saves the account produced by the request.
func (r *RepoRedis) Store(ctx context.Context, userID int64, requestID string, a domain.Account) error {
	l := zerolog.Ctx(ctx)

	data, err := json.Marshal(a)
	if err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	if err := r.client.Set(ctx, Key(userID, requestID), data, r.ttl).Err(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}

// Release drops the reservation of a request that was not applied.
func (r *RepoRedis) Release(ctx context.Context, userID int64, requestID string) error {
	l := zerolog.Ctx(ctx)

	if err := r.client.Del(ctx, Key(userID, requestID)).Err(); err != nil {
		l.Error().Err(err).Send()
		return errorspkg.ErrInternal
	}

	return nil
}
