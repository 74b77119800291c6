// internal/workers/pipeline/submit-application/idempotency.go
package submitapplication

import (
	"context"
	"errors"
	"time"

	apperrors "loan-prequal/internal/common/errors"

	"github.com/redis/go-redis/v9"
)

const (
	idempotencyPrefix     = "prequal:idempotency:"
	DefaultIdempotencyTTL = 24 * time.Hour
)

type RedisIdempotency struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRedisIdempotency(client redis.Cmdable, ttl time.Duration) *RedisIdempotency {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &RedisIdempotency{client: client, ttl: ttl}
}

func (r *RedisIdempotency) Reserve(ctx context.Context, key, applicationID string) (string, bool, error) {
	redisKey := idempotencyPrefix + key

	// Two passes cover a holder that expires between SETNX and GET.
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := r.client.SetNX(ctx, redisKey, applicationID, r.ttl).Result()
		if err != nil {
			return "", false, apperrors.NewStorageError("idempotency_reserve", err)
		}
		if ok {
			return "", true, nil
		}

		existing, err := r.client.Get(ctx, redisKey).Result()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return "", false, apperrors.NewStorageError("idempotency_lookup", err)
		}
		return existing, false, nil
	}
	return "", false, apperrors.NewStorageError("idempotency_reserve", errors.New("key churned during reservation"))
}

func (r *RedisIdempotency) Release(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, idempotencyPrefix+key).Err(); err != nil {
		return apperrors.NewStorageError("idempotency_release", err)
	}
	return nil
}
