package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const loginAttemptsPrefix = "login_attempts:"

// LoginAttempts counts failed sign-ins per credential in a fixed window.
type LoginAttempts struct {
	rdb    *redis.Client
	max    int
	window time.Duration
}

func NewLoginAttempts(rdb *redis.Client, max int, window time.Duration) *LoginAttempts {
	return &LoginAttempts{rdb: rdb, max: max, window: window}
}

func (a *LoginAttempts) Locked(ctx context.Context, key string) (bool, error) {
	n, err := a.rdb.Get(ctx, loginAttemptsPrefix+key).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return n >= a.max, nil
}

// Fail records one failure and returns the count in the current window.
func (a *LoginAttempts) Fail(ctx context.Context, key string) (int64, error) {
	k := loginAttemptsPrefix + key
	count, err := a.rdb.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if count == 1 {
		if err := a.rdb.Expire(ctx, k, a.window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (a *LoginAttempts) Reset(ctx context.Context, key string) error {
	return a.rdb.Del(ctx, loginAttemptsPrefix+key).Err()
}
