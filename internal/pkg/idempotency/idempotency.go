// Package idempotency guards an operation so only one caller runs it for a
// key at a time.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrAlreadyInProgress is returned by Exec when another caller holds the key.
var ErrAlreadyInProgress = errors.New("idempotency: operation already in progress")

const defaultLockDuration = 30 * time.Second

type Idempotency interface {
	// Exec runs fn while holding key. The hold expires after lockDuration
	// even if fn has not returned.
	Exec(ctx context.Context, key string, lockDuration time.Duration, fn func(context.Context) error) error
}

// releaseScript deletes the key only if it still carries our token, so an
// expired holder never releases a newer one.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLock struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient) *RedisLock {
	return &RedisLock{client: client, prefix: "idempotency:"}
}

func (l *RedisLock) Exec(ctx context.Context, key string, lockDuration time.Duration, fn func(context.Context) error) error {
	if lockDuration <= 0 {
		lockDuration = defaultLockDuration
	}

	fk := l.prefix + key
	token := uuid.NewString()

	acquired, err := l.client.SetNX(ctx, fk, token, lockDuration).Result()
	if err != nil {
		return err
	}
	if !acquired {
		return ErrAlreadyInProgress
	}

	defer func() {
		_ = releaseScript.Run(context.WithoutCancel(ctx), l.client, []string{fk}, token).Err()
	}()

	return fn(ctx)
}
