// Package control runs award cycles on a cron schedule next to the health
// and metrics HTTP server.
package control

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	redisclient "github.com/vietddude/rngkeeper/internal/infra/redis"
	"github.com/vietddude/rngkeeper/internal/keeper/award"
)

// Job is one network's award cycle.
type Job struct {
	Network domain.NetworkName
	// Account signs the cycle's transactions; it scopes the run lock.
	Account common.Address
	Run     func(ctx context.Context) (*award.Report, error)
}

// Locker serialises keeper processes signing for the same account.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(context.Context) error, err error)
}

// RedisLocker adapts the Redis run lock to Locker.
type RedisLocker struct {
	Client *redisclient.Client
}

// Lock acquires the run lock for key.
func (l RedisLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	lock, err := l.Client.AcquireLock(ctx, key)
	if err != nil {
		return nil, err
	}
	return lock.Release, nil
}

// WithLock runs fn while holding the run lock for network and account.
// A nil locker runs fn unlocked.
func WithLock(ctx context.Context, locker Locker, network domain.NetworkName, account common.Address, fn func(ctx context.Context) error) error {
	if locker == nil {
		return fn(ctx)
	}

	key := redisclient.LockKey(network, account.Hex())
	release, err := locker.Lock(ctx, key)
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	defer func() {
		if err := release(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to release run lock", "key", key, "error", err)
		}
	}()
	return fn(ctx)
}
