package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/vietddude/rngkeeper/internal/core/domain"
)

// Client wraps Redis operations for the keeper's run lock.
type Client struct {
	rdb *redis.Client
	ttl time.Duration
	log *slog.Logger
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	LockTTL  time.Duration `yaml:"lock_ttl"`
}

// Enabled reports whether a Redis URL is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb, ttl: lockTTL(cfg.LockTTL), log: slog.Default().With("component", "redis")}, nil
}

const (
	DefaultLockTTL = 2 * time.Minute
	MinLockTTL     = 3 * time.Second
)

// lockTTL applies the default and floor. The keep-alive refreshes every ttl/3.
func lockTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultLockTTL
	}
	if d < MinLockTTL {
		return MinLockTTL
	}
	return d
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// LockKey is the run lock key for one signing account on one network.
func LockKey(network domain.NetworkName, account string) string {
	return fmt.Sprintf("keeper:lock:%s:%s", network, strings.ToLower(account))
}

// Only the owner may extend or delete a lock.
var (
	refreshScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)

	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)
)

// Lock is a held run lock.
type Lock struct {
	client *Client
	key    string
	token  string
	stop   chan struct{}
	done   chan struct{}
}

// AcquireLock takes the lock and keeps it alive until Release.
// It returns domain.ErrLockHeld if another process holds it.
func (c *Client) AcquireLock(ctx context.Context, key string) (*Lock, error) {
	token := uuid.NewString()
	ok, err := c.rdb.SetNX(ctx, key, token, c.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("setnx failed: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockHeld, key)
	}

	l := &Lock{
		client: c,
		key:    key,
		token:  token,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go l.keepAlive()
	c.log.Debug("lock acquired", "key", key, "ttl", c.ttl)
	return l, nil
}

func (l *Lock) keepAlive() {
	defer close(l.done)

	ticker := time.NewTicker(l.client.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			err := l.Refresh(ctx)
			cancel()
			if err != nil {
				l.client.log.Warn("lock refresh failed", "key", l.key, "error", err)
			}
		}
	}
}

// Refresh extends the TTL of the lock.
func (l *Lock) Refresh(ctx context.Context) error {
	n, err := refreshScript.Run(ctx, l.client.rdb, []string{l.key}, l.token, l.client.ttl.Milliseconds()).Int()
	if err != nil {
		return fmt.Errorf("refresh lock: %w", err)
	}
	if n == 0 {
		return errors.New("lock lost")
	}
	return nil
}

// Release stops the keep-alive and deletes the lock if still owned.
func (l *Lock) Release(ctx context.Context) error {
	select {
	case <-l.stop:
		return nil
	default:
		close(l.stop)
	}
	<-l.done

	if err := releaseScript.Run(ctx, l.client.rdb, []string{l.key}, l.token).Err(); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	return nil
}
