package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/vietddude/rngkeeper/internal/core/domain"
)

func TestLockKey(t *testing.T) {
	got := LockKey("ethereum", "0xAbCd")
	if got != "keeper:lock:ethereum:0xabcd" {
		t.Errorf("unexpected key %s", got)
	}
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !(Config{URL: "redis://localhost:6379/0"}).Enabled() {
		t.Error("config with URL should be enabled")
	}
}

func TestLockTTL(t *testing.T) {
	tests := []struct {
		in, want time.Duration
	}{
		{0, DefaultLockTTL},
		{-time.Second, DefaultLockTTL},
		{1, MinLockTTL},
		{2 * time.Nanosecond, MinLockTTL},
		{time.Second, MinLockTTL},
		{MinLockTTL, MinLockTTL},
		{time.Minute, time.Minute},
	}
	for _, tt := range tests {
		got := lockTTL(tt.in)
		if got != tt.want {
			t.Errorf("lockTTL(%s) = %s, want %s", tt.in, got, tt.want)
		}
		if got/3 <= 0 {
			t.Errorf("lockTTL(%s) gives a non-positive refresh interval", tt.in)
		}
	}
}

func TestLock_Live(t *testing.T) {
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}

	c, err := NewClient(Config{URL: url, LockTTL: 3 * time.Second})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer c.Close()

	ctx := context.Background()
	key := LockKey("test", "0x"+time.Now().Format("150405.000000"))

	lock, err := c.AcquireLock(ctx, key)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	if _, err := c.AcquireLock(ctx, key); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}

	// Outlive the TTL; the keep-alive must hold the lock.
	time.Sleep(4 * time.Second)
	if _, err := c.AcquireLock(ctx, key); !errors.Is(err, domain.ErrLockHeld) {
		t.Fatalf("expected lock to survive TTL, got %v", err)
	}

	if err := lock.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}
	if err := lock.Release(ctx); err != nil {
		t.Fatalf("second release: %v", err)
	}

	again, err := c.AcquireLock(ctx, key)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	again.Release(ctx)
}
