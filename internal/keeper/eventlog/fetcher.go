// Package eventlog reads contract events over block ranges that providers may
// reject as too large, splitting the range into windows when they do.
package eventlog

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper/metrics"
)

// Source reads one event type over an inclusive block range.
type Source interface {
	EventName() string
	Filter(ctx context.Context, r domain.BlockRange) ([]domain.FailureEvent, error)
}

// Config controls the windowed fallback.
type Config struct {
	Network         domain.NetworkName
	WindowBlocks    uint64
	WindowDelay     time.Duration
	IsRangeTooLarge func(error) bool
}

// Fetcher reads events, falling back to windowed queries on oversized ranges.
type Fetcher struct {
	cfg   Config
	sleep func(ctx context.Context, d time.Duration) error
	log   *slog.Logger
}

// NewFetcher creates a fetcher.
func NewFetcher(cfg Config) *Fetcher {
	if cfg.WindowBlocks == 0 {
		cfg.WindowBlocks = 100_000
	}
	if cfg.IsRangeTooLarge == nil {
		cfg.IsRangeTooLarge = func(error) bool { return false }
	}
	return &Fetcher{
		cfg:   cfg,
		sleep: sleepCtx,
		log:   slog.Default().With("component", "eventlog", "network", cfg.Network),
	}
}

// WithSleep replaces the inter-window delay function.
func (f *Fetcher) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Fetcher {
	f.sleep = sleep
	return f
}

// Fetch returns every event in [from, to], deduplicated by request id.
func (f *Fetcher) Fetch(ctx context.Context, src Source, from, to uint64) (domain.FailureSet, error) {
	r, err := domain.NewBlockRange(from, to)
	if err != nil {
		return nil, err
	}

	events, err := src.Filter(ctx, r)
	if err == nil {
		return domain.NewFailureSet(events), nil
	}
	if !f.cfg.IsRangeTooLarge(err) {
		return nil, fmt.Errorf("fetch %s %s: %w", src.EventName(), r, err)
	}

	f.log.Info("log response too large, switching to windowed queries",
		"event", src.EventName(),
		"range", r.String(),
		"window", f.cfg.WindowBlocks,
	)
	metrics.LogWindowFallbacks.WithLabelValues(string(f.cfg.Network), src.EventName()).Inc()

	set := domain.NewFailureSet(nil)
	if err := f.fetchWindows(ctx, src, from, to, f.cfg.WindowBlocks, set); err != nil {
		return nil, err
	}
	return set, nil
}

// fetchWindows walks [from, to] in windows of width blocks. When a window is
// still too large it hands the rest of the range to a nested walk at half the
// width and does not resume, so each block is queried by exactly one walk.
func (f *Fetcher) fetchWindows(
	ctx context.Context,
	src Source,
	from, to, width uint64,
	set domain.FailureSet,
) error {
	if width < 1 {
		return fmt.Errorf("fetch %s from block %d: %w", src.EventName(), from, domain.ErrWindowExhausted)
	}

	start := from
	for {
		end := start + width - 1
		if end > to || end < start {
			end = to
		}
		window := domain.BlockRange{From: start, To: end}

		events, err := src.Filter(ctx, window)
		if err != nil {
			if !f.cfg.IsRangeTooLarge(err) {
				return fmt.Errorf("fetch %s %s: %w", src.EventName(), window, err)
			}
			f.log.Info("window too large, halving",
				"event", src.EventName(),
				"range", window.String(),
				"window", width/2,
			)
			metrics.LogWindowFallbacks.WithLabelValues(string(f.cfg.Network), src.EventName()).Inc()
			return f.fetchWindows(ctx, src, start, to, width/2, set)
		}

		for _, ev := range events {
			set.Add(ev)
		}
		f.log.Debug("window fetched", "event", src.EventName(), "range", window.String(), "events", len(events))

		if err := f.sleep(ctx, f.cfg.WindowDelay); err != nil {
			return err
		}
		if end == to {
			return nil
		}
		start = end + 1
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
