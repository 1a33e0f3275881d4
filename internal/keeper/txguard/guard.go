// Package txguard resubmits fee-paying transactions the node rejected as underpriced.
package txguard

import (
	"context"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/infra/rpc"
	"github.com/vietddude/rngkeeper/internal/keeper/metrics"
)

// DefaultBackoff is the wait between underpriced resubmissions.
const DefaultBackoff = 60 * time.Second

// Action submits one transaction.
type Action func(ctx context.Context) (*domain.TxResult, error)

// Guard retries actions rejected as underpriced. Retries are unbounded; only
// the context stops them. Every other error is returned on first sight.
type Guard struct {
	network domain.NetworkName
	backoff func() retry.Backoff
	log     *slog.Logger
}

// New creates a guard waiting interval between attempts.
func New(network domain.NetworkName, interval time.Duration) *Guard {
	if interval <= 0 {
		interval = DefaultBackoff
	}
	return &Guard{
		network: network,
		backoff: func() retry.Backoff { return retry.NewConstant(interval) },
		log:     slog.Default().With("component", "txguard", "network", network),
	}
}

// WithBackoff replaces the backoff policy, one instance per Submit.
func (g *Guard) WithBackoff(f func() retry.Backoff) *Guard {
	g.backoff = f
	return g
}

// Submit runs action until it succeeds or fails with a non-underpriced error.
func (g *Guard) Submit(ctx context.Context, name string, action Action) (*domain.TxResult, error) {
	var result *domain.TxResult
	attempt := 0

	err := retry.Do(ctx, g.backoff(), func(ctx context.Context) error {
		attempt++
		res, err := action(ctx)
		if err == nil {
			result = res
			return nil
		}
		if rpc.IsUnderpriced(err) {
			g.log.Warn("transaction underpriced, retrying",
				"action", name,
				"attempt", attempt,
				"error", err,
			)
			metrics.UnderpricedRetries.WithLabelValues(string(g.network), name).Inc()
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
