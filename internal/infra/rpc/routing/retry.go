package routing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/vietddude/rngkeeper/internal/infra/rpc/provider"
)

// RetryConfig bounds read retries. Delays double from InitialDelay up to MaxDelay.
type RetryConfig struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
}

var DefaultRetryConfig = RetryConfig{
	MaxAttempts:  5,
	InitialDelay: time.Second,
	MaxDelay:     30 * time.Second,
}

func (c RetryConfig) backoff() retry.Backoff {
	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	initial := c.InitialDelay
	if initial <= 0 {
		initial = time.Millisecond
	}
	b := retry.NewExponential(initial)
	if c.MaxDelay > 0 {
		b = retry.WithCappedDuration(c.MaxDelay, b)
	}
	return retry.WithMaxRetries(uint64(attempts-1), b)
}

// ErrorAction tells CallWithRetry whether another attempt can help.
type ErrorAction int

const (
	ActionRetry ErrorAction = iota
	ActionFatal
)

// ClassifyError sorts read failures. A JSON-RPC error payload is the node's
// answer (revert, bad params, oversized log range, fee rejection) and asking
// again returns the same answer, so it is fatal here and left to the caller.
// The one exception is an upstream timeout reported as -32603. Transport
// failures and HTTP status errors are retried.
func ClassifyError(err error) ErrorAction {
	var rpcErr *provider.Error
	switch {
	case err == nil:
		return ActionRetry
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ActionFatal
	case errors.As(err, &rpcErr):
		if rpcErr.Code == -32603 && strings.Contains(strings.ToLower(rpcErr.Message), "timeout") {
			return ActionRetry
		}
		return ActionFatal
	default:
		return ActionRetry
	}
}

// CallWithRetry runs a read-only call, retrying errors ClassifyError accepts.
// Never route a state-changing call through here.
func CallWithRetry(
	ctx context.Context,
	p provider.Provider,
	method string,
	params []any,
	config RetryConfig,
) (any, error) {
	var (
		result   any
		attempts int
	)
	err := retry.Do(ctx, config.backoff(), func(ctx context.Context) error {
		attempts++
		res, err := p.Call(ctx, method, params)
		if err == nil {
			result = res
			return nil
		}
		if ClassifyError(err) == ActionFatal {
			return err
		}
		return retry.RetryableError(err)
	})
	if err == nil {
		return result, nil
	}
	if attempts > 1 && ClassifyError(err) == ActionRetry {
		return nil, fmt.Errorf("%s failed after %d attempts: %w", method, attempts, err)
	}
	return nil, err
}
