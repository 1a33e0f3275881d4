package rpc

import (
	"context"
	"log/slog"
)

// Client is the high-level interface for making RPC calls.
// This is what application layers should use.
type Client struct {
	provider Provider
	retry    RetryConfig
	logger   *slog.Logger
}

// NewClient creates a new RPC client over a single provider.
func NewClient(p Provider, retry RetryConfig) *Client {
	return &Client{
		provider: p,
		retry:    retry,
		logger:   slog.Default().With("component", "rpc", "provider", p.GetName()),
	}
}

// Call makes a read-only RPC call, retrying transport failures.
func (c *Client) Call(ctx context.Context, method string, params []any) (any, error) {
	result, err := CallWithRetry(ctx, c.provider, method, params, c.retry)
	if err != nil {
		c.logger.Debug("rpc call failed", "method", method, "error", err)
	}
	return result, err
}

// Send makes a single, non-retried RPC call. Used for state changing methods.
func (c *Client) Send(ctx context.Context, method string, params []any) (any, error) {
	result, err := c.provider.Call(ctx, method, params)
	if err != nil {
		c.logger.Debug("rpc send failed", "method", method, "error", err)
	}
	return result, err
}

// Health returns the underlying provider's health.
func (c *Client) Health() HealthStatus {
	return c.provider.GetHealth()
}

// Close releases the provider.
func (c *Client) Close() error {
	return c.provider.Close()
}
