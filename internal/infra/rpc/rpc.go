// Package rpc provides the JSON-RPC client the keeper talks to its node through.
//
// # Quick Start
//
//	import "github.com/vietddude/rngkeeper/internal/infra/rpc"
//
//	p := rpc.NewHTTPProvider("alchemy", alchemyURL, 30*time.Second)
//	client := rpc.NewClient(p, rpc.DefaultRetryConfig)
//
//	// Reads are retried on transport failures
//	result, err := client.Call(ctx, "eth_blockNumber", nil)
//
//	// Submissions are sent exactly once
//	hash, err := client.Send(ctx, "eth_sendRawTransaction", []any{rawTx})
//
// # Package Structure
//
//   - provider/ - HTTPProvider, JSON-RPC error payloads, monitoring
//   - routing/  - retry policy and error classification
//
// Callers outside this package use the aliases below.
package rpc

import (
	"time"

	"github.com/vietddude/rngkeeper/internal/infra/rpc/provider"
	"github.com/vietddude/rngkeeper/internal/infra/rpc/routing"
)

type Provider = provider.Provider

type HTTPProvider = provider.HTTPProvider

// Error is a JSON-RPC error payload returned by a provider.
type Error = provider.Error

type HealthStatus = provider.HealthStatus

// MonitorStats holds a provider's latency and throttle statistics.
type MonitorStats = provider.MonitorStats

// ProviderStatus is the monitor's view of a provider.
type ProviderStatus = provider.ProviderStatus

const (
	StatusHealthy   = provider.StatusHealthy
	StatusDegraded  = provider.StatusDegraded
	StatusThrottled = provider.StatusThrottled
)

// RangeMatcher recognises eth_getLogs "response too large" rejections.
type RangeMatcher = provider.RangeMatcher

type RetryConfig = routing.RetryConfig

var DefaultRetryConfig = routing.DefaultRetryConfig

func NewHTTPProvider(name, endpoint string, timeout time.Duration) *HTTPProvider {
	return provider.NewHTTPProvider(name, endpoint, timeout)
}

// NewRangeMatcher builds a matcher over provider specific message fragments.
func NewRangeMatcher(patterns ...string) *RangeMatcher {
	return provider.NewRangeMatcher(patterns...)
}

// IsUnderpriced reports whether err is an underpriced transaction rejection.
func IsUnderpriced(err error) bool {
	return provider.IsUnderpriced(err)
}

// CallWithRetry retries fn while ClassifyError says the failure is transient.
var CallWithRetry = routing.CallWithRetry
