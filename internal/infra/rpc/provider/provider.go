// Package provider holds the single-endpoint JSON-RPC clients the router
// rotates between. Provider errors come back as *Error so revert data
// survives for decoding.
package provider

import (
	"context"
	"time"
)

// Provider is one JSON-RPC endpoint.
type Provider interface {
	// GetName is the name from the network config.
	GetName() string

	GetHealth() HealthStatus

	// Call makes a single RPC request. Provider errors are returned as *Error.
	Call(ctx context.Context, method string, params []any) (any, error)

	Close() error
}

// HealthStatus is what the router reads when picking an endpoint.
type HealthStatus struct {
	Available     bool
	Latency       time.Duration
	ErrorRate     float64
	LastSuccessAt time.Time
	LastFailureAt time.Time
	MonitorStats  *MonitorStats `json:"monitor_stats,omitempty"`
}
