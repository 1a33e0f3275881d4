// Package health exposes the scheduler's award cycle status and the node
// provider's health over HTTP.
package health

import "time"

// SystemStatus represents the health state of the keeper or one network.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// CycleResult is the outcome of one scheduled award cycle.
type CycleResult struct {
	RunID      string
	Result     string // ok, skipped or error
	Err        error
	FinishedAt time.Time
}

// NetworkHealth contains health details for one network.
type NetworkHealth struct {
	Network             string       `json:"network"`
	Status              SystemStatus `json:"status"`
	ProviderAvailable   bool         `json:"provider_available"`
	ProviderStatus      string       `json:"provider_status"`
	ProviderErrorRate   float64      `json:"provider_error_rate"`
	LastRunID           string       `json:"last_run_id,omitempty"`
	LastResult          string       `json:"last_result,omitempty"`
	LastError           string       `json:"last_error,omitempty"`
	LastFinishedAt      *time.Time   `json:"last_finished_at,omitempty"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
}
