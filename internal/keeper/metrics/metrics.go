package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// FulfillmentsTotal tracks classified fulfillments per network
	FulfillmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_fulfillments_total",
			Help: "Total number of fulfillment transactions by outcome",
		},
		[]string{"network", "outcome"},
	)

	// AwardsTotal tracks prize strategy transitions
	AwardsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_awards_total",
			Help: "Total number of prize strategy award actions",
		},
		[]string{"network", "stage", "result"},
	)

	// UnderpricedRetries tracks resubmissions after an underpriced rejection
	UnderpricedRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_underpriced_retries_total",
			Help: "Total number of submissions retried after an underpriced rejection",
		},
		[]string{"network", "action"},
	)

	// LogWindowFallbacks tracks log queries that had to be split into windows
	LogWindowFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_log_window_fallbacks_total",
			Help: "Total number of log range splits after an oversized response",
		},
		[]string{"network", "event"},
	)

	// PendingRequests tracks outstanding requests found by the last scan
	PendingRequests = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "keeper_pending_requests",
			Help: "Outstanding randomness requests found by the last scan",
		},
		[]string{"network"},
	)

	// GasPriceGwei tracks the gas price observed by the last price gate
	GasPriceGwei = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "keeper_gas_price_gwei",
			Help: "Gas price observed at the start of the last award cycle",
		},
		[]string{"network"},
	)

	// CyclesTotal tracks award cycle results
	CyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "keeper_cycles_total",
			Help: "Total number of award cycles by result",
		},
		[]string{"network", "result"},
	)

	// CycleDuration tracks award cycle wall time
	CycleDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "keeper_cycle_duration_seconds",
			Help:    "Award cycle duration in seconds",
			Buckets: []float64{1, 5, 30, 60, 300, 900, 1800, 3600},
		},
		[]string{"network"},
	)

	// LastCycleTimestamp tracks when the last award cycle finished
	LastCycleTimestamp = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "keeper_last_cycle_timestamp_seconds",
			Help: "Unix time the last award cycle finished",
		},
		[]string{"network", "result"},
	)
)

// Push sends the default registry to a Prometheus pushgateway.
func Push(ctx context.Context, url, job string) error {
	if err := push.New(url, job).Gatherer(prometheus.DefaultGatherer).PushContext(ctx); err != nil {
		return fmt.Errorf("push metrics: %w", err)
	}
	return nil
}
