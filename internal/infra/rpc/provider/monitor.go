package provider

import (
	"strings"
	"sync"
	"time"
)

// ProviderStatus is the endpoint's state as seen from recent calls.
type ProviderStatus int

const (
	StatusHealthy ProviderStatus = iota
	StatusDegraded
	StatusThrottled
)

func (s ProviderStatus) String() string {
	switch s {
	case StatusDegraded:
		return "degraded"
	case StatusThrottled:
		return "throttled"
	default:
		return "healthy"
	}
}

// MonitorStats is a snapshot of a ProviderMonitor.
type MonitorStats struct {
	Status         ProviderStatus
	AverageLatency time.Duration
	ThrottleCount  int
	Requests       int
}

const (
	latencyWindow  = 100
	minSamples     = 10 // below this the average says nothing
	slowAverage    = 3 * time.Second
	throttleMemory = time.Minute
)

// Fragments of rate-limit messages that Alchemy, Infura and public nodes put
// in JSON-RPC error payloads instead of answering 429.
var throttleFragments = []string{
	"rate limit exceeded",
	"too many requests",
	"daily request count exceeded",
	"project rate limit",
	"monthly capacity limit exceeded",
	"compute units per second",
}

// ProviderMonitor keeps a rolling latency average and the last rate-limit
// rejection of one endpoint.
type ProviderMonitor struct {
	mu sync.RWMutex

	latencies [latencyWindow]time.Duration
	next      int // ring position
	filled    int
	sum       time.Duration

	requests      int
	throttles     int
	lastThrottled time.Time
}

func NewProviderMonitor() *ProviderMonitor {
	return &ProviderMonitor{}
}

// RecordRequest adds a successful call to the latency window.
func (pm *ProviderMonitor) RecordRequest(latency time.Duration) {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.requests++
	if pm.filled == latencyWindow {
		pm.sum -= pm.latencies[pm.next]
	} else {
		pm.filled++
	}
	pm.latencies[pm.next] = latency
	pm.sum += latency
	pm.next = (pm.next + 1) % latencyWindow
}

// RecordThrottle notes a rate-limit rejection. The endpoint reads as
// throttled for a minute afterwards.
func (pm *ProviderMonitor) RecordThrottle() {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pm.throttles++
	pm.lastThrottled = time.Now()
}

// DetectThrottlePattern reports whether an error message is a rate-limit rejection.
func (pm *ProviderMonitor) DetectThrottlePattern(message string) bool {
	lower := strings.ToLower(message)
	for _, f := range throttleFragments {
		if strings.Contains(lower, f) {
			return true
		}
	}
	return false
}

func (pm *ProviderMonitor) CheckProviderStatus() ProviderStatus {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.status()
}

func (pm *ProviderMonitor) status() ProviderStatus {
	if pm.throttles > 0 && time.Since(pm.lastThrottled) < throttleMemory {
		return StatusThrottled
	}
	if pm.filled > minSamples && pm.average() > slowAverage {
		return StatusDegraded
	}
	return StatusHealthy
}

func (pm *ProviderMonitor) average() time.Duration {
	if pm.filled == 0 {
		return 0
	}
	return pm.sum / time.Duration(pm.filled)
}

func (pm *ProviderMonitor) GetStats() MonitorStats {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	return MonitorStats{
		Status:         pm.status(),
		AverageLatency: pm.average(),
		ThrottleCount:  pm.throttles,
		Requests:       pm.requests,
	}
}
