package health

import (
	"sort"
	"sync"
	"time"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/infra/rpc"
)

// ProviderHealth reports the health of a network's RPC provider.
type ProviderHealth interface {
	Health() rpc.HealthStatus
}

// criticalFailures is the number of consecutive failed cycles that turns a
// network critical.
const criticalFailures = 3

type networkState struct {
	provider ProviderHealth
	last     *CycleResult
	failures int
}

// Monitor aggregates cycle results and provider health per network.
type Monitor struct {
	mu         sync.RWMutex
	networks   map[domain.NetworkName]*networkState
	staleAfter time.Duration
	now        func() time.Time
}

// NewMonitor creates a monitor. A network whose last cycle finished more than
// staleAfter ago is degraded; zero disables the check.
func NewMonitor(staleAfter time.Duration) *Monitor {
	return &Monitor{
		networks:   make(map[domain.NetworkName]*networkState),
		staleAfter: staleAfter,
		now:        time.Now,
	}
}

// Register adds a network.
func (m *Monitor) Register(network domain.NetworkName, provider ProviderHealth) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.networks[network] = &networkState{provider: provider}
}

// RecordCycle stores the result of a finished cycle.
func (m *Monitor) RecordCycle(network domain.NetworkName, result CycleResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	st, ok := m.networks[network]
	if !ok {
		st = &networkState{}
		m.networks[network] = st
	}
	if result.Err != nil {
		st.failures++
	} else {
		st.failures = 0
	}
	st.last = &result
}

// CheckHealth evaluates every registered network.
func (m *Monitor) CheckHealth() []NetworkHealth {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.networks))
	for name := range m.networks {
		names = append(names, string(name))
	}
	sort.Strings(names)

	report := make([]NetworkHealth, 0, len(names))
	for _, name := range names {
		report = append(report, m.evaluate(name, m.networks[domain.NetworkName(name)]))
	}
	return report
}

func (m *Monitor) evaluate(name string, st *networkState) NetworkHealth {
	h := NetworkHealth{
		Network:             name,
		Status:              StatusHealthy,
		ProviderAvailable:   true,
		ProviderStatus:      "unknown",
		ConsecutiveFailures: st.failures,
	}

	providerDegraded := false
	if st.provider != nil {
		ph := st.provider.Health()
		h.ProviderAvailable = ph.Available
		h.ProviderErrorRate = ph.ErrorRate
		if ph.MonitorStats != nil {
			h.ProviderStatus = ph.MonitorStats.Status.String()
			providerDegraded = ph.MonitorStats.Status != rpc.StatusHealthy
		}
	}

	stale := false
	if st.last != nil {
		finished := st.last.FinishedAt
		h.LastRunID = st.last.RunID
		h.LastResult = st.last.Result
		h.LastFinishedAt = &finished
		if st.last.Err != nil {
			h.LastError = st.last.Err.Error()
		}
		stale = m.staleAfter > 0 && m.now().Sub(finished) > m.staleAfter
	}

	switch {
	case !h.ProviderAvailable || st.failures >= criticalFailures:
		h.Status = StatusCritical
	case st.failures > 0 || providerDegraded || stale:
		h.Status = StatusDegraded
	}
	return h
}

// Overall returns the worst status across networks.
func Overall(report []NetworkHealth) SystemStatus {
	status := StatusHealthy
	for _, n := range report {
		if n.Status == StatusCritical {
			return StatusCritical
		}
		if n.Status == StatusDegraded {
			status = StatusDegraded
		}
	}
	return status
}
