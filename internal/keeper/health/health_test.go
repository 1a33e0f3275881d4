package health

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vietddude/rngkeeper/internal/infra/rpc"
)

type stubProvider struct {
	status rpc.HealthStatus
}

func (s *stubProvider) Health() rpc.HealthStatus { return s.status }

func healthyProvider() *stubProvider {
	return &stubProvider{status: rpc.HealthStatus{
		Available:    true,
		MonitorStats: &rpc.MonitorStats{Status: rpc.StatusHealthy},
	}}
}

func TestMonitor_Statuses(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	failure := errors.New("nonce too low")

	tests := []struct {
		name     string
		provider *stubProvider
		cycles   []CycleResult
		expected SystemStatus
	}{
		{"no cycle yet", healthyProvider(), nil, StatusHealthy},
		{"last cycle ok", healthyProvider(), []CycleResult{{Result: "ok", FinishedAt: now}}, StatusHealthy},
		{"last cycle skipped", healthyProvider(), []CycleResult{{Result: "skipped", FinishedAt: now}}, StatusHealthy},
		{"one failure", healthyProvider(), []CycleResult{{Result: "error", Err: failure, FinishedAt: now}}, StatusDegraded},
		{
			"three failures",
			healthyProvider(),
			[]CycleResult{
				{Result: "error", Err: failure, FinishedAt: now},
				{Result: "error", Err: failure, FinishedAt: now},
				{Result: "error", Err: failure, FinishedAt: now},
			},
			StatusCritical,
		},
		{
			"recovered",
			healthyProvider(),
			[]CycleResult{
				{Result: "error", Err: failure, FinishedAt: now},
				{Result: "ok", FinishedAt: now},
			},
			StatusHealthy,
		},
		{"stale", healthyProvider(), []CycleResult{{Result: "ok", FinishedAt: now.Add(-2 * time.Hour)}}, StatusDegraded},
		{
			"provider throttled",
			&stubProvider{status: rpc.HealthStatus{Available: true, MonitorStats: &rpc.MonitorStats{Status: rpc.StatusThrottled}}},
			nil,
			StatusDegraded,
		},
		{"provider down", &stubProvider{status: rpc.HealthStatus{Available: false}}, nil, StatusCritical},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMonitor(time.Hour)
			m.now = func() time.Time { return now }
			m.Register("ethereum", tt.provider)
			for _, c := range tt.cycles {
				m.RecordCycle("ethereum", c)
			}

			report := m.CheckHealth()
			if len(report) != 1 {
				t.Fatalf("expected 1 network, got %d", len(report))
			}
			if report[0].Status != tt.expected {
				t.Errorf("expected %s, got %s", tt.expected, report[0].Status)
			}
		})
	}
}

func TestOverall_WorstWins(t *testing.T) {
	report := []NetworkHealth{{Status: StatusHealthy}, {Status: StatusDegraded}}
	if got := Overall(report); got != StatusDegraded {
		t.Errorf("expected degraded, got %s", got)
	}
	report = append(report, NetworkHealth{Status: StatusCritical})
	if got := Overall(report); got != StatusCritical {
		t.Errorf("expected critical, got %s", got)
	}
}

func TestServer_Endpoints(t *testing.T) {
	m := NewMonitor(0)
	m.Register("ethereum", healthyProvider())
	m.Register("polygon", &stubProvider{status: rpc.HealthStatus{Available: false}})
	m.RecordCycle("ethereum", CycleResult{RunID: "run-1", Result: "ok", FinishedAt: time.Now()})

	srv := httptest.NewServer(NewServer(m, 0).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/health/detailed")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var body struct {
		Status   SystemStatus    `json:"status"`
		Networks []NetworkHealth `json:"networks"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != StatusCritical {
		t.Errorf("expected critical, got %s", body.Status)
	}
	if len(body.Networks) != 2 || body.Networks[0].Network != "ethereum" || body.Networks[0].LastRunID != "run-1" {
		t.Errorf("unexpected networks: %+v", body.Networks)
	}

	resp, err = http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 from /metrics, got %d", resp.StatusCode)
	}
}
