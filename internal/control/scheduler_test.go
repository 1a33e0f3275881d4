package control

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	redisclient "github.com/vietddude/rngkeeper/internal/infra/redis"
	"github.com/vietddude/rngkeeper/internal/keeper/award"
	"github.com/vietddude/rngkeeper/internal/keeper/health"
)

type MockLocker struct {
	mu       sync.Mutex
	held     map[string]bool
	keys     []string
	released []string
}

func newMockLocker() *MockLocker {
	return &MockLocker{held: make(map[string]bool)}
}

func (m *MockLocker) Lock(ctx context.Context, key string) (func(context.Context) error, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	if m.held[key] {
		return nil, fmt.Errorf("%w: %s", domain.ErrLockHeld, key)
	}
	m.held[key] = true
	return func(context.Context) error {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.held[key] = false
		m.released = append(m.released, key)
		return nil
	}, nil
}

func reportJob(network domain.NetworkName, report *award.Report, err error, calls *int) Job {
	return Job{
		Network: network,
		Account: common.HexToAddress("0xabc"),
		Run: func(ctx context.Context) (*award.Report, error) {
			*calls++
			return report, err
		},
	}
}

func statusOf(t *testing.T, m *health.Monitor, network string) health.NetworkHealth {
	t.Helper()
	for _, n := range m.CheckHealth() {
		if n.Network == network {
			return n
		}
	}
	t.Fatalf("network %s not in health report", network)
	return health.NetworkHealth{}
}

func TestNewScheduler_Validation(t *testing.T) {
	monitor := health.NewMonitor(0)
	if _, err := NewScheduler(Config{Cron: "*/30 * * * *"}, nil, monitor, nil); err == nil {
		t.Error("expected error without jobs")
	}
	jobs := []Job{reportJob("ethereum", &award.Report{}, nil, new(int))}
	if _, err := NewScheduler(Config{Cron: "every half hour"}, jobs, monitor, nil); err == nil {
		t.Error("expected error for invalid cron spec")
	}
	if _, err := NewScheduler(Config{Cron: "*/30 * * * *"}, jobs, monitor, nil); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestRunCycle_RecordsResults(t *testing.T) {
	monitor := health.NewMonitor(0)
	locker := newMockLocker()
	var ethCalls, polyCalls int

	jobs := []Job{
		reportJob("ethereum", &award.Report{RunID: "run-eth"}, nil, &ethCalls),
		reportJob("polygon", &award.Report{RunID: "run-poly"}, errors.New("nonce too low"), &polyCalls),
	}
	s, err := NewScheduler(Config{Cron: "*/30 * * * *"}, jobs, monitor, locker)
	if err != nil {
		t.Fatal(err)
	}

	s.RunCycle(context.Background())

	if ethCalls != 1 || polyCalls != 1 {
		t.Fatalf("expected each job once, got eth=%d polygon=%d", ethCalls, polyCalls)
	}
	eth := statusOf(t, monitor, "ethereum")
	if eth.LastResult != "ok" || eth.LastRunID != "run-eth" || eth.Status != health.StatusHealthy {
		t.Errorf("unexpected ethereum health: %+v", eth)
	}
	poly := statusOf(t, monitor, "polygon")
	if poly.LastResult != "error" || poly.Status != health.StatusDegraded || poly.LastError == "" {
		t.Errorf("unexpected polygon health: %+v", poly)
	}
	if len(locker.released) != 2 {
		t.Errorf("expected both locks released, got %v", locker.released)
	}
}

func TestRunCycle_SkippedReport(t *testing.T) {
	monitor := health.NewMonitor(0)
	jobs := []Job{reportJob("ethereum", &award.Report{RunID: "r", Skipped: true}, nil, new(int))}
	s, _ := NewScheduler(Config{Cron: "*/30 * * * *"}, jobs, monitor, nil)

	s.RunCycle(context.Background())

	if got := statusOf(t, monitor, "ethereum").LastResult; got != "skipped" {
		t.Errorf("expected skipped, got %s", got)
	}
}

func TestRunCycle_LockHeldSkipsNetwork(t *testing.T) {
	monitor := health.NewMonitor(0)
	locker := newMockLocker()
	account := common.HexToAddress("0xabc")
	locker.held[redisclient.LockKey("ethereum", account.Hex())] = true

	var calls int
	s, _ := NewScheduler(Config{Cron: "*/30 * * * *"}, []Job{reportJob("ethereum", &award.Report{}, nil, &calls)}, monitor, locker)
	s.RunCycle(context.Background())

	if calls != 0 {
		t.Errorf("expected job not to run while lock is held, ran %d times", calls)
	}
	if report := monitor.CheckHealth(); len(report) != 0 {
		t.Errorf("expected no recorded cycle, got %+v", report)
	}
}

func TestRun_RunOnStartAndShutdown(t *testing.T) {
	monitor := health.NewMonitor(0)
	ran := make(chan struct{}, 1)
	jobs := []Job{{
		Network: "ethereum",
		Run: func(ctx context.Context) (*award.Report, error) {
			select {
			case ran <- struct{}{}:
			default:
			}
			return &award.Report{RunID: "startup"}, nil
		},
	}}

	s, err := NewScheduler(Config{Port: 0, Cron: "0 0 1 1 *", RunOnStart: true}, jobs, monitor, nil)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("cycle did not run on start")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	if got := statusOf(t, monitor, "ethereum").LastRunID; got != "startup" {
		t.Errorf("expected startup run recorded, got %q", got)
	}
}

func TestCycleInterval(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 7, 0, 0, time.UTC)
	got, err := CycleInterval("*/30 * * * *", now)
	if err != nil {
		t.Fatal(err)
	}
	if got != 30*time.Minute {
		t.Errorf("expected 30m, got %v", got)
	}
	if _, err := CycleInterval("not a spec", now); err == nil {
		t.Error("expected error for invalid spec")
	}
}
