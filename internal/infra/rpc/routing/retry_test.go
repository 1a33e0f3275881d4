package routing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vietddude/rngkeeper/internal/infra/rpc/provider"
)

type MockProvider struct {
	CallFunc  func(ctx context.Context, method string, params []any) (any, error)
	callCount int
}

func (m *MockProvider) GetName() string                  { return "mock" }
func (m *MockProvider) GetHealth() provider.HealthStatus { return provider.HealthStatus{Available: true} }
func (m *MockProvider) Close() error                     { return nil }

func (m *MockProvider) Call(ctx context.Context, method string, params []any) (any, error) {
	m.callCount++
	return m.CallFunc(ctx, method, params)
}

var fastRetry = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     time.Millisecond,
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err    error
		expect ErrorAction
	}{
		{&provider.Error{Code: -32000, Message: "Log response size exceeded."}, ActionFatal},
		{&provider.Error{Code: -32000, Message: "transaction underpriced"}, ActionFatal},
		{&provider.Error{Code: 3, Message: "execution reverted"}, ActionFatal},
		{fmt.Errorf("wrapped: %w", &provider.Error{Code: -32601, Message: "Method not found"}), ActionFatal},
		{&provider.Error{Code: -32603, Message: "upstream Timeout"}, ActionRetry},
		{context.Canceled, ActionFatal},
		{errors.New("rate limited (429), retry after: 1"), ActionRetry},
		{errors.New("connection reset by peer"), ActionRetry},
		{errors.New("http 502: bad gateway"), ActionRetry},
	}

	for _, tt := range tests {
		if got := ClassifyError(tt.err); got != tt.expect {
			t.Errorf("ClassifyError(%q) = %v, want %v", tt.err, got, tt.expect)
		}
	}
}

func TestCallWithRetry_RetriesTransportErrors(t *testing.T) {
	attempt := 0
	p := &MockProvider{CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
		attempt++
		if attempt < 3 {
			return nil, errors.New("connection refused")
		}
		return "0x1", nil
	}}

	result, err := CallWithRetry(context.Background(), p, "eth_chainId", nil, fastRetry)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != "0x1" {
		t.Errorf("expected 0x1, got %v", result)
	}
	if p.callCount != 3 {
		t.Errorf("expected 3 calls, got %d", p.callCount)
	}
}

func TestCallWithRetry_StopsOnProviderPayload(t *testing.T) {
	payload := &provider.Error{Code: -32000, Message: "Log response size exceeded."}
	p := &MockProvider{CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
		return nil, payload
	}}

	_, err := CallWithRetry(context.Background(), p, "eth_getLogs", nil, fastRetry)
	if !errors.Is(err, payload) {
		t.Fatalf("expected payload error, got %v", err)
	}
	if p.callCount != 1 {
		t.Errorf("expected 1 call, got %d", p.callCount)
	}
}

func TestCallWithRetry_GivesUp(t *testing.T) {
	p := &MockProvider{CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
		return nil, errors.New("i/o timeout")
	}}

	_, err := CallWithRetry(context.Background(), p, "eth_blockNumber", nil, fastRetry)
	if err == nil {
		t.Fatal("expected error")
	}
	if p.callCount != fastRetry.MaxAttempts {
		t.Errorf("expected %d calls, got %d", fastRetry.MaxAttempts, p.callCount)
	}
}
