package rpc

import (
	"context"
	"errors"
	"testing"
	"time"
)

// MockProvider implements Provider for client tests
type MockProvider struct {
	CallFunc  func(ctx context.Context, method string, params []any) (any, error)
	callCount int
}

func (m *MockProvider) GetName() string { return "mock" }

func (m *MockProvider) GetHealth() HealthStatus { return HealthStatus{Available: true} }

func (m *MockProvider) Close() error { return nil }

func (m *MockProvider) Call(ctx context.Context, method string, params []any) (any, error) {
	m.callCount++
	return m.CallFunc(ctx, method, params)
}

var testRetry = RetryConfig{
	MaxAttempts:  3,
	InitialDelay: time.Millisecond,
	MaxDelay:     time.Millisecond,
}

func TestClient_CallRetriesReads(t *testing.T) {
	p := &MockProvider{CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
		return nil, errors.New("connection reset by peer")
	}}
	c := NewClient(p, testRetry)

	if _, err := c.Call(context.Background(), "eth_blockNumber", nil); err == nil {
		t.Fatal("expected error")
	}
	if p.callCount != 3 {
		t.Errorf("expected 3 attempts, got %d", p.callCount)
	}
}

func TestClient_SendIsSingleShot(t *testing.T) {
	p := &MockProvider{CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
		return nil, errors.New("connection reset by peer")
	}}
	c := NewClient(p, testRetry)

	if _, err := c.Send(context.Background(), "eth_sendRawTransaction", []any{"0x00"}); err == nil {
		t.Fatal("expected error")
	}
	if p.callCount != 1 {
		t.Errorf("expected 1 attempt, got %d", p.callCount)
	}
}

func TestClient_UnderpricedPassesThrough(t *testing.T) {
	p := &MockProvider{CallFunc: func(ctx context.Context, method string, params []any) (any, error) {
		return nil, &Error{Code: -32000, Message: "transaction underpriced"}
	}}
	c := NewClient(p, testRetry)

	_, err := c.Send(context.Background(), "eth_sendRawTransaction", []any{"0x00"})
	if !IsUnderpriced(err) {
		t.Errorf("expected underpriced error, got %v", err)
	}
}
