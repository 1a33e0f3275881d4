package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Messages nodes return when a transaction's fees are below the pool minimum.
const (
	MsgUnderpriced            = "transaction underpriced"
	MsgReplacementUnderpriced = "replacement transaction underpriced"
)

// Error is a JSON-RPC error object returned by a provider.
type Error struct {
	Code    int64
	Message string
	Data    string // raw JSON of the "data" member, if any
}

func (e *Error) Error() string {
	if e.Data != "" {
		return fmt.Sprintf("rpc error %d: %s (data: %s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsUnderpriced reports whether err carries an underpriced rejection payload.
func IsUnderpriced(err error) bool {
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	return rpcErr.Message == MsgUnderpriced || rpcErr.Message == MsgReplacementUnderpriced
}

// RangeMatcher recognises "log response too large" rejections from eth_getLogs.
type RangeMatcher struct {
	patterns []string
}

// NewRangeMatcher builds a matcher over provider specific message fragments.
func NewRangeMatcher(patterns ...string) *RangeMatcher {
	m := &RangeMatcher{}
	for _, p := range patterns {
		if p = strings.TrimSpace(p); p != "" {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// IsRangeTooLarge reports whether err is a provider payload matching one of the patterns.
func (m *RangeMatcher) IsRangeTooLarge(err error) bool {
	var rpcErr *Error
	if !errors.As(err, &rpcErr) {
		return false
	}
	for _, p := range m.patterns {
		if strings.Contains(rpcErr.Message, p) {
			return true
		}
	}
	return false
}
