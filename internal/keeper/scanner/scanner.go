// Package scanner finds randomness requests that still need a fulfillment.
package scanner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper/eventlog"
	"github.com/vietddude/rngkeeper/internal/keeper/metrics"
)

// Oracle is the part of the oracle contract the scanner reads.
type Oracle interface {
	RequestCount(ctx context.Context) (uint32, error)
	IsRequestComplete(ctx context.Context, id domain.RequestID) (bool, error)
	FilterFailures(ctx context.Context, r domain.BlockRange) ([]domain.FailureEvent, error)
}

// HeadReader returns the current head block.
type HeadReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
}

// Scanner discovers outstanding requests.
type Scanner struct {
	network domain.NetworkName
	oracle  Oracle
	head    HeadReader
	fetcher *eventlog.Fetcher
	log     *slog.Logger
}

// New creates a scanner.
func New(network domain.NetworkName, oracle Oracle, head HeadReader, fetcher *eventlog.Fetcher) *Scanner {
	return &Scanner{
		network: network,
		oracle:  oracle,
		head:    head,
		fetcher: fetcher,
		log:     slog.Default().With("component", "scanner", "network", network),
	}
}

// ScanPending returns ids in 1..requestCount that are neither complete nor
// failed, in ascending order. Completion is read live for every id.
func (s *Scanner) ScanPending(
	ctx context.Context,
	requestCount uint32,
	failures domain.FailureSet,
) ([]domain.RequestID, error) {
	var pending []domain.RequestID
	for i := uint32(1); i <= requestCount && i != 0; i++ {
		id := domain.RequestID(i)
		complete, err := s.oracle.IsRequestComplete(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("isRequestComplete(%d): %w", id, err)
		}
		if complete || failures.Contains(id) {
			continue
		}
		pending = append(pending, id)
	}
	return pending, nil
}

// Scan is the result of Discover.
type Scan struct {
	RequestCount uint32
	Head         uint64
	Failed       domain.FailureSet
	Pending      []domain.RequestID
}

// Discover reads the request count and failure history from deployBlock to
// the head and returns the outstanding requests.
func (s *Scanner) Discover(ctx context.Context, deployBlock uint64) (*Scan, error) {
	head, err := s.head.BlockNumber(ctx)
	if err != nil {
		return nil, fmt.Errorf("read head block: %w", err)
	}
	if deployBlock > head {
		return nil, fmt.Errorf("deploy block %d is ahead of head %d: %w", deployBlock, head, domain.ErrInvalidRange)
	}

	failed, err := s.fetcher.Fetch(ctx, failureSource{s.oracle}, deployBlock, head)
	if err != nil {
		return nil, err
	}

	count, err := s.oracle.RequestCount(ctx)
	if err != nil {
		return nil, fmt.Errorf("requestCount: %w", err)
	}

	pending, err := s.ScanPending(ctx, count, failed)
	if err != nil {
		return nil, err
	}

	s.log.Info("requests scanned",
		"request_count", count,
		"failed", failed.IDs(),
		"pending", pending,
		"range", domain.BlockRange{From: deployBlock, To: head}.String(),
	)
	metrics.PendingRequests.WithLabelValues(string(s.network)).Set(float64(len(pending)))

	return &Scan{RequestCount: count, Head: head, Failed: failed, Pending: pending}, nil
}

type failureSource struct {
	oracle Oracle
}

func (f failureSource) EventName() string { return "RandomNumberFailed" }

func (f failureSource) Filter(ctx context.Context, r domain.BlockRange) ([]domain.FailureEvent, error) {
	return f.oracle.FilterFailures(ctx, r)
}
