package scanner

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper/eventlog"
	"github.com/vietddude/rngkeeper/internal/keeper/keepertest"
)

func newScanner(oracle *keepertest.FakeOracle, head uint64) *Scanner {
	fetcher := eventlog.NewFetcher(eventlog.Config{Network: "test", WindowBlocks: 1000}).
		WithSleep(func(context.Context, time.Duration) error { return nil })
	return New("test", oracle, &keepertest.FakeChain{Head: head}, fetcher)
}

func TestScanPending_Basic(t *testing.T) {
	oracle := keepertest.NewFakeOracle(5)
	oracle.Complete[1] = true
	oracle.Complete[4] = true
	failures := domain.NewFailureSet([]domain.FailureEvent{{RequestID: 2, BlockNumber: 10}})

	pending, err := newScanner(oracle, 100).ScanPending(context.Background(), 5, failures)
	require.NoError(t, err)
	assert.Equal(t, []domain.RequestID{3, 5}, pending)
	// Every id is read live, including failed ones.
	assert.Equal(t, []domain.RequestID{1, 2, 3, 4, 5}, oracle.CompleteCalls)
}

func TestScanPending_Empty(t *testing.T) {
	oracle := keepertest.NewFakeOracle(0)
	pending, err := newScanner(oracle, 100).ScanPending(context.Background(), 0, domain.NewFailureSet(nil))
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.Empty(t, oracle.CompleteCalls)
}

// The pending list is exactly {i in 1..N : !complete(i) && i not failed}, ascending.
func TestScanPending_Property(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for round := 0; round < 200; round++ {
		n := uint32(rng.Intn(40))
		oracle := keepertest.NewFakeOracle(n)
		failures := domain.NewFailureSet(nil)

		var want []domain.RequestID
		for i := uint32(1); i <= n; i++ {
			id := domain.RequestID(i)
			complete := rng.Intn(3) == 0
			failed := rng.Intn(4) == 0
			oracle.Complete[id] = complete
			if failed {
				failures.Add(domain.FailureEvent{RequestID: id, BlockNumber: uint64(rng.Intn(1000))})
			}
			if !complete && !failed {
				want = append(want, id)
			}
		}

		got, err := newScanner(oracle, 1000).ScanPending(context.Background(), n, failures)
		require.NoError(t, err)
		assert.Equal(t, want, got, "round %d", round)
	}
}

func TestDiscover(t *testing.T) {
	oracle := keepertest.NewFakeOracle(4)
	oracle.Complete[1] = true
	oracle.Failures = []domain.FailureEvent{
		{RequestID: 3, BlockNumber: 150},
		{RequestID: 3, BlockNumber: 160},
		{RequestID: 9, BlockNumber: 50}, // before deploy block, not in range
	}

	scan, err := newScanner(oracle, 500).Discover(context.Background(), 100)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), scan.RequestCount)
	assert.Equal(t, uint64(500), scan.Head)
	assert.Equal(t, []domain.RequestID{3}, scan.Failed.IDs())
	assert.Equal(t, []domain.RequestID{2, 4}, scan.Pending)
	assert.Contains(t, oracle.Calls, "filterFailures(100-500)")
}

func TestDiscover_DeployBlockAheadOfHead(t *testing.T) {
	oracle := keepertest.NewFakeOracle(1)
	_, err := newScanner(oracle, 10).Discover(context.Background(), 11)
	assert.ErrorIs(t, err, domain.ErrInvalidRange)
}
