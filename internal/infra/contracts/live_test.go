package contracts

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/infra/chain/evm"
	"github.com/vietddude/rngkeeper/internal/infra/rpc"
)

// TestRngWitnet_Live reads a deployed oracle. Set KEEPER_LIVE=true,
// KEEPER_LIVE_RPC_URL and KEEPER_LIVE_RNG_ADDRESS to run.
func TestRngWitnet_Live(t *testing.T) {
	if os.Getenv("KEEPER_LIVE") == "" {
		t.Skip("Skipping live test. Set KEEPER_LIVE=true to run.")
	}
	url := os.Getenv("KEEPER_LIVE_RPC_URL")
	addr := os.Getenv("KEEPER_LIVE_RNG_ADDRESS")
	if url == "" || !common.IsHexAddress(addr) {
		t.Fatal("KEEPER_LIVE_RPC_URL and KEEPER_LIVE_RNG_ADDRESS must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	client := rpc.NewClient(rpc.NewHTTPProvider("live", url, 30*time.Second), rpc.DefaultRetryConfig)
	defer client.Close()
	chain := evm.NewClient(client, nil, evm.Options{DecodeRevert: DecodeRevert})

	oracle, err := NewRngWitnet(common.HexToAddress(addr), chain)
	if err != nil {
		t.Fatal(err)
	}

	count, err := oracle.RequestCount(ctx)
	if err != nil {
		t.Fatalf("requestCount: %v", err)
	}
	t.Logf("requestCount = %d", count)

	if count > 0 {
		if _, err := oracle.IsRequestComplete(ctx, domain.RequestID(count)); err != nil {
			t.Fatalf("isRequestComplete(%d): %v", count, err)
		}
	}

	head, err := chain.BlockNumber(ctx)
	if err != nil {
		t.Fatal(err)
	}
	from := uint64(0)
	if head > 1000 {
		from = head - 1000
	}
	failures, err := oracle.FilterFailures(ctx, domain.BlockRange{From: from, To: head})
	if err != nil {
		t.Fatalf("filter RandomNumberFailed: %v", err)
	}
	t.Logf("%d failures in blocks %d-%d", len(failures), from, head)
}
