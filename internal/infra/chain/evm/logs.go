package evm

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

// FilterLogs runs eth_getLogs. FromBlock and ToBlock must be set.
// Provider rejections (such as oversized responses) are returned unwrapped
// enough for errors.As to reach the *rpc.Error.
func (c *Client) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	if q.FromBlock == nil || q.ToBlock == nil {
		return nil, fmt.Errorf("filter query requires an explicit block range")
	}

	arg := map[string]any{
		"fromBlock": hexutil.EncodeBig(q.FromBlock),
		"toBlock":   hexutil.EncodeBig(q.ToBlock),
	}
	if len(q.Addresses) > 0 {
		arg["address"] = q.Addresses
	}
	if len(q.Topics) > 0 {
		arg["topics"] = encodeTopics(q.Topics)
	}

	result, err := c.rpc.Call(ctx, "eth_getLogs", []any{arg})
	if err != nil {
		return nil, fmt.Errorf("eth_getLogs [%s, %s] failed: %w", q.FromBlock, q.ToBlock, err)
	}
	return parseLogs(result)
}

func encodeTopics(topics [][]common.Hash) []any {
	out := make([]any, len(topics))
	for i, set := range topics {
		switch len(set) {
		case 0:
			out[i] = nil
		case 1:
			out[i] = set[0]
		default:
			out[i] = set
		}
	}
	return out
}
