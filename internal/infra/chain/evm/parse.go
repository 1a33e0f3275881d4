package evm

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

func parseLog(raw map[string]any) (types.Log, error) {
	var l types.Log

	l.Address = common.HexToAddress(getString(raw["address"]))
	if topics, ok := raw["topics"].([]any); ok {
		for _, t := range topics {
			l.Topics = append(l.Topics, common.HexToHash(getString(t)))
		}
	}

	if data := getString(raw["data"]); data != "" && data != "0x" {
		b, err := hexutil.Decode(data)
		if err != nil {
			return l, fmt.Errorf("invalid log data: %w", err)
		}
		l.Data = b
	}

	l.BlockNumber, _ = parseHexString(getString(raw["blockNumber"]))
	l.TxHash = common.HexToHash(getString(raw["transactionHash"]))
	l.BlockHash = common.HexToHash(getString(raw["blockHash"]))
	txIndex, _ := parseHexString(getString(raw["transactionIndex"]))
	l.TxIndex = uint(txIndex)
	logIndex, _ := parseHexString(getString(raw["logIndex"]))
	l.Index = uint(logIndex)
	l.Removed, _ = raw["removed"].(bool)

	return l, nil
}

func parseLogs(result any) ([]types.Log, error) {
	if result == nil {
		return nil, nil
	}
	rawLogs, ok := result.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid logs format")
	}

	logs := make([]types.Log, 0, len(rawLogs))
	for _, r := range rawLogs {
		m, ok := r.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("invalid log entry")
		}
		l, err := parseLog(m)
		if err != nil {
			return nil, err
		}
		logs = append(logs, l)
	}
	return logs, nil
}

func parseHexToBigInt(hexStr string) (*big.Int, error) {
	n := new(big.Int)
	if _, ok := n.SetString(strings.TrimPrefix(hexStr, "0x"), 16); !ok {
		return nil, fmt.Errorf("invalid hex: %q", hexStr)
	}
	return n, nil
}

func parseHexString(hexStr string) (uint64, error) {
	n, err := parseHexToBigInt(hexStr)
	if err != nil {
		return 0, err
	}
	if !n.IsUint64() {
		return 0, fmt.Errorf("hex overflows uint64: %s", hexStr)
	}
	return n.Uint64(), nil
}

func getString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}
