package evm

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/tidwall/gjson"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/infra/rpc"
)

var defaultTipCap = big.NewInt(2_000_000_000)

// RevertError is a contract revert with its raw data and decoded reason.
type RevertError struct {
	Data   []byte
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason != "" {
		return "execution reverted: " + e.Reason
	}
	if len(e.Data) > 0 {
		return "execution reverted: " + hexutil.Encode(e.Data)
	}
	return "execution reverted"
}

func (e *RevertError) Unwrap() error { return domain.ErrReverted }

// Transact signs and sends a contract call, then waits for its receipt.
// A mined transaction with status 0 returns an error wrapping domain.ErrReverted.
func (c *Client) Transact(
	ctx context.Context,
	to common.Address,
	data []byte,
	params domain.TxParams,
) (*domain.TxResult, error) {
	if c.signer == nil {
		return nil, fmt.Errorf("client has no signer")
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	from := c.signer.From()
	if params.From != (common.Address{}) && params.From != from {
		return nil, fmt.Errorf("%w: sender %s does not match signer %s", domain.ErrInvalidTxParams, params.From.Hex(), from.Hex())
	}

	chainID, err := c.chainIDBig(ctx)
	if err != nil {
		return nil, err
	}

	nonce, err := c.pendingNonce(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("fetch nonce: %w", err)
	}

	msg := callMsg{From: from, To: to, Data: data}
	gasLimit := params.GasLimit
	if gasLimit == 0 {
		if gasLimit, err = c.estimateGas(ctx, msg); err != nil {
			return nil, err
		}
	}

	unsigned, err := c.buildTx(ctx, chainID, nonce, to, data, gasLimit, params)
	if err != nil {
		return nil, err
	}

	signed, err := c.signer.SignTx(ctx, unsigned, chainID)
	if err != nil {
		return nil, fmt.Errorf("sign tx: %w", err)
	}
	raw, err := signed.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode tx: %w", err)
	}

	if _, err := c.rpc.Send(ctx, "eth_sendRawTransaction", []any{hexutil.Encode(raw)}); err != nil {
		return nil, fmt.Errorf("send tx: %w", err)
	}

	c.log.Info("transaction sent",
		"tx_hash", signed.Hash().Hex(),
		"to", to.Hex(),
		"nonce", nonce,
		"gas_limit", gasLimit,
	)

	receipt, err := c.waitReceipt(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}

	result := &domain.TxResult{Hash: signed.Hash()}
	result.BlockNumber, _ = parseHexString(getString(receipt["blockNumber"]))
	result.GasUsed, _ = parseHexString(getString(receipt["gasUsed"]))

	if getString(receipt["status"]) == "0x0" {
		rev := c.replayRevert(ctx, msg, result.BlockNumber)
		return nil, fmt.Errorf("transaction %s reverted: %w", signed.Hash().Hex(), rev)
	}

	if result.Logs, err = parseLogs(receipt["logs"]); err != nil {
		return nil, fmt.Errorf("parse receipt logs: %w", err)
	}

	c.log.Info("transaction mined",
		"tx_hash", result.Hash.Hex(),
		"block", result.BlockNumber,
		"gas_used", result.GasUsed,
	)
	return result, nil
}

func (c *Client) buildTx(
	ctx context.Context,
	chainID *big.Int,
	nonce uint64,
	to common.Address,
	data []byte,
	gasLimit uint64,
	params domain.TxParams,
) (*types.Transaction, error) {
	if params.HasFees() {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   chainID,
			Nonce:     nonce,
			To:        &to,
			Value:     big.NewInt(0),
			Gas:       gasLimit,
			GasTipCap: params.PriorityFee,
			GasFeeCap: params.MaxFee,
			Data:      data,
		}), nil
	}

	baseFee, err := c.latestBaseFee(ctx)
	if err != nil {
		return nil, err
	}

	// Chains without a base fee only accept legacy pricing.
	if baseFee == nil {
		gasPrice, err := c.GasPrice(ctx)
		if err != nil {
			return nil, err
		}
		return types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			To:       &to,
			Value:    big.NewInt(0),
			Gas:      gasLimit,
			GasPrice: gasPrice,
			Data:     data,
		}), nil
	}

	tipCap := c.suggestTipCap(ctx)
	feeCap := new(big.Int).Add(new(big.Int).Mul(baseFee, big.NewInt(2)), tipCap)
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		To:        &to,
		Value:     big.NewInt(0),
		Gas:       gasLimit,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Data:      data,
	}), nil
}

func (c *Client) pendingNonce(ctx context.Context, from common.Address) (uint64, error) {
	result, err := c.rpc.Call(ctx, "eth_getTransactionCount", []any{from.Hex(), "pending"})
	if err != nil {
		return 0, fmt.Errorf("eth_getTransactionCount failed: %w", err)
	}
	return parseHexString(getString(result))
}

func (c *Client) estimateGas(ctx context.Context, msg callMsg) (uint64, error) {
	result, err := c.rpc.Call(ctx, "eth_estimateGas", []any{msg.toArg()})
	if err != nil {
		if rev := c.revertFromError(err); rev != nil {
			return 0, fmt.Errorf("estimate gas: %w", rev)
		}
		return 0, fmt.Errorf("eth_estimateGas failed: %w", err)
	}
	return parseHexString(getString(result))
}

func (c *Client) latestBaseFee(ctx context.Context) (*big.Int, error) {
	result, err := c.rpc.Call(ctx, "eth_getBlockByNumber", []any{"latest", false})
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber failed: %w", err)
	}
	head, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid block format")
	}
	baseFee := getString(head["baseFeePerGas"])
	if baseFee == "" {
		return nil, nil
	}
	return parseHexToBigInt(baseFee)
}

func (c *Client) suggestTipCap(ctx context.Context) *big.Int {
	result, err := c.rpc.Call(ctx, "eth_maxPriorityFeePerGas", nil)
	if err != nil {
		c.log.Debug("eth_maxPriorityFeePerGas unavailable, using default tip", "error", err)
		return new(big.Int).Set(defaultTipCap)
	}
	tip, err := parseHexToBigInt(getString(result))
	if err != nil {
		return new(big.Int).Set(defaultTipCap)
	}
	return tip
}

func (c *Client) waitReceipt(ctx context.Context, hash common.Hash) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.ReceiptTimeout)
	defer cancel()

	ticker := time.NewTicker(c.opts.ReceiptPollInterval)
	defer ticker.Stop()

	for {
		receipt, err := c.receipt(ctx, hash)
		if err != nil && ctx.Err() == nil {
			c.log.Warn("receipt lookup failed", "tx_hash", hash.Hex(), "error", err)
		}
		if receipt != nil {
			return receipt, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("wait receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// replayRevert re-executes a reverted call at its block to recover the revert data.
func (c *Client) replayRevert(ctx context.Context, msg callMsg, block uint64) error {
	_, err := c.callAt(ctx, msg, hexutil.EncodeUint64(block))
	var rev *RevertError
	if errors.As(err, &rev) {
		return rev
	}
	return &RevertError{}
}

// revertFromError extracts revert data carried in a provider error payload.
func (c *Client) revertFromError(err error) *RevertError {
	var rpcErr *rpc.Error
	if !errors.As(err, &rpcErr) {
		return nil
	}
	if !strings.Contains(strings.ToLower(rpcErr.Message), "revert") {
		return nil
	}

	rev := &RevertError{}
	if rpcErr.Data != "" {
		data := gjson.Parse(rpcErr.Data)
		hexData := data.String()
		if data.IsObject() {
			hexData = data.Get("data").String()
		}
		if b, decErr := hexutil.Decode(hexData); decErr == nil {
			rev.Data = b
		}
	}
	if c.opts.DecodeRevert != nil && len(rev.Data) > 0 {
		if reason, ok := c.opts.DecodeRevert(rev.Data); ok {
			rev.Reason = reason
		}
	}
	if rev.Reason == "" && len(rev.Data) == 0 {
		rev.Reason = strings.TrimSpace(strings.TrimPrefix(rpcErr.Message, "execution reverted:"))
		if rev.Reason == "execution reverted" {
			rev.Reason = ""
		}
	}
	return rev
}
