package evm

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// RPCClient is the JSON-RPC surface the client needs.
// Call is used for reads and may retry; Send is used once per submission.
type RPCClient interface {
	Call(ctx context.Context, method string, params []any) (any, error)
	Send(ctx context.Context, method string, params []any) (any, error)
}

// RevertDecoder turns revert data into a readable reason. ok is false if unknown.
type RevertDecoder func(data []byte) (reason string, ok bool)

// Options tunes the client's transaction handling.
type Options struct {
	ReceiptPollInterval time.Duration
	ReceiptTimeout      time.Duration
	DecodeRevert        RevertDecoder
}

// Client is the chain adapter: reads, log queries and signed submissions.
type Client struct {
	rpc    RPCClient
	signer Signer
	opts   Options
	log    *slog.Logger

	chainOnce sync.Once
	chainID   *big.Int
	chainErr  error
}

// NewClient creates a chain client. signer may be nil for read-only use.
func NewClient(client RPCClient, signer Signer, opts Options) *Client {
	if opts.ReceiptPollInterval <= 0 {
		opts.ReceiptPollInterval = 2 * time.Second
	}
	if opts.ReceiptTimeout <= 0 {
		opts.ReceiptTimeout = 10 * time.Minute
	}
	return &Client{
		rpc:    client,
		signer: signer,
		opts:   opts,
		log:    slog.Default().With("component", "evm"),
	}
}

// ChainID returns the node's chain id. The value is fetched once.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	id, err := c.chainIDBig(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}

func (c *Client) chainIDBig(ctx context.Context) (*big.Int, error) {
	c.chainOnce.Do(func() {
		result, err := c.rpc.Call(ctx, "eth_chainId", nil)
		if err != nil {
			c.chainErr = fmt.Errorf("eth_chainId failed: %w", err)
			return
		}
		c.chainID, c.chainErr = parseHexToBigInt(getString(result))
	})
	return c.chainID, c.chainErr
}

// BlockNumber returns the current head block.
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	result, err := c.rpc.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return 0, fmt.Errorf("eth_blockNumber failed: %w", err)
	}

	blockHex, ok := result.(string)
	if !ok {
		return 0, fmt.Errorf("invalid block number response")
	}
	return parseHexString(blockHex)
}

// GasPrice returns the node's current gas price in wei.
func (c *Client) GasPrice(ctx context.Context) (*big.Int, error) {
	result, err := c.rpc.Call(ctx, "eth_gasPrice", nil)
	if err != nil {
		return nil, fmt.Errorf("eth_gasPrice failed: %w", err)
	}
	return parseHexToBigInt(getString(result))
}

// TransactionBlock returns the block a mined transaction was included in.
func (c *Client) TransactionBlock(ctx context.Context, hash common.Hash) (uint64, error) {
	receipt, err := c.receipt(ctx, hash)
	if err != nil {
		return 0, err
	}
	if receipt == nil {
		return 0, fmt.Errorf("transaction %s not found", hash.Hex())
	}
	return parseHexString(getString(receipt["blockNumber"]))
}

// Call executes a read-only contract call against the latest block.
func (c *Client) Call(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	return c.callAt(ctx, callMsg{To: to, Data: data}, "latest")
}

type callMsg struct {
	From common.Address
	To   common.Address
	Data []byte
}

func (m callMsg) toArg() map[string]any {
	arg := map[string]any{
		"to":   m.To.Hex(),
		"data": hexutil.Encode(m.Data),
	}
	if m.From != (common.Address{}) {
		arg["from"] = m.From.Hex()
	}
	return arg
}

func (c *Client) callAt(ctx context.Context, msg callMsg, block string) ([]byte, error) {
	result, err := c.rpc.Call(ctx, "eth_call", []any{msg.toArg(), block})
	if err != nil {
		if rev := c.revertFromError(err); rev != nil {
			return nil, rev
		}
		return nil, fmt.Errorf("eth_call failed: %w", err)
	}
	out, err := hexutil.Decode(getString(result))
	if err != nil {
		return nil, fmt.Errorf("eth_call: invalid result: %w", err)
	}
	return out, nil
}

func (c *Client) receipt(ctx context.Context, hash common.Hash) (map[string]any, error) {
	result, err := c.rpc.Call(ctx, "eth_getTransactionReceipt", []any{hash.Hex()})
	if err != nil {
		return nil, fmt.Errorf("eth_getTransactionReceipt failed: %w", err)
	}
	if result == nil {
		return nil, nil
	}
	raw, ok := result.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("invalid receipt format")
	}
	return raw, nil
}
