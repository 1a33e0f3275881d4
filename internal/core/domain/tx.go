package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// TxParams carries per-submission options.
// PriorityFee and MaxFee are either both set or both nil.
// GasLimit is only set for requestRandomNumber-class calls, where node
// gas estimation is known to come up short.
type TxParams struct {
	From        common.Address
	PriorityFee *big.Int
	MaxFee      *big.Int
	GasLimit    uint64
}

// Validate checks the fee pair invariant.
func (p TxParams) Validate() error {
	if (p.PriorityFee == nil) != (p.MaxFee == nil) {
		return fmt.Errorf("%w: priority fee and max fee must be set together", ErrInvalidTxParams)
	}
	if p.PriorityFee != nil && p.PriorityFee.Cmp(p.MaxFee) > 0 {
		return fmt.Errorf("%w: priority fee %s exceeds max fee %s", ErrInvalidTxParams, p.PriorityFee, p.MaxFee)
	}
	return nil
}

// HasFees reports whether explicit EIP-1559 fees are configured.
func (p TxParams) HasFees() bool {
	return p.PriorityFee != nil && p.MaxFee != nil
}

// WithGasLimit returns a copy with a fixed gas limit.
func (p TxParams) WithGasLimit(limit uint64) TxParams {
	p.GasLimit = limit
	return p
}

// WithoutGasLimit returns a copy that lets the node estimate gas.
func (p TxParams) WithoutGasLimit() TxParams {
	p.GasLimit = 0
	return p
}

// TxResult is a mined, successful transaction.
type TxResult struct {
	Hash        common.Hash
	BlockNumber uint64
	GasUsed     uint64
	Logs        []types.Log
}
