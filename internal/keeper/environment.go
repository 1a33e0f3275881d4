// Package keeper wires the oracle and prize strategy contracts of one network
// into the collaborators the keeper's components consume.
package keeper

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/rngkeeper/internal/core/domain"
)

// Chain is the read surface of the chain adapter.
type Chain interface {
	ChainID(ctx context.Context) (uint64, error)
	BlockNumber(ctx context.Context) (uint64, error)
	GasPrice(ctx context.Context) (*big.Int, error)
	TransactionBlock(ctx context.Context, hash common.Hash) (uint64, error)
}

// Oracle is the RngWitnet contract surface.
type Oracle interface {
	Address() common.Address
	RequestCount(ctx context.Context) (uint32, error)
	IsRequestComplete(ctx context.Context, id domain.RequestID) (bool, error)
	IsRngFetchable(ctx context.Context, id domain.RequestID) (bool, error)
	FilterFailures(ctx context.Context, r domain.BlockRange) ([]domain.FailureEvent, error)

	FetchRandomness(ctx context.Context, id domain.RequestID, params domain.TxParams) (*domain.TxResult, error)
	RequestRandomNumber(ctx context.Context, params domain.TxParams) (*domain.TxResult, error)
	AddAllowedRequester(ctx context.Context, requester common.Address, params domain.TxParams) (*domain.TxResult, error)
	RemoveAllowedRequester(ctx context.Context, requester common.Address, params domain.TxParams) (*domain.TxResult, error)
	SetMaxFee(ctx context.Context, fee *big.Int, params domain.TxParams) (*domain.TxResult, error)
	MaxFee(ctx context.Context) (*big.Int, error)
	WitnetRandomnessRequest(ctx context.Context) (common.Address, error)

	ParseRandomNumberFailed(l types.Log) (domain.RequestID, bool, error)
	ParseRandomNumberCompleted(l types.Log) (domain.RequestID, *big.Int, bool, error)
	ParseRngRequested(l types.Log) (domain.RequestedEvent, bool, error)
}

// Strategy is a prize strategy contract.
type Strategy interface {
	Address() common.Address
	CanStartAward(ctx context.Context) (bool, error)
	CanCompleteAward(ctx context.Context) (bool, error)
	StartAward(ctx context.Context, params domain.TxParams) (*domain.TxResult, error)
	CompleteAward(ctx context.Context, params domain.TxParams) (*domain.TxResult, error)
}

// WitnessingRequest is the Witnet request template the oracle posts.
type WitnessingRequest interface {
	Address() common.Address
	Owner(ctx context.Context) (common.Address, error)
	WitnessingParams(ctx context.Context) (domain.WitnessingParams, error)
	SetWitnessingParameters(ctx context.Context, p domain.WitnessingParams, params domain.TxParams) (*domain.TxResult, error)
}

// Environment is everything one run needs for one network. It is built once
// by the CLI and passed explicitly to every component.
type Environment struct {
	Network     domain.NetworkName
	ChainID     uint64
	Chain       Chain
	Oracle      Oracle
	Strategies  []Strategy
	Sender      common.Address
	Params      domain.TxParams
	DeployBlock uint64
}
