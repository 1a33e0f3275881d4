package contracts

import (
	"context"
	_ "embed"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/rngkeeper/internal/core/domain"
)

//go:embed abi/prize_strategy.json
var prizeStrategyABIJSON string

// PrizeStrategy binds a PoolTogether periodic prize strategy.
type PrizeStrategy struct {
	binding
}

func NewPrizeStrategy(address common.Address, backend Backend) (*PrizeStrategy, error) {
	b, err := newBinding(prizeStrategyABIJSON, address, backend)
	if err != nil {
		return nil, err
	}
	return &PrizeStrategy{binding: b}, nil
}

func (p *PrizeStrategy) CanStartAward(ctx context.Context) (bool, error) {
	return p.callBool(ctx, "canStartAward")
}

func (p *PrizeStrategy) CanCompleteAward(ctx context.Context) (bool, error) {
	return p.callBool(ctx, "canCompleteAward")
}

func (p *PrizeStrategy) StartAward(ctx context.Context, params domain.TxParams) (*domain.TxResult, error) {
	return p.transact(ctx, params, "startAward")
}

func (p *PrizeStrategy) CompleteAward(ctx context.Context, params domain.TxParams) (*domain.TxResult, error) {
	return p.transact(ctx, params, "completeAward")
}
