package contracts

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/rngkeeper/internal/core/domain"
)

//go:embed abi/witnet_request_randomness.json
var witnetRequestABIJSON string

// WitnetRequestRandomness binds the Witnet request template the oracle posts.
type WitnetRequestRandomness struct {
	binding
}

func NewWitnetRequestRandomness(address common.Address, backend Backend) (*WitnetRequestRandomness, error) {
	b, err := newBinding(witnetRequestABIJSON, address, backend)
	if err != nil {
		return nil, err
	}
	return &WitnetRequestRandomness{binding: b}, nil
}

func (w *WitnetRequestRandomness) Owner(ctx context.Context) (common.Address, error) {
	values, err := w.call(ctx, "owner")
	if err != nil {
		return common.Address{}, err
	}
	owner, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("owner: unexpected result type %T", values[0])
	}
	return owner, nil
}

// WitnessingParams reads the current witnessing settings.
func (w *WitnetRequestRandomness) WitnessingParams(ctx context.Context) (domain.WitnessingParams, error) {
	values, err := w.call(ctx, "witnessingParams")
	if err != nil {
		return domain.WitnessingParams{}, err
	}
	if len(values) != 5 {
		return domain.WitnessingParams{}, fmt.Errorf("witnessingParams: expected 5 values, got %d", len(values))
	}
	num, ok1 := values[0].(uint8)
	consensus, ok2 := values[1].(uint8)
	collateral, ok3 := values[2].(uint64)
	reward, ok4 := values[3].(uint64)
	fee, ok5 := values[4].(uint64)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return domain.WitnessingParams{}, fmt.Errorf("witnessingParams: unexpected result types")
	}
	return domain.WitnessingParams{
		Collateral:   collateral,
		Reward:       reward,
		UnitaryFee:   fee,
		NumWitnesses: num,
		MinConsensus: consensus,
	}, nil
}

func (w *WitnetRequestRandomness) SetWitnessingParameters(ctx context.Context, p domain.WitnessingParams, params domain.TxParams) (*domain.TxResult, error) {
	return w.transact(ctx, params, "setWitnessingParameters",
		p.Collateral, p.Reward, p.UnitaryFee, p.NumWitnesses, p.MinConsensus)
}
