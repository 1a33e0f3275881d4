package cli

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/rngkeeper/internal/core/config"
	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper"
	"github.com/vietddude/rngkeeper/internal/keeper/award"
)

func addRequesters(ctx context.Context, oracle keeper.Oracle, guard award.Submitter, addrs []common.Address, params domain.TxParams) error {
	for _, addr := range addrs {
		res, err := guard.Submit(ctx, "addAllowedRequester", func(ctx context.Context) (*domain.TxResult, error) {
			return oracle.AddAllowedRequester(ctx, addr, params)
		})
		if err != nil {
			return fmt.Errorf("addAllowedRequester(%s): %w", addr.Hex(), err)
		}
		slog.Info("Allowed requester added", "requester", addr.Hex(), "tx_hash", res.Hash.Hex())
	}
	return nil
}

func removeRequesters(ctx context.Context, oracle keeper.Oracle, guard award.Submitter, addrs []common.Address, params domain.TxParams) error {
	for _, addr := range addrs {
		res, err := guard.Submit(ctx, "removeAllowedRequester", func(ctx context.Context) (*domain.TxResult, error) {
			return oracle.RemoveAllowedRequester(ctx, addr, params)
		})
		if err != nil {
			return fmt.Errorf("removeAllowedRequester(%s): %w", addr.Hex(), err)
		}
		slog.Info("Allowed requester removed", "requester", addr.Hex(), "tx_hash", res.Hash.Hex())
	}
	return nil
}

// setMaxFee updates the oracle's max fee unless it already matches.
func setMaxFee(ctx context.Context, oracle keeper.Oracle, guard award.Submitter, fee *big.Int, params domain.TxParams) error {
	current, err := oracle.MaxFee(ctx)
	if err != nil {
		return fmt.Errorf("maxFee: %w", err)
	}
	if current.Cmp(fee) == 0 {
		slog.Info("Max fee already set", "max_fee_wei", fee.String())
		return nil
	}

	res, err := guard.Submit(ctx, "setMaxFee", func(ctx context.Context) (*domain.TxResult, error) {
		return oracle.SetMaxFee(ctx, fee, params)
	})
	if err != nil {
		return fmt.Errorf("setMaxFee(%s): %w", fee, err)
	}
	slog.Info("Max fee updated",
		"previous_gwei", config.FormatGwei(current),
		"max_fee_gwei", config.FormatGwei(fee),
		"tx_hash", res.Hash.Hex(),
	)
	return nil
}

// setRequestParameters sets the witnessing parameters of the Witnet request
// the oracle posts, unless they already match. Only the request owner may
// change them.
func setRequestParameters(
	ctx context.Context,
	oracle keeper.Oracle,
	bind func(common.Address) (keeper.WitnessingRequest, error),
	guard award.Submitter,
	want domain.WitnessingParams,
	params domain.TxParams,
) error {
	if err := want.Validate(); err != nil {
		return err
	}

	addr, err := oracle.WitnetRandomnessRequest(ctx)
	if err != nil {
		return fmt.Errorf("witnetRandomnessRequest: %w", err)
	}
	req, err := bind(addr)
	if err != nil {
		return fmt.Errorf("bind WitnetRequestRandomness %s: %w", addr.Hex(), err)
	}

	owner, err := req.Owner(ctx)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	slog.Info("Witnet randomness request", "address", addr.Hex(), "owner", owner.Hex())
	if owner != params.From {
		return fmt.Errorf("sender %s does not own request %s (owner %s)", params.From.Hex(), addr.Hex(), owner.Hex())
	}

	current, err := req.WitnessingParams(ctx)
	if err != nil {
		return fmt.Errorf("witnessingParams: %w", err)
	}
	if current == want {
		slog.Info("Witnessing parameters already set", "params", fmt.Sprintf("%+v", want))
		return nil
	}

	res, err := guard.Submit(ctx, "setWitnessingParameters", func(ctx context.Context) (*domain.TxResult, error) {
		return req.SetWitnessingParameters(ctx, want, params)
	})
	if err != nil {
		return fmt.Errorf("setWitnessingParameters: %w", err)
	}
	slog.Info("Witnessing parameters updated",
		"collateral", want.Collateral,
		"reward", want.Reward,
		"unitary_fee", want.UnitaryFee,
		"num_witnesses", want.NumWitnesses,
		"min_consensus", want.MinConsensus,
		"tx_hash", res.Hash.Hex(),
	)
	return nil
}
