package cli

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/rngkeeper/internal/control"
	"github.com/vietddude/rngkeeper/internal/core/config"
	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/infra/chain/evm"
	"github.com/vietddude/rngkeeper/internal/infra/contracts"
	redisclient "github.com/vietddude/rngkeeper/internal/infra/redis"
	"github.com/vietddude/rngkeeper/internal/infra/rpc"
	"github.com/vietddude/rngkeeper/internal/keeper"
	"github.com/vietddude/rngkeeper/internal/keeper/award"
	"github.com/vietddude/rngkeeper/internal/keeper/eventlog"
	"github.com/vietddude/rngkeeper/internal/keeper/fulfiller"
	"github.com/vietddude/rngkeeper/internal/keeper/scanner"
	"github.com/vietddude/rngkeeper/internal/keeper/txguard"
)

// runtime is everything one network needs, built once per process.
type runtime struct {
	cfg     *config.AppConfig
	network *config.Network
	rpc     *rpc.Client
	chain   *evm.Client
	oracle  *contracts.RngWitnet
	env     *keeper.Environment
	guard   *txguard.Guard
	scanner *scanner.Scanner
	poller  *fulfiller.Poller
	redis   *redisclient.Client
	locker  control.Locker

	closeOnce sync.Once
}

// networkSettings validates the named network for mode. It runs before
// newRuntime, so configuration errors surface before any RPC call.
func networkSettings(cfg *config.AppConfig, name domain.NetworkName, mode runMode) (*config.Network, error) {
	n, err := cfg.Network(name)
	if err != nil {
		return nil, err
	}
	if mode == awards {
		if err := n.RequireAwardSettings(); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func newRuntime(ctx context.Context, cfg *config.AppConfig, n *config.Network) (*runtime, error) {
	name := n.Name
	log := slog.Default().With("network", name)

	provider := rpc.NewHTTPProvider(cfg.Networks[name].Provider, n.Endpoint, cfg.Keeper.RPCTimeout)
	rpcClient := rpc.NewClient(provider, rpc.DefaultRetryConfig)
	rt := &runtime{cfg: cfg, network: n, rpc: rpcClient}

	rt.chain = evm.NewClient(rpcClient, evm.NewLocalSigner(n.Key), evm.Options{
		ReceiptPollInterval: cfg.Keeper.ReceiptPollInterval,
		ReceiptTimeout:      cfg.Keeper.ReceiptTimeout,
		DecodeRevert:        contracts.DecodeRevert,
	})

	chainID, err := rt.chain.ChainID(ctx)
	if err != nil {
		rt.Close()
		return nil, fmt.Errorf("read chain id: %w", err)
	}
	if n.ChainID != 0 && chainID != n.ChainID {
		rt.Close()
		if served, ok := domain.ChainIDToNetwork[domain.ChainID(chainID)]; ok {
			return nil, fmt.Errorf("endpoint for %s serves %s (chain %d), expected %d", name, served, chainID, n.ChainID)
		}
		return nil, fmt.Errorf("endpoint for %s serves chain %d, expected %d", name, chainID, n.ChainID)
	}

	if rt.oracle, err = contracts.NewRngWitnet(n.RngWitnet, rt.chain); err != nil {
		rt.Close()
		return nil, fmt.Errorf("bind RngWitnet: %w", err)
	}

	strategies := make([]keeper.Strategy, 0, len(n.PrizeStrategies))
	for _, addr := range n.PrizeStrategies {
		s, err := contracts.NewPrizeStrategy(addr, rt.chain)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("bind prize strategy %s: %w", addr.Hex(), err)
		}
		strategies = append(strategies, s)
	}

	deployBlock := n.DeployBlock
	if deployBlock == 0 && n.HasDeployTransaction {
		if deployBlock, err = rt.chain.TransactionBlock(ctx, n.DeployTransaction); err != nil {
			rt.Close()
			return nil, fmt.Errorf("resolve RngWitnet deploy block: %w", err)
		}
		log.Info("Resolved deploy block from deploy transaction", "block", deployBlock, "tx_hash", n.DeployTransaction.Hex())
	}

	rt.env = &keeper.Environment{
		Network:     name,
		ChainID:     chainID,
		Chain:       rt.chain,
		Oracle:      rt.oracle,
		Strategies:  strategies,
		Sender:      n.Sender,
		Params:      n.TxParams(),
		DeployBlock: deployBlock,
	}

	matcher := rpc.NewRangeMatcher(cfg.Keeper.RangeErrorPatterns...)
	fetcher := eventlog.NewFetcher(eventlog.Config{
		Network:         name,
		WindowBlocks:    cfg.Keeper.LogWindowBlocks,
		WindowDelay:     cfg.Keeper.LogWindowDelay,
		IsRangeTooLarge: matcher.IsRangeTooLarge,
	})
	rt.guard = txguard.New(name, cfg.Keeper.UnderpricedBackoff)
	rt.scanner = scanner.New(name, rt.oracle, rt.chain, fetcher)
	rt.poller = fulfiller.New(fulfiller.Config{
		Network:          name,
		PollInterval:     cfg.Keeper.FetchablePollInterval,
		FetchableTimeout: cfg.Keeper.FetchableTimeout,
	}, rt.oracle, rt.guard)

	if cfg.Redis.Enabled() {
		if rt.redis, err = redisclient.NewClient(cfg.Redis); err != nil {
			rt.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		rt.locker = control.RedisLocker{Client: rt.redis}
	}

	log.Info("Keeper initialised",
		"chain_id", chainID,
		"sender", n.Sender.Hex(),
		"rng_witnet", n.RngWitnet.Hex(),
		"strategies", len(strategies),
		"deploy_block", deployBlock,
	)
	return rt, nil
}

// orchestrator builds the award cycle for this network. The runtime must
// have been built from settings validated in awards mode.
func (rt *runtime) orchestrator() *award.Orchestrator {
	return award.New(rt.env, award.Config{
		MaxGasPrice:        rt.network.MaxGasPrice,
		StartAwardGasLimit: rt.network.StartAwardGasLimit,
	}, rt.scanner, rt.poller, rt.guard)
}

// witnetRequest binds the oracle's Witnet request template at addr.
func (rt *runtime) witnetRequest(addr common.Address) (keeper.WitnessingRequest, error) {
	req, err := contracts.NewWitnetRequestRandomness(addr, rt.chain)
	if err != nil {
		return nil, err
	}
	return req, nil
}

func withRunLock(ctx context.Context, rt *runtime, fn func(ctx context.Context) error) error {
	return control.WithLock(ctx, rt.locker, rt.env.Network, rt.env.Sender, fn)
}

// Close releases the RPC and Redis connections. Safe to call twice.
func (rt *runtime) Close() {
	rt.closeOnce.Do(func() {
		if rt.redis != nil {
			if err := rt.redis.Close(); err != nil {
				slog.Warn("Failed to close Redis", "error", err)
			}
		}
		if err := rt.rpc.Close(); err != nil {
			slog.Warn("Failed to close RPC provider", "error", err)
		}
	})
}
