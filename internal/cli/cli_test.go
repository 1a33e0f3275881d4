package cli

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sethvargo/go-retry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/rngkeeper/internal/core/config"
	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/infra/rpc"
	"github.com/vietddude/rngkeeper/internal/keeper"
	"github.com/vietddude/rngkeeper/internal/keeper/eventlog"
	"github.com/vietddude/rngkeeper/internal/keeper/keepertest"
	"github.com/vietddude/rngkeeper/internal/keeper/scanner"
	"github.com/vietddude/rngkeeper/internal/keeper/txguard"
)

func instantGuard() *txguard.Guard {
	return txguard.New("test", time.Minute).WithBackoff(func() retry.Backoff {
		return retry.BackoffFunc(func() (time.Duration, bool) { return 0, false })
	})
}

func TestAddRequesters(t *testing.T) {
	oracle := keepertest.NewFakeOracle(0)
	a, b := common.HexToAddress("0xa"), common.HexToAddress("0xb")

	require.NoError(t, addRequesters(context.Background(), oracle, instantGuard(), []common.Address{a, b}, domain.TxParams{}))
	assert.Equal(t, []string{
		"addAllowedRequester(" + a.Hex() + ")",
		"addAllowedRequester(" + b.Hex() + ")",
	}, oracle.Calls)
}

func TestRemoveRequesters_StopsOnError(t *testing.T) {
	oracle := keepertest.NewFakeOracle(0)
	boom := errors.New("execution reverted: Ownable: caller is not the owner")
	oracle.AdminFunc = func(method string, arg any, params domain.TxParams) (*domain.TxResult, error) {
		return nil, boom
	}

	err := removeRequesters(context.Background(), oracle, instantGuard(),
		[]common.Address{common.HexToAddress("0xa"), common.HexToAddress("0xb")}, domain.TxParams{})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, oracle.Calls, 1)
}

func TestAdmin_RetriesUnderpriced(t *testing.T) {
	oracle := keepertest.NewFakeOracle(0)
	calls := 0
	oracle.AdminFunc = func(method string, arg any, params domain.TxParams) (*domain.TxResult, error) {
		calls++
		if calls == 1 {
			return nil, &rpc.Error{Code: -32000, Message: "replacement transaction underpriced"}
		}
		return &domain.TxResult{}, nil
	}

	require.NoError(t, addRequesters(context.Background(), oracle, instantGuard(), []common.Address{common.HexToAddress("0xa")}, domain.TxParams{}))
	assert.Equal(t, 2, calls)
}

func TestSetMaxFee(t *testing.T) {
	oracle := keepertest.NewFakeOracle(0)
	fee := big.NewInt(10_000_000_000_000_000)

	require.NoError(t, setMaxFee(context.Background(), oracle, instantGuard(), fee, domain.TxParams{}))
	assert.Equal(t, 0, oracle.Fee.Cmp(fee))
	assert.Equal(t, []string{"setMaxFee(10000000000000000)"}, oracle.Calls)

	// already set: no transaction
	oracle.Calls = nil
	require.NoError(t, setMaxFee(context.Background(), oracle, instantGuard(), fee, domain.TxParams{}))
	assert.Empty(t, oracle.Calls)
}

func TestCollectStatus(t *testing.T) {
	oracle := keepertest.NewFakeOracle(4)
	oracle.Complete[1] = true
	oracle.Failures = []domain.FailureEvent{{RequestID: 2, BlockNumber: 50}}
	oracle.Fetchable[4] = []bool{false}
	chain := &keepertest.FakeChain{ID: 1, Head: 100, Price: big.NewInt(20_000_000_000)}
	strategy := &keepertest.FakeStrategy{Addr: common.HexToAddress("0xb1"), CanStart: true}

	env := &keeper.Environment{
		Network:    "ethereum",
		Chain:      chain,
		Oracle:     oracle,
		Strategies: []keeper.Strategy{strategy},
	}
	fetcher := eventlog.NewFetcher(eventlog.Config{Network: "ethereum"}).
		WithSleep(func(context.Context, time.Duration) error { return nil })
	scan := scanner.New("ethereum", oracle, chain, fetcher)

	st, err := collectStatus(context.Background(), env, scan, big.NewInt(50_000_000_000))
	require.NoError(t, err)
	assert.Equal(t, uint32(4), st.RequestCount)
	assert.Equal(t, []domain.RequestID{2}, st.Failed)
	assert.Equal(t, []requestStatus{{ID: 3, Fetchable: true}, {ID: 4, Fetchable: false}}, st.Pending)
	assert.Equal(t, []strategyStatus{{Address: strategy.Addr, CanStart: true}}, st.Strategies)
	assert.Empty(t, oracle.Fetched)
	assert.Zero(t, strategy.StartCalls)

	var out bytes.Buffer
	require.NoError(t, st.Print(&out))
	text := out.String()
	assert.True(t, strings.Contains(text, "20.000"), text)
	assert.True(t, strings.Contains(text, "50.000"), text)
	assert.True(t, strings.Contains(text, strategy.Addr.Hex()), text)
}

func TestSetRequestParameters(t *testing.T) {
	owner := common.HexToAddress("0xe5")
	oracle := keepertest.NewFakeOracle(0)
	oracle.Request = common.HexToAddress("0xd4")
	request := &keepertest.FakeWitnetRequest{Addr: oracle.Request, Owned: owner}
	var bound []common.Address
	bind := func(addr common.Address) (keeper.WitnessingRequest, error) {
		bound = append(bound, addr)
		return request, nil
	}
	want := domain.WitnessingParams{Collateral: 1e10, Reward: 1e8, UnitaryFee: 1e6, NumWitnesses: 8, MinConsensus: 51}
	params := domain.TxParams{From: owner}

	require.NoError(t, setRequestParameters(context.Background(), oracle, bind, instantGuard(), want, params))
	assert.Equal(t, []common.Address{oracle.Request}, bound)
	assert.Equal(t, 1, request.SetCalls)
	assert.Equal(t, want, request.Params)

	// already set: no transaction
	require.NoError(t, setRequestParameters(context.Background(), oracle, bind, instantGuard(), want, params))
	assert.Equal(t, 1, request.SetCalls)
}

func TestSetRequestParameters_RetriesUnderpriced(t *testing.T) {
	owner := common.HexToAddress("0xe5")
	oracle := keepertest.NewFakeOracle(0)
	calls := 0
	request := &keepertest.FakeWitnetRequest{
		Owned: owner,
		SetFunc: func(p domain.WitnessingParams, params domain.TxParams) (*domain.TxResult, error) {
			calls++
			if calls == 1 {
				return nil, &rpc.Error{Code: -32000, Message: "transaction underpriced"}
			}
			return &domain.TxResult{}, nil
		},
	}
	bind := func(common.Address) (keeper.WitnessingRequest, error) { return request, nil }
	want := domain.WitnessingParams{Collateral: 1e10, Reward: 1e8, UnitaryFee: 1e6, NumWitnesses: 8, MinConsensus: 51}

	require.NoError(t, setRequestParameters(context.Background(), oracle, bind, instantGuard(), want, domain.TxParams{From: owner}))
	assert.Equal(t, 2, calls)
	assert.Equal(t, want, request.Params)
}

func TestSetRequestParameters_RejectsBeforeSubmitting(t *testing.T) {
	owner := common.HexToAddress("0xe5")
	valid := domain.WitnessingParams{Collateral: 1e10, Reward: 1e8, UnitaryFee: 1e6, NumWitnesses: 8, MinConsensus: 51}

	t.Run("not owner", func(t *testing.T) {
		request := &keepertest.FakeWitnetRequest{Owned: owner}
		bind := func(common.Address) (keeper.WitnessingRequest, error) { return request, nil }
		err := setRequestParameters(context.Background(), keepertest.NewFakeOracle(0), bind, instantGuard(), valid,
			domain.TxParams{From: common.HexToAddress("0xa")})
		assert.ErrorContains(t, err, "does not own")
		assert.Zero(t, request.SetCalls)
	})

	t.Run("invalid params", func(t *testing.T) {
		oracle := keepertest.NewFakeOracle(0)
		bind := func(common.Address) (keeper.WitnessingRequest, error) {
			t.Fatal("bound request for invalid parameters")
			return nil, nil
		}
		bad := valid
		bad.MinConsensus = 50
		err := setRequestParameters(context.Background(), oracle, bind, instantGuard(), bad, domain.TxParams{From: owner})
		assert.ErrorIs(t, err, domain.ErrInvalidWitnessing)
		assert.Empty(t, oracle.Calls)
	})
}

func TestNetworkSettings_AwardsRequireSettingsUpFront(t *testing.T) {
	raw := config.NetworkConfig{
		Provider:         "alchemy",
		Providers:        map[string]string{"alchemy": "http://127.0.0.1:1"},
		PrivateKey:       "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318",
		RngWitnetAddress: "0x00000000000000000000000000000000000000a1",
	}
	cfg := &config.AppConfig{Networks: map[domain.NetworkName]config.NetworkConfig{"ethereum": raw}}

	// Read-only and admin commands do not need award settings.
	for _, mode := range []runMode{readOnly, submits} {
		n, err := networkSettings(cfg, "ethereum", mode)
		require.NoError(t, err)
		assert.Equal(t, domain.NetworkName("ethereum"), n.Name)
	}

	_, err := networkSettings(cfg, "ethereum", awards)
	assert.ErrorContains(t, err, "prize_strategy_addresses")

	raw.PrizeStrategyAddresses = []string{"0x00000000000000000000000000000000000000b1"}
	cfg.Networks["ethereum"] = raw
	_, err = networkSettings(cfg, "ethereum", awards)
	assert.ErrorContains(t, err, "max_gas_price")

	raw.MaxGasPrice = "50 gwei"
	cfg.Networks["ethereum"] = raw
	_, err = networkSettings(cfg, "ethereum", awards)
	assert.NoError(t, err)

	_, err = networkSettings(cfg, "polygon", awards)
	assert.Error(t, err)
}
