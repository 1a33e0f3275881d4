// Package keepertest provides in-memory fakes of the keeper's chain collaborators.
package keepertest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/rngkeeper/internal/core/domain"
)

var (
	topicCompleted = common.HexToHash("0xc0")
	topicFailed    = common.HexToHash("0xfa")
	topicRequested = common.HexToHash("0x4e")
)

// OracleAddress is the address FakeOracle emits logs from.
var OracleAddress = common.HexToAddress("0x00000000000000000000000000000000000000a1")

// CompletedLog builds a RandomNumberCompleted log for FakeOracle.
func CompletedLog(id domain.RequestID, value int64) types.Log {
	return types.Log{
		Address: OracleAddress,
		Topics:  []common.Hash{topicCompleted, common.BigToHash(big.NewInt(int64(id)))},
		Data:    big.NewInt(value).Bytes(),
	}
}

// FailedLog builds a RandomNumberFailed log for FakeOracle.
func FailedLog(id domain.RequestID) types.Log {
	return types.Log{
		Address: OracleAddress,
		Topics:  []common.Hash{topicFailed, common.BigToHash(big.NewInt(int64(id)))},
	}
}

// RequestedLog builds an RngRequested log for FakeOracle.
func RequestedLog(id domain.RequestID, external int64) types.Log {
	return types.Log{
		Address: OracleAddress,
		Topics: []common.Hash{
			topicRequested,
			common.BigToHash(big.NewInt(int64(id))),
			common.BigToHash(big.NewInt(external)),
		},
	}
}

// FakeOracle is a scripted RngWitnet.
type FakeOracle struct {
	mu sync.Mutex

	Count    uint32
	Complete map[domain.RequestID]bool
	// Fetchable answers isRngFetchable per id in order; the last answer repeats.
	Fetchable map[domain.RequestID][]bool
	Failures  []domain.FailureEvent
	Fee       *big.Int
	Request   common.Address

	FetchFunc   func(id domain.RequestID, params domain.TxParams) (*domain.TxResult, error)
	RequestFunc func(params domain.TxParams) (*domain.TxResult, error)
	AdminFunc   func(method string, arg any, params domain.TxParams) (*domain.TxResult, error)

	FetchableCalls map[domain.RequestID]int
	CompleteCalls  []domain.RequestID
	Fetched        []domain.RequestID
	Calls          []string
}

// NewFakeOracle creates an oracle with count requests, none complete.
func NewFakeOracle(count uint32) *FakeOracle {
	return &FakeOracle{
		Count:          count,
		Complete:       make(map[domain.RequestID]bool),
		Fetchable:      make(map[domain.RequestID][]bool),
		FetchableCalls: make(map[domain.RequestID]int),
		Fee:            big.NewInt(0),
	}
}

func (o *FakeOracle) record(call string) {
	o.Calls = append(o.Calls, call)
}

func (o *FakeOracle) Address() common.Address { return OracleAddress }

func (o *FakeOracle) RequestCount(ctx context.Context) (uint32, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("requestCount")
	return o.Count, nil
}

func (o *FakeOracle) IsRequestComplete(ctx context.Context, id domain.RequestID) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record(fmt.Sprintf("isRequestComplete(%d)", id))
	o.CompleteCalls = append(o.CompleteCalls, id)
	return o.Complete[id], nil
}

func (o *FakeOracle) IsRngFetchable(ctx context.Context, id domain.RequestID) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record(fmt.Sprintf("isRngFetchable(%d)", id))
	answers := o.Fetchable[id]
	n := o.FetchableCalls[id]
	o.FetchableCalls[id] = n + 1
	if len(answers) == 0 {
		return true, nil
	}
	if n >= len(answers) {
		return answers[len(answers)-1], nil
	}
	return answers[n], nil
}

func (o *FakeOracle) FilterFailures(ctx context.Context, r domain.BlockRange) ([]domain.FailureEvent, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("filterFailures(" + r.String() + ")")
	var out []domain.FailureEvent
	for _, ev := range o.Failures {
		if ev.BlockNumber >= r.From && ev.BlockNumber <= r.To {
			out = append(out, ev)
		}
	}
	return out, nil
}

func (o *FakeOracle) FetchRandomness(ctx context.Context, id domain.RequestID, params domain.TxParams) (*domain.TxResult, error) {
	o.mu.Lock()
	o.record(fmt.Sprintf("fetchRandomness(%d)", id))
	o.Fetched = append(o.Fetched, id)
	fn := o.FetchFunc
	o.mu.Unlock()
	if fn == nil {
		return &domain.TxResult{Logs: []types.Log{CompletedLog(id, 9)}}, nil
	}
	return fn(id, params)
}

func (o *FakeOracle) RequestRandomNumber(ctx context.Context, params domain.TxParams) (*domain.TxResult, error) {
	o.mu.Lock()
	o.record("requestRandomNumber")
	fn := o.RequestFunc
	o.Count++
	id := domain.RequestID(o.Count)
	o.mu.Unlock()
	if fn == nil {
		return &domain.TxResult{Logs: []types.Log{RequestedLog(id, 1000+int64(id))}}, nil
	}
	return fn(params)
}

func (o *FakeOracle) admin(method string, arg any, params domain.TxParams) (*domain.TxResult, error) {
	o.mu.Lock()
	o.record(fmt.Sprintf("%s(%v)", method, arg))
	fn := o.AdminFunc
	o.mu.Unlock()
	if fn == nil {
		return &domain.TxResult{}, nil
	}
	return fn(method, arg, params)
}

func (o *FakeOracle) AddAllowedRequester(ctx context.Context, requester common.Address, params domain.TxParams) (*domain.TxResult, error) {
	return o.admin("addAllowedRequester", requester.Hex(), params)
}

func (o *FakeOracle) RemoveAllowedRequester(ctx context.Context, requester common.Address, params domain.TxParams) (*domain.TxResult, error) {
	return o.admin("removeAllowedRequester", requester.Hex(), params)
}

func (o *FakeOracle) SetMaxFee(ctx context.Context, fee *big.Int, params domain.TxParams) (*domain.TxResult, error) {
	res, err := o.admin("setMaxFee", fee, params)
	if err == nil {
		o.mu.Lock()
		o.Fee = new(big.Int).Set(fee)
		o.mu.Unlock()
	}
	return res, err
}

func (o *FakeOracle) MaxFee(ctx context.Context) (*big.Int, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return new(big.Int).Set(o.Fee), nil
}

func (o *FakeOracle) WitnetRandomnessRequest(ctx context.Context) (common.Address, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.record("witnetRandomnessRequest")
	return o.Request, nil
}

func (o *FakeOracle) ParseRandomNumberFailed(l types.Log) (domain.RequestID, bool, error) {
	if l.Address != OracleAddress || len(l.Topics) < 2 || l.Topics[0] != topicFailed {
		return 0, false, nil
	}
	return domain.RequestID(l.Topics[1].Big().Uint64()), true, nil
}

func (o *FakeOracle) ParseRandomNumberCompleted(l types.Log) (domain.RequestID, *big.Int, bool, error) {
	if l.Address != OracleAddress || len(l.Topics) < 2 || l.Topics[0] != topicCompleted {
		return 0, nil, false, nil
	}
	return domain.RequestID(l.Topics[1].Big().Uint64()), new(big.Int).SetBytes(l.Data), true, nil
}

func (o *FakeOracle) ParseRngRequested(l types.Log) (domain.RequestedEvent, bool, error) {
	if l.Address != OracleAddress || len(l.Topics) < 3 || l.Topics[0] != topicRequested {
		return domain.RequestedEvent{}, false, nil
	}
	return domain.RequestedEvent{
		RequestID:        domain.RequestID(l.Topics[1].Big().Uint64()),
		ExternalOracleID: l.Topics[2].Big(),
	}, true, nil
}

// FakeChain is a scripted chain adapter.
type FakeChain struct {
	ID       uint64
	Head     uint64
	Price    *big.Int
	TxBlocks map[common.Hash]uint64
	PriceErr error
}

func (c *FakeChain) ChainID(ctx context.Context) (uint64, error) { return c.ID, nil }

func (c *FakeChain) BlockNumber(ctx context.Context) (uint64, error) { return c.Head, nil }

func (c *FakeChain) GasPrice(ctx context.Context) (*big.Int, error) {
	if c.PriceErr != nil {
		return nil, c.PriceErr
	}
	return new(big.Int).Set(c.Price), nil
}

func (c *FakeChain) TransactionBlock(ctx context.Context, hash common.Hash) (uint64, error) {
	b, ok := c.TxBlocks[hash]
	if !ok {
		return 0, fmt.Errorf("transaction %s not found", hash.Hex())
	}
	return b, nil
}

// FakeStrategy is a scripted prize strategy.
type FakeStrategy struct {
	Addr        common.Address
	CanStart    bool
	CanComplete bool
	StartErr    error
	CompleteErr error

	// CanCompleteAfterStart makes CanComplete true once StartAward succeeded.
	CanCompleteAfterStart bool

	StartCalls    int
	CompleteCalls int
	StartParams   []domain.TxParams
}

func (s *FakeStrategy) Address() common.Address { return s.Addr }

func (s *FakeStrategy) CanStartAward(ctx context.Context) (bool, error) { return s.CanStart, nil }

func (s *FakeStrategy) CanCompleteAward(ctx context.Context) (bool, error) {
	return s.CanComplete, nil
}

func (s *FakeStrategy) StartAward(ctx context.Context, params domain.TxParams) (*domain.TxResult, error) {
	s.StartCalls++
	s.StartParams = append(s.StartParams, params)
	if s.StartErr != nil {
		return nil, s.StartErr
	}
	s.CanStart = false
	if s.CanCompleteAfterStart {
		s.CanComplete = true
	}
	return &domain.TxResult{}, nil
}

func (s *FakeStrategy) CompleteAward(ctx context.Context, params domain.TxParams) (*domain.TxResult, error) {
	s.CompleteCalls++
	if s.CompleteErr != nil {
		return nil, s.CompleteErr
	}
	s.CanComplete = false
	return &domain.TxResult{}, nil
}

// FakeWitnetRequest is a scripted WitnetRequestRandomness.
type FakeWitnetRequest struct {
	Addr    common.Address
	Owned   common.Address
	Params  domain.WitnessingParams
	SetFunc func(p domain.WitnessingParams, params domain.TxParams) (*domain.TxResult, error)

	SetCalls int
}

func (r *FakeWitnetRequest) Address() common.Address { return r.Addr }

func (r *FakeWitnetRequest) Owner(ctx context.Context) (common.Address, error) { return r.Owned, nil }

func (r *FakeWitnetRequest) WitnessingParams(ctx context.Context) (domain.WitnessingParams, error) {
	return r.Params, nil
}

func (r *FakeWitnetRequest) SetWitnessingParameters(ctx context.Context, p domain.WitnessingParams, params domain.TxParams) (*domain.TxResult, error) {
	r.SetCalls++
	if r.SetFunc != nil {
		res, err := r.SetFunc(p, params)
		if err != nil {
			return nil, err
		}
		r.Params = p
		return res, nil
	}
	r.Params = p
	return &domain.TxResult{}, nil
}
