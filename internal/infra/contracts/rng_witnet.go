package contracts

import (
	"context"
	_ "embed"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/rngkeeper/internal/core/domain"
)

//go:embed abi/rng_witnet.json
var rngWitnetABIJSON string

const (
	EventRngRequested          = "RngRequested"
	EventRandomNumberCompleted = "RandomNumberCompleted"
	EventRandomNumberFailed    = "RandomNumberFailed"
)

// RngWitnet binds the Witnet backed randomness oracle.
type RngWitnet struct {
	binding
}

func NewRngWitnet(address common.Address, backend Backend) (*RngWitnet, error) {
	b, err := newBinding(rngWitnetABIJSON, address, backend)
	if err != nil {
		return nil, err
	}
	return &RngWitnet{binding: b}, nil
}

// RequestCount returns the number of requests ever made.
func (r *RngWitnet) RequestCount(ctx context.Context) (uint32, error) {
	return r.callUint32(ctx, "requestCount")
}

// LastRequestID returns the id of the most recent request.
func (r *RngWitnet) LastRequestID(ctx context.Context) (domain.RequestID, error) {
	id, err := r.callUint32(ctx, "getLastRequestId")
	return domain.RequestID(id), err
}

// WitnetRandomnessRequest returns the address of the request template the oracle posts to Witnet.
func (r *RngWitnet) WitnetRandomnessRequest(ctx context.Context) (common.Address, error) {
	values, err := r.call(ctx, "witnetRandomnessRequest")
	if err != nil {
		return common.Address{}, err
	}
	addr, ok := values[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("witnetRandomnessRequest: unexpected result type %T", values[0])
	}
	return addr, nil
}

func (r *RngWitnet) IsRequestComplete(ctx context.Context, id domain.RequestID) (bool, error) {
	return r.callBool(ctx, "isRequestComplete", uint32(id))
}

func (r *RngWitnet) IsRngFetchable(ctx context.Context, id domain.RequestID) (bool, error) {
	return r.callBool(ctx, "isRngFetchable", uint32(id))
}

func (r *RngWitnet) RandomNumber(ctx context.Context, id domain.RequestID) (*big.Int, error) {
	return r.callBig(ctx, "randomNumber", uint32(id))
}

func (r *RngWitnet) MaxFee(ctx context.Context) (*big.Int, error) {
	return r.callBig(ctx, "maxFee")
}

func (r *RngWitnet) FetchRandomness(ctx context.Context, id domain.RequestID, params domain.TxParams) (*domain.TxResult, error) {
	return r.transact(ctx, params, "fetchRandomness", uint32(id))
}

func (r *RngWitnet) RequestRandomNumber(ctx context.Context, params domain.TxParams) (*domain.TxResult, error) {
	return r.transact(ctx, params, "requestRandomNumber")
}

func (r *RngWitnet) AddAllowedRequester(ctx context.Context, requester common.Address, params domain.TxParams) (*domain.TxResult, error) {
	return r.transact(ctx, params, "addAllowedRequester", requester)
}

func (r *RngWitnet) RemoveAllowedRequester(ctx context.Context, requester common.Address, params domain.TxParams) (*domain.TxResult, error) {
	return r.transact(ctx, params, "removeAllowedRequester", requester)
}

func (r *RngWitnet) SetMaxFee(ctx context.Context, fee *big.Int, params domain.TxParams) (*domain.TxResult, error) {
	return r.transact(ctx, params, "setMaxFee", fee)
}

// FilterFailures returns RandomNumberFailed events in the given range.
func (r *RngWitnet) FilterFailures(ctx context.Context, br domain.BlockRange) ([]domain.FailureEvent, error) {
	logs, err := r.backend.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(br.From),
		ToBlock:   new(big.Int).SetUint64(br.To),
		Addresses: []common.Address{r.address},
		Topics:    [][]common.Hash{{r.abi.Events[EventRandomNumberFailed].ID}},
	})
	if err != nil {
		return nil, err
	}

	events := make([]domain.FailureEvent, 0, len(logs))
	for _, l := range logs {
		id, ok, err := r.ParseRandomNumberFailed(l)
		if err != nil {
			return nil, err
		}
		if ok {
			events = append(events, domain.FailureEvent{RequestID: id, BlockNumber: l.BlockNumber})
		}
	}
	return events, nil
}

// ParseRandomNumberFailed decodes a RandomNumberFailed log.
func (r *RngWitnet) ParseRandomNumberFailed(l types.Log) (domain.RequestID, bool, error) {
	fields, ok, err := r.decodeEvent(EventRandomNumberFailed, l)
	if err != nil || !ok {
		return 0, ok, err
	}
	id, err := requestIDField(fields)
	return id, err == nil, err
}

// ParseRandomNumberCompleted decodes a RandomNumberCompleted log.
func (r *RngWitnet) ParseRandomNumberCompleted(l types.Log) (domain.RequestID, *big.Int, bool, error) {
	fields, ok, err := r.decodeEvent(EventRandomNumberCompleted, l)
	if err != nil || !ok {
		return 0, nil, ok, err
	}
	id, err := requestIDField(fields)
	if err != nil {
		return 0, nil, false, err
	}
	value, ok := fields["randomNumber"].(*big.Int)
	if !ok {
		return 0, nil, false, fmt.Errorf("RandomNumberCompleted: missing randomNumber")
	}
	return id, value, true, nil
}

// ParseRngRequested decodes an RngRequested log.
func (r *RngWitnet) ParseRngRequested(l types.Log) (domain.RequestedEvent, bool, error) {
	fields, ok, err := r.decodeEvent(EventRngRequested, l)
	if err != nil || !ok {
		return domain.RequestedEvent{}, ok, err
	}
	id, err := requestIDField(fields)
	if err != nil {
		return domain.RequestedEvent{}, false, err
	}
	ext, _ := fields["witnetRequestId"].(*big.Int)
	return domain.RequestedEvent{RequestID: id, ExternalOracleID: ext}, true, nil
}

func (r *RngWitnet) callUint32(ctx context.Context, method string, args ...any) (uint32, error) {
	values, err := r.call(ctx, method, args...)
	if err != nil {
		return 0, err
	}
	v, ok := values[0].(uint32)
	if !ok {
		return 0, fmt.Errorf("%s: unexpected result type %T", method, values[0])
	}
	return v, nil
}

func (r *RngWitnet) callBig(ctx context.Context, method string, args ...any) (*big.Int, error) {
	values, err := r.call(ctx, method, args...)
	if err != nil {
		return nil, err
	}
	v, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s: unexpected result type %T", method, values[0])
	}
	return v, nil
}

func requestIDField(fields map[string]any) (domain.RequestID, error) {
	id, ok := fields["requestId"].(uint32)
	if !ok {
		return 0, fmt.Errorf("event has no uint32 requestId")
	}
	return domain.RequestID(id), nil
}
