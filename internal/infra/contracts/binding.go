// Package contracts holds ABI bindings for the oracle and prize strategy contracts.
package contracts

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/vietddude/rngkeeper/internal/core/domain"
)

// Backend is the chain access a binding needs. Implemented by *evm.Client.
type Backend interface {
	Call(ctx context.Context, to common.Address, data []byte) ([]byte, error)
	Transact(ctx context.Context, to common.Address, data []byte, params domain.TxParams) (*domain.TxResult, error)
	FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error)
}

type binding struct {
	address common.Address
	abi     abi.ABI
	backend Backend
}

func newBinding(abiJSON string, address common.Address, backend Backend) (binding, error) {
	if address == (common.Address{}) {
		return binding{}, fmt.Errorf("contract address is empty")
	}
	a, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return binding{}, fmt.Errorf("parse ABI: %w", err)
	}
	return binding{address: address, abi: a, backend: backend}, nil
}

func (b binding) call(ctx context.Context, method string, args ...any) ([]any, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	out, err := b.backend.Call(ctx, b.address, data)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	values, err := b.abi.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("unpack %s: empty result", method)
	}
	return values, nil
}

func (b binding) callBool(ctx context.Context, method string, args ...any) (bool, error) {
	values, err := b.call(ctx, method, args...)
	if err != nil {
		return false, err
	}
	v, ok := values[0].(bool)
	if !ok {
		return false, fmt.Errorf("%s: unexpected result type %T", method, values[0])
	}
	return v, nil
}

func (b binding) transact(ctx context.Context, params domain.TxParams, method string, args ...any) (*domain.TxResult, error) {
	data, err := b.abi.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := b.backend.Transact(ctx, b.address, data, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return res, nil
}

// decodeEvent returns the named event's fields if l was emitted by this contract.
func (b binding) decodeEvent(name string, l types.Log) (map[string]any, bool, error) {
	ev, ok := b.abi.Events[name]
	if !ok {
		return nil, false, fmt.Errorf("unknown event %s", name)
	}
	if l.Address != b.address || len(l.Topics) == 0 || l.Topics[0] != ev.ID {
		return nil, false, nil
	}

	fields := make(map[string]any)
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	if err := abi.ParseTopicsIntoMap(fields, indexed, l.Topics[1:]); err != nil {
		return nil, false, fmt.Errorf("decode %s topics: %w", name, err)
	}
	if len(l.Data) > 0 {
		if err := b.abi.UnpackIntoMap(fields, name, l.Data); err != nil {
			return nil, false, fmt.Errorf("decode %s data: %w", name, err)
		}
	}
	return fields, true, nil
}

// Address returns the contract address.
func (b binding) Address() common.Address { return b.address }
