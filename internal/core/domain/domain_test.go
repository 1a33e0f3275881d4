package domain

import (
	"errors"
	"math/big"
	"reflect"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func TestNewBlockRange(t *testing.T) {
	r, err := NewBlockRange(10, 19)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Size() != 10 {
		t.Errorf("expected size 10, got %d", r.Size())
	}
	if r.String() != "10-19" {
		t.Errorf("expected 10-19, got %s", r.String())
	}

	if r, err := NewBlockRange(5, 5); err != nil || r.Size() != 1 {
		t.Errorf("single block range: %v, size %d", err, r.Size())
	}
	if _, err := NewBlockRange(6, 5); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("expected ErrInvalidRange, got %v", err)
	}
}

func TestFailureSet(t *testing.T) {
	set := NewFailureSet([]FailureEvent{
		{RequestID: 7, BlockNumber: 300},
		{RequestID: 2, BlockNumber: 100},
		{RequestID: 7, BlockNumber: 200},
	})

	if len(set) != 2 {
		t.Fatalf("expected duplicates to collapse, got %d entries", len(set))
	}
	if set[7].BlockNumber != 200 {
		t.Errorf("expected earliest block to win, got %d", set[7].BlockNumber)
	}
	if !set.Contains(2) || set.Contains(3) {
		t.Error("unexpected membership")
	}
	if ids := set.IDs(); !reflect.DeepEqual(ids, []RequestID{2, 7}) {
		t.Errorf("expected sorted ids [2 7], got %v", ids)
	}
	if ids := NewFailureSet(nil).IDs(); len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}
}

func TestTxParams_Validate(t *testing.T) {
	gwei := func(n int64) *big.Int { return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e9)) }

	tests := []struct {
		name  string
		p     TxParams
		valid bool
	}{
		{"no fees", TxParams{}, true},
		{"both fees", TxParams{PriorityFee: gwei(2), MaxFee: gwei(80)}, true},
		{"equal fees", TxParams{PriorityFee: gwei(80), MaxFee: gwei(80)}, true},
		{"priority only", TxParams{PriorityFee: gwei(2)}, false},
		{"max only", TxParams{MaxFee: gwei(80)}, false},
		{"priority above max", TxParams{PriorityFee: gwei(81), MaxFee: gwei(80)}, false},
	}
	for _, tt := range tests {
		err := tt.p.Validate()
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidTxParams) {
			t.Errorf("%s: expected ErrInvalidTxParams, got %v", tt.name, err)
		}
	}
}

func TestTxParams_GasLimitCopies(t *testing.T) {
	base := TxParams{From: common.HexToAddress("0x1")}
	withLimit := base.WithGasLimit(300_000)
	if base.GasLimit != 0 || withLimit.GasLimit != 300_000 {
		t.Errorf("WithGasLimit must copy: base=%d copy=%d", base.GasLimit, withLimit.GasLimit)
	}
	if cleared := withLimit.WithoutGasLimit(); cleared.GasLimit != 0 || withLimit.GasLimit != 300_000 {
		t.Errorf("WithoutGasLimit must copy: cleared=%d source=%d", cleared.GasLimit, withLimit.GasLimit)
	}
}

func TestAwardCycleState(t *testing.T) {
	a, b := common.HexToAddress("0xa"), common.HexToAddress("0xb")
	s := NewAwardCycleState()
	s.MarkStarted(b)
	s.MarkStarted(a)
	s.MarkStarted(b)

	if s.Len() != 2 {
		t.Fatalf("expected 2 started, got %d", s.Len())
	}
	started := s.Started()
	if !reflect.DeepEqual(started, []common.Address{b, a}) {
		t.Errorf("expected start order [b a], got %v", started)
	}
	started[0] = common.Address{}
	if s.Started()[0] != b {
		t.Error("Started must return a copy")
	}
}

func TestOutcomeConstructors(t *testing.T) {
	c := Completed(3, big.NewInt(9))
	if c.Kind != OutcomeCompleted || c.RequestID != 3 || c.RandomNumber.Int64() != 9 {
		t.Errorf("unexpected completed outcome %+v", c)
	}
	f := Failed(4)
	if f.Kind != OutcomeFailed || f.RequestID != 4 || f.RandomNumber != nil {
		t.Errorf("unexpected failed outcome %+v", f)
	}
}

func TestWitnessingParams_Validate(t *testing.T) {
	base := WitnessingParams{Collateral: 1e10, Reward: 1e8, UnitaryFee: 1e6, NumWitnesses: 8, MinConsensus: 51}

	tests := []struct {
		name   string
		mutate func(*WitnessingParams)
		valid  bool
	}{
		{"defaults", func(*WitnessingParams) {}, true},
		{"max witnesses", func(p *WitnessingParams) { p.NumWitnesses = 127 }, true},
		{"consensus 99", func(p *WitnessingParams) { p.MinConsensus = 99 }, true},
		{"minimum collateral", func(p *WitnessingParams) { p.Collateral = 1e9 }, true},
		{"zero reward", func(p *WitnessingParams) { p.Reward = 0 }, false},
		{"collateral too low", func(p *WitnessingParams) { p.Collateral = 1e8 }, false},
		{"no witnesses", func(p *WitnessingParams) { p.NumWitnesses = 0 }, false},
		{"too many witnesses", func(p *WitnessingParams) { p.NumWitnesses = 130 }, false},
		{"consensus 50", func(p *WitnessingParams) { p.MinConsensus = 50 }, false},
		{"consensus 100", func(p *WitnessingParams) { p.MinConsensus = 100 }, false},
	}
	for _, tt := range tests {
		p := base
		tt.mutate(&p)
		err := p.Validate()
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error %v", tt.name, err)
		}
		if !tt.valid && !errors.Is(err, ErrInvalidWitnessing) {
			t.Errorf("%s: expected ErrInvalidWitnessing, got %v", tt.name, err)
		}
	}
}
