package domain

import "github.com/ethereum/go-ethereum/common"

// AwardCycleState tracks strategies whose award was started in the current run.
// It is never persisted.
type AwardCycleState struct {
	started []common.Address
	seen    map[common.Address]struct{}
}

// NewAwardCycleState creates an empty state.
func NewAwardCycleState() *AwardCycleState {
	return &AwardCycleState{seen: make(map[common.Address]struct{})}
}

// MarkStarted records a strategy. Duplicates are ignored.
func (s *AwardCycleState) MarkStarted(addr common.Address) {
	if _, ok := s.seen[addr]; ok {
		return
	}
	s.seen[addr] = struct{}{}
	s.started = append(s.started, addr)
}

// Started returns started strategies in the order they were started.
func (s *AwardCycleState) Started() []common.Address {
	out := make([]common.Address, len(s.started))
	copy(out, s.started)
	return out
}

// Len returns the number of started strategies.
func (s *AwardCycleState) Len() int {
	return len(s.started)
}
