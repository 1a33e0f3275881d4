package domain

import (
	"math/big"
	"sort"
)

// RequestID identifies a randomness request on the oracle contract.
// Ids are assigned by the contract starting at 1 and are never reused.
type RequestID uint32

// RequestRecord is a live view of a request read from chain state.
type RequestRecord struct {
	ID          RequestID
	IsComplete  bool
	IsFetchable bool
}

// FailureEvent is a RandomNumberFailed log emitted by the oracle contract.
type FailureEvent struct {
	RequestID   RequestID
	BlockNumber uint64
}

// FailureSet holds permanently failed requests keyed by id.
type FailureSet map[RequestID]FailureEvent

// NewFailureSet builds a set from events, collapsing duplicate ids.
// The earliest block wins when the same id appears twice.
func NewFailureSet(events []FailureEvent) FailureSet {
	set := make(FailureSet, len(events))
	for _, ev := range events {
		set.Add(ev)
	}
	return set
}

// Add inserts an event.
func (s FailureSet) Add(ev FailureEvent) {
	if prev, ok := s[ev.RequestID]; ok && prev.BlockNumber <= ev.BlockNumber {
		return
	}
	s[ev.RequestID] = ev
}

// Contains reports whether id failed.
func (s FailureSet) Contains(id RequestID) bool {
	_, ok := s[id]
	return ok
}

// IDs returns the failed ids in ascending order.
func (s FailureSet) IDs() []RequestID {
	ids := make([]RequestID, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// OutcomeKind is the terminal state of a fulfillment.
type OutcomeKind string

const (
	OutcomeCompleted OutcomeKind = "completed"
	OutcomeFailed    OutcomeKind = "failed"
)

// Outcome is the classified result of a fetchRandomness transaction.
type Outcome struct {
	Kind         OutcomeKind
	RequestID    RequestID
	RandomNumber *big.Int // nil unless Kind == OutcomeCompleted
	TxHash       string
}

// Completed builds a completed outcome.
func Completed(id RequestID, value *big.Int) Outcome {
	return Outcome{Kind: OutcomeCompleted, RequestID: id, RandomNumber: value}
}

// Failed builds a failed outcome.
func Failed(id RequestID) Outcome {
	return Outcome{Kind: OutcomeFailed, RequestID: id}
}

// RequestedEvent is emitted by requestRandomNumber.
type RequestedEvent struct {
	RequestID        RequestID
	ExternalOracleID *big.Int
}
