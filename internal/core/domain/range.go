package domain

import "fmt"

// BlockRange is an inclusive window over block numbers.
type BlockRange struct {
	From uint64
	To   uint64
}

// NewBlockRange validates from <= to.
func NewBlockRange(from, to uint64) (BlockRange, error) {
	if from > to {
		return BlockRange{}, fmt.Errorf("%w: %d > %d", ErrInvalidRange, from, to)
	}
	return BlockRange{From: from, To: to}, nil
}

// Size returns the number of blocks in the range.
func (r BlockRange) Size() uint64 {
	return r.To - r.From + 1
}

// String returns the range in "from-to" format.
func (r BlockRange) String() string {
	return fmt.Sprintf("%d-%d", r.From, r.To)
}
