package domain

import "fmt"

// Witnessing bounds enforced by WitnetRequestRandomness.
const (
	MinWitnessingCollateral = 1_000_000_000 // 1 WIT in nanowits
	MaxNumWitnesses         = 127
	MinWitnessingConsensus  = 51
	MaxWitnessingConsensus  = 99
)

// WitnessingParams are the Witnet witnessing settings of the randomness
// request the oracle posts. Amounts are in nanowits.
type WitnessingParams struct {
	Collateral   uint64
	Reward       uint64
	UnitaryFee   uint64
	NumWitnesses uint8
	MinConsensus uint8
}

// Validate mirrors the contract's checks so bad settings fail before submission.
func (p WitnessingParams) Validate() error {
	switch {
	case p.Reward == 0:
		return fmt.Errorf("%w: reward must be positive", ErrInvalidWitnessing)
	case p.Collateral < MinWitnessingCollateral:
		return fmt.Errorf("%w: collateral %d below %d", ErrInvalidWitnessing, p.Collateral, uint64(MinWitnessingCollateral))
	case p.NumWitnesses == 0 || p.NumWitnesses > MaxNumWitnesses:
		return fmt.Errorf("%w: num witnesses %d outside 1..%d", ErrInvalidWitnessing, p.NumWitnesses, MaxNumWitnesses)
	case p.MinConsensus < MinWitnessingConsensus || p.MinConsensus > MaxWitnessingConsensus:
		return fmt.Errorf("%w: consensus %d%% outside %d..%d", ErrInvalidWitnessing, p.MinConsensus, MinWitnessingConsensus, MaxWitnessingConsensus)
	}
	return nil
}
