package cli

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"

	"github.com/vietddude/rngkeeper/internal/core/config"
	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper"
	"github.com/vietddude/rngkeeper/internal/keeper/award"
)

type requestStatus struct {
	ID        domain.RequestID
	Fetchable bool
}

type strategyStatus struct {
	Address     common.Address
	CanStart    bool
	CanComplete bool
}

type networkStatus struct {
	Network      domain.NetworkName
	Head         uint64
	GasPrice     *big.Int
	MaxGasPrice  *big.Int
	MaxFee       *big.Int
	RequestCount uint32
	Failed       []domain.RequestID
	Pending      []requestStatus
	Strategies   []strategyStatus
}

// collectStatus reads the network's state without submitting anything.
func collectStatus(ctx context.Context, env *keeper.Environment, scan award.Discoverer, maxGasPrice *big.Int) (*networkStatus, error) {
	st := &networkStatus{Network: env.Network, MaxGasPrice: maxGasPrice}

	var err error
	if st.GasPrice, err = env.Chain.GasPrice(ctx); err != nil {
		return nil, fmt.Errorf("read gas price: %w", err)
	}
	if st.MaxFee, err = env.Oracle.MaxFee(ctx); err != nil {
		return nil, fmt.Errorf("maxFee: %w", err)
	}

	s, err := scan.Discover(ctx, env.DeployBlock)
	if err != nil {
		return nil, err
	}
	st.Head = s.Head
	st.RequestCount = s.RequestCount
	st.Failed = s.Failed.IDs()

	for _, id := range s.Pending {
		fetchable, err := env.Oracle.IsRngFetchable(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("isRngFetchable(%d): %w", id, err)
		}
		st.Pending = append(st.Pending, requestStatus{ID: id, Fetchable: fetchable})
	}

	for _, strategy := range env.Strategies {
		canStart, err := strategy.CanStartAward(ctx)
		if err != nil {
			return nil, fmt.Errorf("canStartAward(%s): %w", strategy.Address().Hex(), err)
		}
		canComplete, err := strategy.CanCompleteAward(ctx)
		if err != nil {
			return nil, fmt.Errorf("canCompleteAward(%s): %w", strategy.Address().Hex(), err)
		}
		st.Strategies = append(st.Strategies, strategyStatus{
			Address:     strategy.Address(),
			CanStart:    canStart,
			CanComplete: canComplete,
		})
	}
	return st, nil
}

// Print renders the status as tables.
func (st *networkStatus) Print(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)

	maxGas := "-"
	if st.MaxGasPrice != nil {
		maxGas = config.FormatGwei(st.MaxGasPrice)
	}
	fmt.Fprintf(w, "NETWORK\tHEAD\tGAS (GWEI)\tMAX GAS (GWEI)\tORACLE MAX FEE (GWEI)\tREQUESTS\n")
	fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%d\n\n",
		st.Network, st.Head, config.FormatGwei(st.GasPrice), maxGas, config.FormatGwei(st.MaxFee), st.RequestCount)

	fmt.Fprintf(w, "FAILED\t%v\n\n", st.Failed)

	fmt.Fprintln(w, "PENDING\tFETCHABLE")
	for _, p := range st.Pending {
		fmt.Fprintf(w, "%d\t%t\n", p.ID, p.Fetchable)
	}
	if len(st.Pending) == 0 {
		fmt.Fprintln(w, "-\t-")
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "STRATEGY\tCAN START\tCAN COMPLETE")
	for _, s := range st.Strategies {
		fmt.Fprintf(w, "%s\t%t\t%t\n", s.Address.Hex(), s.CanStart, s.CanComplete)
	}
	return w.Flush()
}
