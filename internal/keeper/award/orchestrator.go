// Package award runs the prize strategy award cycle: price gate, start,
// fulfill every outstanding randomness request, complete.
package award

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/google/uuid"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper"
	"github.com/vietddude/rngkeeper/internal/keeper/metrics"
	"github.com/vietddude/rngkeeper/internal/keeper/scanner"
	"github.com/vietddude/rngkeeper/internal/keeper/txguard"
)

// Discoverer finds outstanding requests. Implemented by *scanner.Scanner.
type Discoverer interface {
	Discover(ctx context.Context, deployBlock uint64) (*scanner.Scan, error)
}

// Fulfiller fulfills requests in order. Implemented by *fulfiller.Poller.
type Fulfiller interface {
	FulfillAll(ctx context.Context, ids []domain.RequestID, params domain.TxParams) ([]domain.Outcome, error)
}

// Submitter sends fee-paying transactions. Implemented by *txguard.Guard.
type Submitter interface {
	Submit(ctx context.Context, name string, action txguard.Action) (*domain.TxResult, error)
}

// Config holds the cycle's limits.
type Config struct {
	// MaxGasPrice is the ceiling above which the cycle is skipped. Nil disables the gate.
	MaxGasPrice        *big.Int
	StartAwardGasLimit uint64
}

// Stage names used in logs, metrics and reports.
const (
	StageStart    = "start"
	StageComplete = "complete"
)

// StrategySkip is a strategy whose readiness check returned false.
type StrategySkip struct {
	Address common.Address
	Stage   string
}

// Report summarises one cycle.
type Report struct {
	RunID    string
	Network  domain.NetworkName
	GasPrice *big.Int

	// Skipped is set when the price gate stopped the cycle; SkipReason wraps
	// domain.ErrGasPriceTooHigh.
	Skipped    bool
	SkipReason error

	Started           []common.Address
	Completed         []common.Address
	SkippedStrategies []StrategySkip
	Pending           []domain.RequestID
	Outcomes          []domain.Outcome
}

// Orchestrator runs award cycles for one network.
type Orchestrator struct {
	env      *keeper.Environment
	cfg      Config
	scanner  Discoverer
	poller   Fulfiller
	guard    Submitter
	newRunID func() string
	log      *slog.Logger
}

// New creates an orchestrator.
func New(env *keeper.Environment, cfg Config, scan Discoverer, poller Fulfiller, guard Submitter) *Orchestrator {
	return &Orchestrator{
		env:      env,
		cfg:      cfg,
		scanner:  scan,
		poller:   poller,
		guard:    guard,
		newRunID: func() string { return uuid.NewString() },
		log:      slog.Default().With("component", "award", "network", env.Network),
	}
}

// Run executes one cycle. Stages run strictly in order and an error in any
// stage aborts the rest of the cycle. A price gate skip is not an error.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{RunID: o.newRunID(), Network: o.env.Network}
	log := o.log.With("run_id", report.RunID)

	err := o.run(ctx, log, report)

	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case report.Skipped:
		result = "skipped"
	}
	network := string(o.env.Network)
	metrics.CyclesTotal.WithLabelValues(network, result).Inc()
	metrics.CycleDuration.WithLabelValues(network).Observe(time.Since(start).Seconds())
	metrics.LastCycleTimestamp.WithLabelValues(network, result).SetToCurrentTime()

	if err != nil {
		log.Error("award cycle failed", "error", err, "duration", time.Since(start))
		return report, err
	}
	log.Info("award cycle finished",
		"result", result,
		"started", len(report.Started),
		"completed", len(report.Completed),
		"fulfilled", len(report.Outcomes),
		"duration", time.Since(start),
	)
	return report, nil
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, report *Report) error {
	ok, err := o.checkGasPrice(ctx, log, report)
	if err != nil || !ok {
		return err
	}

	state := domain.NewAwardCycleState()
	if err := o.startAwards(ctx, log, state, report); err != nil {
		return err
	}

	scan, err := o.scanner.Discover(ctx, o.env.DeployBlock)
	if err != nil {
		return fmt.Errorf("discover pending requests: %w", err)
	}
	report.Pending = scan.Pending
	outcomes, err := o.poller.FulfillAll(ctx, scan.Pending, o.env.Params)
	report.Outcomes = outcomes
	if err != nil {
		return err
	}

	return o.completeAwards(ctx, log, state, report)
}

func (o *Orchestrator) checkGasPrice(ctx context.Context, log *slog.Logger, report *Report) (bool, error) {
	price, err := o.env.Chain.GasPrice(ctx)
	if err != nil {
		return false, fmt.Errorf("read gas price: %w", err)
	}
	report.GasPrice = price
	metrics.GasPriceGwei.WithLabelValues(string(o.env.Network)).Set(gwei(price))

	if o.cfg.MaxGasPrice == nil || price.Cmp(o.cfg.MaxGasPrice) <= 0 {
		log.Info("gas price checked", "gas_price_gwei", gwei(price))
		return true, nil
	}

	report.Skipped = true
	report.SkipReason = fmt.Errorf("%w: %s > %s wei", domain.ErrGasPriceTooHigh, price, o.cfg.MaxGasPrice)
	log.Warn("gas price above ceiling, skipping award cycle",
		"gas_price_gwei", gwei(price),
		"max_gas_price_gwei", gwei(o.cfg.MaxGasPrice),
	)
	return false, nil
}

func (o *Orchestrator) startAwards(ctx context.Context, log *slog.Logger, state *domain.AwardCycleState, report *Report) error {
	params := o.env.Params.WithGasLimit(o.cfg.StartAwardGasLimit)
	for _, s := range o.env.Strategies {
		addr := s.Address()
		can, err := s.CanStartAward(ctx)
		if err != nil {
			return o.stageError(StageStart, addr, fmt.Errorf("canStartAward: %w", err))
		}
		if !can {
			log.Warn("award cannot be started, skipping", "strategy", addr.Hex())
			report.SkippedStrategies = append(report.SkippedStrategies, StrategySkip{Address: addr, Stage: StageStart})
			metrics.AwardsTotal.WithLabelValues(string(o.env.Network), StageStart, "skipped").Inc()
			continue
		}

		res, err := o.guard.Submit(ctx, "startAward", func(ctx context.Context) (*domain.TxResult, error) {
			return s.StartAward(ctx, params)
		})
		if err != nil {
			return o.stageError(StageStart, addr, fmt.Errorf("startAward: %w", err))
		}
		state.MarkStarted(addr)
		report.Started = state.Started()
		log.Info("award started", "strategy", addr.Hex(), "tx_hash", res.Hash.Hex())
		metrics.AwardsTotal.WithLabelValues(string(o.env.Network), StageStart, "ok").Inc()
	}
	return nil
}

func (o *Orchestrator) completeAwards(ctx context.Context, log *slog.Logger, state *domain.AwardCycleState, report *Report) error {
	byAddr := make(map[common.Address]keeper.Strategy, len(o.env.Strategies))
	for _, s := range o.env.Strategies {
		byAddr[s.Address()] = s
	}

	params := o.env.Params.WithoutGasLimit()
	for _, addr := range state.Started() {
		s := byAddr[addr]
		can, err := s.CanCompleteAward(ctx)
		if err != nil {
			return o.stageError(StageComplete, addr, fmt.Errorf("canCompleteAward: %w", err))
		}
		if !can {
			log.Warn("award cannot be completed, skipping", "strategy", addr.Hex())
			report.SkippedStrategies = append(report.SkippedStrategies, StrategySkip{Address: addr, Stage: StageComplete})
			metrics.AwardsTotal.WithLabelValues(string(o.env.Network), StageComplete, "skipped").Inc()
			continue
		}

		res, err := o.guard.Submit(ctx, "completeAward", func(ctx context.Context) (*domain.TxResult, error) {
			return s.CompleteAward(ctx, params)
		})
		if err != nil {
			return o.stageError(StageComplete, addr, fmt.Errorf("completeAward: %w", err))
		}
		report.Completed = append(report.Completed, addr)
		log.Info("award completed", "strategy", addr.Hex(), "tx_hash", res.Hash.Hex())
		metrics.AwardsTotal.WithLabelValues(string(o.env.Network), StageComplete, "ok").Inc()
	}
	return nil
}

func (o *Orchestrator) stageError(stage string, addr common.Address, err error) error {
	metrics.AwardsTotal.WithLabelValues(string(o.env.Network), stage, "error").Inc()
	return fmt.Errorf("%s stage, strategy %s: %w", stage, addr.Hex(), err)
}

func gwei(wei *big.Int) float64 {
	f, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.GWei)).Float64()
	return f
}
