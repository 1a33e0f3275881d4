// Package fulfiller waits for requests to become fetchable, submits the
// fulfillment and classifies the outcome from the emitted events.
package fulfiller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sethvargo/go-retry"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper/metrics"
	"github.com/vietddude/rngkeeper/internal/keeper/txguard"
)

// Oracle is the part of the oracle contract the poller drives.
type Oracle interface {
	IsRngFetchable(ctx context.Context, id domain.RequestID) (bool, error)
	FetchRandomness(ctx context.Context, id domain.RequestID, params domain.TxParams) (*domain.TxResult, error)
	RequestRandomNumber(ctx context.Context, params domain.TxParams) (*domain.TxResult, error)
	ParseRandomNumberFailed(l types.Log) (domain.RequestID, bool, error)
	ParseRandomNumberCompleted(l types.Log) (domain.RequestID, *big.Int, bool, error)
	ParseRngRequested(l types.Log) (domain.RequestedEvent, bool, error)
}

// Submitter sends fee-paying transactions. Implemented by *txguard.Guard.
type Submitter interface {
	Submit(ctx context.Context, name string, action txguard.Action) (*domain.TxResult, error)
}

// Config controls the fetchability wait.
type Config struct {
	Network      domain.NetworkName
	PollInterval time.Duration
	// FetchableTimeout bounds the wait for one request; 0 waits until the context ends.
	FetchableTimeout time.Duration
}

// Poller fulfills requests one at a time.
type Poller struct {
	cfg     Config
	oracle  Oracle
	guard   Submitter
	backoff func() retry.Backoff
	log     *slog.Logger
}

var errNotFetchable = errors.New("request not fetchable yet")

// New creates a poller.
func New(cfg Config, oracle Oracle, guard Submitter) *Poller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 30 * time.Second
	}
	p := &Poller{
		cfg:    cfg,
		oracle: oracle,
		guard:  guard,
		log:    slog.Default().With("component", "fulfiller", "network", cfg.Network),
	}
	p.backoff = func() retry.Backoff {
		b := retry.NewConstant(p.cfg.PollInterval)
		if p.cfg.FetchableTimeout > 0 {
			b = retry.WithMaxDuration(p.cfg.FetchableTimeout, b)
		}
		return b
	}
	return p
}

// WithBackoff replaces the fetchability poll policy, one instance per request.
func (p *Poller) WithBackoff(f func() retry.Backoff) *Poller {
	p.backoff = f
	return p
}

// Fulfill waits until id is fetchable, submits fetchRandomness through the
// guard and classifies the result. The gas limit is always left to estimation.
func (p *Poller) Fulfill(ctx context.Context, id domain.RequestID, params domain.TxParams) (domain.Outcome, error) {
	if err := p.waitFetchable(ctx, id); err != nil {
		return domain.Outcome{}, err
	}

	params = params.WithoutGasLimit()
	res, err := p.guard.Submit(ctx, "fetchRandomness", func(ctx context.Context) (*domain.TxResult, error) {
		return p.oracle.FetchRandomness(ctx, id, params)
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("fetchRandomness(%d): %w", id, err)
	}

	outcome, err := p.classify(id, res.Logs)
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("fetchRandomness(%d) tx %s: %w", id, res.Hash.Hex(), err)
	}
	outcome.TxHash = res.Hash.Hex()

	switch outcome.Kind {
	case domain.OutcomeFailed:
		p.log.Warn("random number request failed", "request_id", id, "tx_hash", outcome.TxHash)
	case domain.OutcomeCompleted:
		p.log.Info("random number fetched",
			"request_id", id,
			"random_number", outcome.RandomNumber.String(),
			"tx_hash", outcome.TxHash,
		)
	}
	metrics.FulfillmentsTotal.WithLabelValues(string(p.cfg.Network), string(outcome.Kind)).Inc()
	return outcome, nil
}

// FulfillAll fulfills ids in order and stops at the first error.
// Outcomes gathered before the error are returned with it.
func (p *Poller) FulfillAll(ctx context.Context, ids []domain.RequestID, params domain.TxParams) ([]domain.Outcome, error) {
	outcomes := make([]domain.Outcome, 0, len(ids))
	for _, id := range ids {
		out, err := p.Fulfill(ctx, id, params)
		if err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, out)
	}
	return outcomes, nil
}

// RequestAndFulfill requests a new random number with a fixed gas limit and
// fulfills it.
func (p *Poller) RequestAndFulfill(
	ctx context.Context,
	params domain.TxParams,
	gasLimit uint64,
) (domain.RequestedEvent, domain.Outcome, error) {
	reqParams := params.WithGasLimit(gasLimit)
	res, err := p.guard.Submit(ctx, "requestRandomNumber", func(ctx context.Context) (*domain.TxResult, error) {
		return p.oracle.RequestRandomNumber(ctx, reqParams)
	})
	if err != nil {
		return domain.RequestedEvent{}, domain.Outcome{}, fmt.Errorf("requestRandomNumber: %w", err)
	}

	var (
		requested domain.RequestedEvent
		found     bool
	)
	for _, l := range res.Logs {
		ev, ok, err := p.oracle.ParseRngRequested(l)
		if err != nil {
			return domain.RequestedEvent{}, domain.Outcome{}, err
		}
		if ok {
			requested, found = ev, true
			break
		}
	}
	if !found {
		return domain.RequestedEvent{}, domain.Outcome{}, fmt.Errorf("requestRandomNumber tx %s emitted no RngRequested event", res.Hash.Hex())
	}

	p.log.Info("random number requested",
		"request_id", requested.RequestID,
		"witnet_request_id", requested.ExternalOracleID,
		"tx_hash", res.Hash.Hex(),
	)

	outcome, err := p.Fulfill(ctx, requested.RequestID, params)
	return requested, outcome, err
}

func (p *Poller) waitFetchable(ctx context.Context, id domain.RequestID) error {
	err := retry.Do(ctx, p.backoff(), func(ctx context.Context) error {
		fetchable, err := p.oracle.IsRngFetchable(ctx, id)
		if err != nil {
			return fmt.Errorf("isRngFetchable(%d): %w", id, err)
		}
		p.log.Info("fetchability checked", "request_id", id, "fetchable", fetchable)
		if !fetchable {
			return retry.RetryableError(errNotFetchable)
		}
		return nil
	})
	if errors.Is(err, errNotFetchable) {
		return fmt.Errorf("request %d: %w", id, domain.ErrFetchableTimeout)
	}
	return err
}

// classify maps the fulfillment's logs to an outcome. A failure event wins
// over a completion event.
func (p *Poller) classify(id domain.RequestID, logs []types.Log) (domain.Outcome, error) {
	for _, l := range logs {
		failedID, ok, err := p.oracle.ParseRandomNumberFailed(l)
		if err != nil {
			return domain.Outcome{}, err
		}
		if !ok {
			continue
		}
		if failedID != id {
			return domain.Outcome{}, fmt.Errorf("%w: RandomNumberFailed(%d) for request %d", domain.ErrRequestMismatch, failedID, id)
		}
		return domain.Failed(id), nil
	}

	for _, l := range logs {
		completedID, value, ok, err := p.oracle.ParseRandomNumberCompleted(l)
		if err != nil {
			return domain.Outcome{}, err
		}
		if !ok {
			continue
		}
		if completedID != id {
			return domain.Outcome{}, fmt.Errorf("%w: RandomNumberCompleted(%d) for request %d", domain.ErrRequestMismatch, completedID, id)
		}
		return domain.Completed(id, value), nil
	}

	return domain.Outcome{}, domain.ErrProtocolViolation
}
