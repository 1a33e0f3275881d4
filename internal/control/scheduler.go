package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper/award"
	"github.com/vietddude/rngkeeper/internal/keeper/health"
)

// Config holds the scheduler configuration.
type Config struct {
	Port       int
	Cron       string
	RunOnStart bool
}

// Scheduler runs award cycles for every configured network. Cycles never
// overlap: a tick that fires while a cycle is still running is skipped.
type Scheduler struct {
	cfg     Config
	jobs    []Job
	locker  Locker
	monitor *health.Monitor
	server  *health.Server
	log     *slog.Logger
}

// NewScheduler creates a scheduler. locker may be nil.
func NewScheduler(cfg Config, jobs []Job, monitor *health.Monitor, locker Locker) (*Scheduler, error) {
	if len(jobs) == 0 {
		return nil, errors.New("no networks to schedule")
	}
	if _, err := cron.ParseStandard(cfg.Cron); err != nil {
		return nil, fmt.Errorf("invalid cron spec %q: %w", cfg.Cron, err)
	}
	return &Scheduler{
		cfg:     cfg,
		jobs:    jobs,
		locker:  locker,
		monitor: monitor,
		server:  health.NewServer(monitor, cfg.Port),
		log:     slog.Default().With("component", "scheduler"),
	}, nil
}

// Run blocks until ctx is cancelled, then waits for the running cycle and
// shuts the HTTP server down.
func (s *Scheduler) Run(ctx context.Context) error {
	logger := cronLogger{log: s.log}
	c := cron.New(cron.WithLogger(logger))
	job := cron.NewChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)).
		Then(cron.FuncJob(func() { s.RunCycle(ctx) }))
	if _, err := c.AddJob(s.cfg.Cron, job); err != nil {
		return fmt.Errorf("schedule award cycle: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	var startup sync.WaitGroup

	g.Go(func() error {
		if err := s.server.Start(); err != nil {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		c.Start()
		s.log.Info("Scheduler started", "cron", s.cfg.Cron, "networks", len(s.jobs), "port", s.cfg.Port)
		if s.cfg.RunOnStart {
			startup.Add(1)
			go func() {
				defer startup.Done()
				job.Run()
			}()
		}

		<-gctx.Done()
		s.log.Info("Stopping scheduler, waiting for running cycle")
		<-c.Stop().Done()
		startup.Wait()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.server.Stop(shutdownCtx)
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// RunCycle runs every network's award cycle once, in order. Errors are
// recorded on the health monitor and do not stop the remaining networks.
func (s *Scheduler) RunCycle(ctx context.Context) {
	for _, job := range s.jobs {
		if ctx.Err() != nil {
			return
		}
		s.runJob(ctx, job)
	}
}

func (s *Scheduler) runJob(ctx context.Context, job Job) {
	log := s.log.With("network", job.Network)

	var report *award.Report
	err := WithLock(ctx, s.locker, job.Network, job.Account, func(ctx context.Context) error {
		var err error
		report, err = job.Run(ctx)
		return err
	})
	if errors.Is(err, domain.ErrLockHeld) {
		log.Warn("Another keeper holds the run lock, skipping cycle", "error", err)
		return
	}

	result := health.CycleResult{Result: "ok", Err: err, FinishedAt: time.Now()}
	if report != nil {
		result.RunID = report.RunID
		if report.Skipped {
			result.Result = "skipped"
		}
	}
	if err != nil {
		result.Result = "error"
		log.Error("Award cycle failed", "run_id", result.RunID, "error", err)
	}
	s.monitor.RecordCycle(job.Network, result)
}

// cronLogger routes cron's logs through slog.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append(keysAndValues, "error", err)...)
}

// CycleInterval returns the gap between the next two firings of a standard
// cron spec after now.
func CycleInterval(spec string, now time.Time) (time.Duration, error) {
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return 0, fmt.Errorf("invalid cron spec %q: %w", spec, err)
	}
	next := sched.Next(now)
	return sched.Next(next).Sub(next), nil
}
