package cli

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/rngkeeper/internal/control"
	"github.com/vietddude/rngkeeper/internal/core/config"
	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper/award"
	"github.com/vietddude/rngkeeper/internal/keeper/health"
)

var (
	scheduleNetworks []string
	runOnStart       bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run award cycles on the configured cron schedule and serve /health and /metrics",
	Args:  cobra.NoArgs,
	Run:   runSchedule,
}

func init() {
	scheduleCmd.Flags().StringSliceVar(&scheduleNetworks, "networks", nil, "networks to schedule (default: --network)")
	scheduleCmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run a cycle immediately on startup")
	rootCmd.AddCommand(scheduleCmd)
}

func runSchedule(cmd *cobra.Command, args []string) {
	cfg := loadConfig()
	ctx, cancel := signalContext()
	defer cancel()

	names := scheduleNetworks
	if len(names) == 0 {
		names = []string{networkName}
	}

	// A network is stale once it has missed more than two cycles.
	interval, err := control.CycleInterval(cfg.Schedule.Cron, time.Now())
	if err != nil {
		slog.Error("Invalid schedule", "error", err)
		os.Exit(1)
	}
	monitor := health.NewMonitor(3 * interval)
	var (
		jobs     []control.Job
		runtimes []*runtime
		locker   control.Locker
	)
	closeAll := func() {
		for _, rt := range runtimes {
			rt.Close()
		}
	}

	// Validate every network before connecting to any of them.
	settings := make([]*config.Network, 0, len(names))
	for _, name := range names {
		n, err := networkSettings(cfg, domain.NetworkName(name), awards)
		if err != nil {
			slog.Error("Invalid network configuration", "network", name, "error", err)
			os.Exit(1)
		}
		settings = append(settings, n)
	}

	for _, n := range settings {
		rt, err := newRuntime(ctx, cfg, n)
		if err != nil {
			slog.Error("Failed to initialise keeper", "network", n.Name, "error", err)
			closeAll()
			os.Exit(1)
		}
		runtimes = append(runtimes, rt)

		orch := rt.orchestrator()
		if locker == nil {
			locker = rt.locker
		}
		monitor.Register(rt.env.Network, rt.rpc)
		jobs = append(jobs, control.Job{
			Network: rt.env.Network,
			Account: rt.env.Sender,
			Run: func(ctx context.Context) (*award.Report, error) {
				return orch.Run(ctx)
			},
		})
	}

	app, err := control.NewScheduler(control.Config{
		Port:       cfg.Server.Port,
		Cron:       cfg.Schedule.Cron,
		RunOnStart: runOnStart,
	}, jobs, monitor, locker)
	if err != nil {
		slog.Error("Failed to initialise scheduler", "error", err)
		closeAll()
		os.Exit(1)
	}

	start := time.Now()
	if err := app.Run(ctx); err != nil {
		slog.Error("Scheduler failed", "error", err)
		closeAll()
		os.Exit(1)
	}
	closeAll()
	slog.Info("Scheduler stopped gracefully", "uptime", time.Since(start).Round(time.Second))
}
