package cli

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/rngkeeper/internal/core/config"
	"github.com/vietddude/rngkeeper/internal/core/domain"
	"github.com/vietddude/rngkeeper/internal/keeper/metrics"
)

var (
	cfgPath     string
	isDebug     bool
	networkName string
)

var rootCmd = &cobra.Command{
	Use:   "keeper",
	Short: "Randomness fulfillment keeper",
	Long: `Keeper fulfills RngWitnet randomness requests and drives the
prize strategy award cycle (start, fulfill, complete) on EVM networks.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVarP(&networkName, "network", "n", string(domain.NetworkEthereum), "network to operate on")
}

// loadConfig loads .env and the config file, then initialises logging.
func loadConfig() *config.AppConfig {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	slogLevel := slog.LevelInfo
	if isDebug || cfg.Logging.Level == "debug" {
		slogLevel = slog.LevelDebug
	}

	stylelog.InitDefault(&tint.Options{
		Level:      slogLevel,
		TimeFormat: time.RFC3339,
	})
	return cfg
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// runMode is what a one-shot command needs from its network runtime.
type runMode int

const (
	readOnly runMode = iota // no lock, no submissions
	submits                 // fee-paying, runs under the run lock
	awards                  // submits, and requires the award settings
)

// runOneShot validates the network, builds its runtime, runs fn (under the
// run lock unless readOnly) and pushes metrics when a pushgateway is configured.
func runOneShot(mode runMode, fn func(ctx context.Context, rt *runtime) error) {
	cfg := loadConfig()
	ctx, cancel := signalContext()
	defer cancel()

	n, err := networkSettings(cfg, domain.NetworkName(networkName), mode)
	if err != nil {
		slog.Error("Invalid network configuration", "network", networkName, "error", err)
		os.Exit(1)
	}
	rt, err := newRuntime(ctx, cfg, n)
	if err != nil {
		slog.Error("Failed to initialise keeper", "network", networkName, "error", err)
		os.Exit(1)
	}
	defer rt.Close()

	run := func(ctx context.Context) error { return fn(ctx, rt) }
	if mode == readOnly {
		err = run(ctx)
	} else {
		err = withRunLock(ctx, rt, run)
	}

	if cfg.Metrics.PushURL != "" {
		pushCtx, pushCancel := context.WithTimeout(context.Background(), 10*time.Second)
		if perr := metrics.Push(pushCtx, cfg.Metrics.PushURL, cfg.Metrics.Job); perr != nil {
			slog.Warn("Failed to push metrics", "error", perr)
		}
		pushCancel()
	}

	if err != nil {
		slog.Error("Command failed", "network", networkName, "error", err)
		rt.Close()
		os.Exit(1)
	}
}
