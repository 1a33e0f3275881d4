package config

import (
	"time"

	"github.com/vietddude/rngkeeper/internal/core/domain"
	redisclient "github.com/vietddude/rngkeeper/internal/infra/redis"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig                          `yaml:"server"`
	Logging  LoggingConfig                         `yaml:"logging"`
	Redis    redisclient.Config                    `yaml:"redis"`
	Metrics  MetricsConfig                         `yaml:"metrics"`
	Keeper   KeeperConfig                          `yaml:"keeper"`
	Schedule ScheduleConfig                        `yaml:"schedule"`
	Networks map[domain.NetworkName]NetworkConfig `yaml:"networks"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// MetricsConfig holds Prometheus settings for one-shot commands.
type MetricsConfig struct {
	PushURL string `yaml:"push_url"` // pushgateway, empty = disabled
	Job     string `yaml:"job"`
}

// ScheduleConfig holds settings for the long-running scheduler.
type ScheduleConfig struct {
	Cron string `yaml:"cron"`
}

// KeeperConfig holds timing and provider-behaviour settings shared by all networks.
type KeeperConfig struct {
	FetchablePollInterval time.Duration `yaml:"fetchable_poll_interval"`
	FetchableTimeout      time.Duration `yaml:"fetchable_timeout"` // 0 = wait forever
	UnderpricedBackoff    time.Duration `yaml:"underpriced_backoff"`
	LogWindowDelay        time.Duration `yaml:"log_window_delay"`
	LogWindowBlocks       uint64        `yaml:"log_window_blocks"`
	ReceiptPollInterval   time.Duration `yaml:"receipt_poll_interval"`
	ReceiptTimeout        time.Duration `yaml:"receipt_timeout"`
	RPCTimeout            time.Duration `yaml:"rpc_timeout"`
	RangeErrorPatterns    []string      `yaml:"range_error_patterns"`
}

// NetworkConfig holds per-network contract and fee settings.
type NetworkConfig struct {
	ChainID   uint64            `yaml:"chain_id"`
	Provider  string            `yaml:"provider"`  // key into Providers
	Providers map[string]string `yaml:"providers"` // name -> endpoint URL

	PrivateKey string `yaml:"private_key"`

	RngWitnetAddress           string `yaml:"rng_witnet_address"`
	RngWitnetDeployBlock       uint64 `yaml:"rng_witnet_deploy_block"`
	RngWitnetDeployTransaction string `yaml:"rng_witnet_deploy_transaction"`

	PriorityFee string `yaml:"priority_fee"` // e.g. "2 gwei"
	MaxFee      string `yaml:"max_fee"`
	MaxGasPrice string `yaml:"max_gas_price"`
	MaxRngFee   string `yaml:"max_rng_fee"`

	RequestGasLimit    uint64 `yaml:"request_gas_limit"`
	StartAwardGasLimit uint64 `yaml:"start_award_gas_limit"`

	PrizeStrategyAddresses []string `yaml:"prize_strategy_addresses"`
	RemoveRequesters       []string `yaml:"remove_requesters"`

	Witnessing WitnessingConfig `yaml:"witnessing"`
}

// WitnessingConfig holds the Witnet witnessing parameters for
// set-request-parameters. Amounts are in nanowits; zero fields take defaults.
type WitnessingConfig struct {
	Collateral   uint64 `yaml:"collateral"`
	Reward       uint64 `yaml:"reward"`
	UnitaryFee   uint64 `yaml:"unitary_fee"`
	NumWitnesses uint8  `yaml:"num_witnesses"`
	MinConsensus uint8  `yaml:"min_consensus"`
}

// Params returns the parameters with defaults filled in.
func (w WitnessingConfig) Params() domain.WitnessingParams {
	p := domain.WitnessingParams{
		Collateral:   w.Collateral,
		Reward:       w.Reward,
		UnitaryFee:   w.UnitaryFee,
		NumWitnesses: w.NumWitnesses,
		MinConsensus: w.MinConsensus,
	}
	if p.Collateral == 0 {
		p.Collateral = 10_000_000_000
	}
	if p.Reward == 0 {
		p.Reward = 100_000_000
	}
	if p.UnitaryFee == 0 {
		p.UnitaryFee = 1_000_000
	}
	if p.NumWitnesses == 0 {
		p.NumWitnesses = 8
	}
	if p.MinConsensus == 0 {
		p.MinConsensus = 51
	}
	return p
}

// Endpoint returns the URL of the selected provider.
func (n NetworkConfig) Endpoint() string {
	return n.Providers[n.Provider]
}
