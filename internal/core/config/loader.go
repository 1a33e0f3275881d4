package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	redisclient "github.com/vietddude/rngkeeper/internal/infra/redis"
)

// DefaultRangeErrorPattern is the payload Alchemy returns when an
// eth_getLogs response would be too large.
const DefaultRangeErrorPattern = "Log response size exceeded."

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML content and applies defaults.
func Parse(data []byte) (*AppConfig, error) {
	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 9102
	}
	if cfg.Metrics.Job == "" {
		cfg.Metrics.Job = "rngkeeper"
	}
	if cfg.Schedule.Cron == "" {
		cfg.Schedule.Cron = "*/30 * * * *"
	}

	k := &cfg.Keeper
	if k.FetchablePollInterval == 0 {
		k.FetchablePollInterval = 30 * time.Second
	}
	if k.UnderpricedBackoff == 0 {
		k.UnderpricedBackoff = 60 * time.Second
	}
	if k.LogWindowDelay == 0 {
		k.LogWindowDelay = 200 * time.Millisecond
	}
	if k.LogWindowBlocks == 0 {
		k.LogWindowBlocks = 100_000
	}
	if k.ReceiptPollInterval == 0 {
		k.ReceiptPollInterval = 2 * time.Second
	}
	if k.ReceiptTimeout == 0 {
		k.ReceiptTimeout = 10 * time.Minute
	}
	if k.RPCTimeout == 0 {
		k.RPCTimeout = 30 * time.Second
	}
	if len(k.RangeErrorPatterns) == 0 {
		k.RangeErrorPatterns = []string{DefaultRangeErrorPattern}
	}

	if cfg.Redis.LockTTL == 0 {
		cfg.Redis.LockTTL = redisclient.DefaultLockTTL
	}

	for name, n := range cfg.Networks {
		if n.RequestGasLimit == 0 {
			n.RequestGasLimit = 300_000
		}
		if n.StartAwardGasLimit == 0 {
			n.StartAwardGasLimit = 400_000
		}
		cfg.Networks[name] = n
	}
}
