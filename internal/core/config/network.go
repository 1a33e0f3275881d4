package config

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/vietddude/rngkeeper/internal/core/domain"
)

// Network is a validated, parsed view of a NetworkConfig.
type Network struct {
	Name     domain.NetworkName
	ChainID  uint64
	Endpoint string
	Key      *ecdsa.PrivateKey
	Sender   common.Address

	RngWitnet            common.Address
	DeployBlock          uint64
	DeployTransaction    common.Hash
	HasDeployTransaction bool

	PriorityFee *big.Int
	MaxFee      *big.Int
	MaxGasPrice *big.Int
	MaxRngFee   *big.Int

	RequestGasLimit    uint64
	StartAwardGasLimit uint64

	PrizeStrategies  []common.Address
	RemoveRequesters []common.Address

	Witnessing domain.WitnessingParams
}

// TxParams returns the base transaction parameters for this network.
func (n *Network) TxParams() domain.TxParams {
	return domain.TxParams{
		From:        n.Sender,
		PriorityFee: n.PriorityFee,
		MaxFee:      n.MaxFee,
	}
}

// Network validates and returns the settings for the named network.
// Validation happens before any chain interaction; every error names the field.
func (c *AppConfig) Network(name domain.NetworkName) (*Network, error) {
	raw, ok := c.Networks[name]
	if !ok {
		return nil, fmt.Errorf("network configuration not found: %s", name)
	}
	field := func(f string) string { return fmt.Sprintf("networks.%s.%s", name, f) }

	n := &Network{
		Name:               name,
		ChainID:            raw.ChainID,
		RequestGasLimit:    raw.RequestGasLimit,
		StartAwardGasLimit: raw.StartAwardGasLimit,
		DeployBlock:        raw.RngWitnetDeployBlock,
	}
	if n.ChainID == 0 {
		if id, ok := domain.NetworkToChainID[name]; ok {
			n.ChainID = uint64(id)
		}
	}

	if raw.Provider == "" {
		return nil, fmt.Errorf("%s is required", field("provider"))
	}
	n.Endpoint = raw.Endpoint()
	if n.Endpoint == "" {
		return nil, fmt.Errorf("%s has no endpoint for provider %q", field("providers"), raw.Provider)
	}

	if strings.TrimSpace(raw.PrivateKey) == "" {
		return nil, fmt.Errorf("%s is required", field("private_key"))
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(raw.PrivateKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%s is invalid: %w", field("private_key"), err)
	}
	n.Key = key
	n.Sender = crypto.PubkeyToAddress(key.PublicKey)

	if n.RngWitnet, err = parseAddress(raw.RngWitnetAddress); err != nil {
		return nil, fmt.Errorf("%s: %w", field("rng_witnet_address"), err)
	}
	if tx := strings.TrimSpace(raw.RngWitnetDeployTransaction); tx != "" {
		n.DeployTransaction = common.HexToHash(tx)
		n.HasDeployTransaction = true
	}

	// Fees are a pair: both set or both empty.
	if (raw.PriorityFee == "") != (raw.MaxFee == "") {
		missing := "max_fee"
		if raw.PriorityFee == "" {
			missing = "priority_fee"
		}
		return nil, fmt.Errorf("%s is required when the other fee is set", field(missing))
	}
	if raw.PriorityFee != "" {
		if n.PriorityFee, err = ParseWei(raw.PriorityFee); err != nil {
			return nil, fmt.Errorf("%s: %w", field("priority_fee"), err)
		}
		if n.MaxFee, err = ParseWei(raw.MaxFee); err != nil {
			return nil, fmt.Errorf("%s: %w", field("max_fee"), err)
		}
		if n.PriorityFee.Cmp(n.MaxFee) > 0 {
			return nil, fmt.Errorf("%s must not exceed %s", field("priority_fee"), field("max_fee"))
		}
	}

	if raw.MaxGasPrice != "" {
		if n.MaxGasPrice, err = ParseWei(raw.MaxGasPrice); err != nil {
			return nil, fmt.Errorf("%s: %w", field("max_gas_price"), err)
		}
	}
	if raw.MaxRngFee != "" {
		if n.MaxRngFee, err = ParseWei(raw.MaxRngFee); err != nil {
			return nil, fmt.Errorf("%s: %w", field("max_rng_fee"), err)
		}
	}

	for i, s := range raw.PrizeStrategyAddresses {
		addr, err := parseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field("prize_strategy_addresses"), i, err)
		}
		n.PrizeStrategies = append(n.PrizeStrategies, addr)
	}
	for i, s := range raw.RemoveRequesters {
		addr, err := parseAddress(s)
		if err != nil {
			return nil, fmt.Errorf("%s[%d]: %w", field("remove_requesters"), i, err)
		}
		n.RemoveRequesters = append(n.RemoveRequesters, addr)
	}

	n.Witnessing = raw.Witnessing.Params()
	if err := n.Witnessing.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", field("witnessing"), err)
	}

	return n, nil
}

// RequireAwardSettings checks the fields only the award cycle needs.
func (n *Network) RequireAwardSettings() error {
	if len(n.PrizeStrategies) == 0 {
		return fmt.Errorf("networks.%s.prize_strategy_addresses: at least one prize strategy address is required", n.Name)
	}
	if n.MaxGasPrice == nil {
		return fmt.Errorf("networks.%s.max_gas_price is required", n.Name)
	}
	return nil
}

func parseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return common.Address{}, fmt.Errorf("address is required")
	}
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return common.HexToAddress(s), nil
}
