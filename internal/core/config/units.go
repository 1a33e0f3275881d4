package config

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

var units = map[string]*big.Int{
	"wei":   big.NewInt(params.Wei),
	"gwei":  big.NewInt(params.GWei),
	"ether": big.NewInt(params.Ether),
}

// ParseWei parses amounts like "50 gwei", "0.01 ether" or "1000" (wei).
func ParseWei(s string) (*big.Int, error) {
	fields := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(fields) == 0 || len(fields) > 2 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}

	unit := units["wei"]
	if len(fields) == 2 {
		u, ok := units[fields[1]]
		if !ok {
			return nil, fmt.Errorf("unknown unit %q in %q", fields[1], s)
		}
		unit = u
	}

	amount, ok := new(big.Rat).SetString(fields[0])
	if !ok || amount.Sign() < 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	amount.Mul(amount, new(big.Rat).SetInt(unit))
	if !amount.IsInt() {
		return nil, fmt.Errorf("amount %q is not a whole number of wei", s)
	}
	return new(big.Int).Set(amount.Num()), nil
}

// FormatGwei renders wei as gwei with three decimals.
func FormatGwei(wei *big.Int) string {
	if wei == nil {
		return "0.000"
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(params.GWei))
	return f.Text('f', 3)
}
