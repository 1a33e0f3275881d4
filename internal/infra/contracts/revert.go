package contracts

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// Custom errors of the oracle and of the Witnet request it posts.
var customErrorsABIs = sync.OnceValues(func() ([]abi.ABI, error) {
	var out []abi.ABI
	for _, j := range []string{rngWitnetABIJSON, witnetRequestABIJSON} {
		a, err := abi.JSON(strings.NewReader(j))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
})

// DecodeRevert renders revert data as Error(string) or one of the known custom errors.
func DecodeRevert(data []byte) (string, bool) {
	if reason, err := abi.UnpackRevert(data); err == nil {
		return reason, true
	}
	if len(data) < 4 {
		return "", false
	}

	abis, err := customErrorsABIs()
	if err != nil {
		return "", false
	}
	var id [4]byte
	copy(id[:], data[:4])
	for _, a := range abis {
		e, err := a.ErrorByID(id)
		if err != nil {
			continue
		}
		values, err := e.Inputs.Unpack(data[4:])
		if err != nil {
			return "", false
		}
		args := make([]string, len(values))
		for i, v := range values {
			args[i] = fmt.Sprint(v)
		}
		return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", ")), true
	}
	return "", false
}
