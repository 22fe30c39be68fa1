// Package erc20 encodes and decodes the subset of EIP-20 used for dispersal.
//
// Function selectors:
//
//	balanceOf(address)  0x70a08231
//	allowance(a,a)      0xdd62ed3e
//	approve(a,u256)     0x095ea7b3
//	transfer(a,u256)    0xa9059cbb
//	transferFrom(a,a,u) 0x23b872dd
//	decimals()          0x313ce567
//	symbol()            0x95d89b41
package erc20

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const abiJSON = `[
 {"type":"function","name":"balanceOf","stateMutability":"view",
  "inputs":[{"name":"account","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"allowance","stateMutability":"view",
  "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"outputs":[{"name":"","type":"uint256"}]},
 {"type":"function","name":"approve","stateMutability":"nonpayable",
  "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"transfer","stateMutability":"nonpayable",
  "inputs":[{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"transferFrom","stateMutability":"nonpayable",
  "inputs":[{"name":"sender","type":"address"},{"name":"recipient","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
 {"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
 {"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]}
]`

// ABI is the parsed token interface.
var ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic("erc20 abi: " + err.Error())
	}
	ABI = parsed
}

func PackBalanceOf(owner common.Address) []byte {
	return mustPack("balanceOf", owner)
}

func PackAllowance(owner, spender common.Address) []byte {
	return mustPack("allowance", owner, spender)
}

func PackApprove(spender common.Address, amount *big.Int) []byte {
	return mustPack("approve", spender, amount)
}

func PackTransfer(to common.Address, amount *big.Int) []byte {
	return mustPack("transfer", to, amount)
}

func PackDecimals() []byte { return mustPack("decimals") }

func PackSymbol() []byte { return mustPack("symbol") }

// UnpackDecimals decodes the uint8 returned by decimals().
func UnpackDecimals(out []byte) (uint8, error) {
	vals, err := ABI.Unpack("decimals", out)
	if err != nil {
		return 0, fmt.Errorf("decimals: %w", err)
	}
	d, ok := vals[0].(uint8)
	if !ok {
		return 0, errors.New("decimals: return is not uint8")
	}
	return d, nil
}

// UnpackSymbol decodes the string returned by symbol().
func UnpackSymbol(out []byte) (string, error) {
	vals, err := ABI.Unpack("symbol", out)
	if err != nil {
		return "", fmt.Errorf("symbol: %w", err)
	}
	s, ok := vals[0].(string)
	if !ok {
		return "", errors.New("symbol: return is not string")
	}
	return s, nil
}

// UnpackUint decodes a single uint256 return value of method.
func UnpackUint(method string, out []byte) (*big.Int, error) {
	if len(out) == 0 {
		return nil, fmt.Errorf("%s: empty return data", method)
	}
	vals, err := ABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	if len(vals) != 1 {
		return nil, fmt.Errorf("%s: unexpected return arity %d", method, len(vals))
	}
	v, ok := vals[0].(*big.Int)
	if !ok {
		return nil, errors.New(method + ": return is not uint256")
	}
	return v, nil
}

// Arguments are hard-coded and typed, so a pack failure is a programming error.
func mustPack(method string, args ...any) []byte {
	data, err := ABI.Pack(method, args...)
	if err != nil {
		panic("erc20 pack " + method + ": " + err.Error())
	}
	return data
}
