// Package multisender describes the dispersal contract: its ABI, its events,
// and a Go rendition of its state machine used to simulate calls.
package multisender

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

const abiJSON = `[
 {"type":"function","name":"disperseEther","stateMutability":"payable",
  "inputs":[{"name":"recipients","type":"address[]"},{"name":"amounts","type":"uint256[]"}],"outputs":[]},
 {"type":"function","name":"disperseToken","stateMutability":"nonpayable",
  "inputs":[{"name":"token","type":"address"},{"name":"recipients","type":"address[]"},{"name":"amounts","type":"uint256[]"}],"outputs":[]},
 {"type":"event","name":"EtherDispersed","anonymous":false,
  "inputs":[{"name":"from","type":"address","indexed":true},{"name":"totalAmount","type":"uint256","indexed":false},{"name":"numRecipients","type":"uint256","indexed":false}]},
 {"type":"event","name":"TokenDispersed","anonymous":false,
  "inputs":[{"name":"token","type":"address","indexed":true},{"name":"from","type":"address","indexed":true},{"name":"totalAmount","type":"uint256","indexed":false},{"name":"numRecipients","type":"uint256","indexed":false}]}
]`

const (
	MethodDisperseEther = "disperseEther"
	MethodDisperseToken = "disperseToken"
)

// ABI is the parsed multisender interface.
var ABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		panic("multisender abi: " + err.Error())
	}
	ABI = parsed
}

// PackDisperseEther encodes disperseEther(recipients, amounts).
func PackDisperseEther(recipients []common.Address, amounts []*big.Int) ([]byte, error) {
	return ABI.Pack(MethodDisperseEther, recipients, amounts)
}

// PackDisperseToken encodes disperseToken(token, recipients, amounts).
func PackDisperseToken(token common.Address, recipients []common.Address, amounts []*big.Int) ([]byte, error) {
	return ABI.Pack(MethodDisperseToken, token, recipients, amounts)
}

// Call is a decoded multisender invocation.
type Call struct {
	Method     string
	Token      common.Address
	Recipients []common.Address
	Amounts    []*big.Int
}

// UnpackCall decodes calldata produced by PackDisperseEther or PackDisperseToken.
func UnpackCall(data []byte) (*Call, error) {
	if len(data) < 4 {
		return nil, errors.New("calldata shorter than selector")
	}
	method, err := ABI.MethodById(data[:4])
	if err != nil {
		return nil, err
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method.Name, err)
	}
	c := &Call{Method: method.Name}
	switch method.Name {
	case MethodDisperseEther:
		c.Recipients, _ = args[0].([]common.Address)
		c.Amounts, _ = args[1].([]*big.Int)
	case MethodDisperseToken:
		c.Token, _ = args[0].(common.Address)
		c.Recipients, _ = args[1].([]common.Address)
		c.Amounts, _ = args[2].([]*big.Int)
	}
	return c, nil
}
