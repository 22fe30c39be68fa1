package multisender

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Revert reasons, verbatim as the deployed contract reports them.
const (
	ReasonLengthMismatch     = "length mismatch"
	ReasonValueMismatch      = "value mismatch"
	ReasonTransferFromFailed = "transferFrom failed"
	ReasonTransferFailed     = "transfer failed"
	ReasonOverflow           = "arithmetic overflow"
	ReasonNotPayable         = "non-payable function"
)

// RevertError mirrors a JSON-RPC execution-reverted error, including the
// ABI-encoded Error(string) payload as error data.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return "execution reverted"
	}
	return "execution reverted: " + e.Reason
}

// ErrorCode is the JSON-RPC code nodes use for reverts.
func (e *RevertError) ErrorCode() int { return 3 }

func (e *RevertError) ErrorData() interface{} {
	return hexutil.Encode(EncodeRevert(e.Reason))
}

var (
	revertSelector = crypto.Keccak256([]byte("Error(string)"))[:4]
	revertArgs     abi.Arguments
)

func init() {
	str, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	revertArgs = abi.Arguments{{Type: str}}
}

// EncodeRevert builds Error(string) revert data; abi.UnpackRevert is its inverse.
func EncodeRevert(reason string) []byte {
	packed, _ := revertArgs.Pack(reason)
	return append(append([]byte{}, revertSelector...), packed...)
}

func revert(reason string) error { return &RevertError{Reason: reason} }

var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Contract executes multisender calls against a World. Every call is atomic:
// on any failure the world is left exactly as it was.
type Contract struct {
	Address common.Address
}

// Execute decodes calldata and dispatches it as a transaction from sender carrying value.
func (c *Contract) Execute(w *World, sender common.Address, value *big.Int, data []byte) ([]*types.Log, error) {
	call, err := UnpackCall(data)
	if err != nil {
		return nil, revert("")
	}
	var l *types.Log
	switch call.Method {
	case MethodDisperseEther:
		l, err = c.DisperseEther(w, sender, value, call.Recipients, call.Amounts)
	case MethodDisperseToken:
		if value != nil && value.Sign() != 0 {
			return nil, revert(ReasonNotPayable)
		}
		l, err = c.DisperseToken(w, sender, call.Token, call.Recipients, call.Amounts)
	default:
		return nil, revert("")
	}
	if err != nil {
		return nil, err
	}
	return []*types.Log{l}, nil
}

// DisperseEther requires value == Σ amounts and pays each recipient from it.
func (c *Contract) DisperseEther(w *World, sender common.Address, value *big.Int, recipients []common.Address, amounts []*big.Int) (*types.Log, error) {
	if value == nil {
		value = new(big.Int)
	}
	var l *types.Log
	err := w.apply(func(next *World) error {
		if err := next.transferNative(sender, c.Address, value); err != nil {
			return err
		}
		if len(recipients) != len(amounts) {
			return revert(ReasonLengthMismatch)
		}
		total, err := sum(amounts)
		if err != nil {
			return err
		}
		if total.Cmp(value) != 0 {
			return revert(ReasonValueMismatch)
		}
		for i, r := range recipients {
			if err := next.transferNative(c.Address, r, amounts[i]); err != nil {
				return revert(ReasonTransferFailed)
			}
		}
		l = etherDispersedLog(c.Address, sender, total, len(recipients))
		return nil
	})
	return l, err
}

// DisperseToken pulls Σ amounts from sender via transferFrom, then pays each recipient.
func (c *Contract) DisperseToken(w *World, sender, token common.Address, recipients []common.Address, amounts []*big.Int) (*types.Log, error) {
	var l *types.Log
	err := w.apply(func(next *World) error {
		if len(recipients) != len(amounts) {
			return revert(ReasonLengthMismatch)
		}
		total, err := sum(amounts)
		if err != nil {
			return err
		}
		t, ok := next.Token(token)
		if !ok || !t.TransferFrom(c.Address, sender, c.Address, total) {
			return revert(ReasonTransferFromFailed)
		}
		for i, r := range recipients {
			if !t.Transfer(c.Address, r, amounts[i]) {
				return revert(ReasonTransferFailed)
			}
		}
		l = tokenDispersedLog(c.Address, token, sender, total, len(recipients))
		return nil
	})
	return l, err
}

func sum(amounts []*big.Int) (*big.Int, error) {
	total := new(big.Int)
	for _, a := range amounts {
		if a == nil || a.Sign() < 0 {
			return nil, revert("")
		}
		total.Add(total, a)
		if total.Cmp(maxUint256) > 0 {
			return nil, revert(ReasonOverflow)
		}
	}
	return total, nil
}
