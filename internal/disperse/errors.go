package disperse

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/ligun0805/multisend/internal/amount"
)

var (
	ErrInvalidAmount       = amount.ErrInvalidAmount
	ErrInvalidRecipient    = errors.New("invalid recipient")
	ErrNoValidEntries      = errors.New("no valid entries")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrApprovalFailed      = errors.New("approval failed")
	ErrUserRejected        = errors.New("rejected by user")
	ErrSubmitFailed        = errors.New("submit failed")
	ErrUnconfirmed         = errors.New("transaction not confirmed")
	ErrContractRevert      = errors.New("contract reverted")
)

// EntryError attributes a build failure to one input entry.
type EntryError struct {
	Line  int
	Token string
	Err   error
}

func (e *EntryError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d (%q): %v", e.Line, e.Token, e.Err)
	}
	return fmt.Sprintf("%q: %v", e.Token, e.Err)
}

func (e *EntryError) Unwrap() error { return e.Err }

// RevertError carries the reason string reported by the chain, verbatim.
type RevertError struct {
	Reason string
}

func (e *RevertError) Error() string {
	if e.Reason == "" {
		return ErrContractRevert.Error()
	}
	return ErrContractRevert.Error() + ": " + e.Reason
}

func (e *RevertError) Unwrap() error { return ErrContractRevert }

// UnconfirmedError reports that polling gave up. The transaction may still land.
type UnconfirmedError struct {
	Hash common.Hash
	Kind AttemptKind
}

func (e *UnconfirmedError) Error() string {
	return fmt.Sprintf("%s transaction %s not confirmed yet", e.Kind, e.Hash.Hex())
}

func (e *UnconfirmedError) Unwrap() error { return ErrUnconfirmed }

// ErrorKind names an entry of the user-facing error taxonomy.
type ErrorKind string

const (
	KindNone                ErrorKind = ""
	KindInvalidAmount       ErrorKind = "InvalidAmount"
	KindInvalidRecipient    ErrorKind = "InvalidRecipient"
	KindNoValidEntries      ErrorKind = "NoValidEntries"
	KindInsufficientBalance ErrorKind = "InsufficientBalance"
	KindApprovalFailed      ErrorKind = "ApprovalFailed"
	KindUserRejected        ErrorKind = "UserRejected"
	KindSubmitFailed        ErrorKind = "SubmitFailed"
	KindUnconfirmed         ErrorKind = "Unconfirmed"
	KindContractRevert      ErrorKind = "ContractRevert"
	KindOther               ErrorKind = "Other"
)

// Kind classifies err. A user rejection wins over whatever step it happened in.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrUserRejected):
		return KindUserRejected
	case errors.Is(err, ErrUnconfirmed):
		return KindUnconfirmed
	case errors.Is(err, ErrApprovalFailed):
		return KindApprovalFailed
	case errors.Is(err, ErrContractRevert):
		return KindContractRevert
	case errors.Is(err, ErrSubmitFailed):
		return KindSubmitFailed
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrNoValidEntries):
		return KindNoValidEntries
	case errors.Is(err, ErrInvalidRecipient):
		return KindInvalidRecipient
	case errors.Is(err, ErrInvalidAmount):
		return KindInvalidAmount
	}
	return KindOther
}

// revertReason extracts the revert reason from a node error: ABI-encoded
// Error(string) data when present, otherwise the "execution reverted" message.
func revertReason(err error) (string, bool) {
	if err == nil {
		return "", false
	}
	var de rpc.DataError
	if errors.As(err, &de) {
		if s, ok := de.ErrorData().(string); ok {
			if data, derr := hexutil.Decode(s); derr == nil {
				if reason, uerr := abi.UnpackRevert(data); uerr == nil {
					return reason, true
				}
			}
		}
	}
	msg := err.Error()
	i := strings.Index(msg, "execution reverted")
	if i < 0 {
		return "", false
	}
	reason := strings.TrimPrefix(msg[i:], "execution reverted")
	reason = strings.TrimSpace(strings.TrimPrefix(reason, ":"))
	return reason, true
}
