package commands

import (
	"errors"

	"github.com/ligun0805/multisend/internal/disperse"
)

// describe renders err according to its taxonomy kind.
func describe(err error) string {
	switch disperse.Kind(err) {
	case disperse.KindUserRejected:
		return "Cancelled: the transaction was not signed."
	case disperse.KindUnconfirmed:
		var ue *disperse.UnconfirmedError
		if errors.As(err, &ue) {
			return "Not confirmed yet; check the explorer: " + explorerLink(ue.Hash.Hex())
		}
		return "Not confirmed yet; check the explorer."
	case disperse.KindInvalidAmount:
		return "Invalid amount: " + err.Error()
	case disperse.KindInvalidRecipient:
		return "Invalid recipient: " + err.Error()
	case disperse.KindNoValidEntries:
		return "No valid entries."
	case disperse.KindInsufficientBalance:
		return "Insufficient balance: " + err.Error()
	case disperse.KindApprovalFailed:
		return "Approval failed: " + err.Error()
	case disperse.KindSubmitFailed:
		return "Transaction rejected by node: " + err.Error()
	case disperse.KindContractRevert:
		var re *disperse.RevertError
		if errors.As(err, &re) && re.Reason != "" {
			return "Reverted: " + re.Reason
		}
		return "Reverted by contract."
	}
	return "Error: " + err.Error()
}

// ExitCode maps err to the process exit status. Unconfirmed is not a failure.
func ExitCode(err error) int {
	switch disperse.Kind(err) {
	case disperse.KindNone, disperse.KindUnconfirmed:
		return 0
	case disperse.KindInvalidAmount, disperse.KindInvalidRecipient, disperse.KindNoValidEntries, disperse.KindInsufficientBalance:
		return 2
	case disperse.KindUserRejected:
		return 3
	}
	return 1
}

func explorerLink(hash string) string {
	return settings.ExplorerURL + hash
}
