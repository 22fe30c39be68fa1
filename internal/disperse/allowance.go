package disperse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/multisend/internal/assets"
	"github.com/ligun0805/multisend/internal/erc20"
)

// Authorizer makes sure the dispersal contract may pull enough tokens.
type Authorizer struct {
	Reader   Reader
	Wallet   Wallet
	Poller   *Poller
	Recorder Recorder
	Log      *logrus.Entry
	Now      func() time.Time
}

// EnsureAllowance reads the current allowance and, only if it is below required,
// approves exactly required and waits for that approval to confirm. The returned
// attempt is nil when no transaction was needed, which is always the case for
// the native asset.
func (a *Authorizer) EnsureAllowance(ctx context.Context, asset assets.Asset, spender common.Address, required *big.Int) (*Attempt, error) {
	if asset.Native() {
		return nil, nil
	}
	token := *asset.Contract
	owner := a.Wallet.Address()
	log := logOrStd(a.Log).WithFields(logrus.Fields{"token": token.Hex(), "spender": spender.Hex()})

	current, err := Allowance(ctx, a.Reader, token, owner, spender)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrApprovalFailed, err)
	}
	if current.Cmp(required) >= 0 {
		log.WithField("allowance", current).Debug("allowance sufficient")
		return nil, nil
	}

	log.WithFields(logrus.Fields{"allowance": current, "required": required}).Info("approving spender")
	hash, err := a.Wallet.SendTransaction(ctx, token, erc20.PackApprove(spender, required), new(big.Int))
	if err != nil {
		if isUserRejected(err) {
			return nil, rejected("approval", err)
		}
		return nil, fmt.Errorf("%w: %w", ErrApprovalFailed, err)
	}
	att := &Attempt{
		Hash:        hash,
		Kind:        AttemptApproval,
		Asset:       asset.Symbol,
		Total:       new(big.Int).Set(required),
		SubmittedAt: now(a.Now),
		Status:      StatusPending,
	}
	record(ctx, a.Recorder, log, att)

	rcpt, err := a.Poller.Await(ctx, hash, AttemptApproval)
	if err != nil {
		if Kind(err) == KindUnconfirmed {
			att.Status = StatusUnconfirmed
			record(ctx, a.Recorder, log, att)
			return att, err
		}
		att.Status, att.Detail = StatusFailed, err.Error()
		record(ctx, a.Recorder, log, att)
		return att, fmt.Errorf("%w: %w", ErrApprovalFailed, err)
	}
	if rcpt.Status != types.ReceiptStatusSuccessful {
		att.Status, att.Detail = StatusFailed, "reverted"
		record(ctx, a.Recorder, log, att)
		return att, fmt.Errorf("%w: approval %s reverted", ErrApprovalFailed, hash.Hex())
	}
	att.Status = StatusConfirmed
	record(ctx, a.Recorder, log, att)
	return att, nil
}
