package disperse

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/multisend/internal/multisender"
)

// Submitter encodes a plan into a single multisender call and broadcasts it.
type Submitter struct {
	Reader   Reader
	Wallet   Wallet
	Contract common.Address
	Log      *logrus.Entry
	Now      func() time.Time
}

// Encode returns the calldata and the exact value to attach for plan.
func Encode(plan *Plan) (data []byte, value *big.Int, err error) {
	if plan.Asset.Native() {
		data, err = multisender.PackDisperseEther(plan.Recipients(), plan.Amounts())
		return data, new(big.Int).Set(plan.Total), err
	}
	data, err = multisender.PackDisperseToken(*plan.Asset.Contract, plan.Recipients(), plan.Amounts())
	return data, new(big.Int), err
}

// SubmitDispersal simulates the call first; a simulated revert is returned as a
// *RevertError and nothing is broadcast.
func (s *Submitter) SubmitDispersal(ctx context.Context, plan *Plan) (*Attempt, error) {
	data, value, err := Encode(plan)
	if err != nil {
		return nil, fmt.Errorf("%w: encode: %w", ErrSubmitFailed, err)
	}
	from := s.Wallet.Address()
	log := logOrStd(s.Log).WithFields(logrus.Fields{"asset": plan.Asset.Symbol, "recipients": len(plan.Entries)})

	msg := ethereum.CallMsg{From: from, To: &s.Contract, Value: value, Data: data}
	if _, err := s.Reader.CallContract(ctx, msg, nil); err != nil {
		if reason, ok := revertReason(err); ok {
			log.WithField("reason", reason).Warn("dispersal would revert")
			return nil, &RevertError{Reason: reason}
		}
		return nil, fmt.Errorf("%w: simulate: %w", ErrSubmitFailed, err)
	}

	hash, err := s.Wallet.SendTransaction(ctx, s.Contract, data, value)
	if err != nil {
		if isUserRejected(err) {
			return nil, rejected("dispersal", err)
		}
		if reason, ok := revertReason(err); ok {
			return nil, &RevertError{Reason: reason}
		}
		return nil, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}
	log.WithField("hash", hash.Hex()).Info("dispersal submitted")
	return &Attempt{
		Hash:        hash,
		Kind:        AttemptDispersal,
		Asset:       plan.Asset.Symbol,
		Total:       new(big.Int).Set(plan.Total),
		Recipients:  len(plan.Entries),
		SubmittedAt: now(s.Now),
		Status:      StatusPending,
	}, nil
}
