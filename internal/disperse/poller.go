package disperse

import (
	"context"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// Policy bounds receipt polling.
type Policy struct {
	Interval    time.Duration
	MaxAttempts int
}

var DefaultPolicy = Policy{Interval: 2 * time.Second, MaxAttempts: 15}

type receiptReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Poller waits for receipts. After is the clock; nil means time.After.
type Poller struct {
	Reader receiptReader
	Policy Policy
	After  func(time.Duration) <-chan time.Time
	Log    *logrus.Entry
}

func (p *Poller) after(d time.Duration) <-chan time.Time {
	if p.After != nil {
		return p.After(d)
	}
	return time.After(d)
}

// Await polls for hash's receipt. Running out of attempts yields an
// *UnconfirmedError; it says nothing about whether the transaction failed.
// RPC errors other than "not found" count as a pending observation.
func (p *Poller) Await(ctx context.Context, hash common.Hash, kind AttemptKind) (*types.Receipt, error) {
	pol := p.Policy
	if pol.MaxAttempts <= 0 {
		pol.MaxAttempts = DefaultPolicy.MaxAttempts
	}
	if pol.Interval <= 0 {
		pol.Interval = DefaultPolicy.Interval
	}
	log := p.Log
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	log = log.WithFields(logrus.Fields{"hash": hash.Hex(), "kind": kind})

	for attempt := 1; attempt <= pol.MaxAttempts; attempt++ {
		rcpt, err := p.Reader.TransactionReceipt(ctx, hash)
		if err == nil && rcpt != nil {
			log.WithField("block", rcpt.BlockNumber).Debug("receipt observed")
			return rcpt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.WithError(err).Debug("receipt lookup failed")
		}
		if attempt == pol.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.after(pol.Interval):
		}
	}
	log.WithField("attempts", pol.MaxAttempts).Warn("giving up on receipt")
	return nil, &UnconfirmedError{Hash: hash, Kind: kind}
}
