// Package disperse turns "recipient, amount" entries into one confirmed
// multisender transaction: plan, approve if needed, submit, and wait.
package disperse

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/multisend/internal/assets"
	"github.com/ligun0805/multisend/internal/multisender"
)

// Disperser runs the whole workflow against one wallet and one contract.
type Disperser struct {
	Reader   Reader
	Wallet   Wallet
	Contract common.Address
	Planner  *Planner
	Policy   Policy
	After    func(time.Duration) <-chan time.Time
	Recorder Recorder
	Log      *logrus.Entry
	Now      func() time.Time
}

// Preview is a plan plus the on-chain state it was checked against.
// Allowance is nil for the native asset.
type Preview struct {
	Plan          *Plan
	Balance       *big.Int
	Allowance     *big.Int
	NeedsApproval bool
}

// Result collects what happened during Execute; fields are filled as far as the workflow got.
type Result struct {
	Plan      *Plan
	Approval  *Attempt
	Dispersal *Attempt
	Receipt   *types.Receipt
	Event     *multisender.Event
}

// Preview reads the wallet's balance, builds the plan and reads the current allowance.
func (d *Disperser) Preview(ctx context.Context, entries []Entry, asset assets.Asset) (*Preview, error) {
	owner := d.Wallet.Address()
	bal, err := Balance(ctx, d.Reader, owner, asset)
	if err != nil {
		return nil, fmt.Errorf("read balance: %w", err)
	}
	plan, err := d.planner().BuildPlan(ctx, entries, asset, bal)
	if err != nil {
		return nil, err
	}
	pv := &Preview{Plan: plan, Balance: bal}
	if !asset.Native() {
		pv.Allowance, err = Allowance(ctx, d.Reader, *asset.Contract, owner, d.Contract)
		if err != nil {
			return nil, err
		}
		pv.NeedsApproval = pv.Allowance.Cmp(plan.Total) < 0
	}
	return pv, nil
}

// Run is Preview followed by Execute.
func (d *Disperser) Run(ctx context.Context, entries []Entry, asset assets.Asset) (*Result, error) {
	pv, err := d.Preview(ctx, entries, asset)
	if err != nil {
		return nil, err
	}
	return d.Execute(ctx, pv.Plan)
}

// Execute approves (token assets only), submits and confirms plan. The
// dispersal is never sent before a required approval has confirmed.
func (d *Disperser) Execute(ctx context.Context, plan *Plan) (*Result, error) {
	res := &Result{Plan: plan}
	log := logOrStd(d.Log).WithField("asset", plan.Asset.Symbol)
	poller := &Poller{Reader: d.Reader, Policy: d.Policy, After: d.After, Log: log}

	if !plan.Asset.Native() {
		auth := &Authorizer{
			Reader:   d.Reader,
			Wallet:   d.Wallet,
			Poller:   poller,
			Recorder: d.Recorder,
			Log:      log,
			Now:      d.Now,
		}
		att, err := auth.EnsureAllowance(ctx, plan.Asset, d.Contract, plan.Total)
		res.Approval = att
		if err != nil {
			return res, err
		}
	}

	sub := &Submitter{Reader: d.Reader, Wallet: d.Wallet, Contract: d.Contract, Log: log, Now: d.Now}
	att, err := sub.SubmitDispersal(ctx, plan)
	if err != nil {
		return res, err
	}
	res.Dispersal = att
	record(ctx, d.Recorder, log, att)

	rcpt, err := poller.Await(ctx, att.Hash, AttemptDispersal)
	if err != nil {
		if Kind(err) == KindUnconfirmed {
			att.Status = StatusUnconfirmed
			record(ctx, d.Recorder, log, att)
		}
		return res, err
	}
	res.Receipt = rcpt

	if rcpt.Status != types.ReceiptStatusSuccessful {
		reason := d.replayRevert(ctx, plan, rcpt)
		att.Status, att.Detail = StatusFailed, reason
		record(ctx, d.Recorder, log, att)
		return res, &RevertError{Reason: reason}
	}

	events := multisender.DecodeLogs(rcpt.Logs, d.Contract)
	if len(events) > 0 {
		ev := events[0]
		if ev.TxHash == (common.Hash{}) {
			ev.TxHash = rcpt.TxHash
		}
		if ev.BlockNumber == 0 && rcpt.BlockNumber != nil {
			ev.BlockNumber = rcpt.BlockNumber.Uint64()
		}
		res.Event = &ev
		if err := recorderOrNop(d.Recorder).RecordEvent(ctx, ev); err != nil {
			log.WithError(err).Warn("journal event write failed")
		}
	} else {
		log.WithField("hash", att.Hash.Hex()).Warn("confirmed dispersal emitted no event")
	}
	att.Status = StatusConfirmed
	record(ctx, d.Recorder, log, att)
	log.WithFields(logrus.Fields{"hash": att.Hash.Hex(), "block": rcpt.BlockNumber}).Info("dispersal confirmed")
	return res, nil
}

// replayRevert re-simulates a reverted dispersal at its block to recover the reason.
func (d *Disperser) replayRevert(ctx context.Context, plan *Plan, rcpt *types.Receipt) string {
	data, value, err := Encode(plan)
	if err != nil {
		return ""
	}
	msg := ethereum.CallMsg{From: d.Wallet.Address(), To: &d.Contract, Value: value, Data: data}
	_, err = d.Reader.CallContract(ctx, msg, rcpt.BlockNumber)
	reason, _ := revertReason(err)
	return reason
}

func (d *Disperser) planner() *Planner {
	if d.Planner != nil {
		return d.Planner
	}
	return &Planner{Log: d.Log}
}

func logOrStd(l *logrus.Entry) *logrus.Entry {
	if l != nil {
		return l
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func now(fn func() time.Time) time.Time {
	if fn != nil {
		return fn()
	}
	return time.Now()
}

func recorderOrNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}

// record writes a snapshot of att. Journal failures never abort the workflow.
func record(ctx context.Context, r Recorder, log *logrus.Entry, att *Attempt) {
	if err := recorderOrNop(r).RecordAttempt(ctx, *att); err != nil {
		log.WithError(err).WithField("hash", att.Hash.Hex()).Warn("journal write failed")
	}
}

// userRejectedCode is the EIP-1193 code wallets return for a declined request.
const userRejectedCode = 4001

func isUserRejected(err error) bool {
	if errors.Is(err, ErrUserRejected) {
		return true
	}
	var re rpc.Error
	return errors.As(err, &re) && re.ErrorCode() == userRejectedCode
}

func rejected(step string, err error) error {
	if errors.Is(err, ErrUserRejected) {
		return fmt.Errorf("%s: %w", step, err)
	}
	return fmt.Errorf("%s: %w: %w", step, ErrUserRejected, err)
}
