package disperse

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/multisend/internal/multisender"
)

type AttemptKind string

const (
	AttemptApproval  AttemptKind = "approval"
	AttemptDispersal AttemptKind = "dispersal"
)

type AttemptStatus string

const (
	StatusPending     AttemptStatus = "pending"
	StatusConfirmed   AttemptStatus = "confirmed"
	StatusUnconfirmed AttemptStatus = "unconfirmed"
	StatusFailed      AttemptStatus = "failed"
)

// Attempt tracks one submitted transaction from broadcast to a terminal status.
type Attempt struct {
	Hash        common.Hash
	Kind        AttemptKind
	Asset       string
	Total       *big.Int
	Recipients  int
	SubmittedAt time.Time
	Status      AttemptStatus
	Detail      string
}

// Recorder persists attempts and the dispersal events they produced.
// RecordAttempt is called again on every status change with the same hash.
type Recorder interface {
	RecordAttempt(ctx context.Context, a Attempt) error
	RecordEvent(ctx context.Context, ev multisender.Event) error
}

type nopRecorder struct{}

func (nopRecorder) RecordAttempt(context.Context, Attempt) error         { return nil }
func (nopRecorder) RecordEvent(context.Context, multisender.Event) error { return nil }
