package disperse

import (
	"context"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/ligun0805/multisend/internal/assets"
	"github.com/ligun0805/multisend/internal/devchain"
	"github.com/ligun0805/multisend/internal/directory"
	"github.com/ligun0805/multisend/internal/multisender"
)

var (
	owner    = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	contract = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	tokenA   = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
	bob      = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol    = common.HexToAddress("0x000000000000000000000000000000000000ca01")
)

var (
	native = assets.Asset{Symbol: "GHO", Decimals: 18}
	token  = assets.Asset{Symbol: "TKN", Contract: &tokenA, Decimals: 6}
)

func units(s string, decimals uint8) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic(s)
	}
	return v.Mul(v, new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
}

type fakeDirectory struct {
	mu      sync.Mutex
	handles map[string]common.Address
	calls   []string
	delay   map[string]time.Duration
}

func (f *fakeDirectory) ResolveHandle(ctx context.Context, _ common.Address, name string) (common.Address, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	d := f.delay[name]
	addr, ok := f.handles[name]
	f.mu.Unlock()
	if d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return common.Address{}, ctx.Err()
		}
	}
	if !ok {
		return common.Address{}, directory.ErrNotFound
	}
	return addr, nil
}

func (f *fakeDirectory) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// instant is a clock whose every wait has already elapsed; waits counts them.
type instant struct {
	mu    sync.Mutex
	waits int
}

func (c *instant) After(time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.waits++
	c.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

type memRecorder struct {
	mu       sync.Mutex
	attempts []Attempt
	events   []multisender.Event
}

func (r *memRecorder) RecordAttempt(_ context.Context, a Attempt) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return nil
}

func (r *memRecorder) RecordEvent(_ context.Context, ev multisender.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *memRecorder) statuses(hash common.Hash) []AttemptStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []AttemptStatus
	for _, a := range r.attempts {
		if a.Hash == hash {
			out = append(out, a.Status)
		}
	}
	return out
}

func quietLog(t *testing.T) *logrus.Entry {
	t.Helper()
	l, _ := test.NewNullLogger()
	return logrus.NewEntry(l)
}

func newChain() *devchain.Chain {
	return devchain.New(owner, contract)
}

func newDisperser(t *testing.T, c *devchain.Chain, dir *fakeDirectory) (*Disperser, *memRecorder, *instant) {
	t.Helper()
	rec := &memRecorder{}
	clk := &instant{}
	log := quietLog(t)
	var resolver directory.Resolver
	if dir != nil {
		resolver = dir
	}
	return &Disperser{
		Reader:   c,
		Wallet:   c,
		Contract: contract,
		Planner: &Planner{
			Resolver: &RecipientResolver{Directory: resolver, Namespace: directory.DefaultNamespace},
			Log:      log,
		},
		Policy:   DefaultPolicy,
		After:    clk.After,
		Recorder: rec,
		Log:      log,
	}, rec, clk
}
