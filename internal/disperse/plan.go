package disperse

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ligun0805/multisend/internal/amount"
	"github.com/ligun0805/multisend/internal/assets"
)

// ResolvedEntry is an entry after amount parsing and recipient resolution.
type ResolvedEntry struct {
	Line    int
	Token   string
	Address common.Address
	Amount  *big.Int
}

// Plan is everything a dispersal needs. Total always equals the sum of the entry amounts.
type Plan struct {
	Asset   assets.Asset
	Entries []ResolvedEntry
	Total   *big.Int
}

func (p *Plan) Recipients() []common.Address {
	out := make([]common.Address, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.Address
	}
	return out
}

func (p *Plan) Amounts() []*big.Int {
	out := make([]*big.Int, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = new(big.Int).Set(e.Amount)
	}
	return out
}

// Tip is an extra entry appended to every non-empty plan.
type Tip struct {
	Recipient string
	Amount    string
}

// Planner validates entries and aggregates them into a Plan.
type Planner struct {
	Resolver *RecipientResolver
	Tip      *Tip
	// Concurrency bounds parallel recipient resolution; <= 1 is sequential.
	Concurrency int
	Log         *logrus.Entry
}

func (p *Planner) log() *logrus.Entry {
	if p.Log != nil {
		return p.Log
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

// BuildPlan filters blank entries, resolves the rest and checks the total against
// balance (nil skips the check). The first failing entry aborts the build.
func (p *Planner) BuildPlan(ctx context.Context, entries []Entry, asset assets.Asset, balance *big.Int) (*Plan, error) {
	var work []Entry
	for _, e := range entries {
		if e.blank() {
			continue
		}
		work = append(work, e)
	}
	if len(work) == 0 {
		return nil, ErrNoValidEntries
	}
	if p.Tip != nil && !(Entry{Recipient: p.Tip.Recipient, Amount: p.Tip.Amount}).blank() {
		work = append(work, Entry{Recipient: p.Tip.Recipient, Amount: p.Tip.Amount})
	}

	var (
		resolved []ResolvedEntry
		err      error
	)
	if p.Concurrency > 1 && len(work) > 1 {
		resolved, err = p.resolveConcurrent(ctx, work, asset)
	} else {
		resolved, err = p.resolveSequential(ctx, work, asset)
	}
	if err != nil {
		return nil, err
	}

	total := new(big.Int)
	for _, r := range resolved {
		total.Add(total, r.Amount)
	}
	if balance != nil && total.Cmp(balance) > 0 {
		return nil, fmt.Errorf("%w: need %s %s, have %s",
			ErrInsufficientBalance, amount.Format(total, asset.Decimals), asset.Symbol, amount.Format(balance, asset.Decimals))
	}
	p.log().WithFields(logrus.Fields{
		"asset":      asset.Symbol,
		"recipients": len(resolved),
		"total":      amount.Format(total, asset.Decimals),
	}).Debug("plan built")
	return &Plan{Asset: asset, Entries: resolved, Total: total}, nil
}

func (p *Planner) resolveOne(ctx context.Context, e Entry, asset assets.Asset) (ResolvedEntry, error) {
	token := strings.TrimSpace(e.Recipient)
	amt, err := amount.Parse(e.Amount, asset.Decimals)
	if err != nil {
		return ResolvedEntry{}, &EntryError{Line: e.Line, Token: strings.TrimSpace(e.Amount), Err: err}
	}
	addr, err := p.Resolver.Resolve(ctx, token)
	if err != nil {
		return ResolvedEntry{}, &EntryError{Line: e.Line, Token: token, Err: err}
	}
	if !addressPattern.MatchString(token) {
		p.log().WithFields(logrus.Fields{"line": e.Line, "handle": token, "address": addr.Hex()}).Debug("resolved handle")
	}
	return ResolvedEntry{Line: e.Line, Token: token, Address: addr, Amount: amt}, nil
}

func (p *Planner) resolveSequential(ctx context.Context, work []Entry, asset assets.Asset) ([]ResolvedEntry, error) {
	out := make([]ResolvedEntry, 0, len(work))
	for _, e := range work {
		r, err := p.resolveOne(ctx, e, asset)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// resolveConcurrent reports the lowest-index failure, exactly as the sequential
// path would. Entries after a known failure are skipped.
func (p *Planner) resolveConcurrent(ctx context.Context, work []Entry, asset assets.Asset) ([]ResolvedEntry, error) {
	out := make([]ResolvedEntry, len(work))
	errs := make([]error, len(work))

	var mu sync.Mutex
	failedAt := len(work)

	var g errgroup.Group
	g.SetLimit(p.Concurrency)
	for i := range work {
		i := i
		g.Go(func() error {
			mu.Lock()
			skip := i > failedAt
			mu.Unlock()
			if skip {
				return nil
			}
			r, err := p.resolveOne(ctx, work[i], asset)
			if err != nil {
				errs[i] = err
				mu.Lock()
				if i < failedAt {
					failedAt = i
				}
				mu.Unlock()
				return nil
			}
			out[i] = r
			return nil
		})
	}
	_ = g.Wait()
	if failedAt < len(work) {
		return nil, errs[failedAt]
	}
	return out, nil
}
