package disperse

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildPlanSumsExactly(t *testing.T) {
	dir := &fakeDirectory{handles: map[string]common.Address{"alice": alice}}
	p := &Planner{Resolver: &RecipientResolver{Directory: dir}, Log: quietLog(t)}

	plan, err := p.BuildPlan(context.Background(), []Entry{
		{Line: 1, Recipient: bob.Hex(), Amount: "0.1"},
		{Line: 2, Recipient: "alice", Amount: "0.2"},
		{Line: 3, Recipient: "  ", Amount: "5"},
		{Line: 4, Recipient: carol.Hex(), Amount: ""},
		{Line: 5, Recipient: "0x000000000000000000000000000000000000CA01", Amount: "0.000000000000000001"},
	}, native, nil)
	require.NoError(t, err)

	require.Len(t, plan.Entries, 3)
	assert.Equal(t, []common.Address{bob, alice, carol}, plan.Recipients())
	sum := new(big.Int)
	for _, a := range plan.Amounts() {
		sum.Add(sum, a)
	}
	assert.Equal(t, 0, sum.Cmp(plan.Total))
	assert.Equal(t, "300000000000000001", plan.Total.String())
	assert.Equal(t, []string{"alice"}, dir.called())
}

func TestBuildPlanNoValidEntries(t *testing.T) {
	p := &Planner{Tip: &Tip{Recipient: carol.Hex(), Amount: "1"}, Log: quietLog(t)}
	for _, entries := range [][]Entry{nil, {{Recipient: " ", Amount: ""}, {Recipient: "alice"}}} {
		_, err := p.BuildPlan(context.Background(), entries, native, nil)
		assert.ErrorIs(t, err, ErrNoValidEntries)
	}
}

func TestBuildPlanInvalidRecipientStopsEarly(t *testing.T) {
	dir := &fakeDirectory{handles: map[string]common.Address{"alice": alice, "bob": bob}}
	p := &Planner{Resolver: &RecipientResolver{Directory: dir}, Log: quietLog(t)}

	_, err := p.BuildPlan(context.Background(), []Entry{
		{Line: 1, Recipient: "alice", Amount: "1"},
		{Line: 2, Recipient: "ghost", Amount: "1"},
		{Line: 3, Recipient: "bob", Amount: "1"},
	}, native, nil)

	require.ErrorIs(t, err, ErrInvalidRecipient)
	var ee *EntryError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, 2, ee.Line)
	assert.Equal(t, "ghost", ee.Token)
	assert.Equal(t, []string{"alice", "ghost"}, dir.called())
}

func TestBuildPlanInvalidAmount(t *testing.T) {
	p := &Planner{Log: quietLog(t)}
	_, err := p.BuildPlan(context.Background(), []Entry{
		{Line: 7, Recipient: alice.Hex(), Amount: "1.0000001"},
	}, token, nil)
	require.ErrorIs(t, err, ErrInvalidAmount)
	assert.Equal(t, KindInvalidAmount, Kind(err))
}

func TestBuildPlanWithoutDirectoryRejectsHandles(t *testing.T) {
	p := &Planner{Log: quietLog(t)}
	_, err := p.BuildPlan(context.Background(), []Entry{{Line: 1, Recipient: "alice", Amount: "1"}}, native, nil)
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestBuildPlanTipJoinsTotalAndBalanceCheck(t *testing.T) {
	p := &Planner{Tip: &Tip{Recipient: carol.Hex(), Amount: "0.5"}, Log: quietLog(t)}
	entries := []Entry{{Line: 1, Recipient: alice.Hex(), Amount: "1"}}

	plan, err := p.BuildPlan(context.Background(), entries, token, units("2", 6))
	require.NoError(t, err)
	require.Len(t, plan.Entries, 2)
	last := plan.Entries[1]
	assert.Equal(t, carol, last.Address)
	assert.Equal(t, 0, last.Line)
	assert.Equal(t, "1500000", plan.Total.String())

	_, err = p.BuildPlan(context.Background(), entries, token, big.NewInt(1_200_000))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
	assert.Contains(t, err.Error(), "need 1.5 TKN, have 1.2")
}

func TestBuildPlanBalanceBoundary(t *testing.T) {
	p := &Planner{Log: quietLog(t)}
	entries := []Entry{{Line: 1, Recipient: alice.Hex(), Amount: "3"}}

	_, err := p.BuildPlan(context.Background(), entries, native, units("3", 18))
	require.NoError(t, err)
	_, err = p.BuildPlan(context.Background(), entries, native, new(big.Int).Sub(units("3", 18), big.NewInt(1)))
	assert.ErrorIs(t, err, ErrInsufficientBalance)
}

func TestBuildPlanConcurrentKeepsOrderAndAttribution(t *testing.T) {
	dir := &fakeDirectory{
		handles: map[string]common.Address{"alice": alice, "bob": bob, "carol": carol},
		delay:   map[string]time.Duration{"alice": 20 * time.Millisecond, "bad1": 10 * time.Millisecond},
	}
	p := &Planner{Resolver: &RecipientResolver{Directory: dir}, Concurrency: 4, Log: quietLog(t)}

	plan, err := p.BuildPlan(context.Background(), []Entry{
		{Line: 1, Recipient: "alice", Amount: "1"},
		{Line: 2, Recipient: "bob", Amount: "2"},
		{Line: 3, Recipient: "carol", Amount: "3"},
	}, native, nil)
	require.NoError(t, err)
	assert.Equal(t, []common.Address{alice, bob, carol}, plan.Recipients())

	_, err = p.BuildPlan(context.Background(), []Entry{
		{Line: 1, Recipient: "alice", Amount: "1"},
		{Line: 2, Recipient: "bad1", Amount: "1"},
		{Line: 3, Recipient: "bad2", Amount: "1"},
	}, native, nil)
	var ee *EntryError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "bad1", ee.Token)
}
