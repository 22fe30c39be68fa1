package multisender

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrUnknownEvent is returned by DecodeLog for logs that are not dispersal events.
var ErrUnknownEvent = errors.New("not a dispersal event")

type EventKind int

const (
	EventNative EventKind = iota + 1
	EventToken
)

func (k EventKind) String() string {
	switch k {
	case EventNative:
		return "native"
	case EventToken:
		return "token"
	}
	return "unknown"
}

// Event is the normalized form of EtherDispersed and TokenDispersed.
// Token is the zero address for native dispersals.
type Event struct {
	Kind        EventKind
	Token       common.Address
	From        common.Address
	Total       *big.Int
	Recipients  uint64
	TxHash      common.Hash
	BlockNumber uint64
}

// DecodeLog converts a raw log into an Event.
func DecodeLog(l types.Log) (Event, error) {
	if len(l.Topics) == 0 {
		return Event{}, ErrUnknownEvent
	}
	ev := Event{TxHash: l.TxHash, BlockNumber: l.BlockNumber}
	var name string
	switch l.Topics[0] {
	case ABI.Events["EtherDispersed"].ID:
		name = "EtherDispersed"
		if len(l.Topics) != 2 {
			return Event{}, fmt.Errorf("%s: want 2 topics, got %d", name, len(l.Topics))
		}
		ev.Kind = EventNative
		ev.From = common.BytesToAddress(l.Topics[1].Bytes())
	case ABI.Events["TokenDispersed"].ID:
		name = "TokenDispersed"
		if len(l.Topics) != 3 {
			return Event{}, fmt.Errorf("%s: want 3 topics, got %d", name, len(l.Topics))
		}
		ev.Kind = EventToken
		ev.Token = common.BytesToAddress(l.Topics[1].Bytes())
		ev.From = common.BytesToAddress(l.Topics[2].Bytes())
	default:
		return Event{}, ErrUnknownEvent
	}
	vals, err := ABI.Events[name].Inputs.NonIndexed().Unpack(l.Data)
	if err != nil {
		return Event{}, fmt.Errorf("%s: %w", name, err)
	}
	total, ok1 := vals[0].(*big.Int)
	count, ok2 := vals[1].(*big.Int)
	if !ok1 || !ok2 {
		return Event{}, fmt.Errorf("%s: unexpected data layout", name)
	}
	ev.Total = total
	ev.Recipients = count.Uint64()
	return ev, nil
}

// DecodeLogs returns the dispersal events emitted by contract, skipping anything else.
func DecodeLogs(logs []*types.Log, contract common.Address) []Event {
	var out []Event
	for _, l := range logs {
		if l == nil || l.Address != contract {
			continue
		}
		if ev, err := DecodeLog(*l); err == nil {
			out = append(out, ev)
		}
	}
	return out
}

func etherDispersedLog(contract, from common.Address, total *big.Int, n int) *types.Log {
	ev := ABI.Events["EtherDispersed"]
	data, _ := ev.Inputs.NonIndexed().Pack(total, big.NewInt(int64(n)))
	return &types.Log{
		Address: contract,
		Topics:  []common.Hash{ev.ID, common.BytesToHash(from.Bytes())},
		Data:    data,
	}
}

func tokenDispersedLog(contract, token, from common.Address, total *big.Int, n int) *types.Log {
	ev := ABI.Events["TokenDispersed"]
	data, _ := ev.Inputs.NonIndexed().Pack(total, big.NewInt(int64(n)))
	return &types.Log{
		Address: contract,
		Topics:  []common.Hash{ev.ID, common.BytesToHash(token.Bytes()), common.BytesToHash(from.Bytes())},
		Data:    data,
	}
}
