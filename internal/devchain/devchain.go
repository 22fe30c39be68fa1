// Package devchain is a deterministic in-memory chain for a single funded
// account. It serves reads, executes multisender and ERC-20 approve calls
// against a multisender.World, and mines each transaction immediately.
package devchain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/ligun0805/multisend/internal/erc20"
	"github.com/ligun0805/multisend/internal/multisender"
)

// Tx is a transaction accepted by SendTransaction.
type Tx struct {
	Hash  common.Hash
	To    common.Address
	Data  []byte
	Value *big.Int
}

// Method returns the ABI method name the calldata targets, or "" for plain transfers.
func (tx Tx) Method() string {
	if len(tx.Data) < 4 {
		return ""
	}
	if m, err := multisender.ABI.MethodById(tx.Data[:4]); err == nil {
		return m.Name
	}
	if m, err := erc20.ABI.MethodById(tx.Data[:4]); err == nil {
		return m.Name
	}
	return ""
}

// rejection mimics the EIP-1193 error a wallet returns when the user declines.
type rejection struct{}

func (rejection) Error() string  { return "User rejected the request." }
func (rejection) ErrorCode() int { return 4001 }

type mined struct {
	receipt *types.Receipt
	polls   int
}

// Chain is safe for concurrent use.
type Chain struct {
	World    *multisender.World
	Contract *multisender.Contract

	// ReceiptDelay is how many receipt lookups answer NotFound before the receipt shows.
	ReceiptDelay int
	// Drop hides a transaction's receipt forever.
	Drop func(Tx) bool
	// Reject makes the wallet decline a transaction.
	Reject func(Tx) bool
	// RevertApprovals mines approve calls with a failed status.
	RevertApprovals bool

	account common.Address
	mu      sync.Mutex
	nonce   uint64
	block   uint64
	mined   map[common.Hash]*mined
	sent    []Tx
	trace   []string
}

// New returns a chain whose wallet controls account and whose multisender lives at contract.
func New(account, contract common.Address) *Chain {
	return &Chain{
		World:    multisender.NewWorld(),
		Contract: &multisender.Contract{Address: contract},
		account:  account,
		block:    1,
		mined:    make(map[common.Hash]*mined),
	}
}

// Sent lists accepted transactions in submission order.
func (c *Chain) Sent() []Tx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Tx(nil), c.sent...)
}

// Trace is the ordered log of "send:<hash>" and "receipt:<hash>" observations.
func (c *Chain) Trace() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.trace...)
}

func (c *Chain) Address() common.Address { return c.account }

func (c *Chain) BalanceAt(_ context.Context, account common.Address, _ *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.World.Balance(account), nil
}

// CallContract simulates msg without committing anything.
func (c *Chain) CallContract(_ context.Context, msg ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	if msg.To == nil {
		return nil, errors.New("contract creation is not supported")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if *msg.To == c.Contract.Address {
		if _, err := c.Contract.Execute(c.World.Clone(), msg.From, msg.Value, msg.Data); err != nil {
			return nil, err
		}
		return nil, nil
	}
	tok, ok := c.World.Token(*msg.To)
	if !ok {
		return nil, nil
	}
	return tokenView(tok, msg.Data)
}

func tokenView(tok *multisender.Token, data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, &multisender.RevertError{}
	}
	m, err := erc20.ABI.MethodById(data[:4])
	if err != nil {
		return nil, &multisender.RevertError{}
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, &multisender.RevertError{}
	}
	switch m.Name {
	case "balanceOf":
		return m.Outputs.Pack(tok.BalanceOf(args[0].(common.Address)))
	case "allowance":
		return m.Outputs.Pack(tok.Allowance(args[0].(common.Address), args[1].(common.Address)))
	case "decimals":
		return m.Outputs.Pack(tok.Decimals)
	}
	return nil, &multisender.RevertError{}
}

func (c *Chain) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	m, ok := c.mined[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	m.polls++
	if m.polls <= c.ReceiptDelay {
		return nil, ethereum.NotFound
	}
	c.trace = append(c.trace, "receipt:"+hash.Hex())
	return m.receipt, nil
}

// SendTransaction executes and mines the transaction at once. Only calls that the
// node itself would refuse (unfunded value) return an error; reverts are mined
// with a failed status.
func (c *Chain) SendTransaction(_ context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	if value == nil {
		value = new(big.Int)
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tx := Tx{To: to, Data: append([]byte(nil), data...), Value: new(big.Int).Set(value)}
	tx.Hash = c.txHash(tx)
	if c.Reject != nil && c.Reject(tx) {
		return common.Hash{}, rejection{}
	}
	if c.World.Balance(c.account).Cmp(value) < 0 {
		return common.Hash{}, fmt.Errorf("insufficient funds for gas * price + value: have %s want %s", c.World.Balance(c.account), value)
	}

	status := types.ReceiptStatusSuccessful
	var logs []*types.Log
	switch {
	case to == c.Contract.Address:
		out, err := c.Contract.Execute(c.World, c.account, value, data)
		if err != nil {
			status = types.ReceiptStatusFailed
		} else {
			logs = out
		}
	default:
		if !c.execToken(to, data) {
			status = types.ReceiptStatusFailed
		}
	}

	c.nonce++
	c.block++
	rcpt := &types.Receipt{
		Status:      status,
		TxHash:      tx.Hash,
		BlockNumber: new(big.Int).SetUint64(c.block),
	}
	for i, l := range logs {
		l.TxHash = tx.Hash
		l.BlockNumber = c.block
		l.Index = uint(i)
	}
	rcpt.Logs = logs
	c.sent = append(c.sent, tx)
	c.trace = append(c.trace, "send:"+tx.Hash.Hex())
	if c.Drop == nil || !c.Drop(tx) {
		c.mined[tx.Hash] = &mined{receipt: rcpt}
	}
	return tx.Hash, nil
}

func (c *Chain) execToken(to common.Address, data []byte) bool {
	tok, ok := c.World.Token(to)
	if !ok || len(data) < 4 {
		return false
	}
	m, err := erc20.ABI.MethodById(data[:4])
	if err != nil {
		return false
	}
	args, err := m.Inputs.Unpack(data[4:])
	if err != nil {
		return false
	}
	switch m.Name {
	case "approve":
		if c.RevertApprovals {
			return false
		}
		tok.Approve(c.account, args[0].(common.Address), args[1].(*big.Int))
		return true
	case "transfer":
		return tok.Transfer(c.account, args[0].(common.Address), args[1].(*big.Int))
	}
	return false
}

func (c *Chain) txHash(tx Tx) common.Hash {
	var n [8]byte
	binary.BigEndian.PutUint64(n[:], c.nonce)
	return crypto.Keccak256Hash(n[:], c.account.Bytes(), tx.To.Bytes(), tx.Value.Bytes(), tx.Data)
}
