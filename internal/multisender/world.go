package multisender

import (
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ErrInsufficientFunds is a transaction-level failure: the sender cannot
// cover the value it attaches. Nothing executes.
var ErrInsufficientFunds = errors.New("insufficient funds for transfer")

// World is the slice of chain state a dispersal touches: native balances,
// token ledgers, and addresses that refuse native transfers.
// It is not safe for concurrent use.
type World struct {
	native  map[common.Address]*big.Int
	tokens  map[common.Address]*Token
	rejects map[common.Address]bool
}

func NewWorld() *World {
	return &World{
		native:  make(map[common.Address]*big.Int),
		tokens:  make(map[common.Address]*Token),
		rejects: make(map[common.Address]bool),
	}
}

// Balance returns a copy of addr's native balance.
func (w *World) Balance(addr common.Address) *big.Int {
	if b, ok := w.native[addr]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Fund credits addr with amount of the native coin.
func (w *World) Fund(addr common.Address, amount *big.Int) {
	w.native[addr] = new(big.Int).Add(w.Balance(addr), amount)
}

// RejectEther makes every native transfer to addr fail, like a contract without a receive function.
func (w *World) RejectEther(addr common.Address) { w.rejects[addr] = true }

// DeployToken registers an empty token ledger at addr, or returns the existing one.
func (w *World) DeployToken(addr common.Address) *Token {
	if t, ok := w.tokens[addr]; ok {
		return t
	}
	t := newToken()
	w.tokens[addr] = t
	return t
}

// Token returns the ledger deployed at addr.
func (w *World) Token(addr common.Address) (*Token, bool) {
	t, ok := w.tokens[addr]
	return t, ok
}

func (w *World) transferNative(from, to common.Address, amount *big.Int) error {
	bal := w.Balance(from)
	if bal.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	if w.rejects[to] {
		return errors.New("recipient rejected value")
	}
	w.native[from] = bal.Sub(bal, amount)
	w.native[to] = new(big.Int).Add(w.Balance(to), amount)
	return nil
}

// Clone returns a deep copy, used to simulate calls without committing them.
func (w *World) Clone() *World {
	c := NewWorld()
	for a, b := range w.native {
		c.native[a] = new(big.Int).Set(b)
	}
	for a, t := range w.tokens {
		c.tokens[a] = t.clone()
	}
	for a, r := range w.rejects {
		c.rejects[a] = r
	}
	return c
}

// apply runs fn against a copy of the world and keeps the result only if fn succeeds.
// Token pointers handed out earlier stay valid and observe the committed state.
func (w *World) apply(fn func(next *World) error) error {
	next := w.Clone()
	if err := fn(next); err != nil {
		return err
	}
	w.native = next.native
	w.rejects = next.rejects
	for a, t := range next.tokens {
		if cur, ok := w.tokens[a]; ok {
			*cur = *t
		} else {
			w.tokens[a] = t
		}
	}
	return nil
}

// Token is a minimal ERC-20 ledger. FailTransfer and FailTransferFrom make the
// respective call return false.
type Token struct {
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int

	Decimals         uint8
	FailTransfer     bool
	FailTransferFrom bool
}

func newToken() *Token {
	return &Token{
		Decimals:   18,
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (t *Token) BalanceOf(owner common.Address) *big.Int {
	if b, ok := t.balances[owner]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	if b, ok := t.allowances[owner][spender]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (t *Token) Mint(to common.Address, amount *big.Int) {
	t.balances[to] = new(big.Int).Add(t.BalanceOf(to), amount)
}

// Approve sets (not adds to) the spender's allowance.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) {
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]*big.Int)
	}
	t.allowances[owner][spender] = new(big.Int).Set(amount)
}

func (t *Token) Transfer(from, to common.Address, amount *big.Int) bool {
	if t.FailTransfer {
		return false
	}
	return t.move(from, to, amount)
}

func (t *Token) TransferFrom(spender, from, to common.Address, amount *big.Int) bool {
	if t.FailTransferFrom {
		return false
	}
	allowed := t.Allowance(from, spender)
	if allowed.Cmp(amount) < 0 {
		return false
	}
	if !t.move(from, to, amount) {
		return false
	}
	t.Approve(from, spender, allowed.Sub(allowed, amount))
	return true
}

func (t *Token) move(from, to common.Address, amount *big.Int) bool {
	bal := t.BalanceOf(from)
	if bal.Cmp(amount) < 0 {
		return false
	}
	t.balances[from] = bal.Sub(bal, amount)
	t.balances[to] = new(big.Int).Add(t.BalanceOf(to), amount)
	return true
}

func (t *Token) clone() *Token {
	c := newToken()
	c.Decimals = t.Decimals
	c.FailTransfer = t.FailTransfer
	c.FailTransferFrom = t.FailTransferFrom
	for a, b := range t.balances {
		c.balances[a] = new(big.Int).Set(b)
	}
	for owner, m := range t.allowances {
		cm := make(map[common.Address]*big.Int, len(m))
		for s, v := range m {
			cm[s] = new(big.Int).Set(v)
		}
		c.allowances[owner] = cm
	}
	return c
}
