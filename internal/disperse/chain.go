package disperse

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/ligun0805/multisend/internal/assets"
	"github.com/ligun0805/multisend/internal/erc20"
)

// Reader is the read side of the chain. *ethclient.Client satisfies it.
type Reader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Wallet signs and broadcasts transactions for a single account.
// A declined prompt must be reported as ErrUserRejected.
type Wallet interface {
	Address() common.Address
	SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error)
}

// Balance returns owner's holdings of asset in smallest units.
func Balance(ctx context.Context, r Reader, owner common.Address, asset assets.Asset) (*big.Int, error) {
	if asset.Native() {
		return r.BalanceAt(ctx, owner, nil)
	}
	out, err := r.CallContract(ctx, ethereum.CallMsg{From: owner, To: asset.Contract, Data: erc20.PackBalanceOf(owner)}, nil)
	if err != nil {
		return nil, fmt.Errorf("%s balanceOf: %w", asset.Symbol, err)
	}
	return erc20.UnpackUint("balanceOf", out)
}

// Allowance reads allowance(owner, spender) on token. It is never cached.
func Allowance(ctx context.Context, r Reader, token, owner, spender common.Address) (*big.Int, error) {
	out, err := r.CallContract(ctx, ethereum.CallMsg{From: owner, To: &token, Data: erc20.PackAllowance(owner, spender)}, nil)
	if err != nil {
		return nil, fmt.Errorf("allowance: %w", err)
	}
	return erc20.UnpackUint("allowance", out)
}
