package devchain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/multisend/internal/erc20"
	"github.com/ligun0805/multisend/internal/multisender"
)

var (
	account  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	contract = common.HexToAddress("0x00000000000000000000000000000000000000cc")
	token    = common.HexToAddress("0x00000000000000000000000000000000000000dd")
	alice    = common.HexToAddress("0x0000000000000000000000000000000000000a11")
)

func TestDispersalIsMinedWithEvent(t *testing.T) {
	ctx := context.Background()
	c := New(account, contract)
	c.World.Fund(account, big.NewInt(100))
	c.ReceiptDelay = 2

	data, err := multisender.PackDisperseEther([]common.Address{alice}, []*big.Int{big.NewInt(40)})
	require.NoError(t, err)
	hash, err := c.SendTransaction(ctx, contract, data, big.NewInt(40))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err = c.TransactionReceipt(ctx, hash)
		assert.ErrorIs(t, err, ethereum.NotFound)
	}
	rcpt, err := c.TransactionReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusSuccessful, rcpt.Status)
	require.Len(t, rcpt.Logs, 1)
	assert.Equal(t, hash, rcpt.Logs[0].TxHash)

	bal, err := c.BalanceAt(ctx, alice, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 40, bal.Int64())
	assert.Equal(t, "disperseEther", c.Sent()[0].Method())
}

func TestRevertedCallIsMinedAsFailed(t *testing.T) {
	ctx := context.Background()
	c := New(account, contract)
	c.World.Fund(account, big.NewInt(100))

	data, err := multisender.PackDisperseEther([]common.Address{alice}, []*big.Int{big.NewInt(40)})
	require.NoError(t, err)

	_, err = c.CallContract(ctx, ethereum.CallMsg{From: account, To: &contract, Value: big.NewInt(10), Data: data}, nil)
	var rev *multisender.RevertError
	require.True(t, errors.As(err, &rev))
	assert.Equal(t, multisender.ReasonValueMismatch, rev.Reason)

	hash, err := c.SendTransaction(ctx, contract, data, big.NewInt(10))
	require.NoError(t, err)
	rcpt, err := c.TransactionReceipt(ctx, hash)
	require.NoError(t, err)
	assert.Equal(t, types.ReceiptStatusFailed, rcpt.Status)

	bal, _ := c.BalanceAt(ctx, account, nil)
	assert.EqualValues(t, 100, bal.Int64())
}

func TestTokenViewsAndApprove(t *testing.T) {
	ctx := context.Background()
	c := New(account, contract)
	tok := c.World.DeployToken(token)
	tok.Mint(account, big.NewInt(500))

	out, err := c.CallContract(ctx, ethereum.CallMsg{To: &token, Data: erc20.PackBalanceOf(account)}, nil)
	require.NoError(t, err)
	bal, err := erc20.UnpackUint("balanceOf", out)
	require.NoError(t, err)
	assert.EqualValues(t, 500, bal.Int64())

	_, err = c.SendTransaction(ctx, token, erc20.PackApprove(contract, big.NewInt(300)), nil)
	require.NoError(t, err)
	out, err = c.CallContract(ctx, ethereum.CallMsg{To: &token, Data: erc20.PackAllowance(account, contract)}, nil)
	require.NoError(t, err)
	allowed, err := erc20.UnpackUint("allowance", out)
	require.NoError(t, err)
	assert.EqualValues(t, 300, allowed.Int64())

	out, err = c.CallContract(ctx, ethereum.CallMsg{To: &token, Data: erc20.PackDecimals()}, nil)
	require.NoError(t, err)
	d, err := erc20.UnpackDecimals(out)
	require.NoError(t, err)
	assert.EqualValues(t, 18, d)
}

func TestRejectAndDrop(t *testing.T) {
	ctx := context.Background()
	c := New(account, contract)
	c.World.Fund(account, big.NewInt(100))
	c.World.DeployToken(token)
	c.Reject = func(tx Tx) bool { return tx.To == token }
	c.Drop = func(tx Tx) bool { return tx.To == contract }

	_, err := c.SendTransaction(ctx, token, erc20.PackApprove(contract, big.NewInt(1)), nil)
	var re rpc.Error
	require.True(t, errors.As(err, &re))
	assert.Equal(t, 4001, re.ErrorCode())
	assert.Empty(t, c.Sent())

	data, err := multisender.PackDisperseEther([]common.Address{alice}, []*big.Int{big.NewInt(1)})
	require.NoError(t, err)
	hash, err := c.SendTransaction(ctx, contract, data, big.NewInt(1))
	require.NoError(t, err)
	_, err = c.TransactionReceipt(ctx, hash)
	assert.ErrorIs(t, err, ethereum.NotFound)
}

func TestUnfundedValueIsRefused(t *testing.T) {
	c := New(account, contract)
	_, err := c.SendTransaction(context.Background(), contract, nil, big.NewInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insufficient funds")
	assert.Empty(t, c.Sent())
}
