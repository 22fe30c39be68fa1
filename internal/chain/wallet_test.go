package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ligun0805/multisend/internal/disperse"
)

const testKey = "0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fakeBackend struct {
	baseFee     *big.Int
	tip         *big.Int
	gas         uint64
	nonce       uint64
	estimateErr error
	sent        []*types.Transaction
}

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(100), BaseFee: b.baseFee}, nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return b.nonce, nil
}

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) { return b.tip, nil }

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	return b.gas, b.estimateErr
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.sent = append(b.sent, tx)
	return nil
}

func newTestWallet(t *testing.T, b *fakeBackend) *KeyWallet {
	t.Helper()
	w, err := NewKeyWallet(b, testKey, big.NewInt(232))
	require.NoError(t, err)
	return w
}

func TestKeyWalletSignsDynamicFeeTx(t *testing.T) {
	b := &fakeBackend{baseFee: big.NewInt(100), tip: big.NewInt(7), gas: 50_000, nonce: 9}
	w := newTestWallet(t, b)
	to := common.HexToAddress("0x00000000000000000000000000000000000000cc")

	hash, err := w.SendTransaction(context.Background(), to, []byte{1, 2, 3}, big.NewInt(42))
	require.NoError(t, err)
	require.Len(t, b.sent, 1)
	tx := b.sent[0]

	assert.Equal(t, hash, tx.Hash())
	assert.Equal(t, uint8(types.DynamicFeeTxType), tx.Type())
	assert.EqualValues(t, 9, tx.Nonce())
	assert.EqualValues(t, 60_000, tx.Gas())
	assert.EqualValues(t, 207, tx.GasFeeCap().Int64())
	assert.EqualValues(t, 7, tx.GasTipCap().Int64())
	assert.EqualValues(t, 42, tx.Value().Int64())
	assert.Equal(t, to, *tx.To())

	from, err := types.Sender(types.LatestSignerForChainID(big.NewInt(232)), tx)
	require.NoError(t, err)
	assert.Equal(t, w.Address(), from)

	prv, _ := gethcrypto.HexToECDSA(testKey[2:])
	assert.Equal(t, gethcrypto.PubkeyToAddress(prv.PublicKey), w.Address())
}

func TestKeyWalletDeclined(t *testing.T) {
	b := &fakeBackend{baseFee: big.NewInt(1), tip: big.NewInt(1), gas: 21_000}
	w := newTestWallet(t, b)
	var seen TxRequest
	w.Confirm = func(r TxRequest) bool { seen = r; return false }

	_, err := w.SendTransaction(context.Background(), common.HexToAddress("0x01"), nil, big.NewInt(5))
	assert.ErrorIs(t, err, disperse.ErrUserRejected)
	assert.Empty(t, b.sent)
	assert.EqualValues(t, 5, seen.Value.Int64())
	assert.EqualValues(t, 25_200, seen.Gas)
}

func TestKeyWalletNegativeGasBufferUsesEstimate(t *testing.T) {
	b := &fakeBackend{baseFee: big.NewInt(1), tip: big.NewInt(1), gas: 21_000}
	w := newTestWallet(t, b)
	w.GasBufferPct = -500

	_, err := w.SendTransaction(context.Background(), common.HexToAddress("0x01"), nil, nil)
	require.NoError(t, err)
	require.Len(t, b.sent, 1)
	assert.EqualValues(t, 21_000, b.sent[0].Gas())
}

func TestKeyWalletSurfacesEstimateRevert(t *testing.T) {
	b := &fakeBackend{baseFee: big.NewInt(1), tip: big.NewInt(1), estimateErr: errors.New("execution reverted: transfer failed")}
	w := newTestWallet(t, b)

	_, err := w.SendTransaction(context.Background(), common.HexToAddress("0x01"), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transfer failed")
	assert.Empty(t, b.sent)
}

func TestNewKeyWalletValidates(t *testing.T) {
	_, err := NewKeyWallet(&fakeBackend{}, "zz", big.NewInt(1))
	assert.Error(t, err)
	_, err = NewKeyWallet(&fakeBackend{}, testKey, nil)
	assert.Error(t, err)
}
