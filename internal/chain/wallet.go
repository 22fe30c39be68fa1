package chain

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"

	"github.com/ligun0805/multisend/internal/disperse"
)

// Backend is the node surface a KeyWallet needs. *Client satisfies it.
type Backend interface {
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// TxRequest is shown to Confirm before anything is signed.
type TxRequest struct {
	From   common.Address
	To     common.Address
	Value  *big.Int
	Data   []byte
	Gas    uint64
	FeeCap *big.Int
	TipCap *big.Int
}

// KeyWallet signs EIP-1559 transactions with a local private key.
type KeyWallet struct {
	Backend Backend
	ChainID *big.Int
	// BaseFeeMul scales the latest base fee into the fee cap.
	BaseFeeMul int64
	// GasBufferPct is added on top of the gas estimate; negative means none.
	GasBufferPct int64
	// Confirm, when set, is asked before every signature; false means the user declined.
	Confirm func(TxRequest) bool
	Log     *logrus.Entry

	key  *ecdsa.PrivateKey
	addr common.Address
}

var _ disperse.Wallet = (*KeyWallet)(nil)

// NewKeyWallet parses a hex private key, with or without 0x.
func NewKeyWallet(backend Backend, keyHex string, chainID *big.Int) (*KeyWallet, error) {
	prv, err := gethcrypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("private key: %w", err)
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, errors.New("chain id is required")
	}
	return &KeyWallet{
		Backend:      backend,
		ChainID:      new(big.Int).Set(chainID),
		BaseFeeMul:   2,
		GasBufferPct: 20,
		Log:          logrus.NewEntry(logrus.StandardLogger()),
		key:          prv,
		addr:         gethcrypto.PubkeyToAddress(prv.PublicKey),
	}, nil
}

func (w *KeyWallet) Address() common.Address { return w.addr }

// SendTransaction estimates, prices, confirms, signs and broadcasts a call.
// Estimation errors (including reverts) are returned unchanged.
func (w *KeyWallet) SendTransaction(ctx context.Context, to common.Address, data []byte, value *big.Int) (common.Hash, error) {
	if value == nil {
		value = new(big.Int)
	}
	gas, err := w.Backend.EstimateGas(ctx, ethereum.CallMsg{From: w.addr, To: &to, Value: value, Data: data})
	if err != nil {
		return common.Hash{}, err
	}
	buffer := w.GasBufferPct
	if buffer < 0 {
		buffer = 0
	}
	gas = gas * uint64(100+buffer) / 100

	baseFee, err := latestBaseFee(ctx, w.Backend)
	if err != nil {
		return common.Hash{}, err
	}
	tip, err := w.Backend.SuggestGasTipCap(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("suggest tip: %w", err)
	}
	mul := w.BaseFeeMul
	if mul < 1 {
		mul = 1
	}
	feeCap := new(big.Int).Mul(baseFee, big.NewInt(mul))
	feeCap.Add(feeCap, tip)

	req := TxRequest{From: w.addr, To: to, Value: value, Data: data, Gas: gas, FeeCap: feeCap, TipCap: tip}
	if w.Confirm != nil && !w.Confirm(req) {
		return common.Hash{}, disperse.ErrUserRejected
	}

	nonce, err := w.Backend.PendingNonceAt(ctx, w.addr)
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}
	signed, err := signTx(buildDynamicTx(w.ChainID, nonce, &to, value, gas, tip, feeCap, data), w.ChainID, w.key)
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}
	if err := w.Backend.SendTransaction(ctx, signed); err != nil {
		return common.Hash{}, err
	}
	if w.Log != nil {
		w.Log.WithFields(logrus.Fields{"hash": signed.Hash().Hex(), "nonce": nonce, "gas": gas}).Debug("transaction broadcast")
	}
	return signed.Hash(), nil
}

func latestBaseFee(ctx context.Context, b Backend) (*big.Int, error) {
	h, err := b.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("latest header: %w", err)
	}
	if h.BaseFee == nil {
		return nil, errors.New("no baseFee (pre-1559?)")
	}
	return new(big.Int).Set(h.BaseFee), nil
}

func buildDynamicTx(chainID *big.Int, nonce uint64, to *common.Address, value *big.Int, gasLimit uint64, tip, feeCap *big.Int, data []byte) *types.Transaction {
	return types.NewTx(&types.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     nonce,
		Gas:       gasLimit,
		GasTipCap: new(big.Int).Set(tip),
		GasFeeCap: new(big.Int).Set(feeCap),
		To:        to,
		Value:     new(big.Int).Set(value),
		Data:      data,
	})
}

func signTx(tx *types.Transaction, chainID *big.Int, prv *ecdsa.PrivateKey) (*types.Transaction, error) {
	return types.SignTx(tx, types.LatestSignerForChainID(chainID), prv)
}
