package erc20

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectors(t *testing.T) {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	spender := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	assert.Equal(t, common.FromHex("0x70a08231"), PackBalanceOf(owner)[:4])
	assert.Equal(t, common.FromHex("0xdd62ed3e"), PackAllowance(owner, spender)[:4])
	assert.Equal(t, common.FromHex("0x095ea7b3"), PackApprove(spender, big.NewInt(1))[:4])
	assert.Equal(t, common.FromHex("0xa9059cbb"), PackTransfer(spender, big.NewInt(1))[:4])
	assert.Len(t, PackAllowance(owner, spender), 4+32+32)
}

func TestApproveEncodesExactAmount(t *testing.T) {
	spender := common.HexToAddress("0x00000000000000000000000000000000000000bb")
	amount, _ := new(big.Int).SetString("123456789000000000000", 10)
	data := PackApprove(spender, amount)

	args, err := ABI.Methods["approve"].Inputs.Unpack(data[4:])
	require.NoError(t, err)
	assert.Equal(t, spender, args[0].(common.Address))
	assert.Equal(t, 0, amount.Cmp(args[1].(*big.Int)))
}

func TestUnpackUint(t *testing.T) {
	out, err := ABI.Methods["allowance"].Outputs.Pack(big.NewInt(42))
	require.NoError(t, err)
	v, err := UnpackUint("allowance", out)
	require.NoError(t, err)
	assert.EqualValues(t, 42, v.Int64())

	_, err = UnpackUint("allowance", nil)
	assert.Error(t, err)
}

func TestUnpackMetadata(t *testing.T) {
	out, err := ABI.Methods["decimals"].Outputs.Pack(uint8(6))
	require.NoError(t, err)
	d, err := UnpackDecimals(out)
	require.NoError(t, err)
	assert.EqualValues(t, 6, d)

	out, err = ABI.Methods["symbol"].Outputs.Pack("USDC")
	require.NoError(t, err)
	sym, err := UnpackSymbol(out)
	require.NoError(t, err)
	assert.Equal(t, "USDC", sym)

	assert.Equal(t, common.FromHex("0x313ce567"), PackDecimals())
	assert.Equal(t, common.FromHex("0x95d89b41"), PackSymbol())
}
