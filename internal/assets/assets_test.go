package assets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := Default()
	gho, ok := r.Lookup("gho")
	require.True(t, ok)
	assert.True(t, gho.Native())
	assert.EqualValues(t, 18, gho.Decimals)

	usdc, ok := r.Lookup("USDC")
	require.True(t, ok)
	assert.False(t, usdc.Native())
	assert.EqualValues(t, 6, usdc.Decimals)
	assert.Equal(t, common.HexToAddress("0x88F08E304EC4f90D644Cec3Fb69b8aD414acf884"), *usdc.Contract)

	_, ok = r.Lookup("DOGE")
	assert.False(t, ok)
	assert.Len(t, r.All(), 5)
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "assets.yaml")
	doc := `
assets:
  - symbol: ETH
    decimals: 18
  - symbol: USDT
    address: "0xdAC17F958D2ee523a2206206994597C13D831ec7"
    decimals: 6
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	r, err := Load(context.Background(), path)
	require.NoError(t, err)
	usdt, ok := r.Lookup("usdt")
	require.True(t, ok)
	assert.EqualValues(t, 6, usdt.Decimals)
	assert.Equal(t, common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"), *usdt.Contract)
}

func TestLoadEmptyPathUsesDefault(t *testing.T) {
	r, err := Load(context.Background(), "")
	require.NoError(t, err)
	_, ok := r.Lookup("BONSAI")
	assert.True(t, ok)
}

func TestParseRejectsBadRegistries(t *testing.T) {
	bad := []string{
		"assets: []",
		"assets:\n  - symbol: A\n",
		"assets:\n  - symbol: A\n    decimals: 18\n  - symbol: a\n    decimals: 6\n",
		"assets:\n  - symbol: A\n    address: nope\n    decimals: 18\n",
		"assets:\n  - symbol: A\n    decimals: 300\n",
	}
	for _, doc := range bad {
		_, err := Parse([]byte(doc))
		assert.Error(t, err, doc)
	}
}
