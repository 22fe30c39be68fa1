package amount

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		text     string
		decimals uint8
		want     string
	}{
		{"1", 18, "1000000000000000000"},
		{"1.5", 18, "1500000000000000000"},
		{"0.000001", 6, "1"},
		{"  42.10 ", 6, "42100000"},
		{".5", 2, "50"},
		{"3.", 2, "300"},
		{"0", 18, "0"},
		{"007", 0, "7"},
		{"123456789012345678901234567890", 18, "123456789012345678901234567890000000000000000000"},
	}
	for _, c := range cases {
		got, err := Parse(c.text, c.decimals)
		require.NoError(t, err, c.text)
		assert.Equal(t, c.want, got.String(), c.text)
	}
}

func TestParseRejects(t *testing.T) {
	for _, text := range []string{"", "   ", "-1", "+1", "1e18", "1,5", "1.2.3", ".", "abc", "0x10", "1.1234567"} {
		_, err := Parse(text, 6)
		assert.ErrorIs(t, err, ErrInvalidAmount, text)
	}
	_, err := Parse("1.5", 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "0", Format(nil, 18))
	assert.Equal(t, "0", Format(big.NewInt(0), 18))
	assert.Equal(t, "0.000001", Format(big.NewInt(1), 6))
	assert.Equal(t, "1.5", Format(big.NewInt(1_500_000), 6))
	assert.Equal(t, "12", Format(big.NewInt(12), 0))
	assert.Equal(t, "-2.25", Format(big.NewInt(-225), 2))
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, text := range []string{"1", "0.1", "2.000001", "1000000", "0.123456789012345678", "98765.4321"} {
		v, err := Parse(text, 18)
		require.NoError(t, err)
		assert.Equal(t, text, Format(v, 18))
	}
	for _, text := range []string{"0.000001", "5", "17.25"} {
		v, err := Parse(text, 6)
		require.NoError(t, err)
		assert.Equal(t, text, Format(v, 6))
	}
}
