package api

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHexToBytes(t *testing.T) {
	b, err := hexToBytes("0xdeadbeef")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, b)
}

func TestHexToBytesWithoutPrefix(t *testing.T) {
	b, err := hexToBytes("deadbeef")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, b)
}

func TestHexToBytesEmptyIsNil(t *testing.T) {
	b, err := hexToBytes("")
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = hexToBytes("0x")
	require.NoError(t, err)
	assert.Nil(t, b)
}

func TestHexToBytesOddLengthIsLeftPadded(t *testing.T) {
	b, err := hexToBytes("0xabc")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0xbc}, b)
}

func TestHexToBytesInvalidHex(t *testing.T) {
	_, err := hexToBytes("0xzz")
	assert.Error(t, err)
}

func TestHexOrDecimalBigIntHex(t *testing.T) {
	v := hexOrDecimalBigInt("0xff")
	assert.Equal(t, big.NewInt(255), v)
}

func TestHexOrDecimalBigIntDecimal(t *testing.T) {
	v := hexOrDecimalBigInt("255")
	assert.Equal(t, big.NewInt(255), v)
}

func TestHexOrDecimalBigIntEmptyIsZero(t *testing.T) {
	v := hexOrDecimalBigInt("")
	assert.Equal(t, big.NewInt(0), v)
}

func TestHexOrDecimalBigIntMalformedHexIsZero(t *testing.T) {
	v := hexOrDecimalBigInt("0xnothex")
	assert.Equal(t, big.NewInt(0), v)
}

func TestHexOrDecimalBigIntMalformedDecimalIsZero(t *testing.T) {
	v := hexOrDecimalBigInt("not-a-number")
	assert.Equal(t, big.NewInt(0), v)
}
