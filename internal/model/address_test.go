package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAddressNormalizesCaseAndPrefix(t *testing.T) {
	addr, err := NewAddress(1, "0xABCDEF0123456789ABCDEF0123456789ABCDEF01")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", addr.Hex())
	assert.Equal(t, int64(1), addr.ChainID)
}

func TestNewAddressWithoutPrefix(t *testing.T) {
	addr, err := NewAddress(1, "abcdef0123456789abcdef0123456789abcdef01")
	require.NoError(t, err)
	assert.Equal(t, "0xabcdef0123456789abcdef0123456789abcdef01", addr.Hex())
}

func TestNewAddressRejectsWrongLength(t *testing.T) {
	_, err := NewAddress(1, "0x1234")
	assert.Error(t, err)
}

func TestNewAddressRejectsNonHex(t *testing.T) {
	_, err := NewAddress(1, "0xzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")
	assert.Error(t, err)
}

func TestAddressEqualScopesOnChainID(t *testing.T) {
	a, err := NewAddress(1, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	b, err := NewAddress(2, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.False(t, a.Equal(b))
	assert.True(t, a.Equal(a))
}

func TestAddressIsZero(t *testing.T) {
	var a Address
	assert.True(t, a.IsZero())

	b, err := NewAddress(0, "0x0000000000000000000000000000000000000000")
	require.NoError(t, err)
	// chain-scoped zero with chain id 0 and all-zero bytes is, by this
	// type's definition, indistinguishable from the unset value.
	assert.True(t, b.IsZero())

	c, err := NewAddress(1, "0x0000000000000000000000000000000000000000")
	require.NoError(t, err)
	assert.False(t, c.IsZero())
}

func TestAddressJSONRoundTrip(t *testing.T) {
	addr, err := NewAddress(137, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)

	data, err := json.Marshal(addr)
	require.NoError(t, err)
	assert.JSONEq(t, `{"chain_id":137,"address":"0x1111111111111111111111111111111111111111"}`, string(data))

	var out Address
	require.NoError(t, json.Unmarshal(data, &out))
	assert.True(t, addr.Equal(out))
}

func TestAddressStringKeyForm(t *testing.T) {
	addr, err := NewAddress(56, "0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, "56:0x1111111111111111111111111111111111111111", addr.String())
}
