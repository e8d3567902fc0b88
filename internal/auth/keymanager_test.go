package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierRateCap(t *testing.T) {
	assert.Equal(t, 60, TierFree.RateCap())
	assert.Equal(t, 600, TierPro.RateCap())
	assert.Equal(t, 6000, TierEnterprise.RateCap())
	assert.Equal(t, 60, Tier("unknown").RateCap())
}

func TestSplitToken(t *testing.T) {
	id, secret, ok := splitToken("abc123.supersecretvalue")
	require.True(t, ok)
	assert.Equal(t, "abc123", id)
	assert.Equal(t, "supersecretvalue", secret)
}

func TestSplitTokenSplitsOnFirstDotOnly(t *testing.T) {
	id, secret, ok := splitToken("abc.def.ghi")
	require.True(t, ok)
	assert.Equal(t, "abc", id)
	assert.Equal(t, "def.ghi", secret)
}

func TestSplitTokenRejectsMissingDot(t *testing.T) {
	_, _, ok := splitToken("notokendot")
	assert.False(t, ok)
}

func TestHashAndVerifySecretRoundTrip(t *testing.T) {
	hash, err := hashSecret("correct-secret")
	require.NoError(t, err)
	assert.True(t, verifySecret(hash, "correct-secret"))
	assert.False(t, verifySecret(hash, "wrong-secret"))
}

func TestHashSecretUsesRandomSalt(t *testing.T) {
	h1, err := hashSecret("same-secret")
	require.NoError(t, err)
	h2, err := hashSecret("same-secret")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2)
	assert.True(t, verifySecret(h1, "same-secret"))
	assert.True(t, verifySecret(h2, "same-secret"))
}

func TestVerifySecretRejectsMalformedHash(t *testing.T) {
	assert.False(t, verifySecret("not-base64!!", "anything"))
	assert.False(t, verifySecret("", "anything"))
}
