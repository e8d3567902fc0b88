package analyzer

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/shieldcore/firewall/internal/model"
)

func permitContext(primaryType string, message map[string]any) *model.AnalysisContext {
	return &model.AnalysisContext{
		ChainID:   1,
		TypedData: &model.TypedData{PrimaryType: primaryType, Message: message},
	}
}

func TestSignaturePermitNoTypedDataIsZeroScore(t *testing.T) {
	s := NewSignaturePermit(nil)
	result := s.Run(context.Background(), &model.AnalysisContext{})
	assert.Equal(t, 0.0, result.Score)
	assert.Empty(t, result.Flags)
}

func TestSignaturePermitFlagsUnlimitedPermitForUntrustedSpender(t *testing.T) {
	s := NewSignaturePermit(nil)
	ac := permitContext("Permit", map[string]any{
		"spender": "0x1111111111111111111111111111111111111111",
		"value":   maxUint256.String(),
	})
	result := s.Run(context.Background(), ac)
	assert.True(t, result.HasFlag(model.FlagPermitUnlimited))
	assert.GreaterOrEqual(t, result.Score, 40.0)
}

func TestSignaturePermitSkipsAllowlistedSpender(t *testing.T) {
	spenderAddr, _ := model.NewAddress(1, "0x1111111111111111111111111111111111111111")
	allowlist := map[string]bool{spenderAddr.String(): true}
	s := NewSignaturePermit(allowlist)
	ac := permitContext("Permit", map[string]any{
		"spender": "0x1111111111111111111111111111111111111111",
		"value":   maxUint256.String(),
	})
	result := s.Run(context.Background(), ac)
	assert.False(t, result.HasFlag(model.FlagPermitUnlimited))
}

func TestSignaturePermitIgnoresBoundedValue(t *testing.T) {
	s := NewSignaturePermit(nil)
	ac := permitContext("Permit", map[string]any{
		"spender": "0x1111111111111111111111111111111111111111",
		"value":   "1000",
	})
	result := s.Run(context.Background(), ac)
	assert.False(t, result.HasFlag(model.FlagPermitUnlimited))
}

func TestSignaturePermitFlagsZeroPriceOrder(t *testing.T) {
	s := NewSignaturePermit(nil)
	ac := permitContext("Order", map[string]any{"price": "0"})
	result := s.Run(context.Background(), ac)
	assert.True(t, result.HasFlag(model.FlagZeroPriceOrder))
	assert.GreaterOrEqual(t, result.Score, 60.0)
}

func TestSignaturePermitFlagsBurnAddressConsideration(t *testing.T) {
	s := NewSignaturePermit(nil)
	ac := permitContext("Order", map[string]any{
		"price":         "100",
		"consideration": "0x000000000000000000000000000000000000dead",
	})
	result := s.Run(context.Background(), ac)
	assert.True(t, result.HasFlag(model.FlagZeroPriceOrder))
}

func TestSignaturePermitNonZeroOrderNotFlagged(t *testing.T) {
	s := NewSignaturePermit(nil)
	ac := permitContext("Order", map[string]any{
		"price":         "100",
		"consideration": "0x9999999999999999999999999999999999999999",
	})
	result := s.Run(context.Background(), ac)
	assert.False(t, result.HasFlag(model.FlagZeroPriceOrder))
}

func TestSignaturePermitFarFutureDeadlineWithBroadScopeAddsScore(t *testing.T) {
	s := NewSignaturePermit(nil)
	farFuture := strconv.FormatInt(time.Now().Add(365*24*time.Hour).Unix(), 10)
	ac := permitContext("Permit", map[string]any{
		"spender":  "0x1111111111111111111111111111111111111111",
		"value":    maxUint256.String(),
		"deadline": farFuture,
	})
	result := s.Run(context.Background(), ac)
	assert.GreaterOrEqual(t, result.Score, 55.0) // 40 (unlimited) + 15 (far deadline + broad scope)
}

func TestSignaturePermitNearDeadlineNoExtraScore(t *testing.T) {
	s := NewSignaturePermit(nil)
	nearFuture := strconv.FormatInt(time.Now().Add(time.Hour).Unix(), 10)
	ac := permitContext("Permit", map[string]any{
		"spender":  "0x1111111111111111111111111111111111111111",
		"value":    "1000",
		"deadline": nearFuture,
	})
	result := s.Run(context.Background(), ac)
	assert.Equal(t, 0.0, result.Score)
}

func TestSignaturePermitUnknownPrimaryTypeIgnored(t *testing.T) {
	s := NewSignaturePermit(nil)
	ac := permitContext("SomethingElse", map[string]any{"value": maxUint256.String()})
	result := s.Run(context.Background(), ac)
	assert.Equal(t, 0.0, result.Score)
}
