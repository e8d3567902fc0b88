package analyzer

import (
	"context"
	"math/big"
	"time"

	"github.com/shieldcore/firewall/internal/model"
)

// SignaturePermit is the additive-bonus, signature-flows-only analyzer:
// typed-data checks applied to EIP-2612/Permit2/marketplace-order payloads,
// grounded in the same bounded-delta-factor idiom as the other analyzers
// but decoded via go-ethereum's apitypes in the RPCProxy's typed-data path
// rather than here (this analyzer reads the already-decoded model.TypedData).
type SignaturePermit struct {
	Base
	allowlist map[string]bool // chainID:0xhex spender -> trusted
}

func NewSignaturePermit(allowlist map[string]bool) *SignaturePermit {
	return &SignaturePermit{
		Base:      NewBase(model.TagSignaturePermit, 0, nil, nil),
		allowlist: allowlist,
	}
}

func (s *SignaturePermit) Run(_ context.Context, ac *model.AnalysisContext) model.AnalyzerResult {
	result := model.AnalyzerResult{Tag: s.Tag(), Confidence: 1.0}
	if ac.TypedData == nil {
		return result
	}
	score := 0.0

	switch ac.TypedData.PrimaryType {
	case "Permit", "PermitSingle", "PermitBatch":
		spender, _ := ac.TypedData.Message["spender"].(string)
		value, _ := ac.TypedData.Message["value"].(string)
		if spender != "" && !s.allowlist[spenderKey(ac.ChainID, spender)] && isMaxUint256(value) {
			score += 40
			result.AddFlag(model.FlagPermitUnlimited)
		}
	case "Order", "BulkOrder":
		price, _ := ac.TypedData.Message["price"].(string)
		considerationItem, _ := ac.TypedData.Message["consideration"].(string)
		if isZeroOrBurn(price, considerationItem) {
			score += 60
			result.AddFlag(model.FlagZeroPriceOrder)
		}
	}

	if deadlineStr, ok := ac.TypedData.Message["deadline"].(string); ok {
		if far, ok := deadlineFarFuture(deadlineStr); ok && far && isBroadScope(ac.TypedData) {
			score += 15
		}
	}

	if score > 100 {
		score = 100
	}
	result.Score = score
	return result
}

func spenderKey(chainID int64, hex string) string {
	addr, err := model.NewAddress(chainID, hex)
	if err != nil {
		return ""
	}
	return addr.String()
}

func isMaxUint256(value string) bool {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return false
	}
	return v.Cmp(maxUint256) == 0
}

func isZeroOrBurn(price, consideration string) bool {
	if v, ok := new(big.Int).SetString(price, 10); ok && v.Sign() == 0 {
		return true
	}
	return consideration == "0x0000000000000000000000000000000000000000" ||
		consideration == "0x000000000000000000000000000000000000dead"
}

func deadlineFarFuture(deadline string) (bool, bool) {
	seconds, ok := new(big.Int).SetString(deadline, 10)
	if !ok {
		return false, false
	}
	until := time.Unix(seconds.Int64(), 0)
	return time.Until(until) > 30*24*time.Hour, true
}

// isBroadScope reports whether the typed-data payload grants a scope wider
// than a single fixed amount, the "broad scope" condition from spec §4.3.6.
// Only a message "value" equal to 2^256-1 counts as broad; payloads without
// such a value (orders included) are never broad.
func isBroadScope(data *model.TypedData) bool {
	if value, ok := data.Message["value"].(string); ok {
		return isMaxUint256(value)
	}
	return false
}
