package analyzer

import (
	"context"
	"math/big"

	ethcommon "github.com/ethereum/go-ethereum/common"

	"github.com/shieldcore/firewall/internal/model"
)

// maxUint256 is 2^256 - 1, the canonical "unlimited approval" sentinel.
var maxUint256 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// IntentMismatch is the additive-bonus analyzer (no base weight): compares
// decoded intent against declared intent, grounded in the teacher's
// analyzeContractInteraction function-signature table, generalized to the
// full selector-disguise rule.
type IntentMismatch struct {
	Base
}

func NewIntentMismatch() *IntentMismatch {
	return &IntentMismatch{Base: NewBase(model.TagIntentMismatch, 0, nil, nil)}
}

func (m *IntentMismatch) Run(_ context.Context, ac *model.AnalysisContext) model.AnalyzerResult {
	result := model.AnalyzerResult{Tag: m.Tag(), Confidence: 1.0}
	score := 0.0

	switch ac.Call.FunctionName {
	case "approve(address,uint256)":
		if amount, ok := ac.Call.Args["arg1"].(*big.Int); ok {
			threshold := new(big.Int).Mul(big.NewInt(1_000_000_000), big.NewInt(1_000_000_000_000_000_000))
			if amount.Cmp(maxUint256) == 0 || amount.Cmp(threshold) > 0 {
				score += 25
				result.AddFlag(model.FlagUnlimitedApproval)
			}
		}
	case "transferFrom(address,address,uint256)":
		// arg1 is transferFrom's destination ("to").
		if to, ok := ac.Call.Args["arg1"].(ethcommon.Address); ok && ac.From != nil {
			if !sameAddressHex(to.Hex(), ac.From.Hex()) {
				score += 20
			}
		}
	}

	if selectorLooksDisguised(ac) {
		score += 35
		result.AddFlag(model.FlagDisguisedSelector)
	}

	if score > 100 {
		score = 100
	}
	result.Score = score
	return result
}

func sameAddressHex(a, b string) bool {
	return lowerHex(a) == lowerHex(b)
}

func lowerHex(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// selectorLooksDisguised flags a call whose selector has no matching entry
// in the known-selector table but whose calldata length matches one of the
// known selectors' expected argument width — i.e. the wallet's displayed
// "looks like a benign call" heuristic is being gamed. Grounded in the
// name->selector mismatch table described in spec §4.3.5.
func selectorLooksDisguised(ac *model.AnalysisContext) bool {
	if ac.Call.FunctionName != "" {
		return false
	}
	if len(ac.Calldata) < 4 {
		return false
	}
	// Unknown selector with a payload length matching a known transfer-style
	// call (4 + 2*32 or 4 + 3*32 bytes) is the disguise signal: the calldata
	// shape matches approve/transfer/transferFrom but the selector doesn't
	// resolve to any of them.
	payloadLen := len(ac.Calldata) - 4
	return payloadLen == 64 || payloadLen == 96
}
