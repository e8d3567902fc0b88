package analyzer

import (
	"context"
	"math/big"
	"testing"

	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"

	"github.com/shieldcore/firewall/internal/model"
)

func TestIntentMismatchFlagsUnlimitedApprovalAtMaxUint256(t *testing.T) {
	m := NewIntentMismatch()
	ac := &model.AnalysisContext{
		Call: model.DecodedCall{
			FunctionName: "approve(address,uint256)",
			Args:         map[string]any{"arg1": new(big.Int).Set(maxUint256)},
		},
	}
	result := m.Run(context.Background(), ac)
	assert.True(t, result.HasFlag(model.FlagUnlimitedApproval))
	assert.GreaterOrEqual(t, result.Score, 25.0)
}

func TestIntentMismatchFlagsUnlimitedApprovalAboveThreshold(t *testing.T) {
	m := NewIntentMismatch()
	huge := new(big.Int).Mul(big.NewInt(2_000_000_000), big.NewInt(1_000_000_000_000_000_000))
	ac := &model.AnalysisContext{
		Call: model.DecodedCall{
			FunctionName: "approve(address,uint256)",
			Args:         map[string]any{"arg1": huge},
		},
	}
	result := m.Run(context.Background(), ac)
	assert.True(t, result.HasFlag(model.FlagUnlimitedApproval))
}

func TestIntentMismatchIgnoresSmallApproval(t *testing.T) {
	m := NewIntentMismatch()
	ac := &model.AnalysisContext{
		Call: model.DecodedCall{
			FunctionName: "approve(address,uint256)",
			Args:         map[string]any{"arg1": big.NewInt(1000)},
		},
	}
	result := m.Run(context.Background(), ac)
	assert.False(t, result.HasFlag(model.FlagUnlimitedApproval))
	assert.Equal(t, 0.0, result.Score)
}

func TestIntentMismatchTransferFromMismatchedDestination(t *testing.T) {
	m := NewIntentMismatch()
	from := model.Address{}
	from, _ = model.NewAddress(1, "0x1111111111111111111111111111111111111111")
	ac := &model.AnalysisContext{
		From: &from,
		Call: model.DecodedCall{
			FunctionName: "transferFrom(address,address,uint256)",
			Args: map[string]any{
				"arg1": ethcommon.HexToAddress("0x2222222222222222222222222222222222222222"),
			},
		},
	}
	result := m.Run(context.Background(), ac)
	assert.Greater(t, result.Score, 0.0)
}

func TestIntentMismatchTransferFromDestinationMatchingFromNoPenalty(t *testing.T) {
	m := NewIntentMismatch()
	from, _ := model.NewAddress(1, "0x1111111111111111111111111111111111111111")
	ac := &model.AnalysisContext{
		From: &from,
		Call: model.DecodedCall{
			FunctionName: "transferFrom(address,address,uint256)",
			Args: map[string]any{
				"arg1": ethcommon.HexToAddress("0x1111111111111111111111111111111111111111"),
			},
		},
	}
	result := m.Run(context.Background(), ac)
	assert.Equal(t, 0.0, result.Score)
}

func TestIntentMismatchDisguisedSelectorUnknownFunctionMatchingTransferShape(t *testing.T) {
	m := NewIntentMismatch()
	ac := &model.AnalysisContext{
		Call:     model.DecodedCall{}, // unknown function name
		Calldata: make([]byte, 4+64),  // selector + 2 words, looks like transfer()
	}
	result := m.Run(context.Background(), ac)
	assert.True(t, result.HasFlag(model.FlagDisguisedSelector))
	assert.GreaterOrEqual(t, result.Score, 35.0)
}

func TestIntentMismatchNotDisguisedWhenFunctionNameKnown(t *testing.T) {
	m := NewIntentMismatch()
	ac := &model.AnalysisContext{
		Call:     model.DecodedCall{FunctionName: "transfer(address,uint256)"},
		Calldata: make([]byte, 4+64),
	}
	result := m.Run(context.Background(), ac)
	assert.False(t, result.HasFlag(model.FlagDisguisedSelector))
}

func TestIntentMismatchNotDisguisedWhenPayloadLengthUnrecognized(t *testing.T) {
	m := NewIntentMismatch()
	ac := &model.AnalysisContext{
		Call:     model.DecodedCall{},
		Calldata: make([]byte, 4+10),
	}
	result := m.Run(context.Background(), ac)
	assert.False(t, result.HasFlag(model.FlagDisguisedSelector))
}

func TestIntentMismatchScoreNeverExceeds100(t *testing.T) {
	m := NewIntentMismatch()
	ac := &model.AnalysisContext{
		Call:     model.DecodedCall{}, // unknown function -> only the disguise check can fire
		Calldata: make([]byte, 4+64),
	}
	result := m.Run(context.Background(), ac)
	assert.LessOrEqual(t, result.Score, 100.0)
}
