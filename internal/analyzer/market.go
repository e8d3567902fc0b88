package analyzer

import (
	"context"

	"github.com/shieldcore/firewall/internal/intel"
	"github.com/shieldcore/firewall/internal/model"
)

// Market is the baseline-weight-0.25 analyzer: liquidity/pair-age/wash-score
// thresholds grounded in the teacher's bounded-delta factor accumulation
// idiom (risk_assessment.go's analyzeTransactionValue-style checks).
type Market struct {
	Base
	service *intel.MarketService
}

func NewMarket(service *intel.MarketService, weight float64) *Market {
	return &Market{
		Base:    NewBase(model.TagMarket, weight, []string{"intel.market"}, nil),
		service: service,
	}
}

// isTokenInteraction reports whether ac.Call looks like a token interaction, used for
// the "not a token" neutral-score short circuit.
func isTokenInteraction(ac *model.AnalysisContext) bool {
	switch ac.Call.FunctionName {
	case "approve(address,uint256)", "transfer(address,uint256)", "transferFrom(address,address,uint256)", "permit(address,address,uint256,uint256,uint8,bytes32,bytes32)":
		return true
	default:
		return false
	}
}

func (m *Market) Run(ctx context.Context, ac *model.AnalysisContext) model.AnalyzerResult {
	if !isTokenInteraction(ac) {
		return model.AnalyzerResult{Tag: m.Tag(), Score: 0, Confidence: 0}
	}

	record, err := m.service.Fetch(ctx, ac.Target)
	if err != nil {
		return model.AnalyzerResult{Tag: m.Tag(), Score: 0, Partial: true}
	}

	result := model.AnalyzerResult{Tag: m.Tag(), Confidence: 1.0}
	if !record.HasPair {
		result.AddFlag(model.FlagNoLiquidity)
		result.Score = 30
		return result
	}

	score := 0.0
	switch {
	case record.LiquidityUSD < 2000:
		score += 40
	case record.LiquidityUSD < 10000:
		score += 25
	}
	switch {
	case record.PairAgeSeconds < 3600:
		score += 25
	case record.PairAgeSeconds < 86400:
		score += 15
	}
	if record.FDVUSD > 0 && record.Volume24hUSD/record.FDVUSD > volumeFDVAnomalyThreshold {
		score += 20
	}
	washDelta := record.WashScore * 15
	if washDelta > 15 {
		washDelta = 15
	}
	score += washDelta

	if score > 100 {
		score = 100
	}
	result.Score = score
	result.Payload = record
	return result
}

// volumeFDVAnomalyThreshold is the ratio above which 24h volume relative to
// fully-diluted valuation is treated as wash-trading-like anomaly.
const volumeFDVAnomalyThreshold = 5.0
