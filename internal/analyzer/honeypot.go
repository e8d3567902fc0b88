package analyzer

import (
	"context"

	"github.com/shieldcore/firewall/internal/chain"
	"github.com/shieldcore/firewall/internal/intel"
	"github.com/shieldcore/firewall/internal/model"
)

// Honeypot is the baseline-weight-0.15 analyzer: simulation-first with
// ReadView fallback, grounded in the teacher's checkHoneypotPatterns and
// RiskConfig whitelist-skip idiom.
type Honeypot struct {
	Base
	service   *intel.HoneypotService
	adapter   chain.Adapter
	whitelist map[string]bool // chainID:0xhex -> skip external call
}

func NewHoneypot(service *intel.HoneypotService, adapter chain.Adapter, whitelist map[string]bool, weight float64) *Honeypot {
	return &Honeypot{
		Base:      NewBase(model.TagHoneypot, weight, []string{"intel.honeypot"}, []string{"chain.Simulate"}),
		service:   service,
		adapter:   adapter,
		whitelist: whitelist,
	}
}

func (h *Honeypot) Run(ctx context.Context, ac *model.AnalysisContext) model.AnalyzerResult {
	if h.whitelist[ac.Target.String()] {
		return model.AnalyzerResult{Tag: h.Tag(), Score: 0, Confidence: 1.0}
	}

	record, err := h.service.Fetch(ctx, ac.Target)
	if err != nil {
		return h.fallbackSimulate(ctx, ac)
	}

	result := model.AnalyzerResult{Tag: h.Tag(), Confidence: 1.0, Payload: record}
	score := 0.0

	if record.IsHoneypot != nil && *record.IsHoneypot {
		score = 80
		result.AddFlag(model.FlagHoneypotConfirmed)
	}
	if record.SellTax >= 0.50 {
		score = max(score, 60)
	}
	if record.BuyTax >= 0.15 || record.SellTax >= 0.15 {
		score = max(score, 25)
	}
	if record.CanSell == intel.TriNo && record.Reason != "" {
		score = max(score, 40)
	}

	if score > 100 {
		score = 100
	}
	result.Score = score
	return result
}

// fallbackSimulate degrades gracefully when the honeypot service is
// unavailable: attempt Simulate directly via the chain adapter. Absence of
// a simulation backend (spec §4.1) yields a partial, zero-confidence result
// rather than a hard failure.
func (h *Honeypot) fallbackSimulate(ctx context.Context, ac *model.AnalysisContext) model.AnalyzerResult {
	from := ac.Target
	if ac.From != nil {
		from = *ac.From
	}
	sim, err := h.adapter.Simulate(ctx, chain.Tx{From: from, To: &ac.Target, Value: ac.ValueOrZero(), Data: ac.Calldata})
	if err != nil {
		return model.AnalyzerResult{Tag: h.Tag(), Score: 0, Partial: true}
	}
	if !sim.Success {
		return model.AnalyzerResult{
			Tag:     h.Tag(),
			Score:   40,
			Partial: true,
		}
	}
	return model.AnalyzerResult{Tag: h.Tag(), Score: 0, Partial: true, Confidence: 0.5}
}
