package analysis

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/shieldcore/firewall/internal/model"
)

type stubAnalyzer struct {
	tag    model.Tag
	weight float64
}

func (s stubAnalyzer) Tag() model.Tag     { return s.tag }
func (s stubAnalyzer) Weight() float64    { return s.weight }
func (s stubAnalyzer) Required() []string { return nil }
func (s stubAnalyzer) Optional() []string { return nil }
func (s stubAnalyzer) Run(context.Context, *model.AnalysisContext) model.AnalyzerResult {
	return model.AnalyzerResult{Tag: s.tag}
}

func TestNewRegistryNormalizesBaseWeightsTo1(t *testing.T) {
	reg := NewRegistry(
		stubAnalyzer{tag: model.TagStructural, weight: 0.40},
		stubAnalyzer{tag: model.TagMarket, weight: 0.20},
		stubAnalyzer{tag: model.TagIntentMismatch, weight: 0},
	)

	var sum float64
	for _, a := range reg.All() {
		sum += a.Weight()
	}
	// normalized base weights sum to 1.0; the additive (weight-0) analyzer
	// contributes nothing and stays at 0.
	assert.InDelta(t, 1.0, sum, 1e-9)

	for _, a := range reg.All() {
		if a.Tag() == model.TagIntentMismatch {
			assert.Equal(t, 0.0, a.Weight())
		}
	}
}

func TestNewRegistryPreservesRelativeWeightRatios(t *testing.T) {
	reg := NewRegistry(
		stubAnalyzer{tag: model.TagStructural, weight: 0.60},
		stubAnalyzer{tag: model.TagMarket, weight: 0.20},
	)
	var structural, market float64
	for _, a := range reg.All() {
		switch a.Tag() {
		case model.TagStructural:
			structural = a.Weight()
		case model.TagMarket:
			market = a.Weight()
		}
	}
	assert.InDelta(t, 3.0, structural/market, 1e-9)
}

func TestNewRegistryAllZeroWeightsLeavesWeightsUntouched(t *testing.T) {
	reg := NewRegistry(
		stubAnalyzer{tag: model.TagIntentMismatch, weight: 0},
		stubAnalyzer{tag: model.TagSignaturePermit, weight: 0},
	)
	for _, a := range reg.All() {
		assert.Equal(t, 0.0, a.Weight())
	}
}

func TestNewRegistryPreservesUnderlyingRunBehavior(t *testing.T) {
	reg := NewRegistry(stubAnalyzer{tag: model.TagStructural, weight: 1})
	result := reg.All()[0].Run(context.Background(), nil)
	assert.Equal(t, model.TagStructural, result.Tag)
}
