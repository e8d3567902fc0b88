package risk

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shieldcore/firewall/internal/analysis"
	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
)

// fakeAnalyzer is a minimal analysis.Analyzer stand-in so tests can build an
// analysis.Registry without the real analyzer packages (which need live
// chain adapters / intel services).
type fakeAnalyzer struct {
	tag    model.Tag
	weight float64
}

func (f fakeAnalyzer) Tag() model.Tag                                        { return f.tag }
func (f fakeAnalyzer) Weight() float64                                       { return f.weight }
func (f fakeAnalyzer) Required() []string                                    { return nil }
func (f fakeAnalyzer) Optional() []string                                    { return nil }
func (f fakeAnalyzer) Run(context.Context, *model.AnalysisContext) model.AnalyzerResult {
	return model.AnalyzerResult{}
}

func baseRegistry() *analysis.Registry {
	return analysis.NewRegistry(
		fakeAnalyzer{tag: model.TagStructural, weight: 0.30},
		fakeAnalyzer{tag: model.TagMarket, weight: 0.25},
		fakeAnalyzer{tag: model.TagBehavioral, weight: 0.25},
		fakeAnalyzer{tag: model.TagHoneypot, weight: 0.20},
		fakeAnalyzer{tag: model.TagIntentMismatch, weight: 0},
		fakeAnalyzer{tag: model.TagSignaturePermit, weight: 0},
	)
}

func result(tag model.Tag, score float64, flags ...model.Flag) model.AnalyzerResult {
	return model.AnalyzerResult{Tag: tag, Score: score, Flags: flags, Confidence: 1}
}

func TestComposeWeightedBase(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	results := []model.AnalyzerResult{
		result(model.TagStructural, 10),
		result(model.TagMarket, 10),
		result(model.TagBehavioral, 10),
		result(model.TagHoneypot, 10),
	}

	score := e.Compose(reg, results, config.PolicyBalanced)

	assert.InDelta(t, 10, score.Composite, 0.001)
	assert.Equal(t, model.RiskLow, score.Level)
	assert.Empty(t, score.CriticalFlags)
	assert.Equal(t, model.ArchetypeClean, score.Archetype)
}

func TestComposeAdditiveBonusCapped(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(Config{AdditiveBonusCap: 100})

	results := []model.AnalyzerResult{
		result(model.TagStructural, 100),
		result(model.TagMarket, 100),
		result(model.TagBehavioral, 100),
		result(model.TagHoneypot, 100),
		result(model.TagIntentMismatch, 50),
		result(model.TagSignaturePermit, 50),
	}

	score := e.Compose(reg, results, config.PolicyBalanced)

	assert.Equal(t, 100.0, score.Composite)
}

func TestComposeHoneypotFloor(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	results := []model.AnalyzerResult{
		result(model.TagStructural, 5),
		result(model.TagMarket, 5),
		result(model.TagBehavioral, 5),
		result(model.TagHoneypot, 5, model.FlagHoneypotConfirmed),
	}

	score := e.Compose(reg, results, config.PolicyBalanced)

	assert.GreaterOrEqual(t, score.Composite, 80.0)
	assert.Equal(t, model.RiskHigh, score.Level)
	assert.Equal(t, model.ArchetypeHoneypot, score.Archetype)
}

func TestComposeRugPullFloorRequiresAllThreeConditions(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	// MINT_OPEN + OWNER_ACTIVE but low liquidity score: rug-pull floor
	// must NOT apply (marketScore < 40).
	results := []model.AnalyzerResult{
		result(model.TagStructural, 20, model.FlagMintOpen, model.FlagOwnerActive),
		result(model.TagMarket, 10),
		result(model.TagBehavioral, 5),
		result(model.TagHoneypot, 5),
	}
	score := e.Compose(reg, results, config.PolicyBalanced)
	assert.Less(t, score.Composite, 85.0)

	// Same flags but with marketScore >= 40: floor applies.
	results[1] = result(model.TagMarket, 40, model.FlagOwnerActive)
	score = e.Compose(reg, results, config.PolicyBalanced)
	assert.GreaterOrEqual(t, score.Composite, 85.0)
	assert.Equal(t, model.ArchetypeRugPull, score.Archetype)
}

func TestComposeContractDestroyedFloor(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	results := []model.AnalyzerResult{
		result(model.TagStructural, 5, model.FlagContractDestroyed),
		result(model.TagMarket, 5),
		result(model.TagBehavioral, 5),
		result(model.TagHoneypot, 5),
	}
	score := e.Compose(reg, results, config.PolicyBalanced)
	assert.GreaterOrEqual(t, score.Composite, 95.0)
}

func TestComposeReductionNeverBelowFloor(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	// Honeypot floor (80) applies, and the owner-renounced/high-liquidity
	// reduction would normally subtract 20 -- but it must never push the
	// composite below the floor just established.
	liquid := marketPayloadStub{liquidity: 300000}
	results := []model.AnalyzerResult{
		result(model.TagStructural, 5, model.FlagContractAged), // renounced, verified, age > 180d
		{Tag: model.TagMarket, Score: 5, Confidence: 1, Payload: liquid},
		result(model.TagBehavioral, 5),
		result(model.TagHoneypot, 5, model.FlagHoneypotConfirmed),
	}
	score := e.Compose(reg, results, config.PolicyBalanced)
	assert.GreaterOrEqual(t, score.Composite, 80.0)
}

func TestComposeReductionAppliesWithoutFloor(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	liquid := marketPayloadStub{liquidity: 300000}
	results := []model.AnalyzerResult{
		result(model.TagStructural, 60, model.FlagContractAged), // renounced, verified, age > 180d
		{Tag: model.TagMarket, Score: 60, Confidence: 1, Payload: liquid},
		result(model.TagBehavioral, 60),
		result(model.TagHoneypot, 60),
	}
	withoutReduction := 60.0

	score := e.Compose(reg, results, config.PolicyBalanced)
	assert.Less(t, score.Composite, withoutReduction)
}

func TestComposeReductionNotAppliedWithoutContractAgedFlag(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	// Owner renounced (no OWNER_ACTIVE/UNVERIFIED) and high liquidity, but
	// Structural never raised CONTRACT_AGED -- e.g. a 60-day-old contract,
	// which clears NEW_CONTRACT (age >= 7d) without being > 180d old. The
	// -20 reduction must not apply.
	liquid := marketPayloadStub{liquidity: 300000}
	results := []model.AnalyzerResult{
		result(model.TagStructural, 60),
		{Tag: model.TagMarket, Score: 60, Confidence: 1, Payload: liquid},
		result(model.TagBehavioral, 60),
		result(model.TagHoneypot, 60),
	}

	withoutAged := e.Compose(reg, results, config.PolicyBalanced)

	results[0] = result(model.TagStructural, 60, model.FlagContractAged)
	withAged := e.Compose(reg, results, config.PolicyBalanced)

	assert.Greater(t, withoutAged.Composite, withAged.Composite)
}

func TestComposePartialSourceAppearsInFailedSources(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	results := []model.AnalyzerResult{
		result(model.TagStructural, 10),
		{Tag: model.TagMarket, Partial: true},
		result(model.TagBehavioral, 10),
		result(model.TagHoneypot, 10),
	}
	score := e.Compose(reg, results, config.PolicyBalanced)
	assert.Contains(t, score.FailedSources, string(model.TagMarket))
	assert.Less(t, score.Confidence, 1.0)
}

func TestComposeConfidenceCappedWhenHighWeightAnalyzerDegraded(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	results := []model.AnalyzerResult{
		{Tag: model.TagStructural, Partial: true, Confidence: 0}, // weight 0.30 > threshold
		result(model.TagMarket, 10),
		result(model.TagBehavioral, 10),
		result(model.TagHoneypot, 10),
	}
	for i := range results[1:] {
		results[i+1].Confidence = 1
	}
	score := e.Compose(reg, results, config.PolicyBalanced)
	assert.LessOrEqual(t, score.Confidence, 0.6)
}

func TestComposeCompositeNeverExceeds100OrBelowZero(t *testing.T) {
	reg := baseRegistry()
	e := NewEngine(DefaultConfig())

	results := []model.AnalyzerResult{
		result(model.TagStructural, 1000),
		result(model.TagMarket, 1000),
		result(model.TagBehavioral, 1000),
		result(model.TagHoneypot, 1000),
	}
	score := e.Compose(reg, results, config.PolicyBalanced)
	assert.LessOrEqual(t, score.Composite, 100.0)

	results = []model.AnalyzerResult{
		result(model.TagStructural, -50),
		result(model.TagMarket, -50),
		result(model.TagBehavioral, -50),
		result(model.TagHoneypot, -50),
	}
	score = e.Compose(reg, results, config.PolicyBalanced)
	assert.GreaterOrEqual(t, score.Composite, 0.0)
}

func TestArchetypeForPriority(t *testing.T) {
	cases := []struct {
		name  string
		flags []model.Flag
		want  model.Archetype
	}{
		{"honeypot beats everything", []model.Flag{model.FlagHoneypotConfirmed, model.FlagMintOpen}, model.ArchetypeHoneypot},
		{"zero price order is rug-pull", []model.Flag{model.FlagZeroPriceOrder}, model.ArchetypeRugPull},
		{"unlimited approval is approval-drain", []model.Flag{model.FlagUnlimitedApproval}, model.ArchetypeApprovalDrain},
		{"permit unlimited is signature-abuse", []model.Flag{model.FlagPermitUnlimited}, model.ArchetypeSignatureAbuse},
		{"new contract is suspicious-new", []model.Flag{model.FlagNewContract}, model.ArchetypeSuspiciousNew},
		{"no flags is clean", nil, model.ArchetypeClean},
		{"unmapped flag is unknown", []model.Flag{model.FlagNoLiquidity}, model.ArchetypeUnknown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, archetypeFor(tc.flags))
		})
	}
}

type marketPayloadStub struct{ liquidity float64 }

func (m marketPayloadStub) LiquidityUSDValue() float64 { return m.liquidity }
