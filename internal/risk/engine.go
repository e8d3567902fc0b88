// Package risk implements the RiskEngine: a pure, deterministic composer
// that turns the analyzer pipeline's collected results into a single
// ShieldScore, grounded in the teacher's weighted-sum-then-grade risk
// scoring idiom (risk_assessment.go's calculateOverallRisk), generalized
// here to the escalation-floor / reduction / archetype rules of spec §4.4.
package risk

import (
	"sort"

	"github.com/shieldcore/firewall/internal/analysis"
	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
)

// Config holds the engine's one tunable, resolving the additive-bonus-cap
// Open Question from spec §9: the sum of weighted base score plus
// IntentMismatch/SignaturePermit bonuses is capped at AdditiveBonusCap
// before escalation floors/reductions are applied, so a pile of additive
// bonuses alone can never force the composite past this ceiling.
type Config struct {
	AdditiveBonusCap float64
}

func DefaultConfig() Config {
	return Config{AdditiveBonusCap: 100}
}

// Engine composes AnalyzerResults into a ShieldScore. It holds no
// request-scoped state; Compose is the only method and is pure.
type Engine struct {
	cfg Config
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

const highConfidenceWeightThreshold = 0.15

// Compose implements spec §4.4's seven-step composition. Same inputs
// always yield the same output; Compose performs no I/O.
func (e *Engine) Compose(reg *analysis.Registry, results []model.AnalyzerResult, mode config.PolicyMode) model.ShieldScore {
	byTag := make(map[model.Tag]model.AnalyzerResult, len(results))
	for _, r := range results {
		byTag[r.Tag] = r
	}

	// Step 1: weighted base composition over the non-additive analyzers.
	var base float64
	breakdown := make([]model.CategoryScore, 0, len(results))
	var failedSources []string
	for _, a := range reg.All() {
		r, ok := byTag[a.Tag()]
		if !ok {
			r = model.AnalyzerResult{Tag: a.Tag(), Partial: true}
		}
		if a.Weight() > 0 {
			base += r.Score * a.Weight()
		}
		if r.Partial {
			failedSources = append(failedSources, string(a.Tag()))
		}
		breakdown = append(breakdown, model.CategoryScore{
			Tag:        a.Tag(),
			Score:      r.Score,
			Weight:     a.Weight(),
			Partial:    r.Partial,
			Confidence: r.Confidence,
		})
	}

	// Step 2: additive bonuses from the weight-0 analyzers, capped.
	composite := base
	if r, ok := byTag[model.TagIntentMismatch]; ok {
		composite += r.Score
	}
	if r, ok := byTag[model.TagSignaturePermit]; ok {
		composite += r.Score
	}
	cap := e.cfg.AdditiveBonusCap
	if cap <= 0 {
		cap = 100
	}
	if composite > cap {
		composite = cap
	}

	criticalFlags := collectFlags(results)

	// Step 3: escalation floors, first match wins.
	marketScore := byTag[model.TagMarket].Score
	floor := 0.0
	switch {
	case hasFlag(criticalFlags, model.FlagHoneypotConfirmed):
		floor = 80
	case isRugPullPattern(criticalFlags, marketScore):
		floor = 85
	case hasFlag(criticalFlags, model.FlagContractDestroyed):
		floor = 95
	case hasFlag(criticalFlags, model.FlagZeroPriceOrder):
		floor = 90
	}
	composite = floorAt(composite, floor)

	// Step 4: reductions, never below the escalation floor established above.
	if ownerRenouncedVerifiedAged(criticalFlags) && highLiquidity(byTag) {
		composite -= 20
	}
	if composite < floor {
		composite = floor
	}
	if composite < 0 {
		composite = 0
	}
	if composite > 100 {
		composite = 100
	}

	level := levelFor(composite)
	confidence := e.confidence(reg, byTag)
	archetype := archetypeFor(criticalFlags)

	return model.ShieldScore{
		Composite:     composite,
		Breakdown:     breakdown,
		CriticalFlags: criticalFlags,
		Level:         level,
		Archetype:     archetype,
		Confidence:    confidence,
		FailedSources: failedSources,
		PolicyMode:    mode,
	}
}

func floorAt(composite, floor float64) float64 {
	if composite < floor {
		return floor
	}
	return composite
}

func collectFlags(results []model.AnalyzerResult) []model.Flag {
	seen := make(map[model.Flag]bool)
	var out []model.Flag
	for _, r := range results {
		for _, f := range r.Flags {
			if !seen[f] {
				seen[f] = true
				out = append(out, f)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func hasFlag(flags []model.Flag, target model.Flag) bool {
	for _, f := range flags {
		if f == target {
			return true
		}
	}
	return false
}

func isRugPullPattern(flags []model.Flag, marketScore float64) bool {
	mintOrProxy := hasFlag(flags, model.FlagMintOpen) || hasFlag(flags, model.FlagUpgradeableProxy)
	return mintOrProxy && hasFlag(flags, model.FlagOwnerActive) && marketScore >= 40
}

func ownerRenouncedVerifiedAged(flags []model.Flag) bool {
	// CONTRACT_AGED is only raised by Structural when verified and
	// AgeSeconds > 180 days, so this is exact rather than an
	// absence-of-NEW_CONTRACT proxy (NEW_CONTRACT only rules out age < 7d).
	return !hasFlag(flags, model.FlagOwnerActive) &&
		!hasFlag(flags, model.FlagUnverified) &&
		hasFlag(flags, model.FlagContractAged)
}

func highLiquidity(byTag map[model.Tag]model.AnalyzerResult) bool {
	r, ok := byTag[model.TagMarket]
	if !ok {
		return false
	}
	type liquidityPayload interface{ LiquidityUSDValue() float64 }
	if p, ok := r.Payload.(liquidityPayload); ok {
		return p.LiquidityUSDValue() > 250000
	}
	return false
}

func levelFor(composite float64) model.RiskLevel {
	switch {
	case composite < 31:
		return model.RiskLow
	case composite <= 70:
		return model.RiskMedium
	default:
		return model.RiskHigh
	}
}

// confidence implements step 6: a weighted mean of per-analyzer
// confidences scaled by the fraction of required services that responded,
// capped at 0.6 if any required dependency of a weight>0.15 analyzer
// failed.
func (e *Engine) confidence(reg *analysis.Registry, byTag map[model.Tag]model.AnalyzerResult) float64 {
	var weightedSum, weightTotal float64
	requiredTotal, requiredResponded := 0, 0
	degraded := false

	for _, a := range reg.All() {
		r, ok := byTag[a.Tag()]
		w := a.Weight()
		if w <= 0 {
			w = 0.01 // additive analyzers still contribute to the mean, lightly
		}
		weightedSum += r.Confidence * w
		weightTotal += w

		for range a.Required() {
			requiredTotal++
			if ok && !r.Partial {
				requiredResponded++
			}
		}
		if a.Weight() > highConfidenceWeightThreshold && (!ok || r.Partial) {
			degraded = true
		}
	}

	mean := 0.0
	if weightTotal > 0 {
		mean = weightedSum / weightTotal
	}
	fraction := 1.0
	if requiredTotal > 0 {
		fraction = float64(requiredResponded) / float64(requiredTotal)
	}
	conf := mean * fraction
	if degraded && conf > 0.6 {
		conf = 0.6
	}
	if conf < 0 {
		conf = 0
	}
	if conf > 1 {
		conf = 1
	}
	return conf
}

// archetypeFor implements step 7's deterministic, priority-ordered mapping.
func archetypeFor(flags []model.Flag) model.Archetype {
	switch {
	case hasFlag(flags, model.FlagHoneypotConfirmed):
		return model.ArchetypeHoneypot
	case hasFlag(flags, model.FlagZeroPriceOrder):
		return model.ArchetypeRugPull
	case hasFlag(flags, model.FlagContractDestroyed) || hasFlag(flags, model.FlagSelfdestructCapable):
		return model.ArchetypeRugPull
	case hasFlag(flags, model.FlagMintOpen) || hasFlag(flags, model.FlagUpgradeableProxy):
		return model.ArchetypeRugPull
	case hasFlag(flags, model.FlagUnlimitedApproval) || hasFlag(flags, model.FlagDisguisedSelector):
		return model.ArchetypeApprovalDrain
	case hasFlag(flags, model.FlagPermitUnlimited):
		return model.ArchetypeSignatureAbuse
	case hasFlag(flags, model.FlagNewContract) || hasFlag(flags, model.FlagUnverified):
		return model.ArchetypeSuspiciousNew
	case len(flags) == 0:
		return model.ArchetypeClean
	default:
		return model.ArchetypeUnknown
	}
}
