// Package analysis defines the Analyzer contract and the AnalyzerRegistry
// that holds the active, weight-normalized set of analyzers.
package analysis

import (
	"context"

	"github.com/shieldcore/firewall/internal/model"
)

// Analyzer is one risk category: Structural, Market, Behavioral, Honeypot,
// IntentMismatch, SignaturePermit. IntentMismatch and SignaturePermit carry
// weight 0 (additive bonuses, not part of the weighted base composition)
// but are registered the same way as every other analyzer.
type Analyzer interface {
	Tag() model.Tag
	Weight() float64
	Required() []string
	Optional() []string
	Run(ctx context.Context, ac *model.AnalysisContext) model.AnalyzerResult
}

// Registry is the set of active analyzers; weight normalization happens
// here at registration time, matching spec §2's AnalyzerRegistry
// responsibility. Registries are built once at startup via the service
// container, not mutated at request time.
type Registry struct {
	analyzers []Analyzer
}

// NewRegistry builds a Registry from the given analyzers, normalizing the
// weights of every analyzer whose Weight() > 0 (the additive-bonus
// analyzers, IntentMismatch/SignaturePermit, keep weight 0 and are excluded
// from normalization — spec invariant 2: the sum of base weights is 1.0).
func NewRegistry(analyzers ...Analyzer) *Registry {
	r := &Registry{analyzers: analyzers}
	r.normalize()
	return r
}

func (r *Registry) normalize() {
	var sum float64
	for _, a := range r.analyzers {
		if a.Weight() > 0 {
			sum += a.Weight()
		}
	}
	if sum == 0 {
		return
	}
	for i, a := range r.analyzers {
		if a.Weight() > 0 {
			if wrapped, ok := a.(*weighted); ok {
				wrapped.w = wrapped.w / sum
			} else {
				r.analyzers[i] = &weighted{Analyzer: a, w: a.Weight() / sum}
			}
		}
	}
}

// All returns every registered analyzer, base weight and additive alike.
func (r *Registry) All() []Analyzer {
	return r.analyzers
}

// weighted overrides Weight() with a renormalized value without mutating
// the wrapped analyzer's own fields.
type weighted struct {
	Analyzer
	w float64
}

func (w *weighted) Weight() float64 { return w.w }
