// Package analyzer implements the six concrete risk analyzers: Structural,
// Market, Behavioral, Honeypot, IntentMismatch, and SignaturePermit.
package analyzer

import "github.com/shieldcore/firewall/internal/model"

// Base is embedded by every concrete analyzer to supply the declarative
// parts of the Analyzer contract (tag, weight, required/optional data
// dependencies), leaving Run as the only method each analyzer implements
// itself.
type Base struct {
	tag      model.Tag
	weight   float64
	required []string
	optional []string
}

func NewBase(tag model.Tag, weight float64, required, optional []string) Base {
	return Base{tag: tag, weight: weight, required: required, optional: optional}
}

func (b Base) Tag() model.Tag      { return b.tag }
func (b Base) Weight() float64     { return b.weight }
func (b Base) Required() []string  { return b.required }
func (b Base) Optional() []string  { return b.optional }
