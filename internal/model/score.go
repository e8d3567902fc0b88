package model

import "github.com/shieldcore/firewall/internal/config"

// RiskLevel is derived purely from the composite score.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// Archetype is derived from the dominant flag set on the final result.
type Archetype string

const (
	ArchetypeHoneypot       Archetype = "honeypot"
	ArchetypeRugPull        Archetype = "rug-pull"
	ArchetypeApprovalDrain  Archetype = "approval-drain"
	ArchetypeSignatureAbuse Archetype = "signature-abuse"
	ArchetypeSuspiciousNew  Archetype = "suspicious-new"
	ArchetypeClean          Archetype = "clean"
	ArchetypeUnknown        Archetype = "unknown"
)

// CategoryScore is one entry of the ShieldScore breakdown.
type CategoryScore struct {
	Tag        Tag
	Score      float64
	Weight     float64
	Partial    bool
	Confidence float64
}

// ShieldScore is the RiskEngine's pure output for one AnalysisContext.
type ShieldScore struct {
	Composite      float64 // [0,100]
	Breakdown      []CategoryScore
	CriticalFlags  []Flag // ordered, de-duplicated
	Level          RiskLevel
	Archetype      Archetype
	Confidence     float64 // [0,1]
	FailedSources  []string
	PolicyMode     config.PolicyMode
}
