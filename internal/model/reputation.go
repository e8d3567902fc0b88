package model

import "time"

// VerificationState mirrors ChainAdapter.VerificationInfo's verified flag
// plus whatever coarse state the explorer exposes.
type VerificationState string

const (
	VerificationVerified   VerificationState = "verified"
	VerificationUnverified VerificationState = "unverified"
	VerificationUnknown    VerificationState = "unknown"
)

// ContractReputation is the ReputationStore's exclusively-owned row for one
// (chain_id, address). Analyzers and the RiskEngine only ever read it.
type ContractReputation struct {
	ChainID          int64
	Address          Address
	LastScore        ShieldScore
	UpdatedAt        time.Time
	Creator          *Address
	FirstSeenBlock   uint64
	Verification     VerificationState
	ScamListFlags    []string
	BlockCount       int
	WarnCount        int
	AllowCount       int
}

// RecordOutcomeAction bumps the rolling BLOCK/WARN/ALLOW counters for action.
func (c *ContractReputation) RecordOutcomeAction(action VerdictAction) {
	switch action {
	case ActionBlock:
		c.BlockCount++
	case ActionWarn:
		c.WarnCount++
	case ActionAllow:
		c.AllowCount++
	}
}
