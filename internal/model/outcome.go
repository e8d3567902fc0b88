package model

import "time"

// UserDecision records what the user did with a WARN/BLOCK verdict.
type UserDecision string

const (
	DecisionProceeded UserDecision = "proceeded"
	DecisionCancelled UserDecision = "cancelled"
)

// DownstreamSignal is later calibration feedback on an OutcomeEvent.
type DownstreamSignal string

const (
	SignalNone         DownstreamSignal = "none"
	SignalLossReported DownstreamSignal = "loss_reported"
	SignalSafeConfirmed DownstreamSignal = "safe_confirmed"
)

// OutcomeEvent is an append-only record fed into calibration. OutcomeEvents
// are totally ordered by insertion per store; consumers must not assume
// total order across stores.
type OutcomeEvent struct {
	VerdictID        string
	Decision         UserDecision
	DownstreamSignal DownstreamSignal
	Timestamp        time.Time
}

// ReportKind classifies a CommunityReport.
type ReportKind string

const (
	ReportScam          ReportKind = "scam"
	ReportFalsePositive ReportKind = "false-positive"
)

// CommunityReport is an append-only user-submitted report against an address.
type CommunityReport struct {
	Reporter  string
	Target    Address
	Kind      ReportKind
	Note      string
	Timestamp time.Time
}
