package model

// VerdictAction is the policy's final ALLOW/WARN/BLOCK decision.
type VerdictAction string

const (
	ActionAllow VerdictAction = "ALLOW"
	ActionWarn  VerdictAction = "WARN"
	ActionBlock VerdictAction = "BLOCK"
)

// Verdict is returned by the ScanAPI, the FirewallAPI, and the RPCProxy's
// interception path. VerdictID is only populated for WARN/BLOCK, and is the
// stable key used for outcome tracking and forensic-report lookup.
type Verdict struct {
	Action      VerdictAction
	Score       ShieldScore
	Explanation string
	VerdictID   string // empty for ALLOW
	ForensicURL string // set only when forensic upload was triggered
}

// ForensicReport is the append-only artifact handed to the immutable-storage
// collaborator for any verdict with composite >= the configured threshold
// (spec §4.5); the collaborator itself is out of scope (spec §1), so this
// is only the payload shape and the ForensicUploader interface contract.
type ForensicReport struct {
	VerdictID string
	Score     ShieldScore
}
