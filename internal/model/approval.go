package model

// SpenderRiskLevel classifies an approval's spender for the rescue scanner.
type SpenderRiskLevel string

const (
	SpenderLow    SpenderRiskLevel = "low"
	SpenderMedium SpenderRiskLevel = "medium"
	SpenderHigh   SpenderRiskLevel = "high"
)

// ApprovalRecord is one ERC-20/ERC-721 allowance discovered by
// ChainAdapter.ListApprovals, enriched by RescueScanner with a risk level.
type ApprovalRecord struct {
	Wallet          Address
	Token           Address
	Spender         Address
	Allowance       string // decimal string; may exceed uint64/float64 precision
	LastUpdatedBlock uint64
	SpenderRisk     SpenderRiskLevel
}

// AlertKind classifies a MempoolAlert.
type AlertKind string

const (
	AlertSandwich            AlertKind = "sandwich"
	AlertFrontrun            AlertKind = "frontrun"
	AlertSuspiciousApproval  AlertKind = "suspicious-approval"
)
