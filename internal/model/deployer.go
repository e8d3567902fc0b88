package model

import "time"

// DeployerContract is one edge of the creator -> contract arena table.
type DeployerContract struct {
	Deployer  Address
	Contract  Address
	CreatedAt time.Time
}

// FunderEdge is one edge of the funder -> deployer arena table: funder's
// first observed value transfer into deployer, excluding known exchanges
// and bridges.
type FunderEdge struct {
	Funder          Address
	Deployer        Address
	FirstFundedAt   time.Time
}

// Campaign is the CampaignCorrelator's read-model summary for a cluster of
// deployers that share a funder.
type Campaign struct {
	IsCampaign bool
	Severity   string // "low" | "medium" | "high"
	FunderRoot *Address
	Contracts  []DeployerContract
	Indicators []string
	FirstSeen  time.Time
	HighRiskRatio float64
}
