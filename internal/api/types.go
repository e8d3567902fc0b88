// Package api implements the eight HTTP endpoints of spec §6 as Gin
// handlers over the service container, grounded in the teacher's
// handlers-as-closures idiom (cmd/auth-service/main.go's handleRegister
// etc.) adapted to gin.HandlerFunc.
package api

import (
	"github.com/shieldcore/firewall/internal/model"
)

// ScanRequest is POST /api/scan's body.
type ScanRequest struct {
	Address string `json:"address" binding:"required"`
	ChainID int64  `json:"chain_id" binding:"required"`
}

// ScanResult is the shared payload of /api/scan and the base of
// /api/firewall's response.
type ScanResult struct {
	Score       model.ShieldScore `json:"score"`
	Partial     bool              `json:"partial"`
	ForensicURL string            `json:"forensic_url,omitempty"`
}

// FirewallRequest is POST /api/firewall's body: a transaction or signing
// request to evaluate before the wallet submits it.
type FirewallRequest struct {
	To         string            `json:"to" binding:"required"`
	From       string            `json:"from,omitempty"`
	Value      string            `json:"value,omitempty"`
	Data       string            `json:"data,omitempty"`
	ChainID    int64             `json:"chain_id" binding:"required"`
	TypedData  *TypedDataRequest `json:"typed_data,omitempty"`
	SignMethod string            `json:"sign_method,omitempty"`
}

// TypedDataRequest mirrors rpcproxy's typedDataParams for the HTTP surface.
type TypedDataRequest struct {
	PrimaryType string         `json:"primary_type"`
	Domain      map[string]any `json:"domain"`
	Message     map[string]any `json:"message"`
}

// TransactionImpact is FirewallResult's plain-language summary of what the
// transaction actually does (spec §6).
type TransactionImpact struct {
	Sending        string `json:"sending"`
	GrantingAccess string `json:"granting_access"`
	Recipient      string `json:"recipient"`
	PostTxState    string `json:"post_tx_state"`
}

// FirewallResult extends ScanResult with the policy verdict.
type FirewallResult struct {
	ScanResult
	Verdict       model.Verdict      `json:"verdict"`
	PlainEnglish  string             `json:"plain_english"`
	TransactionImpact TransactionImpact `json:"transaction_impact"`
}

// HealthResponse is GET /api/health's body.
type HealthResponse struct {
	Status   string            `json:"status"`
	Chains   []int64           `json:"chains"`
	Services map[string]string `json:"services"`
}

// OutcomeRequest is POST /api/outcome's body.
type OutcomeRequest struct {
	VerdictID        string `json:"verdict_id" binding:"required"`
	Decision         string `json:"decision" binding:"required"`
	DownstreamSignal string `json:"downstream_signal,omitempty"`
}

// ReportRequest is POST /api/report's body.
type ReportRequest struct {
	Address string `json:"address" binding:"required"`
	ChainID int64  `json:"chain_id" binding:"required"`
	Kind    string `json:"kind" binding:"required"`
	Note    string `json:"note,omitempty"`
}

// ThreatsFeedResponse is GET /api/threats/feed's body.
type ThreatsFeedResponse struct {
	HighRiskContracts []model.ContractReputation `json:"high_risk_contracts"`
	MempoolAlerts     []model.MempoolAlert        `json:"mempool_alerts"`
}
