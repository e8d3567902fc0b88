// Package rescue implements the RescueScanner: enumerates a wallet's live
// token approvals and builds a revoke-everything report, grounded in the
// teacher's checkMaliciousAddresses classification idiom plus the
// contract_analysis.go "what this means for you" explanation style.
package rescue

import (
	"context"
	"fmt"
	"time"

	"github.com/shieldcore/firewall/internal/chain"
	"github.com/shieldcore/firewall/internal/intel"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/internal/reputation"
)

// approveSelector is keccak256("approve(address,uint256)")[:4].
var approveSelector = [4]byte{0x09, 0x5e, 0xa7, 0xb3}

const approvalScanPageSize = 200

type Scanner struct {
	adapters map[int64]chain.Adapter
	repo     *reputation.Store
	scamList *intel.ScamListService
	maxScan  int
}

func NewScanner(adapters map[int64]chain.Adapter, repo *reputation.Store, scamList *intel.ScamListService, maxScan int) *Scanner {
	if maxScan <= 0 {
		maxScan = 500
	}
	return &Scanner{adapters: adapters, repo: repo, scamList: scamList, maxScan: maxScan}
}

// Rescue enumerates wallet's active approvals on chainID and returns a
// report with one revoke template per approval.
func (s *Scanner) Rescue(ctx context.Context, wallet model.Address, chainID int64) (model.RescueReport, error) {
	adapter, ok := s.adapters[chainID]
	if !ok {
		return model.RescueReport{}, model.NewShieldError(model.KindValidationError, "rescue.Rescue", nil)
	}

	var findings []model.RescueFinding
	cursor := ""
	scanned := 0
	for scanned < s.maxScan {
		approvals, next, err := adapter.ListApprovals(ctx, wallet, cursor, approvalScanPageSize)
		if err != nil {
			return model.RescueReport{}, err
		}
		for _, approval := range approvals {
			approval.SpenderRisk = s.classify(ctx, approval.Spender)
			if approval.SpenderRisk == model.SpenderHigh {
				s.recordSuspiciousApproval(ctx, wallet, approval.Spender)
			}
			findings = append(findings, model.RescueFinding{
				Approval: approval,
				Revoke:   buildRevoke(approval),
			})
		}
		scanned += len(approvals)
		if next == "" || len(approvals) == 0 {
			break
		}
		cursor = next
	}

	report := model.RescueReport{Wallet: wallet, Findings: findings}
	report.WhatItMeans, report.WhatYouCanDo = explain(findings)
	return report, nil
}

// classify assigns a SpenderRiskLevel using the reputation store's last
// score for the spender plus scam-list hits, defaulting to medium when
// neither source has an opinion (an unknown spender is not automatically
// trusted).
func (s *Scanner) classify(ctx context.Context, spender model.Address) model.SpenderRiskLevel {
	if rep, err := s.repo.Get(ctx, spender.ChainID, spender); err == nil && rep != nil {
		switch {
		case rep.LastScore.Composite >= 71:
			return model.SpenderHigh
		case rep.LastScore.Composite >= 31:
			return model.SpenderMedium
		default:
			return model.SpenderLow
		}
	}
	if s.scamList != nil {
		if hits, err := s.scamList.Fetch(ctx, spender); err == nil && len(hits.Hits) > 0 {
			return model.SpenderHigh
		}
	}
	return model.SpenderMedium
}

// recordSuspiciousApproval feeds a high-risk spender finding into the
// threats feed. Best-effort: Scanner has no logger to surface a write
// failure to, and a missed alert never blocks the rescue report itself.
// The alert ID is derived from (chain, wallet, spender), so re-scanning the
// same approval hits RecordAlert's ON CONFLICT and adds no second row.
func (s *Scanner) recordSuspiciousApproval(ctx context.Context, wallet, spender model.Address) {
	alert := model.MempoolAlert{
		ID:         fmt.Sprintf("rescue:%d:%s:%s", spender.ChainID, wallet.Hex(), spender.Hex()),
		Kind:       model.AlertSuspiciousApproval,
		Attacker:   spender,
		ChainID:    spender.ChainID,
		DetectedAt: time.Now(),
	}
	_ = s.repo.RecordAlert(ctx, alert)
}

// buildRevoke builds an unsigned approve(spender, 0) transaction template.
// Encoding the call here directly (rather than through go-ethereum's abi
// package) keeps this leaf function dependency-free; the argument shape is
// fixed and never varies.
func buildRevoke(approval model.ApprovalRecord) model.RevokeTx {
	calldata := make([]byte, 4+32+32)
	copy(calldata[:4], approveSelector[:])
	copy(calldata[4+12:4+32], approval.Spender.Bytes[:])
	// trailing 32 bytes (the uint256 amount) are already zero.
	return model.RevokeTx{
		Token:    approval.Token,
		Spender:  approval.Spender,
		Calldata: calldata,
	}
}

func explain(findings []model.RescueFinding) (whatItMeans, whatYouCanDo string) {
	if len(findings) == 0 {
		return "No active token approvals were found for this wallet.",
			"No action is needed."
	}
	high, medium := 0, 0
	for _, f := range findings {
		switch f.Approval.SpenderRisk {
		case model.SpenderHigh:
			high++
		case model.SpenderMedium:
			medium++
		}
	}
	switch {
	case high > 0:
		return "Some of your tokens can currently be moved by addresses flagged as high risk, without asking you again.",
			"Revoke the high-risk approvals below as soon as possible using the provided transactions."
	case medium > 0:
		return "Some of your tokens can be moved by spenders this system has not fully verified.",
			"Review the medium-risk approvals below and revoke any you no longer use."
	default:
		return "Your active approvals are with spenders that currently show no risk signals.",
			"No urgent action is needed, but it's good practice to revoke approvals you no longer use."
	}
}
