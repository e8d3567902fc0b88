// Package policy implements the PolicyEngine: maps a ShieldScore plus the
// set of failed upstream sources into a final ALLOW/WARN/BLOCK Verdict
// under a named mode, grounded in the teacher's RiskConfig-driven
// determineAction idiom (risk_assessment.go), generalized to spec §4.5's
// STRICT/BALANCED fail-open/fail-closed split and the forensic-upload
// trigger.
package policy

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/shieldcore/firewall/internal/analysis"
	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
)

// ForensicUploader is the immutable-storage collaborator interface (spec
// §1: out of scope beyond the trigger and URL handling).
type ForensicUploader interface {
	Upload(ctx context.Context, report model.ForensicReport) (url string, err error)
}

type Engine struct {
	mode              config.PolicyMode
	forensicThreshold float64
	uploader          ForensicUploader
}

func NewEngine(mode config.PolicyMode, forensicThreshold int, uploader ForensicUploader) *Engine {
	return &Engine{mode: mode, forensicThreshold: float64(forensicThreshold), uploader: uploader}
}

// Decide maps score to a Verdict. reg is the registry used for the
// STRICT-mode "required source of a weight>=0.20 analyzer unavailable"
// check — the ShieldScore alone doesn't carry per-analyzer weight.
func (e *Engine) Decide(ctx context.Context, reg *analysis.Registry, score model.ShieldScore, unverified bool) model.Verdict {
	action := actionFromComposite(score.Composite)

	if e.mode == config.PolicyStrict {
		for _, cat := range score.Breakdown {
			if !cat.Partial {
				continue
			}
			w := weightOf(reg, cat.Tag)
			if w < 0.20 {
				continue
			}
			if unverified {
				action = model.ActionBlock
			} else if action == model.ActionAllow {
				action = model.ActionWarn
			}
		}
	}

	verdict := model.Verdict{
		Action:      action,
		Score:       score,
		Explanation: explain(score, action),
	}
	if action != model.ActionAllow {
		verdict.VerdictID = uuid.NewString()
	}

	if score.Composite >= e.forensicThreshold && e.uploader != nil {
		report := model.ForensicReport{
			VerdictID: verdict.VerdictID,
			Score:     score,
		}
		if url, err := e.uploader.Upload(ctx, report); err == nil {
			verdict.ForensicURL = url
		}
	}

	return verdict
}

func weightOf(reg *analysis.Registry, tag model.Tag) float64 {
	for _, a := range reg.All() {
		if a.Tag() == tag {
			return a.Weight()
		}
	}
	return 0
}

func actionFromComposite(composite float64) model.VerdictAction {
	switch {
	case composite >= 71:
		return model.ActionBlock
	case composite >= 31:
		return model.ActionWarn
	default:
		return model.ActionAllow
	}
}

// explain renders a short, plain-language summary of the dominant reasons
// behind the verdict, built from the critical-flag set rather than raw
// category scores so it reads like a sentence a user would understand.
func explain(score model.ShieldScore, action model.VerdictAction) string {
	if len(score.CriticalFlags) == 0 {
		return fmt.Sprintf("%s: composite risk score %.0f/100 (%s), no critical flags raised.", action, score.Composite, score.Level)
	}
	reasons := make([]string, 0, len(score.CriticalFlags))
	for _, f := range score.CriticalFlags {
		if r, ok := flagExplanations[f]; ok {
			reasons = append(reasons, r)
		}
	}
	return fmt.Sprintf("%s: composite risk score %.0f/100 (%s). %s", action, score.Composite, score.Level, strings.Join(reasons, " "))
}

var flagExplanations = map[model.Flag]string{
	model.FlagUnverified:          "Contract source is not verified.",
	model.FlagNewContract:         "Contract was deployed very recently.",
	model.FlagSelfdestructCapable: "Contract can self-destruct.",
	model.FlagUpgradeableProxy:    "Contract logic is upgradeable by its owner.",
	model.FlagMintOpen:            "Token supply can be minted arbitrarily.",
	model.FlagBlacklistFn:         "Contract can block specific addresses from transferring.",
	model.FlagOwnerActive:         "Ownership has not been renounced.",
	model.FlagContractDestroyed:   "Contract has already self-destructed.",
	model.FlagContractAged:        "Contract is verified, owner-renounced, and over 180 days old.",
	model.FlagNoLiquidity:         "No trading liquidity was found for this token.",
	model.FlagHoneypotConfirmed:   "This token cannot be sold once purchased.",
	model.FlagUnlimitedApproval:   "This approves an unlimited spending allowance.",
	model.FlagDisguisedSelector:   "Calldata does not match its declared function.",
	model.FlagPermitUnlimited:     "This signature grants an unlimited token allowance.",
	model.FlagZeroPriceOrder:      "This order sells an asset for zero value.",
}
