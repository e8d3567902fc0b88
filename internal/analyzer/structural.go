package analyzer

import (
	"context"
	"encoding/hex"

	"github.com/shieldcore/firewall/internal/chain"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/internal/reputation"
)

// sourceReader is satisfied by chain.EVMAdapter; kept as a narrow optional
// interface so Structural works against any chain.Adapter, degrading
// gracefully when verified source isn't available.
type sourceReader interface {
	Source(ctx context.Context, addr model.Address) (string, error)
}

// Structural is the baseline-weight-0.40 analyzer: bytecode/source pattern
// scanning grounded in VIGILUM's scanner.PatternDetector and the teacher's
// analyzeDangerousPatterns/analyzeProxyPatterns/checkHiddenMintFunctions.
type Structural struct {
	Base
	adapter chain.Adapter
	repo    *reputation.Store // optional: only used for the post-selfdestruct detection floor
}

func NewStructural(adapter chain.Adapter, repo *reputation.Store, weight float64) *Structural {
	return &Structural{
		Base:    NewBase(model.TagStructural, weight, []string{"chain.Bytecode"}, []string{"chain.VerificationInfo", "chain.Source"}),
		adapter: adapter,
		repo:    repo,
	}
}

func (s *Structural) Run(ctx context.Context, ac *model.AnalysisContext) model.AnalyzerResult {
	result := model.AnalyzerResult{Tag: s.Tag(), Confidence: 1.0}

	code, isContract, err := s.adapter.Bytecode(ctx, ac.Target)
	if err != nil {
		return model.AnalyzerResult{Tag: s.Tag(), Score: 0, Partial: true}
	}
	if !isContract {
		// Could be a plain EOA, or a contract that selfdestructed since its
		// last scored interaction. Only the latter matters to the caller.
		if s.wasSelfdestructed(ctx, ac) {
			result.AddFlag(model.FlagContractDestroyed)
			result.Score = 95
			result.Confidence = 1.0
			return result
		}
		return model.AnalyzerResult{Tag: s.Tag(), Score: 0, Confidence: 1.0}
	}

	score := 0.0
	confidenceInputs, confidenceTotal := 1, 1

	info, verErr := s.adapter.VerificationInfo(ctx, ac.Target)
	if verErr != nil {
		result.Partial = true
		confidenceTotal++
	} else {
		confidenceInputs++
		confidenceTotal++
		if !info.Verified {
			score += 35
			result.AddFlag(model.FlagUnverified)
		}
		switch {
		case info.AgeSeconds < 86400:
			score += 30
			result.AddFlag(model.FlagNewContract)
		case info.AgeSeconds < 7*86400:
			score += 15
			result.AddFlag(model.FlagNewContract)
		case info.AgeSeconds < 30*86400:
			score += 8
		}
	}

	hexCode := hex.EncodeToString(code)
	bytecodeDelta := 0.0
	for _, hit := range chain.MatchDangerousBytecode(hexCode) {
		switch hit.Category {
		case "SELFDESTRUCT_CAPABLE":
			result.AddFlag(model.FlagSelfdestructCapable)
			bytecodeDelta += 20
		case "UPGRADEABLE_PROXY":
			result.AddFlag(model.FlagUpgradeableProxy)
			bytecodeDelta += 20
		}
	}
	if bytecodeDelta > 45 {
		bytecodeDelta = 45
	}
	score += bytecodeDelta

	if info.Verified {
		if reader, ok := s.adapter.(sourceReader); ok {
			if source, srcErr := reader.Source(ctx, ac.Target); srcErr == nil && source != "" {
				sourceDelta := 0.0
				for _, hit := range chain.MatchSourcePatterns(source) {
					switch hit.Category {
					case "MINT_OPEN":
						result.AddFlag(model.FlagMintOpen)
						sourceDelta += 10
					case "BLACKLIST_FN":
						result.AddFlag(model.FlagBlacklistFn)
						sourceDelta += 8
					case "OWNER_ACTIVE":
						result.AddFlag(model.FlagOwnerActive)
						sourceDelta += 7
					}
				}
				if sourceDelta > 25 {
					sourceDelta = 25
				}
				score += sourceDelta
			}
		}
	}

	ownerRenounced := s.ownerRenounced(ctx, ac)
	aged := info.Verified && info.AgeSeconds > 180*86400
	if ownerRenounced && aged {
		score -= 20
		result.AddFlag(model.FlagContractAged)
	} else if !ownerRenounced {
		result.AddFlag(model.FlagOwnerActive)
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}

	result.Score = score
	result.Confidence = float64(confidenceInputs) / float64(confidenceTotal)
	return result
}

// wasSelfdestructed reports whether addr previously carried the
// SELFDESTRUCT_CAPABLE flag in its last scored reputation row and now has
// no code — i.e. the contract actually selfdestructed. The RiskEngine's
// escalation floor (spec §4.4, rule 3) consumes CONTRACT_DESTROYED rather
// than re-deriving this from raw chain state, keeping Compose itself pure.
func (s *Structural) wasSelfdestructed(ctx context.Context, ac *model.AnalysisContext) bool {
	if s.repo == nil {
		return false
	}
	rep, err := s.repo.Get(ctx, ac.Target.ChainID, ac.Target)
	if err != nil || rep == nil {
		return false
	}
	for _, f := range rep.LastScore.CriticalFlags {
		if f == model.FlagSelfdestructCapable {
			return true
		}
	}
	return false
}

// ownerRenounced calls owner() and checks the result against the zero
// address. A read failure is treated as "cannot confirm renouncement", the
// conservative (non-renounced) assumption.
func (s *Structural) ownerRenounced(ctx context.Context, ac *model.AnalysisContext) bool {
	var ownerSelector [4]byte
	copy(ownerSelector[:], []byte{0x8d, 0xa5, 0xcb, 0x5b}) // owner()
	raw, err := s.adapter.ReadView(ctx, ac.Target, ownerSelector, nil)
	if err != nil || len(raw) < 32 {
		return false
	}
	for _, b := range raw[:32] {
		if b != 0 {
			return false
		}
	}
	return true
}
