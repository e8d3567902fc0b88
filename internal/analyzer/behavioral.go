package analyzer

import (
	"context"

	"github.com/shieldcore/firewall/internal/deployer"
	"github.com/shieldcore/firewall/internal/intel"
	"github.com/shieldcore/firewall/internal/model"
)

// Behavioral is the baseline-weight-0.20 analyzer: wallet reputation and
// campaign-severity lookups, grounded in the teacher's
// checkMaliciousAddresses idiom plus the deployer indexer's funder-cluster
// read. The "creator" reputation check looks up the target address itself;
// the contract's creator is not resolved.
type Behavioral struct {
	Base
	walletReputation *intel.WalletReputationService
	scamList         *intel.ScamListService
	correlator       *deployer.Correlator
}

func NewBehavioral(walletReputation *intel.WalletReputationService, scamList *intel.ScamListService, correlator *deployer.Correlator, weight float64) *Behavioral {
	return &Behavioral{
		Base:             NewBase(model.TagBehavioral, weight, []string{"intel.wallet-reputation"}, []string{"intel.scam-list", "deployer.correlator"}),
		walletReputation: walletReputation,
		scamList:         scamList,
		correlator:       correlator,
	}
}

const behavioralSevereThreshold = 20.0

func (b *Behavioral) Run(ctx context.Context, ac *model.AnalysisContext) model.AnalyzerResult {
	result := model.AnalyzerResult{Tag: b.Tag()}
	responded, total := 0, 1

	score := 0.0

	if ac.From != nil {
		rep, err := b.walletReputation.Fetch(ctx, *ac.From)
		if err != nil {
			result.Partial = true
		} else {
			responded++
			if rep.Score <= behavioralSevereThreshold || rep.Flagged {
				score += 40
			}
		}
	} else {
		total--
	}

	total++
	creatorRep, err := b.walletReputation.Fetch(ctx, ac.Target)
	if err != nil {
		result.Partial = true
	} else {
		responded++
		if creatorRep.Flagged {
			score += 35
		}
	}

	if b.scamList != nil {
		total++
		hits, err := b.scamList.Fetch(ctx, ac.Target)
		if err == nil {
			responded++
			if len(hits.Hits) > 0 {
				score += 30
			}
		}
	}

	if b.correlator != nil {
		total++
		severity, err := b.correlator.ClusterSeverity(ctx, ac.Target)
		if err == nil {
			responded++
			delta := severity
			if delta > 25 {
				delta = 25
			}
			score += delta
		}
	}

	if score > 100 {
		score = 100
	}
	result.Score = score
	if total > 0 {
		result.Confidence = float64(responded) / float64(total)
	} else {
		result.Confidence = 1.0
	}
	return result
}
