package deployer

import (
	"context"
	"time"

	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
	"github.com/shieldcore/firewall/pkg/observability"
)

const clusterDepth = 2
const campaignMinSize = 3
const campaignMinHighRiskRatio = 0.6

// Correlator runs a periodic bounded-depth BFS over funder edges,
// grounded in the teacher's startHealthMonitoring ticker-loop idiom
// (pkg/database/postgres.go), detecting Campaigns: clusters of deployers
// tied by a shared funder with a high ratio of high-risk contracts.
type Correlator struct {
	db     *database.DB
	logger *observability.Logger
}

func NewCorrelator(db *database.DB, logger *observability.Logger) *Correlator {
	return &Correlator{db: db, logger: logger}
}

// Start runs the periodic clustering pass on interval until ctx is cancelled.
func (c *Correlator) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := c.runPass(ctx); err != nil {
				c.logger.Warn(ctx, "campaign correlator: pass failed", map[string]interface{}{"error": err.Error()})
			}
		}
	}
}

type funderEdgeRow struct {
	chainID  int64
	funder   string
	deployer string
}

// runPass recomputes clusters from scratch; at this system's write volume
// (tens/sec target, per spec §4.7) a full recompute is simpler and cheap
// enough to avoid incremental-graph-maintenance bugs.
func (c *Correlator) runPass(ctx context.Context) error {
	rows, err := c.db.QueryContext(ctx, `SELECT chain_id, funder, deployer FROM funder_edges`)
	if err != nil {
		return err
	}
	edges := make([]funderEdgeRow, 0)
	for rows.Next() {
		var e funderEdgeRow
		if err := rows.Scan(&e.chainID, &e.funder, &e.deployer); err != nil {
			rows.Close()
			return err
		}
		edges = append(edges, e)
	}
	rows.Close()

	clusters := clusterByFunder(edges, clusterDepth)
	for _, cluster := range clusters {
		if err := c.persistCluster(ctx, cluster); err != nil {
			c.logger.Warn(ctx, "campaign correlator: persist cluster failed", map[string]interface{}{"error": err.Error()})
		}
	}
	return nil
}

// cluster is one connected component of deployers reachable from a funder
// root within clusterDepth hops.
type cluster struct {
	root      string
	deployers map[string]bool
}

// clusterByFunder groups deployers that share a funder, transitively within
// depth, using a bounded-depth BFS with a visited set (spec §9's
// re-architecture note for the cyclic deployer<->funder<->contract graph).
func clusterByFunder(edges []funderEdgeRow, depth int) []cluster {
	byFunder := map[string][]string{}
	byDeployer := map[string][]string{}
	for _, e := range edges {
		byFunder[e.funder] = append(byFunder[e.funder], e.deployer)
		byDeployer[e.deployer] = append(byDeployer[e.deployer], e.funder)
	}

	visitedFunders := map[string]bool{}
	var clusters []cluster

	for root := range byFunder {
		if visitedFunders[root] {
			continue
		}
		deployers := map[string]bool{}
		type frontierItem struct {
			funder string
			hops   int
		}
		frontier := []frontierItem{{root, 0}}
		for len(frontier) > 0 {
			item := frontier[0]
			frontier = frontier[1:]
			if visitedFunders[item.funder] || item.hops > depth {
				continue
			}
			visitedFunders[item.funder] = true
			for _, d := range byFunder[item.funder] {
				deployers[d] = true
				if item.hops+1 <= depth {
					for _, nextFunder := range byDeployer[d] {
						if !visitedFunders[nextFunder] {
							frontier = append(frontier, frontierItem{nextFunder, item.hops + 1})
						}
					}
				}
			}
		}
		if len(deployers) > 0 {
			clusters = append(clusters, cluster{root: root, deployers: deployers})
		}
	}
	return clusters
}

func (c *Correlator) persistCluster(ctx context.Context, cl cluster) error {
	deployerList := make([]string, 0, len(cl.deployers))
	for d := range cl.deployers {
		deployerList = append(deployerList, d)
	}
	if len(deployerList) == 0 {
		return nil
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT dc.chain_id, dc.contract, COALESCE(cr.composite, 0)
		FROM deployer_contracts dc
		LEFT JOIN contract_reputation cr ON cr.chain_id = dc.chain_id AND cr.address = dc.contract
		WHERE dc.deployer = ANY($1)
	`, deployerList)
	if err != nil {
		return err
	}
	defer rows.Close()

	total, highRisk := 0, 0
	for rows.Next() {
		var chainID int64
		var contract string
		var composite float64
		if err := rows.Scan(&chainID, &contract, &composite); err != nil {
			return err
		}
		total++
		if composite >= 71 {
			highRisk++
		}
	}
	if total == 0 {
		return nil
	}
	ratio := float64(highRisk) / float64(total)
	isCampaign := total >= campaignMinSize && ratio >= campaignMinHighRiskRatio
	severity := severityFor(total, ratio)

	_, err = c.db.ExecContext(ctx, `
		INSERT INTO campaigns (funder_root, is_campaign, severity, high_risk_ratio, contract_count, computed_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (funder_root) DO UPDATE SET
			is_campaign = EXCLUDED.is_campaign,
			severity = EXCLUDED.severity,
			high_risk_ratio = EXCLUDED.high_risk_ratio,
			contract_count = EXCLUDED.contract_count,
			computed_at = EXCLUDED.computed_at
	`, cl.root, isCampaign, severity, ratio, total)
	return err
}

// severityFor scales with both cluster size and high-risk ratio: a cluster
// of at least 7 deployed contracts where at least 70% are high-risk (e.g.
// 3 funders behind 7 contracts, 5 of them high-risk) is a "high" severity
// campaign, not just a "medium" one.
func severityFor(size int, ratio float64) string {
	switch {
	case size >= 7 && ratio >= 0.7:
		return "high"
	case size >= campaignMinSize && ratio >= campaignMinHighRiskRatio:
		return "medium"
	default:
		return "low"
	}
}

// Campaign resolves addr's cluster (via its deployer, if any) and returns
// the graph summary: cross-chain contracts, severity, indicators, funder
// root, and first-seen.
func (c *Correlator) Campaign(ctx context.Context, addr model.Address) (model.Campaign, error) {
	var deployerHex string
	err := c.db.QueryRowContext(ctx, `SELECT deployer FROM deployer_contracts WHERE chain_id = $1 AND contract = $2`, addr.ChainID, addr.Hex()).Scan(&deployerHex)
	if err != nil {
		return model.Campaign{}, nil
	}

	var funderRoot string
	err = c.db.QueryRowContext(ctx, `SELECT funder FROM funder_edges WHERE deployer = $1 LIMIT 1`, deployerHex).Scan(&funderRoot)
	if err != nil {
		return model.Campaign{}, nil
	}

	var isCampaign bool
	var severity string
	var ratio float64
	var count int
	var computedAt time.Time
	err = c.db.QueryRowContext(ctx, `
		SELECT is_campaign, severity, high_risk_ratio, contract_count, computed_at
		FROM campaigns WHERE funder_root = $1
	`, funderRoot).Scan(&isCampaign, &severity, &ratio, &count, &computedAt)
	if err != nil {
		return model.Campaign{}, nil
	}

	rows, err := c.db.QueryContext(ctx, `
		SELECT dc.chain_id, dc.contract, dc.created_at
		FROM deployer_contracts dc
		JOIN funder_edges fe ON fe.deployer = dc.deployer
		WHERE fe.funder = $1
	`, funderRoot)
	if err != nil {
		return model.Campaign{}, nil
	}
	defer rows.Close()

	var contracts []model.DeployerContract
	for rows.Next() {
		var chainID int64
		var contractHex string
		var createdAt time.Time
		if err := rows.Scan(&chainID, &contractHex, &createdAt); err != nil {
			continue
		}
		contractAddr, err := model.NewAddress(chainID, contractHex)
		if err != nil {
			continue
		}
		contracts = append(contracts, model.DeployerContract{Contract: contractAddr, CreatedAt: createdAt})
	}

	funderAddr, _ := model.NewAddress(addr.ChainID, funderRoot)
	return model.Campaign{
		IsCampaign:    isCampaign,
		Severity:      severity,
		FunderRoot:    &funderAddr,
		Contracts:     contracts,
		HighRiskRatio: ratio,
		FirstSeen:     computedAt,
		Indicators:    []string{"shared-funder", "high-risk-ratio"},
	}, nil
}

// ClusterSeverity returns a [0,100]-scaled severity signal for addr's
// creator, used by the Behavioral analyzer's "campaign severity" input
// (spec §4.3.3). Returns 0 if addr has no known cluster.
func (c *Correlator) ClusterSeverity(ctx context.Context, addr model.Address) (float64, error) {
	campaign, err := c.Campaign(ctx, addr)
	if err != nil || !campaign.IsCampaign {
		return 0, err
	}
	switch campaign.Severity {
	case "high":
		return 25, nil
	case "medium":
		return 15, nil
	default:
		return 5, nil
	}
}
