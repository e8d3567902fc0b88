package intel

import (
	"context"
	"net/http"
	"time"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
)

// ContractReputationRecord is the normalized shape of a third-party
// contract-reputation provider's response.
type ContractReputationRecord struct {
	Score        float64  `json:"score"`
	FlaggedCount int      `json:"flagged_count"`
	Sources      []string `json:"sources"`
}

// ContractReputationService wraps an external contract-reputation provider.
type ContractReputationService struct {
	base
	endpoint string
	http     *http.Client
}

func NewContractReputationService(endpoint string, cache *database.RedisClient, circuit config.CircuitConfig) *ContractReputationService {
	return &ContractReputationService{
		base:     newBase("contract-reputation", cache, 5*time.Minute, circuit),
		endpoint: endpoint,
		http:     &http.Client{Timeout: 3 * time.Second},
	}
}

func (s *ContractReputationService) Name() string   { return s.base.name }
func (s *ContractReputationService) Health() string { return s.base.health() }

func (s *ContractReputationService) Fetch(ctx context.Context, addr model.Address) (ContractReputationRecord, error) {
	return fetchCached(ctx, s.base, "intel.ContractReputation.Fetch", addr.String(), func() (ContractReputationRecord, error) {
		return fetchNormalized[ContractReputationRecord](ctx, s.http, s.endpoint, addr)
	})
}
