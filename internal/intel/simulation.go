package intel

import (
	"context"
	"net/http"
	"time"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
)

// SimulationRecord is the normalized response from a third-party
// transaction-simulation provider, used as a fallback when the chain
// adapter has no native Simulate backend (spec §4.1 absence-degrades rule).
type SimulationRecord struct {
	Success      bool    `json:"success"`
	GasUsed      uint64  `json:"gas_used"`
	RevertReason string  `json:"revert_reason,omitempty"`
	AssetDeltas  []struct {
		Token  string `json:"token"`
		Holder string `json:"holder"`
		Delta  string `json:"delta"` // signed decimal string
	} `json:"asset_deltas"`
}

// SimulationService wraps an external simulation provider.
type SimulationService struct {
	base
	endpoint string
	http     *http.Client
}

func NewSimulationService(endpoint string, cache *database.RedisClient, circuit config.CircuitConfig) *SimulationService {
	return &SimulationService{
		base:     newBase("simulation", cache, 1*time.Minute, circuit),
		endpoint: endpoint,
		http:     &http.Client{Timeout: 6 * time.Second},
	}
}

func (s *SimulationService) Name() string   { return s.base.name }
func (s *SimulationService) Health() string { return s.base.health() }

func (s *SimulationService) Fetch(ctx context.Context, addr model.Address) (SimulationRecord, error) {
	return fetchCached(ctx, s.base, "intel.Simulation.Fetch", addr.String(), func() (SimulationRecord, error) {
		return fetchNormalized[SimulationRecord](ctx, s.http, s.endpoint, addr)
	})
}
