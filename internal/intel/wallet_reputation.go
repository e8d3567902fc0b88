package intel

import (
	"context"
	"net/http"
	"time"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
)

// WalletReputationRecord is the normalized wallet-reputation provider
// response, used against both the caller's wallet and the token creator.
type WalletReputationRecord struct {
	Score   float64  `json:"score"` // lower is worse
	Flagged bool     `json:"flagged"`
	Labels  []string `json:"labels"`
}

// WalletReputationService wraps an external wallet-reputation provider.
type WalletReputationService struct {
	base
	endpoint string
	http     *http.Client
}

func NewWalletReputationService(endpoint string, cache *database.RedisClient, circuit config.CircuitConfig) *WalletReputationService {
	return &WalletReputationService{
		base:     newBase("wallet-reputation", cache, 10*time.Minute, circuit),
		endpoint: endpoint,
		http:     &http.Client{Timeout: 3 * time.Second},
	}
}

func (s *WalletReputationService) Name() string   { return s.base.name }
func (s *WalletReputationService) Health() string { return s.base.health() }

func (s *WalletReputationService) Fetch(ctx context.Context, addr model.Address) (WalletReputationRecord, error) {
	return fetchCached(ctx, s.base, "intel.WalletReputation.Fetch", addr.String(), func() (WalletReputationRecord, error) {
		return fetchNormalized[WalletReputationRecord](ctx, s.http, s.endpoint, addr)
	})
}
