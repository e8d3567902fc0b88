package intel

import (
	"context"
	"net/http"
	"time"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
)

// ScamListHit is one matched entry of a ScamListRecord, grounded in the
// pack's normalized threat-signal shape (oracle.ThreatSignal's
// source/category/evidence fields).
type ScamListHit struct {
	Source   string `json:"source"`
	Category string `json:"category"`
	Evidence string `json:"evidence"`
}

// ScamListRecord is the normalized scam-list provider response.
type ScamListRecord struct {
	Hits []ScamListHit `json:"hits"`
}

// ScamListService wraps an external scam-list / threat-intel provider.
type ScamListService struct {
	base
	endpoint string
	http     *http.Client
}

func NewScamListService(endpoint string, cache *database.RedisClient, circuit config.CircuitConfig) *ScamListService {
	return &ScamListService{
		base:     newBase("scam-list", cache, 10*time.Minute, circuit),
		endpoint: endpoint,
		http:     &http.Client{Timeout: 3 * time.Second},
	}
}

func (s *ScamListService) Name() string   { return s.base.name }
func (s *ScamListService) Health() string { return s.base.health() }

func (s *ScamListService) Fetch(ctx context.Context, addr model.Address) (ScamListRecord, error) {
	return fetchCached(ctx, s.base, "intel.ScamList.Fetch", addr.String(), func() (ScamListRecord, error) {
		return fetchNormalized[ScamListRecord](ctx, s.http, s.endpoint, addr)
	})
}
