package intel

import (
	"context"
	"net/http"
	"time"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
)

// MarketRecord is the normalized market-data provider response.
type MarketRecord struct {
	LiquidityUSD  float64 `json:"liquidity_usd"`
	PairAgeSeconds int64  `json:"pair_age_seconds"`
	FDVUSD        float64 `json:"fdv_usd"`
	Volume24hUSD  float64 `json:"volume_24h_usd"`
	WashScore     float64 `json:"wash_score"` // [0,1]
	HasPair       bool    `json:"has_pair"`
}

// LiquidityUSDValue exposes LiquidityUSD through the narrow interface
// internal/risk.Engine uses to read the Market analyzer's payload without
// importing the intel package.
func (r MarketRecord) LiquidityUSDValue() float64 { return r.LiquidityUSD }

// MarketService wraps an external DEX/market-data provider.
type MarketService struct {
	base
	endpoint string
	http     *http.Client
}

func NewMarketService(endpoint string, cache *database.RedisClient, circuit config.CircuitConfig) *MarketService {
	return &MarketService{
		base:     newBase("market", cache, 30*time.Second, circuit),
		endpoint: endpoint,
		http:     &http.Client{Timeout: 3 * time.Second},
	}
}

func (s *MarketService) Name() string   { return s.base.name }
func (s *MarketService) Health() string { return s.base.health() }

func (s *MarketService) Fetch(ctx context.Context, addr model.Address) (MarketRecord, error) {
	return fetchCached(ctx, s.base, "intel.Market.Fetch", addr.String(), func() (MarketRecord, error) {
		return fetchNormalized[MarketRecord](ctx, s.http, s.endpoint, addr)
	})
}
