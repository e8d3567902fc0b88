package intel

import (
	"context"
	"net/http"
	"time"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/database"
)

// Tri is a tri-state boolean: yes/no/unknown, matching the wire shape
// spec §4.2 requires for can_buy/can_sell.
type Tri string

const (
	TriYes     Tri = "yes"
	TriNo      Tri = "no"
	TriUnknown Tri = "unknown"
)

// HoneypotRecord is the normalized honeypot-simulation provider response.
// Taxes are fractions (e.g. 0.99), never percentages, per spec §4.2.
type HoneypotRecord struct {
	IsHoneypot *bool   `json:"is_honeypot"` // nil means unknown
	BuyTax     float64 `json:"buy_tax"`
	SellTax    float64 `json:"sell_tax"`
	CanBuy     Tri     `json:"can_buy"`
	CanSell    Tri     `json:"can_sell"`
	Reason     string  `json:"reason,omitempty"`
}

// HoneypotService wraps an external honeypot-simulation provider.
type HoneypotService struct {
	base
	endpoint string
	http     *http.Client
}

func NewHoneypotService(endpoint string, cache *database.RedisClient, circuit config.CircuitConfig) *HoneypotService {
	return &HoneypotService{
		base:     newBase("honeypot", cache, 2*time.Minute, circuit),
		endpoint: endpoint,
		http:     &http.Client{Timeout: 4 * time.Second},
	}
}

func (s *HoneypotService) Name() string   { return s.base.name }
func (s *HoneypotService) Health() string { return s.base.health() }

func (s *HoneypotService) Fetch(ctx context.Context, addr model.Address) (HoneypotRecord, error) {
	return fetchCached(ctx, s.base, "intel.Honeypot.Fetch", addr.String(), func() (HoneypotRecord, error) {
		return fetchNormalized[HoneypotRecord](ctx, s.http, s.endpoint, addr)
	})
}
