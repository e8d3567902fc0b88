// Command rpc-proxy serves the JSON-RPC interception proxy (spec §4.6):
// one HTTP route per configured chain id, each wrapping the same analyzer
// pipeline the REST API uses.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/container"
	"github.com/shieldcore/firewall/internal/rpcproxy"
	"github.com/shieldcore/firewall/pkg/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx := context.Background()
	c, err := container.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("failed to build container: %v", err)
	}
	defer c.Close(context.Background())

	routes := make(map[int64]*rpcproxy.ChainRoute, len(c.Adapters))
	for chainID, adapter := range c.Adapters {
		chainCfg := cfg.Chains[chainIDKey(chainID, cfg)]
		routes[chainID] = &rpcproxy.ChainRoute{
			ChainID:      chainID,
			Adapter:      adapter,
			Upstream:     firstOrEmpty(chainCfg.RPCURLs),
			Registry:     c.Registries[chainID],
			RiskEngine:   c.RiskEngine,
			PolicyEngine: c.Policy,
			Mode:         cfg.Policy.Mode,
		}
	}
	proxy := rpcproxy.NewProxy(routes, cfg.Policy, c.Logger)

	// rpc-proxy is a plain net/http.Handler (not gin, so wallets can point
	// straight at it as an RPC URL), so it wraps with pkg/middleware's
	// http.Handler chain rather than internal/middleware's gin chain; no
	// JWT/RateLimit here, since the proxy authenticates nothing and instead
	// gates write calls via analysis.Run + PolicyEngine.Decide.
	var handler http.Handler = proxy
	handler = middleware.Recovery(c.Logger)(handler)
	handler = middleware.Logging(c.Logger)(handler)
	handler = middleware.Tracing(cfg.Observability.ServiceName)(handler)
	handler = middleware.CORS(cfg.Server.AllowedOrigins)(handler)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		c.Logger.Info(ctx, "starting rpc-proxy", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("rpc-proxy: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	c.Logger.Info(ctx, "shutting down rpc-proxy", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("rpc-proxy: forced shutdown: %v", err)
	}
}

// chainIDKey recovers the string key config.Load's chain map uses (the
// decimal chain id), since Container only keeps the int64-keyed adapters.
func chainIDKey(chainID int64, cfg *config.Config) string {
	for key, cc := range cfg.Chains {
		if cc.ChainID == chainID {
			return key
		}
	}
	return ""
}

func firstOrEmpty(urls []string) string {
	if len(urls) == 0 {
		return ""
	}
	return urls[0]
}
