// Command firewall-api serves the eight REST endpoints of spec §6 (scan,
// firewall, health, rescue, campaign, threats feed, outcome, report),
// grounded in the teacher's cmd/auth-service/main.go construction and
// graceful-shutdown idiom.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shieldcore/firewall/internal/api"
	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/container"
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

	// Backfill and correlation run out-of-process in cmd/indexer; this
	// binary only enqueues (internal/api.Server.runPipeline) and reads.
	router := api.NewRouter(c)

	// Idempotent GETs (health, rescue, campaign, threats feed) get a short
	// Redis-backed response cache in front of the gin router; the cache
	// middleware's own method/path exclusion rules leave every POST
	// (scan, firewall, outcome, report) passing straight through.
	cache := middleware.NewCacheMiddleware(c.Redis, c.Logger)
	handler := cache.Middleware()(router)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		c.Logger.Info(ctx, "starting firewall-api", map[string]interface{}{"addr": server.Addr})
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("firewall-api: %v", err)
		}
	}()

	if cfg.Observability.MetricsEnabled {
		go func() {
			if err := c.Metrics.StartMetricsServer(cfg.Observability.MetricsPort); err != nil {
				c.Logger.Error(ctx, "metrics server stopped", err, nil)
			}
		}()
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	c.Logger.Info(ctx, "shutting down firewall-api", nil)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("firewall-api: forced shutdown: %v", err)
	}
}
