// Command indexer runs the DeployerIndexer's backfill consumer and the
// CampaignCorrelator's periodic clustering pass as a standalone worker,
// sharing the same database as firewall-api so the two can be scaled
// independently — grounded in the teacher's ticker-loop background-service
// idiom (pkg/database/postgres.go's startHealthMonitoring).
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/container"
	"github.com/shieldcore/firewall/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c, err := container.Build(ctx, cfg, nil)
	if err != nil {
		log.Fatalf("failed to build container: %v", err)
	}
	defer c.Close(context.Background())

	go c.Indexer.Start(ctx)
	go c.Correlator.Start(ctx, 5*time.Minute)

	// This worker has no REST surface of its own, so its only externally
	// observable signal is this liveness/readiness endpoint, grounded in
	// the teacher's pkg/observability/health.go HealthServer.
	checker := observability.NewHealthChecker(c.Logger)
	checker.RegisterCheck("database", observability.DatabaseHealthCheck(c.DB.Health))
	checker.RegisterCheck("redis", observability.RedisHealthCheck(c.Redis.Health))
	healthServer := observability.NewHealthServer(checker, observability.ServiceInfo{
		Name:    "indexer",
		Version: cfg.Observability.ServiceVersion,
	}, c.Logger)

	router := mux.NewRouter()
	healthServer.RegisterRoutes(router)
	admin := &http.Server{Addr: cfg.Indexer.HealthAddr, Handler: router}
	go func() {
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			c.Logger.Error(ctx, "indexer health server stopped", err, nil)
		}
	}()

	c.Logger.Info(ctx, "indexer worker started", map[string]interface{}{"health_addr": cfg.Indexer.HealthAddr})

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	c.Logger.Info(ctx, "shutting down indexer worker", nil)
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = admin.Shutdown(shutdownCtx)
}
