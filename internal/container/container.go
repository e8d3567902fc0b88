// Package container builds the single, explicitly-wired set of services
// every binary (firewall-api, rpc-proxy, indexer) shares, grounded in the
// teacher's cmd/*/main.go construction order (config -> observability ->
// database/redis -> domain services -> HTTP handler) rather than
// package-level singletons or a DI framework.
package container

import (
	"context"
	"fmt"

	"github.com/shieldcore/firewall/internal/analysis"
	"github.com/shieldcore/firewall/internal/analyzer"
	"github.com/shieldcore/firewall/internal/auth"
	"github.com/shieldcore/firewall/internal/chain"
	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/deployer"
	"github.com/shieldcore/firewall/internal/intel"
	"github.com/shieldcore/firewall/internal/policy"
	"github.com/shieldcore/firewall/internal/reputation"
	"github.com/shieldcore/firewall/internal/rescue"
	"github.com/shieldcore/firewall/internal/risk"
	"github.com/shieldcore/firewall/pkg/database"
	"github.com/shieldcore/firewall/pkg/observability"
)

// Container holds every constructed collaborator. Binaries read the fields
// they need; nothing here is a package-level var.
type Container struct {
	Config      *config.Config
	Logger      *observability.Logger
	Tracer      *observability.TracingProvider
	Metrics     *observability.MetricsProvider
	Performance *observability.PerformanceMonitor
	DB          *database.DB
	Redis       *database.RedisClient

	Adapters map[int64]chain.Adapter

	ContractReputation *intel.ContractReputationService
	Honeypot           *intel.HoneypotService
	Market             *intel.MarketService
	WalletReputation   *intel.WalletReputationService
	Simulation         *intel.SimulationService
	ScamList           *intel.ScamListService

	Reputation *reputation.Store
	Indexer    *deployer.Indexer
	Correlator *deployer.Correlator

	Registries map[int64]*analysis.Registry
	RiskEngine *risk.Engine
	Policy     *policy.Engine

	Keys    *auth.KeyManager
	Rescuer *rescue.Scanner
}

// Build wires every collaborator from cfg. It dials every configured chain
// eagerly (same posture as chain.NewEVMAdapter) and shares one
// analysis.Registry definition instance-per-chain, since Structural and
// Honeypot both close over a chain.Adapter.
func Build(ctx context.Context, cfg *config.Config, uploader policy.ForensicUploader) (*Container, error) {
	logger := observability.NewLogger(cfg.Observability)

	tracer, err := observability.NewTracingProvider(cfg.Observability)
	if err != nil {
		return nil, fmt.Errorf("container: tracing: %w", err)
	}

	metrics, err := observability.NewMetricsProvider(observability.MetricsConfig{
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		Namespace:      "shieldcore",
		Port:           cfg.Observability.MetricsPort,
		Enabled:        cfg.Observability.MetricsEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("container: metrics: %w", err)
	}

	perf := observability.NewPerformanceMonitor(logger)

	db, err := database.NewPostgresDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("container: database: %w", err)
	}

	redis, err := database.NewRedisClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("container: redis: %w", err)
	}

	adapters := make(map[int64]chain.Adapter, len(cfg.Chains))
	for _, chainCfg := range cfg.Chains {
		a, err := chain.NewEVMAdapter(chainCfg, cfg.Circuit, logger)
		if err != nil {
			return nil, fmt.Errorf("container: chain %d: %w", chainCfg.ChainID, err)
		}
		adapters[chainCfg.ChainID] = a
	}

	contractRep := intel.NewContractReputationService(cfg.Intel.ContractReputationEndpoint, redis, cfg.Circuit)
	honeypotSvc := intel.NewHoneypotService(cfg.Intel.HoneypotEndpoint, redis, cfg.Circuit)
	marketSvc := intel.NewMarketService(cfg.Intel.MarketEndpoint, redis, cfg.Circuit)
	walletRep := intel.NewWalletReputationService(cfg.Intel.WalletReputationEndpoint, redis, cfg.Circuit)
	simulationSvc := intel.NewSimulationService(cfg.Intel.SimulationEndpoint, redis, cfg.Circuit)
	scamListSvc := intel.NewScamListService(cfg.Intel.ScamListEndpoint, redis, cfg.Circuit)

	repoStore := reputation.NewStore(db)
	indexer := deployer.NewIndexer(db, adapters, logger, cfg.Allowlists.ExchangeAddresses, 1024)
	correlator := deployer.NewCorrelator(db, logger)

	honeypotSkip := toAddressSet(cfg.Allowlists.HoneypotSkip)
	permitTrusted := toAddressSet(cfg.Allowlists.PermitTrusted)

	registries := make(map[int64]*analysis.Registry, len(adapters))
	for chainID, adapter := range adapters {
		registries[chainID] = analysis.NewRegistry(
			analyzer.NewStructural(adapter, repoStore, weightOf(cfg, "structural")),
			analyzer.NewMarket(marketSvc, weightOf(cfg, "market")),
			analyzer.NewBehavioral(walletRep, scamListSvc, correlator, weightOf(cfg, "behavioral")),
			analyzer.NewHoneypot(honeypotSvc, adapter, honeypotSkip, weightOf(cfg, "honeypot")),
			analyzer.NewIntentMismatch(),
			analyzer.NewSignaturePermit(permitTrusted),
		)
	}

	riskEngine := risk.NewEngine(risk.DefaultConfig())
	policyEngine := policy.NewEngine(cfg.Policy.Mode, cfg.Forensic.ThresholdScore, uploader)

	keys := auth.NewKeyManager(db, logger)
	rescuer := rescue.NewScanner(adapters, repoStore, scamListSvc, cfg.Rescue.MaxApprovalsScanned)

	return &Container{
		Config:      cfg,
		Logger:      logger,
		Tracer:      tracer,
		Metrics:     metrics,
		Performance: perf,
		DB:          db,
		Redis:       redis,

		Adapters: adapters,

		ContractReputation: contractRep,
		Honeypot:           honeypotSvc,
		Market:             marketSvc,
		WalletReputation:   walletRep,
		Simulation:         simulationSvc,
		ScamList:           scamListSvc,

		Reputation: repoStore,
		Indexer:    indexer,
		Correlator: correlator,

		Registries: registries,
		RiskEngine: riskEngine,
		Policy:     policyEngine,

		Keys:    keys,
		Rescuer: rescuer,
	}, nil
}

// Close releases every held connection, in reverse acquisition order.
func (c *Container) Close(ctx context.Context) {
	c.Performance.Stop()
	_ = c.Metrics.Shutdown(ctx)
	_ = c.Tracer.Shutdown(ctx)
	_ = c.Redis.Close()
	_ = c.DB.Close()
}

func weightOf(cfg *config.Config, tag string) float64 {
	if a, ok := cfg.Analyzers[tag]; ok && a.Enabled {
		return a.Weight
	}
	return 0
}

func toAddressSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}
