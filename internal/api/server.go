package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shieldcore/firewall/internal/analysis"
	"github.com/shieldcore/firewall/internal/container"
	"github.com/shieldcore/firewall/internal/deployer"
	"github.com/shieldcore/firewall/internal/middleware"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/observability"
)

// Server holds the container every handler needs and the slow-pipeline
// logger runPipeline reports to.
type Server struct {
	c       *container.Container
	perfLog *observability.PerformanceLogger
}

// NewRouter builds the full Gin engine: CORS/tracing/logging always run,
// RequireAPIKey gates every route under /api, mirroring the teacher's
// layered-middleware composition in cmd/auth-service/main.go.
func NewRouter(c *container.Container) *gin.Engine {
	s := &Server{c: c, perfLog: observability.NewPerformanceLogger(c.Logger)}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(c.Config.Server.AllowedOrigins))
	r.Use(middleware.Tracing(c.Config.Observability.ServiceName))
	r.Use(middleware.Logging(c.Logger, c.Performance))
	r.Use(observability.MetricsMiddleware(c.Metrics))

	r.GET("/api/health", s.handleHealth)

	authed := r.Group("/api")
	authed.Use(middleware.RequireAPIKey(c.Keys, c.Logger))
	authed.POST("/scan", s.handleScan)
	authed.POST("/firewall", s.handleFirewall)
	authed.GET("/rescue/:wallet", s.handleRescue)
	authed.GET("/campaign/:address", s.handleCampaign)
	authed.GET("/threats/feed", s.handleThreatsFeed)
	authed.POST("/outcome", s.handleOutcome)
	authed.POST("/report", s.handleReport)

	return r
}

func writeError(c *gin.Context, status int, code, message string) {
	c.JSON(status, gin.H{"error": gin.H{"code": code, "message": message}})
}

// kindToHTTP maps the model.Kind taxonomy onto the standard error codes of
// spec §6.
func kindToHTTP(err error) (int, string) {
	switch model.KindOf(err) {
	case model.KindValidationError, model.KindMalformed:
		return http.StatusBadRequest, "INVALID_ADDRESS"
	case model.KindDeadlineExceeded, model.KindTimeout:
		return http.StatusGatewayTimeout, "DEADLINE_EXCEEDED"
	case model.KindUnavailable, model.KindTransientUpstream:
		return http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"
	case model.KindAuthError:
		return http.StatusUnauthorized, "UNAUTHENTICATED"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

// chainSupported reports whether chainID has both an adapter and a
// registry wired, i.e. whether CHAIN_UNSUPPORTED should be returned.
func (s *Server) chainSupported(chainID int64) bool {
	_, hasAdapter := s.c.Adapters[chainID]
	_, hasRegistry := s.c.Registries[chainID]
	return hasAdapter && hasRegistry
}

// runPipeline executes the shared Structural->...->RiskEngine->PolicyEngine
// chain for ac, grounded in rpcproxy.Proxy.handleOne's orchestration.
func (s *Server) runPipeline(ctx context.Context, chainID int64, ac *model.AnalysisContext) (model.Verdict, error) {
	start := time.Now()
	registry := s.c.Registries[chainID]
	deadline := start.Add(s.c.Config.Policy.RequestDeadline)
	ac.Deadline = deadline
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()
	defer func() {
		s.perfLog.LogSlowOperation(ctx, "run_pipeline", time.Since(start), s.c.Config.Policy.RequestDeadline,
			map[string]interface{}{"chain_id": chainID})
	}()

	results := analysis.Run(runCtx, registry, ac)
	score := s.c.RiskEngine.Compose(registry, results, ac.Mode)
	unverified := scoreHasFlag(score, model.FlagUnverified)
	verdict := s.c.Policy.Decide(runCtx, registry, score, unverified)

	if err := s.c.Reputation.Upsert(ctx, chainID, ac.Target, score, time.Now()); err != nil {
		s.c.Logger.Warn(ctx, "api: reputation upsert failed", map[string]interface{}{"error": err.Error()})
	}
	s.c.Indexer.Enqueue(deployer.BackfillItem{ChainID: chainID, Address: ac.Target})
	s.c.Metrics.RecordWeb3Transaction(ctx, strconv.FormatInt(chainID, 10), "firewall_scan", string(verdict.Action))
	return verdict, nil
}

func scoreHasFlag(score model.ShieldScore, target model.Flag) bool {
	for _, f := range score.CriticalFlags {
		if f == target {
			return true
		}
	}
	return false
}
