package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/shieldcore/firewall/internal/model"
)

func (s *Server) handleHealth(c *gin.Context) {
	services := map[string]string{
		"contract-reputation": s.c.ContractReputation.Health(),
		"honeypot":            s.c.Honeypot.Health(),
		"market":              s.c.Market.Health(),
		"wallet-reputation":   s.c.WalletReputation.Health(),
		"simulation":          s.c.Simulation.Health(),
		"scam-list":           s.c.ScamList.Health(),
	}
	chains := make([]int64, 0, len(s.c.Adapters))
	for id, a := range s.c.Adapters {
		chains = append(chains, id)
		services[fmt.Sprintf("chain-%d", id)] = a.Health()
	}
	status := "up"
	for _, v := range services {
		if v == "down" {
			status = "degraded"
			break
		}
	}
	c.JSON(http.StatusOK, HealthResponse{Status: status, Chains: chains, Services: services})
}

func (s *Server) handleScan(c *gin.Context) {
	var req ScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}
	if !s.chainSupported(req.ChainID) {
		writeError(c, http.StatusBadRequest, "CHAIN_UNSUPPORTED", "chain not configured")
		return
	}
	target, err := model.NewAddress(req.ChainID, req.Address)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	ac := model.NewAnalysisContext(requestID(c), req.ChainID, target, s.c.Config.Policy.Mode, time.Time{})
	verdict, err := s.runPipeline(c.Request.Context(), req.ChainID, ac)
	if err != nil {
		status, code := kindToHTTP(err)
		writeError(c, status, code, err.Error())
		return
	}

	result := ScanResult{Score: verdict.Score, Partial: len(verdict.Score.FailedSources) > 0, ForensicURL: verdict.ForensicURL}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleFirewall(c *gin.Context) {
	var req FirewallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}
	if !s.chainSupported(req.ChainID) {
		writeError(c, http.StatusBadRequest, "CHAIN_UNSUPPORTED", "chain not configured")
		return
	}

	target, err := model.NewAddress(req.ChainID, req.To)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}

	ac := model.NewAnalysisContext(requestID(c), req.ChainID, target, s.c.Config.Policy.Mode, time.Time{})
	if req.From != "" {
		if from, err := model.NewAddress(req.ChainID, req.From); err == nil {
			ac.From = &from
		}
	}
	ac.Value = hexOrDecimalBigInt(req.Value)
	if data, err := hexToBytes(req.Data); err == nil {
		ac.Calldata = data
	}
	if adapter, ok := s.c.Adapters[req.ChainID]; ok && len(ac.Calldata) > 0 {
		if call, err := adapter.DecodeCall(c.Request.Context(), ac.Calldata); err == nil {
			ac.Call = call
		}
	}
	if req.TypedData != nil {
		ac.TypedData = &model.TypedData{
			PrimaryType: req.TypedData.PrimaryType,
			Domain:      req.TypedData.Domain,
			Message:     req.TypedData.Message,
		}
	}

	verdict, err := s.runPipeline(c.Request.Context(), req.ChainID, ac)
	if err != nil {
		status, code := kindToHTTP(err)
		writeError(c, status, code, err.Error())
		return
	}

	result := FirewallResult{
		ScanResult: ScanResult{Score: verdict.Score, Partial: len(verdict.Score.FailedSources) > 0, ForensicURL: verdict.ForensicURL},
		Verdict:       verdict,
		PlainEnglish:  verdict.Explanation,
		TransactionImpact: transactionImpact(ac, req),
	}
	c.JSON(http.StatusOK, result)
}

// transactionImpact builds the plain-language "what this transaction does"
// summary (spec §6) from the decoded call and value, never from the
// ShieldScore — impact describes the transaction, not its risk.
func transactionImpact(ac *model.AnalysisContext, req FirewallRequest) TransactionImpact {
	impact := TransactionImpact{Recipient: req.To}
	if ac.Value != nil && ac.Value.Sign() > 0 {
		impact.Sending = fmt.Sprintf("%s wei to %s", ac.Value.String(), req.To)
	} else {
		impact.Sending = "no native value"
	}
	switch {
	case strings.HasPrefix(ac.Call.FunctionName, "approve("):
		impact.GrantingAccess = "an allowance to move your tokens on this contract's behalf"
		impact.PostTxState = "the spender can move the approved amount at any time until revoked"
	case ac.Call.FunctionName == "":
		impact.GrantingAccess = "none detected"
		impact.PostTxState = "no approval state change detected"
	default:
		impact.GrantingAccess = fmt.Sprintf("calling %s on the target contract", ac.Call.FunctionName)
		impact.PostTxState = "contract-specific; see breakdown for risk signals"
	}
	return impact
}

func (s *Server) handleRescue(c *gin.Context) {
	walletHex := c.Param("wallet")
	chainID, err := strconv.ParseInt(c.Query("chain_id"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", "chain_id query param required")
		return
	}
	wallet, err := model.NewAddress(chainID, walletHex)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}
	report, err := s.c.Rescuer.Rescue(c.Request.Context(), wallet, chainID)
	if err != nil {
		status, code := kindToHTTP(err)
		writeError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) handleCampaign(c *gin.Context) {
	addrHex := c.Param("address")
	chainID, err := strconv.ParseInt(c.DefaultQuery("chain_id", "1"), 10, 64)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", "malformed chain_id")
		return
	}
	addr, err := model.NewAddress(chainID, addrHex)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}
	campaign, err := s.c.Correlator.Campaign(c.Request.Context(), addr)
	if err != nil {
		status, code := kindToHTTP(err)
		writeError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, campaign)
}

func (s *Server) handleThreatsFeed(c *gin.Context) {
	var chainID *int64
	if raw := c.Query("chain_id"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			chainID = &id
		}
	}
	since := time.Now().Add(-24 * time.Hour)
	if raw := c.Query("since"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			since = ts
		}
	}
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}

	contracts, err := s.c.Reputation.TopFlagged(c.Request.Context(), chainID, limit)
	if err != nil {
		status, code := kindToHTTP(err)
		writeError(c, status, code, err.Error())
		return
	}
	alerts, err := s.c.Reputation.RecentAlerts(c.Request.Context(), chainID, since, limit)
	if err != nil {
		status, code := kindToHTTP(err)
		writeError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusOK, ThreatsFeedResponse{HighRiskContracts: contracts, MempoolAlerts: alerts})
}

func (s *Server) handleOutcome(c *gin.Context) {
	var req OutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}
	event := model.OutcomeEvent{
		VerdictID:        req.VerdictID,
		Decision:         model.UserDecision(req.Decision),
		DownstreamSignal: model.SignalNone,
		Timestamp:        time.Now(),
	}
	if req.DownstreamSignal != "" {
		event.DownstreamSignal = model.DownstreamSignal(req.DownstreamSignal)
	}
	if err := s.c.Reputation.RecordOutcome(c.Request.Context(), event); err != nil {
		status, code := kindToHTTP(err)
		writeError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}

func (s *Server) handleReport(c *gin.Context) {
	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}
	target, err := model.NewAddress(req.ChainID, req.Address)
	if err != nil {
		writeError(c, http.StatusBadRequest, "INVALID_ADDRESS", err.Error())
		return
	}
	report := model.CommunityReport{
		Reporter:  requestID(c),
		Target:    target,
		Kind:      model.ReportKind(req.Kind),
		Note:      req.Note,
		Timestamp: time.Now(),
	}
	if err := s.c.Reputation.RecordReport(c.Request.Context(), report); err != nil {
		status, code := kindToHTTP(err)
		writeError(c, status, code, err.Error())
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "recorded"})
}
