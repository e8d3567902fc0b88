// Package rpcproxy implements the RPCProxy: a JSON-RPC 2.0 man-in-the-middle
// that intercepts wallet signing/submission methods, runs them through the
// analyzer pipeline, and maps the resulting Verdict onto ALLOW (forward),
// WARN (forward only if acknowledged), or BLOCK (never forward). Grounded
// in the teacher's pkg/middleware reverse-proxy-handler idiom, generalized
// to JSON-RPC method interception instead of REST routes.
package rpcproxy

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/core/types"

	"github.com/shieldcore/firewall/internal/analysis"
	"github.com/shieldcore/firewall/internal/chain"
	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/internal/policy"
	"github.com/shieldcore/firewall/internal/risk"
	"github.com/shieldcore/firewall/pkg/observability"
)

// interceptedMethods is the minimum interception set from spec §4.6. Every
// other method passes through untouched.
var interceptedMethods = map[string]bool{
	"eth_sendTransaction":    true,
	"eth_sendRawTransaction": true,
	"eth_signTransaction":    true,
	"eth_sign":               true,
	"personal_sign":          true,
	"eth_signTypedData_v3":   true,
	"eth_signTypedData_v4":   true,
}

// ChainRoute bundles everything the proxy needs to intercept traffic for
// one chain id.
type ChainRoute struct {
	ChainID      int64
	Adapter      chain.Adapter
	Upstream     string // upstream RPC URL this chain forwards to
	Registry     *analysis.Registry
	RiskEngine   *risk.Engine
	PolicyEngine *policy.Engine
	Mode         config.PolicyMode
}

// Proxy serves one HTTP endpoint per chain id.
type Proxy struct {
	routes   map[int64]*ChainRoute
	upstream *http.Client
	deadline time.Duration
	logger   *observability.Logger
}

func NewProxy(routes map[int64]*ChainRoute, pc config.PolicyConfig, logger *observability.Logger) *Proxy {
	return &Proxy{
		routes:   routes,
		upstream: &http.Client{Timeout: pc.UpstreamTimeout},
		deadline: pc.RequestDeadline,
		logger:   logger,
	}
}

// ServeHTTP handles one request on one connection. net/http dispatches
// requests on a kept-alive HTTP/1.1 connection serially through the same
// goroutine, which is what gives the proxy its per-connection ordering
// guarantee (spec §4.6/§5) without any extra synchronization here.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	route, ok := p.routeFor(r)
	if !ok {
		http.Error(w, "unknown chain route", http.StatusNotFound)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "cannot read body", http.StatusBadRequest)
		return
	}

	trimmed := bytes.TrimSpace(body)
	ack := r.Header.Get("X-Shield-Ack") == "true"

	if len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []Request
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			http.Error(w, "malformed batch", http.StatusBadRequest)
			return
		}
		resps := make([]Response, len(reqs))
		for i, req := range reqs {
			resps[i] = p.handleOne(r.Context(), route, req, ack)
		}
		writeJSON(w, resps)
		return
	}

	var req Request
	if err := json.Unmarshal(trimmed, &req); err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}
	writeJSON(w, p.handleOne(r.Context(), route, req, ack))
}

func (p *Proxy) routeFor(r *http.Request) (*ChainRoute, bool) {
	// /rpc/{chainId}
	parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	if len(parts) != 2 || parts[0] != "rpc" {
		return nil, false
	}
	var chainID int64
	if _, err := fmt.Sscanf(parts[1], "%d", &chainID); err != nil {
		return nil, false
	}
	route, ok := p.routes[chainID]
	return route, ok
}

func (p *Proxy) handleOne(ctx context.Context, route *ChainRoute, req Request, ack bool) Response {
	if !interceptedMethods[req.Method] {
		return p.forward(ctx, route, req)
	}

	ac, buildErr := p.buildContext(route, req)
	if buildErr != nil {
		// Malformed params: don't guess, let the upstream reject it the
		// way it normally would.
		return p.forward(ctx, route, req)
	}

	deadline := time.Now().Add(p.deadline)
	ac.Deadline = deadline
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	results := analysis.Run(runCtx, route.Registry, ac)
	score := route.RiskEngine.Compose(route.Registry, results, ac.Mode)
	unverified := hasFlag(score.CriticalFlags, model.FlagUnverified)
	verdict := route.PolicyEngine.Decide(runCtx, route.Registry, score, unverified)

	switch verdict.Action {
	case model.ActionBlock:
		return newResponse(req, nil, &RPCError{Code: CodeShieldBlock, Message: verdict.Explanation, Data: verdict})
	case model.ActionWarn:
		if !ack {
			return newResponse(req, nil, &RPCError{Code: CodeShieldWarn, Message: verdict.Explanation, Data: verdict})
		}
	}

	// ALLOW, or WARN with acknowledgment: forward untouched. Never retried
	// on failure for eth_sendRawTransaction (double-submit hazard).
	return p.forward(ctx, route, req)
}

func hasFlag(flags []model.Flag, target model.Flag) bool {
	for _, f := range flags {
		if f == target {
			return true
		}
	}
	return false
}

// forward sends req to route's upstream exactly once and relays its
// response verbatim.
func (p *Proxy) forward(ctx context.Context, route *ChainRoute, req Request) Response {
	payload, err := json.Marshal(req)
	if err != nil {
		return newResponse(req, nil, &RPCError{Code: -32603, Message: "internal error"})
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, route.Upstream, bytes.NewReader(payload))
	if err != nil {
		return newResponse(req, nil, &RPCError{Code: -32603, Message: "internal error"})
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := p.upstream.Do(httpReq)
	if err != nil {
		p.logger.Warn(ctx, "rpcproxy: upstream call failed", map[string]interface{}{"method": req.Method, "error": err.Error()})
		return newResponse(req, nil, &RPCError{Code: -32000, Message: "upstream unavailable"})
	}
	defer resp.Body.Close()

	var upstreamResp Response
	if err := json.NewDecoder(resp.Body).Decode(&upstreamResp); err != nil {
		return newResponse(req, nil, &RPCError{Code: -32000, Message: "malformed upstream response"})
	}
	upstreamResp.ID = req.ID
	return upstreamResp
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// buildContext decodes req's first param into an AnalysisContext. Raw
// transactions are decoded via go-ethereum's RLP transaction type for
// preview only — the proxy never re-signs or rebroadcasts a decoded
// transaction itself.
func (p *Proxy) buildContext(route *ChainRoute, req Request) (*model.AnalysisContext, error) {
	switch req.Method {
	case "eth_sendTransaction", "eth_signTransaction":
		return p.contextFromTxParams(route, req)
	case "eth_sendRawTransaction":
		return p.contextFromRawTx(route, req)
	case "eth_signTypedData_v3", "eth_signTypedData_v4":
		return p.contextFromTypedData(route, req)
	case "eth_sign", "personal_sign":
		return p.contextFromRawMessage(route, req)
	default:
		return nil, fmt.Errorf("unsupported intercepted method %q", req.Method)
	}
}

func (p *Proxy) contextFromTxParams(route *ChainRoute, req Request) (*model.AnalysisContext, error) {
	chainID, adapter := route.ChainID, route.Adapter
	var params []txParams
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return nil, fmt.Errorf("malformed tx params: %w", err)
	}
	tp := params[0]
	if tp.To == "" {
		return nil, fmt.Errorf("contract creation: nothing to scan")
	}
	target, err := model.NewAddress(chainID, tp.To)
	if err != nil {
		return nil, err
	}
	from, err := model.NewAddress(chainID, tp.From)
	if err != nil {
		return nil, err
	}
	data, _ := hexToBytes(tp.Data)
	value := hexToBigInt(tp.Value)

	ac := model.NewAnalysisContext(req.method(), chainID, target, route.Mode, time.Now())
	ac.From = &from
	ac.Value = value
	ac.Calldata = data
	if call, err := adapter.DecodeCall(context.Background(), data); err == nil {
		ac.Call = call
	}
	return ac, nil
}

func (p *Proxy) contextFromRawTx(route *ChainRoute, req Request) (*model.AnalysisContext, error) {
	chainID, adapter := route.ChainID, route.Adapter
	var params []string
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) == 0 {
		return nil, fmt.Errorf("malformed raw tx params: %w", err)
	}
	raw, err := hexToBytes(params[0])
	if err != nil {
		return nil, err
	}
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("decode raw tx: %w", err)
	}
	if tx.To() == nil {
		return nil, fmt.Errorf("contract creation: nothing to scan")
	}
	target, err := model.NewAddress(chainID, tx.To().Hex())
	if err != nil {
		return nil, err
	}

	signer := types.LatestSignerForChainID(tx.ChainId())
	var fromAddr *model.Address
	if sender, err := types.Sender(signer, tx); err == nil {
		f, ferr := model.NewAddress(chainID, sender.Hex())
		if ferr == nil {
			fromAddr = &f
		}
	}

	ac := model.NewAnalysisContext(req.method(), chainID, target, route.Mode, time.Now())
	ac.From = fromAddr
	ac.Value = tx.Value()
	ac.Calldata = tx.Data()
	if call, err := adapter.DecodeCall(context.Background(), tx.Data()); err == nil {
		ac.Call = call
	}
	return ac, nil
}

func (p *Proxy) contextFromTypedData(route *ChainRoute, req Request) (*model.AnalysisContext, error) {
	chainID := route.ChainID
	var params []json.RawMessage
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) < 2 {
		return nil, fmt.Errorf("malformed typed-data params")
	}
	var account string
	_ = json.Unmarshal(params[0], &account)

	var td typedDataParams
	if err := json.Unmarshal(params[1], &td); err != nil {
		return nil, fmt.Errorf("malformed typed-data payload: %w", err)
	}
	verifyingContract, _ := td.Domain["verifyingContract"].(string)
	if verifyingContract == "" {
		return nil, fmt.Errorf("typed data missing verifyingContract")
	}
	target, err := model.NewAddress(chainID, verifyingContract)
	if err != nil {
		return nil, err
	}
	from, err := model.NewAddress(chainID, account)
	if err != nil {
		return nil, err
	}

	ac := model.NewAnalysisContext(req.method(), chainID, target, route.Mode, time.Now())
	ac.From = &from
	ac.TypedData = &model.TypedData{
		PrimaryType: td.PrimaryType,
		Domain:      td.Domain,
		Message:     td.Message,
	}
	return ac, nil
}

// contextFromRawMessage handles eth_sign/personal_sign: there is no
// contract target or typed structure, only an opaque byte string, so the
// pipeline runs against the signer's own address with no calldata. This
// still exercises Behavioral (wallet/creator reputation) but not
// Structural/Market/Honeypot, which require a contract target.
func (p *Proxy) contextFromRawMessage(route *ChainRoute, req Request) (*model.AnalysisContext, error) {
	chainID := route.ChainID
	var params []string
	if err := json.Unmarshal(req.Params, &params); err != nil || len(params) < 2 {
		return nil, fmt.Errorf("malformed sign params")
	}
	signerHex := params[0]
	if req.Method == "personal_sign" {
		signerHex = params[1]
	}
	signer, err := model.NewAddress(chainID, signerHex)
	if err != nil {
		return nil, err
	}
	ac := model.NewAnalysisContext(req.method(), chainID, signer, route.Mode, time.Now())
	ac.From = &signer
	return ac, nil
}

func (r Request) method() string {
	if len(r.ID) > 0 {
		return string(r.ID)
	}
	return r.Method
}

func hexToBytes(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return nil, nil
	}
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

func hexToBigInt(s string) *big.Int {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

