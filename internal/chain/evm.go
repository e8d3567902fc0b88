package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker"

	"github.com/shieldcore/firewall/internal/config"
	"github.com/shieldcore/firewall/internal/model"
	"github.com/shieldcore/firewall/pkg/observability"
)

// endpoint pairs a live ethclient connection with the breaker guarding it.
type endpoint struct {
	url     string
	client  *ethclient.Client
	breaker *gobreaker.CircuitBreaker
}

// EVMAdapter implements Adapter over go-ethereum's ethclient, the teacher's
// only blockchain client dependency. Fallback RPC endpoints are tried in
// configured order; a per-endpoint circuit breaker short-circuits a dead
// endpoint so a single bad RPC provider cannot stall the whole pipeline.
type EVMAdapter struct {
	chainID   int64
	endpoints []*endpoint
	explorer  *explorerClient
	logger    *observability.Logger
}

// NewEVMAdapter dials every configured RPC URL eagerly (idiomatic for a
// long-lived service) and wraps each with its own breaker, grounded in the
// teacher's per-endpoint circuit breaker shape (fail_threshold/window/cooldown).
func NewEVMAdapter(cfg config.ChainConfig, circuit config.CircuitConfig, logger *observability.Logger) (*EVMAdapter, error) {
	if len(cfg.RPCURLs) == 0 {
		return nil, fmt.Errorf("chain %d: at least one rpc url is required", cfg.ChainID)
	}
	a := &EVMAdapter{
		chainID: cfg.ChainID,
		logger:  logger,
	}
	for _, url := range cfg.RPCURLs {
		client, err := ethclient.Dial(url)
		if err != nil {
			logger.Warn(context.Background(), "chain adapter: failed to dial rpc endpoint", map[string]any{"chain_id": cfg.ChainID, "url": url, "error": err.Error()})
			continue
		}
		settings := gobreaker.Settings{
			Name:        fmt.Sprintf("chain-%d-%s", cfg.ChainID, url),
			MaxRequests: 1,
			Interval:    circuit.Window,
			Timeout:     circuit.Cooldown,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= uint32(circuit.FailThreshold)
			},
		}
		a.endpoints = append(a.endpoints, &endpoint{
			url:     url,
			client:  client,
			breaker: gobreaker.NewCircuitBreaker(settings),
		})
	}
	if len(a.endpoints) == 0 {
		return nil, fmt.Errorf("chain %d: no rpc endpoint could be dialed", cfg.ChainID)
	}
	if cfg.ExplorerAPIBase != "" {
		a.explorer = newExplorerClient(cfg.ExplorerAPIBase, cfg.ExplorerAPIKey)
	}
	return a, nil
}

func (a *EVMAdapter) ChainID() int64 { return a.chainID }

// Health reports "up" if no endpoint's breaker is open, "degraded" if
// some but not all are open, and "down" if every endpoint's breaker is open.
func (a *EVMAdapter) Health() string {
	open, total := 0, len(a.endpoints)
	for _, ep := range a.endpoints {
		if ep.breaker.State() == gobreaker.StateOpen {
			open++
		}
	}
	switch {
	case open == 0:
		return "up"
	case open < total:
		return "degraded"
	default:
		return "down"
	}
}

// firstHealthy selects the first endpoint whose breaker is not open,
// implementing the "adapter selects the first healthy one" rule.
func (a *EVMAdapter) firstHealthy() *endpoint {
	for _, ep := range a.endpoints {
		if ep.breaker.State() != gobreaker.StateOpen {
			return ep
		}
	}
	return a.endpoints[0] // let the breaker itself reject; surfaces as Unavailable
}

func classifyRPCError(err error) model.Kind {
	if err == nil {
		return model.KindUnknown
	}
	if err == context.DeadlineExceeded {
		return model.KindTimeout
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "not found"):
		return model.KindNotFound
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429"):
		return model.KindRateLimited
	case err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests:
		return model.KindUnavailable
	default:
		return model.KindUnavailable
	}
}

func (a *EVMAdapter) Bytecode(ctx context.Context, addr model.Address) ([]byte, bool, error) {
	ep := a.firstHealthy()
	result, err := ep.breaker.Execute(func() (any, error) {
		return ep.client.CodeAt(ctx, ethcommon.BytesToAddress(addr.Bytes[:]), nil)
	})
	if err != nil {
		return nil, false, model.NewShieldError(classifyRPCError(err), "chain.Bytecode", err)
	}
	code := result.([]byte)
	return code, len(code) > 0, nil
}

func (a *EVMAdapter) VerificationInfo(ctx context.Context, addr model.Address) (VerificationInfo, error) {
	if a.explorer == nil {
		return VerificationInfo{}, model.NewShieldError(model.KindUnavailable, "chain.VerificationInfo", fmt.Errorf("no explorer configured for chain %d", a.chainID))
	}
	return a.explorer.VerificationInfo(ctx, addr)
}

// Source returns the verified Solidity source for addr, or "" if the
// explorer has no source on file. Used by the Structural analyzer's
// source-pattern signals (spec §4.3.1).
func (a *EVMAdapter) Source(ctx context.Context, addr model.Address) (string, error) {
	if a.explorer == nil {
		return "", nil
	}
	return a.explorer.SourceOf(ctx, addr)
}

func (a *EVMAdapter) ReadView(ctx context.Context, addr model.Address, selector [4]byte, args []byte) ([]byte, error) {
	ep := a.firstHealthy()
	data := append(append([]byte{}, selector[:]...), args...)
	to := ethcommon.BytesToAddress(addr.Bytes[:])
	result, err := ep.breaker.Execute(func() (any, error) {
		return ep.client.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		return nil, model.NewShieldError(classifyRPCError(err), "chain.ReadView", err)
	}
	return result.([]byte), nil
}

func (a *EVMAdapter) DecodeCall(ctx context.Context, data []byte) (model.DecodedCall, error) {
	if len(data) < 4 {
		return model.DecodedCall{}, model.NewShieldError(model.KindMalformed, "chain.DecodeCall", fmt.Errorf("calldata shorter than a selector: %d bytes", len(data)))
	}
	var sel [4]byte
	copy(sel[:], data[:4])
	call := model.DecodedCall{Selector: sel, Args: map[string]any{}}
	if name, ok := KnownSelectors[fmt.Sprintf("%x", sel)]; ok {
		call.FunctionName = name
		if parsed, err := decodeKnownArgs(name, data[4:]); err == nil {
			call.Args = parsed
		}
	}
	return call, nil
}

// decodeKnownArgs decodes the argument tuple for the small set of selectors
// this system cares about (approve/transfer/transferFrom/permit), using
// go-ethereum's abi package rather than hand-rolled ABI decoding.
func decodeKnownArgs(signature string, payload []byte) (map[string]any, error) {
	argTypes, err := argTypesForSignature(signature)
	if err != nil {
		return nil, err
	}
	values, err := argTypes.UnpackValues(payload)
	if err != nil {
		return nil, err
	}
	out := make(map[string]any, len(values))
	for i, v := range values {
		out[fmt.Sprintf("arg%d", i)] = v
	}
	return out, nil
}

func argTypesForSignature(signature string) (abi.Arguments, error) {
	open := strings.Index(signature, "(")
	close := strings.LastIndex(signature, ")")
	if open < 0 || close < open {
		return nil, fmt.Errorf("malformed signature %q", signature)
	}
	typeList := strings.Split(signature[open+1:close], ",")
	var args abi.Arguments
	for _, t := range typeList {
		if t == "" {
			continue
		}
		abiType, err := abi.NewType(t, "", nil)
		if err != nil {
			return nil, err
		}
		args = append(args, abi.Argument{Type: abiType})
	}
	return args, nil
}

func (a *EVMAdapter) EstimateGas(ctx context.Context, tx Tx) (uint64, error) {
	ep := a.firstHealthy()
	msg := ethereum.CallMsg{
		From:  ethcommon.BytesToAddress(tx.From.Bytes[:]),
		Value: tx.Value,
		Data:  tx.Data,
	}
	if tx.To != nil {
		to := ethcommon.BytesToAddress(tx.To.Bytes[:])
		msg.To = &to
	}
	result, err := ep.breaker.Execute(func() (any, error) {
		return ep.client.EstimateGas(ctx, msg)
	})
	if err != nil {
		return 0, model.NewShieldError(classifyRPCError(err), "chain.EstimateGas", err)
	}
	return result.(uint64), nil
}

// Simulate has no standard JSON-RPC method across providers; absence
// degrades honeypot and intent analysis per spec §4.1. EVMAdapter reports
// it unavailable unless a provider-specific simulation backend is wired in
// by a future adapter (e.g. Tenderly); that integration is out of this
// repo's scope (spec §1 non-goals: no third-party payload shapes).
func (a *EVMAdapter) Simulate(ctx context.Context, tx Tx) (SimulationResult, error) {
	return SimulationResult{}, model.NewShieldError(model.KindUnavailable, "chain.Simulate", fmt.Errorf("no simulation backend configured for chain %d", a.chainID))
}

func (a *EVMAdapter) ListApprovals(ctx context.Context, wallet model.Address, cursor string, limit int) ([]model.ApprovalRecord, string, error) {
	ep := a.firstHealthy()
	approveTopic := crypto.Keccak256Hash([]byte("Approval(address,address,uint256)"))
	ownerTopic := ethcommon.BytesToHash(ethcommon.LeftPadBytes(wallet.Bytes[:], 32))

	fromBlock, err := parseCursor(cursor)
	if err != nil {
		return nil, "", model.NewShieldError(model.KindMalformed, "chain.ListApprovals", err)
	}

	result, err := ep.breaker.Execute(func() (any, error) {
		return ep.client.FilterLogs(ctx, ethereum.FilterQuery{
			Topics:    [][]ethcommon.Hash{{approveTopic}, {ownerTopic}},
			FromBlock: big.NewInt(fromBlock),
		})
	})
	if err != nil {
		return nil, "", model.NewShieldError(classifyRPCError(err), "chain.ListApprovals", err)
	}
	logs := result.([]types.Log)
	records := make([]model.ApprovalRecord, 0, len(logs))
	for i, lg := range logs {
		if i >= limit {
			break
		}
		// Approval(owner, spender, value): Topics[1] is the owner (the
		// wallet), Topics[2] the spender.
		if len(lg.Topics) < 3 || len(lg.Data) < 32 {
			continue
		}
		spender, sErr := model.NewAddress(a.chainID, ethcommon.BytesToAddress(lg.Topics[2].Bytes()).Hex())
		if sErr != nil {
			continue
		}
		records = append(records, model.ApprovalRecord{
			Wallet:           wallet,
			Token:            mustAddress(a.chainID, lg.Address.Hex()),
			Spender:          spender,
			Allowance:        new(big.Int).SetBytes(lg.Data[:32]).String(),
			LastUpdatedBlock: lg.BlockNumber,
		})
	}
	next := ""
	if len(logs) > 0 {
		next = fmt.Sprintf("%d", logs[len(logs)-1].BlockNumber+1)
	}
	return records, next, nil
}

func (a *EVMAdapter) TokenMeta(ctx context.Context, addr model.Address) (TokenMeta, error) {
	name, _ := a.ReadView(ctx, addr, selector("name()"), nil)
	symbol, _ := a.ReadView(ctx, addr, selector("symbol()"), nil)
	decimalsRaw, err := a.ReadView(ctx, addr, selector("decimals()"), nil)
	if err != nil {
		return TokenMeta{}, model.NewShieldError(model.KindUnavailable, "chain.TokenMeta", err)
	}
	var decimals uint8
	if len(decimalsRaw) >= 32 {
		decimals = uint8(new(big.Int).SetBytes(decimalsRaw[:32]).Uint64())
	}
	return TokenMeta{
		Name:     decodeABIString(name),
		Symbol:   decodeABIString(symbol),
		Decimals: decimals,
	}, nil
}

func selector(signature string) [4]byte {
	var out [4]byte
	hash := crypto.Keccak256Hash([]byte(signature))
	copy(out[:], hash[:4])
	return out
}

func decodeABIString(raw []byte) string {
	if len(raw) < 64 {
		return ""
	}
	length := new(big.Int).SetBytes(raw[32:64]).Uint64()
	if uint64(len(raw)) < 64+length {
		return ""
	}
	return string(raw[64 : 64+length])
}

func mustAddress(chainID int64, hex string) model.Address {
	addr, _ := model.NewAddress(chainID, hex)
	return addr
}

func parseCursor(cursor string) (int64, error) {
	if cursor == "" {
		return 0, nil
	}
	var block int64
	_, err := fmt.Sscanf(cursor, "%d", &block)
	return block, err
}
