// Package chain implements the ChainAdapter contract: a narrow interface
// over EVM-chain-specific data access (RPC, explorer API, simulation).
// One adapter instance exists per supported chain id.
package chain

import (
	"context"
	"math/big"

	"github.com/shieldcore/firewall/internal/model"
)

// VerificationInfo is the explorer-sourced verification metadata for a
// contract address.
type VerificationInfo struct {
	Verified   bool
	SourceHash string
	AgeSeconds int64
	Creator    *model.Address
}

// AssetDelta is one balance change observed during a Simulate call.
type AssetDelta struct {
	Token  model.Address
	Holder model.Address
	Delta  *big.Int // signed
}

// SimulationResult is the outcome of Simulate.
type SimulationResult struct {
	Success      bool
	GasUsed      uint64
	AssetDeltas  []AssetDelta
	RevertReason string
}

// TokenMeta is ERC-20-style token metadata.
type TokenMeta struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Tx is the minimal transaction shape adapters need for EstimateGas/Simulate.
type Tx struct {
	From     model.Address
	To       *model.Address // nil for contract creation
	Value    *big.Int
	Data     []byte
	GasLimit uint64
}

// Adapter is the narrow capability set a chain id must provide. Every
// method is deadline-bounded via ctx and idempotent. Failures are always
// returned as *model.ShieldError with one of the Kind values named in
// spec §4.1 (KindTimeout, KindRateLimited, KindNotFound, KindUnavailable,
// KindMalformed); KindNotFound from Bytecode means EOA, not an error
// condition analyzers should treat as a failure.
type Adapter interface {
	ChainID() int64

	Bytecode(ctx context.Context, addr model.Address) (code []byte, isContract bool, err error)
	VerificationInfo(ctx context.Context, addr model.Address) (VerificationInfo, error)
	ReadView(ctx context.Context, addr model.Address, selector [4]byte, args []byte) ([]byte, error)
	DecodeCall(ctx context.Context, data []byte) (model.DecodedCall, error)
	EstimateGas(ctx context.Context, tx Tx) (uint64, error)
	Simulate(ctx context.Context, tx Tx) (SimulationResult, error)
	ListApprovals(ctx context.Context, wallet model.Address, cursor string, limit int) (approvals []model.ApprovalRecord, nextCursor string, err error)
	TokenMeta(ctx context.Context, addr model.Address) (TokenMeta, error)

	// Health reports the adapter's current circuit-breaker state for the
	// /api/health endpoint.
	Health() string
}
