package model

import (
	"math/big"
	"time"

	"github.com/shieldcore/firewall/internal/config"
)

// DecodedCall is the result of ChainAdapter.DecodeCall: a best-effort
// interpretation of raw calldata against the known-selector table.
type DecodedCall struct {
	Selector     [4]byte
	FunctionName string // empty if unknown
	Args         map[string]any
}

// TypedData carries an EIP-712 style signing request (Permit / Permit2 /
// marketplace order) for the SignaturePermit analyzer.
type TypedData struct {
	PrimaryType string
	Domain      map[string]any
	Message     map[string]any
}

// AnalysisContext is the per-request bundle every analyzer reads. It is
// owned by the entry handler that created it (HTTP scan handler or the
// JSON-RPC proxy's connection goroutine), which fills in From, Value,
// Calldata, Call, TypedData and Deadline before the pipeline runs; it is
// never shared across requests. Once analyzers run, only the request-scoped
// Cache is written, and only by the goroutine that owns this context.
type AnalysisContext struct {
	RequestID string
	ChainID   int64
	Target    Address
	From      *Address // optional: the transaction's msg.sender
	Value     *big.Int // wei; nil treated as zero
	Calldata  []byte
	Call      DecodedCall
	TypedData *TypedData // present only for signature-method requests
	Mode      config.PolicyMode
	Deadline  time.Time

	cache map[string]any
}

// NewAnalysisContext constructs an AnalysisContext with its cache initialized.
// deadline is only the initial value: the pipeline runners
// (api.Server.runPipeline, rpcproxy's handleOne) overwrite Deadline with
// their own request deadline and run the analyzers under a context derived
// from it via context.WithDeadline.
func NewAnalysisContext(requestID string, chainID int64, target Address, mode config.PolicyMode, deadline time.Time) *AnalysisContext {
	return &AnalysisContext{
		RequestID: requestID,
		ChainID:   chainID,
		Target:    target,
		Mode:      mode,
		Deadline:  deadline,
		cache:     make(map[string]any),
	}
}

// CacheGet is a pure read of the request-scoped cache. Only the goroutine
// that owns this AnalysisContext may call CacheGet/CacheSet; analyzers must
// never mutate it from a value they did not set themselves.
func (c *AnalysisContext) CacheGet(key string) (any, bool) {
	v, ok := c.cache[key]
	return v, ok
}

// CacheSet stores a value in the request-scoped cache.
func (c *AnalysisContext) CacheSet(key string, value any) {
	c.cache[key] = value
}

// ValueOrZero returns Value, or big.NewInt(0) if Value is nil.
func (c *AnalysisContext) ValueOrZero() *big.Int {
	if c.Value == nil {
		return big.NewInt(0)
	}
	return c.Value
}
