package rpcproxy

import "encoding/json"

// Request is a JSON-RPC 2.0 request object. Params is kept raw so
// unintercepted methods can be forwarded byte-for-byte.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response is a JSON-RPC 2.0 response object.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError is a JSON-RPC 2.0 error object. The shield-specific codes live
// alongside the standard JSON-RPC range without colliding with it.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Shield-specific JSON-RPC error codes (spec §4.6). Chosen from the
// implementation-defined server-error range (-32000 to -32099).
const (
	CodeShieldWarn  = -32001
	CodeShieldBlock = -32002
)

func newResponse(req Request, result json.RawMessage, rpcErr *RPCError) Response {
	return Response{JSONRPC: "2.0", ID: req.ID, Result: result, Error: rpcErr}
}

// txParams is the shape of eth_sendTransaction / eth_signTransaction's
// first positional parameter.
type txParams struct {
	From     string `json:"from"`
	To       string `json:"to"`
	Value    string `json:"value"`
	Data     string `json:"data"`
	Gas      string `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

// typedDataParams is the shape of eth_signTypedData_v3/v4's second
// positional parameter (the first is the signing account).
type typedDataParams struct {
	Types       map[string]any `json:"types"`
	PrimaryType string         `json:"primaryType"`
	Domain      map[string]any `json:"domain"`
	Message     map[string]any `json:"message"`
}
