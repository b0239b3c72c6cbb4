// Package jsonrpc holds the JSON-RPC 2.0 envelope shared by the Circles RPC
// client and the EIP-1193 wallet transport.
package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the protocol version sent with every request.
const Version = "2.0"

// EIP-1193 provider error codes.
const (
	CodeUserRejected      = 4001
	CodeUnauthorized      = 4100
	CodeUnsupportedMethod = 4200
	CodeDisconnected      = 4900
	CodeChainDisconnected = 4901
	CodeUnrecognizedChain = 4902
	CodeExecutionReverted = 3
	CodeInternalJSONRPC   = -32603
	CodeInvalidParams     = -32602
	CodeMethodNotFound    = -32601
)

// Request is an outgoing call.
type Request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// NewRequest builds a request. Params are never encoded as null.
func NewRequest(id uint64, method string, params []any) Request {
	if params == nil {
		params = []any{}
	}
	return Request{JSONRPC: Version, ID: id, Method: method, Params: params}
}

// Response is either a reply to a Request (ID set) or a server notification
// (Method set, ID zero).
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// IsNotification reports whether the message is unsolicited.
func (r *Response) IsNotification() bool {
	return r.Method != "" && r.ID == 0
}

// Decode unmarshals the result into out. A nil out discards the result.
func (r *Response) Decode(out any) error {
	if r.Error != nil {
		return r.Error
	}
	if out == nil {
		return nil
	}
	if len(r.Result) == 0 {
		return json.Unmarshal([]byte("null"), out)
	}
	if err := json.Unmarshal(r.Result, out); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// IsCode returns true if err (or any wrapped error) is an Error with the given code.
func IsCode(err error, code int) bool {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr.Code == code
	}
	return false
}
