package jsonrpc

import (
	"encoding/json"

	"github.com/theapemachine/a2a-server/pkg/errors"
)

const Version = "2.0"

/*
Request is the JSON-RPC 2.0 request envelope. ID accepts a string, a number
or null and is echoed back verbatim.
*/
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

/*
Response is the JSON-RPC 2.0 response envelope. Exactly one of Result and
Error is set. A nil ID marshals as null.
*/
type Response struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      json.RawMessage  `json:"id"`
	Result  any              `json:"result,omitempty"`
	Error   *errors.RpcError `json:"error,omitempty"`
}

func NewResponse(id json.RawMessage, result any) Response {
	return Response{JSONRPC: Version, ID: id, Result: result}
}

func NewErrorResponse(id json.RawMessage, err *errors.RpcError) Response {
	return Response{JSONRPC: Version, ID: id, Error: err}
}

/*
NewRequest marshals params into a request envelope.
*/
func NewRequest(id any, method string, params any) (Request, error) {
	request := Request{JSONRPC: Version, Method: method}

	rawID, err := json.Marshal(id)

	if err != nil {
		return request, err
	}

	request.ID = rawID

	if params != nil {
		if request.Params, err = json.Marshal(params); err != nil {
			return request, err
		}
	}

	return request, nil
}
